package imaging

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

// writeQuadrantPNG writes a PNG with red, green, blue and white quadrants
// (top-left, top-right, bottom-left, bottom-right) into dir.
func writeQuadrantPNG(t *testing.T, dir string, width, height int) string {
	t.Helper()

	quadrant := []color.RGBA{
		{255, 0, 0, 255}, {0, 255, 0, 255},
		{0, 0, 255, 255}, {255, 255, 255, 255},
	}
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			q := 0
			if x >= width/2 {
				q++
			}
			if y >= height/2 {
				q += 2
			}
			img.SetRGBA(x, y, quadrant[q])
		}
	}

	path := filepath.Join(dir, "quadrants.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create %s: %v", path, err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("failed to encode image: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeQuadrantPNG(t, t.TempDir(), 40, 30)

	img, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 40 || b.Dy() != 30 {
		t.Errorf("dimensions: got %dx%d, want 40x30", b.Dx(), b.Dy())
	}

	checks := []struct {
		x, y    int
		r, g, b uint32
	}{
		{5, 5, 255, 0, 0},
		{35, 5, 0, 255, 0},
		{5, 25, 0, 0, 255},
		{35, 25, 255, 255, 255},
	}
	for _, c := range checks {
		r, g, b, _ := img.At(c.x, c.y).RGBA()
		if r>>8 != c.r || g>>8 != c.g || b>>8 != c.b {
			t.Errorf("pixel (%d,%d): got (%d,%d,%d), want (%d,%d,%d)",
				c.x, c.y, r>>8, g>>8, b>>8, c.r, c.g, c.b)
		}
	}
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()
	garbage := filepath.Join(dir, "garbage.png")
	if err := os.WriteFile(garbage, []byte("not an image"), 0644); err != nil {
		t.Fatal(err)
	}

	for _, path := range []string{filepath.Join(dir, "missing.png"), garbage} {
		if _, err := Load(path); err == nil {
			t.Errorf("Load(%s) should fail", filepath.Base(path))
		}
	}
}

func TestImageCache(t *testing.T) {
	dir := t.TempDir()
	path := writeQuadrantPNG(t, dir, 20, 20)
	cache := NewImageCache()

	first, err := cache.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	second, err := cache.Load(path)
	if err != nil {
		t.Fatalf("second Load failed: %v", err)
	}
	if first != second {
		t.Error("second Load did not return the cached image")
	}
	if cache.Len() != 1 {
		t.Errorf("Len: got %d, want 1", cache.Len())
	}

	// failed loads are not cached
	if _, err := cache.Load(filepath.Join(dir, "missing.png")); err == nil {
		t.Error("Load should fail for a missing file")
	}
	if cache.Len() != 1 {
		t.Errorf("Len after failed load: got %d, want 1", cache.Len())
	}

	cache.Evict("/never/loaded.png")
	cache.Evict(path)
	if cache.Len() != 0 {
		t.Errorf("Evict left %d images", cache.Len())
	}

	if _, err := cache.Load(path); err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	cache.Clear()
	if cache.Len() != 0 {
		t.Errorf("Clear left %d images", cache.Len())
	}
}

func TestImageCache_ConcurrentAccess(t *testing.T) {
	path := writeQuadrantPNG(t, t.TempDir(), 50, 50)
	cache := NewImageCache()

	var wg sync.WaitGroup
	errs := make(chan error, 64)
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func(evict bool) {
			defer wg.Done()
			if _, err := cache.Load(path); err != nil {
				errs <- err
			}
			if evict {
				cache.Evict(path)
			}
		}(i%4 == 0)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("concurrent Load error: %v", err)
	}
}

func TestLoadImageInfo(t *testing.T) {
	dir := t.TempDir()
	path := writeQuadrantPNG(t, dir, 200, 150)
	cache := NewImageCache()

	info, err := LoadImageInfo(cache, path)
	if err != nil {
		t.Fatalf("LoadImageInfo failed: %v", err)
	}
	stat, _ := os.Stat(path)
	want := ImageInfo{Width: 200, Height: 150, Format: "png", FileSizeBytes: stat.Size()}
	if *info != want {
		t.Errorf("got %+v, want %+v", *info, want)
	}

	dims, err := GetDimensions(cache, path)
	if err != nil {
		t.Fatalf("GetDimensions failed: %v", err)
	}
	if dims.Width != 200 || dims.Height != 150 {
		t.Errorf("GetDimensions: got %dx%d, want 200x150", dims.Width, dims.Height)
	}

	missing := filepath.Join(dir, "missing.png")
	if _, err := LoadImageInfo(cache, missing); err == nil {
		t.Error("LoadImageInfo should fail for a missing file")
	}
	if _, err := GetDimensions(cache, missing); err == nil {
		t.Error("GetDimensions should fail for a missing file")
	}
}

func TestFormatFromExt(t *testing.T) {
	tests := map[string]string{
		"a.png":  "png",
		"a.JPG":  "jpeg",
		"a.jpeg": "jpeg",
		"a.gif":  "gif",
		"a.bmp":  "bmp",
		"a.tif":  "tiff",
		"a.tiff": "tiff",
		"a.webp": "webp",
		"a.xyz":  "unknown",
		"noext":  "unknown",
	}

	for path, want := range tests {
		if got := formatFromExt(path); got != want {
			t.Errorf("formatFromExt(%s): got %s, want %s", path, got, want)
		}
	}
}

func TestListImages(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.png", "a.JPG", "c.jpeg", "notes.txt", "d.gif"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644); err != nil {
			t.Fatalf("failed to write %s: %v", name, err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "sub.png"), 0755); err != nil {
		t.Fatalf("failed to create subdir: %v", err)
	}

	files, err := ListImages(dir, nil)
	if err != nil {
		t.Fatalf("ListImages failed: %v", err)
	}

	want := []string{
		filepath.Join(dir, "a.JPG"),
		filepath.Join(dir, "b.png"),
		filepath.Join(dir, "c.jpeg"),
	}
	if len(files) != len(want) {
		t.Fatalf("got %v, want %v", files, want)
	}
	for i := range want {
		if files[i] != want[i] {
			t.Errorf("files[%d]: got %s, want %s", i, files[i], want[i])
		}
	}

	gifs, err := ListImages(dir, []string{".GIF"})
	if err != nil {
		t.Fatalf("ListImages failed: %v", err)
	}
	if len(gifs) != 1 {
		t.Errorf("custom extensions: got %v, want only d.gif", gifs)
	}

	if _, err := ListImages(filepath.Join(dir, "missing"), nil); err == nil {
		t.Error("ListImages should fail for a missing directory")
	}
}
