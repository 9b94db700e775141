package server

import (
	"encoding/base64"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ironsheep/vanishing-point/internal/config"
	"github.com/ironsheep/vanishing-point/internal/detection"
	"github.com/ironsheep/vanishing-point/internal/imaging"
)

// createTestImageFile creates a test image file and returns its path
func createTestImageFile(t *testing.T, width, height int, c color.Color) string {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}
	return writeTestImage(t, img)
}

// createConvergingImageFile draws two black bands through (200, 200) at 30°
// and 60° on a white 400x400 image.
func createConvergingImageFile(t *testing.T) string {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 400, 400))
	for y := 0; y < 400; y++ {
		for x := 0; x < 400; x++ {
			img.Set(x, y, color.White)
		}
	}
	for _, a := range []float64{30, 60} {
		rad := a * math.Pi / 180
		nx, ny := -math.Sin(rad), math.Cos(rad)
		for y := 0; y < 400; y++ {
			for x := 0; x < 400; x++ {
				if math.Abs((float64(x)-200)*nx+(float64(y)-200)*ny) <= 3 {
					img.Set(x, y, color.Black)
				}
			}
		}
	}
	return writeTestImage(t, img)
}

func writeTestImage(t *testing.T, img image.Image) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "handler-test.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	defer f.Close()

	if err := png.Encode(f, img); err != nil {
		t.Fatalf("failed to encode image: %v", err)
	}
	return path
}

func callTool(t *testing.T, s *Server, name string, args map[string]interface{}) *MCPResponse {
	t.Helper()

	params := map[string]interface{}{
		"name":      name,
		"arguments": args,
	}
	paramsJSON, _ := json.Marshal(params)

	req := &MCPRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "tools/call",
		Params:  paramsJSON,
	}

	resp := s.handleRequest(req)
	if resp == nil {
		t.Fatal("handleRequest returned nil")
	}
	return resp
}

// decodeContent unmarshals the text payload of a successful tools/call.
func decodeContent(t *testing.T, resp *MCPResponse, v interface{}) {
	t.Helper()

	if resp.Error != nil {
		t.Fatalf("Unexpected error: %+v", resp.Error)
	}
	result, ok := resp.Result.(map[string]interface{})
	if !ok {
		t.Fatal("Result should be a map")
	}
	content, ok := result["content"].([]map[string]interface{})
	if !ok || len(content) != 1 {
		t.Fatalf("unexpected content: %#v", result["content"])
	}
	if content[0]["type"] != "text" {
		t.Errorf("content type: got %v, want text", content[0]["type"])
	}
	text, _ := content[0]["text"].(string)
	if err := json.Unmarshal([]byte(text), v); err != nil {
		t.Fatalf("failed to decode tool result %q: %v", text, err)
	}
}

func TestHandleToolsCall_ImageLoad(t *testing.T) {
	s := New()
	imgPath := createTestImageFile(t, 100, 80, color.RGBA{255, 0, 0, 255})

	var info imaging.ImageInfo
	decodeContent(t, callTool(t, s, "image_load", map[string]interface{}{"path": imgPath}), &info)

	if info.Width != 100 || info.Height != 80 {
		t.Errorf("dimensions: got %dx%d, want 100x80", info.Width, info.Height)
	}
	if info.Format != "png" {
		t.Errorf("format: got %s, want png", info.Format)
	}
	if info.FileSizeBytes <= 0 {
		t.Errorf("file size should be positive, got %d", info.FileSizeBytes)
	}
	if s.cache.Len() != 1 {
		t.Errorf("image should be cached, cache has %d entries", s.cache.Len())
	}
}

func TestHandleToolsCall_ImageDimensions(t *testing.T) {
	s := New()
	imgPath := createTestImageFile(t, 200, 150, color.RGBA{0, 255, 0, 255})

	var dims imaging.DimensionsResult
	decodeContent(t, callTool(t, s, "image_dimensions", map[string]interface{}{"path": imgPath}), &dims)

	if dims.Width != 200 || dims.Height != 150 {
		t.Errorf("dimensions: got %dx%d, want 200x150", dims.Width, dims.Height)
	}
}

func TestHandleToolsCall_NonExistentFile(t *testing.T) {
	s := New()

	resp := callTool(t, s, "image_load", map[string]interface{}{"path": "/nonexistent/image.png"})

	if resp.Error == nil {
		t.Fatal("Expected error for non-existent file")
	}
	if resp.Error.Code != -32000 {
		t.Errorf("Error code: got %d, want -32000", resp.Error.Code)
	}
}

func TestHandleToolsCall_InvalidTool(t *testing.T) {
	s := New()

	resp := callTool(t, s, "nonexistent_tool", map[string]interface{}{})

	if resp.Error == nil {
		t.Fatal("Expected error for invalid tool")
	}
	if data, _ := resp.Error.Data.(string); !strings.Contains(data, "unknown tool") {
		t.Errorf("Error data: got %q", data)
	}
}

func TestHandleToolsCall_InvalidParams(t *testing.T) {
	s := New()

	req := &MCPRequest{
		JSONRPC: "2.0",
		ID:      1,
		Params:  json.RawMessage(`{invalid json}`),
	}

	resp := s.handleToolsCall(req)

	if resp.Error == nil {
		t.Fatal("Expected error for invalid params")
	}
	if resp.Error.Code != -32602 {
		t.Errorf("Error code: got %d, want -32602", resp.Error.Code)
	}
}

func TestHandleToolsCall_EdgeDetect(t *testing.T) {
	s := New()
	imgPath := createConvergingImageFile(t)

	var res imaging.EdgeDetectResult
	decodeContent(t, callTool(t, s, "image_edge_detect", map[string]interface{}{"path": imgPath}), &res)

	if res.Width != 400 || res.Height != 400 {
		t.Errorf("dimensions: got %dx%d, want 400x400", res.Width, res.Height)
	}
	if res.EdgePixels == 0 {
		t.Error("expected edge pixels on band borders")
	}
	if res.MimeType != "image/png" {
		t.Errorf("mime type: got %s", res.MimeType)
	}
	if _, err := base64.StdEncoding.DecodeString(res.ImageBase64); err != nil {
		t.Errorf("image is not valid base64: %v", err)
	}
}

func TestHandleToolsCall_EdgeDetect_WithThresholds(t *testing.T) {
	s := New()
	imgPath := createConvergingImageFile(t)

	var low, high imaging.EdgeDetectResult
	decodeContent(t, callTool(t, s, "image_edge_detect", map[string]interface{}{
		"path":           imgPath,
		"threshold_low":  50,
		"threshold_high": 150,
	}), &low)
	decodeContent(t, callTool(t, s, "image_edge_detect", map[string]interface{}{
		"path":           imgPath,
		"threshold_low":  2100,
		"threshold_high": 2500,
	}), &high)

	if high.EdgePixels != 0 {
		t.Errorf("thresholds above the gradient range should find no edges, got %d", high.EdgePixels)
	}
	if low.EdgePixels == 0 {
		t.Error("low thresholds should find edges")
	}
}

func TestHandleToolsCall_DetectSegments(t *testing.T) {
	s := New()
	imgPath := createConvergingImageFile(t)

	var res detection.LinesResult
	decodeContent(t, callTool(t, s, "image_detect_segments", map[string]interface{}{"path": imgPath}), &res)

	if res.Backend != "native" {
		t.Errorf("backend: got %q, want native", res.Backend)
	}
	if len(res.Lines) == 0 || res.Count != len(res.Lines) {
		t.Fatalf("expected segments along the bands, got count %d with %d lines", res.Count, len(res.Lines))
	}
	for i, l := range res.Lines {
		if l.Length < 10 {
			t.Errorf("segment %d shorter than min_line_length: %.1f", i, l.Length)
		}
	}
}

func TestHandleToolsCall_DetectSegments_UnknownBackend(t *testing.T) {
	s := New()
	imgPath := createTestImageFile(t, 50, 50, color.White)

	resp := callTool(t, s, "image_detect_segments", map[string]interface{}{
		"path":    imgPath,
		"backend": "no-such-backend",
	})

	if resp.Error == nil {
		t.Fatal("Expected error for unknown backend")
	}
}

func TestHandleToolsCall_VPFind_Uniform(t *testing.T) {
	s := New()
	imgPath := createTestImageFile(t, 100, 100, color.RGBA{128, 128, 128, 255})

	var res VPFindResult
	decodeContent(t, callTool(t, s, "vp_find", map[string]interface{}{"path": imgPath}), &res)

	if res.Found {
		t.Errorf("uniform image should have no vanishing point, got %+v", res.Points)
	}
	if res.Reason == "" {
		t.Error("missing reason for not-found result")
	}
	if res.Strategy != "single" {
		t.Errorf("strategy: got %s, want single", res.Strategy)
	}
	if res.Width != 100 || res.Height != 100 {
		t.Errorf("dimensions: got %dx%d", res.Width, res.Height)
	}
}

func TestHandleToolsCall_VPFind_Converging(t *testing.T) {
	s := New()
	imgPath := createConvergingImageFile(t)

	var res VPFindResult
	decodeContent(t, callTool(t, s, "vp_find", map[string]interface{}{"path": imgPath}), &res)

	if !res.Found {
		t.Fatalf("expected a vanishing point, reason %q", res.Reason)
	}
	if len(res.Points) != 1 {
		t.Fatalf("single strategy returns one point, got %d", len(res.Points))
	}
	p := res.Points[0]
	if d := math.Hypot(p.X-200, p.Y-200); d > 20 {
		t.Errorf("vanishing point (%.1f, %.1f) is %.1fpx from (200, 200)", p.X, p.Y, d)
	}
	if len(res.Lines) == 0 {
		t.Error("expected supporting lines")
	}
}

func TestHandleToolsCall_VPFind_Overrides(t *testing.T) {
	s := New()
	imgPath := createConvergingImageFile(t)

	var res VPFindResult
	decodeContent(t, callTool(t, s, "vp_find", map[string]interface{}{
		"path":      imgPath,
		"max_lines": 2,
	}), &res)
	if res.Found && len(res.Lines) > 2 {
		t.Errorf("max_lines 2 kept %d lines", len(res.Lines))
	}

	// A near-vertical angle range excludes both bands
	decodeContent(t, callTool(t, s, "vp_find", map[string]interface{}{
		"path":      imgPath,
		"min_angle": 82,
		"max_angle": 89,
	}), &res)
	if res.Found {
		t.Errorf("bands at 30° and 60° should be filtered out, got %+v", res.Points)
	}

	resp := callTool(t, s, "vp_find", map[string]interface{}{
		"path":      imgPath,
		"min_angle": 80,
		"max_angle": 10,
	})
	if resp.Error == nil {
		t.Error("inverted angle range should fail")
	}
}

func TestHandleToolsCall_VPFind_MultiWithoutCommand(t *testing.T) {
	s := New()
	imgPath := createTestImageFile(t, 50, 50, color.White)

	resp := callTool(t, s, "vp_find", map[string]interface{}{
		"path":     imgPath,
		"strategy": "multi",
	})

	if resp.Error == nil {
		t.Fatal("multi strategy without a configured command should fail")
	}
}

func TestHandleToolsCall_VPFind_UnknownStrategy(t *testing.T) {
	s := New()
	imgPath := createTestImageFile(t, 50, 50, color.White)

	resp := callTool(t, s, "vp_find", map[string]interface{}{
		"path":     imgPath,
		"strategy": "bogus",
	})

	if resp.Error == nil {
		t.Fatal("unknown strategy should fail")
	}
}

func TestHandleToolsCall_VPFind_MissingCalibration(t *testing.T) {
	s := New()
	imgPath := createTestImageFile(t, 50, 50, color.White)

	resp := callTool(t, s, "vp_find", map[string]interface{}{
		"path":             imgPath,
		"calibration_path": filepath.Join(t.TempDir(), "missing.txt"),
	})

	if resp.Error == nil {
		t.Fatal("unreadable calibration should fail")
	}
}

func TestHandleToolsCall_VPAnnotate_Base64(t *testing.T) {
	s := New()
	imgPath := createConvergingImageFile(t)

	var res VPFindResult
	decodeContent(t, callTool(t, s, "vp_annotate", map[string]interface{}{"path": imgPath}), &res)

	if !res.Found {
		t.Fatalf("expected a vanishing point, reason %q", res.Reason)
	}
	if res.MimeType != "image/png" {
		t.Errorf("mime type: got %s", res.MimeType)
	}
	data, err := base64.StdEncoding.DecodeString(res.ImageBase64)
	if err != nil {
		t.Fatalf("image is not valid base64: %v", err)
	}
	img, err := png.Decode(strings.NewReader(string(data)))
	if err != nil {
		t.Fatalf("annotated image is not a PNG: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 400 || b.Dy() != 400 {
		t.Errorf("annotated size: got %dx%d, want 400x400", b.Dx(), b.Dy())
	}
}

func TestHandleToolsCall_VPAnnotate_OutputPath(t *testing.T) {
	s := New()
	imgPath := createConvergingImageFile(t)
	out := filepath.Join(t.TempDir(), "annotated.png")

	var res VPFindResult
	decodeContent(t, callTool(t, s, "vp_annotate", map[string]interface{}{
		"path":        imgPath,
		"output_path": out,
		"draw_lines":  false,
	}), &res)

	if res.OutputPath != out {
		t.Errorf("output path: got %q, want %q", res.OutputPath, out)
	}
	if res.ImageBase64 != "" {
		t.Error("base64 image should be omitted when writing to a file")
	}
	if _, err := os.Stat(out); err != nil {
		t.Errorf("annotated image not written: %v", err)
	}
}

func TestHandleToolsCall_VPAnnotate_NotFound(t *testing.T) {
	s := New()
	imgPath := createTestImageFile(t, 60, 60, color.White)
	out := filepath.Join(t.TempDir(), "annotated.png")

	var res VPFindResult
	decodeContent(t, callTool(t, s, "vp_annotate", map[string]interface{}{
		"path":        imgPath,
		"output_path": out,
	}), &res)

	if res.Found {
		t.Fatal("blank image should have no vanishing point")
	}
	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Error("no output should be written without a vanishing point")
	}
}

func TestHandleToolsCall_UsesServerConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Edge.Low = 2100
	cfg.Edge.High = 2500
	s := NewWithConfig(cfg)
	imgPath := createConvergingImageFile(t)

	var res VPFindResult
	decodeContent(t, callTool(t, s, "vp_find", map[string]interface{}{"path": imgPath}), &res)

	if res.Found {
		t.Error("edge thresholds from the server config should suppress every edge")
	}
}

func TestExecuteTool_AllTools(t *testing.T) {
	s := New()
	imgPath := createTestImageFile(t, 100, 100, color.RGBA{128, 128, 128, 255})

	// Test each tool to ensure executeTool correctly dispatches
	toolTests := []struct {
		name string
		args map[string]interface{}
	}{
		{"image_load", map[string]interface{}{"path": imgPath}},
		{"image_dimensions", map[string]interface{}{"path": imgPath}},
		{"image_edge_detect", map[string]interface{}{"path": imgPath}},
		{"image_detect_segments", map[string]interface{}{"path": imgPath}},
		{"vp_find", map[string]interface{}{"path": imgPath}},
		{"vp_annotate", map[string]interface{}{"path": imgPath}},
	}

	if len(toolTests) != len(GetToolDefinitions()) {
		t.Fatalf("dispatch table covers %d tools, %d are defined", len(toolTests), len(GetToolDefinitions()))
	}

	for _, tt := range toolTests {
		t.Run(tt.name, func(t *testing.T) {
			argsJSON, _ := json.Marshal(tt.args)
			result, err := s.executeTool(tt.name, argsJSON)
			if err != nil {
				t.Fatalf("executeTool(%s) failed: %v", tt.name, err)
			}
			if result == nil {
				t.Errorf("executeTool(%s) returned nil result", tt.name)
			}
		})
	}
}

func TestExecuteTool_UnknownTool(t *testing.T) {
	s := New()

	_, err := s.executeTool("unknown_tool", json.RawMessage(`{}`))
	if err == nil {
		t.Error("executeTool should fail for unknown tool")
	}
}

func TestExecuteTool_InvalidJSON(t *testing.T) {
	s := New()

	_, err := s.executeTool("image_load", json.RawMessage(`{invalid`))
	if err == nil {
		t.Error("executeTool should fail for invalid JSON")
	}
}
