package detection

import (
	"fmt"
	"image"
	"sort"
	"sync"

	"github.com/ironsheep/vanishing-point/internal/imaging"
)

// Backend turns an image into straight segments: edge extraction followed by
// probabilistic line detection.
type Backend interface {
	Name() string
	Segments(img image.Image, canny imaging.CannyParams, hough HoughParams) ([]Segment, error)
}

// NativeBackendName is the pure Go backend, always available.
const NativeBackendName = "native"

var (
	registryMu sync.RWMutex
	registry   = map[string]Backend{}
)

// Register makes a backend available by name. Registering a name twice panics.
func Register(b Backend) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, dup := registry[b.Name()]; dup {
		panic(fmt.Sprintf("detection: backend %q registered twice", b.Name()))
	}
	registry[b.Name()] = b
}

// Lookup returns the backend registered under name. An empty name selects
// the native backend.
func Lookup(name string) (Backend, error) {
	if name == "" {
		name = NativeBackendName
	}
	registryMu.RLock()
	defer registryMu.RUnlock()
	b, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown line detection backend %q (available: %v)", name, backendNames())
	}
	return b, nil
}

// Backends lists registered backend names in sorted order.
func Backends() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return backendNames()
}

func backendNames() []string {
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Native runs imaging.Canny followed by HoughLinesP.
type Native struct{}

// Name implements Backend.
func (Native) Name() string { return NativeBackendName }

// Segments implements Backend.
func (Native) Segments(img image.Image, canny imaging.CannyParams, hough HoughParams) ([]Segment, error) {
	edges, err := imaging.Canny(img, canny)
	if err != nil {
		return nil, fmt.Errorf("edge extraction failed: %w", err)
	}
	return HoughLinesP(edges, hough)
}

func init() {
	Register(Native{})
}
