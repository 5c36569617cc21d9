package imaging

import (
	"fmt"
	"image"
	_ "image/gif"  // Register GIF format decoder
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// ImageCache provides thread-safe caching of decoded frames to avoid
// redundant disk reads when the same image is analysed several times
// (regions, then features, then a render).
//
// Frames are keyed by their cleaned path. When the cache holds Capacity
// frames, loading a new one evicts the frame that was loaded first.
//
// ImageCache is safe for concurrent use by multiple goroutines.
//
// # Example Usage
//
//	cache := imaging.NewImageCache(16)
//	img, err := cache.Load("/path/to/frame.png")
//	if err != nil {
//	    return err
//	}
//	cache.Evict("/path/to/frame.png") // the file was rewritten
type ImageCache struct {
	mu       sync.RWMutex
	capacity int
	images   map[string]image.Image
	order    []string
}

// NewImageCache creates an empty cache holding at most capacity frames.
// A capacity of zero or less means unbounded.
func NewImageCache(capacity int) *ImageCache {
	return &ImageCache{
		capacity: capacity,
		images:   make(map[string]image.Image),
	}
}

// Load retrieves a frame from the cache or decodes it from disk.
//
// Supported formats are PNG, JPEG, and GIF. The concrete image type depends on
// the file (e.g., *image.RGBA, *image.NRGBA, *image.YCbCr, *image.Gray).
//
// # Errors
//
//   - Returns error if the file does not exist or cannot be read
//   - Returns error if the file is not a valid PNG, JPEG, or GIF image
func (c *ImageCache) Load(path string) (image.Image, error) {
	key := filepath.Clean(path)

	c.mu.RLock()
	if img, ok := c.images[key]; ok {
		c.mu.RUnlock()
		return img, nil
	}
	c.mu.RUnlock()

	img, err := Decode(key)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.images[key]; !ok {
		if c.capacity > 0 && len(c.order) >= c.capacity {
			oldest := c.order[0]
			c.order = c.order[1:]
			delete(c.images, oldest)
		}
		c.order = append(c.order, key)
	}
	c.images[key] = img
	return img, nil
}

// Len returns the number of cached frames.
func (c *ImageCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.images)
}

// Evict removes a specific frame from the cache. Unknown paths are ignored.
func (c *ImageCache) Evict(path string) {
	key := filepath.Clean(path)

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.images[key]; !ok {
		return
	}
	delete(c.images, key)
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

// Decode reads and decodes one image file without caching it.
func Decode(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return img, nil
}

// FormatOf names the image format implied by a file extension: "png",
// "jpeg", "gif", or "unknown".
func FormatOf(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return "png"
	case ".jpg", ".jpeg":
		return "jpeg"
	case ".gif":
		return "gif"
	}
	return "unknown"
}
