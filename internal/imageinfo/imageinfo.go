// Package imageinfo classifies report photos by orientation and aspect ratio.
package imageinfo

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // register GIF decoder
	_ "image/jpeg" // register JPEG decoder
	_ "image/png"  // register PNG decoder
	"io"
	"sync"

	"github.com/rs/zerolog/log"
	_ "golang.org/x/image/bmp"  // register BMP decoder
	_ "golang.org/x/image/tiff" // register TIFF decoder
	_ "golang.org/x/image/webp" // register WebP decoder
	"golang.org/x/sync/singleflight"
)

// DefaultAspectRatio is assumed for images that cannot be loaded.
const DefaultAspectRatio = 16.0 / 9.0

// exifHeadBytes is how much of an image is kept for EXIF parsing.
const exifHeadBytes = 128 << 10

// DefaultConcurrency is the number of images classified in parallel.
const DefaultConcurrency = 5

// ProcessedImage is the classification result for one image URL.
type ProcessedImage struct {
	URL         string
	IsPortrait  bool
	AspectRatio float64 // width / height
	Width       int
	Height      int
	Loaded      bool // false when the fallback values were used
}

// Fallback returns the classification used when url cannot be loaded.
func Fallback(url string) ProcessedImage {
	return ProcessedImage{URL: url, IsPortrait: false, AspectRatio: DefaultAspectRatio}
}

// Opener opens an image for reading.
type Opener interface {
	Open(ctx context.Context, rawURL string) (io.ReadCloser, error)
}

// Classifier determines orientation and aspect ratio of images.
type Classifier struct {
	opener      Opener
	cache       Cache
	group       singleflight.Group
	concurrency int
}

// NewClassifier creates a classifier. A nil cache disables memoization.
func NewClassifier(opener Opener, cache Cache) *Classifier {
	if cache == nil {
		cache = NewTiered()
	}
	return &Classifier{opener: opener, cache: cache, concurrency: DefaultConcurrency}
}

// SetConcurrency changes the number of parallel loads used by ClassifyAll.
func (c *Classifier) SetConcurrency(n int) {
	c.concurrency = max(n, 1)
}

// Classify returns the classification for url. Load and decode failures
// yield Fallback(url); Classify never fails.
func (c *Classifier) Classify(ctx context.Context, url string) ProcessedImage {
	key := cacheKey(url)
	if info, ok := c.cache.Get(ctx, key); ok {
		info.URL = url
		return info
	}

	v, _, _ := c.group.Do(key, func() (any, error) {
		info, err := c.load(ctx, url)
		if err != nil {
			log.Debug().Err(err).Str("url", truncateURL(url)).Msg("image load failed, using default layout")
			return Fallback(url), nil
		}
		c.cache.Set(ctx, key, info)
		return info, nil
	})
	info := v.(ProcessedImage)
	info.URL = url
	return info
}

// ClassifyAll classifies urls concurrently and returns the results in input
// order once every url has resolved.
func (c *Classifier) ClassifyAll(ctx context.Context, urls []string) []ProcessedImage {
	result := make([]ProcessedImage, len(urls))
	if len(urls) == 0 {
		return result
	}

	jobs := make(chan int, len(urls))
	for i := range urls {
		jobs <- i
	}
	close(jobs)

	var wg sync.WaitGroup
	for range min(c.concurrency, len(urls)) {
		wg.Go(func() {
			for i := range jobs {
				if ctx.Err() != nil {
					result[i] = Fallback(urls[i])
					continue
				}
				result[i] = c.Classify(ctx, urls[i])
			}
		})
	}
	wg.Wait()
	return result
}

func (c *Classifier) load(ctx context.Context, url string) (ProcessedImage, error) {
	body, err := c.opener.Open(ctx, url)
	if err != nil {
		return ProcessedImage{}, err
	}
	defer body.Close()

	// The EXIF block sits near the start of a JPEG, so keep the head around
	// for it while the decoder reads through the same bytes.
	head := make([]byte, exifHeadBytes)
	n, err := io.ReadFull(body, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return ProcessedImage{}, fmt.Errorf("read image: %w", err)
	}
	head = head[:n]

	cfg, format, err := image.DecodeConfig(io.MultiReader(bytes.NewReader(head), body))
	if err != nil {
		return ProcessedImage{}, fmt.Errorf("decode image config: %w", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return ProcessedImage{}, errors.New("image has no dimensions")
	}
	width, height := cfg.Width, cfg.Height
	if format == "jpeg" && swapsAxes(jpegOrientation(head)) {
		width, height = height, width
	}
	return ProcessedImage{
		URL:         url,
		IsPortrait:  height > width,
		AspectRatio: float64(width) / float64(height),
		Width:       width,
		Height:      height,
		Loaded:      true,
	}, nil
}

func truncateURL(url string) string {
	const maxLen = 80
	if len(url) <= maxLen {
		return url
	}
	return url[:maxLen] + "..."
}
