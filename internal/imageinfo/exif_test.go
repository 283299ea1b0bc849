package imageinfo

import (
	"context"
	"testing"
)

func TestJPEGOrientation(t *testing.T) {
	plain := encodeJPEG(t, 20, 10)

	tests := []struct {
		name string
		data []byte
		want int
	}{
		{"no exif", plain, 1},
		{"rotated 90 cw", withOrientation(plain, 6), 6},
		{"upside down", withOrientation(plain, 3), 3},
		{"out of range value ignored", withOrientation(plain, 9), 1},
		{"not a jpeg", encodePNG(t, 2, 2), 1},
		{"truncated", withOrientation(plain, 6)[:12], 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := jpegOrientation(tt.data); got != tt.want {
				t.Errorf("jpegOrientation() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestClassify_ExifOrientation(t *testing.T) {
	tests := []struct {
		name        string
		orientation uint16
		portrait    bool
		width       int
		height      int
		aspect      float64
	}{
		{"rotated 90 displays portrait", 6, true, 100, 200, 0.5},
		{"transverse displays portrait", 7, true, 100, 200, 0.5},
		{"rotated 180 stays landscape", 3, false, 200, 100, 2.0},
		{"upright stays landscape", 1, false, 200, 100, 2.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			url := EncodeDataURL("image/jpeg", withOrientation(encodeJPEG(t, 200, 100), tt.orientation))
			c := NewClassifier(NewFetcher(nil, 0, 0), NewLRU(4))

			info := c.Classify(context.Background(), url)
			if !info.Loaded {
				t.Fatalf("expected image to load: %+v", info)
			}
			if info.IsPortrait != tt.portrait {
				t.Errorf("IsPortrait = %v, want %v", info.IsPortrait, tt.portrait)
			}
			if info.Width != tt.width || info.Height != tt.height {
				t.Errorf("dimensions = %dx%d, want %dx%d", info.Width, info.Height, tt.width, tt.height)
			}
			if info.AspectRatio != tt.aspect {
				t.Errorf("AspectRatio = %v, want %v", info.AspectRatio, tt.aspect)
			}
		})
	}
}
