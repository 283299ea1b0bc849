// Package storage stores uploaded logos and report photos and returns URLs
// the renderer can load.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/kozaktomas/school-reports/internal/imageinfo"
	"github.com/rs/zerolog/log"
)

// MaxUploadBytes is the largest accepted upload.
const MaxUploadBytes = 10 << 20

var (
	// ErrUnsupportedType is returned for uploads that are not images.
	ErrUnsupportedType = errors.New("unsupported content type: only images are accepted")
	// ErrTooLarge is returned for uploads over MaxUploadBytes.
	ErrTooLarge = fmt.Errorf("upload exceeds %d MiB", MaxUploadBytes>>20)
)

// Uploader stores an image and returns a URL that resolves to it.
type Uploader interface {
	Upload(ctx context.Context, ownerID, filename, contentType string, data []byte) (string, error)
}

// imageExtensions lists the accepted raster formats. SVG is not accepted
// since it can carry script.
var imageExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
	"image/bmp":  ".bmp",
	"image/tiff": ".tiff",
}

// checkUpload enforces the upload rules and returns the content type sniffed
// from data. The client's declared type is not trusted.
func checkUpload(contentType string, data []byte) (string, error) {
	if len(data) > MaxUploadBytes {
		return "", ErrTooLarge
	}
	mediaType := sniffImage(data)
	if _, ok := imageExtensions[mediaType]; !ok {
		if declared, _, err := mime.ParseMediaType(contentType); err == nil && declared != mediaType {
			log.Debug().Str("declared", declared).Str("sniffed", mediaType).Msg("rejected upload")
		}
		return "", ErrUnsupportedType
	}
	return mediaType, nil
}

func sniffImage(data []byte) string {
	// DetectContentType does not know TIFF.
	if bytes.HasPrefix(data, []byte("II*\x00")) || bytes.HasPrefix(data, []byte("MM\x00*")) {
		return "image/tiff"
	}
	mediaType, _, err := mime.ParseMediaType(http.DetectContentType(data))
	if err != nil {
		return "application/octet-stream"
	}
	return mediaType
}

func extensionFor(contentType, filename string) string {
	if ext, ok := imageExtensions[contentType]; ok {
		return ext
	}
	return strings.ToLower(filepath.Ext(filename))
}

// InlineUploader embeds the image in a data URL instead of storing it.
type InlineUploader struct{}

func (InlineUploader) Upload(_ context.Context, _, _, contentType string, data []byte) (string, error) {
	mediaType, err := checkUpload(contentType, data)
	if err != nil {
		return "", err
	}
	return imageinfo.EncodeDataURL(mediaType, data), nil
}
