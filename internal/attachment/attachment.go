// Package attachment holds image files selected by a visitor before they are sent to the backend.
package attachment

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"mime/multipart"
	"net/http"
	"path"
	"strings"

	_ "image/gif"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"github.com/reunite/portal/internal/constants"
)

var (
	// ErrEmpty is returned for zero-length files.
	ErrEmpty = errors.New("empty file")
	// ErrTooLarge is returned for files above constants.MaxImageBytes.
	ErrTooLarge = errors.New("file too large")
	// ErrNotImage is returned when the content is not an image.
	ErrNotImage = errors.New("file is not an image")
)

// Attachment is one binary image part of a multipart request.
type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Size returns the attachment size in bytes.
func (a *Attachment) Size() int {
	return len(a.Data)
}

// DataURL returns the attachment as a data URL for inline previews.
func (a *Attachment) DataURL() string {
	return "data:" + a.ContentType + ";base64," + base64.StdEncoding.EncodeToString(a.Data)
}

// New validates raw bytes and builds an attachment.
func New(filename string, data []byte) (*Attachment, error) {
	if len(data) == 0 {
		return nil, ErrEmpty
	}
	if len(data) > constants.MaxImageBytes {
		return nil, ErrTooLarge
	}
	contentType := http.DetectContentType(data)
	if !strings.HasPrefix(contentType, "image/") {
		return nil, fmt.Errorf("%w: detected %s", ErrNotImage, contentType)
	}
	name := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		name = "upload"
	}
	return &Attachment{Filename: name, ContentType: contentType, Data: data}, nil
}

// FromMultipart reads an uploaded file. A nil header means no file was chosen.
func FromMultipart(fh *multipart.FileHeader) (*Attachment, error) {
	if fh == nil {
		return nil, nil
	}
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload %s: %w", fh.Filename, err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, constants.MaxImageBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read upload %s: %w", fh.Filename, err)
	}
	return New(fh.Filename, data)
}

// Fetch downloads an image and converts it to a JPEG attachment equivalent to an upload.
func Fetch(ctx context.Context, client *http.Client, rawURL, name string) (*Attachment, error) {
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("could not create request: %w", err)
	}
	resp, err := client.Do(req) //nolint:gosec // URL comes from the embedded demo catalog
	if err != nil {
		return nil, fmt.Errorf("could not fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch image failed with status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, constants.MaxImageBytes+1))
	if err != nil {
		return nil, fmt.Errorf("could not read image: %w", err)
	}
	if len(data) > constants.MaxImageBytes {
		return nil, ErrTooLarge
	}

	converted, err := ResizeImage(data, constants.MaxImageSize)
	if err != nil {
		return nil, err
	}
	return &Attachment{
		Filename:    strings.TrimSuffix(name, path.Ext(name)) + ".jpg",
		ContentType: "image/jpeg",
		Data:        converted,
	}, nil
}

// ResizeImage decodes an image, fits it within maxSize (width or height) keeping
// the aspect ratio, and re-encodes it as JPEG.
func ResizeImage(data []byte, maxSize int) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	var out image.Image = img
	if width > maxSize || height > maxSize {
		var newWidth, newHeight int
		if width > height {
			newWidth = maxSize
			newHeight = int(float64(height) * float64(maxSize) / float64(width))
		} else {
			newHeight = maxSize
			newWidth = int(float64(width) * float64(maxSize) / float64(height))
		}
		resized := image.NewRGBA(image.Rect(0, 0, newWidth, newHeight))
		draw.CatmullRom.Scale(resized, resized.Bounds(), img, bounds, draw.Over, nil)
		out = resized
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, out, &jpeg.Options{Quality: constants.JPEGQuality}); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return buf.Bytes(), nil
}
