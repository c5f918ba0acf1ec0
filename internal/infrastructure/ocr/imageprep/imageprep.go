// Package imageprep turns a client-supplied image string into bytes an OCR
// backend accepts.
package imageprep

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"net/http"
	"regexp"
	"strings"

	"github.com/disintegration/imaging"

	"github.com/Gabothefounder/scanscam/internal/core/domain"
)

const DefaultMaxDimension = 2048

var dataURLPrefix = regexp.MustCompile(`^data:image/[a-zA-Z+.-]+;base64,`)

type Image struct {
	Data     []byte
	MIMEType string
}

// Base64 returns the standard encoding of Data.
func (i Image) Base64() string {
	return base64.StdEncoding.EncodeToString(i.Data)
}

type Preparer struct {
	maxDimension int
}

func New(maxDimension int) *Preparer {
	if maxDimension <= 0 {
		maxDimension = DefaultMaxDimension
	}
	return &Preparer{maxDimension: maxDimension}
}

// Prepare decodes a data URL or bare base64 payload. Images larger than the
// configured dimension are downscaled and re-encoded as JPEG; formats the
// decoder does not know pass through untouched.
func (p *Preparer) Prepare(raw string) (Image, error) {
	data, err := DecodeBase64(raw)
	if err != nil {
		return Image{}, err
	}

	mimeType := http.DetectContentType(data)
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return Image{Data: data, MIMEType: mimeType}, nil
	}
	if !p.oversized(img) {
		return Image{Data: data, MIMEType: mimeType}, nil
	}

	img = imaging.Fit(img, p.maxDimension, p.maxDimension, imaging.Lanczos)
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(85)); err != nil {
		return Image{Data: data, MIMEType: mimeType}, nil
	}
	return Image{Data: buf.Bytes(), MIMEType: "image/jpeg"}, nil
}

func (p *Preparer) oversized(img image.Image) bool {
	b := img.Bounds()
	return b.Dx() > p.maxDimension || b.Dy() > p.maxDimension
}

// DecodeBase64 strips an optional data URL prefix and decodes the rest.
func DecodeBase64(raw string) ([]byte, error) {
	cleaned := dataURLPrefix.ReplaceAllString(strings.TrimSpace(raw), "")
	cleaned = strings.Map(func(r rune) rune {
		switch r {
		case '\n', '\r', ' ', '\t':
			return -1
		}
		return r
	}, cleaned)
	if cleaned == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "decode image", fmt.Errorf("empty image payload"))
	}

	data, err := base64.StdEncoding.DecodeString(cleaned)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(cleaned, "="))
	}
	if err != nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "decode image", err)
	}
	return data, nil
}
