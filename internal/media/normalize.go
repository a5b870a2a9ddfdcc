// Package media normalizes inbound image payloads: base64 data URI in,
// bounded PNG data URI out.
package media

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"
	"strings"

	"golang.org/x/image/draw"

	"github.com/dkeye/Banter/internal/domain"

	_ "image/gif"
	_ "image/jpeg"
)

const DefaultMaxDim = 800

// Normalizer re-encodes client images to PNG, downscaling so the longer
// side never exceeds MaxDim. Aspect ratio is preserved; images already
// inside the bound are not upscaled.
type Normalizer struct {
	MaxDim int
}

func NewNormalizer(maxDim int) *Normalizer {
	if maxDim <= 0 {
		maxDim = DefaultMaxDim
	}
	return &Normalizer{MaxDim: maxDim}
}

// DecodeAndResize takes a "data:image/...;base64,..." payload and
// returns a PNG data URI. Any malformed input fails with
// domain.ErrMediaDecode.
func (n *Normalizer) DecodeAndResize(payload string) (string, error) {
	header, encoded, ok := strings.Cut(payload, ",")
	if !ok || !strings.Contains(header, "base64") {
		return "", fmt.Errorf("%w: not a base64 data uri", domain.ErrMediaDecode)
	}

	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrMediaDecode, err)
	}

	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrMediaDecode, err)
	}

	img = n.bound(img)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrMediaDecode, err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

func (n *Normalizer) bound(img image.Image) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= n.MaxDim && h <= n.MaxDim {
		return img
	}

	nw, nh := w, h
	if w >= h {
		nw = n.MaxDim
		nh = h * n.MaxDim / w
	} else {
		nh = n.MaxDim
		nw = w * n.MaxDim / h
	}
	if nw < 1 {
		nw = 1
	}
	if nh < 1 {
		nh = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}
