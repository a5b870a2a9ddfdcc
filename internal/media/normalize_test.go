package media

import (
	"bytes"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"strings"
	"testing"

	"github.com/dkeye/Banter/internal/domain"
)

// pngDataURI builds a valid inbound payload of the given dimensions.
func pngDataURI(t *testing.T, w, h int) string {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x += 10 {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode fixture: %v", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
}

// decodeResult re-decodes a normalizer output for inspection.
func decodeResult(t *testing.T, payload string) image.Image {
	t.Helper()

	if !strings.HasPrefix(payload, "data:image/png;base64,") {
		t.Fatalf("output is not a png data uri: %.40s", payload)
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(payload, "data:image/png;base64,"))
	if err != nil {
		t.Fatalf("output base64: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("output is not png: %v", err)
	}
	return img
}

func TestDecodeAndResizeBoundsWideImage(t *testing.T) {
	n := NewNormalizer(800)

	out, err := n.DecodeAndResize(pngDataURI(t, 1600, 400))
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	b := decodeResult(t, out).Bounds()
	if b.Dx() != 800 || b.Dy() != 200 {
		t.Fatalf("got %dx%d, want 800x200 (aspect preserved)", b.Dx(), b.Dy())
	}
}

func TestDecodeAndResizeBoundsTallImage(t *testing.T) {
	n := NewNormalizer(800)

	out, err := n.DecodeAndResize(pngDataURI(t, 300, 1200))
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	b := decodeResult(t, out).Bounds()
	if b.Dx() != 200 || b.Dy() != 800 {
		t.Fatalf("got %dx%d, want 200x800 (aspect preserved)", b.Dx(), b.Dy())
	}
}

func TestDecodeAndResizeNeverUpscales(t *testing.T) {
	n := NewNormalizer(800)

	out, err := n.DecodeAndResize(pngDataURI(t, 64, 48))
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	b := decodeResult(t, out).Bounds()
	if b.Dx() != 64 || b.Dy() != 48 {
		t.Fatalf("got %dx%d, want original 64x48", b.Dx(), b.Dy())
	}
}

func TestDecodeAndResizeAcceptsJPEG(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 1000, 1000))
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("encode fixture: %v", err)
	}
	payload := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())

	n := NewNormalizer(800)
	out, err := n.DecodeAndResize(payload)
	if err != nil {
		t.Fatalf("normalize jpeg: %v", err)
	}
	b := decodeResult(t, out).Bounds()
	if b.Dx() != 800 || b.Dy() != 800 {
		t.Fatalf("got %dx%d, want 800x800", b.Dx(), b.Dy())
	}
}

func TestDecodeAndResizeMalformedInput(t *testing.T) {
	n := NewNormalizer(800)

	cases := []struct {
		name    string
		payload string
	}{
		{"no comma", "data:image/png;base64"},
		{"no base64 marker", "data:image/png,AAAA"},
		{"bad base64", "data:image/png;base64,!!!not-base64!!!"},
		{"not an image", "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("plain text"))},
		{"empty", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := n.DecodeAndResize(tc.payload); !errors.Is(err, domain.ErrMediaDecode) {
				t.Fatalf("got %v, want ErrMediaDecode", err)
			}
		})
	}
}

func TestNewNormalizerDefault(t *testing.T) {
	if n := NewNormalizer(0); n.MaxDim != DefaultMaxDim {
		t.Fatalf("default max dim %d, want %d", n.MaxDim, DefaultMaxDim)
	}
}
