package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"time"

	// Decoders registered for image.Decode.
	_ "image/gif"
	_ "image/jpeg"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"golang.org/x/image/draw"

	psyreport "github.com/lvillar/psyreport"
	"github.com/lvillar/psyreport/branding"
)

// MaxImagePixels bounds the longest side of an embedded image. Larger
// images are downscaled before embedding.
const MaxImagePixels = 2048

// AssetResolver returns the raw bytes of a branding image.
type AssetResolver interface {
	Resolve(ctx context.Context, ref branding.ImageRef) ([]byte, error)
}

// ResolverFunc adapts a function to AssetResolver.
type ResolverFunc func(ctx context.Context, ref branding.ImageRef) ([]byte, error)

func (f ResolverFunc) Resolve(ctx context.Context, ref branding.ImageRef) ([]byte, error) {
	return f(ctx, ref)
}

// Image is a decoded branding image ready to embed: PNG or JPEG bytes and
// the pixel size.
type Image struct {
	Type   string // gofpdf image type: "PNG" or "JPG"
	Data   []byte
	Width  int
	Height int
}

// fetchImage resolves ref within timeout and normalizes it. Any failure is
// returned as a *psyreport.AssetError.
func fetchImage(ctx context.Context, r AssetResolver, ref branding.ImageRef, timeout time.Duration) (Image, error) {
	if r == nil {
		return Image{}, &psyreport.AssetError{Ref: ref.String(), Err: errors.New("no resolver")}
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		data []byte
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		data, err := r.Resolve(ctx, ref)
		ch <- result{data, err}
	}()

	var data []byte
	select {
	case res := <-ch:
		if res.err != nil {
			return Image{}, &psyreport.AssetError{Ref: ref.String(), Err: res.err}
		}
		data = res.data
	case <-ctx.Done():
		return Image{}, &psyreport.AssetError{Ref: ref.String(), Err: ctx.Err()}
	}

	img, err := NormalizeImage(data)
	if err != nil {
		return Image{}, &psyreport.AssetError{Ref: ref.String(), Err: err}
	}
	return img, nil
}

// NormalizeImage decodes data (PNG, JPEG, GIF, WebP, BMP or TIFF) and
// returns it as PNG, or as the original JPEG when no downscale is needed.
func NormalizeImage(data []byte) (Image, error) {
	if len(data) == 0 {
		return Image{}, errors.New("empty image")
	}
	src, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return Image{}, fmt.Errorf("decoding image: %w", err)
	}
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= 0 || h <= 0 {
		return Image{}, errors.New("image has no pixels")
	}

	scaled := w > MaxImagePixels || h > MaxImagePixels
	if format == "jpeg" && !scaled {
		return Image{Type: "JPG", Data: data, Width: w, Height: h}, nil
	}

	if scaled {
		f := float64(MaxImagePixels) / float64(max(w, h))
		w = max(1, int(float64(w)*f))
		h = max(1, int(float64(h)*f))
	}
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	if scaled {
		draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)
	} else {
		draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return Image{}, fmt.Errorf("encoding image: %w", err)
	}
	return Image{Type: "PNG", Data: buf.Bytes(), Width: w, Height: h}, nil
}

// fit returns the size of a w x h box scaled to fit within maxW x maxH,
// preserving the aspect ratio. The box is only enlarged when upscale is set.
// A non-positive bound leaves that dimension unconstrained.
func fit(w, h, maxW, maxH float64, upscale bool) (float64, float64) {
	if w <= 0 || h <= 0 {
		return 0, 0
	}
	scale := 0.0
	if maxW > 0 {
		scale = maxW / w
	}
	if maxH > 0 && (scale == 0 || maxH/h < scale) {
		scale = maxH / h
	}
	if scale == 0 || (!upscale && scale > 1) {
		scale = 1
	}
	rw, rh := w*scale, h*scale
	if maxW > 0 && (upscale || scale < 1) {
		rw = min(rw, maxW)
	}
	if maxH > 0 && (upscale || scale < 1) {
		rh = min(rh, maxH)
	}
	return rw, rh
}
