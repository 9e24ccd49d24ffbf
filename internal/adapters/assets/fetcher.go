// Package assets loads pictures for printing: remote URLs, data URIs and the
// local branding files it was configured with, downscaled to the resolution
// they are printed at.
package assets

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"github.com/delonixservices/crm/internal/adapters/observability"
	"github.com/delonixservices/crm/internal/domain"
)

// DefaultScale is the print raster factor: pixels per point of printed size.
const DefaultScale = 5

const maxImageBytes = 20 << 20

var (
	ErrEmptySource = errors.New("empty image source")
	// ErrLocalFile is returned for a file path that is not one of the configured files.
	ErrLocalFile = errors.New("local file not allowed")
)

type Fetcher struct {
	hc    *http.Client
	scale float64
	files map[string]struct{}
}

// New returns a Fetcher. files lists the only local paths Load may read;
// image fields coming from the backend are limited to URLs and data URIs.
func New(timeout time.Duration, scale float64, files ...string) *Fetcher {
	if scale <= 0 {
		scale = DefaultScale
	}
	allowed := make(map[string]struct{}, len(files))
	for _, p := range files {
		if p = strings.TrimSpace(p); p != "" && !remote(p) {
			allowed[filepath.Clean(p)] = struct{}{}
		}
	}
	return &Fetcher{hc: &http.Client{Timeout: timeout}, scale: scale, files: allowed}
}

func remote(src string) bool {
	return strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://") || strings.HasPrefix(src, "data:")
}

func (f *Fetcher) Load(ctx context.Context, src string, boxW, boxH float64) (domain.Image, error) {
	raw, err := f.read(ctx, strings.TrimSpace(src))
	if err != nil {
		return domain.Image{}, err
	}
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return domain.Image{}, fmt.Errorf("decode image: %w", err)
	}
	img = f.fit(img, boxW, boxH)
	return encode(img)
}

func (f *Fetcher) read(ctx context.Context, src string) ([]byte, error) {
	switch {
	case src == "":
		return nil, ErrEmptySource
	case strings.HasPrefix(src, "data:"):
		meta, payload, ok := strings.Cut(src, ",")
		if !ok || !strings.HasSuffix(meta, ";base64") {
			return nil, errors.New("unsupported data uri")
		}
		return base64.StdEncoding.DecodeString(payload)
	case strings.HasPrefix(src, "http://"), strings.HasPrefix(src, "https://"):
		return f.fetch(ctx, src)
	}
	if _, ok := f.files[filepath.Clean(src)]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrLocalFile, src)
	}
	return os.ReadFile(src)
}

func (f *Fetcher) fetch(ctx context.Context, src string) ([]byte, error) {
	u, err := url.Parse(src)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "image/*")

	start := time.Now()
	resp, err := f.hc.Do(req)
	if err != nil {
		observability.ObserveExternal("assets", u.Host, 0, time.Since(start))
		return nil, err
	}
	defer resp.Body.Close()
	observability.ObserveExternal("assets", u.Host, resp.StatusCode, time.Since(start))
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch image %s: bad status %d", u.Host, resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
}

// fit downscales img so it has at most scale pixels per printed point.
func (f *Fetcher) fit(img image.Image, boxW, boxH float64) image.Image {
	b := img.Bounds()
	w, h := float64(b.Dx()), float64(b.Dy())
	if w == 0 || h == 0 || (boxW <= 0 && boxH <= 0) {
		return img
	}
	ratio := 1.0
	if boxW > 0 {
		ratio = min(ratio, boxW*f.scale/w)
	}
	if boxH > 0 {
		ratio = min(ratio, boxH*f.scale/h)
	}
	if ratio >= 1 {
		return img
	}
	dst := image.NewRGBA(image.Rect(0, 0, max(1, int(w*ratio)), max(1, int(h*ratio))))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}

func encode(img image.Image) (domain.Image, error) {
	var buf bytes.Buffer
	out := domain.Image{Width: img.Bounds().Dx(), Height: img.Bounds().Dy()}
	if opaque(img) {
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
			return domain.Image{}, err
		}
		out.Format = "JPG"
	} else {
		if err := png.Encode(&buf, img); err != nil {
			return domain.Image{}, err
		}
		out.Format = "PNG"
	}
	out.Data = buf.Bytes()
	return out, nil
}

func opaque(img image.Image) bool {
	if o, ok := img.(interface{ Opaque() bool }); ok {
		return o.Opaque()
	}
	return true
}
