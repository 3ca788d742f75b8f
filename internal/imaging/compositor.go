package imaging

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"math/rand/v2"
	"sort"

	"golang.org/x/image/draw"

	"github.com/nawabsahab16/ancestral-ai/internal/domain"
)

const (
	SurfaceSize   = 600
	SepiaOpacity  = 0.2
	SpeckleCount  = 5000
	SpeckleAlpha  = 0.1
	OutputQuality = 70
)

var (
	background = color.RGBA{R: 0xf8, G: 0xf8, B: 0xf8, A: 0xff}
	sepia      = color.RGBA{R: 0x8b, G: 0x45, B: 0x13, A: 0xff}
)

// ErrNoImages is returned when none of the sources could be loaded.
var ErrNoImages = errors.New("failed to load any source image")

// Layer is one source image in the blend.
type Layer struct {
	Generation domain.Generation
	Source     string
}

// Compositor produces the degraded "vintage" ancestor approximation.
type Compositor interface {
	Blend(ctx context.Context, layers []Layer) (string, error)
}

// Random is the subset of math/rand/v2 used for speckle placement.
type Random interface {
	IntN(n int) int
}

type globalRand struct{}

func (globalRand) IntN(n int) int { return rand.IntN(n) }

// RasterCompositor blends in memory and returns a JPEG data URL.
type RasterCompositor struct {
	Loader *Loader
	Rand   Random
}

// NewRasterCompositor uses loader for sources and the global random source.
func NewRasterCompositor(loader *Loader) *RasterCompositor {
	if loader == nil {
		loader = NewLoader(nil)
	}
	return &RasterCompositor{Loader: loader, Rand: globalRand{}}
}

// Blend draws the loaded layers oldest generation first, tints the surface
// and adds speckle noise. Sources that fail to load are skipped.
func (c *RasterCompositor) Blend(ctx context.Context, layers []Layer) (string, error) {
	if len(layers) == 0 {
		return "", ErrNoImages
	}
	ordered := append([]Layer(nil), layers...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return generationRank(ordered[i].Generation) < generationRank(ordered[j].Generation)
	})

	sources := make([]string, len(ordered))
	for i, l := range ordered {
		sources[i] = l.Source
	}
	images, errs, err := c.Loader.LoadAll(ctx, sources)
	if err != nil {
		return "", err
	}

	surface := image.NewRGBA(image.Rect(0, 0, SurfaceSize, SurfaceSize))
	draw.Draw(surface, surface.Bounds(), image.NewUniform(background), image.Point{}, draw.Src)

	loaded := 0
	for i, img := range images {
		if errs[i] != nil || img == nil {
			continue
		}
		loaded++
		drawWithOpacity(surface, img, ordered[i].Generation.Opacity())
	}
	if loaded == 0 {
		return "", fmt.Errorf("%w: %v", ErrNoImages, errors.Join(errs...))
	}

	fillWithOpacity(surface, sepia, SepiaOpacity)
	c.speckle(surface)

	return EncodeJPEGDataURL(surface, OutputQuality)
}

func (c *RasterCompositor) speckle(surface *image.RGBA) {
	rnd := c.Rand
	if rnd == nil {
		rnd = globalRand{}
	}
	b := surface.Bounds()
	for i := 0; i < SpeckleCount; i++ {
		x := b.Min.X + rnd.IntN(b.Dx())
		y := b.Min.Y + rnd.IntN(b.Dy())
		gray := float64(rnd.IntN(255))
		px := surface.RGBAAt(x, y)
		surface.SetRGBA(x, y, color.RGBA{
			R: mix(px.R, gray, SpeckleAlpha),
			G: mix(px.G, gray, SpeckleAlpha),
			B: mix(px.B, gray, SpeckleAlpha),
			A: 0xff,
		})
	}
}

func drawWithOpacity(dst *image.RGBA, src image.Image, opacity float64) {
	scaled := image.NewRGBA(dst.Bounds())
	draw.CatmullRom.Scale(scaled, scaled.Bounds(), src, src.Bounds(), draw.Src, nil)
	draw.DrawMask(dst, dst.Bounds(), scaled, image.Point{}, alphaMask(opacity), image.Point{}, draw.Over)
}

func fillWithOpacity(dst *image.RGBA, c color.Color, opacity float64) {
	draw.DrawMask(dst, dst.Bounds(), image.NewUniform(c), image.Point{}, alphaMask(opacity), image.Point{}, draw.Over)
}

func alphaMask(opacity float64) *image.Uniform {
	return image.NewUniform(color.Alpha{A: uint8(opacity*255 + 0.5)})
}

func mix(dst uint8, src, alpha float64) uint8 {
	return uint8(src*alpha + float64(dst)*(1-alpha) + 0.5)
}

func generationRank(g domain.Generation) int {
	for i, gen := range domain.Generations {
		if gen == g {
			return i
		}
	}
	return len(domain.Generations)
}

var _ Compositor = (*RasterCompositor)(nil)
