// Package heatmap renders weighted point clouds into an RGBA density
// raster using a radial falloff kernel and a five-band color ramp.
//
// The kernel, ramp and compositing math are pinned bit-for-bit by tests:
// overlapping hot spots must visibly accumulate toward red saturation, and
// the same fixed input must always produce the same buffer.
package heatmap

import (
	"image"
	"image/png"
	"io"
	"math"

	"github.com/uxlens/uxlens/internal/domain/model"
)

// Kernel defaults.
const (
	DefaultRadius = 50.0
	DefaultBlur   = 0.75
)

// Alpha response to point intensity.
const (
	alphaFloor = 0.1
	alphaSpan  = 0.7
	alphaCap   = 0.8
)

// Color-ramp band boundaries (intensity in [0,1]).
const (
	bandCyan   = 0.4
	bandGreen  = 0.6
	bandYellow = 0.7
	bandRed    = 0.8
)

const channelMax = 255.0

// pixel accumulates compositing state: channels in [0,255], alpha in [0,1].
type pixel struct {
	r, g, b, a float64
}

// Raster is a width×height buffer of composited heat pixels.
type Raster struct {
	width  int
	height int
	pix    []pixel
}

// Width returns the raster width in pixels.
func (r *Raster) Width() int { return r.width }

// Height returns the raster height in pixels.
func (r *Raster) Height() int { return r.height }

// At returns the composited channel values at (x, y): r/g/b in [0,255],
// alpha in [0,1]. Out-of-bounds coordinates read as transparent.
func (r *Raster) At(x, y int) (red, green, blue, alpha float64) {
	if x < 0 || y < 0 || x >= r.width || y >= r.height {
		return 0, 0, 0, 0
	}
	p := r.pix[y*r.width+x]
	return p.r, p.g, p.b, p.a
}

// ToImage quantizes the buffer into a straight-alpha image for overlaying
// on a screenshot.
func (r *Raster) ToImage() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, r.width, r.height))
	for y := 0; y < r.height; y++ {
		for x := 0; x < r.width; x++ {
			p := r.pix[y*r.width+x]
			i := img.PixOffset(x, y)
			img.Pix[i+0] = quantize(p.r)
			img.Pix[i+1] = quantize(p.g)
			img.Pix[i+2] = quantize(p.b)
			img.Pix[i+3] = quantize(p.a * channelMax)
		}
	}
	return img
}

// EncodePNG writes the raster as a PNG overlay.
func (r *Raster) EncodePNG(w io.Writer) error {
	return png.Encode(w, r.ToImage())
}

func quantize(v float64) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= channelMax {
		return channelMax
	}
	return uint8(math.Round(v))
}

// Rasterizer renders point clouds with a fixed kernel configuration.
type Rasterizer struct {
	radius float64
	blur   float64
}

// Option applies a configuration option to the Rasterizer.
type Option func(*Rasterizer)

// WithRadius sets the kernel radius in raster pixels.
func WithRadius(radius float64) Option {
	return func(r *Rasterizer) {
		if radius > 0 {
			r.radius = radius
		}
	}
}

// WithBlur sets the Gaussian falloff blur factor.
func WithBlur(blur float64) Option {
	return func(r *Rasterizer) {
		if blur > 0 {
			r.blur = blur
		}
	}
}

// New creates a Rasterizer with configuration options.
func New(opts ...Option) *Rasterizer {
	r := &Rasterizer{
		radius: DefaultRadius,
		blur:   DefaultBlur,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Rasterize composites every point into a fresh width×height buffer.
//
// Points are processed in input order. maxWeight normalizes per-point
// intensity; a zero or negative maxWeight is treated as 1 so an all-zero
// point cloud renders at minimum intensity instead of dividing by zero.
func (r *Rasterizer) Rasterize(points []model.HeatPoint, width, height int, maxWeight float64) *Raster {
	ras := &Raster{width: width, height: height}
	if width <= 0 || height <= 0 {
		return ras
	}
	ras.pix = make([]pixel, width*height)
	if maxWeight <= 0 {
		maxWeight = 1
	}

	denom := 2 * r.radius * r.radius * r.blur * r.blur
	for _, pt := range points {
		intensity := pt.Weight / maxWeight
		baseAlpha := alphaFloor + intensity*alphaSpan
		if baseAlpha > alphaCap {
			baseAlpha = alphaCap
		}
		red, green, blue := rampColor(intensity)

		minX := clamp(int(math.Floor(pt.X-r.radius)), 0, width-1)
		maxX := clamp(int(math.Ceil(pt.X+r.radius)), 0, width-1)
		minY := clamp(int(math.Floor(pt.Y-r.radius)), 0, height-1)
		maxY := clamp(int(math.Ceil(pt.Y+r.radius)), 0, height-1)

		for py := minY; py <= maxY; py++ {
			for px := minX; px <= maxX; px++ {
				dx := float64(px) - pt.X
				dy := float64(py) - pt.Y
				dist := math.Sqrt(dx*dx + dy*dy)
				if dist > r.radius {
					continue
				}
				falloff := math.Exp(-(dist * dist) / denom)
				composite(&ras.pix[py*width+px], red, green, blue, baseAlpha*falloff)
			}
		}
	}
	return ras
}

// composite applies "over" compositing of the new color onto p. Channels
// are the alpha-weighted average of old and new; a zero combined alpha
// skips the write entirely.
func composite(p *pixel, red, green, blue, alpha float64) {
	newAlpha := p.a + alpha
	if newAlpha > 1 {
		newAlpha = 1
	}
	if newAlpha == 0 {
		return
	}
	p.r = (p.r*p.a + red*alpha) / newAlpha
	p.g = (p.g*p.a + green*alpha) / newAlpha
	p.b = (p.b*p.a + blue*alpha) / newAlpha
	p.a = newAlpha
}

// rampColor maps intensity to the five-band blue→cyan→green→yellow→red ramp.
func rampColor(intensity float64) (red, green, blue float64) {
	switch {
	case intensity < bandCyan:
		return 0, 0, channelMax
	case intensity < bandGreen:
		return 0, channelMax * (intensity - bandCyan) / (bandGreen - bandCyan), channelMax
	case intensity < bandYellow:
		return 0, channelMax, channelMax * (1 - (intensity-bandGreen)/(bandYellow-bandGreen))
	case intensity < bandRed:
		return channelMax, channelMax, 0
	default:
		return channelMax, channelMax * (1 - (intensity-bandRed)/(1-bandRed)), 0
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ScalePoints maps logical-space points into raster space with independent
// axis ratios. Callers preserving aspect ratio should derive both raster
// dimensions from one uniform ratio, e.g. via FitDimensions.
func ScalePoints(points []model.HeatPoint, logicalW, logicalH float64, rasterW, rasterH int) []model.HeatPoint {
	if logicalW <= 0 || logicalH <= 0 {
		return points
	}
	scaleX := float64(rasterW) / logicalW
	scaleY := float64(rasterH) / logicalH
	scaled := make([]model.HeatPoint, len(points))
	for i, p := range points {
		scaled[i] = model.HeatPoint{
			X:        p.X * scaleX,
			Y:        p.Y * scaleY,
			Weight:   p.Weight,
			Fallback: p.Fallback,
		}
	}
	return scaled
}

// FitDimensions derives raster dimensions from the logical screen size and a
// width cap, applying one uniform ratio to both axes. The returned height is
// rounded up so the raster never undershoots the scaled logical size.
func FitDimensions(logicalW, logicalH float64, maxWidth int) (int, int) {
	if logicalW <= 0 || logicalH <= 0 {
		return 0, 0
	}
	ratio := 1.0
	if maxWidth > 0 && logicalW > float64(maxWidth) {
		ratio = float64(maxWidth) / logicalW
	}
	w := int(math.Ceil(logicalW * ratio))
	h := int(math.Ceil(logicalH * ratio))
	return w, h
}

// MaxWeight returns the largest point weight, or 0 on an empty cloud.
func MaxWeight(points []model.HeatPoint) float64 {
	maxW := 0.0
	for _, p := range points {
		if p.Weight > maxW {
			maxW = p.Weight
		}
	}
	return maxW
}
