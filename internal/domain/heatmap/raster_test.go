package heatmap_test

import (
	"bytes"
	"image/png"
	"testing"

	"github.com/uxlens/uxlens/internal/domain/heatmap"
	"github.com/uxlens/uxlens/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

const tolerance = 0.0001

func TestRasterizer_Rasterize(t *testing.T) {
	Convey("Given a rasterizer with default kernel settings", t, func() {
		r := heatmap.New()

		Convey("When rendering a single full-intensity point", func() {
			points := []model.HeatPoint{{X: 60, Y: 60, Weight: 1}}
			ras := r.Rasterize(points, 120, 120, 1)

			Convey("Then the center pixel is pure red at the alpha cap", func() {
				red, green, blue, alpha := ras.At(60, 60)
				So(red, ShouldAlmostEqual, 255, tolerance)
				So(green, ShouldAlmostEqual, 0, tolerance)
				So(blue, ShouldAlmostEqual, 0, tolerance)
				So(alpha, ShouldAlmostEqual, 0.8, tolerance)
			})

			Convey("And pixels beyond the 50px radius stay transparent", func() {
				_, _, _, alpha := ras.At(111, 60)
				So(alpha, ShouldEqual, 0)
			})

			Convey("And alpha falls off with distance", func() {
				_, _, _, nearAlpha := ras.At(65, 60)
				_, _, _, farAlpha := ras.At(100, 60)
				So(nearAlpha, ShouldBeLessThan, 0.8)
				So(farAlpha, ShouldBeLessThan, nearAlpha)
				So(farAlpha, ShouldBeGreaterThan, 0)
			})

			Convey("And rendering the same input again is bit-identical", func() {
				So(r.Rasterize(points, 120, 120, 1), ShouldResemble, ras)
			})
		})

		Convey("When two points overlap at the same position", func() {
			points := []model.HeatPoint{
				{X: 60, Y: 60, Weight: 1},
				{X: 60, Y: 60, Weight: 1},
			}
			ras := r.Rasterize(points, 120, 120, 1)

			Convey("Then the center accumulates toward saturation", func() {
				red, _, _, alpha := ras.At(60, 60)
				So(alpha, ShouldAlmostEqual, 1.0, tolerance)
				// (255*0.8 + 255*0.8) / 1.0: the float buffer overshoots and
				// the image adapter clamps.
				So(red, ShouldAlmostEqual, 408, tolerance)

				img := ras.ToImage()
				i := img.PixOffset(60, 60)
				So(img.Pix[i+0], ShouldEqual, 255)
				So(img.Pix[i+3], ShouldEqual, 255)
			})
		})

		Convey("When points sit at each band of the color ramp", func() {
			center := func(weight float64) (float64, float64, float64) {
				ras := r.Rasterize([]model.HeatPoint{{X: 60, Y: 60, Weight: weight}}, 120, 120, 1)
				red, green, blue, _ := ras.At(60, 60)
				return red, green, blue
			}

			Convey("Then intensity below 0.4 renders pure blue", func() {
				red, green, blue := center(0.2)
				So(red, ShouldAlmostEqual, 0, tolerance)
				So(green, ShouldAlmostEqual, 0, tolerance)
				So(blue, ShouldAlmostEqual, 255, tolerance)
			})

			Convey("And 0.5 ramps cyan", func() {
				red, green, blue := center(0.5)
				So(red, ShouldAlmostEqual, 0, tolerance)
				So(green, ShouldAlmostEqual, 127.5, tolerance)
				So(blue, ShouldAlmostEqual, 255, tolerance)
			})

			Convey("And 0.65 ramps green", func() {
				red, green, blue := center(0.65)
				So(red, ShouldAlmostEqual, 0, tolerance)
				So(green, ShouldAlmostEqual, 255, tolerance)
				So(blue, ShouldAlmostEqual, 127.5, tolerance)
			})

			Convey("And 0.75 renders yellow", func() {
				red, green, blue := center(0.75)
				So(red, ShouldAlmostEqual, 255, tolerance)
				So(green, ShouldAlmostEqual, 255, tolerance)
				So(blue, ShouldAlmostEqual, 0, tolerance)
			})

			Convey("And 0.9 ramps toward red", func() {
				red, green, blue := center(0.9)
				So(red, ShouldAlmostEqual, 255, tolerance)
				So(green, ShouldAlmostEqual, 127.5, tolerance)
				So(blue, ShouldAlmostEqual, 0, tolerance)
			})
		})

		Convey("When every weight is zero", func() {
			points := []model.HeatPoint{{X: 60, Y: 60, Weight: 0}}
			ras := r.Rasterize(points, 120, 120, heatmap.MaxWeight(points))

			Convey("Then the raster renders at minimum intensity instead of crashing", func() {
				red, _, blue, alpha := ras.At(60, 60)
				So(red, ShouldAlmostEqual, 0, tolerance)
				So(blue, ShouldAlmostEqual, 255, tolerance)
				So(alpha, ShouldAlmostEqual, 0.1, tolerance)
			})
		})

		Convey("When the point cloud is empty", func() {
			ras := r.Rasterize(nil, 40, 40, 0)

			Convey("Then the buffer stays fully transparent", func() {
				_, _, _, alpha := ras.At(20, 20)
				So(alpha, ShouldEqual, 0)
			})
		})

		Convey("When the requested dimensions are degenerate", func() {
			ras := r.Rasterize([]model.HeatPoint{{X: 1, Y: 1, Weight: 1}}, 0, 0, 1)

			Convey("Then the raster is empty and reads as transparent", func() {
				So(ras.Width(), ShouldEqual, 0)
				_, _, _, alpha := ras.At(0, 0)
				So(alpha, ShouldEqual, 0)
			})
		})
	})

	Convey("Given a point near the raster edge", t, func() {
		r := heatmap.New()
		ras := r.Rasterize([]model.HeatPoint{{X: 2, Y: 2, Weight: 1}}, 200, 200, 1)

		Convey("Then the kernel clips to the buffer without wrapping", func() {
			red, _, _, alpha := ras.At(2, 2)
			So(red, ShouldAlmostEqual, 255, tolerance)
			So(alpha, ShouldAlmostEqual, 0.8, tolerance)
			_, _, _, farAlpha := ras.At(100, 2)
			So(farAlpha, ShouldEqual, 0)
			_, _, _, wrapAlpha := ras.At(199, 199)
			So(wrapAlpha, ShouldEqual, 0)
		})
	})
}

func TestScaling(t *testing.T) {
	Convey("Given logical points rendered at two resolutions", t, func() {
		r := heatmap.New()
		logical := []model.HeatPoint{{X: 100, Y: 100, Weight: 1}}

		at1x := heatmap.ScalePoints(logical, 200, 200, 100, 100)
		at2x := heatmap.ScalePoints(logical, 200, 200, 200, 200)

		ras1 := r.Rasterize(at1x, 100, 100, 1)
		ras2 := r.Rasterize(at2x, 200, 200, 1)

		Convey("Then the peak lands on the scaled position with the same color", func() {
			r1, g1, b1, a1 := ras1.At(50, 50)
			r2, g2, b2, a2 := ras2.At(100, 100)
			So(r2, ShouldAlmostEqual, r1, tolerance)
			So(g2, ShouldAlmostEqual, g1, tolerance)
			So(b2, ShouldAlmostEqual, b1, tolerance)
			So(a2, ShouldAlmostEqual, a1, tolerance)
		})
	})

	Convey("Given a logical screen wider than the raster cap", t, func() {
		Convey("When fitting dimensions", func() {
			w, h := heatmap.FitDimensions(2000, 1000, 1280)

			Convey("Then one uniform ratio preserves the aspect", func() {
				So(w, ShouldEqual, 1280)
				So(h, ShouldEqual, 640)
			})
		})

		Convey("And a screen under the cap keeps its size", func() {
			w, h := heatmap.FitDimensions(800, 600, 1280)
			So(w, ShouldEqual, 800)
			So(h, ShouldEqual, 600)
		})

		Convey("And degenerate logical sizes collapse to zero", func() {
			w, h := heatmap.FitDimensions(0, 600, 1280)
			So(w, ShouldEqual, 0)
			So(h, ShouldEqual, 0)
		})
	})
}

func TestRaster_EncodePNG(t *testing.T) {
	Convey("Given a rendered raster", t, func() {
		r := heatmap.New()
		ras := r.Rasterize([]model.HeatPoint{{X: 30, Y: 20, Weight: 1}}, 64, 48, 1)

		Convey("When encoding to PNG", func() {
			var buf bytes.Buffer
			err := ras.EncodePNG(&buf)

			Convey("Then the output decodes with matching dimensions", func() {
				So(err, ShouldBeNil)
				img, decodeErr := png.Decode(&buf)
				So(decodeErr, ShouldBeNil)
				So(img.Bounds().Dx(), ShouldEqual, 64)
				So(img.Bounds().Dy(), ShouldEqual, 48)
			})
		})
	})
}

func TestMaxWeight(t *testing.T) {
	Convey("Given a mixed point cloud", t, func() {
		points := []model.HeatPoint{
			{Weight: 1}, {Weight: 4}, {Weight: 2},
		}

		Convey("Then MaxWeight picks the largest", func() {
			So(heatmap.MaxWeight(points), ShouldEqual, 4)
		})

		Convey("And an empty cloud yields zero", func() {
			So(heatmap.MaxWeight(nil), ShouldEqual, 0)
		})
	})
}
