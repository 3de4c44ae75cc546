// Package overlay draws control state onto captured frames and shows them.
package overlay

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/ayusman/handvolume/internal/control"
	"github.com/ayusman/handvolume/internal/detector"
)

// Colors are RGBA; gocv converts them to BGR scalars.
var (
	landmarkColor = color.RGBA{R: 255, G: 0, B: 255, A: 0}
	midpointColor = color.RGBA{R: 0, G: 255, B: 0, A: 0}
	barColor      = color.RGBA{R: 0, G: 0, B: 255, A: 0}
	fpsColor      = color.RGBA{R: 0, G: 255, B: 255, A: 0}
	promptColor   = color.RGBA{R: 0, G: 255, B: 0, A: 0}
)

const filled = -1

// Layout is the position of the level bar and its label.
type Layout struct {
	BarLeft   int
	BarRight  int
	BarTop    int
	BarBottom int
	Label     image.Point
}

// DefaultLayout matches the default bar geometry on a 640x480 frame.
func DefaultLayout() Layout {
	return Layout{
		BarLeft:   50,
		BarRight:  85,
		BarTop:    control.DefaultBarTop,
		BarBottom: control.DefaultBarBottom,
		Label:     image.Pt(40, 450),
	}
}

// Draw annotates mat with f. Calibration frames get the operator prompt;
// running frames get the tracked landmarks, the level bar and the frame rate.
func Draw(mat *gocv.Mat, f control.Frame, l Layout) {
	if f.Phase.Calibrating() {
		gocv.PutText(mat, f.Prompt, image.Pt(10, 30), gocv.FontHersheySimplex, 1, promptColor, 2)
		if f.Detected {
			drawHand(mat, f)
		}
		return
	}

	if f.Detected {
		drawHand(mat, f)

		gocv.Rectangle(mat, image.Rect(l.BarLeft, l.BarTop, l.BarRight, l.BarBottom), barColor, 3)
		gocv.Rectangle(mat, image.Rect(l.BarLeft, int(f.BarPosition), l.BarRight, l.BarBottom), barColor, filled)
		gocv.PutText(mat, fmt.Sprintf("%d %%", f.AdjustedPercent), l.Label, gocv.FontHersheyComplex, 1, barColor, 3)
	}

	gocv.PutText(mat, fmt.Sprintf("FPS: %d", int(f.FPS)), image.Pt(10, 30), gocv.FontHersheySimplex, 1, fpsColor, 2)
}

func drawHand(mat *gocv.Mat, f control.Frame) {
	a := image.Pt(f.Thumb.X, f.Thumb.Y)
	b := image.Pt(f.Index.X, f.Index.Y)
	cx, cy := detector.Midpoint(f.Thumb, f.Index)

	gocv.Circle(mat, a, 15, landmarkColor, filled)
	gocv.Circle(mat, b, 15, landmarkColor, filled)
	gocv.Line(mat, a, b, landmarkColor, 3)
	gocv.Circle(mat, image.Pt(cx, cy), 10, midpointColor, filled)
}

// Output receives annotated frames.
type Output interface {
	ShowFrame(mat *gocv.Mat)
}

// Renderer draws each frame and hands it to the outputs in order.
// Images that are not *gocv.Mat are ignored.
type Renderer struct {
	layout  Layout
	outputs []Output
}

// NewRenderer returns a renderer drawing with layout.
func NewRenderer(layout Layout, outputs ...Output) *Renderer {
	return &Renderer{layout: layout, outputs: outputs}
}

// Render draws f onto img and passes it to each output.
func (r *Renderer) Render(img control.Image, f control.Frame) {
	mat, ok := img.(*gocv.Mat)
	if !ok || mat.Empty() {
		return
	}
	Draw(mat, f, r.layout)
	for _, o := range r.outputs {
		o.ShowFrame(mat)
	}
}
