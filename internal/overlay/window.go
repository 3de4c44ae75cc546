package overlay

import "gocv.io/x/gocv"

// Window shows frames in a highgui window and reports key presses.
// It must be used from the goroutine that owns the main thread.
type Window struct {
	win   *gocv.Window
	onKey func(code int)
}

// NewWindow opens a window titled title. onKey receives every WaitKey
// result, including -1 when no key was pressed.
func NewWindow(title string, onKey func(code int)) *Window {
	return &Window{
		win:   gocv.NewWindow(title),
		onKey: onKey,
	}
}

// ShowFrame displays mat and forwards the next key press.
func (w *Window) ShowFrame(mat *gocv.Mat) {
	w.win.IMShow(*mat)
	code := w.win.WaitKey(1)
	if w.onKey != nil {
		w.onKey(code)
	}
}

// Close destroys the window.
func (w *Window) Close() error {
	return w.win.Close()
}
