package overlay

import (
	"bytes"
	"image"
	"image/jpeg"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
)

// VideoDisplay is a widget showing the latest overlay frame.
type VideoDisplay struct {
	widget.BaseWidget

	// mu ensures we don't read / write the image at the same time
	mu    sync.Mutex
	image *canvas.Image
}

// NewVideoDisplay creates the widget.
func NewVideoDisplay() *VideoDisplay {
	v := &VideoDisplay{}
	v.ExtendBaseWidget(v)

	v.image = canvas.NewImageFromImage(nil)
	v.image.FillMode = canvas.ImageFillContain
	v.image.SetMinSize(fyne.NewSize(320, 240))
	return v
}

// UpdateFrame replaces the displayed image. Safe to call from any goroutine.
func (v *VideoDisplay) UpdateFrame(img image.Image) {
	v.mu.Lock()
	v.image.Image = img
	v.mu.Unlock()

	fyne.Do(func() {
		v.image.Refresh()
		v.Refresh()
	})
}

// CreateRenderer implements fyne.Widget.
func (v *VideoDisplay) CreateRenderer() fyne.WidgetRenderer {
	return &videoRenderer{v}
}

type videoRenderer struct {
	v *VideoDisplay
}

func (r *videoRenderer) Destroy() {}

func (r *videoRenderer) MinSize() fyne.Size {
	return r.v.image.MinSize()
}

func (r *videoRenderer) Objects() []fyne.CanvasObject {
	return []fyne.CanvasObject{r.v.image}
}

func (r *videoRenderer) Refresh() {
	r.v.mu.Lock()
	defer r.v.mu.Unlock()
	r.v.image.Refresh()
}

func (r *videoRenderer) Layout(s fyne.Size) {
	r.v.image.Resize(s)
}

// Window is a desktop preview of the hub with an enable toggle.
type Window struct {
	win     fyne.Window
	display *VideoDisplay
	toggle  *widget.Check
	hub     *Hub
	stop    func()
}

// NewWindow creates the preview window. onToggle is called with the new
// enabled state whenever the user flips the checkbox.
func NewWindow(app fyne.App, hub *Hub, enabled bool, onToggle func(bool)) *Window {
	w := &Window{
		win:     app.NewWindow("Nritya"),
		display: NewVideoDisplay(),
		hub:     hub,
	}

	w.toggle = widget.NewCheck("Motion control", onToggle)
	w.toggle.SetChecked(enabled)

	w.win.SetContent(container.NewBorder(nil, w.toggle, nil, nil, w.display))
	w.win.Resize(fyne.NewSize(480, 400))
	return w
}

// SetEnabled updates the toggle without firing its callback twice.
func (w *Window) SetEnabled(enabled bool) {
	fyne.Do(func() {
		if w.toggle.Checked != enabled {
			w.toggle.SetChecked(enabled)
		}
	})
}

// Start begins copying hub frames into the window.
func (w *Window) Start() {
	updates, cancel := w.hub.Subscribe()
	w.stop = cancel

	go func() {
		for u := range updates {
			if len(u.JPEG) == 0 {
				continue
			}
			img, err := jpeg.Decode(bytes.NewReader(u.JPEG))
			if err != nil {
				continue
			}
			w.display.UpdateFrame(img)
		}
	}()
}

// ShowAndRun shows the window and runs the fyne event loop.
func (w *Window) ShowAndRun() {
	w.win.ShowAndRun()
	if w.stop != nil {
		w.stop()
	}
}

// OnClosed registers a callback for window close.
func (w *Window) OnClosed(fn func()) {
	w.win.SetOnClosed(fn)
}
