package recognition

import (
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/kozaktomas/face-keeper/internal/capture"
	"github.com/kozaktomas/face-keeper/internal/facematch"
)

var (
	knownColor   = color.RGBA{0, 255, 0, 255}
	unknownColor = color.RGBA{255, 0, 0, 255}
	textColor    = color.RGBA{255, 255, 255, 255}
)

const (
	boxThickness = 2
	bandHeight   = 18
)

// Label is a classified face in frame coordinates.
type Label struct {
	Box      image.Rectangle `json:"box"`
	Name     string          `json:"name"`
	Known    bool            `json:"known"`
	Distance float64         `json:"distance"`
}

// Annotate resizes frame to w x h and draws every label on it: a box
// (green for known faces, red otherwise) with the name on a filled band
// along the bottom edge of the box.
func Annotate(frame image.Image, labels []Label, w, h int) *image.RGBA {
	src := frame.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(out, out.Bounds(), capture.Resize(frame, w, h), image.Point{}, draw.Src)

	for _, l := range labels {
		box := facematch.FitRect(l.Box.Sub(src.Min), src.Size(), image.Pt(w, h)).Intersect(out.Bounds())
		if box.Empty() {
			continue
		}
		c := unknownColor
		if l.Known {
			c = knownColor
		}
		drawBox(out, box, c)

		band := image.Rect(box.Min.X, max(box.Min.Y, box.Max.Y-bandHeight), box.Max.X, box.Max.Y)
		draw.Draw(out, band, &image.Uniform{C: c}, image.Point{}, draw.Src)
		drawText(out, l.Name, band)
	}
	return out
}

func drawBox(img *image.RGBA, r image.Rectangle, c color.Color) {
	u := &image.Uniform{C: c}
	t := min(boxThickness, r.Dx(), r.Dy())
	draw.Draw(img, image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+t), u, image.Point{}, draw.Src)
	draw.Draw(img, image.Rect(r.Min.X, r.Max.Y-t, r.Max.X, r.Max.Y), u, image.Point{}, draw.Src)
	draw.Draw(img, image.Rect(r.Min.X, r.Min.Y, r.Min.X+t, r.Max.Y), u, image.Point{}, draw.Src)
	draw.Draw(img, image.Rect(r.Max.X-t, r.Min.Y, r.Max.X, r.Max.Y), u, image.Point{}, draw.Src)
}

// drawText writes s inside band, clipped to it.
func drawText(img *image.RGBA, s string, band image.Rectangle) {
	face := basicfont.Face7x13
	clip, ok := img.SubImage(band).(*image.RGBA)
	if !ok {
		return
	}
	d := &font.Drawer{
		Dst:  clip,
		Src:  &image.Uniform{C: textColor},
		Face: face,
		Dot:  fixed.P(band.Min.X+4, band.Max.Y-(band.Dy()-face.Ascent)/2-1),
	}
	d.DrawString(s)
}
