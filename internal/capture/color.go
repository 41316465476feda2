package capture

import (
	"image"
	"image/color"
)

// hasGoodBlackLevel rejects frames where more than half of the sampled
// pixels fall into the darkest histogram bin. Cameras emit such frames while
// the sensor warms up.
func hasGoodBlackLevel(img image.Image) bool {
	b := img.Bounds()
	if b.Empty() {
		return false
	}

	// Sample a grid instead of every pixel.
	step := max(1, min(b.Dx(), b.Dy())/64)
	dark, total := 0, 0
	for y := b.Min.Y; y < b.Max.Y; y += step {
		for x := b.Min.X; x < b.Max.X; x += step {
			g := color.GrayModel.Convert(img.At(x, y)).(color.Gray)
			if g.Y < 32 {
				dark++
			}
			total++
		}
	}
	return float64(dark)/float64(total) <= 0.5
}
