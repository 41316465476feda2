package capture

import (
	"image"
	"image/color"
	"image/draw"
	"testing"
)

func TestHasGoodBlackLevel(t *testing.T) {
	fill := func(c color.Color) *image.RGBA {
		img := image.NewRGBA(image.Rect(0, 0, 128, 96))
		draw.Draw(img, img.Bounds(), &image.Uniform{C: c}, image.Point{}, draw.Src)
		return img
	}

	mostlyDark := fill(color.Black)
	draw.Draw(mostlyDark, image.Rect(0, 0, 32, 96), &image.Uniform{C: color.White}, image.Point{}, draw.Src)

	halfDark := fill(color.White)
	draw.Draw(halfDark, image.Rect(0, 0, 32, 96), &image.Uniform{C: color.Black}, image.Point{}, draw.Src)

	tests := []struct {
		name string
		img  image.Image
		want bool
	}{
		{"black", fill(color.Black), false},
		{"mid grey", fill(color.Gray{Y: 128}), true},
		{"white", fill(color.White), true},
		{"three quarters dark", mostlyDark, false},
		{"quarter dark", halfDark, true},
		{"empty", image.NewRGBA(image.Rectangle{}), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := hasGoodBlackLevel(tt.img); got != tt.want {
				t.Errorf("hasGoodBlackLevel() = %v, want %v", got, tt.want)
			}
		})
	}
}
