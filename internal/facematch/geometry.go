package facematch

import "image"

// ScaleRect scales a rectangle detected on a resized frame back to the
// original frame (factor is original/resized, e.g. 4 for a quarter-size frame).
func ScaleRect(r image.Rectangle, factor float64) image.Rectangle {
	if factor <= 0 {
		return r
	}
	return image.Rect(
		int(float64(r.Min.X)*factor),
		int(float64(r.Min.Y)*factor),
		int(float64(r.Max.X)*factor),
		int(float64(r.Max.Y)*factor),
	)
}

// FitRect maps a rectangle from a src-sized frame into a dst-sized frame.
func FitRect(r image.Rectangle, src, dst image.Point) image.Rectangle {
	if src.X <= 0 || src.Y <= 0 {
		return r
	}
	sx := float64(dst.X) / float64(src.X)
	sy := float64(dst.Y) / float64(src.Y)
	return image.Rect(
		int(float64(r.Min.X)*sx),
		int(float64(r.Min.Y)*sy),
		int(float64(r.Max.X)*sx),
		int(float64(r.Max.Y)*sy),
	)
}
