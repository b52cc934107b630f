package track

import (
	"image"
	stdmath "math"
)

// gaussianBlur returns src blurred with a separable gaussian kernel.
// Edge pixels are clamped.
func gaussianBlur(src *image.Gray, sigma float64) *image.Gray {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	dst := image.NewGray(image.Rect(0, 0, w, h))
	if sigma <= 0 || w == 0 || h == 0 {
		for y := 0; y < h; y++ {
			copy(dst.Pix[y*dst.Stride:y*dst.Stride+w], src.Pix[src.PixOffset(b.Min.X, b.Min.Y+y):])
		}
		return dst
	}

	kernel := gaussianKernel(sigma)
	radius := len(kernel) / 2

	tmp := make([]float32, w*h)
	for y := 0; y < h; y++ {
		row := src.Pix[src.PixOffset(b.Min.X, b.Min.Y+y):]
		for x := 0; x < w; x++ {
			var sum float32
			for k, weight := range kernel {
				sx := clamp(x+k-radius, w)
				sum += weight * float32(row[sx])
			}
			tmp[y*w+x] = sum
		}
	}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var sum float32
			for k, weight := range kernel {
				sy := clamp(y+k-radius, h)
				sum += weight * tmp[sy*w+x]
			}
			dst.Pix[y*dst.Stride+x] = uint8(min(max(sum+0.5, 0), 255))
		}
	}
	return dst
}

// gaussianKernel returns normalised weights covering three sigmas each side.
func gaussianKernel(sigma float64) []float32 {
	radius := int(stdmath.Ceil(3 * sigma))
	kernel := make([]float32, 2*radius+1)
	var total float64
	weights := make([]float64, len(kernel))
	for i := range weights {
		d := float64(i - radius)
		weights[i] = stdmath.Exp(-d * d / (2 * sigma * sigma))
		total += weights[i]
	}
	for i, wt := range weights {
		kernel[i] = float32(wt / total)
	}
	return kernel
}

func clamp(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}
