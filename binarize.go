package digistrip

// Adaptive binarization functionality.

import (
	"image"
	"image/draw"
	"math"
	"sort"
)

// Binarize converts img to a two-tone grayscale image of the same size.
//
// Each pixel is classified against a Gaussian-weighted mean of its
// ThresholdBlockSize x ThresholdBlockSize neighbourhood minus ThresholdBias,
// so a lighting gradient across the strip does not clip one end the way a
// single global threshold would. A MedianKernelSize median filter then
// removes isolated single-pixel noise from the result.
//
// The output contains only the values 0 and 255.
func Binarize(img image.Image) *image.Gray {
	gray := toGray(img)
	bin := adaptiveThreshold(gray, ThresholdBlockSize, ThresholdBias)
	return medianFilter(bin, MedianKernelSize)
}

// toGray converts any image to a fresh luminance grayscale image with bounds
// at the origin.
func toGray(img image.Image) *image.Gray {
	b := img.Bounds()
	gray := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(gray, gray.Bounds(), img, b.Min, draw.Src)
	return gray
}

// adaptiveThreshold classifies every pixel of gray against the
// Gaussian-weighted mean of its blockSize x blockSize neighbourhood minus
// bias: above the local threshold becomes 255, everything else 0. Pixels
// near the border use edge replication.
func adaptiveThreshold(gray *image.Gray, blockSize int, bias float64) *image.Gray {
	b := gray.Bounds()
	w, h := b.Dx(), b.Dy()
	kernel := gaussianKernel(blockSize)
	radius := blockSize / 2

	// The kernel is separable: blur rows into a float buffer, then blur
	// columns of that buffer while thresholding.
	tmp := make([]float64, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var sum float64
			for k := -radius; k <= radius; k++ {
				sum += kernel[k+radius] * float64(gray.Pix[y*gray.Stride+clampInt(x+k, 0, w-1)])
			}
			tmp[y*w+x] = sum
		}
	}

	out := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var mean float64
			for k := -radius; k <= radius; k++ {
				mean += kernel[k+radius] * tmp[clampInt(y+k, 0, h-1)*w+x]
			}
			if float64(gray.Pix[y*gray.Stride+x]) > mean-bias {
				out.Pix[y*out.Stride+x] = 255
			}
		}
	}

	return out
}

// gaussianKernel returns normalised 1-D Gaussian weights for the given odd
// kernel size. Sigma is derived from the size using OpenCV's convention so
// the weighting matches the common CV tooling for the same block size.
func gaussianKernel(size int) []float64 {
	sigma := 0.3*(float64(size-1)*0.5-1) + 0.8
	kernel := make([]float64, size)
	center := size / 2

	var sum float64
	for i := range kernel {
		d := float64(i - center)
		kernel[i] = math.Exp(-d * d / (2 * sigma * sigma))
		sum += kernel[i]
	}
	for i := range kernel {
		kernel[i] /= sum
	}

	return kernel
}

// medianFilter applies a size x size median filter with edge replication.
func medianFilter(gray *image.Gray, size int) *image.Gray {
	b := gray.Bounds()
	w, h := b.Dx(), b.Dy()
	radius := size / 2

	out := image.NewGray(image.Rect(0, 0, w, h))
	window := make([]uint8, 0, size*size)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			window = window[:0]
			for ky := -radius; ky <= radius; ky++ {
				row := clampInt(y+ky, 0, h-1) * gray.Stride
				for kx := -radius; kx <= radius; kx++ {
					window = append(window, gray.Pix[row+clampInt(x+kx, 0, w-1)])
				}
			}
			sort.Slice(window, func(i, j int) bool { return window[i] < window[j] })
			out.Pix[y*out.Stride+x] = window[len(window)/2]
		}
	}

	return out
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
