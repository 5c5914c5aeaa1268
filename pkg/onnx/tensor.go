package onnx

import (
	"image"

	"github.com/cyclopcam/leafscan/pkg/nn"
)

var imageNetMean = [3]float32{0.485, 0.456, 0.406}
var imageNetStd = [3]float32{0.229, 0.224, 0.225}

// imageToTensor converts an RGB image into a float32 tensor of shape [1,3,H,W] (or [1,H,W,3] for NHWC).
// The image must already be the size of the network input.
func imageToTensor(img image.Image, nhwc bool, norm nn.Normalization) []float32 {
	b := img.Bounds()
	width, height := b.Dx(), b.Dy()
	plane := width * height
	out := make([]float32, 3*plane)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r, g, bl, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			px := [3]float32{float32(r >> 8), float32(g >> 8), float32(bl >> 8)}
			for c := 0; c < 3; c++ {
				v := px[c]
				switch norm {
				case nn.NormalizeUnit:
					v /= 255
				case nn.NormalizeImageNet:
					v = (v/255 - imageNetMean[c]) / imageNetStd[c]
				}
				i := y*width + x
				if nhwc {
					out[i*3+c] = v
				} else {
					out[c*plane+i] = v
				}
			}
		}
	}
	return out
}
