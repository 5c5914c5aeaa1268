package onnx

import (
	"image"
	"image/color"
	"testing"

	"github.com/cyclopcam/leafscan/pkg/nn"
	"github.com/stretchr/testify/require"
)

func TestYoloAnchors(t *testing.T) {
	require.Equal(t, 8400, yoloAnchors(640, 640))
	require.Equal(t, 2100, yoloAnchors(320, 320))
}

func TestDecodeYOLOv8(t *testing.T) {
	numClasses := 2
	numAnchors := 3
	rows := 4 + numClasses
	out := make([]float32, rows*numAnchors)
	set := func(row, anchor int, v float32) {
		out[row*numAnchors+anchor] = v
	}
	// anchor 0: class 1 at 0.9, box centered at (50,50), 20x10
	set(0, 0, 50)
	set(1, 0, 50)
	set(2, 0, 20)
	set(3, 0, 10)
	set(4, 0, 0.1)
	set(5, 0, 0.9)
	// anchor 1: below threshold
	set(4, 1, 0.2)
	// anchor 2: class 0 at 0.6
	set(0, 2, 10)
	set(1, 2, 10)
	set(2, 2, 4)
	set(3, 2, 4)
	set(4, 2, 0.6)

	objs, err := decodeYOLOv8(out, numClasses, numAnchors, 0.5)
	require.NoError(t, err)
	require.Len(t, objs, 2)
	require.Equal(t, 1, objs[0].Class)
	require.Equal(t, float32(0.9), objs[0].Confidence)
	require.Equal(t, nn.Rect{X: 40, Y: 45, Width: 20, Height: 10}, objs[0].Box)
	require.Equal(t, 0, objs[1].Class)

	_, err = decodeYOLOv8(out[:5], numClasses, numAnchors, 0.5)
	require.Error(t, err)
}

func TestImageToTensor(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 2, 1))
	img.Set(0, 0, color.RGBA{255, 0, 0, 255})
	img.Set(1, 0, color.RGBA{0, 255, 51, 255})

	nchw := imageToTensor(img, false, nn.NormalizeUnit)
	require.Equal(t, []float32{1, 0, 0, 1, 0, 0.2}, nchw)

	nhwc := imageToTensor(img, true, nn.NormalizeNone)
	require.Equal(t, []float32{255, 0, 0, 0, 255, 51}, nhwc)
}

func TestClassifierInputCropsCenter(t *testing.T) {
	// 200 x 100, red on the outer 50 columns of each side, green in the middle
	img := image.NewNRGBA(image.Rect(0, 0, 200, 100))
	for y := 0; y < 100; y++ {
		for x := 0; x < 200; x++ {
			c := color.NRGBA{0, 255, 0, 255}
			if x < 50 || x >= 150 {
				c = color.NRGBA{255, 0, 0, 255}
			}
			img.SetNRGBA(x, y, c)
		}
	}
	out := classifierInput(img, 50, 50)
	require.Equal(t, 50, out.Bounds().Dx())
	require.Equal(t, 50, out.Bounds().Dy())
	for _, x := range []int{0, 25, 49} {
		c := out.NRGBAAt(x, 25)
		require.Greater(t, c.G, c.R, "x = %v", x)
	}
}
