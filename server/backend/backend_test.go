package backend

import (
	"bytes"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/cyclopcam/leafscan/pkg/nn"
	"github.com/cyclopcam/logs"
	"github.com/stretchr/testify/require"
)

type fakeDetector struct {
	config    nn.ModelConfig
	objects   []nn.ObjectDetection
	err       error
	threshold float32
	closed    bool
}

func (f *fakeDetector) Close() {
	f.closed = true
}

func (f *fakeDetector) Config() *nn.ModelConfig {
	return &f.config
}

func (f *fakeDetector) DetectObjects(img image.Image, params *nn.DetectionParams) ([]nn.ObjectDetection, error) {
	f.threshold = params.ProbabilityThreshold
	return f.objects, f.err
}

type fakeClassifier struct {
	config nn.ModelConfig
	scores []float32
	err    error
}

func (f *fakeClassifier) Close() {}

func (f *fakeClassifier) Config() *nn.ModelConfig {
	return &f.config
}

func (f *fakeClassifier) Classify(img image.Image) ([]float32, error) {
	return f.scores, f.err
}

func testImage(width, height int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.NRGBA{uint8(x * 3), uint8(y * 3), 90, 255})
		}
	}
	return img
}

func encodePNG(t *testing.T, img image.Image) []byte {
	buf := bytes.Buffer{}
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func countDifferentPixels(a, b image.Image) int {
	n := 0
	r := a.Bounds()
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			r1, g1, b1, a1 := a.At(x, y).RGBA()
			r2, g2, b2, a2 := b.At(x, y).RGBA()
			if r1 != r2 || g1 != g2 || b1 != b2 || a1 != a2 {
				n++
			}
		}
	}
	return n
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind("detector")
	require.NoError(t, err)
	require.Equal(t, KindDetector, k)
	k, err = ParseKind("classifier")
	require.NoError(t, err)
	require.Equal(t, KindClassifier, k)
	_, err = ParseKind("segmenter")
	require.Error(t, err)
}

func TestDecodeImage(t *testing.T) {
	_, err := DecodeImage(nil, DefaultMaxImagePixels)
	require.ErrorIs(t, err, ErrInvalidInput)
	_, err = DecodeImage([]byte("this is not an image"), DefaultMaxImagePixels)
	require.ErrorIs(t, err, ErrInvalidInput)

	img, err := DecodeImage(encodePNG(t, testImage(32, 16)), DefaultMaxImagePixels)
	require.NoError(t, err)
	require.Equal(t, 32, img.Bounds().Dx())
	require.Equal(t, 16, img.Bounds().Dy())

	// Exactly at the limit is fine
	_, err = DecodeImage(encodePNG(t, testImage(32, 16)), 32*16)
	require.NoError(t, err)
	_, err = DecodeImage(encodePNG(t, testImage(32, 16)), 32*16-1)
	require.ErrorIs(t, err, ErrInvalidInput)
}

// pngHeader returns a PNG that consists of nothing but a valid IHDR chunk.
// It claims to be an RGBA image of the given size.
func pngHeader(width, height uint32) []byte {
	ihdr := make([]byte, 13)
	binary.BigEndian.PutUint32(ihdr[0:], width)
	binary.BigEndian.PutUint32(ihdr[4:], height)
	ihdr[8] = 8 // bit depth
	ihdr[9] = 6 // RGBA
	b := bytes.Buffer{}
	b.WriteString("\x89PNG\r\n\x1a\n")
	binary.Write(&b, binary.BigEndian, uint32(len(ihdr)))
	b.WriteString("IHDR")
	b.Write(ihdr)
	binary.Write(&b, binary.BigEndian, crc32.ChecksumIEEE(append([]byte("IHDR"), ihdr...)))
	return b.Bytes()
}

func TestDecodeImageTooManyPixels(t *testing.T) {
	bomb := pngHeader(30000, 30000)
	img, err := DecodeImage(bomb, DefaultMaxImagePixels)
	require.Nil(t, img)
	require.ErrorIs(t, err, ErrInvalidInput)
	require.ErrorContains(t, err, "30000 x 30000")

	log := logs.NewTestingLog(t)
	engine := &fakeDetector{}
	d := NewDetector(log, engine)
	_, err = d.Predict(bomb, 0.5)
	require.ErrorIs(t, err, ErrInvalidInput)

	c := NewClassifier(log, &fakeClassifier{}, 3)
	c.MaxPixels = 100
	_, err = c.Predict(encodePNG(t, testImage(20, 20)), 0.5)
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestDetectorNoDetections(t *testing.T) {
	log := logs.NewTestingLog(t)
	src := testImage(64, 48)
	engine := &fakeDetector{
		config: nn.ModelConfig{Classes: []string{"blight", "rust"}},
		objects: []nn.ObjectDetection{
			{Class: 0, Confidence: 0.2, Box: nn.Rect{X: 4, Y: 4, Width: 20, Height: 20}},
		},
	}
	d := NewDetector(log, engine)
	require.Equal(t, KindDetector, d.Kind())

	out, err := d.Predict(encodePNG(t, src), 0.5)
	require.NoError(t, err)
	require.Equal(t, float32(0.5), engine.threshold)
	require.Equal(t, KindDetector, out.Kind)
	require.Empty(t, out.Objects)
	require.Nil(t, out.Labels)
	require.Equal(t, src.Bounds().Size(), out.Image.Bounds().Size())
	require.Equal(t, 0, countDifferentPixels(src, out.Image))

	d.Close()
	require.True(t, engine.closed)
}

func TestDetectorDrawsBoxes(t *testing.T) {
	log := logs.NewTestingLog(t)
	src := testImage(64, 64)
	engine := &fakeDetector{
		config: nn.ModelConfig{Classes: []string{"blight", "rust"}},
		objects: []nn.ObjectDetection{
			{Class: 1, Confidence: 0.9, Box: nn.Rect{X: 10, Y: 20, Width: 30, Height: 30}},
			{Class: 0, Confidence: 0.3, Box: nn.Rect{X: 0, Y: 0, Width: 5, Height: 5}},
		},
	}
	d := NewDetector(log, engine)
	out, err := d.Predict(encodePNG(t, src), 0.5)
	require.NoError(t, err)
	require.Len(t, out.Objects, 1)
	require.Equal(t, 1, out.Objects[0].Class)
	require.Equal(t, src.Bounds().Size(), out.Image.Bounds().Size())
	require.Greater(t, countDifferentPixels(src, out.Image), 0)

	// The far corner is outside of the box and its label
	r1, g1, b1, _ := src.At(63, 63).RGBA()
	r2, g2, b2, _ := out.Image.At(63, 63).RGBA()
	require.Equal(t, []uint32{r1, g1, b1}, []uint32{r2, g2, b2})
}

func TestDetectorErrors(t *testing.T) {
	log := logs.NewTestingLog(t)
	engine := &fakeDetector{
		err: errors.New("tensor shape mismatch"),
	}
	d := NewDetector(log, engine)

	_, err := d.Predict([]byte{1, 2, 3}, 0.5)
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = d.Predict(encodePNG(t, testImage(8, 8)), 0.5)
	require.ErrorIs(t, err, ErrInference)
	require.ErrorContains(t, err, "tensor shape mismatch")
}

func TestClassifier(t *testing.T) {
	log := logs.NewTestingLog(t)
	engine := &fakeClassifier{
		config: nn.ModelConfig{Classes: []string{"healthy", "blight", "rust", "mildew"}},
		scores: []float32{0.1, 0.6, 0.05, 0.25},
	}
	c := NewClassifier(log, engine, 3)
	require.Equal(t, KindClassifier, c.Kind())

	img := encodePNG(t, testImage(16, 16))
	for _, conf := range []float32{0, 0.5, 0.99} {
		out, err := c.Predict(img, conf)
		require.NoError(t, err)
		require.Equal(t, KindClassifier, out.Kind)
		require.Nil(t, out.Image)
		require.Len(t, out.Labels, 3)
		require.Equal(t, "blight", out.Labels[0].Label)
		require.Equal(t, "mildew", out.Labels[1].Label)
		require.Equal(t, "healthy", out.Labels[2].Label)
	}
}

func TestClassifierErrors(t *testing.T) {
	log := logs.NewTestingLog(t)
	engine := &fakeClassifier{
		config: nn.ModelConfig{Classes: []string{"healthy", "blight"}},
		scores: []float32{0.5},
	}
	c := NewClassifier(log, engine, 0)
	require.Equal(t, nn.DefaultTopK, c.topK)

	_, err := c.Predict(encodePNG(t, testImage(8, 8)), 0.5)
	require.ErrorIs(t, err, ErrInference)

	engine.err = errors.New("session closed")
	_, err = c.Predict(encodePNG(t, testImage(8, 8)), 0.5)
	require.ErrorIs(t, err, ErrInference)

	_, err = c.Predict(nil, 0.5)
	require.ErrorIs(t, err, ErrInvalidInput)
}
