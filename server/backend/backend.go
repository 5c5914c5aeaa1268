package backend

// Package backend wraps one inference engine behind a uniform contract.
// There are two variants: Detector, which draws boxes onto the image, and
// Classifier, which returns a ranked label list. Which variant serves a
// category is decided by configuration, never by inspecting the engine.

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"

	"github.com/cyclopcam/leafscan/pkg/nn"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

var ErrInvalidInput = errors.New("Input is not a decodable image")
var ErrInference = errors.New("Inference failed")

type Kind string

const (
	KindDetector   Kind = "detector"
	KindClassifier Kind = "classifier"
)

var AllKinds = []Kind{KindDetector, KindClassifier}

func ParseKind(s string) (Kind, error) {
	for _, k := range AllKinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("Unknown backend kind '%v'. Valid values are 'detector' and 'classifier'", s)
}

// Output is the in-memory result of a Predict call.
// For KindDetector, Image is set (and Objects lists what was drawn onto it).
// For KindClassifier, Labels is set.
type Output struct {
	Kind    Kind
	Image   image.Image
	Objects []nn.ObjectDetection
	Labels  []nn.Classification
}

// ModelBackend is one pluggable inference engine.
// Implementations are shared between callers, and are read-only after construction.
type ModelBackend interface {
	Kind() Kind

	// Predict runs inference on an encoded image (JPEG, PNG, ...).
	// A Detector discards objects scoring below confidence.
	// A Classifier accepts confidence but does not use it.
	// Fails with ErrInvalidInput if the image can't be decoded, or ErrInference if the engine fails.
	Predict(imageData []byte, confidence float32) (*Output, error)

	Close()
}

// Images with more pixels than this are refused before decoding, because the decoder
// allocates the full raster up front. 89478485 is the limit used by PIL.
const DefaultMaxImagePixels = 89478485

// DecodeImage decodes JPEG, PNG, WebP or BMP.
// Images of more than maxPixels pixels fail with ErrInvalidInput, without being decoded.
func DecodeImage(imageData []byte, maxPixels int64) (image.Image, error) {
	if len(imageData) == 0 {
		return nil, fmt.Errorf("%w: empty input", ErrInvalidInput)
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(imageData))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	if pixels := int64(cfg.Width) * int64(cfg.Height); pixels > maxPixels {
		return nil, fmt.Errorf("%w: image is %v x %v, which is more than %v pixels", ErrInvalidInput, cfg.Width, cfg.Height, maxPixels)
	}
	img, _, err := image.Decode(bytes.NewReader(imageData))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	if img.Bounds().Empty() {
		return nil, fmt.Errorf("%w: image has zero size", ErrInvalidInput)
	}
	return img, nil
}
