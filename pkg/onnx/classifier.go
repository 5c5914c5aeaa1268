package onnx

import (
	"fmt"
	"image"

	"github.com/cyclopcam/leafscan/pkg/nn"
	"github.com/disintegration/imaging"
	ort "github.com/yalue/onnxruntime_go"
)

// Classifier is an ONNX image classifier with output [1, numClasses]
type Classifier struct {
	config nn.ModelConfig
	sess   *session
}

func NewClassifier(modelFile string, config nn.ModelConfig) (*Classifier, error) {
	if config.Width <= 0 || config.Height <= 0 {
		return nil, fmt.Errorf("Invalid model dimensions %v x %v", config.Width, config.Height)
	}
	if len(config.Classes) == 0 {
		return nil, fmt.Errorf("Model %v has no classes", modelFile)
	}
	var inputShape ort.Shape
	if config.IsNHWC() {
		inputShape = ort.NewShape(1, int64(config.Height), int64(config.Width), 3)
	} else {
		inputShape = ort.NewShape(1, 3, int64(config.Height), int64(config.Width))
	}
	outputShape := ort.NewShape(1, int64(len(config.Classes)))
	sess, err := newSession(modelFile, config.InputName, config.OutputName, inputShape, outputShape)
	if err != nil {
		return nil, err
	}
	return &Classifier{
		config: config,
		sess:   sess,
	}, nil
}

func (m *Classifier) Close() {
	m.sess.close()
}

func (m *Classifier) Config() *nn.ModelConfig {
	return &m.config
}

func (m *Classifier) Classify(img image.Image) ([]float32, error) {
	if img.Bounds().Empty() {
		return nil, fmt.Errorf("Image is empty")
	}
	input := classifierInput(img, m.config.Width, m.config.Height)
	scores, err := m.sess.run(imageToTensor(input, m.config.IsNHWC(), m.config.Normalize))
	if err != nil {
		return nil, err
	}
	if m.config.Softmax {
		scores = nn.Softmax(scores)
	}
	return scores, nil
}

// Scale to cover width x height, then crop the center, so the aspect ratio is preserved
func classifierInput(img image.Image, width, height int) *image.NRGBA {
	return imaging.Fill(img, width, height, imaging.Center, imaging.Linear)
}
