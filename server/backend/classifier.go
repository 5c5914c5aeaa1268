package backend

import (
	"fmt"

	"github.com/cyclopcam/leafscan/pkg/nn"
	"github.com/cyclopcam/logs"
)

// Classifier runs an image classification model, and returns the top K labels.
// Confidence is part of the Predict signature, but there is no thresholding on this path.
type Classifier struct {
	MaxPixels int64 // Largest accepted image. Set before the first Predict.

	log   logs.Log
	model nn.ImageClassifier
	topK  int
}

func NewClassifier(log logs.Log, model nn.ImageClassifier, topK int) *Classifier {
	if topK <= 0 {
		topK = nn.DefaultTopK
	}
	return &Classifier{
		MaxPixels: DefaultMaxImagePixels,
		log:       log,
		model:     model,
		topK:      topK,
	}
}

func (c *Classifier) Kind() Kind {
	return KindClassifier
}

func (c *Classifier) Close() {
	c.model.Close()
}

func (c *Classifier) Predict(imageData []byte, confidence float32) (*Output, error) {
	img, err := DecodeImage(imageData, c.MaxPixels)
	if err != nil {
		return nil, err
	}
	scores, err := c.model.Classify(img)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInference, err)
	}
	classes := c.model.Config().Classes
	if len(scores) != len(classes) {
		return nil, fmt.Errorf("%w: model produced %v scores for %v classes", ErrInference, len(scores), len(classes))
	}
	return &Output{
		Kind:   KindClassifier,
		Labels: nn.TopK(scores, classes, c.topK),
	}, nil
}
