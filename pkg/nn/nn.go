package nn

import (
	"bufio"
	"encoding/json"
	"image"
	"os"
	"strings"
)

// Package nn is a Neural Network interface layer.
// It knows nothing about any particular inference runtime.
// To load a model, use the nnload package.

const DefaultProbabilityThreshold = 0.5
const DefaultNmsIouThreshold = 0.45
const DefaultTopK = 3

// NN object detection parameters
type DetectionParams struct {
	ProbabilityThreshold float32 // Value between 0 and 1. Objects scoring below this are discarded. Zero keeps everything.
	NmsIouThreshold      float32 // Value between 0 and 1. Lower values will merge more objects together into one.
}

// Create a default DetectionParams object
func NewDetectionParams() *DetectionParams {
	return &DetectionParams{
		ProbabilityThreshold: DefaultProbabilityThreshold,
		NmsIouThreshold:      DefaultNmsIouThreshold,
	}
}

// ObjectDetector is given an image, and returns zero or more detected objects.
// Boxes are in the coordinate space of the image that was passed in.
type ObjectDetector interface {
	// Close releases the native resources of the detector
	Close()

	// DetectObjects returns a list of objects detected in the image
	DetectObjects(img image.Image, params *DetectionParams) ([]ObjectDetection, error)

	// Model Config.
	// Callers assume that ModelConfig will remain constant, so don't change it
	// once the detector has been created.
	Config() *ModelConfig
}

// ImageClassifier is given an image, and returns one probability per class in Config().Classes
type ImageClassifier interface {
	Close()

	// Classify returns the raw per-class scores, in the same order as Config().Classes.
	// If Config().Softmax is true, the scores are already normalized to probabilities.
	Classify(img image.Image) ([]float32, error)

	Config() *ModelConfig
}

// How pixel values are scaled before being fed to a classifier
type Normalization string

const (
	NormalizeNone     Normalization = ""         // Raw 0..255 values (eg Keras EfficientNet includes its own rescaling layer)
	NormalizeUnit     Normalization = "unit"     // 0..1
	NormalizeImageNet Normalization = "imagenet" // 0..1, then subtract ImageNet mean and divide by stddev
)

// ModelConfig is saved in a JSON file along with the weights of the NN model
type ModelConfig struct {
	Architecture string        `json:"architecture"` // eg "yolov8", "efficientnet"
	Width        int           `json:"width"`        // eg 640
	Height       int           `json:"height"`       // eg 640
	Classes      []string      `json:"classes"`      // eg ["anthracnose", "bacterial canker", "healthy", ...]
	InputName    string        `json:"inputName"`    // Name of the input tensor (default "images")
	OutputName   string        `json:"outputName"`   // Name of the output tensor (default "output0")
	Layout       string        `json:"layout"`       // "nchw" (default) or "nhwc"
	Normalize    Normalization `json:"normalize"`    // Classifier input scaling
	Softmax      bool          `json:"softmax"`      // Apply softmax to classifier logits
}

func (c *ModelConfig) IsNHWC() bool {
	return strings.EqualFold(c.Layout, "nhwc")
}

// Load model config from a JSON file
func LoadModelConfig(filename string) (*ModelConfig, error) {
	b, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	config := &ModelConfig{}
	err = json.Unmarshal(b, config)
	if err != nil {
		return nil, err
	}
	if config.InputName == "" {
		config.InputName = "images"
	}
	if config.OutputName == "" {
		config.OutputName = "output0"
	}
	return config, nil
}

// Load a text file with class names on each line
func LoadClassFile(filename string) ([]string, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	classes := []string{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			classes = append(classes, line)
		}
	}
	return classes, scanner.Err()
}
