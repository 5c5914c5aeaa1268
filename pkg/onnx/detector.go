package onnx

import (
	"fmt"
	"image"

	"github.com/cyclopcam/leafscan/pkg/nn"
	"github.com/nfnt/resize"
	ort "github.com/yalue/onnxruntime_go"
)

// YOLOv8 is an ONNX YOLOv8 (or YOLO11) object detector.
// The network output is [1, 4+numClasses, numAnchors], where the first 4 rows
// are box center X, center Y, width and height in network input pixels.
type YOLOv8 struct {
	config     nn.ModelConfig
	numAnchors int
	sess       *session
}

// Number of anchors for a YOLOv8 model with strides 8, 16, 32
func yoloAnchors(width, height int) int {
	n := 0
	for _, stride := range []int{8, 16, 32} {
		n += (width / stride) * (height / stride)
	}
	return n
}

func NewYOLOv8(modelFile string, config nn.ModelConfig) (*YOLOv8, error) {
	if config.Width <= 0 || config.Height <= 0 {
		return nil, fmt.Errorf("Invalid model dimensions %v x %v", config.Width, config.Height)
	}
	if len(config.Classes) == 0 {
		return nil, fmt.Errorf("Model %v has no classes", modelFile)
	}
	anchors := yoloAnchors(config.Width, config.Height)
	inputShape := ort.NewShape(1, 3, int64(config.Height), int64(config.Width))
	outputShape := ort.NewShape(1, int64(4+len(config.Classes)), int64(anchors))
	sess, err := newSession(modelFile, config.InputName, config.OutputName, inputShape, outputShape)
	if err != nil {
		return nil, err
	}
	return &YOLOv8{
		config:     config,
		numAnchors: anchors,
		sess:       sess,
	}, nil
}

func (m *YOLOv8) Close() {
	m.sess.close()
}

func (m *YOLOv8) Config() *nn.ModelConfig {
	return &m.config
}

func (m *YOLOv8) DetectObjects(img image.Image, params *nn.DetectionParams) ([]nn.ObjectDetection, error) {
	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return nil, fmt.Errorf("Image is empty")
	}
	resized := resize.Resize(uint(m.config.Width), uint(m.config.Height), img, resize.Bilinear)
	output, err := m.sess.run(imageToTensor(resized, false, nn.NormalizeUnit))
	if err != nil {
		return nil, err
	}
	scaleX := float32(b.Dx()) / float32(m.config.Width)
	scaleY := float32(b.Dy()) / float32(m.config.Height)
	objects, err := decodeYOLOv8(output, len(m.config.Classes), m.numAnchors, params.ProbabilityThreshold)
	if err != nil {
		return nil, err
	}
	objects = nn.NonMaxSuppression(objects, params.NmsIouThreshold)
	for i := range objects {
		objects[i].Box = objects[i].Box.Scale(scaleX, scaleY).Clip(b.Dx(), b.Dy())
	}
	return objects, nil
}

// decodeYOLOv8 turns the raw output tensor into boxes in network input coordinates.
// Candidates scoring below minConfidence are dropped.
func decodeYOLOv8(output []float32, numClasses, numAnchors int, minConfidence float32) ([]nn.ObjectDetection, error) {
	rows := 4 + numClasses
	if len(output) != rows*numAnchors {
		return nil, fmt.Errorf("Unexpected output size %v, expected %v x %v", len(output), rows, numAnchors)
	}
	at := func(row, anchor int) float32 {
		return output[row*numAnchors+anchor]
	}
	objects := []nn.ObjectDetection{}
	for a := 0; a < numAnchors; a++ {
		bestClass := 0
		bestScore := at(4, a)
		for c := 1; c < numClasses; c++ {
			if s := at(4+c, a); s > bestScore {
				bestScore = s
				bestClass = c
			}
		}
		if bestScore < minConfidence {
			continue
		}
		cx, cy, w, h := at(0, a), at(1, a), at(2, a), at(3, a)
		objects = append(objects, nn.ObjectDetection{
			Class:      bestClass,
			Confidence: bestScore,
			Box:        nn.RectFromCorners(int(cx-w/2), int(cy-h/2), int(cx+w/2), int(cy+h/2)),
		})
	}
	return objects, nil
}
