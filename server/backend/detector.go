package backend

import (
	"fmt"
	"image"
	"image/color"

	"github.com/cyclopcam/leafscan/pkg/nn"
	"github.com/cyclopcam/logs"
	"github.com/fogleman/gg"
)

// Detector runs an object detection model, and draws the surviving boxes onto a copy of the input
type Detector struct {
	MaxPixels int64 // Largest accepted image. Set before the first Predict.

	log   logs.Log
	model nn.ObjectDetector
}

func NewDetector(log logs.Log, model nn.ObjectDetector) *Detector {
	return &Detector{
		MaxPixels: DefaultMaxImagePixels,
		log:       log,
		model:     model,
	}
}

func (d *Detector) Kind() Kind {
	return KindDetector
}

func (d *Detector) Close() {
	d.model.Close()
}

func (d *Detector) Predict(imageData []byte, confidence float32) (*Output, error) {
	img, err := DecodeImage(imageData, d.MaxPixels)
	if err != nil {
		return nil, err
	}
	params := nn.NewDetectionParams()
	params.ProbabilityThreshold = confidence
	objects, err := d.model.DetectObjects(img, params)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInference, err)
	}
	// Don't trust the engine to have applied the threshold
	objects = nn.FilterByConfidence(objects, confidence)

	out := &Output{
		Kind:    KindDetector,
		Objects: objects,
	}
	if len(objects) == 0 {
		out.Image = img
	} else {
		out.Image = DrawDetections(img, objects, d.model.Config().Classes)
	}
	return out, nil
}

// Box colors, cycled by class index
var palette = []color.RGBA{
	{255, 56, 56, 255},
	{255, 157, 151, 255},
	{255, 112, 31, 255},
	{255, 178, 29, 255},
	{207, 210, 49, 255},
	{72, 249, 10, 255},
	{26, 147, 52, 255},
	{0, 212, 187, 255},
	{44, 153, 168, 255},
	{0, 194, 255, 255},
}

func className(classes []string, cls int) string {
	if cls >= 0 && cls < len(classes) {
		return classes[cls]
	}
	return fmt.Sprintf("class %v", cls)
}

// DrawDetections returns a new image, which is 'img' with a labelled box over every object.
// 'img' is not modified.
func DrawDetections(img image.Image, objects []nn.ObjectDetection, classes []string) image.Image {
	dc := gg.NewContextForImage(img)
	b := img.Bounds()
	lineWidth := max(2, float64(min(b.Dx(), b.Dy()))/200)
	dc.SetLineWidth(lineWidth)
	for _, obj := range objects {
		col := palette[0]
		if obj.Class > 0 {
			col = palette[obj.Class%len(palette)]
		}
		x := float64(obj.Box.X)
		y := float64(obj.Box.Y)
		dc.SetColor(col)
		dc.DrawRectangle(x, y, float64(obj.Box.Width), float64(obj.Box.Height))
		dc.Stroke()

		label := fmt.Sprintf("%v %.2f", className(classes, obj.Class), obj.Confidence)
		tw, th := dc.MeasureString(label)
		ty := y - th - 4
		if ty < 0 {
			// No space above the box, so put the label inside it
			ty = y
		}
		dc.DrawRectangle(x, ty, tw+4, th+4)
		dc.Fill()
		dc.SetColor(color.White)
		dc.DrawString(label, x+2, ty+th+1)
	}
	return dc.Image()
}
