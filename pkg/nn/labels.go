package nn

// ObjectDetection is an object that a neural network has found in an image
type ObjectDetection struct {
	Class      int     `json:"class"`
	Confidence float32 `json:"confidence"`
	Box        Rect    `json:"box"`
}

// Classification is one entry of an image classifier's ranked output
type Classification struct {
	Label       string  `json:"label"`
	Probability float32 `json:"probability"`
}
