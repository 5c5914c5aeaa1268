package nn

import (
	"sort"

	flatbush "github.com/bmharper/flatbush-go"
)

// FilterByConfidence returns the objects whose confidence is at least minConfidence.
// The input slice is not modified.
func FilterByConfidence(input []ObjectDetection, minConfidence float32) []ObjectDetection {
	keep := make([]ObjectDetection, 0, len(input))
	for _, obj := range input {
		if obj.Confidence >= minConfidence {
			keep = append(keep, obj)
		}
	}
	return keep
}

// NonMaxSuppression removes boxes of the same class that overlap a higher scoring box
// by at least minIoU. The result is ordered by descending confidence.
func NonMaxSuppression(input []ObjectDetection, minIoU float32) []ObjectDetection {
	if len(input) == 0 {
		return nil
	}
	sorted := make([]ObjectDetection, len(input))
	copy(sorted, input)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Confidence > sorted[j].Confidence
	})

	// Spatial index to avoid O(N^2) comparisons. Raw YOLO output has thousands of candidates.
	fb := flatbush.NewFlatbush[int32]()
	fb.Reserve(len(sorted))
	for _, b := range sorted {
		fb.Add(int32(b.Box.X), int32(b.Box.Y), int32(b.Box.X2()), int32(b.Box.Y2()))
	}
	fb.Finish()

	suppressed := make([]bool, len(sorted))
	result := []ObjectDetection{}
	for i, obj := range sorted {
		if suppressed[i] {
			continue
		}
		result = append(result, obj)
		for _, j := range fb.Search(int32(obj.Box.X), int32(obj.Box.Y), int32(obj.Box.X2()), int32(obj.Box.Y2())) {
			if j <= i || suppressed[j] {
				continue
			}
			if sorted[j].Class == obj.Class && obj.Box.IOU(sorted[j].Box) >= minIoU {
				suppressed[j] = true
			}
		}
	}
	return result
}
