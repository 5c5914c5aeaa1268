package nn

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNonMaxSuppression(t *testing.T) {
	input := []ObjectDetection{
		{Class: 0, Confidence: 0.6, Box: Rect{X: 1, Y: 1, Width: 100, Height: 100}},
		{Class: 0, Confidence: 0.9, Box: Rect{X: 0, Y: 0, Width: 100, Height: 100}},
		{Class: 1, Confidence: 0.7, Box: Rect{X: 0, Y: 0, Width: 100, Height: 100}}, // same box, other class
		{Class: 0, Confidence: 0.8, Box: Rect{X: 300, Y: 300, Width: 50, Height: 50}},
	}
	out := NonMaxSuppression(input, DefaultNmsIouThreshold)
	require.Len(t, out, 3)
	require.Equal(t, float32(0.9), out[0].Confidence)
	require.Equal(t, float32(0.8), out[1].Confidence)
	require.Equal(t, 1, out[2].Class)

	require.Nil(t, NonMaxSuppression(nil, 0.5))
}

func TestFilterByConfidence(t *testing.T) {
	input := []ObjectDetection{
		{Confidence: 0.2},
		{Confidence: 0.5},
		{Confidence: 0.99},
	}
	require.Len(t, FilterByConfidence(input, 0.5), 2)
	require.Len(t, FilterByConfidence(input, 0), 3)
	require.Empty(t, FilterByConfidence(input, 1))
}
