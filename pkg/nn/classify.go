package nn

import (
	"sort"

	"github.com/chewxy/math32"
)

// Softmax converts logits into probabilities that sum to 1
func Softmax(logits []float32) []float32 {
	if len(logits) == 0 {
		return nil
	}
	maxV := logits[0]
	for _, v := range logits[1:] {
		maxV = max(maxV, v)
	}
	out := make([]float32, len(logits))
	sum := float32(0)
	for i, v := range logits {
		out[i] = math32.Exp(v - maxV)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}

// TopK returns the k highest scoring classes, sorted by descending probability.
// Ties keep class order. If there are fewer than k scores, all of them are returned.
// Scores beyond len(classes) are ignored.
func TopK(scores []float32, classes []string, k int) []Classification {
	n := min(len(scores), len(classes))
	all := make([]Classification, n)
	for i := 0; i < n; i++ {
		all[i] = Classification{
			Label:       classes[i],
			Probability: scores[i],
		}
	}
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].Probability > all[j].Probability
	})
	if k >= 0 && k < len(all) {
		all = all[:k]
	}
	return all
}
