package search

import "math"

// NormalizeVector returns the vector scaled to unit length. The stored
// embedding vectors are unit length, so normalizing the query vector makes
// the backend's dot product a cosine similarity. Zero vectors are returned
// unchanged.
func NormalizeVector(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}

	norm := float32(math.Sqrt(sum))
	normalized := make([]float32, len(v))
	for i, x := range v {
		normalized[i] = x / norm
	}
	return normalized
}
