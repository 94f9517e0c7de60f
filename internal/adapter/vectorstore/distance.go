// Package vectorstore provides vector index implementations: an
// in-memory index, a bbolt-backed persistent index, and a Qdrant REST
// client. All of them order matches by descending score, where score is
// normalised so higher always means closer.
package vectorstore

import (
	"fmt"
	"math"

	"docrag/internal/domain"
)

// Distance selects the similarity measure used by an index. The measure
// is fixed for the lifetime of an index.
type Distance string

const (
	DistanceCosine    Distance = "cosine"
	DistanceDot       Distance = "dot"
	DistanceEuclidean Distance = "euclidean"
)

// ParseDistance validates a configured distance name.
func ParseDistance(name string) (Distance, error) {
	switch Distance(name) {
	case DistanceCosine, DistanceDot, DistanceEuclidean:
		return Distance(name), nil
	case "":
		return DistanceCosine, nil
	default:
		return "", fmt.Errorf("%w: unknown distance measure %q", domain.ErrInvalidInput, name)
	}
}

// score computes the similarity of two equal-length vectors. Euclidean
// distance is negated so descending score order holds for every
// measure.
func score(measure Distance, a, b []float32) float64 {
	switch measure {
	case DistanceDot:
		return dot(a, b)
	case DistanceEuclidean:
		return -math.Sqrt(squaredDistance(a, b))
	default:
		return cosineSimilarity(a, b)
	}
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

func squaredDistance(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return sum
}

func cosineSimilarity(a, b []float32) float64 {
	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}
