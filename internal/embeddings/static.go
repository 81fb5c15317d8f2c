package embeddings

import (
	"context"
	"errors"
	"hash/fnv"
	"math"
	"regexp"
	"strings"
)

// StaticDimensions is the default vector size of the static embedder.
const StaticDimensions = 256

const (
	tokenWeight = 0.7
	ngramWeight = 0.3
	ngramSize   = 3
)

var tokenRegex = regexp.MustCompile(`[\p{L}\p{N}]+`)

// StaticEmbedder hashes tokens and character trigrams into a fixed-size
// vector. It needs no network or model download, so it serves offline use
// and tests, at the cost of semantic quality.
type StaticEmbedder struct {
	dimensions int
}

// NewStaticEmbedder creates a static embedder. dimensions <= 0 uses StaticDimensions.
func NewStaticEmbedder(dimensions int) *StaticEmbedder {
	if dimensions <= 0 {
		dimensions = StaticDimensions
	}
	return &StaticEmbedder{dimensions: dimensions}
}

func (e *StaticEmbedder) Name() string {
	return "static"
}

func (e *StaticEmbedder) Dimensions() int {
	return e.dimensions
}

// Embed implements Embedder.
func (e *StaticEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	tokens := Tokenize(text)
	if len(tokens) == 0 {
		return nil, errors.New("static embedder: no tokens in input")
	}

	vec := make([]float32, e.dimensions)
	for _, tok := range tokens {
		vec[e.index(tok)] += tokenWeight
		padded := " " + tok + " "
		for i := 0; i+ngramSize <= len(padded); i++ {
			vec[e.index(padded[i:i+ngramSize])] += ngramWeight
		}
	}
	return normalize(vec), nil
}

func (e *StaticEmbedder) index(s string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(s))
	return int(h.Sum32() % uint32(e.dimensions))
}

// Tokenize lower-cases text and splits it into letter/digit runs.
func Tokenize(text string) []string {
	words := tokenRegex.FindAllString(strings.ToLower(text), -1)
	return words
}

func normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}
	norm := float32(math.Sqrt(sum))
	for i := range v {
		v[i] /= norm
	}
	return v
}
