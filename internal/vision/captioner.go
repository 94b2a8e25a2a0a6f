package vision

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
)

const (
	defaultTopK     = 5
	defaultMinScore = 0.05
)

var (
	ErrDisabled  = errors.New("image captioning is disabled")
	ErrNoObjects = errors.New("no objects recognized in image")
)

type LabelScore struct {
	Label string  `json:"label"`
	Index int     `json:"index"`
	Score float32 `json:"score"`
}

type Config struct {
	ModelPath  string
	LabelsPath string
	LibPath    string
	TopK       int
	MinScore   float32
}

type inferer interface {
	Infer(tensor []float32) ([]float32, []string, error)
}

// Captioner turns images into short text descriptions built from classifier labels, so images
// can be indexed next to text documents.
type Captioner struct {
	model    inferer
	topK     int
	minScore float32
}

func NewCaptioner(cfg Config) *Captioner {
	return newCaptioner(&onnxModel{
		modelPath:  cfg.ModelPath,
		labelsPath: cfg.LabelsPath,
		libPath:    cfg.LibPath,
	}, cfg.TopK, cfg.MinScore)
}

func newCaptioner(model inferer, topK int, minScore float32) *Captioner {
	if topK <= 0 {
		topK = defaultTopK
	}
	if minScore <= 0 {
		minScore = defaultMinScore
	}
	return &Captioner{model: model, topK: topK, minScore: minScore}
}

// Classify returns up to topK labels ordered by softmax probability.
func (c *Captioner) Classify(data []byte) ([]LabelScore, error) {
	img, err := decodeImage(data)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	logits, labels, err := c.model.Infer(preprocess(img))
	if err != nil {
		return nil, err
	}
	probs := softmax(logits)

	order := make([]int, len(probs))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return probs[order[a]] > probs[order[b]] })

	k := c.topK
	if k > len(order) {
		k = len(order)
	}
	out := make([]LabelScore, 0, k)
	for _, idx := range order[:k] {
		label := ""
		if idx < len(labels) {
			label = labels[idx]
		}
		out = append(out, LabelScore{Label: label, Index: idx, Score: probs[idx]})
	}
	return out, nil
}

// Describe renders the confident labels as "Detected objects: a (87.0%), b (6.1%)".
func (c *Captioner) Describe(data []byte) (string, error) {
	scores, err := c.Classify(data)
	if err != nil {
		return "", err
	}
	var parts []string
	for _, s := range scores {
		if s.Score < c.minScore || s.Label == "" {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s (%.1f%%)", s.Label, s.Score*100))
	}
	if len(parts) == 0 {
		return "", ErrNoObjects
	}
	return "Detected objects: " + strings.Join(parts, ", "), nil
}

func (c *Captioner) Close() error {
	if closer, ok := c.model.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}

func softmax(logits []float32) []float32 {
	if len(logits) == 0 {
		return nil
	}
	maxLogit := logits[0]
	for _, l := range logits[1:] {
		if l > maxLogit {
			maxLogit = l
		}
	}
	out := make([]float32, len(logits))
	var sum float64
	for i, l := range logits {
		e := math.Exp(float64(l - maxLogit))
		out[i] = float32(e)
		sum += e
	}
	for i := range out {
		out[i] = float32(float64(out[i]) / sum)
	}
	return out
}
