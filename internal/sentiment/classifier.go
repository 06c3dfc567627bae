// Package sentiment decides whether a batch of posts expresses positive or
// negative sentiment.
package sentiment

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/phuslu/log"

	"SentimentLedger/internal/model"
)

// PositiveCategory is the training category that maps to an invest verdict.
const PositiveCategory = "pos"

// DefaultNGram is the default character n-gram length.
const DefaultNGram = 8

// ErrClassificationUnavailable means no verdict could be produced.
var ErrClassificationUnavailable = errors.New("classification unavailable")

// Oracle turns a corpus of text into an invest / do-not-invest verdict.
type Oracle interface {
	Classify(ctx context.Context, corpus string) (model.Verdict, error)
}

// Decide consults oracle and defaults to "do not invest" on any failure. The
// returned error is informational; the verdict is always usable.
func Decide(ctx context.Context, oracle Oracle, corpus string) (model.Verdict, error) {
	if oracle == nil {
		return false, fmt.Errorf("%w: no oracle configured", ErrClassificationUnavailable)
	}
	v, err := oracle.Classify(ctx, corpus)
	if err != nil {
		if !errors.Is(err, ErrClassificationUnavailable) {
			err = fmt.Errorf("%w: %w", ErrClassificationUnavailable, err)
		}
		return false, err
	}
	return v, nil
}

// Classifier is a dynamic language-model classifier: one character n-gram
// model per category plus category frequencies.
type Classifier struct {
	mu         sync.RWMutex
	n          int
	models     map[string]*processLM
	docCounts  map[string]int
	totalDocs  int
	categories []string
}

// NewClassifier creates an untrained classifier over the given categories.
func NewClassifier(categories []string, n int) *Classifier {
	if n <= 0 {
		n = DefaultNGram
	}
	c := &Classifier{
		n:         n,
		models:    make(map[string]*processLM),
		docCounts: make(map[string]int),
	}
	for _, cat := range categories {
		c.addCategory(cat)
	}
	return c
}

func (c *Classifier) addCategory(cat string) {
	if _, ok := c.models[cat]; ok {
		return
	}
	c.models[cat] = newProcessLM(c.n)
	c.categories = append(c.categories, cat)
	sort.Strings(c.categories)
}

// Categories returns the known categories in sorted order.
func (c *Classifier) Categories() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string(nil), c.categories...)
}

// Train adds one labelled document.
func (c *Classifier) Train(category, text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.addCategory(category)
	c.models[category].train([]rune(text))
	c.docCounts[category]++
	c.totalDocs++
}

// Trained reports whether at least one document was seen.
func (c *Classifier) Trained() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.totalDocs > 0
}

// Scores returns the joint log2 score of text for every category.
func (c *Classifier) Scores(text string) map[string]float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	runes := []rune(text)
	scores := make(map[string]float64, len(c.categories))
	k := float64(len(c.categories))
	for _, cat := range c.categories {
		prior := (float64(c.docCounts[cat]) + 1) / (float64(c.totalDocs) + k)
		scores[cat] = math.Log2(prior) + c.models[cat].log2Prob(runes)
	}
	return scores
}

// BestCategory returns the highest scoring category for text. Ties resolve to
// the alphabetically first category.
func (c *Classifier) BestCategory(text string) (string, error) {
	if !c.Trained() {
		return "", fmt.Errorf("%w: classifier not trained", ErrClassificationUnavailable)
	}
	scores := c.Scores(text)
	best, bestScore := "", math.Inf(-1)
	for _, cat := range c.Categories() {
		if s := scores[cat]; best == "" || s > bestScore {
			best, bestScore = cat, s
		}
	}
	return best, nil
}

// Classify implements Oracle: the verdict is positive when the corpus as a
// whole is best explained by PositiveCategory.
func (c *Classifier) Classify(ctx context.Context, corpus string) (model.Verdict, error) {
	if err := ctx.Err(); err != nil {
		return false, fmt.Errorf("%w: %w", ErrClassificationUnavailable, err)
	}
	if strings.TrimSpace(corpus) == "" {
		return false, fmt.Errorf("%w: empty corpus", ErrClassificationUnavailable)
	}
	cat, err := c.BestCategory(corpus)
	if err != nil {
		return false, err
	}
	log.Info().Str("category", cat).Int("chars", len(corpus)).Msg("corpus classified")
	return model.Verdict(cat == PositiveCategory), nil
}
