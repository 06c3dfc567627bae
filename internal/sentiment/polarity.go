package sentiment

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/phuslu/log"
	"golang.org/x/text/encoding/charmap"
)

// Document is one labelled training or evaluation text.
type Document struct {
	Category string
	Name     string
	Text     string
}

// Corpus is a labelled polarity data set split into training and held-out
// evaluation documents.
type Corpus struct {
	Categories []string
	Train      []Document
	Test       []Document
}

// Evaluation summarises held-out accuracy.
type Evaluation struct {
	Cases    int
	Correct  int
	Accuracy float64
}

// LoadPolarityDir reads <dir>/txt_sentoken/<category>/* as ISO-8859-1 text.
// A file whose name carries testFold at index 2 (cv9xx_...) is held out.
func LoadPolarityDir(dir string, testFold byte) (*Corpus, error) {
	root := filepath.Join(dir, "txt_sentoken")
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("read polarity dir: %w", err)
	}

	decoder := charmap.ISO8859_1.NewDecoder()
	corpus := &Corpus{}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		cat := e.Name()
		corpus.Categories = append(corpus.Categories, cat)

		files, err := os.ReadDir(filepath.Join(root, cat))
		if err != nil {
			return nil, fmt.Errorf("read category %s: %w", cat, err)
		}
		for _, f := range files {
			if f.IsDir() {
				continue
			}
			raw, err := os.ReadFile(filepath.Join(root, cat, f.Name()))
			if err != nil {
				return nil, fmt.Errorf("read %s/%s: %w", cat, f.Name(), err)
			}
			text, err := decoder.Bytes(raw)
			if err != nil {
				return nil, fmt.Errorf("decode %s/%s: %w", cat, f.Name(), err)
			}
			doc := Document{Category: cat, Name: f.Name(), Text: string(text)}
			if isHeldOut(f.Name(), testFold) {
				corpus.Test = append(corpus.Test, doc)
			} else {
				corpus.Train = append(corpus.Train, doc)
			}
		}
	}
	sort.Strings(corpus.Categories)
	if len(corpus.Categories) == 0 {
		return nil, fmt.Errorf("no categories under %s", root)
	}
	return corpus, nil
}

func isHeldOut(name string, fold byte) bool {
	return len(name) > 2 && name[2] == fold
}

// TrainCorpus feeds every training document of corpus into c.
func (c *Classifier) TrainCorpus(corpus *Corpus) {
	chars := 0
	for _, doc := range corpus.Train {
		c.Train(doc.Category, doc.Text)
		chars += len(doc.Text)
	}
	log.Info().Int("cases", len(corpus.Train)).Int("chars", chars).
		Strs("categories", corpus.Categories).Msg("classifier trained")
}

// Evaluate classifies every held-out document and reports accuracy.
func (c *Classifier) Evaluate(corpus *Corpus) (Evaluation, error) {
	var ev Evaluation
	for _, doc := range corpus.Test {
		got, err := c.BestCategory(doc.Text)
		if err != nil {
			return ev, err
		}
		ev.Cases++
		if got == doc.Category {
			ev.Correct++
		}
	}
	if ev.Cases > 0 {
		ev.Accuracy = float64(ev.Correct) / float64(ev.Cases)
	}
	log.Info().Int("cases", ev.Cases).Int("correct", ev.Correct).
		Float64("accuracy", ev.Accuracy).Msg("classifier evaluated")
	return ev, nil
}

// TrainDir loads dir, trains a fresh classifier and evaluates it on the
// held-out fold.
func TrainDir(dir string, n int, testFold byte) (*Classifier, Evaluation, error) {
	corpus, err := LoadPolarityDir(dir, testFold)
	if err != nil {
		return nil, Evaluation{}, err
	}
	c := NewClassifier(corpus.Categories, n)
	c.TrainCorpus(corpus)
	ev, err := c.Evaluate(corpus)
	if err != nil {
		return nil, Evaluation{}, err
	}
	return c, ev, nil
}

// ReadCorpus loads a corpus file. A missing file yields an empty corpus so
// the caller falls back to the default verdict.
func ReadCorpus(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read corpus: %w", err)
	}
	return string(raw), nil
}
