package sentiment

import "math"

// maxChars is the alphabet size of the uniform base distribution.
const maxChars = 1 << 16

type contextStats struct {
	total int
	next  map[rune]int
}

// processLM is a character n-gram process language model with interpolated
// Witten-Bell smoothing over a uniform base distribution.
type processLM struct {
	n        int
	lambda   float64
	contexts map[string]*contextStats
}

func newProcessLM(n int) *processLM {
	return &processLM{
		n:        n,
		lambda:   float64(n),
		contexts: make(map[string]*contextStats),
	}
}

// train counts every character under each of its contexts of length 0..n-1.
func (lm *processLM) train(text []rune) {
	for i, c := range text {
		for k := 0; k < lm.n && k <= i; k++ {
			key := string(text[i-k : i])
			st := lm.contexts[key]
			if st == nil {
				st = &contextStats{next: make(map[rune]int)}
				lm.contexts[key] = st
			}
			st.total++
			st.next[c]++
		}
	}
}

// prob estimates P(c | history), interpolating from the empty context up to
// the longest seen suffix of history.
func (lm *processLM) prob(history []rune, c rune) float64 {
	p := 1.0 / maxChars
	for k := 0; k < lm.n && k <= len(history); k++ {
		st := lm.contexts[string(history[len(history)-k:])]
		if st == nil || st.total == 0 {
			break
		}
		distinct := float64(len(st.next))
		total := float64(st.total)
		w := total / (total + lm.lambda*distinct)
		p = w*float64(st.next[c])/total + (1-w)*p
	}
	return p
}

// log2Prob is the log2 probability of text under the model.
func (lm *processLM) log2Prob(text []rune) float64 {
	var sum float64
	for i, c := range text {
		start := i - (lm.n - 1)
		if start < 0 {
			start = 0
		}
		sum += math.Log2(lm.prob(text[start:i], c))
	}
	return sum
}
