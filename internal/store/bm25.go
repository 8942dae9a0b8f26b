package store

import (
	"math"

	"github.com/logscout/logscout/internal/errors"
)

// BM25Config holds Okapi BM25 parameters.
type BM25Config struct {
	// K1 controls term frequency saturation.
	K1 float64
	// B controls document length normalization.
	B float64
	// Epsilon floors negative IDF values at Epsilon times the mean IDF,
	// so very common terms still contribute a small positive weight.
	Epsilon float64
}

// DefaultBM25Config returns the standard parameters.
func DefaultBM25Config() BM25Config {
	return BM25Config{K1: 1.5, B: 0.75, Epsilon: 0.25}
}

// ErrEmptyCorpus is returned when every document tokenizes to nothing.
var ErrEmptyCorpus = errors.New(errors.ErrCodeEmptyCorpus, "corpus contains no tokenizable documents")

// DocScore pairs a corpus position with its BM25 score.
type DocScore struct {
	Index int
	Score float64
}

// BM25Stats summarizes an index for diagnostics.
type BM25Stats struct {
	DocCount  int     `json:"doc_count"`
	TermCount int     `json:"term_count"`
	AvgDocLen float64 `json:"avg_doc_len"`
}

// BM25Index is an immutable Okapi BM25 index over a fixed corpus.
// Construction takes a snapshot; later mutation of the input slices does
// not affect scoring. Safe for concurrent use.
type BM25Index struct {
	cfg       BM25Config
	docFreqs  []map[string]int
	docLens   []int
	avgDocLen float64
	idf       map[string]float64
}

// NewBM25Index builds an index over pre-tokenized documents. Documents
// that tokenized empty stay in the corpus (they score zero); if every
// document is empty the corpus is unusable and ErrEmptyCorpus is returned.
func NewBM25Index(docs [][]string, cfg BM25Config) (*BM25Index, error) {
	if cfg.K1 <= 0 {
		cfg.K1 = 1.5
	}
	if cfg.B < 0 || cfg.B > 1 {
		cfg.B = 0.75
	}
	if cfg.Epsilon <= 0 {
		cfg.Epsilon = 0.25
	}

	idx := &BM25Index{
		cfg:      cfg,
		docFreqs: make([]map[string]int, len(docs)),
		docLens:  make([]int, len(docs)),
	}

	totalLen := 0
	termDocCount := make(map[string]int)
	for i, doc := range docs {
		freqs := make(map[string]int, len(doc))
		for _, term := range doc {
			freqs[term]++
		}
		idx.docFreqs[i] = freqs
		idx.docLens[i] = len(doc)
		totalLen += len(doc)
		for term := range freqs {
			termDocCount[term]++
		}
	}
	if totalLen == 0 {
		return nil, ErrEmptyCorpus
	}
	idx.avgDocLen = float64(totalLen) / float64(len(docs))

	// IDF with the classical formulation can go negative for terms in
	// more than half the corpus. Those are floored at epsilon times the
	// mean IDF instead of being dropped.
	idx.idf = make(map[string]float64, len(termDocCount))
	n := float64(len(docs))
	idfSum := 0.0
	var negative []string
	for term, df := range termDocCount {
		v := math.Log((n - float64(df) + 0.5) / (float64(df) + 0.5))
		idx.idf[term] = v
		idfSum += v
		if v < 0 {
			negative = append(negative, term)
		}
	}
	avgIDF := idfSum / float64(len(idx.idf))
	floor := cfg.Epsilon * avgIDF
	for _, term := range negative {
		idx.idf[term] = floor
	}

	return idx, nil
}

// NewBM25IndexFromTexts tokenizes texts and builds an index.
func NewBM25IndexFromTexts(texts []string, cfg BM25Config) (*BM25Index, error) {
	docs := make([][]string, len(texts))
	for i, text := range texts {
		docs[i] = Tokenize(text)
	}
	return NewBM25Index(docs, cfg)
}

// Scores computes a BM25 score for every document in the corpus against
// the query tokens. The result always has one entry per document, in
// corpus order; documents sharing no terms with the query score zero.
func (idx *BM25Index) Scores(query []string) []DocScore {
	scores := make([]DocScore, len(idx.docFreqs))
	for i := range scores {
		scores[i].Index = i
	}
	for _, term := range query {
		idf, ok := idx.idf[term]
		if !ok {
			continue
		}
		for i, freqs := range idx.docFreqs {
			tf := float64(freqs[term])
			if tf == 0 {
				continue
			}
			norm := 1 - idx.cfg.B + idx.cfg.B*float64(idx.docLens[i])/idx.avgDocLen
			scores[i].Score += idf * tf * (idx.cfg.K1 + 1) / (tf + idx.cfg.K1*norm)
		}
	}
	return scores
}

// Count returns the number of documents in the corpus.
func (idx *BM25Index) Count() int {
	return len(idx.docFreqs)
}

// Stats returns index diagnostics.
func (idx *BM25Index) Stats() BM25Stats {
	return BM25Stats{
		DocCount:  len(idx.docFreqs),
		TermCount: len(idx.idf),
		AvgDocLen: idx.avgDocLen,
	}
}
