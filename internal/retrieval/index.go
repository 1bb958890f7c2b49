package retrieval

import (
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/sells-group/retail-analytics/internal/model"
)

// defaultStopwords is a minimal English stopword list; terms here carry no
// weight in the vector space.
var defaultStopwords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {},
	"by": {}, "for": {}, "from": {}, "has": {}, "in": {}, "is": {}, "it": {},
	"its": {}, "of": {}, "on": {}, "or": {}, "that": {}, "the": {}, "to": {},
	"was": {}, "were": {}, "which": {}, "will": {}, "with": {},
}

// Options configures index construction.
type Options struct {
	// Stopwords overrides the default stopword list when non-nil.
	Stopwords map[string]struct{}
}

type chunkMeta struct {
	source string
	index  int
	text   string
}

// Index is an immutable TF-IDF vector space over corpus chunks. Safe for
// unsynchronized concurrent reads once built.
type Index struct {
	vocab     map[string]int // term -> dimension
	idf       []float64
	vectors   [][]termWeight // one L2-normalized sparse vector per chunk
	meta      []chunkMeta
	stopwords map[string]struct{}
}

type termWeight struct {
	dim    int
	weight float64
}

// NewIndex builds the TF-IDF index over the given documents.
func NewIndex(docs []Document, opts Options) *Index {
	stop := opts.Stopwords
	if stop == nil {
		stop = defaultStopwords
	}

	idx := &Index{
		vocab:     make(map[string]int),
		stopwords: stop,
	}

	// Collect chunk metadata and per-chunk term frequencies; assign vocab
	// dimensions in first-seen order for determinism.
	var termCounts []map[string]int
	docFreq := make(map[string]int)
	for _, doc := range docs {
		for i, text := range doc.Chunks {
			idx.meta = append(idx.meta, chunkMeta{source: doc.Name, index: i, text: text})
			counts := make(map[string]int)
			for _, term := range idx.tokenize(text) {
				counts[term]++
			}
			for term := range counts {
				docFreq[term]++
				if _, ok := idx.vocab[term]; !ok {
					idx.vocab[term] = len(idx.vocab)
				}
			}
			termCounts = append(termCounts, counts)
		}
	}

	// Smoothed IDF, as in the usual sklearn formulation.
	n := float64(len(idx.meta))
	idx.idf = make([]float64, len(idx.vocab))
	for term, dim := range idx.vocab {
		idx.idf[dim] = math.Log((1+n)/(1+float64(docFreq[term]))) + 1
	}

	idx.vectors = make([][]termWeight, len(termCounts))
	for i, counts := range termCounts {
		idx.vectors[i] = idx.vectorize(counts)
	}
	return idx
}

// Len returns the number of indexed chunks.
func (idx *Index) Len() int { return len(idx.meta) }

// Search returns up to k chunks ranked by cosine similarity to the query,
// descending, ties broken by source name then chunk index. Out-of-vocabulary
// query terms contribute nothing; a query with no indexed terms (including
// the empty query) yields an empty result.
func (idx *Index) Search(query string, k int) []model.Chunk {
	if k <= 0 {
		return nil
	}
	counts := make(map[string]int)
	for _, term := range idx.tokenize(query) {
		if _, ok := idx.vocab[term]; ok {
			counts[term]++
		}
	}
	if len(counts) == 0 {
		return nil
	}
	qvec := idx.vectorize(counts)

	type scored struct {
		pos   int
		score float64
	}
	var hits []scored
	for pos, vec := range idx.vectors {
		if s := dot(qvec, vec); s > 0 {
			hits = append(hits, scored{pos: pos, score: s})
		}
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].score != hits[j].score {
			return hits[i].score > hits[j].score
		}
		mi, mj := idx.meta[hits[i].pos], idx.meta[hits[j].pos]
		if mi.source != mj.source {
			return mi.source < mj.source
		}
		return mi.index < mj.index
	})

	if len(hits) > k {
		hits = hits[:k]
	}
	out := make([]model.Chunk, len(hits))
	for i, h := range hits {
		m := idx.meta[h.pos]
		out[i] = model.Chunk{Source: m.source, Index: m.index, Text: m.text, Score: h.score}
	}
	return out
}

func (idx *Index) tokenize(text string) []string {
	var terms []string
	for _, tok := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		if len(tok) < 2 {
			continue
		}
		if _, stop := idx.stopwords[tok]; stop {
			continue
		}
		terms = append(terms, tok)
	}
	return terms
}

// vectorize converts term counts into an L2-normalized TF-IDF vector sorted
// by dimension.
func (idx *Index) vectorize(counts map[string]int) []termWeight {
	vec := make([]termWeight, 0, len(counts))
	var norm float64
	for term, count := range counts {
		dim, ok := idx.vocab[term]
		if !ok {
			continue
		}
		w := float64(count) * idx.idf[dim]
		vec = append(vec, termWeight{dim: dim, weight: w})
		norm += w * w
	}
	if norm > 0 {
		norm = math.Sqrt(norm)
		for i := range vec {
			vec[i].weight /= norm
		}
	}
	sort.Slice(vec, func(i, j int) bool { return vec[i].dim < vec[j].dim })
	return vec
}

// dot computes the dot product of two dimension-sorted sparse vectors.
func dot(a, b []termWeight) float64 {
	var sum float64
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i].dim < b[j].dim:
			i++
		case a[i].dim > b[j].dim:
			j++
		default:
			sum += a[i].weight * b[j].weight
			i++
			j++
		}
	}
	return sum
}
