package search

import (
	"sort"

	"github.com/aman-cerp/semantic-code-mcp/internal/store"
)

// DefaultRRFConstant is the usual smoothing constant for
// reciprocal-rank fusion.
const DefaultRRFConstant = 60

// FusedResult is one chunk after fusion of the two channel rankings.
type FusedResult struct {
	ChunkID      string
	RRFScore     float64  // fused score, normalized to [0,1]
	BM25Score    float64  // raw keyword score
	BM25Rank     int      // 1-indexed keyword rank, 0 if absent
	VecScore     float64  // raw cosine similarity
	VecRank      int      // 1-indexed vector rank, 0 if absent
	InBothLists  bool     // both channels returned this chunk
	MatchedTerms []string // keyword terms that hit, for highlighting
}

// RRFFusion merges two rankings by reciprocal rank:
//
//	score(d) = Σ_channel weight / (k + rank)
//
// Rank fusion only looks at positions, so the raw scores of the two
// channels never need to be comparable.
type RRFFusion struct {
	K int
}

// NewRRFFusion uses the default k.
func NewRRFFusion() *RRFFusion {
	return &RRFFusion{K: DefaultRRFConstant}
}

// NewRRFFusionWithK uses a custom k; non-positive values fall back to
// the default.
func NewRRFFusionWithK(k int) *RRFFusion {
	if k <= 0 {
		k = DefaultRRFConstant
	}
	return &RRFFusion{K: k}
}

// Fuse merges the keyword and vector rankings. A chunk missing from one
// channel still receives that channel's contribution, computed at one
// rank past the longer list, so single-channel hits are penalized but
// not zeroed. The output is sorted best-first and normalized so the top
// score is 1.
func (f *RRFFusion) Fuse(
	bm25 []*store.BM25Result,
	vec []*store.VectorResult,
	weights Weights,
) []*FusedResult {
	if len(bm25) == 0 && len(vec) == 0 {
		return []*FusedResult{}
	}

	scores := make(map[string]*FusedResult, len(bm25)+len(vec))

	for rank, r := range bm25 {
		fr := f.getOrCreate(scores, r.DocID)
		fr.BM25Score = r.Score
		fr.BM25Rank = rank + 1
		fr.MatchedTerms = r.MatchedTerms
		fr.RRFScore += weights.BM25 / float64(f.K+rank+1)
	}

	for rank, r := range vec {
		fr := f.getOrCreate(scores, r.ID)
		fr.VecScore = float64(r.Score)
		fr.VecRank = rank + 1
		fr.RRFScore += weights.Semantic / float64(f.K+rank+1)
		if fr.BM25Rank > 0 {
			fr.InBothLists = true
		}
	}

	missingRank := max(len(bm25), len(vec)) + 1
	for _, fr := range scores {
		if fr.BM25Rank == 0 && fr.VecRank > 0 {
			fr.RRFScore += weights.BM25 / float64(f.K+missingRank)
		}
		if fr.VecRank == 0 && fr.BM25Rank > 0 {
			fr.RRFScore += weights.Semantic / float64(f.K+missingRank)
		}
	}

	results := make([]*FusedResult, 0, len(scores))
	for _, fr := range scores {
		results = append(results, fr)
	}
	sort.Slice(results, func(i, j int) bool {
		return f.less(results[i], results[j])
	})

	f.normalize(results)
	return results
}

func (f *RRFFusion) getOrCreate(m map[string]*FusedResult, id string) *FusedResult {
	if r, ok := m[id]; ok {
		return r
	}
	r := &FusedResult{ChunkID: id}
	m[id] = r
	return r
}

// less orders a before b. Ties on the fused score break toward chunks
// both channels agreed on, then the higher keyword score, then the
// lexicographically smaller ID so the ordering is deterministic.
func (f *RRFFusion) less(a, b *FusedResult) bool {
	if a.RRFScore != b.RRFScore {
		return a.RRFScore > b.RRFScore
	}
	if a.InBothLists != b.InBothLists {
		return a.InBothLists
	}
	if a.BM25Score != b.BM25Score {
		return a.BM25Score > b.BM25Score
	}
	return a.ChunkID < b.ChunkID
}

// normalize divides by the (sorted-first) maximum so scores land in
// [0,1].
func (f *RRFFusion) normalize(results []*FusedResult) {
	if len(results) == 0 || results[0].RRFScore == 0 {
		return
	}
	maxScore := results[0].RRFScore
	for _, r := range results {
		r.RRFScore /= maxScore
	}
}
