package usecase

import (
	"sort"

	"github.com/guilhermexp/kortix-sub000/internal/core/domain"
)

// agenticSession is the ephemeral per-request state of the iterative
// controller. It is owned by a single goroutine: mutation only happens
// between rounds, after every concurrent branch has been awaited.
type agenticSession struct {
	docs    map[string]domain.DocumentResult
	used    map[string]struct{}
	queries []string
	tokens  int
	verdict domain.Evaluation
}

func newAgenticSession() *agenticSession {
	return &agenticSession{
		docs: make(map[string]domain.DocumentResult),
		used: make(map[string]struct{}),
	}
}

// markUsed records an issued query. The set only grows.
func (s *agenticSession) markUsed(query string) bool {
	if _, ok := s.used[query]; ok {
		return false
	}
	s.used[query] = struct{}{}
	s.queries = append(s.queries, query)
	return true
}

func (s *agenticSession) usedQueries() []string {
	out := make([]string, len(s.queries))
	copy(out, s.queries)
	return out
}

// merge folds a round's documents into the accumulation map. Max score
// wins, so merging is idempotent and a document's stored score never
// decreases across rounds.
func (s *agenticSession) merge(docs []domain.DocumentResult) {
	for _, doc := range docs {
		existing, ok := s.docs[doc.DocumentID]
		if !ok || doc.Score > existing.Score {
			s.docs[doc.DocumentID] = doc
		}
	}
}

func (s *agenticSession) addTokens(usage domain.TokenUsage) {
	s.tokens += usage.Total()
}

// rankedDocuments returns the accumulated documents sorted by descending
// score, capped at limit when limit > 0.
func (s *agenticSession) rankedDocuments(limit int) []domain.DocumentResult {
	out := make([]domain.DocumentResult, 0, len(s.docs))
	for _, doc := range s.docs {
		out = append(out, doc)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].DocumentID < out[j].DocumentID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
