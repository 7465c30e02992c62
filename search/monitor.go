package search

import (
	"github.com/poiesic/ragbase/core"
)

// SearchMonitor provides hooks to observe the search process.
// Implement this interface to track intermediate steps and results during search.
type SearchMonitor interface {
	Start(query string)
	AfterQueryEmbedding(dimension int)
	AfterVectorSearch(ids []uint64)
	VerbatimHit(embedding *core.Embedding)
	Finish(results []*core.SearchResult)
}

// noopMonitor is a no-op implementation of SearchMonitor
type noopMonitor struct{}

var _ SearchMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ string)                   {}
func (n *noopMonitor) AfterQueryEmbedding(_ int)        {}
func (n *noopMonitor) AfterVectorSearch(_ []uint64)     {}
func (n *noopMonitor) VerbatimHit(_ *core.Embedding)    {}
func (n *noopMonitor) Finish(_ []*core.SearchResult)    {}
