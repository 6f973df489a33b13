package search

import (
	"github.com/poiesic/chronicle/core"
)

// SearchMonitor provides hooks to observe the search process.
// Implement this interface to track intermediate steps and results during search.
type SearchMonitor interface {
	Start(query string)
	AfterQueryEmbedding(dimension int)
	AfterVectorSearch(candidates []*core.SearchResult)
	AfterThresholdFilter(survivors []*core.SearchResult)
	Failed(stage string, err error)
	Finish(results []*core.SearchResult)
}

// noopMonitor is a no-op implementation of SearchMonitor
type noopMonitor struct{}

var _ SearchMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ string)                              {}
func (n *noopMonitor) AfterQueryEmbedding(_ int)                   {}
func (n *noopMonitor) AfterVectorSearch(_ []*core.SearchResult)    {}
func (n *noopMonitor) AfterThresholdFilter(_ []*core.SearchResult) {}
func (n *noopMonitor) Failed(_ string, _ error)                    {}
func (n *noopMonitor) Finish(_ []*core.SearchResult)               {}
