// Package manifold implements the jurisdiction manifold of spec.md §4.9:
// a directed, weighted graph of jurisdiction nodes used to find a
// cost-optimal path subject to fee/time/risk constraints. No example
// repo in the retrieval pack carries a graph-routing library, so this is
// a standard container/heap Dijkstra (DESIGN.md records the stdlib
// justification).
package manifold

import (
	"container/heap"
	"errors"
	"sort"
)

// ErrUnknownNode is returned when from or to is not present in the graph.
var ErrUnknownNode = errors.New("manifold: unknown node")

// ErrNoPath is returned when no path satisfying the constraints exists.
var ErrNoPath = errors.New("manifold: no path satisfies constraints")

// Edge is one directed jurisdiction-to-jurisdiction transfer leg.
type Edge struct {
	To        string
	FeeBps    uint64  // fee in basis points, integer per spec.md §3
	TimeDays  uint32
	RiskScore float64 // 0.0-1.0; not subject to the integer-only canonicalization rule
}

// Weights are the manifold edge cost function's coefficients:
// cost = alpha*fee + beta*time + gamma*risk.
type Weights struct {
	Alpha, Beta, Gamma float64
}

// Constraints bound the search, per spec.md §4.9.
type Constraints struct {
	MaxFeeBps            uint64
	MaxDays              uint32
	MaxRisk              float64
	ExcludeJurisdictions map[string]bool
}

func (c Constraints) excludes(node string) bool {
	return c.ExcludeJurisdictions != nil && c.ExcludeJurisdictions[node]
}

func (c Constraints) violated(fee uint64, days uint32, risk float64) bool {
	if c.MaxFeeBps != 0 && fee > c.MaxFeeBps {
		return true
	}
	if c.MaxDays != 0 && days > c.MaxDays {
		return true
	}
	if c.MaxRisk != 0 && risk > c.MaxRisk {
		return true
	}
	return false
}

// Graph is a directed jurisdiction graph; nodes are added implicitly by
// AddEdge.
type Graph struct {
	adjacency map[string][]Edge
}

// NewGraph returns an empty graph.
func NewGraph() *Graph {
	return &Graph{adjacency: make(map[string][]Edge)}
}

// AddEdge adds a directed edge from -> edge.To. Both endpoints become
// known nodes even if one has no outgoing edges of its own.
func (g *Graph) AddEdge(from string, edge Edge) {
	if _, ok := g.adjacency[from]; !ok {
		g.adjacency[from] = nil
	}
	if _, ok := g.adjacency[edge.To]; !ok {
		g.adjacency[edge.To] = nil
	}
	g.adjacency[from] = append(g.adjacency[from], edge)
}

func (g *Graph) hasNode(n string) bool {
	_, ok := g.adjacency[n]
	return ok
}

// Path is a shortest-path result.
type Path struct {
	Nodes     []string `json:"nodes"`
	TotalFee  uint64   `json:"total_fee_bps"`
	TotalDays uint32   `json:"total_days"`
	TotalRisk float64  `json:"total_risk"`
	Cost      float64  `json:"cost"`
}

type searchState struct {
	node      string
	fee       uint64
	days      uint32
	risk      float64
	cost      float64
	path      []string
	index     int
}

type priorityQueue []*searchState

func (pq priorityQueue) Len() int { return len(pq) }
func (pq priorityQueue) Less(i, j int) bool {
	if pq[i].cost != pq[j].cost {
		return pq[i].cost < pq[j].cost
	}
	// Tie broken lexicographically on path node identifiers, per
	// spec.md §4.9. Compare the full accumulated path, not just the
	// current node, since two equal-cost paths may share a tail.
	return lexLess(pq[i].path, pq[j].path)
}
func (pq priorityQueue) Swap(i, j int) {
	pq[i], pq[j] = pq[j], pq[i]
	pq[i].index, pq[j].index = i, j
}
func (pq *priorityQueue) Push(x interface{}) {
	s := x.(*searchState)
	s.index = len(*pq)
	*pq = append(*pq, s)
}
func (pq *priorityQueue) Pop() interface{} {
	old := *pq
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*pq = old[:n-1]
	return item
}

func lexLess(a, b []string) bool {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return len(a) < len(b)
}

// ShortestPath runs Dijkstra from -> to under w and constraints. Excluded
// jurisdictions are removed from consideration entirely (not merely
// penalized) before the search begins. Among equal-cost paths, the
// lexicographically smaller sequence of node identifiers wins.
func (g *Graph) ShortestPath(from, to string, w Weights, constraints Constraints) (*Path, error) {
	if constraints.excludes(from) || constraints.excludes(to) {
		return nil, ErrNoPath
	}
	if !g.hasNode(from) || !g.hasNode(to) {
		return nil, ErrUnknownNode
	}

	best := make(map[string]*searchState)
	pq := &priorityQueue{}
	heap.Init(pq)

	start := &searchState{node: from, path: []string{from}}
	best[from] = start
	heap.Push(pq, start)

	for pq.Len() > 0 {
		current := heap.Pop(pq).(*searchState)
		if b, ok := best[current.node]; ok && b != current {
			continue // stale entry superseded by a cheaper one
		}
		if current.node == to {
			return &Path{
				Nodes:     current.path,
				TotalFee:  current.fee,
				TotalDays: current.days,
				TotalRisk: current.risk,
				Cost:      current.cost,
			}, nil
		}

		edges := append([]Edge(nil), g.adjacency[current.node]...)
		sort.Slice(edges, func(i, j int) bool { return edges[i].To < edges[j].To })

		for _, e := range edges {
			if constraints.excludes(e.To) {
				continue
			}
			fee := current.fee + e.FeeBps
			days := current.days + e.TimeDays
			risk := current.risk + e.RiskScore
			if constraints.violated(fee, days, risk) {
				continue
			}
			cost := current.cost + w.Alpha*float64(e.FeeBps) + w.Beta*float64(e.TimeDays) + w.Gamma*e.RiskScore

			candidate := &searchState{
				node: e.To,
				fee:  fee, days: days, risk: risk,
				cost: cost,
				path: append(append([]string(nil), current.path...), e.To),
			}

			existing, seen := best[e.To]
			if !seen || candidate.cost < existing.cost || (candidate.cost == existing.cost && lexLess(candidate.path, existing.path)) {
				best[e.To] = candidate
				heap.Push(pq, candidate)
			}
		}
	}

	return nil, ErrNoPath
}
