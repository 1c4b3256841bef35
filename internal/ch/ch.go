// Package ch contracts a RoadGraph into a set of shortcut edges that
// shrink the search space for repeated queries, following the
// classic Contraction Hierarchies node-ordering scheme.
package ch

import (
	"container/heap"
	"time"

	"go.uber.org/zap"

	"github.com/aumo/ecoroute/internal/graph"
	"github.com/aumo/ecoroute/internal/metrics"
)

const (
	shortcutSpeedKmh  = 60.0
	shortcutCapacity  = 3600.0
	defaultMaxNodes   = 3000
)

// logger is package-level the way the teacher's db/cache packages
// keep a process-wide singleton; SetLogger swaps it once at startup.
var logger = zap.NewNop()

// SetLogger installs the process-wide logger used for preprocessing
// progress. Safe to call once at startup before any Contract call.
func SetLogger(l *zap.Logger) {
	if l != nil {
		logger = l
	}
}

// Hierarchy is the result of preprocessing: a contraction order per
// node, plus whether full contraction completed or the graph fell
// back to partial mode (ranks only, no shortcuts).
type Hierarchy struct {
	Order          map[int64]int
	IsPreprocessed bool
	ShortcutCount  int
}

type pqEntry struct {
	node     int64
	priority int
	index    int
}

type priorityQueue []*pqEntry

func (pq priorityQueue) Len() int           { return len(pq) }
func (pq priorityQueue) Less(i, j int) bool { return pq[i].priority < pq[j].priority }
func (pq priorityQueue) Swap(i, j int) {
	pq[i], pq[j] = pq[j], pq[i]
	pq[i].index = i
	pq[j].index = j
}
func (pq *priorityQueue) Push(x any) {
	e := x.(*pqEntry)
	e.index = len(*pq)
	*pq = append(*pq, e)
}
func (pq *priorityQueue) Pop() any {
	old := *pq
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	e.index = -1
	*pq = old[:n-1]
	return e
}

// Contract runs the preprocessing pass on g, appending shortcuts to g
// directly via graph.AppendShortcut. maxNodes bounds the number of
// contractions performed; pass 0 to use the default of 3000. Nodes
// left uncontracted when the cap is hit are ranked in the order they
// leave the importance queue, and the hierarchy downgrades to partial mode for them: ranks exist
// for tie-breaking but no further shortcuts are produced.
func Contract(g *graph.RoadGraph, maxNodes int) *Hierarchy {
	if maxNodes <= 0 {
		maxNodes = defaultMaxNodes
	}

	start := time.Now()
	nodes := g.AllNodes()
	logger.Info("contraction hierarchy preprocessing started", zap.Int("nodes", len(nodes)), zap.Int("max_nodes", maxNodes))
	contracted := make(map[int64]bool, len(nodes))
	order := make(map[int64]int, len(nodes))

	pq := make(priorityQueue, 0, len(nodes))
	for _, n := range nodes {
		pq = append(pq, &pqEntry{node: n.ID, priority: edgeDifference(g, n.ID, contracted)})
	}
	heap.Init(&pq)

	rank := 0
	shortcuts := 0
	fullyContracted := true

	for pq.Len() > 0 {
		if rank >= maxNodes {
			fullyContracted = false
			break
		}

		entry := heap.Pop(&pq).(*pqEntry)
		if contracted[entry.node] {
			continue
		}

		// Lazy re-prioritization: the graph changed since this entry
		// was queued, so recheck before committing to contract it.
		fresh := edgeDifference(g, entry.node, contracted)
		if pq.Len() > 0 && fresh > pq[0].priority {
			entry.priority = fresh
			heap.Push(&pq, entry)
			continue
		}

		shortcuts += contractNode(g, entry.node, contracted)
		contracted[entry.node] = true
		order[entry.node] = rank
		rank++
	}

	// Any node left in the queue (full-mode cap hit, or queue emptied
	// early) still needs a rank so downstream tie-breaking has one for
	// every node.
	for pq.Len() > 0 {
		entry := heap.Pop(&pq).(*pqEntry)
		if contracted[entry.node] {
			continue
		}
		order[entry.node] = rank
		rank++
	}

	if !fullyContracted {
		logger.Warn("contraction hierarchy fell back to partial mode", zap.Int("contracted", rank), zap.Int("max_nodes", maxNodes))
	}
	logger.Info("contraction hierarchy preprocessing finished", zap.Int("shortcuts", shortcuts), zap.Bool("fully_contracted", fullyContracted))

	metrics.PreprocessDuration.Observe(time.Since(start).Seconds())
	metrics.ShortcutsInserted.Set(float64(shortcuts))

	return &Hierarchy{
		Order:          order,
		IsPreprocessed: fullyContracted,
		ShortcutCount:  shortcuts,
	}
}

// edgeDifference computes in(v)*out(v) - (in(v)+out(v)) over
// not-yet-contracted neighbors: nodes at the periphery of the graph
// contract first since they produce fewer, cheaper shortcuts.
func edgeDifference(g *graph.RoadGraph, v int64, contracted map[int64]bool) int {
	out := countActive(g.OriginalNeighbors(v), contracted)
	in := countIncoming(g, v, contracted)
	return in*out - (in + out)
}

func countActive(edges []graph.Edge, contracted map[int64]bool) int {
	n := 0
	for _, e := range edges {
		if !contracted[e.To] {
			n++
		}
	}
	return n
}

// countIncoming scans every node's original adjacency for edges into
// v. RoadGraph keeps no reverse index, so this is O(V) per call; fine
// at preprocess time, never on the query path.
func countIncoming(g *graph.RoadGraph, v int64, contracted map[int64]bool) int {
	n := 0
	for _, node := range g.AllNodes() {
		if contracted[node.ID] {
			continue
		}
		for _, e := range g.OriginalNeighbors(node.ID) {
			if e.To == v {
				n++
			}
		}
	}
	return n
}

// contractNode inserts shortcuts bypassing v for every predecessor/
// successor pair whose u→v→w detour is strictly shorter than every
// existing direct u→w edge, and returns how many were appended.
func contractNode(g *graph.RoadGraph, v int64, contracted map[int64]bool) int {
	var predecessors []graph.Edge
	for _, node := range g.AllNodes() {
		if contracted[node.ID] || node.ID == v {
			continue
		}
		for _, e := range g.OriginalNeighbors(node.ID) {
			if e.To == v {
				predecessors = append(predecessors, graph.Edge{From: node.ID, To: v, LengthM: e.LengthM})
			}
		}
	}

	successors := g.OriginalNeighbors(v)

	added := 0
	for _, pred := range predecessors {
		if contracted[pred.From] {
			continue
		}
		for _, succ := range successors {
			if succ.To == pred.From || contracted[succ.To] {
				continue
			}

			detour := pred.LengthM + succ.LengthM
			if hasShorterPath(g, pred.From, succ.To, detour, contracted) {
				continue
			}

			g.AppendShortcut(graph.Edge{
				From:             pred.From,
				To:               succ.To,
				LengthM:          detour,
				FreeFlowSpeedKmh: shortcutSpeedKmh,
				SpeedLimitKmh:    shortcutSpeedKmh,
				Capacity:         shortcutCapacity,
				Lanes:            1,
				Via:              v,
			})
			added++
		}
	}
	return added
}

// hasShorterPath reports whether an existing direct u→w edge is
// already at least as short as the candidate shortcut length.
func hasShorterPath(g *graph.RoadGraph, u, w int64, candidateLength float64, contracted map[int64]bool) bool {
	for _, e := range g.Neighbors(u) {
		if e.To == w && e.LengthM <= candidateLength {
			return true
		}
	}
	return false
}
