// Package flow builds the per-respondent lane graph consumed by the
// flow-diagram renderer.
//
// Every session gets an independent lane of screen-visit nodes; the only
// node shared across lanes is the common start screen. Edge widths encode
// global transition frequency, lane color encodes the session's outcome.
package flow

import (
	"fmt"
	"sort"

	"github.com/uxlens/uxlens/internal/domain/classify"
	"github.com/uxlens/uxlens/internal/domain/path"
)

// Default stroke-width bounds for rendered edges.
const (
	defaultMinWidth = 1.0
	defaultMaxWidth = 8.0
)

// Node kinds.
const (
	NodeStart    = "start"    // the single shared common-start node
	NodeScreen   = "screen"   // a per-session screen visit
	NodeTerminal = "terminal" // synthetic end node for immediately-abandoned sessions
)

// Node is one vertex of the rendered flow diagram.
type Node struct {
	ID        string `json:"id"`
	Kind      string `json:"kind"`
	ScreenID  string `json:"screen_id,omitempty"`
	SessionID string `json:"session_id,omitempty"` // empty for the shared start node
	Ordinal   int    `json:"ordinal"`              // index within the session's path
}

// Edge connects two consecutive visits in one session's lane.
type Edge struct {
	From      string          `json:"from"`
	To        string          `json:"to"`
	SessionID string          `json:"session_id"`
	Status    classify.Status `json:"status"` // drives lane color
	Count     int             `json:"count"`  // global frequency of this screen pair
	Width     float64         `json:"width"`  // stroke width, already normalized
}

// Graph is the full diagram read model.
type Graph struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// Builder assembles lane graphs from path-aggregation results.
type Builder struct {
	minWidth float64
	maxWidth float64
}

// Option applies a configuration option to the Builder.
type Option func(*Builder)

// WithWidthRange bounds the rendered edge stroke widths.
func WithWidthRange(minWidth, maxWidth float64) Option {
	return func(b *Builder) {
		if minWidth > 0 && maxWidth > minWidth {
			b.minWidth = minWidth
			b.maxWidth = maxWidth
		}
	}
}

// NewBuilder creates a Builder with configuration options.
func NewBuilder(opts ...Option) *Builder {
	b := &Builder{
		minWidth: defaultMinWidth,
		maxWidth: defaultMaxWidth,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build produces the lane graph for one block.
//
// Sessions are laid out in sorted id order so the same input always yields
// the same node and edge sequence. Edge width is
// max(minWidth, count/maxCount*maxWidth); an all-zero transition table
// normalizes against 1 instead of dividing by zero.
func (b *Builder) Build(res *path.Result, outcomes map[string]classify.Status) *Graph {
	g := &Graph{}
	if res == nil {
		return g
	}

	maxCount := res.MaxCount()
	if maxCount == 0 {
		maxCount = 1
	}

	sessionIDs := make([]string, 0, len(res.PathsBySession))
	for id := range res.PathsBySession {
		sessionIDs = append(sessionIDs, id)
	}
	sort.Strings(sessionIDs)

	if res.CommonStart != "" {
		g.Nodes = append(g.Nodes, Node{
			ID:       NodeStart,
			Kind:     NodeStart,
			ScreenID: res.CommonStart,
		})
	}

	for _, sessionID := range sessionIDs {
		visits := res.PathsBySession[sessionID]
		if len(visits) == 0 {
			continue
		}
		b.buildLane(g, res, sessionID, visits, outcomes[sessionID], maxCount)
	}
	return g
}

// buildLane appends one session's nodes and edges.
func (b *Builder) buildLane(g *Graph, res *path.Result, sessionID string, visits []string, status classify.Status, maxCount int) {
	nodeIDs := make([]string, len(visits))
	for i, screenID := range visits {
		if i == 0 && screenID == res.CommonStart {
			nodeIDs[i] = NodeStart
			continue
		}
		n := Node{
			ID:        fmt.Sprintf("%s:%s:%d", sessionID, screenID, i),
			Kind:      NodeScreen,
			ScreenID:  screenID,
			SessionID: sessionID,
			Ordinal:   i,
		}
		g.Nodes = append(g.Nodes, n)
		nodeIDs[i] = n.ID
	}

	if len(visits) == 1 {
		// Guarantee at least one edge per respondent: a lone visit gets a
		// synthetic terminal node.
		term := Node{
			ID:        sessionID + ":end",
			Kind:      NodeTerminal,
			SessionID: sessionID,
			Ordinal:   1,
		}
		g.Nodes = append(g.Nodes, term)
		g.Edges = append(g.Edges, Edge{
			From:      nodeIDs[0],
			To:        term.ID,
			SessionID: sessionID,
			Status:    status,
			Width:     b.minWidth,
		})
		return
	}

	for i := 0; i+1 < len(visits); i++ {
		count := res.Transitions[path.Transition{From: visits[i], To: visits[i+1]}]
		g.Edges = append(g.Edges, Edge{
			From:      nodeIDs[i],
			To:        nodeIDs[i+1],
			SessionID: sessionID,
			Status:    status,
			Count:     count,
			Width:     b.width(count, maxCount),
		})
	}
}

func (b *Builder) width(count, maxCount int) float64 {
	w := float64(count) / float64(maxCount) * b.maxWidth
	if w < b.minWidth {
		return b.minWidth
	}
	return w
}
