// internal/browser/analyzer/analyzer.go

// Package analyzer walks a rendered document and produces the compact,
// machine-consumable description of its interactive surface: which
// elements a user could plausibly click, which of those are the innermost
// topmost targets, and a stable reading-order index for each.
package analyzer

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/xkilldash9x/domlens/api/schemas"
	"github.com/xkilldash9x/domlens/internal/browser/page"
)

// candidate is an interactive element that passed the visibility and
// viewport gates during the walk, with its geometry snapshotted at
// collection time.
type candidate struct {
	id    schemas.NodeID
	el    *html.Node
	pg    *page.Page
	tag   string
	rect  schemas.Rect
	isTop bool
}

// walkContext is the explicit state threaded through one analysis pass:
// the node map under construction, the parent side table, the candidate
// list and all counters. One context, one invocation.
type walkContext struct {
	opts Options
	log  *zap.Logger
	top  *page.Page

	nodes    map[schemas.NodeID]*schemas.DOMNode
	parentOf map[schemas.NodeID]schemas.NodeID
	idOf     map[*html.Node]schemas.NodeID
	nextID   schemas.NodeID

	candidates  []*candidate
	iframeNodes []*schemas.DOMNode
	iframeIDs   []schemas.NodeID
	pending     []pendingFrame

	metrics     schemas.PerfMetrics
	iframeCount int

	// overlays are the per-frame highlight containers, created lazily.
	overlays map[*page.Page]*html.Node
}

// pendingFrame is an iframe element discovered during a document walk,
// queued for resolution after that walk completes.
type pendingFrame struct {
	id schemas.NodeID
	el *html.Node
	pg *page.Page
	// depth is the iframe nesting depth of the hosting document.
	depth int
}

// Analyze runs the full pass over p: walk, candidate filter, index
// assignment, popup scan, optional compact projection. It never panics
// outward; an unrecoverable failure yields a degraded envelope with the
// error message and a nil root.
func Analyze(p *page.Page, opts Options, log *zap.Logger) (snap *schemas.Snapshot) {
	if log == nil {
		log = zap.NewNop()
	}
	start := nowMs()

	ctx := &walkContext{
		opts:     opts,
		log:      log,
		top:      p,
		nodes:       make(map[schemas.NodeID]*schemas.DOMNode),
		parentOf:    make(map[schemas.NodeID]schemas.NodeID),
		idOf:        make(map[*html.Node]schemas.NodeID),
		nextID:      1,
		iframeNodes: []*schemas.DOMNode{},
		overlays:    make(map[*page.Page]*html.Node),
	}

	defer func() {
		if r := recover(); r != nil {
			log.Error("analyzer pass failed", zap.Any("panic", r))
			end := nowMs()
			m := ctx.metrics
			m.StartTime, m.EndTime, m.TotalTime = start, end, end-start
			snap = &schemas.Snapshot{
				Map:             map[schemas.NodeID]*schemas.DOMNode{},
				RootID:          nil,
				IframeNodes:     []*schemas.DOMNode{},
				PopupContainers: []schemas.PopupContainer{},
				PerfMetrics:     m,
				CompactMode:     opts.CompactMode,
				Error:           fmt.Sprintf("%v", r),
			}
		}
	}()

	rootID := ctx.walkDocument(p, 0)
	ctx.resolveFrames()

	survivors := ctx.filterCandidates()
	ctx.metrics.NodeMetrics.FilteredInteractiveNodes = len(survivors)

	ctx.assignIndices(survivors)

	popupStart := nowMs()
	popups := ctx.detectPopups()
	if popups == nil {
		popups = []schemas.PopupContainer{}
	}
	ctx.metrics.PopupMetrics.ContainersFound = len(popups)
	ctx.metrics.PopupMetrics.DetectionTimeMs = nowMs() - popupStart

	nodeMap := ctx.nodes
	if opts.CompactMode {
		nodeMap = ctx.compactProjection(rootID, survivors)
	}

	end := nowMs()
	ctx.metrics.StartTime = start
	ctx.metrics.EndTime = end
	ctx.metrics.TotalTime = end - start

	if opts.DebugMode {
		log.Debug("analysis complete",
			zap.Int("nodes", len(nodeMap)),
			zap.Int("candidates", len(ctx.candidates)),
			zap.Int("survivors", len(survivors)),
			zap.Float64("totalMs", ctx.metrics.TotalTime),
		)
	}

	root := rootID
	return &schemas.Snapshot{
		Map:             nodeMap,
		RootID:          &root,
		IframeNodes:     ctx.iframeNodes,
		PopupContainers: popups,
		PerfMetrics:     ctx.metrics,
		CompactMode:     opts.CompactMode,
	}
}

func (ctx *walkContext) allocID() schemas.NodeID {
	id := ctx.nextID
	ctx.nextID++
	return id
}

func (ctx *walkContext) register(id schemas.NodeID, parent schemas.NodeID, el *html.Node, node *schemas.DOMNode) {
	ctx.nodes[id] = node
	if parent != 0 {
		ctx.parentOf[id] = parent
	}
	if el != nil {
		ctx.idOf[el] = id
	}
}

func nowMs() float64 {
	return float64(time.Now().UnixNano()) / 1e6
}
