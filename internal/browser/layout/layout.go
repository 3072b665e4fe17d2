// internal/browser/layout/layout.go

// Package layout estimates per-element geometry for a styled DOM tree.
// It is not a rendering engine: it answers getBoundingClientRect-class
// questions (where is this box, how big is it, how much content overflows
// it) with a simplified flow model: block boxes stack vertically, inline
// and inline-block boxes share rows and wrap, absolute/fixed boxes resolve
// against their positioned containing block. That is the fidelity the DOM
// analyzer needs; sub-pixel text metrics are out of scope.
package layout

import (
	"math"
	"strings"

	"golang.org/x/net/html"

	"github.com/xkilldash9x/domlens/internal/browser/style"
)

// Rect is an axis-aligned rectangle in document coordinates.
type Rect struct {
	X, Y, Width, Height float64
}

func (r Rect) Right() float64  { return r.X + r.Width }
func (r Rect) Bottom() float64 { return r.Y + r.Height }

// Center returns the midpoint of the rectangle.
func (r Rect) Center() (float64, float64) {
	return r.X + r.Width/2, r.Y + r.Height/2
}

// Contains reports whether the point lies inside the rectangle.
func (r Rect) Contains(x, y float64) bool {
	return x >= r.X && x < r.Right() && y >= r.Y && y < r.Bottom()
}

// Area returns the surface of the rectangle, zero for degenerate rects.
func (r Rect) Area() float64 {
	if r.Width <= 0 || r.Height <= 0 {
		return 0
	}
	return r.Width * r.Height
}

// Intersects reports rectangle overlap with a tolerance on each axis to
// absorb subpixel rounding.
func (r Rect) Intersects(o Rect, tol float64) bool {
	return r.X < o.Right()+tol && o.X < r.Right()+tol &&
		r.Y < o.Bottom()+tol && o.Y < r.Bottom()+tol
}

// Box is one laid-out node. Rect is the border box in document space;
// ScrollWidth/ScrollHeight are the content extent including overflow,
// mirroring the DOM scrollWidth/scrollHeight pair.
type Box struct {
	Styled       *style.StyledNode
	Rect         Rect
	ScrollWidth  float64
	ScrollHeight float64
	// Fixed marks boxes anchored to the viewport (position:fixed or a
	// descendant of one); they do not move with document scroll.
	Fixed    bool
	Children []*Box
}

// Engine lays out a styled tree against a viewport.
type Engine struct {
	vw, vh float64
}

func NewEngine(viewportWidth, viewportHeight float64) *Engine {
	return &Engine{vw: viewportWidth, vh: viewportHeight}
}

// BuildTree lays out the styled tree and returns the root box plus an
// index from DOM node to box. Nodes without a box (display:none subtrees)
// are absent from the index.
func (e *Engine) BuildTree(root *style.StyledNode) (*Box, map[*html.Node]*Box) {
	index := make(map[*html.Node]*Box)
	viewport := Rect{X: 0, Y: 0, Width: e.vw, Height: e.vh}
	box := e.layout(root, flowArea{origin: viewport, avail: e.vw}, viewport, false, index)
	if box == nil {
		box = &Box{Styled: root, Rect: viewport}
	}
	return box, index
}

// flowArea is the in-flow placement state handed to one child: the content
// box it flows inside plus the running cursor.
type flowArea struct {
	origin Rect // containing content box
	avail  float64
	curX   float64
	curY   float64
	rowH   float64
}

func (f *flowArea) breakRow() {
	f.curY += f.rowH
	f.curX = 0
	f.rowH = 0
}

func (e *Engine) layout(sn *style.StyledNode, parentFlow flowArea, pcb Rect, fixed bool, index map[*html.Node]*Box) *Box {
	if sn == nil || !sn.IsRendered() {
		return nil
	}
	if sn.Node.Type == html.TextNode {
		return nil // measured inline by the parent, no box of its own
	}
	if sn.Node.Type == html.DocumentNode {
		// Documents and shadow roots are transparent containers.
		box := &Box{Styled: sn, Rect: parentFlow.origin, Fixed: fixed}
		e.flowChildren(sn, box, pcb, fixed, index)
		return box
	}
	if sn.Node.Type != html.ElementNode {
		return nil
	}

	fontSize := style.ParsePx(sn.Lookup("font-size", "16px"), style.BaseFontSize)
	pos := sn.Position()
	display := sn.Display()

	box := &Box{Styled: sn, Fixed: fixed || pos == style.PositionFixed}

	// Resolve the specified dimensions, if any.
	width, hasWidth := e.length(sn, "width", fontSize, parentFlow.origin.Width)
	height, hasHeight := e.length(sn, "height", fontSize, parentFlow.origin.Height)
	if !hasWidth {
		if w, ok := intAttr(sn.Node, "width"); ok {
			width, hasWidth = w, true
		}
	}
	if !hasHeight {
		if h, ok := intAttr(sn.Node, "height"); ok {
			height, hasHeight = h, true
		}
	}

	switch pos {
	case style.PositionAbsolute, style.PositionFixed:
		anchor := pcb
		if pos == style.PositionFixed {
			anchor = Rect{Width: e.vw, Height: e.vh}
		}
		if !hasWidth {
			if l, lok := e.length(sn, "left", fontSize, anchor.Width); lok {
				if r, rok := e.length(sn, "right", fontSize, anchor.Width); rok {
					width, hasWidth = math.Max(0, anchor.Width-l-r), true
				}
			}
		}
		if !hasHeight {
			if t, tok := e.length(sn, "top", fontSize, anchor.Height); tok {
				if b, bok := e.length(sn, "bottom", fontSize, anchor.Height); bok {
					height, hasHeight = math.Max(0, anchor.Height-t-b), true
				}
			}
		}
		if !hasWidth {
			width = anchor.Width
		}
		box.Rect = Rect{X: anchor.X, Y: anchor.Y, Width: width, Height: height}
		if l, ok := e.length(sn, "left", fontSize, anchor.Width); ok {
			box.Rect.X = anchor.X + l
		} else if r, ok := e.length(sn, "right", fontSize, anchor.Width); ok {
			box.Rect.X = anchor.X + anchor.Width - width - r
		}
		if t, ok := e.length(sn, "top", fontSize, anchor.Height); ok {
			box.Rect.Y = anchor.Y + t
		} else if b, ok := e.length(sn, "bottom", fontSize, anchor.Height); ok {
			box.Rect.Y = anchor.Y + anchor.Height - height - b
		}

	default: // static, relative, sticky flow placement
		switch display {
		case style.DisplayBlock:
			if !hasWidth {
				width = parentFlow.avail
			}
			// The caller breaks the row before flowing a block child, so
			// the cursor is already at the start of a fresh row here.
			box.Rect = Rect{X: parentFlow.origin.X, Y: parentFlow.origin.Y + parentFlow.curY, Width: width}
		default: // inline and inline-block share rows
			if !hasWidth {
				width = e.inlineExtent(sn, fontSize)
			}
			x := parentFlow.origin.X + parentFlow.curX
			y := parentFlow.origin.Y + parentFlow.curY
			if parentFlow.curX > 0 && parentFlow.curX+width > parentFlow.avail {
				x = parentFlow.origin.X
				y += parentFlow.rowH
			}
			box.Rect = Rect{X: x, Y: y, Width: width}
		}
		box.Rect.Height = height

		if pos == style.PositionRelative {
			if l, ok := e.length(sn, "left", fontSize, parentFlow.origin.Width); ok {
				box.Rect.X += l
			}
			if t, ok := e.length(sn, "top", fontSize, parentFlow.origin.Height); ok {
				box.Rect.Y += t
			}
		}
	}

	childPCB := pcb
	if pos != style.PositionStatic {
		childPCB = box.Rect
	}

	contentW, contentH := e.flowChildren(sn, box, childPCB, box.Fixed, index)

	if !hasHeight {
		box.Rect.Height = contentH
	}
	if !hasWidth && display != style.DisplayBlock && pos == style.PositionStatic {
		// Shrink-to-fit for unsized inline-blocks with element children.
		if contentW > box.Rect.Width {
			box.Rect.Width = contentW
		}
	}
	box.ScrollWidth = math.Max(box.Rect.Width, contentW)
	box.ScrollHeight = math.Max(box.Rect.Height, contentH)

	index[sn.Node] = box
	return box
}

// flowChildren lays out sn's children (and shadow tree) inside box and
// returns the content extent.
func (e *Engine) flowChildren(sn *style.StyledNode, box *Box, pcb Rect, fixed bool, index map[*html.Node]*Box) (float64, float64) {
	fontSize := style.ParsePx(sn.Lookup("font-size", "16px"), style.BaseFontSize)
	flow := flowArea{origin: box.Rect, avail: box.Rect.Width}
	if flow.avail <= 0 {
		flow.avail = e.vw
	}
	var maxW float64

	children := sn.Children
	if sn.ShadowRoot != nil {
		// The shadow tree renders in place of the light DOM children.
		children = sn.ShadowRoot.Children
	}

	for _, child := range children {
		if child.Node.Type == html.TextNode {
			w, h := e.measureText(child.Node.Data, fontSize, flow.avail)
			if w == 0 {
				continue
			}
			if flow.curX > 0 && flow.curX+w > flow.avail {
				flow.breakRow()
			}
			flow.curX += w
			flow.rowH = math.Max(flow.rowH, h)
			maxW = math.Max(maxW, flow.curX)
			continue
		}
		if child.Node.Type != html.ElementNode || !child.IsRendered() {
			// Comments and display:none subtrees generate no box; they
			// are not recursed into, so they stay absent from the index.
			continue
		}

		pos := child.Position()
		outOfFlow := pos == style.PositionAbsolute || pos == style.PositionFixed
		display := child.Display()

		if !outOfFlow && display == style.DisplayBlock && flow.curX > 0 {
			flow.breakRow()
		}

		childBox := e.layout(child, flow, pcb, fixed, index)
		if childBox == nil {
			continue
		}
		box.Children = append(box.Children, childBox)

		if outOfFlow {
			continue
		}

		switch display {
		case style.DisplayBlock:
			flow.curY = childBox.Rect.Bottom() - flow.origin.Y
			flow.curX = 0
			flow.rowH = 0
			maxW = math.Max(maxW, childBox.Rect.Width)
		default:
			if childBox.Rect.X == flow.origin.X && flow.curX > 0 {
				// The child wrapped to a fresh row.
				flow.breakRow()
			}
			flow.curX = childBox.Rect.Right() - flow.origin.X
			flow.rowH = math.Max(flow.rowH, childBox.Rect.Height)
			maxW = math.Max(maxW, flow.curX)
		}
	}

	return maxW, flow.curY + flow.rowH
}

// measureText estimates the footprint of a text run with a fixed-advance
// approximation: half an em per rune, 1.2em line height, wrapping at the
// available width.
func (e *Engine) measureText(text string, fontSize, avail float64) (w, h float64) {
	trimmed := strings.Join(strings.Fields(text), " ")
	if trimmed == "" {
		return 0, 0
	}
	charW := fontSize * 0.5
	lineH := fontSize * 1.2
	w = float64(len([]rune(trimmed))) * charW
	if avail > 0 && w > avail {
		lines := math.Ceil(w / avail)
		return avail, lines * lineH
	}
	return w, lineH
}

// inlineExtent estimates the intrinsic width of an unsized inline element
// from the text of its children and of its nested non-block descendants.
func (e *Engine) inlineExtent(sn *style.StyledNode, fontSize float64) float64 {
	var total float64
	var walk func(*style.StyledNode)
	walk = func(n *style.StyledNode) {
		for _, c := range n.Children {
			if c.Node.Type == html.TextNode {
				w, _ := e.measureText(c.Node.Data, fontSize, 0)
				total += w
			} else if c.Node.Type == html.ElementNode && c.IsRendered() && c.Display() != style.DisplayBlock {
				walk(c)
			}
		}
	}
	walk(sn)
	return total
}

func (e *Engine) length(sn *style.StyledNode, prop string, fontSize, reference float64) (float64, bool) {
	raw := strings.TrimSpace(sn.Lookup(prop, ""))
	if raw == "" || raw == "auto" {
		return 0, false
	}
	return style.ParseLength(raw, fontSize, reference, e.vw, e.vh), true
}

func intAttr(node *html.Node, name string) (float64, bool) {
	for _, a := range node.Attr {
		if strings.EqualFold(a.Key, name) {
			var v float64
			var seen bool
			for _, r := range a.Val {
				if r < '0' || r > '9' {
					break
				}
				v = v*10 + float64(r-'0')
				seen = true
			}
			if seen {
				return v, true
			}
			return 0, false
		}
	}
	return 0, false
}
