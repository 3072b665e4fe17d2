// internal/browser/analyzer/geometry.go
package analyzer

import (
	"math"
	"strings"

	"golang.org/x/net/html"

	"github.com/xkilldash9x/domlens/api/schemas"
	"github.com/xkilldash9x/domlens/internal/browser/page"
)

// overlapTolerance absorbs subpixel rounding when comparing rects.
const overlapTolerance = 1.0

// isVisible applies the pragmatic disqualifiers: a candidate an LLM should
// not be shown is one the user cannot see or cannot hit.
func isVisible(pg *page.Page, el *html.Node) bool {
	sn := pg.Styled(el)
	if sn == nil {
		return false
	}
	if !sn.IsRendered() {
		return false
	}
	switch sn.Visibility() {
	case "hidden", "collapse":
		return false
	}
	if sn.Opacity() == 0 {
		return false
	}

	rect, hasBox := pg.BoundingClientRect(el)
	if !hasBox {
		// No box is the offsetParent-null case: tolerated only for the
		// root elements and out-of-flow positioning schemes.
		tag := strings.ToLower(el.Data)
		if tag == "body" || tag == "html" {
			return true
		}
		pos := sn.Lookup("position", "static")
		return pos == "fixed" || pos == "sticky"
	}
	if rect.Width == 0 && rect.Height == 0 {
		return false
	}
	if sn.PointerEvents() == "none" {
		return false
	}
	return true
}

// isInViewport reports whether rect intersects the window rectangle grown
// by expansion pixels on every side. Negative expansion shrinks it.
func isInViewport(rect schemas.Rect, win page.Window, expansion int) bool {
	e := float64(expansion)
	return rect.X+rect.Width >= -e &&
		rect.X <= win.Width+e &&
		rect.Y+rect.Height >= -e &&
		rect.Y <= win.Height+e
}

// rectsOverlap compares two viewport rects with the standard tolerance.
func rectsOverlap(a, b schemas.Rect) bool {
	return a.X < b.X+b.Width+overlapTolerance &&
		b.X < a.X+a.Width+overlapTolerance &&
		a.Y < b.Y+b.Height+overlapTolerance &&
		b.Y < a.Y+a.Height+overlapTolerance
}

// stackPriority is the lexicographic key used to compare the apparent
// z-order of overlapping elements: positioned-ness dominates, then the
// effective z-index, then positioned-ness again as the final tiebreak.
type stackPriority struct {
	positioned bool
	z          float64
}

// higherThan reports a strict stacking win.
func (s stackPriority) higherThan(o stackPriority) bool {
	if s.positioned != o.positioned {
		return s.positioned
	}
	if s.z != o.z {
		return s.z > o.z
	}
	return false
}

// stackPriorityOf derives an element's stacking key. An explicit numeric
// z-index wins; otherwise the nearest ancestor stacking context's z-index
// applies; auto everywhere maps to -Inf so that any explicit value,
// including 0, ranks above it.
func stackPriorityOf(pg *page.Page, el *html.Node) stackPriority {
	sn := pg.Styled(el)
	if sn == nil {
		return stackPriority{z: math.Inf(-1)}
	}
	pri := stackPriority{positioned: isPositioned(pg, el), z: math.Inf(-1)}
	if z, ok := sn.ZIndex(); ok {
		pri.z = float64(z)
		return pri
	}
	for n := el.Parent; n != nil; n = n.Parent {
		psn := pg.Styled(n)
		if psn == nil {
			continue
		}
		if z, ok := psn.ZIndex(); ok && psn.Positioned() {
			pri.z = float64(z)
			return pri
		}
	}
	return pri
}

func isPositioned(pg *page.Page, el *html.Node) bool {
	sn := pg.Styled(el)
	if sn == nil {
		return false
	}
	switch sn.Lookup("position", "static") {
	case "absolute", "fixed", "relative", "sticky":
		return true
	}
	return false
}
