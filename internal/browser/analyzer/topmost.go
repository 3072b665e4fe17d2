// internal/browser/analyzer/topmost.go
package analyzer

import (
	"strings"

	"golang.org/x/net/html"

	"github.com/xkilldash9x/domlens/api/schemas"
	"github.com/xkilldash9x/domlens/internal/browser/page"
)

// isTopElement decides whether el is the element a click at its center
// would actually reach. The hit test settles most cases; when it lands on
// an unrelated element the stacking fallback decides whether something is
// genuinely painted above.
func isTopElement(pg *page.Page, el *html.Node, rect schemas.Rect) bool {
	if rect.Width == 0 || rect.Height == 0 {
		return false
	}

	cx := rect.X + rect.Width/2
	cy := rect.Y + rect.Height/2
	win := pg.Window()
	if cx < 0 || cy < 0 || cx >= win.Width || cy >= win.Height {
		return false
	}

	if hit := pg.ElementFromPoint(cx, cy); hit != nil {
		if hit == el || contains(el, hit) {
			return true
		}
	}
	return !hasOverlappingHigherElement(pg, el, rect)
}

// hasOverlappingHigherElement ascends from el toward body. At each level
// the visible, non-transparent siblings are occluder candidates; two
// levels up, the children of absolutely or fixed positioned uncles join
// them (overlays and tooltips usually hang there). Any candidate that
// overlaps el's rect with a strictly higher stacking priority occludes.
func hasOverlappingHigherElement(pg *page.Page, el *html.Node, rect schemas.Rect) bool {
	elPri := stackPriorityOf(pg, el)

	level := 0
	for cur := el; cur != nil; cur = elementParent(cur) {
		if cur.Type == html.ElementNode && strings.EqualFold(cur.Data, "body") {
			break
		}
		parent := elementParent(cur)
		if parent == nil {
			break
		}
		for sib := parent.FirstChild; sib != nil; sib = sib.NextSibling {
			if sib == cur || sib.Type != html.ElementNode {
				continue
			}
			if occludes(pg, sib, rect, elPri) {
				return true
			}
			if level == 2 && isOutOfFlow(pg, sib) {
				for c := sib.FirstChild; c != nil; c = c.NextSibling {
					if c.Type == html.ElementNode && occludes(pg, c, rect, elPri) {
						return true
					}
				}
			}
		}
		level++
	}
	return false
}

func occludes(pg *page.Page, other *html.Node, rect schemas.Rect, elPri stackPriority) bool {
	sn := pg.Styled(other)
	if sn == nil || !sn.IsRendered() || sn.Visibility() != "visible" || sn.Opacity() == 0 {
		return false
	}
	otherRect, ok := pg.BoundingClientRect(other)
	if !ok {
		return false
	}
	r := schemas.Rect{X: otherRect.X, Y: otherRect.Y, Width: otherRect.Width, Height: otherRect.Height}
	if !rectsOverlap(r, rect) {
		return false
	}
	return stackPriorityOf(pg, other).higherThan(elPri)
}

func isOutOfFlow(pg *page.Page, el *html.Node) bool {
	sn := pg.Styled(el)
	if sn == nil {
		return false
	}
	switch sn.Lookup("position", "static") {
	case "absolute", "fixed":
		return true
	}
	return false
}

// contains reports whether anc strictly or loosely contains node in the
// DOM (anc itself counts).
func contains(anc, node *html.Node) bool {
	for n := node; n != nil; n = n.Parent {
		if n == anc {
			return true
		}
	}
	return false
}

func elementParent(node *html.Node) *html.Node {
	for p := node.Parent; p != nil; p = p.Parent {
		if p.Type == html.ElementNode {
			return p
		}
	}
	return nil
}
