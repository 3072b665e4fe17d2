// internal/browser/analyzer/highlight.go
package analyzer

import (
	"fmt"
	"math"
	"sort"
	"strconv"

	"golang.org/x/net/html"

	"github.com/xkilldash9x/domlens/internal/browser/page"
)

// rowTolerance is the reading-row height: candidate tops are rounded to the
// nearest multiple of it, and candidates in the same row sort left to right.
const rowTolerance = 5.0

// overlayZIndex keeps the highlight container above everything else.
const overlayZIndex = "2147483647"

// assignIndices sorts the surviving candidates into reading order, writes
// the gap-free highlight indices back into the node map, and paints the
// overlay boxes when requested.
func (ctx *walkContext) assignIndices(survivors []*candidate) {
	sort.SliceStable(survivors, func(i, j int) bool {
		ri := math.Round(survivors[i].rect.Y / rowTolerance)
		rj := math.Round(survivors[j].rect.Y / rowTolerance)
		if ri != rj {
			return ri < rj
		}
		return survivors[i].rect.X < survivors[j].rect.X
	})

	for k, c := range survivors {
		node := ctx.nodes[c.id]
		if node == nil {
			continue
		}
		idx := k
		node.HighlightIndex = &idx
		node.IsTopElement = c.isTop

		if ctx.opts.DoHighlightElements && c.isTop {
			ctx.paintHighlight(c, k)
		}
	}
}

// paintHighlight appends one overlay rectangle for a survivor into its
// document's singleton container. The container is created on first use
// and intentionally never removed here; callers own the cleanup.
func (ctx *walkContext) paintHighlight(c *candidate, index int) {
	container := ctx.overlays[c.pg]
	if container == nil {
		container = newElement("div",
			attrPair{"id", page.OverlayContainerID},
			attrPair{"style", "position: fixed; top: 0; left: 0; width: 0; height: 0; pointer-events: none; z-index: " + overlayZIndex + ";"},
		)
		c.pg.Body().AppendChild(container)
		ctx.overlays[c.pg] = container
	}

	fill, border := "rgba(66, 133, 244, 0.12)", "2px solid #4285f4"
	if index == ctx.opts.FocusHighlightIndex {
		fill, border = "rgba(234, 67, 53, 0.25)", "3px solid #ea4335"
	}

	box := newElement("div",
		attrPair{"class", "browser-use-highlight"},
		attrPair{"data-highlight-index", strconv.Itoa(index)},
		attrPair{"style", fmt.Sprintf(
			"position: fixed; left: %.0fpx; top: %.0fpx; width: %.0fpx; height: %.0fpx; background: %s; border: %s; pointer-events: none; box-sizing: border-box;",
			c.rect.X, c.rect.Y, c.rect.Width, c.rect.Height, fill, border,
		)},
	)

	label := newElement("span",
		attrPair{"class", "browser-use-highlight-label"},
		attrPair{"style", "position: absolute; top: -18px; left: 0; font: 12px monospace; color: #fff; background: #4285f4; padding: 0 4px;"},
	)
	label.AppendChild(&html.Node{Type: html.TextNode, Data: strconv.Itoa(index)})
	box.AppendChild(label)
	container.AppendChild(box)
}

// ClearHighlights removes the overlay container from a page's document,
// the cleanup counterpart the analyzer itself never performs.
func ClearHighlights(p *page.Page) {
	var container *html.Node
	var find func(*html.Node)
	find = func(n *html.Node) {
		if container != nil {
			return
		}
		if n.Type == html.ElementNode {
			if v, ok := getAttr(n, "id"); ok && v == page.OverlayContainerID {
				container = n
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			find(c)
		}
	}
	find(p.Document())
	if container != nil && container.Parent != nil {
		container.Parent.RemoveChild(container)
	}
}

type attrPair struct {
	key, val string
}

func newElement(tag string, attrs ...attrPair) *html.Node {
	n := &html.Node{Type: html.ElementNode, Data: tag}
	for _, a := range attrs {
		n.Attr = append(n.Attr, html.Attribute{Key: a.key, Val: a.val})
	}
	return n
}
