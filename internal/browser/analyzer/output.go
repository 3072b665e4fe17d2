// internal/browser/analyzer/output.go
package analyzer

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/net/html"

	"github.com/xkilldash9x/domlens/api/schemas"
	"github.com/xkilldash9x/domlens/internal/browser/page"
)

// popupKeywords are the class/id fragments that mark likely modal or
// consent surfaces.
var popupKeywords = []string{
	"modal", "popup", "dialog", "overlay", "signin", "login",
	"consent", "cookie", "banner",
}

// popupMinSize is the smallest rect considered a real container.
const popupMinSize = 50.0

// popupZThreshold is the z-index floor for popup detection.
const popupZThreshold = 9000

// compactProjection emits a new map holding only the essential nodes: the
// root, every surviving candidate with its ancestor chain, and every
// iframe placeholder with its chain. Child lists are intersected with the
// essential set so every remaining reference still resolves.
func (ctx *walkContext) compactProjection(rootID schemas.NodeID, survivors []*candidate) map[schemas.NodeID]*schemas.DOMNode {
	essential := make(map[schemas.NodeID]bool)
	markWithAncestors := func(id schemas.NodeID) {
		for cur := id; cur != 0 && !essential[cur]; cur = ctx.parentOf[cur] {
			essential[cur] = true
		}
	}

	essential[rootID] = true
	for _, c := range survivors {
		markWithAncestors(c.id)
	}
	for _, id := range ctx.iframeIDs {
		markWithAncestors(id)
	}

	compact := make(map[schemas.NodeID]*schemas.DOMNode, len(essential))
	for id := range essential {
		node, ok := ctx.nodes[id]
		if !ok {
			continue
		}
		clone := *node
		clone.Children = make([]schemas.NodeID, 0, len(node.Children))
		for _, c := range node.Children {
			if essential[c] {
				clone.Children = append(clone.Children, c)
			}
		}
		compact[id] = &clone
	}
	return compact
}

// detectPopups scans the top document for likely modal/overlay regions:
// high z-index, out-of-flow, visibly large, and either named like a popup
// or carrying a dialog role. The overlay container subtree is excluded so
// detection stays idempotent across repeated runs.
func (ctx *walkContext) detectPopups() []schemas.PopupContainer {
	var popups []schemas.PopupContainer

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if id, ok := getAttr(n, "id"); ok && id == page.OverlayContainerID {
				return
			}
			if pc, ok := ctx.popupCandidate(n); ok {
				popups = append(popups, pc)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(ctx.top.Body())

	sort.SliceStable(popups, func(i, j int) bool { return popups[i].ZIndex > popups[j].ZIndex })
	return popups
}

func (ctx *walkContext) popupCandidate(el *html.Node) (schemas.PopupContainer, bool) {
	sn := ctx.top.Styled(el)
	if sn == nil {
		return schemas.PopupContainer{}, false
	}
	z, ok := sn.ZIndex()
	if !ok || z <= popupZThreshold {
		return schemas.PopupContainer{}, false
	}
	position := sn.Lookup("position", "static")
	if position != "fixed" && position != "absolute" {
		return schemas.PopupContainer{}, false
	}
	if !isVisible(ctx.top, el) {
		return schemas.PopupContainer{}, false
	}
	rect, hasBox := ctx.top.BoundingClientRect(el)
	if !hasBox || rect.Width < popupMinSize || rect.Height < popupMinSize {
		return schemas.PopupContainer{}, false
	}

	class := attrOr(el, "class", "")
	id := attrOr(el, "id", "")
	role := strings.ToLower(strings.TrimSpace(attrOr(el, "role", "")))
	ariaModal := strings.EqualFold(attrOr(el, "aria-modal", ""), "true")

	reason := ""
	haystack := strings.ToLower(class + " " + id)
	for _, kw := range popupKeywords {
		if strings.Contains(haystack, kw) {
			reason = kw
			break
		}
	}
	if reason == "" {
		switch {
		case role == "dialog" || role == "alertdialog":
			reason = "role=" + role
		case ariaModal:
			reason = "aria-modal"
		default:
			return schemas.PopupContainer{}, false
		}
	}

	return schemas.PopupContainer{
		NodeID:   ctx.idOf[el],
		TagName:  strings.ToLower(el.Data),
		ID:       id,
		Class:    class,
		Role:     role,
		ZIndex:   z,
		Position: position,
		Viewport: schemas.Rect{X: rect.X, Y: rect.Y, Width: rect.Width, Height: rect.Height},
		Reason:   reason,
		XPath:    xpathFor(el),
	}, true
}

// Serialize renders the LLM-facing flat view of a snapshot: one line per
// indexed element, [index]<tag key=val>text</tag>, in index order.
func Serialize(snap *schemas.Snapshot) string {
	type entry struct {
		index int
		node  *schemas.DOMNode
	}
	var entries []entry
	for _, node := range snap.Map {
		if node.HighlightIndex != nil {
			entries = append(entries, entry{*node.HighlightIndex, node})
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].index < entries[j].index })

	var b strings.Builder
	for _, e := range entries {
		b.WriteString(fmt.Sprintf("[%d]<%s", e.index, e.node.TagName))
		for _, key := range []string{"href", "type", "name", "placeholder", "value", "role", "aria-label", "title"} {
			if v, ok := e.node.Attributes[key]; ok && v != "" {
				fmt.Fprintf(&b, " %s=%q", key, v)
			}
		}
		b.WriteString(">")
		b.WriteString(e.node.Text)
		fmt.Fprintf(&b, "</%s>\n", e.node.TagName)
	}
	return b.String()
}
