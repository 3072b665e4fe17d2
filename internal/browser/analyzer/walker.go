// internal/browser/analyzer/walker.go
package analyzer

import (
	"strings"

	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/xkilldash9x/domlens/api/schemas"
	"github.com/xkilldash9x/domlens/internal/browser/page"
)

// maxTextLength caps every text payload in the node map.
const maxTextLength = 100

// maxSrcLength caps the iframe src attribute carried on placeholders.
const maxSrcLength = 200

// skippedTags are never emitted and never recursed into.
var skippedTags = map[string]bool{
	"script": true, "style": true, "noscript": true, "meta": true,
	"link": true, "head": true, "br": true, "hr": true,
}

// strippedAttrPrefixes is the framework-internal attribute noise removed
// from every record.
var strippedAttrPrefixes = []string{"data-reactid", "data-reactroot", "ng-"}

// walkDocument walks one document's body subtree and returns the id of
// its root record. frameDepth is the iframe nesting depth of the document
// itself (0 for the top document).
func (ctx *walkContext) walkDocument(pg *page.Page, frameDepth int) schemas.NodeID {
	return ctx.walkElement(pg.Body(), pg, 0, frameDepth)
}

func (ctx *walkContext) walkElement(el *html.Node, pg *page.Page, parent schemas.NodeID, frameDepth int) schemas.NodeID {
	ctx.metrics.NodeMetrics.TotalNodes++

	tag := strings.ToLower(el.Data)
	if skippedTags[tag] {
		return 0
	}

	id := ctx.allocID()
	node := ctx.buildElementRecord(el, pg, tag)
	ctx.register(id, parent, el, node)
	ctx.metrics.NodeMetrics.ProcessedNodes++
	if node.IsVisible {
		ctx.metrics.NodeMetrics.VisibleNodes++
	}

	if tag == "iframe" {
		// Content resolution happens after this document's walk; the
		// fallback children inside the tag are never rendered.
		node.IframeDepth = frameDepth
		ctx.pending = append(ctx.pending, pendingFrame{id: id, el: el, pg: pg, depth: frameDepth})
		return id
	}

	if node.IsInteractive {
		ctx.metrics.NodeMetrics.InteractiveNodes++
		if node.IsVisible && (node.IsInViewport || ctx.opts.ViewportExpansion > 0) {
			// A positive expansion admits everything: callers asking for
			// context beyond the fold want the whole page surface.
			top := isTopElement(pg, el, node.Viewport)
			node.IsTopElement = top
			ctx.candidates = append(ctx.candidates, &candidate{
				id:    id,
				el:    el,
				pg:    pg,
				tag:   tag,
				rect:  node.Viewport,
				isTop: top,
			})
		}
	}

	if tag == "template" {
		// Template content is inert; shadow templates are materialized
		// through the host's shadow root instead.
		return id
	}

	// Shadow children come first, then the light DOM, both attached
	// under the hosting element's id.
	if root := pg.ShadowRoot(el); root != nil {
		node.ShadowRoot = true
		for c := root.FirstChild; c != nil; c = c.NextSibling {
			ctx.walkChild(c, pg, id, frameDepth, node)
		}
	}
	for c := el.FirstChild; c != nil; c = c.NextSibling {
		ctx.walkChild(c, pg, id, frameDepth, node)
	}
	return id
}

func (ctx *walkContext) walkChild(c *html.Node, pg *page.Page, parent schemas.NodeID, frameDepth int, parentNode *schemas.DOMNode) {
	switch c.Type {
	case html.ElementNode:
		if childID := ctx.walkElement(c, pg, parent, frameDepth); childID != 0 {
			parentNode.Children = append(parentNode.Children, childID)
		}
	case html.TextNode:
		if childID := ctx.walkText(c, pg, parent, parentNode.IsVisible); childID != 0 {
			parentNode.Children = append(parentNode.Children, childID)
		}
	}
}

func (ctx *walkContext) walkText(t *html.Node, pg *page.Page, parent schemas.NodeID, parentVisible bool) schemas.NodeID {
	ctx.metrics.NodeMetrics.TotalNodes++
	text := truncate(strings.TrimSpace(t.Data), maxTextLength)
	if text == "" {
		return 0
	}
	id := ctx.allocID()
	ctx.register(id, parent, nil, &schemas.DOMNode{
		Type:      schemas.NodeTypeText,
		Text:      text,
		IsVisible: parentVisible,
		Children:  []schemas.NodeID{},
	})
	ctx.metrics.NodeMetrics.ProcessedNodes++
	return id
}

func (ctx *walkContext) buildElementRecord(el *html.Node, pg *page.Page, tag string) *schemas.DOMNode {
	rect := schemas.Rect{}
	if r, ok := pg.BoundingClientRect(el); ok {
		rect = schemas.Rect{X: r.X, Y: r.Y, Width: r.Width, Height: r.Height}
	}

	visible := isVisible(pg, el)
	interactive := isInteractive(pg, el)

	node := &schemas.DOMNode{
		Type:          schemas.NodeTypeElement,
		TagName:       tag,
		Attributes:    filteredAttributes(el),
		XPath:         xpathFor(el),
		IsVisible:     visible,
		IsInteractive: interactive,
		IsInViewport:  isInViewport(rect, pg.Window(), ctx.opts.ViewportExpansion),
		IsScrollable:  isScrollable(pg, el, tag),
		Viewport:      rect,
		Children:      []schemas.NodeID{},
		Text:          extractText(pg, el, tag, interactive),
		AriaLabel:     attrOr(el, "aria-label", ""),
		Title:         attrOr(el, "title", ""),
		Role:          attrOr(el, "role", ""),
	}
	if v, ok := getAttr(el, "aria-description"); ok {
		node.AriaDescription = v
	} else if v, ok := getAttr(el, "aria-describedby"); ok {
		node.AriaDescription = v
	}
	return node
}

// filteredAttributes keeps everything except framework-internal noise and
// inline styles, which are recoverable from the computed record anyway.
func filteredAttributes(el *html.Node) map[string]string {
	attrs := make(map[string]string, len(el.Attr))
	for _, a := range el.Attr {
		key := strings.ToLower(a.Key)
		if key == "style" {
			continue
		}
		skip := false
		for _, prefix := range strippedAttrPrefixes {
			if strings.HasPrefix(key, prefix) {
				skip = true
				break
			}
		}
		if skip {
			continue
		}
		attrs[a.Key] = a.Val
	}
	return attrs
}

// extractText follows the two-tier rule: interactive elements expose their
// rendered text, everything else its direct text with element-specific
// fallbacks for form controls.
func extractText(pg *page.Page, el *html.Node, tag string, interactive bool) string {
	if interactive {
		text := strings.TrimSpace(pg.InnerText(el))
		if text == "" {
			text = strings.TrimSpace(page.TextContent(el))
		}
		if text == "" {
			text = controlText(el, tag)
		}
		return truncate(text, maxTextLength)
	}

	text := strings.TrimSpace(page.DirectText(el))
	if text == "" {
		text = controlText(el, tag)
	}
	return truncate(text, maxTextLength)
}

// controlText recovers a label for value-bearing controls.
func controlText(el *html.Node, tag string) string {
	switch tag {
	case "input":
		if v, ok := getAttr(el, "value"); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
		if v, ok := getAttr(el, "placeholder"); ok {
			return strings.TrimSpace(v)
		}
	case "textarea":
		if v := strings.TrimSpace(page.TextContent(el)); v != "" {
			return v
		}
		if v, ok := getAttr(el, "placeholder"); ok {
			return strings.TrimSpace(v)
		}
	case "select":
		return selectedOptionLabel(el)
	}
	return ""
}

// selectedOptionLabel returns the first selected option's text, falling
// back to the first option, mirroring what the control renders.
func selectedOptionLabel(sel *html.Node) string {
	var first string
	var found string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && strings.EqualFold(c.Data, "option") {
				label := strings.TrimSpace(page.TextContent(c))
				if first == "" {
					first = label
				}
				if _, ok := getAttr(c, "selected"); ok && found == "" {
					found = label
				}
			}
			walk(c)
		}
	}
	walk(sel)
	if found != "" {
		return found
	}
	return first
}

// isScrollable requires both overflowing content and an overflow style
// that actually produces a scroll surface. The root elements scroll
// whenever their content overflows, regardless of style.
func isScrollable(pg *page.Page, el *html.Node, tag string) bool {
	sw, sh, ok := pg.ScrollSize(el)
	if !ok {
		return false
	}
	cw, ch, _ := pg.ClientSize(el)
	overflowing := sh > ch+1 || sw > cw+1
	if !overflowing {
		return false
	}
	if tag == "body" || tag == "html" {
		return true
	}
	sn := pg.Styled(el)
	if sn == nil {
		return false
	}
	return scrollStyle(sn.OverflowY()) || scrollStyle(sn.OverflowX())
}

func scrollStyle(v string) bool {
	switch v {
	case "auto", "scroll", "overlay":
		return true
	}
	return false
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

// resolveFrames drains the pending iframe queue in discovery order. The
// queue grows as same-origin documents are walked, which yields the
// breadth-first recursion the depth and fan-out bounds assume.
func (ctx *walkContext) resolveFrames() {
	for i := 0; i < len(ctx.pending); i++ {
		pf := ctx.pending[i]
		node := ctx.nodes[pf.id]
		if node == nil {
			continue
		}
		ctx.decorateFrameRecord(node, pf.el)

		if ctx.iframeCount >= ctx.opts.MaxIframes || pf.depth >= ctx.opts.MaxIframeDepth {
			ctx.metrics.IframeMetrics.SkippedIframes++
			continue
		}
		ctx.iframeCount++
		ctx.metrics.IframeMetrics.TotalIframes++
		if pf.depth+1 > ctx.metrics.IframeMetrics.MaxDepthReached {
			ctx.metrics.IframeMetrics.MaxDepthReached = pf.depth + 1
		}

		sub, err := pf.pg.ContentDocument(pf.el)
		if err != nil || sub == nil {
			ctx.metrics.IframeMetrics.CrossOrigin++
			if !ctx.opts.IncludeCrossOriginIframes {
				ctx.elideRecord(pf.id)
				ctx.metrics.IframeMetrics.SkippedIframes++
				continue
			}
			node.Attributes["data-iframe-type"] = "cross-origin"
			node.IframeContent = schemas.IframeContentBlocked
			node.Children = []schemas.NodeID{}
			ctx.iframeNodes = append(ctx.iframeNodes, node)
			ctx.iframeIDs = append(ctx.iframeIDs, pf.id)
			continue
		}

		ctx.metrics.IframeMetrics.SameOrigin++
		ctx.metrics.IframeMetrics.ProcessedIframes++
		node.Attributes["data-iframe-type"] = "same-origin"
		node.IframeContent = schemas.IframeContentExtractable
		childID := ctx.walkDocument(sub, pf.depth+1)
		if childID != 0 {
			node.Children = append(node.Children, childID)
			ctx.parentOf[childID] = pf.id
		}
		ctx.iframeNodes = append(ctx.iframeNodes, node)
		ctx.iframeIDs = append(ctx.iframeIDs, pf.id)

		if ctx.opts.DebugMode {
			ctx.log.Debug("iframe content extracted",
				zap.Int("depth", pf.depth+1),
				zap.String("src", node.Attributes["src"]),
			)
		}
	}
}

// decorateFrameRecord stamps the placeholder-only attributes onto an
// iframe record.
func (ctx *walkContext) decorateFrameRecord(node *schemas.DOMNode, el *html.Node) {
	if src, ok := getAttr(el, "src"); ok {
		node.Attributes["src"] = truncate(src, maxSrcLength)
	}
	for _, key := range []string{"title", "aria-label", "name", "id"} {
		if v, ok := getAttr(el, key); ok {
			node.Attributes[key] = v
		}
	}
}

// elideRecord removes a record and the child pointer referencing it.
func (ctx *walkContext) elideRecord(id schemas.NodeID) {
	parent, ok := ctx.parentOf[id]
	if ok {
		if pnode := ctx.nodes[parent]; pnode != nil {
			kept := pnode.Children[:0]
			for _, c := range pnode.Children {
				if c != id {
					kept = append(kept, c)
				}
			}
			pnode.Children = kept
		}
	}
	delete(ctx.nodes, id)
	delete(ctx.parentOf, id)
}
