// internal/browser/page/page.go

// Package page assembles a parsed HTML document, its computed styles and
// its layout geometry into the "document + window" pair the DOM analyzer
// probes. A Page is the in-process stand-in for a live browser document:
// it answers computed-style lookups, bounding rects, hit tests and iframe
// content-document resolution, all synchronously.
package page

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/antchfx/htmlquery"
	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/xkilldash9x/domlens/internal/browser/layout"
	"github.com/xkilldash9x/domlens/internal/browser/parser"
	"github.com/xkilldash9x/domlens/internal/browser/shadowdom"
	"github.com/xkilldash9x/domlens/internal/browser/style"
)

// OverlayContainerID is the id of the highlight overlay root. Hit testing
// and popup detection treat that subtree as transparent.
const OverlayContainerID = "browser-use-highlight-container"

// ErrCrossOrigin is returned by ContentDocument for frames whose document
// the page is not allowed to read.
var ErrCrossOrigin = fmt.Errorf("cross-origin frame content is not readable")

// FrameLoader fetches the HTML of a same-origin iframe src. Absent a
// loader, only srcdoc frames are readable.
type FrameLoader func(src string) (string, error)

// Window carries the viewport dimensions and scroll offsets.
type Window struct {
	Width   float64
	Height  float64
	ScrollX float64
	ScrollY float64
}

// Options configure page assembly.
type Options struct {
	ViewportWidth  float64
	ViewportHeight float64
	ScrollX        float64
	ScrollY        float64
	// BaseURL anchors same-origin decisions for iframe src values.
	BaseURL string
	Loader  FrameLoader
	Logger  *zap.Logger
}

func (o *Options) withDefaults() Options {
	out := *o
	if out.ViewportWidth <= 0 {
		out.ViewportWidth = 1280
	}
	if out.ViewportHeight <= 0 {
		out.ViewportHeight = 720
	}
	if out.Logger == nil {
		out.Logger = zap.NewNop()
	}
	return out
}

// Page is one document plus its window state.
type Page struct {
	doc    *html.Node
	root   *html.Node
	window Window
	base   *url.URL
	loader FrameLoader
	log    *zap.Logger

	styledRoot *style.StyledNode
	styled     map[*html.Node]*style.StyledNode
	boxes      map[*html.Node]*layout.Box
	order      map[*html.Node]int
	frames     map[*html.Node]*Page
	shadow     map[*html.Node]*html.Node // host element -> synthetic shadow root
}

// New parses an HTML document and runs styling and layout against the
// configured viewport.
func New(src string, opts Options) (*Page, error) {
	doc, err := htmlquery.Parse(strings.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("parsing document: %w", err)
	}
	return FromDocument(doc, opts)
}

// FromDocument builds a Page over an already-parsed document node.
func FromDocument(doc *html.Node, opts Options) (*Page, error) {
	o := opts.withDefaults()

	var root *html.Node
	for c := doc.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			root = c
			break
		}
	}
	if root == nil {
		return nil, fmt.Errorf("document has no root element")
	}

	p := &Page{
		doc:    doc,
		root:   root,
		window: Window{Width: o.ViewportWidth, Height: o.ViewportHeight, ScrollX: o.ScrollX, ScrollY: o.ScrollY},
		loader: o.Loader,
		log:    o.Logger,
		styled: make(map[*html.Node]*style.StyledNode),
		boxes:  make(map[*html.Node]*layout.Box),
		order:  make(map[*html.Node]int),
		frames: make(map[*html.Node]*Page),
		shadow: make(map[*html.Node]*html.Node),
	}
	if o.BaseURL != "" {
		if u, err := url.Parse(o.BaseURL); err == nil {
			p.base = u
		}
	}

	engine := style.NewEngine(shadowdom.New())
	engine.SetViewport(o.ViewportWidth, o.ViewportHeight)
	for _, sheet := range collectAuthorSheets(root) {
		engine.AddAuthorSheet(sheet)
	}
	p.styledRoot = engine.BuildTree(root, nil)

	layoutEngine := layout.NewEngine(o.ViewportWidth, o.ViewportHeight)
	_, boxes := layoutEngine.BuildTree(p.styledRoot)
	p.boxes = boxes

	counter := 0
	p.indexStyled(p.styledRoot, &counter)
	return p, nil
}

func (p *Page) indexStyled(sn *style.StyledNode, counter *int) {
	if sn == nil {
		return
	}
	if sn.Node != nil {
		p.styled[sn.Node] = sn
		p.order[sn.Node] = *counter
		*counter++
	}
	if sn.ShadowRoot != nil && sn.Node != nil {
		p.shadow[sn.Node] = sn.ShadowRoot.Node
		p.indexStyled(sn.ShadowRoot, counter)
	}
	for _, c := range sn.Children {
		p.indexStyled(c, counter)
	}
}

func collectAuthorSheets(root *html.Node) []parser.StyleSheet {
	var sheets []parser.StyleSheet
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "style" {
			if n.FirstChild != nil && n.FirstChild.Type == html.TextNode {
				sheets = append(sheets, parser.NewParser(n.FirstChild.Data).Parse())
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return sheets
}

// -- Accessors --

// Document returns the document node.
func (p *Page) Document() *html.Node { return p.doc }

// Root returns the document element (<html>).
func (p *Page) Root() *html.Node { return p.root }

// Body returns the <body> element, or the root when the document has none.
func (p *Page) Body() *html.Node {
	for c := p.root.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && strings.EqualFold(c.Data, "body") {
			return c
		}
	}
	return p.root
}

// Window returns the current window state.
func (p *Page) Window() Window { return p.window }

// Styled returns the computed-style node for el, or nil for elements that
// were never styled (detached nodes).
func (p *Page) Styled(el *html.Node) *style.StyledNode { return p.styled[el] }

// Box returns the layout box for el, or nil when the element generates
// none (display:none subtree). A nil box is the offsetParent-null analog.
func (p *Page) Box(el *html.Node) *layout.Box { return p.boxes[el] }

// ShadowRoot returns the synthetic shadow root document for a host, nil
// for ordinary elements.
func (p *Page) ShadowRoot(el *html.Node) *html.Node { return p.shadow[el] }

// DocumentOrder returns el's pre-order index, used as the paint-order
// tiebreak.
func (p *Page) DocumentOrder(el *html.Node) int { return p.order[el] }

// BoundingClientRect returns el's border box in viewport coordinates:
// document coordinates shifted by the scroll offsets, except for
// fixed-position boxes which are viewport-anchored already.
func (p *Page) BoundingClientRect(el *html.Node) (layout.Rect, bool) {
	box, ok := p.boxes[el]
	if !ok {
		return layout.Rect{}, false
	}
	r := box.Rect
	if !box.Fixed {
		r.X -= p.window.ScrollX
		r.Y -= p.window.ScrollY
	}
	return r, true
}

// ScrollSize returns the scrollWidth/scrollHeight pair for el.
func (p *Page) ScrollSize(el *html.Node) (w, h float64, ok bool) {
	box, found := p.boxes[el]
	if !found {
		return 0, 0, false
	}
	return box.ScrollWidth, box.ScrollHeight, true
}

// ClientSize returns the client box dimensions for el.
func (p *Page) ClientSize(el *html.Node) (w, h float64, ok bool) {
	box, found := p.boxes[el]
	if !found {
		return 0, 0, false
	}
	return box.Rect.Width, box.Rect.Height, true
}

// -- Hit testing --

// ElementFromPoint returns the topmost element whose box contains the
// viewport point, respecting stacking order the way a paint pass would:
// positioned elements with higher effective z-index paint above, document
// order breaks ties. Elements with pointer-events:none or hidden
// visibility are transparent, as is the highlight overlay subtree.
func (p *Page) ElementFromPoint(x, y float64) *html.Node {
	var best *html.Node
	var bestKey StackKey
	bestOrder := -1

	for el, box := range p.boxes {
		if el.Type != html.ElementNode {
			continue
		}
		r := box.Rect
		if !box.Fixed {
			r.X -= p.window.ScrollX
			r.Y -= p.window.ScrollY
		}
		if !r.Contains(x, y) {
			continue
		}
		sn := p.styled[el]
		if sn == nil || sn.Visibility() != "visible" || sn.PointerEvents() == "none" {
			continue
		}
		if p.inOverlay(el) {
			continue
		}
		key := p.StackKeyOf(el)
		order := p.order[el]
		if best == nil || bestKey.Less(key) || (key == bestKey && order > bestOrder) {
			best, bestKey, bestOrder = el, key, order
		}
	}
	return best
}

// StackKey orders elements by apparent paint priority.
type StackKey struct {
	Positioned bool
	ZIndex     int
}

// Less reports whether k paints below o.
func (k StackKey) Less(o StackKey) bool {
	if k.Positioned != o.Positioned {
		return !k.Positioned
	}
	return k.ZIndex < o.ZIndex
}

// StackKeyOf derives el's stacking key from its nearest self-or-ancestor
// stacking context: positioned-ness and explicit numeric z-index propagate
// down to static descendants.
func (p *Page) StackKeyOf(el *html.Node) StackKey {
	var key StackKey
	for n := el; n != nil; n = n.Parent {
		sn := p.styled[n]
		if sn == nil {
			continue
		}
		if sn.Positioned() {
			key.Positioned = true
			if z, ok := sn.ZIndex(); ok {
				key.ZIndex = z
				return key
			}
		}
	}
	return key
}

func (p *Page) inOverlay(el *html.Node) bool {
	for n := el; n != nil; n = n.Parent {
		if n.Type == html.ElementNode && htmlquery.SelectAttr(n, "id") == OverlayContainerID {
			return true
		}
	}
	return false
}

// -- Text extraction --

// InnerText approximates the rendered text of el: display:none and
// visibility:hidden subtrees contribute nothing, whitespace collapses.
func (p *Page) InnerText(el *html.Node) string {
	sn := p.styled[el]
	if sn == nil {
		return TextContent(el)
	}
	var parts []string
	var walk func(*style.StyledNode)
	walk = func(n *style.StyledNode) {
		if n.Node.Type == html.TextNode {
			if t := strings.Join(strings.Fields(n.Node.Data), " "); t != "" {
				parts = append(parts, t)
			}
			return
		}
		if n.Node.Type == html.ElementNode {
			if !n.IsRendered() || n.Visibility() != "visible" {
				return
			}
		}
		for _, c := range n.Children {
			walk(c)
		}
	}
	walk(sn)
	return strings.Join(parts, " ")
}

// TextContent concatenates every descendant text node verbatim, trimmed
// and whitespace-collapsed.
func TextContent(el *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteByte(' ')
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(el)
	return strings.Join(strings.Fields(b.String()), " ")
}

// DirectText concatenates only el's immediate child text nodes.
func DirectText(el *html.Node) string {
	var b strings.Builder
	for c := el.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
			b.WriteByte(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// -- Iframes --

// ContentDocument resolves an iframe's inner document. srcdoc frames are
// always same-origin; src frames resolve against the page base URL and go
// through the FrameLoader when same-origin. Everything else is blocked.
// Results are cached per frame element so repeated walks are stable.
func (p *Page) ContentDocument(iframe *html.Node) (*Page, error) {
	if cached, ok := p.frames[iframe]; ok {
		if cached == nil {
			return nil, ErrCrossOrigin
		}
		return cached, nil
	}

	sub, err := p.loadFrame(iframe)
	if err != nil {
		p.frames[iframe] = nil
		return nil, err
	}
	p.frames[iframe] = sub
	return sub, nil
}

func (p *Page) loadFrame(iframe *html.Node) (*Page, error) {
	vw, vh := 300.0, 150.0
	if box, ok := p.boxes[iframe]; ok {
		if box.Rect.Width > 0 {
			vw = box.Rect.Width
		}
		if box.Rect.Height > 0 {
			vh = box.Rect.Height
		}
	}
	subOpts := Options{
		ViewportWidth:  vw,
		ViewportHeight: vh,
		BaseURL:        p.baseString(),
		Loader:         p.loader,
		Logger:         p.log,
	}

	if srcdoc, ok := findAttr(iframe, "srcdoc"); ok {
		return New(srcdoc, subOpts)
	}

	src, ok := findAttr(iframe, "src")
	if !ok || strings.TrimSpace(src) == "" || strings.HasPrefix(src, "about:") {
		return nil, ErrCrossOrigin
	}
	target, err := p.resolveURL(src)
	if err != nil || !p.sameOrigin(target) {
		return nil, ErrCrossOrigin
	}
	if p.loader == nil {
		return nil, ErrCrossOrigin
	}
	content, err := p.loader(target.String())
	if err != nil {
		return nil, fmt.Errorf("loading frame %s: %w", target, err)
	}
	subOpts.BaseURL = target.String()
	return New(content, subOpts)
}

func (p *Page) baseString() string {
	if p.base == nil {
		return ""
	}
	return p.base.String()
}

func (p *Page) resolveURL(src string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(src))
	if err != nil {
		return nil, err
	}
	if p.base != nil {
		return p.base.ResolveReference(u), nil
	}
	return u, nil
}

// sameOrigin compares scheme and host. A relative target (no host) is
// same-origin by construction.
func (p *Page) sameOrigin(target *url.URL) bool {
	if target.Host == "" {
		return true
	}
	if p.base == nil {
		return false
	}
	return target.Scheme == p.base.Scheme && target.Host == p.base.Host
}

func findAttr(n *html.Node, name string) (string, bool) {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, name) {
			return a.Val, true
		}
	}
	return "", false
}
