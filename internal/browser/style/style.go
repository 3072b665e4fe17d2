// internal/browser/style/style.go
package style

import (
	"sort"
	"strconv"
	"strings"

	"golang.org/x/net/html"

	"github.com/xkilldash9x/domlens/internal/browser/parser"
)

// ShadowDOMProcessor is the contract for the shadow DOM engine. The style
// engine stays decoupled from the concrete implementation to avoid an
// import cycle.
type ShadowDOMProcessor interface {
	DetectShadowHost(node *html.Node) bool
	InstantiateShadowRoot(host *html.Node) (*html.Node, []parser.StyleSheet)
}

// BaseFontSize is the root font size used when nothing else applies.
const BaseFontSize = 16.0

// DefaultUserAgentCSS covers the defaults the analyzer's probes depend on:
// display types per tag, pointer cursors on links, and the hidden metadata
// subtree.
const DefaultUserAgentCSS = `
html, body, div, p, h1, h2, h3, h4, h5, h6, ul, ol, li, form, fieldset,
header, footer, section, article, nav, main, aside, figure, figcaption,
details, summary, dialog, blockquote, pre, table {
    display: block;
    margin: 0;
    padding: 0;
}

head, script, style, noscript, meta, link, title, template {
    display: none;
}

input, button, textarea, select, img, svg, iframe, video, canvas {
    display: inline-block;
}

a {
    color: #0000ee;
    text-decoration: underline;
    cursor: pointer;
}

button, input[type="submit"], input[type="button"], input[type="reset"],
select, summary {
    cursor: default;
}

iframe {
    width: 300px;
    height: 150px;
    border-width: 2px;
}

input {
    width: 170px;
    height: 21px;
}

input[type="checkbox"], input[type="radio"] {
    width: 13px;
    height: 13px;
}

button, input[type="submit"], input[type="button"], input[type="reset"] {
    width: auto;
    height: auto;
}

textarea {
    width: 320px;
    height: 64px;
}

select {
    width: 180px;
    height: 21px;
}
`

// inheritedProperties flow from parent to child when the child has no own
// value. The set covers the properties the analyzer and layout read
// (visibility, cursor, pointer-events, font-size) plus common text
// properties.
var inheritedProperties = []parser.Property{
	"color", "cursor", "font-family", "font-size", "font-weight",
	"line-height", "pointer-events", "text-align", "visibility",
}

// StyledNode pairs a DOM node with its resolved styles. The tree mirrors
// the DOM, with shadow trees hanging off their host via ShadowRoot.
type StyledNode struct {
	Node       *html.Node
	Computed   map[parser.Property]parser.Value
	Parent     *StyledNode
	Children   []*StyledNode
	ShadowRoot *StyledNode
}

// Engine runs the cascade: user-agent sheet, author sheets, inline styles,
// importance, specificity and source order, then inheritance.
type Engine struct {
	uaSheets     []parser.StyleSheet
	authorSheets []parser.StyleSheet
	shadow       ShadowDOMProcessor
	vw, vh       float64
}

func NewEngine(shadow ShadowDOMProcessor) *Engine {
	ua := parser.NewParser(DefaultUserAgentCSS).Parse()
	return &Engine{
		uaSheets: []parser.StyleSheet{ua},
		shadow:   shadow,
	}
}

// AddAuthorSheet registers a stylesheet found in the document.
func (e *Engine) AddAuthorSheet(sheet parser.StyleSheet) {
	e.authorSheets = append(e.authorSheets, sheet)
}

// SetViewport fixes the dimensions backing vw/vh units.
func (e *Engine) SetViewport(w, h float64) {
	e.vw, e.vh = w, h
}

// BuildTree resolves styles for node and its subtree. Pass nil as parent
// for the document root.
func (e *Engine) BuildTree(node *html.Node, parent *StyledNode) *StyledNode {
	return e.build(node, parent, e.authorSheets)
}

func (e *Engine) build(node *html.Node, parent *StyledNode, scoped []parser.StyleSheet) *StyledNode {
	if node.Type == html.CommentNode || node.Type == html.DoctypeNode {
		return nil
	}

	sn := &StyledNode{Node: node, Parent: parent}
	if node.Type == html.ElementNode {
		sn.Computed = e.cascade(node, scoped)
	} else {
		sn.Computed = make(map[parser.Property]parser.Value)
	}

	e.inherit(sn, parent)
	e.resolveFontSize(sn, parent)

	if e.shadow != nil && e.shadow.DetectShadowHost(node) {
		root, shadowSheets := e.shadow.InstantiateShadowRoot(node)
		if root != nil {
			sn.ShadowRoot = e.build(root, sn, shadowSheets)
		}
	}

	for c := node.FirstChild; c != nil; c = c.NextSibling {
		if child := e.build(c, sn, scoped); child != nil {
			sn.Children = append(sn.Children, child)
		}
	}
	return sn
}

// -- Cascade --

type cascadeOrigin int

const (
	originUserAgent cascadeOrigin = iota
	originPresentational
	originAuthor
	originInline
)

type weightedDecl struct {
	decl    parser.Declaration
	origin  cascadeOrigin
	a, b, c int
	order   int
}

func cascadeRank(d weightedDecl) int {
	switch {
	case d.origin == originUserAgent && d.decl.Important:
		return 6
	case d.origin == originAuthor && d.decl.Important:
		return 5
	case d.origin == originInline:
		return 4
	case d.origin == originAuthor:
		return 3
	case d.origin == originPresentational:
		return 2
	default:
		return 1
	}
}

func (e *Engine) cascade(node *html.Node, scoped []parser.StyleSheet) map[parser.Property]parser.Value {
	var decls []weightedDecl
	order := 0

	collect := func(sheets []parser.StyleSheet, origin cascadeOrigin) {
		for _, sheet := range sheets {
			for _, rule := range sheet.Rules {
				for _, sel := range rule.Selectors {
					if !e.matches(node, sel) {
						continue
					}
					a, b, c := sel.Specificity()
					for _, d := range rule.Declarations {
						decls = append(decls, weightedDecl{decl: d, origin: origin, a: a, b: b, c: c, order: order})
						order++
					}
					break
				}
			}
		}
	}

	collect(e.uaSheets, originUserAgent)

	for _, d := range presentationalHints(node) {
		decls = append(decls, weightedDecl{decl: d, origin: originPresentational, order: order})
		order++
	}

	collect(scoped, originAuthor)

	if inline := attr(node, "style"); inline != "" {
		for _, d := range parser.ParseInline(inline) {
			decls = append(decls, weightedDecl{decl: d, origin: originInline, a: 1, order: order})
			order++
		}
	}

	sort.SliceStable(decls, func(i, j int) bool {
		di, dj := decls[i], decls[j]
		if ri, rj := cascadeRank(di), cascadeRank(dj); ri != rj {
			return ri < rj
		}
		if di.a != dj.a {
			return di.a < dj.a
		}
		if di.b != dj.b {
			return di.b < dj.b
		}
		if di.c != dj.c {
			return di.c < dj.c
		}
		return di.order < dj.order
	})

	styles := make(map[parser.Property]parser.Value)
	styledDisplay := false
	for _, d := range decls {
		styles[d.decl.Property] = d.decl.Value
		if d.decl.Property == "display" && d.origin != originUserAgent {
			styledDisplay = true
		}
	}

	// The hidden attribute behaves like a weak display:none: it overrides
	// the user-agent display but yields to any author or inline display.
	if !styledDisplay && hasAttr(node, "hidden") {
		styles["display"] = "none"
	}

	expandShorthands(styles)
	return styles
}

// presentationalHints maps sizing attributes on replaced elements to the
// equivalent CSS, sitting between the UA sheet and author styles.
func presentationalHints(node *html.Node) []parser.Declaration {
	switch strings.ToLower(node.Data) {
	case "img", "iframe", "video", "canvas", "embed", "object", "td", "th":
	default:
		return nil
	}
	var decls []parser.Declaration
	for _, prop := range []parser.Property{"width", "height"} {
		raw, ok := lookupAttr(node, string(prop))
		if !ok {
			continue
		}
		raw = strings.TrimSpace(strings.TrimSuffix(raw, "px"))
		if _, err := strconv.ParseFloat(raw, 64); err != nil {
			continue
		}
		decls = append(decls, parser.Declaration{Property: prop, Value: parser.Value(raw + "px")})
	}
	return decls
}

func expandShorthands(styles map[parser.Property]parser.Value) {
	expandBox(styles, "margin", "margin-top", "margin-right", "margin-bottom", "margin-left")
	expandBox(styles, "padding", "padding-top", "padding-right", "padding-bottom", "padding-left")
	if overflow, ok := styles["overflow"]; ok {
		parts := strings.Fields(string(overflow))
		switch len(parts) {
		case 1:
			styles["overflow-x"], styles["overflow-y"] = overflow, overflow
		case 2:
			styles["overflow-x"], styles["overflow-y"] = parser.Value(parts[0]), parser.Value(parts[1])
		}
	}
	expandBox(styles, "inset", "top", "right", "bottom", "left")
}

func expandBox(styles map[parser.Property]parser.Value, shorthand, top, right, bottom, left parser.Property) {
	val, ok := styles[shorthand]
	if !ok {
		return
	}
	parts := strings.Fields(string(val))
	set := func(t, r, b, l string) {
		styles[top], styles[right] = parser.Value(t), parser.Value(r)
		styles[bottom], styles[left] = parser.Value(b), parser.Value(l)
	}
	switch len(parts) {
	case 1:
		set(parts[0], parts[0], parts[0], parts[0])
	case 2:
		set(parts[0], parts[1], parts[0], parts[1])
	case 3:
		set(parts[0], parts[1], parts[2], parts[1])
	case 4:
		set(parts[0], parts[1], parts[2], parts[3])
	}
}

func (e *Engine) inherit(sn *StyledNode, parent *StyledNode) {
	if parent == nil {
		if _, ok := sn.Computed["font-size"]; !ok {
			sn.Computed["font-size"] = "16px"
		}
		return
	}
	for prop, val := range sn.Computed {
		if val == "inherit" {
			if pv, ok := parent.Computed[prop]; ok {
				sn.Computed[prop] = pv
			}
		}
	}
	for _, prop := range inheritedProperties {
		if _, ok := sn.Computed[prop]; ok {
			continue
		}
		if pv, ok := parent.Computed[prop]; ok {
			sn.Computed[prop] = pv
		}
	}
}

func (e *Engine) resolveFontSize(sn *StyledNode, parent *StyledNode) {
	parentSize := BaseFontSize
	if parent != nil {
		parentSize = ParsePx(parent.Lookup("font-size", "16px"), BaseFontSize)
	}
	if raw, ok := sn.Computed["font-size"]; ok {
		resolved := ParseLength(string(raw), parentSize, parentSize, e.vw, e.vh)
		sn.Computed["font-size"] = parser.Value(strconv.FormatFloat(resolved, 'f', -1, 64) + "px")
	}
}

// -- Selector matching --

func (e *Engine) matches(node *html.Node, sel parser.ComplexSelector) bool {
	return e.matchFrom(node, sel, len(sel.Parts)-1)
}

func (e *Engine) matchFrom(node *html.Node, sel parser.ComplexSelector, idx int) bool {
	if idx < 0 {
		return true
	}
	if node == nil || node.Type != html.ElementNode {
		return false
	}
	if !matchesCompound(node, sel.Parts[idx].Compound) {
		return false
	}
	if idx == 0 {
		return true
	}
	switch sel.Parts[idx].Combinator {
	case parser.CombinatorChild:
		return e.matchFrom(elementParent(node), sel, idx-1)
	case parser.CombinatorAdjacentSibling:
		return e.matchFrom(prevElement(node), sel, idx-1)
	case parser.CombinatorGeneralSibling:
		for sib := prevElement(node); sib != nil; sib = prevElement(sib) {
			if e.matchFrom(sib, sel, idx-1) {
				return true
			}
		}
		return false
	default: // descendant
		for anc := elementParent(node); anc != nil; anc = elementParent(anc) {
			if e.matchFrom(anc, sel, idx-1) {
				return true
			}
		}
		return false
	}
}

func matchesCompound(node *html.Node, c parser.CompoundSelector) bool {
	if c.Tag != "" && c.Tag != "*" && !strings.EqualFold(node.Data, c.Tag) {
		return false
	}
	if c.ID != "" && attr(node, "id") != c.ID {
		return false
	}
	for _, class := range c.Classes {
		if !hasClass(node, class) {
			return false
		}
	}
	for _, as := range c.Attrs {
		if !matchesAttr(node, as) {
			return false
		}
	}
	return true
}

func matchesAttr(node *html.Node, sel parser.AttrSelector) bool {
	val, ok := lookupAttr(node, sel.Name)
	if !ok {
		return false
	}
	switch sel.Operator {
	case "":
		return true
	case "=":
		return val == sel.Value
	case "~=":
		for _, f := range strings.Fields(val) {
			if f == sel.Value {
				return true
			}
		}
		return false
	case "|=":
		return val == sel.Value || strings.HasPrefix(val, sel.Value+"-")
	case "^=":
		return sel.Value != "" && strings.HasPrefix(val, sel.Value)
	case "$=":
		return sel.Value != "" && strings.HasSuffix(val, sel.Value)
	case "*=":
		return sel.Value != "" && strings.Contains(val, sel.Value)
	default:
		return false
	}
}

// -- StyledNode accessors --

// Lookup returns the computed value for property, or fallback when unset.
func (sn *StyledNode) Lookup(property, fallback string) string {
	if v, ok := sn.Computed[parser.Property(property)]; ok {
		return string(v)
	}
	return fallback
}

type DisplayType int

const (
	DisplayBlock DisplayType = iota
	DisplayInline
	DisplayInlineBlock
	DisplayNone
)

func (sn *StyledNode) Display() DisplayType {
	if sn.Node.Type == html.TextNode {
		return DisplayInline
	}
	switch sn.Lookup("display", "") {
	case "none":
		return DisplayNone
	case "inline":
		return DisplayInline
	case "inline-block", "inline-flex", "inline-grid":
		return DisplayInlineBlock
	case "":
		return defaultDisplay(sn.Node)
	default:
		// block, flex, grid, table and friends all occupy their own row
		// as far as the geometry estimator is concerned.
		return DisplayBlock
	}
}

func defaultDisplay(node *html.Node) DisplayType {
	if node.Type != html.ElementNode {
		return DisplayInline
	}
	switch strings.ToLower(node.Data) {
	case "html", "body", "div", "p", "h1", "h2", "h3", "h4", "h5", "h6",
		"ul", "ol", "li", "form", "fieldset", "header", "footer", "section",
		"article", "nav", "main", "aside", "table", "pre", "blockquote",
		"details", "summary", "dialog":
		return DisplayBlock
	case "input", "button", "textarea", "select", "img", "svg", "iframe",
		"video", "canvas":
		return DisplayInlineBlock
	case "head", "script", "style", "noscript", "meta", "link", "title", "template":
		return DisplayNone
	default:
		return DisplayInline
	}
}

type PositionType int

const (
	PositionStatic PositionType = iota
	PositionRelative
	PositionAbsolute
	PositionFixed
	PositionSticky
)

func (sn *StyledNode) Position() PositionType {
	switch sn.Lookup("position", "static") {
	case "relative":
		return PositionRelative
	case "absolute":
		return PositionAbsolute
	case "fixed":
		return PositionFixed
	case "sticky":
		return PositionSticky
	default:
		return PositionStatic
	}
}

// Positioned reports whether the node participates in positioned stacking.
func (sn *StyledNode) Positioned() bool {
	return sn.Position() != PositionStatic
}

// Visibility returns the computed visibility keyword.
func (sn *StyledNode) Visibility() string {
	return sn.Lookup("visibility", "visible")
}

// Opacity returns the computed opacity clamped to [0, 1].
func (sn *StyledNode) Opacity() float64 {
	raw := sn.Lookup("opacity", "1")
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 1
	}
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// ZIndex returns the numeric z-index and whether it was explicitly set to
// a parseable number. "auto" and garbage report (0, false).
func (sn *StyledNode) ZIndex() (int, bool) {
	raw := strings.TrimSpace(sn.Lookup("z-index", "auto"))
	if raw == "" || raw == "auto" {
		return 0, false
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return v, true
}

// Cursor returns the computed cursor keyword.
func (sn *StyledNode) Cursor() string {
	return sn.Lookup("cursor", "auto")
}

// PointerEvents returns the computed pointer-events keyword.
func (sn *StyledNode) PointerEvents() string {
	return sn.Lookup("pointer-events", "auto")
}

// OverflowX and OverflowY return the per-axis overflow keywords.
func (sn *StyledNode) OverflowX() string { return sn.Lookup("overflow-x", "visible") }
func (sn *StyledNode) OverflowY() string { return sn.Lookup("overflow-y", "visible") }

// IsRendered reports whether the node generates any box at all.
func (sn *StyledNode) IsRendered() bool {
	return sn.Display() != DisplayNone
}

// -- Value parsing --

// ParsePx parses a value that is already resolved to pixels.
func ParsePx(value string, fallback float64) float64 {
	value = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(value), "px"))
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return v
}

// ParseLength resolves a CSS length against its reference dimensions.
// Unsupported units and keywords resolve to 0.
func ParseLength(value string, fontSize, reference, vw, vh float64) float64 {
	value = strings.TrimSpace(value)
	if value == "" || value == "auto" || value == "normal" || value == "none" {
		return 0
	}
	parse := func(suffix string) (float64, bool) {
		if !strings.HasSuffix(value, suffix) {
			return 0, false
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(value, suffix)), 64)
		if err != nil {
			return 0, false
		}
		return v, true
	}
	if v, ok := parse("px"); ok {
		return v
	}
	if v, ok := parse("%"); ok {
		return v / 100 * reference
	}
	if v, ok := parse("rem"); ok {
		return v * BaseFontSize
	}
	if v, ok := parse("em"); ok {
		return v * fontSize
	}
	if v, ok := parse("vw"); ok {
		return v / 100 * vw
	}
	if v, ok := parse("vh"); ok {
		return v / 100 * vh
	}
	if v, err := strconv.ParseFloat(value, 64); err == nil {
		return v
	}
	return 0
}

// -- DOM helpers --

func attr(node *html.Node, name string) string {
	v, _ := lookupAttr(node, name)
	return v
}

func lookupAttr(node *html.Node, name string) (string, bool) {
	for _, a := range node.Attr {
		if strings.EqualFold(a.Key, name) {
			return a.Val, true
		}
	}
	return "", false
}

func hasAttr(node *html.Node, name string) bool {
	_, ok := lookupAttr(node, name)
	return ok
}

func hasClass(node *html.Node, class string) bool {
	for _, f := range strings.Fields(attr(node, "class")) {
		if f == class {
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

func prevElement(node *html.Node) *html.Node {
	for s := node.PrevSibling; s != nil; s = s.PrevSibling {
		if s.Type == html.ElementNode {
			return s
		}
	}
	return nil
}
