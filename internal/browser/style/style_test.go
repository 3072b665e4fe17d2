// internal/browser/style/style_test.go
package style_test

import (
	"strings"
	"testing"

	"github.com/antchfx/htmlquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	"github.com/xkilldash9x/domlens/internal/browser/parser"
	"github.com/xkilldash9x/domlens/internal/browser/shadowdom"
	"github.com/xkilldash9x/domlens/internal/browser/style"
)

// setupStyleTree parses HTML plus optional author CSS and resolves the
// style tree for the root element.
func setupStyleTree(t *testing.T, htmlSrc, css string) (*style.StyledNode, *html.Node) {
	t.Helper()

	doc, err := htmlquery.Parse(strings.NewReader(htmlSrc))
	require.NoError(t, err, "failed to parse test HTML")

	var root *html.Node
	for n := doc.FirstChild; n != nil; n = n.NextSibling {
		if n.Type == html.ElementNode {
			root = n
			break
		}
	}
	require.NotNil(t, root, "no root element in fixture")

	engine := style.NewEngine(shadowdom.New())
	engine.SetViewport(1280, 720)
	if css != "" {
		engine.AddAuthorSheet(parser.NewParser(css).Parse())
	}
	return engine.BuildTree(root, nil), doc
}

func findStyled(sn *style.StyledNode, tag string) *style.StyledNode {
	if sn.Node.Type == html.ElementNode && strings.EqualFold(sn.Node.Data, tag) {
		return sn
	}
	if sn.ShadowRoot != nil {
		if found := findStyled(sn.ShadowRoot, tag); found != nil {
			return found
		}
	}
	for _, c := range sn.Children {
		if found := findStyled(c, tag); found != nil {
			return found
		}
	}
	return nil
}

func TestDefaultDisplayTypes(t *testing.T) {
	tree, _ := setupStyleTree(t, `<html><body><div></div><span></span><button></button></body></html>`, "")

	assert.Equal(t, style.DisplayBlock, findStyled(tree, "div").Display())
	assert.Equal(t, style.DisplayInline, findStyled(tree, "span").Display())
	assert.Equal(t, style.DisplayInlineBlock, findStyled(tree, "button").Display())
}

func TestAuthorOverridesUserAgent(t *testing.T) {
	tree, _ := setupStyleTree(t,
		`<html><body><div class="hide"></div></body></html>`,
		`.hide { display: none; }`)

	assert.Equal(t, style.DisplayNone, findStyled(tree, "div").Display())
}

func TestInlineBeatsAuthor(t *testing.T) {
	tree, _ := setupStyleTree(t,
		`<html><body><div style="display: inline;"></div></body></html>`,
		`div { display: none; }`)

	assert.Equal(t, style.DisplayInline, findStyled(tree, "div").Display())
}

func TestImportantBeatsInline(t *testing.T) {
	tree, _ := setupStyleTree(t,
		`<html><body><div style="color: blue;"></div></body></html>`,
		`div { color: red !important; }`)

	assert.Equal(t, "red", findStyled(tree, "div").Lookup("color", ""))
}

func TestSpecificityOrdering(t *testing.T) {
	tree, _ := setupStyleTree(t,
		`<html><body><div id="x" class="c"></div></body></html>`,
		`div { color: red; } .c { color: green; } #x { color: blue; }`)

	assert.Equal(t, "blue", findStyled(tree, "div").Lookup("color", ""))
}

func TestVisibilityAndCursorInherit(t *testing.T) {
	tree, _ := setupStyleTree(t,
		`<html><body><div style="visibility: hidden; cursor: pointer;"><span></span></div></body></html>`, "")

	span := findStyled(tree, "span")
	assert.Equal(t, "hidden", span.Visibility())
	assert.Equal(t, "pointer", span.Cursor())
}

func TestHiddenAttributeActsAsDisplayNone(t *testing.T) {
	tree, _ := setupStyleTree(t, `<html><body><div hidden></div></body></html>`, "")
	assert.Equal(t, style.DisplayNone, findStyled(tree, "div").Display())

	// An explicit display wins over the attribute, as in the cascade.
	tree, _ = setupStyleTree(t, `<html><body><div hidden style="display: block;"></div></body></html>`, "")
	assert.Equal(t, style.DisplayBlock, findStyled(tree, "div").Display())
}

func TestZIndexParsing(t *testing.T) {
	tree, _ := setupStyleTree(t,
		`<html><body>
			<div id="a" style="z-index: 42;"></div>
			<div id="b" style="z-index: auto;"></div>
			<div id="c"></div>
		</body></html>`, "")

	a := findStyled(tree, "div")
	z, ok := a.ZIndex()
	assert.True(t, ok)
	assert.Equal(t, 42, z)

	for _, c := range a.Parent.Children {
		if c.Node.Type != html.ElementNode {
			continue
		}
		if id := attrValue(c.Node, "id"); id == "b" || id == "c" {
			_, ok := c.ZIndex()
			assert.False(t, ok, "z-index must be unset for #%s", id)
		}
	}
}

func TestOpacityClamping(t *testing.T) {
	tree, _ := setupStyleTree(t,
		`<html><body><div style="opacity: 2.5;"><p style="opacity: 0;"></p></div></body></html>`, "")

	assert.Equal(t, 1.0, findStyled(tree, "div").Opacity())
	assert.Equal(t, 0.0, findStyled(tree, "p").Opacity())
}

func TestOverflowShorthandExpands(t *testing.T) {
	tree, _ := setupStyleTree(t,
		`<html><body><div style="overflow: auto;"></div></body></html>`, "")

	div := findStyled(tree, "div")
	assert.Equal(t, "auto", div.OverflowX())
	assert.Equal(t, "auto", div.OverflowY())
}

func TestPresentationalSizeHints(t *testing.T) {
	tree, _ := setupStyleTree(t,
		`<html><body><iframe width="400" height="320"></iframe></body></html>`, "")

	frame := findStyled(tree, "iframe")
	assert.Equal(t, "400px", frame.Lookup("width", ""))
	assert.Equal(t, "320px", frame.Lookup("height", ""))
}

func TestAnchorGetsPointerCursorFromUASheet(t *testing.T) {
	tree, _ := setupStyleTree(t, `<html><body><a href="/x">go</a></body></html>`, "")
	assert.Equal(t, "pointer", findStyled(tree, "a").Cursor())
}

func TestFontSizeResolvesRelativeUnits(t *testing.T) {
	tree, _ := setupStyleTree(t,
		`<html><body style="font-size: 20px;"><div style="font-size: 2em;"></div></body></html>`, "")

	size := style.ParsePx(findStyled(tree, "div").Lookup("font-size", ""), 0)
	assert.InDelta(t, 40.0, size, 0.01)
}

func TestDescendantCombinator(t *testing.T) {
	tree, _ := setupStyleTree(t,
		`<html><body><div class="outer"><p><span></span></p></div><span id="free"></span></body></html>`,
		`.outer span { color: red; }`)

	inner := findStyled(tree, "span")
	assert.Equal(t, "red", inner.Lookup("color", ""))

	// The span outside .outer must not match.
	var free *style.StyledNode
	var walk func(*style.StyledNode)
	walk = func(sn *style.StyledNode) {
		if sn.Node.Type == html.ElementNode && attrValue(sn.Node, "id") == "free" {
			free = sn
		}
		for _, c := range sn.Children {
			walk(c)
		}
	}
	walk(tree)
	require.NotNil(t, free)
	assert.NotEqual(t, "red", free.Lookup("color", ""))
}

func attrValue(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return a.Val
		}
	}
	return ""
}
