// internal/browser/layout/layout_test.go
package layout_test

import (
	"strings"
	"testing"

	"github.com/antchfx/htmlquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	"github.com/xkilldash9x/domlens/internal/browser/layout"
	"github.com/xkilldash9x/domlens/internal/browser/parser"
	"github.com/xkilldash9x/domlens/internal/browser/shadowdom"
	"github.com/xkilldash9x/domlens/internal/browser/style"
)

// setupLayout parses HTML with optional CSS, runs the style engine, then
// lays the tree out against the given viewport.
func setupLayout(t *testing.T, htmlSrc, css string, vw, vh float64) (map[*html.Node]*layout.Box, *html.Node) {
	t.Helper()

	doc, err := htmlquery.Parse(strings.NewReader(htmlSrc))
	require.NoError(t, err)

	var root *html.Node
	for n := doc.FirstChild; n != nil; n = n.NextSibling {
		if n.Type == html.ElementNode {
			root = n
			break
		}
	}
	require.NotNil(t, root)

	styleEngine := style.NewEngine(shadowdom.New())
	styleEngine.SetViewport(vw, vh)
	if css != "" {
		styleEngine.AddAuthorSheet(parser.NewParser(css).Parse())
	}
	styled := styleEngine.BuildTree(root, nil)
	require.NotNil(t, styled)

	rootBox, index := layout.NewEngine(vw, vh).BuildTree(styled)
	require.NotNil(t, rootBox)
	return index, doc
}

func boxFor(t *testing.T, index map[*html.Node]*layout.Box, doc *html.Node, xpath string) *layout.Box {
	t.Helper()
	node := htmlquery.FindOne(doc, xpath)
	require.NotNil(t, node, "fixture error: %s not found", xpath)
	box := index[node]
	require.NotNil(t, box, "no box for %s", xpath)
	return box
}

func TestBlockBoxesStackVertically(t *testing.T) {
	index, doc := setupLayout(t, `<html><body>
		<div style="height: 100px;"></div>
		<div style="height: 50px;"></div>
	</body></html>`, "", 1280, 720)

	first := boxFor(t, index, doc, "//div[1]")
	second := boxFor(t, index, doc, "//div[2]")

	assert.Equal(t, 0.0, first.Rect.Y)
	assert.Equal(t, 100.0, first.Rect.Height)
	assert.Equal(t, 100.0, second.Rect.Y, "the second block starts below the first")
	assert.Equal(t, 1280.0, first.Rect.Width, "unsized blocks fill the containing width")
}

func TestInlineBlocksShareARow(t *testing.T) {
	index, doc := setupLayout(t, `<html><body><button id="a">OK</button><button id="b">Cancel</button></body></html>`, "", 1280, 720)

	a := boxFor(t, index, doc, `//button[@id="a"]`)
	b := boxFor(t, index, doc, `//button[@id="b"]`)

	assert.Equal(t, a.Rect.Y, b.Rect.Y, "both buttons sit on the same row")
	assert.Greater(t, b.Rect.X, a.Rect.X)
}

func TestAbsolutePositioning(t *testing.T) {
	index, doc := setupLayout(t, `<html><body>
		<div id="anchor" style="position: relative; width: 500px; height: 300px;">
			<div id="child" style="position: absolute; left: 20px; top: 30px; width: 50px; height: 40px;"></div>
		</div>
	</body></html>`, "", 1280, 720)

	child := boxFor(t, index, doc, `//div[@id="child"]`)
	assert.Equal(t, 20.0, child.Rect.X)
	assert.Equal(t, 30.0, child.Rect.Y)
	assert.Equal(t, 50.0, child.Rect.Width)
}

func TestFixedBoxesAreViewportAnchored(t *testing.T) {
	index, doc := setupLayout(t, `<html><body>
		<div id="f" style="position: fixed; left: 10px; top: 20px; width: 100px; height: 60px;">
			<span id="inner">x</span>
		</div>
	</body></html>`, "", 1280, 720)

	fixed := boxFor(t, index, doc, `//div[@id="f"]`)
	assert.True(t, fixed.Fixed)
	assert.Equal(t, 10.0, fixed.Rect.X)
	assert.Equal(t, 20.0, fixed.Rect.Y)

	inner := boxFor(t, index, doc, `//span[@id="inner"]`)
	assert.True(t, inner.Fixed, "descendants of fixed boxes stay viewport-anchored")
}

func TestRightAndBottomOffsets(t *testing.T) {
	index, doc := setupLayout(t, `<html><body>
		<div id="corner" style="position: fixed; right: 0; bottom: 0; width: 200px; height: 100px;"></div>
	</body></html>`, "", 1280, 720)

	corner := boxFor(t, index, doc, `//div[@id="corner"]`)
	assert.Equal(t, 1080.0, corner.Rect.X)
	assert.Equal(t, 620.0, corner.Rect.Y)
}

func TestDisplayNoneProducesNoBox(t *testing.T) {
	index, doc := setupLayout(t, `<html><body>
		<div id="gone" style="display: none;"><button id="inner-gone">x</button></div>
		<div id="kept"></div>
	</body></html>`, "", 1280, 720)

	gone := htmlquery.FindOne(doc, `//div[@id="gone"]`)
	innerGone := htmlquery.FindOne(doc, `//button[@id="inner-gone"]`)
	assert.Nil(t, index[gone])
	assert.Nil(t, index[innerGone], "children of display:none subtrees have no boxes")

	kept := htmlquery.FindOne(doc, `//div[@id="kept"]`)
	assert.NotNil(t, index[kept])
}

func TestScrollExtentTracksOverflowingContent(t *testing.T) {
	index, doc := setupLayout(t, `<html><body>
		<div id="clip" style="height: 100px;">
			<div style="height: 400px;"></div>
		</div>
	</body></html>`, "", 1280, 720)

	clip := boxFor(t, index, doc, `//div[@id="clip"]`)
	assert.Equal(t, 100.0, clip.Rect.Height)
	assert.Equal(t, 400.0, clip.ScrollHeight)
}

func TestTextWrappingGrowsHeight(t *testing.T) {
	long := strings.Repeat("word ", 100)
	index, doc := setupLayout(t, `<html><body><p>`+long+`</p></body></html>`, "", 300, 720)

	p := boxFor(t, index, doc, "//p")
	assert.Greater(t, p.Rect.Height, 20.0, "wrapped text occupies multiple lines")
}

func TestRectHelpers(t *testing.T) {
	r := layout.Rect{X: 10, Y: 10, Width: 100, Height: 50}

	cx, cy := r.Center()
	assert.Equal(t, 60.0, cx)
	assert.Equal(t, 35.0, cy)
	assert.True(t, r.Contains(10, 10))
	assert.False(t, r.Contains(110, 60))
	assert.Equal(t, 5000.0, r.Area())

	other := layout.Rect{X: 109, Y: 10, Width: 10, Height: 10}
	assert.True(t, r.Intersects(other, 1.0))
	far := layout.Rect{X: 500, Y: 500, Width: 10, Height: 10}
	assert.False(t, r.Intersects(far, 1.0))
}
