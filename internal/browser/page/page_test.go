// internal/browser/page/page_test.go
package page_test

import (
	"testing"

	"github.com/antchfx/htmlquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	"github.com/xkilldash9x/domlens/internal/browser/page"
)

func buildPage(t *testing.T, src string, opts page.Options) *page.Page {
	t.Helper()
	pg, err := page.New(src, opts)
	require.NoError(t, err)
	return pg
}

func mustFind(t *testing.T, pg *page.Page, xpath string) *html.Node {
	t.Helper()
	node := htmlquery.FindOne(pg.Document(), xpath)
	require.NotNil(t, node, "fixture error: %s not found", xpath)
	return node
}

func TestDefaultViewport(t *testing.T) {
	pg := buildPage(t, `<html><body></body></html>`, page.Options{})
	win := pg.Window()
	assert.Equal(t, 1280.0, win.Width)
	assert.Equal(t, 720.0, win.Height)
}

func TestBodyResolution(t *testing.T) {
	pg := buildPage(t, `<html><body><p>x</p></body></html>`, page.Options{})
	body := pg.Body()
	require.NotNil(t, body)
	assert.Equal(t, "body", body.Data)
}

func TestBoundingClientRectSubtractsScroll(t *testing.T) {
	src := `<html><body>
		<div id="static" style="position: absolute; left: 100px; top: 500px; width: 50px; height: 50px;"></div>
		<div id="pinned" style="position: fixed; left: 100px; top: 500px; width: 50px; height: 50px;"></div>
	</body></html>`
	pg := buildPage(t, src, page.Options{ScrollY: 300})

	staticRect, ok := pg.BoundingClientRect(mustFind(t, pg, `//div[@id="static"]`))
	require.True(t, ok)
	assert.Equal(t, 200.0, staticRect.Y, "scroll shifts in-document boxes")

	pinnedRect, ok := pg.BoundingClientRect(mustFind(t, pg, `//div[@id="pinned"]`))
	require.True(t, ok)
	assert.Equal(t, 500.0, pinnedRect.Y, "fixed boxes ignore scroll")
}

func TestElementFromPointPicksDeepest(t *testing.T) {
	pg := buildPage(t, `<html><body>
		<div style="width: 600px; height: 200px;">
			<button id="target" style="position: absolute; left: 10px; top: 10px; width: 100px; height: 40px;">Hit</button>
		</div>
	</body></html>`, page.Options{})

	hit := pg.ElementFromPoint(30, 20)
	require.NotNil(t, hit)
	assert.Equal(t, "target", htmlquery.SelectAttr(hit, "id"))
}

func TestElementFromPointRespectsZIndex(t *testing.T) {
	pg := buildPage(t, `<html><body>
		<div id="low" style="position: absolute; left: 0; top: 0; width: 200px; height: 200px; z-index: 1;"></div>
		<div id="high" style="position: absolute; left: 0; top: 0; width: 200px; height: 200px; z-index: 5;"></div>
	</body></html>`, page.Options{})

	hit := pg.ElementFromPoint(100, 100)
	require.NotNil(t, hit)
	assert.Equal(t, "high", htmlquery.SelectAttr(hit, "id"))
}

func TestElementFromPointSkipsPointerEventsNone(t *testing.T) {
	pg := buildPage(t, `<html><body>
		<button id="under" style="position: absolute; left: 0; top: 0; width: 100px; height: 40px;">under</button>
		<div id="glass" style="position: absolute; left: 0; top: 0; width: 400px; height: 400px; z-index: 10; pointer-events: none;"></div>
	</body></html>`, page.Options{})

	hit := pg.ElementFromPoint(50, 20)
	require.NotNil(t, hit)
	assert.Equal(t, "under", htmlquery.SelectAttr(hit, "id"))
}

func TestInnerTextSkipsHiddenSubtrees(t *testing.T) {
	pg := buildPage(t, `<html><body>
		<div id="root">visible <span style="display: none;">gone</span><span>tail</span></div>
	</body></html>`, page.Options{})

	text := pg.InnerText(mustFind(t, pg, `//div[@id="root"]`))
	assert.Equal(t, "visible tail", text)
}

func TestTextContentKeepsHiddenText(t *testing.T) {
	pg := buildPage(t, `<html><body>
		<div id="root">visible <span style="display: none;">gone</span></div>
	</body></html>`, page.Options{})

	text := page.TextContent(mustFind(t, pg, `//div[@id="root"]`))
	assert.Equal(t, "visible gone", text)
}

func TestDirectText(t *testing.T) {
	pg := buildPage(t, `<html><body><div id="d">direct <span>nested</span> more</div></body></html>`, page.Options{})
	assert.Equal(t, "direct more", page.DirectText(mustFind(t, pg, `//div[@id="d"]`)))
}

func TestContentDocumentFromSrcdoc(t *testing.T) {
	pg := buildPage(t, `<html><body>
		<iframe srcdoc="<html><body><p>inner</p></body></html>" width="400" height="200"></iframe>
	</body></html>`, page.Options{})

	frame := mustFind(t, pg, "//iframe")
	sub, err := pg.ContentDocument(frame)
	require.NoError(t, err)
	require.NotNil(t, sub)

	assert.Equal(t, 400.0, sub.Window().Width, "frame viewport matches the frame box")
	inner := htmlquery.FindOne(sub.Document(), "//p")
	require.NotNil(t, inner)

	// Resolution is cached per frame element.
	again, err := pg.ContentDocument(frame)
	require.NoError(t, err)
	assert.Same(t, sub, again)
}

func TestContentDocumentCrossOrigin(t *testing.T) {
	pg := buildPage(t, `<html><body>
		<iframe src="https://evil.example.net/ad"></iframe>
	</body></html>`, page.Options{BaseURL: "https://site.example.com/"})

	_, err := pg.ContentDocument(mustFind(t, pg, "//iframe"))
	assert.ErrorIs(t, err, page.ErrCrossOrigin)
}

func TestContentDocumentSameOriginViaLoader(t *testing.T) {
	loaded := ""
	loader := func(src string) (string, error) {
		loaded = src
		return `<html><body><button>inner</button></body></html>`, nil
	}
	pg := buildPage(t, `<html><body><iframe src="/embed"></iframe></body></html>`, page.Options{
		BaseURL: "https://site.example.com/page",
		Loader:  loader,
	})

	sub, err := pg.ContentDocument(mustFind(t, pg, "//iframe"))
	require.NoError(t, err)
	require.NotNil(t, sub)
	assert.Equal(t, "https://site.example.com/embed", loaded)
}

func TestContentDocumentWithoutLoaderIsBlocked(t *testing.T) {
	pg := buildPage(t, `<html><body><iframe src="/embed"></iframe></body></html>`, page.Options{
		BaseURL: "https://site.example.com/",
	})
	_, err := pg.ContentDocument(mustFind(t, pg, "//iframe"))
	assert.ErrorIs(t, err, page.ErrCrossOrigin)
}

func TestDisplayNoneHasNoBox(t *testing.T) {
	pg := buildPage(t, `<html><body><div id="gone" style="display: none;"></div></body></html>`, page.Options{})
	_, ok := pg.BoundingClientRect(mustFind(t, pg, `//div[@id="gone"]`))
	assert.False(t, ok)
}
