// internal/browser/analyzer/xpath.go
package analyzer

import (
	"fmt"
	"strings"

	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"
)

// xpathFor builds a stable XPath for a node: /lowertag[n] segments with
// 1-based indices counting same-tag previous element siblings. The path
// collapses at the nearest self-or-ancestor element carrying an id, which
// keeps the expressions short and resilient to layout churn above it.
func xpathFor(node *html.Node) string {
	if node == nil {
		return ""
	}

	var segments []string
	for n := node; n != nil && n.Type != html.DocumentNode; n = n.Parent {
		if n.Type != html.ElementNode {
			continue
		}
		tag := strings.ToLower(n.Data)
		if tag == "" {
			continue
		}

		if id := htmlquery.SelectAttr(n, "id"); id != "" {
			segments = append(segments, fmt.Sprintf(`//*[@id="%s"]`, id))
			break
		}

		index := 1
		for prev := n.PrevSibling; prev != nil; prev = prev.PrevSibling {
			if prev.Type == html.ElementNode && strings.EqualFold(prev.Data, tag) {
				index++
			}
		}
		segments = append(segments, fmt.Sprintf("%s[%d]", tag, index))
	}

	if len(segments) == 0 {
		return "/"
	}
	for i, j := 0, len(segments)-1; i < j; i, j = i+1, j-1 {
		segments[i], segments[j] = segments[j], segments[i]
	}

	xpath := strings.Join(segments, "/")
	if !strings.HasPrefix(xpath, `//*[@id=`) {
		xpath = "/" + xpath
	}
	return xpath
}
