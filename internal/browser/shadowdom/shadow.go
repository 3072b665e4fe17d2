// internal/browser/shadowdom/shadow.go

// Package shadowdom handles Declarative Shadow DOM: detecting hosts,
// instantiating shadow trees from <template shadowrootmode> elements, and
// extracting the encapsulated stylesheets.
package shadowdom

import (
	"strings"

	"golang.org/x/net/html"

	"github.com/xkilldash9x/domlens/internal/browser/parser"
	"github.com/xkilldash9x/domlens/internal/browser/style"
)

// Engine implements style.ShadowDOMProcessor over declarative templates.
type Engine struct{}

var _ style.ShadowDOMProcessor = (*Engine)(nil)

func New() *Engine { return &Engine{} }

// DetectShadowHost reports whether node carries a direct child
// <template shadowrootmode="..."> and therefore hosts a shadow tree.
func (e *Engine) DetectShadowHost(node *html.Node) bool {
	return shadowTemplate(node) != nil
}

// InstantiateShadowRoot clones the template content into a fresh synthetic
// root and pulls any <style> blocks out as scoped stylesheets, the way a
// browser materializes a declarative shadow root.
func (e *Engine) InstantiateShadowRoot(host *html.Node) (*html.Node, []parser.StyleSheet) {
	tmpl := shadowTemplate(host)
	if tmpl == nil {
		return nil, nil
	}

	// net/html parses template content into a nested document fragment.
	content := tmpl
	if tmpl.FirstChild != nil && tmpl.FirstChild.Type == html.DocumentNode {
		content = tmpl.FirstChild
	}

	root := &html.Node{Type: html.DocumentNode, Data: "shadow-root"}
	for c := content.FirstChild; c != nil; c = c.NextSibling {
		root.AppendChild(cloneTree(c))
	}

	var sheets []parser.StyleSheet
	var styleNodes []*html.Node
	var scan func(*html.Node)
	scan = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "style":
				if n.FirstChild != nil && n.FirstChild.Type == html.TextNode {
					sheets = append(sheets, parser.NewParser(n.FirstChild.Data).Parse())
				}
				styleNodes = append(styleNodes, n)
				return
			case "template":
				// Nested templates stay inert until their own host is built.
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			scan(c)
		}
	}
	scan(root)

	for _, n := range styleNodes {
		if n.Parent != nil {
			n.Parent.RemoveChild(n)
		}
	}
	return root, sheets
}

func shadowTemplate(node *html.Node) *html.Node {
	if node == nil || node.Type != html.ElementNode {
		return nil
	}
	for c := node.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.Data == "template" && templateMode(c) != "" {
			return c
		}
	}
	return nil
}

func templateMode(tmpl *html.Node) string {
	for _, a := range tmpl.Attr {
		if strings.EqualFold(a.Key, "shadowrootmode") {
			return a.Val
		}
	}
	return ""
}

// cloneTree deep-copies a node so the inert template stays untouched.
func cloneTree(n *html.Node) *html.Node {
	clone := &html.Node{
		Type:     n.Type,
		DataAtom: n.DataAtom,
		Data:     n.Data,
		Attr:     make([]html.Attribute, len(n.Attr)),
	}
	copy(clone.Attr, n.Attr)
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		clone.AppendChild(cloneTree(c))
	}
	return clone
}
