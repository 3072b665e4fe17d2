// internal/browser/analyzer/interactive.go
package analyzer

import (
	"strings"

	"golang.org/x/net/html"

	"github.com/xkilldash9x/domlens/internal/browser/page"
)

// interactiveRoles are the ARIA roles that mark an element as a user
// target regardless of its tag.
var interactiveRoles = map[string]bool{
	"button": true, "link": true, "checkbox": true, "radio": true,
	"tab": true, "menuitem": true, "option": true, "switch": true,
	"slider": true, "spinbutton": true, "combobox": true, "listbox": true,
	"searchbox": true, "textbox": true, "dialog": true, "alertdialog": true,
}

// interactiveHints is the deliberately permissive tail: class/id substrings
// that in practice mark clickable chrome. Matched as plain substrings, not
// CSS attribute selectors, which fall off a performance cliff on large
// documents.
var interactiveHints = []string{"button", "btn", "popup", "modal", "dialog", "overlay"}

// isInteractive classifies a single element. Probe failures (stale nodes,
// missing styles) are treated as non-matches.
func isInteractive(pg *page.Page, el *html.Node) bool {
	if el == nil || el.Type != html.ElementNode {
		return false
	}
	tag := strings.ToLower(el.Data)

	switch tag {
	case "a":
		if _, ok := getAttr(el, "href"); ok {
			return !isEmptyAnchor(pg, el)
		}
		if _, ok := getAttr(el, "role"); ok {
			return !isEmptyAnchor(pg, el)
		}
		return false
	case "button", "input", "select", "textarea", "summary", "details":
		return true
	case "label":
		if v, ok := getAttr(el, "for"); ok && v != "" {
			return true
		}
	}

	if role, ok := getAttr(el, "role"); ok && interactiveRoles[strings.ToLower(strings.TrimSpace(role))] {
		return true
	}
	if _, ok := getAttr(el, "tabindex"); ok {
		return true
	}
	if _, ok := getAttr(el, "onclick"); ok {
		return true
	}
	if v, ok := getAttr(el, "contenteditable"); ok && strings.EqualFold(v, "true") {
		return true
	}
	if v, ok := getAttr(el, "draggable"); ok && strings.EqualFold(v, "true") {
		return true
	}
	if v, ok := getAttr(el, "aria-modal"); ok && strings.EqualFold(v, "true") {
		return true
	}

	haystack := strings.ToLower(attrOr(el, "class", "") + " " + attrOr(el, "id", "") + " " +
		attrOr(el, "data-testid", "") + " " + attrOr(el, "data-test-id", ""))
	for _, hint := range interactiveHints {
		if strings.Contains(haystack, hint) {
			return true
		}
	}

	// Pointer cursors promote plain containers to targets.
	if tag == "div" || tag == "span" {
		if sn := pg.Styled(el); sn != nil && sn.Cursor() == "pointer" {
			return true
		}
	}
	return false
}

// isEmptyAnchor detects anchors with nothing a user could perceive: no
// rendered text, no accessible name, no graphic descendant. Those are
// never real targets.
func isEmptyAnchor(pg *page.Page, el *html.Node) bool {
	if strings.TrimSpace(pg.InnerText(el)) != "" {
		return false
	}
	if v, ok := getAttr(el, "aria-label"); ok && strings.TrimSpace(v) != "" {
		return false
	}
	if v, ok := getAttr(el, "title"); ok && strings.TrimSpace(v) != "" {
		return false
	}
	return !hasGraphicDescendant(el)
}

func hasGraphicDescendant(el *html.Node) bool {
	for c := el.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			switch strings.ToLower(c.Data) {
			case "img", "svg":
				return true
			}
			if v, ok := getAttr(c, "role"); ok && strings.EqualFold(v, "img") {
				return true
			}
			if hasGraphicDescendant(c) {
				return true
			}
		}
	}
	return false
}

func getAttr(el *html.Node, name string) (string, bool) {
	for _, a := range el.Attr {
		if strings.EqualFold(a.Key, name) {
			return a.Val, true
		}
	}
	return "", false
}

func attrOr(el *html.Node, name, fallback string) string {
	if v, ok := getAttr(el, name); ok {
		return v
	}
	return fallback
}
