// internal/browser/analyzer/filter.go
package analyzer

import (
	"strconv"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/net/html"
)

// filterCandidates prunes nested and visually redundant candidates so
// exactly one target survives per clickable region. Two passes:
// containment (innermost wins, except anchors wrapping plain content) and
// visual overlap (smaller area wins unless the larger is top-at-point).
func (ctx *walkContext) filterCandidates() []*candidate {
	cands := ctx.candidates
	dropped := make([]bool, len(cands))
	reasons := make([]string, len(cands))

	// Containment pass. Pairs are only comparable within one document.
	for i, outer := range cands {
		if dropped[i] {
			continue
		}
		for j, inner := range cands {
			if dropped[i] {
				break
			}
			if i == j || dropped[j] || outer.pg != inner.pg {
				continue
			}
			if !strictlyContains(outer.el, inner.el) {
				continue
			}
			if outer.tag == "a" && !isAnchorLike(inner) {
				// Anchors stay primary even when they wrap arbitrary
				// markup; the wrapped content is not a separate target.
				dropped[j] = true
				reasons[j] = "inside-anchor"
				continue
			}
			dropped[i] = true
			reasons[i] = "has-inner-target"
		}
	}

	// Visual-overlap pass between unrelated candidates.
	for i := range cands {
		if dropped[i] {
			continue
		}
		for j := i + 1; j < len(cands); j++ {
			if dropped[i] {
				break
			}
			if dropped[j] || cands[i].pg != cands[j].pg {
				continue
			}
			a, b := cands[i], cands[j]
			if strictlyContains(a.el, b.el) || strictlyContains(b.el, a.el) {
				continue
			}
			if !rectsOverlap(a.rect, b.rect) {
				continue
			}
			larger, largerIdx := a, i
			if b.rect.Area() > a.rect.Area() {
				larger, largerIdx = b, j
			}
			if larger.isTop {
				continue
			}
			dropped[largerIdx] = true
			reasons[largerIdx] = "overlapped-by-smaller"
		}
	}

	survivors := make([]*candidate, 0, len(cands))
	for i, c := range cands {
		if !dropped[i] {
			survivors = append(survivors, c)
		}
	}

	if ctx.opts.DebugMode {
		fields := make([]zap.Field, 0, len(cands)+2)
		fields = append(fields,
			zap.Int("candidates", len(cands)),
			zap.Int("survivors", len(survivors)),
		)
		for i, c := range cands {
			outcome := "kept"
			if dropped[i] {
				outcome = reasons[i]
			}
			fields = append(fields, zap.String(c.tag+"#"+strconv.Itoa(int(c.id)), outcome))
		}
		ctx.log.Debug("candidate filtering results", fields...)
	}
	return survivors
}

// isAnchorLike marks candidates that keep their own identity inside a
// wrapping anchor.
func isAnchorLike(c *candidate) bool {
	if c.tag == "a" || c.tag == "button" {
		return true
	}
	role, _ := getAttr(c.el, "role")
	return strings.EqualFold(strings.TrimSpace(role), "button")
}

func strictlyContains(anc, node *html.Node) bool {
	if anc == node {
		return false
	}
	return contains(anc, node)
}
