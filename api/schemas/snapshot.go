// api/schemas/snapshot.go
package schemas

// NodeID identifies a node within a single snapshot. IDs are assigned in
// tree-walk order starting at 1 and carry no meaning across invocations.
type NodeID int

// Node type discriminators used in the serialized map.
const (
	NodeTypeElement = "ELEMENT_NODE"
	NodeTypeText    = "TEXT_NODE"
)

// Iframe content reachability markers.
const (
	IframeContentExtractable = "extractable"
	IframeContentBlocked     = "cross-origin-blocked"
)

// Rect is a viewport-relative rectangle in CSS pixels.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Area returns the rectangle's surface. Degenerate rects report zero.
func (r Rect) Area() float64 {
	if r.Width <= 0 || r.Height <= 0 {
		return 0
	}
	return r.Width * r.Height
}

// DOMNode is one entry of the snapshot map. Element, text, and iframe
// placeholder records share this shape; text records populate only Type,
// Text, IsVisible and Children, iframe placeholders additionally carry
// IframeContent and IframeDepth.
type DOMNode struct {
	Type       string            `json:"type,omitempty"`
	TagName    string            `json:"tagName,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
	XPath      string            `json:"xpath,omitempty"`

	IsVisible     bool `json:"isVisible"`
	IsInteractive bool `json:"isInteractive,omitempty"`
	IsTopElement  bool `json:"isTopElement,omitempty"`
	IsInViewport  bool `json:"isInViewport,omitempty"`
	IsScrollable  bool `json:"isScrollable,omitempty"`

	// HighlightIndex is nil for non-candidates and a value in 0..K-1 for
	// the K surviving interactive targets.
	HighlightIndex *int `json:"highlightIndex"`

	ShadowRoot bool     `json:"shadowRoot,omitempty"`
	Viewport   Rect     `json:"viewport"`
	Children   []NodeID `json:"children"`

	Text            string `json:"text,omitempty"`
	AriaLabel       string `json:"ariaLabel,omitempty"`
	AriaDescription string `json:"ariaDescription,omitempty"`
	Title           string `json:"title,omitempty"`
	Role            string `json:"role,omitempty"`

	IframeContent string `json:"iframeContent,omitempty"`
	IframeDepth   int    `json:"iframeDepth,omitempty"`
}

// PopupContainer describes a likely modal/overlay region found in the top
// document. Advisory output; never pruned by compact mode.
type PopupContainer struct {
	NodeID   NodeID  `json:"nodeId"`
	TagName  string  `json:"tagName"`
	ID       string  `json:"id,omitempty"`
	Class    string  `json:"class,omitempty"`
	Role     string  `json:"role,omitempty"`
	ZIndex   int     `json:"zIndex"`
	Position string  `json:"position"`
	Viewport Rect    `json:"viewport"`
	Reason   string  `json:"reason"`
	XPath    string  `json:"xpath,omitempty"`
}

// NodeMetrics are per-walk element counters.
type NodeMetrics struct {
	TotalNodes               int `json:"totalNodes"`
	ProcessedNodes           int `json:"processedNodes"`
	InteractiveNodes         int `json:"interactiveNodes"`
	VisibleNodes             int `json:"visibleNodes"`
	FilteredInteractiveNodes int `json:"filteredInteractiveNodes"`
}

// IframeMetrics account for iframe discovery and recursion.
type IframeMetrics struct {
	TotalIframes     int `json:"totalIframes"`
	ProcessedIframes int `json:"processedIframes"`
	SkippedIframes   int `json:"skippedIframes"`
	SameOrigin       int `json:"sameOrigin"`
	CrossOrigin      int `json:"crossOrigin"`
	MaxDepthReached  int `json:"maxDepthReached"`
}

// PopupMetrics account for the popup-container scan.
type PopupMetrics struct {
	ContainersFound int     `json:"containersFound"`
	DetectionTimeMs float64 `json:"detectionTimeMs"`
}

// PerfMetrics wraps all timing and counter data for one invocation.
type PerfMetrics struct {
	StartTime     float64       `json:"startTime"`
	EndTime       float64       `json:"endTime"`
	TotalTime     float64       `json:"totalTime"`
	NodeMetrics   NodeMetrics   `json:"nodeMetrics"`
	IframeMetrics IframeMetrics `json:"iframeMetrics"`
	PopupMetrics  PopupMetrics  `json:"popupMetrics"`
}

// Snapshot is the analyzer's result envelope. Plain data, JSON-serializable,
// safe to hand across a process boundary.
type Snapshot struct {
	Map map[NodeID]*DOMNode `json:"map"`
	// RootID is nil only when an unrecoverable error occurred, in which
	// case Error carries the message.
	RootID      *NodeID    `json:"rootId"`
	IframeNodes []*DOMNode `json:"iframeNodes"`
	PopupContainers []PopupContainer    `json:"popupContainers"`
	PerfMetrics     PerfMetrics         `json:"perfMetrics"`
	CompactMode     bool                `json:"compactMode"`
	Error           string              `json:"error,omitempty"`
}
