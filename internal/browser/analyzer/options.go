// internal/browser/analyzer/options.go
package analyzer

// Options configure one analysis pass. The zero value is not useful;
// start from DefaultOptions and override.
type Options struct {
	// DoHighlightElements paints overlay boxes for surviving candidates.
	DoHighlightElements bool `mapstructure:"do_highlight_elements" json:"doHighlightElements"`
	// FocusHighlightIndex renders one index with a high-contrast style,
	// -1 for none.
	FocusHighlightIndex int `mapstructure:"focus_highlight_index" json:"focusHighlightIndex"`
	// ViewportExpansion widens the in-viewport rectangle by this many CSS
	// pixels on every side. Negative values shrink it. Any value above
	// zero also disables the viewport gate during candidate collection,
	// matching the behavior automation stacks have come to depend on.
	ViewportExpansion int `mapstructure:"viewport_expansion" json:"viewportExpansion"`
	// DebugMode logs the filter decision table, each extracted iframe and
	// a closing summary with the total pass time.
	DebugMode bool `mapstructure:"debug_mode" json:"debugMode"`

	MaxIframeDepth            int  `mapstructure:"max_iframe_depth" json:"maxIframeDepth"`
	MaxIframes                int  `mapstructure:"max_iframes" json:"maxIframes"`
	IncludeCrossOriginIframes bool `mapstructure:"include_cross_origin_iframes" json:"includeCrossOriginIframes"`

	// CompactMode prunes the output map to candidates, their ancestors,
	// iframe placeholders and the root.
	CompactMode bool `mapstructure:"compact_mode" json:"compactMode"`
}

// DefaultOptions mirror the defaults of the injected analyzer.
func DefaultOptions() Options {
	return Options{
		DoHighlightElements:       true,
		FocusHighlightIndex:       -1,
		ViewportExpansion:         0,
		DebugMode:                 false,
		MaxIframeDepth:            5,
		MaxIframes:                100,
		IncludeCrossOriginIframes: true,
		CompactMode:               false,
	}
}
