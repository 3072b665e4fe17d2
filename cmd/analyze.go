// -- cmd/analyze.go --
package cmd

import (
	"fmt"
	"io"
	"os"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/xkilldash9x/domlens/internal/browser/analyzer"
	"github.com/xkilldash9x/domlens/internal/browser/page"
	"github.com/xkilldash9x/domlens/internal/observability"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var (
	flagSerialized bool
	flagPretty     bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [file]",
	Short: "Analyze an HTML document and emit the interactive-element snapshot",
	Long: `Analyze parses the given HTML file (or stdin when omitted), lays it out
against the configured viewport, and prints the resulting node map as JSON.
With --serialized the LLM-facing flat element listing is printed instead.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := observability.GetLogger()

		src, err := readInput(args)
		if err != nil {
			return err
		}

		pg, err := page.New(src, page.Options{
			ViewportWidth:  cfg.Page.ViewportWidth,
			ViewportHeight: cfg.Page.ViewportHeight,
			ScrollX:        cfg.Page.ScrollX,
			ScrollY:        cfg.Page.ScrollY,
			BaseURL:        cfg.Page.BaseURL,
			Logger:         logger,
		})
		if err != nil {
			return fmt.Errorf("building page: %w", err)
		}

		snap := analyzer.Analyze(pg, cfg.Analyzer, logger)
		if snap.Error != "" {
			logger.Warn("analysis degraded", zap.String("error", snap.Error))
		}

		out := cmd.OutOrStdout()
		if flagSerialized {
			_, err = io.WriteString(out, analyzer.Serialize(snap))
			return err
		}

		enc := json.NewEncoder(out)
		if flagPretty {
			enc.SetIndent("", "  ")
		}
		return enc.Encode(snap)
	},
}

func readInput(args []string) (string, error) {
	if len(args) == 0 {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("reading stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", args[0], err)
	}
	return string(data), nil
}

func init() {
	analyzeCmd.Flags().BoolVar(&flagSerialized, "serialized", false, "print the flat LLM listing instead of JSON")
	analyzeCmd.Flags().BoolVar(&flagPretty, "pretty", false, "indent the JSON output")
	analyzeCmd.Flags().Bool("highlight", true, "paint highlight overlays into the DOM")
	analyzeCmd.Flags().Int("viewport-expansion", 0, "expand the viewport gate by N pixels (positive disables the gate)")
	analyzeCmd.Flags().Bool("compact", false, "emit only candidates, their ancestors and iframe roots")
	analyzeCmd.Flags().Bool("debug", false, "emit analyzer phase debugging")
	analyzeCmd.Flags().Float64("width", 1280, "viewport width in CSS pixels")
	analyzeCmd.Flags().Float64("height", 720, "viewport height in CSS pixels")
	analyzeCmd.Flags().String("base-url", "", "document base URL for iframe origin checks")

	_ = viper.BindPFlag("analyzer.do_highlight_elements", analyzeCmd.Flags().Lookup("highlight"))
	_ = viper.BindPFlag("analyzer.viewport_expansion", analyzeCmd.Flags().Lookup("viewport-expansion"))
	_ = viper.BindPFlag("analyzer.compact_mode", analyzeCmd.Flags().Lookup("compact"))
	_ = viper.BindPFlag("analyzer.debug_mode", analyzeCmd.Flags().Lookup("debug"))
	_ = viper.BindPFlag("page.viewport_width", analyzeCmd.Flags().Lookup("width"))
	_ = viper.BindPFlag("page.viewport_height", analyzeCmd.Flags().Lookup("height"))
	_ = viper.BindPFlag("page.base_url", analyzeCmd.Flags().Lookup("base-url"))

	rootCmd.AddCommand(analyzeCmd)
}
