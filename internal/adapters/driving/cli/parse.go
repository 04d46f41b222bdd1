package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/anchor/internal/core/domain"
	"github.com/custodia-labs/anchor/internal/core/services"
	"github.com/custodia-labs/anchor/internal/logger"
)

var (
	parsePartial    bool
	parseJSON       bool
	parseRender     bool
	parseStats      bool
	parseNoMapping  bool
	parseStripTools bool
)

// Citation styles for --render on a terminal.
var (
	resolvedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Underline(true)
	unresolvedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Strikethrough(true)
	idStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

var parseCmd = &cobra.Command{
	Use:   "parse [file]",
	Short: "Extract citations from assistant output",
	Long: `Parses citation markers in assistant output and resolves their short IDs
against the current entity tree.

Recognised forms:
  [Bullet Point: "cut latency"]{BP1}   legacy typed form
  [cut latency]{BP1}                   compact form, type inferred from the ID
  [Echo P3]                            derived point shorthand

Reads the file, or stdin when the file is omitted or "-". Each recognised
citation is replaced with a {{CITATION_N}} placeholder; --render substitutes
the display text back in, styled by whether the ID resolved.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runParse,
}

func init() {
	parseCmd.Flags().BoolVar(&parsePartial, "partial", false, "treat input as an incomplete stream prefix")
	parseCmd.Flags().BoolVar(&parseJSON, "json", false, "output the parse result as JSON")
	parseCmd.Flags().BoolVar(&parseRender, "render", false, "print text with citations rendered inline")
	parseCmd.Flags().BoolVar(&parseStats, "stats", false, "print citation quality counters")
	parseCmd.Flags().BoolVar(&parseNoMapping, "no-mapping", false, "do not resolve IDs against the entity tree")
	parseCmd.Flags().BoolVar(&parseStripTools, "strip-tools", false, "remove tool-call markers before parsing")
	rootCmd.AddCommand(parseCmd)
}

type parseOutput struct {
	NormalizedText string                  `json:"normalized_text"`
	Citations      []domain.CitationRecord `json:"citations"`
	Pending        string                  `json:"pending,omitempty"`
	Stats          *domain.MonitorSnapshot `json:"stats,omitempty"`
}

func runParse(cmd *cobra.Command, args []string) error {
	text, err := readInput(cmd, args)
	if err != nil {
		return err
	}

	s, err := requireServices()
	if err != nil {
		return err
	}
	citations := s.Citations
	if citations == nil {
		citations = services.NewCitationParser()
	}

	var mapping *domain.IDMapping
	if !parseNoMapping {
		if _, reg, err := loadRegistry(cmd, s); err != nil {
			logger.Warn("resolving without entities: %v", err)
		} else {
			mapping = reg.Mapping()
		}
	}

	if parseStripTools {
		text = citations.StripToolMarkers(text)
	}

	var result domain.ParseResult
	if parsePartial {
		result = citations.ParsePartial(text, mapping)
	} else {
		result = citations.Parse(text, mapping)
	}

	var stats *domain.MonitorSnapshot
	if parseStats {
		monitor := services.NewCitationMonitor(mapping)
		monitor.Observe(text)
		snap := monitor.Snapshot()
		stats = &snap
	}

	if parseJSON {
		data, err := json.MarshalIndent(parseOutput{
			NormalizedText: result.NormalizedText,
			Citations:      result.Records(),
			Pending:        result.Pending,
			Stats:          stats,
		}, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal parse result: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	if parseRender {
		cmd.Println(renderCitations(&result, isTerminal(cmd)))
	} else {
		cmd.Println(result.NormalizedText)
		cmd.Println()
		printCitations(cmd, &result)
	}
	if result.Pending != "" {
		cmd.Printf("\nPending: %q\n", result.Pending)
	}
	if stats != nil {
		cmd.Println()
		printStats(cmd, stats)
	}
	return nil
}

func printCitations(cmd *cobra.Command, result *domain.ParseResult) {
	if len(result.Citations) == 0 {
		cmd.Println("No citations found.")
		return
	}

	cmd.Printf("Citations (%d):\n", len(result.Citations))
	for _, rec := range result.Records() {
		target := rec.PersistentID
		if !rec.Resolved {
			target += " (unresolved)"
		}
		cmd.Printf("  %-16s %-20s %-10s -> %s\n", domain.Placeholder(rec.Index), rec.Type, rec.ShortID, target)
		if rec.DisplayText != "" {
			cmd.Printf("  %16s %q\n", "", rec.DisplayText)
		}
	}
}

func printStats(cmd *cobra.Command, snap *domain.MonitorSnapshot) {
	cmd.Println("Citation quality")
	cmd.Printf("  Total:    %d\n", snap.Total)
	cmd.Printf("  Valid:    %d\n", snap.Valid)
	cmd.Printf("  Invalid:  %d\n", snap.Invalid)
	cmd.Printf("  Accuracy: %.1f%%\n", snap.Accuracy)

	kinds := make([]string, 0, len(snap.Histogram))
	for k, n := range snap.Histogram {
		if n > 0 {
			kinds = append(kinds, string(k))
		}
	}
	sort.Strings(kinds)
	for _, k := range kinds {
		cmd.Printf("    %-14s %d\n", k, snap.Histogram[domain.FailureKind(k)])
	}
}

// renderCitations substitutes each placeholder with its display text and
// short ID. Styling is applied only when writing to a terminal.
func renderCitations(result *domain.ParseResult, styled bool) string {
	pairs := make([]string, 0, 2*len(result.Citations))
	for i, c := range result.Citations {
		pairs = append(pairs, domain.Placeholder(i), renderCitation(c.Ref(), styled))
	}
	return strings.NewReplacer(pairs...).Replace(result.NormalizedText)
}

func renderCitation(ref domain.Reference, styled bool) string {
	label := ref.DisplayText
	if label == "" {
		label = ref.ShortID
	}
	tag := "[" + ref.ShortID + "]"

	if !styled {
		if !ref.Resolved {
			tag = "[" + ref.ShortID + "?]"
		}
		return label + " " + tag
	}
	if ref.Resolved {
		return resolvedStyle.Render(label) + " " + idStyle.Render(tag)
	}
	return unresolvedStyle.Render(label) + " " + idStyle.Render(tag)
}

// isTerminal reports whether the command writes to an interactive terminal.
func isTerminal(cmd *cobra.Command) bool {
	f, ok := cmd.OutOrStdout().(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
