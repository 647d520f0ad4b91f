// ABOUTME: Shared output helpers for CLI commands
// ABOUTME: JSON vs text output, lipgloss styles and progress lines
package commands

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var (
	humanStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	aiStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	titleStyle = lipgloss.NewStyle().Bold(true).Underline(true)
	dimStyle   = lipgloss.NewStyle().Faint(true)
)

// truncate shortens a string to maxLen, adding "..." if truncated
func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}

// validatePositiveInt returns error if n is not positive
func validatePositiveInt(n int, name string) error {
	if n <= 0 {
		return fmt.Errorf("%s must be positive, got %d", name, n)
	}
	return nil
}

// validateNonNegativeInt returns error if n is negative. Zero means "use the default".
func validateNonNegativeInt(n int, name string) error {
	if n < 0 {
		return fmt.Errorf("%s must not be negative, got %d", name, n)
	}
	return nil
}

// validateFormat rejects unknown --format values
func validateFormat() error {
	switch format {
	case "auto", "text", "json":
		return nil
	default:
		return fmt.Errorf("--format must be auto, text or json, got %q", format)
	}
}

func jsonOutput() bool {
	return format == "json"
}

// printJSON writes v as indented JSON
func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// progressPrinter reports "<label> i/n" (i is one-based) on stderr unless quiet or json
func progressPrinter(cmd *cobra.Command, label string) func(i, n int) {
	return func(i, n int) {
		if quiet || jsonOutput() {
			return
		}
		_, _ = fmt.Fprintln(cmd.ErrOrStderr(), dimStyle.Render(fmt.Sprintf("%s %d/%d", label, i, n)))
	}
}
