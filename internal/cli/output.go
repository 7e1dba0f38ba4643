// Package cli provides output helpers for the Chalkbot command line.
package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/thechalk/chalkbot/internal/models"
)

// OutputFormat selects how command results are written.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseFormat maps a flag value to an OutputFormat.
func ParseFormat(s string) (OutputFormat, error) {
	switch s {
	case "", "text":
		return OutputText, nil
	case "json":
		return OutputJSON, nil
	default:
		return "", fmt.Errorf("unknown output format %q; use text or json", s)
	}
}

// WriteAnswer writes an answer to w in the given format.
func WriteAnswer(w io.Writer, ans models.Answer, format OutputFormat) error {
	switch format {
	case OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(ans)
	default:
		fmt.Fprintln(w, ans.Text)
		if !ans.Grounded {
			fmt.Fprintln(w, "\n(answered without course material)")
		}
		return nil
	}
}

// TrainSummary is the result of one training run.
type TrainSummary struct {
	Scope  string `json:"scope"`
	Chunks int    `json:"chunks"`
}

// WriteTrainSummary writes a training result to w in the given format.
func WriteTrainSummary(w io.Writer, summary TrainSummary, format OutputFormat) error {
	switch format {
	case OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	default:
		fmt.Fprintf(w, "Trained %s: %d chunk(s)\n", summary.Scope, summary.Chunks)
		return nil
	}
}
