// Package cli holds the stdout/stderr conventions shared by the command-line entry points.
package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"

	"github.com/kailas-cloud/qaindex/internal/domain"
	"github.com/kailas-cloud/qaindex/internal/domain/report"
)

// ErrNoParameters is returned when neither an argument nor stdin carries a request.
var ErrNoParameters = errors.New("No parameters provided") //nolint:staticcheck // emitted verbatim to callers

// WriteJSON writes v as indented JSON followed by a newline.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}

// Fail writes err as an {error, type} object and returns the exit code.
func Fail(w io.Writer, err error) int {
	_ = WriteJSON(w, domain.NewErrorResponse(err))
	return 1
}

// ReadRequest returns the first argument, or stdin when no argument is given.
// stdin may be nil when it is a terminal.
func ReadRequest(args []string, stdin io.Reader) ([]byte, error) {
	if len(args) > 0 && strings.TrimSpace(args[0]) != "" {
		return []byte(args[0]), nil
	}
	if stdin != nil {
		raw, err := io.ReadAll(stdin)
		if err != nil {
			return nil, domain.WithKind(domain.KindInput, fmt.Errorf("read stdin: %w", err))
		}
		if len(strings.TrimSpace(string(raw))) > 0 {
			return raw, nil
		}
	}
	return nil, domain.WithKind(domain.KindValidation, ErrNoParameters)
}

// PipedStdin returns os.Stdin unless it is an interactive terminal.
func PipedStdin() io.Reader {
	fi, err := os.Stdin.Stat()
	if err != nil || fi.Mode()&os.ModeCharDevice != 0 {
		return nil
	}
	return os.Stdin
}

// PrintLoadSummary writes a human-readable load summary.
func PrintLoadSummary(w io.Writer, s report.Load) {
	ok := color.New(color.FgGreen, color.Bold).SprintFunc()
	key := color.New(color.FgCyan).SprintFunc()

	_, _ = fmt.Fprintf(w, "%s loaded %d documents into %s (%s)\n",
		ok("✓"), s.CollectionCount, key(s.Collection), s.Database.Driver)
	_, _ = fmt.Fprintf(w, "  %s %s\n", key("clear:"), s.Clear)
	_, _ = fmt.Fprintf(w, "  %s %s\n", key("categories:"), strings.Join(s.Categories, ", "))
	_, _ = fmt.Fprintf(w, "  %s %s\n", key("confidence:"), strings.Join(s.ConfidenceLevels, ", "))
}

// PrintFailure writes a one-line coloured failure notice.
func PrintFailure(w io.Writer, err error) {
	bad := color.New(color.FgRed, color.Bold).SprintFunc()
	_, _ = fmt.Fprintf(w, "%s %s: %v\n", bad("✗"), domain.KindOf(err), err)
}
