package cli

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/goccy/go-json"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // everything synchronized
	ExitFailure      = 1 // at least one object failed
	ExitCommandError = 2 // bad arguments, configuration or connectivity
)

// ExitError carries the process exit code of a failed command
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// WrapExitError wraps err with an exit code
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error. Plain errors map to ExitFailure.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// Response is the JSON envelope of every command
type Response struct {
	Status string `json:"status"` // "ok" or "error"
	Data   any    `json:"data,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Table is text output rendered as aligned columns
type Table struct {
	Header []string
	Rows   [][]string
}

// OutputFormatter writes command results as text or JSON
type OutputFormatter struct {
	Format string
	Writer io.Writer
}

// Success writes data. In text mode data is printed through text when it is
// a Table, or with fmt otherwise.
func (f *OutputFormatter) Success(data any, text any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(Response{Status: "ok", Data: data})
	}
	if table, ok := text.(Table); ok {
		return writeTable(f.Writer, table)
	}
	_, err := fmt.Fprintln(f.Writer, text)
	return err
}

// Error writes a failure
func (f *OutputFormatter) Error(err error) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(Response{Status: "error", Error: err.Error()})
	}
	_, werr := fmt.Fprintf(f.Writer, "Error: %v\n", err)
	return werr
}

func writeTable(w io.Writer, t Table) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	writeRow(tw, t.Header)
	for _, row := range t.Rows {
		writeRow(tw, row)
	}
	return tw.Flush()
}

func writeRow(w io.Writer, cells []string) {
	for i, cell := range cells {
		if i > 0 {
			fmt.Fprint(w, "\t")
		}
		fmt.Fprint(w, cell)
	}
	fmt.Fprintln(w)
}
