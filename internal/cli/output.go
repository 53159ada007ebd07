package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/Clark-Hu/cinemaddict/internal/catalog"
	"github.com/Clark-Hu/cinemaddict/internal/model"
	"github.com/Clark-Hu/cinemaddict/internal/provider"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Operation failed (catalog rejected it, sync incomplete)
	ExitCommandError = 2 // Command error (bad arguments, unknown ids, invalid flags)
)

// Error codes used in JSON error responses.
const (
	ErrCodeGeneric    = "E001"
	ErrCodeInvalid    = "E002"
	ErrCodeNotFound   = "E003"
	ErrCodeAuth       = "E004"
	ErrCodeIncomplete = "E005"
)

// ExitError represents an error with a specific exit code.
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

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitFailure (1) if the error is not an ExitError.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // Verbose and error text; keeps JSON on Writer clean
	Verbose   bool
}

// CLIResponse is the standard JSON response format for CLI output.
type CLIResponse struct {
	Status string      `json:"status"`
	Data   interface{} `json:"data,omitempty"`
	Error  *CLIError   `json:"error,omitempty"`
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func newFormatter(cmd *cobra.Command, opts *RootOptions) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}

// Render writes data as a JSON envelope, or calls text for human-readable output.
func (f *OutputFormatter) Render(data interface{}, text func(w io.Writer)) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{Status: "ok", Data: data})
	}
	text(f.Writer)
	return nil
}

// Fail reports err in the configured format and converts it into an ExitError.
func (f *OutputFormatter) Fail(err error) error {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		code := ErrCodeGeneric
		if exitErr.Code == ExitCommandError {
			code = ErrCodeInvalid
		}
		f.writeError(code, exitErr.Error())
		return exitErr
	}

	code, exit := classify(err)
	f.writeError(code, err.Error())
	return &ExitError{Code: exit, Message: "command failed", Err: err}
}

func (f *OutputFormatter) writeError(code, message string) {
	if f.Format == "json" {
		_ = json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "error",
			Error:  &CLIError{Code: code, Message: message},
		})
		return
	}
	fmt.Fprintf(f.errWriter(), "Error [%s]: %s\n", code, message)
}

// VerboseLog outputs a message only if verbose mode is enabled.
func (f *OutputFormatter) VerboseLog(format string, args ...interface{}) {
	if !f.Verbose {
		return
	}
	fmt.Fprintf(f.errWriter(), format+"\n", args...)
}

func (f *OutputFormatter) errWriter() io.Writer {
	if f.ErrWriter != nil {
		return f.ErrWriter
	}
	return f.Writer
}

func classify(err error) (string, int) {
	switch {
	case errors.Is(err, provider.ErrInvalid), errors.Is(err, model.ErrInvalidRating), errors.Is(err, catalog.ErrValidation):
		return ErrCodeInvalid, ExitCommandError
	case errors.Is(err, model.ErrUnknownMovie):
		return ErrCodeNotFound, ExitCommandError
	case errors.Is(err, catalog.ErrAuth):
		return ErrCodeAuth, ExitFailure
	case errors.Is(err, provider.ErrSyncIncomplete):
		return ErrCodeIncomplete, ExitFailure
	default:
		return ErrCodeGeneric, ExitFailure
	}
}
