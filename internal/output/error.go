package output

import (
	"errors"
	"fmt"
	"io"
	"strings"

	flasherrors "github.com/runpod/flash/internal/errors"
)

// ErrorFormatter provides consistent error formatting.
type ErrorFormatter struct {
	writer io.Writer
	color  *ColorConfig
}

// NewErrorFormatter creates a new error formatter.
func NewErrorFormatter(w io.Writer) *ErrorFormatter {
	return &ErrorFormatter{
		writer: w,
		color:  Color(),
	}
}

// Format formats an error for display.
func (f *ErrorFormatter) Format(err error) string {
	if err == nil {
		return ""
	}

	var flashErr *flasherrors.FlashError
	if errors.As(err, &flashErr) {
		return f.formatFlashError(flashErr)
	}

	return f.formatGenericError(err)
}

// formatFlashError formats a FlashError with full context.
func (f *ErrorFormatter) formatFlashError(err *flasherrors.FlashError) string {
	var sb strings.Builder

	badge := f.color.Apply(
		fmt.Sprintf(" %s ", strings.ToUpper(string(err.Category))),
		BgRed, White, Bold,
	)
	sb.WriteString(badge)
	sb.WriteString(" ")

	sb.WriteString(f.color.Error(err.Message))
	sb.WriteString("\n")

	if err.Cause != nil {
		sb.WriteString("\n")
		sb.WriteString(f.color.Label("Cause"))
		sb.WriteString(": ")
		sb.WriteString(err.Cause.Error())
		sb.WriteString("\n")
	}

	if len(err.Context) > 0 {
		sb.WriteString("\n")
		sb.WriteString(f.color.Label("Context"))
		sb.WriteString(":\n")
		for k, v := range err.Context {
			sb.WriteString(fmt.Sprintf("  %s: %s\n", f.color.Dim(k), v))
		}
	}

	if err.Hint != "" {
		sb.WriteString("\n")
		sb.WriteString(f.color.Info(Symbols.Info))
		sb.WriteString(" ")
		sb.WriteString(f.color.Hint(err.Hint))
		sb.WriteString("\n")
	}

	return sb.String()
}

// formatGenericError formats a regular error.
func (f *ErrorFormatter) formatGenericError(err error) string {
	return fmt.Sprintf("%s %s\n", f.color.Error(Symbols.Error), err.Error())
}

// Write writes a formatted error to the writer.
func (f *ErrorFormatter) Write(err error) {
	if err == nil {
		return
	}
	fmt.Fprint(f.writer, f.Format(err))
}

// PrintError prints a formatted error using the global output.
func PrintError(err error) {
	if err == nil {
		return
	}

	o := Global()
	formatter := NewErrorFormatter(o.ErrWriter())

	if o.IsJSON() {
		var flashErr *flasherrors.FlashError
		if errors.As(err, &flashErr) {
			resp := ErrorResponse{
				Error:   flashErr.Error(),
				Code:    flashErr.Code,
				Message: flashErr.Message,
				Hint:    flashErr.Hint,
				Context: flashErr.Context,
			}
			o.JSON(resp)
		} else {
			resp := ErrorResponse{
				Error: err.Error(),
			}
			o.JSON(resp)
		}
		return
	}

	formatter.Write(err)
}

// FormatErrorBrief returns a brief one-line error message.
func FormatErrorBrief(err error) string {
	if err == nil {
		return ""
	}

	var flashErr *flasherrors.FlashError
	if errors.As(err, &flashErr) {
		return fmt.Sprintf("[%s/%s] %s", flashErr.Category, flashErr.Code, flashErr.Message)
	}

	return err.Error()
}

// IsUserError returns true if the error is likely a user error (vs internal error).
func IsUserError(err error) bool {
	if err == nil {
		return false
	}

	var flashErr *flasherrors.FlashError
	if errors.As(err, &flashErr) {
		return flashErr.Category != flasherrors.CategoryInternal
	}

	return true
}
