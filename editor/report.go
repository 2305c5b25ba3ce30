package editor

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/pkg/errors"

	"github.com/richinsley/goshaderboy/shader"
)

// Annotate renders text with line numbers and each diagnostic message
// inserted below the line it addresses. Diagnostics for lines past the end
// are appended at the bottom.
func Annotate(text string, diagnostics []shader.Diagnostic) string {
	byLine := make(map[int][]string)
	for _, d := range diagnostics {
		byLine[d.Line] = append(byLine[d.Line], d.Message)
	}

	lines := strings.Split(strings.TrimSuffix(text, "\n"), "\n")
	width := len(fmt.Sprint(len(lines)))
	var b strings.Builder
	for i, line := range lines {
		n := i + 1
		fmt.Fprintf(&b, "%*d | %s\n", width, n, line)
		for _, msg := range byLine[n] {
			fmt.Fprintf(&b, "%*s | ^ %s\n", width, "", msg)
		}
		delete(byLine, n)
	}
	for _, d := range diagnostics {
		if _, ok := byLine[d.Line]; ok {
			fmt.Fprintf(&b, "%*s | line %d: %s\n", width, "", d.Line, d.Message)
		}
	}
	return b.String()
}

// Report describes a rejected edit. Compile errors are a user typo and are
// logged as warnings with the annotated source written to w; link errors
// point at a stage mismatch and are logged as errors with the raw link log.
func Report(w io.Writer, logger *slog.Logger, text string, err error) {
	var ce *shader.CompileError
	var le *shader.LinkError
	switch {
	case errors.As(err, &ce):
		diags := ce.Diagnostics()
		logger.Warn("shader did not compile", "stage", ce.Stage.String(), "diagnostics", len(diags))
		fmt.Fprint(w, Annotate(text, diags))
		if len(diags) == 0 {
			fmt.Fprintln(w, strings.TrimSpace(ce.Log))
		}
	case errors.As(err, &le):
		logger.Error("shader did not link", "log", strings.TrimSpace(le.Log))
		fmt.Fprintln(w, strings.TrimSpace(le.Log))
	default:
		logger.Error("shader rejected", "error", err)
	}
}
