package shader

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/richinsley/goshaderboy/graphics"
)

var newline = regexp.MustCompile(`\r?\n`)

// CompileError is returned when a shader stage fails to compile. It is the
// expected outcome of a typo in user source and leaves no state behind.
type CompileError struct {
	Stage graphics.Stage
	// Log is the raw diagnostic text reported by the compiler.
	Log string
	// Lines is Log split into lines, verbatim and in order.
	Lines []string
}

func newCompileError(stage graphics.Stage, log string) *CompileError {
	return &CompileError{
		Stage: stage,
		Log:   log,
		Lines: SplitLog(log),
	}
}

// SplitLog splits a diagnostic log into lines on \n or \r\n.
func SplitLog(log string) []string {
	return newline.Split(log, -1)
}

func (e *CompileError) Error() string {
	return "failed to compile " + e.Stage.String() + " shader: " + strings.TrimSpace(e.Log)
}

// Diagnostics extracts the line-addressed messages from the log.
func (e *CompileError) Diagnostics() []Diagnostic {
	return ParseDiagnostics(e.Lines)
}

// LinkError is returned when two compiled stages fail to link. It points at
// an interface mismatch between the stages rather than a plain user typo.
type LinkError struct {
	Log string
}

func (e *LinkError) Error() string {
	return "couldn't link program: " + strings.TrimSpace(e.Log)
}

// Diagnostic is one compiler message addressed to a source line.
type Diagnostic struct {
	// Column is the first numeric field of the message.
	Column int
	// Line is 1-based.
	Line    int
	Message string
}

var diagnosticLine = regexp.MustCompile(`^ERROR:\s+(\d+):(\d+):\s+(.*)`)

// ParseDiagnostics picks the `ERROR: <col>:<line>: <msg>` entries out of a
// compile log, in order. Lines in any other form are skipped.
func ParseDiagnostics(lines []string) []Diagnostic {
	var out []Diagnostic
	for _, line := range lines {
		m := diagnosticLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		col, _ := strconv.Atoi(m[1])
		ln, err := strconv.Atoi(m[2])
		if err != nil {
			continue
		}
		out = append(out, Diagnostic{Column: col, Line: ln, Message: m[3]})
	}
	return out
}
