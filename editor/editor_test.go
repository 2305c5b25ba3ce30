package editor

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/richinsley/goshaderboy/graphics"
	"github.com/richinsley/goshaderboy/shader"
)

func TestAnnotate(t *testing.T) {
	text := "a\nb\nc\n"
	got := Annotate(text, []shader.Diagnostic{
		{Line: 2, Message: "'b' : undeclared identifier"},
		{Line: 9, Message: "past the end"},
	})
	want := "1 | a\n" +
		"2 | b\n" +
		"  | ^ 'b' : undeclared identifier\n" +
		"3 | c\n" +
		"  | line 9: past the end\n"
	if got != want {
		t.Errorf("Annotate =\n%s\nwant\n%s", got, want)
	}
}

func TestAnnotateNoDiagnostics(t *testing.T) {
	if got := Annotate("x", nil); got != "1 | x\n" {
		t.Errorf("got %q", got)
	}
}

func logger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewTextHandler(buf, nil))
}

func TestReportCompileError(t *testing.T) {
	var out, logs bytes.Buffer
	err := &shader.CompileError{
		Stage: graphics.FragmentStage,
		Log:   "ERROR: 0:2: 'y' : syntax error\n",
		Lines: []string{"ERROR: 0:2: 'y' : syntax error", ""},
	}
	Report(&out, logger(&logs), "x\ny\n", err)
	if !strings.Contains(out.String(), "  | ^ 'y' : syntax error") {
		t.Errorf("output = %q", out.String())
	}
	if !strings.Contains(logs.String(), "level=WARN") {
		t.Errorf("logs = %q", logs.String())
	}
}

func TestReportLinkError(t *testing.T) {
	var out, logs bytes.Buffer
	Report(&out, logger(&logs), "x", &shader.LinkError{Log: "varying mismatch\n"})
	if out.String() != "varying mismatch\n" {
		t.Errorf("output = %q", out.String())
	}
	if !strings.Contains(logs.String(), "level=ERROR") {
		t.Errorf("logs = %q", logs.String())
	}
}

func TestWatcherCommitsChanges(t *testing.T) {
	path := filepath.Join(t.TempDir(), "live.frag")
	if err := os.WriteFile(path, []byte("one"), 0o644); err != nil {
		t.Fatal(err)
	}
	commits := make(chan string, 4)
	w := NewWatcher(path, 5*time.Millisecond, func(text string) { commits <- text })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() { done <- w.Run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	select {
	case text := <-commits:
		t.Fatalf("unchanged file committed: %q", text)
	default:
	}

	if err := os.WriteFile(path, []byte("second"), 0o644); err != nil {
		t.Fatal(err)
	}
	select {
	case text := <-commits:
		if text != "second" {
			t.Errorf("committed %q", text)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("change not committed")
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatal(err)
	}
}

func TestWatcherCommitsSameSizeEdit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "live.frag")
	if err := os.WriteFile(path, []byte("aaaa"), 0o644); err != nil {
		t.Fatal(err)
	}
	fi, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	commits := make(chan string, 4)
	w := NewWatcher(path, 5*time.Millisecond, func(text string) { commits <- text })
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)
	time.Sleep(20 * time.Millisecond)

	// same size, and the modification time is put back
	if err := os.WriteFile(path, []byte("bbbb"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Chtimes(path, fi.ModTime(), fi.ModTime()); err != nil {
		t.Fatal(err)
	}
	select {
	case text := <-commits:
		if text != "bbbb" {
			t.Errorf("committed %q", text)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("same-size edit not committed")
	}
}

func TestWatcherCommit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "live.frag")
	os.WriteFile(path, []byte("text"), 0o644)
	var got string
	w := NewWatcher(path, 0, func(text string) { got = text })
	if err := w.Commit(); err != nil {
		t.Fatal(err)
	}
	if got != "text" {
		t.Errorf("committed %q", got)
	}
	os.Remove(path)
	if err := w.Commit(); err == nil {
		t.Error("missing file committed")
	}
}
