package tracker

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/richinsley/goshaderboy/feed"
	"github.com/richinsley/goshaderboy/inputs"
)

func TestNone(t *testing.T) {
	var tr Tracker = None{}
	if err := tr.Start(inputs.Placeholder(2, 2), Options{}); err != nil {
		t.Fatal(err)
	}
	if got := tr.CurrentPosition(); got != nil {
		t.Errorf("CurrentPosition = %v", got)
	}
}

func TestLoadReplay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "track.json")
	if err := os.WriteFile(path, []byte(`[[[1,2],[3,4]], null, [[5,6]]]`), 0o644); err != nil {
		t.Fatal(err)
	}
	r, err := LoadReplay(path)
	if err != nil {
		t.Fatal(err)
	}
	if got := r.CurrentPosition(); got != nil {
		t.Errorf("position before Start = %v", got)
	}
	r.Start(nil, Options{})
	want := [][]feed.Point{
		{{X: 1, Y: 2}, {X: 3, Y: 4}},
		nil,
		{{X: 5, Y: 6}},
		{{X: 1, Y: 2}, {X: 3, Y: 4}}, // loops
	}
	for i, w := range want {
		got := r.CurrentPosition()
		if len(got) != len(w) {
			t.Fatalf("frame %d: got %v, want %v", i, got, w)
		}
		for j := range w {
			if got[j] != w[j] {
				t.Errorf("frame %d point %d: got %v, want %v", i, j, got[j], w[j])
			}
		}
	}
}

func TestLoadReplayInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "track.json")
	os.WriteFile(path, []byte(`{"not": "a track"}`), 0o644)
	if _, err := LoadReplay(path); err == nil {
		t.Fatal("expected a parse error")
	}
}

func TestReplayHoldsLastFrameOnConvergence(t *testing.T) {
	r := NewReplay([][]feed.Point{{{X: 1}}, {{X: 2}}})
	r.Start(nil, Options{StopOnConvergence: true})
	for i := 0; i < 5; i++ {
		r.CurrentPosition()
	}
	if got := r.CurrentPosition(); len(got) != 1 || got[0].X != 2 {
		t.Errorf("got %v, want the last frame", got)
	}
}

func TestReplayStop(t *testing.T) {
	r := NewReplay([][]feed.Point{{{X: 1}}})
	r.Start(nil, Options{})
	r.Stop()
	if got := r.CurrentPosition(); got != nil {
		t.Errorf("stopped tracker reported %v", got)
	}
}
