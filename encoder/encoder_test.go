package encoder

import (
	"bytes"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/pkg/errors"
)

type pipe struct {
	mu     sync.Mutex
	buf    bytes.Buffer
	closed bool
}

func (p *pipe) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.buf.Write(b)
}

func (p *pipe) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func frame(w, h int, v byte) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = v
	}
	return img
}

func TestRecorderWritesFrames(t *testing.T) {
	out := &pipe{}
	r := start(out, func() error { return nil }, 2, 2)
	for _, v := range []byte{1, 2, 3} {
		if err := r.WriteFrame(frame(2, 2, v)); err != nil {
			t.Fatal(err)
		}
	}
	if err := r.Close(); err != nil {
		t.Fatal(err)
	}
	if !out.closed {
		t.Error("pipe not closed")
	}
	got := out.buf.Bytes()
	if len(got) != 3*16 || got[0] != 1 || got[16] != 2 || got[47] != 3 {
		t.Errorf("wrote %d bytes: %v", len(got), got)
	}
	if err := r.WriteFrame(frame(2, 2, 0)); err == nil {
		t.Error("write after Close succeeded")
	}
}

func TestRecorderRejectsWrongSize(t *testing.T) {
	r := start(&pipe{}, func() error { return nil }, 2, 2)
	defer r.Close()
	if err := r.WriteFrame(frame(3, 2, 0)); err == nil {
		t.Fatal("expected a size error")
	}
}

func TestRecorderPacksSubImages(t *testing.T) {
	out := &pipe{}
	r := start(out, func() error { return nil }, 1, 2)
	big := frame(3, 2, 7)
	if err := r.WriteFrame(big.SubImage(image.Rect(1, 0, 2, 2)).(*image.RGBA)); err != nil {
		t.Fatal(err)
	}
	r.Close()
	if out.buf.Len() != 8 {
		t.Errorf("wrote %d bytes, want 8", out.buf.Len())
	}
}

func TestRecorderReportsEncoderFailure(t *testing.T) {
	r := start(&pipe{}, func() error { return errors.New("exit status 1") }, 1, 1)
	if err := r.Close(); err == nil {
		t.Fatal("expected the ffmpeg error")
	}
}

type brokenPipe struct{}

func (brokenPipe) Write([]byte) (int, error) { return 0, io.ErrClosedPipe }
func (brokenPipe) Close() error              { return nil }

func TestRecorderStopsAfterEncoderExit(t *testing.T) {
	exit := errors.New("exit status 1")
	r := start(&pipe{}, func() error { return exit }, 1, 1)
	<-r.failed
	err := r.WriteFrame(frame(1, 1, 0))
	if errors.Cause(err) != exit {
		t.Fatalf("WriteFrame = %v, want the ffmpeg error", err)
	}
	if err := r.Close(); errors.Cause(err) != exit {
		t.Errorf("Close = %v", err)
	}
}

func TestRecorderStopsAfterWriteFailure(t *testing.T) {
	release := make(chan struct{})
	r := start(brokenPipe{}, func() error {
		<-release
		return nil
	}, 1, 1)
	if err := r.WriteFrame(frame(1, 1, 0)); err != nil {
		t.Fatalf("first frame: %v", err)
	}
	<-r.failed
	if err := r.WriteFrame(frame(1, 1, 0)); errors.Cause(err) != io.ErrClosedPipe {
		t.Errorf("WriteFrame = %v, want a closed pipe error", err)
	}
	close(release)
	if err := r.Close(); errors.Cause(err) != io.ErrClosedPipe {
		t.Errorf("Close = %v", err)
	}
}

func TestEncoderArgs(t *testing.T) {
	in, out := encoderArgs(RecorderOptions{Width: 640, Height: 480, FPS: 30})
	if in["s"] != "640x480" || in["pix_fmt"] != "rgba" || in["f"] != "rawvideo" {
		t.Errorf("input args = %v", in)
	}
	if out["c:v"] != "libx264" {
		t.Errorf("output args = %v", out)
	}
}

func TestSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shot.png")
	s := &Snapshot{Path: path}
	if err := s.Close(); err == nil {
		t.Fatal("empty snapshot written")
	}
	s.WriteFrame(frame(4, 3, 9))
	last := frame(4, 3, 200)
	for i := 3; i < len(last.Pix); i += 4 {
		last.Pix[i] = 255
	}
	s.WriteFrame(last)
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatal(err)
	}
	if b := img.Bounds(); b.Dx() != 4 || b.Dy() != 3 {
		t.Errorf("bounds = %v", b)
	}
	if r, _, _, _ := img.At(0, 0).RGBA(); r>>8 != 200 {
		t.Errorf("pixel = %v, want the last frame", img.At(0, 0))
	}
}
