package main

import (
	"io"
	"log"
	"log/slog"

	"github.com/richinsley/goshaderboy/editor"
	"github.com/richinsley/goshaderboy/inputs"
	"github.com/richinsley/goshaderboy/store"
)

// session persists committed shaders and reports rejected ones.
type session struct {
	store  *store.Store
	out    io.Writer
	logger *slog.Logger
}

func (s *session) Committed(text string) {
	log.Printf("Shader committed (%d bytes)", len(text))
	if err := s.store.Save(text); err != nil {
		log.Printf("Warning: %v", err)
	}
}

func (s *session) Rejected(text string, err error) {
	editor.Report(s.out, s.logger, text, err)
}

func (s *session) Reset() {
	log.Printf("Restored the default shader")
	if err := s.store.Remove(); err != nil {
		log.Printf("Warning: %v", err)
	}
}

func (s *session) SourceChanged(src inputs.Source) {
	w, h := src.Size()
	log.Printf("Switched to %s source (%dx%d)", src.Kind(), w, h)
}
