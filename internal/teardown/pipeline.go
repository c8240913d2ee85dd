// Package teardown runs the end-of-session steps: export the transcript,
// request notes, export the notes. Steps run in order and a failing step
// does not stop the ones after it.
package teardown

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/jwulff/livenotes/internal/apperr"
	"github.com/jwulff/livenotes/internal/transcript"
)

// Exporter writes a titled plain text document and returns its location.
type Exporter interface {
	Export(title, text, filename string) (string, error)
}

// Summarizer produces notes for a transcript. An empty result means no
// notes were produced.
type Summarizer interface {
	Notes(ctx context.Context, transcript string) (string, error)
}

// Report summarizes one teardown run.
type Report struct {
	SessionID      string
	TranscriptPath string
	NotesPath      string
	NotesSkipped   bool
	Errors         []error
}

// OK reports whether every step succeeded.
func (r Report) OK() bool { return len(r.Errors) == 0 }

// Err joins the step errors, or nil.
func (r Report) Err() error { return errors.Join(r.Errors...) }

// Pipeline is the teardown sequence.
type Pipeline struct {
	exporter   Exporter
	summarizer Summarizer
	log        *log.Logger
	now        func() time.Time
}

func New(exporter Exporter, summarizer Summarizer, logger *log.Logger) *Pipeline {
	return &Pipeline{
		exporter:   exporter,
		summarizer: summarizer,
		log:        logger,
		now:        time.Now,
	}
}

// run carries state between steps.
type run struct {
	id     string
	buffer string
	date   string
	notes  string
	report *Report
}

type step struct {
	name string
	fn   func(ctx context.Context, r *run) error
}

// Run executes every step against buffer, the final transcript of session id.
func (p *Pipeline) Run(ctx context.Context, id, buffer string) Report {
	report := Report{SessionID: id}
	r := &run{
		id:     id,
		buffer: buffer,
		date:   p.now().Format("2006-01-02"),
		report: &report,
	}

	steps := []step{
		{"export transcript", p.exportTranscript},
		{"request notes", p.requestNotes},
		{"export notes", p.exportNotes},
	}
	for _, s := range steps {
		if err := s.fn(ctx, r); err != nil {
			p.log.Error("teardown step failed", "session", id, "step", s.name, "err", err)
			report.Errors = append(report.Errors, err)
			continue
		}
		p.log.Debug("teardown step done", "session", id, "step", s.name)
	}

	p.log.Info("teardown finished",
		"session", id,
		"transcript", report.TranscriptPath,
		"notes", report.NotesPath,
		"errors", len(report.Errors))
	return report
}

func (p *Pipeline) exportTranscript(ctx context.Context, r *run) error {
	path, err := p.exporter.Export(
		"Transcript - "+r.date,
		transcript.Normalize(r.buffer),
		Filename("transcript", r.date, r.id),
	)
	if err != nil {
		return apperr.E(apperr.Export, "teardown.exportTranscript", err)
	}
	r.report.TranscriptPath = path
	return nil
}

func (p *Pipeline) requestNotes(ctx context.Context, r *run) error {
	notes, err := p.summarizer.Notes(ctx, r.buffer)
	if err != nil {
		return apperr.E(apperr.ControlCall, "teardown.requestNotes", err)
	}
	r.notes = notes
	return nil
}

func (p *Pipeline) exportNotes(ctx context.Context, r *run) error {
	if strings.TrimSpace(r.notes) == "" {
		p.log.Info("no notes to export", "session", r.id)
		r.report.NotesSkipped = true
		return nil
	}
	path, err := p.exporter.Export(
		"Lecture Notes - "+r.date,
		r.notes,
		Filename("notes", r.date, r.id),
	)
	if err != nil {
		return apperr.E(apperr.Export, "teardown.exportNotes", err)
	}
	r.report.NotesPath = path
	return nil
}

// Filename builds "<kind>-<date>-<id prefix>.docx".
func Filename(kind, date, id string) string {
	short := strings.ReplaceAll(id, "-", "")
	if len(short) > 8 {
		short = short[:8]
	}
	if short == "" {
		return fmt.Sprintf("%s-%s.docx", kind, date)
	}
	return fmt.Sprintf("%s-%s-%s.docx", kind, date, short)
}
