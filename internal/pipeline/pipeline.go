package pipeline

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"shotnamer/internal/config"
	"shotnamer/internal/fileutil"
	"shotnamer/internal/history"
	"shotnamer/internal/logging"
	"shotnamer/internal/services"
	"shotnamer/internal/textutil"
	"shotnamer/internal/watcher"
)

//go:generate mockgen -destination=mocks/mock_pipeline.go -package=mocks shotnamer/internal/pipeline Captioner,Journal

// Captioner returns raw caption text for an image file.
type Captioner interface {
	Caption(ctx context.Context, path string) (string, error)
}

// Journal records completed renames.
type Journal interface {
	Record(ctx context.Context, entry history.Record) (int64, error)
}

// Options holds the read-only settings shared by every event.
type Options struct {
	Prefixes    []string
	Extensions  []string
	SettleDelay time.Duration
	Stemmer     textutil.Stemmer
	// Model is written to the journal next to each rename.
	Model string
}

// OptionsFromConfig maps loaded configuration onto pipeline options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Prefixes:    append([]string(nil), cfg.Watch.Prefixes...),
		Extensions:  append([]string(nil), cfg.Watch.Extensions...),
		SettleDelay: cfg.SettleDelay(),
		Stemmer:     cfg.Stemmer(),
		Model:       cfg.Ollama.Model,
	}
}

// State is the terminal state of one event.
type State string

const (
	StateRejected      State = "rejected"
	StateCancelled     State = "cancelled"
	StateCaptionFailed State = "caption_failed"
	StateMoveFailed    State = "move_failed"
	StateRenamed       State = "renamed"
	// StateUnchanged means the file already carries the generated name.
	StateUnchanged State = "unchanged"
	// StateResolved is a dry run that picked a target without moving.
	StateResolved State = "resolved"
)

// Outcome reports what happened to one event.
type Outcome struct {
	State         State
	CorrelationID string
	Source        string
	Target        string
	Caption       string
	Stem          string
	Err           error
}

// Succeeded reports whether the event ended without a failure.
func (o Outcome) Succeeded() bool {
	switch o.State {
	case StateRenamed, StateUnchanged, StateResolved:
		return true
	default:
		return false
	}
}

// Mode adjusts how Process treats a candidate.
type Mode struct {
	// Settle waits the configured settle delay before reading the file.
	Settle bool
	// DryRun resolves the target name without moving the file.
	DryRun bool
}

// Pipeline processes events one at a time.
type Pipeline struct {
	opts       Options
	extensions map[string]struct{}
	captioner  Captioner
	resolver   *fileutil.Resolver
	journal    Journal
	logger     *slog.Logger
	newID      func() string
	sleep      func(context.Context, time.Duration) error
}

// Option customizes a Pipeline.
type Option func(*Pipeline)

// WithJournal records each successful rename in j.
func WithJournal(j Journal) Option {
	return func(p *Pipeline) {
		p.journal = j
	}
}

// WithResolver overrides the collision resolver.
func WithResolver(r *fileutil.Resolver) Option {
	return func(p *Pipeline) {
		if r != nil {
			p.resolver = r
		}
	}
}

// New constructs a Pipeline.
func New(opts Options, captioner Captioner, logger *slog.Logger, options ...Option) *Pipeline {
	extensions := make(map[string]struct{}, len(opts.Extensions))
	for _, ext := range opts.Extensions {
		extensions[config.NormalizeExtension(ext)] = struct{}{}
	}
	p := &Pipeline{
		opts:       opts,
		extensions: extensions,
		captioner:  captioner,
		resolver:   fileutil.NewResolver(),
		logger:     logging.NewComponentLogger(logger, "pipeline"),
		newID:      uuid.NewString,
		sleep:      sleepContext,
	}
	for _, opt := range options {
		opt(p)
	}
	return p
}

// Run consumes events until the channel closes or ctx is cancelled. Each
// event is handled to completion before the next is read, so cancellation
// takes effect between events.
func (p *Pipeline) Run(ctx context.Context, events <-chan watcher.Event) error {
	for {
		if ctx.Err() != nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			p.Handle(ctx, ev)
		}
	}
}

// Handle filters one watcher event and, when it qualifies, processes it with
// the settle delay.
func (p *Pipeline) Handle(ctx context.Context, ev watcher.Event) Outcome {
	cand, err := p.Filter(ev.Path)
	if err != nil {
		p.logger.Debug("ignoring file",
			logging.String("path", ev.Path),
			logging.String("event", ev.Kind.String()),
			logging.String("reason", err.Error()),
		)
		return Outcome{State: StateRejected, Source: ev.Path, Err: err}
	}
	return p.Process(ctx, cand, Mode{Settle: true})
}

// Process captions, names, and moves one candidate.
func (p *Pipeline) Process(ctx context.Context, cand Candidate, mode Mode) Outcome {
	out := Outcome{Source: cand.Path, CorrelationID: p.newID()}
	ctx = services.WithRequestID(services.WithFile(ctx, cand.Base), out.CorrelationID)
	logger := logging.WithContext(ctx, p.logger)

	logger.Info("processing screenshot",
		logging.String(logging.FieldEventType, "rename_started"),
		logging.String("path", cand.Path),
	)

	if mode.Settle && p.opts.SettleDelay > 0 {
		if err := p.sleep(ctx, p.opts.SettleDelay); err != nil {
			out.State = StateCancelled
			out.Err = err
			logger.Info("processing cancelled before captioning",
				logging.String(logging.FieldEventType, "rename_cancelled"),
			)
			return out
		}
	}

	// Past the settle delay the event runs to completion; the captioning
	// client's own timeout bounds the request.
	ctx = context.WithoutCancel(ctx)

	caption, err := p.captioner.Caption(services.WithStage(ctx, "caption"), cand.Path)
	if err != nil {
		out.State = StateCaptionFailed
		out.Err = err
		p.reportFailure(logger, "caption failed; file left unchanged", "caption_failed", err,
			"check that the captioning service is running and the model is pulled")
		return out
	}
	out.Caption = caption
	out.Stem = p.opts.Stemmer.Stem(caption)
	logger.Debug("caption sanitized",
		logging.String("caption", caption),
		logging.String("stem", out.Stem),
	)

	if out.Stem+cand.Ext == cand.Base {
		out.State = StateUnchanged
		out.Target = cand.Path
		logger.Info("screenshot already named",
			logging.String(logging.FieldEventType, "rename_unchanged"),
		)
		return out
	}

	if mode.DryRun {
		out.State = StateResolved
		out.Target = p.resolver.Resolve(cand.Dir(), out.Stem, cand.Ext)
		logger.Info("resolved name (dry run)",
			logging.String(logging.FieldEventType, "rename_resolved"),
			logging.String("to", out.Target),
		)
		return out
	}

	target, err := p.resolver.Claim(cand.Path, cand.Dir(), out.Stem, cand.Ext)
	if err != nil {
		out.State = StateMoveFailed
		out.Err = services.Wrap(services.ErrMoveFailed, "rename", "move", cand.Base, err)
		p.reportFailure(logger, "rename failed; file left unchanged", "rename_failed", out.Err,
			"check that the file still exists and the directory is writable")
		return out
	}
	out.State = StateRenamed
	out.Target = target

	logger.Info("renamed screenshot",
		logging.String(logging.FieldEventType, "rename_completed"),
		logging.String("from", cand.Base),
		logging.String("to", filepath.Base(target)),
	)
	p.record(ctx, logger, out)
	return out
}

func (p *Pipeline) record(ctx context.Context, logger *slog.Logger, out Outcome) {
	if p.journal == nil {
		return
	}
	id, err := p.journal.Record(ctx, history.Record{
		CorrelationID: out.CorrelationID,
		OriginalPath:  out.Source,
		FinalPath:     out.Target,
		Caption:       out.Caption,
		Model:         p.opts.Model,
	})
	if err != nil {
		logging.WarnWithContext(logger, "rename not journaled", "history_record_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the history database path and permissions"),
		)
		return
	}
	logger.Debug("rename journaled", logging.Int64("journal_id", id))
}

func (p *Pipeline) reportFailure(logger *slog.Logger, msg, eventType string, err error, hint string) {
	logging.ErrorWithContext(logger, msg, eventType,
		logging.Error(err),
		logging.String(logging.FieldErrorKind, services.Kind(err)),
		logging.String(logging.FieldErrorHint, hint),
	)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
