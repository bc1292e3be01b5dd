// Package session drives a typing engine from an event loop with a
// one-second countdown ticker.
package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/verte-zerg/codetype/internal/engine"
	"github.com/verte-zerg/codetype/internal/identity"
	"github.com/verte-zerg/codetype/internal/model"
	"github.com/verte-zerg/codetype/internal/prompts"
)

// Ticker is the part of time.Ticker the runner needs.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// TickerFactory creates a ticker firing every d.
type TickerFactory func(d time.Duration) Ticker

type timeTicker struct {
	t *time.Ticker
}

func (t timeTicker) C() <-chan time.Time { return t.t.C }
func (t timeTicker) Stop()               { t.t.Stop() }

// NewTimeTicker wraps time.NewTicker.
func NewTimeTicker(d time.Duration) Ticker {
	return timeTicker{t: time.NewTicker(d)}
}

// Config configures a Runner.
type Config struct {
	Source    prompts.Source
	Picker    *prompts.Picker
	Recorder  *Recorder
	Identity  *identity.Identity
	Category  string
	Duration  int
	Emit      func(Event)
	Logger    *slog.Logger
	NewTicker TickerFactory
}

type commandKind int

const (
	commandKey commandKind = iota
	commandSettings
	commandRetry
)

type command struct {
	kind     commandKind
	key      engine.Key
	duration int
	category string
}

// Runner serializes keystrokes, settings changes, retries and ticks for one
// engine through a single goroutine.
type Runner struct {
	id        string
	source    prompts.Source
	picker    *prompts.Picker
	recorder  *Recorder
	ident     *identity.Identity
	emit      func(Event)
	logger    *slog.Logger
	newTicker TickerFactory

	eng      *engine.Engine
	category string
	loading  bool

	ticker Ticker
	tickC  <-chan time.Time

	input chan command
	done  chan struct{}
	saves sync.WaitGroup
}

// New returns a Runner. Call Run to start it.
func New(cfg Config) *Runner {
	category := prompts.NormalizeCategory(cfg.Category)
	if category == "" {
		category = prompts.DefaultCategory
	}
	picker := cfg.Picker
	if picker == nil {
		picker = prompts.NewPicker()
	}
	emit := cfg.Emit
	if emit == nil {
		emit = func(Event) {}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	newTicker := cfg.NewTicker
	if newTicker == nil {
		newTicker = NewTimeTicker
	}
	id := uuid.NewString()
	return &Runner{
		id:        id,
		source:    cfg.Source,
		picker:    picker,
		recorder:  cfg.Recorder,
		ident:     cfg.Identity,
		emit:      emit,
		logger:    logger.With("runner_id", id),
		newTicker: newTicker,
		eng:       engine.New("", cfg.Duration, category),
		category:  category,
		input:     make(chan command, 64),
		done:      make(chan struct{}),
	}
}

// ID identifies the runner in logs.
func (r *Runner) ID() string {
	return r.id
}

// Key queues a keystroke.
func (r *Runner) Key(k engine.Key) {
	r.send(command{kind: commandKey, key: k})
}

// Settings queues a settings change. A duration below 1 or an empty
// category leaves that setting unchanged.
func (r *Runner) Settings(duration int, category string) {
	r.send(command{kind: commandSettings, duration: duration, category: category})
}

// Retry queues a reset that also selects a new prompt.
func (r *Runner) Retry() {
	r.send(command{kind: commandRetry})
}

func (r *Runner) send(cmd command) {
	select {
	case r.input <- cmd:
	case <-r.done:
	}
}

// Run processes events until ctx is cancelled. In-flight saves finish
// before Run returns.
func (r *Runner) Run(ctx context.Context) {
	defer close(r.done)
	defer r.saves.Wait()
	defer r.stopTicker()

	r.loadCategory(ctx, r.category)
	for {
		select {
		case <-ctx.Done():
			return
		case cmd := <-r.input:
			r.handle(ctx, cmd)
		case <-r.tickC:
			r.tick(ctx)
		}
	}
}

func (r *Runner) handle(ctx context.Context, cmd command) {
	switch cmd.kind {
	case commandKey:
		r.submit(cmd.key)
	case commandSettings:
		r.applySettings(ctx, cmd.duration, cmd.category)
	case commandRetry:
		r.stopTicker()
		if r.eng.Reset(true) {
			r.nextPrompt()
		}
		r.emitState()
	}
}

func (r *Runner) submit(k engine.Key) {
	if r.loading {
		return
	}
	out := r.eng.Submit(k)
	if !out.Accepted {
		return
	}
	if out.Started {
		r.startTicker()
	}
	if out.PromptComplete {
		r.nextPrompt()
	}
	r.emitState()
}

func (r *Runner) applySettings(ctx context.Context, duration int, category string) {
	category = prompts.NormalizeCategory(category)
	durationChanged := duration >= 1 && duration != r.eng.Duration()
	categoryChanged := category != "" && category != r.category
	if !durationChanged && !categoryChanged {
		return
	}

	r.stopTicker()
	if durationChanged {
		r.eng.SetDuration(duration)
	}
	if categoryChanged {
		r.eng.SetCategory(category)
		r.category = category
		r.loadCategory(ctx, category)
		return
	}
	r.nextPrompt()
	r.emitState()
}

func (r *Runner) loadCategory(ctx context.Context, category string) {
	var list []model.Prompt
	if r.source != nil {
		fetched, err := r.source.FetchPrompts(ctx, category)
		if err != nil {
			r.logger.Warn("failed to fetch prompts", "category", category, "error", err)
		}
		list = fetched
	}
	p, ok := r.picker.Load(list)
	if !ok {
		r.loading = true
		r.eng.SetPrompt("")
		r.emit(Event{Type: EventLoading, Category: category})
		return
	}
	r.loading = false
	r.eng.SetPrompt(p.Text)
	r.emit(Event{Type: EventPrompt, Category: category, Prompt: p.Text})
	r.emitState()
}

func (r *Runner) nextPrompt() {
	p, ok := r.picker.Next()
	if !ok {
		return
	}
	r.eng.SetPrompt(p.Text)
	r.emit(Event{Type: EventPrompt, Category: r.category, Prompt: p.Text})
}

func (r *Runner) tick(ctx context.Context) {
	if r.eng.Status() != engine.StatusInProgress {
		r.stopTicker()
		return
	}
	res, finished := r.eng.Tick()
	if !finished {
		r.emit(Event{Type: EventTick, Remaining: r.eng.Remaining()})
		return
	}
	r.stopTicker()
	payload := newResultPayload(res)
	r.emit(Event{Type: EventResult, Status: r.eng.Status().String(), Result: &payload})
	r.record(ctx, res)
}

func (r *Runner) record(ctx context.Context, res engine.Result) {
	if r.recorder == nil || r.ident == nil {
		return
	}
	ident := *r.ident
	saveCtx := context.WithoutCancel(ctx)
	r.saves.Add(1)
	go func() {
		defer r.saves.Done()
		r.recorder.Record(saveCtx, &ident, res)
	}()
}

func (r *Runner) startTicker() {
	r.stopTicker()
	r.ticker = r.newTicker(time.Second)
	r.tickC = r.ticker.C()
}

func (r *Runner) stopTicker() {
	if r.ticker == nil {
		return
	}
	r.ticker.Stop()
	r.ticker = nil
	r.tickC = nil
}

func (r *Runner) emitState() {
	r.emit(Event{
		Type:        EventState,
		Status:      r.eng.Status().String(),
		Category:    r.category,
		Duration:    r.eng.Duration(),
		Remaining:   r.eng.Remaining(),
		Typed:       string(r.eng.Typed()),
		TotalTyped:  r.eng.TotalTyped(),
		TotalErrors: r.eng.TotalErrors(),
	})
}
