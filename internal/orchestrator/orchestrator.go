// Package orchestrator sequences the backend calls with the render state
// transitions of the process table.
package orchestrator

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"go-process-table-ui/internal/connectors/processapi"
	"go-process-table-ui/internal/process"
	"go-process-table-ui/internal/render"
)

const (
	MsgLoading          = "Loading processes data..."
	MsgGenerating       = "Generating new processes..."
	MsgGenerated        = "Processes generated successfully!"
	MsgNoData           = "No processes data available"
	MsgGenerationFailed = "Failed to generate processes"
)

// ErrBusy is returned when single-flight mode rejects a trigger.
var ErrBusy = errors.New("a request is already in flight")

// Fetcher is the backend surface the orchestrator needs.
type Fetcher interface {
	FetchProcesses(ctx context.Context) (string, error)
	TriggerGeneration(ctx context.Context) error
}

// Options tune an Orchestrator.
type Options struct {
	// ResyncDelay is how long after a successful generation the table is
	// fetched again. Zero disables the re-sync.
	ResyncDelay time.Duration
	// ResyncTimeout bounds the re-sync fetch.
	ResyncTimeout time.Duration
	// SingleFlight rejects triggers while a cycle is in flight.
	SingleFlight bool
	// OnResync runs after every re-sync fetch.
	OnResync func()
	// OnCycle observes the outcome of each cycle.
	OnCycle func(op string, d time.Duration, err error)
}

// Orchestrator runs display and regeneration cycles.
type Orchestrator struct {
	fetcher  Fetcher
	renderer *render.Renderer
	logger   *zap.Logger
	opts     Options

	resync   Resync
	baseCtx  context.Context
	cancel   context.CancelFunc
	inFlight atomic.Bool
}

func New(fetcher Fetcher, renderer *render.Renderer, logger *zap.Logger, opts Options) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.ResyncTimeout <= 0 {
		opts.ResyncTimeout = 30 * time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Orchestrator{
		fetcher:  fetcher,
		renderer: renderer,
		logger:   logger,
		opts:     opts,
		baseCtx:  ctx,
		cancel:   cancel,
	}
}

// Renderer returns the renderer driven by o.
func (o *Orchestrator) Renderer() *render.Renderer {
	return o.renderer
}

// ResyncPending reports whether a re-sync is scheduled.
func (o *Orchestrator) ResyncPending() bool {
	return o.resync.Pending()
}

// Close cancels a pending re-sync and waits for a running one.
func (o *Orchestrator) Close() {
	o.cancel()
	o.resync.Stop()
}

// DisplayCurrentData fetches the process table and renders it. The
// returned error has already been rendered.
func (o *Orchestrator) DisplayCurrentData(ctx context.Context) error {
	if !o.enter() {
		return ErrBusy
	}
	defer o.leave()
	return o.observe("display", func() error { return o.display(ctx) })
}

// RegenerateAndDisplay asks the backend for a new table, renders it and
// schedules a re-sync. The returned error has already been rendered.
func (o *Orchestrator) RegenerateAndDisplay(ctx context.Context) error {
	if !o.enter() {
		return ErrBusy
	}
	defer o.leave()
	return o.observe("generate", func() error { return o.regenerate(ctx) })
}

func (o *Orchestrator) display(ctx context.Context) error {
	o.renderer.ShowLoading(MsgLoading)

	payload, err := o.fetcher.FetchProcesses(ctx)
	if err != nil {
		o.logger.Warn("fetch processes failed", zap.Error(err))
		o.renderer.ShowError(fetchErrorMessage(err))
		return err
	}

	res, err := process.ParseDetailed(payload)
	if err != nil {
		o.logger.Info("process payload rejected", zap.Error(err), zap.Int("bytes", len(payload)))
		o.renderer.ShowError(err.Error())
		return err
	}
	for _, d := range res.Dropped {
		o.logger.Debug("dropped malformed process row", zap.Int("line", d.Line), zap.String("reason", d.Reason))
	}

	o.renderer.ShowRows(res.Records)
	o.logger.Debug("process table rendered",
		zap.Int("rows", len(res.Records)),
		zap.Int("dropped", len(res.Dropped)))
	return nil
}

func (o *Orchestrator) regenerate(ctx context.Context) error {
	o.renderer.ShowLoading(MsgGenerating)

	if err := o.fetcher.TriggerGeneration(ctx); err != nil {
		o.logger.Warn("generation failed", zap.Error(err))
		o.renderer.ShowError(generationErrorMessage(err))
		return err
	}

	o.renderer.ShowSuccess(MsgGenerated)
	// The re-sync covers an immediate refresh that fails.
	if o.opts.ResyncDelay > 0 {
		o.resync.Schedule(o.opts.ResyncDelay, o.runResync)
	}
	return o.display(ctx)
}

func (o *Orchestrator) runResync() {
	ctx, cancel := context.WithTimeout(o.baseCtx, o.opts.ResyncTimeout)
	defer cancel()

	o.logger.Debug("re-syncing process table")
	// The re-sync is a fallback refresh and ignores the in-flight guard.
	err := o.observe("resync", func() error { return o.display(ctx) })
	if err != nil && ctx.Err() != nil {
		return
	}
	if o.opts.OnResync != nil {
		o.opts.OnResync()
	}
}

func (o *Orchestrator) enter() bool {
	if !o.opts.SingleFlight {
		return true
	}
	return o.inFlight.CompareAndSwap(false, true)
}

func (o *Orchestrator) leave() {
	if o.opts.SingleFlight {
		o.inFlight.Store(false)
	}
}

func (o *Orchestrator) observe(op string, fn func() error) error {
	start := time.Now()
	err := fn()
	if o.opts.OnCycle != nil {
		o.opts.OnCycle(op, time.Since(start), err)
	}
	return err
}

func fetchErrorMessage(err error) string {
	var se *processapi.StatusError
	if errors.As(err, &se) {
		return MsgNoData
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return "Request cancelled: " + err.Error()
	}
	return err.Error()
}

func generationErrorMessage(err error) string {
	var ge *processapi.GenerationError
	if errors.As(err, &ge) && ge.Message != "" {
		return ge.Message
	}
	if errors.Is(err, processapi.ErrGenerationFailed) {
		return MsgGenerationFailed
	}
	return err.Error()
}
