// Package conversion promotes leads in active deal stages into opportunity
// (property) records, once per lead, on a fixed schedule.
package conversion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/starford/flipdesk/internal/apperr"
	"github.com/starford/flipdesk/internal/metrics"
	"github.com/starford/flipdesk/internal/models"
	"github.com/starford/flipdesk/internal/store"
)

// Trigger tags recorded in activity metadata.
const (
	TriggerStartup  = "startup"
	TriggerInterval = "interval"
	TriggerManual   = "manual"
)

// DefaultInterval is the pause between scheduled passes.
const DefaultInterval = 60 * time.Second

var (
	// ErrRunInProgress is returned when a pass is requested while another
	// pass of the same worker is still running.
	ErrRunInProgress = errors.New("conversion: run already in progress")
	// ErrLeaseHeld is returned when another instance holds the run lease.
	ErrLeaseHeld = errors.New("conversion: lease held by another instance")

	errAlreadyConverted = errors.New("lead already converted")
)

// Store is the record-store surface the worker needs.
type Store interface {
	ListLeads(ctx context.Context) ([]models.Lead, error)
	ListConversionCandidates(ctx context.Context, statuses []string) ([]models.Lead, error)
	InTx(ctx context.Context, fn func(tx *store.Tx) error) error
}

// Locker guards a pass across processes. release must be called once the
// pass finishes; ok is false when the lease is held elsewhere.
type Locker interface {
	Acquire(ctx context.Context) (release func(), ok bool, err error)
}

// Conversion describes one property created from a lead.
type Conversion struct {
	LeadID     int64                 `json:"leadId"`
	PropertyID int64                 `json:"propertyId"`
	ActivityID int64                 `json:"activityId"`
	Address    string                `json:"address"`
	Status     models.PropertyStatus `json:"status"`
	Price      *float64              `json:"price"`
}

// Report summarizes one pass.
type Report struct {
	RunID       string        `json:"runId"`
	Trigger     string        `json:"trigger"`
	StartedAt   time.Time     `json:"startedAt"`
	Duration    time.Duration `json:"duration"`
	Scanned     int           `json:"scanned"`
	Eligible    int           `json:"eligible"`
	Converted   int           `json:"converted"`
	Skipped     int           `json:"skipped"`
	Failed      int           `json:"failed"`
	Conversions []Conversion  `json:"conversions"`
}

// Listener is called after every pass that converted at least one lead.
type Listener func(ctx context.Context, r Report)

// Worker runs conversion passes. The zero value is not usable; use New.
type Worker struct {
	store      Store
	interval   time.Duration
	runTimeout time.Duration
	pushdown   bool
	locker     Locker
	listeners  []Listener
	logger     *slog.Logger

	running sync.Mutex

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// Option configures a Worker.
type Option func(*Worker)

// WithInterval sets the pause between scheduled passes.
func WithInterval(d time.Duration) Option {
	return func(w *Worker) {
		if d > 0 {
			w.interval = d
		}
	}
}

// WithRunTimeout bounds a single pass. Zero disables the bound.
func WithRunTimeout(d time.Duration) Option {
	return func(w *Worker) { w.runTimeout = d }
}

// WithPushdown makes the store select candidates instead of the worker
// scanning every lead.
func WithPushdown(enabled bool) Option {
	return func(w *Worker) { w.pushdown = enabled }
}

// WithLocker guards each pass with a cross-process lease.
func WithLocker(l Locker) Option {
	return func(w *Worker) { w.locker = l }
}

// WithListener registers a listener for passes with conversions.
func WithListener(l Listener) Option {
	return func(w *Worker) { w.listeners = append(w.listeners, l) }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(w *Worker) { w.logger = l }
}

// New creates a Worker over s.
func New(s Store, opts ...Option) *Worker {
	w := &Worker{
		store:    s,
		interval: DefaultInterval,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run executes a pass immediately and then every interval until ctx is
// cancelled. Pass failures are logged; the next tick starts from scratch.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info("conversion worker: started",
		slog.Duration("interval", w.interval),
		slog.Bool("pushdown", w.pushdown))

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.tick(ctx, TriggerStartup)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("conversion worker: stopped")
			return nil
		case <-ticker.C:
			w.tick(ctx, TriggerInterval)
		}
	}
}

func (w *Worker) tick(ctx context.Context, trigger string) {
	_, err := w.RunOnce(ctx, trigger)
	switch {
	case err == nil:
	case errors.Is(err, ErrRunInProgress), errors.Is(err, ErrLeaseHeld):
		w.logger.Debug("conversion worker: pass skipped", slog.String("reason", err.Error()))
	case ctx.Err() != nil:
	default:
		w.logger.Error("conversion worker: pass failed",
			slog.String("trigger", trigger),
			slog.String("error", err.Error()))
	}
}

// Start runs the schedule in a background goroutine. Calling Start on a
// running worker is a no-op.
func (w *Worker) Start(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.done != nil {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	w.cancel, w.done = cancel, done

	go func() {
		defer close(done)
		_ = w.Run(ctx)
	}()
}

// Stop cancels the schedule started by Start and waits for the current pass
// to return.
func (w *Worker) Stop() {
	w.mu.Lock()
	cancel := w.cancel
	w.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	w.Wait()
}

// Wait blocks until the schedule started by Start has exited.
func (w *Worker) Wait() {
	w.mu.Lock()
	done := w.done
	w.mu.Unlock()
	if done != nil {
		<-done
	}
}

// RunOnce executes a single pass. It fails only when the pass could not
// start or the lead fetch failed; per-lead failures are counted in the
// report and retried on the next pass.
func (w *Worker) RunOnce(ctx context.Context, trigger string) (Report, error) {
	if !w.running.TryLock() {
		return Report{}, ErrRunInProgress
	}
	defer w.running.Unlock()

	if w.runTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.runTimeout)
		defer cancel()
	}

	if w.locker != nil {
		release, ok, err := w.locker.Acquire(ctx)
		if err != nil {
			metrics.ConversionRuns.WithLabelValues("failed").Inc()
			return Report{}, fmt.Errorf("conversion: acquire lease: %w", err)
		}
		if !ok {
			metrics.ConversionRuns.WithLabelValues("skipped").Inc()
			return Report{}, ErrLeaseHeld
		}
		defer release()
	}

	report := Report{
		RunID:       uuid.NewString(),
		Trigger:     trigger,
		StartedAt:   time.Now().UTC(),
		Conversions: []Conversion{},
	}
	logger := w.logger.With(slog.String("run_id", report.RunID), slog.String("trigger", trigger))

	leads, err := w.fetch(ctx)
	if err != nil {
		metrics.ConversionRuns.WithLabelValues("failed").Inc()
		return report, fmt.Errorf("conversion: fetch leads: %w", err)
	}
	report.Scanned = len(leads)

	for _, lead := range leads {
		status, ok := models.ConvertibleStatus(lead.Status)
		if !ok {
			continue
		}
		report.Eligible++

		if ctx.Err() != nil {
			report.Failed++
			continue
		}

		conv, err := w.convert(ctx, lead, status, trigger)
		switch {
		case errors.Is(err, errAlreadyConverted):
			report.Skipped++
		case err != nil:
			report.Failed++
			metrics.ConversionFailures.Inc()
			logger.Warn("conversion: lead failed",
				slog.Int64("lead_id", lead.ID),
				slog.String("error", err.Error()))
		default:
			report.Converted++
			report.Conversions = append(report.Conversions, conv)
			metrics.LeadsConverted.Inc()
			logger.Info("conversion: lead converted",
				slog.Int64("lead_id", conv.LeadID),
				slog.Int64("property_id", conv.PropertyID),
				slog.String("status", string(conv.Status)))
		}
	}

	report.Duration = time.Since(report.StartedAt)
	metrics.ConversionRunDuration.Observe(report.Duration.Seconds())
	metrics.ConversionRuns.WithLabelValues("ok").Inc()

	logger.Info("conversion: pass finished",
		slog.Int("scanned", report.Scanned),
		slog.Int("eligible", report.Eligible),
		slog.Int("converted", report.Converted),
		slog.Int("skipped", report.Skipped),
		slog.Int("failed", report.Failed),
		slog.Duration("duration", report.Duration))

	if report.Converted > 0 {
		for _, l := range w.listeners {
			l(ctx, report)
		}
	}
	return report, nil
}

func (w *Worker) fetch(ctx context.Context) ([]models.Lead, error) {
	if w.pushdown {
		return w.store.ListConversionCandidates(ctx, models.ConvertibleLeadStatuses())
	}
	return w.store.ListLeads(ctx)
}

// convert creates the property and its activity entry in one transaction.
// An existing property for the lead, or losing the unique source_lead_id
// race to another writer, yields errAlreadyConverted.
func (w *Worker) convert(ctx context.Context, lead models.Lead, status models.PropertyStatus, trigger string) (Conversion, error) {
	var conv Conversion
	err := w.store.InTx(ctx, func(tx *store.Tx) error {
		_, err := tx.FindPropertyBySourceLeadID(ctx, lead.ID)
		if err == nil {
			return errAlreadyConverted
		}
		if !errors.Is(err, apperr.ErrNotFound) {
			return err
		}

		leadID := lead.ID
		prop := models.Property{
			Address:      lead.Address,
			City:         lead.City,
			State:        lead.State,
			ZipCode:      lead.ZipCode,
			Price:        copyMoney(lead.EstimatedValue),
			Status:       string(status),
			SourceLeadID: &leadID,
		}
		if err := tx.CreateProperty(ctx, &prop); err != nil {
			return err
		}

		meta, err := json.Marshal(models.ConversionMetadata{
			LeadID:     lead.ID,
			PropertyID: prop.ID,
			Address:    lead.Address,
			Trigger:    trigger,
		})
		if err != nil {
			return fmt.Errorf("encode metadata: %w", err)
		}
		act := models.GlobalActivity{
			UserID:      models.SystemUserID,
			Action:      models.ActionAutoConvertedLead,
			Description: describe(lead, prop),
			Metadata:    string(meta),
		}
		if err := tx.AppendActivity(ctx, &act); err != nil {
			return err
		}

		conv = Conversion{
			LeadID:     lead.ID,
			PropertyID: prop.ID,
			ActivityID: act.ID,
			Address:    prop.Address,
			Status:     status,
			Price:      prop.Price,
		}
		return nil
	})
	if errors.Is(err, apperr.ErrAlreadyExists) {
		return Conversion{}, errAlreadyConverted
	}
	return conv, err
}

func describe(lead models.Lead, prop models.Property) string {
	addr := lead.Address
	if addr == "" {
		addr = "(no address)"
	}
	return fmt.Sprintf("Lead #%d at %s moved to %s and was converted to opportunity #%d",
		lead.ID, addr, models.NormalizeStatus(lead.Status), prop.ID)
}

func copyMoney(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
