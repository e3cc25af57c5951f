// Package refresh keeps the cluster views current. It polls the report
// source, aggregates every view profile and hands each snapshot to the
// configured sinks. Later passes always win over earlier ones.
package refresh

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/durjog/durjog-map/internal/domain"
	"github.com/durjog/durjog-map/internal/observability"
)

// ErrSuperseded is returned by Refresh when a newer pass stored its snapshot
// first. The newer snapshot is available from Latest.
var ErrSuperseded = errors.New("refresh superseded by a newer pass")

// ReportSource supplies the current set of reports.
type ReportSource interface {
	ListActive(ctx context.Context) ([]domain.EmergencyReport, error)
}

// SnapshotSink receives every stored snapshot.
type SnapshotSink interface {
	Name() string
	PublishSnapshot(ctx context.Context, s *domain.Snapshot) error
}

// Option configures a Refresher.
type Option func(*Refresher)

// WithGeocoder labels markers with reverse-geocoded place names.
func WithGeocoder(g domain.Geocoder) Option {
	return func(r *Refresher) { r.geocoder = g }
}

// WithSinks adds snapshot sinks.
func WithSinks(sinks ...SnapshotSink) Option {
	return func(r *Refresher) { r.sinks = append(r.sinks, sinks...) }
}

// WithClock replaces the real clock, for tests.
func WithClock(c clockwork.Clock) Option {
	return func(r *Refresher) { r.clock = c }
}

// Refresher recomputes cluster snapshots on a timer and on demand.
type Refresher struct {
	source   ReportSource
	profiles []domain.ViewProfile
	interval time.Duration
	geocoder domain.Geocoder
	sinks    []SnapshotSink
	clock    clockwork.Clock
	logger   *slog.Logger
	metrics  *observability.Metrics

	seq     atomic.Uint64
	trigger chan struct{}

	mu      sync.RWMutex
	current *domain.Snapshot

	publishMu sync.Mutex
}

// New creates a Refresher. Every profile must be valid.
func New(source ReportSource, profiles []domain.ViewProfile, interval time.Duration, logger *slog.Logger, metrics *observability.Metrics, opts ...Option) (*Refresher, error) {
	if len(profiles) == 0 {
		return nil, errors.New("at least one view profile is required")
	}
	for _, p := range profiles {
		if err := p.Validate(); err != nil {
			return nil, err
		}
	}
	if interval <= 0 {
		return nil, fmt.Errorf("refresh interval must be positive, got %s", interval)
	}

	r := &Refresher{
		source:   source,
		profiles: profiles,
		interval: interval,
		clock:    clockwork.NewRealClock(),
		logger:   logger,
		metrics:  metrics,
		trigger:  make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Profiles returns the configured view profiles.
func (r *Refresher) Profiles() []domain.ViewProfile {
	return r.profiles
}

// Latest returns the current snapshot, or nil before the first pass.
func (r *Refresher) Latest() *domain.Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current
}

// CheckReadiness returns an error until a snapshot exists.
func (r *Refresher) CheckReadiness(_ context.Context) error {
	if r.Latest() == nil {
		return errors.New("no cluster snapshot yet")
	}
	return nil
}

// Restore seeds the current snapshot, typically from a cache at startup. The
// snapshot is given sequence 0 so any completed pass replaces it. Restore is
// a no-op once a snapshot exists.
func (r *Refresher) Restore(s *domain.Snapshot) bool {
	if s == nil {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current != nil {
		return false
	}
	restored := *s
	restored.Seq = 0
	r.current = &restored
	r.logger.Info("restored cluster snapshot", "snapshot_id", s.ID, "taken_at", s.TakenAt)
	return true
}

// Trigger asks the run loop for a refresh without waiting for it. Requests
// made while one is pending are coalesced.
func (r *Refresher) Trigger() {
	select {
	case r.trigger <- struct{}{}:
	default:
	}
}

// Run refreshes immediately, then on every tick and trigger until ctx is done.
func (r *Refresher) Run(ctx context.Context) error {
	r.logger.Info("refresher started", "interval", r.interval, "views", len(r.profiles))

	ticker := r.clock.NewTicker(r.interval)
	defer ticker.Stop()

	r.refreshAndLog(ctx)
	for {
		select {
		case <-ctx.Done():
			r.logger.Info("refresher stopping", "reason", ctx.Err())
			return nil
		case <-ticker.Chan():
			r.refreshAndLog(ctx)
		case <-r.trigger:
			r.refreshAndLog(ctx)
		}
	}
}

func (r *Refresher) refreshAndLog(ctx context.Context) {
	_, err := r.Refresh(ctx)
	switch {
	case err == nil, errors.Is(err, ErrSuperseded):
	case ctx.Err() != nil:
	default:
		r.logger.Error("cluster refresh failed, keeping previous snapshot", "error", err)
	}
}

// Refresh runs one pass synchronously and returns the stored snapshot. On a
// source error the previous snapshot is kept.
func (r *Refresher) Refresh(ctx context.Context) (*domain.Snapshot, error) {
	seq := r.seq.Add(1)
	start := r.clock.Now()

	reports, err := r.source.ListActive(ctx)
	if err != nil {
		r.metrics.Refreshes.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("fetch reports: %w", err)
	}

	active := domain.ActiveOnly(reports)
	dropped := r.countMalformed(active)

	snap := &domain.Snapshot{
		ID:          uuid.NewString(),
		Seq:         seq,
		ReportCount: len(active) - dropped,
		Dropped:     dropped,
		Views:       make(map[string]domain.ViewSnapshot, len(r.profiles)),
	}
	for _, p := range r.profiles {
		clusters, err := p.Aggregate(active)
		if err != nil {
			r.metrics.Refreshes.WithLabelValues("error").Inc()
			return nil, fmt.Errorf("aggregate view %s: %w", p.Name, err)
		}
		markers := domain.BuildMarkers(clusters, p)
		domain.LabelMarkers(ctx, markers, r.geocoder, r.logger)
		snap.Views[p.Name] = domain.ViewSnapshot{Profile: p, Clusters: clusters, Markers: markers}
	}
	snap.TakenAt = r.clock.Now().UTC()

	if !r.store(snap) {
		r.metrics.Refreshes.WithLabelValues("superseded").Inc()
		r.logger.Debug("discarding superseded snapshot", "seq", seq)
		return nil, ErrSuperseded
	}

	r.metrics.Refreshes.WithLabelValues("success").Inc()
	r.metrics.RefreshDuration.Observe(r.clock.Since(start).Seconds())
	r.metrics.ReportsDropped.Add(float64(dropped))
	r.metrics.LastRefreshSeconds.Set(float64(snap.TakenAt.Unix()))
	for name, v := range snap.Views {
		r.metrics.Clusters.WithLabelValues(name).Set(float64(len(v.Clusters)))
	}

	r.logger.Info("cluster snapshot stored",
		"snapshot_id", snap.ID,
		"seq", seq,
		"reports", snap.ReportCount,
		"dropped", dropped,
		"changed_views", snap.ChangedViews(),
	)

	r.publish(ctx, snap)
	return snap, nil
}

// countMalformed logs and counts the reports the aggregator will skip.
func (r *Refresher) countMalformed(reports []domain.EmergencyReport) int {
	dropped := 0
	for _, rep := range reports {
		if err := domain.ValidateReport(rep); err != nil {
			dropped++
			r.logger.Warn("skipping malformed report", "report_id", rep.ID, "error", err)
		}
	}
	return dropped
}

// store makes snap current unless a newer pass got there first. Each view's
// diff is taken against the snapshot being replaced.
func (r *Refresher) store(snap *domain.Snapshot) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	prev := r.current
	if prev != nil && prev.Seq > snap.Seq {
		return false
	}
	for name, v := range snap.Views {
		var before []domain.Cluster
		if pv, ok := prev.View(name); ok {
			before = pv.Clusters
		}
		v.Diff = domain.DiffClusters(before, v.Clusters)
		snap.Views[name] = v
	}
	r.current = snap
	return true
}

// publish hands snap to every sink. Sink failures are logged and counted.
func (r *Refresher) publish(ctx context.Context, snap *domain.Snapshot) {
	r.publishMu.Lock()
	defer r.publishMu.Unlock()

	// A newer pass may have been stored while this one waited.
	if r.Latest() != snap {
		return
	}
	for _, sink := range r.sinks {
		if err := sink.PublishSnapshot(ctx, snap); err != nil {
			r.metrics.SinkErrors.WithLabelValues(sink.Name()).Inc()
			r.logger.Warn("snapshot publish failed", "sink", sink.Name(), "snapshot_id", snap.ID, "error", err)
		}
	}
}
