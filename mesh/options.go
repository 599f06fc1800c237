package mesh

import (
	"context"
	"errors"
	"time"

	"github.com/dshills/exprmesh-go/mesh/emit"
)

// DefaultQuietSleep is the pause taken by a Step that found neither a
// ready computation nor a pending message. It is a coarse anti-spin
// heuristic, not a correctness requirement.
const DefaultQuietSleep = 1 * time.Second

// Options configures a site engine.
type Options struct {
	// Name is the site's human name, used in events, errors and metric
	// labels. Defaults to the SiteId's string form.
	Name string

	// QuietSleep is the idle-tick pause. Zero means DefaultQuietSleep.
	// Tests typically shrink it to keep convergence loops fast.
	QuietSleep time.Duration
}

// Option is a functional option for configuring a site.
//
// Options can be mixed with the Options struct:
//
//	site, err := mesh.NewSite(sid, fabric.Endpoint(sid), reasoner, fn,
//	    mesh.WithName("Amy"),
//	    mesh.WithQuietSleep(10*time.Millisecond),
//	    mesh.WithMetrics(metrics),
//	)
type Option func(*siteConfig) error

// siteConfig collects options before applying them to a Site.
type siteConfig struct {
	opts    Options
	emitter emit.Emitter
	metrics *PrometheusMetrics
	clock   Clock
}

// Clock abstracts the engine's idle pause so tests can observe or
// eliminate it without waiting on wall time.
type Clock interface {
	// Sleep pauses for d, or until ctx is done, whichever comes first.
	Sleep(ctx context.Context, d time.Duration)
}

// wallClock is the default Clock: a timer against wall time.
type wallClock struct{}

func (wallClock) Sleep(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

// WithName sets the site's human name.
func WithName(name string) Option {
	return func(cfg *siteConfig) error {
		if name == "" {
			return errors.New("site name must not be empty")
		}
		cfg.opts.Name = name
		return nil
	}
}

// WithQuietSleep sets the idle-tick pause.
//
// The sleep only occurs when a Step neither completed a computation nor
// drained any message, so shrinking it never changes behavior — it only
// trades CPU for latency.
func WithQuietSleep(d time.Duration) Option {
	return func(cfg *siteConfig) error {
		if d < 0 {
			return errors.New("quiet sleep must not be negative")
		}
		cfg.opts.QuietSleep = d
		return nil
	}
}

// WithEmitter attaches an event emitter. Defaults to emit.NullEmitter.
// The fleet bootstrapper attaches a per-site LineEmitter over
// ./logs/<site_name> instead.
func WithEmitter(e emit.Emitter) Option {
	return func(cfg *siteConfig) error {
		cfg.emitter = e
		return nil
	}
}

// WithMetrics attaches Prometheus metrics. One PrometheusMetrics may be
// shared across a fleet; series are separated by the site label.
func WithMetrics(m *PrometheusMetrics) Option {
	return func(cfg *siteConfig) error {
		cfg.metrics = m
		return nil
	}
}

// WithClock replaces the idle-pause time source. Defaults to wall time;
// tests substitute a fake to observe sleeps or make idle ticks
// instantaneous.
func WithClock(c Clock) Option {
	return func(cfg *siteConfig) error {
		if c == nil {
			return errors.New("clock must not be nil")
		}
		cfg.clock = c
		return nil
	}
}
