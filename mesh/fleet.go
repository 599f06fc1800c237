package mesh

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/dshills/exprmesh-go/mesh/compute"
	"github.com/dshills/exprmesh-go/mesh/emit"
)

// Fleet bootstraps and drives a fixed set of sites over one in-process
// fabric.
//
// Construction wires every site identically: the shared reasoner, the
// shared compute function, one fabric endpoint each, and one log file
// per site under the configured log directory. Membership is fixed at
// construction; the engine does not support reconfiguration.
//
// Two driving modes:
//   - Run: one worker goroutine per site, stepping until ctx is done.
//   - StepAll: one synchronous round over every site, for deterministic
//     single-threaded drives in tests and tools.
//
// Example:
//
//	names := map[mesh.SiteId]string{amy: "Amy", bob: "Bob", cho: "Cho"}
//	fleet, err := mesh.NewFleet(names, reasoner, compute.ArgLens)
//	defer fleet.Close()
//
//	ctx, cancel := context.WithCancel(context.Background())
//	go func() { _ = fleet.Run(ctx) }()
//	did, err := fleet.WaitResolved(ctx, amy, eid)
//	cancel()
type Fleet struct {
	fabric   *Fabric
	sites    map[SiteId]*Site
	order    []SiteId
	logFiles []*os.File
}

// FleetOption is a functional option for configuring a Fleet.
type FleetOption func(*fleetConfig) error

type fleetConfig struct {
	logDir      string
	emitter     emit.Emitter
	metrics     *PrometheusMetrics
	quietSleep  time.Duration
	disableLogs bool
	siteOpts    []Option
}

// WithLogDir sets the directory for per-site log files (one file per
// site, named after the site). Default "./logs".
func WithLogDir(dir string) FleetOption {
	return func(cfg *fleetConfig) error {
		if dir == "" {
			return errors.New("log directory must not be empty")
		}
		cfg.logDir = dir
		return nil
	}
}

// WithoutLogFiles disables per-site log files.
func WithoutLogFiles() FleetOption {
	return func(cfg *fleetConfig) error {
		cfg.disableLogs = true
		return nil
	}
}

// WithFleetEmitter routes every site's events to one shared emitter
// instead of per-site log files. The emitter must be safe for
// concurrent use.
func WithFleetEmitter(e emit.Emitter) FleetOption {
	return func(cfg *fleetConfig) error {
		cfg.emitter = e
		return nil
	}
}

// WithFleetMetrics attaches shared Prometheus metrics to every site.
func WithFleetMetrics(m *PrometheusMetrics) FleetOption {
	return func(cfg *fleetConfig) error {
		cfg.metrics = m
		return nil
	}
}

// WithFleetQuietSleep sets every site's idle-tick pause.
func WithFleetQuietSleep(d time.Duration) FleetOption {
	return func(cfg *fleetConfig) error {
		if d < 0 {
			return errors.New("quiet sleep must not be negative")
		}
		cfg.quietSleep = d
		return nil
	}
}

// WithSiteOptions forwards per-site options to every site the fleet
// constructs. They apply after the fleet's own settings, so a site
// option here overrides the fleet-level equivalent.
func WithSiteOptions(opts ...Option) FleetOption {
	return func(cfg *fleetConfig) error {
		cfg.siteOpts = append(cfg.siteOpts, opts...)
		return nil
	}
}

// NewFleet creates a fleet of sites, one per entry of names, sharing
// reasoner and compute function.
//
// A reasoner shared this way must be safe for concurrent calls; pure
// predicate implementations are.
func NewFleet(names map[SiteId]string, reasoner Reasoner, fn compute.Func, opts ...FleetOption) (*Fleet, error) {
	if len(names) == 0 {
		return nil, errors.New("fleet requires at least one site")
	}

	cfg := fleetConfig{logDir: "./logs"}
	for _, opt := range opts {
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	// Deterministic site order: sorted by id bits.
	order := make([]SiteId, 0, len(names))
	for sid := range names {
		order = append(order, sid)
	}
	sort.Slice(order, func(i, j int) bool { return order[i].Bits < order[j].Bits })

	f := &Fleet{
		fabric: NewFabric(order),
		sites:  make(map[SiteId]*Site, len(names)),
		order:  order,
	}

	for _, sid := range order {
		name := names[sid]
		emitter := cfg.emitter
		if emitter == nil && !cfg.disableLogs {
			file, err := f.openLogFile(cfg.logDir, name)
			if err != nil {
				f.Close()
				return nil, err
			}
			emitter = emit.NewLineEmitter(file, false)
		}

		siteOpts := []Option{WithName(name)}
		if emitter != nil {
			siteOpts = append(siteOpts, WithEmitter(emitter))
		}
		if cfg.metrics != nil {
			siteOpts = append(siteOpts, WithMetrics(cfg.metrics))
		}
		if cfg.quietSleep != 0 {
			siteOpts = append(siteOpts, WithQuietSleep(cfg.quietSleep))
		}
		siteOpts = append(siteOpts, cfg.siteOpts...)

		site, err := NewSite(sid, f.fabric.Endpoint(sid), reasoner, fn, siteOpts...)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("bootstrap site %q: %w", name, err)
		}
		f.sites[sid] = site
	}
	return f, nil
}

func (f *Fleet) openLogFile(dir, name string) (*os.File, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log directory %q: %w", dir, err)
	}
	file, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return nil, fmt.Errorf("create log file for %q: %w", name, err)
	}
	f.logFiles = append(f.logFiles, file)
	return file, nil
}

// Site returns the engine for sid, or nil if sid is not a member.
func (f *Fleet) Site(sid SiteId) *Site {
	return f.sites[sid]
}

// Sites returns the member ids in deterministic order.
func (f *Fleet) Sites() []SiteId {
	return append([]SiteId(nil), f.order...)
}

// Run drives every site with one worker goroutine each until ctx is
// done. A site whose Step returns a fatal error stops stepping; the
// rest keep running — there is no supervisor.
//
// Run blocks until all workers have stopped and returns the collected
// fatal errors, if any.
func (f *Fleet) Run(ctx context.Context) error {
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	for _, sid := range f.order {
		site := f.sites[sid]
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ctx.Err() == nil {
				if _, err := site.Step(ctx); err != nil {
					mu.Lock()
					errs = append(errs, err)
					mu.Unlock()
					return
				}
			}
		}()
	}
	wg.Wait()
	return errors.Join(errs...)
}

// StepAll performs one synchronous Step on every site in deterministic
// order, suppressing the idle sleep by cancelling it immediately.
// Returns whether any site made progress.
func (f *Fleet) StepAll(ctx context.Context) (bool, error) {
	progressed := false
	for _, sid := range f.order {
		// An already-cancelled context skips the quiet sleep of idle
		// sites, keeping synchronous rounds fast.
		stepCtx, cancel := context.WithCancel(ctx)
		cancel()
		p, err := f.sites[sid].Step(stepCtx)
		if err != nil {
			return progressed, err
		}
		progressed = progressed || p
	}
	return progressed, nil
}

// WaitResolved polls sid's engine until eid has a resolution or ctx is
// done. It does not step any site; drive the fleet with Run (or StepAll
// rounds) concurrently.
func (f *Fleet) WaitResolved(ctx context.Context, sid SiteId, eid ExprId) (DataId, error) {
	site := f.sites[sid]
	if site == nil {
		return DataId{}, ErrUnknownPeer
	}
	ticker := time.NewTicker(time.Millisecond)
	defer ticker.Stop()
	for {
		if did, ok := site.Resolved(eid); ok {
			return did, nil
		}
		select {
		case <-ctx.Done():
			return DataId{}, ctx.Err()
		case <-ticker.C:
		}
	}
}

// Close shuts the fabric down and closes per-site log files.
func (f *Fleet) Close() {
	if f.fabric != nil {
		f.fabric.Close()
	}
	for _, file := range f.logFiles {
		_ = file.Close()
	}
	f.logFiles = nil
}
