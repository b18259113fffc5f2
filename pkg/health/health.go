// Package health serves liveness and readiness probes.
//
// Probes run periodically in the background. A probe turns unhealthy after
// three consecutive failures and healthy again after one success, so a single
// slow ping does not flip readiness.
package health

import (
	"context"
	"net/http"
	"sort"
	"sync/atomic"
	"time"

	"github.com/go-faster/jx"
	"golang.org/x/sync/errgroup"
)

// Check reports nil when the component it watches is healthy.
type Check func(ctx context.Context) error

const failAfter = 3

type probe struct {
	name    string
	timeout time.Duration
	check   Check

	// Only touched by the probe's own loop.
	fails int

	healthy atomic.Bool
	lastErr atomic.Pointer[string]
}

func newProbe(name string, timeout time.Duration, check Check) *probe {
	p := &probe{name: name, timeout: timeout, check: check}
	p.healthy.Store(true)
	return p
}

func (p *probe) run(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	if err := p.check(ctx); err != nil {
		msg := err.Error()
		p.lastErr.Store(&msg)
		p.fails++
		if p.fails >= failAfter {
			p.healthy.Store(false)
		}
		return
	}
	p.fails = 0
	p.lastErr.Store(nil)
	p.healthy.Store(true)
}

func (p *probe) loop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	p.run(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.run(ctx)
		}
	}
}

// Health aggregates liveness and readiness probes. Register probes before
// calling Run.
type Health struct {
	ready     atomic.Bool
	liveness  []*probe
	readiness []*probe
}

// New returns a Health that reports not ready until SetReady(true).
func New() *Health {
	return &Health{}
}

// AddLiveness registers a probe that decides whether the process should be
// restarted.
func (h *Health) AddLiveness(name string, timeout time.Duration, check Check) {
	h.liveness = append(h.liveness, newProbe(name, timeout, check))
}

// AddReadiness registers a probe that decides whether the process should
// receive traffic.
func (h *Health) AddReadiness(name string, timeout time.Duration, check Check) {
	h.readiness = append(h.readiness, newProbe(name, timeout, check))
}

// Run executes every probe at the given interval until ctx is done.
func (h *Health) Run(ctx context.Context, interval time.Duration) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, p := range append(append([]*probe(nil), h.liveness...), h.readiness...) {
		g.Go(func() error {
			p.loop(ctx, interval)
			return nil
		})
	}
	return g.Wait()
}

// SetReady toggles the manual readiness flag, e.g. to drain traffic before
// shutdown.
func (h *Health) SetReady(ready bool) {
	h.ready.Store(ready)
}

// Ready reports whether the service is marked ready and every readiness
// probe passes.
func (h *Health) Ready() bool {
	return h.ready.Load() && len(failures(h.readiness)) == 0
}

// Live serves /livez.
func (h *Health) Live(w http.ResponseWriter, _ *http.Request) {
	respond(w, failures(h.liveness))
}

// Readyz serves /readyz.
func (h *Health) Readyz(w http.ResponseWriter, _ *http.Request) {
	failed := failures(h.readiness)
	if !h.ready.Load() {
		failed["_readiness"] = "service is not ready"
	}
	respond(w, failed)
}

func failures(probes []*probe) map[string]string {
	out := make(map[string]string)
	for _, p := range probes {
		if p.healthy.Load() {
			continue
		}
		msg := "check is unhealthy"
		if last := p.lastErr.Load(); last != nil {
			msg = *last
		}
		out[p.name] = msg
	}
	return out
}

func respond(w http.ResponseWriter, failed map[string]string) {
	status := http.StatusOK
	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("status")
	if len(failed) == 0 {
		e.Str("ok")
	} else {
		status = http.StatusServiceUnavailable
		e.Str("unhealthy")

		names := make([]string, 0, len(failed))
		for name := range failed {
			names = append(names, name)
		}
		sort.Strings(names)

		e.FieldStart("checks")
		e.ObjStart()
		for _, name := range names {
			e.FieldStart(name)
			e.Str(failed[name])
		}
		e.ObjEnd()
	}
	e.ObjEnd()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}
