package counterstore

import (
	"go.uber.org/zap"

	"github.com/wudi/pagecount/internal/counter"
	"github.com/wudi/pagecount/internal/logging"
	"github.com/wudi/pagecount/internal/metrics"
)

// DefaultName is the cookie that carries the visitor's counters.
const DefaultName = "UserActions"

// DefaultSizeLimit is the usual per-cookie limit enforced by browsers.
const DefaultSizeLimit = 4096

// Config configures an Adapter.
type Config struct {
	Name      string
	SizeLimit int
}

// Adapter keeps one counter.Mapping in a single Backing value. Every update is
// a whole-value read-modify-write without locking: overlapping requests from
// one visitor can overwrite each other's increments.
type Adapter struct {
	backing   Backing
	name      string
	sizeLimit int
	metrics   *metrics.Collector
	inspected bool
}

// New creates an Adapter over backing. collector may be nil.
func New(backing Backing, cfg Config, collector *metrics.Collector) *Adapter {
	if cfg.Name == "" {
		cfg.Name = DefaultName
	}
	if cfg.SizeLimit == 0 {
		cfg.SizeLimit = DefaultSizeLimit
	}
	return &Adapter{
		backing:   backing,
		name:      cfg.Name,
		sizeLimit: cfg.SizeLimit,
		metrics:   collector,
	}
}

// Read returns the stored mapping, or an empty one if it is absent or corrupt.
func (a *Adapter) Read() counter.Mapping {
	raw, ok := a.backing.Load(a.name)
	if !ok {
		return counter.Mapping{}
	}
	m, rep := counter.DecodeReport(raw)
	if !a.inspected {
		a.inspected = true
		if rep.Rejected {
			a.metrics.RecordDecodeRejected()
			logging.Debug("Discarding unreadable counter value",
				zap.String("name", a.name),
				zap.Int("length", len(raw)),
			)
		}
		if rep.Dropped > 0 {
			a.metrics.RecordDecodeDropped(rep.Dropped)
			logging.Debug("Dropped unreadable counter entries",
				zap.String("name", a.name),
				zap.Int("dropped", rep.Dropped),
			)
		}
	}
	return m
}

// Write replaces the stored mapping. Values larger than the size limit are
// still written; browsers may drop them.
func (a *Adapter) Write(m counter.Mapping) {
	value := counter.Encode(m)

	size := len(a.name) + 1 + len(value)
	if s, ok := a.backing.(Sizer); ok {
		size = s.WireSize(a.name, value)
	}
	oversize := a.sizeLimit > 0 && size > a.sizeLimit
	if oversize {
		logging.Warn("Counter cookie exceeds size limit",
			zap.String("name", a.name),
			zap.Int("size", size),
			zap.Int("limit", a.sizeLimit),
			zap.Int("counters", len(m)),
		)
	}
	a.metrics.RecordCookieWrite(oversize)

	a.backing.Save(a.name, value)
}

// Increment adds one to the named counter, creating it at 1.
func (a *Adapter) Increment(name string) {
	a.Write(counter.Bump(a.Read(), name))
}

// ResetNamespace removes every counter whose name starts with prefix.
func (a *Adapter) ResetNamespace(prefix string) {
	m := a.Read()
	out := counter.Without(m, prefix)
	if len(out) == len(m) {
		return
	}
	a.Write(out)
}

// ActionCount returns the lifetime count for route. ok is false when the
// route has never been recorded.
func (a *Adapter) ActionCount(route string) (n int64, ok bool) {
	return a.Read().Get(counter.TotalActions(route))
}
