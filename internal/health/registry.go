package health

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

type Status string

const (
	StatusAvailable   Status = "available"
	StatusDegraded    Status = "degraded"
	StatusUnavailable Status = "unavailable"
)

// Dependency names tracked by the registry.
const (
	DepInference    = "inference"
	DepPersistence  = "persistence"
	DepTelemetry    = "telemetry"
	DepNotification = "notification"
)

// failureThreshold is the number of consecutive failures after which a
// dependency is considered unavailable and gated before new work starts.
const failureThreshold = 3

// Record is the per-dependency view returned by Snapshot.
type Record struct {
	Name             string     `json:"name"`
	Status           Status     `json:"status"`
	LastFailure      *time.Time `json:"last_failure,omitempty"`
	LastError        string     `json:"last_error,omitempty"`
	ConsecutiveFails int        `json:"consecutive_fails"`
}

// Registry tracks observed availability of the external dependencies.
// It is the only state shared across in-flight requests, so every
// method takes the lock. State lives for the process lifetime.
type Registry struct {
	mu   sync.Mutex
	deps map[string]*Record
	log  *logrus.Logger
}

func NewRegistry(log *logrus.Logger) *Registry {
	r := &Registry{
		deps: make(map[string]*Record),
		log:  log,
	}
	for _, name := range []string{DepInference, DepPersistence, DepTelemetry, DepNotification} {
		r.deps[name] = &Record{Name: name, Status: StatusAvailable}
	}
	return r
}

func (r *Registry) get(name string) *Record {
	rec, ok := r.deps[name]
	if !ok {
		rec = &Record{Name: name, Status: StatusAvailable}
		r.deps[name] = rec
	}
	return rec
}

// Success resets the failure streak and restores the dependency to
// available.
func (r *Registry) Success(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec := r.get(name)
	if rec.Status != StatusAvailable {
		r.log.WithField("dependency", name).Info("dependency recovered")
	}
	rec.Status = StatusAvailable
	rec.ConsecutiveFails = 0
	rec.LastError = ""
}

// Failure records a hard failure. After failureThreshold consecutive
// failures the dependency flips to unavailable and callers short-circuit
// to the degradation path.
func (r *Registry) Failure(name string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec := r.get(name)
	now := time.Now().UTC()
	rec.ConsecutiveFails++
	rec.LastFailure = &now
	if err != nil {
		rec.LastError = err.Error()
	}

	if rec.ConsecutiveFails >= failureThreshold {
		rec.Status = StatusUnavailable
	} else {
		rec.Status = StatusDegraded
	}

	r.log.WithFields(logrus.Fields{
		"dependency":        name,
		"status":            rec.Status,
		"consecutive_fails": rec.ConsecutiveFails,
		"error":             rec.LastError,
	}).Warn("dependency failure recorded")
}

// Degraded records a soft failure from a best-effort side effect. It
// never flips the dependency to unavailable on its own.
func (r *Registry) Degraded(name string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec := r.get(name)
	now := time.Now().UTC()
	rec.LastFailure = &now
	if err != nil {
		rec.LastError = err.Error()
	}
	if rec.Status == StatusAvailable {
		rec.Status = StatusDegraded
	}

	r.log.WithFields(logrus.Fields{
		"dependency": name,
		"error":      rec.LastError,
	}).Warn("dependency degradation recorded")
}

// Available reports whether work against the dependency should be
// attempted at all. Degraded dependencies are still attempted.
func (r *Registry) Available(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.get(name).Status != StatusUnavailable
}

// Status returns the current status of one dependency.
func (r *Registry) Status(name string) Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.get(name).Status
}

// Snapshot returns a copy of every record, for the status endpoint.
func (r *Registry) Snapshot() map[string]Record {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[string]Record, len(r.deps))
	for name, rec := range r.deps {
		out[name] = *rec
	}
	return out
}
