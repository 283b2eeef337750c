package notifier

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/newthinker/augur/internal/core"
)

// DefaultSendTimeout bounds a single delivery attempt.
const DefaultSendTimeout = 15 * time.Second

// Registry fans messages out to the configured notifiers.
type Registry struct {
	mu        sync.RWMutex
	notifiers map[string]Notifier
	timeout   time.Duration
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		notifiers: make(map[string]Notifier),
		timeout:   DefaultSendTimeout,
	}
}

// SetTimeout changes the per-notifier delivery deadline. Zero disables it.
func (r *Registry) SetTimeout(d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.timeout = d
}

// Register adds a notifier. Names must be unique.
func (r *Registry) Register(n Notifier) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := n.Name()
	if _, exists := r.notifiers[name]; exists {
		return core.WrapError(core.ErrConfigInvalid, fmt.Errorf("notifier %s already registered", name))
	}
	r.notifiers[name] = n
	return nil
}

// Get retrieves a notifier by name.
func (r *Registry) Get(name string) (Notifier, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n, exists := r.notifiers[name]
	if !exists {
		return nil, core.WrapError(core.ErrNotFound, fmt.Errorf("notifier %s", name))
	}
	return n, nil
}

// GetAll returns all registered notifiers sorted by name.
func (r *Registry) GetAll() []Notifier {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Notifier, 0, len(r.notifiers))
	for _, n := range r.notifiers {
		result = append(result, n)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name() < result[j].Name() })
	return result
}

// Len returns the number of registered notifiers.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.notifiers)
}

// NotifyForecast announces f on every notifier.
func (r *Registry) NotifyForecast(ctx context.Context, f core.Forecast) map[string]error {
	return r.fanOut(ctx, func(ctx context.Context, n Notifier) error { return n.SendForecast(ctx, f) })
}

// NotifyResolution announces graded predictions on every notifier.
func (r *Registry) NotifyResolution(ctx context.Context, res Resolution) map[string]error {
	return r.fanOut(ctx, func(ctx context.Context, n Notifier) error { return n.SendResolution(ctx, res) })
}

// NotifyAlert delivers msg on every notifier.
func (r *Registry) NotifyAlert(ctx context.Context, msg string) map[string]error {
	return r.fanOut(ctx, func(ctx context.Context, n Notifier) error { return n.SendAlert(ctx, msg) })
}

// fanOut delivers concurrently and returns the failures keyed by notifier
// name. It waits for every delivery.
func (r *Registry) fanOut(ctx context.Context, send func(context.Context, Notifier) error) map[string]error {
	r.mu.RLock()
	timeout := r.timeout
	r.mu.RUnlock()

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs = make(map[string]error)
	)
	for _, n := range r.GetAll() {
		wg.Add(1)
		go func(n Notifier) {
			defer wg.Done()
			sendCtx := ctx
			if timeout > 0 {
				var cancel context.CancelFunc
				sendCtx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}
			if err := send(sendCtx, n); err != nil {
				mu.Lock()
				errs[n.Name()] = err
				mu.Unlock()
			}
		}(n)
	}
	wg.Wait()
	return errs
}
