package publisher

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/vadim/poolsmm/internal/domain/post/entity"
)

// Publisher delivers a post to one platform.
//
// Implementations never return errors: every failure is reported through
// Result.Success and Result.Error.
type Publisher interface {
	Publish(ctx context.Context, text, image string) Result
	TestConnection(ctx context.Context) bool
}

// Result is the outcome of one publish attempt on one platform
type Result struct {
	Platform    string `json:"platform"`
	Success     bool   `json:"success"`
	ExternalID  string `json:"external_id,omitempty"`
	ExternalURL string `json:"external_url,omitempty"`
	Error       string `json:"error,omitempty"`
}

// Failed builds an unsuccessful result
func Failed(platform string, err error) Result {
	return Result{Platform: platform, Success: false, Error: err.Error()}
}

// Message is the content fanned out to several platforms
type Message struct {
	Text      string
	Overrides map[string]string // per platform text, empty means Text
	Image     string
}

// TextFor returns the text to send to the platform
func (m Message) TextFor(platform string) string {
	if t, ok := m.Overrides[platform]; ok && t != "" {
		return t
	}
	return m.Text
}

// Factory builds a publisher from a stored platform row
type Factory func(p entity.Platform) (Publisher, error)

// Registry maps platform names to publishers
type Registry struct {
	mu         sync.RWMutex
	publishers map[string]Publisher
	timeout    time.Duration
	logger     *slog.Logger
}

// NewRegistry creates an empty registry. timeout bounds each adapter call; zero disables it.
func NewRegistry(timeout time.Duration, logger *slog.Logger) *Registry {
	return &Registry{
		publishers: make(map[string]Publisher),
		timeout:    timeout,
		logger:     logger,
	}
}

// Register adds or replaces the publisher for name
func (r *Registry) Register(name string, p Publisher) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.publishers[name] = p
}

// Remove drops the publisher for name
func (r *Registry) Remove(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.publishers, name)
}

// Get returns the publisher for name
func (r *Registry) Get(name string) (Publisher, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.publishers[name]
	return p, ok
}

// Names returns the registered platform names, sorted
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.publishers))
	for name := range r.publishers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Load replaces the registered set with publishers built from usable rows.
// It returns the names that were registered.
func (r *Registry) Load(platforms []entity.Platform, factory Factory) []string {
	next := make(map[string]Publisher, len(platforms))
	for _, p := range platforms {
		if !p.Usable() {
			r.logger.Info("skipping platform", "platform", p.Name, "active", p.IsActive, "credentials", p.HasCredentials())
			continue
		}
		pub, err := factory(p)
		if err != nil {
			r.logger.Warn("failed to build publisher", "platform", p.Name, "error", err)
			continue
		}
		next[p.Name] = pub
	}

	r.mu.Lock()
	r.publishers = next
	r.mu.Unlock()

	return r.Names()
}

// PublishToPlatform publishes to a single platform
func (r *Registry) PublishToPlatform(ctx context.Context, name, text, image string) Result {
	p, ok := r.Get(name)
	if !ok {
		return Result{Platform: name, Success: false, Error: fmt.Sprintf("platform %s is not configured", name)}
	}
	return r.call(ctx, name, p, text, image)
}

// PublishToAll publishes concurrently to the named platforms, or to every
// registered platform when names is empty. One result per platform, in the
// order of names.
func (r *Registry) PublishToAll(ctx context.Context, msg Message, names []string) []Result {
	if len(names) == 0 {
		names = r.Names()
	}

	results := make([]Result, len(names))
	var wg sync.WaitGroup
	for i, name := range names {
		wg.Add(1)
		go func(i int, name string) {
			defer wg.Done()
			results[i] = r.PublishToPlatform(ctx, name, msg.TextFor(name), msg.Image)
		}(i, name)
	}
	wg.Wait()

	return results
}

func (r *Registry) call(ctx context.Context, name string, p Publisher, text, image string) (res Result) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	defer func() {
		if v := recover(); v != nil {
			r.logger.Error("publisher panicked", "platform", name, "panic", v)
			res = Result{Platform: name, Success: false, Error: fmt.Sprintf("publisher panic: %v", v)}
		}
	}()

	res = p.Publish(ctx, text, image)
	if res.Platform == "" {
		res.Platform = name
	}
	return res
}

// TestAllConnections checks every registered publisher. A panicking adapter
// is reported as disconnected.
func (r *Registry) TestAllConnections(ctx context.Context) map[string]bool {
	r.mu.RLock()
	snapshot := make(map[string]Publisher, len(r.publishers))
	for name, p := range r.publishers {
		snapshot[name] = p
	}
	r.mu.RUnlock()

	out := make(map[string]bool, len(snapshot))
	var mu sync.Mutex
	var wg sync.WaitGroup
	for name, p := range snapshot {
		wg.Add(1)
		go func(name string, p Publisher) {
			defer wg.Done()
			ok := r.test(ctx, name, p)
			mu.Lock()
			out[name] = ok
			mu.Unlock()
		}(name, p)
	}
	wg.Wait()

	return out
}

func (r *Registry) test(ctx context.Context, name string, p Publisher) (ok bool) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	defer func() {
		if v := recover(); v != nil {
			r.logger.Error("connection test panicked", "platform", name, "panic", v)
			ok = false
		}
	}()
	return p.TestConnection(ctx)
}
