package push

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/tbourn/gym-realtime/internal/domain"
)

// Router dispatches by device platform. The zero value has no providers and
// reports every delivery as unconfigured.
type Router struct {
	mu        sync.RWMutex
	providers map[domain.Platform]Provider
}

// NewRouter returns an empty Router.
func NewRouter() *Router {
	return &Router{providers: make(map[domain.Platform]Provider)}
}

// Handle registers p for platform. Passing nil removes the platform.
func (r *Router) Handle(platform domain.Platform, p Provider) *Router {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.providers == nil {
		r.providers = make(map[domain.Platform]Provider)
	}
	if p == nil {
		delete(r.providers, platform)
	} else {
		r.providers[platform] = p
	}
	return r
}

func (r *Router) provider(platform domain.Platform) Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if p, ok := r.providers[platform]; ok {
		return p
	}
	return Noop{}
}

// distinct returns each configured provider once.
func (r *Router) distinct() []Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seen := make(map[Provider]struct{}, len(r.providers))
	out := make([]Provider, 0, len(r.providers))
	for _, p := range r.providers {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}

// Send delivers msg to one device.
func (r *Router) Send(ctx context.Context, t Target, msg Message) error {
	return r.provider(t.Platform).SendToToken(ctx, t.Token, msg)
}

// Subscribe registers the device for topic with its platform's provider.
func (r *Router) Subscribe(ctx context.Context, t Target, topic string) error {
	return r.provider(t.Platform).Subscribe(ctx, t.Token, topic)
}

// Unsubscribe removes the device from topic.
func (r *Router) Unsubscribe(ctx context.Context, t Target, topic string) error {
	return r.provider(t.Platform).Unsubscribe(ctx, t.Token, topic)
}

// Forget drops token's state from every provider that keeps any.
func (r *Router) Forget(ctx context.Context, token string) {
	for _, p := range r.distinct() {
		if f, ok := p.(TokenForgetter); ok {
			f.Forget(ctx, token)
		}
	}
}

// SendToTopic broadcasts through every configured provider concurrently.
// Each provider yields one result whose Target.Token is the topic.
func (r *Router) SendToTopic(ctx context.Context, topic string, msg Message) Report {
	providers := r.distinct()
	if len(providers) == 0 {
		return Report{Results: []Result{{Target: Target{Token: topic}, Outcome: OutcomeUnconfigured, Err: ErrUnconfigured}}}
	}
	results := make([]Result, len(providers))
	var g errgroup.Group
	for i, p := range providers {
		g.Go(func() error {
			err := p.SendToTopic(ctx, topic, msg)
			results[i] = Result{Target: Target{Token: topic}, Outcome: Classify(err), Err: err}
			return nil
		})
	}
	_ = g.Wait()
	return Report{Results: results}
}
