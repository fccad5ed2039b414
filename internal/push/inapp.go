package push

import (
	"context"
	"errors"
	"sync"
)

// EventInApp is the realtime event name carrying an in-app push.
const EventInApp = "push"

var errOffline = errors.New("push: device offline")

// DeviceChannel reaches a connected device by its registration token.
// It reports false when the device has no open connection or its queue is
// full.
type DeviceChannel interface {
	DeliverToDevice(token, event string, data any) bool
}

// InApp pushes over the websocket connections of online devices. Topic
// subscriptions are kept in memory and are lost on restart; devices
// re-subscribe when they register again.
type InApp struct {
	ch DeviceChannel

	mu     sync.RWMutex
	topics map[string]map[string]struct{}
}

// NewInApp returns an InApp provider delivering through ch.
func NewInApp(ch DeviceChannel) *InApp {
	return &InApp{ch: ch, topics: make(map[string]map[string]struct{})}
}

// SendToToken delivers to one device. An offline device is transient: it
// may reconnect and is not a reason to drop its registration.
func (p *InApp) SendToToken(ctx context.Context, token string, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if token == "" {
		return ErrInvalidToken
	}
	if !p.ch.DeliverToDevice(token, EventInApp, msg) {
		return errOffline
	}
	return nil
}

// SendToTopic delivers to every subscribed device that is online.
func (p *InApp) SendToTopic(ctx context.Context, topic string, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.RLock()
	tokens := make([]string, 0, len(p.topics[topic]))
	for t := range p.topics[topic] {
		tokens = append(tokens, t)
	}
	p.mu.RUnlock()

	for _, t := range tokens {
		p.ch.DeliverToDevice(t, EventInApp, msg)
	}
	return nil
}

// Subscribe adds token to topic.
func (p *InApp) Subscribe(_ context.Context, token, topic string) error {
	if token == "" {
		return ErrInvalidToken
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	set, ok := p.topics[topic]
	if !ok {
		set = make(map[string]struct{})
		p.topics[topic] = set
	}
	set[token] = struct{}{}
	return nil
}

// Unsubscribe removes token from topic and forgets empty topics.
func (p *InApp) Unsubscribe(_ context.Context, token, topic string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if set, ok := p.topics[topic]; ok {
		delete(set, token)
		if len(set) == 0 {
			delete(p.topics, topic)
		}
	}
	return nil
}

// Forget removes token from every topic.
func (p *InApp) Forget(_ context.Context, token string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for topic, set := range p.topics {
		delete(set, token)
		if len(set) == 0 {
			delete(p.topics, topic)
		}
	}
}

// Subscribers returns the number of tokens subscribed to topic.
func (p *InApp) Subscribers(topic string) int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.topics[topic])
}
