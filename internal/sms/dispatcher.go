// Package sms delivers one-time code messages to phone numbers. The core
// only depends on the Dispatcher contract; concrete channels (SMS provider,
// alternate messaging channels) plug into a Registry.
package sms

import (
	"context"
	"fmt"
)

// Dispatcher sends a message to a destination phone number.
type Dispatcher interface {
	Send(ctx context.Context, destination, message string) error
}

// DeliveryError is returned by dispatchers for provider-reported failures.
// Status carries the provider's HTTP status so callers can distinguish
// credential problems from generic send failures.
type DeliveryError struct {
	Status  int
	Details string
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("sms: delivery failed status=%d details=%s", e.Status, e.Details)
}

// Unauthorized reports whether the failure indicates missing or invalid
// provider credentials.
func (e *DeliveryError) Unauthorized() bool {
	return e.Status == 401 || e.Status == 403
}

// Registry routes deliveries to a named channel, falling back to the default
// channel when the preferred one is not registered.
type Registry struct {
	channels       map[string]Dispatcher
	defaultChannel string
}

// NewRegistry returns a Registry with the given default channel name.
func NewRegistry(defaultChannel string) *Registry {
	return &Registry{channels: make(map[string]Dispatcher), defaultChannel: defaultChannel}
}

// Register adds a channel under name, replacing any existing registration.
func (r *Registry) Register(name string, d Dispatcher) {
	r.channels[name] = d
}

// Send delivers via the preferred channel when registered, else via the
// default channel. An unregistered default is a configuration error.
func (r *Registry) Send(ctx context.Context, preferred, destination, message string) error {
	if preferred != "" {
		if d, ok := r.channels[preferred]; ok {
			return d.Send(ctx, destination, message)
		}
	}
	d, ok := r.channels[r.defaultChannel]
	if !ok {
		return &DeliveryError{Status: 401, Details: fmt.Sprintf("default channel %q not configured", r.defaultChannel)}
	}
	return d.Send(ctx, destination, message)
}
