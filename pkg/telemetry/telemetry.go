package telemetry

import (
	"context"
)

// Client defines the interface for telemetry operations
type Client interface {
	// Track records a single event with properties
	Track(ctx context.Context, event string, props map[string]interface{}) error
	// Close flushes and releases any resources
	Close() error
}

// Properties are attached to every event sent by a client
type Properties struct {
	CLIVersion string
	OS         string
	Arch       string
	RunID      string
}

func NewProperties(cliVersion, os, arch, runID string) Properties {
	return Properties{
		CLIVersion: cliVersion,
		OS:         os,
		Arch:       arch,
		RunID:      runID,
	}
}

type contextKey struct{}

// WithContext returns a new context with the telemetry client
func WithContext(ctx context.Context, client Client) context.Context {
	return context.WithValue(ctx, contextKey{}, client)
}

// FromContext retrieves the telemetry client from context
func FromContext(ctx context.Context) (Client, bool) {
	client, ok := ctx.Value(contextKey{}).(Client)
	return client, ok
}
