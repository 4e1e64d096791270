package telemetry

import (
	"context"
	"os"
	"time"

	"github.com/posthog/posthog-go"
)

// PostHogClient implements the Client interface using PostHog
type PostHogClient struct {
	client posthog.Client
	props  Properties
}

// NewPostHogClient creates a new PostHog client. It returns nil without an error
// when no API key is available so callers can fall back to a NoopClient.
func NewPostHogClient(props Properties, configuredKey string) (*PostHogClient, error) {
	apiKey := getPostHogAPIKey(configuredKey)
	if apiKey == "" {
		return nil, nil
	}

	client, err := posthog.NewWithConfig(apiKey, posthog.Config{
		Endpoint: getPostHogEndpoint(),
		Interval: 30 * time.Second,
	})
	if err != nil {
		// Error creating client - return nil without error to allow fallback
		return nil, nil
	}

	return &PostHogClient{
		client: client,
		props:  props,
	}, nil
}

// Track implements the Client interface
func (c *PostHogClient) Track(_ context.Context, event string, props map[string]interface{}) error {
	if c == nil || c.client == nil {
		return nil
	}

	mergedProps := make(map[string]interface{})
	mergedProps["cli_version"] = c.props.CLIVersion
	mergedProps["os"] = c.props.OS
	mergedProps["arch"] = c.props.Arch
	mergedProps["run_id"] = c.props.RunID

	for k, v := range props {
		mergedProps[k] = v
	}

	// Never return errors from telemetry operations
	_ = c.client.Enqueue(posthog.Capture{
		DistinctId: c.props.RunID,
		Event:      event,
		Properties: mergedProps,
	})
	return nil
}

// Close implements the Client interface
func (c *PostHogClient) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	// Ignore any errors from Close operations
	_ = c.client.Close()
	return nil
}

// Embedded API key, can be set during build time
var embeddedPostHogAPIKey string

func getPostHogAPIKey(configuredKey string) string {
	// Priority order:
	// 1. Environment variable
	// 2. telemetry.posthog_api_key in config.yaml
	// 3. Embedded key (set at build time)
	if key := os.Getenv("SE2_POSTHOG_KEY"); key != "" {
		return key
	}
	if configuredKey != "" {
		return configuredKey
	}
	return embeddedPostHogAPIKey
}

func getPostHogEndpoint() string {
	if endpoint := os.Getenv("SE2_POSTHOG_ENDPOINT"); endpoint != "" {
		return endpoint
	}
	return "https://app.posthog.com"
}
