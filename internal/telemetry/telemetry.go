// Package telemetry sends anonymous usage events to PostHog.
package telemetry

import (
	"runtime"

	"github.com/javanstorm/dockhand/internal/version"
	"github.com/posthog/posthog-go"
)

// DefaultEndpoint receives events when no endpoint is configured.
const DefaultEndpoint = "https://app.posthog.com"

// Service records usage events for one installation.
type Service interface {
	Track(event string, properties map[string]any)
	Identify(properties map[string]any)
	Close()
}

// NoopService is a telemetry service that does nothing.
type NoopService struct{}

func (s *NoopService) Track(event string, properties map[string]any) {}
func (s *NoopService) Identify(properties map[string]any)            {}
func (s *NoopService) Close()                                        {}

type posthogService struct {
	client     posthog.Client
	distinctID string
}

// New creates a telemetry service keyed by installID. Returns NoopService if
// apiKey or installID is empty.
func New(apiKey, endpoint, installID string) Service {
	if apiKey == "" || installID == "" {
		return &NoopService{}
	}

	if endpoint == "" {
		endpoint = DefaultEndpoint
	}

	client, err := posthog.NewWithConfig(apiKey, posthog.Config{Endpoint: endpoint})
	if err != nil {
		return &NoopService{}
	}

	return &posthogService{client: client, distinctID: installID}
}

func (s *posthogService) Track(event string, properties map[string]any) {
	props := baseProperties()
	for k, v := range properties {
		props.Set(k, v)
	}

	_ = s.client.Enqueue(posthog.Capture{
		DistinctId: s.distinctID,
		Event:      event,
		Properties: props,
	})
}

func (s *posthogService) Identify(properties map[string]any) {
	props := baseProperties()
	for k, v := range properties {
		props.Set(k, v)
	}

	_ = s.client.Enqueue(posthog.Identify{
		DistinctId: s.distinctID,
		Properties: props,
	})
}

func (s *posthogService) Close() {
	_ = s.client.Close()
}

func baseProperties() posthog.Properties {
	return posthog.NewProperties().
		Set("os", runtime.GOOS).
		Set("arch", runtime.GOARCH).
		Set("app_version", version.Version)
}
