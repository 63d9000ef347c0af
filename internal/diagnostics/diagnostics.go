// Package diagnostics forwards setup failures to Sentry.
package diagnostics

import (
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/javanstorm/dockhand/internal/setup"
	"github.com/sirupsen/logrus"
)

// FlushTimeout bounds how long Flush waits for queued reports.
const FlushTimeout = 2 * time.Second

var log = logrus.WithField("component", "diagnostics")

// Options configures a Reporter.
type Options struct {
	DSN       string
	Release   string
	InstallID string

	// BeforeSend may inspect or drop events before they leave the process.
	BeforeSend func(*sentry.Event, *sentry.EventHint) *sentry.Event
}

// Reporter sends notifications through its own Sentry hub.
type Reporter struct {
	hub *sentry.Hub
}

// New returns a Reporter for opts.DSN.
func New(opts Options) (*Reporter, error) {
	client, err := sentry.NewClient(sentry.ClientOptions{
		Dsn:        opts.DSN,
		Release:    opts.Release,
		BeforeSend: opts.BeforeSend,
	})
	if err != nil {
		return nil, fmt.Errorf("init sentry: %w", err)
	}

	scope := sentry.NewScope()
	if opts.InstallID != "" {
		log.WithField("installID", opts.InstallID).Debug("setting user")
		scope.SetUser(sentry.User{ID: opts.InstallID})
	}
	return &Reporter{hub: sentry.NewHub(client, scope)}, nil
}

// Notify captures one failure report. details become event extras; a
// "groupingHash" entry replaces the default grouping.
func (r *Reporter) Notify(title, summary string, details map[string]any, severity setup.Severity) {
	event := sentry.NewEvent()
	event.Level = level(severity)
	event.Message = summary
	event.Tags = map[string]string{"title": title}
	event.Extra = make(map[string]any, len(details))

	for k, v := range details {
		if k == "groupingHash" {
			if hash, ok := v.(string); ok && hash != "" {
				event.Fingerprint = []string{title, hash}
			}
			continue
		}
		event.Extra[k] = v
	}

	if id := r.hub.CaptureEvent(event); id != nil {
		log.WithField("event", *id).Debug("reported failure")
	}
}

// Recover reports a panic value. The caller re-panics.
func (r *Reporter) Recover(v any) {
	r.hub.Recover(v)
	r.hub.Flush(FlushTimeout)
}

// Flush waits for queued reports to be sent.
func (r *Reporter) Flush() bool {
	return r.hub.Flush(FlushTimeout)
}

func level(s setup.Severity) sentry.Level {
	switch s {
	case setup.SeverityWarning:
		return sentry.LevelWarning
	case setup.SeverityError:
		return sentry.LevelError
	default:
		return sentry.LevelInfo
	}
}

// Noop drops every report.
type Noop struct{}

func (Noop) Notify(string, string, map[string]any, setup.Severity) {}
func (Noop) Recover(any)                                           {}
func (Noop) Flush() bool                                           { return true }

var _ setup.Diagnostics = (*Reporter)(nil)
