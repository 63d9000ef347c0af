package setup

import (
	"context"
	"time"
)

// pollIP asks the machine for its address until it answers or the attempt
// budget is spent. Errors and empty answers each cost one attempt.
func (o *Orchestrator) pollIP(ctx context.Context) (string, error) {
	var last error

	for remaining := o.cfg.IPPollAttempts; remaining > 0; remaining-- {
		log.WithField("remaining", remaining).Debug("fetching machine IP")

		ip, err := o.cfg.Machine.IP(ctx)
		if err == nil && ip != "" {
			return ip, nil
		}
		if err != nil {
			last = err
		}

		if remaining > 1 {
			if err := o.sleep(ctx, o.cfg.IPPollInterval); err != nil {
				return "", err
			}
		}
	}

	return "", &IPDiscoveryError{Attempts: o.cfg.IPPollAttempts, Last: last}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
