package update

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/sentryhub/capturectl/internal/apperrors"
	"github.com/sentryhub/capturectl/internal/logging"
)

// HealthGate polls a health endpoint after a binary swap and decides
// whether the new version is live.
type HealthGate struct {
	client  *http.Client
	logger  *logging.Logger
	retries int
	delay   time.Duration
}

// NewHealthGate constructs a HealthGate that retries up to retries times,
// waiting delay between attempts.
func NewHealthGate(timeout time.Duration, retries int, delay time.Duration, logger *logging.Logger) *HealthGate {
	return &HealthGate{
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
		retries: retries,
		delay:   delay,
	}
}

type healthBody struct {
	Version string `json:"version"`
}

// Await polls healthURL until it reports 2xx (and, when wantVersion is
// non-empty, a matching "version" field in the JSON body) or the retry
// budget is exhausted.
func (g *HealthGate) Await(ctx context.Context, healthURL, wantVersion string) error {
	const op = "HealthGate.Await"

	var lastErr error
	for attempt := 0; attempt <= g.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(g.delay):
			}
		}

		ok, err := g.probe(ctx, healthURL, wantVersion)
		if ok {
			return nil
		}
		lastErr = err
		g.logger.WithField("attempt", attempt).WithError(err).Warn("health check not yet passing")
	}
	return apperrors.External(op, "health check did not pass within retry budget", lastErr)
}

func (g *HealthGate) probe(ctx context.Context, healthURL, wantVersion string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, healthURL, nil)
	if err != nil {
		return false, err
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return false, apperrors.External("HealthGate.probe", "non-2xx health response")
	}
	if wantVersion == "" {
		return true, nil
	}

	var body healthBody
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return false, apperrors.External("HealthGate.probe", "failed to decode health body", err)
	}
	if body.Version != wantVersion {
		return false, apperrors.External("HealthGate.probe", "health body reports a different version")
	}
	return true, nil
}
