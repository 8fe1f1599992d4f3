package coordinator

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Refresher periodically refreshes the active session's access token.
// Useful for long-lived CLI or daemon embeddings where no interactive
// traffic keeps the token rotating.
type Refresher struct {
	coordinator *Coordinator
	schedule    cron.Schedule
	log         zerolog.Logger
	stop        chan struct{}
}

// NewRefresher parses a standard 5-field cron expression
// (minute hour day-of-month month day-of-week).
func NewRefresher(c *Coordinator, cronExpr string, log zerolog.Logger) (*Refresher, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	schedule, err := parser.Parse(cronExpr)
	if err != nil {
		return nil, fmt.Errorf("invalid refresh schedule %q: %w", cronExpr, err)
	}
	return &Refresher{
		coordinator: c,
		schedule:    schedule,
		log:         log.With().Str("component", "refresher").Logger(),
		stop:        make(chan struct{}),
	}, nil
}

// Start runs the refresh loop until Stop is called or ctx is done.
// Each tick is skipped when no backend is authenticated.
func (r *Refresher) Start(ctx context.Context) {
	for {
		next := r.schedule.Next(time.Now())
		timer := time.NewTimer(time.Until(next))

		select {
		case <-timer.C:
			r.tick(ctx)
		case <-ctx.Done():
			timer.Stop()
			return
		case <-r.stop:
			timer.Stop()
			return
		}
	}
}

// Stop terminates the refresh loop.
func (r *Refresher) Stop() {
	close(r.stop)
}

func (r *Refresher) tick(ctx context.Context) {
	if !r.coordinator.IsAuthenticated() {
		r.log.Debug().Msg("No active session; skipping token refresh")
		return
	}

	token, err := r.coordinator.RefreshToken(ctx)
	if err != nil {
		r.log.Warn().Err(err).Msg("Scheduled token refresh failed")
		return
	}
	if token == "" {
		r.log.Debug().Msg("Server issued no replacement token")
		return
	}
	r.log.Info().Msg("Access token refreshed on schedule")
}
