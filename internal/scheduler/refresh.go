package scheduler

import (
	"context"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog/log"

	"github.com/rezvo/bookinggrid/internal/snapshot"
)

const RefreshJobName = "calendar_snapshot_refresh"

// Refresher is the fetch path the periodic refresh shares with manual
// pull-to-refresh.
type Refresher interface {
	RefreshLatest(ctx context.Context) (snapshot.Result, bool)
}

// RegisterRefreshJob re-fetches the most recently viewed range on cronExpr.
// Each run is bounded by timeout; failures are logged and not retried until
// the next tick.
func RegisterRefreshJob(s *Service, cronExpr string, refresher Refresher, timeout time.Duration) (gocron.Job, error) {
	if timeout <= 0 {
		timeout = snapshot.DefaultTimeout
	}
	return s.AddJob(RefreshJobName, cronExpr, func() {
		runRefresh(refresher, timeout)
	})
}

func runRefresh(refresher Refresher, timeout time.Duration) {
	logger := log.With().Str("job_name", RefreshJobName).Logger()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	ctx = logger.WithContext(ctx)

	result, ok := refresher.RefreshLatest(ctx)
	if !ok {
		logger.Debug().Msg("No calendar range viewed yet, skipping refresh")
		return
	}
	if result.Err != nil {
		logger.Warn().Err(result.Err).Bool("stale", result.Stale).Msg("Calendar refresh failed")
		return
	}
	logger.Info().
		Int("bookings", len(result.Snapshot.Bookings)).
		Time("fetched_at", result.Snapshot.FetchedAt).
		Msg("Calendar refreshed")
}
