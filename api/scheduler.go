/*
scheduler.go - Automated accounting period rollover

PURPOSE:
  Periodically keeps the accounting periods in step with the calendar:
  creates the periods that are missing up to the current month and closes
  old periods once their grace window has passed.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Never creates the first period; an empty ledger is left alone
  - Closes oldest first and stops at the first period that cannot close
    (unposted legs, usually). Later periods cannot close before it.
  - Every change goes through the ledger services, so closing writes
    checkpoints exactly as POST /close does

CONFIGURATION:
  - CheckInterval: How often to check (default: 1 hour)
  - GraceDays:     Days after a period ends before it is closed (default: 15)
  - Enabled:       Whether scheduler is active (default: false)

USAGE:
  scheduler := NewPeriodScheduler(l, log)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: CloseAccountingPeriod endpoint (manual close)
  - ledger/accounting_period_service.go: Create and close rules
*/
package api

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/atforche/financial-tracker/ledger"
)

// PeriodScheduler handles automated period creation and closing.
type PeriodScheduler struct {
	Ledger        *ledger.Ledger
	Log           zerolog.Logger
	CheckInterval time.Duration
	GraceDays     int
	Enabled       bool

	// Now is the clock; tests replace it.
	Now func() time.Time

	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// SchedulerRun summarizes one check.
type SchedulerRun struct {
	Created []ledger.PeriodKey
	Closed  []ledger.PeriodKey
}

// NewPeriodScheduler creates a new scheduler. It is disabled until Enabled
// is set.
func NewPeriodScheduler(l *ledger.Ledger, log zerolog.Logger) *PeriodScheduler {
	return &PeriodScheduler{
		Ledger:        l,
		Log:           log.With().Str("worker", "periods").Logger(),
		CheckInterval: 1 * time.Hour,
		GraceDays:     15,
		Now:           time.Now,
	}
}

// Start begins the scheduler.
func (ps *PeriodScheduler) Start() {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	if !ps.Enabled {
		ps.Log.Info().Msg("Disabled, not starting")
		return
	}

	if ps.ticker != nil {
		return
	}

	ps.ticker = time.NewTicker(ps.CheckInterval)
	ps.stop = make(chan struct{})
	ps.wg.Add(1)

	go ps.run()

	ps.Log.Info().
		Dur("interval", ps.CheckInterval).
		Int("grace_days", ps.GraceDays).
		Time("next_run", ps.NextRunTime()).
		Msg("Started")
}

// Stop stops the scheduler and waits for a running check to finish.
func (ps *PeriodScheduler) Stop() {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	if ps.ticker != nil {
		ps.ticker.Stop()
		close(ps.stop)
		ps.wg.Wait()
		ps.ticker = nil
		ps.Log.Info().Msg("Stopped")
	}
}

func (ps *PeriodScheduler) run() {
	defer ps.wg.Done()

	// Run immediately on start
	ps.RunNow(context.Background())

	for {
		select {
		case <-ps.ticker.C:
			ps.RunNow(context.Background())
		case <-ps.stop:
			return
		}
	}
}

// RunNow triggers an immediate check (for testing/admin). Failures are
// logged and end the check early; whatever was done before them is kept.
func (ps *PeriodScheduler) RunNow(ctx context.Context) SchedulerRun {
	var result SchedulerRun
	today := ledger.DateOf(ps.Now())

	periods, err := ps.Ledger.Periods.ListAccountingPeriods(ctx)
	if err != nil {
		ps.Log.Error().Err(err).Msg("Error listing accounting periods")
		return result
	}
	if len(periods) == 0 {
		return result
	}

	// ===== Create missing periods up to the current month =====
	latest := periods[len(periods)-1].Key()
	for latest.Before(today.Period()) {
		next := latest.Next()
		created, err := ps.Ledger.Periods.CreateAccountingPeriod(ctx, next.Year, next.Month)
		if err != nil {
			ps.Log.Warn().Err(err).Str("period", next.String()).Msg("Could not create accounting period")
			break
		}
		periods = append(periods, *created)
		result.Created = append(result.Created, next)
		latest = next
	}

	// ===== Close periods past their grace window, oldest first =====
	for _, p := range periods {
		if !p.IsOpen {
			continue
		}
		if !p.Key().End().AddDays(ps.GraceDays).Before(today) {
			break
		}
		if _, err := ps.Ledger.Periods.ClosePeriod(ctx, p.ID); err != nil {
			ps.Log.Warn().Err(err).Str("period", p.Key().String()).Msg("Could not close accounting period")
			break
		}
		result.Closed = append(result.Closed, p.Key())
	}

	if len(result.Created) > 0 || len(result.Closed) > 0 {
		ps.Log.Info().
			Int("created", len(result.Created)).
			Int("closed", len(result.Closed)).
			Msg("Completed")
	}
	return result
}

// NextRunTime returns when the next scheduled check will occur.
func (ps *PeriodScheduler) NextRunTime() time.Time {
	return ps.Now().Add(ps.CheckInterval)
}
