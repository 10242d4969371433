package trading

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"signal-trader/pkg/utils"
)

// CycleRunner is the engine surface the scheduler drives.
type CycleRunner interface {
	RunCycle(ctx context.Context, cycleIdx int) error
	CheckExits(ctx context.Context) error
	RunSweep(ctx context.Context) error
}

type eventKind int

const (
	eventCycle eventKind = iota
	eventSweep
	eventMonitor
)

type schedulerEvent struct {
	kind     eventKind
	cycleIdx int
	at       time.Time
}

// CycleScheduler fires the fixed re-evaluation cycles, the periodic exit
// monitor, and the end-of-day sweep. Passes never overlap: a pass that is
// still running when the next trigger arrives makes the trigger a no-op.
type CycleScheduler struct {
	runner          CycleRunner
	logger          zerolog.Logger
	sweepAt         utils.MinuteOfDay
	monitorInterval time.Duration

	inFlight atomic.Bool
	now      func() time.Time
}

// NewCycleScheduler creates a scheduler for the given engine.
func NewCycleScheduler(runner CycleRunner, sweepAt utils.MinuteOfDay, monitorInterval time.Duration, logger zerolog.Logger) *CycleScheduler {
	if monitorInterval <= 0 {
		monitorInterval = 5 * time.Minute
	}
	return &CycleScheduler{
		runner:          runner,
		logger:          logger,
		sweepAt:         sweepAt,
		monitorInterval: monitorInterval,
		now:             time.Now,
	}
}

// Run blocks until the context is cancelled, firing events as they come due.
func (s *CycleScheduler) Run(ctx context.Context) error {
	s.logger.Info().
		Dur("monitor_interval", s.monitorInterval).
		Str("sweep_at", s.sweepAt.String()).
		Msg("Scheduler started")

	ticker := time.NewTicker(s.monitorInterval)
	defer ticker.Stop()

	for {
		now := s.now().In(utils.IndiaLocation)
		next := s.nextEvent(now)
		timer := time.NewTimer(next.at.Sub(now))

		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
			s.fire(ctx, next)
		case <-ticker.C:
			timer.Stop()
			tick := s.now().In(utils.IndiaLocation)
			if utils.IsTradingDay(tick) && utils.IsMarketOpen(tick) {
				s.fire(ctx, schedulerEvent{kind: eventMonitor, at: tick})
			}
		}
	}
}

// fire runs one event with the single-flight guard.
func (s *CycleScheduler) fire(ctx context.Context, ev schedulerEvent) {
	if !s.inFlight.CompareAndSwap(false, true) {
		s.logger.Warn().
			Str("event", eventName(ev.kind)).
			Msg("Previous pass still running, skipping trigger")
		return
	}
	defer s.inFlight.Store(false)

	var err error
	switch ev.kind {
	case eventCycle:
		err = s.runner.RunCycle(ctx, ev.cycleIdx)
	case eventSweep:
		err = s.runner.RunSweep(ctx)
	case eventMonitor:
		err = s.runner.CheckExits(ctx)
	}
	if err != nil {
		s.logger.Error().Err(err).Str("event", eventName(ev.kind)).Msg("Scheduled pass failed")
	}
}

// nextEvent returns the next cycle or sweep due at or after now. Weekends
// and post-sweep hours roll forward to the next trading day's first cycle.
func (s *CycleScheduler) nextEvent(now time.Time) schedulerEvent {
	day := now
	for {
		if utils.IsTradingDay(day) {
			for i, cycle := range utils.CycleTimes {
				at := cycle.At(day)
				if at.After(now) {
					return schedulerEvent{kind: eventCycle, cycleIdx: i, at: at}
				}
			}
			if sweep := s.sweepAt.At(day); sweep.After(now) {
				return schedulerEvent{kind: eventSweep, at: sweep}
			}
		}
		day = utils.DayStart(day.AddDate(0, 0, 1))
	}
}

func eventName(k eventKind) string {
	switch k {
	case eventCycle:
		return "cycle"
	case eventSweep:
		return "sweep"
	case eventMonitor:
		return "monitor"
	}
	return fmt.Sprintf("event_%d", int(k))
}
