package service

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang-signal-engine/internal/entity"
	"golang-signal-engine/internal/scheduler/config"
	"golang-signal-engine/internal/scheduler/dto"
	"golang-signal-engine/pkg/common"
	"golang-signal-engine/pkg/logger"
	"golang-signal-engine/pkg/utils"

	"github.com/redis/go-redis/v9"
)

// MarketState is one phase of a market's trading day.
type MarketState string

const (
	MarketStateClosed  MarketState = "closed"
	MarketStateOpening MarketState = "opening"
	MarketStateOpen    MarketState = "open"
	MarketStateClosing MarketState = "closing"
)

// Trading reports whether the session is accepting orders in this phase.
// Closing is still inside the session; opening is the pre-open window.
func (s MarketState) Trading() bool {
	return s == MarketStateOpen || s == MarketStateClosing
}

// MarketStateEvent is emitted whenever a market transitions between phases.
type MarketStateEvent struct {
	Market entity.MarketType
	From   MarketState
	To     MarketState
	At     time.Time
}

// MarketHoursService tracks each configured market through its daily
// closed -> opening -> open -> closing -> closed cycle, mirrors the tradable
// state into Redis for the workers, and publishes transitions on Events.
type MarketHoursService interface {
	Start(ctx context.Context)
	Stop()
	Events() <-chan MarketStateEvent
	StateOf(market entity.MarketType) MarketState
	Snapshot() []dto.MarketStateResponse
}

type marketClock struct {
	code     entity.MarketType
	calendar config.MarketCalendar
	loc      *time.Location
	openMin  int
	closeMin int
	days     map[time.Weekday]bool
}

// NewMarketHoursService builds clocks for every configured market. Returns an
// error when a calendar has an unknown timezone, a malformed session time, or
// a close that does not follow its open.
func NewMarketHoursService(cfg *config.Config, log *logger.Logger, redisClient *redis.Client) (MarketHoursService, error) {
	clocks := make(map[entity.MarketType]*marketClock, len(cfg.Scheduler.Markets))
	for code, cal := range cfg.Scheduler.Markets {
		clock, err := newMarketClock(entity.MarketType(code), cal)
		if err != nil {
			return nil, err
		}
		clocks[clock.code] = clock
	}
	return &marketHoursService{
		cfg:         cfg,
		log:         log,
		redisClient: redisClient,
		clocks:      clocks,
		states:      make(map[entity.MarketType]MarketState, len(clocks)),
		events:      make(chan MarketStateEvent, 16),
		stopChan:    make(chan struct{}),
		now:         time.Now,
	}, nil
}

func newMarketClock(code entity.MarketType, cal config.MarketCalendar) (*marketClock, error) {
	loc, err := cal.Location()
	if err != nil {
		return nil, err
	}
	openMin, err := parseClock(cal.Open)
	if err != nil {
		return nil, fmt.Errorf("market %s open: %w", code, err)
	}
	closeMin, err := parseClock(cal.Close)
	if err != nil {
		return nil, fmt.Errorf("market %s close: %w", code, err)
	}
	if closeMin <= openMin {
		return nil, fmt.Errorf("market %s: close %s is not after open %s", code, cal.Close, cal.Open)
	}
	days := make(map[time.Weekday]bool, len(cal.Days))
	for _, d := range cal.Days {
		wd, err := parseWeekday(d)
		if err != nil {
			return nil, fmt.Errorf("market %s: %w", code, err)
		}
		days[wd] = true
	}
	return &marketClock{code: code, calendar: cal, loc: loc, openMin: openMin, closeMin: closeMin, days: days}, nil
}

func parseClock(s string) (int, error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("malformed session time %q", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("malformed session time %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("malformed session time %q", s)
	}
	return h*60 + m, nil
}

func parseWeekday(s string) (time.Weekday, error) {
	for wd := time.Sunday; wd <= time.Saturday; wd++ {
		if strings.EqualFold(wd.String(), s) {
			return wd, nil
		}
	}
	return 0, fmt.Errorf("unknown weekday %q", s)
}

// stateAt classifies t against the session, applying the transition lead
// before open and before close.
func (c *marketClock) stateAt(t time.Time, lead time.Duration) MarketState {
	local := t.In(c.loc)
	if !c.days[local.Weekday()] {
		return MarketStateClosed
	}
	minutes := local.Hour()*60 + local.Minute()
	leadMin := int(lead.Minutes())

	switch {
	case minutes >= c.openMin && minutes < c.closeMin-leadMin:
		return MarketStateOpen
	case minutes >= c.closeMin-leadMin && minutes < c.closeMin:
		return MarketStateClosing
	case minutes >= c.openMin-leadMin && minutes < c.openMin:
		return MarketStateOpening
	default:
		return MarketStateClosed
	}
}

// nextOpen returns the next session open strictly after t.
func (c *marketClock) nextOpen(t time.Time) time.Time {
	local := t.In(c.loc)
	for i := 0; i < 8; i++ {
		day := local.AddDate(0, 0, i)
		if !c.days[day.Weekday()] {
			continue
		}
		open := time.Date(day.Year(), day.Month(), day.Day(), c.openMin/60, c.openMin%60, 0, 0, c.loc)
		if open.After(local) {
			return open
		}
	}
	return time.Time{}
}

// nextClose returns the next session close strictly after t.
func (c *marketClock) nextClose(t time.Time) time.Time {
	local := t.In(c.loc)
	for i := 0; i < 8; i++ {
		day := local.AddDate(0, 0, i)
		if !c.days[day.Weekday()] {
			continue
		}
		close := time.Date(day.Year(), day.Month(), day.Day(), c.closeMin/60, c.closeMin%60, 0, 0, c.loc)
		if close.After(local) {
			return close
		}
	}
	return time.Time{}
}

type marketHoursService struct {
	cfg         *config.Config
	log         *logger.Logger
	redisClient *redis.Client

	clocks   map[entity.MarketType]*marketClock
	mu       sync.RWMutex
	states   map[entity.MarketType]MarketState
	events   chan MarketStateEvent
	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	now func() time.Time
}

// Start seeds the current state of every market, mirrors it to Redis, and
// begins the periodic check loop.
func (s *marketHoursService) Start(ctx context.Context) {
	s.evaluate(ctx, true)

	s.wg.Add(1)
	utils.GoSafe(func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.cfg.Scheduler.MarketCheckInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopChan:
				return
			case <-ticker.C:
				s.evaluate(ctx, false)
			}
		}
	})
}

func (s *marketHoursService) Stop() {
	s.stopOnce.Do(func() { close(s.stopChan) })
	s.wg.Wait()
}

func (s *marketHoursService) Events() <-chan MarketStateEvent {
	return s.events
}

func (s *marketHoursService) StateOf(market entity.MarketType) MarketState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.states[market]
	if !ok {
		return MarketStateClosed
	}
	return state
}

// Snapshot reports every market's current phase and session boundaries,
// sorted by market code.
func (s *marketHoursService) Snapshot() []dto.MarketStateResponse {
	now := s.now()
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]dto.MarketStateResponse, 0, len(s.clocks))
	for code, clock := range s.clocks {
		state := s.states[code]
		if state == "" {
			state = clock.stateAt(now, s.cfg.Scheduler.TransitionLead)
		}
		out = append(out, dto.MarketStateResponse{
			Market:    string(code),
			State:     string(state),
			Timezone:  clock.calendar.Timezone,
			LocalTime: now.In(clock.loc),
			NextOpen:  clock.nextOpen(now),
			NextClose: clock.nextClose(now),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Market < out[j].Market })
	return out
}

// evaluate recomputes every market's phase. On a transition (or on the
// initial seed) the Redis tradable flag is rewritten and an event emitted;
// seed transitions are published too so the scheduler can pick up a market
// that is already open at boot.
func (s *marketHoursService) evaluate(ctx context.Context, seed bool) {
	now := s.now()
	for code, clock := range s.clocks {
		next := clock.stateAt(now, s.cfg.Scheduler.TransitionLead)

		s.mu.Lock()
		prev, known := s.states[code]
		changed := !known || prev != next
		if changed {
			s.states[code] = next
		}
		s.mu.Unlock()

		if !changed && !seed {
			continue
		}
		s.mirrorState(ctx, code, next)
		if !known {
			prev = MarketStateClosed
		}
		if prev == next {
			continue
		}
		s.log.Info("Market state transition",
			logger.Field("market", string(code)),
			logger.Field("from", string(prev)),
			logger.Field("to", string(next)),
		)
		select {
		case s.events <- MarketStateEvent{Market: code, From: prev, To: next, At: now}:
		default:
			s.log.Warn("Market event channel full, dropping transition", logger.Field("market", string(code)))
		}
	}
}

// mirrorState writes the tradable flag the workers gate realtime jobs on.
func (s *marketHoursService) mirrorState(ctx context.Context, market entity.MarketType, state MarketState) {
	value := common.MarketStateClosed
	if state.Trading() {
		value = common.MarketStateOpen
	}
	if err := s.redisClient.Set(ctx, common.RedisKeyMarketState+string(market), value, 0).Err(); err != nil {
		s.log.Error("Failed to mirror market state", logger.ErrorField(err), logger.Field("market", string(market)))
	}
}
