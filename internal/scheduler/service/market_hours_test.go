package service

import (
	"testing"
	"time"

	"golang-signal-engine/internal/entity"
	"golang-signal-engine/internal/scheduler/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func usClock(t *testing.T) *marketClock {
	t.Helper()
	clock, err := newMarketClock(entity.MarketUS, config.DefaultMarkets()["us"])
	require.NoError(t, err)
	return clock
}

func vnClock(t *testing.T) *marketClock {
	t.Helper()
	clock, err := newMarketClock(entity.MarketVN, config.DefaultMarkets()["vn"])
	require.NoError(t, err)
	return clock
}

func TestMarketClockStateAt(t *testing.T) {
	clock := usClock(t)
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	lead := 15 * time.Minute

	cases := []struct {
		name string
		at   time.Time
		want MarketState
	}{
		{"before pre-open", time.Date(2026, 8, 28, 9, 14, 0, 0, ny), MarketStateClosed},
		{"pre-open window", time.Date(2026, 8, 28, 9, 20, 0, 0, ny), MarketStateOpening},
		{"at the bell", time.Date(2026, 8, 28, 9, 30, 0, 0, ny), MarketStateOpen},
		{"mid session", time.Date(2026, 8, 28, 12, 0, 0, 0, ny), MarketStateOpen},
		{"closing window", time.Date(2026, 8, 28, 15, 50, 0, 0, ny), MarketStateClosing},
		{"at the close", time.Date(2026, 8, 28, 16, 0, 0, 0, ny), MarketStateClosed},
		{"evening", time.Date(2026, 8, 28, 20, 0, 0, 0, ny), MarketStateClosed},
		{"saturday noon", time.Date(2026, 8, 29, 12, 0, 0, 0, ny), MarketStateClosed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, clock.stateAt(tc.at, lead))
		})
	}
}

func TestMarketClockStateAtConvertsTimezone(t *testing.T) {
	clock := vnClock(t)
	// 03:00 UTC on a Friday is 10:00 in Ho Chi Minh City.
	at := time.Date(2026, 8, 28, 3, 0, 0, 0, time.UTC)
	assert.Equal(t, MarketStateOpen, clock.stateAt(at, 15*time.Minute))
}

func TestMarketClockNextOpenSkipsWeekend(t *testing.T) {
	clock := usClock(t)
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	// Friday after the close rolls to Monday's open.
	friday := time.Date(2026, 8, 28, 17, 0, 0, 0, ny)
	open := clock.nextOpen(friday)
	assert.Equal(t, time.Date(2026, 8, 31, 9, 30, 0, 0, ny), open)

	// Mid-session the next close is the same day's.
	midday := time.Date(2026, 8, 28, 12, 0, 0, 0, ny)
	assert.Equal(t, time.Date(2026, 8, 28, 16, 0, 0, 0, ny), clock.nextClose(midday))
}

func TestNewMarketClockValidation(t *testing.T) {
	base := config.MarketCalendar{
		Timezone: "America/New_York",
		Open:     "09:30",
		Close:    "16:00",
		Days:     []string{"Monday"},
	}

	bad := base
	bad.Timezone = "Mars/Olympus"
	_, err := newMarketClock(entity.MarketUS, bad)
	assert.Error(t, err)

	bad = base
	bad.Open = "930"
	_, err = newMarketClock(entity.MarketUS, bad)
	assert.Error(t, err)

	bad = base
	bad.Close = "09:00"
	_, err = newMarketClock(entity.MarketUS, bad)
	assert.Error(t, err)

	bad = base
	bad.Days = []string{"Funday"}
	_, err = newMarketClock(entity.MarketUS, bad)
	assert.Error(t, err)
}

func TestMarketStateTrading(t *testing.T) {
	assert.True(t, MarketStateOpen.Trading())
	assert.True(t, MarketStateClosing.Trading())
	assert.False(t, MarketStateOpening.Trading())
	assert.False(t, MarketStateClosed.Trading())
}
