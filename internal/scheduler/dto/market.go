package dto

import "time"

// MarketStateResponse reports where one market currently is in its trading
// session.
type MarketStateResponse struct {
	Market    string    `json:"market"`
	State     string    `json:"state"`
	Timezone  string    `json:"timezone"`
	LocalTime time.Time `json:"local_time"`
	NextOpen  time.Time `json:"next_open"`
	NextClose time.Time `json:"next_close"`
}
