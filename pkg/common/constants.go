package common

const (
	RedisStreamJobsUS       = "signals.jobs.us"
	RedisStreamJobsVN       = "signals.jobs.vn"
	RedisStreamJobsPriority = "signals.jobs.priority"
	RedisStreamJobsBackfill = "signals.jobs.backfill"

	RedisStreamGroup    = "signal-worker-group"
	RedisStreamConsumer = "signal-worker"

	RedisKeyMarketState   = "market.state." // + market code
	RedisKeyLastPrice     = "price.last."   // + ticker
	RedisKeyLeaseSymbol   = "lease."        // + market + "." + symbol
	RedisKeyLeasePipeline = "lease.pipeline." // + market, value "kind/holder"

	PipelineKindGeneric   = "generic"
	PipelineKindMACDMulti = "macd-multi"

	// Values the scheduler mirrors into RedisKeyMarketState keys.
	MarketStateOpen   = "open"
	MarketStateClosed = "closed"
)

// JobStreamForMarket returns the Redis stream a market's jobs are enqueued on.
func JobStreamForMarket(market string) string {
	switch market {
	case "us":
		return RedisStreamJobsUS
	case "vn":
		return RedisStreamJobsVN
	default:
		return RedisStreamJobsPriority
	}
}
