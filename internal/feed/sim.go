package feed

import (
	"context"
	"math/rand"
	"time"

	"github.com/rs/zerolog"

	"github.com/assist-by/saigon/internal/domain"
)

// SimFeed는 랜덤 워크로 틱을 생성하는 모의 시세 피드입니다
// 페이퍼 모드에서 실거래 연결 없이 전체 파이프라인을 구동할 때 사용합니다
type SimFeed struct {
	symbols    []string
	interval   time.Duration
	volatility float64
	handler    Handler
	cache      *cache
	log        zerolog.Logger

	prices map[string]float64
	rng    *rand.Rand
}

// NewSimFeed는 새로운 모의 시세 피드를 생성합니다
func NewSimFeed(symbols []string, startPrice float64, interval time.Duration, volatility float64, handler Handler, log zerolog.Logger) *SimFeed {
	if interval <= 0 {
		interval = time.Second
	}
	if volatility <= 0 {
		volatility = 0.005
	}

	prices := make(map[string]float64, len(symbols))
	for _, symbol := range symbols {
		prices[symbol] = startPrice
	}

	return &SimFeed{
		symbols:    symbols,
		interval:   interval,
		volatility: volatility,
		handler:    handler,
		cache:      newCache(),
		log:        log.With().Str("component", "feed").Str("source", "sim").Logger(),
		prices:     prices,
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Run은 모의 틱 생성을 시작합니다
func (f *SimFeed) Run(ctx context.Context) error {
	f.log.Info().Int("symbols", len(f.symbols)).Dur("interval", f.interval).Msg("모의 시세 시작")

	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			for _, symbol := range f.symbols {
				tick := f.nextTick(symbol)
				f.cache.store(tick)
				if f.handler != nil {
					f.handler(ctx, tick)
				}
			}
		}
	}
}

// nextTick은 랜덤 워크로 다음 틱을 생성합니다
func (f *SimFeed) nextTick(symbol string) domain.Tick {
	open := f.prices[symbol]
	ret := (f.rng.Float64() - 0.5) * 2 * f.volatility
	price := open * (1 + ret)

	high := open
	low := open
	if price > high {
		high = price
	}
	if price < low {
		low = price
	}

	f.prices[symbol] = price

	return domain.Tick{
		Symbol:    symbol,
		Price:     price,
		Volume:    10_000 + int64(f.rng.Float64()*50_000),
		High:      high,
		Low:       low,
		Open:      open,
		BidPrice:  price * 0.999,
		AskPrice:  price * 1.001,
		Timestamp: time.Now(),
	}
}

// LatestPrice는 해당 종목의 마지막 틱을 반환합니다
func (f *SimFeed) LatestPrice(symbol string) (domain.Tick, bool) {
	return f.cache.latest(symbol)
}
