// internal/backtest/engine.go
package backtest

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/assist-by/saigon/internal/domain"
	"github.com/assist-by/saigon/internal/exchange/paper"
	"github.com/assist-by/saigon/internal/history"
	"github.com/assist-by/saigon/internal/notification"
	"github.com/assist-by/saigon/internal/risk"
	"github.com/assist-by/saigon/internal/signal"
	"github.com/assist-by/saigon/internal/trader"
)

// Engine은 기록된 틱을 실거래와 동일한 실행 루프에 재생하는 백테스트 엔진입니다
type Engine struct {
	ticks     []domain.Tick
	riskCfg   risk.Config
	signalCfg signal.Config
	warmup    int
	log       zerolog.Logger
}

// NewEngine은 새로운 백테스트 엔진을 생성합니다
// warmup은 시그널 평가 없이 이력만 쌓는 초기 틱 수입니다
func NewEngine(ticks []domain.Tick, riskCfg risk.Config, signalCfg signal.Config, warmup int, log zerolog.Logger) *Engine {
	if warmup < 0 {
		warmup = 0
	}

	return &Engine{
		ticks:     ticks,
		riskCfg:   riskCfg,
		signalCfg: signalCfg,
		warmup:    warmup,
		log:       log.With().Str("component", "backtest").Logger(),
	}
}

// tradeCollector는 실행 루프의 거래 알림을 수집합니다
type tradeCollector struct {
	trades []notification.TradeInfo
}

func (c *tradeCollector) SendSignal(domain.Signal) error { return nil }
func (c *tradeCollector) SendError(error) error          { return nil }
func (c *tradeCollector) SendInfo(string) error          { return nil }

func (c *tradeCollector) SendTradeInfo(info notification.TradeInfo) error {
	c.trades = append(c.trades, info)
	return nil
}

// Run은 백테스트를 실행하고 통계를 반환합니다
func (e *Engine) Run(ctx context.Context) (*Result, error) {
	if len(e.ticks) <= e.warmup {
		return nil, fmt.Errorf("틱 데이터가 부족합니다: 필요 %d 초과, 현재 %d", e.warmup, len(e.ticks))
	}

	hist := history.NewStore(0)
	gateway := paper.NewGateway(e.riskCfg.InitialCapital, e.log)
	collector := &tradeCollector{}
	engine := risk.NewEngine(e.riskCfg, gateway, collector, e.log)
	evaluator := signal.NewEvaluator(hist, e.signalCfg, e.log)
	loop := trader.New(trader.Config{}, hist, evaluator, engine, gateway, collector, nil, e.log)

	e.log.Info().
		Int("ticks", len(e.ticks)).
		Int("warmup", e.warmup).
		Msg("백테스트 시작")

	// 웜업 구간은 이력만 기록합니다
	for _, tick := range e.ticks[:e.warmup] {
		hist.Record(tick.Symbol, tick.Price, tick.Volume, tick.High, tick.Low, tick.Timestamp)
	}

	for _, tick := range e.ticks[e.warmup:] {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		loop.ProcessTick(ctx, tick)
	}

	// 남은 포지션은 마지막 가격으로 청산합니다
	lastPrices := make(map[string]float64)
	for _, tick := range e.ticks {
		lastPrices[tick.Symbol] = tick.Price
	}

	summary := engine.Summary()
	for _, pos := range summary.Positions {
		price, ok := lastPrices[pos.Symbol]
		if !ok {
			price = pos.CurrentPrice
		}
		if realized, closed := engine.Close(pos.Symbol, price, "Backtest End"); closed {
			collector.SendTradeInfo(notification.TradeInfo{
				Symbol:      pos.Symbol,
				Action:      "SELL",
				Quantity:    pos.Quantity,
				Price:       price,
				RealizedPnL: realized,
				Reason:      "Backtest End",
			})
		}
	}

	result := CalculateStats(collector.trades, engine.Summary())

	e.log.Info().
		Int("totalTrades", result.TotalTrades).
		Float64("returnPercent", result.ReturnPercent).
		Float64("winRate", result.WinRate).
		Msg("백테스트 완료")

	return result, nil
}
