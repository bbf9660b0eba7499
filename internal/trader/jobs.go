package trader

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/assist-by/saigon/internal/domain"
	"github.com/assist-by/saigon/internal/notification"
	"github.com/assist-by/saigon/internal/risk"
)

// PriceSource는 종목별 최신 가격 조회 인터페이스를 정의합니다
type PriceSource interface {
	LatestPrice(symbol string) (domain.Tick, bool)
}

// DCAJob은 설정된 종목을 주기적으로 정액 매수합니다
type DCAJob struct {
	trader   *Trader
	engine   *risk.Engine
	notifier notification.Notifier
	prices   PriceSource
	symbols  []string
	amount   float64 // 회당 매수 금액 (VND)
	log      zerolog.Logger
}

// NewDCAJob은 새로운 DCA 작업을 생성합니다
func NewDCAJob(t *Trader, engine *risk.Engine, notifier notification.Notifier,
	prices PriceSource, symbols []string, amount float64, log zerolog.Logger) *DCAJob {
	return &DCAJob{
		trader:   t,
		engine:   engine,
		notifier: notifier,
		prices:   prices,
		symbols:  symbols,
		amount:   amount,
		log:      log.With().Str("job", "dca").Logger(),
	}
}

// Name은 작업 이름을 반환합니다
func (j *DCAJob) Name() string {
	return "dca"
}

// Run은 DCA 매수를 실행합니다
// 개별 종목의 실패는 다른 종목의 매수에 영향을 주지 않습니다
func (j *DCAJob) Run() error {
	j.log.Info().Msg("DCA 작업 시작")

	for _, symbol := range j.symbols {
		if err := j.buyOne(symbol); err != nil {
			j.log.Warn().Err(err).Str("symbol", symbol).Msg("DCA 매수 건너뜀")
		}
	}

	return nil
}

func (j *DCAJob) buyOne(symbol string) error {
	tick, ok := j.prices.LatestPrice(symbol)
	if !ok || tick.Price <= 0 {
		return fmt.Errorf("가격 데이터가 없습니다")
	}

	entryPrice := tick.Price
	quantity := domain.RoundToLot(int64(j.amount / entryPrice))
	if quantity == 0 {
		return fmt.Errorf("매수 금액(%.0f)이 1로트 가치보다 작습니다", j.amount)
	}

	stopLossPrice := j.engine.DefaultStopLoss(entryPrice, domain.OrderBuy)

	if ok, reason := j.engine.CanOpen(symbol, float64(quantity)*entryPrice); !ok {
		return fmt.Errorf("진입 불가: %s", reason)
	}

	order, err := j.trader.submitOrder(context.Background(), domain.OrderRequest{
		Symbol:        symbol,
		Side:          domain.OrderBuy,
		Quantity:      quantity,
		Price:         entryPrice,
		Type:          domain.Limit,
		ClientOrderID: uuid.NewString(),
	})
	if err != nil {
		return err
	}

	if _, err := j.engine.Open(symbol, quantity, entryPrice, stopLossPrice, nil); err != nil {
		return err
	}

	j.trader.recordTrade(context.Background(), order, "DCA", 0)

	j.log.Info().
		Str("symbol", symbol).
		Int64("quantity", quantity).
		Float64("price", entryPrice).
		Msg("DCA 매수 완료")

	if j.notifier != nil {
		j.notifier.SendInfo(fmt.Sprintf("🔄 DCA BUY %s\n수량: %d주 @ %.2f\n금액: %.0f VND",
			symbol, quantity, entryPrice, float64(quantity)*entryPrice))
	}

	return nil
}

// SummaryJob은 포트폴리오 현황을 주기적으로 로그와 알림으로 전송합니다
type SummaryJob struct {
	engine   *risk.Engine
	notifier notification.Notifier
	log      zerolog.Logger
}

// NewSummaryJob은 새로운 포트폴리오 요약 작업을 생성합니다
func NewSummaryJob(engine *risk.Engine, notifier notification.Notifier, log zerolog.Logger) *SummaryJob {
	return &SummaryJob{
		engine:   engine,
		notifier: notifier,
		log:      log.With().Str("job", "summary").Logger(),
	}
}

// Name은 작업 이름을 반환합니다
func (j *SummaryJob) Name() string {
	return "portfolio_summary"
}

// Run은 포트폴리오 요약을 전송합니다
func (j *SummaryJob) Run() error {
	snap := j.engine.Summary()

	j.log.Info().
		Float64("totalValue", snap.TotalValue).
		Float64("unrealizedPnL", snap.UnrealizedPnL).
		Float64("returnPercent", snap.ReturnPercent).
		Int("positions", snap.PositionCount).
		Float64("maxDrawdown", snap.MaxDrawdown).
		Msg("포트폴리오 요약")

	if j.notifier != nil {
		j.notifier.SendInfo(fmt.Sprintf(
			"📊 포트폴리오 요약\n총 자산: %.0f VND\n미실현 손익: %+.0f VND\n수익률: %+.2f%%\n보유 포지션: %d개\n최대 낙폭: %.2f%%",
			snap.TotalValue, snap.UnrealizedPnL, snap.ReturnPercent,
			snap.PositionCount, snap.MaxDrawdown*100,
		))
	}

	return nil
}
