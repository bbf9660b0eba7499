// internal/trader/trader.go
package trader

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/assist-by/saigon/internal/domain"
	"github.com/assist-by/saigon/internal/exchange"
	"github.com/assist-by/saigon/internal/history"
	"github.com/assist-by/saigon/internal/notification"
	"github.com/assist-by/saigon/internal/risk"
	"github.com/assist-by/saigon/internal/signal"
	"github.com/assist-by/saigon/internal/store"
)

// dedupWindowMinutes는 시그널 중복 제거 기록을 유지하는 분 단위 버킷 수입니다
const dedupWindowMinutes = 60

// Config는 트레이더 설정을 정의합니다
type Config struct {
	OrderTimeout time.Duration // 주문 제출 타임아웃
}

// Trader는 틱 단위 실행 루프를 구현합니다
// 기록 → 평가 갱신 → 모니터링 → 시그널 평가 → 중복 제거 → 주문 집행의
// 순서를 내부에서 강제하므로 호출자는 ProcessTick만 호출하면 됩니다
type Trader struct {
	cfg       Config
	history   *history.Store
	evaluator *signal.Evaluator
	engine    *risk.Engine
	gateway   exchange.Gateway
	notifier  notification.Notifier
	trades    *store.TradeStore
	log       zerolog.Logger

	mu        sync.Mutex
	processed map[string]int64 // 시그널 ID → 분 단위 버킷

	inflight sync.WaitGroup
	stopOnce sync.Once
	stopped  chan struct{}
}

// New는 새로운 트레이더를 생성합니다
// trades는 nil일 수 있으며, 이 경우 거래 기록 저장을 건너뜁니다
func New(cfg Config, hist *history.Store, eval *signal.Evaluator, engine *risk.Engine,
	gateway exchange.Gateway, notifier notification.Notifier, trades *store.TradeStore,
	log zerolog.Logger) *Trader {

	if cfg.OrderTimeout <= 0 {
		cfg.OrderTimeout = 10 * time.Second
	}

	return &Trader{
		cfg:       cfg,
		history:   hist,
		evaluator: eval,
		engine:    engine,
		gateway:   gateway,
		notifier:  notifier,
		trades:    trades,
		log:       log.With().Str("component", "trader").Logger(),
		processed: make(map[string]int64),
		stopped:   make(chan struct{}),
	}
}

// ProcessTick은 하나의 가격 틱을 처리합니다
// 한 심볼 처리 중의 패닉은 격리되어 다음 틱에 영향을 주지 않습니다
func (t *Trader) ProcessTick(ctx context.Context, tick domain.Tick) {
	defer func() {
		if r := recover(); r != nil {
			t.log.Error().
				Str("symbol", tick.Symbol).
				Interface("panic", r).
				Msg("틱 처리 중 패닉 발생")
			if t.notifier != nil {
				t.notifier.SendError(fmt.Errorf("틱 처리 패닉 [%s]: %v", tick.Symbol, r))
			}
		}
	}()

	t.inflight.Add(1)
	defer t.inflight.Done()

	select {
	case <-t.stopped:
		return
	default:
	}

	if !tick.IsValid() {
		t.log.Debug().Str("symbol", tick.Symbol).Msg("유효하지 않은 틱을 건너뜁니다")
		return
	}

	// 1. 가격 이력 기록
	t.history.Record(tick.Symbol, tick.Price, tick.Volume, tick.High, tick.Low, tick.Timestamp)

	// 2. 보유 포지션 평가 갱신
	t.engine.Mark(tick.Symbol, tick.Price)

	// 3. 가상 손절/익절 모니터링 (포지션이 청산될 수 있음)
	t.engine.Monitor(ctx, tick.Symbol)

	// 4. 시그널 평가
	sig := t.evaluator.Evaluate(tick.Symbol, tick.Price)
	if sig == nil || !sig.IsActionable() {
		return
	}

	// 5. 분 단위 버킷으로 동일 시그널 중복 제거
	if !t.markProcessed(sig) {
		return
	}

	// 6. WEAK 시그널은 조용히 버립니다
	if sig.Strength == domain.Weak {
		t.log.Debug().
			Str("symbol", sig.Symbol).
			Str("type", string(sig.Type)).
			Msg("약한 시그널을 건너뜁니다")
		return
	}

	t.log.Info().
		Str("symbol", sig.Symbol).
		Str("type", string(sig.Type)).
		Str("strength", sig.Strength.String()).
		Float64("price", sig.Price).
		Str("reason", sig.Reason).
		Msg("시그널 발생")

	if t.notifier != nil {
		t.notifier.SendSignal(*sig)
	}

	// 7. 시그널 타입별 집행
	switch sig.Type {
	case domain.Buy:
		t.executeBuy(ctx, sig)
	case domain.Sell:
		t.executeSell(ctx, sig)
	case domain.CutLoss:
		t.executeCutLoss(ctx, sig)
	}
}

// markProcessed는 시그널의 분 단위 ID를 기록합니다
// 이미 처리된 시그널이면 false를 반환합니다
// 오래된 기록은 매 호출마다 60분 기준으로 정리됩니다
func (t *Trader) markProcessed(sig *domain.Signal) bool {
	bucket := sig.Timestamp.Unix() / 60
	id := fmt.Sprintf("%s_%s_%d", sig.Symbol, sig.Type, bucket)

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, seen := t.processed[id]; seen {
		return false
	}
	t.processed[id] = bucket

	for oldID, oldBucket := range t.processed {
		if oldBucket <= bucket-dedupWindowMinutes {
			delete(t.processed, oldID)
		}
	}

	return true
}

// executeBuy는 BUY 시그널을 집행합니다
// 사이징 0과 진입 거부는 정상적인 결과이며 다음 틱으로 넘어갑니다
func (t *Trader) executeBuy(ctx context.Context, sig *domain.Signal) {
	entryPrice := sig.Price
	stopLossPrice := t.engine.DefaultStopLoss(entryPrice, domain.OrderBuy)

	quantity := t.engine.SizePosition(sig.Symbol, entryPrice, stopLossPrice)
	if quantity == 0 {
		t.log.Warn().Str("symbol", sig.Symbol).Msg("계산된 수량이 0이라 매수를 건너뜁니다")
		return
	}

	positionValue := float64(quantity) * entryPrice
	if ok, reason := t.engine.CanOpen(sig.Symbol, positionValue); !ok {
		t.log.Warn().Str("symbol", sig.Symbol).Str("reason", reason).Msg("진입 불가")
		if t.notifier != nil {
			t.notifier.SendInfo(fmt.Sprintf("❌ BUY %s @ %.2f 진입 불가: %s", sig.Symbol, entryPrice, reason))
		}
		return
	}

	order, err := t.submitOrder(ctx, domain.OrderRequest{
		Symbol:        sig.Symbol,
		Side:          domain.OrderBuy,
		Quantity:      quantity,
		Price:         entryPrice,
		Type:          domain.Limit,
		ClientOrderID: uuid.NewString(),
	})
	if err != nil {
		// 주문이 확인되지 않았으므로 포지션 상태는 변경하지 않습니다
		t.log.Error().Err(err).Str("symbol", sig.Symbol).Msg("매수 주문 제출 실패")
		if t.notifier != nil {
			t.notifier.SendError(err)
		}
		return
	}

	pos, err := t.engine.Open(sig.Symbol, quantity, entryPrice, stopLossPrice, nil)
	if err != nil {
		t.log.Error().Err(err).Str("symbol", sig.Symbol).Msg("포지션 등록 실패")
		if t.notifier != nil {
			t.notifier.SendError(err)
		}
		return
	}

	t.recordTrade(ctx, order, sig.Reason, 0)

	if t.notifier != nil {
		summary := t.engine.Summary()
		t.notifier.SendTradeInfo(notification.TradeInfo{
			Symbol:        pos.Symbol,
			Action:        "BUY",
			Quantity:      quantity,
			Price:         entryPrice,
			StopLoss:      stopLossPrice,
			Capital:       summary.CurrentCapital,
			Reason:        sig.Reason,
			PositionCount: summary.PositionCount,
		})
	}
}

// executeSell은 SELL 시그널을 집행합니다
// 보유 포지션이 없으면 아무것도 하지 않습니다
func (t *Trader) executeSell(ctx context.Context, sig *domain.Signal) {
	pos, exists := t.engine.Position(sig.Symbol)
	if !exists {
		t.log.Debug().Str("symbol", sig.Symbol).Msg("매도할 포지션이 없습니다")
		return
	}

	order, err := t.submitOrder(ctx, domain.OrderRequest{
		Symbol:        sig.Symbol,
		Side:          domain.OrderSell,
		Quantity:      pos.Quantity,
		Price:         sig.Price,
		Type:          domain.Limit,
		ClientOrderID: uuid.NewString(),
	})
	if err != nil {
		t.log.Error().Err(err).Str("symbol", sig.Symbol).Msg("매도 주문 제출 실패")
		if t.notifier != nil {
			t.notifier.SendError(err)
		}
		return
	}

	reason := fmt.Sprintf("Signal: %s", sig.Reason)
	realizedPnL, ok := t.engine.Close(sig.Symbol, sig.Price, reason)
	if !ok {
		return
	}

	t.recordTrade(ctx, order, reason, realizedPnL)

	if t.notifier != nil {
		summary := t.engine.Summary()
		t.notifier.SendTradeInfo(notification.TradeInfo{
			Symbol:        sig.Symbol,
			Action:        "SELL",
			Quantity:      pos.Quantity,
			Price:         sig.Price,
			RealizedPnL:   realizedPnL,
			Capital:       summary.CurrentCapital,
			Reason:        sig.Reason,
			PositionCount: summary.PositionCount,
		})
	}
}

// executeCutLoss는 CUTLOSS 시그널을 집행합니다
// 즉시성이 가격 확실성보다 중요하므로 시장가로 매도합니다
func (t *Trader) executeCutLoss(ctx context.Context, sig *domain.Signal) {
	pos, exists := t.engine.Position(sig.Symbol)
	if !exists {
		t.log.Debug().Str("symbol", sig.Symbol).Msg("손절할 포지션이 없습니다")
		return
	}

	order, err := t.submitOrder(ctx, domain.OrderRequest{
		Symbol:        sig.Symbol,
		Side:          domain.OrderSell,
		Quantity:      pos.Quantity,
		Type:          domain.Market,
		ClientOrderID: uuid.NewString(),
	})
	if err != nil {
		t.log.Error().Err(err).Str("symbol", sig.Symbol).Msg("손절 주문 제출 실패")
		if t.notifier != nil {
			t.notifier.SendError(err)
		}
		return
	}

	reason := fmt.Sprintf("CUTLOSS: %s", sig.Reason)
	realizedPnL, ok := t.engine.Close(sig.Symbol, sig.Price, reason)
	if !ok {
		return
	}

	t.recordTrade(ctx, order, reason, realizedPnL)

	if t.notifier != nil {
		summary := t.engine.Summary()
		t.notifier.SendTradeInfo(notification.TradeInfo{
			Symbol:        sig.Symbol,
			Action:        "CUTLOSS",
			Quantity:      pos.Quantity,
			Price:         sig.Price,
			RealizedPnL:   realizedPnL,
			Capital:       summary.CurrentCapital,
			Reason:        reason,
			PositionCount: summary.PositionCount,
		})
	}
}

// PlaceManualOrder는 수동 주문을 자동 시그널과 동일한 진입/청산 경로로 처리합니다
// 진입 검증을 우회하는 경로는 없습니다
func (t *Trader) PlaceManualOrder(ctx context.Context, req domain.OrderRequest, stopLossPrice float64, takeProfitPrice *float64) (*domain.Order, error) {
	if req.Quantity <= 0 || req.Quantity != domain.RoundToLot(req.Quantity) {
		return nil, fmt.Errorf("수량은 %d주 단위의 양수여야 합니다", domain.LotSize)
	}

	if req.Side == domain.OrderBuy {
		if stopLossPrice <= 0 {
			stopLossPrice = t.engine.DefaultStopLoss(req.Price, domain.OrderBuy)
		}

		positionValue := float64(req.Quantity) * req.Price
		if ok, reason := t.engine.CanOpen(req.Symbol, positionValue); !ok {
			return nil, fmt.Errorf("진입 불가: %s", reason)
		}

		order, err := t.submitOrder(ctx, req)
		if err != nil {
			return nil, err
		}

		if _, err := t.engine.Open(req.Symbol, req.Quantity, req.Price, stopLossPrice, takeProfitPrice); err != nil {
			return nil, err
		}

		t.recordTrade(ctx, order, "Manual order", 0)
		return order, nil
	}

	pos, exists := t.engine.Position(req.Symbol)
	if !exists {
		return nil, risk.NewRiskError(req.Symbol, "manual_sell", risk.ErrPositionNotFound)
	}

	req.Quantity = pos.Quantity
	order, err := t.submitOrder(ctx, req)
	if err != nil {
		return nil, err
	}

	realizedPnL, _ := t.engine.Close(req.Symbol, req.Price, "Manual order")
	t.recordTrade(ctx, order, "Manual order", realizedPnL)
	return order, nil
}

// submitOrder는 타임아웃을 적용하여 주문을 제출합니다
func (t *Trader) submitOrder(ctx context.Context, req domain.OrderRequest) (*domain.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, t.cfg.OrderTimeout)
	defer cancel()

	return t.gateway.PlaceOrder(ctx, req)
}

// recordTrade는 체결된 거래를 저장소에 기록합니다
func (t *Trader) recordTrade(ctx context.Context, order *domain.Order, reason string, realizedPnL float64) {
	if t.trades == nil || order == nil {
		return
	}

	if err := t.trades.RecordTrade(ctx, store.Trade{
		OrderID:     order.OrderID,
		Symbol:      order.Symbol,
		Side:        string(order.Side),
		Quantity:    order.Quantity,
		Price:       order.Price,
		OrderType:   string(order.Type),
		Reason:      reason,
		RealizedPnL: realizedPnL,
		ExecutedAt:  time.Now(),
	}); err != nil {
		t.log.Warn().Err(err).Str("symbol", order.Symbol).Msg("거래 기록 저장 실패")
	}
}

// Shutdown은 새 틱 소비를 중단하고 처리 중인 틱이 끝날 때까지 대기합니다
// 진행 중인 주문 제출은 타임아웃까지 완료되도록 둡니다
func (t *Trader) Shutdown() {
	t.stopOnce.Do(func() {
		close(t.stopped)
		t.log.Info().Msg("트레이더 종료: 새 틱 소비를 중단합니다")
	})
	t.inflight.Wait()
}
