package risk

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/assist-by/saigon/internal/domain"
	"github.com/assist-by/saigon/internal/exchange"
	"github.com/assist-by/saigon/internal/notification"
)

// 트레일링 스탑 기본 파라미터
const (
	// TrailingActivationPct는 트레일링 스탑을 활성화하는 미실현 수익률(%)입니다
	TrailingActivationPct = 5.0
	// TrailingStopPct는 현재가 대비 트레일링 스탑 간격입니다
	TrailingStopPct = 0.03
)

// Config는 리스크 엔진 설정을 정의합니다
// 생성 이후 변경되지 않습니다
type Config struct {
	InitialCapital     float64       // 초기 자본 (VND)
	MaxPositionSize    float64       // 포지션당 최대 가치 (VND)
	MaxPositions       int           // 동시 보유 가능한 종목 수
	RiskPerTrade       float64       // 거래당 리스크 비율 (예: 0.02)
	DefaultStopLossPct float64       // 기본 손절 비율 (예: 0.03)
	MaxDrawdownPct     float64       // 허용 최대 낙폭 (예: 0.10)
	OrderTimeout       time.Duration // 주문 제출 타임아웃
}

// Engine은 자본과 포지션 상태를 관리하는 리스크 엔진입니다
// 모든 상태 변경은 단일 뮤텍스로 직렬화됩니다
type Engine struct {
	cfg      Config
	gateway  exchange.Gateway
	notifier notification.Notifier
	log      zerolog.Logger

	mu             sync.Mutex
	currentCapital float64
	peakCapital    float64
	maxDrawdown    float64
	positions      map[string]*Position
}

// NewEngine은 새로운 리스크 엔진을 생성합니다
func NewEngine(cfg Config, gateway exchange.Gateway, notifier notification.Notifier, log zerolog.Logger) *Engine {
	if cfg.OrderTimeout <= 0 {
		cfg.OrderTimeout = 10 * time.Second
	}

	return &Engine{
		cfg:            cfg,
		gateway:        gateway,
		notifier:       notifier,
		log:            log.With().Str("component", "risk").Logger(),
		currentCapital: cfg.InitialCapital,
		peakCapital:    cfg.InitialCapital,
		positions:      make(map[string]*Position),
	}
}

// SizePosition은 분할 리스크 기준으로 매수 수량을 계산합니다
// 계산 결과가 1로트(100주) 미만이면 0을 반환하며, 호출자는 0을 "거래하지 않음"으로 취급해야 합니다
func (e *Engine) SizePosition(symbol string, entryPrice, stopLossPrice float64) int64 {
	riskPerShare := math.Abs(entryPrice - stopLossPrice)
	if riskPerShare == 0 || entryPrice <= 0 {
		return 0
	}

	e.mu.Lock()
	riskAmount := e.currentCapital * e.cfg.RiskPerTrade
	e.mu.Unlock()

	shares := int64(math.Floor(riskAmount / riskPerShare))
	maxShares := int64(math.Floor(e.cfg.MaxPositionSize / entryPrice))
	if shares > maxShares {
		shares = maxShares
	}

	return domain.RoundToLot(shares)
}

// DefaultStopLoss는 기본 손절가를 계산합니다
func (e *Engine) DefaultStopLoss(entryPrice float64, side domain.OrderSide) float64 {
	if side == domain.OrderSell {
		return entryPrice * (1 + e.cfg.DefaultStopLossPct)
	}
	return entryPrice * (1 - e.cfg.DefaultStopLossPct)
}

// CanOpen은 신규 포지션 진입 가능 여부를 판단합니다
// 거부는 정상적인 결과이며 에러가 아닙니다
func (e *Engine) CanOpen(symbol string, positionValue float64) (bool, string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.canOpenLocked(symbol, positionValue); err != nil {
		return false, err.Error()
	}
	return true, "OK"
}

// canOpenLocked는 락을 보유한 상태에서 진입 가능 여부를 판단합니다
// 검사 순서는 고정되어 있으며 첫 번째 실패 사유를 센티널 에러로 감싸 반환합니다
func (e *Engine) canOpenLocked(symbol string, positionValue float64) error {
	if len(e.positions) >= e.cfg.MaxPositions {
		return fmt.Errorf("%w (%d/%d)", ErrMaxPositions, len(e.positions), e.cfg.MaxPositions)
	}
	if _, exists := e.positions[symbol]; exists {
		return fmt.Errorf("%w: %s", ErrPositionExists, symbol)
	}
	if positionValue > e.cfg.MaxPositionSize {
		return fmt.Errorf("%w (%.0f > %.0f)", ErrPositionTooLarge, positionValue, e.cfg.MaxPositionSize)
	}
	if positionValue > e.currentCapital {
		return fmt.Errorf("%w (필요 %.0f, 보유 %.0f)", ErrInsufficientCapital, positionValue, e.currentCapital)
	}
	if e.maxDrawdown >= e.cfg.MaxDrawdownPct {
		return fmt.Errorf("%w (%.2f%%)", ErrMaxDrawdown, e.maxDrawdown*100)
	}
	return nil
}

// Open은 신규 포지션을 등록하고 자본을 차감합니다
// CanOpen 재검증을 통과하지 못하면 거부 사유와 함께 에러를 반환합니다
func (e *Engine) Open(symbol string, quantity int64, entryPrice, stopLossPrice float64, takeProfitPrice *float64) (*Position, error) {
	positionValue := float64(quantity) * entryPrice

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.canOpenLocked(symbol, positionValue); err != nil {
		return nil, NewRiskError(symbol, "open", err)
	}

	// canOpenLocked 통과 이후 중복 키가 존재하면 직렬화 규약이 깨진 것입니다
	if _, exists := e.positions[symbol]; exists {
		panic(fmt.Sprintf("risk: %s 포지션 중복 등록 시도", symbol))
	}

	pos := &Position{
		Symbol:          symbol,
		Quantity:        quantity,
		EntryPrice:      entryPrice,
		CurrentPrice:    entryPrice,
		StopLossPrice:   stopLossPrice,
		TakeProfitPrice: takeProfitPrice,
		OpenedAt:        time.Now(),
	}

	e.currentCapital -= positionValue
	e.positions[symbol] = pos

	e.log.Info().
		Str("symbol", symbol).
		Int64("quantity", quantity).
		Float64("entryPrice", entryPrice).
		Float64("stopLoss", stopLossPrice).
		Float64("capital", e.currentCapital).
		Msg("포지션 진입")

	return pos, nil
}

// Close는 포지션을 청산하고 자본에 매도 대금을 반영합니다
// 해당 종목의 포지션이 없으면 (0, false)를 반환하고 아무것도 변경하지 않습니다
// 낙폭 상태를 갱신하는 유일한 지점이며, 미실현 평가에서는 갱신되지 않습니다
func (e *Engine) Close(symbol string, exitPrice float64, reason string) (float64, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closeLocked(symbol, exitPrice, reason)
}

func (e *Engine) closeLocked(symbol string, exitPrice float64, reason string) (float64, bool) {
	pos, exists := e.positions[symbol]
	if !exists {
		return 0, false
	}

	pos.UpdatePnL(exitPrice)
	realizedPnL := pos.PnL

	e.currentCapital += float64(pos.Quantity) * exitPrice
	if e.currentCapital > e.peakCapital {
		e.peakCapital = e.currentCapital
	} else if e.peakCapital > 0 {
		drawdown := (e.peakCapital - e.currentCapital) / e.peakCapital
		if drawdown > e.maxDrawdown {
			e.maxDrawdown = drawdown
		}
	}

	delete(e.positions, symbol)

	e.log.Info().
		Str("symbol", symbol).
		Float64("exitPrice", exitPrice).
		Float64("realizedPnL", realizedPnL).
		Float64("capital", e.currentCapital).
		Str("reason", reason).
		Msg("포지션 청산")

	return realizedPnL, true
}

// Mark는 보유 포지션의 현재가와 미실현 손익을 갱신합니다
// 해당 종목의 포지션이 없으면 아무것도 하지 않습니다
func (e *Engine) Mark(symbol string, price float64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if pos, exists := e.positions[symbol]; exists {
		pos.UpdatePnL(price)
	}
}

// ShouldStopLoss는 손절 조건 충족 여부를 반환합니다
func (e *Engine) ShouldStopLoss(symbol string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	pos, exists := e.positions[symbol]
	return exists && pos.ShouldStopLoss()
}

// ShouldTakeProfit은 익절 조건 충족 여부를 반환합니다
func (e *Engine) ShouldTakeProfit(symbol string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	pos, exists := e.positions[symbol]
	return exists && pos.ShouldTakeProfit()
}

// RatchetTrailingStop은 트레일링 스탑을 끌어올립니다
// 손절가는 단조 증가하며 절대 내려가지 않습니다
func (e *Engine) RatchetTrailingStop(symbol string, trailingPct float64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	pos, exists := e.positions[symbol]
	if !exists {
		return
	}

	candidate := pos.CurrentPrice * (1 - trailingPct)
	if candidate > pos.StopLossPrice {
		e.log.Debug().
			Str("symbol", symbol).
			Float64("oldStop", pos.StopLossPrice).
			Float64("newStop", candidate).
			Msg("트레일링 스탑 갱신")
		pos.StopLossPrice = candidate
	}
}

// Monitor는 보유 포지션의 가상 손절/익절 조건을 평가합니다
// 손절이 익절보다 우선하며, 한 틱에서 둘 중 하나만 발동합니다
// 어느 쪽도 발동하지 않고 수익률이 활성화 기준을 넘으면 트레일링 스탑을 끌어올립니다
func (e *Engine) Monitor(ctx context.Context, symbol string) {
	e.mu.Lock()
	pos, exists := e.positions[symbol]
	if !exists {
		e.mu.Unlock()
		return
	}

	var (
		triggerReason string
		exitPrice     = pos.CurrentPrice
		quantity      = pos.Quantity
	)
	switch {
	case pos.ShouldStopLoss():
		triggerReason = "Stop Loss"
	case pos.ShouldTakeProfit():
		triggerReason = "Take Profit"
	}

	if triggerReason == "" {
		if pos.PnLPercent > TrailingActivationPct {
			candidate := pos.CurrentPrice * (1 - TrailingStopPct)
			if candidate > pos.StopLossPrice {
				pos.StopLossPrice = candidate
			}
		}
		e.mu.Unlock()
		return
	}
	e.mu.Unlock()

	// 주문 제출은 락을 잡지 않고 수행하며, 확인된 경우에만 상태를 커밋합니다
	if err := e.submitExit(ctx, symbol, quantity, triggerReason); err != nil {
		e.log.Error().Err(err).Str("symbol", symbol).Str("trigger", triggerReason).Msg("청산 주문 제출 실패")
		if e.notifier != nil {
			e.notifier.SendError(NewRiskError(symbol, "monitor", err))
		}
		return
	}

	e.mu.Lock()
	realizedPnL, ok := e.closeLocked(symbol, exitPrice, triggerReason)
	capital := e.currentCapital
	count := len(e.positions)
	e.mu.Unlock()

	if ok && e.notifier != nil {
		action := "SELL"
		if triggerReason == "Stop Loss" {
			action = "CUTLOSS"
		}
		e.notifier.SendTradeInfo(notification.TradeInfo{
			Symbol:        symbol,
			Action:        action,
			Quantity:      quantity,
			Price:         exitPrice,
			RealizedPnL:   realizedPnL,
			Capital:       capital,
			Reason:        triggerReason,
			PositionCount: count,
		})
	}
}

// submitExit는 전량 시장가 매도 주문을 제출합니다
func (e *Engine) submitExit(ctx context.Context, symbol string, quantity int64, reason string) error {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.OrderTimeout)
	defer cancel()

	order, err := e.gateway.PlaceOrder(ctx, domain.OrderRequest{
		Symbol:   symbol,
		Side:     domain.OrderSell,
		Quantity: quantity,
		Type:     domain.Market,
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrOrderFailed, err)
	}

	e.log.Info().
		Str("symbol", symbol).
		Str("orderID", order.OrderID).
		Int64("quantity", quantity).
		Str("reason", reason).
		Msg("청산 주문 제출")

	return nil
}

// Snapshot은 리스크 엔진 상태의 읽기 전용 스냅샷입니다
type Snapshot struct {
	InitialCapital float64    `json:"initialCapital"`
	CurrentCapital float64    `json:"currentCapital"`
	PeakCapital    float64    `json:"peakCapital"`
	MaxDrawdown    float64    `json:"maxDrawdown"`
	PositionValue  float64    `json:"positionValue"`
	UnrealizedPnL  float64    `json:"unrealizedPnL"`
	TotalValue     float64    `json:"totalValue"`
	ReturnPercent  float64    `json:"returnPercent"`
	PositionCount  int        `json:"positionCount"`
	Positions      []Position `json:"positions"`
}

// Summary는 현재 상태의 일관된 스냅샷을 반환합니다
// 상태를 변경하지 않습니다
func (e *Engine) Summary() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	snap := Snapshot{
		InitialCapital: e.cfg.InitialCapital,
		CurrentCapital: e.currentCapital,
		PeakCapital:    e.peakCapital,
		MaxDrawdown:    e.maxDrawdown,
		PositionCount:  len(e.positions),
		Positions:      make([]Position, 0, len(e.positions)),
	}

	for _, pos := range e.positions {
		snap.PositionValue += pos.CurrentValue()
		snap.UnrealizedPnL += pos.PnL
		snap.Positions = append(snap.Positions, pos.clone())
	}

	snap.TotalValue = snap.CurrentCapital + snap.PositionValue
	if snap.InitialCapital > 0 {
		snap.ReturnPercent = (snap.TotalValue - snap.InitialCapital) / snap.InitialCapital * 100
	}

	return snap
}

// Position은 해당 종목 포지션의 복사본을 반환합니다
func (e *Engine) Position(symbol string) (Position, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	pos, exists := e.positions[symbol]
	if !exists {
		return Position{}, false
	}
	return pos.clone(), true
}

// HasPosition은 해당 종목의 포지션 보유 여부를 반환합니다
func (e *Engine) HasPosition(symbol string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	_, exists := e.positions[symbol]
	return exists
}
