package paper

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/assist-by/saigon/internal/domain"
)

// Gateway는 페이퍼 트레이딩용 주문 게이트웨이입니다
// 모든 주문을 요청 가격에 즉시 체결 처리하며, 실제 API는 호출하지 않습니다
type Gateway struct {
	log zerolog.Logger

	mu        sync.Mutex
	orders    map[string]*domain.Order
	cash      float64
	positions map[string]int64 // 심볼 -> 수량
}

// NewGateway는 새로운 페이퍼 게이트웨이를 생성합니다
func NewGateway(initialCash float64, log zerolog.Logger) *Gateway {
	return &Gateway{
		log:       log.With().Str("component", "paper").Logger(),
		orders:    make(map[string]*domain.Order),
		cash:      initialCash,
		positions: make(map[string]int64),
	}
}

// PlaceOrder는 주문을 즉시 체결 처리합니다
func (g *Gateway) PlaceOrder(ctx context.Context, req domain.OrderRequest) (*domain.Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if req.Quantity <= 0 {
		return nil, fmt.Errorf("주문 수량이 유효하지 않습니다: %d", req.Quantity)
	}

	now := time.Now()
	order := &domain.Order{
		OrderID:        "PAPER-" + uuid.NewString(),
		Symbol:         req.Symbol,
		Side:           req.Side,
		Quantity:       req.Quantity,
		Price:          req.Price,
		Type:           req.Type,
		Status:         domain.OrderFilled,
		FilledQuantity: req.Quantity,
		AvgFilledPrice: req.Price,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	g.mu.Lock()
	if req.Side == domain.OrderBuy {
		g.cash -= float64(req.Quantity) * req.Price
		g.positions[req.Symbol] += req.Quantity
	} else {
		g.cash += float64(req.Quantity) * req.Price
		g.positions[req.Symbol] -= req.Quantity
	}
	g.orders[order.OrderID] = order
	cash := g.cash
	g.mu.Unlock()

	g.log.Info().
		Str("orderID", order.OrderID).
		Str("symbol", req.Symbol).
		Str("side", string(req.Side)).
		Int64("quantity", req.Quantity).
		Float64("price", req.Price).
		Float64("cash", cash).
		Msg("페이퍼 주문 체결")

	return order, nil
}

// CancelOrder는 주문을 취소 상태로 표시합니다
func (g *Gateway) CancelOrder(ctx context.Context, orderID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	order, ok := g.orders[orderID]
	if !ok {
		return fmt.Errorf("주문을 찾을 수 없습니다: %s", orderID)
	}
	order.Status = domain.OrderCancelled
	order.UpdatedAt = time.Now()
	return nil
}

// GetOrderStatus는 주문 상태를 반환합니다
func (g *Gateway) GetOrderStatus(ctx context.Context, orderID string) (*domain.Order, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	order, ok := g.orders[orderID]
	if !ok {
		return nil, fmt.Errorf("주문을 찾을 수 없습니다: %s", orderID)
	}
	copied := *order
	return &copied, nil
}

// Cash는 현재 페이퍼 현금 잔고를 반환합니다
func (g *Gateway) Cash() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.cash
}

// Positions는 현재 페이퍼 포지션의 복사본을 반환합니다
func (g *Gateway) Positions() map[string]int64 {
	g.mu.Lock()
	defer g.mu.Unlock()

	positions := make(map[string]int64, len(g.positions))
	for sym, qty := range g.positions {
		positions[sym] = qty
	}
	return positions
}
