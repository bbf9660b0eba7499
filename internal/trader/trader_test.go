package trader

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/assist-by/saigon/internal/domain"
	"github.com/assist-by/saigon/internal/history"
	"github.com/assist-by/saigon/internal/notification"
	"github.com/assist-by/saigon/internal/risk"
	"github.com/assist-by/saigon/internal/signal"
)

// stubGateway는 주문 요청을 기록하는 테스트용 게이트웨이입니다
type stubGateway struct {
	orders []domain.OrderRequest
	err    error
}

func (g *stubGateway) PlaceOrder(ctx context.Context, req domain.OrderRequest) (*domain.Order, error) {
	if g.err != nil {
		return nil, g.err
	}
	g.orders = append(g.orders, req)
	return &domain.Order{
		OrderID:  fmt.Sprintf("TEST-%d", len(g.orders)),
		Symbol:   req.Symbol,
		Side:     req.Side,
		Quantity: req.Quantity,
		Price:    req.Price,
		Type:     req.Type,
		Status:   domain.OrderFilled,
	}, nil
}

func (g *stubGateway) CancelOrder(ctx context.Context, orderID string) error { return nil }

func (g *stubGateway) GetOrderStatus(ctx context.Context, orderID string) (*domain.Order, error) {
	return nil, nil
}

// captureNotifier는 발송된 알림을 종류별로 수집합니다
type captureNotifier struct {
	signals []domain.Signal
	errors  []error
	infos   []string
	trades  []notification.TradeInfo
}

func (n *captureNotifier) SendSignal(sig domain.Signal) error {
	n.signals = append(n.signals, sig)
	return nil
}

func (n *captureNotifier) SendError(err error) error {
	n.errors = append(n.errors, err)
	return nil
}

func (n *captureNotifier) SendInfo(msg string) error {
	n.infos = append(n.infos, msg)
	return nil
}

func (n *captureNotifier) SendTradeInfo(info notification.TradeInfo) error {
	n.trades = append(n.trades, info)
	return nil
}

type fixture struct {
	trader   *Trader
	engine   *risk.Engine
	gateway  *stubGateway
	notifier *captureNotifier
	history  *history.Store
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	gateway := &stubGateway{}
	notifier := &captureNotifier{}
	hist := history.NewStore(0)
	engine := risk.NewEngine(risk.Config{
		InitialCapital:     100_000_000,
		MaxPositionSize:    100_000_000,
		MaxPositions:       10,
		RiskPerTrade:       0.02,
		DefaultStopLossPct: 0.03,
		MaxDrawdownPct:     0.10,
	}, gateway, notifier, zerolog.Nop())
	eval := signal.NewEvaluator(hist, signal.DefaultConfig(0.05), zerolog.Nop())

	return &fixture{
		trader:   New(Config{}, hist, eval, engine, gateway, notifier, nil, zerolog.Nop()),
		engine:   engine,
		gateway:  gateway,
		notifier: notifier,
		history:  hist,
	}
}

func buySignal(symbol string, price float64, strength domain.SignalStrength, ts time.Time) *domain.Signal {
	return &domain.Signal{
		Symbol:    symbol,
		Type:      domain.Buy,
		Strength:  strength,
		Price:     price,
		Reason:    "test",
		Timestamp: ts,
	}
}

func TestMarkProcessedDedup(t *testing.T) {
	f := newFixture(t)
	ts := time.Date(2026, 3, 2, 10, 15, 7, 0, time.UTC)

	// 같은 분 버킷의 동일 시그널은 한 번만 처리됩니다
	assert.True(t, f.trader.markProcessed(buySignal("VCB", 100, domain.Strong, ts)))
	assert.False(t, f.trader.markProcessed(buySignal("VCB", 100, domain.Strong, ts.Add(30*time.Second))))

	// 타입이 다르면 별개의 시그널입니다
	sell := buySignal("VCB", 100, domain.Strong, ts)
	sell.Type = domain.Sell
	assert.True(t, f.trader.markProcessed(sell))

	// 다음 분 버킷이면 다시 처리됩니다
	assert.True(t, f.trader.markProcessed(buySignal("VCB", 100, domain.Strong, ts.Add(time.Minute))))
}

func TestMarkProcessedPrune(t *testing.T) {
	f := newFixture(t)
	ts := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	require.True(t, f.trader.markProcessed(buySignal("VCB", 100, domain.Strong, ts)))

	// 60분이 지난 기록은 새 시그널 처리 시점에 정리됩니다
	require.True(t, f.trader.markProcessed(buySignal("FPT", 50, domain.Strong, ts.Add(60*time.Minute))))

	f.trader.mu.Lock()
	defer f.trader.mu.Unlock()
	assert.Len(t, f.trader.processed, 1)
	_, kept := f.trader.processed[fmt.Sprintf("FPT_%s_%d", domain.Buy, ts.Add(60*time.Minute).Unix()/60)]
	assert.True(t, kept)
}

func TestExecuteBuyOpensPosition(t *testing.T) {
	f := newFixture(t)

	f.trader.executeBuy(context.Background(), buySignal("VCB", 100, domain.Strong, time.Now()))

	require.Len(t, f.gateway.orders, 1)
	order := f.gateway.orders[0]
	assert.Equal(t, domain.OrderBuy, order.Side)
	assert.Equal(t, domain.Limit, order.Type)
	assert.Zero(t, order.Quantity%domain.LotSize)
	assert.NotEmpty(t, order.ClientOrderID)

	pos, exists := f.engine.Position("VCB")
	require.True(t, exists)
	assert.Equal(t, order.Quantity, pos.Quantity)
	assert.InDelta(t, 97.0, pos.StopLossPrice, 1e-9)
	assert.Nil(t, pos.TakeProfitPrice)

	// 매수 알림에는 현재 자본과 포지션 수가 담깁니다
	require.Len(t, f.notifier.trades, 1)
	assert.Equal(t, "BUY", f.notifier.trades[0].Action)
	assert.Equal(t, 1, f.notifier.trades[0].PositionCount)
}

func TestExecuteBuyOrderFailureNoMutation(t *testing.T) {
	f := newFixture(t)
	f.gateway.err = fmt.Errorf("네트워크 오류")

	f.trader.executeBuy(context.Background(), buySignal("VCB", 100, domain.Strong, time.Now()))

	// 주문이 확인되지 않으면 포지션도, 자본도 변하지 않습니다
	assert.False(t, f.engine.HasPosition("VCB"))
	assert.InDelta(t, 100_000_000, f.engine.Summary().CurrentCapital, 1e-6)
	assert.Len(t, f.notifier.errors, 1)
}

func TestExecuteBuyRefusedNotifiesInfo(t *testing.T) {
	f := newFixture(t)

	// 같은 심볼을 두 번 매수하면 두 번째는 중복으로 거부됩니다
	f.trader.executeBuy(context.Background(), buySignal("VCB", 100, domain.Strong, time.Now()))
	f.trader.executeBuy(context.Background(), buySignal("VCB", 100, domain.Strong, time.Now()))

	assert.Len(t, f.gateway.orders, 1)
	require.Len(t, f.notifier.infos, 1)
	assert.Contains(t, f.notifier.infos[0], "진입 불가")
}

func TestExecuteSellWithoutPosition(t *testing.T) {
	f := newFixture(t)

	sig := buySignal("VCB", 100, domain.Strong, time.Now())
	sig.Type = domain.Sell
	f.trader.executeSell(context.Background(), sig)

	assert.Empty(t, f.gateway.orders)
	assert.Empty(t, f.notifier.trades)
}

func TestExecuteSellClosesFullPosition(t *testing.T) {
	f := newFixture(t)

	_, err := f.engine.Open("VCB", 1000, 100.0, 97.0, nil)
	require.NoError(t, err)

	sig := buySignal("VCB", 105, domain.Strong, time.Now())
	sig.Type = domain.Sell
	f.trader.executeSell(context.Background(), sig)

	require.Len(t, f.gateway.orders, 1)
	assert.Equal(t, int64(1000), f.gateway.orders[0].Quantity)
	assert.False(t, f.engine.HasPosition("VCB"))

	require.Len(t, f.notifier.trades, 1)
	assert.Equal(t, "SELL", f.notifier.trades[0].Action)
	assert.InDelta(t, 5_000, f.notifier.trades[0].RealizedPnL, 1e-6)
}

func TestExecuteCutLossUsesMarketOrder(t *testing.T) {
	f := newFixture(t)

	_, err := f.engine.Open("VCB", 1000, 100.0, 97.0, nil)
	require.NoError(t, err)

	sig := buySignal("VCB", 98, domain.Strong, time.Now())
	sig.Type = domain.CutLoss
	f.trader.executeCutLoss(context.Background(), sig)

	require.Len(t, f.gateway.orders, 1)
	assert.Equal(t, domain.Market, f.gateway.orders[0].Type)
	assert.False(t, f.engine.HasPosition("VCB"))

	require.Len(t, f.notifier.trades, 1)
	assert.Equal(t, "CUTLOSS", f.notifier.trades[0].Action)
}

func TestProcessTickSkipsInvalidTick(t *testing.T) {
	f := newFixture(t)

	f.trader.ProcessTick(context.Background(), domain.Tick{Symbol: "VCB", Price: 0})
	f.trader.ProcessTick(context.Background(), domain.Tick{Price: 100})

	assert.Empty(t, f.history.Window("VCB", 0))
}

// blockingGateway는 release가 닫힐 때까지 주문 제출을 붙잡아 둡니다
type blockingGateway struct {
	started chan struct{}
	release chan struct{}
}

func (g *blockingGateway) PlaceOrder(ctx context.Context, req domain.OrderRequest) (*domain.Order, error) {
	close(g.started)
	<-g.release
	return &domain.Order{
		OrderID: "BLOCK-1", Symbol: req.Symbol, Side: req.Side,
		Quantity: req.Quantity, Price: req.Price, Type: req.Type,
		Status: domain.OrderFilled,
	}, nil
}

func (g *blockingGateway) CancelOrder(ctx context.Context, orderID string) error { return nil }

func (g *blockingGateway) GetOrderStatus(ctx context.Context, orderID string) (*domain.Order, error) {
	return nil, nil
}

func TestShutdownWaitsForInflightTick(t *testing.T) {
	gateway := &blockingGateway{
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	notifier := &captureNotifier{}
	hist := history.NewStore(0)
	engine := risk.NewEngine(risk.Config{
		InitialCapital:     100_000_000,
		MaxPositionSize:    100_000_000,
		MaxPositions:       10,
		RiskPerTrade:       0.02,
		DefaultStopLossPct: 0.03,
		MaxDrawdownPct:     0.10,
	}, gateway, notifier, zerolog.Nop())
	eval := signal.NewEvaluator(hist, signal.DefaultConfig(0.05), zerolog.Nop())
	tr := New(Config{}, hist, eval, engine, gateway, notifier, nil, zerolog.Nop())

	// 손절이 걸린 포지션을 만들고, 청산 주문이 게이트웨이에서 블로킹되게 합니다
	_, err := engine.Open("VCB", 1000, 100.0, 97.0, nil)
	require.NoError(t, err)

	tickDone := make(chan struct{})
	go func() {
		tr.ProcessTick(context.Background(), domain.Tick{
			Symbol: "VCB", Price: 90, Volume: 1000,
			High: 91, Low: 89, Timestamp: time.Now(),
		})
		close(tickDone)
	}()
	<-gateway.started

	shutdownDone := make(chan struct{})
	go func() {
		tr.Shutdown()
		close(shutdownDone)
	}()

	// 주문이 진행 중인 동안 Shutdown은 반환하지 않습니다
	select {
	case <-shutdownDone:
		t.Fatal("처리 중인 틱이 끝나기 전에 Shutdown이 반환되었습니다")
	case <-time.After(50 * time.Millisecond):
	}

	close(gateway.release)
	<-tickDone
	<-shutdownDone

	assert.False(t, engine.HasPosition("VCB"))
}

func TestProcessTickAfterShutdown(t *testing.T) {
	f := newFixture(t)
	f.trader.Shutdown()
	f.trader.Shutdown() // 중복 호출은 안전합니다

	f.trader.ProcessTick(context.Background(), domain.Tick{
		Symbol: "VCB", Price: 100, Volume: 1000,
		High: 101, Low: 99, Timestamp: time.Now(),
	})

	assert.Empty(t, f.history.Window("VCB", 0))
}

func TestProcessTickPanicIsolation(t *testing.T) {
	f := newFixture(t)
	f.trader.history = nil // 틱 처리 내부에서 패닉을 유발합니다

	assert.NotPanics(t, func() {
		f.trader.ProcessTick(context.Background(), domain.Tick{
			Symbol: "VCB", Price: 100, Volume: 1000,
			High: 101, Low: 99, Timestamp: time.Now(),
		})
	})
	assert.Len(t, f.notifier.errors, 1)
}

func TestProcessTickVolatilityCutLoss(t *testing.T) {
	// 급변동 구간에서 전체 파이프라인이 CUTLOSS까지 이어지는지 확인합니다
	f := newFixture(t)

	// 트레일링 스탑이 발동하지 않도록 진입가 112, 손절가 90으로 엽니다
	_, err := f.engine.Open("VCB", 1000, 112.0, 90.0, nil)
	require.NoError(t, err)

	base := time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)
	for i := 0; i < 2*signal.MinHistory; i++ {
		price := 100.0
		if i%2 == 1 {
			price = 112.0
		}
		f.trader.ProcessTick(context.Background(), domain.Tick{
			Symbol:    "VCB",
			Price:     price,
			Volume:    10_000,
			High:      price + 1,
			Low:       price - 1,
			Timestamp: base.Add(time.Duration(i) * time.Minute),
		})
	}

	assert.False(t, f.engine.HasPosition("VCB"))

	require.NotEmpty(t, f.gateway.orders)
	assert.Equal(t, domain.OrderSell, f.gateway.orders[0].Side)
	assert.Equal(t, domain.Market, f.gateway.orders[0].Type)

	require.NotEmpty(t, f.notifier.signals)
	assert.Equal(t, domain.CutLoss, f.notifier.signals[0].Type)
}

func TestPlaceManualOrderLotValidation(t *testing.T) {
	f := newFixture(t)

	for _, quantity := range []int64{0, -100, 150} {
		_, err := f.trader.PlaceManualOrder(context.Background(), domain.OrderRequest{
			Symbol: "VCB", Side: domain.OrderBuy, Quantity: quantity, Price: 100, Type: domain.Limit,
		}, 0, nil)
		assert.Error(t, err, "quantity=%d", quantity)
	}
	assert.Empty(t, f.gateway.orders)
}

func TestPlaceManualOrderBuy(t *testing.T) {
	f := newFixture(t)

	takeProfit := 120.0
	order, err := f.trader.PlaceManualOrder(context.Background(), domain.OrderRequest{
		Symbol: "VCB", Side: domain.OrderBuy, Quantity: 1000, Price: 100, Type: domain.Limit,
	}, 0, &takeProfit)
	require.NoError(t, err)
	require.NotNil(t, order)

	pos, exists := f.engine.Position("VCB")
	require.True(t, exists)
	assert.InDelta(t, 97.0, pos.StopLossPrice, 1e-9) // 기본 손절가가 적용됩니다
	require.NotNil(t, pos.TakeProfitPrice)
	assert.InDelta(t, 120.0, *pos.TakeProfitPrice, 1e-9)
}

func TestPlaceManualOrderSellFullQuantity(t *testing.T) {
	f := newFixture(t)

	_, err := f.engine.Open("VCB", 1000, 100.0, 97.0, nil)
	require.NoError(t, err)

	// 수동 매도는 요청 수량과 무관하게 전량 청산합니다
	order, err := f.trader.PlaceManualOrder(context.Background(), domain.OrderRequest{
		Symbol: "VCB", Side: domain.OrderSell, Quantity: 100, Price: 105, Type: domain.Limit,
	}, 0, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), order.Quantity)
	assert.False(t, f.engine.HasPosition("VCB"))
}

func TestPlaceManualOrderSellWithoutPosition(t *testing.T) {
	f := newFixture(t)

	_, err := f.trader.PlaceManualOrder(context.Background(), domain.OrderRequest{
		Symbol: "VCB", Side: domain.OrderSell, Quantity: 100, Price: 105, Type: domain.Limit,
	}, 0, nil)
	assert.ErrorIs(t, err, risk.ErrPositionNotFound)
}
