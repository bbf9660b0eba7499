package risk

import (
	"context"
	"fmt"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/assist-by/saigon/internal/domain"
)

// stubGateway는 주문을 기록만 하는 테스트용 게이트웨이입니다
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

func testConfig() Config {
	return Config{
		InitialCapital:     100_000_000,
		MaxPositionSize:    100_000_000,
		MaxPositions:       10,
		RiskPerTrade:       0.02,
		DefaultStopLossPct: 0.03,
		MaxDrawdownPct:     0.10,
	}
}

func newTestEngine(cfg Config, gateway *stubGateway) *Engine {
	return NewEngine(cfg, gateway, nil, zerolog.Nop())
}

func TestSizePosition(t *testing.T) {
	engine := newTestEngine(testConfig(), &stubGateway{})

	// risk_amount = 2,000,000 / risk_per_share = 3 → 666,666 → 로트 내림 666,600
	quantity := engine.SizePosition("VCB", 100, 97)
	assert.Equal(t, int64(666_600), quantity)

	// 로트 배수이면서 포지션 가치는 상한을 넘지 않아야 합니다
	assert.Zero(t, quantity%domain.LotSize)
	assert.LessOrEqual(t, float64(quantity)*100, engine.cfg.MaxPositionSize)
}

func TestSizePositionZeroRisk(t *testing.T) {
	engine := newTestEngine(testConfig(), &stubGateway{})

	// 진입가와 손절가가 같으면 0을 반환합니다 (거래하지 않음)
	assert.Zero(t, engine.SizePosition("VCB", 100, 100))
}

func TestSizePositionCappedByMaxSize(t *testing.T) {
	cfg := testConfig()
	cfg.MaxPositionSize = 10_000_000
	engine := newTestEngine(cfg, &stubGateway{})

	quantity := engine.SizePosition("VCB", 100, 97)
	assert.Equal(t, int64(100_000), quantity) // floor(10,000,000/100) = 100,000
	assert.LessOrEqual(t, float64(quantity)*100, cfg.MaxPositionSize)
}

func TestSizePositionBelowOneLot(t *testing.T) {
	cfg := testConfig()
	cfg.InitialCapital = 10_000
	engine := newTestEngine(cfg, &stubGateway{})

	// risk_amount = 200 / 3 = 66주 → 1로트 미만이면 0을 반환합니다
	assert.Zero(t, engine.SizePosition("VCB", 100, 97))
}

func TestDefaultStopLoss(t *testing.T) {
	engine := newTestEngine(testConfig(), &stubGateway{})

	assert.InDelta(t, 97.0, engine.DefaultStopLoss(100, domain.OrderBuy), 1e-9)
	assert.InDelta(t, 103.0, engine.DefaultStopLoss(100, domain.OrderSell), 1e-9)
}

func TestCanOpenRefusalOrder(t *testing.T) {
	cfg := testConfig()
	cfg.MaxPositions = 1
	engine := newTestEngine(cfg, &stubGateway{})

	_, err := engine.Open("VCB", 1000, 100, 97, nil)
	require.NoError(t, err)

	// 보유 수 초과와 중복 심볼이 동시에 걸리면 보유 수 초과가 먼저 보고됩니다
	ok, reason := engine.CanOpen("VCB", 100_000)
	assert.False(t, ok)
	assert.Contains(t, reason, "최대 보유 포지션 수")

	// 보유 수에 여유가 생기면 중복 심볼이 먼저 걸립니다
	engine.cfg.MaxPositions = 10
	ok, reason = engine.CanOpen("VCB", 100_000)
	assert.False(t, ok)
	assert.Contains(t, reason, "포지션이 존재합니다")

	// 가치 상한 초과
	ok, reason = engine.CanOpen("FPT", cfg.MaxPositionSize+1)
	assert.False(t, ok)
	assert.Contains(t, reason, "상한")

	// 가용 자본 부족 (상한 이하이지만 현재 자본 초과)
	engine.cfg.MaxPositionSize = 1_000_000_000
	ok, reason = engine.CanOpen("FPT", 999_000_000)
	assert.False(t, ok)
	assert.Contains(t, reason, "자본이 부족")

	ok, reason = engine.CanOpen("FPT", 1_000_000)
	assert.True(t, ok)
	assert.Equal(t, "OK", reason)
}

func TestOpenRefusalSentinels(t *testing.T) {
	// Open의 거부 에러는 errors.Is로 사유를 구분할 수 있습니다
	cfg := testConfig()
	cfg.MaxPositions = 1
	engine := newTestEngine(cfg, &stubGateway{})

	_, err := engine.Open("VCB", 1000, 100, 97, nil)
	require.NoError(t, err)

	_, err = engine.Open("FPT", 1000, 100, 97, nil)
	assert.ErrorIs(t, err, ErrMaxPositions)

	engine.cfg.MaxPositions = 10
	_, err = engine.Open("VCB", 1000, 100, 97, nil)
	assert.ErrorIs(t, err, ErrPositionExists)

	_, err = engine.Open("FPT", 2_000_000, 100, 97, nil)
	assert.ErrorIs(t, err, ErrPositionTooLarge)

	engine.cfg.MaxPositionSize = 1_000_000_000
	_, err = engine.Open("FPT", 1_000_000, 100, 97, nil)
	assert.ErrorIs(t, err, ErrInsufficientCapital)

	engine.maxDrawdown = cfg.MaxDrawdownPct
	_, err = engine.Open("FPT", 1000, 100, 97, nil)
	assert.ErrorIs(t, err, ErrMaxDrawdown)

	// RiskError 래핑도 유지됩니다
	var riskErr *RiskError
	require.ErrorAs(t, err, &riskErr)
	assert.Equal(t, "FPT", riskErr.Symbol)
	assert.Equal(t, "open", riskErr.Op)
}

func TestOpenMarkClose(t *testing.T) {
	engine := newTestEngine(testConfig(), &stubGateway{})

	pos, err := engine.Open("VCB", 1000, 100.0, 97.0, nil)
	require.NoError(t, err)
	require.NotNil(t, pos)

	summary := engine.Summary()
	assert.InDelta(t, 99_900_000, summary.CurrentCapital, 1e-6)
	assert.Equal(t, 1, summary.PositionCount)

	engine.Mark("VCB", 105.0)
	got, exists := engine.Position("VCB")
	require.True(t, exists)
	assert.InDelta(t, 5_000, got.PnL, 1e-6)
	assert.InDelta(t, 5.0, got.PnLPercent, 1e-6)

	realized, closed := engine.Close("VCB", 105.0, "Take Profit")
	require.True(t, closed)
	assert.InDelta(t, 5_000, realized, 1e-6)

	summary = engine.Summary()
	assert.InDelta(t, 100_005_000, summary.CurrentCapital, 1e-6)
	assert.InDelta(t, 100_005_000, summary.PeakCapital, 1e-6)
	assert.Zero(t, summary.MaxDrawdown)
	assert.Zero(t, summary.PositionCount)
	assert.False(t, engine.HasPosition("VCB"))
}

func TestCloseWithoutPosition(t *testing.T) {
	engine := newTestEngine(testConfig(), &stubGateway{})

	realized, closed := engine.Close("VCB", 100, "test")
	assert.False(t, closed)
	assert.Zero(t, realized)
	assert.InDelta(t, 100_000_000, engine.Summary().CurrentCapital, 1e-6)
}

func TestCapitalConservation(t *testing.T) {
	engine := newTestEngine(testConfig(), &stubGateway{})

	before := engine.Summary().CurrentCapital

	_, err := engine.Open("VCB", 1000, 100.0, 97.0, nil)
	require.NoError(t, err)
	realized, closed := engine.Close("VCB", 93.0, "Stop Loss")
	require.True(t, closed)

	after := engine.Summary().CurrentCapital
	assert.InDelta(t, before+realized, after, 1e-6)
	assert.InDelta(t, -7_000, realized, 1e-6)
}

func TestDrawdownOnlyOnClose(t *testing.T) {
	engine := newTestEngine(testConfig(), &stubGateway{})

	_, err := engine.Open("VCB", 1000, 100.0, 97.0, nil)
	require.NoError(t, err)

	// 미실현 하락은 낙폭에 반영되지 않습니다
	engine.Mark("VCB", 50.0)
	assert.Zero(t, engine.Summary().MaxDrawdown)

	// 실현 손실만 낙폭을 갱신합니다
	_, closed := engine.Close("VCB", 50.0, "test")
	require.True(t, closed)
	dd := engine.Summary().MaxDrawdown
	assert.Greater(t, dd, 0.0)

	// 이후 수익이 나도 낙폭은 감소하지 않습니다
	_, err = engine.Open("FPT", 1000, 50.0, 48.0, nil)
	require.NoError(t, err)
	_, closed = engine.Close("FPT", 60.0, "test")
	require.True(t, closed)
	assert.Equal(t, dd, engine.Summary().MaxDrawdown)
}

func TestRatchetTrailingStopMonotonic(t *testing.T) {
	engine := newTestEngine(testConfig(), &stubGateway{})

	_, err := engine.Open("VCB", 1000, 100.0, 97.0, nil)
	require.NoError(t, err)

	prices := []float64{110, 120, 115, 105, 130}
	lastStop := 97.0
	for _, price := range prices {
		engine.Mark("VCB", price)
		engine.RatchetTrailingStop("VCB", 0.03)

		pos, _ := engine.Position("VCB")
		assert.GreaterOrEqual(t, pos.StopLossPrice, lastStop,
			"price=%v에서 손절가가 내려갔습니다", price)
		lastStop = pos.StopLossPrice
	}

	// 최고가 130 기준 126.1까지 올라와야 합니다
	pos, _ := engine.Position("VCB")
	assert.InDelta(t, 130*0.97, pos.StopLossPrice, 1e-9)
}

func TestMonitorStopLossPriority(t *testing.T) {
	// 손절과 익절이 같은 틱에 모두 성립하면 손절만 발동합니다
	gateway := &stubGateway{}
	engine := newTestEngine(testConfig(), gateway)

	takeProfit := 95.0
	_, err := engine.Open("VCB", 1000, 100.0, 97.0, &takeProfit)
	require.NoError(t, err)

	engine.Mark("VCB", 96.0) // 96 <= 97 (손절), 96 >= 95 (익절) 동시 성립
	engine.Monitor(context.Background(), "VCB")

	require.Len(t, gateway.orders, 1)
	assert.Equal(t, domain.OrderSell, gateway.orders[0].Side)
	assert.Equal(t, domain.Market, gateway.orders[0].Type)
	assert.Equal(t, int64(1000), gateway.orders[0].Quantity)
	assert.False(t, engine.HasPosition("VCB"))
}

func TestMonitorTakeProfit(t *testing.T) {
	gateway := &stubGateway{}
	engine := newTestEngine(testConfig(), gateway)

	takeProfit := 110.0
	_, err := engine.Open("VCB", 1000, 100.0, 97.0, &takeProfit)
	require.NoError(t, err)

	engine.Mark("VCB", 111.0)
	engine.Monitor(context.Background(), "VCB")

	require.Len(t, gateway.orders, 1)
	assert.False(t, engine.HasPosition("VCB"))

	summary := engine.Summary()
	assert.InDelta(t, 100_000_000-100_000+111_000, summary.CurrentCapital, 1e-6)
}

func TestMonitorFailedOrderKeepsPosition(t *testing.T) {
	// 주문 제출이 실패하면 포지션 상태를 변경하지 않습니다
	gateway := &stubGateway{err: fmt.Errorf("네트워크 오류")}
	engine := newTestEngine(testConfig(), gateway)

	_, err := engine.Open("VCB", 1000, 100.0, 97.0, nil)
	require.NoError(t, err)

	engine.Mark("VCB", 90.0)
	engine.Monitor(context.Background(), "VCB")

	assert.True(t, engine.HasPosition("VCB"))
	assert.InDelta(t, 99_900_000, engine.Summary().CurrentCapital, 1e-6)
}

func TestMonitorTrailingActivation(t *testing.T) {
	// 손절/익절이 없고 수익률이 5%를 넘으면 트레일링 스탑만 끌어올립니다
	gateway := &stubGateway{}
	engine := newTestEngine(testConfig(), gateway)

	_, err := engine.Open("VCB", 1000, 100.0, 97.0, nil)
	require.NoError(t, err)

	engine.Mark("VCB", 110.0)
	engine.Monitor(context.Background(), "VCB")

	assert.Empty(t, gateway.orders)
	assert.True(t, engine.HasPosition("VCB"))

	pos, _ := engine.Position("VCB")
	assert.InDelta(t, 110*(1-TrailingStopPct), pos.StopLossPrice, 1e-9)
}

func TestMonitorWithoutPosition(t *testing.T) {
	gateway := &stubGateway{}
	engine := newTestEngine(testConfig(), gateway)

	engine.Monitor(context.Background(), "VCB")
	assert.Empty(t, gateway.orders)
}

func TestSummaryDoesNotMutate(t *testing.T) {
	engine := newTestEngine(testConfig(), &stubGateway{})

	_, err := engine.Open("VCB", 1000, 100.0, 97.0, nil)
	require.NoError(t, err)
	engine.Mark("VCB", 105.0)

	first := engine.Summary()
	second := engine.Summary()
	assert.Equal(t, first.CurrentCapital, second.CurrentCapital)
	assert.Equal(t, first.PositionCount, second.PositionCount)
	assert.InDelta(t, 105_000, first.PositionValue, 1e-6)
	assert.InDelta(t, 5_000, first.UnrealizedPnL, 1e-6)

	// 스냅샷의 포지션을 수정해도 엔진 상태에는 영향이 없습니다
	first.Positions[0].StopLossPrice = 1
	pos, _ := engine.Position("VCB")
	assert.InDelta(t, 97.0, pos.StopLossPrice, 1e-9)
}
