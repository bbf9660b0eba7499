package risk

import "time"

// Position은 보유 중인 단일 종목 포지션을 정의합니다
type Position struct {
	Symbol          string    // 종목 코드
	Quantity        int64     // 보유 수량 (주)
	EntryPrice      float64   // 진입가 (VND)
	CurrentPrice    float64   // 현재가 (VND)
	StopLossPrice   float64   // 손절가 (VND)
	TakeProfitPrice *float64  // 목표가 (VND, 미설정 가능)
	PnL             float64   // 미실현 손익 (VND)
	PnLPercent      float64   // 미실현 손익률 (%)
	OpenedAt        time.Time // 진입 시각
}

// Value는 진입 기준 포지션 가치를 반환합니다
func (p *Position) Value() float64 {
	return float64(p.Quantity) * p.EntryPrice
}

// CurrentValue는 현재가 기준 포지션 가치를 반환합니다
func (p *Position) CurrentValue() float64 {
	return float64(p.Quantity) * p.CurrentPrice
}

// UpdatePnL은 현재가를 갱신하고 미실현 손익을 다시 계산합니다
func (p *Position) UpdatePnL(currentPrice float64) {
	p.CurrentPrice = currentPrice
	p.PnL = (currentPrice - p.EntryPrice) * float64(p.Quantity)
	if p.EntryPrice != 0 {
		p.PnLPercent = (currentPrice - p.EntryPrice) / p.EntryPrice * 100
	}
}

// ShouldStopLoss는 손절 조건 충족 여부를 반환합니다
func (p *Position) ShouldStopLoss() bool {
	return p.CurrentPrice <= p.StopLossPrice
}

// ShouldTakeProfit은 익절 조건 충족 여부를 반환합니다
// 목표가가 설정되지 않은 포지션은 항상 false를 반환합니다
func (p *Position) ShouldTakeProfit() bool {
	return p.TakeProfitPrice != nil && p.CurrentPrice >= *p.TakeProfitPrice
}

// clone은 포지션의 복사본을 반환합니다
func (p *Position) clone() Position {
	cp := *p
	if p.TakeProfitPrice != nil {
		tp := *p.TakeProfitPrice
		cp.TakeProfitPrice = &tp
	}
	return cp
}
