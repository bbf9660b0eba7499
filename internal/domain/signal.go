package domain

import "time"

// Signal은 시그널 평가기가 생성한 매매 신호를 담습니다
// 틱마다 새로 생성되어 실행 루프가 한 번 소비한 뒤 폐기됩니다
type Signal struct {
	Symbol     string             // 심볼 (예: VCB)
	Type       SignalType         // BUY / SELL / HOLD / CUTLOSS
	Strength   SignalStrength     // WEAK / MODERATE / STRONG
	Price      float64            // 시그널 발생 시점의 가격
	Reason     string             // 발동한 전략 규칙들의 설명
	Indicators map[string]float64 // 지표 스냅샷 (지표명 -> 값)
	Timestamp  time.Time          // 시그널 생성 시간
}

// IsValid는 시그널이 유효한지 확인합니다
func (s *Signal) IsValid() bool {
	return s != nil && s.Symbol != "" && s.Price > 0
}

// IsActionable은 실행 루프가 처리해야 하는 시그널인지 확인합니다
func (s *Signal) IsActionable() bool {
	return s.IsValid() && s.Type != Hold
}
