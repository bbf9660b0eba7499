package domain

import "time"

// Tick은 가격 스트림에서 수신한 한 건의 시세 업데이트를 표현합니다
type Tick struct {
	Symbol    string    // 심볼 (예: VCB)
	Price     float64   // 현재가 (VND)
	Volume    int64     // 거래량
	High      float64   // 고가
	Low       float64   // 저가
	Open      float64   // 시가
	BidPrice  float64   // 매수 호가
	AskPrice  float64   // 매도 호가
	BidVolume int64     // 매수 호가 잔량
	AskVolume int64     // 매도 호가 잔량
	Timestamp time.Time // 시세 시각
}

// IsValid는 시세 데이터가 유효한지 확인합니다
func (t Tick) IsValid() bool {
	return t.Symbol != "" && t.Price > 0
}
