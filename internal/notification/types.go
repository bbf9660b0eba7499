package notification

import "github.com/assist-by/saigon/internal/domain"

// Notifier는 알림 전송 인터페이스를 정의합니다
type Notifier interface {
	// SendSignal은 트레이딩 시그널 알림을 전송합니다
	SendSignal(signal domain.Signal) error

	// SendError는 에러 알림을 전송합니다
	SendError(err error) error

	// SendInfo는 일반 정보 알림을 전송합니다
	SendInfo(message string) error

	// SendTradeInfo는 거래 실행 정보를 전송합니다
	SendTradeInfo(info TradeInfo) error
}

// TradeInfo는 거래 실행 정보를 정의합니다
type TradeInfo struct {
	Symbol        string  // 종목 코드 (예: VNM)
	Action        string  // "BUY", "SELL" or "CUTLOSS"
	Quantity      int64   // 거래 수량 (주)
	Price         float64 // 체결가 (VND)
	StopLoss      float64 // 손절가 (VND)
	TakeProfit    float64 // 목표가 (VND)
	RealizedPnL   float64 // 실현 손익 (VND, 청산 시에만)
	Capital       float64 // 거래 후 가용 자본 (VND)
	Reason        string  // 거래 사유
	PositionCount int     // 거래 후 보유 포지션 수
}

// GetColorForAction은 거래 방향에 따른 색상을 반환합니다
func GetColorForAction(action string) int {
	switch action {
	case "BUY":
		return domain.ColorSuccess
	case "SELL":
		return domain.ColorInfo
	case "CUTLOSS":
		return domain.ColorError
	default:
		return domain.ColorWarning
	}
}
