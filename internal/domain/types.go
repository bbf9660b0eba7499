package domain

// SignalType은 트레이딩 시그널 유형을 정의합니다
type SignalType string

const (
	Buy     SignalType = "BUY"
	Sell    SignalType = "SELL"
	Hold    SignalType = "HOLD"
	CutLoss SignalType = "CUTLOSS"
)

// String은 SignalType의 문자열 표현을 반환합니다
func (s SignalType) String() string {
	return string(s)
}

// SignalStrength는 시그널의 강도를 정의합니다
type SignalStrength int

const (
	Weak     SignalStrength = 1
	Moderate SignalStrength = 2
	Strong   SignalStrength = 3
)

// String은 SignalStrength의 문자열 표현을 반환합니다
func (s SignalStrength) String() string {
	switch s {
	case Weak:
		return "WEAK"
	case Moderate:
		return "MODERATE"
	case Strong:
		return "STRONG"
	default:
		return "UNKNOWN"
	}
}

// OrderSide는 주문 방향을 정의합니다
type OrderSide string

const (
	OrderBuy  OrderSide = "BUY"
	OrderSell OrderSide = "SELL"
)

// OrderType은 베트남 증시의 주문 유형을 정의합니다
type OrderType string

const (
	Limit  OrderType = "LO"  // 지정가 주문
	Market OrderType = "MP"  // 시장가 주문
	ATO    OrderType = "ATO" // 장 시작 동시호가
	ATC    OrderType = "ATC" // 장 마감 동시호가
	MTL    OrderType = "MTL" // 체결 후 잔량 취소 (베트남의 MOK)
)

// OrderStatus는 주문 상태를 정의합니다
type OrderStatus string

const (
	OrderPending         OrderStatus = "PENDING"
	OrderFilled          OrderStatus = "FILLED"
	OrderPartiallyFilled OrderStatus = "PARTIALLY_FILLED"
	OrderCancelled       OrderStatus = "CANCELLED"
	OrderRejected        OrderStatus = "REJECTED"
)

// LotSize는 베트남 증시의 최소 거래 단위(주)입니다
const LotSize = 100

// RoundToLot은 수량을 거래 단위로 내림합니다
func RoundToLot(quantity int64) int64 {
	return (quantity / LotSize) * LotSize
}

// NotificationColor는 알림 색상 코드를 정의합니다
const (
	ColorSuccess = 0x00FF00 // 녹색
	ColorError   = 0xFF0000 // 빨간색
	ColorInfo    = 0x0000FF // 파란색
	ColorWarning = 0xFFA500 // 주황색
)
