package domain

import "time"

// OrderRequest는 주문 게이트웨이로 보내는 주문 요청을 표현합니다
type OrderRequest struct {
	Symbol        string    // 심볼 (예: VCB)
	Side          OrderSide // 매수/매도
	Quantity      int64     // 수량 (거래 단위의 배수)
	Price         float64   // 지정가 (LO 주문 시, VND)
	Type          OrderType // 주문 유형
	ClientOrderID string    // 클라이언트 측 주문 ID
}

// Order는 실행 루프가 생성하고 추적하는 주문을 표현합니다
type Order struct {
	OrderID        string      // 게이트웨이가 부여한 주문 ID
	Symbol         string      // 심볼
	Side           OrderSide   // 매수/매도
	Quantity       int64       // 주문 수량
	Price          float64     // 주문 가격
	Type           OrderType   // 주문 유형
	Status         OrderStatus // 주문 상태
	FilledQuantity int64       // 체결된 수량
	AvgFilledPrice float64     // 평균 체결 가격
	CreatedAt      time.Time   // 주문 생성 시간
	UpdatedAt      time.Time   // 마지막 갱신 시간
	ErrorMessage   string      // 거부/실패 사유
}

// IsDone은 주문이 종결 상태에 도달했는지 확인합니다
func (o *Order) IsDone() bool {
	switch o.Status {
	case OrderFilled, OrderCancelled, OrderRejected:
		return true
	default:
		return false
	}
}
