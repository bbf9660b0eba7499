// internal/exchange/exchange.go
package exchange

import (
	"context"
	"fmt"

	"github.com/assist-by/saigon/internal/domain"
)

// Gateway는 주문 게이트웨이와의 상호작용을 위한 인터페이스입니다
// 제출은 외부 네트워크 왕복이 있는 유일한 블로킹 연산이므로
// 호출자는 락을 잡지 않은 상태에서 호출해야 합니다
type Gateway interface {
	// PlaceOrder는 주문을 제출합니다
	// 거부되면 에러를 반환하며, 이 경우 포지션 상태를 절대 변경해서는 안 됩니다
	PlaceOrder(ctx context.Context, req domain.OrderRequest) (*domain.Order, error)

	// CancelOrder는 주문을 취소합니다
	CancelOrder(ctx context.Context, orderID string) error

	// GetOrderStatus는 주문 상태를 조회합니다
	GetOrderStatus(ctx context.Context, orderID string) (*domain.Order, error)
}

// ErrOrderRejected는 게이트웨이가 주문을 거부했을 때 반환됩니다
var ErrOrderRejected = fmt.Errorf("주문이 거부되었습니다")

// ErrOrderTimeout은 제한 시간 내에 응답을 받지 못했을 때 반환됩니다
// 타임아웃된 주문은 REJECTED로 취급하며 재시도하지 않습니다
var ErrOrderTimeout = fmt.Errorf("주문 제출 시간 초과")
