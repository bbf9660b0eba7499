package risk

import "fmt"

// Error 타입들은 리스크 관리 중 발생할 수 있는 다양한 에러를 정의합니다
var (
	ErrInsufficientCapital = fmt.Errorf("가용 자본이 부족합니다")
	ErrPositionExists      = fmt.Errorf("이미 해당 종목에 포지션이 존재합니다")
	ErrPositionNotFound    = fmt.Errorf("해당 종목에 포지션이 존재하지 않습니다")
	ErrMaxPositions        = fmt.Errorf("최대 보유 포지션 수를 초과했습니다")
	ErrPositionTooLarge    = fmt.Errorf("포지션 크기가 상한을 초과했습니다")
	ErrMaxDrawdown         = fmt.Errorf("최대 낙폭 한도에 도달했습니다")
	ErrOrderFailed         = fmt.Errorf("주문 제출에 실패했습니다")
)

// RiskError는 리스크 엔진 에러를 확장한 구조체입니다
type RiskError struct {
	Symbol string
	Op     string
	Err    error
}

// Error는 error 인터페이스를 구현합니다
func (e *RiskError) Error() string {
	if e.Symbol != "" {
		return fmt.Sprintf("리스크 에러 [%s, 작업: %s]: %v", e.Symbol, e.Op, e.Err)
	}
	return fmt.Sprintf("리스크 에러 [작업: %s]: %v", e.Op, e.Err)
}

// Unwrap은 내부 에러를 반환합니다 (errors.Is/As 지원을 위함)
func (e *RiskError) Unwrap() error {
	return e.Err
}

// NewRiskError는 새로운 RiskError를 생성합니다
func NewRiskError(symbol, op string, err error) *RiskError {
	return &RiskError{
		Symbol: symbol,
		Op:     op,
		Err:    err,
	}
}
