// internal/feed/feed.go
package feed

import (
	"context"
	"sync"

	"github.com/assist-by/saigon/internal/domain"
)

// Handler는 수신한 틱을 처리하는 콜백입니다
// 같은 심볼의 틱은 수신 순서대로 호출됩니다
type Handler func(ctx context.Context, tick domain.Tick)

// Feed는 실시간 가격 스트림 인터페이스를 정의합니다
type Feed interface {
	// Run은 가격 스트림을 시작하고 컨텍스트가 취소될 때까지 블로킹합니다
	Run(ctx context.Context) error

	// LatestPrice는 해당 종목의 마지막 틱을 반환합니다
	LatestPrice(symbol string) (domain.Tick, bool)
}

// cache는 종목별 최신 틱을 보관합니다
type cache struct {
	mu    sync.RWMutex
	ticks map[string]domain.Tick
}

func newCache() *cache {
	return &cache{ticks: make(map[string]domain.Tick)}
}

func (c *cache) store(tick domain.Tick) {
	c.mu.Lock()
	c.ticks[tick.Symbol] = tick
	c.mu.Unlock()
}

func (c *cache) latest(symbol string) (domain.Tick, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	tick, ok := c.ticks[symbol]
	return tick, ok
}
