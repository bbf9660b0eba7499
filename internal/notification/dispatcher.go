package notification

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/assist-by/saigon/internal/domain"
)

// DefaultQueueSize는 디스패처 큐의 기본 크기입니다
const DefaultQueueSize = 256

// Dispatcher는 알림을 비동기로 전송하는 큐 기반 Notifier입니다
// 큐가 가득 차면 알림을 버리고 경고 로그만 남기며, 거래 경로는 절대 블로킹되지 않습니다
type Dispatcher struct {
	inner Notifier
	queue chan func() error
	log   zerolog.Logger

	wg       sync.WaitGroup
	stopOnce sync.Once

	mu     sync.Mutex
	closed bool
}

// NewDispatcher는 새로운 알림 디스패처를 생성하고 워커를 시작합니다
func NewDispatcher(inner Notifier, queueSize int, log zerolog.Logger) *Dispatcher {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}

	d := &Dispatcher{
		inner: inner,
		queue: make(chan func() error, queueSize),
		log:   log.With().Str("component", "notification").Logger(),
	}

	d.wg.Add(1)
	go d.worker()

	return d
}

// worker는 큐에 쌓인 알림을 순서대로 전송합니다
func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for send := range d.queue {
		if err := send(); err != nil {
			d.log.Warn().Err(err).Msg("알림 전송 실패")
		}
	}
}

// enqueue는 알림 전송 작업을 큐에 넣습니다
// 큐가 가득 차면 작업을 버리고, Close 이후에 도착한 작업도 조용히 버립니다
func (d *Dispatcher) enqueue(send func() error) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		d.log.Debug().Msg("디스패처 종료 이후의 알림을 버립니다")
		return nil
	}

	select {
	case d.queue <- send:
	default:
		d.log.Warn().Msg("알림 큐가 가득 차 알림을 버립니다")
	}
	return nil
}

// SendSignal은 시그널 알림을 큐에 넣습니다
func (d *Dispatcher) SendSignal(signal domain.Signal) error {
	return d.enqueue(func() error { return d.inner.SendSignal(signal) })
}

// SendError는 에러 알림을 큐에 넣습니다
func (d *Dispatcher) SendError(err error) error {
	return d.enqueue(func() error { return d.inner.SendError(err) })
}

// SendInfo는 정보 알림을 큐에 넣습니다
func (d *Dispatcher) SendInfo(message string) error {
	return d.enqueue(func() error { return d.inner.SendInfo(message) })
}

// SendTradeInfo는 거래 알림을 큐에 넣습니다
func (d *Dispatcher) SendTradeInfo(info TradeInfo) error {
	return d.enqueue(func() error { return d.inner.SendTradeInfo(info) })
}

// Close는 큐를 닫고 남은 알림이 모두 전송될 때까지 대기합니다
// Close 이후의 Send 호출은 패닉 없이 버려집니다
func (d *Dispatcher) Close() {
	d.stopOnce.Do(func() {
		d.mu.Lock()
		d.closed = true
		close(d.queue)
		d.mu.Unlock()
	})
	d.wg.Wait()
}
