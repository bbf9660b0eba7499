package history

import (
	"sync"
	"time"
)

// DefaultCapacity는 심볼당 보관하는 기본 틱 개수입니다
const DefaultCapacity = 500

// Entry는 히스토리에 저장되는 한 건의 시세를 표현합니다
// 삽입 후에는 절대 수정되지 않습니다
type Entry struct {
	Price     float64   // 종가 (현재가)
	Volume    int64     // 거래량
	High      float64   // 고가
	Low       float64   // 저가
	Timestamp time.Time // 시세 시각
}

// ring은 심볼 하나의 고정 용량 링 버퍼입니다
type ring struct {
	entries []Entry
	head    int // 다음 쓰기 위치
	full    bool
}

func (r *ring) add(e Entry) {
	r.entries[r.head] = e
	r.head++
	if r.head >= len(r.entries) {
		r.head = 0
		r.full = true
	}
}

func (r *ring) size() int {
	if r.full {
		return len(r.entries)
	}
	return r.head
}

// window는 최근 n개의 엔트리를 오래된 순으로 복사해 반환합니다
func (r *ring) window(n int) []Entry {
	total := r.size()
	if n <= 0 || n > total {
		n = total
	}
	if n == 0 {
		return nil
	}

	result := make([]Entry, n)
	for i := 0; i < n; i++ {
		idx := r.head - n + i
		if idx < 0 {
			idx += len(r.entries)
		}
		result[i] = r.entries[idx]
	}
	return result
}

// Store는 심볼별 가격 히스토리를 관리합니다
// 틱 수신 경로만 쓰기를 수행하며, 지표 계산과 시그널 평가는 읽기 전용입니다
type Store struct {
	capacity int
	mu       sync.RWMutex
	rings    map[string]*ring
}

// NewStore는 새로운 히스토리 저장소를 생성합니다
func NewStore(capacity int) *Store {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Store{
		capacity: capacity,
		rings:    make(map[string]*ring),
	}
}

// Record는 심볼의 히스토리에 시세를 추가합니다
// 용량을 초과하면 가장 오래된 엔트리가 밀려납니다
func (s *Store) Record(symbol string, price float64, volume int64, high, low float64, ts time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rings[symbol]
	if !ok {
		r = &ring{entries: make([]Entry, s.capacity)}
		s.rings[symbol] = r
	}

	r.add(Entry{
		Price:     price,
		Volume:    volume,
		High:      high,
		Low:       low,
		Timestamp: ts,
	})
}

// Window는 심볼의 최근 n개 엔트리를 오래된 순으로 반환합니다
// 보관된 엔트리가 n보다 적으면 전체를 반환합니다. n <= 0이면 전체를 반환합니다
func (s *Store) Window(symbol string, n int) []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.rings[symbol]
	if !ok {
		return nil
	}
	return r.window(n)
}

// Len은 심볼의 현재 히스토리 길이를 반환합니다
func (s *Store) Len(symbol string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.rings[symbol]
	if !ok {
		return 0
	}
	return r.size()
}

// Symbols는 히스토리가 존재하는 심볼 목록을 반환합니다
func (s *Store) Symbols() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	symbols := make([]string, 0, len(s.rings))
	for sym := range s.rings {
		symbols = append(symbols, sym)
	}
	return symbols
}
