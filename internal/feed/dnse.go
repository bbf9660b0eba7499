package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/assist-by/saigon/internal/domain"
)

const reconnectDelay = 5 * time.Second

// DNSEFeed는 DNSE 시세 웹소켓에서 틱을 수신합니다
// 연결이 끊어지면 자동으로 재접속합니다
type DNSEFeed struct {
	wsURL   string
	token   string
	symbols []string
	handler Handler
	cache   *cache
	log     zerolog.Logger
}

// NewDNSEFeed는 새로운 DNSE 시세 피드를 생성합니다
func NewDNSEFeed(wsURL, token string, symbols []string, handler Handler, log zerolog.Logger) *DNSEFeed {
	return &DNSEFeed{
		wsURL:   wsURL,
		token:   token,
		symbols: symbols,
		handler: handler,
		cache:   newCache(),
		log:     log.With().Str("component", "feed").Str("source", "dnse").Logger(),
	}
}

// tickMessage는 DNSE 시세 메시지를 표현합니다
type tickMessage struct {
	Symbol    string  `json:"symbol"`
	Price     float64 `json:"matchPrice"`
	Volume    int64   `json:"matchQtty"`
	High      float64 `json:"highest"`
	Low       float64 `json:"lowest"`
	Open      float64 `json:"open"`
	BidPrice  float64 `json:"bidPrice"`
	AskPrice  float64 `json:"askPrice"`
	BidVolume int64   `json:"bidQtty"`
	AskVolume int64   `json:"askQtty"`
	Timestamp int64   `json:"sendingTime"` // 밀리초
}

// Run은 스트림을 시작하고 컨텍스트가 취소될 때까지 재접속을 반복합니다
func (f *DNSEFeed) Run(ctx context.Context) error {
	for {
		if err := f.connect(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			f.log.Warn().Err(err).Msg("시세 연결이 끊어졌습니다")
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(reconnectDelay):
			f.log.Info().Msg("시세 재접속 시도")
		}
	}
}

func (f *DNSEFeed) connect(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, f.wsURL, nil)
	if err != nil {
		return fmt.Errorf("웹소켓 연결 실패: %w", err)
	}
	defer conn.Close()

	if err := f.subscribe(conn); err != nil {
		return err
	}

	f.log.Info().Int("symbols", len(f.symbols)).Msg("시세 구독 시작")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		conn.SetReadDeadline(time.Now().Add(30 * time.Second))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("메시지 수신 실패: %w", err)
		}

		var raw tickMessage
		if err := json.Unmarshal(msg, &raw); err != nil {
			f.log.Debug().Err(err).Msg("시세 메시지 파싱 실패")
			continue
		}
		if raw.Symbol == "" || raw.Price <= 0 {
			continue
		}

		tick := domain.Tick{
			Symbol:    raw.Symbol,
			Price:     raw.Price,
			Volume:    raw.Volume,
			High:      raw.High,
			Low:       raw.Low,
			Open:      raw.Open,
			BidPrice:  raw.BidPrice,
			AskPrice:  raw.AskPrice,
			BidVolume: raw.BidVolume,
			AskVolume: raw.AskVolume,
			Timestamp: time.UnixMilli(raw.Timestamp),
		}
		if raw.Timestamp == 0 {
			tick.Timestamp = time.Now()
		}

		f.cache.store(tick)
		if f.handler != nil {
			f.handler(ctx, tick)
		}
	}
}

// subscribe는 구독 메시지를 전송합니다
func (f *DNSEFeed) subscribe(conn *websocket.Conn) error {
	msg := map[string]interface{}{
		"type":    "subscribe",
		"token":   f.token,
		"symbols": f.symbols,
	}

	if err := conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("구독 요청 실패: %w", err)
	}
	return nil
}

// LatestPrice는 해당 종목의 마지막 틱을 반환합니다
func (f *DNSEFeed) LatestPrice(symbol string) (domain.Tick, bool) {
	return f.cache.latest(symbol)
}
