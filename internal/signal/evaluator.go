package signal

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/assist-by/saigon/internal/domain"
	"github.com/assist-by/saigon/internal/history"
	"github.com/assist-by/saigon/internal/indicator"
)

// MinHistory는 시그널 평가에 필요한 최소 히스토리 길이입니다
const MinHistory = 30

// Config는 시그널 평가기의 전략 설정을 정의합니다
type Config struct {
	EnableBreakout          bool    // 저항선 돌파 전략 사용 여부
	EnableSupportResistance bool    // 지지/저항 전략 사용 여부
	EnableVolatilityCutloss bool    // 변동성 컷로스 사용 여부
	VolatilityThreshold     float64 // 컷로스 발동 변동성 임계값
	VolumeSurgeThreshold    float64 // 거래량 급증 배수 임계값
}

// DefaultConfig는 기본 전략 설정을 반환합니다
func DefaultConfig(volatilityThreshold float64) Config {
	return Config{
		EnableBreakout:          true,
		EnableSupportResistance: true,
		EnableVolatilityCutloss: true,
		VolatilityThreshold:     volatilityThreshold,
		VolumeSurgeThreshold:    2.0,
	}
}

// Evaluator는 히스토리 저장소를 읽어 매매 시그널을 생성합니다
// 호출 간에 상태를 갖지 않으며, 심볼별 최근 시그널과 지지/저항 캐시만 보관합니다
type Evaluator struct {
	store *history.Store
	cfg   Config
	log   zerolog.Logger

	mu          sync.RWMutex
	latest      map[string]*domain.Signal
	srCache     map[string][2]float64 // 심볼 -> (지지, 저항) 메모이제이션
}

// NewEvaluator는 새로운 시그널 평가기를 생성합니다
func NewEvaluator(store *history.Store, cfg Config, log zerolog.Logger) *Evaluator {
	return &Evaluator{
		store:   store,
		cfg:     cfg,
		log:     log.With().Str("component", "signal").Logger(),
		latest:  make(map[string]*domain.Signal),
		srCache: make(map[string][2]float64),
	}
}

// vote는 전략 규칙 하나가 낸 표를 표현합니다
type vote struct {
	signalType domain.SignalType
	reason     string
}

// Evaluate는 심볼의 현재 가격에 대해 시그널을 평가합니다
// 히스토리가 부족하면 nil을 반환합니다
func (e *Evaluator) Evaluate(symbol string, currentPrice float64) *domain.Signal {
	entries := e.store.Window(symbol, 0)
	if len(entries) < MinHistory {
		return nil
	}

	indicators := make(map[string]float64)
	var votes []vote

	// 지표 계산 (부족한 지표는 스냅샷과 규칙 평가에서 모두 제외)
	sma20, hasSMA20 := indicator.SMA(entries, 20)
	sma50, hasSMA50 := indicator.SMA(entries, 50)
	ema12, hasEMA12 := indicator.EMA(entries, 12)
	ema26, hasEMA26 := indicator.EMA(entries, 26)
	rsi, hasRSI := indicator.RSI(entries, 14)
	volatility, hasVol := indicator.Volatility(entries, 20)
	volumeSurge := indicator.VolumeSurge(entries, e.cfg.VolumeSurgeThreshold)
	support, resistance, hasSR := indicator.SupportResistance(entries, 50)

	if hasSMA20 {
		indicators["sma_20"] = sma20
	}
	if hasSMA50 {
		indicators["sma_50"] = sma50
	}
	if hasEMA12 {
		indicators["ema_12"] = ema12
	}
	if hasEMA26 {
		indicators["ema_26"] = ema26
	}
	if hasRSI {
		indicators["rsi"] = rsi
	}
	if hasVol {
		indicators["volatility"] = volatility
	}
	if hasSR {
		indicators["support"] = support
		indicators["resistance"] = resistance
		e.mu.Lock()
		e.srCache[symbol] = [2]float64{support, resistance}
		e.mu.Unlock()
	}
	if volumeSurge {
		indicators["volume_surge"] = 1
	} else {
		indicators["volume_surge"] = 0
	}

	// 전략 1: 저항선 돌파
	if e.cfg.EnableBreakout && hasSR && resistance > 0 {
		if currentPrice >= resistance*0.998 {
			votes = append(votes, vote{domain.Buy, fmt.Sprintf("Breakout above resistance %.2f", resistance)})
		}
	}

	// 전략 2: 지지/저항
	if e.cfg.EnableSupportResistance && hasSR && support > 0 {
		if currentPrice <= support*1.002 && currentPrice > support*0.98 {
			votes = append(votes, vote{domain.Buy, fmt.Sprintf("Price at support %.2f", support)})
		} else if currentPrice <= support*0.98 {
			votes = append(votes, vote{domain.Sell, fmt.Sprintf("Price breaking support %.2f", support)})
		}
	}

	// 전략 3: 이동평균 교차 (한 틱 전에 끝나는 20개 구간의 SMA와 비교)
	if hasSMA20 && hasSMA50 && len(entries) >= 21 {
		prevSMA20, hasPrev := indicator.SMA(entries[:len(entries)-1], 20)
		if hasPrev {
			if prevSMA20 <= sma50 && sma20 > sma50 {
				votes = append(votes, vote{domain.Buy, "Golden Cross (SMA20 > SMA50)"})
			} else if prevSMA20 >= sma50 && sma20 < sma50 {
				votes = append(votes, vote{domain.Sell, "Death Cross (SMA20 < SMA50)"})
			}
		}
	}

	// 전략 4: RSI 과매수/과매도
	if hasRSI {
		if rsi < 30 {
			votes = append(votes, vote{domain.Buy, fmt.Sprintf("RSI oversold (%.1f)", rsi)})
		} else if rsi > 70 {
			votes = append(votes, vote{domain.Sell, fmt.Sprintf("RSI overbought (%.1f)", rsi)})
		}
	}

	// 전략 5: 거래량 급증 + 당일 2% 이상 상승
	if volumeSurge && len(entries) >= 2 {
		prev := entries[len(entries)-2].Price
		if prev > 0 {
			priceChange := (entries[len(entries)-1].Price - prev) / prev
			if priceChange > 0.02 {
				votes = append(votes, vote{domain.Buy, fmt.Sprintf("Volume surge with %.1f%% price increase", priceChange*100)})
			}
		}
	}

	// 전략 6: 변동성 컷로스
	if e.cfg.EnableVolatilityCutloss && hasVol {
		if volatility > e.cfg.VolatilityThreshold {
			votes = append(votes, vote{domain.CutLoss, fmt.Sprintf("High volatility (%.2f%%)", volatility*100)})
		}
	}

	sig := e.aggregate(symbol, currentPrice, votes, indicators)

	e.mu.Lock()
	e.latest[symbol] = sig
	e.mu.Unlock()

	return sig
}

// aggregate는 표들을 집계하여 최종 시그널을 결정합니다
// 컷로스 표가 있으면 무조건 컷로스가 우선하며, 그 외에는 다수결입니다
func (e *Evaluator) aggregate(symbol string, price float64, votes []vote, indicators map[string]float64) *domain.Signal {
	now := time.Now()

	if len(votes) == 0 {
		return &domain.Signal{
			Symbol:     symbol,
			Type:       domain.Hold,
			Strength:   domain.Weak,
			Price:      price,
			Reason:     "No strong signals detected",
			Indicators: indicators,
			Timestamp:  now,
		}
	}

	buyCount, sellCount, cutlossCount := 0, 0, 0
	for _, v := range votes {
		switch v.signalType {
		case domain.Buy:
			buyCount++
		case domain.Sell:
			sellCount++
		case domain.CutLoss:
			cutlossCount++
		}
	}

	if cutlossCount > 0 {
		return &domain.Signal{
			Symbol:     symbol,
			Type:       domain.CutLoss,
			Strength:   domain.Strong,
			Price:      price,
			Reason:     joinReasons(votes, domain.CutLoss),
			Indicators: indicators,
			Timestamp:  now,
		}
	}

	switch {
	case buyCount > sellCount:
		return &domain.Signal{
			Symbol:     symbol,
			Type:       domain.Buy,
			Strength:   strengthForCount(buyCount),
			Price:      price,
			Reason:     joinReasons(votes, domain.Buy),
			Indicators: indicators,
			Timestamp:  now,
		}
	case sellCount > buyCount:
		return &domain.Signal{
			Symbol:     symbol,
			Type:       domain.Sell,
			Strength:   strengthForCount(sellCount),
			Price:      price,
			Reason:     joinReasons(votes, domain.Sell),
			Indicators: indicators,
			Timestamp:  now,
		}
	default:
		return &domain.Signal{
			Symbol:     symbol,
			Type:       domain.Hold,
			Strength:   domain.Weak,
			Price:      price,
			Reason:     "Mixed signals",
			Indicators: indicators,
			Timestamp:  now,
		}
	}
}

// strengthForCount는 득표 수에 따른 시그널 강도를 반환합니다
func strengthForCount(count int) domain.SignalStrength {
	switch {
	case count >= 3:
		return domain.Strong
	case count >= 2:
		return domain.Moderate
	default:
		return domain.Weak
	}
}

// joinReasons는 승리한 카테고리의 규칙 설명들을 연결합니다
func joinReasons(votes []vote, winner domain.SignalType) string {
	var reasons []string
	for _, v := range votes {
		if v.signalType == winner {
			reasons = append(reasons, v.reason)
		}
	}
	return strings.Join(reasons, " | ")
}

// LatestSignal은 심볼의 가장 최근 시그널을 반환합니다 (대시보드용)
func (e *Evaluator) LatestSignal(symbol string) (*domain.Signal, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	sig, ok := e.latest[symbol]
	return sig, ok
}

// SupportResistance는 캐시된 지지/저항 레벨을 반환합니다
// 마지막 Evaluate 호출 시점의 값이며, 스크리너 필터 재사용을 위한 것입니다
func (e *Evaluator) SupportResistance(symbol string) (support, resistance float64, ok bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	sr, ok := e.srCache[symbol]
	if !ok {
		return 0, 0, false
	}
	return sr[0], sr[1], true
}
