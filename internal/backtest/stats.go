package backtest

import (
	"math"

	"github.com/assist-by/saigon/internal/notification"
	"github.com/assist-by/saigon/internal/risk"
)

// Result는 백테스트 실행 결과를 정의합니다
type Result struct {
	InitialCapital       float64                 // 초기 자본 (VND)
	FinalValue           float64                 // 최종 총 자산 (VND)
	ReturnPercent        float64                 // 누적 수익률 (%)
	MaxDrawdown          float64                 // 최대 낙폭 (비율)
	TotalTrades          int                     // 청산 거래 수
	WinningTrades        int                     // 수익 거래 수
	LosingTrades         int                     // 손실 거래 수
	WinRate              float64                 // 승률 (%)
	ProfitFactor         float64                 // 총 수익 / 총 손실
	MaxConsecutiveWins   int                     // 최대 연속 수익 횟수
	MaxConsecutiveLosses int                     // 최대 연속 손실 횟수
	Trades               []notification.TradeInfo // 전체 거래 기록
}

// CalculateStats는 수집된 거래 기록과 최종 상태로 통계를 계산합니다
// 매수 기록은 거래 수에 포함하지 않으며, 청산(SELL/CUTLOSS)만 집계합니다
func CalculateStats(trades []notification.TradeInfo, summary risk.Snapshot) *Result {
	result := &Result{
		InitialCapital: summary.InitialCapital,
		FinalValue:     summary.TotalValue,
		ReturnPercent:  summary.ReturnPercent,
		MaxDrawdown:    summary.MaxDrawdown,
		Trades:         trades,
	}

	totalProfit := 0.0
	totalLoss := 0.0
	consecutiveWins := 0
	consecutiveLosses := 0

	for _, trade := range trades {
		if trade.Action == "BUY" {
			continue
		}
		result.TotalTrades++

		if trade.RealizedPnL > 0 {
			result.WinningTrades++
			totalProfit += trade.RealizedPnL

			consecutiveWins++
			consecutiveLosses = 0
			if consecutiveWins > result.MaxConsecutiveWins {
				result.MaxConsecutiveWins = consecutiveWins
			}
		} else if trade.RealizedPnL < 0 {
			result.LosingTrades++
			totalLoss += math.Abs(trade.RealizedPnL)

			consecutiveLosses++
			consecutiveWins = 0
			if consecutiveLosses > result.MaxConsecutiveLosses {
				result.MaxConsecutiveLosses = consecutiveLosses
			}
		}
	}

	if result.TotalTrades > 0 {
		result.WinRate = float64(result.WinningTrades) / float64(result.TotalTrades) * 100
	}

	if totalLoss > 0 {
		result.ProfitFactor = totalProfit / totalLoss
	} else {
		result.ProfitFactor = totalProfit
	}

	return result
}
