package indicator

import (
	"gonum.org/v1/gonum/stat"

	"github.com/assist-by/saigon/internal/history"
)

// 지표 함수들은 히스토리 윈도우(오래된 순)에 대한 순수 함수입니다.
// 데이터가 부족하면 ok=false를 반환하며, 호출자는 이를 "이 지표는 건너뜀"으로
// 취급해야 합니다. 절대 0으로 해석해서는 안 됩니다.

// Closes는 엔트리에서 종가 배열을 추출합니다
func Closes(entries []history.Entry) []float64 {
	closes := make([]float64, len(entries))
	for i, e := range entries {
		closes[i] = e.Price
	}
	return closes
}

// SMA는 마지막 period개 종가의 단순이동평균을 계산합니다
func SMA(entries []history.Entry, period int) (float64, bool) {
	if period <= 0 || len(entries) < period {
		return 0, false
	}
	closes := Closes(entries[len(entries)-period:])
	return stat.Mean(closes, nil), true
}

// EMA는 지수이동평균을 계산합니다
// 시드는 처음 period개 값의 단순평균이며, 미래 데이터를 참조하지 않습니다
func EMA(entries []history.Entry, period int) (float64, bool) {
	if period <= 0 || len(entries) < period {
		return 0, false
	}

	closes := Closes(entries)
	alpha := 2.0 / float64(period+1)

	ema := stat.Mean(closes[:period], nil)
	for i := period; i < len(closes); i++ {
		ema = alpha*closes[i] + (1-alpha)*ema
	}
	return ema, true
}

// RSI는 Wilder 방식의 Relative Strength Index를 계산합니다
// 평균 손실이 0이면 100을, 이득과 손실이 모두 0이면 50을 반환합니다
func RSI(entries []history.Entry, period int) (float64, bool) {
	if period <= 0 || len(entries) < period+1 {
		return 0, false
	}

	closes := Closes(entries)

	// 첫 period개의 변동으로 초기 평균 계산
	sumGain, sumLoss := 0.0, 0.0
	start := len(closes) - period - 1
	for i := start + 1; i <= start+period; i++ {
		delta := closes[i] - closes[i-1]
		if delta > 0 {
			sumGain += delta
		} else {
			sumLoss += -delta
		}
	}
	avgGain := sumGain / float64(period)
	avgLoss := sumLoss / float64(period)

	// 이후 구간은 Wilder 평활
	for i := start + period + 1; i < len(closes); i++ {
		delta := closes[i] - closes[i-1]
		gain, loss := 0.0, 0.0
		if delta > 0 {
			gain = delta
		} else {
			loss = -delta
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
	}

	switch {
	case avgGain == 0 && avgLoss == 0:
		return 50, true // 완전 횡보
	case avgLoss == 0:
		return 100, true
	default:
		rs := avgGain / avgLoss
		return 100 - 100/(1+rs), true
	}
}

// BollingerBands는 볼린저 밴드 (상단, 중심, 하단)를 계산합니다
func BollingerBands(entries []history.Entry, period int, stdDev float64) (upper, middle, lower float64, ok bool) {
	if period <= 0 || len(entries) < period {
		return 0, 0, 0, false
	}

	closes := Closes(entries[len(entries)-period:])
	mean := stat.Mean(closes, nil)
	sd := stat.StdDev(closes, nil)

	return mean + sd*stdDev, mean, mean - sd*stdDev, true
}

// SupportResistance는 최근 lookback 구간의 저가 최소값(지지)과
// 고가 최대값(저항)을 반환합니다. 최소 10개의 데이터가 필요합니다
func SupportResistance(entries []history.Entry, lookback int) (support, resistance float64, ok bool) {
	if lookback > 0 && len(entries) > lookback {
		entries = entries[len(entries)-lookback:]
	}
	if len(entries) < 10 {
		return 0, 0, false
	}

	support = entries[0].Low
	resistance = entries[0].High
	for _, e := range entries[1:] {
		if e.Low < support {
			support = e.Low
		}
		if e.High > resistance {
			resistance = e.High
		}
	}
	return support, resistance, true
}

// VolumeSurge는 마지막 거래량이 직전까지의 평균 거래량의
// threshold배를 초과하는지 확인합니다
func VolumeSurge(entries []history.Entry, threshold float64) bool {
	if len(entries) < 20 {
		return false
	}

	volumes := make([]float64, len(entries)-1)
	for i := 0; i < len(entries)-1; i++ {
		volumes[i] = float64(entries[i].Volume)
	}
	avg := stat.Mean(volumes, nil)
	current := float64(entries[len(entries)-1].Volume)

	return current > avg*threshold
}

// Volatility는 퍼센트 수익률의 표준편차를 계산합니다
func Volatility(entries []history.Entry, period int) (float64, bool) {
	if period <= 1 || len(entries) < period+1 {
		return 0, false
	}

	closes := Closes(entries[len(entries)-period-1:])
	returns := make([]float64, period)
	for i := 1; i < len(closes); i++ {
		if closes[i-1] == 0 {
			return 0, false
		}
		returns[i-1] = (closes[i] - closes[i-1]) / closes[i-1]
	}

	return stat.StdDev(returns, nil), true
}
