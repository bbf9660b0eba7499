package indicator

import (
	"math"
	"testing"
	"time"

	"github.com/assist-by/saigon/internal/history"
)

// 테스트용 엔트리 생성 (고가/저가 = 종가)
func entriesFromCloses(closes ...float64) []history.Entry {
	ts := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)
	entries := make([]history.Entry, len(closes))
	for i, c := range closes {
		entries[i] = history.Entry{
			Price:     c,
			Volume:    1000,
			High:      c,
			Low:       c,
			Timestamp: ts.Add(time.Duration(i) * time.Minute),
		}
	}
	return entries
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestSMA(t *testing.T) {
	tests := []struct {
		name   string
		closes []float64
		period int
		want   float64
		wantOK bool
	}{
		{"기본 계산", []float64{1, 2, 3, 4, 5}, 5, 3, true},
		{"마지막 구간만 사용", []float64{100, 1, 2, 3}, 3, 2, true},
		{"데이터 부족", []float64{1, 2}, 3, 0, false},
		{"잘못된 기간", []float64{1, 2, 3}, 0, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := SMA(entriesFromCloses(tt.closes...), tt.period)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && !almostEqual(got, tt.want) {
				t.Errorf("SMA = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEMA(t *testing.T) {
	// 시드 = 처음 3개 평균 = 2, alpha = 0.5
	// 4: 0.5*4 + 0.5*2 = 3
	// 5: 0.5*5 + 0.5*3 = 4
	got, ok := EMA(entriesFromCloses(1, 2, 3, 4, 5), 3)
	if !ok {
		t.Fatal("데이터가 충분한데 ok=false")
	}
	if !almostEqual(got, 4) {
		t.Errorf("EMA = %v, want 4", got)
	}

	if _, ok := EMA(entriesFromCloses(1, 2), 3); ok {
		t.Error("데이터 부족인데 ok=true")
	}
}

func TestRSIFlat(t *testing.T) {
	// 완전 횡보: 이득도 손실도 없으므로 50을 반환해야 합니다
	closes := make([]float64, 30)
	for i := range closes {
		closes[i] = 100
	}

	got, ok := RSI(entriesFromCloses(closes...), 14)
	if !ok {
		t.Fatal("데이터가 충분한데 ok=false")
	}
	if got != 50 {
		t.Errorf("횡보 RSI = %v, want 50", got)
	}
}

func TestRSIAllGains(t *testing.T) {
	// 연속 상승: 평균 손실이 0이므로 100을 반환해야 합니다
	closes := make([]float64, 20)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}

	got, ok := RSI(entriesFromCloses(closes...), 14)
	if !ok {
		t.Fatal("데이터가 충분한데 ok=false")
	}
	if got != 100 {
		t.Errorf("연속 상승 RSI = %v, want 100", got)
	}
}

func TestRSIRange(t *testing.T) {
	closes := []float64{44, 44.34, 44.09, 44.15, 43.61, 44.33, 44.83, 45.10,
		45.42, 45.84, 46.08, 45.89, 46.03, 45.61, 46.28, 46.28, 46.00, 46.03}

	got, ok := RSI(entriesFromCloses(closes...), 14)
	if !ok {
		t.Fatal("데이터가 충분한데 ok=false")
	}
	if got <= 0 || got >= 100 {
		t.Errorf("RSI가 범위를 벗어났습니다: %v", got)
	}
	if got < 50 {
		t.Errorf("상승 우세 구간의 RSI가 50 미만입니다: %v", got)
	}
}

func TestRSIInsufficientData(t *testing.T) {
	if _, ok := RSI(entriesFromCloses(1, 2, 3), 14); ok {
		t.Error("데이터 부족인데 ok=true")
	}
}

func TestBollingerBands(t *testing.T) {
	upper, middle, lower, ok := BollingerBands(entriesFromCloses(2, 4, 6, 8, 10), 5, 2)
	if !ok {
		t.Fatal("데이터가 충분한데 ok=false")
	}
	if !almostEqual(middle, 6) {
		t.Errorf("중심선 = %v, want 6", middle)
	}
	if upper <= middle || lower >= middle {
		t.Errorf("밴드 순서가 잘못되었습니다: upper=%v, middle=%v, lower=%v", upper, middle, lower)
	}
	if !almostEqual(upper-middle, middle-lower) {
		t.Errorf("밴드가 대칭이 아닙니다: upper=%v, lower=%v", upper, lower)
	}
}

func TestSupportResistance(t *testing.T) {
	entries := entriesFromCloses(100, 100, 100, 100, 100, 100, 100, 100, 100, 100)
	entries[3].Low = 92
	entries[7].High = 111

	support, resistance, ok := SupportResistance(entries, 50)
	if !ok {
		t.Fatal("데이터가 충분한데 ok=false")
	}
	if support != 92 {
		t.Errorf("지지선 = %v, want 92", support)
	}
	if resistance != 111 {
		t.Errorf("저항선 = %v, want 111", resistance)
	}

	if _, _, ok := SupportResistance(entries[:5], 50); ok {
		t.Error("데이터 부족인데 ok=true")
	}
}

func TestVolumeSurge(t *testing.T) {
	entries := entriesFromCloses(make([]float64, 25)...)
	for i := range entries {
		entries[i].Price = 100
		entries[i].Volume = 1000
	}

	if VolumeSurge(entries, 2.0) {
		t.Error("평상 거래량인데 급증으로 판정되었습니다")
	}

	entries[len(entries)-1].Volume = 5000
	if !VolumeSurge(entries, 2.0) {
		t.Error("거래량 5배인데 급증으로 판정되지 않았습니다")
	}

	if VolumeSurge(entries[:10], 2.0) {
		t.Error("데이터 부족인데 급증으로 판정되었습니다")
	}
}

func TestVolatility(t *testing.T) {
	// 횡보 구간의 변동성은 0이어야 합니다
	flat := make([]float64, 25)
	for i := range flat {
		flat[i] = 100
	}

	got, ok := Volatility(entriesFromCloses(flat...), 20)
	if !ok {
		t.Fatal("데이터가 충분한데 ok=false")
	}
	if !almostEqual(got, 0) {
		t.Errorf("횡보 변동성 = %v, want 0", got)
	}

	// 급등락 구간의 변동성은 0보다 커야 합니다
	choppy := make([]float64, 25)
	for i := range choppy {
		if i%2 == 0 {
			choppy[i] = 100
		} else {
			choppy[i] = 110
		}
	}

	got, ok = Volatility(entriesFromCloses(choppy...), 20)
	if !ok {
		t.Fatal("데이터가 충분한데 ok=false")
	}
	if got <= 0 {
		t.Errorf("급등락 변동성이 0 이하입니다: %v", got)
	}

	if _, ok := Volatility(entriesFromCloses(1, 2, 3), 20); ok {
		t.Error("데이터 부족인데 ok=true")
	}
}
