package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config는 봇 전체 설정을 담습니다. 시작 시 한 번 로드되며 세션 중에는 다시 읽지 않습니다
type Config struct {
	// DNSE API 설정
	DNSE struct {
		BaseURL   string `envconfig:"DNSE_API_BASE_URL" default:"https://api.dnse.com.vn"`
		APIKey    string `envconfig:"DNSE_API_KEY" default:""`
		APISecret string `envconfig:"DNSE_API_SECRET" default:""`
		AccountID string `envconfig:"DNSE_ACCOUNT_ID" default:""`
	}

	// 시세 스트림 설정
	Feed struct {
		WSURL       string        `envconfig:"FEED_WS_URL" default:"wss://stream.dnse.com.vn/market"`
		DialTimeout time.Duration `envconfig:"FEED_DIAL_TIMEOUT" default:"10s"`
	}

	// 디스코드 웹훅 설정
	Discord struct {
		SignalWebhook string `envconfig:"DISCORD_SIGNAL_WEBHOOK" default:""`
		TradeWebhook  string `envconfig:"DISCORD_TRADE_WEBHOOK" default:""`
		ErrorWebhook  string `envconfig:"DISCORD_ERROR_WEBHOOK" default:""`
		InfoWebhook   string `envconfig:"DISCORD_INFO_WEBHOOK" default:""`
	}

	// 거래 설정
	Trading struct {
		Mode              string        `envconfig:"TRADING_MODE" default:"paper"` // paper 또는 live
		Symbols           string        `envconfig:"TRADING_SYMBOLS" default:"VCB,VHM,VIC,FPT,HPG"`
		InitialCapital    float64       `envconfig:"INITIAL_CAPITAL" default:"1000000000"` // 10억 VND
		MaxPositionSize   float64       `envconfig:"MAX_POSITION_SIZE" default:"100000000"`
		MaxPositions      int           `envconfig:"MAX_POSITIONS" default:"10"`
		RiskPerTrade      float64       `envconfig:"RISK_PER_TRADE" default:"0.02"`
		DefaultStopLoss   float64       `envconfig:"DEFAULT_STOP_LOSS_PCT" default:"0.03"`
		MaxDrawdown       float64       `envconfig:"MAX_DRAWDOWN_PCT" default:"0.10"`
		VolatilityCutloss float64       `envconfig:"VOLATILITY_THRESHOLD" default:"0.05"`
		OrderTimeout      time.Duration `envconfig:"ORDER_TIMEOUT" default:"10s"`
	}

	// DCA 봇 설정
	DCA struct {
		Enabled        bool    `envconfig:"DCA_ENABLED" default:"false"`
		Symbols        string  `envconfig:"DCA_SYMBOLS" default:"VCB,VHM,VIC"`
		IntervalHours  int     `envconfig:"DCA_INTERVAL_HOURS" default:"24"`
		AmountPerOrder float64 `envconfig:"DCA_AMOUNT_PER_ORDER" default:"10000000"`
	}

	// 대시보드 API 설정
	Server struct {
		Port    int  `envconfig:"SERVER_PORT" default:"8080"`
		Enabled bool `envconfig:"SERVER_ENABLED" default:"true"`
	}

	// 저장소 설정
	Store struct {
		Path string `envconfig:"STORE_PATH" default:"data/saigon.db"`
	}

	// 로그 설정
	Log struct {
		Level  string `envconfig:"LOG_LEVEL" default:"info"`
		Pretty bool   `envconfig:"LOG_PRETTY" default:"true"`
	}
}

// SymbolList는 감시할 심볼 목록을 반환합니다
func (c *Config) SymbolList() []string {
	return splitSymbols(c.Trading.Symbols)
}

// DCASymbolList는 DCA 대상 심볼 목록을 반환합니다
func (c *Config) DCASymbolList() []string {
	return splitSymbols(c.DCA.Symbols)
}

// IsPaperMode는 페이퍼 트레이딩 모드인지 확인합니다
func (c *Config) IsPaperMode() bool {
	return c.Trading.Mode != "live"
}

func splitSymbols(s string) []string {
	var symbols []string
	for _, sym := range strings.Split(s, ",") {
		sym = strings.ToUpper(strings.TrimSpace(sym))
		if sym != "" {
			symbols = append(symbols, sym)
		}
	}
	return symbols
}

// ValidateConfig는 설정이 유효한지 확인합니다
func ValidateConfig(cfg *Config) error {
	if cfg.Trading.Mode != "paper" && cfg.Trading.Mode != "live" {
		return fmt.Errorf("TRADING_MODE는 paper 또는 live이어야 합니다: %s", cfg.Trading.Mode)
	}

	if cfg.Trading.InitialCapital <= 0 {
		return fmt.Errorf("INITIAL_CAPITAL은 0보다 커야 합니다")
	}

	if cfg.Trading.RiskPerTrade <= 0 || cfg.Trading.RiskPerTrade >= 1 {
		return fmt.Errorf("RISK_PER_TRADE는 0과 1 사이여야 합니다")
	}

	if cfg.Trading.MaxPositions < 1 {
		return fmt.Errorf("MAX_POSITIONS는 1 이상이어야 합니다")
	}

	if cfg.Trading.DefaultStopLoss <= 0 || cfg.Trading.DefaultStopLoss >= 1 {
		return fmt.Errorf("DEFAULT_STOP_LOSS_PCT는 0과 1 사이여야 합니다")
	}

	if cfg.Trading.Mode == "live" && (cfg.DNSE.APIKey == "" || cfg.DNSE.APISecret == "") {
		return fmt.Errorf("live 모드에서는 DNSE API 키가 필요합니다")
	}

	if len(cfg.SymbolList()) == 0 {
		return fmt.Errorf("TRADING_SYMBOLS가 비어있습니다")
	}

	return nil
}

// LoadConfig는 환경변수에서 설정을 로드합니다
func LoadConfig() (*Config, error) {
	// .env 파일은 없어도 무방합니다 (배포 환경은 실제 환경변수 사용)
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("환경변수 처리 실패: %w", err)
	}

	if err := ValidateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("설정값 검증 실패: %w", err)
	}

	return &cfg, nil
}
