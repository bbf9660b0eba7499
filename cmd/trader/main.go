package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	osSignal "os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/assist-by/saigon/internal/backtest"
	"github.com/assist-by/saigon/internal/config"
	"github.com/assist-by/saigon/internal/domain"
	"github.com/assist-by/saigon/internal/exchange"
	"github.com/assist-by/saigon/internal/exchange/dnse"
	"github.com/assist-by/saigon/internal/exchange/paper"
	"github.com/assist-by/saigon/internal/feed"
	"github.com/assist-by/saigon/internal/history"
	"github.com/assist-by/saigon/internal/notification"
	"github.com/assist-by/saigon/internal/notification/discord"
	"github.com/assist-by/saigon/internal/risk"
	"github.com/assist-by/saigon/internal/scheduler"
	"github.com/assist-by/saigon/internal/server"
	"github.com/assist-by/saigon/internal/signal"
	"github.com/assist-by/saigon/internal/store"
	"github.com/assist-by/saigon/internal/trader"
	"github.com/assist-by/saigon/pkg/logger"
)

func main() {
	backtestFlag := flag.Bool("backtest", false, "백테스트 모드로 실행 후 종료")
	backtestTicks := flag.Int("backtest-ticks", 5000, "백테스트에 사용할 모의 틱 수")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "설정 로드 실패: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Pretty: cfg.Log.Pretty,
	})
	logger.SetGlobalLogger(log)

	if *backtestFlag {
		if err := runBacktest(cfg, *backtestTicks, log); err != nil {
			log.Fatal().Err(err).Msg("백테스트 실패")
		}
		return
	}

	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("트레이딩 봇 종료")
	}
}

func run(cfg *config.Config, log zerolog.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log.Info().
		Str("mode", cfg.Trading.Mode).
		Strs("symbols", cfg.SymbolList()).
		Msg("트레이딩 봇 시작")

	// 알림: 디스코드 웹훅 + 비동기 디스패처
	discordClient := discord.NewClient(
		cfg.Discord.SignalWebhook,
		cfg.Discord.TradeWebhook,
		cfg.Discord.ErrorWebhook,
		cfg.Discord.InfoWebhook,
		discord.WithTimeout(10*time.Second),
	)
	notifier := notification.NewDispatcher(discordClient, notification.DefaultQueueSize, log)
	defer notifier.Close()

	notifier.SendInfo("🚀 트레이딩 봇이 시작되었습니다.")
	if cfg.IsPaperMode() {
		notifier.SendInfo("⚠️ 페이퍼 모드로 실행 중입니다. 실제 자산은 사용되지 않습니다.")
	} else {
		notifier.SendInfo("⚠️ 실거래 모드로 실행 중입니다. 실제 자산이 사용됩니다!")
	}

	// 저장소
	db, err := store.NewDB(cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("저장소 초기화 실패: %w", err)
	}
	defer db.Close()

	tradeStore := store.NewTradeStore(db, log)
	watchlistStore := store.NewWatchlistStore(db, log)
	if err := watchlistStore.Seed(ctx, cfg.SymbolList()); err != nil {
		return fmt.Errorf("감시 종목 초기화 실패: %w", err)
	}

	// 주문 게이트웨이
	var gateway exchange.Gateway
	if cfg.IsPaperMode() {
		gateway = paper.NewGateway(cfg.Trading.InitialCapital, log)
	} else {
		gateway = dnse.NewClient(
			cfg.DNSE.APIKey,
			cfg.DNSE.APISecret,
			cfg.DNSE.AccountID,
			dnse.WithBaseURL(cfg.DNSE.BaseURL),
			dnse.WithTimeout(cfg.Trading.OrderTimeout),
		)
	}

	// 핵심 구성요소
	hist := history.NewStore(0)
	evaluator := signal.NewEvaluator(hist, signal.DefaultConfig(cfg.Trading.VolatilityCutloss), log)
	engine := risk.NewEngine(risk.Config{
		InitialCapital:     cfg.Trading.InitialCapital,
		MaxPositionSize:    cfg.Trading.MaxPositionSize,
		MaxPositions:       cfg.Trading.MaxPositions,
		RiskPerTrade:       cfg.Trading.RiskPerTrade,
		DefaultStopLossPct: cfg.Trading.DefaultStopLoss,
		MaxDrawdownPct:     cfg.Trading.MaxDrawdown,
		OrderTimeout:       cfg.Trading.OrderTimeout,
	}, gateway, notifier, log)

	loop := trader.New(trader.Config{
		OrderTimeout: cfg.Trading.OrderTimeout,
	}, hist, evaluator, engine, gateway, notifier, tradeStore, log)

	// 시세 피드: 틱 수신 순서 보장을 위해 핸들러는 동기로 호출됩니다
	symbols := cfg.SymbolList()
	if cfg.DCA.Enabled {
		symbols = mergeSymbols(symbols, cfg.DCASymbolList())
	}

	var priceFeed feed.Feed
	if cfg.IsPaperMode() {
		priceFeed = feed.NewSimFeed(symbols, 50_000, time.Second, 0.005, loop.ProcessTick, log)
	} else {
		priceFeed = feed.NewDNSEFeed(cfg.Feed.WSURL, cfg.DNSE.APIKey, symbols, loop.ProcessTick, log)
	}

	feedErr := make(chan error, 1)
	go func() {
		feedErr <- priceFeed.Run(ctx)
	}()

	// 주기 작업
	sched := scheduler.New(log)
	if err := sched.AddJob("@every 15m", trader.NewSummaryJob(engine, notifier, log)); err != nil {
		return fmt.Errorf("요약 작업 등록 실패: %w", err)
	}
	if cfg.DCA.Enabled {
		schedule := fmt.Sprintf("@every %dh", cfg.DCA.IntervalHours)
		dcaJob := trader.NewDCAJob(loop, engine, notifier, priceFeed, cfg.DCASymbolList(), cfg.DCA.AmountPerOrder, log)
		if err := sched.AddJob(schedule, dcaJob); err != nil {
			return fmt.Errorf("DCA 작업 등록 실패: %w", err)
		}
	}
	sched.Start()
	defer sched.Stop()

	// 대시보드 API
	var srv *server.Server
	if cfg.Server.Enabled {
		srv = server.New(cfg.Server.Port, engine, evaluator, priceFeed, loop, tradeStore, watchlistStore, log)
		go func() {
			if err := srv.Start(); err != nil {
				log.Error().Err(err).Msg("HTTP 서버 오류")
			}
		}()
	}

	// 종료 시그널 대기
	sigCh := make(chan os.Signal, 1)
	osSignal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("종료 시그널 수신")
	case err := <-feedErr:
		if err != nil && ctx.Err() == nil {
			log.Error().Err(err).Msg("시세 피드 종료")
		}
	}

	// 정상 종료: 새 틱 소비 중단 → 피드/작업 정지 → 서버 종료
	loop.Shutdown()
	cancel()

	if srv != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("HTTP 서버 종료 실패")
		}
	}

	notifier.SendInfo("🛑 트레이딩 봇이 종료되었습니다.")
	log.Info().Msg("트레이딩 봇 종료 완료")
	return nil
}

// runBacktest는 모의 틱 시계열로 백테스트를 실행합니다
func runBacktest(cfg *config.Config, tickCount int, log zerolog.Logger) error {
	symbols := cfg.SymbolList()
	ticks := generateTicks(symbols, tickCount, 50_000, 0.01)

	engine := backtest.NewEngine(ticks, risk.Config{
		InitialCapital:     cfg.Trading.InitialCapital,
		MaxPositionSize:    cfg.Trading.MaxPositionSize,
		MaxPositions:       cfg.Trading.MaxPositions,
		RiskPerTrade:       cfg.Trading.RiskPerTrade,
		DefaultStopLossPct: cfg.Trading.DefaultStopLoss,
		MaxDrawdownPct:     cfg.Trading.MaxDrawdown,
	}, signal.DefaultConfig(cfg.Trading.VolatilityCutloss), signal.MinHistory*len(symbols), log)

	result, err := engine.Run(context.Background())
	if err != nil {
		return err
	}

	log.Info().
		Float64("initialCapital", result.InitialCapital).
		Float64("finalValue", result.FinalValue).
		Float64("returnPercent", result.ReturnPercent).
		Float64("maxDrawdown", result.MaxDrawdown).
		Int("totalTrades", result.TotalTrades).
		Float64("winRate", result.WinRate).
		Float64("profitFactor", result.ProfitFactor).
		Msg("백테스트 결과")

	return nil
}

// generateTicks는 랜덤 워크로 백테스트용 틱 시계열을 생성합니다
func generateTicks(symbols []string, count int, startPrice, volatility float64) []domain.Tick {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	prices := make(map[string]float64, len(symbols))
	for _, symbol := range symbols {
		prices[symbol] = startPrice
	}

	ticks := make([]domain.Tick, 0, count)
	ts := time.Now().Add(-time.Duration(count) * time.Minute)

	for i := 0; i < count; i++ {
		symbol := symbols[i%len(symbols)]
		open := prices[symbol]
		price := open * (1 + (rng.Float64()-0.5)*2*volatility)
		prices[symbol] = price

		high, low := open, open
		if price > high {
			high = price
		}
		if price < low {
			low = price
		}

		ticks = append(ticks, domain.Tick{
			Symbol:    symbol,
			Price:     price,
			Volume:    10_000 + int64(rng.Float64()*50_000),
			High:      high,
			Low:       low,
			Open:      open,
			Timestamp: ts.Add(time.Duration(i) * time.Minute),
		})
	}

	return ticks
}

// mergeSymbols는 중복 없이 두 심볼 목록을 합칩니다
func mergeSymbols(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	var merged []string
	for _, symbol := range append(append([]string{}, a...), b...) {
		if !seen[symbol] {
			seen[symbol] = true
			merged = append(merged, symbol)
		}
	}
	return merged
}
