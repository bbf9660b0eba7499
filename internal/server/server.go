// internal/server/server.go
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/assist-by/saigon/internal/domain"
	"github.com/assist-by/saigon/internal/feed"
	"github.com/assist-by/saigon/internal/risk"
	"github.com/assist-by/saigon/internal/signal"
	"github.com/assist-by/saigon/internal/store"
	"github.com/assist-by/saigon/internal/trader"
)

// Server는 대시보드용 읽기 전용 조회와 수동 주문 API를 제공합니다
// 수동 주문은 자동 시그널과 동일한 진입 검증 경로를 거칩니다
type Server struct {
	router    *chi.Mux
	server    *http.Server
	engine    *risk.Engine
	evaluator *signal.Evaluator
	feed      feed.Feed
	trader    *trader.Trader
	trades    *store.TradeStore
	watchlist *store.WatchlistStore
	log       zerolog.Logger
}

// New는 새로운 HTTP 서버를 생성합니다
func New(port int, engine *risk.Engine, evaluator *signal.Evaluator, priceFeed feed.Feed,
	t *trader.Trader, trades *store.TradeStore, watchlist *store.WatchlistStore,
	log zerolog.Logger) *Server {

	s := &Server{
		router:    chi.NewRouter(),
		engine:    engine,
		evaluator: evaluator,
		feed:      priceFeed,
		trader:    t,
		trades:    trades,
		watchlist: watchlist,
		log:       log.With().Str("component", "server").Logger(),
	}

	s.setupMiddleware()
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Timeout(30 * time.Second))

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
}

func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/summary", s.handleSummary)
		r.Get("/positions", s.handlePositions)
		r.Get("/signal/{symbol}", s.handleSignal)
		r.Get("/price/{symbol}", s.handlePrice)
		r.Get("/trades", s.handleTrades)

		r.Get("/watchlist", s.handleWatchlist)
		r.Post("/watchlist/{symbol}", s.handleWatchlistAdd)
		r.Delete("/watchlist/{symbol}", s.handleWatchlistRemove)

		r.Post("/orders", s.handleManualOrder)
	})
}

// Start는 HTTP 서버를 시작합니다 (블로킹)
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.server.Addr).Msg("HTTP 서버 시작")

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("HTTP 서버 시작 실패: %w", err)
	}
	return nil
}

// Shutdown은 HTTP 서버를 정상 종료합니다
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("HTTP 서버 종료")
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, s.engine.Summary())
}

func (s *Server) handlePositions(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, s.engine.Summary().Positions)
}

func (s *Server) handleSignal(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(chi.URLParam(r, "symbol"))

	sig, ok := s.evaluator.LatestSignal(symbol)
	if !ok {
		s.respondError(w, http.StatusNotFound, "해당 종목의 시그널이 없습니다")
		return
	}

	s.respondJSON(w, http.StatusOK, sig)
}

func (s *Server) handlePrice(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(chi.URLParam(r, "symbol"))

	tick, ok := s.feed.LatestPrice(symbol)
	if !ok {
		s.respondError(w, http.StatusNotFound, "해당 종목의 가격 데이터가 없습니다")
		return
	}

	s.respondJSON(w, http.StatusOK, tick)
}

func (s *Server) handleTrades(w http.ResponseWriter, r *http.Request) {
	if s.trades == nil {
		s.respondJSON(w, http.StatusOK, []store.Trade{})
		return
	}

	trades, err := s.trades.RecentTrades(r.Context(), 100)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if trades == nil {
		trades = []store.Trade{}
	}

	s.respondJSON(w, http.StatusOK, trades)
}

func (s *Server) handleWatchlist(w http.ResponseWriter, r *http.Request) {
	if s.watchlist == nil {
		s.respondJSON(w, http.StatusOK, []string{})
		return
	}

	symbols, err := s.watchlist.Symbols(r.Context())
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if symbols == nil {
		symbols = []string{}
	}

	s.respondJSON(w, http.StatusOK, symbols)
}

func (s *Server) handleWatchlistAdd(w http.ResponseWriter, r *http.Request) {
	if s.watchlist == nil {
		s.respondError(w, http.StatusServiceUnavailable, "감시 종목 저장소가 설정되지 않았습니다")
		return
	}

	symbol := chi.URLParam(r, "symbol")
	if err := s.watchlist.Add(r.Context(), symbol); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.respondJSON(w, http.StatusCreated, map[string]string{"symbol": strings.ToUpper(symbol)})
}

func (s *Server) handleWatchlistRemove(w http.ResponseWriter, r *http.Request) {
	if s.watchlist == nil {
		s.respondError(w, http.StatusServiceUnavailable, "감시 종목 저장소가 설정되지 않았습니다")
		return
	}

	symbol := chi.URLParam(r, "symbol")
	if err := s.watchlist.Remove(r.Context(), symbol); err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// manualOrderRequest는 수동 주문 요청 본문을 정의합니다
type manualOrderRequest struct {
	Symbol     string   `json:"symbol"`
	Side       string   `json:"side"`
	Quantity   int64    `json:"quantity"`
	Price      float64  `json:"price"`
	StopLoss   float64  `json:"stopLoss,omitempty"`
	TakeProfit *float64 `json:"takeProfit,omitempty"`
}

func (s *Server) handleManualOrder(w http.ResponseWriter, r *http.Request) {
	var req manualOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "요청 본문 파싱 실패")
		return
	}

	side := domain.OrderSide(strings.ToUpper(req.Side))
	if side != domain.OrderBuy && side != domain.OrderSell {
		s.respondError(w, http.StatusBadRequest, "side는 BUY 또는 SELL이어야 합니다")
		return
	}
	if req.Symbol == "" || req.Price <= 0 {
		s.respondError(w, http.StatusBadRequest, "symbol과 price는 필수입니다")
		return
	}

	order, err := s.trader.PlaceManualOrder(r.Context(), domain.OrderRequest{
		Symbol:   strings.ToUpper(req.Symbol),
		Side:     side,
		Quantity: req.Quantity,
		Price:    req.Price,
		Type:     domain.Limit,
	}, req.StopLoss, req.TakeProfit)
	if err != nil {
		s.respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	s.respondJSON(w, http.StatusCreated, order)
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error().Err(err).Msg("응답 직렬화 실패")
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
