// Package server exposes the dispatch operation surface over HTTP. It is a
// thin JSON layer: handlers decode requests into operations, Apply them and
// map engine errors onto status codes.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gorilla/mux"
	"github.com/holiman/uint256"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/curvelaunch/internal/curve"
	"github.com/rovshanmuradov/curvelaunch/internal/dispatch"
	"github.com/rovshanmuradov/curvelaunch/internal/factory"
	"github.com/rovshanmuradov/curvelaunch/internal/fixedmath"
	"github.com/rovshanmuradov/curvelaunch/internal/token"
)

// Server is the HTTP front of the launch engine.
type Server struct {
	engine *dispatch.Engine
	logger *zap.Logger
	router *mux.Router
	srv    *http.Server
}

// New builds the server and its routes. gatherer may be nil to disable the
// metrics endpoint.
func New(addr string, engine *dispatch.Engine, logger *zap.Logger, gatherer prometheus.Gatherer) *Server {
	s := &Server{
		engine: engine,
		logger: logger.Named("http"),
		router: mux.NewRouter(),
	}
	s.routes(gatherer)
	s.srv = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

func (s *Server) routes(gatherer prometheus.Gatherer) {
	api := s.router.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/tokens", s.handleCreateToken).Methods(http.MethodPost)
	api.HandleFunc("/tokens", s.handleTokenList).Methods(http.MethodGet)
	api.HandleFunc("/tokens/{mint}", s.handleTokenInfo).Methods(http.MethodGet)
	api.HandleFunc("/tokens/{mint}/data", s.handleTokenData).Methods(http.MethodGet)
	api.HandleFunc("/tokens/{mint}/state", s.handleTokenState).Methods(http.MethodGet)
	api.HandleFunc("/tokens/{mint}/pool", s.handleTokenPool).Methods(http.MethodGet)
	api.HandleFunc("/tokens/{mint}/quote/buy", s.handleQuoteBuy).Methods(http.MethodGet)
	api.HandleFunc("/tokens/{mint}/quote/sell", s.handleQuoteSell).Methods(http.MethodGet)
	api.HandleFunc("/tokens/{mint}/buy", s.handleBuy).Methods(http.MethodPost)
	api.HandleFunc("/tokens/{mint}/sell", s.handleSell).Methods(http.MethodPost)
	api.HandleFunc("/tokens/{mint}/graduate", s.handleGraduate).Methods(http.MethodPost)
	api.HandleFunc("/creators/{creator}/tokens", s.handleCreatorTokens).Methods(http.MethodGet)

	s.router.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}).Methods(http.MethodGet)

	if gatherer != nil {
		s.router.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}
}

// Handler returns the routed handler, used directly in tests.
func (s *Server) Handler() http.Handler { return s.router }

// Start serves until the context is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", zap.String("addr", s.srv.Addr))
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.srv.Shutdown(shutdownCtx)
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode response", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	s.writeJSON(w, statusFor(err), errorResponse{Error: err.Error()})
}

// statusFor maps engine errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, factory.ErrTokenNotFound),
		errors.Is(err, dispatch.ErrNotGraduated):
		return http.StatusNotFound
	case errors.Is(err, factory.ErrTokenExists):
		return http.StatusConflict
	case errors.Is(err, factory.ErrInsufficientFee):
		return http.StatusPaymentRequired
	case errors.Is(err, factory.ErrInvalidLaunch),
		errors.Is(err, token.ErrZeroAmount),
		errors.Is(err, token.ErrAmountTooSmall),
		errors.Is(err, curve.ErrInvalidParams):
		return http.StatusBadRequest
	case errors.Is(err, token.ErrSlippageExceeded),
		errors.Is(err, token.ErrTradeTooLarge),
		errors.Is(err, token.ErrInsufficientBalance),
		errors.Is(err, token.ErrInsufficientReserves),
		errors.Is(err, token.ErrAlreadyGraduated),
		errors.Is(err, token.ErrGraduationCriteriaNotMet),
		errors.Is(err, curve.ErrSupplyExceeded),
		errors.Is(err, curve.ErrInsufficientSupply),
		errors.Is(err, fixedmath.ErrArithmeticOverflow):
		return http.StatusUnprocessableEntity
	case errors.Is(err, token.ErrPoolCreationFailed),
		errors.Is(err, token.ErrLiquidityTransferFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func mintVar(r *http.Request) (solana.PublicKey, error) {
	return solana.PublicKeyFromBase58(mux.Vars(r)["mint"])
}

func parseAmountQuery(r *http.Request) (uint64, error) {
	return strconv.ParseUint(r.URL.Query().Get("amount"), 10, 64)
}

func parseBaseAmount(raw string) (*uint256.Int, error) {
	if raw == "" {
		return nil, nil
	}
	v, err := uint256.FromDecimal(raw)
	if err != nil {
		return nil, err
	}
	if !fixedmath.Fits128(v) {
		return nil, fixedmath.ErrArithmeticOverflow
	}
	return v, nil
}
