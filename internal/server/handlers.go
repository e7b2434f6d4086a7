package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gorilla/mux"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/curvelaunch/internal/curve"
	"github.com/rovshanmuradov/curvelaunch/internal/dispatch"
	"github.com/rovshanmuradov/curvelaunch/internal/lpdist"
	"github.com/rovshanmuradov/curvelaunch/internal/token"
)

type createTokenRequest struct {
	Name       string `json:"name"`
	Symbol     string `json:"symbol"`
	ImageURI   string `json:"image_uri"`
	Creator    string `json:"creator"`
	Governance string `json:"governance"`

	BaseCurrency string `json:"base_currency"`
	LPStrategy   string `json:"lp_strategy"`

	BasePrice          uint64 `json:"base_price"`
	GrowthRateBps      uint64 `json:"growth_rate_bps"`
	MaxSupply          uint64 `json:"max_supply"`
	MarketCapThreshold uint64 `json:"market_cap_threshold"`

	FeePayment string `json:"fee_payment"`
}

func (s *Server) handleCreateToken(w http.ResponseWriter, r *http.Request) {
	var req createTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	creator, err := solana.PublicKeyFromBase58(req.Creator)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid creator address"})
		return
	}
	var governance solana.PublicKey
	if req.Governance != "" {
		governance, err = solana.PublicKeyFromBase58(req.Governance)
		if err != nil {
			s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid governance address"})
			return
		}
	}
	baseCurrency, err := curve.ParseBaseCurrency(req.BaseCurrency)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	strategy, err := lpdist.ParseStrategy(req.LPStrategy)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	feePayment, err := parseBaseAmount(req.FeePayment)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid fee_payment"})
		return
	}

	res, err := s.engine.Apply(r.Context(), dispatch.CreateToken{
		Name:               req.Name,
		Symbol:             req.Symbol,
		ImageURI:           req.ImageURI,
		Creator:            creator,
		Governance:         governance,
		BaseCurrency:       baseCurrency,
		Strategy:           strategy,
		BasePrice:          req.BasePrice,
		GrowthRateBps:      req.GrowthRateBps,
		MaxSupply:          req.MaxSupply,
		MarketCapThreshold: req.MarketCapThreshold,
		FeePayment:         feePayment,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, res)
}

func (s *Server) handleTokenList(w http.ResponseWriter, r *http.Request) {
	res, err := s.engine.Apply(r.Context(), dispatch.TokenList{})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleTokenInfo(w http.ResponseWriter, r *http.Request) {
	mint, err := mintVar(r)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid mint address"})
		return
	}
	res, err := s.engine.Apply(r.Context(), dispatch.TokenInfo{Mint: mint})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleTokenData(w http.ResponseWriter, r *http.Request) {
	mint, err := mintVar(r)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid mint address"})
		return
	}
	res, err := s.engine.Apply(r.Context(), dispatch.GetData{Mint: mint})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, res)
}

type stateResponse struct {
	Supply    uint64 `json:"supply"`
	Reserves  string `json:"reserves"`
	Phase     string `json:"phase"`
	Pool      string `json:"pool,omitempty"`
	Holders   int    `json:"holders"`
	CreatedAt string `json:"created_at"`
}

func (s *Server) handleTokenState(w http.ResponseWriter, r *http.Request) {
	mint, err := mintVar(r)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid mint address"})
		return
	}
	res, err := s.engine.Apply(r.Context(), dispatch.GetState{Mint: mint})
	if err != nil {
		s.writeError(w, err)
		return
	}
	st := res.(token.State)
	out := stateResponse{
		Supply:    st.Supply,
		Reserves:  st.Reserves.Dec(),
		Phase:     st.Phase.String(),
		Holders:   st.HolderCount,
		CreatedAt: st.CreatedAt.UTC().Format(time.RFC3339),
	}
	if st.Phase == token.PhaseGraduated {
		out.Pool = st.Pool.String()
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleTokenPool(w http.ResponseWriter, r *http.Request) {
	mint, err := mintVar(r)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid mint address"})
		return
	}
	res, err := s.engine.Apply(r.Context(), dispatch.GetPool{Mint: mint})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"pool": res.(solana.PublicKey).String()})
}

func (s *Server) quote(w http.ResponseWriter, r *http.Request, sell bool) {
	mint, err := mintVar(r)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid mint address"})
		return
	}
	amount, err := parseAmountQuery(r)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid amount"})
		return
	}

	var op dispatch.Op = dispatch.QuoteBuy{Mint: mint, Amount: amount}
	if sell {
		op = dispatch.QuoteSell{Mint: mint, Amount: amount}
	}
	res, err := s.engine.Apply(r.Context(), op)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{
		"amount": fmt.Sprintf("%d", amount),
		"quote":  res.(*uint256.Int).Dec(),
	})
}

func (s *Server) handleQuoteBuy(w http.ResponseWriter, r *http.Request) {
	s.quote(w, r, false)
}

func (s *Server) handleQuoteSell(w http.ResponseWriter, r *http.Request) {
	s.quote(w, r, true)
}

type buyRequest struct {
	Buyer        string `json:"buyer"`
	AmountIn     string `json:"amount_in"`
	MinTokensOut uint64 `json:"min_tokens_out"`
}

type buyResponse struct {
	Tokens    uint64 `json:"tokens"`
	Cost      string `json:"cost"`
	Refund    string `json:"refund"`
	Graduated bool   `json:"graduated"`
}

func (s *Server) handleBuy(w http.ResponseWriter, r *http.Request) {
	mint, err := mintVar(r)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid mint address"})
		return
	}
	var req buyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	buyer, err := solana.PublicKeyFromBase58(req.Buyer)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid buyer address"})
		return
	}
	amountIn, err := parseBaseAmount(req.AmountIn)
	if err != nil || amountIn == nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid amount_in"})
		return
	}

	res, err := s.engine.Apply(r.Context(), dispatch.Buy{
		Mint:         mint,
		Buyer:        buyer,
		AmountIn:     amountIn,
		MinTokensOut: req.MinTokensOut,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	rcpt := res.(*token.BuyReceipt)
	s.logger.Debug("buy executed",
		zap.String("mint", mint.String()),
		zap.Uint64("tokens", rcpt.Tokens))
	s.writeJSON(w, http.StatusOK, buyResponse{
		Tokens:    rcpt.Tokens,
		Cost:      rcpt.Cost.Dec(),
		Refund:    rcpt.Refund.Dec(),
		Graduated: rcpt.Graduated,
	})
}

type sellRequest struct {
	Seller     string `json:"seller"`
	Amount     uint64 `json:"amount"`
	MinBaseOut string `json:"min_base_out"`
}

type sellResponse struct {
	Tokens    uint64 `json:"tokens"`
	Payout    string `json:"payout"`
	Graduated bool   `json:"graduated"`
}

func (s *Server) handleSell(w http.ResponseWriter, r *http.Request) {
	mint, err := mintVar(r)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid mint address"})
		return
	}
	var req sellRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	seller, err := solana.PublicKeyFromBase58(req.Seller)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid seller address"})
		return
	}
	minBaseOut, err := parseBaseAmount(req.MinBaseOut)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid min_base_out"})
		return
	}

	res, err := s.engine.Apply(r.Context(), dispatch.Sell{
		Mint:       mint,
		Seller:     seller,
		Amount:     req.Amount,
		MinBaseOut: minBaseOut,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	rcpt := res.(*token.SellReceipt)
	s.writeJSON(w, http.StatusOK, sellResponse{
		Tokens:    rcpt.Tokens,
		Payout:    rcpt.Payout.Dec(),
		Graduated: rcpt.Graduated,
	})
}

type graduateResponse struct {
	Pool           string `json:"pool"`
	BaseLiquidity  string `json:"base_liquidity"`
	TokenLiquidity uint64 `json:"token_liquidity"`
	LPReceived     string `json:"lp_received"`
	Strategy       string `json:"strategy"`
	GraduatedAt    string `json:"graduated_at"`
}

func (s *Server) handleGraduate(w http.ResponseWriter, r *http.Request) {
	mint, err := mintVar(r)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid mint address"})
		return
	}
	res, err := s.engine.Apply(r.Context(), dispatch.Graduate{Mint: mint})
	if err != nil {
		s.writeError(w, err)
		return
	}
	rec := res.(*token.GraduationRecord)
	s.writeJSON(w, http.StatusOK, graduateResponse{
		Pool:           rec.Pool.String(),
		BaseLiquidity:  rec.BaseLiquidity.Dec(),
		TokenLiquidity: rec.TokenLiquidity,
		LPReceived:     rec.LPReceived.Dec(),
		Strategy:       rec.Plan.Strategy.String(),
		GraduatedAt:    rec.At.UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleCreatorTokens(w http.ResponseWriter, r *http.Request) {
	creator, err := solana.PublicKeyFromBase58(mux.Vars(r)["creator"])
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid creator address"})
		return
	}
	res, err := s.engine.Apply(r.Context(), dispatch.CreatorTokens{Creator: creator})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, res)
}
