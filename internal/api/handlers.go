package api

import (
	"encoding/json"
	"errors"
	"net/http"

	sdkmath "cosmossdk.io/math"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/lockstake/staking-engine/internal/types"
)

const operatorKeyHeader = "X-Operator-Key"

// FaucetFunc credits an account with stakeable balance in local mode.
type FaucetFunc func(account string, amount sdkmath.Int)

type mutationRequest struct {
	Account string `json:"account"`
	Amount  string `json:"amount,omitempty"`
}

type positionResponse struct {
	Account         string `json:"account"`
	Staked          string `json:"staked"`
	RewardClaimable string `json:"reward_claimable"`
}

type poolResponse struct {
	AvailableToStakeOrReward string `json:"available_to_stake_or_reward"`
	TotalLockedReward        string `json:"total_locked_reward"`
	TotalStaked              string `json:"total_staked"`
	TotalGuaranteedReward    string `json:"total_guaranteed_reward"`
	TotalStoredReward        string `json:"total_stored_reward"`
}

type claimResponse struct {
	Account string `json:"account"`
	Paid    string `json:"paid"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleStake(w http.ResponseWriter, r *http.Request) {
	req, amount, ok := decodeMutation(w, r, true)
	if !ok {
		return
	}
	if err := s.svc.Stake(r.Context(), req.Account, amount); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "staked"})
}

func (s *Server) handleUnstake(w http.ResponseWriter, r *http.Request) {
	req, amount, ok := decodeMutation(w, r, true)
	if !ok {
		return
	}
	if err := s.svc.Unstake(r.Context(), req.Account, amount); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "unstaked"})
}

func (s *Server) handleClaim(w http.ResponseWriter, r *http.Request) {
	req, _, ok := decodeMutation(w, r, false)
	if !ok {
		return
	}
	paid, err := s.svc.ClaimReward(r.Context(), req.Account)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, claimResponse{Account: req.Account, Paid: paid.String()})
}

// handleClaimFor triggers a claim on behalf of another account. The payout
// still goes to the position's owner; only the trigger is privileged.
func (s *Server) handleClaimFor(w http.ResponseWriter, r *http.Request) {
	if s.cfg.OperatorKey == "" || r.Header.Get(operatorKeyHeader) != s.cfg.OperatorKey {
		writeJSON(w, http.StatusForbidden, errorResponse{Error: "operator key required"})
		return
	}
	req, _, ok := decodeMutation(w, r, false)
	if !ok {
		return
	}
	paid, err := s.svc.ClaimRewardFor(r.Context(), req.Account)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, claimResponse{Account: req.Account, Paid: paid.String()})
}

func (s *Server) handleExit(w http.ResponseWriter, r *http.Request) {
	req, _, ok := decodeMutation(w, r, false)
	if !ok {
		return
	}
	if err := s.svc.Exit(r.Context(), req.Account); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "exited"})
}

func (s *Server) handleFaucet(w http.ResponseWriter, r *http.Request) {
	if s.cfg.OperatorKey == "" || r.Header.Get(operatorKeyHeader) != s.cfg.OperatorKey {
		writeJSON(w, http.StatusForbidden, errorResponse{Error: "operator key required"})
		return
	}
	req, amount, ok := decodeMutation(w, r, true)
	if !ok {
		return
	}
	if !amount.IsPositive() {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "amount must be positive"})
		return
	}
	s.faucet(req.Account, amount)
	writeJSON(w, http.StatusOK, map[string]string{"status": "funded"})
}

func (s *Server) handleGetPosition(w http.ResponseWriter, r *http.Request) {
	account := chi.URLParam(r, "account")
	if account == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "account is required"})
		return
	}

	claimable, err := s.svc.RewardClaimable(r.Context(), account)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, positionResponse{
		Account:         account,
		Staked:          s.svc.Staked(account).String(),
		RewardClaimable: claimable.String(),
	})
}

func (s *Server) handleGetPool(w http.ResponseWriter, r *http.Request) {
	available, err := s.svc.AvailableToStakeOrReward(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	totals := s.svc.Totals()
	writeJSON(w, http.StatusOK, poolResponse{
		AvailableToStakeOrReward: available.String(),
		TotalLockedReward:        totals.LockedReward().String(),
		TotalStaked:              totals.Staked.String(),
		TotalGuaranteedReward:    totals.GuaranteedReward.String(),
		TotalStoredReward:        totals.StoredReward.String(),
	})
}

func decodeMutation(w http.ResponseWriter, r *http.Request, needAmount bool) (mutationRequest, sdkmath.Int, bool) {
	var req mutationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return req, sdkmath.ZeroInt(), false
	}
	if req.Account == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "account is required"})
		return req, sdkmath.ZeroInt(), false
	}

	amount := sdkmath.ZeroInt()
	if needAmount {
		parsed, ok := sdkmath.NewIntFromString(req.Amount)
		if !ok {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "amount must be a base-10 integer"})
			return req, sdkmath.ZeroInt(), false
		}
		amount = parsed
	}
	return req, amount, true
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case types.IsInputError(err):
		status = http.StatusBadRequest
	case types.IsLockedError(err):
		status = http.StatusLocked
	case types.IsInsufficientFundsError(err):
		status = http.StatusConflict
	case errors.Is(err, types.ErrOperationInProgress):
		status = http.StatusServiceUnavailable
	}

	if status == http.StatusInternalServerError {
		log.Ctx(r.Context()).Error().Err(err).Msg("request failed")
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}
