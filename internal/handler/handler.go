// Package handler содержит HTTP-обработчики API сервиса coinledger.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/lonelytx/coinledger-system/internal/middleware"
	"github.com/lonelytx/coinledger-system/internal/model"
	"github.com/lonelytx/coinledger-system/internal/repository"
	"github.com/lonelytx/coinledger-system/internal/service"
	"github.com/lonelytx/coinledger-system/internal/validation"
)

// Service определяет контракт бизнес-логики, используемой HTTP-обработчиками.
type Service interface {
	GetBalance(ctx context.Context, user string) (int64, error)
	SetBalance(ctx context.Context, user string, amount int64) error
	AddBalance(ctx context.Context, user string, amount int64) (int64, error)
	RemoveBalance(ctx context.Context, user string, amount int64) (int64, error)
	ClaimDaily(ctx context.Context, user string) (*model.DailyResult, error)
	Play(ctx context.Context, user string, wager int64, prediction string) (*model.GameOutcome, error)
	ProcessClaim(ctx context.Context, user, pack, hash string) (*model.ClaimResult, error)
	Packs() map[string]model.RewardPack
}

// Handler реализует HTTP-обработчики API сервиса coinledger.
type Handler struct {
	service   Service
	logger    *zap.Logger
	adminAuth *middleware.AdminAuth
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
func NewHandler(s Service, logger *zap.Logger, adminAuth *middleware.AdminAuth) *Handler {
	return &Handler{
		service:   s,
		logger:    logger,
		adminAuth: adminAuth,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func retryAfterSeconds(err *service.CooldownError) int {
	return int(math.Ceil(err.RetryAfter.Seconds()))
}

type claimRequest struct {
	UserID string `json:"user_id"`
	Pack   string `json:"pack"`
	Hash   string `json:"hash"`
}

type claimResponse struct {
	Message    string `json:"message"`
	NewBalance int64  `json:"new_balance"`
}

// Claim обрабатывает входящий callback о завершённом просмотре рекламы.
func (h *Handler) Claim(w http.ResponseWriter, r *http.Request) {
	var req claimRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.UserID = strings.TrimSpace(req.UserID)
	req.Pack = strings.TrimSpace(req.Pack)
	req.Hash = strings.TrimSpace(req.Hash)

	if !validation.IsValidUserID(req.UserID) {
		writeError(w, http.StatusBadRequest, "missing params")
		return
	}

	result, err := h.service.ProcessClaim(r.Context(), req.UserID, req.Pack, req.Hash)
	if err != nil {
		var cooldownErr *service.CooldownError
		switch {
		case errors.Is(err, service.ErrInvalidRequest):
			writeError(w, http.StatusBadRequest, "missing params")
		case errors.As(err, &cooldownErr):
			w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds(cooldownErr)))
			writeError(w, http.StatusTooManyRequests, "cooldown")
		case errors.Is(err, service.ErrTokenReplayed):
			writeError(w, http.StatusBadRequest, "hash already used")
		case errors.Is(err, service.ErrVerifierUnreachable):
			writeError(w, http.StatusBadGateway, "verification unavailable")
		case errors.Is(err, service.ErrVerificationFailed):
			writeError(w, http.StatusBadRequest, "verification failed")
		default:
			h.logger.Error("process claim error", zap.Error(err), zap.String("user", req.UserID))
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}

	writeJSON(w, http.StatusOK, claimResponse{
		Message:    "received " + strconv.FormatInt(result.Reward, 10) + " coin",
		NewBalance: result.NewBalance,
	})
}

type packResponse struct {
	Pack  string `json:"pack"`
	Links int    `json:"links"`
	Coin  int64  `json:"coin"`
}

// GetPacks возвращает каталог пакетов вознаграждения.
func (h *Handler) GetPacks(w http.ResponseWriter, r *http.Request) {
	packs := h.service.Packs()

	resp := make([]packResponse, 0, len(packs))
	for id, p := range packs {
		resp = append(resp, packResponse{Pack: id, Links: p.Links, Coin: p.Coin})
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) userID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "userID")
	if !validation.IsValidUserID(id) {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return "", false
	}
	return id, true
}

type balanceResponse struct {
	UserID  string `json:"user_id"`
	Balance int64  `json:"balance"`
}

// GetBalance возвращает баланс пользователя.
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	user, ok := h.userID(w, r)
	if !ok {
		return
	}

	balance, err := h.service.GetBalance(r.Context(), user)
	if err != nil {
		h.logger.Error("get balance error", zap.Error(err), zap.String("user", user))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, balanceResponse{UserID: user, Balance: balance})
}

type dailyResponse struct {
	Reward     int64 `json:"reward"`
	Streak     int   `json:"streak"`
	NewBalance int64 `json:"new_balance"`
}

// ClaimDaily обрабатывает ежедневную отметку пользователя.
func (h *Handler) ClaimDaily(w http.ResponseWriter, r *http.Request) {
	user, ok := h.userID(w, r)
	if !ok {
		return
	}

	result, err := h.service.ClaimDaily(r.Context(), user)
	if err != nil {
		var cooldownErr *service.CooldownError
		if errors.As(err, &cooldownErr) {
			w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds(cooldownErr)))
			writeError(w, http.StatusTooManyRequests, "daily reward not ready")
			return
		}
		h.logger.Error("claim daily error", zap.Error(err), zap.String("user", user))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, dailyResponse{
		Reward:     result.Reward,
		Streak:     result.Streak,
		NewBalance: result.NewBalance,
	})
}

type playRequest struct {
	Wager      int64  `json:"wager"`
	Prediction string `json:"prediction"`
}

type playResponse struct {
	Won        bool   `json:"won"`
	Dice       [3]int `json:"dice"`
	Total      int    `json:"total"`
	Result     string `json:"result"`
	Amount     int64  `json:"amount"`
	NewBalance int64  `json:"new_balance"`
}

// Play разыгрывает раунд игры в кости на указанную ставку.
func (h *Handler) Play(w http.ResponseWriter, r *http.Request) {
	user, ok := h.userID(w, r)
	if !ok {
		return
	}

	var req playRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	outcome, err := h.service.Play(r.Context(), user, req.Wager, req.Prediction)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidRequest):
			writeError(w, http.StatusBadRequest, "invalid wager or prediction")
		case errors.Is(err, service.ErrInsufficientFunds):
			writeError(w, http.StatusPaymentRequired, "insufficient funds")
		default:
			h.logger.Error("play error", zap.Error(err), zap.String("user", user))
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}

	writeJSON(w, http.StatusOK, playResponse{
		Won:        outcome.Won,
		Dice:       outcome.Dice,
		Total:      outcome.Total,
		Result:     outcome.Result,
		Amount:     outcome.Amount,
		NewBalance: outcome.NewBalance,
	})
}

type amountRequest struct {
	Amount int64 `json:"amount"`
}

func (h *Handler) decodeAmount(w http.ResponseWriter, r *http.Request) (int64, bool) {
	var req amountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return 0, false
	}
	return req.Amount, true
}

// SetBalance перезаписывает баланс пользователя указанным значением.
func (h *Handler) SetBalance(w http.ResponseWriter, r *http.Request) {
	user, ok := h.userID(w, r)
	if !ok {
		return
	}

	amount, ok := h.decodeAmount(w, r)
	if !ok {
		return
	}

	if err := h.service.SetBalance(r.Context(), user, amount); err != nil {
		if errors.Is(err, repository.ErrNegativeAmount) {
			writeError(w, http.StatusBadRequest, "amount must not be negative")
			return
		}
		h.logger.Error("set balance error", zap.Error(err), zap.String("user", user))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, balanceResponse{UserID: user, Balance: amount})
}

// AddBalance начисляет пользователю указанное число монет.
func (h *Handler) AddBalance(w http.ResponseWriter, r *http.Request) {
	user, ok := h.userID(w, r)
	if !ok {
		return
	}

	amount, ok := h.decodeAmount(w, r)
	if !ok {
		return
	}

	balance, err := h.service.AddBalance(r.Context(), user, amount)
	if err != nil {
		if errors.Is(err, repository.ErrNegativeAmount) {
			writeError(w, http.StatusBadRequest, "amount must not be negative")
			return
		}
		h.logger.Error("add balance error", zap.Error(err), zap.String("user", user))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, balanceResponse{UserID: user, Balance: balance})
}

// RemoveBalance списывает у пользователя указанное число монет.
func (h *Handler) RemoveBalance(w http.ResponseWriter, r *http.Request) {
	user, ok := h.userID(w, r)
	if !ok {
		return
	}

	amount, ok := h.decodeAmount(w, r)
	if !ok {
		return
	}

	balance, err := h.service.RemoveBalance(r.Context(), user, amount)
	if err != nil {
		if errors.Is(err, repository.ErrNegativeAmount) {
			writeError(w, http.StatusBadRequest, "amount must not be negative")
			return
		}
		h.logger.Error("remove balance error", zap.Error(err), zap.String("user", user))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, balanceResponse{UserID: user, Balance: balance})
}
