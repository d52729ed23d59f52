package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/lonelytx/coinledger-system/internal/middleware"
	"github.com/lonelytx/coinledger-system/internal/model"
	"github.com/lonelytx/coinledger-system/internal/service"
)

type stubService struct {
	balance    int64
	balanceErr error

	setErr error

	addBalance int64
	addErr     error

	removeBalance int64
	removeErr     error

	dailyResult *model.DailyResult
	dailyErr    error

	playOutcome *model.GameOutcome
	playErr     error

	claimResult *model.ClaimResult
	claimErr    error

	packs map[string]model.RewardPack
}

func (s *stubService) GetBalance(ctx context.Context, user string) (int64, error) {
	return s.balance, s.balanceErr
}

func (s *stubService) SetBalance(ctx context.Context, user string, amount int64) error {
	return s.setErr
}

func (s *stubService) AddBalance(ctx context.Context, user string, amount int64) (int64, error) {
	return s.addBalance, s.addErr
}

func (s *stubService) RemoveBalance(ctx context.Context, user string, amount int64) (int64, error) {
	return s.removeBalance, s.removeErr
}

func (s *stubService) ClaimDaily(ctx context.Context, user string) (*model.DailyResult, error) {
	return s.dailyResult, s.dailyErr
}

func (s *stubService) Play(ctx context.Context, user string, wager int64, prediction string) (*model.GameOutcome, error) {
	return s.playOutcome, s.playErr
}

func (s *stubService) ProcessClaim(ctx context.Context, user, pack, hash string) (*model.ClaimResult, error) {
	return s.claimResult, s.claimErr
}

func (s *stubService) Packs() map[string]model.RewardPack {
	return s.packs
}

func newTestRouter(t *testing.T, svc Service) http.Handler {
	t.Helper()

	logger, err := zap.NewDevelopment()
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}

	h := NewHandler(svc, logger, middleware.NewAdminAuth("test-admin-token"))
	return h.SetupRouter()
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any, headers map[string]string) *http.Response {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec.Result()
}

func TestClaim_Success(t *testing.T) {
	svc := &stubService{
		claimResult: &model.ClaimResult{Reward: 50, NewBalance: 120},
	}
	router := newTestRouter(t, svc)

	res := doJSON(t, router, http.MethodPost, "/claim", claimRequest{
		UserID: "100",
		Pack:   "50",
		Hash:   "abc123",
	}, nil)
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusOK)
	}

	var resp claimResponse
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.NewBalance != 120 {
		t.Fatalf("new_balance = %d, want 120", resp.NewBalance)
	}
	if resp.Message == "" {
		t.Fatalf("empty message")
	}
}

func TestClaim_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{name: "invalid request", err: service.ErrInvalidRequest, wantStatus: http.StatusBadRequest},
		{name: "cooldown", err: &service.CooldownError{RetryAfter: 30 * time.Minute}, wantStatus: http.StatusTooManyRequests},
		{name: "replayed token", err: service.ErrTokenReplayed, wantStatus: http.StatusBadRequest},
		{name: "verifier unreachable", err: service.ErrVerifierUnreachable, wantStatus: http.StatusBadGateway},
		{name: "verification failed", err: service.ErrVerificationFailed, wantStatus: http.StatusBadRequest},
		{name: "storage failure", err: context.DeadlineExceeded, wantStatus: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &stubService{claimErr: tt.err}
			router := newTestRouter(t, svc)

			res := doJSON(t, router, http.MethodPost, "/claim", claimRequest{
				UserID: "100",
				Pack:   "50",
				Hash:   "abc123",
			}, nil)
			defer res.Body.Close()

			if res.StatusCode != tt.wantStatus {
				t.Fatalf("status = %d, want %d", res.StatusCode, tt.wantStatus)
			}

			var body map[string]string
			if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
				t.Fatalf("decode error body: %v", err)
			}
			if body["error"] == "" {
				t.Fatalf("error body without error field")
			}
		})
	}
}

func TestClaim_CooldownSetsRetryAfter(t *testing.T) {
	svc := &stubService{claimErr: &service.CooldownError{RetryAfter: 90 * time.Second}}
	router := newTestRouter(t, svc)

	res := doJSON(t, router, http.MethodPost, "/claim", claimRequest{
		UserID: "100",
		Pack:   "50",
		Hash:   "abc123",
	}, nil)
	defer res.Body.Close()

	if res.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusTooManyRequests)
	}
	if got := res.Header.Get("Retry-After"); got != "90" {
		t.Fatalf("Retry-After = %q, want 90", got)
	}
}

func TestClaim_BadUserID(t *testing.T) {
	svc := &stubService{claimResult: &model.ClaimResult{}}
	router := newTestRouter(t, svc)

	res := doJSON(t, router, http.MethodPost, "/claim", claimRequest{
		UserID: "not-a-snowflake",
		Pack:   "50",
		Hash:   "abc123",
	}, nil)
	defer res.Body.Close()

	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusBadRequest)
	}
}

func TestGetBalance(t *testing.T) {
	svc := &stubService{balance: 77}
	router := newTestRouter(t, svc)

	res := doJSON(t, router, http.MethodGet, "/api/users/100/balance", nil, nil)
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusOK)
	}

	var resp balanceResponse
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.UserID != "100" || resp.Balance != 77 {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestClaimDaily_CooldownStatus(t *testing.T) {
	svc := &stubService{dailyErr: &service.CooldownError{RetryAfter: 14 * time.Hour}}
	router := newTestRouter(t, svc)

	res := doJSON(t, router, http.MethodPost, "/api/users/100/daily", nil, nil)
	defer res.Body.Close()

	if res.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusTooManyRequests)
	}
}

func TestPlay_InsufficientFundsStatus(t *testing.T) {
	svc := &stubService{playErr: service.ErrInsufficientFunds}
	router := newTestRouter(t, svc)

	res := doJSON(t, router, http.MethodPost, "/api/users/100/game", playRequest{
		Wager:      50,
		Prediction: "high",
	}, nil)
	defer res.Body.Close()

	if res.StatusCode != http.StatusPaymentRequired {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusPaymentRequired)
	}
}

func TestPlay_Success(t *testing.T) {
	svc := &stubService{
		playOutcome: &model.GameOutcome{
			Won:        true,
			Dice:       [3]int{5, 5, 5},
			Total:      15,
			Result:     "high",
			Amount:     50,
			NewBalance: 150,
		},
	}
	router := newTestRouter(t, svc)

	res := doJSON(t, router, http.MethodPost, "/api/users/100/game", playRequest{
		Wager:      50,
		Prediction: "high",
	}, nil)
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusOK)
	}

	var resp playResponse
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.Won || resp.Total != 15 || resp.NewBalance != 150 {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestAdminEndpoints_RequireToken(t *testing.T) {
	svc := &stubService{addBalance: 100}
	router := newTestRouter(t, svc)

	res := doJSON(t, router, http.MethodPost, "/api/users/100/balance/add", amountRequest{Amount: 100}, nil)
	res.Body.Close()
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("without token: status = %d, want %d", res.StatusCode, http.StatusUnauthorized)
	}

	res = doJSON(t, router, http.MethodPost, "/api/users/100/balance/add", amountRequest{Amount: 100}, map[string]string{
		"Authorization": "Bearer wrong-token",
	})
	res.Body.Close()
	if res.StatusCode != http.StatusForbidden {
		t.Fatalf("wrong token: status = %d, want %d", res.StatusCode, http.StatusForbidden)
	}

	res = doJSON(t, router, http.MethodPost, "/api/users/100/balance/add", amountRequest{Amount: 100}, map[string]string{
		"Authorization": "Bearer test-admin-token",
	})
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("valid token: status = %d, want %d", res.StatusCode, http.StatusOK)
	}

	var resp balanceResponse
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Balance != 100 {
		t.Fatalf("balance = %d, want 100", resp.Balance)
	}
}

func TestGetPacks(t *testing.T) {
	svc := &stubService{
		packs: map[string]model.RewardPack{
			"50": {Links: 1, Coin: 50},
		},
	}
	router := newTestRouter(t, svc)

	res := doJSON(t, router, http.MethodGet, "/api/packs", nil, nil)
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusOK)
	}

	var resp []packResponse
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp) != 1 || resp[0].Pack != "50" || resp[0].Coin != 50 {
		t.Fatalf("unexpected packs: %+v", resp)
	}
}
