package service

import (
	"context"
	"fmt"

	"github.com/lonelytx/coinledger-system/internal/model"
)

// Возможные предсказания игрока.
const (
	PredictionHigh = "high"
	PredictionLow  = "low"
)

// Play разыгрывает один раунд игры в кости. Бросаются три кубика; сумма
// от 11 до 17 считается "high", остальное — "low". Диапазон 3-10 и 18
// относится к "low" намеренно: опубликованные шансы игры рассчитаны на
// это разбиение, выравнивать его нельзя.
func (s *Service) Play(ctx context.Context, user string, wager int64, prediction string) (*model.GameOutcome, error) {
	if user == "" || wager <= 0 {
		return nil, ErrInvalidRequest
	}
	if prediction != PredictionHigh && prediction != PredictionLow {
		return nil, ErrInvalidRequest
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	balance, err := s.repo.GetBalance(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("load balance: %w", err)
	}
	if wager > balance {
		return nil, ErrInsufficientFunds
	}

	var dice [3]int
	total := 0
	for i := range dice {
		dice[i] = s.roll()
		total += dice[i]
	}

	result := PredictionLow
	if total >= 11 && total <= 17 {
		result = PredictionHigh
	}

	won := prediction == result

	var newBalance int64
	if won {
		newBalance, err = s.repo.AddBalance(ctx, user, wager)
	} else {
		newBalance, err = s.repo.RemoveBalance(ctx, user, wager)
	}
	if err != nil {
		return nil, fmt.Errorf("settle wager: %w", err)
	}

	return &model.GameOutcome{
		Won:        won,
		Dice:       dice,
		Total:      total,
		Result:     result,
		Amount:     wager,
		NewBalance: newBalance,
	}, nil
}
