package service

import (
	"context"
	"fmt"

	"github.com/lonelytx/coinledger-system/internal/model"
)

// dailyRewards задаёт размер вознаграждения по длине серии.
// Серия от семи дней и дольше получает максимальный тариф.
var dailyRewards = [...]int64{10, 20, 30, 40, 50, 60, 70}

func rewardForStreak(streak int) int64 {
	if streak >= len(dailyRewards) {
		return dailyRewards[len(dailyRewards)-1]
	}
	return dailyRewards[streak-1]
}

// ClaimDaily обрабатывает ежедневную отметку пользователя.
// Раньше 24 часов с прошлой отметки запрос отклоняется без изменения
// состояния, между 24 и 48 часами серия растёт, после 48 часов
// сбрасывается к единице.
func (s *Service) ClaimDaily(ctx context.Context, user string) (*model.DailyResult, error) {
	if user == "" {
		return nil, ErrInvalidRequest
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now().UTC()

	entry, err := s.repo.StreakEntry(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("load streak: %w", err)
	}

	streak := 1
	if entry != nil {
		elapsed := now.Sub(entry.LastClaim)
		switch {
		case elapsed < dailyWindow:
			return nil, &CooldownError{RetryAfter: dailyWindow - elapsed}
		case elapsed <= streakWindow:
			streak = entry.Streak + 1
		}
	}

	reward := rewardForStreak(streak)

	newBalance, err := s.repo.AddBalance(ctx, user, reward)
	if err != nil {
		return nil, fmt.Errorf("credit daily reward: %w", err)
	}

	if err := s.repo.SetStreakEntry(ctx, user, model.StreakEntry{LastClaim: now, Streak: streak}); err != nil {
		return nil, fmt.Errorf("save streak: %w", err)
	}

	return &model.DailyResult{
		Reward:     reward,
		Streak:     streak,
		NewBalance: newBalance,
	}, nil
}
