package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lonelytx/coinledger-system/internal/model"
	"github.com/lonelytx/coinledger-system/internal/notify"
	"github.com/lonelytx/coinledger-system/internal/verifier"
)

// ProcessClaim обрабатывает входящее внешнее начисление от начала до конца.
// Проверки выполняются строго по порядку: параметры, окно ожидания, повтор
// токена, внешнее подтверждение; первая неудача прерывает обработку.
// Шаги от проверки окна до фиксации выполняются под общим мьютексом, чтобы
// ни один токен не мог быть начислен дважды.
func (s *Service) ProcessClaim(ctx context.Context, user, packID, hash string) (*model.ClaimResult, error) {
	if user == "" || hash == "" {
		return nil, ErrInvalidRequest
	}
	pack, ok := s.cfg.Packs[packID]
	if !ok {
		return nil, ErrInvalidRequest
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now().UTC()

	last, err := s.repo.LastClaim(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("load last claim: %w", err)
	}
	if last != nil {
		ready := last.Add(s.cfg.ClaimCooldown)
		if now.Before(ready) {
			return nil, &CooldownError{RetryAfter: ready.Sub(now)}
		}
	}

	used, err := s.repo.IsTokenUsed(ctx, hash)
	if err != nil {
		return nil, fmt.Errorf("check token: %w", err)
	}
	if used {
		return nil, ErrTokenReplayed
	}

	if s.verifier == nil {
		return nil, ErrVerifierUnreachable
	}
	if err := s.verifier.VerifyHash(ctx, hash); err != nil {
		if errors.Is(err, verifier.ErrRejected) {
			return nil, ErrVerificationFailed
		}
		// сетевые и прочие сбои считаются временными, токен не погашен
		return nil, fmt.Errorf("%w: %v", ErrVerifierUnreachable, err)
	}

	// токен помечается до начисления: при сбое между шагами пользователь
	// теряет вознаграждение, но повторное начисление того же токена исключено
	meta := model.TokenMeta{User: user, Pack: packID}
	if err := s.repo.MarkTokenUsed(ctx, hash, meta, now); err != nil {
		return nil, fmt.Errorf("mark token: %w", err)
	}

	newBalance, err := s.repo.AddBalance(ctx, user, pack.Coin)
	if err != nil {
		return nil, fmt.Errorf("credit balance: %w", err)
	}

	if err := s.repo.UpdateLastClaim(ctx, user, now); err != nil {
		return nil, fmt.Errorf("update last claim: %w", err)
	}

	s.dispatchNotification(user, pack.Coin, newBalance)

	return &model.ClaimResult{
		Reward:     pack.Coin,
		NewBalance: newBalance,
	}, nil
}

// dispatchNotification отправляет уведомление об успешном начислении в
// фоне. Сбой доставки только логируется: денежное состояние уже
// зафиксировано и отмене не подлежит.
func (s *Service) dispatchNotification(user string, reward, newBalance int64) {
	if s.notifier == nil {
		return
	}

	n := notify.Notification{
		ID:         uuid.NewString(),
		UserID:     user,
		Reward:     reward,
		NewBalance: newBalance,
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()

		if err := s.notifier.Notify(ctx, n); err != nil {
			s.logger.Warn("claim notification failed",
				zap.String("user", user),
				zap.String("notification", n.ID),
				zap.Error(err))
		}
	}()
}
