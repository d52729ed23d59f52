// Package service реализует бизнес-логику сервиса coinledger: реестр
// балансов, протокол внешних начислений, ежедневную серию и игру в кости.
package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/lonelytx/coinledger-system/internal/model"
	"github.com/lonelytx/coinledger-system/internal/notify"
)

const (
	dailyWindow   = 24 * time.Hour
	streakWindow  = 48 * time.Hour
	notifyTimeout = 10 * time.Second
)

var (
	// ErrInvalidRequest возвращается при некорректных входных данных вызова.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrTokenReplayed возвращается при повторном предъявлении погашенного токена.
	ErrTokenReplayed = errors.New("token already used")
	// ErrVerificationFailed возвращается, когда внешний сервис отклонил токен.
	ErrVerificationFailed = errors.New("verification failed")
	// ErrVerifierUnreachable возвращается при недоступности внешнего сервиса.
	ErrVerifierUnreachable = errors.New("verifier unreachable")
	// ErrInsufficientFunds возвращается при ставке, превышающей баланс.
	ErrInsufficientFunds = errors.New("insufficient funds")
)

// CooldownError возвращается, когда временное окно операции ещё не истекло.
type CooldownError struct {
	RetryAfter time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("cooldown: retry after %s", e.RetryAfter)
}

// Repository описывает контракт доступа к данным, используемый сервисом.
type Repository interface {
	Close() error
	GetBalance(ctx context.Context, user string) (int64, error)
	SetBalance(ctx context.Context, user string, amount int64) error
	AddBalance(ctx context.Context, user string, amount int64) (int64, error)
	RemoveBalance(ctx context.Context, user string, amount int64) (int64, error)
	IsTokenUsed(ctx context.Context, hash string) (bool, error)
	MarkTokenUsed(ctx context.Context, hash string, meta model.TokenMeta, at time.Time) error
	LastClaim(ctx context.Context, user string) (*time.Time, error)
	UpdateLastClaim(ctx context.Context, user string, at time.Time) error
	StreakEntry(ctx context.Context, user string) (*model.StreakEntry, error)
	SetStreakEntry(ctx context.Context, user string, entry model.StreakEntry) error
}

// Verifier описывает контракт внешнего сервиса подтверждения.
type Verifier interface {
	VerifyHash(ctx context.Context, hash string) error
}

// Notifier описывает контракт доставки уведомлений во фронтенд.
type Notifier interface {
	Notify(ctx context.Context, n notify.Notification) error
}

// Config содержит неизменяемые параметры протокола начислений.
type Config struct {
	Packs         map[string]model.RewardPack
	ClaimCooldown time.Duration
}

// Service содержит бизнес-логику сервиса coinledger.
type Service struct {
	repo     Repository
	verifier Verifier
	notifier Notifier
	cfg      Config
	logger   *zap.Logger

	// mu сериализует каждый многошаговый протокол целиком: проверка и
	// фиксация (check-then-act) обязаны быть атомарны, иначе два
	// конкурирующих начисления с одним токеном пройдут обе проверки.
	mu sync.Mutex

	clock clockwork.Clock
	roll  func() int

	wg sync.WaitGroup
}

// NewService создаёт сервис с указанными хранилищем, клиентом подтверждения
// и доставкой уведомлений. verifier и notifier могут быть nil.
func NewService(repo Repository, vf Verifier, nt Notifier, cfg Config, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		repo:     repo,
		verifier: vf,
		notifier: nt,
		cfg:      cfg,
		logger:   logger,
		clock:    clockwork.NewRealClock(),
		roll: func() int {
			return rand.Intn(6) + 1
		},
	}
}

// Close дожидается фоновых уведомлений и закрывает ресурсы сервиса.
func (s *Service) Close() error {
	s.wg.Wait()
	if s.repo != nil {
		return s.repo.Close()
	}
	return nil
}

// GetBalance возвращает баланс пользователя.
func (s *Service) GetBalance(ctx context.Context, user string) (int64, error) {
	return s.repo.GetBalance(ctx, user)
}

// SetBalance перезаписывает баланс пользователя.
func (s *Service) SetBalance(ctx context.Context, user string, amount int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.repo.SetBalance(ctx, user, amount)
}

// AddBalance начисляет монеты пользователю и возвращает новый баланс.
func (s *Service) AddBalance(ctx context.Context, user string, amount int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.repo.AddBalance(ctx, user, amount)
}

// RemoveBalance списывает монеты пользователя и возвращает новый баланс.
// Результат не опускается ниже нуля.
func (s *Service) RemoveBalance(ctx context.Context, user string, amount int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.repo.RemoveBalance(ctx, user, amount)
}

// Packs возвращает копию каталога пакетов вознаграждения.
func (s *Service) Packs() map[string]model.RewardPack {
	packs := make(map[string]model.RewardPack, len(s.cfg.Packs))
	for id, p := range s.cfg.Packs {
		packs[id] = p
	}
	return packs
}
