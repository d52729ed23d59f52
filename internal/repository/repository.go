// Package repository содержит файловое хранилище таблиц сервиса coinledger.
//
// Каждая таблица — отдельный JSON-файл, перезаписываемый целиком при каждом
// изменении. Мьютекс на таблицу удерживается на весь цикл
// load-modify-save, иначе конкурирующие записи теряют обновления друг друга.
package repository

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/lonelytx/coinledger-system/internal/model"
)

const (
	balancesFile   = "balances.json"
	usedHashesFile = "used_hashes.json"
	claimMetaFile  = "claim_meta.json"
	dailyMetaFile  = "daily_meta.json"
)

// ErrNegativeAmount возвращается при попытке операции с отрицательной суммой.
var ErrNegativeAmount = errors.New("amount must not be negative")

// FileRepository предоставляет доступ к четырём таблицам реестра на диске.
type FileRepository struct {
	store *fileStore

	balancesMu sync.Mutex
	tokensMu   sync.Mutex
	claimsMu   sync.Mutex
	streaksMu  sync.Mutex
}

// NewFileRepository создаёт репозиторий и инициализирует пустые таблицы в dir.
func NewFileRepository(dir string) (*FileRepository, error) {
	store, err := newFileStore(dir)
	if err != nil {
		return nil, err
	}

	r := &FileRepository{store: store}

	// materialize the tables so a fresh data dir is fully laid out
	if err := store.load(balancesFile, &map[string]model.Account{}); err != nil {
		return nil, err
	}
	if err := store.load(usedHashesFile, &map[string]model.UsedToken{}); err != nil {
		return nil, err
	}
	if err := store.load(claimMetaFile, &map[string]model.ClaimStamp{}); err != nil {
		return nil, err
	}
	if err := store.load(dailyMetaFile, &map[string]model.StreakEntry{}); err != nil {
		return nil, err
	}

	return r, nil
}

// Close закрывает репозиторий. Файловое хранилище не держит ресурсов,
// метод сохранён ради контракта с сервисом.
func (r *FileRepository) Close() error {
	return nil
}

// GetBalance возвращает баланс пользователя, 0 для неизвестного пользователя.
func (r *FileRepository) GetBalance(ctx context.Context, user string) (int64, error) {
	r.balancesMu.Lock()
	defer r.balancesMu.Unlock()

	balances := map[string]model.Account{}
	if err := r.store.load(balancesFile, &balances); err != nil {
		return 0, err
	}
	return balances[user].Coin, nil
}

// SetBalance перезаписывает баланс пользователя значением amount.
func (r *FileRepository) SetBalance(ctx context.Context, user string, amount int64) error {
	if amount < 0 {
		return ErrNegativeAmount
	}

	r.balancesMu.Lock()
	defer r.balancesMu.Unlock()

	return r.setBalanceLocked(user, amount)
}

// AddBalance увеличивает баланс пользователя и возвращает новое значение.
func (r *FileRepository) AddBalance(ctx context.Context, user string, amount int64) (int64, error) {
	if amount < 0 {
		return 0, ErrNegativeAmount
	}

	r.balancesMu.Lock()
	defer r.balancesMu.Unlock()

	balances := map[string]model.Account{}
	if err := r.store.load(balancesFile, &balances); err != nil {
		return 0, err
	}

	newBalance := balances[user].Coin + amount
	if err := r.setBalanceLocked(user, newBalance); err != nil {
		return 0, err
	}
	return newBalance, nil
}

// RemoveBalance уменьшает баланс пользователя и возвращает новое значение.
// Списание сверх баланса не ошибка: результат ограничивается нулём.
func (r *FileRepository) RemoveBalance(ctx context.Context, user string, amount int64) (int64, error) {
	if amount < 0 {
		return 0, ErrNegativeAmount
	}

	r.balancesMu.Lock()
	defer r.balancesMu.Unlock()

	balances := map[string]model.Account{}
	if err := r.store.load(balancesFile, &balances); err != nil {
		return 0, err
	}

	newBalance := balances[user].Coin - amount
	if newBalance < 0 {
		newBalance = 0
	}
	if err := r.setBalanceLocked(user, newBalance); err != nil {
		return 0, err
	}
	return newBalance, nil
}

func (r *FileRepository) setBalanceLocked(user string, amount int64) error {
	balances := map[string]model.Account{}
	if err := r.store.load(balancesFile, &balances); err != nil {
		return err
	}
	balances[user] = model.Account{Coin: amount}
	return r.store.save(balancesFile, balances)
}

// IsTokenUsed сообщает, был ли токен уже погашен.
func (r *FileRepository) IsTokenUsed(ctx context.Context, hash string) (bool, error) {
	r.tokensMu.Lock()
	defer r.tokensMu.Unlock()

	used := map[string]model.UsedToken{}
	if err := r.store.load(usedHashesFile, &used); err != nil {
		return false, err
	}
	_, ok := used[hash]
	return ok, nil
}

// MarkTokenUsed фиксирует погашение токена. Записи не перезаписываются и
// не удаляются: членство в множестве монотонно.
func (r *FileRepository) MarkTokenUsed(ctx context.Context, hash string, meta model.TokenMeta, at time.Time) error {
	r.tokensMu.Lock()
	defer r.tokensMu.Unlock()

	used := map[string]model.UsedToken{}
	if err := r.store.load(usedHashesFile, &used); err != nil {
		return err
	}
	if _, ok := used[hash]; ok {
		return nil
	}
	used[hash] = model.UsedToken{UsedAt: at, Meta: meta}
	return r.store.save(usedHashesFile, used)
}

// LastClaim возвращает время последнего внешнего начисления пользователя
// или nil, если начислений ещё не было.
func (r *FileRepository) LastClaim(ctx context.Context, user string) (*time.Time, error) {
	r.claimsMu.Lock()
	defer r.claimsMu.Unlock()

	claims := map[string]model.ClaimStamp{}
	if err := r.store.load(claimMetaFile, &claims); err != nil {
		return nil, err
	}

	stamp, ok := claims[user]
	if !ok || stamp.LastClaim.IsZero() {
		return nil, nil
	}
	t := stamp.LastClaim
	return &t, nil
}

// UpdateLastClaim перезаписывает отметку последнего начисления пользователя.
func (r *FileRepository) UpdateLastClaim(ctx context.Context, user string, at time.Time) error {
	r.claimsMu.Lock()
	defer r.claimsMu.Unlock()

	claims := map[string]model.ClaimStamp{}
	if err := r.store.load(claimMetaFile, &claims); err != nil {
		return err
	}
	claims[user] = model.ClaimStamp{LastClaim: at}
	return r.store.save(claimMetaFile, claims)
}

// StreakEntry возвращает состояние ежедневной серии пользователя или nil.
func (r *FileRepository) StreakEntry(ctx context.Context, user string) (*model.StreakEntry, error) {
	r.streaksMu.Lock()
	defer r.streaksMu.Unlock()

	entries := map[string]model.StreakEntry{}
	if err := r.store.load(dailyMetaFile, &entries); err != nil {
		return nil, err
	}

	entry, ok := entries[user]
	if !ok || entry.LastClaim.IsZero() {
		return nil, nil
	}
	return &entry, nil
}

// SetStreakEntry перезаписывает состояние ежедневной серии пользователя.
func (r *FileRepository) SetStreakEntry(ctx context.Context, user string, entry model.StreakEntry) error {
	r.streaksMu.Lock()
	defer r.streaksMu.Unlock()

	entries := map[string]model.StreakEntry{}
	if err := r.store.load(dailyMetaFile, &entries); err != nil {
		return err
	}
	entries[user] = entry
	return r.store.save(dailyMetaFile, entries)
}
