// Package model содержит доменные сущности сервиса coinledger.
package model

import "time"

// Account представляет счёт пользователя в монетах.
// JSON-теги фиксируют формат записи в таблице balances.
type Account struct {
	Coin int64 `json:"coin"`
}

// TokenMeta содержит сведения о том, кем и за какой пакет был погашен токен.
type TokenMeta struct {
	User string `json:"user"`
	Pack string `json:"pack"`
}

// UsedToken описывает погашенный токен подтверждения.
// Запись создаётся один раз и никогда не удаляется.
type UsedToken struct {
	UsedAt time.Time `json:"used_at"`
	Meta   TokenMeta `json:"meta"`
}

// ClaimStamp хранит время последнего успешного внешнего начисления пользователя.
type ClaimStamp struct {
	LastClaim time.Time `json:"last_claim"`
}

// StreakEntry хранит состояние ежедневной серии пользователя.
type StreakEntry struct {
	LastClaim time.Time `json:"last_claim"`
	Streak    int       `json:"streak"`
}

// RewardPack описывает пакет вознаграждения из статического каталога.
type RewardPack struct {
	Links int   `json:"links"`
	Coin  int64 `json:"coin"`
}

// ClaimResult содержит итог успешно обработанного внешнего начисления.
type ClaimResult struct {
	Reward     int64
	NewBalance int64
}

// DailyResult содержит итог успешной ежедневной отметки.
type DailyResult struct {
	Reward     int64
	Streak     int
	NewBalance int64
}

// GameOutcome содержит результат одного раунда игры в кости.
type GameOutcome struct {
	Won        bool
	Dice       [3]int
	Total      int
	Result     string
	Amount     int64
	NewBalance int64
}
