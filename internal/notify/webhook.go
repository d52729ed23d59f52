// Package notify отвечает за доставку уведомлений о начислениях во
// фронтенд-процесс.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
)

// Notification описывает одно уведомление об успешном начислении.
type Notification struct {
	ID         string `json:"id"`
	UserID     string `json:"user_id"`
	Reward     int64  `json:"reward"`
	NewBalance int64  `json:"new_balance"`
}

// Webhook доставляет уведомления POST-запросом на адрес фронтенда.
type Webhook struct {
	url        string
	httpClient *http.Client
}

// NewWebhook создаёт доставку уведомлений на указанный адрес.
func NewWebhook(url string) *Webhook {
	return &Webhook{
		url: strings.TrimRight(url, "/"),
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

// Notify отправляет уведомление с ограниченным числом повторов.
// Доставка негарантированная: исчерпание повторов возвращается ошибкой,
// решение о её судьбе принимает вызывающая сторона.
func (w *Webhook) Notify(ctx context.Context, n Notification) error {
	body, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	backoff := retry.WithMaxRetries(3, retry.NewExponential(250*time.Millisecond))

	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := w.httpClient.Do(req)
		if err != nil {
			return retry.RetryableError(err)
		}
		defer resp.Body.Close()
		io.Copy(io.Discard, resp.Body)

		if resp.StatusCode >= http.StatusInternalServerError {
			return retry.RetryableError(fmt.Errorf("notify status: %d", resp.StatusCode))
		}
		if resp.StatusCode >= http.StatusBadRequest {
			return fmt.Errorf("notify status: %d", resp.StatusCode)
		}
		return nil
	})
}
