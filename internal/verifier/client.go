// Package verifier предоставляет клиент внешнего сервиса подтверждения
// просмотра рекламы.
package verifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

var (
	// ErrUnreachable возвращается при сетевой ошибке или нечитаемом ответе
	// сервиса подтверждения. Ошибка временная, токен остаётся непогашенным.
	ErrUnreachable = errors.New("verifier unreachable")
	// ErrRejected возвращается, когда сервис подтверждения не признал токен.
	ErrRejected = errors.New("verification rejected")
)

// Client инкапсулирует HTTP-взаимодействие с сервисом подтверждения.
type Client struct {
	baseURL    string
	token      string
	httpClient *retryablehttp.Client
}

// NewClient создаёт клиент сервиса подтверждения по указанному адресу
// с учётными данными издателя.
func NewClient(baseURL, token string) *Client {
	httpClient := retryablehttp.NewClient()
	httpClient.RetryMax = 2
	httpClient.RetryWaitMin = 200 * time.Millisecond
	httpClient.RetryWaitMax = time.Second
	httpClient.HTTPClient.Timeout = 5 * time.Second
	httpClient.Logger = nil

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: httpClient,
	}
}

// VerifyHash проверяет токен подтверждения. Возвращает nil, когда сервис
// признал токен, ErrRejected при отказе и ErrUnreachable при недоступности.
func (c *Client) VerifyHash(ctx context.Context, hash string) error {
	if c == nil || c.baseURL == "" {
		return fmt.Errorf("%w: client not configured", ErrUnreachable)
	}

	base := c.baseURL
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "https://" + base
	}

	query := url.Values{}
	query.Set("token", c.token)
	query.Set("hash", hash)

	reqURL := fmt.Sprintf("%s/api/v1/anti_bypassing?%s", base, query.Encode())

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("%w: create request: %v", ErrUnreachable, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: unexpected status: %d", ErrUnreachable, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%w: read response: %v", ErrUnreachable, err)
	}

	var payload map[string]json.RawMessage
	if err := json.Unmarshal(body, &payload); err != nil {
		return fmt.Errorf("%w: decode response: %v", ErrUnreachable, err)
	}

	// сервис отвечает непустым объектом только на признанный токен,
	// пустой объект означает отказ
	if len(payload) == 0 {
		return ErrRejected
	}
	return nil
}
