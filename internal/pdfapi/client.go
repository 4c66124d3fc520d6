package pdfapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ortiqov/contract_bot/internal/form"
	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"
)

// Payload запрос генерации договора. Формат полей фиксирован
// внешним сервисом: ключи покупателя в CamelCase, позиции —
// name/quantity/priceNoVat.
type Payload struct {
	AgreementNumber string          `json:"AgreementNumber"`
	BuyerName       string          `json:"BuyerName"`
	BuyerInn        string          `json:"BuyerInn"`
	BuyerAddress    string          `json:"BuyerAddress"`
	BuyerPhone      string          `json:"BuyerPhone"`
	BuyerAccount    string          `json:"BuyerAccount"`
	BuyerBank       string          `json:"BuyerBank"`
	BuyerMfo        string          `json:"BuyerMfo"`
	BuyerDirector   string          `json:"BuyerDirector"`
	Items           []form.LineItem `json:"Items"`
}

// APIError неуспешный ответ сервиса генерации
type APIError struct {
	Status int
	Detail string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("pdf api: status %d: %s", e.Status, e.Detail)
}

// Client HTTP-клиент сервиса генерации PDF
type Client struct {
	endpoint   string
	timeout    time.Duration
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient создаёт клиент. timeout ограничивает весь вызов
// Generate вместе с повторами.
func NewClient(endpoint string, timeout time.Duration, logger *zap.Logger) *Client {
	return &Client{
		endpoint:   endpoint,
		timeout:    timeout,
		httpClient: &http.Client{},
		logger:     logger,
	}
}

// Generate отправляет payload и возвращает байты PDF.
// Сетевые ошибки и 5xx повторяются с экспоненциальной задержкой,
// 4xx возвращается сразу как *APIError.
func (c *Client) Generate(ctx context.Context, payload *Payload) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	backoff := retry.WithMaxRetries(3, retry.NewExponential(500*time.Millisecond))

	var pdf []byte
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			c.logger.Warn("PDF API request failed, will retry", zap.Error(err))
			return retry.RetryableError(fmt.Errorf("post contract: %w", err))
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return retry.RetryableError(fmt.Errorf("read response: %w", err))
		}

		if resp.StatusCode != http.StatusOK {
			apiErr := &APIError{
				Status: resp.StatusCode,
				Detail: detail(data),
			}
			if resp.StatusCode >= http.StatusInternalServerError {
				c.logger.Warn("PDF API server error, will retry",
					zap.Int("status", resp.StatusCode))
				return retry.RetryableError(apiErr)
			}
			return apiErr
		}

		pdf = data
		return nil
	})

	if err != nil {
		return nil, err
	}

	c.logger.Info("PDF generated", zap.Int("size_bytes", len(pdf)))
	return pdf, nil
}

// detail обрезает тело ошибки до короткой строки для сообщения
func detail(body []byte) string {
	const maxLen = 200
	s := string(body)
	if len(s) > maxLen {
		s = s[:maxLen]
	}
	return s
}
