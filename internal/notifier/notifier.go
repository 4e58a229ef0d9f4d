// Package notifier delivers payment callbacks to the owning system's webhook.
package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/stwalsh4118/revenue/api/internal/logger"
	"github.com/stwalsh4118/revenue/api/internal/models"
)

// ErrExternalCall means the webhook could not be delivered.
var ErrExternalCall = errors.New("webhook delivery failed")

// maxErrorBody bounds how much of a failing response body is kept.
const maxErrorBody = 1024

// SecretHeader carries the shared secret expected by the receiving webhook.
const SecretHeader = "X-Webhook-Secret"

// RetryConfig configures the retry behavior.
type RetryConfig struct {
	MaxRetries           int
	InitialInterval      time.Duration
	MaxInterval          time.Duration
	RetryableStatusCodes []int
}

// DefaultRetryConfig retries transient failures a few times within seconds.
func DefaultRetryConfig(maxRetries int) RetryConfig {
	return RetryConfig{
		MaxRetries:           maxRetries,
		InitialInterval:      200 * time.Millisecond,
		MaxInterval:          2 * time.Second,
		RetryableStatusCodes: []int{408, 429, 500, 502, 503, 504},
	}
}

// HTTPError is a non-2xx webhook response.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("webhook responded %d: %s", e.StatusCode, e.Body)
}

// Notifier posts payment callbacks.
type Notifier interface {
	Notify(ctx context.Context, url string, callback models.PaymentCallback) error
}

type webhookNotifier struct {
	client *http.Client
	retry  RetryConfig
	secret string
	log    *logger.Logger
}

// New creates a Notifier whose every attempt is bounded by timeout.
func New(timeout time.Duration, retry RetryConfig, secret string, log *logger.Logger) Notifier {
	return &webhookNotifier{
		client: &http.Client{Timeout: timeout},
		retry:  retry,
		secret: secret,
		log:    log,
	}
}

// Notify posts the callback, retrying timeouts and retryable statuses with
// exponential backoff. The returned error wraps ErrExternalCall.
func (n *webhookNotifier) Notify(ctx context.Context, url string, callback models.PaymentCallback) error {
	body, err := json.Marshal(callback)
	if err != nil {
		return fmt.Errorf("%w: failed to marshal callback: %v", ErrExternalCall, err)
	}

	attempts := 0
	operation := func() error {
		attempts++
		return n.post(ctx, url, body)
	}

	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = n.retry.InitialInterval
	expBackoff.MaxInterval = n.retry.MaxInterval

	policy := backoff.WithContext(backoff.WithMaxRetries(expBackoff, uint64(n.retry.MaxRetries)), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		n.log.Warn("Payment webhook delivery failed", map[string]interface{}{
			"payment_id": callback.PaymentID,
			"url":        url,
			"attempts":   attempts,
			"error":      err.Error(),
		})
		return fmt.Errorf("%w: %v", ErrExternalCall, err)
	}

	n.log.Info("Payment webhook delivered", map[string]interface{}{
		"payment_id": callback.PaymentID,
		"url":        url,
		"attempts":   attempts,
	})
	return nil
}

func (n *webhookNotifier) post(ctx context.Context, url string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return backoff.Permanent(fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if n.secret != "" {
		req.Header.Set(SecretHeader, n.secret)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	httpErr := &HTTPError{StatusCode: resp.StatusCode, Body: string(respBody)}
	for _, code := range n.retry.RetryableStatusCodes {
		if resp.StatusCode == code {
			return httpErr
		}
	}
	return backoff.Permanent(httpErr)
}
