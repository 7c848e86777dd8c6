package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/avelic/skyfare/internal/domain"
)

// LedgerClient is the flight service's view of the gateway's balance store.
// Debit and credit carry an idempotency key (the purchase id) so retries and
// saga re-runs apply at most once.
type LedgerClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewLedgerClient(baseURL string) *LedgerClient {
	return &LedgerClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

type ledgerRequest struct {
	UserID         int64  `json:"user_id"`
	AmountCents    int64  `json:"amount_cents"`
	IdempotencyKey string `json:"idempotency_key"`
}

type ledgerResponse struct {
	BalanceCents int64 `json:"balance_cents"`
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// UserInfo is the subset of the gateway's user record the flight service
// needs for notifications.
type UserInfo struct {
	ID           int64  `json:"id"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	Email        string `json:"email"`
	BalanceCents int64  `json:"balance_cents"`
}

func (c *LedgerClient) Debit(ctx context.Context, userID, amountCents int64, idempotencyKey string) (int64, error) {
	return c.post(ctx, "/internal/ledger/debit", userID, amountCents, idempotencyKey)
}

func (c *LedgerClient) Credit(ctx context.Context, userID, amountCents int64, idempotencyKey string) (int64, error) {
	return c.post(ctx, "/internal/ledger/credit", userID, amountCents, idempotencyKey)
}

func (c *LedgerClient) GetUser(ctx context.Context, userID int64) (*UserInfo, error) {
	url := fmt.Sprintf("%s/internal/users/%d", c.baseURL, userID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrDownstreamUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, decodeError(resp)
	}

	var user UserInfo
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, fmt.Errorf("decode user response: %w", err)
	}
	return &user, nil
}

func (c *LedgerClient) post(ctx context.Context, path string, userID, amountCents int64, idempotencyKey string) (int64, error) {
	body, err := json.Marshal(ledgerRequest{UserID: userID, AmountCents: amountCents, IdempotencyKey: idempotencyKey})
	if err != nil {
		return 0, fmt.Errorf("marshal ledger request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrDownstreamUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, decodeError(resp)
	}

	var result ledgerResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return 0, fmt.Errorf("decode ledger response: %w", err)
	}
	return result.BalanceCents, nil
}

func decodeError(resp *http.Response) error {
	var body errorResponse
	_ = json.NewDecoder(resp.Body).Decode(&body)

	switch body.Code {
	case "INSUFFICIENT_FUNDS":
		return domain.ErrInsufficientFunds
	case "USER_NOT_FOUND":
		return domain.ErrUserNotFound
	}
	if resp.StatusCode == http.StatusNotFound {
		return domain.ErrUserNotFound
	}
	return fmt.Errorf("%w: gateway responded %d", domain.ErrDownstreamUnavailable, resp.StatusCode)
}
