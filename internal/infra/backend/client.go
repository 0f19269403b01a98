package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"commentiq-monitor/internal/config"
	"commentiq-monitor/internal/domain"
	"commentiq-monitor/internal/domain/model"
	"commentiq-monitor/internal/domain/ports/adapter"
	"commentiq-monitor/internal/infra/metrics"
)

// Compile-time check
var _ adapter.AnalyticsBackend = (*Client)(nil)

// Client talks to the CommentIQ REST backend. It injects the service token
// on every request and normalizes every non-2xx response into an
// *adapter.APIError, so callers never look at raw HTTP responses.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	log     *zerolog.Logger
}

func NewClient(cfg config.BackendConfig, logger *zerolog.Logger) (*Client, error) {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		return nil, domain.ErrInvalidArgument
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("backend base url: %w", err)
	}
	clog := logger.With().Str("component", "BackendClient").Logger()
	return &Client{
		baseURL: base,
		token:   cfg.APIToken,
		http:    &http.Client{Timeout: cfg.Timeout},
		log:     &clog,
	}, nil
}

// errorBody is the backend's error envelope. Not every field is present on
// every error; the "status" field only appears on verify failures.
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Status  string `json:"status"`
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		rd = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.normalizeError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s %s: %w: %v", method, path, domain.ErrMalformedPayload, err)
	}
	return nil
}

// normalizeError decodes the error envelope exactly once. Bodies that are not
// the expected envelope still yield a usable APIError with a generic message.
func (c *Client) normalizeError(resp *http.Response) error {
	apiErr := &adapter.APIError{
		StatusCode: resp.StatusCode,
		Message:    http.StatusText(resp.StatusCode),
	}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return apiErr
	}
	var eb errorBody
	if json.Unmarshal(raw, &eb) == nil {
		if eb.Message != "" {
			apiErr.Message = eb.Message
		} else if eb.Error != "" {
			apiErr.Message = eb.Error
		}
		apiErr.Code = eb.Code
		apiErr.PaymentStatus = eb.Status
	} else {
		c.log.Warn().Int("status", resp.StatusCode).Msg("unparseable error body from backend")
	}
	return apiErr
}

func (c *Client) FetchAnalysis(ctx context.Context, id string, silent bool) (*model.Analysis, error) {
	if id == "" {
		return nil, domain.ErrInvalidArgument
	}
	ev := c.log.Info()
	if silent {
		ev = c.log.Debug()
	}
	ev.Str("analysis_id", id).Bool("silent", silent).Msg("fetching analysis")

	var a model.Analysis
	if err := c.do(ctx, http.MethodGet, "/api/v1/analyses/"+url.PathEscape(id), nil, &a); err != nil {
		return nil, err
	}
	if err := a.Validate(); err != nil {
		c.log.Error().Str("analysis_id", id).Str("status", string(a.Status)).Msg("rejecting malformed analysis payload")
		return nil, err
	}
	return &a, nil
}

func (c *Client) RequestAnalysis(ctx context.Context, videoURL, platform string) (*model.Analysis, error) {
	req := struct {
		VideoURL string `json:"video_url"`
		Platform string `json:"platform"`
	}{VideoURL: videoURL, Platform: platform}

	var a model.Analysis
	if err := c.do(ctx, http.MethodPost, "/api/v1/analyses", req, &a); err != nil {
		return nil, err
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}
	c.log.Info().Str("analysis_id", a.ID).Str("video_url", videoURL).Msg("analysis requested")
	return &a, nil
}

func (c *Client) VerifyCheckoutSession(ctx context.Context, sessionID string) (*model.VerifyReceipt, error) {
	if sessionID == "" {
		return nil, domain.ErrMissingSession
	}
	req := struct {
		SessionID string `json:"session_id"`
	}{SessionID: sessionID}

	start := time.Now()
	var receipt model.VerifyReceipt
	err := c.do(ctx, http.MethodPost, "/api/v1/purchases/verify", req, &receipt)
	if err != nil {
		metrics.IncVerifyCall(verifyOutcome(err))
		return nil, err
	}
	if receipt.AlreadyProcessed {
		metrics.IncVerifyCall(string(model.OutcomeAlreadyProcessed))
	} else {
		metrics.IncVerifyCall(string(model.OutcomePaid))
	}
	c.log.Info().
		Int64("tokens_added", receipt.TokensAdded).
		Int64("new_balance", receipt.NewBalance).
		Bool("already_processed", receipt.AlreadyProcessed).
		Dur("duration", time.Since(start)).
		Msg("checkout session verified")
	return &receipt, nil
}

func verifyOutcome(err error) string {
	if apiErr, ok := adapter.AsAPIError(err); ok &&
		apiErr.StatusCode == http.StatusBadRequest && apiErr.PaymentStatus != "" {
		return string(model.OutcomeUnconfirmed)
	}
	return string(model.OutcomeError)
}

func (c *Client) FetchBalance(ctx context.Context) (model.TokenBalance, error) {
	var resp struct {
		Tokens int64 `json:"tokens"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/balance", nil, &resp); err != nil {
		return model.TokenBalance{}, err
	}
	return model.TokenBalance{Tokens: resp.Tokens, RefreshedAt: time.Now()}, nil
}
