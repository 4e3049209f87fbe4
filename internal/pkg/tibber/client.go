package tibber

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/anicoll/tibber-price-alert/internal/pkg/config"
	"go.uber.org/zap"
)

// HTTPDoer is satisfied by *http.Client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

type RequestEditorFn func(ctx context.Context, req *http.Request) error

type client struct {
	httpClient HTTPDoer
	endpoint   string
	editors    []RequestEditorFn
	logger     *zap.Logger
}

type Option func(*client)

func WithHTTPClient(doer HTTPDoer) Option {
	return func(c *client) {
		c.httpClient = doer
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(c *client) {
		c.logger = logger
	}
}

func WithRequestEditor(fn RequestEditorFn) Option {
	return func(c *client) {
		c.editors = append(c.editors, fn)
	}
}

func withToken(token string) RequestEditorFn {
	return func(ctx context.Context, req *http.Request) error {
		req.Header.Set("Authorization", "Bearer "+token)
		return nil
	}
}

func New(cfg *config.TibberConfig, opts ...Option) *client {
	c := &client{
		httpClient: http.DefaultClient,
		endpoint:   cfg.Endpoint,
		editors:    []RequestEditorFn{withToken(cfg.Token)},
		logger:     zap.L(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors json.RawMessage `json:"errors"`
}

// Request posts a single GraphQL document and returns the data field of the response.
func (c *client) Request(ctx context.Context, query string, variables map[string]any) (json.RawMessage, error) {
	if variables == nil {
		variables = map[string]any{}
	}
	body, err := json.Marshal(graphQLRequest{Query: query, Variables: variables})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	for _, edit := range c.editors {
		if err := edit(ctx, req); err != nil {
			return nil, err
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("error making tibber api request", zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrTransport, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		c.logger.Error("error reading tibber api response", zap.Error(err), zap.Int("status", resp.StatusCode))
		return nil, fmt.Errorf("%w: %w", ErrTransport, err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		c.logger.Error("tibber api http error",
			zap.Int("status", resp.StatusCode),
			zap.ByteString("message", respBody),
		)
		return nil, &HTTPError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	result := graphQLResponse{}
	if err := json.Unmarshal(respBody, &result); err != nil {
		c.logger.Error("tibber api returned invalid json", zap.Error(err), zap.ByteString("body", respBody))
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}

	if hasValue(result.Errors) {
		c.logger.Error("tibber graphql errors", zap.ByteString("errors", result.Errors))
		gqlErr := &GraphQLError{Raw: string(result.Errors)}
		_ = json.Unmarshal(result.Errors, &gqlErr.Errors) // best effort, Raw keeps the original.
		return nil, gqlErr
	}

	return result.Data, nil
}

func hasValue(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && !bytes.Equal(raw, []byte("null"))
}
