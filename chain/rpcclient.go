package chain

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
)

const (
	DefaultQueryRetries = 2
	DefaultTimeout      = 10 * time.Second
)

// RPCError is a JSON-RPC 2.0 error object.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
	ID      uint64 `json:"id"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
	ID      uint64          `json:"id"`
}

type clientOptions struct {
	retries int
	timeout time.Duration
	logger  *zap.Logger
}

type ClientOption func(*clientOptions)

// WithRetries sets how many times a failed query is retried.
// Submissions are never retried by the transport.
func WithRetries(n int) ClientOption {
	return func(o *clientOptions) {
		o.retries = n
	}
}

func WithTimeout(d time.Duration) ClientOption {
	return func(o *clientOptions) {
		o.timeout = d
	}
}

func WithLogger(logger *zap.Logger) ClientOption {
	return func(o *clientOptions) {
		o.logger = logger
	}
}

// RPCClient implements Client over JSON-RPC 2.0 on HTTP.
// One RPCClient holds one pooled session to the ledger.
type RPCClient struct {
	endpoint string
	query    *retryablehttp.Client
	submit   *retryablehttp.Client
	nextID   atomic.Uint64
}

var _ Client = (*RPCClient)(nil)

func NewRPCClient(endpoint string, opts ...ClientOption) (*RPCClient, error) {
	options := clientOptions{
		retries: DefaultQueryRetries,
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(&options)
	}

	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("parsing address: %w", err)
	}
	if u.Scheme == "" {
		u.Scheme = "http"
	}

	query := retryablehttp.NewClient()
	query.RetryMax = options.retries
	query.RetryWaitMin = 50 * time.Millisecond
	query.RetryWaitMax = 500 * time.Millisecond
	query.HTTPClient.Timeout = options.timeout

	submit := retryablehttp.NewClient()
	submit.RetryMax = 0
	submit.HTTPClient = query.HTTPClient

	if options.logger != nil {
		query.Logger = leveledLogger{options.logger.Sugar()}
		submit.Logger = leveledLogger{options.logger.Sugar()}
	} else {
		query.Logger = nil
		submit.Logger = nil
	}

	return &RPCClient{
		endpoint: u.String(),
		query:    query,
		submit:   submit,
	}, nil
}

// Dial creates a client and warms its connection up with a head query, so
// the first time-critical call does not pay for the handshake.
func Dial(ctx context.Context, endpoint string, opts ...ClientOption) (*RPCClient, error) {
	c, err := NewRPCClient(endpoint, opts...)
	if err != nil {
		return nil, err
	}
	if _, err := c.Head(ctx); err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to connect to %s (%w)", endpoint, err)
	}
	return c, nil
}

func (c *RPCClient) Close() {
	c.query.HTTPClient.CloseIdleConnections()
}

func (c *RPCClient) Head(ctx context.Context) (Head, error) {
	var res struct {
		Height    uint64 `json:"height"`
		Timestamp int64  `json:"timestamp"`
	}
	if err := c.call(ctx, c.query, "chain_getHead", nil, &res); err != nil {
		return Head{}, unavailable("chain_getHead", err)
	}
	return Head{Height: res.Height, Time: time.UnixMilli(res.Timestamp)}, nil
}

func (c *RPCClient) Tempo(ctx context.Context, domain DomainID) (uint64, error) {
	var tempo uint64
	if err := c.call(ctx, c.query, "domain_getTempo", []any{domain}, &tempo); err != nil {
		return 0, unavailable("domain_getTempo", err)
	}
	return tempo, nil
}

func (c *RPCClient) RegistrationCost(ctx context.Context, domain DomainID) (Amount, error) {
	var cost Amount
	if err := c.call(ctx, c.query, "registration_getCost", []any{domain}, &cost); err != nil {
		return Amount{}, unavailable("registration_getCost", err)
	}
	return cost, nil
}

func (c *RPCClient) Balance(ctx context.Context, address Address) (Amount, error) {
	var balance Amount
	if err := c.call(ctx, c.query, "account_getBalance", []any{address}, &balance); err != nil {
		return Amount{}, unavailable("account_getBalance", err)
	}
	return balance, nil
}

func (c *RPCClient) Membership(ctx context.Context, address Address, domain DomainID) (uint16, error) {
	var uid *uint16
	if err := c.call(ctx, c.query, "registration_getMembership", []any{address, domain}, &uid); err != nil {
		return 0, unavailable("registration_getMembership", err)
	}
	if uid == nil {
		return 0, ErrNotRegistered
	}
	return *uid, nil
}

type submitParams struct {
	Domain              DomainID `json:"netuid"`
	Coldkey             Address  `json:"coldkey"`
	Hotkey              Address  `json:"hotkey"`
	Call                string   `json:"call"`
	Signature           string   `json:"signature"`
	Tip                 Amount   `json:"tip"`
	WaitForInclusion    bool     `json:"wait_for_inclusion"`
	WaitForFinalization bool     `json:"wait_for_finalization"`
}

// SubmitRegistration signs and submits one burned-register call. It is sent
// exactly once: a lost response is reported as ErrUnavailable and retrying is
// the caller's decision.
func (c *RPCClient) SubmitRegistration(
	ctx context.Context,
	registrant Registrant,
	domain DomainID,
	tip Amount,
	opts SubmitOptions,
) (Receipt, error) {
	call, err := newRegistrationCall(registrant, domain, tip, uint64(time.Now().UnixNano()))
	if err != nil {
		return Receipt{}, err
	}
	payload, signature, err := signCall(registrant, call)
	if err != nil {
		return Receipt{}, err
	}
	params := submitParams{
		Domain:              domain,
		Coldkey:             registrant.ColdAddress(),
		Hotkey:              registrant.HotAddress(),
		Call:                hex.EncodeToString(payload),
		Signature:           hex.EncodeToString(signature),
		Tip:                 tip,
		WaitForInclusion:    opts.WaitForInclusion,
		WaitForFinalization: opts.WaitForFinalization,
	}

	var res struct {
		Accepted bool   `json:"accepted"`
		Hash     string `json:"hash"`
		Reason   string `json:"reason"`
	}
	err = c.call(ctx, c.submit, "registration_submit", []any{params}, &res)
	var rpcErr *RPCError
	switch {
	case errors.As(err, &rpcErr):
		return Receipt{}, &RejectedError{Code: rpcErr.Code, Message: rpcErr.Message}
	case err != nil:
		return Receipt{}, unavailable("registration_submit", err)
	case !res.Accepted:
		return Receipt{}, &RejectedError{Message: res.Reason}
	}
	return Receipt{Hash: res.Hash}, nil
}

func (c *RPCClient) call(ctx context.Context, client *retryablehttp.Client, method string, params []any, result any) error {
	if params == nil {
		params = []any{}
	}
	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
		ID:      c.nextID.Add(1),
	})
	if err != nil {
		return fmt.Errorf("marshaling request body: %w", err)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("doing request: %w", err)
	}
	defer res.Body.Close()

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return fmt.Errorf("reading response body (%w)", err)
	}
	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status code: %s, body: %s", res.Status, string(data))
	}

	var rpcRes rpcResponse
	if err := json.Unmarshal(data, &rpcRes); err != nil {
		return fmt.Errorf("decoding response body: %w", err)
	}
	if rpcRes.Error != nil {
		return rpcRes.Error
	}
	if result == nil || len(rpcRes.Result) == 0 || string(rpcRes.Result) == "null" {
		return nil
	}
	if err := json.Unmarshal(rpcRes.Result, result); err != nil {
		return fmt.Errorf("decoding %s result: %w", method, err)
	}
	return nil
}

func unavailable(method string, err error) error {
	if errors.Is(err, ErrUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", ErrUnavailable, method, err)
}

// leveledLogger routes retryablehttp's chatter to zap. Per-request lines
// are demoted to debug.
type leveledLogger struct {
	l *zap.SugaredLogger
}

func (l leveledLogger) Error(msg string, keysAndValues ...interface{}) {
	l.l.Warnw(msg, keysAndValues...)
}

func (l leveledLogger) Info(msg string, keysAndValues ...interface{}) {
	l.l.Debugw(msg, keysAndValues...)
}

func (l leveledLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.l.Debugw(msg, keysAndValues...)
}

func (l leveledLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.l.Warnw(msg, keysAndValues...)
}
