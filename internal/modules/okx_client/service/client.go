package service

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"golang.org/x/time/rate"

	"futures_bot/internal/models"
)

const (
	DefaultBaseURL = "https://www.okx.com"
	tsLayout       = "2006-01-02T15:04:05.000Z"
)

var ErrEmptyResponse = errors.New("okx: empty response data")

// APIError: отказ биржи, code/msg конверта или sCode/sMsg строки.
type APIError struct {
	Op   string
	Code string
	Msg  string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: okx error code=%s msg=%s", e.Op, e.Code, e.Msg)
}

type Options struct {
	APIKey     string
	APISecret  string
	Passphrase string
	BaseURL    string
	Simulated  bool
	TdMode     string
	RatePerSec float64
	Timeout    time.Duration
	HTTPClient *http.Client
}

type Client struct {
	apiKey    string
	secret    string
	passph    string
	baseURL   string
	simulated bool
	tdMode    string
	timeout   time.Duration

	http    *http.Client
	limiter *rate.Limiter

	metaMu sync.RWMutex
	meta   map[string]models.Instrument

	now func() time.Time
}

func NewClient(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.TdMode == "" {
		opts.TdMode = "cross"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: opts.Timeout}
	}
	limit := rate.Inf
	burst := 1
	if opts.RatePerSec > 0 {
		limit = rate.Limit(opts.RatePerSec)
		burst = max(1, int(opts.RatePerSec))
	}
	return &Client{
		apiKey:    opts.APIKey,
		secret:    opts.APISecret,
		passph:    opts.Passphrase,
		baseURL:   strings.TrimRight(opts.BaseURL, "/"),
		simulated: opts.Simulated,
		tdMode:    opts.TdMode,
		timeout:   opts.Timeout,
		http:      opts.HTTPClient,
		limiter:   rate.NewLimiter(limit, burst),
		meta:      make(map[string]models.Instrument),
		now:       time.Now,
	}
}

// sign: base64(HMAC-SHA256(ts + method + path + body)).
func (c *Client) sign(ts, method, requestPath, body string) string {
	mac := hmac.New(sha256.New, []byte(c.secret))
	mac.Write([]byte(ts + method + requestPath + body))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

type envelope struct {
	Code string          `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

// rowStatus: построчный статус в data торговых ответов.
type rowStatus struct {
	SCode string `json:"sCode"`
	SMsg  string `json:"sMsg"`
}

// do выполняет запрос с лимитом и таймаутом и раскладывает data в out.
func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, body any, private bool, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%s rate wait: %w", op, err)
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	requestPath := path
	if len(query) > 0 {
		requestPath += "?" + query.Encode()
	}

	var payload []byte
	if body != nil {
		var err error
		if payload, err = sonic.Marshal(body); err != nil {
			return fmt.Errorf("%s marshal: %w", op, err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+requestPath, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("%s new request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if private {
		ts := c.now().UTC().Format(tsLayout)
		req.Header.Set("OK-ACCESS-KEY", c.apiKey)
		req.Header.Set("OK-ACCESS-SIGN", c.sign(ts, method, requestPath, string(payload)))
		req.Header.Set("OK-ACCESS-TIMESTAMP", ts)
		req.Header.Set("OK-ACCESS-PASSPHRASE", c.passph)
	}
	if c.simulated {
		req.Header.Set("x-simulated-trading", "1")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s do: %w", op, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s read: %w", op, err)
	}
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("%s http %d: %s", op, resp.StatusCode, string(data))
	}

	var env envelope
	if err := sonic.Unmarshal(data, &env); err != nil {
		return fmt.Errorf("%s decode: %w; body=%s", op, err, string(data))
	}
	if env.Code != "0" {
		apiErr := &APIError{Op: op, Code: env.Code, Msg: env.Msg}
		var rows []rowStatus
		if sonic.Unmarshal(env.Data, &rows) == nil && len(rows) > 0 && rows[0].SCode != "" && rows[0].SCode != "0" {
			apiErr.Code, apiErr.Msg = rows[0].SCode, rows[0].SMsg
		}
		return apiErr
	}
	if out == nil {
		return nil
	}
	if len(env.Data) == 0 {
		return fmt.Errorf("%s: %w", op, ErrEmptyResponse)
	}
	if err := sonic.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("%s decode data: %w", op, err)
	}
	return nil
}
