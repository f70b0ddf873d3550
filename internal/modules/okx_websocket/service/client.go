package service

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const DefaultURL = "wss://ws.okx.com:8443/ws/v5/public"

// StateHook: куда стример отмечает соединение и тики (health).
type StateHook interface {
	SetWSConnected(v bool)
	TouchTick(t time.Time)
}

// Tick: последняя сделка по инструменту из канала tickers.
type Tick struct {
	InstID string
	Last   float64
	At     time.Time
}

// Client держит один WebSocket на все инструменты и кэш последних цен.
type Client struct {
	url         string
	instruments []string
	wsDialer    *websocket.Dialer
	hook        StateHook

	pingEvery   time.Duration
	readTimeout time.Duration // тишина дольше этого: соединение считается мёртвым
	retry       time.Duration

	mu     sync.RWMutex
	prices map[string]Tick
}

func NewClient(url string, instruments []string, hook StateHook) *Client {
	if url == "" {
		url = DefaultURL
	}
	return &Client{
		url:         url,
		instruments: instruments,
		wsDialer:    &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		hook:        hook,
		pingEvery:   20 * time.Second,
		readTimeout: 45 * time.Second,
		retry:       time.Second,
		prices:      make(map[string]Tick),
	}
}

// LastPrice: последняя цена из стрима, false если тиков ещё не было.
func (c *Client) LastPrice(instID string) (float64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.prices[instID]
	if !ok {
		return 0, false
	}
	return t.Last, true
}

func (c *Client) apply(ticks []Tick) {
	if len(ticks) == 0 {
		return
	}
	c.mu.Lock()
	latest := time.Time{}
	for _, t := range ticks {
		if prev, ok := c.prices[t.InstID]; ok && prev.At.After(t.At) {
			continue
		}
		c.prices[t.InstID] = t
		if t.At.After(latest) {
			latest = t.At
		}
	}
	c.mu.Unlock()
	if c.hook != nil && !latest.IsZero() {
		c.hook.TouchTick(latest)
	}
}
