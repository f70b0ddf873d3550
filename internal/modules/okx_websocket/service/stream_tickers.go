package service

import (
	"context"
	"strconv"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"

	"futures_bot/pkg/logger"
)

type tickerFrame struct {
	Event string `json:"event"`
	Msg   string `json:"msg"`
	Arg   struct {
		Channel string `json:"channel"`
		InstID  string `json:"instId"`
	} `json:"arg"`
	Data []struct {
		InstID string `json:"instId"`
		Last   string `json:"last"`
		Ts     string `json:"ts"`
	} `json:"data"`
}

// parseTickers разбирает кадр канала tickers. Служебные кадры и pong дают nil.
func parseTickers(msg []byte) []Tick {
	if string(msg) == "pong" {
		return nil
	}
	var frame tickerFrame
	if err := sonic.Unmarshal(msg, &frame); err != nil {
		return nil
	}
	if frame.Event == "error" {
		logger.Warn("[WS] okx error event: %s", frame.Msg)
		return nil
	}
	if frame.Arg.Channel != "tickers" || len(frame.Data) == 0 {
		return nil
	}

	out := make([]Tick, 0, len(frame.Data))
	for _, d := range frame.Data {
		last, err := strconv.ParseFloat(d.Last, 64)
		if err != nil || last <= 0 {
			continue
		}
		ms, err := strconv.ParseInt(d.Ts, 10, 64)
		if err != nil {
			continue
		}
		inst := d.InstID
		if inst == "" {
			inst = frame.Arg.InstID
		}
		out = append(out, Tick{InstID: inst, Last: last, At: time.UnixMilli(ms).UTC()})
	}
	return out
}

// Run держит подписку на tickers и переподключается до отмены ctx.
func (c *Client) Run(ctx context.Context) {
	if len(c.instruments) == 0 {
		return
	}
	args := make([]map[string]string, 0, len(c.instruments))
	for _, id := range c.instruments {
		args = append(args, map[string]string{
			"channel": "tickers",
			"instId":  id,
		})
	}

	for {
		if err := c.session(ctx, args); err != nil {
			logger.Warn("[WS] tickers: %v", err)
		}
		if c.hook != nil {
			c.hook.SetWSConnected(false)
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(c.retry):
		}
	}
}

func (c *Client) session(ctx context.Context, args []map[string]string) error {
	logger.Info("[WS] connect tickers %d symbols", len(args))
	conn, _, err := c.wsDialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := conn.WriteJSON(map[string]any{"op": "subscribe", "args": args}); err != nil {
		return err
	}
	if c.hook != nil {
		c.hook.SetWSConnected(true)
	}

	// любой кадр, включая текстовый "pong", продлевает дедлайн чтения
	extend := func() error { return conn.SetReadDeadline(time.Now().Add(c.readTimeout)) }
	if err := extend(); err != nil {
		return err
	}
	conn.SetPongHandler(func(string) error { return extend() })

	// keepalive ping каждые 20s, иначе OKX рвёт соединение через 30s тишины
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		t := time.NewTicker(c.pingEvery)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
				_ = conn.Close()
				return
			case <-stop:
				return
			case <-t.C:
				_ = conn.WriteMessage(websocket.TextMessage, []byte("ping"))
			}
		}
	}()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if err := extend(); err != nil {
			return err
		}
		c.apply(parseTickers(msg))
	}
}
