package health

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"futures_bot/internal/modules/health/service"
)

func get(t *testing.T, srv *httptest.Server, path string) (int, string) {
	t.Helper()
	resp, err := http.Get(srv.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestMux(t *testing.T) {
	state := service.NewState()
	metrics := service.NewMetrics()
	srv := httptest.NewServer(NewMux(state, metrics))
	defer srv.Close()

	code, _ := get(t, srv, "/livez")
	assert.Equal(t, http.StatusOK, code)

	code, _ = get(t, srv, "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, code)

	state.SetReady(true)
	state.TouchCycle(time.Unix(1700000000, 0), "running")
	code, _ = get(t, srv, "/readyz")
	assert.Equal(t, http.StatusOK, code)

	code, body := get(t, srv, "/healthz")
	require.Equal(t, http.StatusOK, code)
	var resp map[string]any
	require.NoError(t, sonic.UnmarshalString(body, &resp))
	assert.Equal(t, true, resp["ready"])
	assert.Equal(t, "running", resp["runState"])
	assert.EqualValues(t, 1700000000, resp["lastCycleUnix"])
	assert.EqualValues(t, 0, resp["lastTickUnix"])

	metrics.Cycle("running")
	metrics.Decision("BTC-USDT-SWAP", "BUY")
	metrics.Order("market", true)
	metrics.Order("stop_loss", false)
	metrics.OpenPositions(2)

	code, body = get(t, srv, "/metrics")
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, `bot_cycles_total{state="running"} 1`)
	assert.Contains(t, body, `bot_decisions_total{instrument="BTC-USDT-SWAP",signal="BUY"} 1`)
	assert.Contains(t, body, `bot_orders_total{kind="stop_loss",result="error"} 1`)
	assert.Contains(t, body, `bot_open_positions 2`)
}
