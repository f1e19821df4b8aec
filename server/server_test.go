package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/colorfulnotion/moonbase/common"
	"github.com/colorfulnotion/moonbase/token"
	"github.com/gorilla/websocket"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

var devs = common.GetDevAddresses(4)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type testServer struct {
	engine *token.Engine
	server *Server
	http   *httptest.Server
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	e, err := token.NewEngine(token.DefaultGenesis())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	s := New(ctx, e)
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()
	ts := httptest.NewServer(s.Handler())

	t.Cleanup(func() {
		ts.Close()
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Error("server did not stop")
		}
		e.Close()
	})
	return &testServer{engine: e, server: s, http: ts}
}

func (ts *testServer) getJSON(t *testing.T, path string, v interface{}) int {
	t.Helper()
	resp, err := ts.http.Client().Get(ts.http.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
	return resp.StatusCode
}

func (ts *testServer) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.http.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

type rawFrame struct {
	Method string          `json:"method"`
	Result json.RawMessage `json:"result"`
}

func readFrame(t *testing.T, conn *websocket.Conn) rawFrame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var f rawFrame
	require.NoError(t, conn.ReadJSON(&f))
	return f
}

func TestHTTPQueries(t *testing.T) {
	ts := newTestServer(t)
	_, err := ts.engine.Transfer(devs[0], devs[1], uint256.NewInt(10_000))
	require.NoError(t, err)

	var info token.TokenInfo
	require.Equal(t, http.StatusOK, ts.getJSON(t, "/token", &info))
	assert.Equal(t, token.DefaultSymbol, info.Symbol)
	assert.Equal(t, token.DefaultTotalSupply, info.TotalSupply)
	assert.Equal(t, uint64(1), info.Seq)

	var bal balanceResponse
	require.Equal(t, http.StatusOK, ts.getJSON(t, "/balance/"+devs[1].Hex(), &bal))
	assert.Equal(t, devs[1], bal.Address)
	assert.Equal(t, "10000", bal.Balance)

	var acct token.AccountInfo
	require.Equal(t, http.StatusOK, ts.getJSON(t, "/account/"+devs[0].Hex(), &acct))
	assert.True(t, acct.ExcludedFromFee)
	assert.False(t, acct.ExcludedFromReward)

	var health healthResponse
	require.Equal(t, http.StatusOK, ts.getJSON(t, "/health", &health))
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, uint64(1), health.Seq)

	var bad errorResponse
	assert.Equal(t, http.StatusBadRequest, ts.getJSON(t, "/balance/nope", &bad))
	assert.NotEmpty(t, bad.Error)
}

func TestWebsocketStream(t *testing.T) {
	ts := newTestServer(t)
	conn := ts.dial(t)
	require.Eventually(t, func() bool { return ts.server.Hub().ClientCount() == 1 }, 5*time.Second, 10*time.Millisecond)

	_, err := ts.engine.Transfer(devs[0], devs[1], uint256.NewInt(10_000))
	require.NoError(t, err)
	f := readFrame(t, conn)
	require.Equal(t, MethodTransfer, f.Method)
	var tr token.TransferEvent
	require.NoError(t, json.Unmarshal(f.Result, &tr))
	assert.Equal(t, devs[1], tr.To)
	assert.Equal(t, uint256.NewInt(10_000), tr.Value)

	// dev1 pays 10% in fees: one transfer frame and one fees frame
	_, err = ts.engine.Transfer(devs[1], devs[2], uint256.NewInt(1_000))
	require.NoError(t, err)
	seen := map[string]rawFrame{}
	for len(seen) < 2 {
		f := readFrame(t, conn)
		seen[f.Method] = f
	}
	var fee token.FeeEvent
	require.NoError(t, json.Unmarshal(seen[MethodFees].Result, &fee))
	assert.Equal(t, uint256.NewInt(50), fee.RewardFee)
	assert.Equal(t, uint256.NewInt(50), fee.LiquidityFee)
	assert.Equal(t, uint64(2), fee.Seq)
}

func TestWebsocketSubscribe(t *testing.T) {
	ts := newTestServer(t)
	conn := ts.dial(t)

	require.NoError(t, conn.WriteJSON(SubscriptionRequest{Method: MethodSubscribe, Params: []string{MethodFees, "blocks"}}))
	ack := readFrame(t, conn)
	require.Equal(t, MethodSubscribed, ack.Method)
	var accepted []string
	require.NoError(t, json.Unmarshal(ack.Result, &accepted))
	assert.Equal(t, []string{MethodFees}, accepted)

	_, err := ts.engine.Transfer(devs[0], devs[1], uint256.NewInt(10_000))
	require.NoError(t, err)
	_, err = ts.engine.Deliver(devs[1], uint256.NewInt(100))
	require.NoError(t, err)

	// the fee-free owner transfer is filtered out
	f := readFrame(t, conn)
	assert.Equal(t, MethodFees, f.Method)
	var fee token.FeeEvent
	require.NoError(t, json.Unmarshal(f.Result, &fee))
	assert.Equal(t, uint256.NewInt(100), fee.RewardFee)
	assert.Equal(t, uint64(2), fee.Seq)
}

func TestHubStop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := NewHub(ctx)
	done := make(chan struct{})
	go func() {
		h.Run()
		close(done)
	}()
	assert.Equal(t, 0, h.ClientCount())
	require.NoError(t, h.Broadcast(MethodFees, map[string]int{"x": 1}))
	h.Stop()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("hub did not stop")
	}
	assert.Equal(t, 0, h.ClientCount())
	assert.NoError(t, h.Broadcast(MethodFees, nil))
}

func TestServeWsAfterStop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := NewHub(ctx)
	done := make(chan struct{})
	go func() {
		h.Run()
		close(done)
	}()
	h.Stop()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("hub did not stop")
	}

	ts := httptest.NewServer(http.HandlerFunc(h.ServeWs))
	defer ts.Close()
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()

	// the server side hangs up rather than registering
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, _, err = conn.ReadMessage()
	require.Error(t, err)
	var netErr net.Error
	if errors.As(err, &netErr) {
		assert.False(t, netErr.Timeout(), "connection left open")
	}
}
