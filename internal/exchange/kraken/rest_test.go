package kraken

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeKrakenServer returns one page of BTC/USD trades per call. The
// first response's cursor is far in the past (forcing a second request
// for the same pair); the second response's cursor is "now" (finishing
// the pair).
func fakeKrakenServer(t *testing.T) *httptest.Server {
	t.Helper()
	calls := 0
	mux := http.NewServeMux()
	mux.HandleFunc("/0/public/Trades", func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		if calls == 1 {
			fmt.Fprint(w, `{"error":[],"result":{"BTC/USD":[["100.0","1.0",1700000000.0]],"last":"1700000000000000000"}}`)
			return
		}
		now := time.Now().UnixNano()
		fmt.Fprintf(w, `{"error":[],"result":{"BTC/USD":[["101.0","2.0",1700000100.0]],"last":"%d"}}`, now)
	})
	return httptest.NewServer(mux)
}

func newTestRESTSource(t *testing.T, srv *httptest.Server, pairs []string) *RESTSource {
	t.Helper()
	src := NewRESTSource(pairs, 1, 1000, zap.NewNop())
	src.baseURL = srv.URL + "/0/public/Trades"
	src.httpClient = srv.Client()
	return src
}

func TestRESTSourcePaginatesThenMovesToNextProduct(t *testing.T) {
	srv := fakeKrakenServer(t)
	defer srv.Close()

	src := newTestRESTSource(t, srv, []string{"BTC/USD", "ETH/USD"})

	trades, err := src.GetTrades(context.Background())
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, "BTC/USD", trades[0].Pair)
	assert.False(t, src.IsDone())
	assert.Equal(t, 0, src.productIndex, "cursor far in the past should keep us on the same pair")

	trades, err = src.GetTrades(context.Background())
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, 1, src.productIndex, "cursor caught up to now should advance to the next pair")
	assert.False(t, src.IsDone())
}

func TestRESTSourceIsDoneAfterLastProduct(t *testing.T) {
	srv := fakeKrakenServer(t)
	defer srv.Close()

	src := newTestRESTSource(t, srv, []string{"BTC/USD"})

	_, err := src.GetTrades(context.Background())
	require.NoError(t, err)
	_, err = src.GetTrades(context.Background())
	require.NoError(t, err)

	assert.True(t, src.IsDone())
	trades, err := src.GetTrades(context.Background())
	require.NoError(t, err)
	assert.Empty(t, trades)
}

func TestIsSSLError(t *testing.T) {
	assert.True(t, isSSLError(fmt.Errorf("x509: certificate signed by unknown authority")))
	assert.True(t, isSSLError(fmt.Errorf("tls: handshake failure")))
	assert.False(t, isSSLError(fmt.Errorf("connection refused")))
}
