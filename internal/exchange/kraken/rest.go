package kraken

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"marketpipeline/internal/model"
)

// RESTURL is Kraken's public REST trades endpoint (spec.md §6).
const RESTURL = "https://api.kraken.com/0/public/Trades"

const (
	nanosPerSecond = int64(time.Second)
	secondsPerDay  = int64(24 * time.Hour / time.Second)
	// sslRetryDelay is the fixed backoff spec.md §4.1 specifies for SSL
	// errors talking to the exchange.
	sslRetryDelay = 10 * time.Second
)

// restResponse mirrors the original's `{result: {<pair>: [...], last},
// error}` envelope (spec.md §6).
type restResponse struct {
	Error  []string                     `json:"error"`
	Result map[string]json.RawMessage `json:"result"`
}

// RESTSource backfills trades for a list of pairs sequentially via
// Kraken's REST API, paginating on the `result.last` cursor, adapted
// from the original's KrakenRestAPI (kraken_rest_api.py) into the same
// TradeSource capability the live source implements.
type RESTSource struct {
	httpClient *http.Client
	logger     *zap.Logger
	limiter    *rate.Limiter
	baseURL    string

	mu              sync.Mutex
	productIDs      []string
	productIndex    int
	sinceNs         int64
	originalSinceNs int64
	done            bool
}

// NewRESTSource builds a backfill source starting `lastNDays` days before
// now, throttled to requestsPerSecond REST calls per second (spec.md §9's
// open question on backfill rate limiting).
func NewRESTSource(productIDs []string, lastNDays int, requestsPerSecond float64, logger *zap.Logger) *RESTSource {
	sinceNs := time.Now().UnixNano() - int64(lastNDays)*secondsPerDay*nanosPerSecond
	return &RESTSource{
		httpClient:      &http.Client{Timeout: 30 * time.Second},
		logger:          logger,
		limiter:         rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
		baseURL:         RESTURL,
		productIDs:      productIDs,
		sinceNs:         sinceNs,
		originalSinceNs: sinceNs,
	}
}

// GetTrades fetches the next page of trades for the current pair. An
// empty, nil-error result means "nothing this round, try again" — the
// driver loop ticks and calls back in (spec.md §4.1's per-round retry
// semantics for transport errors and API-level error arrays).
func (s *RESTSource) GetTrades(ctx context.Context) ([]model.Trade, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.done || s.productIndex >= len(s.productIDs) {
		s.done = true
		return nil, nil
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return nil, nil
	}

	pair := s.productIDs[s.productIndex]
	resp, err := s.request(ctx, pair, s.sinceNs)
	if err != nil {
		if isSSLError(err) {
			s.logger.Error("SSL error connecting to kraken REST API, backing off", zap.Error(err))
			select {
			case <-time.After(sslRetryDelay):
			case <-ctx.Done():
			}
			return nil, nil
		}
		s.logger.Warn("kraken REST request failed, will retry next tick", zap.Error(err))
		return nil, nil
	}

	if len(resp.Error) > 0 {
		s.logger.Warn("kraken REST API returned an error payload, skipping round", zap.Strings("error", resp.Error))
		return nil, nil
	}

	rawTrades, ok := resp.Result[pair]
	if !ok {
		s.logger.Warn("kraken REST response missing result for pair", zap.String("pair", pair))
		return nil, nil
	}

	var entries [][]json.Number
	if err := json.Unmarshal(rawTrades, &entries); err != nil {
		s.logger.Warn("failed to decode kraken trade entries, skipping round", zap.String("pair", pair), zap.Error(err))
		return nil, nil
	}

	trades := make([]model.Trade, 0, len(entries))
	for _, e := range entries {
		if len(e) < 3 {
			continue
		}
		price, err := decimal.NewFromString(e[0].String())
		if err != nil {
			continue
		}
		qty, err := decimal.NewFromString(e[1].String())
		if err != nil {
			continue
		}
		tsSec, err := e[2].Float64()
		if err != nil {
			continue
		}
		trades = append(trades, model.Trade{
			Pair:        pair,
			Price:       price,
			Quantity:    qty,
			TimestampMs: int64(tsSec * 1000),
		})
	}

	s.advanceCursor(resp)
	return trades, nil
}

// request issues one GET /Trades?pair=...&since=... call.
func (s *RESTSource) request(ctx context.Context, pair string, sinceNs int64) (*restResponse, error) {
	u, err := url.Parse(s.baseURL)
	if err != nil {
		return nil, err
	}
	q := u.Query()
	q.Set("pair", pair)
	q.Set("since", strconv.FormatInt(sinceNs, 10))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	httpResp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, err
	}
	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("kraken REST API returned status %d", httpResp.StatusCode)
	}

	var resp restResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// advanceCursor updates sinceNs from result.last and moves to the next
// pair once the cursor has caught up to "now", matching the original's
// `_update_timestamp`/`_move_to_next_product`.
func (s *RESTSource) advanceCursor(resp *restResponse) {
	lastRaw, ok := resp.Result["last"]
	if !ok {
		s.moveToNextProduct()
		return
	}
	var lastStr string
	if err := json.Unmarshal(lastRaw, &lastStr); err != nil {
		s.moveToNextProduct()
		return
	}
	last, err := strconv.ParseFloat(lastStr, 64)
	if err != nil {
		s.moveToNextProduct()
		return
	}
	s.sinceNs = int64(last)

	if s.sinceNs > time.Now().UnixNano()-nanosPerSecond {
		s.moveToNextProduct()
	}
}

func (s *RESTSource) moveToNextProduct() {
	s.productIndex++
	if s.productIndex >= len(s.productIDs) {
		s.done = true
		s.logger.Info("finished backfilling all configured pairs")
		return
	}
	s.sinceNs = s.originalSinceNs
	s.logger.Info("moving to next pair for historical backfill", zap.String("pair", s.productIDs[s.productIndex]))
}

// IsDone reports whether every configured pair has been backfilled up to
// "now" (spec.md §4.1).
func (s *RESTSource) IsDone() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}

// Close is a no-op: the REST source owns no persistent connection beyond
// the shared *http.Client.
func (s *RESTSource) Close() error { return nil }

// isSSLError reports whether err looks like a TLS/certificate failure,
// matching the original's `requests.exceptions.SSLError` branch
// (kraken_rest_api.py) which Go's net/http surfaces as a wrapped
// crypto/tls error rather than a distinct exception type.
func isSSLError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "tls:") || strings.Contains(msg, "certificate") || strings.Contains(msg, "x509")
}
