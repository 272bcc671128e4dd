package data

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/sawpanic/tradegate/internal/domain"
)

// WhaleResult carries one read of large-trade order-flow telemetry.
type WhaleResult struct {
	Metrics *domain.WhaleMetrics
	AsOf    time.Time
}

// WhaleProvider yields whale order-flow telemetry for one asset.
type WhaleProvider interface {
	Fetch(ctx context.Context, asset string) (*WhaleResult, error)
}

// WhaleStreamConfig tunes the trade-stream consumer.
type WhaleStreamConfig struct {
	URL               string        `yaml:"url"`
	WhaleThresholdUSD float64       `yaml:"whale_threshold_usd"`
	BubbleSizeUSD     float64       `yaml:"bubble_size_usd"`
	BandWidthPct      float64       `yaml:"band_width_pct"`
	ReconnectBackoff  time.Duration `yaml:"reconnect_backoff"`
}

// DefaultWhaleStreamConfig returns consumer settings tuned for major pairs.
func DefaultWhaleStreamConfig(url string) WhaleStreamConfig {
	return WhaleStreamConfig{
		URL:               url,
		WhaleThresholdUSD: 250_000,
		BubbleSizeUSD:     1_000_000,
		BandWidthPct:      2.0,
		ReconnectBackoff:  5 * time.Second,
	}
}

// tradePrint is one trade message off the venue stream.
type tradePrint struct {
	Symbol    string  `json:"symbol"`
	Price     float64 `json:"price"`
	SizeUSD   float64 `json:"size_usd"`
	Side      string  `json:"side"` // "buy" or "sell"
	Timestamp int64   `json:"timestamp_ms"`
}

// WhaleStream consumes a venue trade websocket and maintains rolling
// 24h/7d windows per asset. Fetch reads the current aggregates; it does
// no network work itself.
type WhaleStream struct {
	cfg   WhaleStreamConfig
	nowFn func() time.Time

	mu     sync.RWMutex
	trades map[string][]tradePrint // per asset, ordered by arrival
	lastAt map[string]time.Time
}

func NewWhaleStream(cfg WhaleStreamConfig) *WhaleStream {
	return &WhaleStream{
		cfg:    cfg,
		nowFn:  time.Now,
		trades: make(map[string][]tradePrint),
		lastAt: make(map[string]time.Time),
	}
}

// Run connects to the trade stream and consumes until ctx is cancelled,
// reconnecting on errors.
func (s *WhaleStream) Run(ctx context.Context, assets []string) error {
	for {
		if err := s.consume(ctx, assets); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Warn().Err(err).Str("url", s.cfg.URL).Msg("Trade stream dropped, reconnecting")
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.cfg.ReconnectBackoff):
		}
	}
}

func (s *WhaleStream) consume(ctx context.Context, assets []string) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.cfg.URL, nil)
	if err != nil {
		return fmt.Errorf("dial trade stream: %w", err)
	}
	defer conn.Close()

	sub := map[string]interface{}{"op": "subscribe", "channel": "trades", "symbols": assets}
	if err := conn.WriteJSON(sub); err != nil {
		return fmt.Errorf("subscribe trades: %w", err)
	}
	log.Info().Str("url", s.cfg.URL).Strs("assets", assets).Msg("Trade stream connected")

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		var print tradePrint
		if err := json.Unmarshal(raw, &print); err != nil || print.Symbol == "" || print.Price <= 0 {
			continue
		}
		s.record(print)
	}
}

func (s *WhaleStream) record(print tradePrint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trades[print.Symbol] = append(s.trades[print.Symbol], print)
	s.lastAt[print.Symbol] = s.nowFn()
	// Evict prints older than the 7d window.
	cutoff := s.nowFn().Add(-7 * 24 * time.Hour).UnixMilli()
	window := s.trades[print.Symbol]
	idx := 0
	for idx < len(window) && window[idx].Timestamp < cutoff {
		idx++
	}
	if idx > 0 {
		s.trades[print.Symbol] = append([]tradePrint(nil), window[idx:]...)
	}
}

// Fetch aggregates the in-memory window into WhaleMetrics. Assets with
// no prints yet return an error so the facade marks the source missing.
func (s *WhaleStream) Fetch(_ context.Context, asset string) (*WhaleResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	window := s.trades[asset]
	now := s.nowFn()
	cut24h := now.Add(-24 * time.Hour).UnixMilli()
	// Eviction only runs on arrival, so a quiet stream can still hold
	// prints that have aged past the window.
	cut7d := now.Add(-7 * 24 * time.Hour).UnixMilli()

	var cvd24h, cvd7d, whaleVol, totalVol, pv float64
	var bubbles []domain.BubbleEvent
	inWindow := 0
	for _, t := range window {
		if t.Timestamp < cut7d {
			continue
		}
		inWindow++
		signed := t.SizeUSD
		if t.Side == "sell" {
			signed = -t.SizeUSD
		}
		cvd7d += signed
		if t.Timestamp >= cut24h {
			cvd24h += signed
			totalVol += t.SizeUSD
			pv += t.Price * t.SizeUSD
			if t.SizeUSD >= s.cfg.WhaleThresholdUSD {
				whaleVol += t.SizeUSD
			}
			if t.SizeUSD >= s.cfg.BubbleSizeUSD {
				bubbles = append(bubbles, domain.BubbleEvent{
					Timestamp: time.UnixMilli(t.Timestamp).UTC(),
					Price:     t.Price,
					SizeUSD:   t.SizeUSD,
					Side:      t.Side,
				})
			}
		}
	}

	if inWindow == 0 {
		return nil, fmt.Errorf("whale stream: no prints for %s within the window", asset)
	}

	metrics := &domain.WhaleMetrics{
		CVD24h:        cvd24h,
		CVD7d:         cvd7d,
		RecentBubbles: bubbles,
	}
	if totalVol > 0 {
		metrics.WhaleVolumeRatio = whaleVol / totalVol
		vwap := pv / totalVol
		half := vwap * s.cfg.BandWidthPct / 100.0
		metrics.VWAP = vwap
		metrics.VWAPBands = &domain.PriceRange{
			Lower: math.Max(0, vwap-half),
			Upper: vwap + half,
		}
	}

	return &WhaleResult{Metrics: metrics, AsOf: s.lastAt[asset]}, nil
}
