package data

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/sawpanic/tradegate/internal/domain"
)

// DerivsResult carries one venue read of price, funding, open interest
// and liquidation clusters.
type DerivsResult struct {
	Price    float64
	Exchange string
	Metrics  *domain.ExchangeMetrics
	AsOf     time.Time
}

// DerivsProvider yields derivatives positioning for one asset.
type DerivsProvider interface {
	Fetch(ctx context.Context, asset string) (*DerivsResult, error)
}

// DerivsClient reads perpetual stats from a venue's public REST API.
type DerivsClient struct {
	rc       *restClient
	exchange string
}

func NewDerivsClient(exchange string, cfg RESTConfig) *DerivsClient {
	return &DerivsClient{
		rc:       newRESTClient("derivs-"+exchange, cfg),
		exchange: exchange,
	}
}

type derivsPayload struct {
	Symbol       string  `json:"symbol"`
	MarkPrice    float64 `json:"mark_price"`
	FundingRate  float64 `json:"funding_rate"`
	OpenInterest float64 `json:"open_interest_usd"`
	OIChange24h  float64 `json:"oi_change_24h_pct"`
	Timestamp    int64   `json:"timestamp_ms"`
	LiqClusters  []struct {
		Price     float64 `json:"price"`
		NotionalM float64 `json:"notional_m"`
		Side      string  `json:"side"`
	} `json:"liquidation_clusters"`
}

func (c *DerivsClient) Fetch(ctx context.Context, asset string) (*DerivsResult, error) {
	var payload derivsPayload
	path := "/v1/perp/stats?symbol=" + url.QueryEscape(asset)
	if err := c.rc.getJSON(ctx, path, &payload); err != nil {
		return nil, fmt.Errorf("derivs fetch %s: %w", asset, err)
	}
	if payload.MarkPrice <= 0 {
		return nil, fmt.Errorf("derivs fetch %s: venue returned non-positive mark price", asset)
	}
	levels := make([]domain.LiquidationCluster, 0, len(payload.LiqClusters))
	for _, lc := range payload.LiqClusters {
		if lc.Price > 0 {
			levels = append(levels, domain.LiquidationCluster{
				Price:     lc.Price,
				NotionalM: lc.NotionalM,
				Side:      lc.Side,
			})
		}
	}
	asOf := time.UnixMilli(payload.Timestamp).UTC()
	return &DerivsResult{
		Price:    payload.MarkPrice,
		Exchange: c.exchange,
		Metrics: &domain.ExchangeMetrics{
			FundingRate:       payload.FundingRate,
			OpenInterest:      payload.OpenInterest,
			OIChange24h:       payload.OIChange24h,
			LiquidationLevels: levels,
		},
		AsOf: asOf,
	}, nil
}
