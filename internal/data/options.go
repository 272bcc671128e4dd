package data

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/sawpanic/tradegate/internal/domain"
)

// OptionsResult carries one read of options positioning for an asset.
type OptionsResult struct {
	Metrics *domain.OptionsMetrics
	AsOf    time.Time
}

// OptionsProvider yields options positioning for one asset.
type OptionsProvider interface {
	Fetch(ctx context.Context, asset string) (*OptionsResult, error)
}

// OptionsClient reads dealer positioning summaries from an options
// analytics REST API.
type OptionsClient struct {
	rc *restClient
}

func NewOptionsClient(cfg RESTConfig) *OptionsClient {
	return &OptionsClient{rc: newRESTClient("options", cfg)}
}

type optionsPayload struct {
	Symbol       string   `json:"symbol"`
	Stance       string   `json:"stance"`
	ComfortLower *float64 `json:"comfort_lower"`
	ComfortUpper *float64 `json:"comfort_upper"`
	StressLower  *float64 `json:"stress_lower"`
	StressUpper  *float64 `json:"stress_upper"`
	TermNote     string   `json:"term_note"`
	Timestamp    int64    `json:"timestamp_ms"`
	Expiries     []struct {
		Date     string  `json:"date"`
		OpenIntM float64 `json:"open_interest_m"`
		Stance   string  `json:"stance"`
		MaxPain  float64 `json:"max_pain"`
	} `json:"expiries"`
}

func (c *OptionsClient) Fetch(ctx context.Context, asset string) (*OptionsResult, error) {
	var payload optionsPayload
	path := "/v1/options/positioning?symbol=" + url.QueryEscape(asset)
	if err := c.rc.getJSON(ctx, path, &payload); err != nil {
		return nil, fmt.Errorf("options fetch %s: %w", asset, err)
	}

	metrics := &domain.OptionsMetrics{
		VolStance: parseStance(payload.Stance),
		TermNote:  payload.TermNote,
	}
	if r := rangeFrom(payload.ComfortLower, payload.ComfortUpper); r != nil {
		metrics.ComfortRange = r
	}
	if r := rangeFrom(payload.StressLower, payload.StressUpper); r != nil {
		metrics.StressRange = r
	}
	for _, e := range payload.Expiries {
		date, err := time.Parse("2006-01-02", e.Date)
		if err != nil {
			continue
		}
		metrics.KeyExpiries = append(metrics.KeyExpiries, domain.Expiry{
			Date:     date.UTC(),
			OpenIntM: e.OpenIntM,
			Stance:   parseStance(e.Stance),
			MaxPain:  e.MaxPain,
		})
	}

	return &OptionsResult{
		Metrics: metrics,
		AsOf:    time.UnixMilli(payload.Timestamp).UTC(),
	}, nil
}

func parseStance(s string) domain.VolStance {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "LONG_VOL", "LONG VOL":
		return domain.VolStanceLong
	case "SHORT_VOL", "SHORT VOL":
		return domain.VolStanceShort
	default:
		return domain.VolStanceUnclear
	}
}

func rangeFrom(lower, upper *float64) *domain.PriceRange {
	if lower == nil || upper == nil || *upper <= *lower {
		return nil
	}
	return &domain.PriceRange{Lower: *lower, Upper: *upper}
}
