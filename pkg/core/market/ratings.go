package market

import (
	"context"
	"sort"
	"time"
)

// RecommendationTrend counts analyst ratings for one period ("0m", "-1m").
type RecommendationTrend struct {
	Period     string `json:"period"`
	StrongBuy  int    `json:"strong_buy"`
	Buy        int    `json:"buy"`
	Hold       int    `json:"hold"`
	Sell       int    `json:"sell"`
	StrongSell int    `json:"strong_sell"`
}

// Total is the number of analysts counted.
func (r RecommendationTrend) Total() int {
	return r.StrongBuy + r.Buy + r.Hold + r.Sell + r.StrongSell
}

// GradeChange is a single upgrade or downgrade.
type GradeChange struct {
	Date      time.Time `json:"date"`
	Firm      string    `json:"firm"`
	FromGrade string    `json:"from_grade,omitempty"`
	ToGrade   string    `json:"to_grade"`
	Action    string    `json:"action"`
}

// Ratings combines the recommendation trend and recent grade changes.
type Ratings struct {
	Trend   []RecommendationTrend `json:"trend"`
	Changes []GradeChange         `json:"changes"`
}

// FetchRatings returns analyst recommendations, newest grade change first,
// capped at limit changes.
func (c *Client) FetchRatings(ctx context.Context, ticker string, limit int) (Ratings, error) {
	t, err := normalizeTicker(ticker)
	if err != nil {
		return Ratings{}, err
	}
	qs, err := c.quoteSummary(ctx, t, []string{"recommendationTrend", "upgradeDowngradeHistory"})
	if err != nil {
		return Ratings{}, err
	}

	var r Ratings
	for _, tr := range qs.RecommendationTrend.Trend {
		r.Trend = append(r.Trend, RecommendationTrend(tr))
	}
	for _, h := range qs.UpgradeDowngradeHistory.History {
		r.Changes = append(r.Changes, GradeChange{
			Date:      time.Unix(h.EpochGradeDate, 0).UTC(),
			Firm:      h.Firm,
			FromGrade: h.FromGrade,
			ToGrade:   h.ToGrade,
			Action:    h.Action,
		})
	}
	sort.SliceStable(r.Changes, func(i, j int) bool { return r.Changes[i].Date.After(r.Changes[j].Date) })
	if limit > 0 && len(r.Changes) > limit {
		r.Changes = r.Changes[:limit]
	}
	return r, nil
}
