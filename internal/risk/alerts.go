package risk

import (
	"fmt"
	"sync"

	"github.com/kjannette/binance-dash/internal/models"
)

// Limits holds the alert thresholds from config.
// A zero value for any field means that check is disabled.
type Limits struct {
	CriticalLossPercent  float64
	PriceDropPercent     float64
	ConcentrationPercent float64
	MaxFuturesPositions  int
}

// Exposure is the account state the alerts are evaluated against.
type Exposure struct {
	PnL              []models.CostBasisResult
	Balances         []models.Balance // sorted by value, descending
	TotalValue       float64
	FuturesPositions int
}

type AlertEvaluator struct {
	limits Limits
}

func NewAlertEvaluator(limits Limits) *AlertEvaluator {
	return &AlertEvaluator{limits: limits}
}

func (e *AlertEvaluator) Limits() Limits {
	return e.limits
}

// Evaluate returns every alert that currently holds, in a stable order:
// per-asset losses, per-asset 24h drops, then account-wide checks.
func (e *AlertEvaluator) Evaluate(x Exposure) []models.Alert {
	alerts := []models.Alert{}

	if lim := e.limits.CriticalLossPercent; lim > 0 {
		for _, p := range x.PnL {
			if p.PnLPercent < -lim {
				alerts = append(alerts, models.Alert{
					Asset:     p.Asset,
					Kind:      models.AlertCriticalLoss,
					Value:     p.PnLPercent,
					Threshold: -lim,
					Message:   fmt.Sprintf("%s is down %.2f%% from its cost basis (threshold -%.2f%%)", p.Asset, -p.PnLPercent, lim),
				})
			}
		}
	}

	if lim := e.limits.PriceDropPercent; lim > 0 {
		for _, b := range x.Balances {
			if b.Change24h < -lim {
				alerts = append(alerts, models.Alert{
					Asset:     b.Asset,
					Kind:      models.AlertPriceDrop,
					Value:     b.Change24h,
					Threshold: -lim,
					Message:   fmt.Sprintf("%s dropped %.2f%% in 24h (threshold -%.2f%%)", b.Asset, -b.Change24h, lim),
				})
			}
		}
	}

	if lim := e.limits.ConcentrationPercent; lim > 0 && x.TotalValue > 0 {
		var top float64
		for i := 0; i < len(x.Balances) && i < 3; i++ {
			top += x.Balances[i].ValueUSD
		}
		if share := top / x.TotalValue * 100; share > lim {
			alerts = append(alerts, models.Alert{
				Kind:      models.AlertConcentration,
				Value:     share,
				Threshold: lim,
				Message:   fmt.Sprintf("top 3 holdings are %.0f%% of spot value (threshold %.0f%%)", share, lim),
			})
		}
	}

	if lim := e.limits.MaxFuturesPositions; lim > 0 && x.FuturesPositions > lim {
		alerts = append(alerts, models.Alert{
			Kind:      models.AlertFuturesExposure,
			Value:     float64(x.FuturesPositions),
			Threshold: float64(lim),
			Message:   fmt.Sprintf("%d open futures positions (threshold %d)", x.FuturesPositions, lim),
		})
	}

	return alerts
}

// Tracker remembers which alerts were active on the previous evaluation.
type Tracker struct {
	mu     sync.Mutex
	active map[string]struct{}
}

func NewTracker() *Tracker {
	return &Tracker{active: make(map[string]struct{})}
}

// Update records current as the active set and returns the alerts that
// were not active before. Cleared alerts can be raised again later.
func (t *Tracker) Update(current []models.Alert) []models.Alert {
	t.mu.Lock()
	defer t.mu.Unlock()

	next := make(map[string]struct{}, len(current))
	var raised []models.Alert
	for _, a := range current {
		k := a.Key()
		next[k] = struct{}{}
		if _, ok := t.active[k]; !ok {
			raised = append(raised, a)
		}
	}
	t.active = next
	return raised
}
