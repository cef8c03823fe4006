package models

type AlertKind string

const (
	AlertCriticalLoss    AlertKind = "critical_loss"
	AlertPriceDrop       AlertKind = "price_drop"
	AlertConcentration   AlertKind = "concentration"
	AlertFuturesExposure AlertKind = "futures_exposure"
)

// Alert is a threshold breach. Account-wide alerts have no Asset.
type Alert struct {
	Asset     string    `json:"asset,omitempty"`
	Kind      AlertKind `json:"kind"`
	Value     float64   `json:"value"`
	Threshold float64   `json:"threshold"`
	Message   string    `json:"message"`
}

// Key identifies an alert independently of its current value, so a
// repeated evaluation can tell which alerts are new.
func (a Alert) Key() string {
	return a.Asset + ":" + string(a.Kind)
}
