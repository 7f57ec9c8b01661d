package yahoo

import "time"

// HistoricalPrice represents a single daily OHLCV bar.
// Yahoo reports null for sessions without data, so price fields are optional.
type HistoricalPrice struct {
	Date     time.Time `json:"date"`
	Open     *float64  `json:"open,omitempty"`
	High     *float64  `json:"high,omitempty"`
	Low      *float64  `json:"low,omitempty"`
	Close    *float64  `json:"close,omitempty"`
	AdjClose *float64  `json:"adj_close,omitempty"`
	Volume   int64     `json:"volume"`
}

// Price returns the adjusted close when present, else the close
func (p HistoricalPrice) Price() (float64, bool) {
	if p.AdjClose != nil {
		return *p.AdjClose, true
	}
	if p.Close != nil {
		return *p.Close, true
	}
	return 0, false
}

// chartResponse is the v8 chart API payload
type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *chartError   `json:"error"`
	} `json:"chart"`
}

type chartError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

type chartResult struct {
	Meta struct {
		Symbol   string `json:"symbol"`
		Currency string `json:"currency"`
	} `json:"meta"`
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote []struct {
			Open   []*float64 `json:"open"`
			High   []*float64 `json:"high"`
			Low    []*float64 `json:"low"`
			Close  []*float64 `json:"close"`
			Volume []*int64   `json:"volume"`
		} `json:"quote"`
		AdjClose []struct {
			AdjClose []*float64 `json:"adjclose"`
		} `json:"adjclose"`
	} `json:"indicators"`
}
