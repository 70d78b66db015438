package domain

import "math"

// BytesPerTiB is the billing unit of on-demand warehouse scans.
const BytesPerTiB = 1 << 40

// DefaultPricePerTiB is the on-demand scan price in USD.
const DefaultPricePerTiB = 5.0

// CostEstimate is the outcome of a warehouse dry run.
type CostEstimate struct {
	Operation string  `json:"operation"`
	Table     string  `json:"table"`
	Bytes     int64   `json:"bytes"`
	USD       float64 `json:"usd"`
}

// EstimateCost prices a byte count, rounded to four decimals.
func EstimateCost(bytes int64, pricePerTiB float64) float64 {
	usd := float64(bytes) / BytesPerTiB * pricePerTiB
	return math.Round(usd*1e4) / 1e4
}
