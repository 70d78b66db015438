package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEstimateCost(t *testing.T) {
	assert.Equal(t, 5.0, EstimateCost(BytesPerTiB, DefaultPricePerTiB))
	assert.Equal(t, 0.0, EstimateCost(0, DefaultPricePerTiB))
	// 10 GiB at $5/TiB = 0.048828125 -> 0.0488
	assert.Equal(t, 0.0488, EstimateCost(10<<30, DefaultPricePerTiB))
	assert.InDelta(t, 0.0024, EstimateCost(512<<20, DefaultPricePerTiB), 1e-9)
}
