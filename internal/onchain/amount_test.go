package onchain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestNormalizeAmount(t *testing.T) {
	got, err := NormalizeAmount("1500000000000000000")
	assert.NoError(t, err)
	assert.True(t, decimal.NewFromFloat(1.5).Equal(got))
}

func TestNormalizeAmount_InvalidString(t *testing.T) {
	_, err := NormalizeAmount("not-a-number")
	assert.Error(t, err)
}

func TestScaleToOnchain(t *testing.T) {
	assert.Equal(t, "1500000000000000000", ScaleToOnchain(decimal.NewFromFloat(1.5)))
}

func TestNormalizeThenScale_RoundTrips(t *testing.T) {
	got, err := NormalizeAmount("42000000000000000000")
	assert.NoError(t, err)
	assert.Equal(t, "42000000000000000000", ScaleToOnchain(got))
}
