package ledger

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/purplecity/predictionmarket-sub000/internal/model"
)

func TestFreezeLeg_BuyFreezesUSDCVolume(t *testing.T) {
	tokenID, amount := freezeLeg(model.Buy, "TOKEN_0", decimal.NewFromInt(10), decimal.NewFromInt(6000))

	assert.Equal(t, model.USDCTokenID, tokenID)
	assert.True(t, decimal.NewFromInt(6000).Equal(amount))
}

func TestFreezeLeg_SellFreezesTokenQuantity(t *testing.T) {
	tokenID, amount := freezeLeg(model.Sell, "TOKEN_1", decimal.NewFromInt(10), decimal.NewFromInt(6000))

	assert.Equal(t, "TOKEN_1", tokenID)
	assert.True(t, decimal.NewFromInt(10).Equal(amount))
}
