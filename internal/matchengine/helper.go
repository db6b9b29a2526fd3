package matchengine

import (
	"github.com/shopspring/decimal"

	"github.com/purplecity/predictionmarket-sub000/internal/model"
)

func formatPrice(price int32) string {
	return decimal.New(int64(price), 0).Div(decimal.New(int64(model.PriceScale), 0)).String()
}

func formatQty(qty uint64) string {
	return decimal.New(int64(qty), 0).Div(decimal.New(model.QuantityScale, 0)).String()
}

// freezeVolume is the usdc amount an order of this price/quantity froze at
// submission time: price_decimal * quantity_decimal.
func freezeVolume(price int32, qty uint64) decimal.Decimal {
	return model.PriceToDecimal(price).Mul(model.QuantityToDecimal(qty))
}

// filledVolume sums the usdc amount actually traded across a set of fills.
func filledVolume(fills []model.Fill) decimal.Decimal {
	sum := decimal.Zero
	for _, f := range fills {
		sum = sum.Add(model.PriceToDecimal(f.MatchPrice).Mul(model.QuantityToDecimal(f.MatchQuantity)))
	}
	return sum
}
