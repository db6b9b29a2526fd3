package enginepipe

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/purplecity/predictionmarket-sub000/internal/model"
)

func TestOrderWire_RoundTrip(t *testing.T) {
	original := model.NewOrder("o1", model.Symbol{EventID: 1, MarketID: 2, TokenID: "tok0"}, model.Buy, model.Limit, 6000, 1000, 42, "privy-1", "Yes", 123)
	original.Fill(400)

	w := orderWire{}.from(&original)
	back := w.toOrder()

	assert.Equal(t, original, back)
}
