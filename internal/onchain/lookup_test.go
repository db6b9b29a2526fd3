package onchain

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/purplecity/predictionmarket-sub000/internal/model"
)

type fakeLookup struct {
	tokenEventID  int64
	tokenMarketID int16
	tokenOutcome  string
	market        model.Market
}

func (f fakeLookup) ByTokenID(ctx context.Context, tokenID string) (int64, int16, string, error) {
	return f.tokenEventID, f.tokenMarketID, f.tokenOutcome, nil
}

func (f fakeLookup) ByConditionID(ctx context.Context, conditionID string) (model.Market, error) {
	return f.market, nil
}

func TestFakeLookup_SatisfiesInterface(t *testing.T) {
	var l MarketLookup = fakeLookup{
		tokenEventID: 7, tokenMarketID: 2, tokenOutcome: "YES",
		market: model.Market{EventID: 7, MarketID: 2, TokenIDs: [2]string{"t0", "t1"}, OutcomeNames: [2]string{"YES", "NO"}},
	}
	eventID, marketID, outcome, err := l.ByTokenID(context.Background(), "t0")
	assert.NoError(t, err)
	assert.Equal(t, int64(7), eventID)
	assert.Equal(t, int16(2), marketID)
	assert.Equal(t, "YES", outcome)

	m, err := l.ByConditionID(context.Background(), "cond-1")
	assert.NoError(t, err)
	assert.Equal(t, [2]string{"t0", "t1"}, m.TokenIDs)
}
