package onchain

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/purplecity/predictionmarket-sub000/internal/model"
)

// MarketLookup resolves the identifiers an onchain action carries (a
// single token id, or a market's condition id) into the event/market/
// outcome fields the ledger needs. Deposit and Withdraw carry a token id
// directly; Split, Merge and Redeem carry a condition id because the vault
// contract mints and burns both outcome tokens of a market together.
type MarketLookup interface {
	ByTokenID(ctx context.Context, tokenID string) (eventID int64, marketID int16, outcome string, err error)
	ByConditionID(ctx context.Context, conditionID string) (m model.Market, err error)
}

// PgMarketLookup queries the Postgres markets table directly.
type PgMarketLookup struct {
	pool *pgxpool.Pool
}

func NewPgMarketLookup(pool *pgxpool.Pool) *PgMarketLookup {
	return &PgMarketLookup{pool: pool}
}

func (l *PgMarketLookup) ByTokenID(ctx context.Context, tokenID string) (int64, int16, string, error) {
	var eventID int64
	var marketID int16
	var outcome0, outcome1, token0ID string
	err := l.pool.QueryRow(ctx, `SELECT event_id, market_id, token0_id, outcome0_name, outcome1_name
		FROM markets WHERE token0_id = $1 OR token1_id = $1`, tokenID).
		Scan(&eventID, &marketID, &token0ID, &outcome0, &outcome1)
	if err != nil {
		return 0, 0, "", fmt.Errorf("lookup token %s: %w", tokenID, err)
	}
	if token0ID == tokenID {
		return eventID, marketID, outcome0, nil
	}
	return eventID, marketID, outcome1, nil
}

func (l *PgMarketLookup) ByConditionID(ctx context.Context, conditionID string) (model.Market, error) {
	var m model.Market
	err := l.pool.QueryRow(ctx, `SELECT event_id, market_id, token0_id, token1_id, outcome0_name, outcome1_name
		FROM markets WHERE condition_id = $1`, conditionID).
		Scan(&m.EventID, &m.MarketID, &m.TokenIDs[0], &m.TokenIDs[1], &m.OutcomeNames[0], &m.OutcomeNames[1])
	if err != nil {
		return model.Market{}, fmt.Errorf("lookup condition %s: %w", conditionID, err)
	}
	return m, nil
}
