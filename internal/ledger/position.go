package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/purplecity/predictionmarket-sub000/internal/model"
)

// getPositionForUpdate takes a row lock on one (user_id, token_id)
// position, returning (nil, nil) if it does not exist yet — callers that
// need it to exist call getOrCreatePosition instead.
func getPositionForUpdate(ctx context.Context, tx pgx.Tx, userID int64, tokenID string) (*model.Position, error) {
	row := tx.QueryRow(ctx, `SELECT user_id, token_id, event_id, market_id, balance, frozen_balance,
		usdc_cost, avg_price, redeemed, payout, redeemed_at, update_id
		FROM positions WHERE user_id = $1 AND token_id = $2 FOR UPDATE`, userID, tokenID)

	var redeemedAt *time.Time
	var p model.Position
	err := row.Scan(&p.UserID, &p.TokenID, &p.EventID, &p.MarketID, &p.Balance, &p.FrozenBalance,
		&p.UsdcCost, &p.AvgPrice, &p.Redeemed, &p.Payout, &redeemedAt, &p.UpdateID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if redeemedAt != nil {
		p.RedeemedAtMs = redeemedAt.UnixMilli()
	}
	return &p, nil
}

// getOrCreatePosition locks the position row if it exists, or inserts a
// fresh zero-balance row for it. The USDC sentinel position carries nil
// usdc_cost/avg_price/redeemed/payout; every outcome-token position starts
// those at zero/false.
func getOrCreatePosition(ctx context.Context, tx pgx.Tx, userID int64, eventID *int64, marketID *int16, tokenID, privyID, outcome string) (*model.Position, error) {
	if p, err := getPositionForUpdate(ctx, tx, userID, tokenID); err != nil {
		return nil, err
	} else if p != nil {
		return p, nil
	}

	now := time.Now()
	p := &model.Position{
		UserID: userID, TokenID: tokenID, EventID: eventID, MarketID: marketID,
		Balance: decimal.Zero, FrozenBalance: decimal.Zero, UpdateID: 1,
	}
	if tokenID != model.USDCTokenID {
		zero := decimal.Zero
		redeemedFalse := false
		p.UsdcCost, p.AvgPrice, p.Redeemed = &zero, &zero, &redeemedFalse
	}

	_, err := tx.Exec(ctx, `INSERT INTO positions
		(user_id, token_id, event_id, market_id, balance, frozen_balance, usdc_cost, avg_price, redeemed, payout, privy_id, outcome_name, update_id, updated_at, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$14)`,
		p.UserID, p.TokenID, p.EventID, p.MarketID, p.Balance, p.FrozenBalance,
		p.UsdcCost, p.AvgPrice, p.Redeemed, p.Payout, privyID, outcome, p.UpdateID, now)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// savePosition persists balance/frozen/usdc_cost/avg_price/redeemed/payout
// and bumps update_id, returning the new value. update_id lets downstream
// readers (position-stream consumers, the API's cache) detect a position
// changed without diffing the whole row.
func savePosition(ctx context.Context, tx pgx.Tx, p model.Position) (int64, error) {
	var redeemedAt *time.Time
	if p.RedeemedAtMs != 0 {
		t := time.UnixMilli(p.RedeemedAtMs)
		redeemedAt = &t
	}
	var updateID int64
	err := tx.QueryRow(ctx, `UPDATE positions
		SET balance = $3, frozen_balance = $4, usdc_cost = $5, avg_price = $6, redeemed = $7, payout = $8, redeemed_at = $9, update_id = update_id + 1, updated_at = $10
		WHERE user_id = $1 AND token_id = $2
		RETURNING update_id`,
		p.UserID, p.TokenID, p.Balance, p.FrozenBalance, p.UsdcCost, p.AvgPrice, p.Redeemed, p.Payout, redeemedAt, time.Now(),
	).Scan(&updateID)
	return updateID, err
}

// recordHistory inserts one audit row; always called in the same
// transaction as the balance mutation it explains.
func recordHistory(ctx context.Context, tx pgx.Tx, h model.AssetHistory) error {
	_, err := tx.Exec(ctx, `INSERT INTO asset_history
		(user_id, token_id, type, amount, balance_after, reference_id, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		h.UserID, h.TokenID, h.Type, h.Amount, h.BalanceAfter, h.ReferenceID, time.Now())
	return err
}

// withTx runs fn inside a read-committed transaction (row locks come from
// SELECT ... FOR UPDATE), committing on success and rolling back on any
// error returned or panic raised by fn. The rollback error is discarded,
// and a panic is re-raised once the rollback has run.
func withTx(ctx context.Context, pool *pgxpool.Pool, fn func(tx pgx.Tx) error) (err error) {
	tx, err := pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return err
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback(ctx)
			return
		}
		err = tx.Commit(ctx)
	}()
	return fn(tx)
}
