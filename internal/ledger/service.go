// Package ledger owns every balance-affecting mutation: deposits,
// withdrawals, order admission (freeze) and its reversal (reject/cancel),
// trade settlement, split/merge and redemption. Every method runs inside
// one Postgres transaction via jackc/pgx/v5, taking row locks on the
// touched positions in a fixed (user_id, token_id) order so two handlers
// racing on overlapping positions can never deadlock each other.
package ledger

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/purplecity/predictionmarket-sub000/internal/model"
)

// Service is the ledger's single entry point; every exported method opens
// its own transaction; Trade is handed one taker and its makers from a
// processor batch and records them all in one transaction.
type Service struct {
	pool *pgxpool.Pool
}

func NewService(pool *pgxpool.Pool) *Service {
	return &Service{pool: pool}
}

// Deposit credits balance, never checking against frozen_balance: an
// onchain deposit is additive and cannot be rejected for insufficient
// funds (there are none to be insufficient).
func (s *Service) Deposit(ctx context.Context, userID int64, eventID *int64, marketID *int16, tokenID, privyID, outcome, txHash string, amount decimal.Decimal) error {
	return withTx(ctx, s.pool, func(tx pgx.Tx) error {
		p, err := getOrCreatePosition(ctx, tx, userID, eventID, marketID, tokenID, privyID, outcome)
		if err != nil {
			return fmt.Errorf("get or create position: %w", err)
		}
		p.Balance = p.Balance.Add(amount)
		if _, err := savePosition(ctx, tx, *p); err != nil {
			return fmt.Errorf("save position: %w", err)
		}
		return recordHistory(ctx, tx, model.AssetHistory{
			UserID: userID, TokenID: tokenID, Type: model.AssetDeposit,
			Amount: amount, BalanceAfter: p.Balance, ReferenceID: txHash,
		})
	})
}

// Withdraw debits balance with no sufficiency check: a withdrawal is the
// user spending their own onchain-controlled funds, so it is never blocked
// up front and nothing is frozen for it; the balance may go negative.
func (s *Service) Withdraw(ctx context.Context, userID int64, tokenID, txHash string, amount decimal.Decimal) error {
	return withTx(ctx, s.pool, func(tx pgx.Tx) error {
		p, err := getPositionForUpdate(ctx, tx, userID, tokenID)
		if err != nil {
			return fmt.Errorf("get position: %w", err)
		}
		if p == nil {
			return fmt.Errorf("position not found for withdrawal: user=%d token=%s", userID, tokenID)
		}
		p.Balance = p.Balance.Sub(amount)
		if _, err := savePosition(ctx, tx, *p); err != nil {
			return fmt.Errorf("save position: %w", err)
		}
		return recordHistory(ctx, tx, model.AssetHistory{
			UserID: userID, TokenID: tokenID, Type: model.AssetWithdraw,
			Amount: amount.Neg(), BalanceAfter: p.Balance, ReferenceID: txHash,
		})
	})
}
