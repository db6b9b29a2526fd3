package ledger

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/purplecity/predictionmarket-sub000/internal/model"
)

// freezeLeg returns which token and how much of it an order of this side
// locks up: a buy freezes USDC equal to its quoted volume (price*quantity
// for a limit order, the target volume for a market buy); a sell freezes
// the outcome token itself.
func freezeLeg(side model.Side, tokenID string, quantity, volume decimal.Decimal) (freezeTokenID string, freezeAmount decimal.Decimal) {
	if side == model.Buy {
		return model.USDCTokenID, volume
	}
	return tokenID, quantity
}

// CreateOrder freezes the admitted order's collateral leg before the order
// is allowed to enter the book: a buy locks USDC, a sell locks the
// outcome token. Returns model.ErrInsufficientBalance if the free balance
// can't cover it, in which case nothing is frozen.
func (s *Service) CreateOrder(ctx context.Context, userID int64, tokenID string, side model.Side, quantity, volume decimal.Decimal) error {
	freezeTokenID, freezeAmount := freezeLeg(side, tokenID, quantity, volume)

	return withTx(ctx, s.pool, func(tx pgx.Tx) error {
		p, err := getPositionForUpdate(ctx, tx, userID, freezeTokenID)
		if err != nil {
			return fmt.Errorf("get position: %w", err)
		}
		if p == nil {
			return fmt.Errorf("%w: user=%d token=%s has no position to freeze against", model.ErrInsufficientBalance, userID, freezeTokenID)
		}
		if p.Balance.LessThan(freezeAmount) {
			return fmt.Errorf("%w: user=%d token=%s balance=%s freeze_amount=%s", model.ErrInsufficientBalance, userID, freezeTokenID, p.Balance, freezeAmount)
		}

		p.Balance = p.Balance.Sub(freezeAmount)
		p.FrozenBalance = p.FrozenBalance.Add(freezeAmount)
		if _, err := savePosition(ctx, tx, *p); err != nil {
			return fmt.Errorf("save position: %w", err)
		}
		return recordHistory(ctx, tx, model.AssetHistory{
			UserID: userID, TokenID: freezeTokenID, Type: model.AssetOrderFreeze,
			Amount: freezeAmount.Neg(), BalanceAfter: p.Balance,
		})
	})
}

// unfreeze reverses CreateOrder's hold on amount of tokenID: used both by
// an outright order rejection (the whole freeze reverses) and by a partial
// or full cancellation (only the unfilled remainder reverses).
func (s *Service) unfreeze(ctx context.Context, userID int64, tokenID, orderID string, amount decimal.Decimal) error {
	return withTx(ctx, s.pool, func(tx pgx.Tx) error {
		p, err := getPositionForUpdate(ctx, tx, userID, tokenID)
		if err != nil {
			return fmt.Errorf("get position: %w", err)
		}
		if p == nil {
			return fmt.Errorf("position not found to unfreeze: user=%d token=%s", userID, tokenID)
		}
		p.Balance = p.Balance.Add(amount)
		p.FrozenBalance = p.FrozenBalance.Sub(amount)
		if _, err := savePosition(ctx, tx, *p); err != nil {
			return fmt.Errorf("save position: %w", err)
		}
		return recordHistory(ctx, tx, model.AssetHistory{
			UserID: userID, TokenID: tokenID, Type: model.AssetOrderUnfreeze,
			Amount: amount, BalanceAfter: p.Balance, ReferenceID: orderID,
		})
	})
}

// OrderRejected unfreezes the entire collateral leg of an order that never
// entered the book (admission validation failed downstream of the ledger's
// own freeze, e.g. the engine's own quantity/price bounds).
func (s *Service) OrderRejected(ctx context.Context, userID int64, orderID, tokenID string, side model.Side, quantity, volume decimal.Decimal) error {
	freezeTokenID, freezeAmount := freezeLeg(side, tokenID, quantity, volume)
	return s.unfreeze(ctx, userID, freezeTokenID, orderID, freezeAmount)
}

// CancelOrder unfreezes only the unfilled remainder of an order's
// collateral leg — cancelledQuantity/cancelledVolume is what the matching
// engine reported as never matched, not the order's original size.
func (s *Service) CancelOrder(ctx context.Context, userID int64, orderID, tokenID string, side model.Side, cancelledQuantity, cancelledVolume decimal.Decimal) error {
	freezeTokenID, unfreezeAmount := freezeLeg(side, tokenID, cancelledQuantity, cancelledVolume)
	return s.unfreeze(ctx, userID, freezeTokenID, orderID, unfreezeAmount)
}
