package ledger

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/purplecity/predictionmarket-sub000/internal/model"
)

// Redeem settles a resolved market: both outcome token positions are
// marked redeemed with the same payout recorded against each (balance/
// frozen_balance/usdc_cost/avg_price are left exactly as they were —
// redemption is a claim stamp, not a balance reset, so historical
// avg_price stays meaningful), and usdcAmount credits the USDC position
// once. Resolution already determined which side actually paid out before
// this call — a loser's payout arrives as zero — so both legs are handled
// identically here.
func (s *Service) Redeem(ctx context.Context, userID int64, token0ID, token1ID string, usdcAmount decimal.Decimal, nowMs int64) error {
	return withTx(ctx, s.pool, func(tx pgx.Tx) error {
		keys := []lockKey{{userID, token0ID}, {userID, token1ID}}
		if !usdcAmount.IsZero() {
			keys = append(keys, lockKey{userID, model.USDCTokenID})
		}
		for _, k := range sortAndDedupLockKeys(keys) {
			if _, err := getPositionForUpdate(ctx, tx, k.userID, k.tokenID); err != nil {
				return fmt.Errorf("lock position %s: %w", k.tokenID, err)
			}
		}
		if !usdcAmount.IsZero() {
			usdcPos, err := getPositionForUpdate(ctx, tx, userID, model.USDCTokenID)
			if err != nil {
				return fmt.Errorf("get usdc position: %w", err)
			}
			if usdcPos == nil {
				return fmt.Errorf("usdc position not found for redeem: user=%d", userID)
			}
			usdcPos.Balance = usdcPos.Balance.Add(usdcAmount)
			if _, err := savePosition(ctx, tx, *usdcPos); err != nil {
				return fmt.Errorf("save usdc position: %w", err)
			}
			if err := recordHistory(ctx, tx, model.AssetHistory{
				UserID: userID, TokenID: model.USDCTokenID, Type: model.AssetRedeem,
				Amount: usdcAmount, BalanceAfter: usdcPos.Balance,
			}); err != nil {
				return err
			}
		}

		if err := markRedeemed(ctx, tx, userID, token0ID, usdcAmount, nowMs); err != nil {
			return fmt.Errorf("mark token0 leg redeemed: %w", err)
		}
		if err := markRedeemed(ctx, tx, userID, token1ID, usdcAmount, nowMs); err != nil {
			return fmt.Errorf("mark token1 leg redeemed: %w", err)
		}
		return nil
	})
}

func markRedeemed(ctx context.Context, tx pgx.Tx, userID int64, tokenID string, payout decimal.Decimal, nowMs int64) error {
	p, err := getPositionForUpdate(ctx, tx, userID, tokenID)
	if err != nil {
		return err
	}
	if p == nil {
		return fmt.Errorf("position not found for redeem: user=%d token=%s", userID, tokenID)
	}
	if p.Redeemed != nil && *p.Redeemed {
		return nil
	}
	redeemedTrue := true
	p.Redeemed = &redeemedTrue
	p.Payout = &payout
	p.RedeemedAtMs = nowMs
	_, err = savePosition(ctx, tx, *p)
	return err
}
