package ledger

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/purplecity/predictionmarket-sub000/internal/model"
)

// Merge is Split's inverse: equal quantities of TOKEN_0 and TOKEN_1 convert
// back into usdcAmount of USDC, with half the USDC cost basis removed from
// each leg. No balance check — onchain-originated, same as Split.
func (s *Service) Merge(ctx context.Context, userID int64, token0ID, token1ID string, usdcAmount, tokenAmount decimal.Decimal) error {
	half := usdcAmount.Div(decimal.NewFromInt(2))

	return withTx(ctx, s.pool, func(tx pgx.Tx) error {
		for _, k := range sortAndDedupLockKeys([]lockKey{{userID, model.USDCTokenID}, {userID, token0ID}, {userID, token1ID}}) {
			if _, err := getPositionForUpdate(ctx, tx, k.userID, k.tokenID); err != nil {
				return fmt.Errorf("lock position %s: %w", k.tokenID, err)
			}
		}
		for _, tokenID := range []string{token0ID, token1ID} {
			if err := debitMergeLeg(ctx, tx, userID, tokenID, tokenAmount, half); err != nil {
				return fmt.Errorf("debit merge leg %s: %w", tokenID, err)
			}
		}

		usdcPos, err := getPositionForUpdate(ctx, tx, userID, model.USDCTokenID)
		if err != nil {
			return fmt.Errorf("get usdc position: %w", err)
		}
		if usdcPos == nil {
			return fmt.Errorf("usdc position not found for merge: user=%d", userID)
		}
		usdcPos.Balance = usdcPos.Balance.Add(usdcAmount)
		if _, err := savePosition(ctx, tx, *usdcPos); err != nil {
			return fmt.Errorf("save usdc position: %w", err)
		}
		return recordHistory(ctx, tx, model.AssetHistory{
			UserID: userID, TokenID: model.USDCTokenID, Type: model.AssetMerge,
			Amount: usdcAmount, BalanceAfter: usdcPos.Balance,
		})
	})
}

func debitMergeLeg(ctx context.Context, tx pgx.Tx, userID int64, tokenID string, tokenAmount, usdcCostDelta decimal.Decimal) error {
	p, err := getPositionForUpdate(ctx, tx, userID, tokenID)
	if err != nil {
		return err
	}
	if p == nil {
		return fmt.Errorf("position not found for merge: user=%d token=%s", userID, tokenID)
	}
	p.Balance = p.Balance.Sub(tokenAmount)
	cost := zeroIfNil(p.UsdcCost).Sub(usdcCostDelta)
	avg := model.AvgPriceTruncated8(cost, p.Balance, p.FrozenBalance)
	p.UsdcCost, p.AvgPrice = &cost, &avg
	if _, err := savePosition(ctx, tx, *p); err != nil {
		return err
	}
	return recordHistory(ctx, tx, model.AssetHistory{
		UserID: userID, TokenID: tokenID, Type: model.AssetMerge,
		Amount: tokenAmount.Neg(), BalanceAfter: p.Balance,
	})
}
