package ledger

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/purplecity/predictionmarket-sub000/internal/model"
)

// Split converts usdcAmount of USDC into an equal quantity of both outcome
// tokens of a market (TOKEN_0 and TOKEN_1 always trade at a combined price
// of one USDC, so splitting is risk-free for the protocol). Half the USDC
// cost basis lands on each leg. Like Deposit, there is no balance check:
// splitting is onchain-originated, the vault contract already took the
// USDC before this event reaches the ledger.
func (s *Service) Split(ctx context.Context, userID int64, eventID int64, marketID int16, token0ID, token1ID, privyID, outcome0, outcome1 string, usdcAmount, tokenAmount decimal.Decimal) error {
	half := usdcAmount.Div(decimal.NewFromInt(2))

	return withTx(ctx, s.pool, func(tx pgx.Tx) error {
		for _, k := range sortAndDedupLockKeys([]lockKey{{userID, model.USDCTokenID}, {userID, token0ID}, {userID, token1ID}}) {
			if _, err := getPositionForUpdate(ctx, tx, k.userID, k.tokenID); err != nil {
				return fmt.Errorf("lock position %s: %w", k.tokenID, err)
			}
		}
		usdcPos, err := getPositionForUpdate(ctx, tx, userID, model.USDCTokenID)
		if err != nil {
			return fmt.Errorf("get usdc position: %w", err)
		}
		if usdcPos == nil {
			return fmt.Errorf("usdc position not found for split: user=%d", userID)
		}
		usdcPos.Balance = usdcPos.Balance.Sub(usdcAmount)
		if _, err := savePosition(ctx, tx, *usdcPos); err != nil {
			return fmt.Errorf("save usdc position: %w", err)
		}
		if err := recordHistory(ctx, tx, model.AssetHistory{
			UserID: userID, TokenID: model.USDCTokenID, Type: model.AssetSplit,
			Amount: usdcAmount.Neg(), BalanceAfter: usdcPos.Balance,
		}); err != nil {
			return err
		}

		for _, leg := range []struct {
			tokenID, outcome string
		}{{token0ID, outcome0}, {token1ID, outcome1}} {
			if err := creditSplitLeg(ctx, tx, userID, &eventID, &marketID, leg.tokenID, privyID, leg.outcome, tokenAmount, half); err != nil {
				return fmt.Errorf("credit split leg %s: %w", leg.tokenID, err)
			}
		}
		return nil
	})
}

func creditSplitLeg(ctx context.Context, tx pgx.Tx, userID int64, eventID *int64, marketID *int16, tokenID, privyID, outcome string, tokenAmount, usdcCostDelta decimal.Decimal) error {
	p, err := getOrCreatePosition(ctx, tx, userID, eventID, marketID, tokenID, privyID, outcome)
	if err != nil {
		return err
	}
	p.Balance = p.Balance.Add(tokenAmount)
	cost := zeroIfNil(p.UsdcCost).Add(usdcCostDelta)
	avg := model.AvgPriceTruncated8(cost, p.Balance, p.FrozenBalance)
	p.UsdcCost, p.AvgPrice = &cost, &avg
	if _, err := savePosition(ctx, tx, *p); err != nil {
		return err
	}
	return recordHistory(ctx, tx, model.AssetHistory{
		UserID: userID, TokenID: tokenID, Type: model.AssetSplit,
		Amount: tokenAmount, BalanceAfter: p.Balance,
	})
}
