package ledger

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/purplecity/predictionmarket-sub000/internal/model"
)

// TradeParticipant is one side (taker or one maker) of a single cross-match
// fill, exactly the shape the processor assembles from a matchengine.Fill.
type TradeParticipant struct {
	OrderID     string
	UserID      int64
	PrivyID     string
	Outcome     string
	TokenID     string
	Side        model.Side
	OrderType   model.OrderType
	UsdcAmount  decimal.Decimal
	TokenAmount decimal.Decimal
}

// Trade records one batch of fills (a taker against one or more makers)
// and advances every touched order's filled_quantity/status. It does NOT
// move any position balance yet — this system settles trades in two
// phases, the same way the original does: balances only move once the
// onchain leg confirms, in TradeOnchainResult. Recording the trade here
// purely updates bookkeeping that doesn't depend on settlement succeeding.
func (s *Service) Trade(ctx context.Context, tradeID string, timestampMs int64, sym model.Symbol, taker TradeParticipant, makers []TradeParticipant) error {
	tradeVolume := computeTradeVolume(taker, makers)

	return withTx(ctx, s.pool, func(tx pgx.Tx) error {
		participants := append([]TradeParticipant{taker}, makers...)
		for i, p := range participants {
			isTaker := i == 0
			rowVolume := decimal.Zero
			if isTaker {
				rowVolume = tradeVolume
			}
			if err := insertTradeRow(ctx, tx, tradeID, timestampMs, sym, p, isTaker, rowVolume); err != nil {
				return fmt.Errorf("insert trade row for order %s: %w", p.OrderID, err)
			}
		}

		sort.Slice(participants, func(i, j int) bool { return participants[i].OrderID < participants[j].OrderID })
		for _, p := range participants {
			if err := advanceOrderFill(ctx, tx, p.OrderID, p.TokenAmount, p.UsdcAmount); err != nil {
				return fmt.Errorf("advance order fill for %s: %w", p.OrderID, err)
			}
		}
		return nil
	})
}

// computeTradeVolume is the taker row's trade_volume: the taker's own usdc
// plus every maker on the taker's own side (the same side can appear on
// both legs of a cross-outcome match, since a taker's native-book makers and
// its cross-inserted makers settle through the same batch).
func computeTradeVolume(taker TradeParticipant, makers []TradeParticipant) decimal.Decimal {
	total := taker.UsdcAmount
	for _, m := range makers {
		if m.Side == taker.Side {
			total = total.Add(m.UsdcAmount)
		}
	}
	return total
}

func insertTradeRow(ctx context.Context, tx pgx.Tx, tradeID string, timestampMs int64, sym model.Symbol, p TradeParticipant, isTaker bool, tradeVolume decimal.Decimal) error {
	avgPrice := decimal.Zero
	if !p.TokenAmount.IsZero() {
		avgPrice = p.UsdcAmount.Div(p.TokenAmount).Truncate(8)
	}
	_, err := tx.Exec(ctx, `INSERT INTO trades
		(batch_id, match_timestamp, order_id, user_id, event_id, market_id, token_id, side, taker, trade_volume, avg_price, usdc_amount, token_amount, onchain_handled)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,false)`,
		tradeID, time.UnixMilli(timestampMs), p.OrderID, p.UserID, sym.EventID, sym.MarketID, p.TokenID, p.Side, isTaker, tradeVolume, avgPrice, p.UsdcAmount, p.TokenAmount)
	return err
}

// advanceOrderFill bumps the order's fill basis by fillQty/fillVolume and
// recomputes status via LedgerOrder.NextStatus, which already knows a
// market buy's basis is volume, a market sell's is quantity, and a limit
// order's is always quantity — the same dispatch the engine itself uses.
// A row lock on the order guarantees two concurrent fills against it never
// race the read-modify-write.
func advanceOrderFill(ctx context.Context, tx pgx.Tx, orderID string, fillQty, fillVolume decimal.Decimal) error {
	var o model.LedgerOrder
	err := tx.QueryRow(ctx, `SELECT side, order_type, quantity, filled_quantity, status,
		market_filled_volume, market_filled_quantity, market_target_volume, market_target_quantity
		FROM orders WHERE id = $1 FOR UPDATE`, orderID).
		Scan(&o.Side, &o.OrderType, &o.Quantity, &o.FilledQuantity, &o.Status,
			&o.Market.FilledVolume, &o.Market.FilledQuantity, &o.Market.TargetVolume, &o.Market.TargetQuantity)
	if err != nil {
		return err
	}

	if o.OrderType == model.Market {
		if o.Side == model.Buy {
			o.Market.FilledVolume = o.Market.FilledVolume.Add(fillVolume)
		} else {
			o.Market.FilledQuantity = o.Market.FilledQuantity.Add(fillQty)
		}
	} else {
		o.FilledQuantity = o.FilledQuantity.Add(fillQty)
	}
	newStatus := o.NextStatus()

	_, err = tx.Exec(ctx, `UPDATE orders SET filled_quantity = $2, market_filled_volume = $3,
		market_filled_quantity = $4, status = $5, update_id = update_id + 1, updated_at = $6
		WHERE id = $1`,
		orderID, o.FilledQuantity, o.Market.FilledVolume, o.Market.FilledQuantity, newStatus, time.Now())
	return err
}

// TradeOnchainResult applies the balance movement a batch of fills was
// waiting on: on success, each Buy participant's USDC freeze clears and
// their token balance (and cost basis) grows; each Sell participant's
// token freeze clears and their USDC balance grows. On failure nothing
// settles — every freeze just unwinds back to free balance, the same path
// a cancellation takes, since the onchain leg never happened.
func (s *Service) TradeOnchainResult(ctx context.Context, tradeID, txHash string, success bool, participants []TradeParticipant) error {
	// Every position the batch touches (each participant's USDC and token
	// rows) is locked first, in sortAndDedupLockKeys order, so two
	// overlapping settlement batches can never deadlock each other.
	// Participants are then settled in (user_id, settle_token) order.
	sort.Slice(participants, func(i, j int) bool {
		a, b := participants[i], participants[j]
		if a.UserID != b.UserID {
			return a.UserID < b.UserID
		}
		return settleTokenID(a) < settleTokenID(b)
	})

	return withTx(ctx, s.pool, func(tx pgx.Tx) error {
		keys := make([]lockKey, 0, 2*len(participants))
		for _, p := range participants {
			keys = append(keys, lockKey{p.UserID, model.USDCTokenID}, lockKey{p.UserID, p.TokenID})
		}
		for _, k := range sortAndDedupLockKeys(keys) {
			if _, err := getPositionForUpdate(ctx, tx, k.userID, k.tokenID); err != nil {
				return fmt.Errorf("lock position %s: %w", k.tokenID, err)
			}
		}
		for _, p := range participants {
			if err := settleParticipant(ctx, tx, p, success, tradeID); err != nil {
				return fmt.Errorf("settle participant order %s: %w", p.OrderID, err)
			}
		}
		if _, err := tx.Exec(ctx, `UPDATE trades SET onchain_handled = true, tx_hash = $2 WHERE batch_id = $1`, tradeID, txHash); err != nil {
			return fmt.Errorf("mark trade batch settled: %w", err)
		}
		return nil
	})
}

func settleTokenID(p TradeParticipant) string {
	if p.Side == model.Sell {
		return p.TokenID
	}
	return model.USDCTokenID
}

func settleParticipant(ctx context.Context, tx pgx.Tx, p TradeParticipant, success bool, tradeID string) error {
	if p.Side == model.Buy {
		return settleBuy(ctx, tx, p, success, tradeID)
	}
	return settleSell(ctx, tx, p, success, tradeID)
}

func settleBuy(ctx context.Context, tx pgx.Tx, p TradeParticipant, success bool, tradeID string) error {
	usdcPos, err := getPositionForUpdate(ctx, tx, p.UserID, model.USDCTokenID)
	if err != nil || usdcPos == nil {
		return fmt.Errorf("usdc position: %w", err)
	}
	usdcPos.FrozenBalance = usdcPos.FrozenBalance.Sub(p.UsdcAmount)
	if _, err := savePosition(ctx, tx, *usdcPos); err != nil {
		return err
	}
	if err := recordHistory(ctx, tx, model.AssetHistory{UserID: p.UserID, TokenID: model.USDCTokenID, Type: model.AssetTrade, Amount: p.UsdcAmount.Neg(), BalanceAfter: usdcPos.Balance, ReferenceID: tradeID}); err != nil {
		return err
	}
	if !success {
		usdcPos.Balance = usdcPos.Balance.Add(p.UsdcAmount)
		_, err := savePosition(ctx, tx, *usdcPos)
		return err
	}

	tokenPos, err := getOrCreatePosition(ctx, tx, p.UserID, nil, nil, p.TokenID, p.PrivyID, p.Outcome)
	if err != nil {
		return err
	}
	tokenPos.Balance = tokenPos.Balance.Add(p.TokenAmount)
	cost := zeroIfNil(tokenPos.UsdcCost).Add(p.UsdcAmount)
	avg := model.AvgPriceTruncated8(cost, tokenPos.Balance, tokenPos.FrozenBalance)
	tokenPos.UsdcCost, tokenPos.AvgPrice = &cost, &avg
	if _, err := savePosition(ctx, tx, *tokenPos); err != nil {
		return err
	}
	return recordHistory(ctx, tx, model.AssetHistory{UserID: p.UserID, TokenID: p.TokenID, Type: model.AssetTrade, Amount: p.TokenAmount, BalanceAfter: tokenPos.Balance, ReferenceID: tradeID})
}

func settleSell(ctx context.Context, tx pgx.Tx, p TradeParticipant, success bool, tradeID string) error {
	tokenPos, err := getPositionForUpdate(ctx, tx, p.UserID, p.TokenID)
	if err != nil || tokenPos == nil {
		return fmt.Errorf("token position: %w", err)
	}
	tokenPos.FrozenBalance = tokenPos.FrozenBalance.Sub(p.TokenAmount)
	if !success {
		tokenPos.Balance = tokenPos.Balance.Add(p.TokenAmount)
		_, err := savePosition(ctx, tx, *tokenPos)
		return err
	}
	cost := zeroIfNil(tokenPos.UsdcCost).Sub(p.UsdcAmount)
	avg := model.AvgPriceTruncated8(cost, tokenPos.Balance, tokenPos.FrozenBalance)
	tokenPos.UsdcCost, tokenPos.AvgPrice = &cost, &avg
	if _, err := savePosition(ctx, tx, *tokenPos); err != nil {
		return err
	}
	if err := recordHistory(ctx, tx, model.AssetHistory{UserID: p.UserID, TokenID: p.TokenID, Type: model.AssetTrade, Amount: p.TokenAmount.Neg(), BalanceAfter: tokenPos.Balance, ReferenceID: tradeID}); err != nil {
		return err
	}

	usdcPos, err := getOrCreatePosition(ctx, tx, p.UserID, nil, nil, model.USDCTokenID, p.PrivyID, "")
	if err != nil {
		return err
	}
	usdcPos.Balance = usdcPos.Balance.Add(p.UsdcAmount)
	if _, err := savePosition(ctx, tx, *usdcPos); err != nil {
		return err
	}
	return recordHistory(ctx, tx, model.AssetHistory{UserID: p.UserID, TokenID: model.USDCTokenID, Type: model.AssetTrade, Amount: p.UsdcAmount, BalanceAfter: usdcPos.Balance, ReferenceID: tradeID})
}

func zeroIfNil(d *decimal.Decimal) decimal.Decimal {
	if d == nil {
		return decimal.Zero
	}
	return *d
}
