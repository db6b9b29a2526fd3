// Package onchain bridges the ledger to the chain: an inbound Consumer
// applies deposit/withdraw/split/merge/redeem actions reported by the
// chain indexer directly against internal/ledger, and an outbound Sender
// submits settled trade batches for onchain transfer. Amounts cross this
// boundary in raw 18-decimal integer strings and are normalized with
// NormalizeAmount/ScaleToOnchain.
package onchain

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/purplecity/predictionmarket-sub000/internal/ledger"
	"github.com/purplecity/predictionmarket-sub000/internal/model"
	"github.com/purplecity/predictionmarket-sub000/internal/redisstream"
)

// Consumer reads a stream of Actions and applies each one against the
// ledger in-process — the original routes this through a separate asset
// gRPC service, but here the ledger is a package in the same binary, so
// there is nothing to dial.
type Consumer struct {
	rdb      *redis.Client
	stream   string
	group    string
	consumer string
	ledger   *ledger.Service
	lookup   MarketLookup
	batch    int64
	block    time.Duration
}

func NewConsumer(rdb *redis.Client, stream, group string, svc *ledger.Service, lookup MarketLookup, batch int64, block time.Duration) *Consumer {
	return &Consumer{
		rdb: rdb, stream: stream, group: group,
		consumer: fmt.Sprintf("onchain-%s", uuid.NewString()),
		ledger:   svc, lookup: lookup, batch: batch, block: block,
	}
}

// Bootstrap ensures the consumer group exists and drains anything left
// pending by a consumer that died before acking.
func (c *Consumer) Bootstrap(ctx context.Context) error {
	if err := redisstream.EnsureGroup(ctx, c.rdb, c.stream, c.group); err != nil {
		return fmt.Errorf("ensure onchain action group: %w", err)
	}
	claimed, err := redisstream.ClaimPending(ctx, c.rdb, c.stream, c.group, c.consumer, 10_000)
	if err != nil {
		return fmt.Errorf("claim pending onchain actions: %w", err)
	}
	log.Info().Int("count", len(claimed)).Msg("claimed pending onchain action messages on startup")
	for _, msg := range claimed {
		c.apply(ctx, msg)
	}
	return nil
}

// Run blocks, applying and acking every action message until ctx is
// cancelled.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		msgs, err := redisstream.ReadGroup(ctx, c.rdb, c.stream, c.group, c.consumer, c.batch, c.block)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Error().Err(err).Msg("onchain action stream read group failed")
			continue
		}
		for _, msg := range msgs {
			c.apply(ctx, msg)
		}
	}
}

func (c *Consumer) apply(ctx context.Context, msg redisstream.Message) {
	var action Action
	if err := json.Unmarshal([]byte(msg.Payload), &action); err != nil {
		log.Error().Err(err).Str("id", msg.ID).Msg("onchain action decode failed, acking to avoid poison-message loop")
		_ = redisstream.Ack(ctx, c.rdb, c.stream, c.group, msg.ID)
		return
	}
	if err := c.dispatch(ctx, action); err != nil {
		log.Error().Err(err).Str("id", msg.ID).Int("kind", int(action.Kind)).Msg("onchain action handling failed")
	}
	_ = redisstream.Ack(ctx, c.rdb, c.stream, c.group, msg.ID)
}

func (c *Consumer) dispatch(ctx context.Context, action Action) error {
	switch action.Kind {
	case ActionDeposit:
		return c.handleDeposit(ctx, action.Deposit)
	case ActionWithdraw:
		return c.handleWithdraw(ctx, action.Withdraw)
	case ActionSplit:
		return c.handleSplit(ctx, action.Split)
	case ActionMerge:
		return c.handleMerge(ctx, action.Merge)
	case ActionRedeem:
		return c.handleRedeem(ctx, action.Redeem)
	default:
		return fmt.Errorf("unknown onchain action kind %d", action.Kind)
	}
}

func (c *Consumer) resolveToken(ctx context.Context, tokenID string) (*int64, *int16, string, error) {
	if tokenID == model.USDCTokenID {
		return nil, nil, "", nil
	}
	eventID, marketID, outcome, err := c.lookup.ByTokenID(ctx, tokenID)
	if err != nil {
		return nil, nil, "", err
	}
	return &eventID, &marketID, outcome, nil
}

func (c *Consumer) handleDeposit(ctx context.Context, a *DepositAction) error {
	amount, err := NormalizeAmount(a.Amount)
	if err != nil {
		return fmt.Errorf("deposit amount: %w", err)
	}
	eventID, marketID, outcome, err := c.resolveToken(ctx, a.TokenID)
	if err != nil {
		return err
	}
	return c.ledger.Deposit(ctx, a.UserID, eventID, marketID, a.TokenID, a.PrivyID, outcome, a.TxHash, amount)
}

func (c *Consumer) handleWithdraw(ctx context.Context, a *WithdrawAction) error {
	amount, err := NormalizeAmount(a.Amount)
	if err != nil {
		return fmt.Errorf("withdraw amount: %w", err)
	}
	return c.ledger.Withdraw(ctx, a.UserID, a.TokenID, a.TxHash, amount)
}

func (c *Consumer) handleSplit(ctx context.Context, a *SplitAction) error {
	amount, err := NormalizeAmount(a.Amount)
	if err != nil {
		return fmt.Errorf("split amount: %w", err)
	}
	m, err := c.lookup.ByConditionID(ctx, a.ConditionID)
	if err != nil {
		return err
	}
	return c.ledger.Split(ctx, a.UserID, m.EventID, m.MarketID, m.TokenIDs[0], m.TokenIDs[1], a.PrivyID, m.OutcomeNames[0], m.OutcomeNames[1], amount, amount)
}

func (c *Consumer) handleMerge(ctx context.Context, a *MergeAction) error {
	amount, err := NormalizeAmount(a.Amount)
	if err != nil {
		return fmt.Errorf("merge amount: %w", err)
	}
	m, err := c.lookup.ByConditionID(ctx, a.ConditionID)
	if err != nil {
		return err
	}
	return c.ledger.Merge(ctx, a.UserID, m.TokenIDs[0], m.TokenIDs[1], amount, amount)
}

func (c *Consumer) handleRedeem(ctx context.Context, a *RedeemAction) error {
	payout, err := NormalizeAmount(a.Payout)
	if err != nil {
		return fmt.Errorf("redeem payout: %w", err)
	}
	m, err := c.lookup.ByConditionID(ctx, a.ConditionID)
	if err != nil {
		return err
	}
	return c.ledger.Redeem(ctx, a.UserID, m.TokenIDs[0], m.TokenIDs[1], payout, nowMs())
}

func nowMs() int64 { return time.Now().UnixMilli() }
