// Package processor turns matchengine.ProcessorEvent into ledger mutations
// and onchain settlement batches: order rejection/cancellation unfreezes
// collateral, and a taker's fills settle in chunks of Config.BatchSize,
// each chunk recorded against the ledger and then handed to an
// onchain.Sender for the matching trade-settlement transaction.
package processor

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/purplecity/predictionmarket-sub000/internal/enginepipe"
	"github.com/purplecity/predictionmarket-sub000/internal/ledger"
	"github.com/purplecity/predictionmarket-sub000/internal/matchengine"
	"github.com/purplecity/predictionmarket-sub000/internal/model"
	"github.com/purplecity/predictionmarket-sub000/internal/onchain"
	"github.com/purplecity/predictionmarket-sub000/internal/redisstream"
)

type Processor struct {
	rdb       *redis.Client
	group     string
	consumer  string
	ledger    *ledger.Service
	sender    onchain.Sender
	batchSize int
	batch     int64
	block     time.Duration
}

func New(rdb *redis.Client, group string, svc *ledger.Service, sender onchain.Sender, batchSize int, readBatch int64, readBlock time.Duration) *Processor {
	return &Processor{
		rdb: rdb, group: group,
		consumer:  fmt.Sprintf("processor-%s", uuid.NewString()),
		ledger:    svc,
		sender:    sender,
		batchSize: batchSize,
		batch:     readBatch,
		block:     readBlock,
	}
}

// Bootstrap ensures the consumer group exists and drains anything left
// pending by a consumer that died mid-settlement before acking.
func (p *Processor) Bootstrap(ctx context.Context) error {
	if err := redisstream.EnsureGroup(ctx, p.rdb, enginepipe.ProcessorStream, p.group); err != nil {
		return fmt.Errorf("ensure processor group: %w", err)
	}
	claimed, err := redisstream.ClaimPending(ctx, p.rdb, enginepipe.ProcessorStream, p.group, p.consumer, 10_000)
	if err != nil {
		return fmt.Errorf("claim pending processor messages: %w", err)
	}
	log.Info().Int("count", len(claimed)).Msg("claimed pending processor messages on startup")
	for _, msg := range claimed {
		p.apply(ctx, msg)
	}
	return nil
}

// Run blocks, applying and acking every processor event until ctx is
// cancelled.
func (p *Processor) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		msgs, err := redisstream.ReadGroup(ctx, p.rdb, enginepipe.ProcessorStream, p.group, p.consumer, p.batch, p.block)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Error().Err(err).Msg("processor stream read group failed")
			continue
		}
		for _, msg := range msgs {
			p.apply(ctx, msg)
		}
	}
}

func (p *Processor) apply(ctx context.Context, msg redisstream.Message) {
	ev, err := decodeEvent(msg.Payload)
	if err != nil {
		log.Error().Err(err).Str("id", msg.ID).Msg("processor event decode failed, acking to avoid poison-message loop")
		_ = redisstream.Ack(ctx, p.rdb, enginepipe.ProcessorStream, p.group, msg.ID)
		return
	}
	if err := p.dispatch(ctx, ev); err != nil {
		log.Error().Err(err).Str("id", msg.ID).Str("order_id", ev.OrderID).Msg("processor event handling failed")
	}
	_ = redisstream.Ack(ctx, p.rdb, enginepipe.ProcessorStream, p.group, msg.ID)
}

func (p *Processor) dispatch(ctx context.Context, ev matchengine.ProcessorEvent) error {
	switch ev.Kind {
	case matchengine.ProcessorOrderSubmitted:
		log.Info().Str("order_id", ev.OrderID).Msg("order submitted")
		return nil
	case matchengine.ProcessorOrderRejected:
		return p.handleRejected(ctx, ev)
	case matchengine.ProcessorOrderCancelled:
		return p.handleCancelled(ctx, ev)
	case matchengine.ProcessorOrderTraded:
		return p.handleTraded(ctx, ev)
	default:
		return fmt.Errorf("unknown processor event kind %d", ev.Kind)
	}
}

func (p *Processor) handleRejected(ctx context.Context, ev matchengine.ProcessorEvent) error {
	qty, err := decimal.NewFromString(ev.CancelledQuantity)
	if err != nil {
		return fmt.Errorf("rejected quantity: %w", err)
	}
	vol, err := decimal.NewFromString(ev.CancelledVolume)
	if err != nil {
		return fmt.Errorf("rejected volume: %w", err)
	}
	return p.ledger.OrderRejected(ctx, ev.UserID, ev.OrderID, ev.Symbol.TokenID, ev.Side, qty, vol)
}

func (p *Processor) handleCancelled(ctx context.Context, ev matchengine.ProcessorEvent) error {
	qty, err := decimal.NewFromString(ev.CancelledQuantity)
	if err != nil {
		return fmt.Errorf("cancelled quantity: %w", err)
	}
	vol, err := decimal.NewFromString(ev.CancelledVolume)
	if err != nil {
		return fmt.Errorf("cancelled volume: %w", err)
	}
	return p.ledger.CancelOrder(ctx, ev.UserID, ev.OrderID, ev.Symbol.TokenID, ev.Side, qty, vol)
}

func (p *Processor) handleTraded(ctx context.Context, ev matchengine.ProcessorEvent) error {
	for _, chunk := range chunkFills(ev.Fills, p.batchSize) {
		if err := p.settleChunk(ctx, ev, chunk); err != nil {
			return fmt.Errorf("settle trade chunk: %w", err)
		}
	}
	return nil
}

func chunkFills(fills []model.Fill, size int) [][]model.Fill {
	if size <= 0 {
		size = len(fills)
	}
	var chunks [][]model.Fill
	for size > 0 && len(fills) > 0 {
		n := size
		if n > len(fills) {
			n = len(fills)
		}
		chunks = append(chunks, fills[:n])
		fills = fills[n:]
	}
	return chunks
}

// settleChunk records one trade batch against the ledger at match time
// (no balance movement yet), submits it to the chain, and feeds the result
// back into the ledger to unfreeze and credit/reverse every participant.
func (p *Processor) settleChunk(ctx context.Context, ev matchengine.ProcessorEvent, fills []model.Fill) error {
	tradeID := uuid.NewString()

	taker := ledger.TradeParticipant{
		OrderID: ev.OrderID, UserID: ev.UserID, PrivyID: ev.PrivyID, Outcome: ev.Outcome,
		TokenID: ev.Symbol.TokenID, Side: ev.Side, OrderType: ev.Type,
	}
	makers := make([]ledger.TradeParticipant, 0, len(fills))
	for _, f := range fills {
		qty := model.QuantityToDecimal(f.MatchQuantity)
		price := model.PriceToDecimal(f.MatchPrice)
		usdc := qty.Mul(price)

		taker.TokenAmount = taker.TokenAmount.Add(qty)
		taker.UsdcAmount = taker.UsdcAmount.Add(usdc)

		makers = append(makers, ledger.TradeParticipant{
			OrderID: f.MakerOrderID, UserID: f.MakerUserID, PrivyID: f.MakerPrivyID, Outcome: f.MakerOutcome,
			TokenID: f.MakerSymbol.TokenID, Side: f.MakerSide, OrderType: model.Limit,
			UsdcAmount: usdc, TokenAmount: qty,
		})
	}

	if err := p.ledger.Trade(ctx, tradeID, time.Now().UnixMilli(), ev.Symbol, taker, makers); err != nil {
		return fmt.Errorf("record trade: %w", err)
	}

	batch := buildSettlementBatch(tradeID, ev.Symbol, taker, makers)
	result, sendErr := p.sender.Send(ctx, batch)
	success := sendErr == nil && result.Success
	if sendErr != nil {
		log.Error().Err(sendErr).Str("trade_id", tradeID).Msg("onchain send failed, marking trade batch unsettled")
	} else if !result.Success {
		log.Error().Str("trade_id", tradeID).Str("reason", result.Reason).Msg("onchain settlement rejected")
	}

	all := append([]ledger.TradeParticipant{taker}, makers...)
	if err := p.ledger.TradeOnchainResult(ctx, tradeID, result.TxHash, success, all); err != nil {
		return fmt.Errorf("apply trade onchain result: %w", err)
	}
	return nil
}

func buildSettlementBatch(tradeID string, sym model.Symbol, taker ledger.TradeParticipant, makers []ledger.TradeParticipant) onchain.Batch {
	takerFill, takerReceive := legAmounts(taker.Side, taker.UsdcAmount, taker.TokenAmount)
	b := onchain.Batch{
		TradeID: tradeID, EventID: sym.EventID, MarketID: sym.MarketID,
		Taker: onchain.TakerTradeInfo{
			UserID: taker.UserID, PrivyID: taker.PrivyID, OrderID: taker.OrderID,
			Side: taker.Side.String(), TokenID: taker.TokenID, Outcome: taker.Outcome,
			FillAmount: onchain.ScaleToOnchain(takerFill), ReceiveAmount: onchain.ScaleToOnchain(takerReceive),
		},
	}
	for _, m := range makers {
		fill, _ := legAmounts(m.Side, m.UsdcAmount, m.TokenAmount)
		b.Makers = append(b.Makers, onchain.MakerTradeInfo{
			UserID: m.UserID, PrivyID: m.PrivyID, OrderID: m.OrderID,
			Side: m.Side.String(), TokenID: m.TokenID, Outcome: m.Outcome,
			Price: priceOf(m.UsdcAmount, m.TokenAmount), FillAmount: onchain.ScaleToOnchain(fill),
		})
	}
	return b
}

// legAmounts returns which of usdcAmount/tokenAmount a side sends out and
// which it receives: a buy sends usdc and receives tokens, a sell sends
// tokens and receives usdc.
func legAmounts(side model.Side, usdcAmount, tokenAmount decimal.Decimal) (fill, receive decimal.Decimal) {
	if side == model.Buy {
		return usdcAmount, tokenAmount
	}
	return tokenAmount, usdcAmount
}

func priceOf(usdcAmount, tokenAmount decimal.Decimal) string {
	if tokenAmount.IsZero() {
		return "0"
	}
	return usdcAmount.Div(tokenAmount).Truncate(8).String()
}
