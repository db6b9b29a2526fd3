package onchain

import "context"

// TakerTradeInfo is the taker side of one settled trade batch, amounts
// already scaled back to 18-decimal onchain units via ScaleToOnchain.
type TakerTradeInfo struct {
	UserID        int64
	PrivyID       string
	OrderID       string
	Side          string
	TokenID       string
	Outcome       string
	FillAmount    string // the token amount sent out (quantity for a sell, usdc for a buy)
	ReceiveAmount string
}

type MakerTradeInfo struct {
	UserID     int64
	PrivyID    string
	OrderID    string
	Side       string
	TokenID    string
	Outcome    string
	Price      string
	FillAmount string
}

// Batch is one trade_id's worth of settlement work handed to the chain: the
// vault contract executes taker against every maker in a single
// transaction, so either all legs settle or none do.
type Batch struct {
	TradeID  string
	EventID  int64
	MarketID int16
	Taker    TakerTradeInfo
	Makers   []MakerTradeInfo
}

// Result is what comes back once the chain has (or hasn't) confirmed the
// batch's settlement transaction.
type Result struct {
	TxHash  string
	Success bool
	Reason  string
}

// Sender submits a settled batch for onchain execution. The real
// implementation signs each leg's order message and calls the vault
// contract through an RPC client; that signing step needs key material
// this module doesn't hold, so Sender is an interface; the processor
// binary wires in NoopSender.
type Sender interface {
	Send(ctx context.Context, batch Batch) (Result, error)
}

// NoopSender reports every batch as immediately successful with a
// synthetic tx hash, for tests and for running the pipeline end to end
// without a real chain connection.
type NoopSender struct{}

func (NoopSender) Send(ctx context.Context, batch Batch) (Result, error) {
	return Result{TxHash: "noop-" + batch.TradeID, Success: true}, nil
}
