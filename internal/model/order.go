package model

// Side is which direction an order trades.
type Side int

const (
	Buy Side = iota
	Sell
)

func (s Side) String() string {
	if s == Buy {
		return "buy"
	}
	return "sell"
}

// Opposite returns the other side of s.
func (s Side) Opposite() Side {
	if s == Buy {
		return Sell
	}
	return Buy
}

// OrderType is limit (may rest) or market (must fill now or be cancelled).
type OrderType int

const (
	Limit OrderType = iota
	Market
)

// OrderStatus transitions monotonically: New -> (PartiallyFilled)? ->
// (Filled | Cancelled | Rejected). A terminal status is never left.
type OrderStatus int

const (
	StatusNew OrderStatus = iota
	StatusPartiallyFilled
	StatusFilled
	StatusCancelled
	StatusRejected
)

// IsTerminal reports whether further fills/cancels cannot change status.
func (s OrderStatus) IsTerminal() bool {
	return s == StatusFilled || s == StatusCancelled || s == StatusRejected
}

// Order is the engine-side representation of a resting or in-flight order:
// everything the matching engine needs to walk a book and emit fills. Price
// is always stored in TOKEN_0-complement-aware native units: it is the
// price of this order's own token, never pre-converted.
type Order struct {
	OrderID   string
	Symbol    Symbol
	Side      Side
	OrderType OrderType

	// Price is this order's own limit price in [MinPrice, MaxPrice].
	// OppositeResultPrice = PriceScale - Price is stored as a first-class
	// field (spec design note §9) rather than recomputed at match time.
	Price               int32
	OppositeResultPrice int32

	Quantity  uint64 // total requested quantity, in units of real_qty*100
	Filled    uint64
	Remaining uint64

	Status    OrderStatus
	UserID    int64
	PrivyID   string
	Outcome   string
	Timestamp int64 // unix millis at submission
	Seq       uint64 // engine-assigned admission sequence; tie-breaker at equal price
}

// NewOrder builds an Order with Remaining=Quantity, Filled=0 and the
// complement price derived once at construction.
func NewOrder(orderID string, sym Symbol, side Side, otype OrderType, price int32, qty uint64, userID int64, privyID, outcome string, timestampMs int64) Order {
	return Order{
		OrderID:             orderID,
		Symbol:              sym,
		Side:                side,
		OrderType:           otype,
		Price:               price,
		OppositeResultPrice: ComplementPrice(price),
		Quantity:            qty,
		Filled:              0,
		Remaining:           qty,
		Status:              StatusNew,
		UserID:              userID,
		PrivyID:             privyID,
		Outcome:             outcome,
		Timestamp:           timestampMs,
	}
}

// Fill reduces Remaining by qty and recomputes Filled/Status. qty must be
// <= Remaining; callers (the match loop) guarantee this.
func (o *Order) Fill(qty uint64) {
	o.Remaining -= qty
	o.Filled = o.Quantity - o.Remaining
	if o.Status.IsTerminal() {
		return
	}
	if o.Remaining == 0 {
		o.Status = StatusFilled
	} else if o.Filled > 0 {
		o.Status = StatusPartiallyFilled
	}
}

// Validate checks the order-admission invariants.
func (o Order) Validate() error {
	if o.Quantity == 0 {
		return ErrInvalidOrder
	}
	if o.OrderType == Limit && (o.Price < MinPrice || o.Price > MaxPrice) {
		return ErrInvalidOrder
	}
	if o.UserID == 0 {
		return ErrInvalidOrder
	}
	if o.Filled+o.Remaining != o.Quantity {
		return ErrInvalidOrder
	}
	return nil
}
