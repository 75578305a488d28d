// Package broker defines the order-execution capability the decision
// engine drives. Paper and live implementations satisfy the same
// interface; the core never branches on mode.
package broker

import (
	"context"
	"time"
)

// OrderSide of an order.
type OrderSide string

const (
	SideBuy  OrderSide = "BUY"
	SideSell OrderSide = "SELL"
)

// OrderRequest is a market order. Price is the reference price the
// caller observed; implementations may fill at a different price and
// the caller must never assume the fill equals the request.
type OrderRequest struct {
	Instrument string
	Side       OrderSide
	Quantity   float64
	Price      float64
	StopLoss   float64
	TakeProfit float64
	Time       time.Time // reference timestamp; zero means "now"
}

// Fill is a confirmed execution. Only a returned Fill may create a
// Position: a failed submit leaves no partial state behind.
type Fill struct {
	OrderID    string
	Instrument string
	Side       OrderSide
	Quantity   float64
	Price      float64
	Time       time.Time
}

// Broker executes market orders. A non-nil error means the entry (or
// exit) attempt is abandoned for this cycle.
type Broker interface {
	SubmitOrder(ctx context.Context, req OrderRequest) (Fill, error)
}
