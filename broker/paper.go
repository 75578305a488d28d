package broker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Paper simulates immediate fills at the request's reference price.
// Order IDs are sequential, which keeps backtests over identical
// inputs byte-identical.
type Paper struct {
	log *slog.Logger

	mu  sync.Mutex
	seq int
}

// NewPaper builds a paper broker.
func NewPaper(log *slog.Logger) *Paper {
	if log == nil {
		log = slog.Default()
	}
	return &Paper{log: log}
}

// SubmitOrder fills the order at its reference price.
func (p *Paper) SubmitOrder(ctx context.Context, req OrderRequest) (Fill, error) {
	if err := ctx.Err(); err != nil {
		return Fill{}, err
	}
	if req.Quantity <= 0 {
		return Fill{}, fmt.Errorf("paper: quantity must be positive, got %v", req.Quantity)
	}
	if req.Price <= 0 {
		return Fill{}, fmt.Errorf("paper: no reference price for %s", req.Instrument)
	}

	p.mu.Lock()
	p.seq++
	orderID := fmt.Sprintf("paper-%06d", p.seq)
	p.mu.Unlock()

	p.log.Debug("paper fill",
		"order_id", orderID,
		"instrument", req.Instrument,
		"side", string(req.Side),
		"quantity", req.Quantity,
		"price", req.Price,
	)

	return Fill{
		OrderID:    orderID,
		Instrument: req.Instrument,
		Side:       req.Side,
		Quantity:   req.Quantity,
		Price:      req.Price,
		Time:       req.Time,
	}, nil
}
