package broker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaper_SequentialOrderIDs(t *testing.T) {
	t.Parallel()

	p := NewPaper(nil)
	ctx := context.Background()
	req := OrderRequest{
		Instrument: "ETH-USD",
		Side:       SideBuy,
		Quantity:   1,
		Price:      100,
		Time:       time.Date(2026, 8, 25, 0, 0, 0, 0, time.UTC),
	}

	f1, err := p.SubmitOrder(ctx, req)
	require.NoError(t, err)
	f2, err := p.SubmitOrder(ctx, req)
	require.NoError(t, err)

	assert.Equal(t, "paper-000001", f1.OrderID)
	assert.Equal(t, "paper-000002", f2.OrderID)
}

func TestPaper_FillsAtReferencePrice(t *testing.T) {
	t.Parallel()

	p := NewPaper(nil)
	f, err := p.SubmitOrder(context.Background(), OrderRequest{
		Instrument: "BTC-USD",
		Side:       SideSell,
		Quantity:   0.5,
		Price:      50000,
	})
	require.NoError(t, err)

	assert.InDelta(t, 50000, f.Price, 1e-9)
	assert.InDelta(t, 0.5, f.Quantity, 1e-9)
	assert.Equal(t, SideSell, f.Side)
}

func TestPaper_RejectsBadOrders(t *testing.T) {
	t.Parallel()

	p := NewPaper(nil)
	ctx := context.Background()

	_, err := p.SubmitOrder(ctx, OrderRequest{Instrument: "ETH-USD", Side: SideBuy, Quantity: 0, Price: 100})
	assert.Error(t, err)

	_, err = p.SubmitOrder(ctx, OrderRequest{Instrument: "ETH-USD", Side: SideBuy, Quantity: 1, Price: 0})
	assert.Error(t, err)
}

func TestPaper_HonorsCanceledContext(t *testing.T) {
	t.Parallel()

	p := NewPaper(nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.SubmitOrder(ctx, OrderRequest{Instrument: "ETH-USD", Side: SideBuy, Quantity: 1, Price: 100})
	assert.ErrorIs(t, err, context.Canceled)
}
