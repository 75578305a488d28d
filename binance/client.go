// Package binance adapts the Binance spot API to the engine's market
// data and order interfaces. Instruments use BASE-QUOTE product IDs
// ("ETH-USD"); the adapter owns the translation to exchange symbols.
package binance

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	gobinance "github.com/adshao/go-binance/v2"
	"github.com/jpillora/backoff"
	"github.com/shopspring/decimal"

	"github.com/rustyeddy/tradebot/broker"
	"github.com/rustyeddy/tradebot/market"
)

// Client wraps the Binance REST client.
type Client struct {
	api *gobinance.Client
	log *slog.Logger

	retries int
	backoff func() *backoff.Backoff
}

// New builds a client. Testnet routes all calls to the Binance spot
// testnet.
func New(apiKey, apiSecret string, testnet bool, log *slog.Logger) *Client {
	if log == nil {
		log = slog.Default()
	}
	gobinance.UseTestnet = testnet
	return &Client{
		api:     gobinance.NewClient(apiKey, apiSecret),
		log:     log,
		retries: 3,
		backoff: func() *backoff.Backoff {
			return &backoff.Backoff{
				Min:    500 * time.Millisecond,
				Max:    10 * time.Second,
				Factor: 2,
				Jitter: true,
			}
		},
	}
}

// Symbol translates a product ID to a Binance symbol. USD trades
// against the USDT book.
func Symbol(instrument string) string {
	base, quote, ok := strings.Cut(instrument, "-")
	if !ok {
		return strings.ToUpper(instrument)
	}
	if strings.EqualFold(quote, "USD") {
		quote = "USDT"
	}
	return strings.ToUpper(base + quote)
}

// interval maps a granularity onto the Binance kline interval strings.
func interval(g time.Duration) (string, error) {
	switch g {
	case time.Minute:
		return "1m", nil
	case 3 * time.Minute:
		return "3m", nil
	case 5 * time.Minute:
		return "5m", nil
	case 15 * time.Minute:
		return "15m", nil
	case 30 * time.Minute:
		return "30m", nil
	case time.Hour:
		return "1h", nil
	case 4 * time.Hour:
		return "4h", nil
	case 24 * time.Hour:
		return "1d", nil
	}
	return "", fmt.Errorf("binance: unsupported granularity %s", g)
}

// Candles fetches the most recent limit candles for an instrument.
// Transient API failures are retried with jittered backoff; the last
// (still forming) candle is dropped so the series only carries closed
// bars.
func (c *Client) Candles(ctx context.Context, instrument string, granularity time.Duration, limit int) (*market.Series, error) {
	iv, err := interval(granularity)
	if err != nil {
		return nil, err
	}

	var klines []*gobinance.Kline
	b := c.backoff()
	for attempt := 0; ; attempt++ {
		klines, err = c.api.NewKlinesService().
			Symbol(Symbol(instrument)).
			Interval(iv).
			Limit(limit + 1).
			Do(ctx)
		if err == nil {
			break
		}
		if attempt >= c.retries || ctx.Err() != nil {
			return nil, fmt.Errorf("binance: klines %s: %w", instrument, err)
		}
		d := b.Duration()
		c.log.Warn("klines fetch failed, retrying",
			"instrument", instrument, "attempt", attempt+1, "backoff", d, "error", err)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(d):
		}
	}

	if len(klines) > 0 {
		klines = klines[:len(klines)-1]
	}

	candles := make([]market.Candle, 0, len(klines))
	for _, k := range klines {
		cd, err := toCandle(k)
		if err != nil {
			return nil, fmt.Errorf("binance: %s: %w", instrument, err)
		}
		candles = append(candles, cd)
	}
	return market.NewSeries(instrument, granularity, candles), nil
}

func toCandle(k *gobinance.Kline) (market.Candle, error) {
	var (
		c   market.Candle
		err error
	)
	if c.Open, err = strconv.ParseFloat(k.Open, 64); err != nil {
		return c, err
	}
	if c.High, err = strconv.ParseFloat(k.High, 64); err != nil {
		return c, err
	}
	if c.Low, err = strconv.ParseFloat(k.Low, 64); err != nil {
		return c, err
	}
	if c.Close, err = strconv.ParseFloat(k.Close, 64); err != nil {
		return c, err
	}
	if c.Volume, err = strconv.ParseFloat(k.Volume, 64); err != nil {
		return c, err
	}
	c.Time = time.UnixMilli(k.OpenTime).UTC()
	return c, nil
}

// Price returns the current ticker price for an instrument.
func (c *Client) Price(ctx context.Context, instrument string) (float64, error) {
	prices, err := c.api.NewListPricesService().Symbol(Symbol(instrument)).Do(ctx)
	if err != nil {
		return 0, fmt.Errorf("binance: price %s: %w", instrument, err)
	}
	if len(prices) == 0 {
		return 0, fmt.Errorf("binance: no price for %s", instrument)
	}
	return strconv.ParseFloat(prices[0].Price, 64)
}

// SubmitOrder places a market order and reports the volume-weighted
// fill. Implements broker.Broker.
func (c *Client) SubmitOrder(ctx context.Context, req broker.OrderRequest) (broker.Fill, error) {
	if req.Quantity <= 0 {
		return broker.Fill{}, fmt.Errorf("binance: quantity must be positive, got %v", req.Quantity)
	}

	side := gobinance.SideTypeBuy
	if req.Side == broker.SideSell {
		side = gobinance.SideTypeSell
	}

	resp, err := c.api.NewCreateOrderService().
		Symbol(Symbol(req.Instrument)).
		Side(side).
		Type(gobinance.OrderTypeMarket).
		Quantity(decimal.NewFromFloat(req.Quantity).String()).
		Do(ctx)
	if err != nil {
		return broker.Fill{}, fmt.Errorf("binance: order %s %s: %w", req.Side, req.Instrument, err)
	}

	price, qty, err := vwap(resp.Fills)
	if err != nil {
		return broker.Fill{}, fmt.Errorf("binance: order %d: %w", resp.OrderID, err)
	}

	c.log.Info("order filled",
		"order_id", resp.OrderID,
		"instrument", req.Instrument,
		"side", string(req.Side),
		"quantity", qty,
		"price", price,
	)

	return broker.Fill{
		OrderID:    strconv.FormatInt(resp.OrderID, 10),
		Instrument: req.Instrument,
		Side:       req.Side,
		Quantity:   qty,
		Price:      price,
		Time:       time.UnixMilli(resp.TransactTime).UTC(),
	}, nil
}

// vwap reduces partial fills to one average price and total quantity.
func vwap(fills []*gobinance.Fill) (price, qty float64, err error) {
	if len(fills) == 0 {
		return 0, 0, fmt.Errorf("no fills reported")
	}
	var notional float64
	for _, f := range fills {
		p, err := strconv.ParseFloat(f.Price, 64)
		if err != nil {
			return 0, 0, err
		}
		q, err := strconv.ParseFloat(f.Quantity, 64)
		if err != nil {
			return 0, 0, err
		}
		notional += p * q
		qty += q
	}
	if qty <= 0 {
		return 0, 0, fmt.Errorf("zero filled quantity")
	}
	return notional / qty, qty, nil
}
