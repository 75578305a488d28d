package binance

import (
	"testing"
	"time"

	gobinance "github.com/adshao/go-binance/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSymbol(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "ETHUSDT", Symbol("ETH-USD"))
	assert.Equal(t, "BTCUSDT", Symbol("btc-usd"))
	assert.Equal(t, "ETHBTC", Symbol("ETH-BTC"))
	// Already-flat symbols pass through.
	assert.Equal(t, "ETHUSDT", Symbol("ETHUSDT"))
}

func TestInterval(t *testing.T) {
	t.Parallel()

	iv, err := interval(5 * time.Minute)
	require.NoError(t, err)
	assert.Equal(t, "5m", iv)

	iv, err = interval(time.Hour)
	require.NoError(t, err)
	assert.Equal(t, "1h", iv)

	_, err = interval(7 * time.Minute)
	assert.Error(t, err)
}

func TestToCandle(t *testing.T) {
	t.Parallel()

	c, err := toCandle(&gobinance.Kline{
		OpenTime: 1756111200000,
		Open:     "100.5",
		High:     "101.25",
		Low:      "99.75",
		Close:    "100.0",
		Volume:   "1234.5",
	})
	require.NoError(t, err)

	assert.InDelta(t, 100.5, c.Open, 1e-9)
	assert.InDelta(t, 101.25, c.High, 1e-9)
	assert.InDelta(t, 99.75, c.Low, 1e-9)
	assert.InDelta(t, 100.0, c.Close, 1e-9)
	assert.InDelta(t, 1234.5, c.Volume, 1e-9)
	assert.Equal(t, time.UnixMilli(1756111200000).UTC(), c.Time)

	_, err = toCandle(&gobinance.Kline{Open: "not-a-number"})
	assert.Error(t, err)
}

func TestVWAP(t *testing.T) {
	t.Parallel()

	price, qty, err := vwap([]*gobinance.Fill{
		{Price: "100", Quantity: "1"},
		{Price: "102", Quantity: "3"},
	})
	require.NoError(t, err)
	assert.InDelta(t, 101.5, price, 1e-9)
	assert.InDelta(t, 4, qty, 1e-9)

	_, _, err = vwap(nil)
	assert.Error(t, err)
}
