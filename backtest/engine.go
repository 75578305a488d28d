// Package backtest replays historical candle series through the same
// decision pipeline the live loop runs: indicators, signal
// aggregation, the risk gate, sizing, and stop tracking. Replay is
// deterministic: sorted instrument order, sequential paper fills, and
// the candle clock instead of the wall clock.
package backtest

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/rustyeddy/tradebot/broker"
	"github.com/rustyeddy/tradebot/config"
	"github.com/rustyeddy/tradebot/indicators"
	"github.com/rustyeddy/tradebot/market"
	"github.com/rustyeddy/tradebot/portfolio"
	"github.com/rustyeddy/tradebot/risk"
	"github.com/rustyeddy/tradebot/signal"
)

// Result is everything one replay produced.
type Result struct {
	Start       time.Time
	End         time.Time
	Instruments []string
	Candles     int

	Trades      []portfolio.Trade
	EquityCurve []float64
	FinalEquity float64
	Metrics     Metrics
}

// Engine replays candle data under one immutable configuration.
type Engine struct {
	cfg *config.Config
	log *slog.Logger
}

// New builds an engine. A nil logger falls back to slog.Default.
func New(cfg *config.Config, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{cfg: cfg, log: log}
}

// Run replays the series, one decision cycle per candle index. For
// each cycle signals are computed for every instrument first, then
// exits are processed, then entries, so a freed position slot is
// usable within the same cycle and no entry ever consumes a slot an
// exit was about to release.
func (e *Engine) Run(ctx context.Context, data map[string]*market.Series) (*Result, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("backtest: no candle data")
	}

	instruments := make([]string, 0, len(data))
	for inst := range data {
		instruments = append(instruments, inst)
	}
	sort.Strings(instruments)

	params := e.cfg.IndicatorParams()
	warmup := params.MinHistory()

	// Series defects are config/data errors, fatal before replay starts.
	minLen := -1
	for _, inst := range instruments {
		s := data[inst]
		if err := s.Validate(e.cfg.Bot.MaxGap); err != nil {
			return nil, err
		}
		if s.Len() <= warmup {
			return nil, fmt.Errorf("backtest: %s has %d candles, need more than %d",
				inst, s.Len(), warmup)
		}
		if minLen < 0 || s.Len() < minLen {
			minLen = s.Len()
		}
	}

	agg := signal.NewAggregator(e.cfg.SignalThresholds(), e.log)
	mgr := risk.NewManager(e.cfg.RiskLimits(), e.log)
	book := portfolio.NewBook(e.cfg.Capital, e.log)
	paper := broker.NewPaper(e.log)
	trackers := make(map[string]*risk.Tracker)

	lookback := e.cfg.Strategy.LookbackCandles
	curve := make([]float64, 0, minLen-warmup+1)

	for i := warmup - 1; i < minLen; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		// Signals for every instrument on every cycle, open position or
		// not: the crossover buffer must see an unbroken candle stream.
		prices := make(map[string]float64, len(instruments))
		signals := make(map[string]signal.Signal, len(instruments))
		for _, inst := range instruments {
			c := data[inst].Candles[i]
			prices[inst] = c.Close
			snap, err := indicators.Compute(data[inst].Window(i, lookback), params)
			if err != nil {
				return nil, fmt.Errorf("backtest: %s candle %d: %w", inst, i, err)
			}
			signals[inst] = agg.Evaluate(inst, snap, c)
		}

		// Exits first.
		for _, inst := range book.OpenInstruments() {
			c := data[inst].Candles[i]
			tr := trackers[inst]

			if exitPrice, reason, hit := tr.UpdateCandle(c); hit {
				e.close(ctx, paper, book, mgr, prices, inst, exitPrice, reason, c.Time)
				delete(trackers, inst)
				continue
			}
			if signals[inst].Direction == signal.Sell {
				tr.Close()
				e.close(ctx, paper, book, mgr, prices, inst, c.Close, risk.ReasonSignal, c.Time)
				delete(trackers, inst)
			}
		}

		// Entries.
		for _, inst := range instruments {
			sig := signals[inst]
			if sig.Direction != signal.Buy {
				continue
			}
			if _, open := book.Position(inst); open {
				continue
			}
			c := data[inst].Candles[i]
			equity := book.Equity(prices)

			sz, err := risk.Calculate(risk.SizeInputs{
				Equity:     equity,
				RiskPct:    e.cfg.Risk.RiskPerTradePct,
				EntryPrice: sig.Price,
				StopPrice:  sig.StopLoss,
				Increment:  e.cfg.Risk.QuantityIncrement,
			})
			if err != nil {
				return nil, fmt.Errorf("backtest: sizing %s: %w", inst, err)
			}
			if sz.Quantity <= 0 || sz.Notional < 1 {
				continue
			}
			if sz.Notional > book.Capital() {
				e.log.Debug("entry skipped, insufficient free capital",
					"instrument", inst, "notional", sz.Notional, "capital", book.Capital())
				continue
			}

			dec := mgr.ApproveEntry(inst, sz.Notional, equity, book.OpenCount(), c.Time)
			if !dec.Allowed {
				e.log.Debug("entry rejected",
					"instrument", inst, "reason", string(dec.Reason), "detail", dec.Detail)
				continue
			}

			fill, err := paper.SubmitOrder(ctx, broker.OrderRequest{
				Instrument: inst,
				Side:       broker.SideBuy,
				Quantity:   sz.Quantity,
				Price:      c.Close,
				StopLoss:   sig.StopLoss,
				TakeProfit: sig.TakeProfit,
				Time:       c.Time,
			})
			if err != nil {
				e.log.Warn("paper order failed", "instrument", inst, "error", err)
				continue
			}

			book.Open(portfolio.Position{
				ID:         fill.OrderID,
				Instrument: inst,
				Side:       risk.Long,
				EntryPrice: fill.Price,
				Quantity:   fill.Quantity,
				USDCost:    fill.Price * fill.Quantity,
				StopLoss:   sig.StopLoss,
				TakeProfit: sig.TakeProfit,
				OrderID:    fill.OrderID,
				EntryTime:  fill.Time,
			})
			trackers[inst] = risk.NewTracker(risk.Long, fill.Price, sig.StopLoss, sig.TakeProfit,
				e.cfg.Strategy.TrailingActivatePct, e.cfg.Strategy.TrailingDistancePct)
		}

		curve = append(curve, book.Equity(prices))
	}

	// Remaining positions close at the final candle's close.
	finalPrices := make(map[string]float64, len(instruments))
	for _, inst := range instruments {
		finalPrices[inst] = data[inst].Candles[minLen-1].Close
	}
	for _, inst := range book.OpenInstruments() {
		c := data[inst].Candles[minLen-1]
		trackers[inst].Close()
		e.close(ctx, paper, book, mgr, finalPrices, inst, c.Close, risk.ReasonEndOfData, c.Time)
		delete(trackers, inst)
	}
	curve = append(curve, book.Equity(finalPrices))

	res := &Result{
		Start:       data[instruments[0]].Candles[warmup-1].Time,
		End:         data[instruments[0]].Candles[minLen-1].Time,
		Instruments: instruments,
		Candles:     minLen - warmup + 1,
		Trades:      book.Trades(),
		EquityCurve: curve,
		FinalEquity: curve[len(curve)-1],
		Metrics:     ComputeMetrics(book.Trades(), curve),
	}
	return res, nil
}

// close routes an exit through the paper broker and folds the realized
// P&L into the daily-loss state.
func (e *Engine) close(ctx context.Context, paper *broker.Paper, book *portfolio.Book,
	mgr *risk.Manager, prices map[string]float64,
	inst string, exitPrice float64, reason risk.CloseReason, at time.Time) {

	pos, ok := book.Position(inst)
	if !ok {
		return
	}
	if _, err := paper.SubmitOrder(ctx, broker.OrderRequest{
		Instrument: inst,
		Side:       broker.SideSell,
		Quantity:   pos.Quantity,
		Price:      exitPrice,
		Time:       at,
	}); err != nil {
		e.log.Warn("paper exit failed", "instrument", inst, "error", err)
		return
	}
	if t, ok := book.Close(inst, exitPrice, reason, at); ok {
		mgr.RecordClose(t.PnL, book.Equity(prices), at)
	}
}
