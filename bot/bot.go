// Package bot runs the live decision loop: fetch candles, evaluate
// signals, process exits before entries, and journal everything. The
// loop is single-threaded; all trading state is owned by one
// goroutine. Cron jobs never touch that state directly, they enqueue
// work the loop goroutine executes between decision passes.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/rustyeddy/tradebot/broker"
	"github.com/rustyeddy/tradebot/config"
	"github.com/rustyeddy/tradebot/indicators"
	"github.com/rustyeddy/tradebot/internal/id"
	"github.com/rustyeddy/tradebot/journal"
	"github.com/rustyeddy/tradebot/market"
	"github.com/rustyeddy/tradebot/notify"
	"github.com/rustyeddy/tradebot/portfolio"
	"github.com/rustyeddy/tradebot/risk"
	"github.com/rustyeddy/tradebot/signal"
)

// MarketData supplies closed candles for an instrument.
type MarketData interface {
	Candles(ctx context.Context, instrument string, granularity time.Duration, limit int) (*market.Series, error)
}

// dailyRestorer is the optional journal capability used to rebuild the
// daily-loss state after a restart.
type dailyRestorer interface {
	RealizedPnLOn(date string) (float64, error)
}

// Bot owns the trading session.
type Bot struct {
	cfg   *config.Config
	data  MarketData
	exec  broker.Broker
	jrnl  journal.Journal
	notif notify.Notifier
	log   *slog.Logger

	agg      *signal.Aggregator
	mgr      *risk.Manager
	book     *portfolio.Book
	trackers map[string]*risk.Tracker

	instruments []string
	params      indicators.Params
	runID       string
	sched       *cron.Cron
	jobs        chan func()
}

// New assembles a bot from its adapters. A nil notifier is replaced
// with the no-op notifier, a nil journal with the no-op journal.
func New(cfg *config.Config, data MarketData, exec broker.Broker, jrnl journal.Journal, notif notify.Notifier, log *slog.Logger) *Bot {
	if log == nil {
		log = slog.Default()
	}
	if notif == nil {
		notif = notify.Noop{}
	}
	if jrnl == nil {
		jrnl = journal.Noop{}
	}

	instruments := append([]string(nil), cfg.TradingPairs...)
	sort.Strings(instruments)

	return &Bot{
		cfg:         cfg,
		data:        data,
		exec:        exec,
		jrnl:        jrnl,
		notif:       notif,
		log:         log,
		agg:         signal.NewAggregator(cfg.SignalThresholds(), log),
		mgr:         risk.NewManager(cfg.RiskLimits(), log),
		book:        portfolio.NewBook(cfg.Capital, log),
		trackers:    make(map[string]*risk.Tracker),
		instruments: instruments,
		params:      cfg.IndicatorParams(),
		runID:       id.New(),
		jobs:        make(chan func(), 4),
	}
}

// Run executes decision cycles until the context is canceled. The
// first cycle runs immediately; open positions survive shutdown and
// are picked up again by the stop trackers on restart.
func (b *Bot) Run(ctx context.Context) error {
	b.restoreDailyState(time.Now())
	b.startScheduler()
	defer b.sched.Stop()

	b.log.Info("bot started",
		"run_id", b.runID,
		"mode", b.cfg.Bot.Mode,
		"instruments", b.instruments,
		"interval", b.cfg.Bot.Interval.Std(),
	)

	ticker := time.NewTicker(b.cfg.Bot.Interval.Std())
	defer ticker.Stop()

	b.cycle(ctx)
	for {
		select {
		case <-ctx.Done():
			b.log.Info("bot stopping", "run_id", b.runID, "open_positions", b.book.OpenCount())
			return ctx.Err()
		case job := <-b.jobs:
			job()
		case <-ticker.C:
			b.cycle(ctx)
		}
	}
}

// restoreDailyState replays today's realized P&L from the journal so
// the circuit breaker survives a restart within the trading day.
func (b *Bot) restoreDailyState(now time.Time) {
	r, ok := b.jrnl.(dailyRestorer)
	if !ok {
		return
	}
	date := now.UTC().Format("2006-01-02")
	realized, err := r.RealizedPnLOn(date)
	if err != nil {
		b.log.Warn("daily state restore failed", "error", err)
		return
	}
	if realized == 0 {
		return
	}
	st := b.mgr.RestoreDay(realized, b.cfg.Capital, now)
	b.log.Info("daily state restored",
		"date", st.Date,
		"realized_pnl", st.RealizedPnL,
		"paused", st.TradingPaused,
	)
}

// startScheduler registers the daily summary and the midnight
// daily-stats snapshot. Cron fires on its own goroutine, so the jobs
// are handed to the loop goroutine instead of running in place: the
// book and risk manager are only ever touched from the loop.
func (b *Bot) startScheduler() {
	b.sched = cron.New(cron.WithLocation(time.UTC))

	summarySpec := fmt.Sprintf("0 %d * * *", b.cfg.Bot.SummaryHour)
	b.sched.AddFunc(summarySpec, func() { b.enqueue("daily summary", b.sendDailySummary) })
	b.sched.AddFunc("59 23 * * *", func() { b.enqueue("daily stats", b.persistDailyStats) })
	b.sched.Start()
}

// enqueue hands a job to the loop goroutine without blocking the cron
// goroutine. A full queue drops the job; the next scheduled firing
// covers it.
func (b *Bot) enqueue(name string, job func()) {
	select {
	case b.jobs <- job:
	default:
		b.log.Warn("scheduled job dropped, loop busy", "job", name)
	}
}

func (b *Bot) sendDailySummary() {
	date := time.Now().UTC().Format("2006-01-02")
	s := b.book.Summary(nil)
	b.notif.DailySummary(date, s)
	b.log.Info("daily summary sent", "date", date, "equity", s.Equity, "trades", s.TotalTrades)
}

func (b *Bot) persistDailyStats() {
	now := time.Now()
	s := b.book.Summary(nil)
	st := b.mgr.State(now)
	err := b.jrnl.RecordDaily(journal.DailyStats{
		Date:          st.Date,
		Capital:       s.Capital,
		Equity:        s.Equity,
		Trades:        s.TotalTrades,
		Wins:          s.Wins,
		Losses:        s.Losses,
		RealizedPnL:   st.RealizedPnL,
		UnrealizedPnL: s.UnrealizedPnL,
	})
	if err != nil {
		b.log.Warn("daily stats persist failed", "error", err)
	}
}

// cycle is one decision pass: signals for every instrument, exits,
// then entries.
func (b *Bot) cycle(ctx context.Context) {
	prices := make(map[string]float64, len(b.instruments))
	signals := make(map[string]signal.Signal, len(b.instruments))

	for _, inst := range b.instruments {
		series, err := b.data.Candles(ctx, inst, b.cfg.Strategy.Granularity.Std(), b.cfg.Strategy.LookbackCandles)
		if err != nil {
			b.log.Warn("candle fetch failed, skipping cycle", "instrument", inst, "error", err)
			continue
		}
		if err := series.Validate(b.cfg.Bot.MaxGap); err != nil {
			b.log.Warn("candle series rejected", "instrument", inst, "error", err)
			continue
		}
		if series.Len() == 0 {
			continue
		}

		last := series.Last()
		prices[inst] = last.Close

		snap, err := indicators.Compute(series.Candles, b.params)
		if err != nil {
			b.log.Warn("indicators skipped", "instrument", inst, "error", err)
			continue
		}
		signals[inst] = b.agg.Evaluate(inst, snap, last)
	}

	b.processExits(ctx, prices, signals)
	b.processEntries(ctx, prices, signals)
}

// processExits walks open positions in sorted order, advancing each
// stop tracker with the latest price and honoring signal reversals.
func (b *Bot) processExits(ctx context.Context, prices map[string]float64, signals map[string]signal.Signal) {
	for _, inst := range b.book.OpenInstruments() {
		price, ok := prices[inst]
		if !ok {
			continue
		}
		tr, ok := b.trackers[inst]
		if !ok {
			// Position predates this process; re-arm from its stored stops.
			pos, _ := b.book.Position(inst)
			tr = risk.NewTracker(pos.Side, pos.EntryPrice, pos.StopLoss, pos.TakeProfit,
				b.cfg.Strategy.TrailingActivatePct, b.cfg.Strategy.TrailingDistancePct)
			b.trackers[inst] = tr
		}

		if reason, hit := tr.Update(price); hit {
			b.closePosition(ctx, prices, inst, price, reason)
			continue
		}
		if sig, ok := signals[inst]; ok && sig.Direction == signal.Sell {
			tr.Close()
			b.closePosition(ctx, prices, inst, price, risk.ReasonSignal)
		}
	}
}

// closePosition routes the exit through the order executor and updates
// book, risk state, journal, and notifier. The position stays open if
// the exit order fails; the next cycle retries.
func (b *Bot) closePosition(ctx context.Context, prices map[string]float64, inst string, price float64, reason risk.CloseReason) {
	pos, ok := b.book.Position(inst)
	if !ok {
		return
	}

	fill, err := b.exec.SubmitOrder(ctx, broker.OrderRequest{
		Instrument: inst,
		Side:       broker.SideSell,
		Quantity:   pos.Quantity,
		Price:      price,
		Time:       time.Now().UTC(),
	})
	if err != nil {
		b.log.Error("exit order failed", "instrument", inst, "error", err)
		b.notif.Error("exit "+inst, err)
		return
	}

	t, ok := b.book.Close(inst, fill.Price, reason, fill.Time)
	if !ok {
		return
	}
	delete(b.trackers, inst)

	pausedBefore := b.mgr.State(fill.Time).TradingPaused
	st := b.mgr.RecordClose(t.PnL, b.book.Equity(prices), fill.Time)
	if st.TradingPaused && !pausedBefore {
		b.notif.LossLimitHit(notify.LossLimitHit{
			Date:        st.Date,
			RealizedPnL: st.RealizedPnL,
			Limit:       b.mgr.LossLimit(b.book.Equity(prices)),
		})
	}

	if err := b.jrnl.RecordTrade(tradeRecord(t, b.runID)); err != nil {
		b.log.Warn("trade journal failed", "trade_id", t.ID, "error", err)
	}
	b.notif.TradeClosed(notify.TradeClosed{
		Instrument: t.Instrument,
		Quantity:   t.Quantity,
		EntryPrice: t.EntryPrice,
		ExitPrice:  t.ExitPrice,
		PnL:        t.PnL,
		PnLPct:     t.PnLPct,
		Reason:     t.ExitReason,
		Time:       t.ExitTime,
	})
}

// processEntries acts on BUY signals in sorted instrument order. A
// position exists only after the executor confirms the fill.
func (b *Bot) processEntries(ctx context.Context, prices map[string]float64, signals map[string]signal.Signal) {
	for _, inst := range b.instruments {
		sig, ok := signals[inst]
		if !ok || sig.Direction == signal.None {
			continue
		}
		acted := b.tryEntry(ctx, prices, inst, sig)
		b.journalSignal(sig, acted)
	}
}

func (b *Bot) tryEntry(ctx context.Context, prices map[string]float64, inst string, sig signal.Signal) bool {
	if sig.Direction != signal.Buy {
		return false
	}
	if _, open := b.book.Position(inst); open {
		return false
	}

	equity := b.book.Equity(prices)
	sz, err := risk.Calculate(risk.SizeInputs{
		Equity:     equity,
		RiskPct:    b.cfg.Risk.RiskPerTradePct,
		EntryPrice: sig.Price,
		StopPrice:  sig.StopLoss,
		Increment:  b.cfg.Risk.QuantityIncrement,
	})
	if err != nil {
		b.log.Error("position sizing rejected", "instrument", inst, "error", err)
		b.notif.Error("sizing "+inst, err)
		return false
	}
	if sz.Quantity <= 0 || sz.Notional < 1 {
		return false
	}
	if sz.Notional > b.book.Capital() {
		b.log.Debug("entry skipped, insufficient free capital",
			"instrument", inst, "notional", sz.Notional, "capital", b.book.Capital())
		return false
	}

	dec := b.mgr.ApproveEntry(inst, sz.Notional, equity, b.book.OpenCount(), time.Now())
	if !dec.Allowed {
		b.log.Info("entry rejected",
			"instrument", inst, "reason", string(dec.Reason), "detail", dec.Detail)
		return false
	}

	fill, err := b.exec.SubmitOrder(ctx, broker.OrderRequest{
		Instrument: inst,
		Side:       broker.SideBuy,
		Quantity:   sz.Quantity,
		Price:      sig.Price,
		StopLoss:   sig.StopLoss,
		TakeProfit: sig.TakeProfit,
		Time:       time.Now().UTC(),
	})
	if err != nil {
		b.log.Error("entry order failed", "instrument", inst, "error", err)
		b.notif.Error("entry "+inst, err)
		return false
	}

	pos := b.book.Open(portfolio.Position{
		ID:         id.New(),
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
	b.trackers[inst] = risk.NewTracker(risk.Long, fill.Price, sig.StopLoss, sig.TakeProfit,
		b.cfg.Strategy.TrailingActivatePct, b.cfg.Strategy.TrailingDistancePct)

	b.notif.TradeOpened(notify.TradeOpened{
		Instrument: inst,
		Quantity:   pos.Quantity,
		Price:      pos.EntryPrice,
		USDCost:    pos.USDCost,
		StopLoss:   pos.StopLoss,
		TakeProfit: pos.TakeProfit,
		Time:       pos.EntryTime,
	})
	return true
}

func (b *Bot) journalSignal(sig signal.Signal, acted bool) {
	err := b.jrnl.RecordSignal(journal.SignalRecord{
		Instrument:    sig.Instrument,
		Direction:     string(sig.Direction),
		Confirmations: strings.Join(sig.Confirmations, ","),
		Price:         sig.Price,
		ActedOn:       acted,
		Time:          sig.Time,
	})
	if err != nil {
		b.log.Warn("signal journal failed", "instrument", sig.Instrument, "error", err)
	}
}

func tradeRecord(t portfolio.Trade, runID string) journal.TradeRecord {
	return journal.TradeRecord{
		TradeID:    t.ID,
		RunID:      runID,
		Instrument: t.Instrument,
		Quantity:   t.Quantity,
		EntryPrice: t.EntryPrice,
		ExitPrice:  t.ExitPrice,
		USDCost:    t.USDCost,
		PnL:        t.PnL,
		PnLPct:     t.PnLPct,
		EntryTime:  t.EntryTime,
		ExitTime:   t.ExitTime,
		Reason:     string(t.ExitReason),
	}
}
