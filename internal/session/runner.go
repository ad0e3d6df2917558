// Package session implements the SessionRunner: the orchestrator that
// sequences warm-up, calibration, and the trading loop for one market-making
// session, driving the Kalman filter and the Avellaneda-Stoikov strategy
// once per tick and tracking simulated or real fills and P&L.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"polymarket-mm/internal/api"
	"polymarket-mm/internal/config"
	"polymarket-mm/internal/exchange"
	"polymarket-mm/internal/kalman"
	"polymarket-mm/internal/market"
	"polymarket-mm/internal/risk"
	"polymarket-mm/internal/store"
	"polymarket-mm/internal/strategy"
	"polymarket-mm/internal/telemetry"
	"polymarket-mm/pkg/types"
)

// warmupObservation is one (wmp, vol_diff, kappa) sample recorded during
// Phase 1, before the Kalman filter has been calibrated.
type warmupObservation struct {
	wmp     float64
	volDiff float64
	kappa   float64
}

// Runner drives one market-making session end to end: resolve the market,
// warm up, calibrate, then trade until the session horizon elapses or the
// caller cancels.
type Runner struct {
	cfg    config.Config
	logger *slog.Logger

	feed   *market.MarketFeed
	client *exchange.Client
	broker exchange.WalletBroker

	riskMgr  *risk.Manager
	inv      *strategy.Inventory
	flow     *strategy.FlowTracker
	posStore *store.Store

	tape *telemetry.Tape
	db   *telemetry.Store

	dashboardEvents chan api.DashboardEvent

	sessionID string

	mu         sync.RWMutex
	phase      string
	marketInfo types.MarketInfo
	tokenID    string
	status     api.MarketStatus

	prevBid float64
	prevAsk float64

	estimator *kalman.Estimator
	calib     kalman.CalibrationResult

	shutdownOnce sync.Once
	cancel       context.CancelFunc
}

// New wires a Runner from configuration: it validates cfg, constructs the
// market feed and the appropriate WalletBroker (real or simulated), and
// opens the position store and telemetry sinks. It does not resolve the
// market or start any goroutine; call Run for that.
func New(cfg config.Config, logger *slog.Logger) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigInvalid, err)
	}

	feed := market.NewMarketFeed(cfg.API.GammaBaseURL, cfg.API.WSMarketURL, logger.With("component", "market_feed"))

	var (
		client *exchange.Client
		broker exchange.WalletBroker
	)

	if cfg.Session.ModoReal {
		auth, err := exchange.NewAuth(cfg)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", exchange.ErrAuthFailure, err)
		}
		client = exchange.NewClient(cfg, auth, logger)
		if !auth.HasL2Credentials() {
			logger.Info("no L2 credentials, deriving API key via L1")
			creds, err := client.DeriveAPIKey(context.Background())
			if err != nil {
				return nil, fmt.Errorf("%w: %v", exchange.ErrAuthFailure, err)
			}
			auth.SetCredentials(*creds)
		}
		broker = exchange.NewRealBroker(client, logger)
	} else {
		client = exchange.NewClient(cfg, nil, logger)
		broker = exchange.NewSimulatedBroker(cfg.Session.SizeUSDC * 10)
	}

	posStore, err := store.Open("data/positions")
	if err != nil {
		return nil, err
	}

	var db *telemetry.Store
	if cfg.Telemetry.SQLitePath != "" {
		db, err = telemetry.OpenStore(cfg.Telemetry.SQLitePath)
		if err != nil {
			return nil, err
		}
	}

	var dashEvents chan api.DashboardEvent
	if cfg.Dashboard.Enabled {
		dashEvents = make(chan api.DashboardEvent, 100)
	}

	return &Runner{
		cfg:             cfg,
		logger:          logger.With("component", "session"),
		feed:            feed,
		client:          client,
		broker:          broker,
		riskMgr:         risk.NewManager(cfg.Risk, logger),
		inv:             strategy.NewInventory(),
		flow: strategy.NewFlowTracker(
			cfg.Session.FlowWindow,
			cfg.Session.FlowToxicityThreshold,
			cfg.Session.FlowCooldownPeriod,
			cfg.Session.FlowMaxSpreadMultiplier,
		),
		posStore:        posStore,
		tape:            telemetry.NewTape(),
		db:              db,
		dashboardEvents: dashEvents,
		phase:           "startup",
		sessionID:       fmt.Sprintf("%s-%d", cfg.Session.MarketSlug, time.Now().Unix()),
	}, nil
}

// Run resolves the market, then runs warm-up, calibration, and trading to
// completion. It returns when the session finishes its horizon, ctx is
// canceled, or a fatal error occurs; shutdown (cancel outstanding orders,
// persist the result record) always runs before it returns.
func (r *Runner) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	defer r.Shutdown()

	info, err := r.feed.ResolveMarket(ctx, r.cfg.Session.MarketSlug)
	if err != nil {
		return err
	}
	r.marketInfo = info

	tokenID, err := r.feed.SelectOutcome(0)
	if err != nil {
		return err
	}
	r.tokenID = tokenID

	if pos, err := r.posStore.LoadPosition(info.ConditionID); err == nil && pos != nil {
		r.inv.SetPosition(*pos)
	}

	if r.cfg.Session.ModoReal {
		bal, err := r.broker.BalanceUSDC(ctx)
		if err != nil {
			return err
		}
		if bal < r.cfg.Session.SizeUSDC {
			return fmt.Errorf("%w: balance %.2f below size %.2f", exchange.ErrInsufficientFunds, bal, r.cfg.Session.SizeUSDC)
		}
		if err := r.broker.CancelAll(ctx); err != nil {
			return err
		}
	}

	if err := r.feed.SeedFromREST(ctx, r.client); err != nil {
		r.logger.Warn("REST book seed failed, starting from an empty book", "error", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return r.runFeed(gctx) })
	g.Go(func() error { r.riskMgr.Run(gctx); return nil })
	g.Go(func() error {
		defer cancel()
		return r.sessionLoop(gctx)
	})

	return g.Wait()
}

func (r *Runner) runFeed(ctx context.Context) error {
	if err := r.feed.Run(ctx); err != nil && ctx.Err() == nil {
		return fmt.Errorf("market feed: %w", err)
	}
	return nil
}

// sessionLoop runs the three phases in sequence on the session goroutine.
func (r *Runner) sessionLoop(ctx context.Context) error {
	warmupTape, err := r.runWarmup(ctx)
	if err != nil {
		return err
	}

	r.runCalibration(warmupTape)

	return r.runTrading(ctx)
}

// runWarmup polls the feed every tick interval, recording (wmp, vol_diff)
// pairs whenever wmp is positive and changed since the last observation,
// per §4.6 Phase 1. It also seeds the online estimator's state through the
// F*x predict-then-overwrite sequence. runCalibration then replaces that
// estimator with a new one seeded from the last warm-up observation, so the
// warm-up velocity components are reset to 0 before trading starts.
func (r *Runner) runWarmup(ctx context.Context) ([]warmupObservation, error) {
	r.setPhase("warmup")

	ticker := time.NewTicker(r.cfg.Session.TickInterval)
	defer ticker.Stop()

	r.estimator = kalman.NewEstimator(kalman.Vec4{}, kalman.Vec2{}, r.cfg.Session.RFactorSpread, r.cfg.Session.QFactorVol)

	var (
		tape    []warmupObservation
		lastWMP float64
		seeded  bool
	)

	for len(tape) < r.cfg.Session.WarmupTicks {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}

		wmp := r.feed.WMP()
		if math.IsNaN(wmp) || wmp <= 0 || wmp == lastWMP {
			continue
		}
		lastWMP = wmp
		volDiff := r.feed.VolDiff()
		kappa := r.feed.Kappa()

		if !seeded {
			r.estimator.Seed(wmp, volDiff)
			seeded = true
		} else {
			r.estimator.PredictAndSeedObservation(wmp, volDiff)
		}

		tape = append(tape, warmupObservation{wmp: wmp, volDiff: volDiff, kappa: kappa})
		r.tape.Append(telemetry.Row{
			Timestamp: time.Now(),
			WMP:       wmp,
			FairPrice: math.NaN(),
			OurBid:    math.NaN(),
			OurAsk:    math.NaN(),
			Kappa:     kappa,
		})
	}
	return tape, nil
}

// runCalibration fits the Kalman model's noise covariances to the warm-up
// tape (§4.2), falling back to the configured defaults when calibration
// fails to converge, and averages the warm-up kappa samples, falling back
// to KAPPA_FALLBACK when the average is unusable.
func (r *Runner) runCalibration(tape []warmupObservation) {
	r.setPhase("calibration")

	kappaBase := meanIgnoringNaN(kappaColumn(tape))
	if math.IsNaN(kappaBase) || kappaBase < 1e-4 {
		kappaBase = r.cfg.Session.KappaFallback
	}

	if r.cfg.ManualKalmanParams() {
		qDiag := kalman.Vec4(r.cfg.Session.QBaseDiag)
		rDiag := kalman.Vec2(r.cfg.Session.RBaseDiag)
		sigmaBase := r.cfg.Session.SigmaBase
		if sigmaBase == 0 {
			sigmaBase = 0.01
		}
		r.calib = kalman.CalibrationResult{QBaseDiag: qDiag, RBaseDiag: rDiag, SigmaBase: sigmaBase, KappaBase: kappaBase}
		r.estimator = kalman.NewEstimator(qDiag, rDiag, r.cfg.Session.RFactorSpread, r.cfg.Session.QFactorVol)
		if len(tape) > 0 {
			r.estimator.Seed(tape[len(tape)-1].wmp, tape[len(tape)-1].volDiff)
		}
		r.logger.Info("using manually configured Kalman parameters",
			"q_base", qDiag, "r_base", rDiag, "sigma_base", sigmaBase, "kappa_base", kappaBase)
		return
	}

	wmp := make([]float64, len(tape))
	volDiff := make([]float64, len(tape))
	for i, o := range tape {
		wmp[i] = o.wmp
		volDiff[i] = o.volDiff
	}

	calibrator := kalman.NewCalibrator(wmp, volDiff)

	qDiag, rDiag, err := calibrator.Fit()
	if err != nil {
		telemetry.IncCalibrationFailures()
		r.logger.Warn("calibration failed, using defaults", "error", err)
		qDiag = kalman.Vec4{0.01, 0.01, 0.1, 0.1}
		rDiag = kalman.Vec2{0.1, 1.0}
	}

	smoothed := calibrator.FilterTape(qDiag, rDiag)
	sigmaBase := kalman.SigmaBase(smoothed)

	r.calib = kalman.CalibrationResult{QBaseDiag: qDiag, RBaseDiag: rDiag, SigmaBase: sigmaBase, KappaBase: kappaBase}
	r.estimator = kalman.NewEstimator(qDiag, rDiag, r.cfg.Session.RFactorSpread, r.cfg.Session.QFactorVol)
	if len(tape) > 0 {
		r.estimator.Seed(tape[len(tape)-1].wmp, tape[len(tape)-1].volDiff)
	}

	r.logger.Info("calibration complete",
		"q_base", qDiag, "r_base", rDiag, "sigma_base", sigmaBase, "kappa_base", kappaBase)
}

// runTrading is the main loop: §4.6 Phase 3, once per tick while the
// session horizon has not elapsed.
func (r *Runner) runTrading(ctx context.Context) error {
	r.setPhase("trading")

	ticker := time.NewTicker(r.cfg.Session.TickInterval)
	defer ticker.Stop()

	start := time.Now()
	var fairHistory []float64
	var lastWMP float64

	params := strategy.Params{
		GammaBase:    r.cfg.Session.GammaBase,
		TotalHorizon: r.cfg.Session.TotalDuration.Seconds(),
		MaxInventory: r.cfg.Session.MaxInventario,
	}

	for {
		elapsed := time.Since(start)
		if elapsed > r.cfg.Session.TotalDuration {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case sig := <-r.riskMgr.KillCh():
			r.logger.Error("risk kill signal received", "reason", sig.Reason)
			telemetry.IncKillSwitchActivations()
			r.emitKillEvent(sig.Reason)
			cancelCtx, cancelFn := context.WithTimeout(context.Background(), 5*time.Second)
			if err := r.broker.CancelAll(cancelCtx); err != nil {
				r.logger.Error("cancel all after kill failed", "error", err)
			}
			cancelFn()
			continue
		case <-ticker.C:
		}

		wmp := r.feed.WMP()
		if math.IsNaN(wmp) || wmp == lastWMP {
			continue
		}
		lastWMP = wmp

		bestBid, bestAsk := r.feed.BestBid(), r.feed.BestAsk()
		spread := math.Abs(bestAsk - bestBid)
		volDiff := r.feed.VolDiff()

		sigmaRoll := kalman.RollingSigma(fairHistory, r.cfg.Session.RollingVolWindow, r.calib.SigmaBase)
		fairPrice, ok := r.estimator.Step(kalman.Vec2{wmp, volDiff}, spread, sigmaRoll)
		if !ok {
			r.logger.Warn("numeric instability in filter step, keeping prior state", "error", ErrNumeric)
		}
		fairHistory = append(fairHistory, fairPrice)

		if !r.cfg.Session.ModoReal {
			r.attemptSimulatedFill(bestBid, bestAsk)
		}

		kappa := r.feed.Kappa()
		if math.IsNaN(kappa) || kappa < 1e-4 {
			kappa = r.calib.KappaBase
		}

		toxicity := r.flow.CalculateToxicity()
		flowMultiplier := r.flow.GetSpreadMultiplier()

		q := strategy.ComputeQuote(params, r.inv.Shares(), fairPrice, kappa, sigmaRoll, elapsed.Seconds(), flowMultiplier)

		if r.cfg.Session.ModoReal {
			r.placeRealQuotes(ctx, q)
		}

		r.prevBid, r.prevAsk = q.Bid, q.Ask

		pnl := r.inv.MarkToMarket(fairPrice)
		telemetry.IncTicksProcessed()
		telemetry.SetFairPrice(fairPrice)
		telemetry.SetInventory(r.inv.Shares())
		telemetry.SetPnL(pnl)

		mid := (bestBid + bestAsk) / 2
		r.riskMgr.Report(risk.PositionReport{
			Shares:        r.inv.Shares(),
			Cash:          r.inv.Cash(),
			MidPrice:      mid,
			UnrealizedPnL: pnl,
			Timestamp:     time.Now(),
		})

		row := telemetry.Row{
			Timestamp:      time.Now(),
			WMP:            wmp,
			FairPrice:      fairPrice,
			Reservation:    q.ReservationPrice,
			OurBid:         q.Bid,
			OurAsk:         q.Ask,
			Inventory:      r.inv.Shares(),
			Cash:           r.inv.Cash(),
			PnL:            pnl,
			Gamma:          q.Gamma,
			Sigma:          sigmaRoll,
			Q00:            r.calib.QBaseDiag[0],
			R00:            r.calib.RBaseDiag[0],
			Kappa:          kappa,
			Toxicity:       toxicity.ToxicityScore,
			FlowMultiplier: flowMultiplier,
		}
		r.tape.Append(row)
		if r.db != nil {
			if err := r.db.AppendRow(r.sessionID, row); err != nil {
				r.logger.Warn("telemetry append failed", "error", err)
			}
		}

		telemetry.SetToxicity(toxicity.ToxicityScore)
		r.updateStatus(bestBid, bestAsk, mid, q, fairPrice, kappa, sigmaRoll, toxicity, flowMultiplier)
		r.emitQuoteEvent(q, mid)
	}
}

// attemptSimulatedFill checks the *previous* tick's quotes against the
// *current* best opposite-side price, per §4.6 Phase 3 step 2 and §9 Open
// Question 1: a deliberate one-tick look-back, kept exactly as specified.
func (r *Runner) attemptSimulatedFill(bestBid, bestAsk float64) {
	maxInv := r.cfg.Session.MaxInventario

	if !math.IsNaN(r.prevBid) && bestAsk > 0 && bestAsk <= r.prevBid && r.inv.Shares() < maxInv {
		fill := strategy.Fill{Timestamp: time.Now(), Side: strategy.Buy, Price: r.prevBid, Size: 1}
		r.inv.OnFill(fill)
		r.flow.AddFill(fill)
		r.emitFillEvent(strategy.Buy, r.prevBid, 1)
	}
	if !math.IsNaN(r.prevAsk) && bestBid > 0 && bestBid >= r.prevAsk && r.inv.Shares() > -maxInv {
		fill := strategy.Fill{Timestamp: time.Now(), Side: strategy.Sell, Price: r.prevAsk, Size: 1}
		r.inv.OnFill(fill)
		r.flow.AddFill(fill)
		r.emitFillEvent(strategy.Sell, r.prevAsk, 1)
	}
}

// placeRealQuotes cancels all resting orders, then places both legs sized
// in shares as SIZE_USDC / price; a NaN leg (kill-switch suppressed) is
// skipped, per §4.6 Phase 3 step 4.
func (r *Runner) placeRealQuotes(ctx context.Context, q strategy.Quote) {
	if err := r.broker.CancelAll(ctx); err != nil {
		r.logger.Warn("cancel all before re-quote failed", "error", err)
	}
	if !math.IsNaN(q.Bid) && q.Bid > 0 {
		size := r.cfg.Session.SizeUSDC / q.Bid
		if _, err := r.broker.PlaceLimit(ctx, r.tokenID, q.Bid, size, types.BUY); err != nil {
			r.logger.Warn("place bid failed", "error", err)
		}
	}
	if !math.IsNaN(q.Ask) && q.Ask > 0 {
		size := r.cfg.Session.SizeUSDC / q.Ask
		if _, err := r.broker.PlaceLimit(ctx, r.tokenID, q.Ask, size, types.SELL); err != nil {
			r.logger.Warn("place ask failed", "error", err)
		}
	}
}

// Shutdown cancels outstanding orders, persists the final result record
// (CSV row and SQLite row), and releases telemetry resources. It is
// idempotent: a second call is a no-op.
func (r *Runner) Shutdown() {
	r.shutdownOnce.Do(func() {
		r.logger.Info("shutting down session")

		if r.cancel != nil {
			r.cancel()
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := r.broker.CancelAll(ctx); err != nil {
			r.logger.Error("final cancel-all failed", "error", err)
		}

		pos := r.inv.Snapshot()
		if r.marketInfo.ConditionID != "" {
			if err := r.posStore.SavePosition(r.marketInfo.ConditionID, pos); err != nil {
				r.logger.Error("failed to persist position", "error", err)
			}
		}

		result := telemetry.Result{
			Timestamp:       time.Now(),
			Market:          r.cfg.Session.MarketSlug,
			TokenSeguido:    r.tokenID,
			ModoReal:        r.cfg.Session.ModoReal,
			PnLFinal:        r.inv.MarkToMarket(r.lastFairPrice()),
			InventarioFinal: pos.Shares,
			CashFinal:       pos.Cash,
			KappaCalibrada:  r.calib.KappaBase,
		}

		csvPath := r.cfg.Telemetry.ResultsCSV
		if csvPath == "" {
			csvPath = "Data/simulacion/resultados_manuales.csv"
		}
		if err := telemetry.AppendCSVRow(csvPath, result); err != nil {
			r.logger.Error("failed to append CSV result row", "error", err)
		}
		if r.db != nil {
			if err := r.db.AppendResult(r.sessionID, result); err != nil {
				r.logger.Error("failed to persist sqlite result row", "error", err)
			}
			if err := r.db.Close(); err != nil {
				r.logger.Error("failed to close telemetry db", "error", err)
			}
		}
		if err := r.posStore.Close(); err != nil {
			r.logger.Error("failed to close position store", "error", err)
		}
		if err := r.feed.Close(); err != nil {
			r.logger.Error("failed to close market feed", "error", err)
		}
		if r.dashboardEvents != nil {
			close(r.dashboardEvents)
		}
	})
}

func (r *Runner) lastFairPrice() float64 {
	if row, ok := r.tape.Last(); ok && !math.IsNaN(row.FairPrice) {
		return row.FairPrice
	}
	return r.feed.WMP()
}

func (r *Runner) setPhase(phase string) {
	r.mu.Lock()
	r.phase = phase
	r.mu.Unlock()
}

// GetPhase implements api.MarketSnapshotProvider.
func (r *Runner) GetPhase() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.phase
}

// GetMarketSnapshot implements api.MarketSnapshotProvider.
func (r *Runner) GetMarketSnapshot() api.MarketStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.status
}

// GetRiskSnapshot implements api.MarketSnapshotProvider, converting the
// internal risk manager's snapshot into the dashboard-facing shape.
func (r *Runner) GetRiskSnapshot() api.RiskSnapshot {
	snap := r.riskMgr.Snapshot()
	return api.RiskSnapshot{
		KillSwitchActive: snap.KillSwitchActive,
		KillSwitchUntil:  snap.KillSwitchUntil,
		KillSwitchReason: snap.KillSwitchReason,
		UnrealizedPnL:    snap.UnrealizedPnL,
		MidPrice:         snap.MidPrice,
	}
}

// DashboardEvents implements api.MarketSnapshotProvider.
func (r *Runner) DashboardEvents() <-chan api.DashboardEvent {
	return r.dashboardEvents
}

func (r *Runner) updateStatus(bestBid, bestAsk, mid float64, q strategy.Quote, fairPrice, kappa, sigma float64, toxicity strategy.ToxicityMetrics, flowMultiplier float64) {
	pos := r.inv.Snapshot()
	pnl := r.inv.MarkToMarket(fairPrice)

	status := api.MarketStatus{
		ConditionID: r.marketInfo.ConditionID,
		Slug:        r.marketInfo.Slug,
		Question:    r.marketInfo.Question,
		MidPrice:    mid,
		BestBid:     bestBid,
		BestAsk:     bestAsk,
		Spread:      bestAsk - bestBid,
		LastUpdated: time.Now(),
		Position: api.PositionSnapshot{
			Shares:        pos.Shares,
			Cash:          pos.Cash,
			RealizedPnL:   pos.RealizedPnL,
			UnrealizedPnL: pnl - pos.RealizedPnL,
			LastUpdated:   pos.LastUpdated,
		},
		ReservationPrice: q.ReservationPrice,
		Gamma:            q.Gamma,
		Kappa:            kappa,
		Sigma:            sigma,
		EndDate:          r.marketInfo.EndDate,
		Liquidity:        r.marketInfo.Liquidity,
		Volume24h:        r.marketInfo.Volume24h,
		Flow: api.ToxicitySummary{
			DirectionalImbalance: toxicity.DirectionalImbalance,
			FillVelocity:         toxicity.FillVelocity,
			ToxicityScore:        toxicity.ToxicityScore,
			IsAverse:             toxicity.IsAverse,
			SpreadMultiplier:     flowMultiplier,
		},
	}
	if !math.IsNaN(q.Bid) {
		status.ActiveBid = &api.QuoteInfo{Price: q.Bid, Size: r.cfg.Session.SizeUSDC / q.Bid, Timestamp: time.Now()}
	}
	if !math.IsNaN(q.Ask) {
		status.ActiveAsk = &api.QuoteInfo{Price: q.Ask, Size: r.cfg.Session.SizeUSDC / q.Ask, Timestamp: time.Now()}
	}

	r.mu.Lock()
	r.status = status
	r.mu.Unlock()
}

func (r *Runner) emitDashboardEvent(evt api.DashboardEvent) {
	if r.dashboardEvents == nil {
		return
	}
	select {
	case r.dashboardEvents <- evt:
	default:
	}
}

func (r *Runner) emitQuoteEvent(q strategy.Quote, mid float64) {
	r.emitDashboardEvent(api.DashboardEvent{
		Type:      "quote",
		Timestamp: time.Now(),
		Data: api.QuoteEvent{
			MarketSlug:       r.cfg.Session.MarketSlug,
			BidPrice:         q.Bid,
			AskPrice:         q.Ask,
			ReservationPrice: q.ReservationPrice,
			MidPrice:         mid,
		},
	})
}

func (r *Runner) emitFillEvent(side strategy.Side, price, size float64) {
	pos := r.inv.Snapshot()
	r.emitDashboardEvent(api.DashboardEvent{
		Type:      "fill",
		Timestamp: time.Now(),
		Data: api.NewFillEvent(
			"",
			string(side),
			price, size,
			api.PositionSnapshot{Shares: pos.Shares, Cash: pos.Cash, RealizedPnL: pos.RealizedPnL, LastUpdated: pos.LastUpdated},
			r.cfg.Session.MarketSlug,
		),
	})
}

func (r *Runner) emitKillEvent(reason string) {
	r.emitDashboardEvent(api.DashboardEvent{
		Type:      "kill",
		Timestamp: time.Now(),
		Data:      api.NewKillEvent(reason, reason, time.Now().Add(r.cfg.Risk.CooldownAfterKill)),
	})
}

func kappaColumn(tape []warmupObservation) []float64 {
	out := make([]float64, len(tape))
	for i, o := range tape {
		out[i] = o.kappa
	}
	return out
}

func meanIgnoringNaN(xs []float64) float64 {
	sum, n := 0.0, 0
	for _, x := range xs {
		if math.IsNaN(x) {
			continue
		}
		sum += x
		n++
	}
	if n == 0 {
		return math.NaN()
	}
	return sum / float64(n)
}
