package refresh

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/stableview/stableview/internal/clock"
	obsmetrics "github.com/stableview/stableview/internal/observability/metrics"
	"github.com/stableview/stableview/internal/providers/analytics"
	"github.com/stableview/stableview/internal/providers/price"
	"github.com/stableview/stableview/internal/ratelimit"
	stablecoindomain "github.com/stableview/stableview/internal/stablecoin/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	JobSync      = "sync"
	JobMetrics   = "metrics"
	JobPrices    = "prices"
	JobPegPrices = "peg_prices"
)

var ErrInvalidConfig = errors.New("refresh: invalid configuration")

// AnalyticsProvider is the slice of the analytics client the refresher needs.
type AnalyticsProvider interface {
	ListTokens(ctx context.Context) ([]analytics.TokenInfo, error)
	GetTokenMetrics(ctx context.Context, address string) (*analytics.TokenMetrics, error)
}

// PriceProvider is the slice of the price client the refresher needs.
type PriceProvider interface {
	GetPrice(ctx context.Context, address string) (*price.TokenPrice, error)
	GetPrices(ctx context.Context, addresses []string) map[string]price.Lookup
}

// RateProvider is the slice of the exchange-rate client the refresher needs.
type RateProvider interface {
	GetRate(ctx context.Context, from, to string) (float64, error)
}

// Result records the outcome for one coin within one run.
type Result struct {
	CoinID  string `json:"coinId"`
	Symbol  string `json:"symbol"`
	Success bool   `json:"success"`
	Value   string `json:"value,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Summary aggregates one job run.
type Summary struct {
	Job        string    `json:"job"`
	Total      int       `json:"total"`
	Succeeded  int       `json:"succeeded"`
	Failed     int       `json:"failed"`
	Skipped    bool      `json:"skipped,omitempty"`
	StartedAt  time.Time `json:"startedAt"`
	DurationMs int64     `json:"durationMs"`
	Results    []Result  `json:"results,omitempty"`
}

func (s *Summary) add(r Result) {
	s.Total++
	if r.Success {
		s.Succeeded++
	} else {
		s.Failed++
	}
	s.Results = append(s.Results, r)
}

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	Clock     clock.Clock
	GenID     *snowflake.Node
	Repo      stablecoindomain.Repository
	Analytics AnalyticsProvider
	Prices    PriceProvider
	Rates     RateProvider
	Locker    *ratelimit.RunLocker `optional:"true"`
	Config    Config               `optional:"true"`
}

// Refresher runs the three refresh flows plus the discovery sync. Failures
// are contained per coin; only enumeration errors abort a run.
type Refresher struct {
	db        *gorm.DB
	log       *zap.Logger
	clock     clock.Clock
	genID     *snowflake.Node
	cfg       Config
	repo      stablecoindomain.Repository
	analytics AnalyticsProvider
	prices    PriceProvider
	rates     RateProvider
	locker    *ratelimit.RunLocker
}

func New(p Params) (*Refresher, error) {
	if p.DB == nil || p.Log == nil || p.Clock == nil || p.GenID == nil ||
		p.Repo == nil || p.Analytics == nil || p.Prices == nil || p.Rates == nil {
		return nil, ErrInvalidConfig
	}
	return &Refresher{
		db:        p.DB,
		log:       p.Log.Named("refresh").With(zap.String("component", "refresh")),
		clock:     p.Clock,
		genID:     p.GenID,
		cfg:       p.Config.withDefaults(),
		repo:      p.Repo,
		analytics: p.Analytics,
		prices:    p.Prices,
		rates:     p.Rates,
		locker:    p.Locker,
	}, nil
}

// runJob wraps one job with the run lock, a timeout, metrics and logging.
func (r *Refresher) runJob(
	parent context.Context,
	name string,
	fn func(ctx context.Context) (*Summary, error),
) (*Summary, error) {
	start := r.clock.Now()
	ctx, cancel := context.WithTimeout(parent, r.cfg.JobTimeout)
	defer cancel()

	m := obsmetrics.Refresh()
	m.IncJobRun(name)

	key := ratelimit.RunLockKey(name)
	token, acquired, err := r.locker.TryLock(ctx, key, r.cfg.LockTTL)
	if err != nil {
		r.log.Warn("run lock unavailable, proceeding unguarded",
			zap.String("job", name), zap.Error(err))
	} else if !acquired {
		m.IncJobSkipped(name)
		r.log.Info("run already in progress elsewhere, skipping",
			zap.String("job", name))
		return &Summary{Job: name, Skipped: true, StartedAt: start}, nil
	} else {
		defer func() {
			if relErr := r.locker.Release(context.WithoutCancel(ctx), key, token); relErr != nil {
				r.log.Warn("run lock release failed", zap.String("job", name), zap.Error(relErr))
			}
		}()
	}

	log := r.log.With(zap.String("job", name))
	log.Info("refresh job started")

	summary, err := fn(ctx)
	elapsed := r.clock.Now().Sub(start)
	m.ObserveJobDuration(name, elapsed)

	if summary == nil {
		summary = &Summary{Job: name}
	}
	summary.Job = name
	summary.StartedAt = start
	summary.DurationMs = elapsed.Milliseconds()

	for _, res := range summary.Results {
		outcome := "updated"
		if !res.Success {
			outcome = "failed"
		}
		m.IncCoinOutcome(name, outcome)
	}

	if err != nil {
		m.IncJobError(name)
		log.Error("refresh job failed", zap.Error(err))
		return summary, err
	}

	log.Info("refresh job finished",
		zap.Int("total", summary.Total),
		zap.Int("succeeded", summary.Succeeded),
		zap.Int("failed", summary.Failed),
	)
	return summary, nil
}

// RunOnce executes one full pass: discovery sync, then the three refresh
// flows. Per-coin failures do not propagate; run-level errors are joined.
func (r *Refresher) RunOnce(parent context.Context) (map[string]*Summary, error) {
	summaries := make(map[string]*Summary, 4)
	var runErr error

	jobs := []struct {
		Name string
		Run  func(ctx context.Context) (*Summary, error)
	}{
		{JobSync, r.syncCoins},
		{JobMetrics, r.refreshMetrics},
		{JobPrices, r.refreshPrices},
		{JobPegPrices, r.refreshPegPrices},
	}

	for _, job := range jobs {
		summary, err := r.runJob(parent, job.Name, job.Run)
		summaries[job.Name] = summary
		if err != nil {
			runErr = errors.Join(runErr, err)
		}
	}
	return summaries, runErr
}

// RunForever ticks RunOnce on the configured interval until ctx is canceled.
func (r *Refresher) RunForever(ctx context.Context) {
	ticker := time.NewTicker(r.cfg.RunInterval)
	defer ticker.Stop()

	if _, err := r.RunOnce(ctx); err != nil {
		r.log.Error("refresh pass failed", zap.Error(err))
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := r.RunOnce(ctx); err != nil {
				r.log.Error("refresh pass failed", zap.Error(err))
			}
		}
	}
}

// RefreshMetrics, RefreshPrices and RefreshPegPrices are the manual-trigger
// entry points; each wraps its job with the standard run plumbing.
func (r *Refresher) RefreshMetrics(ctx context.Context) (*Summary, error) {
	return r.runJob(ctx, JobMetrics, r.refreshMetrics)
}

func (r *Refresher) RefreshPrices(ctx context.Context) (*Summary, error) {
	return r.runJob(ctx, JobPrices, r.refreshPrices)
}

func (r *Refresher) RefreshPegPrices(ctx context.Context) (*Summary, error) {
	return r.runJob(ctx, JobPegPrices, r.refreshPegPrices)
}

func (r *Refresher) SyncCoins(ctx context.Context) (*Summary, error) {
	return r.runJob(ctx, JobSync, r.syncCoins)
}
