package facade

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	appErrors "github.com/unclebandit/channel-ledger/internal/errors"
	"github.com/unclebandit/channel-ledger/internal/model"
	"github.com/unclebandit/channel-ledger/internal/service"
)

type Aggregations interface {
	DashboardSnapshot(ctx context.Context) (*service.DashboardSnapshot, error)
	PublicProductFeed(ctx context.Context) ([]service.ProductWithListings, error)
	BasicStats(ctx context.Context) (*service.BasicStats, error)
	PostingActivityReport(ctx context.Context, limit int) (*service.PostingActivityReport, error)
}

type FunnelCounter interface {
	FunnelWindowCounts(ctx context.Context, window time.Duration) (map[model.LeadType]int, error)
}

type FunnelView struct {
	WindowDays int                    `json:"window_days"`
	Counts     map[model.LeadType]int `json:"counts"`
}

type HealthReport struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// Facade is the read-only entry point for dashboards and reporting tools.
// It only shapes results; all computation lives in the services.
type Facade struct {
	Agg    Aggregations
	Funnel FunnelCounter
	Probes []Prober
	Logger *zap.Logger
	// FunnelWindow is used when a caller asks for no particular window.
	FunnelWindow time.Duration
}

func New(agg Aggregations, funnel FunnelCounter, logger *zap.Logger, probes ...Prober) *Facade {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Facade{Agg: agg, Funnel: funnel, Probes: probes, Logger: logger, FunnelWindow: service.DefaultFunnelWindow}
}

func (f *Facade) Dashboard(ctx context.Context) Response {
	snap, err := f.Agg.DashboardSnapshot(ctx)
	return f.respond("dashboard", snap, err)
}

func (f *Facade) Feed(ctx context.Context) Response {
	feed, err := f.Agg.PublicProductFeed(ctx)
	return f.respond("feed", feed, err)
}

func (f *Facade) Stats(ctx context.Context) Response {
	stats, err := f.Agg.BasicStats(ctx)
	return f.respond("stats", stats, err)
}

func (f *Facade) PostingActivity(ctx context.Context, limit int) Response {
	report, err := f.Agg.PostingActivityReport(ctx, limit)
	return f.respond("posting activity", report, err)
}

// MaxFunnelDays bounds the window a caller may ask for.
const MaxFunnelDays = 3650

// FunnelCounts reports lead counts for the last days days. Zero or less
// means the configured default window.
func (f *Facade) FunnelCounts(ctx context.Context, days int) Response {
	if days > MaxFunnelDays {
		err := appErrors.New(appErrors.KindValidation, "days must be at most %d, got %d", MaxFunnelDays, days)
		return f.respond("funnel counts", nil, err)
	}
	window := f.FunnelWindow
	if days > 0 {
		window = time.Duration(days) * 24 * time.Hour
	}
	if window <= 0 {
		window = service.DefaultFunnelWindow
	}
	counts, err := f.Funnel.FunnelWindowCounts(ctx, window)
	if err != nil {
		return f.respond("funnel counts", nil, err)
	}
	return Success(FunnelView{WindowDays: int(window / (24 * time.Hour)), Counts: counts})
}

// Health runs every probe. Any failed probe makes the whole report
// unavailable.
func (f *Facade) Health(ctx context.Context) Response {
	report := HealthReport{Status: "ok", Checks: make(map[string]string, len(f.Probes))}
	var failed []string
	for _, p := range f.Probes {
		if err := p.Probe(ctx); err != nil {
			report.Checks[p.Name()] = err.Error()
			failed = append(failed, p.Name())
			continue
		}
		report.Checks[p.Name()] = "ok"
	}
	if len(failed) == 0 {
		return Success(report)
	}

	report.Status = "degraded"
	f.Logger.Warn("health check failed", zap.Strings("probes", failed))
	return Response{
		Success: false,
		Data:    report,
		Error:   &ErrorBody{Error: string(appErrors.KindStorageUnavailable), Message: "probes failed"},
		Status:  http.StatusServiceUnavailable,
	}
}

func (f *Facade) respond(op string, data any, err error) Response {
	if err == nil {
		return Success(data)
	}
	resp := Failure(err)
	if resp.Status >= http.StatusInternalServerError {
		f.Logger.Error(op+" failed", zap.String("kind", resp.Error.Error), zap.Error(err))
	} else {
		f.Logger.Warn(op+" failed", zap.String("kind", resp.Error.Error), zap.Error(err))
	}
	return resp
}
