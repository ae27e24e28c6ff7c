package facade

import (
	"context"
	"database/sql"
	"strings"

	appErrors "github.com/unclebandit/channel-ledger/internal/errors"
	"github.com/unclebandit/channel-ledger/internal/queue"
)

// Prober is a named existence or connectivity check.
type Prober interface {
	Name() string
	Probe(ctx context.Context) error
}

type DatabaseProbe struct {
	DB *sql.DB
}

func (p DatabaseProbe) Name() string { return "database" }

func (p DatabaseProbe) Probe(ctx context.Context) error {
	if err := p.DB.PingContext(ctx); err != nil {
		return appErrors.StorageUnavailable("database ping", err)
	}
	return nil
}

// QueueProbe dials the broker and hangs up.
type QueueProbe struct {
	URL  string
	Dial func(ctx context.Context, url string) error
}

func (p QueueProbe) Name() string { return "queue" }

func (p QueueProbe) Probe(ctx context.Context) error {
	dial := p.Dial
	if dial == nil {
		dial = queue.Ping
	}
	if err := dial(ctx, p.URL); err != nil {
		return appErrors.StorageUnavailable("queue dial", err)
	}
	return nil
}

// ConfigProbe reports settings the running configuration lacks.
type ConfigProbe struct {
	Missing func() []string
}

func (p ConfigProbe) Name() string { return "configuration" }

func (p ConfigProbe) Probe(context.Context) error {
	if p.Missing == nil {
		return nil
	}
	if missing := p.Missing(); len(missing) > 0 {
		return appErrors.New(appErrors.KindValidation, "missing settings: %s", strings.Join(missing, ", "))
	}
	return nil
}
