// cmd/report/main.go
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"go.uber.org/zap"

	"github.com/unclebandit/channel-ledger/internal/app"
	"github.com/unclebandit/channel-ledger/internal/config"
	"github.com/unclebandit/channel-ledger/internal/facade"
	"github.com/unclebandit/channel-ledger/internal/logging"
	"github.com/unclebandit/channel-ledger/internal/model"
	"github.com/unclebandit/channel-ledger/internal/service"
)

func main() {
	limit := flag.Int("limit", 0, "number of recent listings to include (0 uses the configured default)")
	days := flag.Int("days", 0, "funnel window in days (0 uses the configured default)")
	asJSON := flag.Bool("json", false, "print the raw response envelopes as JSON")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load config: ", err)
	}
	logger, err := logging.New(cfg.Log)
	if err != nil {
		log.Fatal("failed to build logger: ", err)
	}
	defer logger.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to start", zap.Error(err))
	}
	defer a.Close()

	activity := a.Facade.PostingActivity(ctx, *limit)
	funnel := a.Facade.FunnelCounts(ctx, *days)

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		enc.Encode(map[string]facade.Response{"posting_activity": activity, "funnel": funnel})
	} else {
		if err := render(os.Stdout, activity, funnel); err != nil {
			logger.Error("failed to render report", zap.Error(err))
		}
	}
	if !activity.Success || !funnel.Success {
		os.Exit(1)
	}
}

// render prints the posting activity digest followed by the funnel counts.
func render(w io.Writer, activity, funnel facade.Response) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	if !activity.Success {
		fmt.Fprintf(tw, "posting activity unavailable: %s (%s)\n", activity.Error.Message, activity.Error.Error)
	} else {
		report := activity.Data.(*service.PostingActivityReport)
		fmt.Fprintf(tw, "📊 Posting activity (last %d listings)\n\n", report.Limit)

		platforms := make([]string, 0, len(report.Platforms))
		for p := range report.Platforms {
			platforms = append(platforms, p)
		}
		sort.Strings(platforms)

		for _, p := range platforms {
			info := model.LookupPlatform(p)
			items := report.Platforms[p]
			fmt.Fprintf(tw, "%s %s (%d)\n", info.Icon, info.Label, len(items))
			for _, item := range items {
				title := item.ProductTitle
				if title == "" {
					title = "(unknown product)"
				}
				fmt.Fprintf(tw, "  %s\t%s\t%d sales\t$%s\t%s\n",
					title, item.Status, item.Sales, item.Revenue.StringFixed(2), item.CreatedAt.Format("2006-01-02"))
			}
		}

		s := report.Summary
		fmt.Fprintln(tw)
		fmt.Fprintf(tw, "Total posts\t%d\n", s.TotalPosts)
		fmt.Fprintf(tw, "Published\t%d\n", s.Published)
		fmt.Fprintf(tw, "Failed\t%d\n", s.Failed)
		fmt.Fprintf(tw, "Pending\t%d\n", s.Pending)
		fmt.Fprintf(tw, "Total sales\t%d\n", s.TotalSales)
		fmt.Fprintf(tw, "Total revenue\t$%s\n", s.TotalRevenue.StringFixed(2))
	}

	fmt.Fprintln(tw)
	if !funnel.Success {
		fmt.Fprintf(tw, "funnel unavailable: %s (%s)\n", funnel.Error.Message, funnel.Error.Error)
	} else {
		view := funnel.Data.(facade.FunnelView)
		fmt.Fprintf(tw, "🎯 Funnel (last %d days)\n", view.WindowDays)
		for _, t := range model.LeadTypes {
			fmt.Fprintf(tw, "%s\t%d\n", t, view.Counts[t])
		}
	}
	return tw.Flush()
}
