package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/devilmonastery/infohunter/internal/api"
	"github.com/devilmonastery/infohunter/internal/pkg/format"
)

const dashboardFeedSize = 5

func newDashboardCommand() *cobra.Command {
	var watch time.Duration
	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Show an overview of the system and your feed",
		RunE: func(cmd *cobra.Command, args []string) error {
			c := getCliContext(cmd)
			out := cmd.OutOrStdout()
			if watch <= 0 {
				return printDashboard(cmd.Context(), out, c.Queries, time.Now())
			}

			ticker := time.NewTicker(watch)
			defer ticker.Stop()
			for {
				if isTerminal(out) {
					fmt.Fprint(out, "\033[H\033[2J")
				}
				if err := printDashboard(cmd.Context(), out, c.Queries, time.Now()); err != nil {
					if api.IsSessionExpired(err) {
						return err
					}
					c.Logger.Warn("dashboard refresh failed", "error", err)
				}
				select {
				case <-cmd.Context().Done():
					return nil
				case <-ticker.C:
					c.Queries.Cache().Invalidate(api.KeyUserFeed)
				}
			}
		},
	}
	cmd.Flags().DurationVar(&watch, "watch", 0, "Refresh at this interval until interrupted")
	return cmd
}

func printDashboard(ctx context.Context, out io.Writer, q *api.Queries, now time.Time) error {
	// Stats first: an expired token is refreshed there, while auth routes
	// such as Me never trigger a refresh
	stats, err := q.Stats(ctx)
	if err != nil {
		return err
	}
	me, err := q.Me(ctx)
	if err != nil {
		return err
	}
	health, err := q.Health(ctx)
	if err != nil {
		return err
	}
	credits, err := q.CreditSummary(ctx, 7)
	if err != nil {
		return err
	}
	feed, err := q.UserFeed(ctx, api.FeedFilter{Page: 1, PageSize: dashboardFeedSize, UnreadOnly: true})
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "InfoHunter · %s (%s, %s mode) · %s\n", me.Username, me.Role, me.Mode, now.Format("2006-01-02 15:04"))
	fmt.Fprintln(out, strings.Repeat("─", 60))
	fmt.Fprintf(out, "Backend: %s\n", health.Status)
	printStats(out, stats)
	fmt.Fprintf(out, "Credits (7 days): %.1f, %.1f per day\n", credits.TotalCredits, credits.DailyAverage)
	fmt.Fprintln(out, strings.Repeat("─", 60))
	fmt.Fprintf(out, "Unread (%d)\n", feed.Total)
	for _, it := range feed.Items {
		fmt.Fprintf(out, "  [%s] %s · %s · %s\n", format.SourceLabel(string(it.Source)),
			format.Truncate(it.DisplayTitle(), 50), it.ImportanceLabel(), format.RelativeTime(it.PostedAt.Time, now))
	}
	return nil
}
