package cli

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/devilmonastery/infohunter/internal/api"
	"github.com/devilmonastery/infohunter/internal/pkg/format"
)

func newHealthCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Show backend health and content counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := getCliContext(cmd).Service.Health(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Status: %s\n", h.Status)
			fmt.Fprintf(out, "Subscriptions: %d\n", h.Subscriptions)
			fmt.Fprintf(out, "Contents: %d (Twitter %d, YouTube %d, Blog/RSS %d)\n",
				h.Contents, h.TwitterContents, h.YouTubeContents, h.BlogContents)
			return nil
		},
	}
}

func newStatsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show system statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := getCliContext(cmd).Service.Stats(cmd.Context())
			if err != nil {
				return err
			}
			printStats(cmd.OutOrStdout(), s)
			return nil
		},
	}
}

func printStats(out io.Writer, s *api.StatsResponse) {
	fmt.Fprintf(out, "Subscriptions: %d total, %d active, %d paused\n",
		s.Subscriptions.Total, s.Subscriptions.Active, s.Subscriptions.Paused)
	for _, src := range api.Sources {
		if n, ok := s.Subscriptions.BySource[string(src)]; ok {
			fmt.Fprintf(out, "  %-10s %d\n", format.SourceLabel(string(src)), n)
		}
	}
	fmt.Fprintf(out, "Contents: %d total, %d analyzed, %d pending analysis\n",
		s.Contents.Total, s.Contents.Analyzed, s.Contents.Unanalyzed)
	for _, src := range api.Sources {
		if n, ok := s.Contents.BySource[string(src)]; ok {
			fmt.Fprintf(out, "  %-10s %s\n", format.SourceLabel(string(src)), format.Number(int64(n)))
		}
	}
	fmt.Fprintf(out, "Notifications: %d sent, %d pending\n", s.Notifications.TotalNotified, s.Notifications.Pending)
	if today, ok := s.TwitterCredits["today"]; ok {
		fmt.Fprintf(out, "Twitter credits today: %v\n", today)
	}
}

func newCreditsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "credits",
		Short: "Inspect API credit usage",
	}
	cmd.AddCommand(newCreditsSummaryCommand())
	cmd.AddCommand(newCreditsRecordsCommand())
	cmd.AddCommand(newCreditsReportCommand("daily", "Credits spent per day",
		[]string{"date", "credits", "count"}, (*api.Service).CreditDaily))
	cmd.AddCommand(newCreditsReportCommand("breakdown", "Credits spent per source, operation and context",
		[]string{"source", "operation", "context", "credits", "count"}, (*api.Service).CreditBreakdown))
	return cmd
}

func newCreditsSummaryCommand() *cobra.Command {
	var days int
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Summarize credits spent over the last days",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := getCliContext(cmd).Service.CreditSummary(cmd.Context(), days)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Last %d days: %.1f credits (%.1f per day)\n", s.PeriodDays, s.TotalCredits, s.DailyAverage)
			printCreditMap(out, "By source", s.BySource)
			printCreditMap(out, "By operation", s.ByOperation)
			printCreditMap(out, "By context", s.ByContext)
			return nil
		},
	}
	cmd.Flags().IntVar(&days, "days", 7, "Number of days to cover")
	return cmd
}

func printCreditMap(out io.Writer, title string, m map[string]float64) {
	if len(m) == 0 {
		return
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return m[keys[i]] > m[keys[j]] })

	fmt.Fprintf(out, "%s:\n", title)
	for _, k := range keys {
		fmt.Fprintf(out, "  %-18s %.1f\n", k, m[k])
	}
}

func newCreditsRecordsCommand() *cobra.Command {
	var f api.CreditRecordFilter
	cmd := &cobra.Command{
		Use:   "records",
		Short: "List individual credit charges",
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := getCliContext(cmd).Service.CreditRecords(cmd.Context(), f)
			if err != nil {
				return err
			}
			now := time.Now()
			t := newTable(cmd.OutOrStdout(), "ID", "SOURCE", "OPERATION", "CONTEXT", "CREDITS", "WHEN", "DETAIL")
			for _, r := range records {
				detail := ""
				if r.Detail != nil {
					detail = format.Truncate(*r.Detail, 40)
				}
				t.row(r.ID, r.Source, r.Operation, r.Context, strconv.FormatFloat(r.Credits, 'f', 1, 64),
					format.RelativeTime(r.CreatedAt.Time, now), detail)
			}
			return t.flush()
		},
	}
	cmd.Flags().IntVar(&f.Limit, "limit", 50, "Maximum number of records")
	cmd.Flags().StringVar(&f.Source, "source", "", "Only records for this source")
	return cmd
}

type creditReport func(*api.Service, context.Context, api.CreditRangeFilter) ([]api.CreditRow, error)

func newCreditsReportCommand(use, short string, columns []string, fetch creditReport) *cobra.Command {
	var f api.CreditRangeFilter
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			rows, err := fetch(getCliContext(cmd).Service, cmd.Context(), f)
			if err != nil {
				return err
			}
			return printRows(cmd.OutOrStdout(), columns, rows)
		},
	}
	cmd.Flags().IntVar(&f.Days, "days", 7, "Number of days to cover")
	cmd.Flags().StringVar(&f.Source, "source", "", "Only credits for this source")
	return cmd
}

// printRows prints generic report rows. Preferred columns come first,
// followed by any the backend added.
func printRows(out io.Writer, preferred []string, rows []api.CreditRow) error {
	if len(rows) == 0 {
		fmt.Fprintln(out, "No data")
		return nil
	}

	columns := append([]string(nil), preferred...)
	seen := make(map[string]bool, len(columns))
	for _, c := range columns {
		seen[c] = true
	}
	var extra []string
	for _, r := range rows {
		for k := range r {
			if !seen[k] {
				seen[k] = true
				extra = append(extra, k)
			}
		}
	}
	sort.Strings(extra)
	columns = append(columns, extra...)

	headers := make([]string, len(columns))
	for i, c := range columns {
		headers[i] = strings.ToUpper(strings.ReplaceAll(c, "_", " "))
	}
	t := newTable(out, headers...)
	for _, r := range rows {
		cells := make([]any, len(columns))
		for i, c := range columns {
			cells[i] = cell(r[c])
		}
		t.row(cells...)
	}
	return t.flush()
}

func cell(v any) string {
	switch x := v.(type) {
	case nil:
		return "-"
	case float64:
		if x == float64(int64(x)) {
			return strconv.FormatInt(int64(x), 10)
		}
		return strconv.FormatFloat(x, 'f', 1, 64)
	default:
		return fmt.Sprint(x)
	}
}

func newLogsCommand() *cobra.Command {
	var f api.FetchLogFilter
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "List collection runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			logs, err := getCliContext(cmd).Service.FetchLogs(cmd.Context(), f)
			if err != nil {
				return err
			}
			now := time.Now()
			t := newTable(cmd.OutOrStdout(), "ID", "SUB", "SOURCE", "STATUS", "FETCHED", "NEW", "FILTERED", "STARTED", "DURATION", "ERROR")
			for _, l := range logs {
				subID := "-"
				if l.SubscriptionID != nil {
					subID = strconv.FormatInt(*l.SubscriptionID, 10)
				}
				duration := "-"
				if l.DurationSeconds != nil {
					duration = format.Duration(time.Duration(*l.DurationSeconds * float64(time.Second)))
				}
				errMsg := ""
				if l.ErrorMessage != nil {
					errMsg = format.Truncate(*l.ErrorMessage, 40)
				}
				t.row(l.ID, subID, l.Source, l.Status, l.TotalFetched, l.NewItems, l.FilteredItems,
					format.RelativeTime(l.StartedAt.Time, now), duration, errMsg)
			}
			return t.flush()
		},
	}
	cmd.Flags().IntVar(&f.Limit, "limit", 50, "Maximum number of runs")
	cmd.Flags().Int64Var(&f.SubscriptionID, "subscription", 0, "Only runs for this subscription")
	return cmd
}

func newTriggerCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trigger",
		Short: "Run backend jobs now (admin)",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "smart-collect",
		Short: "Collect new content for every active subscription",
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := getCliContext(cmd).Service.TriggerSmartCollect(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", resp.Status, resp.Message)
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "daily-report",
		Short: "Send the daily report",
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := getCliContext(cmd).Service.TriggerDailyReport(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", resp.Status, resp.Message)
			return nil
		},
	})
	return cmd
}
