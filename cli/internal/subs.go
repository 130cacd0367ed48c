package cli

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/devilmonastery/infohunter/internal/api"
	"github.com/devilmonastery/infohunter/internal/pkg/format"
)

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

func newSubsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "subs",
		Aliases: []string{"subscriptions"},
		Short:   "Manage global subscriptions",
	}
	cmd.AddCommand(newSubsListCommand())
	cmd.AddCommand(newSubsGetCommand())
	cmd.AddCommand(newSubsCreateCommand())
	cmd.AddCommand(newSubsUpdateCommand())
	cmd.AddCommand(newSubsStatusCommand("pause", api.StatusPaused))
	cmd.AddCommand(newSubsStatusCommand("resume", api.StatusActive))
	cmd.AddCommand(newSubsDeleteCommand())
	return cmd
}

func newSubsListCommand() *cobra.Command {
	var source, subType, status string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List subscriptions",
		RunE: func(cmd *cobra.Command, args []string) error {
			var f api.SubscriptionFilter
			var err error
			if source != "" {
				if f.Source, err = api.ParseSource(source); err != nil {
					return err
				}
			}
			if subType != "" {
				if f.Type, err = api.ParseSubscriptionType(subType); err != nil {
					return err
				}
			}
			if status != "" {
				if f.Status, err = api.ParseSubscriptionStatus(status); err != nil {
					return err
				}
			}

			subs, err := getCliContext(cmd).Queries.Subscriptions(cmd.Context(), f)
			if err != nil {
				return err
			}
			if len(subs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No subscriptions")
				return nil
			}

			now := time.Now()
			t := newTable(cmd.OutOrStdout(), "ID", "NAME", "SOURCE", "TYPE", "TARGET", "STATUS", "INTERVAL", "LAST FETCH")
			for _, s := range subs {
				t.row(s.ID, format.Truncate(s.Name, 30), format.SourceLabel(string(s.Source)), s.Type,
					format.Truncate(s.Target, 40), s.Status, format.Duration(time.Duration(s.FetchInterval)*time.Second),
					format.RelativeTime(s.LastFetchedAt.Time, now))
			}
			return t.flush()
		},
	}
	cmd.Flags().StringVar(&source, "source", "", "Filter by source (twitter, youtube, blog)")
	cmd.Flags().StringVar(&subType, "type", "", "Filter by type (keyword, author, topic, feed)")
	cmd.Flags().StringVar(&status, "status", "", "Filter by status (active, paused)")
	return cmd
}

func newSubsGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get ID",
		Short: "Show one subscription",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			s, err := getCliContext(cmd).Queries.Subscription(cmd.Context(), id)
			if err != nil {
				return err
			}
			printSubscription(cmd.OutOrStdout(), s)
			return nil
		},
	}
}

func printSubscription(out io.Writer, s *api.Subscription) {
	fmt.Fprintf(out, "ID: %d\n", s.ID)
	fmt.Fprintf(out, "Name: %s\n", s.Name)
	fmt.Fprintf(out, "Source: %s\n", format.SourceLabel(string(s.Source)))
	fmt.Fprintf(out, "Type: %s\n", s.Type)
	fmt.Fprintf(out, "Target: %s\n", s.Target)
	fmt.Fprintf(out, "Status: %s\n", s.Status)
	fmt.Fprintf(out, "Fetch interval: %s\n", format.Duration(time.Duration(s.FetchInterval)*time.Second))
	fmt.Fprintf(out, "AI analysis: %t\n", s.AIAnalysisEnabled)
	fmt.Fprintf(out, "Notifications: %t\n", s.NotificationEnabled)
	if len(s.Filters) > 0 {
		fmt.Fprintf(out, "Filters: %v\n", s.Filters)
	}
	fmt.Fprintf(out, "Last fetched: %s\n", format.RelativeTime(s.LastFetchedAt.Time, time.Now()))
}

func newSubsCreateCommand() *cobra.Command {
	var (
		req            api.SubscriptionCreate
		source         string
		subType        string
		interval       time.Duration
		noAI, noNotify bool
	)
	cmd := &cobra.Command{
		Use:   "create TARGET",
		Short: "Create a subscription",
		Example: `  infohunter subs create golang --source twitter --type keyword
  infohunter subs create https://go.dev/blog/feed.atom --source blog --type feed`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if req.Source, err = api.ParseSource(source); err != nil {
				return err
			}
			if req.Type, err = api.ParseSubscriptionType(subType); err != nil {
				return err
			}
			req.Target = args[0]
			req.FetchInterval = int(interval.Seconds())
			if noAI {
				req.AIAnalysisEnabled = boolPtr(false)
			}
			if noNotify {
				req.NotificationEnabled = boolPtr(false)
			}

			s, err := getCliContext(cmd).Queries.CreateSubscription(cmd.Context(), req)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Created subscription %d (%s)\n", s.ID, s.Name)
			return nil
		},
	}
	cmd.Flags().StringVar(&req.Name, "name", "", "Display name (default \"<Source> - <target>\")")
	cmd.Flags().StringVar(&source, "source", "twitter", "Source (twitter, youtube, blog)")
	cmd.Flags().StringVar(&subType, "type", "keyword", "Type (keyword, author, topic, feed)")
	cmd.Flags().DurationVar(&interval, "interval", 0, "Fetch interval (server default when unset)")
	cmd.Flags().BoolVar(&noAI, "no-ai", false, "Disable AI analysis")
	cmd.Flags().BoolVar(&noNotify, "no-notify", false, "Disable notifications")
	return cmd
}

func boolPtr(b bool) *bool {
	return &b
}

func newSubsUpdateCommand() *cobra.Command {
	var (
		name, target string
		interval     time.Duration
		ai, notify   bool
	)
	cmd := &cobra.Command{
		Use:   "update ID",
		Short: "Change a subscription",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			var req api.SubscriptionUpdate
			flags := cmd.Flags()
			if flags.Changed("name") {
				req.Name = &name
			}
			if flags.Changed("target") {
				req.Target = &target
			}
			if flags.Changed("interval") {
				seconds := int(interval.Seconds())
				req.FetchInterval = &seconds
			}
			if flags.Changed("ai") {
				req.AIAnalysisEnabled = &ai
			}
			if flags.Changed("notify") {
				req.NotificationEnabled = &notify
			}
			if req.Name == nil && req.Target == nil && req.FetchInterval == nil &&
				req.AIAnalysisEnabled == nil && req.NotificationEnabled == nil {
				return fmt.Errorf("nothing to update")
			}

			s, err := getCliContext(cmd).Queries.UpdateSubscription(cmd.Context(), id, req)
			if err != nil {
				return err
			}
			printSubscription(cmd.OutOrStdout(), s)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "New display name")
	cmd.Flags().StringVar(&target, "target", "", "New target")
	cmd.Flags().DurationVar(&interval, "interval", 0, "New fetch interval")
	cmd.Flags().BoolVar(&ai, "ai", true, "Enable AI analysis")
	cmd.Flags().BoolVar(&notify, "notify", true, "Enable notifications")
	return cmd
}

func newSubsStatusCommand(use string, status api.SubscriptionStatus) *cobra.Command {
	return &cobra.Command{
		Use:   use + " ID",
		Short: fmt.Sprintf("Set a subscription %s", status),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			q := getCliContext(cmd).Queries
			s, err := q.Service().SetSubscriptionStatus(cmd.Context(), id, status)
			if err != nil {
				return err
			}
			q.Cache().Invalidate(api.KeySubscriptions)
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Subscription %d is %s\n", s.ID, s.Status)
			return nil
		},
	}
}

func newSubsDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a subscription",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := getCliContext(cmd).Queries.DeleteSubscription(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Deleted subscription %d\n", id)
			return nil
		},
	}
}

func newMySubsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mysubs",
		Short: "Manage your own subscriptions",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List your subscriptions",
		RunE: func(cmd *cobra.Command, args []string) error {
			subs, err := getCliContext(cmd).Queries.UserSubscriptions(cmd.Context())
			if err != nil {
				return err
			}
			if len(subs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No subscriptions")
				return nil
			}
			t := newTable(cmd.OutOrStdout(), "ID", "NAME", "SOURCE", "TYPE", "TARGET", "SCOPE", "MINE", "STATUS")
			for _, s := range subs {
				mine := ""
				if s.IsMine {
					mine = "*"
				}
				t.row(s.ID, format.Truncate(s.Name, 30), format.SourceLabel(string(s.Source)), s.Type,
					format.Truncate(s.Target, 40), s.Scope, mine, s.Status)
			}
			return t.flush()
		},
	})

	var name, source, subType string
	add := &cobra.Command{
		Use:   "add TARGET",
		Short: "Follow a keyword, author or feed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := api.UserSubscriptionCreate{Name: name, Target: args[0]}
			var err error
			if req.Source, err = api.ParseSource(source); err != nil {
				return err
			}
			if subType != "" {
				if req.Type, err = api.ParseSubscriptionType(subType); err != nil {
					return err
				}
			}
			resp, err := getCliContext(cmd).Queries.CreateUserSubscription(cmd.Context(), req)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ %s (subscription %d): %s\n", resp.Status, resp.SubscriptionID, resp.Message)
			return nil
		},
	}
	add.Flags().StringVar(&name, "name", "", "Display name")
	add.Flags().StringVar(&source, "source", "twitter", "Source (twitter, youtube, blog)")
	add.Flags().StringVar(&subType, "type", "", "Type (default keyword)")
	cmd.AddCommand(add)

	cmd.AddCommand(&cobra.Command{
		Use:   "remove ID",
		Short: "Stop following a subscription",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := getCliContext(cmd).Queries.DeleteUserSubscription(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Removed subscription %d\n", id)
			return nil
		},
	})

	return cmd
}

func newModeCommand() *cobra.Command {
	return &cobra.Command{
		Use:       "mode [global|custom]",
		Short:     "Show or switch your feed mode",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{string(api.ModeGlobal), string(api.ModeCustom)},
		RunE: func(cmd *cobra.Command, args []string) error {
			q := getCliContext(cmd).Queries
			if len(args) == 0 {
				me, err := q.Me(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), me.Mode)
				return nil
			}

			mode, err := api.ParseUserMode(args[0])
			if err != nil {
				return err
			}
			resp, err := q.UpdateUserMode(cmd.Context(), mode)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Feed mode is %s\n", resp.Mode)
			return nil
		},
	}
}
