package cli

import (
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/gosimple/slug"
	"github.com/spf13/cobra"

	"github.com/devilmonastery/infohunter/internal/api"
	"github.com/devilmonastery/infohunter/internal/pkg/format"
	"github.com/devilmonastery/infohunter/internal/pkg/textutil"
	"github.com/devilmonastery/infohunter/internal/pkg/timeutil"
	"github.com/devilmonastery/infohunter/internal/pkg/urlutil"
	"github.com/devilmonastery/infohunter/internal/render"
)

func newContentsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "contents",
		Short: "Browse collected content",
	}

	var (
		f      api.ContentFilter
		source string
	)
	list := &cobra.Command{
		Use:   "list",
		Short: "List collected content, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			if source != "" {
				var err error
				if f.Source, err = api.ParseSource(source); err != nil {
					return err
				}
			}
			page, err := getCliContext(cmd).Queries.Contents(cmd.Context(), f)
			if err != nil {
				return err
			}
			if err := printItems(cmd.OutOrStdout(), page.Items); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "\nPage %d, %d of %d items\n", page.Page, len(page.Items), page.Total)
			return nil
		},
	}
	list.Flags().StringVar(&source, "source", "", "Filter by source (twitter, youtube, blog)")
	list.Flags().Int64Var(&f.SubscriptionID, "subscription", 0, "Filter by subscription")
	list.Flags().IntVar(&f.Page, "page", 1, "Page number")
	list.Flags().IntVar(&f.PageSize, "page-size", 20, "Items per page (max 100)")
	cmd.AddCommand(list)

	var limit int
	unanalyzed := &cobra.Command{
		Use:   "unanalyzed",
		Short: "List content waiting for AI analysis",
		RunE: func(cmd *cobra.Command, args []string) error {
			contents, err := getCliContext(cmd).Service.ListUnanalyzedContents(cmd.Context(), limit)
			if err != nil {
				return err
			}
			items := make([]api.ContentItem, len(contents))
			for i, c := range contents {
				items[i] = c.ContentItem
			}
			return printItems(cmd.OutOrStdout(), items)
		},
	}
	unanalyzed.Flags().IntVar(&limit, "limit", 20, "Maximum number of items")
	cmd.AddCommand(unanalyzed)

	return cmd
}

func printItems(out io.Writer, items []api.ContentItem) error {
	if len(items) == 0 {
		fmt.Fprintln(out, "No content")
		return nil
	}
	now := time.Now()
	t := newTable(out, "ID", "SOURCE", "AUTHOR", "TITLE", "IMPORTANCE", "POSTED")
	for _, it := range items {
		t.row(it.ID, format.SourceLabel(string(it.Source)), format.Truncate(it.AuthorName(), 20),
			format.Truncate(it.DisplayTitle(), 60), it.ImportanceLabel(), format.RelativeTime(it.PostedAt.Time, now))
	}
	return t.flush()
}

func newFeedCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "feed",
		Short: "Read your personal feed",
	}
	cmd.AddCommand(newFeedListCommand())
	cmd.AddCommand(newFeedReadCommand())
	cmd.AddCommand(newFeedExportCommand())
	return cmd
}

func newFeedListCommand() *cobra.Command {
	var (
		f    api.FeedFilter
		full bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List feed items",
		RunE: func(cmd *cobra.Command, args []string) error {
			page, err := getCliContext(cmd).Queries.UserFeed(cmd.Context(), f)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if full {
				digest := buildDigest(feedTitle(time.Now()), page.Items, time.Now())
				printMarkdown(out, digest.Markdown())
				return nil
			}
			if err := printItems(out, page.Items); err != nil {
				return err
			}
			fmt.Fprintf(out, "\n%s mode, page %d, %d of %d items\n", page.Mode, page.Page, len(page.Items), page.Total)
			return nil
		},
	}
	cmd.Flags().IntVar(&f.Page, "page", 1, "Page number")
	cmd.Flags().IntVar(&f.PageSize, "page-size", 20, "Items per page (max 100)")
	cmd.Flags().BoolVar(&f.UnreadOnly, "unread", false, "Only unread items")
	cmd.Flags().BoolVar(&full, "full", false, "Show summaries as rendered markdown")
	return cmd
}

func newFeedReadCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "read ID...",
		Short: "Mark feed items as read",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q := getCliContext(cmd).Queries
			for _, arg := range args {
				id, err := parseID(arg)
				if err != nil {
					return err
				}
				if err := q.MarkFeedRead(cmd.Context(), id); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "✓ Marked %d as read\n", id)
			}
			return nil
		},
	}
}

func newFeedExportCommand() *cobra.Command {
	var (
		outFormat  string
		outFile    string
		unreadOnly bool
		pageSize   int
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the feed as a markdown or HTML digest",
		Example: `  infohunter feed export
  infohunter feed export --format html -o digest.html`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if outFormat != "markdown" && outFormat != "html" {
				return fmt.Errorf("unknown format %q (want markdown or html)", outFormat)
			}

			page, err := getCliContext(cmd).Queries.UserFeed(cmd.Context(), api.FeedFilter{
				Page:       1,
				PageSize:   pageSize,
				UnreadOnly: unreadOnly,
			})
			if err != nil {
				return err
			}

			now := time.Now()
			digest := buildDigest(feedTitle(now), page.Items, now)
			if outFile == "" {
				outFile = digestFileName(now, outFormat)
			}

			var body strings.Builder
			if outFormat == "html" {
				if err := digest.WriteHTML(&body); err != nil {
					return fmt.Errorf("failed to render digest: %w", err)
				}
			} else {
				body.WriteString(digest.Markdown())
			}

			if outFile == "-" {
				_, err := io.WriteString(cmd.OutOrStdout(), body.String())
				return err
			}
			if err := os.WriteFile(outFile, []byte(body.String()), 0o644); err != nil {
				return fmt.Errorf("failed to write %s: %w", outFile, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote %d items to %s\n", len(digest.Entries), outFile)
			return nil
		},
	}
	cmd.Flags().StringVar(&outFormat, "format", "markdown", "Output format (markdown, html)")
	cmd.Flags().StringVarP(&outFile, "output", "o", "", "Output file, - for stdout (default derived from the date)")
	cmd.Flags().BoolVar(&unreadOnly, "unread", false, "Only unread items")
	cmd.Flags().IntVar(&pageSize, "limit", 50, "Maximum number of items (max 100)")
	return cmd
}

func feedTitle(now time.Time) string {
	return "InfoHunter digest " + now.Local().Format(timeutil.DateLayout)
}

// digestFileName is the slug of the feed title plus the format's extension
func digestFileName(now time.Time, outFormat string) string {
	ext := ".md"
	if outFormat == "html" {
		ext = ".html"
	}
	return slug.Make(feedTitle(now)) + ext
}

// buildDigest turns feed items into digest entries. Hashtags are the AI
// topics plus any tags found in the body.
func buildDigest(title string, items []api.ContentItem, now time.Time) render.Digest {
	d := render.Digest{Title: title, GeneratedAt: now}
	for _, it := range items {
		e := render.DigestEntry{
			Title:      it.DisplayTitle(),
			Source:     string(it.Source),
			Author:     it.AuthorName(),
			Importance: it.ImportanceLabel(),
			PostedAt:   it.PostedAt.Time,
		}
		if it.AuthorID != nil {
			e.AuthorURL = urlutil.AuthorProfileURL(string(it.Source), *it.AuthorID)
		}
		if it.URL != nil {
			e.URL = *it.URL
		}

		var tags []string
		if it.AIAnalysis != nil {
			e.Summary = it.AIAnalysis.Summary
			e.KeyPoints = it.AIAnalysis.KeyPoints
			tags = append(tags, it.AIAnalysis.Topics...)
		}
		if it.Content != nil {
			tags = append(tags, textutil.ExtractHashtags(*it.Content)...)
			if e.Summary == "" {
				e.Summary = format.Truncate(*it.Content, 280)
			}
		}
		slices.Sort(tags)
		e.Hashtags = slices.Compact(tags)

		d.Entries = append(d.Entries, e)
	}
	return d
}
