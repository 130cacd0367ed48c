package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/devilmonastery/infohunter/internal/api"
	"github.com/devilmonastery/infohunter/internal/pkg/format"
)

func newAnalyzeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Run an on-demand AI analysis",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "url URL",
		Short: "Analyze a single link",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := getCliContext(cmd).Service.AnalyzeURL(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if resp.Error != nil {
				return fmt.Errorf("analysis failed: %s", *resp.Error)
			}

			var b strings.Builder
			title := stringField(resp.Content, "title")
			if title == "" {
				title = resp.URL
			}
			fmt.Fprintf(&b, "# %s\n\n", title)
			fmt.Fprintf(&b, "**%s** · %s\n\n", format.SourceLabel(resp.Source), resp.URL)
			writeAnalysis(&b, resp.Analysis)
			printMarkdown(cmd.OutOrStdout(), b.String())
			return nil
		},
	})

	var source string
	author := &cobra.Command{
		Use:   "author AUTHOR_ID",
		Short: "Analyze an author's recent content",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := api.AnalyzeAuthorRequest{AuthorID: args[0]}
			if source != "" {
				var err error
				if req.Source, err = api.ParseSource(source); err != nil {
					return err
				}
			}
			resp, err := getCliContext(cmd).Service.AnalyzeAuthor(cmd.Context(), req)
			if err != nil {
				return err
			}
			if resp.Error != nil {
				return fmt.Errorf("analysis failed: %s", *resp.Error)
			}

			var b strings.Builder
			fmt.Fprintf(&b, "# %s\n\n", resp.AuthorID)
			meta := []string{"**" + format.SourceLabel(resp.Source) + "**"}
			if profile := stringField(resp.Profile, "profile_url"); profile != "" {
				meta = append(meta, profile)
			}
			fmt.Fprintf(&b, "%s\n\n", strings.Join(meta, " · "))
			writeAnalysis(&b, resp.Analysis)

			if len(resp.RecentContents) > 0 {
				b.WriteString("## Recent content\n\n")
				for _, c := range resp.RecentContents {
					title := stringField(c, "title")
					if link := stringField(c, "url"); link != "" {
						fmt.Fprintf(&b, "- [%s](%s)\n", title, link)
					} else {
						fmt.Fprintf(&b, "- %s\n", title)
					}
				}
				b.WriteString("\n")
			}
			printMarkdown(cmd.OutOrStdout(), b.String())
			return nil
		},
	}
	author.Flags().StringVar(&source, "source", "", "Source (default twitter)")
	cmd.AddCommand(author)

	return cmd
}

// writeAnalysis renders the well-known analysis fields first, then the rest
// as a list
func writeAnalysis(b *strings.Builder, analysis map[string]any) {
	if len(analysis) == 0 {
		return
	}
	if summary := stringField(analysis, "summary"); summary != "" {
		fmt.Fprintf(b, "%s\n\n", summary)
	}
	if points, ok := analysis["key_points"].([]any); ok && len(points) > 0 {
		b.WriteString("## Key points\n\n")
		for _, p := range points {
			fmt.Fprintf(b, "- %v\n", p)
		}
		b.WriteString("\n")
	}

	known := map[string]bool{"summary": true, "key_points": true}
	var keys []string
	for k := range analysis {
		if !known[k] {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return
	}
	sort.Strings(keys)
	b.WriteString("## Details\n\n")
	for _, k := range keys {
		fmt.Fprintf(b, "- **%s**: %s\n", k, cell(flatten(analysis[k])))
	}
	b.WriteString("\n")
}

func flatten(v any) any {
	if list, ok := v.([]any); ok {
		parts := make([]string, len(list))
		for i, item := range list {
			parts[i] = fmt.Sprint(item)
		}
		return strings.Join(parts, ", ")
	}
	return v
}

func stringField(m map[string]any, key string) string {
	if s, ok := m[key].(string); ok {
		return s
	}
	return ""
}
