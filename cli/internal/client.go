package cli

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/devilmonastery/infohunter/internal/api"
	"github.com/devilmonastery/infohunter/internal/client"
	"github.com/devilmonastery/infohunter/internal/pkg/metrics"
	"github.com/devilmonastery/infohunter/internal/query"
)

// NewAPIService builds an API service for the current context. Stored
// credentials are restored and every token change is written back to the
// credentials file. When a refresh fails, a hint is printed to errOut.
func NewAPIService(errOut io.Writer) (*api.Service, *Context, error) {
	config, err := LoadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	ctx, err := config.GetCurrentContext()
	if err != nil {
		return nil, nil, err
	}

	store := NewFileCredentials()
	session := client.NewSession()
	if err := client.Restore(session, store); err != nil {
		slog.Warn("ignoring unreadable credentials",
			slog.String("component", "cli"),
			slog.String("error", err.Error()))
	}
	client.Persist(session, store)

	c := client.New(session,
		client.WithLogger(slog.Default().With("component", "api-client", "context", config.CurrentContext)),
		client.WithTransport(metrics.NewAPITransport(http.DefaultTransport)),
		client.WithRefreshFailedHandler(func() {
			fmt.Fprintln(errOut, "session expired, please run 'infohunter auth login'")
		}),
	)
	if err := c.Configure(client.Config{
		BaseURL: ctx.Server.URL,
		APIKey:  ctx.Server.APIKey,
		Timeout: ctx.Server.Timeout,
	}); err != nil {
		return nil, nil, fmt.Errorf("context %q: %w", config.CurrentContext, err)
	}

	return api.NewService(c), ctx, nil
}

// NewAPIQueries wraps svc in a fresh query cache
func NewAPIQueries(svc *api.Service) *api.Queries {
	return api.NewQueries(svc, query.New(query.WithName("cli")))
}
