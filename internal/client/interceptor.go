package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/devilmonastery/infohunter/internal/pkg/metrics"
)

var (
	errRefreshDiscarded = errors.New("refresh discarded: client was reconfigured")
	errSessionChanged   = errors.New("refresh discarded: session changed during refresh")
)

type sendFunc func(ctx context.Context, conn *connection, r *encodedRequest, token string) (*response, error)

// withTokenRefresh decorates send with expired-token recovery: a 401 on a
// request that has not been replayed yet, is not an auth route and has a
// refresh token available waits for a single shared refresh and is replayed
// once with the new token.
func (c *Client) withTokenRefresh(send sendFunc) func(context.Context, *connection, *encodedRequest) (*response, error) {
	return func(ctx context.Context, conn *connection, r *encodedRequest) (*response, error) {
		token := c.session.AccessToken()

		resp, err := send(ctx, conn, r, token)
		if err != nil {
			return nil, err
		}
		if !c.shouldRefresh(r, resp) {
			return resp, nil
		}
		r.retried = true

		// A refresh completed after this request left with the old token
		if current := c.session.AccessToken(); current != "" && current != token {
			c.logger.Debug("access token changed in flight, replaying request",
				"method", r.method, "path", r.path)
			return send(ctx, conn, r, current)
		}

		c.logger.Info("token expired, attempting refresh", "method", r.method, "path", r.path)
		c.logger.Debug("old token info", slog.String("token_prefix", token[:min(10, len(token))]))

		newToken, refreshErr := conn.refresh.do(ctx, func(rctx context.Context) (string, error) {
			// The previous cycle may have finished between the check above and do
			access, refresh := c.session.Tokens()
			if access != "" && access != token {
				return access, nil
			}
			if refresh == "" {
				return "", errSessionChanged
			}
			return c.refreshToken(rctx, conn)
		})
		if refreshErr != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			// Callers see the 401 that started recovery, not the refresh failure
			return resp, nil
		}

		c.logger.Debug("retrying request with refreshed token", "method", r.method, "path", r.path)
		return send(ctx, conn, r, newToken)
	}
}

func (c *Client) shouldRefresh(r *encodedRequest, resp *response) bool {
	if resp.status != http.StatusUnauthorized || r.retried {
		return false
	}
	if c.authPrefix != "" && strings.Contains(r.path, c.authPrefix) {
		return false
	}
	return c.session.RefreshToken() != ""
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type refreshResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

// refreshToken runs exactly once per refresh cycle, on behalf of every waiter.
// It owns the session side effects: install on success, clear and notify on failure.
func (c *Client) refreshToken(ctx context.Context, conn *connection) (string, error) {
	start := time.Now()
	refresh := c.session.RefreshToken()

	resp, err := c.exchangeRefreshToken(ctx, conn, refresh)

	if c.current() != conn {
		c.logger.Warn("discarding refresh result from previous configuration")
		metrics.RecordTokenRefresh("discarded", time.Since(start))
		return "", errRefreshDiscarded
	}
	if c.session.RefreshToken() != refresh {
		metrics.RecordTokenRefresh("discarded", time.Since(start))
		if access := c.session.AccessToken(); access != "" {
			return access, nil
		}
		return "", errSessionChanged
	}

	if err != nil {
		c.logger.Error("token refresh failed", slog.String("error", err.Error()))
		metrics.RecordTokenRefresh("failure", time.Since(start))
		c.session.Clear()
		if c.onRefreshFailed != nil {
			c.onRefreshFailed()
		}
		return "", err
	}

	if resp.RefreshToken != "" {
		refresh = resp.RefreshToken
	}
	c.session.SetTokens(resp.AccessToken, refresh)

	metrics.RecordTokenRefresh("success", time.Since(start))
	c.logger.Info("successfully refreshed token")
	return resp.AccessToken, nil
}

// exchangeRefreshToken posts the refresh token without an Authorization header.
// Any non-2xx status is a failure.
func (c *Client) exchangeRefreshToken(ctx context.Context, conn *connection, refresh string) (*refreshResponse, error) {
	r, err := encodeRequest(&Request{
		Method: http.MethodPost,
		Path:   c.refreshPath,
		Body:   refreshRequest{RefreshToken: refresh},
	})
	if err != nil {
		return nil, err
	}

	resp, err := c.send(ctx, conn, r, "")
	if err != nil {
		return nil, err
	}
	if resp.status < 200 || resp.status > 299 {
		return nil, newAPIError(r.method, r.path, resp.status, resp.body)
	}

	var out refreshResponse
	if err := json.Unmarshal(resp.body, &out); err != nil {
		return nil, fmt.Errorf("failed to decode refresh response: %w", err)
	}
	if out.AccessToken == "" {
		return nil, fmt.Errorf("refresh response carried no access token")
	}
	return &out, nil
}
