package api

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devilmonastery/infohunter/internal/client"
	"github.com/devilmonastery/infohunter/internal/query"
)

func newTestQueries(t *testing.T, body string) (*Queries, *recorder) {
	t.Helper()
	svc, rec := newTestService(t, body)
	return NewQueries(svc, query.New(query.WithName(t.Name()))), rec
}

func TestQueriesCacheFreshReads(t *testing.T) {
	q, rec := newTestQueries(t, `[{"id":1,"name":"golang","source":"twitter","scope":"user","is_mine":true}]`)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		subs, err := q.UserSubscriptions(ctx)
		require.NoError(t, err)
		require.Len(t, subs, 1)
		assert.True(t, subs[0].IsMine)
	}
	assert.Equal(t, 1, rec.count(), "user subscriptions are fresh for 30s")
}

func TestQueriesZeroStaleTimeRefetches(t *testing.T) {
	q, rec := newTestQueries(t, `{"status":"ok"}`)
	ctx := context.Background()

	_, err := q.Health(ctx)
	require.NoError(t, err)
	_, err = q.Health(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, rec.count())
}

func TestQueriesMutationInvalidates(t *testing.T) {
	q, rec := newTestQueries(t, `{"items":[],"total":0,"page":1,"page_size":20,"mode":"custom"}`)
	ctx := context.Background()

	_, err := q.UserFeed(ctx, FeedFilter{Page: 1})
	require.NoError(t, err)
	_, err = q.UserFeed(ctx, FeedFilter{Page: 1})
	require.NoError(t, err)
	assert.Equal(t, 1, rec.count())

	rec.respond(0, `{"status":"ok"}`)
	require.NoError(t, q.MarkFeedRead(ctx, 5))
	assert.Equal(t, 2, rec.count())

	rec.respond(0, `{"items":[],"total":0,"page":1,"page_size":20,"mode":"custom"}`)
	_, err = q.UserFeed(ctx, FeedFilter{Page: 1})
	require.NoError(t, err)
	assert.Equal(t, 3, rec.count(), "feed must be refetched after marking an item read")
}

func TestQueriesModeChangeInvalidatesUserQueries(t *testing.T) {
	q, rec := newTestQueries(t, `[{"id":1,"name":"golang","source":"twitter","scope":"user","is_mine":true}]`)
	ctx := context.Background()

	_, err := q.UserSubscriptions(ctx)
	require.NoError(t, err)

	rec.respond(0, `{"id":1,"username":"alice","mode":"global"}`)
	me, err := q.Me(ctx)
	require.NoError(t, err)
	assert.Equal(t, ModeGlobal, me.Mode)
	assert.Equal(t, 2, rec.count())

	rec.respond(0, `{"status":"ok","mode":"custom"}`)
	_, err = q.UpdateUserMode(ctx, ModeCustom)
	require.NoError(t, err)

	rec.respond(0, `{"id":1,"username":"alice","mode":"custom"}`)
	me, err = q.Me(ctx)
	require.NoError(t, err)
	assert.Equal(t, ModeCustom, me.Mode)
	assert.Equal(t, 4, rec.count())

	rec.respond(0, `[]`)
	subs, err := q.UserSubscriptions(ctx)
	require.NoError(t, err)
	assert.Empty(t, subs, "user subscriptions must be refetched after a mode change")
	assert.Equal(t, 5, rec.count())
}

func TestQueriesNoRetryOnClientError(t *testing.T) {
	q, rec := newTestQueries(t, "")
	rec.respond(http.StatusNotFound, `{"detail":"Subscription not found"}`)

	_, err := q.Subscription(context.Background(), 404)
	require.Error(t, err)
	assert.Equal(t, 1, rec.count())
}

func TestQueriesMeIsNotRetried(t *testing.T) {
	q, rec := newTestQueries(t, "")
	rec.respond(http.StatusInternalServerError, `{"detail":"boom"}`)

	_, err := q.Me(context.Background())
	require.Error(t, err)
	assert.Equal(t, 1, rec.count())
}

func TestQueriesLoginSeedsMeAndLogoutClears(t *testing.T) {
	q, rec := newTestQueries(t, `{"access_token":"at","refresh_token":"rt","user":{"id":3,"username":"carol","role":"user","mode":"custom"}}`)
	ctx := context.Background()

	_, err := q.Login(ctx, LoginRequest{Username: "carol", Password: "pw"})
	require.NoError(t, err)

	me, err := q.Me(ctx)
	require.NoError(t, err)
	assert.Equal(t, "carol", me.Username)
	assert.Equal(t, 1, rec.count(), "me should come from the login response")

	q.Logout()
	assert.Equal(t, 0, q.Cache().Len())
	assert.False(t, q.Service().Authenticated())
}

func TestRetryable(t *testing.T) {
	assert.True(t, retryable(context.DeadlineExceeded))
	assert.False(t, retryable(&client.APIError{StatusCode: http.StatusUnprocessableEntity}))
	assert.True(t, retryable(&client.APIError{StatusCode: http.StatusBadGateway}))
}
