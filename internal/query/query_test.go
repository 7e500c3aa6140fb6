package query

import (
	"context"
	"errors"
	"testing"

	"github.com/Abdurahmanit/GroupProject/marketplace-client/internal/adapter/cache/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type counter struct {
	calls int
	value []string
	err   error
}

func (c *counter) fetch(context.Context) ([]string, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return c.value, nil
}

func newTestClient(opts ...Option) *Client {
	return NewClient(memory.NewMemoryCacheRepository(nil), opts...)
}

func TestKey_String(t *testing.T) {
	assert.Equal(t, "listings|", NewKey(ScopeListings).String())
	assert.Equal(t, "listings|query=chaise", NewKey(ScopeListings, "query=chaise").String())
	assert.Equal(t, "getUserListings|u1", NewKey(ScopeUserListings, "u1").String())
}

func TestFetch_ServesCacheUntilInvalidated(t *testing.T) {
	ctx := context.Background()
	c := newTestClient()
	src := &counter{value: []string{"a"}}
	key := NewKey(ScopeListings, "query=a")

	for i := 0; i < 3; i++ {
		got, err := Fetch(ctx, c, key, src.fetch)
		require.NoError(t, err)
		assert.Equal(t, []string{"a"}, got)
	}
	assert.Equal(t, 1, src.calls)

	require.NoError(t, c.Invalidate(ctx, ScopeListings))
	src.value = []string{"a", "b"}

	got, err := Fetch(ctx, c, key, src.fetch)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, got)
	assert.Equal(t, 2, src.calls)
}

func TestFetch_InvalidationIsScoped(t *testing.T) {
	ctx := context.Background()
	c := newTestClient()
	listings := &counter{value: []string{"l"}}
	user := &counter{value: []string{"u"}}

	_, _ = Fetch(ctx, c, NewKey(ScopeListings), listings.fetch)
	_, _ = Fetch(ctx, c, NewKey(ScopeCurrentUser), user.fetch)

	require.NoError(t, c.Invalidate(ctx, ScopeCurrentUser))

	_, _ = Fetch(ctx, c, NewKey(ScopeListings), listings.fetch)
	_, _ = Fetch(ctx, c, NewKey(ScopeCurrentUser), user.fetch)
	assert.Equal(t, 1, listings.calls)
	assert.Equal(t, 2, user.calls)
}

func TestFetch_ErrorsAreNotCached(t *testing.T) {
	ctx := context.Background()
	c := newTestClient()
	src := &counter{err: errors.New("boom")}
	key := NewKey(ScopeListing, "1")

	_, err := Fetch(ctx, c, key, src.fetch)
	assert.Error(t, err)

	src.err = nil
	src.value = []string{"ok"}
	got, err := Fetch(ctx, c, key, src.fetch)
	require.NoError(t, err)
	assert.Equal(t, []string{"ok"}, got)
	assert.Equal(t, 2, src.calls)
}

func TestFetch_ZeroStaleTimeAlwaysFetches(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(WithStaleTime(0))
	src := &counter{value: []string{"a"}}

	_, _ = Fetch(ctx, c, NewKey(ScopeListings), src.fetch)
	_, _ = Fetch(ctx, c, NewKey(ScopeListings), src.fetch)
	assert.Equal(t, 2, src.calls)
}

func TestFetch_InvalidationDuringFetchIsNotOverwritten(t *testing.T) {
	ctx := context.Background()
	c := newTestClient()
	key := NewKey(ScopeListings)
	calls := 0

	_, err := Fetch(ctx, c, key, func(ctx context.Context) ([]string, error) {
		calls++
		require.NoError(t, c.Invalidate(ctx, ScopeListings))
		return []string{"old"}, nil
	})
	require.NoError(t, err)

	got, err := Fetch(ctx, c, key, func(context.Context) ([]string, error) {
		calls++
		return []string{"new"}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"new"}, got)
	assert.Equal(t, 2, calls)
}

func TestSubscribe(t *testing.T) {
	ctx := context.Background()
	c := newTestClient()
	hits := 0
	unsubscribe := c.Subscribe(ScopeCurrentUser, func() { hits++ })

	require.NoError(t, c.Invalidate(ctx, ScopeCurrentUser, ScopeListings))
	unsubscribe()
	require.NoError(t, c.Invalidate(ctx, ScopeCurrentUser))

	assert.Equal(t, 1, hits)
}

func TestObserver_StateTransitions(t *testing.T) {
	ctx := context.Background()
	c := newTestClient()
	src := &counter{value: []string{"a"}}
	o := Observe(c, NewKey(ScopeListings), nil, src.fetch)
	defer o.Close()

	var states []State
	o.OnChange(func(r Result[[]string]) { states = append(states, r.State) })

	assert.Equal(t, Idle, o.Result().State)

	res := o.Load(ctx)
	assert.Equal(t, Success, res.State)
	assert.Equal(t, []string{"a"}, res.Data)

	src.err = errors.New("down")
	res = o.Refetch(ctx)
	assert.Equal(t, Error, res.State)
	assert.EqualError(t, res.Err, "down")
	assert.Equal(t, []string{"a"}, res.Data, "previous data is kept on error")
	assert.Equal(t, 2, src.calls, "refetch bypasses the cache and does not retry")

	assert.Equal(t, []State{Loading, Success, Loading, Error}, states)
}

func TestObserver_DisabledNeverLoads(t *testing.T) {
	ctx := context.Background()
	c := newTestClient()
	src := &counter{value: []string{"a"}}
	enabled := false
	o := Observe(c, NewKey(ScopeUserListings, ""), func() bool { return enabled }, src.fetch)
	defer o.Close()

	var states []State
	o.OnChange(func(r Result[[]string]) { states = append(states, r.State) })

	assert.Equal(t, Disabled, o.Result().State)
	res := o.Load(ctx)
	assert.True(t, res.IsDisabled())
	assert.NoError(t, res.Err)
	assert.Equal(t, 0, src.calls)
	assert.NotContains(t, states, Loading)

	enabled = true
	res = o.Load(ctx)
	assert.True(t, res.IsSuccess())
	assert.Equal(t, 1, src.calls)
}

func TestObserver_MarkedStaleOnInvalidate(t *testing.T) {
	ctx := context.Background()
	c := newTestClient()
	src := &counter{value: []string{"a"}}
	o := Observe(c, NewKey(ScopeListings), nil, src.fetch)
	defer o.Close()

	o.Load(ctx)
	assert.False(t, o.Result().Stale)

	require.NoError(t, c.Invalidate(ctx, ScopeListings))
	assert.True(t, o.Result().Stale)

	res := o.Load(ctx)
	assert.False(t, res.Stale)
	assert.Equal(t, 2, src.calls)
}

func TestObserver_SetKey(t *testing.T) {
	ctx := context.Background()
	c := newTestClient()
	a := &counter{value: []string{"a"}}
	b := &counter{value: []string{"b"}}

	o := Observe(c, NewKey(ScopeListings, "query=a"), nil, a.fetch)
	defer o.Close()
	o.Load(ctx)

	res := o.SetKey(ctx, NewKey(ScopeListings, "query=b"), b.fetch)
	assert.Equal(t, []string{"b"}, res.Data)
	assert.Equal(t, "listings|query=b", o.Key().String())
}

func TestObserveFunc_ResolvesKeyOnEveryLoad(t *testing.T) {
	ctx := context.Background()
	c := newTestClient()
	src := &counter{value: []string{"a"}}
	partition := "alice"

	o := ObserveFunc(c, ScopeCurrentUser, func() Key { return NewKey(ScopeCurrentUser, partition) }, nil, src.fetch)
	defer o.Close()

	o.Load(ctx)
	o.Load(ctx)
	assert.Equal(t, 1, src.calls)
	assert.Equal(t, "getUser|alice", o.Key().String())

	partition = "bob"
	o.Load(ctx)
	assert.Equal(t, 2, src.calls)
	assert.Equal(t, "getUser|bob", o.Key().String())

	require.NoError(t, c.Invalidate(ctx, ScopeCurrentUser))
	assert.True(t, o.Result().Stale)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "idle", Idle.String())
	assert.Equal(t, "disabled", Disabled.String())
	assert.Equal(t, "loading", Loading.String())
	assert.Equal(t, "success", Success.String())
	assert.Equal(t, "error", Error.String())
}
