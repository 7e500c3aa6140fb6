package session

import (
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signedToken(t *testing.T, claims jwt.Claims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return token
}

func TestContext_SetAndClear(t *testing.T) {
	s := New()
	_, ok := s.Token()
	assert.False(t, ok, "no token at start")

	s.SetToken("abc")
	tok, ok := s.Token()
	assert.True(t, ok)
	assert.Equal(t, "abc", tok)

	s.Clear()
	tok, ok = s.Token()
	assert.False(t, ok)
	assert.Empty(t, tok)
}

func TestContext_VersionChangesOnlyOnNewValue(t *testing.T) {
	s := New()
	s.SetToken("a")
	v := s.Version()
	s.SetToken("a")
	assert.Equal(t, v, s.Version())
	s.SetToken("b")
	assert.Equal(t, v+1, s.Version())
}

func TestContext_SubscribersSeeCommittedValue(t *testing.T) {
	s := New()
	var seen []string
	unsubscribe := s.OnTokenChange(func(token string) {
		current, _ := s.Token()
		assert.Equal(t, token, current, "value is visible before notification")
		seen = append(seen, token)
	})

	s.SetToken("t1")
	s.Clear()
	unsubscribe()
	unsubscribe()
	s.SetToken("t2")

	assert.Equal(t, []string{"t1", ""}, seen)
}

func TestContext_ConcurrentAccess(t *testing.T) {
	s := New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			s.SetToken("tok")
			s.Clear()
		}()
		go func() {
			defer wg.Done()
			tok, ok := s.Token()
			if ok {
				assert.Equal(t, "tok", tok)
			}
		}()
	}
	wg.Wait()
}

func TestContext_Claims(t *testing.T) {
	s := New()
	_, ok := s.UserID()
	assert.False(t, ok)

	s.SetToken("opaque-session-token")
	_, ok = s.Claims()
	assert.False(t, ok, "opaque tokens carry no claims")
	assert.False(t, s.Expired(time.Now()))

	s.SetToken(signedToken(t, Claims{
		UserID: "user-42",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}))
	id, ok := s.UserID()
	require.True(t, ok)
	assert.Equal(t, "user-42", id)
	assert.False(t, s.Expired(time.Now()))
	assert.True(t, s.Expired(time.Now().Add(2*time.Hour)))

	s.SetToken(signedToken(t, jwt.RegisteredClaims{Subject: "user-7"}))
	id, ok = s.UserID()
	require.True(t, ok)
	assert.Equal(t, "user-7", id)
}

func TestContext_CacheID(t *testing.T) {
	a, b := New(), New()
	assert.Equal(t, AnonymousCacheID, a.CacheID())

	a.SetToken("alice")
	b.SetToken("alice")
	assert.Equal(t, a.CacheID(), b.CacheID())
	assert.NotContains(t, a.CacheID(), "alice")
	assert.Len(t, a.CacheID(), 32)

	b.SetToken("bob")
	assert.NotEqual(t, a.CacheID(), b.CacheID())

	b.Clear()
	assert.Equal(t, AnonymousCacheID, b.CacheID())
}
