package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newHost(t *testing.T) *Host {
	t.Helper()
	h, err := New(Config{Password: "open-sesame", Secret: "test-secret", Expires: time.Hour})
	require.NoError(t, err)
	return h
}

func TestDisabledAllowsEveryone(t *testing.T) {
	h, err := New(Config{})
	require.NoError(t, err)
	assert.False(t, h.Enabled())
	assert.True(t, h.Authorized(httptest.NewRequest("POST", "/cmd", nil)))

	_, _, err = h.Login("anything")
	require.ErrorIs(t, err, ErrDisabled)
}

func TestSecretRequired(t *testing.T) {
	_, err := New(Config{Password: "pw"})
	require.Error(t, err)
}

func TestLoginAndVerify(t *testing.T) {
	h := newHost(t)

	_, _, err := h.Login("wrong")
	require.ErrorIs(t, err, ErrBadPassword)

	token, exp, err := h.Login("open-sesame")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, 5*time.Second)
	assert.True(t, h.Verify(token))
	assert.False(t, h.Verify(token+"x"))
	assert.False(t, h.Verify(""))

	other, err := New(Config{Password: "open-sesame", Secret: "different"})
	require.NoError(t, err)
	assert.False(t, other.Verify(token))
}

func TestPasswordHashWins(t *testing.T) {
	hash, err := HashPassword("from-hash")
	require.NoError(t, err)
	h, err := New(Config{Password: "plain", PasswordHash: hash, Secret: "s"})
	require.NoError(t, err)

	_, _, err = h.Login("plain")
	require.ErrorIs(t, err, ErrBadPassword)
	_, _, err = h.Login("from-hash")
	require.NoError(t, err)
}

func TestExpiredTokenRejected(t *testing.T) {
	h := newHost(t)
	token, _, err := h.Login("open-sesame")
	require.NoError(t, err)

	h.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	assert.False(t, h.Verify(token))
}

func TestAuthorizedReadsBearerAndCookie(t *testing.T) {
	h := newHost(t)
	token, exp, err := h.Login("open-sesame")
	require.NoError(t, err)

	r := httptest.NewRequest("POST", "/cmd", nil)
	assert.False(t, h.Authorized(r))

	r.Header.Set("Authorization", "Bearer "+token)
	assert.True(t, h.Authorized(r))

	rec := httptest.NewRecorder()
	h.SetCookie(rec, token, exp)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, CookieName, cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)

	r = httptest.NewRequest("POST", "/cmd", nil)
	r.AddCookie(&http.Cookie{Name: CookieName, Value: cookies[0].Value})
	assert.True(t, h.Authorized(r))

	rec = httptest.NewRecorder()
	h.ClearCookie(rec)
	assert.Equal(t, -1, rec.Result().Cookies()[0].MaxAge)
}
