package google_test

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/digitaldrywood/timeexport/internal/google"
)

func tokenJSON(tokenURI, access, refresh string, expiry time.Time) []byte {
	return []byte(fmt.Sprintf(`{
		"token": %q,
		"refresh_token": %q,
		"token_uri": %q,
		"client_id": "client",
		"client_secret": "secret",
		"scopes": ["https://www.googleapis.com/auth/drive"],
		"expiry": %q
	}`, access, refresh, tokenURI, expiry.UTC().Format("2006-01-02T15:04:05.000000Z")))
}

func TestParseCredential_AuthorizedUserJSON(t *testing.T) {
	expiry := time.Now().Add(time.Hour).Truncate(time.Microsecond)
	cred, err := google.ParseCredential(tokenJSON("https://oauth2.googleapis.com/token", "access", "refresh", expiry))
	require.NoError(t, err)

	assert.Equal(t, "access", cred.Token().AccessToken)
	assert.Equal(t, "refresh", cred.Token().RefreshToken)
	assert.True(t, expiry.Equal(cred.Token().Expiry))
	assert.False(t, cred.Expired())
	assert.True(t, cred.CanRefresh())
}

func TestParseCredential_OAuth2TokenJSON(t *testing.T) {
	cred, err := google.ParseCredential([]byte(`{"access_token":"a","token_type":"Bearer","expiry":"2020-01-01T00:00:00Z"}`))
	require.NoError(t, err)

	assert.Equal(t, "a", cred.Token().AccessToken)
	assert.True(t, cred.Expired())
	assert.False(t, cred.CanRefresh())
}

func TestParseCredential_Invalid(t *testing.T) {
	for name, in := range map[string]string{
		"not json":  `{`,
		"no tokens": `{"client_id":"x"}`,
		"bad date":  `{"token":"a","expiry":"tomorrow"}`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := google.ParseCredential([]byte(in))
			assert.Error(t, err)
		})
	}
}

func TestParseCredential_NoExpiryNeverExpires(t *testing.T) {
	cred, err := google.ParseCredential([]byte(`{"token":"a"}`))
	require.NoError(t, err)
	assert.False(t, cred.Expired())
}

func TestAuth_RefreshesExpiredToken(t *testing.T) {
	var refreshes atomic.Int32
	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		refreshes.Add(1)
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.PostForm.Get("grant_type"))
		assert.Equal(t, "refresh", r.PostForm.Get("refresh_token"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"access_token":"fresh","token_type":"Bearer","expires_in":3600}`)
	}))
	defer tokenSrv.Close()

	var gotAuth string
	apiSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
	}))
	defer apiSrv.Close()

	cred, err := google.ParseCredential(tokenJSON(tokenSrv.URL, "stale", "refresh", time.Now().Add(-time.Hour)))
	require.NoError(t, err)
	require.True(t, cred.Expired())

	client, err := google.NewAuth(cred, 5*time.Second).GetClient(context.Background())
	require.NoError(t, err)

	resp, err := client.Get(apiSrv.URL)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, int32(1), refreshes.Load())
	assert.Equal(t, "Bearer fresh", gotAuth)
	assert.Equal(t, "refresh", cred.Token().RefreshToken)
	assert.False(t, cred.Expired())
}

func TestAuth_ValidTokenIsNotRefreshed(t *testing.T) {
	var refreshes atomic.Int32
	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		refreshes.Add(1)
	}))
	defer tokenSrv.Close()

	cred, err := google.ParseCredential(tokenJSON(tokenSrv.URL, "current", "refresh", time.Now().Add(time.Hour)))
	require.NoError(t, err)

	auth := google.NewAuth(cred, time.Second)
	c1, err := auth.GetClient(context.Background())
	require.NoError(t, err)
	c2, err := auth.GetClient(context.Background())
	require.NoError(t, err)

	assert.Same(t, c1, c2)
	assert.Equal(t, int32(0), refreshes.Load())
}

func TestAuth_RefreshFailure(t *testing.T) {
	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"error":"invalid_grant"}`)
	}))
	defer tokenSrv.Close()

	cred, err := google.ParseCredential(tokenJSON(tokenSrv.URL, "stale", "refresh", time.Now().Add(-time.Hour)))
	require.NoError(t, err)

	_, err = google.NewAuth(cred, time.Second).GetClient(context.Background())
	assert.Error(t, err)
}

func TestAuth_ExpiredWithoutRefreshTokenProceeds(t *testing.T) {
	var gotAuth string
	apiSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer apiSrv.Close()

	cred, err := google.ParseCredential([]byte(`{"token":"stale","expiry":"2020-01-01T00:00:00Z"}`))
	require.NoError(t, err)

	client, err := google.NewAuth(cred, time.Second).GetClient(context.Background())
	require.NoError(t, err)

	resp, err := client.Get(apiSrv.URL)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "Bearer stale", gotAuth)
}
