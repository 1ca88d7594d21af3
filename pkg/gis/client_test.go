package gis

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/drivetime-cli/internal/resilience"
)

// testClient points every service URL at the test server.
func testClient(srv *httptest.Server, username, password string) *Client {
	return NewClient(srv.URL, username, password,
		WithHTTPClient(srv.Client()),
		WithGeocodeURL(srv.URL+"/geocode"),
		WithRoutingUtilURL(srv.URL+"/routing"),
		WithServiceAreaURL(srv.URL+"/sa"),
		WithRateLimit(1000),
	)
}

func TestEnsureToken_AnonymousSkipsRoundTrip(t *testing.T) {
	var tokenCalls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/sharing/rest/generateToken" {
			tokenCalls.Add(1)
		}
		w.Write([]byte(`{"candidates":[]}`)) //nolint:errcheck
	}))
	defer srv.Close()

	c := testClient(srv, "", "")
	_, _ = c.GeocodeCandidates(context.Background(), "anywhere", 1)
	assert.Zero(t, tokenCalls.Load())
}

func TestEnsureToken_AcquiredOnceAndAttached(t *testing.T) {
	var tokenCalls atomic.Int32
	var seenToken atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/sharing/rest/generateToken":
			tokenCalls.Add(1)
			require.NoError(t, r.ParseForm())
			assert.Equal(t, "alice", r.PostForm.Get("username"))
			assert.Equal(t, "s3cret", r.PostForm.Get("password"))
			assert.Equal(t, "json", r.PostForm.Get("f"))
			expires := strconv.FormatInt(time.Now().Add(time.Hour).UnixMilli(), 10)
			w.Write([]byte(`{"token":"tok-123","expires":` + expires + `}`)) //nolint:errcheck
		default:
			seenToken.Store(r.URL.Query().Get("token"))
			w.Write([]byte(`{"candidates":[]}`)) //nolint:errcheck
		}
	}))
	defer srv.Close()

	c := testClient(srv, "alice", "s3cret")
	ctx := context.Background()
	_, _ = c.GeocodeCandidates(ctx, "a", 1)
	_, _ = c.GeocodeCandidates(ctx, "b", 1)

	assert.Equal(t, int32(1), tokenCalls.Load(), "token should be reused until expiry")
	assert.Equal(t, "tok-123", seenToken.Load())
}

func TestEnsureToken_BadCredentials(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error":{"code":400,"message":"Unable to generate token.","details":["Invalid username or password."]}}`)) //nolint:errcheck
	}))
	defer srv.Close()

	c := testClient(srv, "alice", "wrong")
	_, err := c.GeocodeCandidates(context.Background(), "a", 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Unable to generate token")
	assert.False(t, resilience.IsTransient(err), "credential rejection must not be retried")
}

func TestDo_PlatformErrorInsideOK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error":{"code":498,"message":"Invalid token."}}`)) //nolint:errcheck
	}))
	defer srv.Close()

	c := testClient(srv, "", "")
	_, err := c.GeocodeCandidates(context.Background(), "a", 1)
	require.Error(t, err)

	var perr *PlatformError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, 498, perr.Code)
	assert.Contains(t, perr.Error(), "Invalid token")
}

func TestDo_TransientStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := testClient(srv, "", "")
	_, err := c.GeocodeCandidates(context.Background(), "a", 1)
	require.Error(t, err)
	assert.True(t, resilience.IsTransient(err))

	var terr *resilience.TransientError
	require.True(t, errors.As(err, &terr))
	assert.Equal(t, http.StatusServiceUnavailable, terr.StatusCode)
}

func TestDo_PermanentStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := testClient(srv, "", "")
	_, err := c.GeocodeCandidates(context.Background(), "a", 1)
	require.Error(t, err)
	assert.False(t, resilience.IsTransient(err))
}

func TestGet_SetsJSONFormat(t *testing.T) {
	var gotFormat string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotFormat = r.URL.Query().Get("f")
		w.Write([]byte(`{}`)) //nolint:errcheck
	}))
	defer srv.Close()

	c := testClient(srv, "", "")
	var out map[string]any
	require.NoError(t, c.get(context.Background(), srv.URL+"/x", url.Values{}, &out))
	assert.Equal(t, "json", gotFormat)
}
