package dispatch

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatch(t *testing.T) {
	var (
		gotPath string
		gotAuth string
		gotBody map[string]any
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.Method + " " + r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c, err := New(context.Background(), "ghs_token", srv.URL, nil)
	require.NoError(t, err)

	require.NoError(t, c.Dispatch(context.Background(), "acme/support", "analysis.yml", "main"))
	assert.Equal(t, "POST /repos/acme/support/actions/workflows/analysis.yml/dispatches", gotPath)
	assert.Equal(t, "Bearer ghs_token", gotAuth)
	assert.Equal(t, map[string]any{"ref": "main"}, gotBody)
}

func TestDispatch_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"Not Found"}`))
	}))
	defer srv.Close()

	c, err := New(context.Background(), "ghs_token", srv.URL+"/", nil)
	require.NoError(t, err)

	err = c.Dispatch(context.Background(), "acme/support", "analysis.yml", "main")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "analysis.yml")
}

func TestNew_RequiresToken(t *testing.T) {
	_, err := New(context.Background(), "", "", nil)
	assert.ErrorIs(t, err, ErrMissingToken)
}

func TestNew_DefaultAPIURL(t *testing.T) {
	c, err := New(context.Background(), "t", "https://api.github.com", nil)
	require.NoError(t, err)
	assert.Equal(t, defaultAPIURL, c.gh.BaseURL.String())
}

func TestSplitRepo(t *testing.T) {
	owner, name, err := SplitRepo("acme/support")
	require.NoError(t, err)
	assert.Equal(t, "acme", owner)
	assert.Equal(t, "support", name)

	for _, bad := range []string{"", "acme", "/support", "acme/", "a/b/c"} {
		_, _, err := SplitRepo(bad)
		assert.ErrorIs(t, err, ErrInvalidRepo, bad)
	}
}
