package plex

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient("test-client", "MediaTrack", WithBaseURL(srv.URL), WithHTTPClient(srv.Client())), srv
}

func TestCheckPin(t *testing.T) {
	var gotPath, gotClientID string
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotClientID = r.Header.Get("X-Plex-Client-Identifier")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id": 1, "authToken": "tok-123"}`))
	}))

	token, err := client.CheckPin(context.Background(), "req-1")
	require.NoError(t, err)
	assert.Equal(t, "tok-123", token)
	assert.Equal(t, "/api/v2/pins/req-1", gotPath)
	assert.Equal(t, "test-client", gotClientID)
}

func TestCheckPin_PendingReturnsEmptyToken(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id": 1, "authToken": null}`))
	}))

	token, err := client.CheckPin(context.Background(), "req-1")
	require.NoError(t, err)
	assert.Empty(t, token)
}

func TestCheckPin_HTTPError(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusNotFound)
	}))

	_, err := client.CheckPin(context.Background(), "req-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestServers(t *testing.T) {
	var gotToken string
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotToken = r.Header.Get("X-Plex-Token")
		_, _ = w.Write([]byte(`[
			{"name": "den", "owned": 1, "localAddresses": ["192.168.1.10"], "port": 32400},
			{"name": "shared", "owned": 0, "localAddresses": ["10.0.0.1"], "port": 32400},
			{"name": "hidden", "owned": 1, "localAddresses": [], "port": 32400}
		]`))
	}))

	servers, err := client.Servers(context.Background(), "tok")
	require.NoError(t, err)
	assert.Equal(t, "tok", gotToken)
	require.Len(t, servers, 3)

	assert.True(t, servers[0].Reachable())
	assert.Equal(t, "http://192.168.1.10:32400", servers[0].URL())
	assert.False(t, servers[1].Reachable(), "not owned")
	assert.False(t, servers[2].Reachable(), "no addresses")
}

func TestSections(t *testing.T) {
	client, srv := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/library/sections", r.URL.Path)
		_, _ = w.Write([]byte(`{"MediaContainer": {"Directory": [
			{"key": "1", "type": "movie", "title": "Movies"},
			{"key": "2", "type": "show", "title": "TV"},
			{"key": "3", "type": "photo", "title": "Photos"}
		]}}`))
	}))

	sections, err := client.Sections(context.Background(), srv.URL, "tok")
	require.NoError(t, err)
	require.Len(t, sections, 3)
	assert.Equal(t, "movie", sections[0].Type)
}

func TestSectionItems_DefensiveOnMissingFields(t *testing.T) {
	client, srv := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/library/sections/1/all", r.URL.Path)
		_, _ = w.Write([]byte(`{"MediaContainer": {"Metadata": [
			{"title": "The Matrix", "year": 1999, "duration": 8160000,
			 "Genre": [{"tag": "Action"}], "viewCount": 2, "lastViewedAt": 1700000000,
			 "guid": "com.plexapp.agents.themoviedb://603?lang=en"},
			{"title": "Untitled Home Video"}
		]}}`))
	}))

	items, err := client.SectionItems(context.Background(), srv.URL, "tok", "1")
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, int64(8160000), items[0].Duration)
	assert.Equal(t, 2, items[0].ViewCount)

	// every optional field absent
	assert.Zero(t, items[1].Year)
	assert.Zero(t, items[1].Duration)
	assert.Empty(t, items[1].Genre)
	assert.Zero(t, items[1].ViewCount)
}

func TestSectionItems_EmptyContainer(t *testing.T) {
	client, srv := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"MediaContainer": {}}`))
	}))

	items, err := client.SectionItems(context.Background(), srv.URL, "tok", "1")
	require.NoError(t, err)
	assert.Empty(t, items)
}
