package api

import (
	"context"
	"errors"
	"math"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"
)

func TestResolveChannelID_CanonicalIDSkipsNetwork(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"UCabc1234567", "UCabc1234567"},
		{"  UCabc1234567\t", "UCabc1234567"},
		{"UC_x5XG1OV2P6uZZ5FSM9Ttw", "UC_x5XG1OV2P6uZZ5FSM9Ttw"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			upstream := newFakeUpstream(t, func(w http.ResponseWriter, r *http.Request) {
				t.Errorf("unexpected upstream call to %s", r.URL)
			})

			id, err := upstream.client().ResolveChannelID(context.Background(), tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, id)
			assert.Empty(t, upstream.Calls())
		})
	}
}

func TestResolveChannelID_HandleLookupShortCircuits(t *testing.T) {
	upstream := newFakeUpstream(t, routes{
		handle: func(w http.ResponseWriter, handle string) {
			writeBody(w, http.StatusOK, `{"items":[{"id":"UCabc1234567"}]}`)
		},
	}.ServeHTTP)

	id, err := upstream.client().ResolveChannelID(context.Background(), "@test")
	require.NoError(t, err)
	assert.Equal(t, "UCabc1234567", id)
	assert.Equal(t, []string{"handle:test"}, describe(upstream.Calls()))
}

func TestResolveChannelID_HandleLookupSecondVariant(t *testing.T) {
	upstream := newFakeUpstream(t, routes{
		handle: func(w http.ResponseWriter, handle string) {
			if handle == "@Test" {
				writeBody(w, http.StatusOK, `{"items":[{"id":"UCwithAt12345"}]}`)
				return
			}
			writeBody(w, http.StatusOK, `{"kind":"youtube#channelListResponse"}`)
		},
	}.ServeHTTP)

	id, err := upstream.client().ResolveChannelID(context.Background(), "Test")
	require.NoError(t, err)
	assert.Equal(t, "UCwithAt12345", id)
	assert.Equal(t, []string{"handle:Test", "handle:@Test"}, describe(upstream.Calls()))
}

func TestResolveChannelID_SearchFallback(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"snippet channel id", `{"items":[{"snippet":{"channelId":"UCsearch12345"}}]}`},
		{"resource channel id", `{"items":[{"id":{"kind":"youtube#channel","channelId":"UCsearch12345"}}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			upstream := newFakeUpstream(t, routes{
				search: func(w http.ResponseWriter, query string) {
					writeBody(w, http.StatusOK, tt.body)
				},
			}.ServeHTTP)

			id, err := upstream.client().ResolveChannelID(context.Background(), "@legacyuser")
			require.NoError(t, err)
			assert.Equal(t, "UCsearch12345", id)
			assert.Equal(t,
				[]string{"handle:legacyuser", "handle:@legacyuser", "search:@legacyuser"},
				describe(upstream.Calls()))

			search := upstream.Calls()[2]
			assert.Equal(t, "channel", search.Query.Get("type"))
			assert.Equal(t, "1", search.Query.Get("maxResults"))
			assert.Equal(t, "snippet", search.Query.Get("part"))
		})
	}
}

func TestResolveChannelID_NotFoundTriesFourVariants(t *testing.T) {
	upstream := newFakeUpstream(t, routes{}.ServeHTTP)

	id, err := upstream.client().ResolveChannelID(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Empty(t, id)
	assert.Equal(t,
		[]string{"handle:nobody", "handle:@nobody", "search:@nobody", "search:nobody"},
		describe(upstream.Calls()))
}

func TestResolveChannelID_SearchErrorAborts(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantMsg    string
		wantReason string
	}{
		{
			name:       "quota exceeded",
			body:       `{"error":{"code":403,"message":"The request cannot be completed because you have exceeded your quota.","errors":[{"reason":"quotaExceeded","domain":"youtube.quota"}]}}`,
			wantMsg:    "The request cannot be completed because you have exceeded your quota.",
			wantReason: "quotaExceeded",
		},
		{
			name:    "odd field types",
			body:    `{"error":{"code":"403","message":"quota exceeded","errors":"x"}}`,
			wantMsg: "quota exceeded",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			upstream := newFakeUpstream(t, routes{
				handle: func(w http.ResponseWriter, handle string) {
					writeBody(w, http.StatusNotFound, ``)
				},
				search: func(w http.ResponseWriter, query string) {
					writeBody(w, http.StatusForbidden, tt.body)
				},
			}.ServeHTTP)

			id, err := upstream.client().ResolveChannelID(context.Background(), "@test")
			require.Error(t, err)
			assert.Empty(t, id)
			assert.Equal(t, tt.wantMsg, err.Error())

			var resErr *ResolutionError
			require.True(t, errors.As(err, &resErr))
			assert.Equal(t, "@test", resErr.Query)

			var gErr *googleapi.Error
			require.True(t, errors.As(err, &gErr))
			assert.Equal(t, 403, gErr.Code)
			if tt.wantReason != "" {
				require.Len(t, gErr.Errors, 1)
				assert.Equal(t, tt.wantReason, gErr.Errors[0].Reason)
			}

			assert.Equal(t,
				[]string{"handle:test", "handle:@test", "search:@test"},
				describe(upstream.Calls()),
				"no search variant after the rejected one")
		})
	}
}

func TestResolveChannelID_SearchFailureWithoutMessageContinues(t *testing.T) {
	upstream := newFakeUpstream(t, routes{
		search: func(w http.ResponseWriter, query string) {
			if query == "@test" {
				writeBody(w, http.StatusInternalServerError, `<html>backend error</html>`)
				return
			}
			writeBody(w, http.StatusOK, `{"items":[{"snippet":{"channelId":"UCbare1234567"}}]}`)
		},
	}.ServeHTTP)

	id, err := upstream.client().ResolveChannelID(context.Background(), "@test")
	require.NoError(t, err)
	assert.Equal(t, "UCbare1234567", id)
	assert.Len(t, upstream.Calls(), 4)
}

func TestResolveChannelID_HandleLookupErrorDoesNotAbort(t *testing.T) {
	upstream := newFakeUpstream(t, routes{
		handle: func(w http.ResponseWriter, handle string) {
			writeBody(w, http.StatusBadRequest, `{"error":{"code":400,"message":"Invalid handle"}}`)
		},
		search: func(w http.ResponseWriter, query string) {
			writeBody(w, http.StatusOK, `{"items":[{"snippet":{"channelId":"UCsearch12345"}}]}`)
		},
	}.ServeHTTP)

	id, err := upstream.client().ResolveChannelID(context.Background(), "@test")
	require.NoError(t, err)
	assert.Equal(t, "UCsearch12345", id)
}

func TestResolveChannelID_MalformedBodies(t *testing.T) {
	upstream := newFakeUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		writeBody(w, http.StatusOK, `not json at all {`)
	})

	id, err := upstream.client().ResolveChannelID(context.Background(), "@test")
	require.NoError(t, err)
	assert.Empty(t, id)
	assert.Len(t, upstream.Calls(), 4)
}

func TestResolveChannelID_TransportError(t *testing.T) {
	upstream := newFakeUpstream(t, routes{}.ServeHTTP)
	client := upstream.client()
	upstream.server.Close()

	_, err := client.ResolveChannelID(context.Background(), "@test")
	assert.Error(t, err)
}

func TestGetSubscriberCount(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		want       int64
		wantStatus int
		wantMsg    string
	}{
		{
			name:   "string count",
			status: http.StatusOK,
			body:   `{"items":[{"id":"UCabc1234567","statistics":{"subscriberCount":"42","viewCount":"1000"}}]}`,
			want:   42,
		},
		{
			name:   "numeric count",
			status: http.StatusOK,
			body:   `{"items":[{"statistics":{"subscriberCount":1250000}}]}`,
			want:   1250000,
		},
		{
			name:       "hidden subscriber count",
			status:     http.StatusOK,
			body:       `{"items":[{"statistics":{"hiddenSubscriberCount":true,"viewCount":"10"}}]}`,
			wantStatus: http.StatusNotFound,
			wantMsg:    "Subscriber count not available.",
		},
		{
			name:       "null subscriber count",
			status:     http.StatusOK,
			body:       `{"items":[{"statistics":{"subscriberCount":null}}]}`,
			wantStatus: http.StatusNotFound,
			wantMsg:    "Subscriber count not available.",
		},
		{
			name:       "no items",
			status:     http.StatusOK,
			body:       `{"pageInfo":{"totalResults":0}}`,
			wantStatus: http.StatusNotFound,
			wantMsg:    "Subscriber count not available.",
		},
		{
			name:       "malformed body",
			status:     http.StatusOK,
			body:       `<!doctype html>`,
			wantStatus: http.StatusNotFound,
			wantMsg:    "Subscriber count not available.",
		},
		{
			name:       "upstream error message",
			status:     http.StatusForbidden,
			body:       `{"error":{"code":403,"message":"API key not valid. Please pass a valid API key."}}`,
			wantStatus: http.StatusBadGateway,
			wantMsg:    "API key not valid. Please pass a valid API key.",
		},
		{
			name:       "upstream error with odd field types",
			status:     http.StatusForbidden,
			body:       `{"error":{"code":"403","message":"quota exceeded","errors":"x"}}`,
			wantStatus: http.StatusBadGateway,
			wantMsg:    "quota exceeded",
		},
		{
			name:       "upstream error without message",
			status:     http.StatusServiceUnavailable,
			body:       `upstream unavailable`,
			wantStatus: http.StatusBadGateway,
			wantMsg:    "Service Unavailable",
		},
		{
			name:       "unknown status without message",
			status:     599,
			body:       ``,
			wantStatus: http.StatusBadGateway,
			wantMsg:    "YouTube API error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			upstream := newFakeUpstream(t, routes{
				stats: func(w http.ResponseWriter, id string) {
					writeBody(w, tt.status, tt.body)
				},
			}.ServeHTTP)

			count, err := upstream.client().GetSubscriberCount(context.Background(), "UCabc1234567")
			if tt.wantStatus == 0 {
				require.NoError(t, err)
				assert.Equal(t, tt.want, count)
			} else {
				var apiErr *APIError
				require.True(t, errors.As(err, &apiErr), "want *APIError, got %v", err)
				assert.Equal(t, tt.wantStatus, apiErr.Status)
				assert.Equal(t, tt.wantMsg, apiErr.Message)
			}

			calls := upstream.Calls()
			require.Len(t, calls, 1)
			assert.Equal(t, "UCabc1234567", calls[0].Query.Get("id"))
		})
	}
}

func TestParseCount(t *testing.T) {
	tests := []struct {
		in     interface{}
		want   int64
		wantOK bool
	}{
		{"42", 42, true},
		{" 7 ", 7, true},
		{"", 0, false},
		{"abc", 0, false},
		{"1.5", 0, false},
		{float64(1000), 1000, true},
		{float64(1.5), 0, false},
		{float64(math.MaxInt64), 0, false},
		{float64(math.MinInt64), math.MinInt64, true},
		{math.Inf(1), 0, false},
		{nil, 0, false},
		{true, 0, false},
	}

	for _, tt := range tests {
		got, ok := parseCount(tt.in)
		assert.Equal(t, tt.wantOK, ok, "parseCount(%#v)", tt.in)
		assert.Equal(t, tt.want, got, "parseCount(%#v)", tt.in)
	}
}
