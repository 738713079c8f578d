package api

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/Jeffail/gabs"
	"github.com/rs/zerolog/log"
	"github.com/yt-insights/subcount/internal/config"
	"github.com/yt-insights/subcount/internal/models"
)

const (
	errSubscriberCountUnavailable = "Subscriber count not available."
	errYouTubeAPI                 = "YouTube API error"
)

// YouTubeClient handles direct HTTP requests to YouTube API
type YouTubeClient struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewYouTubeClient creates a new YouTube client. A nil httpClient means a
// plain client with no timeout of its own.
func NewYouTubeClient(apiKey, baseURL string, httpClient *http.Client) *YouTubeClient {
	if baseURL == "" {
		baseURL = config.DefaultYouTubeBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &YouTubeClient{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  httpClient,
	}
}

// LookupChannelByHandle calls channels.list with forHandle. The ID is empty
// unless the call succeeded and returned at least one channel.
func (c *YouTubeClient) LookupChannelByHandle(ctx context.Context, handle string) (string, *UpstreamResponse, error) {
	resp, err := c.fetchJSON(ctx, "channels", url.Values{
		"part":      {"id"},
		"forHandle": {handle},
	})
	if err != nil {
		return "", nil, err
	}
	if !resp.OK {
		return "", resp, nil
	}
	return stringAt(firstItem(resp.Data).Path("id")), resp, nil
}

// SearchChannel calls search.list restricted to channels, asking for a
// single result.
func (c *YouTubeClient) SearchChannel(ctx context.Context, query string) (string, *UpstreamResponse, error) {
	resp, err := c.fetchJSON(ctx, "search", url.Values{
		"part":       {"snippet"},
		"type":       {"channel"},
		"maxResults": {"1"},
		"q":          {query},
	})
	if err != nil {
		return "", nil, err
	}
	if !resp.OK {
		return "", resp, nil
	}

	item := firstItem(resp.Data)
	if id := stringAt(item.Path("snippet.channelId")); id != "" {
		return id, resp, nil
	}
	return stringAt(item.Path("id.channelId")), resp, nil
}

// ResolveChannelID turns a handle, legacy username or channel ID into a
// canonical channel ID. It returns "" with a nil error when nothing matched.
//
// Canonical IDs are returned as-is. Otherwise the handle lookup is tried
// without and then with "@", followed by a search with and then without "@".
// The first hit wins. A search rejected with an explicit upstream message
// stops resolution with a *ResolutionError.
func (c *YouTubeClient) ResolveChannelID(ctx context.Context, channel string) (string, error) {
	ref := models.ClassifyChannel(channel)
	logger := log.Ctx(ctx).With().Str("channel", ref.Raw).Logger()

	if ref.Kind == models.ChannelKindID {
		logger.Debug().Msg("Channel is already a channel ID")
		return ref.Raw, nil
	}

	for _, handle := range []string{ref.Handle, ref.AtHandle} {
		logger.Debug().Str("handle", handle).Msg("Looking up channel by handle")
		id, resp, err := c.LookupChannelByHandle(ctx, handle)
		if err != nil {
			return "", err
		}
		if id != "" {
			logger.Info().Str("channel_id", id).Str("strategy", "handle").Msg("Resolved channel")
			return id, nil
		}
		if !resp.OK {
			logger.Warn().Int("status", resp.Status).Str("handle", handle).Msg("Handle lookup failed")
		}
	}

	for _, query := range []string{ref.AtHandle, ref.Handle} {
		logger.Debug().Str("query", query).Msg("Searching for channel")
		id, resp, err := c.SearchChannel(ctx, query)
		if err != nil {
			return "", err
		}
		if !resp.OK {
			if msg := resp.ErrorMessage(); msg != "" {
				logger.Warn().Int("status", resp.Status).Str("query", query).Str("error", msg).
					Msg("Channel search rejected, aborting resolution")
				return "", &ResolutionError{Query: query, Err: resp.Error()}
			}
			logger.Warn().Int("status", resp.Status).Str("query", query).Msg("Channel search failed")
			continue
		}
		if id != "" {
			logger.Info().Str("channel_id", id).Str("strategy", "search").Msg("Resolved channel")
			return id, nil
		}
	}

	logger.Info().Msg("Could not resolve channel")
	return "", nil
}

// GetSubscriberCount fetches the subscriber count of a channel. Upstream
// failures are reported as a 502 *APIError; a channel without a visible
// count is a 404 *APIError.
func (c *YouTubeClient) GetSubscriberCount(ctx context.Context, channelID string) (int64, error) {
	resp, err := c.fetchJSON(ctx, "channels", url.Values{
		"part": {"statistics"},
		"id":   {channelID},
	})
	if err != nil {
		return 0, err
	}

	if !resp.OK {
		msg := resp.ErrorMessage()
		if msg == "" {
			msg = resp.StatusText
		}
		if msg == "" {
			msg = errYouTubeAPI
		}
		log.Ctx(ctx).Warn().Str("channel_id", channelID).Int("status", resp.Status).Str("error", msg).
			Msg("Error fetching channel statistics")
		return 0, &APIError{Status: http.StatusBadGateway, Message: msg}
	}

	count, ok := parseCount(firstItem(resp.Data).Path("statistics.subscriberCount").Data())
	if !ok {
		return 0, &APIError{Status: http.StatusNotFound, Message: errSubscriberCountUnavailable}
	}
	return count, nil
}

func firstItem(data *gabs.Container) *gabs.Container {
	return data.Path("items").Index(0)
}

func stringAt(c *gabs.Container) string {
	s, _ := c.Data().(string)
	return s
}

// parseCount accepts the API's string-encoded counts as well as plain numbers.
func parseCount(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case string:
		count, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
		return count, err == nil
	case float64:
		if n != math.Trunc(n) || math.IsInf(n, 0) || n >= math.MaxInt64 || n < math.MinInt64 {
			return 0, false
		}
		return int64(n), true
	case json.Number:
		count, err := n.Int64()
		return count, err == nil
	}
	return 0, false
}
