package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/Jeffail/gabs"
	"github.com/rs/zerolog/log"
	"google.golang.org/api/googleapi"
)

// UpstreamResponse is the outcome of one YouTube Data API call. Data is never
// nil: a body that is not JSON is replaced by an empty object.
type UpstreamResponse struct {
	OK         bool
	Status     int
	StatusText string
	Data       *gabs.Container
}

// ParseJSON parses an upstream body. Callers decide what a parse error means.
func ParseJSON(body []byte) (*gabs.Container, error) {
	return gabs.ParseJSON(body)
}

// Error decodes the API's {"error": {...}} payload, or returns nil when the
// body carries none. Fields of an unexpected type are dropped; Code and
// Message are always filled from the status and error.message.
func (r *UpstreamResponse) Error() *googleapi.Error {
	payload, ok := r.Data.Path("error").Data().(map[string]interface{})
	if !ok {
		return nil
	}
	var apiErr googleapi.Error
	if raw, err := json.Marshal(payload); err == nil {
		if err := json.Unmarshal(raw, &apiErr); err != nil {
			apiErr = googleapi.Error{}
		}
	}
	if apiErr.Message == "" {
		apiErr.Message = r.ErrorMessage()
	}
	if apiErr.Code == 0 {
		apiErr.Code = r.Status
	}
	return &apiErr
}

// ErrorMessage returns the upstream error.message, or "" when there is none.
func (r *UpstreamResponse) ErrorMessage() string {
	return stringAt(r.Data.Path("error.message"))
}

// fetchJSON issues a GET against endpoint with the API key appended. Only
// transport failures are returned as errors; any HTTP status and any body,
// parseable or not, produce a response.
func (c *YouTubeClient) fetchJSON(ctx context.Context, endpoint string, params url.Values) (*UpstreamResponse, error) {
	query := url.Values{}
	for k, v := range params {
		query[k] = v
	}
	query.Set("key", c.apiKey)
	reqURL := fmt.Sprintf("%s/%s?%s", c.baseURL, endpoint, query.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build %s request: %w", endpoint, stripURL(err))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call %s: %w", endpoint, stripURL(err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s response: %w", endpoint, err)
	}

	data, err := ParseJSON(body)
	if err != nil {
		log.Ctx(ctx).Debug().Err(err).
			Str("endpoint", endpoint).
			Int("status", resp.StatusCode).
			Msg("Upstream body is not JSON, using empty object")
		data = gabs.New()
	}

	return &UpstreamResponse{
		OK:         resp.StatusCode >= 200 && resp.StatusCode < 300,
		Status:     resp.StatusCode,
		StatusText: http.StatusText(resp.StatusCode),
		Data:       data,
	}, nil
}

// stripURL drops the request URL, which contains the API key, from transport errors.
func stripURL(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return urlErr.Err
	}
	return err
}
