// Package firms fetches active fire hotspots from the NASA FIRMS area API.
package firms

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/paulmach/orb"

	"github.com/couchcryptid/wildfire-globe-service/internal/domain"
	"github.com/couchcryptid/wildfire-globe-service/internal/observability"
)

// lookbackDays is the FIRMS day range; 1 means the last 24 hours.
const lookbackDays = 1

// maxBodyBytes caps a single area response. A whole-globe VIIRS query is a few MB.
const maxBodyBytes = 64 << 20

// Request outcomes recorded on the hotspot request counter.
const (
	outcomeSuccess        = "success"
	outcomeHTTPError      = "http_error"
	outcomeInvalidBody    = "invalid_body"
	outcomeTransportError = "transport_error"
)

// Client implements the hotspot fetcher using the FIRMS area CSV endpoint.
type Client struct {
	key        string
	httpClient *http.Client
	baseURL    string
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a FIRMS client. baseURL is the FIRMS host without a
// trailing path, e.g. https://firms.modaps.eosdis.nasa.gov.
func NewClient(key, baseURL string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		key: key,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: baseURL,
		metrics: metrics,
		logger:  logger,
	}
}

// FetchHotspots returns the hotspots one satellite product detected inside
// bbox. Records carry the satellite's display name and keep the row order
// of the response.
func (c *Client) FetchHotspots(ctx context.Context, sat domain.Satellite, bbox orb.Bound) ([]domain.FireRecord, error) {
	u := fmt.Sprintf("%s/api/area/csv/%s/%s/%s/%d",
		c.baseURL, url.PathEscape(c.key), url.PathEscape(sat.ID), domain.FormatBBox(bbox), lookbackDays)

	start := time.Now()
	body, err := c.doRequest(ctx, u)
	c.metrics.HotspotAPIDuration.WithLabelValues(sat.ID).Observe(time.Since(start).Seconds())
	if err != nil {
		c.metrics.HotspotRequests.WithLabelValues(sat.ID, outcomeFor(err)).Inc()
		return nil, fmt.Errorf("fetch %s hotspots: %w", sat.ID, err)
	}

	if err := domain.ValidateHotspotBody(body); err != nil {
		c.metrics.HotspotRequests.WithLabelValues(sat.ID, outcomeInvalidBody).Inc()
		return nil, fmt.Errorf("fetch %s hotspots: %w", sat.ID, err)
	}

	records := domain.ParseHotspotCSV(body, sat.Name)
	c.metrics.HotspotRequests.WithLabelValues(sat.ID, outcomeSuccess).Inc()
	c.metrics.HotspotRecords.WithLabelValues(sat.ID).Add(float64(len(records)))
	c.logger.Debug("hotspots fetched", "source", sat.ID, "records", len(records), "bbox", domain.FormatBBox(bbox))
	return records, nil
}

// statusError is a non-200 response.
type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("firms API error: status %d: %s", e.code, e.body)
}

func outcomeFor(err error) string {
	var se *statusError
	if errors.As(err, &se) {
		return outcomeHTTPError
	}
	return outcomeTransportError
}

func (c *Client) doRequest(ctx context.Context, fullURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("area request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", &statusError{code: resp.StatusCode, body: string(body)}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", fmt.Errorf("read area response: %w", err)
	}
	return string(body), nil
}
