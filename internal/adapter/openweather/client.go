package openweather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/couchcryptid/wildfire-globe-service/internal/domain"
	"github.com/couchcryptid/wildfire-globe-service/internal/observability"
)

// ErrNoAirData is returned when the air pollution response has an empty list.
var ErrNoAirData = errors.New("air pollution response has no data")

// Client implements domain.WeatherSource using the OpenWeatherMap 2.5 API.
type Client struct {
	key        string
	httpClient *http.Client
	baseURL    string
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates an OpenWeatherMap client.
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

// CurrentWeather returns conditions at a point in metric units. A status
// code other than 200 inside the payload is an error.
func (c *Client) CurrentWeather(ctx context.Context, lat, lon float64) (domain.Weather, error) {
	params := c.pointParams(lat, lon)
	params.Set("units", "metric")

	var resp weatherResponse
	if err := c.doRequest(ctx, "/data/2.5/weather", params, "weather", &resp); err != nil {
		return domain.Weather{}, err
	}
	if resp.Cod != http.StatusOK {
		return domain.Weather{}, fmt.Errorf("weather API error: cod %d: %s", resp.Cod, resp.Message)
	}

	w := domain.Weather{
		Name:      resp.Name,
		TempC:     resp.Main.Temp,
		WindSpeed: resp.Wind.Speed,
		WindDeg:   resp.Wind.Deg,
	}
	if len(resp.Weather) > 0 {
		w.Description = resp.Weather[0].Description
	}
	return w, nil
}

// AirPollution returns the current AQI and pollutant components at a point.
func (c *Client) AirPollution(ctx context.Context, lat, lon float64) (domain.AirQuality, error) {
	var resp airResponse
	if err := c.doRequest(ctx, "/data/2.5/air_pollution", c.pointParams(lat, lon), "air", &resp); err != nil {
		return domain.AirQuality{}, err
	}
	if len(resp.List) == 0 {
		return domain.AirQuality{}, ErrNoAirData
	}
	item := resp.List[0]
	return domain.AirQuality{AQI: item.Main.AQI, Components: item.Components}, nil
}

func (c *Client) pointParams(lat, lon float64) url.Values {
	return url.Values{
		"lat":   {strconv.FormatFloat(lat, 'f', -1, 64)},
		"lon":   {strconv.FormatFloat(lon, 'f', -1, 64)},
		"appid": {c.key},
	}
}

func (c *Client) doRequest(ctx context.Context, path string, params url.Values, kind string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), http.NoBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.WeatherAPIDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	if err != nil {
		return fmt.Errorf("%s request: %w", kind, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.logger.Warn("openweather request failed", "kind", kind, "status", resp.StatusCode)
		return fmt.Errorf("openweather API error: %s: status %d: %s", kind, resp.StatusCode, body)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", kind, err)
	}
	return nil
}

// OpenWeatherMap API response types.

type weatherResponse struct {
	Cod     statusCode `json:"cod"`
	Message string     `json:"message"`
	Name    string     `json:"name"`
	Main    struct {
		Temp float64 `json:"temp"`
	} `json:"main"`
	Wind struct {
		Speed float64 `json:"speed"`
		Deg   float64 `json:"deg"`
	} `json:"wind"`
	Weather []struct {
		Description string `json:"description"`
	} `json:"weather"`
}

type airResponse struct {
	List []struct {
		Main struct {
			AQI int `json:"aqi"`
		} `json:"main"`
		Components domain.AirComponents `json:"components"`
	} `json:"list"`
}

// statusCode decodes "cod", which the API sends as a number on success and
// as a string on some errors.
type statusCode int

func (s *statusCode) UnmarshalJSON(b []byte) error {
	// json.Number accepts both 200 and "200".
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("decode cod: %w", err)
	}
	v, err := strconv.Atoi(n.String())
	if err != nil {
		return fmt.Errorf("decode cod %q: %w", n, err)
	}
	*s = statusCode(v)
	return nil
}
