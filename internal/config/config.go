package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Default view and style parameters.
	DefaultCenter       [2]float64 // lng, lat
	DefaultZoom         float64
	TerrainExaggeration float64
	GlobePitch          float64

	// FIRMS fire overlay configuration.
	FirmsMapKey         string
	FirmsEnabled        bool
	FirmsBaseURL        string
	FirmsTimeout        time.Duration
	FirmsSources        []string
	FireRefreshDebounce time.Duration
	FireInitialDelay    time.Duration
	FireHitRadiusKm     float64

	// OpenWeatherMap inspector configuration.
	OpenWeatherKey       string
	OpenWeatherEnabled   bool
	OpenWeatherBaseURL   string
	OpenWeatherTimeout   time.Duration
	OpenWeatherCacheSize int
	OpenWeatherCacheTTL  time.Duration

	// Optional hotspot sinks. Empty values disable the sink.
	KafkaBrokers   []string
	KafkaFireTopic string
	ArchiveDBPath  string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	center, err := parseCenter(sharedcfg.EnvOrDefault("DEFAULT_CENTER", "75,20"))
	if err != nil {
		return nil, err
	}

	zoom, err := parseFloat("DEFAULT_ZOOM", "2")
	if err != nil {
		return nil, err
	}
	exaggeration, err := parseFloat("TERRAIN_EXAGGERATION", "1.2")
	if err != nil {
		return nil, err
	}
	pitch, err := parseFloat("GLOBE_PITCH", "5")
	if err != nil {
		return nil, err
	}
	hitRadius, err := parseFloat("FIRE_HIT_RADIUS_KM", "5")
	if err != nil {
		return nil, err
	}

	firmsTimeout, err := parseDuration("FIRMS_TIMEOUT", "15s")
	if err != nil {
		return nil, err
	}
	debounce, err := parseDuration("FIRE_REFRESH_DEBOUNCE", "1s")
	if err != nil {
		return nil, err
	}
	initialDelay, err := parseDuration("FIRE_INITIAL_DELAY", "1s")
	if err != nil {
		return nil, err
	}
	weatherTimeout, err := parseDuration("OPENWEATHER_TIMEOUT", "5s")
	if err != nil {
		return nil, err
	}
	cacheTTL, err := parseDuration("OPENWEATHER_CACHE_TTL", "10m")
	if err != nil {
		return nil, err
	}

	cacheSize := parseCacheSize()

	firmsKey := os.Getenv("FIRMS_MAP_KEY")
	firmsEnabled := firmsKey != ""
	if v := os.Getenv("FIRMS_ENABLED"); v != "" {
		firmsEnabled = v == "true"
	}

	weatherKey := os.Getenv("OPENWEATHER_KEY")
	weatherEnabled := weatherKey != ""
	if v := os.Getenv("OPENWEATHER_ENABLED"); v != "" {
		weatherEnabled = v == "true"
	}

	var brokers []string
	if raw := os.Getenv("KAFKA_BROKERS"); raw != "" {
		brokers = sharedcfg.ParseBrokers(raw)
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		DefaultCenter:       center,
		DefaultZoom:         zoom,
		TerrainExaggeration: exaggeration,
		GlobePitch:          pitch,

		FirmsMapKey:         firmsKey,
		FirmsEnabled:        firmsEnabled,
		FirmsBaseURL:        sharedcfg.EnvOrDefault("FIRMS_BASE_URL", "https://firms.modaps.eosdis.nasa.gov"),
		FirmsTimeout:        firmsTimeout,
		FirmsSources:        sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("FIRMS_SOURCES", "VIIRS_SNPP_NRT,VIIRS_NOAA20_NRT")),
		FireRefreshDebounce: debounce,
		FireInitialDelay:    initialDelay,
		FireHitRadiusKm:     hitRadius,

		OpenWeatherKey:       weatherKey,
		OpenWeatherEnabled:   weatherEnabled,
		OpenWeatherBaseURL:   sharedcfg.EnvOrDefault("OPENWEATHER_BASE_URL", "https://api.openweathermap.org"),
		OpenWeatherTimeout:   weatherTimeout,
		OpenWeatherCacheSize: cacheSize,
		OpenWeatherCacheTTL:  cacheTTL,

		KafkaBrokers:   brokers,
		KafkaFireTopic: sharedcfg.EnvOrDefault("KAFKA_FIRE_TOPIC", "fire-hotspots"),
		ArchiveDBPath:  os.Getenv("ARCHIVE_DB_PATH"),
	}

	if cfg.DefaultZoom < 0 || cfg.DefaultZoom > MaxZoom {
		return nil, errors.New("DEFAULT_ZOOM must be between 0 and 22")
	}
	if cfg.TerrainExaggeration <= 0 {
		return nil, errors.New("TERRAIN_EXAGGERATION must be positive")
	}
	if cfg.GlobePitch < 0 || cfg.GlobePitch > 85 {
		return nil, errors.New("GLOBE_PITCH must be between 0 and 85")
	}
	if cfg.FireHitRadiusKm <= 0 {
		return nil, errors.New("FIRE_HIT_RADIUS_KM must be positive")
	}
	if len(cfg.FirmsSources) == 0 {
		return nil, errors.New("FIRMS_SOURCES is required")
	}
	if cfg.FirmsEnabled && cfg.FirmsMapKey == "" {
		return nil, errors.New("FIRMS_ENABLED is true but FIRMS_MAP_KEY is not set")
	}
	if cfg.OpenWeatherEnabled && cfg.OpenWeatherKey == "" {
		return nil, errors.New("OPENWEATHER_ENABLED is true but OPENWEATHER_KEY is not set")
	}
	if len(cfg.KafkaBrokers) > 0 && cfg.KafkaFireTopic == "" {
		return nil, errors.New("KAFKA_FIRE_TOPIC is required when KAFKA_BROKERS is set")
	}

	return cfg, nil
}

// Client returns the payload served to map clients. Disabled integrations
// are sent with an empty key so clients skip them.
func (c *Config) Client() ClientConfig {
	cc := ClientConfig{
		DefaultCenter: []float64{c.DefaultCenter[0], c.DefaultCenter[1]},
		DefaultZoom:   &c.DefaultZoom,
	}
	if c.FirmsEnabled {
		cc.FirmsMapKey = c.FirmsMapKey
	}
	if c.OpenWeatherEnabled {
		cc.OpenWeatherKey = c.OpenWeatherKey
	}
	return cc
}

func parseCenter(s string) ([2]float64, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return [2]float64{}, errors.New("invalid DEFAULT_CENTER: want lng,lat")
	}
	lng, err1 := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	lat, err2 := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err1 != nil || err2 != nil || lng < -180 || lng > 180 || lat < -90 || lat > 90 {
		return [2]float64{}, errors.New("invalid DEFAULT_CENTER: want lng,lat")
	}
	return [2]float64{lng, lat}, nil
}

func parseFloat(key, def string) (float64, error) {
	v, err := strconv.ParseFloat(sharedcfg.EnvOrDefault(key, def), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return v, nil
}

func parseDuration(key, def string) (time.Duration, error) {
	v, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return v, nil
}

func parseCacheSize() int {
	if s := os.Getenv("OPENWEATHER_CACHE_SIZE"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return 1000
}
