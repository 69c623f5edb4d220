package util

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	LogLevel string
	LogFile  string

	APIPort       int
	WebsocketPort int
	ProxyPort     int
	APITimeout    time.Duration
	UseRateLimit  bool
	RateLimit     float64
	RateBurst     int

	Seed int64

	TickInterval      time.Duration
	StreamInterval    time.Duration
	BearingDriftRatio float64
	SpeedDriftRatio   float64
	SpeedScaleFactor  float64
	TicksPerHour      float64

	NavigationStrategy string
	NavigationOutage   bool
	OutageChance       int

	MinSegments         int
	MaxSegments         int
	MaxBearingDeviation float64
	MinStep             float64
	ProviderUnit        string

	JourneyMinLat float64
	JourneyMaxLat float64
	JourneyMinLon float64
	JourneyMaxLon float64
	HistorySize   int

	OffRouteRadius float64
}

func setDefaults() {
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("LOG_FILE", "")

	viper.SetDefault("API_PORT", 6060)
	viper.SetDefault("WEBSOCKET_PORT", 6666)
	viper.SetDefault("PROXY_PORT", 6767)
	viper.SetDefault("API_TIMEOUT", "30s")
	viper.SetDefault("HTTP_SERVER_READ_TIMEOUT", "15s")
	viper.SetDefault("HTTP_SERVER_WRITE_TIMEOUT", "15s")
	viper.SetDefault("HTTP_SERVER_IDLE_TIMEOUT", "60s")
	viper.SetDefault("HTTP_SERVER_READ_HEADER_TIMEOUT", "5s")
	viper.SetDefault("USE_RATE_LIMIT", false)
	viper.SetDefault("RATE_LIMIT", 20.0)
	viper.SetDefault("RATE_BURST", 40)

	viper.SetDefault("SEED", 0)

	viper.SetDefault("TICK_INTERVAL", "50ms")
	viper.SetDefault("STREAM_INTERVAL", "16ms")
	viper.SetDefault("BEARING_DRIFT_RATIO", 0.05)
	viper.SetDefault("SPEED_DRIFT_RATIO", 0.075)
	viper.SetDefault("SPEED_SCALE_FACTOR", 2400.0)
	viper.SetDefault("TICKS_PER_HOUR", 72000.0)

	viper.SetDefault("NAVIGATION_STRATEGY", "index")
	viper.SetDefault("NAVIGATION_OUTAGE", true)
	viper.SetDefault("OUTAGE_CHANCE", 5)

	viper.SetDefault("MIN_SEGMENTS", 5)
	viper.SetDefault("MAX_SEGMENTS", 9)
	viper.SetDefault("MAX_BEARING_DEVIATION", 45.0)
	viper.SetDefault("MIN_STEP", 1.0)
	viper.SetDefault("PROVIDER_UNIT", "miles")

	viper.SetDefault("JOURNEY_MIN_LAT", 30.0)
	viper.SetDefault("JOURNEY_MAX_LAT", 60.0)
	viper.SetDefault("JOURNEY_MIN_LON", 30.0)
	viper.SetDefault("JOURNEY_MAX_LON", 90.0)
	viper.SetDefault("HISTORY_SIZE", 64)

	viper.SetDefault("OFF_ROUTE_RADIUS", 5.0)
}

// ReadConfig loads ./data/config.yaml (or ./config.yaml) when present. A missing file is
// not an error, every key has a default and can be overridden from the environment.
func ReadConfig() error {
	setDefaults()
	viper.SetConfigName("config")
	viper.AddConfigPath("./data/")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	err := viper.ReadInConfig()
	if err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("fatal error config file: %w", err)
		}
	}
	return nil
}

func LoadConfig() (Config, error) {
	if err := ReadConfig(); err != nil {
		return Config{}, err
	}

	cfg := Config{
		LogLevel: viper.GetString("LOG_LEVEL"),
		LogFile:  viper.GetString("LOG_FILE"),

		APIPort:       viper.GetInt("API_PORT"),
		WebsocketPort: viper.GetInt("WEBSOCKET_PORT"),
		ProxyPort:     viper.GetInt("PROXY_PORT"),
		APITimeout:    viper.GetDuration("API_TIMEOUT"),
		UseRateLimit:  viper.GetBool("USE_RATE_LIMIT"),
		RateLimit:     viper.GetFloat64("RATE_LIMIT"),
		RateBurst:     viper.GetInt("RATE_BURST"),

		Seed: viper.GetInt64("SEED"),

		TickInterval:      viper.GetDuration("TICK_INTERVAL"),
		StreamInterval:    viper.GetDuration("STREAM_INTERVAL"),
		BearingDriftRatio: viper.GetFloat64("BEARING_DRIFT_RATIO"),
		SpeedDriftRatio:   viper.GetFloat64("SPEED_DRIFT_RATIO"),
		SpeedScaleFactor:  viper.GetFloat64("SPEED_SCALE_FACTOR"),
		TicksPerHour:      viper.GetFloat64("TICKS_PER_HOUR"),

		NavigationStrategy: viper.GetString("NAVIGATION_STRATEGY"),
		NavigationOutage:   viper.GetBool("NAVIGATION_OUTAGE"),
		OutageChance:       viper.GetInt("OUTAGE_CHANCE"),

		MinSegments:         viper.GetInt("MIN_SEGMENTS"),
		MaxSegments:         viper.GetInt("MAX_SEGMENTS"),
		MaxBearingDeviation: viper.GetFloat64("MAX_BEARING_DEVIATION"),
		MinStep:             viper.GetFloat64("MIN_STEP"),
		ProviderUnit:        viper.GetString("PROVIDER_UNIT"),

		JourneyMinLat: viper.GetFloat64("JOURNEY_MIN_LAT"),
		JourneyMaxLat: viper.GetFloat64("JOURNEY_MAX_LAT"),
		JourneyMinLon: viper.GetFloat64("JOURNEY_MIN_LON"),
		JourneyMaxLon: viper.GetFloat64("JOURNEY_MAX_LON"),
		HistorySize:   viper.GetInt("HISTORY_SIZE"),

		OffRouteRadius: viper.GetFloat64("OFF_ROUTE_RADIUS"),
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.MinSegments < 1 || c.MaxSegments < c.MinSegments {
		return WrapErrorf(nil, ErrBadParamInput, "invalid segment range [%d, %d]", c.MinSegments, c.MaxSegments)
	}
	if c.OutageChance < 1 {
		return WrapErrorf(nil, ErrBadParamInput, "outage chance must be >= 1, got %d", c.OutageChance)
	}
	if c.TicksPerHour <= 0 {
		return WrapErrorf(nil, ErrBadParamInput, "ticks per hour must be positive")
	}
	if c.TickInterval < 0 {
		return WrapErrorf(nil, ErrBadParamInput, "tick interval must not be negative, got %s", c.TickInterval)
	}
	if c.StreamInterval <= 0 {
		return WrapErrorf(nil, ErrBadParamInput, "stream interval must be positive, got %s", c.StreamInterval)
	}
	if c.HistorySize < 1 {
		return WrapErrorf(nil, ErrBadParamInput, "history size must be positive")
	}
	return nil
}
