package config

import "fmt"

// ConfigProvider defines the interface for configuration data sources
type ConfigProvider interface {
	// Load complete configuration
	LoadConfig() (*ConfigData, error)

	// Get specific configuration sections
	GetEngineConfig() (*EngineData, error)
	GetSources() ([]SourceData, error)
	GetPublishers() ([]PublisherData, error)

	IsReadOnly() bool
	Close() error
}

// Defaults for the optional configuration fields.
const (
	DefaultAlarmFilePrefix     = "sos"
	DefaultQueueSize           = 20
	DefaultPollIntervalSeconds = 10
	DefaultXAuthTokenEnv       = "FIREWATCH_XAUTH_TOKEN"
	DefaultRESTPort            = 8090
)

// ConfigData represents the complete configuration structure
type ConfigData struct {
	Engine     EngineData      `json:"engine"`
	Sources    []SourceData    `json:"sources,omitempty"`
	Publishers []PublisherData `json:"publishers,omitempty"`
	Poster     *PosterData     `json:"poster,omitempty"`
	RESTServer *RESTServerData `json:"rest,omitempty"`
	Logging    *LoggingData    `json:"logging,omitempty"`
}

// EngineData holds the alarm pipeline tuning. The three thresholds have no
// sensible defaults and are deliberately pointers: a missing key is a
// configuration error, while hour_threshold may be explicitly zero to turn
// off the archive history checks.
type EngineData struct {
	HourThreshold        *float64 `json:"hour_threshold"`
	LongFiresThresholdKm *float64 `json:"long_fires_threshold_km"`
	SpatialThresholdKm   *float64 `json:"spatial_threshold_km"`
	AlarmsDir            string   `json:"alarms_dir"`
	AlarmFilePrefix      string   `json:"alarm_file_prefix,omitempty"`
	IDCacheFile          string   `json:"id_cache_file,omitempty"`
	QueueSize            int      `json:"queue_size,omitempty"`
}

// SourceData holds configuration for one granule notification source
type SourceData struct {
	Name                string `json:"name"`
	Type                string `json:"type,omitempty"`
	Enabled             bool   `json:"enabled"`
	Directory           string `json:"directory,omitempty"`
	PollIntervalSeconds int    `json:"poll_interval_seconds,omitempty"`
	Address             string `json:"address,omitempty"`
}

// PublisherData holds configuration for one alarm notice publisher
type PublisherData struct {
	Name      string `json:"name"`
	Type      string `json:"type,omitempty"`
	Enabled   bool   `json:"enabled"`
	Address   string `json:"address,omitempty"`
	Directory string `json:"directory,omitempty"`
}

// PosterData holds configuration for the outbound alarm REST endpoint. The
// auth token itself never lives in the configuration; XAuthTokenEnv names
// the environment variable that carries it.
type PosterData struct {
	Enabled       bool   `json:"enabled"`
	RESTAPIURL    string `json:"restapi_url,omitempty"`
	XAuthTokenEnv string `json:"xauth_token_env,omitempty"`
}

// RESTServerData holds configuration for the management REST endpoint
type RESTServerData struct {
	Enabled    bool   `json:"enabled"`
	Port       int    `json:"port,omitempty"`
	ListenAddr string `json:"listen_addr,omitempty"`
}

// LoggingData holds configuration for the optional rotating log file
type LoggingData struct {
	File       string `json:"file,omitempty"`
	MaxSizeMB  int    `json:"max_size_mb,omitempty"`
	MaxBackups int    `json:"max_backups,omitempty"`
	MaxAgeDays int    `json:"max_age_days,omitempty"`
}

// Validate checks the loaded configuration and fills in defaults for the
// optional fields. It must be called once after LoadConfig, before any
// component is built from the data.
func (c *ConfigData) Validate() error {
	if c.Engine.HourThreshold == nil {
		return fmt.Errorf("engine config is missing hour_threshold")
	}
	if *c.Engine.HourThreshold < 0 {
		return fmt.Errorf("hour_threshold must not be negative, got %v", *c.Engine.HourThreshold)
	}
	if c.Engine.LongFiresThresholdKm == nil {
		return fmt.Errorf("engine config is missing long_fires_threshold_km")
	}
	if *c.Engine.LongFiresThresholdKm <= 0 {
		return fmt.Errorf("long_fires_threshold_km must be positive, got %v", *c.Engine.LongFiresThresholdKm)
	}
	if c.Engine.SpatialThresholdKm == nil {
		return fmt.Errorf("engine config is missing spatial_threshold_km")
	}
	if *c.Engine.SpatialThresholdKm <= 0 {
		return fmt.Errorf("spatial_threshold_km must be positive, got %v", *c.Engine.SpatialThresholdKm)
	}
	if c.Engine.AlarmsDir == "" {
		return fmt.Errorf("engine config is missing alarms_dir")
	}
	if c.Engine.AlarmFilePrefix == "" {
		c.Engine.AlarmFilePrefix = DefaultAlarmFilePrefix
	}
	if c.Engine.QueueSize <= 0 {
		c.Engine.QueueSize = DefaultQueueSize
	}

	for i := range c.Sources {
		src := &c.Sources[i]
		if src.Name == "" {
			return fmt.Errorf("source %d has no name", i)
		}
		switch src.Type {
		case "watcher":
			if src.Directory == "" {
				return fmt.Errorf("watcher source [%s] has no directory", src.Name)
			}
			if src.PollIntervalSeconds <= 0 {
				src.PollIntervalSeconds = DefaultPollIntervalSeconds
			}
		case "tcplistener":
			if src.Address == "" {
				return fmt.Errorf("tcplistener source [%s] has no address", src.Name)
			}
		default:
			return fmt.Errorf("source [%s] has unknown type %q", src.Name, src.Type)
		}
	}

	for i := range c.Publishers {
		pub := &c.Publishers[i]
		if pub.Name == "" {
			return fmt.Errorf("publisher %d has no name", i)
		}
		switch pub.Type {
		case "tcp":
			if pub.Address == "" {
				return fmt.Errorf("tcp publisher [%s] has no address", pub.Name)
			}
		case "spool":
			if pub.Directory == "" {
				return fmt.Errorf("spool publisher [%s] has no directory", pub.Name)
			}
		default:
			return fmt.Errorf("publisher [%s] has unknown type %q", pub.Name, pub.Type)
		}
	}

	if c.Poster != nil && c.Poster.Enabled {
		if c.Poster.RESTAPIURL == "" {
			return fmt.Errorf("poster config is missing restapi_url")
		}
		if c.Poster.XAuthTokenEnv == "" {
			c.Poster.XAuthTokenEnv = DefaultXAuthTokenEnv
		}
	}

	if c.RESTServer != nil && c.RESTServer.Enabled && c.RESTServer.Port == 0 {
		c.RESTServer.Port = DefaultRESTPort
	}

	return nil
}
