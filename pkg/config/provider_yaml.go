package config

import (
	"os"

	"gopkg.in/yaml.v2"
)

// YAMLProvider implements ConfigProvider for YAML configuration files
type YAMLProvider struct {
	filename string
	config   *ConfigData
}

// NewYAMLProvider creates a new YAML configuration provider
func NewYAMLProvider(filename string) *YAMLProvider {
	return &YAMLProvider{
		filename: filename,
	}
}

// LoadConfig loads the complete configuration from YAML file
func (y *YAMLProvider) LoadConfig() (*ConfigData, error) {
	cfgFile, err := os.ReadFile(y.filename)
	if err != nil {
		return nil, err
	}

	// Load into temporary struct with YAML tags
	var yamlConfig struct {
		Engine     EngineYAML      `yaml:"engine"`
		Sources    []SourceYAML    `yaml:"sources,omitempty"`
		Publishers []PublisherYAML `yaml:"publishers,omitempty"`
		Poster     *PosterYAML     `yaml:"poster,omitempty"`
		RESTServer *RESTServerYAML `yaml:"rest,omitempty"`
		Logging    *LoggingYAML    `yaml:"logging,omitempty"`
	}

	err = yaml.Unmarshal(cfgFile, &yamlConfig)
	if err != nil {
		return nil, err
	}

	// Convert to our internal format
	config := &ConfigData{
		Engine: EngineData{
			HourThreshold:        yamlConfig.Engine.HourThreshold,
			LongFiresThresholdKm: yamlConfig.Engine.LongFiresThresholdKm,
			SpatialThresholdKm:   yamlConfig.Engine.SpatialThresholdKm,
			AlarmsDir:            yamlConfig.Engine.AlarmsDir,
			AlarmFilePrefix:      yamlConfig.Engine.AlarmFilePrefix,
			IDCacheFile:          yamlConfig.Engine.IDCacheFile,
			QueueSize:            yamlConfig.Engine.QueueSize,
		},
		Sources:    make([]SourceData, len(yamlConfig.Sources)),
		Publishers: make([]PublisherData, len(yamlConfig.Publishers)),
	}

	for i, source := range yamlConfig.Sources {
		config.Sources[i] = SourceData{
			Name:                source.Name,
			Type:                source.Type,
			Enabled:             source.Enabled,
			Directory:           source.Directory,
			PollIntervalSeconds: source.PollIntervalSeconds,
			Address:             source.Address,
		}
	}

	for i, pub := range yamlConfig.Publishers {
		config.Publishers[i] = PublisherData{
			Name:      pub.Name,
			Type:      pub.Type,
			Enabled:   pub.Enabled,
			Address:   pub.Address,
			Directory: pub.Directory,
		}
	}

	if yamlConfig.Poster != nil {
		config.Poster = &PosterData{
			Enabled:       yamlConfig.Poster.Enabled,
			RESTAPIURL:    yamlConfig.Poster.RESTAPIURL,
			XAuthTokenEnv: yamlConfig.Poster.XAuthTokenEnv,
		}
	}

	if yamlConfig.RESTServer != nil {
		config.RESTServer = &RESTServerData{
			Enabled:    yamlConfig.RESTServer.Enabled,
			Port:       yamlConfig.RESTServer.Port,
			ListenAddr: yamlConfig.RESTServer.ListenAddr,
		}
	}

	if yamlConfig.Logging != nil {
		config.Logging = &LoggingData{
			File:       yamlConfig.Logging.File,
			MaxSizeMB:  yamlConfig.Logging.MaxSizeMB,
			MaxBackups: yamlConfig.Logging.MaxBackups,
			MaxAgeDays: yamlConfig.Logging.MaxAgeDays,
		}
	}

	y.config = config
	return config, nil
}

// GetEngineConfig returns the engine configuration
func (y *YAMLProvider) GetEngineConfig() (*EngineData, error) {
	if y.config == nil {
		_, err := y.LoadConfig()
		if err != nil {
			return nil, err
		}
	}
	return &y.config.Engine, nil
}

// GetSources returns source configurations
func (y *YAMLProvider) GetSources() ([]SourceData, error) {
	if y.config == nil {
		_, err := y.LoadConfig()
		if err != nil {
			return nil, err
		}
	}
	return y.config.Sources, nil
}

// GetPublishers returns publisher configurations
func (y *YAMLProvider) GetPublishers() ([]PublisherData, error) {
	if y.config == nil {
		_, err := y.LoadConfig()
		if err != nil {
			return nil, err
		}
	}
	return y.config.Publishers, nil
}

// IsReadOnly returns true since YAML files are read-only through this interface
func (y *YAMLProvider) IsReadOnly() bool {
	return true
}

// Close is a no-op for YAML provider
func (y *YAMLProvider) Close() error {
	return nil
}

// YAML-specific structs with proper YAML tags for parsing the config file.
// The key names match the upstream processing chain's configuration, which
// uses snake_case throughout.
type EngineYAML struct {
	HourThreshold        *float64 `yaml:"hour_threshold"`
	LongFiresThresholdKm *float64 `yaml:"long_fires_threshold_km"`
	SpatialThresholdKm   *float64 `yaml:"spatial_threshold_km"`
	AlarmsDir            string   `yaml:"alarms_dir,omitempty"`
	AlarmFilePrefix      string   `yaml:"alarm_file_prefix,omitempty"`
	IDCacheFile          string   `yaml:"id_cache_file,omitempty"`
	QueueSize            int      `yaml:"queue_size,omitempty"`
}

type SourceYAML struct {
	Name                string `yaml:"name"`
	Type                string `yaml:"type,omitempty"`
	Enabled             bool   `yaml:"enabled"`
	Directory           string `yaml:"directory,omitempty"`
	PollIntervalSeconds int    `yaml:"poll_interval_seconds,omitempty"`
	Address             string `yaml:"address,omitempty"`
}

type PublisherYAML struct {
	Name      string `yaml:"name"`
	Type      string `yaml:"type,omitempty"`
	Enabled   bool   `yaml:"enabled"`
	Address   string `yaml:"address,omitempty"`
	Directory string `yaml:"directory,omitempty"`
}

type PosterYAML struct {
	Enabled       bool   `yaml:"enabled"`
	RESTAPIURL    string `yaml:"restapi_url,omitempty"`
	XAuthTokenEnv string `yaml:"xauth_token_env,omitempty"`
}

type RESTServerYAML struct {
	Enabled    bool   `yaml:"enabled"`
	Port       int    `yaml:"port,omitempty"`
	ListenAddr string `yaml:"listen_addr,omitempty"`
}

type LoggingYAML struct {
	File       string `yaml:"file,omitempty"`
	MaxSizeMB  int    `yaml:"max_size_mb,omitempty"`
	MaxBackups int    `yaml:"max_backups,omitempty"`
	MaxAgeDays int    `yaml:"max_age_days,omitempty"`
}
