package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

const yamlFixture = `
engine:
  hour_threshold: 6
  long_fires_threshold_km: 1.2
  spatial_threshold_km: 0.8
  alarms_dir: /var/lib/firewatch/alarms
  alarm_file_prefix: sos
  id_cache_file: /var/lib/firewatch/next_id
  queue_size: 20

sources:
  - name: granule-spool
    type: watcher
    enabled: true
    directory: /var/spool/firewatch/granules
    poll_interval_seconds: 5
  - name: segmenter-feed
    type: tcplistener
    enabled: true
    address: 0.0.0.0:9200

publishers:
  - name: dashboard
    type: tcp
    enabled: true
    address: dashboard.internal:9300
  - name: outbox
    type: spool
    enabled: false
    directory: /var/spool/firewatch/alarms-out

poster:
  enabled: true
  restapi_url: https://alarms.example.com/api/v1/alarm
  xauth_token_env: FIREWATCH_XAUTH_TOKEN

rest:
  enabled: true
  port: 8090

logging:
  file: /var/log/firewatch/firewatch.log
  max_size_mb: 64
  max_backups: 5
  max_age_days: 30
`

func writeYAMLFixture(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "firewatch.yaml")
	if err := os.WriteFile(path, []byte(yamlFixture), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func fp(v float64) *float64 {
	return &v
}

func validConfig() *ConfigData {
	return &ConfigData{
		Engine: EngineData{
			HourThreshold:        fp(6),
			LongFiresThresholdKm: fp(1.2),
			SpatialThresholdKm:   fp(0.8),
			AlarmsDir:            "/var/lib/firewatch/alarms",
		},
		Sources: []SourceData{
			{Name: "granule-spool", Type: "watcher", Enabled: true, Directory: "/spool"},
			{Name: "segmenter-feed", Type: "tcplistener", Enabled: true, Address: ":9200"},
		},
		Publishers: []PublisherData{
			{Name: "dashboard", Type: "tcp", Enabled: true, Address: ":9300"},
			{Name: "outbox", Type: "spool", Enabled: true, Directory: "/outbox"},
		},
		Poster: &PosterData{Enabled: true, RESTAPIURL: "https://alarms.example.com"},
	}
}

func TestYAMLProviderLoadConfig(t *testing.T) {
	provider := NewYAMLProvider(writeYAMLFixture(t))
	cfg, err := provider.LoadConfig()
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Engine.HourThreshold == nil || *cfg.Engine.HourThreshold != 6 {
		t.Errorf("hour_threshold = %v, want 6", cfg.Engine.HourThreshold)
	}
	if cfg.Engine.LongFiresThresholdKm == nil || *cfg.Engine.LongFiresThresholdKm != 1.2 {
		t.Errorf("long_fires_threshold_km = %v, want 1.2", cfg.Engine.LongFiresThresholdKm)
	}
	if cfg.Engine.SpatialThresholdKm == nil || *cfg.Engine.SpatialThresholdKm != 0.8 {
		t.Errorf("spatial_threshold_km = %v, want 0.8", cfg.Engine.SpatialThresholdKm)
	}
	if cfg.Engine.AlarmsDir != "/var/lib/firewatch/alarms" {
		t.Errorf("alarms_dir = %q", cfg.Engine.AlarmsDir)
	}
	if cfg.Engine.IDCacheFile != "/var/lib/firewatch/next_id" {
		t.Errorf("id_cache_file = %q", cfg.Engine.IDCacheFile)
	}

	wantSources := []SourceData{
		{Name: "granule-spool", Type: "watcher", Enabled: true,
			Directory: "/var/spool/firewatch/granules", PollIntervalSeconds: 5},
		{Name: "segmenter-feed", Type: "tcplistener", Enabled: true, Address: "0.0.0.0:9200"},
	}
	if !reflect.DeepEqual(cfg.Sources, wantSources) {
		t.Errorf("sources = %+v, want %+v", cfg.Sources, wantSources)
	}

	wantPublishers := []PublisherData{
		{Name: "dashboard", Type: "tcp", Enabled: true, Address: "dashboard.internal:9300"},
		{Name: "outbox", Type: "spool", Enabled: false, Directory: "/var/spool/firewatch/alarms-out"},
	}
	if !reflect.DeepEqual(cfg.Publishers, wantPublishers) {
		t.Errorf("publishers = %+v, want %+v", cfg.Publishers, wantPublishers)
	}

	if cfg.Poster == nil || !cfg.Poster.Enabled ||
		cfg.Poster.RESTAPIURL != "https://alarms.example.com/api/v1/alarm" ||
		cfg.Poster.XAuthTokenEnv != "FIREWATCH_XAUTH_TOKEN" {
		t.Errorf("poster = %+v", cfg.Poster)
	}
	if cfg.RESTServer == nil || !cfg.RESTServer.Enabled || cfg.RESTServer.Port != 8090 {
		t.Errorf("rest = %+v", cfg.RESTServer)
	}
	if cfg.Logging == nil || cfg.Logging.File != "/var/log/firewatch/firewatch.log" ||
		cfg.Logging.MaxSizeMB != 64 || cfg.Logging.MaxBackups != 5 || cfg.Logging.MaxAgeDays != 30 {
		t.Errorf("logging = %+v", cfg.Logging)
	}
}

func TestYAMLProviderMissingFile(t *testing.T) {
	provider := NewYAMLProvider(filepath.Join(t.TempDir(), "nope.yaml"))
	if _, err := provider.LoadConfig(); err == nil {
		t.Fatal("expected an error for a missing file")
	}
}

func TestYAMLProviderMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.yaml")
	if err := os.WriteFile(path, []byte("engine: [not, a, mapping"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewYAMLProvider(path).LoadConfig(); err == nil {
		t.Fatal("expected an error for malformed YAML")
	}
}

func TestValidateRequiredKeys(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*ConfigData)
		wantErr string
	}{
		{
			name:    "missing hour_threshold",
			mutate:  func(c *ConfigData) { c.Engine.HourThreshold = nil },
			wantErr: "hour_threshold",
		},
		{
			name:    "negative hour_threshold",
			mutate:  func(c *ConfigData) { c.Engine.HourThreshold = fp(-1) },
			wantErr: "hour_threshold",
		},
		{
			name:    "missing long_fires_threshold_km",
			mutate:  func(c *ConfigData) { c.Engine.LongFiresThresholdKm = nil },
			wantErr: "long_fires_threshold_km",
		},
		{
			name:    "zero long_fires_threshold_km",
			mutate:  func(c *ConfigData) { c.Engine.LongFiresThresholdKm = fp(0) },
			wantErr: "long_fires_threshold_km",
		},
		{
			name:    "missing spatial_threshold_km",
			mutate:  func(c *ConfigData) { c.Engine.SpatialThresholdKm = nil },
			wantErr: "spatial_threshold_km",
		},
		{
			name:    "missing alarms_dir",
			mutate:  func(c *ConfigData) { c.Engine.AlarmsDir = "" },
			wantErr: "alarms_dir",
		},
		{
			name:    "watcher without directory",
			mutate:  func(c *ConfigData) { c.Sources[0].Directory = "" },
			wantErr: "granule-spool",
		},
		{
			name:    "tcplistener without address",
			mutate:  func(c *ConfigData) { c.Sources[1].Address = "" },
			wantErr: "segmenter-feed",
		},
		{
			name:    "unknown source type",
			mutate:  func(c *ConfigData) { c.Sources[0].Type = "carrier-pigeon" },
			wantErr: "unknown type",
		},
		{
			name:    "source without name",
			mutate:  func(c *ConfigData) { c.Sources[0].Name = "" },
			wantErr: "no name",
		},
		{
			name:    "tcp publisher without address",
			mutate:  func(c *ConfigData) { c.Publishers[0].Address = "" },
			wantErr: "dashboard",
		},
		{
			name:    "spool publisher without directory",
			mutate:  func(c *ConfigData) { c.Publishers[1].Directory = "" },
			wantErr: "outbox",
		},
		{
			name:    "unknown publisher type",
			mutate:  func(c *ConfigData) { c.Publishers[0].Type = "smtp" },
			wantErr: "unknown type",
		},
		{
			name:    "enabled poster without url",
			mutate:  func(c *ConfigData) { c.Poster.RESTAPIURL = "" },
			wantErr: "restapi_url",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("Validate() accepted an invalid config")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %q, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidateFillsDefaults(t *testing.T) {
	cfg := validConfig()
	cfg.Poster.XAuthTokenEnv = ""
	cfg.RESTServer = &RESTServerData{Enabled: true}

	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
	if cfg.Engine.AlarmFilePrefix != DefaultAlarmFilePrefix {
		t.Errorf("alarm_file_prefix = %q, want %q", cfg.Engine.AlarmFilePrefix, DefaultAlarmFilePrefix)
	}
	if cfg.Engine.QueueSize != DefaultQueueSize {
		t.Errorf("queue_size = %d, want %d", cfg.Engine.QueueSize, DefaultQueueSize)
	}
	if cfg.Sources[0].PollIntervalSeconds != DefaultPollIntervalSeconds {
		t.Errorf("poll_interval_seconds = %d, want %d",
			cfg.Sources[0].PollIntervalSeconds, DefaultPollIntervalSeconds)
	}
	if cfg.Poster.XAuthTokenEnv != DefaultXAuthTokenEnv {
		t.Errorf("xauth_token_env = %q, want %q", cfg.Poster.XAuthTokenEnv, DefaultXAuthTokenEnv)
	}
	if cfg.RESTServer.Port != DefaultRESTPort {
		t.Errorf("rest port = %d, want %d", cfg.RESTServer.Port, DefaultRESTPort)
	}
}

// An explicit zero disables history checks; only a missing key is an error.
func TestValidateZeroHourThresholdAllowed(t *testing.T) {
	cfg := validConfig()
	cfg.Engine.HourThreshold = fp(0)
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() rejected hour_threshold 0: %v", err)
	}
}

func newSQLiteFixture(t *testing.T) *SQLiteProvider {
	t.Helper()
	provider, err := NewSQLiteProvider(filepath.Join(t.TempDir(), "config.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { provider.Close() })
	if err := provider.CreateTables(); err != nil {
		t.Fatal(err)
	}
	return provider
}

func TestSQLiteRoundTrip(t *testing.T) {
	yamlCfg, err := NewYAMLProvider(writeYAMLFixture(t)).LoadConfig()
	if err != nil {
		t.Fatal(err)
	}

	provider := newSQLiteFixture(t)
	if err := provider.SaveConfig(yamlCfg); err != nil {
		t.Fatal(err)
	}

	got, err := provider.LoadConfig()
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, yamlCfg) {
		t.Errorf("SQLite round trip altered the config:\n got %+v\nwant %+v", got, yamlCfg)
	}
	if provider.IsReadOnly() {
		t.Error("SQLite provider reports read-only")
	}
}

func TestSQLiteSaveReplacesExisting(t *testing.T) {
	provider := newSQLiteFixture(t)

	cfg := validConfig()
	if err := provider.SaveConfig(cfg); err != nil {
		t.Fatal(err)
	}

	cfg.Sources = cfg.Sources[:1]
	cfg.Engine.AlarmsDir = "/srv/alarms"
	if err := provider.SaveConfig(cfg); err != nil {
		t.Fatal(err)
	}

	got, err := provider.LoadConfig()
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Sources) != 1 {
		t.Errorf("sources = %+v, want the single replacement source", got.Sources)
	}
	if got.Engine.AlarmsDir != "/srv/alarms" {
		t.Errorf("alarms_dir = %q, want /srv/alarms", got.Engine.AlarmsDir)
	}
}

func TestSQLiteMissingEngineConfig(t *testing.T) {
	provider := newSQLiteFixture(t)
	if _, err := provider.LoadConfig(); err == nil {
		t.Fatal("expected an error when no engine configuration is stored")
	}
}
