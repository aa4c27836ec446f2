package config

import (
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"
)

// SQLiteProvider implements ConfigProvider for SQLite database configuration
type SQLiteProvider struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteProvider creates a new SQLite configuration provider
func NewSQLiteProvider(dbPath string) (*SQLiteProvider, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping SQLite database: %w", err)
	}

	return &SQLiteProvider{
		db:     db,
		dbPath: dbPath,
	}, nil
}

// The configuration schema. Every section table hangs off the configs row
// named 'default'.
var createTableStatements = []string{
	`CREATE TABLE IF NOT EXISTS configs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS engine_config (
		config_id INTEGER NOT NULL REFERENCES configs(id),
		hour_threshold REAL,
		long_fires_threshold_km REAL,
		spatial_threshold_km REAL,
		alarms_dir TEXT,
		alarm_file_prefix TEXT,
		id_cache_file TEXT,
		queue_size INTEGER
	)`,
	`CREATE TABLE IF NOT EXISTS sources (
		config_id INTEGER NOT NULL REFERENCES configs(id),
		name TEXT NOT NULL,
		type TEXT NOT NULL,
		enabled INTEGER NOT NULL DEFAULT 1,
		directory TEXT,
		poll_interval_seconds INTEGER,
		address TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS publishers (
		config_id INTEGER NOT NULL REFERENCES configs(id),
		name TEXT NOT NULL,
		type TEXT NOT NULL,
		enabled INTEGER NOT NULL DEFAULT 1,
		address TEXT,
		directory TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS poster_config (
		config_id INTEGER NOT NULL REFERENCES configs(id),
		enabled INTEGER NOT NULL DEFAULT 0,
		restapi_url TEXT,
		xauth_token_env TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS rest_config (
		config_id INTEGER NOT NULL REFERENCES configs(id),
		enabled INTEGER NOT NULL DEFAULT 0,
		port INTEGER,
		listen_addr TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS logging_config (
		config_id INTEGER NOT NULL REFERENCES configs(id),
		file TEXT,
		max_size_mb INTEGER,
		max_backups INTEGER,
		max_age_days INTEGER
	)`,
}

// CreateTables initializes the configuration schema
func (s *SQLiteProvider) CreateTables() error {
	for _, stmt := range createTableStatements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to create configuration schema: %w", err)
		}
	}
	return nil
}

// LoadConfig loads the complete configuration from SQLite database
func (s *SQLiteProvider) LoadConfig() (*ConfigData, error) {
	config := &ConfigData{}

	engine, err := s.GetEngineConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load engine config: %w", err)
	}
	config.Engine = *engine

	sources, err := s.GetSources()
	if err != nil {
		return nil, fmt.Errorf("failed to load sources: %w", err)
	}
	config.Sources = sources

	publishers, err := s.GetPublishers()
	if err != nil {
		return nil, fmt.Errorf("failed to load publishers: %w", err)
	}
	config.Publishers = publishers

	poster, err := s.getPosterConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load poster config: %w", err)
	}
	config.Poster = poster

	rest, err := s.getRESTServerConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load rest config: %w", err)
	}
	config.RESTServer = rest

	logging, err := s.getLoggingConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load logging config: %w", err)
	}
	config.Logging = logging

	return config, nil
}

// GetEngineConfig returns the engine configuration from the database
func (s *SQLiteProvider) GetEngineConfig() (*EngineData, error) {
	query := `
		SELECT hour_threshold, long_fires_threshold_km, spatial_threshold_km,
		       alarms_dir, alarm_file_prefix, id_cache_file, queue_size
		FROM engine_config
		WHERE config_id = (SELECT id FROM configs WHERE name = 'default')
	`

	var hour, longFires, spatial sql.NullFloat64
	var alarmsDir, prefix, cacheFile sql.NullString
	var queueSize sql.NullInt64

	err := s.db.QueryRow(query).Scan(&hour, &longFires, &spatial, &alarmsDir, &prefix, &cacheFile, &queueSize)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("no engine configuration found in database")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query engine config: %w", err)
	}

	engine := &EngineData{}
	if hour.Valid {
		v := hour.Float64
		engine.HourThreshold = &v
	}
	if longFires.Valid {
		v := longFires.Float64
		engine.LongFiresThresholdKm = &v
	}
	if spatial.Valid {
		v := spatial.Float64
		engine.SpatialThresholdKm = &v
	}
	if alarmsDir.Valid {
		engine.AlarmsDir = alarmsDir.String
	}
	if prefix.Valid {
		engine.AlarmFilePrefix = prefix.String
	}
	if cacheFile.Valid {
		engine.IDCacheFile = cacheFile.String
	}
	if queueSize.Valid {
		engine.QueueSize = int(queueSize.Int64)
	}

	return engine, nil
}

// GetSources returns source configurations from the database
func (s *SQLiteProvider) GetSources() ([]SourceData, error) {
	query := `
		SELECT name, type, enabled, directory, poll_interval_seconds, address
		FROM sources
		WHERE config_id = (SELECT id FROM configs WHERE name = 'default')
		ORDER BY name
	`

	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query sources: %w", err)
	}
	defer rows.Close()

	var sources []SourceData
	for rows.Next() {
		var src SourceData
		var directory, address sql.NullString
		var pollInterval sql.NullInt64

		if err := rows.Scan(&src.Name, &src.Type, &src.Enabled, &directory, &pollInterval, &address); err != nil {
			return nil, fmt.Errorf("failed to scan source: %w", err)
		}
		if directory.Valid {
			src.Directory = directory.String
		}
		if pollInterval.Valid {
			src.PollIntervalSeconds = int(pollInterval.Int64)
		}
		if address.Valid {
			src.Address = address.String
		}
		sources = append(sources, src)
	}

	return sources, rows.Err()
}

// GetPublishers returns publisher configurations from the database
func (s *SQLiteProvider) GetPublishers() ([]PublisherData, error) {
	query := `
		SELECT name, type, enabled, address, directory
		FROM publishers
		WHERE config_id = (SELECT id FROM configs WHERE name = 'default')
		ORDER BY name
	`

	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query publishers: %w", err)
	}
	defer rows.Close()

	var publishers []PublisherData
	for rows.Next() {
		var pub PublisherData
		var address, directory sql.NullString

		if err := rows.Scan(&pub.Name, &pub.Type, &pub.Enabled, &address, &directory); err != nil {
			return nil, fmt.Errorf("failed to scan publisher: %w", err)
		}
		if address.Valid {
			pub.Address = address.String
		}
		if directory.Valid {
			pub.Directory = directory.String
		}
		publishers = append(publishers, pub)
	}

	return publishers, rows.Err()
}

func (s *SQLiteProvider) getPosterConfig() (*PosterData, error) {
	query := `
		SELECT enabled, restapi_url, xauth_token_env
		FROM poster_config
		WHERE config_id = (SELECT id FROM configs WHERE name = 'default')
	`

	var poster PosterData
	var url, tokenEnv sql.NullString

	err := s.db.QueryRow(query).Scan(&poster.Enabled, &url, &tokenEnv)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query poster config: %w", err)
	}
	if url.Valid {
		poster.RESTAPIURL = url.String
	}
	if tokenEnv.Valid {
		poster.XAuthTokenEnv = tokenEnv.String
	}

	return &poster, nil
}

func (s *SQLiteProvider) getRESTServerConfig() (*RESTServerData, error) {
	query := `
		SELECT enabled, port, listen_addr
		FROM rest_config
		WHERE config_id = (SELECT id FROM configs WHERE name = 'default')
	`

	var rest RESTServerData
	var port sql.NullInt64
	var listenAddr sql.NullString

	err := s.db.QueryRow(query).Scan(&rest.Enabled, &port, &listenAddr)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query rest config: %w", err)
	}
	if port.Valid {
		rest.Port = int(port.Int64)
	}
	if listenAddr.Valid {
		rest.ListenAddr = listenAddr.String
	}

	return &rest, nil
}

func (s *SQLiteProvider) getLoggingConfig() (*LoggingData, error) {
	query := `
		SELECT file, max_size_mb, max_backups, max_age_days
		FROM logging_config
		WHERE config_id = (SELECT id FROM configs WHERE name = 'default')
	`

	var logging LoggingData
	var file sql.NullString
	var maxSize, maxBackups, maxAge sql.NullInt64

	err := s.db.QueryRow(query).Scan(&file, &maxSize, &maxBackups, &maxAge)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query logging config: %w", err)
	}
	if file.Valid {
		logging.File = file.String
	}
	if maxSize.Valid {
		logging.MaxSizeMB = int(maxSize.Int64)
	}
	if maxBackups.Valid {
		logging.MaxBackups = int(maxBackups.Int64)
	}
	if maxAge.Valid {
		logging.MaxAgeDays = int(maxAge.Int64)
	}

	return &logging, nil
}

// IsReadOnly returns false since SQLite databases support configuration updates
func (s *SQLiteProvider) IsReadOnly() bool {
	return false
}

// Close closes the database connection
func (s *SQLiteProvider) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// SaveConfig replaces the stored configuration with the given data
func (s *SQLiteProvider) SaveConfig(configData *ConfigData) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	configID, err := s.insertConfig(tx, "default")
	if err != nil {
		return err
	}
	if err := s.clearExistingConfig(tx, configID); err != nil {
		return err
	}

	if err := s.insertEngineConfig(tx, configID, &configData.Engine); err != nil {
		return err
	}
	for i := range configData.Sources {
		if err := s.insertSource(tx, configID, &configData.Sources[i]); err != nil {
			return err
		}
	}
	for i := range configData.Publishers {
		if err := s.insertPublisher(tx, configID, &configData.Publishers[i]); err != nil {
			return err
		}
	}
	if configData.Poster != nil {
		if err := s.insertPosterConfig(tx, configID, configData.Poster); err != nil {
			return err
		}
	}
	if configData.RESTServer != nil {
		if err := s.insertRESTServerConfig(tx, configID, configData.RESTServer); err != nil {
			return err
		}
	}
	if configData.Logging != nil {
		if err := s.insertLoggingConfig(tx, configID, configData.Logging); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (s *SQLiteProvider) insertConfig(tx *sql.Tx, name string) (int64, error) {
	if _, err := tx.Exec(`INSERT OR IGNORE INTO configs (name) VALUES (?)`, name); err != nil {
		return 0, fmt.Errorf("failed to insert config row: %w", err)
	}
	var id int64
	if err := tx.QueryRow(`SELECT id FROM configs WHERE name = ?`, name).Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to look up config row: %w", err)
	}
	return id, nil
}

func (s *SQLiteProvider) clearExistingConfig(tx *sql.Tx, configID int64) error {
	tables := []string{
		"engine_config", "sources", "publishers",
		"poster_config", "rest_config", "logging_config",
	}
	for _, table := range tables {
		if _, err := tx.Exec(fmt.Sprintf("DELETE FROM %s WHERE config_id = ?", table), configID); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}
	return nil
}

func (s *SQLiteProvider) insertEngineConfig(tx *sql.Tx, configID int64, engine *EngineData) error {
	var hour, longFires, spatial sql.NullFloat64
	if engine.HourThreshold != nil {
		hour = sql.NullFloat64{Float64: *engine.HourThreshold, Valid: true}
	}
	if engine.LongFiresThresholdKm != nil {
		longFires = sql.NullFloat64{Float64: *engine.LongFiresThresholdKm, Valid: true}
	}
	if engine.SpatialThresholdKm != nil {
		spatial = sql.NullFloat64{Float64: *engine.SpatialThresholdKm, Valid: true}
	}

	_, err := tx.Exec(`
		INSERT INTO engine_config (config_id, hour_threshold, long_fires_threshold_km,
		                           spatial_threshold_km, alarms_dir, alarm_file_prefix,
		                           id_cache_file, queue_size)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		configID, hour, longFires, spatial,
		nullString(engine.AlarmsDir), nullString(engine.AlarmFilePrefix),
		nullString(engine.IDCacheFile), nullInt(engine.QueueSize))
	if err != nil {
		return fmt.Errorf("failed to insert engine config: %w", err)
	}
	return nil
}

func (s *SQLiteProvider) insertSource(tx *sql.Tx, configID int64, src *SourceData) error {
	_, err := tx.Exec(`
		INSERT INTO sources (config_id, name, type, enabled, directory, poll_interval_seconds, address)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		configID, src.Name, src.Type, src.Enabled,
		nullString(src.Directory), nullInt(src.PollIntervalSeconds), nullString(src.Address))
	if err != nil {
		return fmt.Errorf("failed to insert source [%s]: %w", src.Name, err)
	}
	return nil
}

func (s *SQLiteProvider) insertPublisher(tx *sql.Tx, configID int64, pub *PublisherData) error {
	_, err := tx.Exec(`
		INSERT INTO publishers (config_id, name, type, enabled, address, directory)
		VALUES (?, ?, ?, ?, ?, ?)`,
		configID, pub.Name, pub.Type, pub.Enabled,
		nullString(pub.Address), nullString(pub.Directory))
	if err != nil {
		return fmt.Errorf("failed to insert publisher [%s]: %w", pub.Name, err)
	}
	return nil
}

func (s *SQLiteProvider) insertPosterConfig(tx *sql.Tx, configID int64, poster *PosterData) error {
	_, err := tx.Exec(`
		INSERT INTO poster_config (config_id, enabled, restapi_url, xauth_token_env)
		VALUES (?, ?, ?, ?)`,
		configID, poster.Enabled, nullString(poster.RESTAPIURL), nullString(poster.XAuthTokenEnv))
	if err != nil {
		return fmt.Errorf("failed to insert poster config: %w", err)
	}
	return nil
}

func (s *SQLiteProvider) insertRESTServerConfig(tx *sql.Tx, configID int64, rest *RESTServerData) error {
	_, err := tx.Exec(`
		INSERT INTO rest_config (config_id, enabled, port, listen_addr)
		VALUES (?, ?, ?, ?)`,
		configID, rest.Enabled, nullInt(rest.Port), nullString(rest.ListenAddr))
	if err != nil {
		return fmt.Errorf("failed to insert rest config: %w", err)
	}
	return nil
}

func (s *SQLiteProvider) insertLoggingConfig(tx *sql.Tx, configID int64, logging *LoggingData) error {
	_, err := tx.Exec(`
		INSERT INTO logging_config (config_id, file, max_size_mb, max_backups, max_age_days)
		VALUES (?, ?, ?, ?, ?)`,
		configID, nullString(logging.File),
		nullInt(logging.MaxSizeMB), nullInt(logging.MaxBackups), nullInt(logging.MaxAgeDays))
	if err != nil {
		return fmt.Errorf("failed to insert logging config: %w", err)
	}
	return nil
}

func nullString(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}

func nullInt(v int) sql.NullInt64 {
	return sql.NullInt64{Int64: int64(v), Valid: v != 0}
}
