package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/satfire/firewatch/pkg/config"
)

func main() {
	var (
		yamlFile   = flag.String("yaml", "", "Path to YAML configuration file (required)")
		sqliteFile = flag.String("sqlite", "", "Path to SQLite database file (required)")
		force      = flag.Bool("force", false, "Overwrite existing SQLite database")
		dryRun     = flag.Bool("dry-run", false, "Show what would be done without executing")
	)
	flag.Parse()

	if *yamlFile == "" || *sqliteFile == "" {
		fmt.Fprintf(os.Stderr, "Usage: %s -yaml <firewatch.yaml> -sqlite <firewatch.db>\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(1)
	}

	// Check if YAML file exists
	if _, err := os.Stat(*yamlFile); os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Error: YAML file does not exist: %s\n", *yamlFile)
		os.Exit(1)
	}

	// Check if SQLite file already exists
	if _, err := os.Stat(*sqliteFile); err == nil && !*force {
		fmt.Fprintf(os.Stderr, "Error: SQLite file already exists: %s\n", *sqliteFile)
		fmt.Fprintf(os.Stderr, "Use -force to overwrite or choose a different filename\n")
		os.Exit(1)
	}

	fmt.Printf("Converting YAML configuration to SQLite...\n")
	fmt.Printf("  Source: %s\n", *yamlFile)
	fmt.Printf("  Target: %s\n", *sqliteFile)

	if *dryRun {
		fmt.Println("DRY RUN - No changes will be made")
	}

	// Load YAML configuration
	fmt.Printf("Loading YAML configuration...\n")
	yamlProvider := config.NewYAMLProvider(*yamlFile)
	configData, err := yamlProvider.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading YAML configuration: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("  Loaded %d sources, %d publishers\n", len(configData.Sources), len(configData.Publishers))

	if *dryRun {
		printConfigSummary(configData)
		fmt.Println("DRY RUN complete - no database created")
		return
	}

	// Remove existing SQLite file if force is specified
	if *force {
		if err := os.Remove(*sqliteFile); err != nil && !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Error removing existing SQLite file: %v\n", err)
			os.Exit(1)
		}
	}

	// Create and populate the SQLite database
	fmt.Printf("Creating SQLite database...\n")
	if err := loadConfigIntoSQLite(*sqliteFile, configData); err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration into SQLite: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Conversion completed successfully!\n")
	fmt.Printf("You can now use the SQLite backend with: -config-backend sqlite -config %s\n", *sqliteFile)
}

func loadConfigIntoSQLite(dbPath string, configData *config.ConfigData) error {
	sqliteProvider, err := config.NewSQLiteProvider(dbPath)
	if err != nil {
		return fmt.Errorf("failed to create SQLite provider: %w", err)
	}
	defer sqliteProvider.Close()

	if err := sqliteProvider.CreateTables(); err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}

	fmt.Printf("  Inserting configuration...\n")
	if err := sqliteProvider.SaveConfig(configData); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}

	fmt.Printf("  Configuration successfully inserted into database\n")
	return nil
}

func printConfigSummary(configData *config.ConfigData) {
	fmt.Println("\nConfiguration Summary:")
	fmt.Println("Engine:")
	if configData.Engine.HourThreshold != nil {
		fmt.Printf("  - hour_threshold: %v\n", *configData.Engine.HourThreshold)
	}
	if configData.Engine.LongFiresThresholdKm != nil {
		fmt.Printf("  - long_fires_threshold_km: %v\n", *configData.Engine.LongFiresThresholdKm)
	}
	if configData.Engine.SpatialThresholdKm != nil {
		fmt.Printf("  - spatial_threshold_km: %v\n", *configData.Engine.SpatialThresholdKm)
	}
	fmt.Printf("  - alarms_dir: %s\n", configData.Engine.AlarmsDir)

	fmt.Printf("\nSources (%d):\n", len(configData.Sources))
	for _, source := range configData.Sources {
		fmt.Printf("  - %s (%s)\n", source.Name, source.Type)
	}

	fmt.Printf("\nPublishers (%d):\n", len(configData.Publishers))
	for _, pub := range configData.Publishers {
		fmt.Printf("  - %s (%s)\n", pub.Name, pub.Type)
	}

	if configData.Poster != nil && configData.Poster.Enabled {
		fmt.Printf("\nPoster:\n  - %s\n", configData.Poster.RESTAPIURL)
	}
	if configData.RESTServer != nil && configData.RESTServer.Enabled {
		fmt.Printf("\nREST server:\n  - port %d\n", configData.RESTServer.Port)
	}
}
