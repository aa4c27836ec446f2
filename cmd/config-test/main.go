package main

import (
	"flag"
	"fmt"
	"os"
	"reflect"

	"github.com/satfire/firewatch/pkg/config"
)

func main() {
	var (
		yamlFile   = flag.String("yaml", "", "Path to YAML configuration file")
		sqliteFile = flag.String("sqlite", "", "Path to SQLite configuration file")
	)
	flag.Parse()

	if *yamlFile == "" || *sqliteFile == "" {
		fmt.Fprintf(os.Stderr, "Usage: %s -yaml <firewatch.yaml> -sqlite <firewatch.db>\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(1)
	}

	fmt.Println("Configuration Comparison Test")
	fmt.Println("===========================")

	// Load YAML configuration
	fmt.Printf("Loading YAML configuration: %s\n", *yamlFile)
	yamlProvider := config.NewYAMLProvider(*yamlFile)
	yamlConfig, err := yamlProvider.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading YAML config: %v\n", err)
		os.Exit(1)
	}

	// Load SQLite configuration
	fmt.Printf("Loading SQLite configuration: %s\n", *sqliteFile)
	sqliteProvider, err := config.NewSQLiteProvider(*sqliteFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating SQLite provider: %v\n", err)
		os.Exit(1)
	}
	defer sqliteProvider.Close()

	sqliteConfig, err := sqliteProvider.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading SQLite config: %v\n", err)
		os.Exit(1)
	}

	// Compare configurations
	fmt.Println("\nComparison Results:")
	fmt.Println("==================")

	mismatches := 0

	if reflect.DeepEqual(yamlConfig.Engine, sqliteConfig.Engine) {
		fmt.Println("✓ Engine configuration matches")
	} else {
		fmt.Println("✗ Engine configuration differs")
		fmt.Printf("  YAML:   %+v\n", yamlConfig.Engine)
		fmt.Printf("  SQLite: %+v\n", sqliteConfig.Engine)
		mismatches++
	}

	fmt.Printf("\nSources - YAML: %d, SQLite: %d\n", len(yamlConfig.Sources), len(sqliteConfig.Sources))
	if len(yamlConfig.Sources) != len(sqliteConfig.Sources) {
		fmt.Println("✗ Source count mismatch")
		mismatches++
	} else {
		for i, yamlSource := range yamlConfig.Sources {
			if reflect.DeepEqual(yamlSource, sqliteConfig.Sources[i]) {
				fmt.Printf("✓ Source %s matches\n", yamlSource.Name)
			} else {
				fmt.Printf("✗ Source %s differs\n", yamlSource.Name)
				fmt.Printf("  YAML:   %+v\n", yamlSource)
				fmt.Printf("  SQLite: %+v\n", sqliteConfig.Sources[i])
				mismatches++
			}
		}
	}

	fmt.Printf("\nPublishers - YAML: %d, SQLite: %d\n", len(yamlConfig.Publishers), len(sqliteConfig.Publishers))
	if len(yamlConfig.Publishers) != len(sqliteConfig.Publishers) {
		fmt.Println("✗ Publisher count mismatch")
		mismatches++
	} else {
		for i, yamlPub := range yamlConfig.Publishers {
			if reflect.DeepEqual(yamlPub, sqliteConfig.Publishers[i]) {
				fmt.Printf("✓ Publisher %s matches\n", yamlPub.Name)
			} else {
				fmt.Printf("✗ Publisher %s differs\n", yamlPub.Name)
				fmt.Printf("  YAML:   %+v\n", yamlPub)
				fmt.Printf("  SQLite: %+v\n", sqliteConfig.Publishers[i])
				mismatches++
			}
		}
	}

	fmt.Println()
	mismatches += compareSection("Poster", yamlConfig.Poster, sqliteConfig.Poster)
	mismatches += compareSection("REST server", yamlConfig.RESTServer, sqliteConfig.RESTServer)
	mismatches += compareSection("Logging", yamlConfig.Logging, sqliteConfig.Logging)

	if mismatches > 0 {
		fmt.Printf("\nTest completed: %d mismatches\n", mismatches)
		os.Exit(1)
	}
	fmt.Println("\nTest completed: configurations match!")
}

// compareSection compares one optional configuration section, treating a nil
// pointer on both sides as a match.
func compareSection[T any](name string, yaml, sqlite *T) int {
	switch {
	case (yaml == nil) != (sqlite == nil):
		fmt.Printf("✗ %s configuration presence mismatch\n", name)
		return 1
	case yaml == nil:
		fmt.Printf("✓ %s: both absent\n", name)
		return 0
	case reflect.DeepEqual(*yaml, *sqlite):
		fmt.Printf("✓ %s configuration matches\n", name)
		return 0
	default:
		fmt.Printf("✗ %s configuration differs\n", name)
		fmt.Printf("  YAML:   %+v\n", *yaml)
		fmt.Printf("  SQLite: %+v\n", *sqlite)
		return 1
	}
}
