// cmd/dataretriever/main.go
package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/valpere/DataRetriever/internal/config"
	"github.com/valpere/DataRetriever/internal/download"
	"github.com/valpere/DataRetriever/internal/logging"
	"github.com/valpere/DataRetriever/internal/retrieve"
	"github.com/valpere/DataRetriever/internal/tabular"
)

// Version information (set by build flags)
var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

// main handles CLI arguments and routes to the appropriate command.
func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]

	switch command {
	case "run":
		if len(os.Args) < 3 {
			fmt.Fprintf(os.Stderr, "Error: config file required\n")
			fmt.Fprintf(os.Stderr, "Usage: dataretriever run <config.yaml> [--watch]\n")
			os.Exit(1)
		}
		watch := len(os.Args) > 3 && os.Args[3] == "--watch"
		if err := runJob(os.Args[2], watch); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

	case "fetch":
		if len(os.Args) < 3 {
			fmt.Fprintf(os.Stderr, "Error: URL required\n")
			fmt.Fprintf(os.Stderr, "Usage: dataretriever fetch <url>\n")
			os.Exit(1)
		}
		if err := fetchOne(os.Args[2]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

	case "validate":
		if len(os.Args) < 3 {
			fmt.Fprintf(os.Stderr, "Error: config file required\n")
			fmt.Fprintf(os.Stderr, "Usage: dataretriever validate <config.yaml>\n")
			os.Exit(1)
		}
		if err := validateConfig(os.Args[2]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("✓ Configuration file '%s' is valid\n", os.Args[2])

	case "template":
		template, err := generateTemplate()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Print(template)

	case "version", "--version":
		printVersion()

	case "help", "--help", "-h":
		printUsage()

	default:
		fmt.Fprintf(os.Stderr, "Error: unknown command '%s'\n", command)
		printUsage()
		os.Exit(1)
	}
}

// runJob loads the configuration and fetches every configured source. With
// watch set it then stays up, re-running the job every time the config file
// changes, until interrupted.
func runJob(configFile string, watch bool) error {
	cfg, err := config.LoadFromFile(configFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := executeJob(cfg); err != nil {
		return err
	}
	if !watch {
		return nil
	}

	logger := logging.New(logging.Options{
		Level: cfg.LogLevel,
		JSON:  cfg.LogJSON,
	})
	watcher, err := config.NewWatcher(configFile, logger)
	if err != nil {
		return err
	}
	defer watcher.Stop()
	watcher.OnChange(func(next *config.Config) {
		if err := executeJob(next); err != nil {
			logger.Error().Err(err).Str("job", next.Name).Msg("job run failed after config reload")
		}
	})
	logger.Info().Str("path", configFile).Msg("watching configuration for changes")

	interrupted := make(chan os.Signal, 1)
	signal.Notify(interrupted, os.Interrupt, syscall.SIGTERM)
	<-interrupted
	return nil
}

// executeJob fetches every configured source once.
func executeJob(cfg *config.Config) error {
	logger := logging.New(logging.Options{
		Level: cfg.LogLevel,
		JSON:  cfg.LogJSON,
	})

	clientCfg := cfg.Client.Build()
	clientCfg.Logger = &logger
	client, err := download.New(clientCfg)
	if err != nil {
		return err
	}
	defer client.Close()

	retriever, err := retrieve.New(retrieve.Config{
		Client:      client,
		SavedDir:    cfg.Retrieve.SavedDir,
		TempDir:     cfg.Retrieve.TempDir,
		FallbackDir: cfg.Retrieve.FallbackDir,
		Prefix:      cfg.Retrieve.Prefix,
		Policy:      cfg.Retrieve.Policy,
		Logger:      &logger,
	})
	if err != nil {
		return err
	}

	ctx := context.Background()
	for _, source := range cfg.Sources {
		if err := fetchSource(ctx, retriever, source); err != nil {
			return fmt.Errorf("source %s: %w", source.URL, err)
		}
	}
	logger.Info().Int("sources", len(cfg.Sources)).Str("job", cfg.Name).Msg("job complete")
	return nil
}

func fetchSource(ctx context.Context, retriever *retrieve.Retriever, source config.SourceConfig) error {
	switch source.Kind {
	case "file":
		path, err := retriever.File(ctx, source.URL, source.Filename, source.Fallback)
		if err != nil {
			return err
		}
		fmt.Println(path)
	case "text":
		text, err := retriever.Text(ctx, source.URL, source.Filename, source.Fallback)
		if err != nil {
			return err
		}
		fmt.Println(text)
	case "json":
		value, err := retriever.JSON(ctx, source.URL, source.Filename, source.Fallback)
		if err != nil {
			return err
		}
		return printYAML(value)
	case "yaml":
		value, err := retriever.YAML(ctx, source.URL, source.Filename, source.Fallback)
		if err != nil {
			return err
		}
		return printYAML(value)
	case "rows":
		cur, err := retriever.Rows(ctx, source.URL, source.Filename, source.Fallback, tabular.Options{
			HeaderRow: source.HeaderRow,
			Sheet:     source.Sheet,
		})
		if err != nil {
			return err
		}
		defer cur.Close()
		writer := csv.NewWriter(os.Stdout)
		if err := writer.Write(cur.Headers()); err != nil {
			return err
		}
		for cur.Scan() {
			if err := writer.Write(cur.Row()); err != nil {
				return err
			}
		}
		writer.Flush()
		if err := writer.Error(); err != nil {
			return err
		}
		return cur.Err()
	default:
		return fmt.Errorf("unknown source kind %q", source.Kind)
	}
	return nil
}

// fetchOne downloads a single URL to the current directory with default
// settings, for quick ad hoc use without a config file.
func fetchOne(url string) error {
	logger := logging.New(logging.Options{Level: "info"})
	client, err := download.New(download.Config{
		UserAgent: "dataretriever-cli",
		Logger:    &logger,
	})
	if err != nil {
		return err
	}
	defer client.Close()

	cwd, err := os.Getwd()
	if err != nil {
		return err
	}
	path, err := client.DownloadFile(context.Background(), url, download.RequestOptions{},
		download.FileDestination{Folder: cwd})
	if err != nil {
		return err
	}
	fmt.Println(path)
	return nil
}

func validateConfig(configFile string) error {
	cfg, err := config.LoadFromFile(configFile)
	if err != nil {
		return err
	}
	return cfg.Validate()
}

// generateTemplate renders a starter configuration.
func generateTemplate() (string, error) {
	template := &config.Config{
		Name: "example-job",
		Client: config.ClientConfig{
			UserAgent: "my-agent",
			RateLimit: &download.RateLimit{Calls: 1, Period: time.Second},
		},
		Retrieve: config.RetrieveConfig{
			SavedDir:    "./saved",
			FallbackDir: "./fallback",
			Policy:      retrieve.Policy{Save: true},
		},
		Sources: []config.SourceConfig{
			{URL: "https://example.com/data.csv", Kind: "rows", HeaderRow: 1},
			{URL: "https://example.com/meta.json", Kind: "json", Fallback: true},
		},
	}
	data, err := yaml.Marshal(template)
	if err != nil {
		return "", fmt.Errorf("failed to marshal template to YAML: %w", err)
	}
	return string(data), nil
}

func printYAML(value any) error {
	data, err := yaml.Marshal(value)
	if err != nil {
		return err
	}
	fmt.Print(string(data))
	return nil
}

// printUsage displays help information.
func printUsage() {
	fmt.Println("DataRetriever - Resilient tabular retrieval tool")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  dataretriever run <config.yaml>       Fetch all sources in a configuration file")
	fmt.Println("                    [--watch]           Re-run whenever the configuration changes")
	fmt.Println("  dataretriever fetch <url>             Download a single URL to the current directory")
	fmt.Println("  dataretriever validate <config.yaml>  Validate a configuration file")
	fmt.Println("  dataretriever template                Generate a starter configuration")
	fmt.Println("  dataretriever version                 Show version information")
	fmt.Println("  dataretriever help                    Show this help message")
}

// printVersion displays version information.
func printVersion() {
	fmt.Printf("DataRetriever %s\n", version)
	fmt.Printf("Build time: %s\n", buildTime)
	fmt.Printf("Git commit: %s\n", gitCommit)
}
