// Package main is the Chalkbot CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/thechalk/chalkbot/internal/answer"
	"github.com/thechalk/chalkbot/internal/builder"
	"github.com/thechalk/chalkbot/internal/chunker"
	"github.com/thechalk/chalkbot/internal/cli"
	"github.com/thechalk/chalkbot/internal/config"
	"github.com/thechalk/chalkbot/internal/docsource"
	"github.com/thechalk/chalkbot/internal/models"
	"github.com/thechalk/chalkbot/internal/provider"
	"github.com/thechalk/chalkbot/internal/provider/gemini"
	"github.com/thechalk/chalkbot/internal/provider/openai"
	"github.com/thechalk/chalkbot/internal/retriever"
	"github.com/thechalk/chalkbot/internal/server"
	"github.com/thechalk/chalkbot/internal/store"
	"github.com/thechalk/chalkbot/internal/watcher"
	"github.com/thechalk/chalkbot/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/chalkbot/config.yaml"

// loadConfig loads config from path. When path is the default, it first looks for
// config.yaml in the current directory (for development); if that exists it is used,
// so that "chalkbot server" from the project dir uses the project's config.
// Returns the config and the path that was actually loaded.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "ask":
		runAsk()
	case "train":
		runTrain()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("chalkbot version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
		zap.String("vendor", cfg.Provider.Vendor),
	)

	components, err := initializeComponents(cfg, logger, debugMode)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	// Reload a scope's index when an external trainer replaces its artifact.
	indexes := components.Indexes
	watchOpts := []watcher.Option{}
	if debugMode {
		watchOpts = append(watchOpts, watcher.WithLogger(logger))
	}
	watchSvc := watcher.New(components.Store.Dir(), func(scope models.Scope) {
		logger.Info("artifact changed, invalidating cached index", zap.String("scope", scope.String()))
		indexes.Invalidate(scope)
	}, watchOpts...)
	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	if err := watchSvc.Start(watchCtx); err != nil {
		logger.Fatal("Failed to start artifact watcher", zap.Error(err))
	}

	srv := server.NewServer(components.Engine, components.Indexes, components.Store, cfg, logger)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	watchSvc.Stop()
	watchCancel()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

func runAsk() {
	fs := flag.NewFlagSet("ask", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = answer locally without a server)")
	userID := fs.String("user", "", "user ID for personalized context")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: chalkbot ask [flags] <question>")
		os.Exit(1)
	}
	question := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if question == "" {
		fmt.Println("Usage: chalkbot ask [flags] <question>")
		os.Exit(1)
	}
	format, err := cli.ParseFormat(*outputFormat)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	if *serverURL != "" {
		ans, err := askViaHTTP(*serverURL, question, *userID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Ask failed: %v\n", err)
			os.Exit(1)
		}
		if err := cli.WriteAnswer(os.Stdout, *ans, format); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
		return
	}

	// Local mode: build the full stack in-process.
	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger, cfg.Debug)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()

	ans := components.Engine.Answer(context.Background(), question, *userID)
	if err := cli.WriteAnswer(os.Stdout, ans, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func askViaHTTP(serverURL, question, userID string) (*models.Answer, error) {
	body, err := json.Marshal(map[string]string{"message": question, "user_id": userID})
	if err != nil {
		return nil, err
	}
	resp, err := http.Post(serverURL+"/api/v1/chat", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var out struct {
		Answer   string `json:"answer"`
		Grounded bool   `json:"grounded"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &models.Answer{Text: out.Answer, Grounded: out.Grounded}, nil
}

func runTrain() {
	fs := flag.NewFlagSet("train", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "", "server URL (empty = train locally)")
	userID := fs.String("user", "", "train one user's corpus instead of the shared one")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	format, err := cli.ParseFormat(*outputFormat)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	if *serverURL != "" {
		summary, err := trainViaHTTP(*serverURL, *userID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Training failed: %v\n", err)
			os.Exit(1)
		}
		if err := cli.WriteTrainSummary(os.Stdout, *summary, format); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
		return
	}

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger, cfg.Debug)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()

	scope := models.GlobalScope()
	if *userID != "" {
		scope = models.UserScope(*userID)
	}
	idx, err := components.Indexes.Rebuild(context.Background(), scope)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Training failed: %v\n", err)
		os.Exit(1)
	}
	summary := cli.TrainSummary{Scope: scope.String(), Chunks: idx.Len()}
	if err := cli.WriteTrainSummary(os.Stdout, summary, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func trainViaHTTP(serverURL, userID string) (*cli.TrainSummary, error) {
	body, err := json.Marshal(map[string]string{"user_id": userID})
	if err != nil {
		return nil, err
	}
	resp, err := http.Post(serverURL+"/api/v1/train", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var out struct {
		Scope  string `json:"scope"`
		Chunks int    `json:"chunks"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &cli.TrainSummary{Scope: out.Scope, Chunks: out.Chunks}, nil
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = read the store directly)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	var status map[string]interface{}
	if *serverURL != "" {
		res, err := statusViaHTTP(*serverURL)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
			os.Exit(1)
		}
		status = res
	} else {
		cfg, _, err := loadConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
			os.Exit(1)
		}
		fileStore, err := store.NewFileStore(cfg.Store.Dir)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open store: %v\n", err)
			os.Exit(1)
		}
		users, err := fileStore.ListUserScopes()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to list users: %v\n", err)
			os.Exit(1)
		}
		globalProfile, err := fileStore.Profile(models.GlobalScope())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to read global profile: %v\n", err)
			os.Exit(1)
		}
		status = map[string]interface{}{
			"global_trained": globalProfile != nil,
			"user_count":     len(users),
			"store_dir":      fileStore.Dir(),
		}
		if globalProfile != nil {
			status["global_chunks"] = globalProfile.TotalChunks
		}
	}

	switch *outputFormat {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(status); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
	case "text":
		fmt.Printf("global_trained:  %v\n", status["global_trained"])
		if chunks, ok := status["global_chunks"]; ok {
			fmt.Printf("global_chunks:   %v\n", chunks)
		}
		fmt.Printf("user_count:      %v\n", status["user_count"])
		if dir, ok := status["store_dir"]; ok {
			fmt.Printf("store_dir:       %v\n", dir)
		}
	default:
		fmt.Fprintf(os.Stderr, "Unknown output format %q; use text or json\n", *outputFormat)
		os.Exit(1)
	}
}

func statusViaHTTP(serverURL string) (map[string]interface{}, error) {
	resp, err := http.Get(serverURL + "/api/v1/status")
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var out map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return out, nil
}

// Components holds initialized services.
type Components struct {
	Store   *store.FileStore
	Source  docsource.Source
	Indexes *builder.Manager
	Engine  *answer.Engine

	sqlite *docsource.SQLiteSource
}

func (c *Components) Close() {
	if c.sqlite != nil {
		_ = c.sqlite.Close()
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger, debug bool) (*Components, error) {
	fileStore, err := store.NewFileStore(cfg.Store.Dir)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize store: %w", err)
	}

	embedder, generator, err := newProviders(cfg)
	if err != nil {
		return nil, err
	}

	source, sqlite, err := newSource(cfg, logger, debug)
	if err != nil {
		return nil, err
	}

	ch, err := chunker.New(cfg.Answer.ChunkSize)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize chunker: %w", err)
	}

	builderOpts := []builder.Option{}
	managerOpts := []builder.ManagerOption{}
	if debug && logger != nil {
		builderOpts = append(builderOpts, builder.WithLogger(logger))
		managerOpts = append(managerOpts, builder.WithManagerLogger(logger))
	}
	indexes := builder.NewManager(fileStore, builder.New(ch, embedder, builderOpts...), source, managerOpts...)

	r, err := retriever.New(embedder, cfg.Answer.TopK, cfg.Answer.MinSimilarity)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize retriever: %w", err)
	}

	validator := answer.NewValidator(cfg.Answer.MinAnswerLength, cfg.Answer.RefusalPhrases)
	engineOpts := []answer.Option{answer.WithApology(cfg.Answer.Apology)}
	if debug && logger != nil {
		engineOpts = append(engineOpts, answer.WithLogger(logger))
	}
	engine := answer.NewEngine(indexes, r, generator, validator, engineOpts...)

	return &Components{
		Store:   fileStore,
		Source:  source,
		Indexes: indexes,
		Engine:  engine,
		sqlite:  sqlite,
	}, nil
}

// newProviders builds the embedder and generator for the configured vendor.
func newProviders(cfg *config.Config) (provider.Embedder, provider.Generator, error) {
	switch cfg.Provider.Vendor {
	case "gemini":
		client, err := gemini.New(gemini.Config{
			BaseURL:        cfg.Provider.Gemini.BaseURL,
			APIKey:         cfg.Provider.Gemini.APIKey,
			EmbedModel:     cfg.Provider.Gemini.EmbedModel,
			GenerateModel:  cfg.Provider.Gemini.GenerateModel,
			EmbedDimension: cfg.Provider.Gemini.EmbedDimension,
			MaxRetries:     cfg.Provider.Gemini.MaxRetries,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize gemini provider: %w", err)
		}
		return client, client, nil
	case "openai":
		client, err := openai.New(openai.Config{
			BaseURL:        cfg.Provider.OpenAI.BaseURL,
			APIKey:         cfg.Provider.OpenAI.APIKey,
			EmbedModel:     cfg.Provider.OpenAI.EmbedModel,
			GenerateModel:  cfg.Provider.OpenAI.GenerateModel,
			EmbedDimension: cfg.Provider.OpenAI.EmbedDimension,
			MaxRetries:     cfg.Provider.OpenAI.MaxRetries,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize openai provider: %w", err)
		}
		return client, client, nil
	case "mock":
		// Offline development mode: deterministic embeddings, canned generation.
		gen := &provider.MockGenerator{Responses: []string{
			"This is a canned development answer from the mock provider. Configure a real provider vendor to get actual generations.",
		}}
		return provider.NewMockEmbedder(8), gen, nil
	default:
		return nil, nil, fmt.Errorf("unknown provider vendor %q", cfg.Provider.Vendor)
	}
}

// newSource assembles the document source from the configured corpus: the
// platform database, a course material directory, or both.
func newSource(cfg *config.Config, logger *zap.Logger, debug bool) (docsource.Source, *docsource.SQLiteSource, error) {
	var sources docsource.Multi
	var sqlite *docsource.SQLiteSource

	if cfg.Corpus.DatabasePath != "" {
		s, err := docsource.NewSQLiteSource(cfg.Corpus.DatabasePath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize database source: %w", err)
		}
		sources = append(sources, s)
		sqlite = s
	}
	if cfg.Corpus.Directory != "" {
		opts := []docsource.FilesOption{}
		if debug && logger != nil {
			opts = append(opts, docsource.WithLogger(logger))
		}
		s, err := docsource.NewFilesSource(cfg.Corpus.Directory, cfg.Corpus.Extensions, opts...)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize files source: %w", err)
		}
		sources = append(sources, s)
	}
	if len(sources) == 0 {
		// No corpus configured: every build yields an empty index and all
		// answers degrade to context-free generation.
		return &docsource.Static{}, nil, nil
	}
	if len(sources) == 1 {
		return sources[0], sqlite, nil
	}
	return sources, sqlite, nil
}

func printUsage() {
	fmt.Println(`chalkbot - retrieval-augmented STEM tutoring assistant

Usage:
  chalkbot server [flags]          Start the HTTP server
  chalkbot ask [flags] <question>  Ask a question
  chalkbot train [flags]           Build the embedding index
  chalkbot status [flags]          Show store/training status
  chalkbot version                 Show version
  chalkbot help                    Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/chalkbot/config.yaml)
  --debug            Enable debug logging

Ask Flags:
  --config string    Config file path (for local mode)
  --server string    Server URL (default: http://localhost:8080). Use empty (--server "") to answer locally.
  --user string      User ID for personalized context
  --output string    Output format: text or json (default: text)

Train Flags:
  --config string    Config file path
  --server string    Server URL (empty = train locally, the default)
  --user string      Train one user's corpus instead of the shared one
  --output string    Output format: text or json (default: text)

Status Flags:
  --config string    Config file path (for direct store mode)
  --server string    Server URL (default: http://localhost:8080). Use empty (--server "") to read the store directly.
  --output string    Output format: text or json (default: text)

Examples:
  chalkbot server
  chalkbot ask "What does STEM stand for?"
  chalkbot ask --user 42 "Summarize my notes on integrals"
  chalkbot train
  chalkbot train --user 42
  chalkbot status --output json`)
}
