// Package main is the Terasu CLI entry point.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/hyperjump/terasu/internal/backend"
	"github.com/hyperjump/terasu/internal/cli"
	"github.com/hyperjump/terasu/internal/config"
	"github.com/hyperjump/terasu/internal/corpus"
	"github.com/hyperjump/terasu/internal/extract"
	"github.com/hyperjump/terasu/internal/highlight"
	"github.com/hyperjump/terasu/internal/index"
	"github.com/hyperjump/terasu/internal/metrics"
	"github.com/hyperjump/terasu/internal/models"
	"github.com/hyperjump/terasu/internal/query"
	"github.com/hyperjump/terasu/internal/server"
	"github.com/hyperjump/terasu/internal/session"
	"github.com/hyperjump/terasu/internal/watcher"
	"github.com/hyperjump/terasu/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/terasu/config.yaml"

// loadConfig loads config from path. When path is the default, it first looks for
// config.yaml in the current directory (for development); if that exists it is used,
// so that "terasu serve" from the project dir uses the project's config (including debug).
// Returns the config and the path that was actually loaded (for saving, etc.).
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
	case "serve":
		runServe()
	case "search":
		runSearch()
	case "get":
		runGet()
	case "repl":
		runRepl()
	case "config":
		runConfig()
	case "version", "--version", "-v":
		fmt.Printf("terasu version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func runServe() {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	listen := fs.String("listen", "", "listen address as host:port (overrides config)")
	dirs := fs.String("dir", "", "comma-separated corpus directories (overrides config)")
	watch := fs.Bool("watch", false, "watch corpus directories for changes")
	debug := fs.Bool("debug", false, "enable debug logging (file events, ingestion, stale responses)")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		// The flags can stand in for a config file, but only the default
		// path may be silently absent.
		if !errors.Is(err, os.ErrNotExist) || *configPath != defaultConfigPath {
			fmt.Printf("Failed to load config: %v\n", err)
			os.Exit(1)
		}
		cfg = config.Default()
		resolvedConfigPath = "(defaults)"
	}
	if *listen != "" {
		host, portStr, err := net.SplitHostPort(*listen)
		if err != nil {
			fmt.Printf("Invalid listen address %q: %v\n", *listen, err)
			os.Exit(1)
		}
		port, err := strconv.Atoi(portStr)
		if err != nil {
			fmt.Printf("Invalid listen port %q\n", portStr)
			os.Exit(1)
		}
		cfg.Server.Host = host
		cfg.Server.Port = port
	}
	if *dirs != "" {
		cfg.Corpus.Directories = splitDirs(*dirs)
	}
	if *watch {
		cfg.Corpus.Watch = true
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
	)

	components, err := initializeComponents(cfg, logger, debugMode)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	ing := components.Ingestor
	store := components.Store

	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	var watchSvc *watcher.Watcher
	if cfg.Corpus.Watch {
		watchOpts := []watcher.WatcherOption{
			watcher.WithDebounce(time.Duration(cfg.Corpus.DebounceMS) * time.Millisecond),
		}
		if debugMode {
			watchOpts = append(watchOpts, watcher.WithLogger(logger))
		}
		watchSvc = watcher.NewWatcher(
			cfg.Corpus.Directories,
			cfg.Corpus.Extensions,
			func(path string) {
				if err := ing.IngestFile(context.Background(), path); err != nil {
					logger.Warn("watch ingest file failed", zap.String("path", path), zap.Error(err))
				}
				metrics.CorpusDocuments.Set(float64(store.Count()))
			},
			func(path string) {
				if err := ing.RemoveByPath(context.Background(), path); err != nil {
					logger.Warn("watch remove by path failed", zap.String("path", path), zap.Error(err))
				}
				metrics.CorpusDocuments.Set(float64(store.Count()))
			},
			watchOpts...,
		)
		if err := watchSvc.Start(watchCtx); err != nil {
			logger.Fatal("Failed to start watcher", zap.Error(err))
		}
		watchSvc.SyncExistingFiles()
	} else {
		for _, dir := range cfg.Corpus.Directories {
			n, err := ing.IngestDirectory(context.Background(), dir)
			if err != nil {
				logger.Warn("corpus directory ingest failed", zap.String("dir", dir), zap.Error(err))
				continue
			}
			logger.Info("corpus directory ingested", zap.String("dir", dir), zap.Int("files", n))
		}
	}
	metrics.CorpusDocuments.Set(float64(store.Count()))
	logger.Info("corpus ready", zap.Int("documents", store.Count()))

	srv := server.NewServer(store, ing, components.Index, &cfg.Server, logger)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutting down")
	if watchSvc != nil {
		watchSvc.Stop()
	}
	watchCancel()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

// printSearchUsage prints search subcommand usage.
func printSearchUsage(fs *flag.FlagSet) {
	fmt.Fprintf(fs.Output(), "Usage: terasu search [flags] <query>\n\n")
	fmt.Fprintf(fs.Output(), "Query is all remaining arguments joined by spaces. Multi-word queries work with or without quotes.\n\n")
	fs.PrintDefaults()
	fmt.Fprintf(fs.Output(), `
Query terms are matched in the result snippets and highlighted.
  • Use --output json for structured output consumable by other apps.
  • Use --output compact for one tab-separated result per line (fzf, cut).
  • Use --color never to replace highlight styling with »text« markers.
  • Use --open 1 to print the top result with its full body highlighted.

Examples:
  terasu search machine learning
  terasu search "machine learning"        # same as above
  terasu search --limit 20 your query
  terasu search --output json "query"
  terasu search --open 1 "machine learning"
`)
}

// buildSearchQuery joins all positional args with spaces so multi-word queries
// work the same with or without shell quoting (e.g. "machine learning" vs machine learning).
func buildSearchQuery(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// splitDirs parses a comma-separated directory list, trimming whitespace
// and dropping empty entries.
func splitDirs(s string) []string {
	var dirs []string
	for _, dir := range strings.Split(s, ",") {
		if dir = strings.TrimSpace(dir); dir != "" {
			dirs = append(dirs, dir)
		}
	}
	return dirs
}

// searchConfigPathFromArgs returns the value of -config/--config from args if present, else defaultPath.
func searchConfigPathFromArgs(args []string, defaultPath string) string {
	for i, a := range args {
		if (a == "-config" || a == "--config") && i+1 < len(args) {
			return args[i+1]
		}
	}
	return defaultPath
}

// searchDefaultsFromConfig loads config at path and returns the default server
// URL, result limit, and color mode for the search and get commands. On load
// failure the built-in defaults are returned.
func searchDefaultsFromConfig(path string) (serverURL string, limit int, color string) {
	serverURL, limit, color = "http://localhost:8080", 10, "auto"
	cfg, _, err := loadConfig(path)
	if err != nil || cfg == nil {
		return serverURL, limit, color
	}
	return cfg.Backend.URL, cfg.Search.Limit, cfg.Display.Color
}

// searchArgsReorder moves any flags (and their values) that appear after the query
// to the front of the slice so that flag.Parse() sees them. Go's flag package
// stops at the first non-flag argument, so "terasu search \"query\" -limit 20"
// would otherwise leave -limit unparsed.
func searchArgsReorder(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

func runSearch() {
	searchArgs := searchArgsReorder(os.Args[2:])
	configPath := searchConfigPathFromArgs(searchArgs, defaultConfigPath)
	defaultServer, defaultLimit, defaultColor := searchDefaultsFromConfig(configPath)

	fs := flag.NewFlagSet("search", flag.ExitOnError)
	_ = fs.String("config", defaultConfigPath, "config file path (used for server URL, limit, and color defaults)")
	serverURL := fs.String("server", defaultServer, "search server URL")
	limit := fs.Int("limit", defaultLimit, "number of results")
	colorMode := fs.String("color", defaultColor, "highlight color mode: auto, always, or never")
	outputFormat := fs.String("output", "text", "output format: text (human-readable), compact (one result per line), or json (parseable)")
	openN := fs.Int("open", 0, "render result N (1-based) with its body highlighted instead of the list")
	debug := fs.Bool("debug", false, "enable debug logging to stderr (requests, responses)")
	fs.Usage = func() { printSearchUsage(fs) }
	_ = fs.Parse(searchArgs)

	if fs.NArg() < 1 {
		printSearchUsage(fs)
		os.Exit(1)
	}
	queryStr := buildSearchQuery(fs.Args())
	if queryStr == "" {
		printSearchUsage(fs)
		os.Exit(1)
	}

	format := cli.OutputText
	switch *outputFormat {
	case "json":
		format = cli.OutputJSON
	case "compact":
		format = cli.OutputCompact
	case "text":
		format = cli.OutputText
	default:
		fmt.Printf("Unknown output format %q; use text, compact, or json\n", *outputFormat)
		os.Exit(1)
	}

	clientOpts := []backend.ClientOption{backend.WithLimit(*limit)}
	if *debug {
		logger, err := utils.NewCLILogger(true)
		if err != nil {
			fmt.Printf("Failed to create logger: %v\n", err)
			os.Exit(1)
		}
		defer logger.Sync()
		clientOpts = append(clientOpts, backend.WithLogger(logger))
	}
	client := backend.NewClient(*serverURL, clientOpts...)
	start := time.Now()
	results, err := client.Search(context.Background(), queryStr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
		os.Exit(1)
	}
	if len(results) == 0 {
		fmt.Fprintln(os.Stderr, session.NoResultsMessage)
		os.Exit(1)
	}
	renderer := cli.NewRenderer(*colorMode)
	matcher := highlight.NewMatcher(query.Tokenize(queryStr))

	if *openN != 0 {
		if *openN < 1 || *openN > len(results) {
			fmt.Fprintf(os.Stderr, "Result %d out of range (1-%d)\n", *openN, len(results))
			os.Exit(1)
		}
		doc := &results[*openN-1]
		if format == cli.OutputJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(doc); err != nil {
				fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
				os.Exit(1)
			}
			return
		}
		cli.WriteDocument(os.Stdout, doc, renderer, matcher)
		return
	}

	response := &models.SearchResponse{
		Query:     queryStr,
		Results:   results,
		Total:     len(results),
		QueryTime: time.Since(start).Milliseconds(),
	}
	if err := cli.WriteSearchResults(os.Stdout, response, format, renderer, matcher); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func runGet() {
	fs := flag.NewFlagSet("get", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "", "search server URL (default from config)")
	queryFlag := fs.String("query", "", "terms to highlight in the document body")
	colorMode := fs.String("color", "", "highlight color mode: auto, always, or never (default from config)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: terasu get [flags] <document-id>")
		os.Exit(1)
	}
	docID := fs.Arg(0)

	defaultServer, _, defaultColor := searchDefaultsFromConfig(*configPath)
	if *serverURL == "" {
		*serverURL = defaultServer
	}
	if *colorMode == "" {
		*colorMode = defaultColor
	}

	client := backend.NewClient(*serverURL)
	doc, err := client.Get(context.Background(), docID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Get failed: %v\n", err)
		os.Exit(1)
	}

	switch *outputFormat {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(doc); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
	case "text":
		renderer := cli.NewRenderer(*colorMode)
		matcher := highlight.NewMatcher(query.Tokenize(*queryFlag))
		cli.WriteDocument(os.Stdout, doc, renderer, matcher)
	default:
		fmt.Fprintf(os.Stderr, "Unknown output format %q; use text or json\n", *outputFormat)
		os.Exit(1)
	}
}

func runRepl() {
	fs := flag.NewFlagSet("repl", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "", "search server URL (default from config)")
	colorMode := fs.String("color", "", "highlight color mode: auto, always, or never (default from config)")
	debug := fs.Bool("debug", false, "enable debug logging to stderr (requests, stale responses)")
	_ = fs.Parse(os.Args[2:])

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *serverURL == "" {
		*serverURL = cfg.Backend.URL
	}
	if *colorMode == "" {
		*colorMode = cfg.Display.Color
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewCLILogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := backend.NewClient(*serverURL,
		backend.WithLogger(logger),
		backend.WithTimeout(time.Duration(cfg.Backend.TimeoutSeconds)*time.Second),
		backend.WithLimit(cfg.Search.Limit),
	)
	sess := session.New(client, session.WithLogger(logger))
	repl := cli.NewREPL(sess, cli.NewRenderer(*colorMode), os.Stdin, os.Stdout)
	if err := repl.Run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Repl failed: %v\n", err)
		os.Exit(1)
	}
}

func runConfig() {
	if len(os.Args) < 3 {
		fmt.Println("Usage: terasu config <init|show> [flags]")
		fmt.Println("  terasu config init   Write the default config file")
		fmt.Println("  terasu config show   Print the resolved configuration")
		os.Exit(1)
	}
	sub := os.Args[2]
	fs := flag.NewFlagSet("config", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	_ = fs.Parse(os.Args[3:])

	switch sub {
	case "init":
		if err := config.Save(*configPath, config.Default()); err != nil {
			fmt.Printf("Failed to write config: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Config written: %s\n", *configPath)
	case "show":
		cfg, resolvedPath, err := loadConfig(*configPath)
		if err != nil {
			fmt.Printf("Failed to load config: %v\n", err)
			os.Exit(1)
		}
		out, err := yaml.Marshal(cfg)
		if err != nil {
			fmt.Printf("Failed to render config: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("# %s\n%s", resolvedPath, out)
	default:
		fmt.Printf("Unknown config subcommand: %s\n", sub)
		os.Exit(1)
	}
}

// Components holds initialized services for the serve command.
type Components struct {
	Store    *corpus.Store
	Index    index.Index
	Ingestor *corpus.Ingestor
}

func (c *Components) Close() {
	if c.Index != nil {
		_ = c.Index.Close()
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger, debug bool) (*Components, error) {
	idx, err := index.NewMemIndex()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize index: %w", err)
	}
	store := corpus.NewStore()
	ingOpts := []corpus.IngestorOption{}
	if debug && logger != nil {
		ingOpts = append(ingOpts, corpus.WithLogger(logger))
	}
	ing := corpus.NewIngestor(store, idx, extract.NewExtractor(), cfg.Corpus.Extensions, ingOpts...)
	return &Components{Store: store, Index: idx, Ingestor: ing}, nil
}

func printUsage() {
	fmt.Println(`terasu - search client with term highlighting

Usage:
  terasu repl [flags]             Interactive search against a running server
  terasu search [flags] <query>   One-shot search with highlighted results
  terasu get [flags] <id>         Fetch one document by id
  terasu serve [flags]            Start the reference search server
  terasu config <init|show>       Manage the config file
  terasu version                  Show version
  terasu help                     Show this help

Serve Flags:
  --config string    Config file path (default: /usr/local/etc/terasu/config.yaml)
  --listen string    Listen address as host:port (overrides config)
  --dir string       Comma-separated corpus directories (overrides config)
  --watch            Watch corpus directories for changes
  --debug            Enable debug logging (file events, ingestion, etc.)

Search Flags:
  --config string    Config file path (used for server URL, limit, and color defaults)
  --server string    Server URL (default from config, or http://localhost:8080)
  --limit int        Number of results (default from config, or 10)
  --color string     Highlight color mode: auto, always, or never
  --output string    Output format: text, compact, or json (default: text)
  --open int         Render result N (1-based) highlighted instead of the list

Get Flags:
  --server string    Server URL (default from config)
  --query string     Terms to highlight in the document body
  --output string    Output format: text or json (default: text)

Repl Flags:
  --config string    Config file path
  --server string    Server URL (default from config)
  --color string     Highlight color mode: auto, always, or never
  --debug            Enable debug logging to stderr

Examples:
  terasu serve --dir ./docs --watch
  terasu repl
  terasu search "machine learning"
  terasu search --output json machine learning
  terasu get --query "machine learning" doc-123
  terasu config init
  terasu config show`)
}
