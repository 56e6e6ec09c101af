package main

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/zombor/driver-intake/internal/extraction"
	"github.com/zombor/driver-intake/internal/identity"
	"github.com/zombor/driver-intake/internal/permit"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

func main() {
	// Check for version flag before parsing other flags
	for _, arg := range os.Args[1:] {
		if arg == "--version" || arg == "-version" || arg == "-v" {
			fmt.Println(version)
			os.Exit(0)
		}
	}

	// A missing .env file is fine; flags and the environment still apply
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "error loading .env: %v\n", err)
		os.Exit(1)
	}

	fs := ff.NewFlagSet("driver-intake")
	var (
		port         = fs.IntLong("port", 8080, "HTTP server port")
		dbPath       = fs.StringLong("db", "driver-intake.db", "Database file path")
		storagePath  = fs.StringLong("storage", "./documents", "Storage directory path for document and driver photos")
		provider     = fs.StringLong("provider", "openai", "Inference provider: 'openai', 'gemini' or 'ollama'")
		model        = fs.StringLong("model", "", "Model name (defaults per provider: gpt-4o, gemini-2.5-pro, llava)")
		openaiKey    = fs.StringLong("openai-key", "", "OpenAI API key (or set OPENAI_API_KEY env var)")
		openaiURL    = fs.StringLong("openai-url", "", "OpenAI-compatible API base URL (optional)")
		geminiKey    = fs.StringLong("gemini-key", "", "Google Gemini API key (or set GEMINI_API_KEY env var)")
		ollamaURL    = fs.StringLong("ollama-url", "http://localhost:11434", "Ollama API base URL")
		timeout      = fs.DurationLong("timeout", 60*time.Second, "Maximum time to wait for an extraction")
		maxImageEdge = fs.IntLong("max-image-edge", 1600, "Longest image edge sent for inference; negative disables scaling")
		clearOnEntry = fs.BoolDefault(0, "clear-on-entry", true, "Clear the stored record whenever the capture page is opened")
		authUser     = fs.StringLong("auth-user", "", "Basic auth username (optional)")
		authPass     = fs.StringLong("auth-pass", "", "Basic auth password (optional)")
		logLevel     = fs.StringLong("log-level", "info", "Log level: debug, info, warn or error")
		showVersion  = fs.BoolLong("version", "Show version information")
	)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("DRIVER_INTAKE"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	// Check version flag after parsing
	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(*logLevel)); err != nil {
		fmt.Fprintf(os.Stderr, "error: invalid log level %q\n", *logLevel)
		os.Exit(1)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize database
	slog.Info("Initializing database...", "path", *dbPath)
	db, err := identity.OpenDB(*dbPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	store, err := identity.NewBoltStore(db)
	if err != nil {
		slog.Error("Failed to initialize record store", "error", err)
		os.Exit(1)
	}
	registry, err := permit.NewBoltDB(db)
	if err != nil {
		slog.Error("Failed to initialize driver registry", "error", err)
		os.Exit(1)
	}

	extractor, err := newExtractor(ctx, *provider, *model, *openaiKey, *openaiURL, *geminiKey, *ollamaURL)
	if err != nil {
		slog.Error("Failed to initialize extractor", "provider", *provider, "error", err)
		os.Exit(1)
	}
	defer extractor.Close()

	// Initialize storage
	slog.Info("Initializing storage...", "path", *storagePath)
	files, err := identity.NewLocalStorage(*storagePath)
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}

	builder := extraction.NewBuilder(*model, *maxImageEdge)
	identityService := identity.NewService(store, files, extractor, builder, *timeout)
	permitService := permit.NewService(registry, files)

	server := identity.NewServer(identityService, identity.Config{
		BasicAuth: identity.BasicAuth{
			Username: *authUser,
			Password: *authPass,
		},
		ClearOnEntry: *clearOnEntry,
	})
	permit.NewHandlers(permitService).RegisterRoutes(server)

	addr := fmt.Sprintf(":%d", *port)
	slog.Info("Server starting", "address", fmt.Sprintf("http://localhost%s", addr), "extractor", extractor.Name())
	if *authUser != "" || *authPass != "" {
		slog.Info("Basic auth enabled", "user", *authUser)
	}

	if err := server.Start(ctx, addr); err != nil {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}
	slog.Info("Server stopped")
}

// newExtractor creates the inference provider selected by name
func newExtractor(ctx context.Context, provider, model, openaiKey, openaiURL, geminiKey, ollamaURL string) (extraction.Extractor, error) {
	switch provider {
	case "openai":
		apiKey := openaiKey
		if apiKey == "" {
			apiKey = os.Getenv("OPENAI_API_KEY")
		}
		if apiKey == "" {
			return nil, errors.New("OpenAI API key is required. Set --openai-key flag or OPENAI_API_KEY environment variable")
		}
		slog.Info("Initializing OpenAI extractor...", "model", model)
		return extraction.NewOpenAI(apiKey, openaiURL, model)
	case "gemini":
		apiKey := geminiKey
		if apiKey == "" {
			apiKey = os.Getenv("GEMINI_API_KEY")
		}
		if apiKey == "" {
			return nil, errors.New("Gemini API key is required. Set --gemini-key flag or GEMINI_API_KEY environment variable")
		}
		slog.Info("Initializing Gemini extractor...", "model", model)
		return extraction.NewGemini(ctx, apiKey, model)
	case "ollama":
		slog.Info("Initializing Ollama extractor...", "url", ollamaURL, "model", model)
		return extraction.NewOllama(ollamaURL, model)
	default:
		return nil, fmt.Errorf("invalid provider %q, valid: openai, gemini or ollama", provider)
	}
}
