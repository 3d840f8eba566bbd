package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/pavelanni/academy/internal/auth"
	"github.com/pavelanni/academy/internal/handler"
	appI18n "github.com/pavelanni/academy/internal/i18n"
	"github.com/pavelanni/academy/internal/llm"
	"github.com/pavelanni/academy/internal/llm/prompts"
	"github.com/pavelanni/academy/internal/model"
	"github.com/pavelanni/academy/internal/report"
	"github.com/pavelanni/academy/internal/storage"
	"github.com/pavelanni/academy/internal/store"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:     "academy",
		Short:   "Learning platform API with AI-generated summaries and tests",
		Version: version,
	}

	serve := serveCmd()
	root.AddCommand(serve, exportCmd(), hashPasswordCmd())

	// Make "serve" the default when no subcommand is given.
	root.RunE = serve.RunE

	// Register serve flags on root so bare `academy --addr ...` still works.
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

func addStoreFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("db-driver", string(store.DriverSQLite), "Database driver (sqlite, postgres)")
	f.String("db", "academy.db", "SQLite database path or PostgreSQL DSN")
}

func addLogFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE:  runServe,
	}
	f := cmd.Flags()
	f.StringP("addr", "a", ":8000", "HTTP listen address")
	f.String("jwt-secret", "", "HMAC secret for access tokens (or set ACADEMY_JWT_SECRET)")
	f.Duration("token-ttl", auth.DefaultTokenTTL, "Access token lifetime")
	f.String("llm-url", "http://localhost:11434/v1", "OpenAI-compatible API base URL")
	f.String("llm-key", "ollama", "API key for LLM")
	f.String("llm-model", "llama3.2", "LLM model name")
	f.Duration("llm-timeout", 60*time.Second, "Timeout of one LLM request")
	f.Duration("llm-retry-backoff", 2*time.Second, "Pause before retrying a failed LLM request")
	f.IntP("num-questions", "n", 5, "Number of questions in a generated test")
	f.Int("max-source-chars", prompts.DefaultMaxSourceRunes, "Maximum characters of course text sent to the LLM")
	f.StringP("lang", "l", "ru", "Default language of messages and generated content (en, ru)")
	f.String("upload-dir", "uploads", "Directory for uploaded course files")
	f.Int64("max-upload-mb", 20, "Maximum size of an uploaded course file in MB")
	f.StringSlice("cors-origins", nil, "Allowed CORS origins (repeatable)")
	f.Int("ai-rate-per-min", 10, "AI generation requests allowed per user per minute (0 = unlimited)")
	f.Duration("request-timeout", 3*time.Minute, "Maximum duration of one HTTP request")
	f.Bool("allow-methodist-signup", false, "Allow self-registration with the methodist role")
	f.String("methodist-email", "methodist@example.com", "Email of the methodist seeded into an empty database")
	f.String("methodist-password", "", "Password of the seeded methodist (or set ACADEMY_METHODIST_PASSWORD)")
	f.String("methodist-name", "Methodist", "Full name of the seeded methodist")
	addStoreFlags(cmd)
	addLogFlags(cmd)
	return cmd
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export test results as CSV",
		RunE:  runExport,
	}
	f := cmd.Flags()
	f.Int64("course-id", 0, "Only export results of this course (0 = all)")
	f.String("delimiter", ";", "Field delimiter (; or ,)")
	f.String("granularity", string(report.PerResult), "One row per result or per answer (result, answer)")
	f.StringP("lang", "l", "ru", "Language of headers and yes/no values (en, ru)")
	f.StringP("output", "o", "-", "Output file path (- for stdout)")
	addStoreFlags(cmd)
	addLogFlags(cmd)
	return cmd
}

func hashPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password [password]",
		Short: "Print the bcrypt hash of a password read from the argument or stdin",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var password string
			if len(args) == 1 {
				password = args[0]
			} else {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && !errors.Is(err, io.EOF) {
					return fmt.Errorf("read password: %w", err)
				}
				password = strings.TrimRight(line, "\r\n")
			}
			if password == "" {
				return errors.New("password must not be empty")
			}
			hash, err := auth.HashPassword(password)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), hash)
			return err
		},
	}
}

func setupLogging(v *viper.Viper) {
	var logLevel slog.Level
	switch strings.ToLower(v.GetString("log-level")) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	handlerOpts := &slog.HandlerOptions{Level: logLevel}
	var logHandler slog.Handler
	switch strings.ToLower(v.GetString("log-format")) {
	case "json":
		logHandler = slog.NewJSONHandler(os.Stderr, handlerOpts)
	default:
		logHandler = slog.NewTextHandler(os.Stderr, handlerOpts)
	}
	slog.SetDefault(slog.New(logHandler))
}

// viperForCmd binds a command's flags and environment to a fresh viper instance.
func viperForCmd(cmd *cobra.Command) *viper.Viper {
	v := viper.New()
	_ = v.BindPFlags(cmd.Flags())

	v.SetEnvPrefix("ACADEMY")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("academy")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/academy")
	v.AddConfigPath("/etc/academy")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			slog.Warn("error reading config file", "error", err)
		}
	} else {
		slog.Info("loaded config file", "path", v.ConfigFileUsed())
	}

	return v
}

func openStore(ctx context.Context, v *viper.Viper) (*store.Store, error) {
	openCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	db, err := store.Open(openCtx, store.Driver(v.GetString("db-driver")), v.GetString("db"))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return db, nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	v := viperForCmd(cmd)
	setupLogging(v)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	lang := v.GetString("lang")
	if err := appI18n.Init(lang); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}

	db, err := openStore(ctx, v)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := seedMethodist(ctx, db, v); err != nil {
		return fmt.Errorf("seed methodist: %w", err)
	}

	blobs, err := storage.NewFSStore(v.GetString("upload-dir"))
	if err != nil {
		return fmt.Errorf("open upload dir: %w", err)
	}

	tokens, err := auth.NewService(v.GetString("jwt-secret"), v.GetDuration("token-ttl"))
	if err != nil {
		return fmt.Errorf("create token service: %w", err)
	}

	llmClient, err := llm.New(
		v.GetString("llm-url"),
		v.GetString("llm-key"),
		v.GetString("llm-model"),
		llm.Options{
			Timeout:        v.GetDuration("llm-timeout"),
			RetryBackoff:   v.GetDuration("llm-retry-backoff"),
			MaxSourceRunes: v.GetInt("max-source-chars"),
			Language:       prompts.Language(lang),
		},
	)
	if err != nil {
		return fmt.Errorf("create LLM client: %w", err)
	}
	// Generation endpoints report 502 while the LLM is down; the rest of the API still serves.
	if err := llmClient.Ping(ctx); err != nil {
		slog.Warn("LLM health check failed", "url", v.GetString("llm-url"), "error", err)
	} else {
		slog.Info("LLM endpoint OK", "url", v.GetString("llm-url"), "model", v.GetString("llm-model"))
	}

	cfg := model.ServerConfig{
		NumQuestions:         v.GetInt("num-questions"),
		MaxUploadBytes:       v.GetInt64("max-upload-mb") << 20,
		AllowMethodistSignup: v.GetBool("allow-methodist-signup"),
		AIRatePerMinute:      v.GetInt("ai-rate-per-min"),
		Version:              version,
	}
	h, err := handler.New(db, llmClient, blobs, tokens, cfg)
	if err != nil {
		return fmt.Errorf("create handler: %w", err)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(v.GetDuration("request-timeout")))
	if origins := v.GetStringSlice("cors-origins"); len(origins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   origins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Authorization", "Content-Type", "Accept-Language"},
			ExposedHeaders:   []string{"Content-Length", "Content-Disposition"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}
	h.Routes(r)

	srv := &http.Server{
		Addr:              v.GetString("addr"),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	slog.Info("starting server",
		"addr", srv.Addr,
		"version", version,
		"db_driver", v.GetString("db-driver"),
		"model", v.GetString("llm-model"),
		"llm_url", v.GetString("llm-url"),
		"lang", lang,
		"num_questions", cfg.NumQuestions,
		"max_upload_bytes", cfg.MaxUploadBytes,
		"ai_rate_per_min", cfg.AIRatePerMinute,
		"allow_methodist_signup", cfg.AllowMethodistSignup,
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func runExport(cmd *cobra.Command, _ []string) error {
	v := viperForCmd(cmd)
	setupLogging(v)
	ctx := cmd.Context()

	if err := appI18n.Init(v.GetString("lang")); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}
	delim, err := report.ParseDelimiter(v.GetString("delimiter"))
	if err != nil {
		return err
	}
	gran, err := report.ParseGranularity(v.GetString("granularity"))
	if err != nil {
		return err
	}

	db, err := openStore(ctx, v)
	if err != nil {
		return err
	}
	defer db.Close()

	rows, err := db.ExportResults(ctx, v.GetInt64("course-id"))
	if err != nil {
		return fmt.Errorf("export results: %w", err)
	}

	outPath := v.GetString("output")
	var w io.Writer
	if outPath == "" || outPath == "-" {
		w = cmd.OutOrStdout()
	} else {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	if err := report.WriteCSV(ctx, w, rows, report.Options{Delimiter: delim, Granularity: gran}); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	slog.Info("exported results", "rows", len(rows), "output", outPath)
	return nil
}

func seedMethodist(ctx context.Context, db *store.Store, v *viper.Viper) error {
	count, err := db.UserCount(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	password := v.GetString("methodist-password")
	if password == "" {
		return errors.New("methodist password is required for an empty database: set --methodist-password flag or ACADEMY_METHODIST_PASSWORD env var")
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash methodist password: %w", err)
	}

	email := v.GetString("methodist-email")
	if _, err := db.CreateUser(ctx, model.User{
		Email:        email,
		FullName:     v.GetString("methodist-name"),
		PasswordHash: hash,
		Role:         model.UserRoleMethodist,
	}); err != nil {
		return fmt.Errorf("create methodist user: %w", err)
	}

	slog.Info("seeded methodist user", "email", email)
	return nil
}
