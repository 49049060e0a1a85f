package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/harentsoaR/clinic-api/internal/cache"
	"github.com/harentsoaR/clinic-api/internal/config"
	"github.com/harentsoaR/clinic-api/internal/handlers"
	"github.com/harentsoaR/clinic-api/internal/router"
	"github.com/harentsoaR/clinic-api/internal/services"
	"github.com/harentsoaR/clinic-api/internal/store"
	"github.com/harentsoaR/clinic-api/internal/store/memstore"
	"github.com/harentsoaR/clinic-api/internal/utils"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "clinic-api",
		Short:         "Clinic management API server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(createUserCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newLogger() zerolog.Logger {
	if os.Getenv("ENV") == "development" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

func serveCmd() *cobra.Command {
	var inMemory bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(inMemory)
		},
	}
	cmd.Flags().BoolVar(&inMemory, "memory", false, "keep data in memory instead of MongoDB")
	return cmd
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the MongoDB indexes",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			cfg, err := config.Load(config.Options{})
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			client, err := store.Connect(ctx, cfg.MongoURI)
			if err != nil {
				return err
			}
			defer client.Disconnect(context.Background())

			if err := store.EnsureIndexes(ctx, client.Database(cfg.MongoDatabase)); err != nil {
				return err
			}
			logger.Info().Str("database", cfg.MongoDatabase).Msg("indexes are up to date")
			return nil
		},
	}
}

func createUserCmd() *cobra.Command {
	var in services.NewUser
	cmd := &cobra.Command{
		Use:   "create-user",
		Short: "Create an account, e.g. the first finance or admin user",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			cfg, err := config.Load(config.Options{})
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			client, err := store.Connect(ctx, cfg.MongoURI)
			if err != nil {
				return err
			}
			defer client.Disconnect(context.Background())

			db := client.Database(cfg.MongoDatabase)
			if err := store.EnsureIndexes(ctx, db); err != nil {
				return err
			}
			creds := services.NewCredentialStore(store.NewUserStore(db), cfg.BcryptCost)
			user, err := creds.Create(ctx, in)
			if err != nil {
				return err
			}
			logger.Info().Str("user_id", user.ID.Hex()).Str("email", user.Email).Str("role", user.Role).Msg("user created")
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&in.Name, "name", "", "display name")
	f.StringVar(&in.Email, "email", "", "login email")
	f.StringVar(&in.Password, "password", "", "initial password")
	f.StringVar(&in.Role, "role", "admin", "patient, doctor, finance or admin")
	f.StringVar(&in.Specialization, "specialization", "", "doctor specialization")
	f.StringVar(&in.Phone, "phone", "", "phone number")
	f.StringVar(&in.Address, "address", "", "postal address")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func runServer(inMemory bool) error {
	logger := newLogger()

	cfg, err := config.Load(config.Options{SkipMongo: inMemory})
	if err != nil {
		logger.Error().Err(err).Msg("refusing to start: invalid configuration")
		return err
	}
	if !cfg.IsDev() {
		gin.SetMode(gin.ReleaseMode)
	}
	logger.Info().
		Str("env", cfg.Env).
		Str("port", cfg.Port).
		Str("database", cfg.MongoDatabase).
		Bool("memory", inMemory).
		Bool("redis", cfg.RedisEnabled()).
		Msg("starting clinic api")

	ctx := context.Background()

	// --- Persistence ---
	var (
		users  services.UserRepository
		visits services.VisitRepository
		client *mongo.Client
	)
	if inMemory {
		mem := memstore.New()
		users, visits = mem.Users(), mem.Visits()
		logger.Warn().Msg("using in-memory store; data is lost on exit")
	} else {
		client, err = store.Connect(ctx, cfg.MongoURI)
		if err != nil {
			logger.Error().Err(err).Msg("failed to connect to MongoDB")
			return err
		}
		defer client.Disconnect(context.Background())

		db := client.Database(cfg.MongoDatabase)
		if err := store.EnsureIndexes(ctx, db); err != nil {
			logger.Error().Err(err).Msg("failed to create indexes")
			return err
		}
		users, visits = store.NewUserStore(db), store.NewVisitStore(db)
		logger.Info().Msg("connected to MongoDB")
	}

	// --- Token revocation ---
	var denylist *cache.Denylist
	if cfg.RedisEnabled() {
		denylist = cache.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, logger)
		defer denylist.Close()
		if err := denylist.Ping(ctx); err != nil {
			logger.Warn().Err(err).Msg("redis unreachable; logout will not revoke tokens until it recovers")
		}
	}

	// --- Services ---
	tokens, err := utils.NewTokenService(cfg.JWTSecret)
	if err != nil {
		return err
	}
	notifier := services.NewNotificationService(cfg.TextbeltAPIKey, cfg.TextbeltURL, logger)
	defer notifier.Wait()
	if !notifier.Enabled() {
		logger.Info().Msg("TEXTBELT_API_KEY not set; booking SMS disabled")
	}
	creds := services.NewCredentialStore(users, cfg.BcryptCost)
	ledger := services.NewLedger(visits, users, notifier, logger)

	h := handlers.NewHandler(creds, ledger, tokens, denylist, logger, cfg.ExposeErrors)
	engine := router.New(router.Config{
		Handler:     h,
		Tokens:      tokens,
		Revocations: denylist,
		Logger:      logger,
		CORSOrigins: cfg.CORSOrigins,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown failed")
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}
