package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"quizbank-service/internal/app"
	"quizbank-service/internal/config"
	"quizbank-service/internal/infra/bank"
	"quizbank-service/internal/infra/ledger"
	"quizbank-service/internal/infra/memory"
	pgbank "quizbank-service/internal/infra/postgres"
	redissession "quizbank-service/internal/infra/redis"
	"quizbank-service/internal/infra/xlsx"
	transport "quizbank-service/internal/transport/http"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

const (
	defaultBankPath  = "data/question_bank.xlsx"
	defaultBankSheet = "Sheet1"
	defaultLedgerDir = "data"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Bank.PostgresURL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var loader bank.Loader
	var editor app.BankEditor
	if cfg.Bank.PostgresURL != "" {
		pool, err := pgxpool.Connect(ctx, cfg.Bank.PostgresURL)
		if err != nil {
			return err
		}
		defer pool.Close()
		loader = pgbank.NewBankLoader(pool)
		editor = pgbank.NewBankEditor(pool)
	} else {
		path := cfg.Bank.Path
		if path == "" {
			path = defaultBankPath
		}
		sheet := cfg.Bank.Sheet
		if sheet == "" {
			sheet = defaultBankSheet
		}
		fileBank := xlsx.NewBank(path, sheet)
		loader = fileBank
		editor = fileBank
	}
	bankRepo := bank.NewRepository(loader, config.TTLDuration(cfg.Bank.TTL, 10*time.Minute))

	var store app.SessionRepository
	if cfg.Redis.Addr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		store = redissession.NewSessionStore(redisClient, config.TTLDuration(cfg.Redis.TTL, 10*time.Minute))
	} else {
		store = memory.NewSessionStore()
	}

	ledgerDir := cfg.Ledger.Dir
	if ledgerDir == "" {
		ledgerDir = defaultLedgerDir
	}
	wrong := ledger.NewWrongStore(filepath.Join(ledgerDir, "wrong_answers.csv"))
	attempts := ledger.NewAttemptStore(filepath.Join(ledgerDir, "attempts.csv"))
	audit := ledger.NewAuditStore(filepath.Join(ledgerDir, "bank_audit.csv"))

	service := app.NewQuizService(store, bankRepo, editor, wrong, attempts, audit)
	wsHandler := transport.NewWSHandler(service)
	adminHandler := transport.NewAdminHandler(service, cfg.Admin.Passphrase)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", wsHandler.ServeWS)
	adminHandler.Register(mux)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting quizbank service on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
