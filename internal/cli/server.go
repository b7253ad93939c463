package cli

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"github.com/wmtylerbrown/lingible-sub000/internal/app"
	"github.com/wmtylerbrown/lingible-sub000/internal/config"
	"github.com/wmtylerbrown/lingible-sub000/internal/domain"
	"github.com/wmtylerbrown/lingible-sub000/internal/infra/memory"
	pgstore "github.com/wmtylerbrown/lingible-sub000/internal/infra/postgres"
	redisinfra "github.com/wmtylerbrown/lingible-sub000/internal/infra/redis"
	"github.com/wmtylerbrown/lingible-sub000/internal/quiz"
	transport "github.com/wmtylerbrown/lingible-sub000/internal/transport/http"
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

	if cfg.Postgres.URL != "" {
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

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}
	termTTL := config.TTLDuration(cfg.Redis.TTL, 10*time.Minute)
	sessionTTL := config.TTLDuration(cfg.Quiz.SessionTTL, 24*time.Hour)
	idleWindow := config.TTLDuration(cfg.Quiz.IdleWindow, 15*time.Minute)
	freeDailyLimit := cfg.Quiz.FreeDailyLimit
	if freeDailyLimit <= 0 {
		freeDailyLimit = 3
	}

	var pool *pgxpool.Pool
	var bundb *bun.DB
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.Postgres.URL)))
		bundb = bun.NewDB(sqldb, pgdialect.New())
	}

	var loader memory.TermLoader = memory.NewStaticTermLoader(sampleTerms())
	if pool != nil {
		loader = pgstore.NewTermSource(pool)
	}

	var terms app.TermSource
	if redisClient != nil {
		terms = redisinfra.NewTermCache(redisClient, loader, termTTL)
	} else {
		terms = memory.NewTermCache(loader, termTTL)
	}

	var sessions app.SessionStore
	if redisClient != nil {
		sessions = redisinfra.NewSessionStore(redisClient, idleWindow, sessionTTL)
	} else {
		sessions = memory.NewSessionStore(idleWindow, sessionTTL)
	}

	var quota app.QuotaTracker
	if redisClient != nil {
		quota = redisinfra.NewQuotaTracker(redisClient)
	} else {
		quota = memory.NewQuotaTracker()
	}

	var history app.HistoryStore = memory.NewHistoryStore()
	if bundb != nil {
		history = pgstore.NewHistoryStore(bundb)
	}

	distractorPool, err := quiz.LoadPool(cfg.Quiz.PoolPath)
	if err != nil {
		return err
	}
	generator := quiz.NewGenerator(distractorPool, terms.MeaningsInCategory)

	service := app.NewQuizService(app.Deps{
		Sessions:  sessions,
		Terms:     terms,
		Users:     memory.NewStaticUserTiers(cfg.Quiz.PremiumUsers),
		Quota:     quota,
		History:   history,
		Generator: generator,
	}, idleWindow, freeDailyLimit)
	wsHandler := transport.NewWSHandler(service)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", wsHandler.ServeWS)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting slang quiz service on :%s", finalPort)
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

// sampleTerms provides a minimal slang inventory; the Postgres term source
// replaces this in production.
func sampleTerms() []domain.Term {
	return []domain.Term{
		{Name: "bussin", Meaning: "really good; delicious", Example: "This pizza is bussin!", Category: "food", Difficulty: domain.DifficultyBeginner},
		{Name: "mid", Meaning: "mediocre; thoroughly average", Example: "The sequel was mid.", Category: "approval", Difficulty: domain.DifficultyBeginner},
		{Name: "bet", Meaning: "okay; agreed", Example: "Movie at eight? Bet.", Category: "social", Difficulty: domain.DifficultyBeginner},
		{Name: "salty", Meaning: "bitter or upset over something small", Example: "He's still salty about losing.", Category: "emotion", Difficulty: domain.DifficultyBeginner},
		{Name: "ghost", Meaning: "to cut off contact without explanation", Example: "She ghosted him after two dates.", Category: "social", Difficulty: domain.DifficultyIntermediate},
		{Name: "flex", Meaning: "to show off", Example: "Nice watch, no need to flex though.", Category: "social", Difficulty: domain.DifficultyIntermediate},
		{Name: "gassed", Meaning: "overly excited; full of yourself", Example: "Don't get gassed over one win.", Category: "emotion", Difficulty: domain.DifficultyIntermediate},
		{Name: "ratio", Meaning: "to out-engage a post with a reply", Example: "That take got ratioed instantly.", Category: "social", Difficulty: domain.DifficultyAdvanced},
		{Name: "rizz", Meaning: "charisma; charm with romantic interests", Example: "He's got unspoken rizz.", Category: "social", Difficulty: domain.DifficultyAdvanced},
	}
}
