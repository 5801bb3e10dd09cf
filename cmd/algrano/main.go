// al-grano runs the group-chat summarization bot: it ingests Telegram
// updates, keeps a bounded message history per chat, and produces on-demand
// and scheduled daily summaries through a fallback chain of language models.
//
// Examples:
//
//	export TELEGRAM_BOT_TOKEN=...
//	export OPENAI_API_KEY=...
//	go run ./cmd/algrano -store memory -chain openai:gpt-4o-mini
//
//	export DATABASE_URL=postgres://...
//	go run ./cmd/algrano -store postgres \
//	    -chain openai:gpt-4o,anthropic:claude-3-5-haiku-latest \
//	    -map-chain openai:gpt-4o-mini,ollama:llama3.2
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/mihailmariusiondev/al-grano-bot-sub000/src/bot"
	"github.com/mihailmariusiondev/al-grano-bot-sub000/src/deliver"
	"github.com/mihailmariusiondev/al-grano-bot-sub000/src/models"
	"github.com/mihailmariusiondev/al-grano-bot-sub000/src/schedule"
	"github.com/mihailmariusiondev/al-grano-bot-sub000/src/store"
	"github.com/mihailmariusiondev/al-grano-bot-sub000/src/summarize"
)

var (
	flagStore    = flag.String("store", "memory", "Message store backend: postgres|mongo|memory")
	flagMongoDB  = flag.String("mongo-db", "algrano", "Mongo database name (with -store mongo)")
	flagChain    = flag.String("chain", "openai:gpt-4o-mini", "Fallback chain for final summaries, provider:model[,provider:model...]")
	flagMapChain = flag.String("map-chain", "", "Fallback chain for per-chunk extraction (defaults to -chain)")
	flagBudget   = flag.Int("budget", 0, "Single-call character budget before map-reduce kicks in (0 = default)")
	flagCache    = flag.String("cache", "", "Path for the persistent summary cache (empty disables persistence)")
	flagTZ       = flag.String("tz", "Europe/Madrid", "IANA timezone for daily schedules")
	flagDebug    = flag.Bool("debug", false, "Verbose logging")
)

func main() {
	_ = godotenv.Load()
	flag.Parse()

	logger, err := buildLogger(*flagDebug)
	if err != nil {
		fail(err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	loc, err := time.LoadLocation(*flagTZ)
	if err != nil {
		fail(fmt.Errorf("load timezone %q: %w", *flagTZ, err))
	}

	st, err := openStore(ctx, *flagStore, *flagMongoDB)
	if err != nil {
		fail(err)
	}
	defer st.Close(context.Background())

	finalChain, err := buildChain(ctx, *flagChain, *flagCache, logger)
	if err != nil {
		fail(fmt.Errorf("build -chain: %w", err))
	}
	mapChain := finalChain
	if *flagMapChain != "" {
		mapChain, err = buildChain(ctx, *flagMapChain, "", logger)
		if err != nil {
			fail(fmt.Errorf("build -map-chain: %w", err))
		}
	}

	engine := summarize.NewEngine(finalChain, mapChain, logger)
	if *flagBudget > 0 {
		engine.SingleCallBudget = *flagBudget
	}

	transport, err := newTelegramTransport(os.Getenv("TELEGRAM_BOT_TOKEN"))
	if err != nil {
		fail(err)
	}
	sender := deliver.NewSender(transport, logger)

	// The scheduler's trigger closes over svc, which in turn holds the
	// scheduler, so bind it lazily.
	var svc *bot.Service
	sched := schedule.NewScheduler(func(ctx context.Context, chatID int64) {
		svc.TriggerScheduledSummary(ctx, chatID)
	}, loc, logger)
	svc = bot.NewService(st, engine, sender, sched, logger)

	if err := sched.Start(ctx, bot.ScheduleSource(st)); err != nil {
		fail(err)
	}
	defer sched.Stop()

	logger.Info("bot started",
		zap.String("store", *flagStore),
		zap.String("chain", *flagChain),
		zap.String("tz", *flagTZ))

	if err := runUpdateLoop(ctx, transport, svc, logger); err != nil && ctx.Err() == nil {
		fail(err)
	}
	logger.Info("shutting down")
}

func buildLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func openStore(ctx context.Context, backend, mongoDB string) (store.MessageStore, error) {
	switch backend {
	case "postgres":
		connStr := os.Getenv("DATABASE_URL")
		if connStr == "" {
			return nil, fmt.Errorf("-store postgres needs DATABASE_URL")
		}
		ps, err := store.NewPostgresStore(ctx, connStr)
		if err != nil {
			return nil, err
		}
		if err := ps.CreateSchema(ctx); err != nil {
			return nil, err
		}
		return ps, nil
	case "mongo":
		uri := os.Getenv("MONGODB_URI")
		if uri == "" {
			return nil, fmt.Errorf("-store mongo needs MONGODB_URI")
		}
		return store.NewMongoStore(ctx, uri, mongoDB)
	case "memory":
		return store.NewInMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", backend)
	}
}

// buildChain parses a chain spec and, when cachePath is set, wraps each model
// in the persistent summary cache.
func buildChain(ctx context.Context, spec, cachePath string, logger *zap.Logger) (*models.Chain, error) {
	ms, err := models.ParseChain(ctx, strings.ToLower(spec))
	if err != nil {
		return nil, err
	}
	if cachePath != "" {
		for i, m := range ms {
			// One cache file per model so saves never clobber each
			// other's entries.
			path := fmt.Sprintf("%s.%d.json", cachePath, i)
			ms[i] = models.NewCachedModel(m, 256, 24*time.Hour, path)
		}
	}
	return models.NewChain(logger, ms...), nil
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, "error:", err)
	os.Exit(1)
}
