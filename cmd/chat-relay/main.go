package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/sealor/chat-relay/pkg/config"
	"github.com/sealor/chat-relay/pkg/gateway"
	"github.com/sealor/chat-relay/pkg/relay"
	"github.com/sealor/chat-relay/pkg/tooling"
	"github.com/sealor/chat-relay/pkg/transport"
	"golang.org/x/sync/errgroup"
)

func main() {
	configFile := flag.String("config", "", "Path to a YAML config file")
	addr := flag.String("addr", "", "HTTP listen address")
	apiURL := flag.String("api", "", "URL for the OpenAI API endpoint")
	model := flag.String("model", "", "Technical name of the LLM")
	systemMessage := flag.String("system", "", "System message for new sessions")
	maxTurns := flag.Int("max-turns", 0, "Maximum provider round-trips per user message")
	debugHistory := flag.Bool("debug-history", false, "Mirror raw histories to clients")
	activeLog := flag.Bool("log", false, "Activate OpenAI request logging")

	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load(*configFile)
	if err != nil {
		logger.Error("config", "error", err)
		os.Exit(1)
	}
	if *addr != "" {
		cfg.Addr = *addr
	}
	if *apiURL != "" {
		cfg.APIURL = *apiURL
	}
	if *model != "" {
		cfg.Model = *model
	}
	if *systemMessage != "" {
		cfg.SystemPrompt = *systemMessage
	}
	if *maxTurns > 0 {
		cfg.MaxTurns = *maxTurns
	}
	if *debugHistory {
		cfg.DebugHistory = true
	}
	if *activeLog {
		cfg.Log = true
	}

	options := []option.RequestOption{
		option.WithBaseURL(cfg.APIURL),
	}
	apiKey := config.GetEnv("OPENAI_API_KEY", "")
	if apiKey != "" {
		options = append(options, option.WithAPIKey(apiKey))
	}
	if cfg.Log {
		options = append(options, option.WithDebugLog(nil))
	}
	client := openai.NewClient(options...)

	registry, err := tooling.NewRegistry(
		tooling.CurrentTime{},
		tooling.UserTimeZone{},
		tooling.OrderStatus{},
	)
	if err != nil {
		logger.Error("tool registry", "error", err)
		os.Exit(1)
	}

	manager := relay.NewManager(relay.ManagerOptions{
		Orchestrator: &relay.Orchestrator{
			Gateway:  gateway.NewOpenAI(client, cfg.Model),
			Registry: registry,
			MaxTurns: cfg.MaxTurns,
			Logger:   logger.With("component", "orchestrator"),
		},
		SystemPrompt: cfg.SystemPrompt,
		DebugHistory: cfg.DebugHistory,
		Logger:       logger.With("component", "relay"),
	})

	ws := transport.NewServer(manager, logger.With("component", "transport"))
	manager.SetEmitter(ws)

	mux := http.NewServeMux()
	mux.Handle("/ws", ws)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	server := &http.Server{Addr: cfg.Addr, Handler: mux}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Info("chat relay listening", "addr", cfg.Addr, "model", cfg.Model)
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		logger.Error("server", "error", err)
		os.Exit(1)
	}
}
