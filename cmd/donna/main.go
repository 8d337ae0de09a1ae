package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/donna-ai/donna/internal/api"
	"github.com/donna-ai/donna/internal/executor"
	"github.com/donna-ai/donna/internal/intent"
	"github.com/donna-ai/donna/internal/observability"
	"github.com/donna-ai/donna/internal/plan"
	"github.com/donna-ai/donna/internal/resolve"
	"github.com/donna-ai/donna/internal/semantic"
	"github.com/donna-ai/donna/internal/store"
	"github.com/donna-ai/donna/internal/tools"
	"github.com/donna-ai/donna/pkg/config"
)

func main() {
	observability.PrintBanner()
	observability.InitializeTerminal()

	// Route all log output through the terminal mutex so it never
	// interrupts the dashboard's cursor save/restore sequence.
	log.SetOutput(observability.NewTermWriter())

	cfg := config.LoadConfig("config.yaml")
	logger := observability.NewLogger()

	st, err := store.Open(cfg.Database.Path)
	if err != nil {
		log.Fatal(err)
	}
	defer st.Close()

	// Initialize LLM (using default enabled provider)
	pName, pCfg := cfg.GetDefaultProvider()
	if pName == "" {
		log.Fatal("No enabled provider found in config")
	}

	var llm *openai.LLM
	switch pName {
	case "openai", "openrouter":
		opts := []openai.Option{
			openai.WithToken(pCfg.APIKey),
			openai.WithModel(pCfg.Model),
		}
		if pCfg.EmbeddingModel != "" {
			opts = append(opts, openai.WithEmbeddingModel(pCfg.EmbeddingModel))
		}
		if pCfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(pCfg.BaseURL))
		}
		llm, err = openai.New(opts...)
	default:
		log.Fatalf("Provider %s not yet implemented in main", pName)
	}
	if err != nil {
		log.Fatal(err)
	}
	var model llms.Model = llm

	embedder, err := embeddings.NewEmbedder(llm)
	if err != nil {
		log.Fatal(err)
	}
	index := semantic.NewContextIndex(st, embedder)

	resolver := resolve.NewResolver(st, index,
		resolve.WithScorerConfig(resolve.ScorerConfig{
			ExactMatchThreshold: cfg.Resolver.ExactMatchThreshold,
			FuzzyMatchThreshold: cfg.Resolver.FuzzyMatchThreshold,
			MaxCandidates:       cfg.Resolver.MaxCandidates,
		}),
		resolve.WithMinSemanticSimilarity(cfg.Resolver.MinSemanticSimilarity),
	)

	// Initialize Tools
	registry := tools.NewRegistry()
	registry.Register(tools.NewCreateTaskTool(st))
	registry.Register(tools.NewCompleteTaskTool(st))
	registry.Register(tools.NewCreateEventTool(st))
	registry.Register(tools.NewListAgendaTool(st))
	registry.Register(tools.NewSendEmailTool(st))
	registry.Register(tools.NewAddContactTool(st))
	registry.Register(tools.NewCreateNoteTool(st))
	registry.Register(tools.NewSearchNotesTool(st))

	analyzer := intent.NewAnalyzer(model, logger)
	planner := intent.NewPlanner(model, registry, logger)
	exec := executor.NewExecutor(st, st, registry,
		executor.WithLogger(logger),
		executor.WithApprovalTTL(cfg.Approvals.TTLDuration()),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Surface plans that were mid-flight when the previous process died.
	if interrupted, err := exec.GetInterruptedPlans(ctx, cfg.App.UserID); err == nil {
		for _, p := range interrupted {
			log.Printf("[WARN] plan %s (%q) was interrupted mid-execution", p.ID, p.Goal)
		}
	}

	// Background sweeps: stale approvals expire on a cron schedule.
	sweeper := cron.New()
	if _, err := sweeper.AddFunc(cfg.Approvals.SweepSchedule, func() {
		n, err := st.ExpireStaleApprovals(context.Background(), time.Now())
		if err != nil {
			log.Printf("approval sweep failed: %v", err)
			return
		}
		if n > 0 {
			log.Printf("expired %d stale approvals", n)
		}
	}); err != nil {
		log.Fatal(err)
	}
	sweeper.Start()
	defer sweeper.Stop()

	// Live Resource Dashboard (1-second updates)
	go func() {
		ticker := time.NewTicker(1 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				observability.PrintLiveStatus()
			}
		}
	}()

	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				observability.Heartbeat()
				logger.LogHeartbeat()
				updateCounts(ctx, st, cfg.App.UserID)
			}
		}
	}()

	server := api.NewServer(cfg.App.UserID, st, resolver, analyzer, planner, exec, logger)
	httpSrv := &http.Server{Addr: cfg.Server.Addr, Handler: server.Router()}

	go func() {
		log.Printf("listening on %s", cfg.Server.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("\033[91m[ FAIL ] SERVER CRITICAL ERROR: %v\033[0m", err)
			stop()
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = httpSrv.Shutdown(shutdownCtx)

	// Reset terminal aesthetics
	observability.CleanupTerminal()
	log.Println("\033[95m[ EXIT ] DONNA DE-INITIALIZED. GOODBYE.\033[0m")
}

func updateCounts(ctx context.Context, st *store.Store, userID string) {
	paused, err := st.ListPlansByStatus(ctx, userID, plan.StatusPaused)
	if err != nil {
		return
	}
	approvals, err := st.ListPendingApprovals(ctx, userID)
	if err != nil {
		return
	}
	observability.SetCounts(len(paused), len(approvals))
}
