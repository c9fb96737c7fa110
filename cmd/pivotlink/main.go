package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hive-corporation/pivotlink/internal/adapter/credstore"
	"github.com/hive-corporation/pivotlink/internal/adapter/notifier"
	"github.com/hive-corporation/pivotlink/internal/adapter/platform"
	"github.com/hive-corporation/pivotlink/internal/adapter/viewer"
	"github.com/hive-corporation/pivotlink/internal/config"
	"github.com/hive-corporation/pivotlink/internal/core/enrich"
	"github.com/hive-corporation/pivotlink/internal/core/ports"
)

func main() {
	configPath := flag.String("config", config.DefaultConfigPath, "Path to pivotlink.yml")
	once := flag.Bool("once", false, "Run a single reconciliation cycle and exit")
	flag.Parse()

	// Load .env file if it exists (optional)
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found (this is fine if the environment is already set)")
	}

	cfg, err := config.Loader{ConfigPath: *configPath}.Load()
	if err != nil {
		log.Fatalf("❌ Invalid configuration: %v", err)
	}

	secret, err := resolveSecret(cfg)
	if err != nil {
		log.Fatalf("❌ Failed to resolve platform credentials: %v", err)
	}

	vectra := platform.NewVectraClient(platform.Config{
		BaseURL:            cfg.PlatformURL,
		Kind:               ports.CredentialKind(cfg.PlatformKind),
		ClientID:           cfg.ClientID,
		Secret:             secret,
		InsecureSkipVerify: cfg.InsecureSkipVerify,
	}, nil)
	endace := viewer.NewEndace(cfg.ViewerURL)

	var cycleNotifier ports.Notifier
	if cfg.SlackBotToken != "" {
		cycleNotifier = notifier.NewSlackNotifier(cfg.SlackBotToken, cfg.SlackChannel)
		log.Println("✅ Slack notifier enabled")
	} else {
		log.Println("⚠️  Slack notifier disabled (no PIVOTLINK_SLACK_BOT_TOKEN)")
	}

	enrich.InitMetrics()
	runner := enrich.NewRunner(vectra, endace, cycleNotifier)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if *once {
		if _, err := runner.RunOnce(ctx); err != nil {
			log.Fatalf("❌ Reconciliation cycle failed: %v", err)
		}
		return
	}

	srv := newOpsServer(cfg.ListenAddr)
	go func() {
		log.Printf("🚀 Metrics and health listening on %s", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("❌ Failed to start ops server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	log.Printf("🔗 Endace enrichment sync started, interval %s", cfg.Interval)
	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()

	runCycle(ctx, runner)
	for {
		select {
		case <-ticker.C:
			runCycle(ctx, runner)
		case <-quit:
			log.Println("🛑 Shutting down...")
			cancel()
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer shutdownCancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				log.Fatalf("❌ Server forced to shutdown: %v", err)
			}
			log.Println("✅ Stopped gracefully")
			return
		}
	}
}

// runCycle keeps the daemon alive across failed cycles; the next tick tries
// again with fresh platform state.
func runCycle(ctx context.Context, runner *enrich.Runner) {
	if _, err := runner.RunOnce(ctx); err != nil {
		log.Printf("❌ Reconciliation cycle failed: %v", err)
	}
}

// resolveSecret looks up the platform secret: environment first, then the
// per-user credential file, prompting on the terminal when neither has it.
func resolveSecret(cfg config.Config) (string, error) {
	key := cfg.PlatformKind + ":" + cfg.PlatformURL

	env := credstore.Env{Prefix: "PIVOTLINK_SECRET_"}
	if secret, ok := env.Get(cfg.PlatformKind); ok && !cfg.ResetCredentials {
		return secret, nil
	}

	path, err := credstore.DefaultPath()
	if err != nil {
		return "", err
	}

	label := "Enter your Vectra APIv2 token"
	if cfg.PlatformKind == config.KindPortal {
		label = "Enter your Vectra APIv3 client secret"
	}
	return credstore.Prompt(credstore.NewFile(path), key, label, cfg.ResetCredentials)
}

func newOpsServer(addr string) *http.Server {
	router := mux.NewRouter()
	router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{
			"status":    "healthy",
			"service":   "pivotlink",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	}).Methods("GET")
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	return &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}
