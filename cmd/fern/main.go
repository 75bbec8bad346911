// # cmd/fern/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"fern/internal/core/config"
	"fern/internal/engine/language"
	"fern/internal/engine/language/langtest"
	"fern/internal/engine/syntax"
	"fern/internal/shared/observability"
)

var (
	configPath = flag.String("config", "./fern.toml", "Path to config file")
	genGrammar = flag.Bool("gen-grammar", false, "Write the built-in demo grammar into grammars_dir and exit")
	watchMode  = flag.Bool("watch", false, "Keep running and reload grammar artifacts on change")
	sexp       = flag.Bool("sexp", true, "Print each file's tree as an s-expression")
	verbose    = flag.Bool("verbose", false, "Enable verbose logging")
	version    = flag.Bool("version", false, "Print version and exit")
)

const VERSION = "0.3.0"

func main() {
	flag.Parse()

	if *version {
		fmt.Printf("fern v%s\n", VERSION)
		os.Exit(0)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		if *configPath != "./fern.toml" {
			fmt.Fprintf(os.Stderr, "config: %v\n", err)
			os.Exit(1)
		}
		// No config next to the binary is fine; run on defaults.
		cfg = config.Default()
	}

	logLevel := slog.LevelInfo
	if *verbose || cfg.Log.Level == "debug" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdown, err := observability.SetupTracing(ctx, cfg.Tracing.Endpoint)
	if err != nil {
		slog.Warn("tracing disabled", "error", err)
	} else {
		defer shutdown(context.Background())
	}

	if *genGrammar {
		if err := writeDemoGrammar(cfg.GrammarsDir); err != nil {
			fmt.Fprintf(os.Stderr, "gen-grammar: %v\n", err)
			os.Exit(1)
		}
		return
	}

	reg := language.NewRegistry()
	if err := reg.LoadDir(cfg.GrammarsDir); err != nil {
		fmt.Fprintf(os.Stderr, "grammars: %v\n", err)
		os.Exit(1)
	}
	if err := routePatterns(reg, cfg); err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	observability.LanguagesLoaded.Set(float64(len(reg.IDs())))
	slog.Info("registry ready", "languages", reg.IDs())

	if cfg.Metrics.Enabled {
		go serveMetrics(cfg.Metrics.Address)
	}

	if err := parseFiles(ctx, reg, cfg, flag.Args()); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	if *watchMode || cfg.Watch.Enabled {
		if err := reg.Watch(ctx, cfg.GrammarsDir, cfg.Watch.Debounce); err != nil {
			fmt.Fprintf(os.Stderr, "watch: %v\n", err)
			os.Exit(1)
		}
		slog.Info("watching grammar artifacts", "dir", cfg.GrammarsDir)
		<-ctx.Done()
	}
}

func writeDemoGrammar(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	manifestPath, err := language.WriteArtifact(langtest.Language(), dir)
	if err != nil {
		return err
	}
	slog.Info("grammar artifact written", "manifest", manifestPath)
	return nil
}

// routePatterns wires config path patterns into the registry. Languages
// without explicit patterns fall back to "*.<name>".
func routePatterns(reg *language.Registry, cfg *config.Config) error {
	configured := make(map[string]bool)
	for id, lc := range cfg.Languages {
		if lc.Enabled != nil && !*lc.Enabled {
			configured[id] = true
			continue
		}
		for _, pattern := range lc.Patterns {
			if err := reg.AddPattern(pattern, id); err != nil {
				return err
			}
			configured[id] = true
		}
	}
	for _, id := range reg.IDs() {
		if !configured[id] {
			if err := reg.AddPattern("*."+id, id); err != nil {
				return err
			}
		}
	}
	return nil
}

func parseFiles(ctx context.Context, reg *language.Registry, cfg *config.Config, paths []string) error {
	if len(paths) == 0 {
		return nil
	}

	pools := make(map[string]*syntax.Pool)
	for _, id := range reg.IDs() {
		lang, _ := reg.Language(id)
		pool, err := syntax.NewPool(lang)
		if err != nil {
			return err
		}
		pools[id] = pool
	}

	var (
		wg      sync.WaitGroup
		outMu   sync.Mutex
		failed  bool
		jobs    = make(chan string)
		workers = cfg.Parse.Workers
	)
	if workers > len(paths) {
		workers = len(paths)
	}
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for path := range jobs {
				ok := parseOne(ctx, reg, pools, path, &outMu)
				if !ok {
					outMu.Lock()
					failed = true
					outMu.Unlock()
				}
			}
		}()
	}
	for _, path := range paths {
		jobs <- path
	}
	close(jobs)
	wg.Wait()

	if failed {
		return fmt.Errorf("some files could not be parsed")
	}
	return nil
}

func parseOne(ctx context.Context, reg *language.Registry, pools map[string]*syntax.Pool, path string, outMu *sync.Mutex) bool {
	lang, ok := reg.LanguageForPath(path)
	if !ok {
		slog.Error("no language for file", "path", path)
		return false
	}
	src, err := os.ReadFile(path)
	if err != nil {
		slog.Error("read failed", "path", path, "error", err)
		return false
	}

	pool := pools[lang.Name]
	sp := pool.Get()
	defer pool.Put(sp)

	start := time.Now()
	tree, err := sp.Parse(ctx, src, nil)
	if err != nil {
		slog.Error("parse failed", "path", path, "error", err)
		return false
	}
	defer tree.Close()

	root := tree.Root()
	slog.Info("parsed",
		"path", path,
		"language", lang.Name,
		"bytes", len(src),
		"has_error", root.HasError(),
		"took", time.Since(start))

	if *sexp {
		outMu.Lock()
		fmt.Printf("%s\t%s\n", path, root.Sexp())
		outMu.Unlock()
	}
	return true
}

func serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	})
	slog.Info("metrics listening", "addr", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		slog.Error("metrics server stopped", "error", err)
	}
}
