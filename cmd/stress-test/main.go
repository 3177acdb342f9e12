package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"helios-backend/ai"
	"helios-backend/config"
	"helios-backend/extractor"
	"helios-backend/fileformat"
	"helios-backend/logger"
	"helios-backend/models"
	"helios-backend/service"

	"go.uber.org/zap"
)

const (
	retryBase = 5 * time.Second
	retryMax  = 40 * time.Second
)

type summary struct {
	succeeded int
	failed    int
	retries   int
	models    map[string]int
	failures  map[string]string
	elapsed   time.Duration
}

func main() {
	dir := flag.String("dir", "./testdata/contracts", "directory of documents to analyze")
	delay := flag.Duration("delay", 3*time.Second, "pause between documents")
	maxRetries := flag.Int("max-retries", 3, "same-document retries on transient failures")
	question := flag.String("question", "", "custom question asked for every document")
	dataPoints := flag.String("data-points", "", "comma separated data points")
	plan := flag.String("plan", string(models.PlanPro), "plan tier used for model selection")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Logging.Level, "console")
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	files, err := collectDocuments(*dir)
	if err != nil {
		log.Fatal("failed to read document directory", zap.String("dir", *dir), zap.Error(err))
	}
	if len(files) == 0 {
		log.Fatal("no supported documents found", zap.String("dir", *dir))
	}

	svc, closeFn, err := buildService(ctx, cfg, log)
	if err != nil {
		log.Fatal("failed to build analysis pipeline", zap.Error(err))
	}
	defer closeFn()

	var points []string
	for _, p := range strings.Split(*dataPoints, ",") {
		if p = strings.TrimSpace(p); p != "" {
			points = append(points, p)
		}
	}

	sum := summary{models: map[string]int{}, failures: map[string]string{}}
	start := time.Now()

	for i, path := range files {
		if ctx.Err() != nil {
			break
		}
		if i > 0 {
			if err := service.ContextSleep(ctx, *delay); err != nil {
				break
			}
		}

		data, err := os.ReadFile(path)
		if err != nil {
			sum.failed++
			sum.failures[path] = err.Error()
			continue
		}
		req := service.AnalyzeDocumentsRequest{
			Documents:      []models.RawDocument{{Filename: filepath.Base(path), Data: data}},
			CustomQuestion: *question,
			DataPoints:     points,
			Plan:           models.PlanTier(*plan),
		}

		res, retries, err := analyzeWithRetry(ctx, svc, req, *maxRetries, log)
		sum.retries += retries
		if err != nil {
			sum.failed++
			sum.failures[path] = err.Error()
			log.Error("stress.document.failed", zap.String("file", path), zap.Int("retries", retries), zap.Error(err))
			continue
		}
		sum.succeeded++
		sum.models[res.Model]++
		log.Info("stress.document.done",
			zap.String("file", path),
			zap.String("model", res.Model),
			zap.Int("attempts", len(res.Attempts)),
			zap.Int("risk_score", res.Analysis.RiskScore),
			zap.Int("tasks", len(res.Tasks)),
		)
	}

	sum.elapsed = time.Since(start)
	printSummary(sum, len(files))
	if sum.failed > 0 {
		os.Exit(1)
	}
}

// analyzeWithRetry retries the whole request on the same inputs when the
// chain ends on a transient error.
func analyzeWithRetry(ctx context.Context, svc *service.ContractService, req service.AnalyzeDocumentsRequest, maxRetries int, log *zap.Logger) (*service.AnalyzeDocumentsResult, int, error) {
	for attempt := 0; ; attempt++ {
		res, err := svc.AnalyzeDocuments(ctx, req)
		if err == nil {
			return res, attempt, nil
		}
		if attempt >= maxRetries || !service.IsRetryableError(err) {
			return nil, attempt, err
		}

		wait := service.BackoffDelay(attempt, retryBase, retryMax)
		log.Warn("stress.document.retry",
			zap.String("file", req.Documents[0].Filename),
			zap.Int("attempt", attempt+1),
			zap.Duration("wait", wait),
			zap.Error(err),
		)
		if err := service.ContextSleep(ctx, wait); err != nil {
			return nil, attempt, err
		}
	}
}

func collectDocuments(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if _, ok := fileformat.AllowedExtension(e.Name()); ok {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

func buildService(ctx context.Context, cfg *config.Config, log *zap.Logger) (*service.ContractService, func(), error) {
	client, err := ai.NewGeminiClient(ctx, cfg.AI.GeminiAPIKey)
	if err != nil {
		return nil, nil, fmt.Errorf("gemini client: %w", err)
	}
	gemini := ai.NewGeminiProvider(client, ai.GeminiWithLogger(log))

	pdf, err := extractor.NewPDFExtractor(ctx)
	if err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("pdf parser: %w", err)
	}

	engine := service.NewAnalysisEngine(ai.NewRouter("gemini").Register("gemini", gemini),
		service.EngineWithConfig(service.EngineConfig{
			FallbackModels:    cfg.AI.FallbackModels,
			CallTimeout:       cfg.AI.CallTimeout,
			BackoffBase:       cfg.AI.BackoffBase,
			BackoffMax:        cfg.AI.BackoffMax,
			Temperature:       cfg.AI.Temperature,
			RetryOnParseError: cfg.AI.RetryOnParseError,
		}),
		service.EngineWithLogger(log),
	)

	svc := service.NewContractService(
		service.WithExtractor(extractor.NewRegistry(
			extractor.WithPDF(pdf),
			extractor.WithImage(extractor.NewImageExtractor(gemini, cfg.AI.OCRModel)),
			extractor.WithLogger(log),
		)),
		service.WithAnalyzer(engine),
		service.WithModelResolver(service.NewModelResolver(cfg.AI.StandardModel, cfg.AI.FastModel, cfg.AI.SizeThreshold, log)),
		service.WithLimits(cfg.Server.MaxFileSize, cfg.Analysis.MaxChars, cfg.Analysis.MinChars),
		service.WithServiceLogger(log),
	)
	return svc, func() { client.Close() }, nil
}

func printSummary(sum summary, total int) {
	fmt.Println("\n=== Stress test summary ===")
	fmt.Printf("   Documents: %d\n", total)
	fmt.Printf("   Succeeded: %d\n", sum.succeeded)
	fmt.Printf("   Failed:    %d\n", sum.failed)
	fmt.Printf("   Retries:   %d\n", sum.retries)
	fmt.Printf("   Elapsed:   %s\n", sum.elapsed.Round(time.Second))

	if len(sum.models) > 0 {
		fmt.Println("   Models used:")
		names := make([]string, 0, len(sum.models))
		for m := range sum.models {
			names = append(names, m)
		}
		sort.Strings(names)
		for _, m := range names {
			fmt.Printf("     %-28s %d\n", m, sum.models[m])
		}
	}
	if len(sum.failures) > 0 {
		fmt.Println("   Failures:")
		for path, msg := range sum.failures {
			fmt.Printf("     %s: %s\n", filepath.Base(path), msg)
		}
	}
}
