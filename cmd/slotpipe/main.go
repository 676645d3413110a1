package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/slotpipe/slotpipe/internal/app"
	"github.com/slotpipe/slotpipe/internal/config"
	"github.com/slotpipe/slotpipe/pkg/provider/gemini"
	"github.com/slotpipe/slotpipe/pkg/redact"
)

func main() {
	ctx := context.Background()

	if len(os.Args) < 2 {
		usage(os.Stderr)
		os.Exit(2)
	}

	switch os.Args[1] {
	case "help", "-h", "--help":
		usage(os.Stdout)
		return
	case "local":
		os.Exit(runLocal(ctx, os.Args[2:]))
	default:
		_, _ = fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", os.Args[1])
		usage(os.Stderr)
		os.Exit(2)
	}
}

func runLocal(ctx context.Context, args []string) int {
	runEnv, err := loadRunOptionsFromEnv()
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "config error: %s\n", redact.Secrets(err.Error()))
		return 2
	}
	gemEnv, err := loadGeminiConfigFromEnv()
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "config error: %s\n", redact.Secrets(err.Error()))
		return 2
	}

	fs := flag.NewFlagSet("local", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	var inputPath string
	var companiesPath string
	var outputPath string
	var policyPath string
	var workers int
	var maxPasses int
	var rateLimitRPS float64
	var geminiModel string
	var geminiBaseURL string

	fs.StringVar(&inputPath, "input", "", "Input CSV (must include 'company' and 'slot_type' columns)")
	fs.StringVar(&companiesPath, "companies", "", "Company master YAML file of canonical names")
	fs.StringVar(&outputPath, "output", "", "Output CSV file path")
	fs.StringVar(&policyPath, "policy", "", "Dispatch policy YAML file (optional; built-in defaults otherwise)")
	fs.IntVar(&workers, "workers", runEnv.Workers, "Concurrent company workers (env: WORKERS)")
	fs.IntVar(&maxPasses, "max-passes", runEnv.MaxPasses, "Maximum dispatch passes per run (env: MAX_PASSES)")
	fs.Float64Var(&rateLimitRPS, "rate-limit-rps", runEnv.RateLimitRPS, "Global agent-call rate limit (RPS), 0 disables (env: RATE_LIMIT_RPS)")
	fs.StringVar(&geminiModel, "gemini-model", gemEnv.Model, "Gemini model name (env: GEMINI_MODEL)")
	fs.StringVar(&geminiBaseURL, "gemini-base-url", gemEnv.BaseURL, "Gemini API base URL override (env: GEMINI_BASE_URL)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if inputPath == "" || companiesPath == "" || outputPath == "" {
		_, _ = fmt.Fprintln(os.Stderr, "local requires --input, --companies, and --output")
		return 2
	}

	cfg, err := config.Load(policyPath)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "policy error: %s\n", redact.Secrets(err.Error()))
		return 2
	}

	researcher, err := gemini.New(ctx, gemini.Config{
		APIKey:  gemEnv.APIKey,
		Model:   geminiModel,
		BaseURL: geminiBaseURL,
	})
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "gemini config error: %s\n", redact.Secrets(err.Error()))
		return 2
	}
	providers := app.Providers{
		Resolver:      researcher,
		Searcher:      researcher,
		Checker:       researcher,
		PatternFinder: researcher,
		EmailFinder:   researcher,
		// No verifier wired: generated emails are kept with
		// verification status "unknown".
	}

	logger := log.New(os.Stdout, "", log.LstdFlags)
	if err := app.RunLocal(ctx, inputPath, companiesPath, outputPath, cfg, providers, app.Options{
		Workers:      workers,
		MaxPasses:    maxPasses,
		RateLimitRPS: rateLimitRPS,
	}, logger); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "local run failed: %s\n", redact.Secrets(err.Error()))
		return 1
	}
	return 0
}

func usage(w *os.File) {
	_, _ = fmt.Fprintf(w, `slotpipe: executive-contact enrichment dispatcher

Usage:
  slotpipe <command> [flags]

Commands:
  local  Enrich a local input CSV against a company master list

Examples:
  slotpipe local --input slots.csv --companies companies.yaml --output enriched.csv

Environment:
  GEMINI_API_KEY   Gemini API key (required)
  GEMINI_MODEL     Gemini model name (required)
  GEMINI_BASE_URL  Optional base URL override (proxies/testing)
  WORKERS          Concurrent company workers
  MAX_PASSES       Maximum dispatch passes per run
  RATE_LIMIT_RPS   Global agent-call rate limit

`)
}

type geminiEnv struct {
	APIKey  string
	Model   string
	BaseURL string
}

func loadGeminiConfigFromEnv() (geminiEnv, error) {
	apiKey := strings.TrimSpace(os.Getenv("GEMINI_API_KEY"))
	if apiKey == "" {
		return geminiEnv{}, fmt.Errorf("GEMINI_API_KEY is required")
	}
	return geminiEnv{
		APIKey:  apiKey,
		Model:   strings.TrimSpace(os.Getenv("GEMINI_MODEL")),
		BaseURL: strings.TrimSpace(os.Getenv("GEMINI_BASE_URL")),
	}, nil
}

func loadRunOptionsFromEnv() (app.Options, error) {
	workers, err := envInt("WORKERS", 10)
	if err != nil {
		return app.Options{}, err
	}
	maxPasses, err := envInt("MAX_PASSES", 12)
	if err != nil {
		return app.Options{}, err
	}
	rateLimitRPS, err := envFloat("RATE_LIMIT_RPS", 0)
	if err != nil {
		return app.Options{}, err
	}
	return app.Options{
		Workers:      workers,
		MaxPasses:    maxPasses,
		RateLimitRPS: rateLimitRPS,
	}, nil
}

func envInt(varName string, fallback int) (int, error) {
	v := strings.TrimSpace(os.Getenv(varName))
	if v == "" {
		return fallback, nil
	}
	out, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s=%q: %w", varName, v, err)
	}
	return out, nil
}

func envFloat(varName string, fallback float64) (float64, error) {
	v := strings.TrimSpace(os.Getenv(varName))
	if v == "" {
		return fallback, nil
	}
	out, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s=%q: %w", varName, v, err)
	}
	return out, nil
}
