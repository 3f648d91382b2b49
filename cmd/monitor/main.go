// Command monitor runs a one-shot monitoring sweep for a single app
// from the terminal. Useful for trying providers against a local
// database without going through the API.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"

	"github.com/geowatch/geowatch/internal/config"
	"github.com/geowatch/geowatch/internal/domain"
	"github.com/geowatch/geowatch/internal/monitor"
	"github.com/geowatch/geowatch/internal/repository/postgres"
	"github.com/geowatch/geowatch/internal/services/monitoring"
)

var (
	green  = color.New(color.FgGreen, color.Bold)
	red    = color.New(color.FgRed, color.Bold)
	yellow = color.New(color.FgYellow, color.Bold)
	cyan   = color.New(color.FgCyan, color.Bold)
	dim    = color.New(color.Faint)
)

func main() {
	godotenv.Load()

	appSlug := flag.String("app", "", "App slug to monitor (required)")
	providerName := flag.String("provider", "", "Restrict to one provider (google_ai_mode or chatgpt)")
	expand := flag.Bool("expand", false, "Expand each keyword through the question templates")
	verbose := flag.Bool("verbose", false, "Verbose output")
	timeout := flag.Duration("timeout", 30*time.Minute, "Overall run timeout")
	flag.Parse()

	if *appSlug == "" {
		red.Println("✗ -app is required")
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		red.Printf("✗ Failed to load config: %v\n", err)
		os.Exit(1)
	}

	var logger *zap.Logger
	if *verbose {
		logger, _ = zap.NewDevelopment()
	} else {
		zapCfg := zap.NewProductionConfig()
		zapCfg.OutputPaths = []string{"/dev/null"}
		logger, _ = zapCfg.Build()
	}
	defer logger.Sync()

	db, err := postgres.New(cfg.Database)
	if err != nil {
		red.Printf("✗ Failed to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	repos := postgres.NewRepositories(db)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	app, err := repos.Apps.GetBySlug(ctx, *appSlug)
	if err != nil {
		red.Printf("✗ App %q not found: %v\n", *appSlug, err)
		os.Exit(1)
	}

	keywords, err := repos.Keywords.GetActiveByAppID(ctx, app.ID)
	if err != nil {
		red.Printf("✗ Failed to load keywords: %v\n", err)
		os.Exit(1)
	}
	if len(keywords) == 0 {
		yellow.Printf("⚠ App %q has no active keywords\n", app.Slug)
		os.Exit(0)
	}

	providers := []monitor.Provider{
		monitor.NewGoogleAIModeProvider(cfg.Oxylabs, logger),
	}
	chatgpt := monitor.NewChatGPTProvider(cfg.ChatGPT, nil, logger)
	defer chatgpt.Close()
	providers = append(providers, chatgpt)

	opts := monitoring.Options{Expand: *expand}
	if *providerName != "" {
		provider := domain.Provider(*providerName)
		if !provider.IsValid() {
			red.Printf("✗ Unknown provider %q\n", *providerName)
			os.Exit(1)
		}
		opts.Providers = []domain.Provider{provider}
	}

	orchestrator := monitoring.NewOrchestrator(providers, repos.Results, repos.Keywords, nil, cfg.Monitor.HTTPConcurrency, logger)

	cyan.Printf("GeoWatch · %s\n", app.Name)
	fmt.Printf("Keywords: %d", len(keywords))
	if *expand {
		fmt.Print(" (expanded)")
	}
	fmt.Println()
	fmt.Println()

	bar := progressbar.NewOptions(len(keywords),
		progressbar.OptionSetDescription("   Checking..."),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)

	start := time.Now()
	total := monitoring.RunStats{}

	// One keyword at a time so the bar tracks real progress
	for _, keyword := range keywords {
		stats, err := orchestrator.Run(ctx, app, []*domain.Keyword{keyword}, opts)
		bar.Add(1)
		if err != nil {
			red.Printf("\n✗ Run aborted: %v\n", err)
			os.Exit(1)
		}
		total.KeywordsChecked += stats.KeywordsChecked
		total.ResultsCreated += stats.ResultsCreated
		total.Mentions += stats.Mentions
		total.Errors = append(total.Errors, stats.Errors...)
		total.Outcomes = append(total.Outcomes, stats.Outcomes...)
	}
	bar.Finish()
	fmt.Println()
	fmt.Println()

	for _, outcome := range total.Outcomes {
		switch {
		case outcome.Error != "":
			red.Printf("  ✗ %-30s %-15s %s\n", outcome.Keyword, outcome.Provider, outcome.Error)
		case outcome.Mentioned:
			green.Printf("  ✓ %-30s %-15s mentioned\n", outcome.Keyword, outcome.Provider)
		default:
			dim.Printf("  · %-30s %-15s no mention\n", outcome.Keyword, outcome.Provider)
		}
	}

	fmt.Println()
	rate := 0.0
	if total.ResultsCreated > 0 {
		rate = float64(total.Mentions) / float64(total.ResultsCreated) * 100
	}
	fmt.Printf("Checked %d keywords, %d results, ", total.KeywordsChecked, total.ResultsCreated)
	if total.Mentions > 0 {
		green.Printf("%d mentions (%.0f%%)", total.Mentions, rate)
	} else {
		yellow.Print("no mentions")
	}
	dim.Printf("  [%s]\n", time.Since(start).Round(time.Second))

	if len(total.Errors) > 0 {
		fmt.Println()
		yellow.Printf("%d errors:\n", len(total.Errors))
		for _, e := range total.Errors {
			dim.Printf("  • %s\n", e)
		}
	}
}
