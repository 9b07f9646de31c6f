package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/light-merlin-dark/aia/cmd"
	"github.com/light-merlin-dark/aia/internal/app"
	"github.com/light-merlin-dark/aia/internal/attach"
	"github.com/light-merlin-dark/aia/internal/config"
	"github.com/light-merlin-dark/aia/internal/consult"
	"github.com/light-merlin-dark/aia/internal/platform/logger"
	"github.com/light-merlin-dark/aia/internal/resolver"
	"github.com/light-merlin-dark/aia/pkg/schema"
	"go.uber.org/zap"
)

// stringList collects repeatable flags.
type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }

func (s *stringList) Set(v string) error {
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			*s = append(*s, part)
		}
	}
	return nil
}

func main() {
	var models stringList
	var files stringList
	flag.Var(&models, "m", "model reference, repeatable or comma-separated (service/model or bare)")
	flag.Var(&files, "f", "file or glob to attach, repeatable")
	best := flag.Bool("best", false, "run a best-of pass over the successful responses")
	retries := flag.Int("retries", -1, "extra attempts per model (-1 uses the configured default)")
	timeout := flag.Duration("timeout", 0, "per-attempt timeout (0 uses the configured default)")
	asJSON := flag.Bool("json", false, "print the raw result as JSON")
	flag.Parse()

	logger.Initialize(logger.DefaultConfig())
	log := logger.Get()
	defer logger.Sync()

	go cmd.CheckForUpdates()

	prompt := strings.Join(flag.Args(), " ")
	if prompt == "" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil || len(data) == 0 {
			fmt.Fprintln(os.Stderr, "usage: consult [-m model]... [-f file]... <prompt>")
			os.Exit(2)
		}
		prompt = string(data)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("failed to load configuration", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	attachments := attach.NewResolver(log)

	registry, err := app.BuildRegistry(ctx, &cfg.Engine, log, attachments)
	if err != nil {
		log.Fatal("failed to build plugin registry", zap.Error(err))
	}

	res := resolver.New(&cfg.Engine, log)
	if len(models) == 0 {
		models = res.DefaultModels()
	}

	engine := consult.NewEngine(registry, &cfg.Engine, log,
		consult.WithAttachmentResolver(attachments))

	req := consult.Request{
		Prompt:  prompt,
		Files:   files,
		Models:  models,
		BestOf:  *best,
		Timeout: *timeout,
	}
	if *retries >= 0 {
		req.MaxRetries = retries
	}

	result := engine.Consult(ctx, req)

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(result)
	} else {
		printResult(result)
	}

	if result.Error != "" || len(result.Responses) == len(result.Failed) {
		os.Exit(1)
	}
}

func printResult(result *schema.ConsultResult) {
	if result.Error != "" {
		fmt.Fprintf(os.Stderr, "error: %s\n", result.Error)
		return
	}

	for i, resp := range result.Responses {
		marker := ""
		if result.BestIndex != nil && *result.BestIndex == i {
			marker = " [best]"
		}

		fmt.Printf("=== %s/%s%s ===\n", resp.Provider, resp.Model, marker)
		if resp.IsError {
			fmt.Printf("FAILED: %s\n\n", resp.ErrorMessage)
			continue
		}
		fmt.Printf("%s\n\n", strings.TrimSpace(resp.Content))
	}

	for _, c := range result.Costs {
		fmt.Printf("cost %s/%s: $%.6f (%d in, %d out)\n",
			c.Provider, c.Model, c.TotalCost, c.InputTokens, c.OutputTokens)
	}
	if result.TotalCost != nil {
		fmt.Printf("total: $%.6f\n", result.TotalCost.TotalCost)
	}

	fmt.Printf("%d/%d succeeded in %s\n",
		len(result.Responses)-len(result.Failed),
		len(result.Responses),
		(time.Duration(result.DurationMS) * time.Millisecond).String())
}
