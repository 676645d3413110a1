package app

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/slotpipe/slotpipe/internal/config"
	"github.com/slotpipe/slotpipe/internal/pipeline"
	"github.com/slotpipe/slotpipe/pkg/agent"
	"github.com/slotpipe/slotpipe/pkg/dispatch"
	"github.com/slotpipe/slotpipe/pkg/match"
	"github.com/slotpipe/slotpipe/pkg/redact"
	"github.com/slotpipe/slotpipe/pkg/slot"
)

// Options tune a run.
type Options struct {
	Workers      int
	RateLimitRPS float64

	// MaxPasses bounds the dispatch loop. Each pass routes at most one agent
	// per row, so a fresh row needs several passes to complete.
	MaxPasses int
}

func (o Options) withDefaults() Options {
	if o.Workers <= 0 {
		o.Workers = 10
	}
	if o.MaxPasses <= 0 {
		o.MaxPasses = 12
	}
	return o
}

// Report summarizes a run for the caller.
type Report struct {
	Passes    int
	Rows      int
	Completed int
	Failed    int
	Review    int
	Unmatched int
	Moved     int
	TotalCost float64
	Duration  time.Duration
}

// Run drives dispatch passes over the rows until no row makes progress or
// the pass bound is hit. Placeholder rows created by the company-level check
// join the row set between passes. The returned slice includes those
// placeholders, appended after the input rows.
func Run(
	ctx context.Context,
	rows []*slot.Row,
	master []match.Company,
	cfg config.Config,
	providers Providers,
	opts Options,
	logger *log.Logger,
) ([]*slot.Row, Report, error) {
	opts = opts.withDefaults()
	runID := "run-" + uuid.NewString()[:8]
	start := time.Now()

	guards := NewGuards(cfg)
	registry := BuildRegistry(cfg, providers, guards, func(a agent.Agent) agent.Agent {
		return newTracedAgent(a, logger, runID)
	})
	matcher := match.NewMatcher(match.Config{
		AutoAcceptThreshold: cfg.Match.AutoAcceptThreshold,
		MinMatchScore:       cfg.Match.MinMatchScore,
		MaxCandidates:       cfg.Match.MaxCandidates,
	}, master)
	dispatcher := dispatch.New(registry, matcher, guards.Fails, dispatch.Config{
		MandatorySlots:       cfg.Mandatory(),
		PlaceholderCostLimit: cfg.Budget.SlotLimit,
		AgentTimeout:         cfg.AgentTimeout.Std(),
	})

	logger.Printf(
		"run=%s start: rows=%d companies=%d workers=%d rateLimitRPS=%g globalCeiling=%.2f maxPasses=%d",
		runID, len(rows), len(master), opts.Workers, opts.RateLimitRPS, cfg.Budget.GlobalCeiling, opts.MaxPasses,
	)

	report := Report{}
	for pass := 1; pass <= opts.MaxPasses; pass++ {
		report.Passes = pass
		results, err := dispatcher.DispatchBatch(ctx, rows, dispatch.BatchOptions{
			Workers:      opts.Workers,
			RateLimitRPS: opts.RateLimitRPS,
		})
		if err != nil {
			return rows, report, err
		}

		progress := false
		counts := map[dispatch.Status]int{}
		var created []*slot.Row
		for _, rr := range results {
			counts[rr.Result.Status]++
			switch rr.Result.Status {
			case dispatch.StatusRouted, dispatch.StatusCompleted:
				progress = true
			}
			if rr.Result.Moved {
				report.Moved++
			}
			created = append(created, rr.Result.CreatedSlots...)
		}
		if len(created) > 0 {
			progress = true
			logger.Printf("run=%s pass=%d created %d placeholder slot rows", runID, pass, len(created))
			rows = append(rows, created...)
		}

		logger.Printf(
			"run=%s pass=%d done: routed=%d completed=%d no_action=%d throttled=%d killed=%d cost_exceeded=%d spent=%.2f",
			runID, pass,
			counts[dispatch.StatusRouted],
			counts[dispatch.StatusCompleted],
			counts[dispatch.StatusNoAction],
			counts[dispatch.StatusThrottled],
			counts[dispatch.StatusKilled],
			counts[dispatch.StatusCostExceeded],
			guards.Cost.Spent(),
		)

		if !progress {
			break
		}
	}

	for _, r := range rows {
		switch {
		case r.Complete:
			report.Completed++
		case r.PermanentlyFailed:
			report.Failed++
		case r.MatchStatus == slot.MatchManualReview:
			report.Review++
		case r.MatchStatus == slot.MatchUnmatched:
			report.Unmatched++
		}
	}
	report.Rows = len(rows)
	report.TotalCost = guards.Cost.Spent()
	report.Duration = time.Since(start)

	logger.Printf(
		"run=%s complete: rows=%d completed=%d failed=%d review=%d unmatched=%d moved=%d cost=%.2f passes=%d duration=%s",
		runID, report.Rows, report.Completed, report.Failed, report.Review, report.Unmatched,
		report.Moved, report.TotalCost, report.Passes, report.Duration.Round(time.Millisecond),
	)
	return rows, report, nil
}

// RunLocal reads a local input CSV and company master, runs dispatch to
// quiescence, and writes the output CSV.
func RunLocal(
	ctx context.Context,
	inputPath, companiesPath, outputPath string,
	cfg config.Config,
	providers Providers,
	opts Options,
	logger *log.Logger,
) error {
	inF, err := os.Open(inputPath)
	if err != nil {
		return err
	}
	defer func() {
		_ = inF.Close()
	}()

	inputs, err := pipeline.ReadInputCSV(inF)
	if err != nil {
		return err
	}
	master, err := pipeline.LoadCompanyMaster(companiesPath)
	if err != nil {
		return err
	}

	rows := make([]*slot.Row, 0, len(inputs))
	for i, in := range inputs {
		r, err := in.ToSlotRow(cfg.Budget.SlotLimit)
		if err != nil {
			return fmt.Errorf("input row %d: %s", i+1, redact.Secrets(err.Error()))
		}
		rows = append(rows, r)
	}

	rows, _, err = Run(ctx, rows, master, cfg, providers, opts, logger)
	if err != nil {
		return err
	}

	out := make([]pipeline.Row, 0, len(rows))
	for _, r := range rows {
		out = append(out, pipeline.FromSlotRow(r))
	}

	outF, err := os.Create(outputPath)
	if err != nil {
		return err
	}
	defer func() {
		_ = outF.Close()
	}()
	if err := pipeline.WriteCSV(outF, out); err != nil {
		return err
	}
	return outF.Close()
}
