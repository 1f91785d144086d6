package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/Harshitk-cp/credence/internal/backend"
	"github.com/Harshitk-cp/credence/internal/buildconfig"
	"github.com/Harshitk-cp/credence/internal/config"
	"github.com/Harshitk-cp/credence/internal/service"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type session struct {
	backend *backend.Backend
	svcs    *backend.Services
	logger  *zap.Logger
}

// withSession loads config, opens the backend and builds the services for
// the duration of fn. Interrupts cancel ctx.
func withSession(cmd *cobra.Command, fn func(ctx context.Context, s *session) error) error {
	if err := config.Load(); err != nil {
		return err
	}
	logger, err := backend.NewLogger()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	be, err := backend.Open(ctx, logger)
	if err != nil {
		return err
	}
	defer be.Close(context.Background())

	return fn(ctx, &session{
		backend: be,
		svcs:    backend.NewServices(be.Stores, be.Locker, nil, nil, logger),
		logger:  logger,
	})
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	return withSession(cmd, func(ctx context.Context, s *session) error {
		applied, err := s.backend.Migrate(ctx)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), map[string]any{"backend": s.backend.Name, "applied": applied})
		}
		if len(applied) == 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "%s schema up to date\n", s.backend.Name)
		}
		for _, name := range applied {
			fmt.Fprintf(cmd.OutOrStdout(), "applied %s\n", name)
		}
		return nil
	})
}

func runBackfill(cmd *cobra.Command, args []string) error {
	return withSession(cmd, func(ctx context.Context, s *session) error {
		res, err := s.svcs.Backfill.Run(ctx, dryRun)
		if err != nil {
			return err
		}
		return printBackfill(cmd.OutOrStdout(), res)
	})
}

func printBackfill(w io.Writer, res *service.BackfillResult) error {
	if jsonOutput {
		return printJSON(w, res)
	}
	for _, it := range res.Items {
		mark := "would write"
		if it.Written {
			mark = "wrote"
		}
		fmt.Fprintf(w, "%-30s posterior=%.4f base=%.4f links=%d %s\n", it.HypothesisID, it.Posterior, it.Base, it.Links, mark)
	}
	fmt.Fprintf(w, "scanned %d, written %d", res.Scanned, res.Written)
	if res.DryRun {
		fmt.Fprint(w, " (dry run)")
	}
	fmt.Fprintln(w)
	return nil
}

func runRecompute(cmd *cobra.Command, args []string) error {
	return withSession(cmd, func(ctx context.Context, s *session) error {
		confidence, err := s.svcs.Engine.RecomputeFromBase(ctx, args[0])
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), map[string]any{"id": args[0], "confidence": confidence})
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s confidence=%.4f\n", args[0], confidence)
		return nil
	})
}

func runAccuracy(cmd *cobra.Command, args []string) error {
	return withSession(cmd, func(ctx context.Context, s *session) error {
		report, err := s.svcs.Analytics.Accuracy(ctx)
		if err != nil {
			return err
		}
		return printAccuracy(cmd.OutOrStdout(), report)
	})
}

func printAccuracy(w io.Writer, r *service.AccuracyReport) error {
	if jsonOutput {
		return printJSON(w, r)
	}
	sum := r.Summary
	fmt.Fprintf(w, "verified %d (confirmed %d, refuted %d), scored %d\n", sum.Total, sum.Confirmed, sum.Refuted, sum.WithPreCount)
	if sum.BrierMean != nil {
		fmt.Fprintf(w, "mean brier %.4f, mean prediction %.4f\n", *sum.BrierMean, *sum.AvgPre)
	}
	for _, b := range r.Bins {
		if b.Count == 0 {
			continue
		}
		fmt.Fprintf(w, "  %-8s n=%-4d pred=%.3f acc=%.3f\n", b.Bin, b.Count, *b.AvgPred, *b.Accuracy)
	}
	return nil
}

func runVersion(cmd *cobra.Command, args []string) error {
	if jsonOutput {
		return printJSON(cmd.OutOrStdout(), buildconfig.VersionInfo())
	}
	fmt.Fprintf(cmd.OutOrStdout(), "credence %s (%s)\n", buildconfig.Version(), buildconfig.Commit())
	return nil
}
