package main

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"github.com/Harshitk-cp/credence/internal/backend"
	"github.com/Harshitk-cp/credence/internal/domain"
	"github.com/Harshitk-cp/credence/internal/service"
	"github.com/spf13/cobra"
)

type seedHypothesis struct {
	id, statement string
	prior         float64
}

type seedLink struct {
	evidenceID, hypothesisID string
	domain.Likelihoods
}

var (
	seedHypotheses = []seedHypothesis{
		{"rates-cut-q3", "The central bank cuts its policy rate before the end of Q3", 0.5},
		{"mortgage-demand-up", "New mortgage applications rise more than 10% in Q4", 0.4},
		{"inflation-below-3", "Headline inflation prints below 3% in the next release", 0.6},
	}
	seedEvidence = []domain.Evidence{
		{ID: "minutes-dovish", Content: "Meeting minutes show a majority open to easing", SourceURL: "https://example.com/minutes"},
		{ID: "jobs-hot", Content: "Payrolls beat expectations by a wide margin", SourceURL: "https://example.com/jobs"},
	}
	seedLinks = []seedLink{
		{"minutes-dovish", "rates-cut-q3", domain.Likelihoods{PEGivenH: 0.8, PEGivenNotH: 0.2}},
		{"jobs-hot", "rates-cut-q3", domain.Likelihoods{PEGivenH: 0.3, PEGivenNotH: 0.6}},
		{"jobs-hot", "inflation-below-3", domain.Likelihoods{PEGivenH: 0.4, PEGivenNotH: 0.5}},
	}
	seedRelations = []domain.Relation{
		{FromID: "mortgage-demand-up", ToID: "rates-cut-q3", Type: domain.RelationDependsOn, Strength: 0.7},
	}
)

func runSeed(cmd *cobra.Command, args []string) error {
	return withSession(cmd, func(ctx context.Context, s *session) error {
		return seed(ctx, s.svcs, cmd.OutOrStdout())
	})
}

// seed is idempotent: existing records are reported and left alone.
func seed(ctx context.Context, svcs *backend.Services, w io.Writer) error {
	for _, h := range seedHypotheses {
		_, err := svcs.Hypotheses.Create(ctx, h.id, h.statement, h.prior)
		switch {
		case errors.Is(err, service.ErrHypothesisExists):
			fmt.Fprintf(w, "hypothesis %s exists\n", h.id)
		case err != nil:
			return fmt.Errorf("create hypothesis %s: %w", h.id, err)
		default:
			fmt.Fprintf(w, "created hypothesis %s (prior %.2f)\n", h.id, h.prior)
		}
	}

	for _, e := range seedEvidence {
		_, err := svcs.Evidence.Create(ctx, e.ID, e.Content, e.SourceURL)
		switch {
		case errors.Is(err, service.ErrEvidenceExists):
			fmt.Fprintf(w, "evidence %s exists\n", e.ID)
		case err != nil:
			return fmt.Errorf("create evidence %s: %w", e.ID, err)
		default:
			fmt.Fprintf(w, "created evidence %s\n", e.ID)
		}
	}

	for _, l := range seedLinks {
		confidence, err := svcs.Links.Create(ctx, l.evidenceID, l.hypothesisID, l.Likelihoods)
		switch {
		case errors.Is(err, service.ErrDuplicateLink), errors.Is(err, service.ErrHypothesisLocked):
			fmt.Fprintf(w, "link %s -> %s skipped: %v\n", l.evidenceID, l.hypothesisID, err)
		case err != nil:
			return fmt.Errorf("link %s -> %s: %w", l.evidenceID, l.hypothesisID, err)
		default:
			fmt.Fprintf(w, "linked %s -> %s, confidence now %.4f\n", l.evidenceID, l.hypothesisID, confidence)
		}
	}

	for _, r := range seedRelations {
		if _, err := svcs.Hypotheses.Relate(ctx, r.FromID, r.ToID, string(r.Type), r.Strength); err != nil {
			return fmt.Errorf("relate %s -> %s: %w", r.FromID, r.ToID, err)
		}
		fmt.Fprintf(w, "%s %s %s (strength %.2f)\n", r.FromID, r.Type, r.ToID, r.Strength)
	}

	fmt.Fprintln(w, "\n=== Seed Complete ===")
	fmt.Fprintln(w, "curl http://localhost:8080/v1/hypotheses/rates-cut-q3/links")
	return nil
}

func runAPIKey(cmd *cobra.Command, args []string) error {
	key, err := generateAPIKey()
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), key)
	return nil
}

func generateAPIKey() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate API key: %w", err)
	}
	return "cr_" + base64.RawURLEncoding.EncodeToString(b)[:40], nil
}
