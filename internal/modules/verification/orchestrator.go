// Package verification runs the three-stage deposit verification pipeline:
// identity, income, bank statement. Stages execute strictly in order and the
// pipeline short-circuits on the first failed stage, because each stage is
// costly and a failure is decisive.
package verification

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/custodianhq/custodian/internal/domain"
	"github.com/custodianhq/custodian/internal/modules/identity"
)

// Orchestrator coordinates the verification stages for one deposit.
// It never writes deposit state itself; the terminal verdict is handed to
// the approval workflow by the caller.
type Orchestrator struct {
	travelDocs  domain.TravelDocExtractor
	texts       domain.TextExtractor
	verifier    domain.DocumentVerifier
	callTimeout time.Duration
	log         zerolog.Logger
}

// NewOrchestrator creates a new verification orchestrator. callTimeout is
// the per-external-call deadline; a stage that exceeds it resolves the run
// to rejected instead of hanging the deposit in pending.
func NewOrchestrator(
	travelDocs domain.TravelDocExtractor,
	texts domain.TextExtractor,
	verifier domain.DocumentVerifier,
	callTimeout time.Duration,
	log zerolog.Logger,
) *Orchestrator {
	return &Orchestrator{
		travelDocs:  travelDocs,
		texts:       texts,
		verifier:    verifier,
		callTimeout: callTimeout,
		log:         log.With().Str("service", "verification").Logger(),
	}
}

// Run executes the pipeline for a deposit and returns the terminal verdict.
// External service failures and timeouts are converted into a rejection with
// a "verification unavailable" explanation rather than an error: the run has
// no caller to report to, and the deposit must not stay pending forever.
func (o *Orchestrator) Run(ctx context.Context, dep *domain.Deposit) domain.Verdict {
	log := o.log.With().Str("account", dep.AccountID).Logger()
	log.Info().Msg("Verification started")

	stages := []struct {
		stage domain.Stage
		run   func(context.Context) (bool, string, error)
	}{
		{domain.StageIdentity, func(ctx context.Context) (bool, string, error) { return o.runIdentity(ctx, dep) }},
		{domain.StageIncome, func(ctx context.Context) (bool, string, error) { return o.runIncome(ctx, dep) }},
		{domain.StageBank, func(ctx context.Context) (bool, string, error) { return o.runBank(ctx, dep) }},
	}

	for _, s := range stages {
		passed, explanation, err := s.run(ctx)
		if err != nil {
			// Pipeline-fatal: the stage could not produce a verdict at all.
			log.Error().Err(err).Str("stage", string(s.stage)).Msg("Verification stage unavailable")
			return domain.Verdict{
				Accepted:    false,
				Stage:       s.stage,
				Explanation: fmt.Sprintf("verification unavailable: %s stage failed: %v", s.stage, err),
			}
		}
		if !passed {
			log.Info().Str("stage", string(s.stage)).Str("reason", explanation).Msg("Verification rejected")
			return domain.Verdict{
				Accepted:    false,
				Stage:       s.stage,
				Explanation: explanation,
			}
		}
		log.Debug().Str("stage", string(s.stage)).Msg("Verification stage passed")
	}

	log.Info().Msg("Verification accepted")
	return domain.Verdict{Accepted: true, Stage: domain.StageBank}
}

// runIdentity prefers the deterministic cross-check over MRZ-extracted
// fields; when machine extraction fails, it falls back to AI verification
// over the text-extracted document, since the deterministic path has no
// structured data to compare.
func (o *Orchestrator) runIdentity(ctx context.Context, dep *domain.Deposit) (bool, string, error) {
	declared := domain.IdentityFields{
		FullName:    dep.FullName,
		PersonalID:  dep.PersonalID,
		DateOfBirth: dep.DateOfBirth,
	}

	callCtx, cancel := context.WithTimeout(ctx, o.callTimeout)
	travelDoc, err := o.travelDocs.Extract(callCtx, dep.Documents.PersonalID)
	cancel()
	if err != nil {
		return false, "", classify(err)
	}

	if travelDoc.Status == domain.ExtractionSuccess {
		verdict := identity.Check(declared, travelDoc)
		return verdict.AllFieldsMatch, strings.Join(verdict.Explanations, "; "), nil
	}

	// Extraction failed upstream - AI fallback over the raw document text.
	o.log.Warn().Str("account", dep.AccountID).Msg("Travel document extraction failed, using AI identity fallback")

	text, err := o.extractText(ctx, dep.Documents.PersonalID)
	if err != nil {
		return false, "", err
	}

	callCtx, cancel = context.WithTimeout(ctx, o.callTimeout)
	verdict, err := o.verifier.VerifyIdentity(callCtx, text, declared)
	cancel()
	if err != nil {
		return false, "", classify(err)
	}

	return verdict.AllFieldsMatch, strings.Join(verdict.Explanations, "; "), nil
}

func (o *Orchestrator) runIncome(ctx context.Context, dep *domain.Deposit) (bool, string, error) {
	text, err := o.extractText(ctx, dep.Documents.IncomeProof)
	if err != nil {
		return false, "", err
	}

	callCtx, cancel := context.WithTimeout(ctx, o.callTimeout)
	verdict, err := o.verifier.VerifyIncome(callCtx, text, dep.FullName, dep.IncomeBracket)
	cancel()
	if err != nil {
		return false, "", classify(err)
	}

	return verdict.AllFieldsMatch, verdict.Explanation, nil
}

func (o *Orchestrator) runBank(ctx context.Context, dep *domain.Deposit) (bool, string, error) {
	text, err := o.extractText(ctx, dep.Documents.BankStatement)
	if err != nil {
		return false, "", err
	}

	address := strings.TrimSpace(strings.Join([]string{dep.Address, dep.City, dep.PostalCode}, " "))

	callCtx, cancel := context.WithTimeout(ctx, o.callTimeout)
	verdict, err := o.verifier.VerifyBankStatement(callCtx, text, dep.FullName, address, dep.IBAN, dep.BIC)
	cancel()
	if err != nil {
		return false, "", classify(err)
	}

	return verdict.AllFieldsMatch, verdict.Explanation, nil
}

func (o *Orchestrator) extractText(ctx context.Context, blobKey string) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, o.callTimeout)
	defer cancel()

	text, err := o.texts.Extract(callCtx, blobKey)
	if err != nil {
		return "", classify(err)
	}
	return text, nil
}

// classify maps context deadline errors onto the external-service taxonomy
// so the caller reports a single failure class for unavailability.
func classify(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return domain.ExternalServicef("timed out: %v", err)
	}
	return err
}
