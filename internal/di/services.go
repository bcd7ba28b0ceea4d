// Package di provides dependency injection for clients and services.
package di

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/custodianhq/custodian/internal/clients/docext"
	"github.com/custodianhq/custodian/internal/clients/mrz"
	"github.com/custodianhq/custodian/internal/clients/navfeed"
	"github.com/custodianhq/custodian/internal/clients/verifier"
	"github.com/custodianhq/custodian/internal/config"
	"github.com/custodianhq/custodian/internal/modules/approval"
	"github.com/custodianhq/custodian/internal/modules/deposit"
	"github.com/custodianhq/custodian/internal/modules/ledger"
	"github.com/custodianhq/custodian/internal/modules/valuation"
	"github.com/custodianhq/custodian/internal/modules/verification"
	"github.com/custodianhq/custodian/internal/storage"
)

// InitializeClients initializes external service clients
// Must be called before InitializeServices
func InitializeClients(ctx context.Context, container *Container, cfg *config.Config, log zerolog.Logger) error {
	if container == nil {
		return fmt.Errorf("container cannot be nil")
	}

	blobs, err := storage.New(ctx, storage.Config{
		Bucket:    cfg.S3Bucket,
		Region:    cfg.S3Region,
		Endpoint:  cfg.S3Endpoint,
		AccessKey: cfg.S3AccessKey,
		SecretKey: cfg.S3SecretKey,
	}, log)
	if err != nil {
		return fmt.Errorf("failed to initialize blob store: %w", err)
	}
	container.Blobs = blobs

	container.TravelDocs = mrz.NewClient(cfg.MRZServiceURL, cfg.ExternalCallTimeout, log)
	container.Texts = docext.NewClient(cfg.ExtractServiceURL, cfg.ExternalCallTimeout, log)
	container.Verifier = verifier.NewClient(cfg.VerifierServiceURL, cfg.VerifierAPIKey, cfg.ExternalCallTimeout, log)
	container.NavProvider = navfeed.NewClient(cfg.NavServiceURL, cfg.ExternalCallTimeout, log)

	log.Debug().Msg("External clients initialized")

	return nil
}

// InitializeServices initializes all business services in the container
// Must be called after InitializeRepositories and InitializeClients
func InitializeServices(container *Container, cfg *config.Config, log zerolog.Logger) error {
	if container == nil {
		return fmt.Errorf("container cannot be nil")
	}
	if container.DepositRepo == nil || container.AccountsRepo == nil {
		return fmt.Errorf("repositories must be initialized before services")
	}
	if container.Blobs == nil {
		return fmt.Errorf("clients must be initialized before services")
	}

	// Ledger first: the deposit service seeds funds through it, and the
	// deposit repository mirrors available funds back from it.
	container.LedgerService = ledger.NewService(
		container.PositionRepo,
		container.TransactionRepo,
		container.NavProvider,
		container.DepositRepo,
		log,
	)

	container.Orchestrator = verification.NewOrchestrator(
		container.TravelDocs,
		container.Texts,
		container.Verifier,
		cfg.ExternalCallTimeout,
		log,
	)

	container.ApprovalService = approval.NewService(
		container.DepositRepo,
		container.AccountsRepo,
		log,
	)

	container.ValuationService = valuation.NewService(
		container.LedgerService,
		container.TransactionRepo,
		container.AccountsRepo,
		container.NavProvider,
		log,
	)

	// The deposit service is wired last; its verification queue comes from
	// the work components.
	if container.WorkQueue == nil {
		return fmt.Errorf("work components must be initialized before the deposit service")
	}
	container.DepositService = deposit.NewService(
		container.DepositRepo,
		container.Blobs,
		container.AccountsRepo,
		container.LedgerService,
		container.WorkQueue,
		log,
	)

	log.Debug().Msg("Services initialized")

	return nil
}
