/**
 * Package di provides dependency injection type definitions.
 *
 * This package defines the Container type which holds all application dependencies.
 * The Container is the single source of truth for all service instances and is
 * passed to the server for access to services.
 */
package di

import (
	"github.com/custodianhq/custodian/internal/database"
	"github.com/custodianhq/custodian/internal/domain"
	"github.com/custodianhq/custodian/internal/modules/accounts"
	"github.com/custodianhq/custodian/internal/modules/approval"
	"github.com/custodianhq/custodian/internal/modules/deposit"
	"github.com/custodianhq/custodian/internal/modules/ledger"
	"github.com/custodianhq/custodian/internal/modules/valuation"
	"github.com/custodianhq/custodian/internal/modules/verification"
	"github.com/custodianhq/custodian/internal/scheduler"
	"github.com/custodianhq/custodian/internal/work"
)

/**
 * Container holds all dependencies for the application.
 *
 * This is the single source of truth for all service instances.
 * The container is created by Wire() and passed to the server.
 *
 * Architecture:
 * - Databases: 5-database architecture (accounts, deposits, portfolio, ledger, work)
 * - Clients: External service clients (MRZ, text extraction, AI verifier, NAV feed)
 * - Repositories: Data access layer (accounts, deposits, positions, transactions)
 * - Services: Business logic layer (deposit intake, verification, approval, ledger, valuation)
 * - Work Components: Durable background processor for verification runs
 *
 * All dependencies are injected via constructor injection following clean architecture principles.
 */
type Container struct {
	// Databases (5-database architecture)
	// Each database uses SQLite with WAL mode and profile-specific PRAGMAs
	AccountsDB  *database.DB // Accounts, manager assignments, channels
	DepositsDB  *database.DB // Deposit applications and verification state
	PortfolioDB *database.DB // Current balances and positions
	LedgerDB    *database.DB // Immutable transaction audit trail
	WorkDB      *database.DB // Ephemeral work queue state

	// Clients - External service integrations
	Blobs       domain.BlobStore          // Document blob storage (S3-compatible)
	TravelDocs  domain.TravelDocExtractor // MRZ extraction service
	Texts       domain.TextExtractor      // Document-to-text extraction service
	Verifier    domain.DocumentVerifier   // Language-model verification service
	NavProvider domain.NavProvider        // Fund price feed

	// Repositories - Data access layer
	AccountsRepo    *accounts.Repository          // Accounts, managers, channels
	DepositRepo     *deposit.Repository           // Deposit applications
	PositionRepo    *ledger.PositionRepository    // Balances and positions
	TransactionRepo *ledger.TransactionRepository // Transaction audit trail

	// Services - Business logic layer
	DepositService   *deposit.Service           // Deposit intake and document upload
	Orchestrator     *verification.Orchestrator // Three-stage verification pipeline
	ApprovalService  *approval.Service          // Verdict application and manager assignment
	LedgerService    *ledger.Service            // Funds and position mutations
	ValuationService *valuation.Service         // Portfolio summaries and rollups

	// Work Components - Background verification runs
	WorkRegistry  *work.Registry
	WorkStore     *work.Store
	WorkProcessor *work.Processor
	WorkQueue     *work.Queue

	// Scheduler - Periodic maintenance jobs
	Scheduler *scheduler.Scheduler
}

// Databases returns the named database handles for maintenance jobs.
func (c *Container) Databases() map[string]*database.DB {
	return map[string]*database.DB{
		"accounts":  c.AccountsDB,
		"deposits":  c.DepositsDB,
		"portfolio": c.PortfolioDB,
		"ledger":    c.LedgerDB,
		"work":      c.WorkDB,
	}
}

// CloseDatabases closes every open database handle. Used both by shutdown
// and by Wire's error paths.
func (c *Container) CloseDatabases() {
	for _, db := range []*database.DB{c.AccountsDB, c.DepositsDB, c.PortfolioDB, c.LedgerDB, c.WorkDB} {
		if db != nil {
			db.Close()
		}
	}
}
