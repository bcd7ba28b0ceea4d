// Package di provides dependency injection for database connections.
package di

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/custodianhq/custodian/internal/config"
	"github.com/custodianhq/custodian/internal/database"
)

// InitializeDatabases initializes all 5 databases and applies schemas
func InitializeDatabases(cfg *config.Config, log zerolog.Logger) (*Container, error) {
	container := &Container{}

	// 1. accounts.db - Accounts, manager assignments, channels
	accountsDB, err := database.New(database.Config{
		Path:    cfg.DataDir + "/accounts.db",
		Profile: database.ProfileStandard,
		Name:    "accounts",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize accounts database: %w", err)
	}
	container.AccountsDB = accountsDB

	// 2. deposits.db - Deposit applications and verification state
	depositsDB, err := database.New(database.Config{
		Path:    cfg.DataDir + "/deposits.db",
		Profile: database.ProfileStandard,
		Name:    "deposits",
	})
	if err != nil {
		container.CloseDatabases()
		return nil, fmt.Errorf("failed to initialize deposits database: %w", err)
	}
	container.DepositsDB = depositsDB

	// 3. portfolio.db - Current balances and positions
	portfolioDB, err := database.New(database.Config{
		Path:    cfg.DataDir + "/portfolio.db",
		Profile: database.ProfileStandard,
		Name:    "portfolio",
	})
	if err != nil {
		container.CloseDatabases()
		return nil, fmt.Errorf("failed to initialize portfolio database: %w", err)
	}
	container.PortfolioDB = portfolioDB

	// 4. ledger.db - Immutable transaction audit trail
	ledgerDB, err := database.New(database.Config{
		Path:    cfg.DataDir + "/ledger.db",
		Profile: database.ProfileLedger, // Maximum safety for the audit trail
		Name:    "ledger",
	})
	if err != nil {
		container.CloseDatabases()
		return nil, fmt.Errorf("failed to initialize ledger database: %w", err)
	}
	container.LedgerDB = ledgerDB

	// 5. work.db - Ephemeral work queue state
	workDB, err := database.New(database.Config{
		Path:    cfg.DataDir + "/work.db",
		Profile: database.ProfileCache, // Speed over durability guarantees
		Name:    "work",
	})
	if err != nil {
		container.CloseDatabases()
		return nil, fmt.Errorf("failed to initialize work database: %w", err)
	}
	container.WorkDB = workDB

	// Apply schemas
	for name, db := range container.Databases() {
		if err := db.Migrate(); err != nil {
			container.CloseDatabases()
			return nil, fmt.Errorf("failed to migrate %s database: %w", name, err)
		}
	}

	log.Info().Str("data_dir", cfg.DataDir).Msg("Databases initialized")

	return container, nil
}
