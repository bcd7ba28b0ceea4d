// Package di provides dependency injection for repositories.
package di

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/custodianhq/custodian/internal/modules/accounts"
	"github.com/custodianhq/custodian/internal/modules/deposit"
	"github.com/custodianhq/custodian/internal/modules/ledger"
)

// InitializeRepositories initializes all repositories in the container
// Must be called after InitializeDatabases
func InitializeRepositories(container *Container, log zerolog.Logger) error {
	if container == nil {
		return fmt.Errorf("container cannot be nil")
	}
	if container.AccountsDB == nil || container.DepositsDB == nil ||
		container.PortfolioDB == nil || container.LedgerDB == nil {
		return fmt.Errorf("databases must be initialized before repositories")
	}

	container.AccountsRepo = accounts.NewRepository(container.AccountsDB.Conn(), log)
	container.DepositRepo = deposit.NewRepository(container.DepositsDB.Conn(), log)
	container.PositionRepo = ledger.NewPositionRepository(container.PortfolioDB.Conn(), log)
	container.TransactionRepo = ledger.NewTransactionRepository(container.LedgerDB.Conn(), log)

	log.Debug().Msg("Repositories initialized")

	return nil
}
