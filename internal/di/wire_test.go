package di

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodianhq/custodian/internal/config"
)

func TestWire(t *testing.T) {
	tmpDir := t.TempDir()
	cfg := &config.Config{
		DataDir:             tmpDir,
		MRZServiceURL:       "http://localhost:9100",
		ExtractServiceURL:   "http://localhost:9101",
		VerifierServiceURL:  "http://localhost:9102",
		NavServiceURL:       "http://localhost:9103",
		ExternalCallTimeout: 5 * time.Second,
		S3Bucket:            "test-bucket",
		S3Region:            "auto",
		S3AccessKey:         "test-key",
		S3SecretKey:         "test-secret",
		WorkStaleAfter:      10 * time.Minute,
	}
	log := zerolog.Nop()

	container, err := Wire(context.Background(), cfg, log)
	require.NoError(t, err)
	require.NotNil(t, container)

	t.Cleanup(container.CloseDatabases)

	// Container is fully populated
	assert.NotNil(t, container.AccountsDB)
	assert.NotNil(t, container.Blobs)
	assert.NotNil(t, container.NavProvider)
	assert.NotNil(t, container.DepositService)
	assert.NotNil(t, container.LedgerService)
	assert.NotNil(t, container.ValuationService)
	assert.NotNil(t, container.ApprovalService)
	assert.NotNil(t, container.Orchestrator)
	assert.NotNil(t, container.WorkProcessor)
	assert.NotNil(t, container.WorkQueue)
	assert.NotNil(t, container.Scheduler)

	// Verification execution is registered at wiring time so leftover
	// items run at the next processor wake-up.
	assert.True(t, container.WorkRegistry.Has("deposit:verify"))
}
