package cli

import (
	"fmt"
	"os/signal"
	"syscall"

	sdkmath "cosmossdk.io/math"
	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lockstake/staking-engine/internal/api"
	"github.com/lockstake/staking-engine/internal/assetledger"
	"github.com/lockstake/staking-engine/internal/config"
	"github.com/lockstake/staking-engine/internal/db"
	dbmodel "github.com/lockstake/staking-engine/internal/db/model"
	"github.com/lockstake/staking-engine/internal/events"
	"github.com/lockstake/staking-engine/internal/observability/metrics"
	"github.com/lockstake/staking-engine/internal/observability/tracing"
	"github.com/lockstake/staking-engine/internal/services"
)

func StartServerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start-server",
		Short: "Starts the staking engine server",
		Args:  cobra.ExactArgs(0),
		RunE:  startServer,
	}

	return cmd
}

func startServer(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ctx = tracing.InjectTraceID(ctx)
	log := log.Ctx(ctx)

	// load config
	cfgPath := GetConfigPath()
	cfg, err := config.New(cfgPath)
	if err != nil {
		log.Fatal().Err(err).Msg(fmt.Sprintf("error while loading config file: %s", cfgPath))
	}

	err = dbmodel.Setup(ctx, &cfg.Db)
	if err != nil {
		log.Fatal().Err(err).Msg("error while setting up staking db model")
	}

	// create new db client
	var dbClient db.DbInterface
	dbClient, err = db.New(ctx, cfg.Db)
	if err != nil {
		log.Fatal().Err(err).Msg("error while creating db client")
	}
	dbClient = db.NewDbWithMetrics(dbClient)

	// Create a basic zap logger
	zapLogger, err := zap.NewProduction()
	if err != nil {
		log.Fatal().Err(err).Msg("error while creating zap logger")
	}
	defer func() {
		_ = zapLogger.Sync()
	}()

	var publisher events.Publisher = events.NoopPublisher{}
	if cfg.Queue.Enabled {
		publisher, err = events.NewAmqpPublisher(&cfg.Queue, zapLogger)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize event publisher")
		}
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			log.Error().Err(err).Msg("error while closing event publisher")
		}
	}()

	stakingAsset, rewardAsset, faucet := buildAssetLedgers(&cfg.Staking)

	service, err := services.NewService(cfg, dbClient, publisher, stakingAsset, rewardAsset)
	if err != nil {
		log.Fatal().Err(err).Msg("error while creating service")
	}

	if err := service.Rehydrate(ctx); err != nil {
		log.Fatal().Err(err).Msg("error while rehydrating ledger state")
	}

	// initialize metrics with the metrics port from config
	metrics.Init(cfg.Metrics.GetMetricsPort())

	server := api.New(&cfg.Api, service, api.WithFaucet(faucet))

	var wg conc.WaitGroup
	wg.Go(func() {
		service.StartAuditPoller(ctx)
	})
	wg.Go(func() {
		if err := server.Start(ctx); err != nil {
			log.Error().Err(err).Msg("API server stopped")
		}
	})
	wg.Wait()
	return nil
}

// buildAssetLedgers constructs the local-mode in-memory asset ledgers. The
// reward pool is seeded with reward-pool-funding, and the returned faucet
// mints stakeable balance. Faucet accounts also get a blanket pull allowance
// for the pool account so staking works without a separate approve endpoint.
func buildAssetLedgers(cfg *config.StakingConfig) (assetledger.Ledger, assetledger.Ledger, api.FaucetFunc) {
	stakingAsset := assetledger.NewInMemoryLedger(cfg.StakingAssetID, cfg.PoolAccount)
	rewardAsset := stakingAsset
	if cfg.RewardAssetID != cfg.StakingAssetID {
		rewardAsset = assetledger.NewInMemoryLedger(cfg.RewardAssetID, cfg.PoolAccount)
	}

	if cfg.RewardPoolFunding != "" {
		// already validated by config.Validate
		if funding, ok := sdkmath.NewIntFromString(cfg.RewardPoolFunding); ok {
			rewardAsset.Mint(cfg.PoolAccount, funding)
		}
	}

	faucetAllowance := sdkmath.NewIntWithDecimal(1, 40)
	faucet := func(account string, amount sdkmath.Int) {
		stakingAsset.Mint(account, amount)
		stakingAsset.Approve(account, cfg.PoolAccount, faucetAllowance)
	}

	return assetledger.NewLedgerWithMetrics(stakingAsset),
		assetledger.NewLedgerWithMetrics(rewardAsset),
		faucet
}
