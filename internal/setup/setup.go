package setup

import (
	"context"
	"time"

	"github.com/guildpoint/guildpoint/internal/anchor"
	"github.com/guildpoint/guildpoint/internal/database"
	"github.com/guildpoint/guildpoint/internal/issuance"
	"github.com/guildpoint/guildpoint/internal/ledger"
	"github.com/guildpoint/guildpoint/internal/redis"
	"github.com/guildpoint/guildpoint/internal/reputation"
	"github.com/guildpoint/guildpoint/internal/setup/config"
	"go.uber.org/zap"
)

// App bundles all core dependencies and services needed by the application.
type App struct {
	Config       *config.Config
	Logger       *zap.Logger
	DB           database.Client
	RedisManager *redis.Manager
	Engine       *reputation.Engine
	ScoreCache   *reputation.ScoreCache
	Authority    *issuance.Authority
	Ledger       *ledger.Ledger
}

// InitializeApp bootstraps all application dependencies in the correct order,
// ensuring each component has its required dependencies available.
func InitializeApp(ctx context.Context, autoMigrate bool) (*App, error) {
	cfg, configDir, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}

	logger, err := NewLogger(&cfg.Debug)
	if err != nil {
		return nil, err
	}

	logger.Info("Loaded configuration", zap.String("path", configDir))

	redisManager := redis.NewManager(&cfg.Redis, logger)

	db, err := database.NewConnection(ctx, &cfg.PostgreSQL, logger, autoMigrate)
	if err != nil {
		return nil, err
	}

	repo := db.Model()

	engine := reputation.NewEngine(repo.Attestation(), repo.Weight(), reputation.Params{
		MinIssueScore:   cfg.Reputation.MinIssueScore,
		TrustDivisor:    cfg.Reputation.TrustDivisor,
		ZeroTrustFactor: cfg.Reputation.ZeroTrustFactor,
		DecayGraceDays:  cfg.Reputation.DecayGraceDays,
		DecayWindowDays: cfg.Reputation.DecayWindowDays,
		DecayFloor:      cfg.Reputation.DecayFloor,
	}, logger)

	scoreClient, err := redisManager.GetClient(redis.ScoreCacheDBIndex)
	if err != nil {
		return nil, err
	}

	scoreCache := reputation.NewScoreCache(
		engine, scoreClient, time.Duration(cfg.Reputation.ScoreCacheTTL)*time.Second, logger,
	)

	authority := issuance.NewAuthority(
		engine, repo.Attestation(), anchor.NewNoop(logger), scoreCache, logger,
	)

	return &App{
		Config:       cfg,
		Logger:       logger,
		DB:           db,
		RedisManager: redisManager,
		Engine:       engine,
		ScoreCache:   scoreCache,
		Authority:    authority,
		Ledger:       ledger.New(repo.Ledger(), cfg.Ledger.EscrowAccountID, logger),
	}, nil
}

// Close gracefully shuts down the application's connections.
func (a *App) Close() {
	if err := a.DB.Close(); err != nil {
		a.Logger.Error("Failed to close database", zap.Error(err))
	}

	a.RedisManager.Close()

	_ = a.Logger.Sync()
}
