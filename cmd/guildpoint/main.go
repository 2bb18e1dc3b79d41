package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/guildpoint/guildpoint/internal/database"
	"github.com/guildpoint/guildpoint/internal/database/migrations"
	"github.com/guildpoint/guildpoint/internal/setup"
	"github.com/guildpoint/guildpoint/internal/setup/config"
	"github.com/uptrace/bun/migrate"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

var ErrArgsRequired = errors.New("missing required arguments")

func main() {
	if err := run(); err != nil {
		log.Printf("Error: %v", err)
		os.Exit(1)
	}
}

func run() error {
	app := &cli.Command{
		Name:  "guildpoint",
		Usage: "Trust and settlement core management tool",
		Commands: []*cli.Command{
			dbCommand(),
			scoreCommand(),
			ledgerCommand(),
			weightsCommand(),
		},
	}

	return app.Run(context.Background(), os.Args)
}

func dbCommand() *cli.Command {
	return &cli.Command{
		Name:  "db",
		Usage: "Database management",
		Commands: []*cli.Command{
			{
				Name:  "init",
				Usage: "Initialize migration tables",
				Action: func(ctx context.Context, _ *cli.Command) error {
					return withMigrator(ctx, func(ctx context.Context, migrator *migrate.Migrator, _ *zap.Logger) error {
						return migrator.Init(ctx)
					})
				},
			},
			{
				Name:  "migrate",
				Usage: "Run pending migrations",
				Action: func(ctx context.Context, _ *cli.Command) error {
					return withMigrator(ctx, func(ctx context.Context, migrator *migrate.Migrator, logger *zap.Logger) error {
						if err := migrator.Lock(ctx); err != nil {
							return err
						}
						defer migrator.Unlock(ctx) //nolint:errcheck

						group, err := migrator.Migrate(ctx)
						if err != nil {
							return err
						}

						if group.IsZero() {
							logger.Info("No new migrations to run (database is up to date)")
							return nil
						}

						logger.Info("Successfully migrated", zap.String("group", group.String()))

						return nil
					})
				},
			},
			{
				Name:  "rollback",
				Usage: "Rollback the last migration group",
				Action: func(ctx context.Context, _ *cli.Command) error {
					return withMigrator(ctx, func(ctx context.Context, migrator *migrate.Migrator, logger *zap.Logger) error {
						if err := migrator.Lock(ctx); err != nil {
							return err
						}
						defer migrator.Unlock(ctx) //nolint:errcheck

						group, err := migrator.Rollback(ctx)
						if err != nil {
							return err
						}

						if group.IsZero() {
							logger.Info("No groups to roll back")
							return nil
						}

						logger.Info("Successfully rolled back", zap.String("group", group.String()))

						return nil
					})
				},
			},
			{
				Name:  "status",
				Usage: "Show migration status",
				Action: func(ctx context.Context, _ *cli.Command) error {
					return withMigrator(ctx, func(ctx context.Context, migrator *migrate.Migrator, logger *zap.Logger) error {
						ms, err := migrator.MigrationsWithStatus(ctx)
						if err != nil {
							return err
						}

						logger.Info("Migration status",
							zap.String("migrations", ms.String()),
							zap.String("unapplied", ms.Unapplied().String()),
							zap.String("last_group", ms.LastGroup().String()))

						return nil
					})
				},
			},
		},
	}
}

func scoreCommand() *cli.Command {
	return &cli.Command{
		Name:      "score",
		Usage:     "Compute the reputation score for an identity (all aliases at once)",
		ArgsUsage: "IDENTITY [ALIAS...]",
		Action: func(ctx context.Context, c *cli.Command) error {
			if c.Args().Len() < 1 {
				return fmt.Errorf("%w: IDENTITY", ErrArgsRequired)
			}

			return withApp(ctx, func(ctx context.Context, app *setup.App) error {
				score, err := app.Engine.GetScore(ctx, c.Args().Slice()...)
				if err != nil {
					return err
				}

				fmt.Printf("%d\n", score)

				return nil
			})
		},
	}
}

func ledgerCommand() *cli.Command {
	return &cli.Command{
		Name:  "ledger",
		Usage: "Ledger operations",
		Commands: []*cli.Command{
			{
				Name:      "award",
				Usage:     "Credit an account",
				ArgsUsage: "ACCOUNT AMOUNT REASON",
				Action:    ledgerMutation("award"),
			},
			{
				Name:      "deduct",
				Usage:     "Debit an account",
				ArgsUsage: "ACCOUNT AMOUNT REASON",
				Action:    ledgerMutation("deduct"),
			},
			{
				Name:      "balance",
				Usage:     "Show an account balance",
				ArgsUsage: "ACCOUNT",
				Action: func(ctx context.Context, c *cli.Command) error {
					if c.Args().Len() < 1 {
						return fmt.Errorf("%w: ACCOUNT", ErrArgsRequired)
					}

					return withApp(ctx, func(ctx context.Context, app *setup.App) error {
						balance, err := app.Ledger.Balance(ctx, c.Args().First())
						if err != nil {
							return err
						}

						fmt.Printf("%d\n", balance)

						return nil
					})
				},
			},
			{
				Name:  "audit",
				Usage: "Verify the conservation invariant",
				Action: func(ctx context.Context, _ *cli.Command) error {
					return withApp(ctx, func(ctx context.Context, app *setup.App) error {
						report, err := app.Ledger.Audit(ctx)
						if err != nil {
							return err
						}

						fmt.Printf("balances=%d credits=%d debits=%d balanced=%t\n",
							report.SumBalances, report.Credits, report.Debits, report.Balanced)

						return nil
					})
				},
			},
		},
	}
}

func ledgerMutation(kind string) cli.ActionFunc {
	return func(ctx context.Context, c *cli.Command) error {
		if c.Args().Len() < 3 {
			return fmt.Errorf("%w: ACCOUNT AMOUNT REASON", ErrArgsRequired)
		}

		amount, err := strconv.ParseInt(c.Args().Get(1), 10, 64)
		if err != nil {
			return fmt.Errorf("invalid amount %q: %w", c.Args().Get(1), err)
		}

		return withApp(ctx, func(ctx context.Context, app *setup.App) error {
			var newBalance int64

			switch kind {
			case "award":
				newBalance, err = app.Ledger.Award(ctx, c.Args().First(), amount, c.Args().Get(2), nil)
			case "deduct":
				newBalance, err = app.Ledger.Deduct(ctx, c.Args().First(), amount, c.Args().Get(2), nil)
			}

			if err != nil {
				return err
			}

			fmt.Printf("%d\n", newBalance)

			return nil
		})
	}
}

func weightsCommand() *cli.Command {
	return &cli.Command{
		Name:  "weights",
		Usage: "Category weight configuration",
		Commands: []*cli.Command{
			{
				Name:      "set",
				Usage:     "Set a category weight multiplier",
				ArgsUsage: "CATEGORY WEIGHT",
				Action: func(ctx context.Context, c *cli.Command) error {
					if c.Args().Len() < 2 {
						return fmt.Errorf("%w: CATEGORY WEIGHT", ErrArgsRequired)
					}

					weight, err := strconv.ParseFloat(c.Args().Get(1), 64)
					if err != nil {
						return fmt.Errorf("invalid weight %q: %w", c.Args().Get(1), err)
					}

					return withApp(ctx, func(ctx context.Context, app *setup.App) error {
						return app.DB.Model().Weight().SetCategoryWeight(ctx, c.Args().First(), weight)
					})
				},
			},
		},
	}
}

// withApp runs fn against a fully initialized application.
func withApp(ctx context.Context, fn func(context.Context, *setup.App) error) error {
	app, err := setup.InitializeApp(ctx, false)
	if err != nil {
		return fmt.Errorf("failed to initialize app: %w", err)
	}
	defer app.Close()

	return fn(ctx, app)
}

// withMigrator runs fn against the database migrator only, without touching
// Redis or the service layer.
func withMigrator(ctx context.Context, fn func(context.Context, *migrate.Migrator, *zap.Logger) error) error {
	cfg, _, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := zap.NewDevelopment()
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}

	db, err := database.NewConnection(ctx, &cfg.PostgreSQL, logger, false)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	migrator := migrate.NewMigrator(db.DB(), migrations.Migrations)

	return fn(ctx, migrator, logger)
}
