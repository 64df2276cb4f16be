// Command gurume-seed loads reference data into Postgres and moderates
// routes from the command line.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/FACorreiaa/gurume/internal/app/domain/catalog"
	routesPkg "github.com/FACorreiaa/gurume/internal/app/domain/routes"
	"github.com/FACorreiaa/gurume/internal/app/models"
	database "github.com/FACorreiaa/gurume/internal/db"
	"github.com/FACorreiaa/gurume/internal/pkg/config"
	"github.com/FACorreiaa/gurume/internal/pkg/logger"
)

var (
	configPath  string
	skipMigrate bool
)

var rootCmd = &cobra.Command{
	Use:   "gurume-seed",
	Short: "Seed and maintain the gurume database",
	Long: `Seed and maintain the gurume database.

Available subcommands:
  catalog   - Write the embedded cities, districts and places
  provinces - Import Türkiye provinces and their districts
  moderate  - Approve, reject or reset a route`,
	SilenceUsage: true,
}

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Write the embedded catalog into Postgres",
	Args:  cobra.NoArgs,
	RunE:  runCatalog,
}

var provincesCmd = &cobra.Command{
	Use:   "provinces",
	Short: "Import Türkiye provinces into Postgres",
	Args:  cobra.NoArgs,
	RunE:  runProvinces,
}

var moderateCmd = &cobra.Command{
	Use:       "moderate <route-id> <approved|rejected|pending>",
	Short:     "Set the moderation status of a route",
	Args:      cobra.ExactArgs(2),
	ValidArgs: []string{string(models.ModerationApproved), string(models.ModerationRejected), string(models.ModerationPending)},
	RunE:      runModerate,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", os.Getenv("GURUME_CONFIG"), "config file (yaml)")
	rootCmd.PersistentFlags().BoolVar(&skipMigrate, "skip-migrate", false, "do not apply migrations first")
	rootCmd.AddCommand(catalogCmd, provincesCmd, moderateCmd)
}

func main() {
	_ = godotenv.Load()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// env is what every subcommand needs: configuration, a logger and a pool.
type env struct {
	cfg    *config.Config
	logger *zap.Logger
	pool   *pgxpool.Pool
}

func setup(ctx context.Context) (*env, error) {
	cfg, err := config.LoadFile(configPath)
	if err != nil {
		return nil, err
	}
	if cfg.DemoMode() {
		return nil, fmt.Errorf("%w: set POSTGRES_PASSWORD to seed a database", models.ErrNotConfigured)
	}

	log, err := logger.Init(cfg.Log.Level, zap.String("service", "gurume-seed"))
	if log == nil {
		return nil, err
	}

	dbConfig, err := database.NewDatabaseConfig(cfg, log)
	if err != nil {
		return nil, err
	}
	pool, err := database.Init(ctx, dbConfig, log)
	if err != nil {
		return nil, err
	}
	if !database.WaitForDB(ctx, pool, log) {
		pool.Close()
		return nil, fmt.Errorf("database at %s:%s is unreachable", cfg.Repositories.Postgres.Host, cfg.Repositories.Postgres.Port)
	}
	if !skipMigrate {
		if err := database.RunMigrations(dbConfig.ConnectionURL, log); err != nil {
			pool.Close()
			return nil, err
		}
	}
	return &env{cfg: cfg, logger: log, pool: pool}, nil
}

func (e *env) close() {
	e.pool.Close()
	_ = e.logger.Sync()
}

// catalogService loads the current catalog so later steps can resolve
// existing cities and routes.
func (e *env) catalogService(ctx context.Context) (*catalog.Service, error) {
	svc := catalog.NewService(catalog.NewStore(nil), catalog.NewPostgresRepository(e.pool, e.logger),
		routesPkg.NewPostgresRepository(e.pool, e.logger), nil, e.logger)
	if err := svc.Refresh(ctx); err != nil {
		return nil, err
	}
	return svc, nil
}

func runCatalog(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	e, err := setup(ctx)
	if err != nil {
		return err
	}
	defer e.close()

	svc := catalog.NewService(catalog.NewStore(nil), catalog.NewPostgresRepository(e.pool, e.logger), nil, nil, e.logger)
	seed, err := svc.SeedGeography(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "seeded %d cities, %d districts, %d places\n",
		len(seed.Cities), len(seed.Districts), len(seed.Places))
	return nil
}

func runProvinces(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	e, err := setup(ctx)
	if err != nil {
		return err
	}
	defer e.close()

	current, err := e.catalogService(ctx)
	if err != nil {
		return err
	}
	importer := catalog.NewProvinceImporter(e.cfg.Catalog.ProvinceAPIURL, e.cfg.Places.Timeout, e.logger)
	svc := catalog.NewService(current.Store(), catalog.NewPostgresRepository(e.pool, e.logger), nil, importer, e.logger)

	cities, districts, err := svc.ImportProvinces(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "imported %d cities, %d districts\n", cities, districts)
	return nil
}

func runModerate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	e, err := setup(ctx)
	if err != nil {
		return err
	}
	defer e.close()

	catalogSvc, err := e.catalogService(ctx)
	if err != nil {
		return err
	}
	routeSvc := routesPkg.NewService(routesPkg.NewPostgresRepository(e.pool, e.logger), catalogSvc.Store(),
		routesPkg.NewBuilder(e.cfg.Routes.RequireModeration), e.logger)

	route, err := routeSvc.Moderate(ctx, args[0], models.ModerationStatus(args[1]))
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "route %s is now %s (published: %t)\n", route.ID, route.ModerationStatus, route.IsPublished)
	return nil
}
