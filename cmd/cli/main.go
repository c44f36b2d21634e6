package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"os/user"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/sari-tools/sales-atlas/pkg/adapters"
	"github.com/sari-tools/sales-atlas/pkg/services/audit"
	"github.com/sari-tools/sales-atlas/pkg/services/config"
	"github.com/sari-tools/sales-atlas/pkg/services/filterstate"
	"github.com/sari-tools/sales-atlas/pkg/services/kpi"
	"github.com/sari-tools/sales-atlas/pkg/services/retrieval"
	"github.com/sari-tools/sales-atlas/pkg/store/datasource/fixture"
	"github.com/sari-tools/sales-atlas/pkg/store/datasource/warehouse"
)

var (
	cfgPath    string
	profile    string
	from       string
	to         string
	barangays  string
	brands     string
	categories string
	stores     string
	withAudit  bool
)

func main() {
	var rootCmd = &cobra.Command{
		Use:   "salesctl",
		Short: "Run the Sales Atlas aggregation pipeline once and print the result",
		RunE:  runOnce,
	}

	usr, _ := user.Current()
	defaultPath := fmt.Sprintf("%s/.salesatlascfg", usr.HomeDir)

	rootCmd.Flags().StringVarP(&cfgPath, "config", "c", defaultPath,
		"Path to the .salesatlascfg file (default is $HOME/.salesatlascfg)")
	rootCmd.Flags().StringVarP(&profile, "profile", "p", "default", "Data source profile to use")
	rootCmd.Flags().StringVar(&from, "from", "", "Start date (YYYY-MM-DD)")
	rootCmd.Flags().StringVar(&to, "to", "", "End date (YYYY-MM-DD), inclusive")
	rootCmd.Flags().StringVar(&barangays, "barangays", "", "Barangay filter (CSV)")
	rootCmd.Flags().StringVar(&brands, "brands", "", "Brand filter (CSV)")
	rootCmd.Flags().StringVar(&categories, "categories", "", "Category filter (CSV)")
	rootCmd.Flags().StringVar(&stores, "stores", "", "Store filter (CSV)")
	rootCmd.Flags().BoolVar(&withAudit, "audit", false, "Also run the data quality audit")

	seedCmd := &cobra.Command{
		Use:   "seed",
		Short: "Load the fixture dataset into a warehouse profile",
		RunE:  runSeed,
	}
	rootCmd.AddCommand(seedCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func runSeed(cmd *cobra.Command, _ []string) error {
	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()
	ctx := logger.WithContext(cmd.Context())

	registry, err := config.NewRegistry(cfgPath)
	if err != nil {
		return fmt.Errorf("failed to create config registry: %w", err)
	}
	prof, err := registry.GetProfile(ctx, profile)
	if err != nil {
		return fmt.Errorf("failed to resolve profile %q: %w", profile, err)
	}
	seed := prof.Seed
	if seed == 0 {
		seed = fixture.DefaultSeed
	}
	src := fixture.NewSourceWithSeed(seed, fixture.DefaultTransactions)

	db, err := config.OpenWarehouse(prof)
	if err != nil {
		return err
	}
	defer db.Close()

	seeder, err := warehouse.NewSeeder(db)
	if err != nil {
		return fmt.Errorf("failed to create seeder: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	txCtx := warehouse.WithTransaction(ctx, tx)

	for i, name := range src.Brands() {
		if err := seeder.AddBrand(txCtx, fmt.Sprintf("brand-%03d", i+1), name); err != nil {
			return rollback(tx, err)
		}
	}
	for _, st := range src.Stores() {
		if err := seeder.AddStore(txCtx, st.ID, st.Name, st.Barangay, st.Brand); err != nil {
			return rollback(tx, err)
		}
	}
	for _, p := range src.Products() {
		if err := seeder.AddProduct(txCtx, p.ID, p.Name, p.Category, p.Brand); err != nil {
			return rollback(tx, err)
		}
	}
	for i, id := range src.Customers() {
		if err := seeder.AddCustomer(txCtx, id, fmt.Sprintf("Customer %04d", i+1)); err != nil {
			return rollback(tx, err)
		}
	}
	rows := src.Rows()
	if err := seeder.AddTransactions(txCtx, rows); err != nil {
		return rollback(tx, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit seed: %w", err)
	}

	logger.Info().
		Int("transactions", len(rows)).
		Str("db_path", prof.DbPath).
		Msg("warehouse seeded from fixture dataset")
	return nil
}

func rollback(tx *sql.Tx, err error) error {
	if rbErr := tx.Rollback(); rbErr != nil {
		return fmt.Errorf("%w (rollback failed: %v)", err, rbErr)
	}
	return err
}

func runOnce(cmd *cobra.Command, _ []string) error {
	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()
	ctx := logger.WithContext(cmd.Context())

	registry, err := config.NewRegistry(cfgPath)
	if err != nil {
		return fmt.Errorf("failed to create config registry: %w", err)
	}
	prof, err := registry.GetProfile(ctx, profile)
	if err != nil {
		return fmt.Errorf("failed to resolve profile %q: %w", profile, err)
	}

	src, err := config.NewDataSource(prof)
	if err != nil {
		return fmt.Errorf("failed to construct data source: %w", err)
	}

	values := url.Values{}
	setIfPresent(values, "from", from)
	setIfPresent(values, "to", to)
	setIfPresent(values, "barangays", barangays)
	setIfPresent(values, "brands", brands)
	setIfPresent(values, "categories", categories)
	setIfPresent(values, "stores", stores)
	fs := filterstate.Decode(values)

	retriever, err := retrieval.NewEngine(src, retrieval.DefaultConfig())
	if err != nil {
		return fmt.Errorf("failed to create retrieval engine: %w", err)
	}

	result, err := retriever.Fetch(ctx, fs)
	if err != nil {
		return fmt.Errorf("retrieval failed: %w", err)
	}
	if result.Truncated {
		logger.Warn().Int("records", len(result.Records)).Msg("retrieval stopped at safety cap")
	}

	out := map[string]any{
		"filters": adapters.MapDomainFilterStateToAPI(fs),
		"kpis":    adapters.MapDomainKPISetToAPI(kpi.Derive(result.Records)),
	}

	if withAudit {
		auditor, err := audit.NewEngine(src, audit.DefaultSettings())
		if err != nil {
			return fmt.Errorf("failed to create audit engine: %w", err)
		}
		report, err := auditor.Run(ctx, retrieval.BuildPredicate(fs))
		if err != nil {
			return fmt.Errorf("audit failed: %w", err)
		}
		out["audit"] = adapters.MapDomainAuditReportToAPI(*report)
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(out)
}

func setIfPresent(values url.Values, key, value string) {
	if value != "" {
		values.Set(key, value)
	}
}
