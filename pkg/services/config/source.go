package config

import (
	"database/sql"
	"fmt"

	"github.com/sari-tools/sales-atlas/pkg/store/datasource"
	"github.com/sari-tools/sales-atlas/pkg/store/datasource/fixture"
	"github.com/sari-tools/sales-atlas/pkg/store/datasource/warehouse"
)

// NewDataSource constructs the data source a profile names. The choice
// is made once per process; there is no runtime switching.
func NewDataSource(prof *Profile) (datasource.DataSource, error) {
	switch prof.Type {
	case SourceWarehouse:
		db, err := OpenWarehouse(prof)
		if err != nil {
			return nil, err
		}
		return warehouse.NewSource(db)
	default:
		if prof.Seed != 0 {
			return fixture.NewSourceWithSeed(prof.Seed, fixture.DefaultTransactions), nil
		}
		return fixture.NewSource(), nil
	}
}

// OpenWarehouse opens the warehouse database for a profile, resolving
// the inline db_path or, when the profile names a config_file, the full
// warehouse config.
func OpenWarehouse(prof *Profile) (*sql.DB, error) {
	if prof.Type != SourceWarehouse {
		return nil, fmt.Errorf("profile %s is not a warehouse profile", prof.Name)
	}

	settings, err := warehouseSettings(prof)
	if err != nil {
		return nil, err
	}

	db, err := warehouse.NewDB(settings)
	if err != nil {
		return nil, fmt.Errorf("failed to open warehouse: %w", err)
	}
	return db, nil
}

func warehouseSettings(prof *Profile) (warehouse.Settings, error) {
	if prof.ConfigFile != "" {
		cfg, err := warehouse.LoadConfig(prof.ConfigFile)
		if err != nil {
			return warehouse.Settings{}, fmt.Errorf("failed to load warehouse config: %w", err)
		}
		return warehouse.Settings{DbPath: cfg.DbPath}, nil
	}
	return warehouse.Settings{DbPath: prof.DbPath}, nil
}
