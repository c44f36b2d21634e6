package main

import (
	"fmt"
	"net"
	"os"
	"os/user"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/sari-tools/sales-atlas/pkg/server"
	"github.com/sari-tools/sales-atlas/pkg/services/audit"
	"github.com/sari-tools/sales-atlas/pkg/services/config"
	"github.com/sari-tools/sales-atlas/pkg/services/filterstate"
	"github.com/sari-tools/sales-atlas/pkg/services/kpi"
	"github.com/sari-tools/sales-atlas/pkg/services/pipeline"
	"github.com/sari-tools/sales-atlas/pkg/services/retrieval"
)

var (
	cfgPath string
	profile string
)

func main() {
	var rootCmd = &cobra.Command{
		Use:   "web",
		Short: "Start the web server for Sales Atlas",
		RunE:  runServer,
	}

	usr, _ := user.Current()
	defaultPath := fmt.Sprintf("%s/.salesatlascfg", usr.HomeDir)

	rootCmd.Flags().StringVarP(&cfgPath, "config", "c", defaultPath,
		"Path to the .salesatlascfg file (default is $HOME/.salesatlascfg)")
	rootCmd.Flags().StringVarP(&profile, "profile", "p", "default",
		"Data source profile to use")

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func runServer(cmd *cobra.Command, _ []string) error {
	if err := godotenv.Load(); err != nil {
		fmt.Printf("Error loading .env file: %v\n", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
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
	logger.Info().Str("profile", prof.Name).Str("type", string(prof.Type)).Msg("data source selected")

	filters := filterstate.NewStore()

	retriever, err := retrieval.NewEngine(src, retrieval.DefaultConfig())
	if err != nil {
		return fmt.Errorf("failed to create retrieval engine: %w", err)
	}
	auditor, err := audit.NewEngine(src, audit.DefaultSettings())
	if err != nil {
		return fmt.Errorf("failed to create audit engine: %w", err)
	}

	pipe, err := pipeline.New(filters, retriever, kpi.NewEngine(), auditor, pipeline.DefaultConfig())
	if err != nil {
		return fmt.Errorf("failed to create pipeline: %w", err)
	}
	pipe.Start(ctx)

	host := os.Getenv("SERVER_HOST")
	port := os.Getenv("SERVER_PORT")

	if host == "" || port == "" {
		logger.Error().Msgf("Missing server configuration from .env file")
		os.Exit(1)
	}

	webAPI := server.NewWebAPI(logger, server.Config{
		Addr:            net.JoinHostPort(host, port),
		ShutdownTimeout: 10 * time.Second,
		Dependencies: server.Dependencies{
			Filters:  filters,
			Pipeline: pipe,
		},
	})

	return webAPI.Start()
}
