package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"resumeStudio/internal/config"
	"resumeStudio/internal/database"
)

type dbFlags struct {
	host     string
	port     int
	name     string
	user     string
	password string
	sslmode  string
}

func newMigrateCmd() *cobra.Command {
	var f dbFlags
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the resumes table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := f.databaseConfig(os.Getenv)
			if err != nil {
				return fmt.Errorf("load database config: %w", err)
			}
			db, err := database.InitDatabase(cfg)
			if err != nil {
				return fmt.Errorf("init database: %w", err)
			}
			if err := database.Migrate(db); err != nil {
				return fmt.Errorf("auto migrate: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "migrated %s@%s:%d/%s\n", cfg.User, cfg.Host, cfg.Port, cfg.Name)
			return nil
		},
	}
	cmd.Flags().StringVar(&f.host, "db-host", "", "数据库 Host（默认读 DATABASE_HOST）")
	cmd.Flags().IntVar(&f.port, "db-port", 0, "数据库 Port（默认读 DATABASE_PORT）")
	cmd.Flags().StringVar(&f.name, "db-name", "", "数据库名（默认读 POSTGRES_DB）")
	cmd.Flags().StringVar(&f.user, "db-user", "", "数据库用户（默认读 POSTGRES_USER）")
	cmd.Flags().StringVar(&f.password, "db-password", "", "数据库密码（默认读 POSTGRES_PASSWORD）")
	cmd.Flags().StringVar(&f.sslmode, "db-sslmode", "", "数据库 SSLMODE（默认读 DATABASE_SSLMODE）")
	return cmd
}

// databaseConfig 合并命令行参数与环境变量，参数优先。
func (f dbFlags) databaseConfig(getenv func(string) string) (config.DatabaseConfig, error) {
	pick := func(flag string, envs ...string) string {
		if v := strings.TrimSpace(flag); v != "" {
			return v
		}
		for _, env := range envs {
			if v := strings.TrimSpace(getenv(env)); v != "" {
				return v
			}
		}
		return ""
	}

	port := f.port
	if port <= 0 {
		if env := strings.TrimSpace(getenv("DATABASE_PORT")); env != "" {
			p, err := strconv.Atoi(env)
			if err != nil {
				return config.DatabaseConfig{}, fmt.Errorf("parse DATABASE_PORT: %w", err)
			}
			port = p
		}
	}
	if port <= 0 {
		port = 5432
	}

	cfg := config.DatabaseConfig{
		Host:     pick(f.host, "DATABASE_HOST"),
		Port:     port,
		Name:     pick(f.name, "POSTGRES_DB", "DB_NAME"),
		User:     pick(f.user, "POSTGRES_USER", "DB_USER"),
		Password: pick(f.password, "POSTGRES_PASSWORD", "DB_PASSWORD"),
		SSLMode:  pick(f.sslmode, "DATABASE_SSLMODE"),
	}
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.SSLMode == "" {
		cfg.SSLMode = "disable"
	}

	switch {
	case cfg.Name == "":
		return config.DatabaseConfig{}, errors.New("database name is required (POSTGRES_DB)")
	case cfg.User == "":
		return config.DatabaseConfig{}, errors.New("database user is required (POSTGRES_USER)")
	case cfg.Password == "":
		return config.DatabaseConfig{}, errors.New("database password is required (POSTGRES_PASSWORD)")
	}
	return cfg, nil
}
