// Command migrate applies, inspects and rolls back the SQL schema migrations.
//
//	migrate up
//	migrate auto
//	migrate status
//	migrate down <version>
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	"warbler/internal/config"
	"warbler/internal/database"

	"gorm.io/gorm"
)

var errUsage = errors.New("usage: migrate <up|auto|status|down> [version]")

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		log.Fatal(err)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	if len(args) < 1 {
		return errUsage
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := database.ConnectWithOptions(cfg, database.ConnectOptions{ApplySchema: false})
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}

	return execute(ctx, db, cfg, args, out)
}

func execute(ctx context.Context, db *gorm.DB, cfg *config.Config, args []string, out io.Writer) error {
	switch strings.ToLower(strings.TrimSpace(args[0])) {
	case "up":
		if err := database.RunMigrations(ctx, db); err != nil {
			return fmt.Errorf("sql migrations failed: %w", err)
		}
		fmt.Fprintln(out, "sql migrations applied")
	case "auto":
		cfg.DBSchemaMode = database.SchemaModeAuto
		if err := database.ApplySchema(ctx, db, cfg); err != nil {
			return fmt.Errorf("auto schema apply failed: %w", err)
		}
		fmt.Fprintln(out, "automigrations applied")
	case "status":
		status, err := database.GetSchemaStatus(ctx, db, cfg)
		if err != nil {
			return fmt.Errorf("schema status failed: %w", err)
		}
		fmt.Fprintf(out, "mode=%s env=%s run_sql=%t run_auto=%t\n",
			status.Mode, status.Environment, status.WillRunSQL, status.WillRunAutoMigrate)
		for _, v := range status.AppliedVersions {
			fmt.Fprintf(out, "applied: %06d\n", v)
		}
		for _, m := range status.PendingMigrations {
			fmt.Fprintf(out, "pending: %s\n", m.String())
		}
	case "down":
		if len(args) < 2 {
			return errors.New("usage: migrate down <version>")
		}
		version, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid version %q: %w", args[1], err)
		}
		if err := database.RollbackMigration(ctx, db, version); err != nil {
			return fmt.Errorf("rollback failed: %w", err)
		}
		fmt.Fprintf(out, "rolled back migration %d\n", version)
	default:
		return errUsage
	}
	return nil
}
