package database

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"warbler/internal/middleware"

	"gorm.io/gorm"
)

// ErrSQLMigrationsUnsupported is returned when the embedded PostgreSQL
// scripts are run against another dialect. SQLite schemas come from AutoMigrate.
var ErrSQLMigrationsUnsupported = errors.New("sql migrations require postgres; use AutoMigrate for sqlite")

// AppliedMigration is one row of the schema_migrations ledger.
type AppliedMigration struct {
	Version   int    `gorm:"primaryKey;autoIncrement:false"`
	Name      string `gorm:"size:255;not null"`
	Checksum  string `gorm:"size:64;not null"`
	AppliedAt time.Time
}

// TableName keeps the ledger name independent of the struct name.
func (AppliedMigration) TableName() string {
	return "schema_migrations"
}

// Checksum fingerprints the up script so edits to applied migrations are caught.
func (m *Migration) Checksum() string {
	sum := sha256.Sum256([]byte(m.UpScript))
	return hex.EncodeToString(sum[:])
}

// Migrator applies a fixed, version-ordered set of migrations and records
// them in the ledger.
type Migrator struct {
	db         *gorm.DB
	migrations []Migration
}

// NewMigrator returns a Migrator for set, which must be sorted by version.
func NewMigrator(db *gorm.DB, set []Migration) *Migrator {
	return &Migrator{db: db, migrations: set}
}

func (m *Migrator) ensureLedger(ctx context.Context) error {
	if err := m.db.WithContext(ctx).AutoMigrate(&AppliedMigration{}); err != nil {
		return fmt.Errorf("create migration ledger: %w", err)
	}
	return nil
}

// Applied lists ledger rows in version order. A missing ledger means nothing was applied.
func (m *Migrator) Applied(ctx context.Context) ([]AppliedMigration, error) {
	db := m.db.WithContext(ctx)
	if !db.Migrator().HasTable(&AppliedMigration{}) {
		return nil, nil
	}
	var rows []AppliedMigration
	if err := db.Order("version ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("read migration ledger: %w", err)
	}
	return rows, nil
}

// Pending returns the migrations not yet in the ledger. It fails when the
// ledger holds versions the binary does not know or when an applied script
// has changed since it ran.
func (m *Migrator) Pending(ctx context.Context) ([]Migration, error) {
	applied, err := m.Applied(ctx)
	if err != nil {
		return nil, err
	}

	byVersion := make(map[int]*Migration, len(m.migrations))
	for i := range m.migrations {
		byVersion[m.migrations[i].Version] = &m.migrations[i]
	}

	done := make(map[int]bool, len(applied))
	var unknown []string
	for _, row := range applied {
		known, ok := byVersion[row.Version]
		if !ok {
			unknown = append(unknown, fmt.Sprintf("%06d", row.Version))
			continue
		}
		if row.Checksum != known.Checksum() {
			return nil, fmt.Errorf("migration %s changed after it was applied", known)
		}
		done[row.Version] = true
	}
	if len(unknown) > 0 {
		return nil, fmt.Errorf("ledger holds versions missing from this build: %v", unknown)
	}

	var pending []Migration
	for _, mig := range m.migrations {
		if !done[mig.Version] {
			pending = append(pending, mig)
		}
	}
	return pending, nil
}

// Up applies every pending migration, each in its own transaction, and
// returns how many ran.
func (m *Migrator) Up(ctx context.Context) (int, error) {
	if err := m.ensureLedger(ctx); err != nil {
		return 0, err
	}
	pending, err := m.Pending(ctx)
	if err != nil {
		return 0, err
	}

	for _, mig := range pending {
		err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := tx.Exec(mig.UpScript).Error; err != nil {
				return fmt.Errorf("apply %s: %w", mig.String(), err)
			}
			return tx.Create(&AppliedMigration{
				Version:   mig.Version,
				Name:      mig.Name,
				Checksum:  mig.Checksum(),
				AppliedAt: time.Now().UTC(),
			}).Error
		})
		if err != nil {
			return 0, err
		}
		middleware.Logger.Info("Migration applied", slog.String("migration", mig.String()))
	}
	return len(pending), nil
}

// Down reverts version. Only the newest applied migration can be reverted
// so the schema never skips a step.
func (m *Migrator) Down(ctx context.Context, version int) error {
	idx := slices.IndexFunc(m.migrations, func(mig Migration) bool { return mig.Version == version })
	if idx < 0 {
		return fmt.Errorf("migration version %d not found", version)
	}
	mig := m.migrations[idx]

	applied, err := m.Applied(ctx)
	if err != nil {
		return err
	}
	if len(applied) == 0 || !slices.ContainsFunc(applied, func(a AppliedMigration) bool { return a.Version == version }) {
		return fmt.Errorf("migration %d has not been applied", version)
	}
	if latest := applied[len(applied)-1].Version; latest != version {
		return fmt.Errorf("migration %d is not the latest applied (%06d)", version, latest)
	}

	err = m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(mig.DownScript).Error; err != nil {
			return fmt.Errorf("revert %s: %w", mig.String(), err)
		}
		return tx.Delete(&AppliedMigration{}, version).Error
	})
	if err != nil {
		return err
	}
	middleware.Logger.Info("Migration rolled back", slog.String("migration", mig.String()))
	return nil
}

func requirePostgres(db *gorm.DB) error {
	if name := db.Dialector.Name(); name != "postgres" {
		return fmt.Errorf("%w (dialect %s)", ErrSQLMigrationsUnsupported, name)
	}
	return nil
}

// RunMigrations applies the embedded PostgreSQL migrations.
func RunMigrations(ctx context.Context, db *gorm.DB) error {
	if err := requirePostgres(db); err != nil {
		return err
	}
	_, err := NewMigrator(db, GetMigrations()).Up(ctx)
	return err
}

// RollbackMigration reverts the newest embedded migration, which must be version.
func RollbackMigration(ctx context.Context, db *gorm.DB, version int) error {
	if err := requirePostgres(db); err != nil {
		return err
	}
	return NewMigrator(db, GetMigrations()).Down(ctx, version)
}
