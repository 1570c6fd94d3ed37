// Package migrations embeds and applies the portal schema migrations.
package migrations

import (
	"context"
	"crypto/sha256"
	"embed"
	"encoding/binary"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hccommerce/portal/internal/observability/logger"
)

//go:embed *.sql
var FS embed.FS

// lockID genera un ID estable para pg_advisory_lock.
func lockID() int64 {
	h := sha256.Sum256([]byte("portal_migration"))
	return int64(binary.BigEndian.Uint64(h[:8]))
}

// Run aplica las migraciones pendientes bajo advisory lock para evitar
// race conditions entre réplicas que arrancan a la vez. Devuelve cuántos
// scripts se aplicaron.
func Run(ctx context.Context, pool *pgxpool.Pool) (int, error) {
	log := logger.Named("migrations")
	id := lockID()

	lockCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	var acquired bool
	if err := pool.QueryRow(lockCtx, "SELECT pg_try_advisory_lock($1)", id).Scan(&acquired); err != nil {
		return 0, fmt.Errorf("acquire migration lock: %w", err)
	}
	if !acquired {
		log.Info("migration lock held by another process, waiting")
		if err := pool.QueryRow(lockCtx, "SELECT pg_advisory_lock($1)", id).Scan(&acquired); err != nil {
			return 0, fmt.Errorf("wait for migration lock: %w", err)
		}
	}
	defer func() {
		if _, err := pool.Exec(context.Background(), "SELECT pg_advisory_unlock($1)", id); err != nil {
			log.Warn("release migration lock failed", logger.Err(err))
		}
	}()

	return run(ctx, pool)
}

func run(ctx context.Context, pool *pgxpool.Pool) (int, error) {
	if _, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migration (
			name       text PRIMARY KEY,
			applied_at timestamptz NOT NULL DEFAULT now()
		)`); err != nil {
		return 0, fmt.Errorf("ensure schema_migration: %w", err)
	}

	entries, err := fs.ReadDir(FS, ".")
	if err != nil {
		return 0, err
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)

	log := logger.Named("migrations")
	var applied int
	for _, f := range files {
		var exists bool
		if err := pool.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM schema_migration WHERE name = $1)", f).Scan(&exists); err != nil {
			return applied, err
		}
		if exists {
			continue
		}
		b, err := FS.ReadFile(f)
		if err != nil {
			return applied, err
		}
		if _, err := pool.Exec(ctx, string(b)); err != nil {
			return applied, fmt.Errorf("exec %s: %w", f, err)
		}
		if _, err := pool.Exec(ctx, "INSERT INTO schema_migration (name) VALUES ($1)", f); err != nil {
			return applied, err
		}
		log.Info("migration applied", logger.Op(f))
		applied++
	}
	return applied, nil
}
