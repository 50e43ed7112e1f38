// Command migrate applies migrations/*.sql in name order. Each file runs in
// its own transaction and is recorded in schema_migrations, so reruns only
// apply new files.
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"github.com/ignite/brief/internal/config"
	"github.com/ignite/brief/internal/pkg/logger"
)

const createMigrationsTable = `CREATE TABLE IF NOT EXISTS schema_migrations (
	name       TEXT PRIMARY KEY,
	applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

func main() {
	configPath := flag.String("config", "config/brief.yaml", "config file")
	dir := flag.String("dir", "migrations", "migrations directory")
	list := flag.Bool("list", false, "list applied migrations and exit")
	flag.Parse()

	cfg, err := config.LoadFromEnv(*configPath)
	if err != nil {
		fatal("load config", err)
	}
	if cfg.DatabaseURL == "" {
		fatal("database_url is required", nil)
	}

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		fatal("connect", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		fatal("ping", err)
	}

	if *list {
		names, err := applied(ctx, db)
		if err != nil {
			fatal("list migrations", err)
		}
		for _, n := range names {
			fmt.Println(n)
		}
		return
	}

	files, err := pending(*dir)
	if err != nil {
		fatal("read migrations", err)
	}
	n, err := migrate(ctx, db, *dir, files)
	if err != nil {
		fatal("migrate", err)
	}
	logger.Info("migrations complete", "applied", n)
}

// pending lists the .sql files in dir, sorted by name.
func pending(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)
	return files, nil
}

func applied(ctx context.Context, db *sql.DB) ([]string, error) {
	if _, err := db.ExecContext(ctx, createMigrationsTable); err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, `SELECT name FROM schema_migrations ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		names = append(names, n)
	}
	return names, rows.Err()
}

// migrate applies files not yet recorded and returns how many ran.
func migrate(ctx context.Context, db *sql.DB, dir string, files []string) (int, error) {
	done, err := applied(ctx, db)
	if err != nil {
		return 0, fmt.Errorf("load applied migrations: %w", err)
	}
	seen := make(map[string]bool, len(done))
	for _, n := range done {
		seen[n] = true
	}

	count := 0
	for _, f := range files {
		if seen[f] {
			continue
		}
		body, err := os.ReadFile(filepath.Join(dir, f))
		if err != nil {
			return count, err
		}
		if err := apply(ctx, db, f, string(body)); err != nil {
			return count, fmt.Errorf("%s: %w", f, err)
		}
		logger.Info("migration applied", "name", f)
		count++
	}
	return count, nil
}

func apply(ctx context.Context, db *sql.DB, name, body string) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if strings.TrimSpace(body) != "" {
		if _, err := tx.ExecContext(ctx, body); err != nil {
			return err
		}
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations (name) VALUES ($1)`, name); err != nil {
		return err
	}
	return tx.Commit()
}

func fatal(msg string, err error) {
	if err != nil {
		logger.Error(msg, "error", err)
	} else {
		logger.Error(msg)
	}
	logger.Sync()
	os.Exit(1)
}
