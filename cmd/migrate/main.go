// Migrate the database from one state to another
package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v4"

	"github.com/dense-analysis/walletledger/internal/app"
)

type MigrationExecutor struct {
	connection        *pgx.Conn
	directoryName     string
	migrationFileList []string
}

func NewMigrationExecutor(connection *pgx.Conn, directoryName string) (*MigrationExecutor, error) {
	fileList, err := os.ReadDir(directoryName)

	if err != nil {
		return nil, err
	}

	migrationFileList := make([]string, 0, len(fileList))

	for _, file := range fileList {
		if !file.IsDir() && strings.HasSuffix(file.Name(), ".sql") {
			migrationFileList = append(migrationFileList, file.Name())
		}
	}

	return &MigrationExecutor{connection, directoryName, migrationFileList}, nil
}

func (executor *MigrationExecutor) CreateMigrationTable(ctx context.Context) error {
	_, err := executor.connection.Exec(
		ctx,
		"CREATE TABLE IF NOT EXISTS ledger_migration (id serial, migration_number integer NOT NULL UNIQUE);",
	)

	return err
}

func (executor *MigrationExecutor) CurrentMigration(ctx context.Context) (int, error) {
	row := executor.connection.QueryRow(
		ctx,
		"SELECT COALESCE(MAX(migration_number), 0) FROM ledger_migration;",
	)

	var migrationNumber int32
	err := row.Scan(&migrationNumber)

	return int(migrationNumber), err
}

// findMigration returns the file for a migration number, or "" if there is
// none.
func findMigration(fileList []string, migrationNumber int, reverse bool) string {
	for _, filename := range fileList {
		splitList := strings.Split(strings.TrimSuffix(filename, ".sql"), "_")
		fileMigrationNumber, err := strconv.Atoi(splitList[0])

		if err != nil {
			continue
		}

		isReverseFile := splitList[len(splitList)-1] == "reverse"

		if migrationNumber == fileMigrationNumber && reverse == isReverseFile {
			return filename
		}
	}

	return ""
}

// splitQueries splits a migration file into statements.
//
// NOTE: SQL functions in migration files won't work.
func splitQueries(content string) []string {
	var queries []string

	for _, query := range strings.Split(content, ";\n") {
		if query = strings.TrimSpace(query); query != "" {
			queries = append(queries, query)
		}
	}

	return queries
}

func (executor *MigrationExecutor) applyMigration(ctx context.Context, migrationNumber int, reverse bool) (bool, error) {
	filename := findMigration(executor.migrationFileList, migrationNumber, reverse)

	if filename == "" {
		return true, nil
	}

	matchedFilename := filepath.Join(executor.directoryName, filename)
	fmt.Printf("Applying migration: %s\n", matchedFilename)

	file, err := os.ReadFile(matchedFilename)

	if err != nil {
		return false, err
	}

	batch := &pgx.Batch{}

	for _, query := range splitQueries(string(file)) {
		batch.Queue(query)
	}

	if reverse {
		batch.Queue("DELETE FROM ledger_migration WHERE migration_number = $1;", migrationNumber)
	} else {
		batch.Queue(
			"INSERT INTO ledger_migration (migration_number) VALUES ($1) ON CONFLICT DO NOTHING;",
			migrationNumber,
		)
	}

	tx, err := executor.connection.Begin(ctx)

	if err != nil {
		return false, err
	}

	defer tx.Rollback(ctx)

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return false, err
	}

	return false, tx.Commit(ctx)
}

func (executor *MigrationExecutor) ApplyMigrations(ctx context.Context, selectedMigrationNumber int) error {
	if err := executor.CreateMigrationTable(ctx); err != nil {
		return err
	}

	startMigrationNumber, err := executor.CurrentMigration(ctx)

	if err != nil {
		return err
	}

	reverse := selectedMigrationNumber < startMigrationNumber

	for i := startMigrationNumber; i != selectedMigrationNumber; {
		if !reverse {
			i += 1
		}

		stop, err := executor.applyMigration(ctx, i, reverse)

		if reverse {
			i -= 1
		}

		if err != nil {
			return err
		}

		if stop {
			break
		}
	}

	return nil
}

func parseSelectedMigration(args []string) (int, error) {
	if len(args) > 1 {
		return 0, fmt.Errorf("too many arguments")
	}

	if len(args) == 0 {
		return math.MaxInt32, nil
	}

	selectedMigration, err := strconv.Atoi(args[0])

	if err != nil || selectedMigration < 0 {
		return 0, fmt.Errorf("invalid migration number: %s", args[0])
	}

	return selectedMigration, nil
}

func main() {
	selectedMigration, err := parseSelectedMigration(os.Args[1:])

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	cfg, _, err := app.Setup()

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	ctx := context.Background()
	conn, err := pgx.Connect(ctx, cfg.Postgres.URL())

	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %s\n", err)
		os.Exit(1)
	}

	defer conn.Close(ctx)

	executor, err := NewMigrationExecutor(conn, "migrations")

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading migrations: %s\n", err)
		os.Exit(1)
	}

	if err := executor.ApplyMigrations(ctx, selectedMigration); err != nil {
		fmt.Fprintf(os.Stderr, "Error applying migration: %s\n", err)
		os.Exit(1)
	}
}
