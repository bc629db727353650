package repository

import (
	"context"
	"fmt"
	"strconv"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/exam-assign-api/internal/models"
)

type poolEntry struct {
	Pool     string `db:"pool"`
	Position int    `db:"position"`
	Value    string `db:"value"`
}

// CodePoolRepository stores the four configured code pools as ordered rows.
type CodePoolRepository struct {
	db *sqlx.DB
}

// NewCodePoolRepository constructs the repository.
func NewCodePoolRepository(db *sqlx.DB) *CodePoolRepository {
	return &CodePoolRepository{db: db}
}

// Get loads every pool in stored order. Unset pools come back empty.
func (r *CodePoolRepository) Get(ctx context.Context) (models.CodePools, error) {
	var entries []poolEntry
	const query = "SELECT pool, position, value FROM code_pools ORDER BY pool ASC, position ASC"
	if err := r.db.SelectContext(ctx, &entries, query); err != nil {
		return models.CodePools{}, fmt.Errorf("load code pools: %w", err)
	}

	pools := models.CodePools{
		SubjectCodes:      []string{},
		Shifts:            []string{},
		PacketCodes:       []string{},
		TotalExamsOptions: []int{},
	}
	for _, entry := range entries {
		switch models.Collection(entry.Pool) {
		case models.CollectionSubjectCodes:
			pools.SubjectCodes = append(pools.SubjectCodes, entry.Value)
		case models.CollectionShifts:
			pools.Shifts = append(pools.Shifts, entry.Value)
		case models.CollectionPacketCodes:
			pools.PacketCodes = append(pools.PacketCodes, entry.Value)
		case models.CollectionTotalExamsOptions:
			n, err := strconv.Atoi(entry.Value)
			if err != nil {
				return models.CodePools{}, fmt.Errorf("parse total exams option %q: %w", entry.Value, err)
			}
			pools.TotalExamsOptions = append(pools.TotalExamsOptions, n)
		}
	}
	return pools, nil
}

// Replace swaps all four pools in a single transaction.
func (r *CodePoolRepository) Replace(ctx context.Context, pools models.CodePools) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace code pools: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM code_pools"); err != nil {
		return fmt.Errorf("clear code pools: %w", err)
	}

	entries := poolEntries(pools)
	if len(entries) > 0 {
		const query = "INSERT INTO code_pools (pool, position, value) VALUES (:pool, :position, :value)"
		if _, err := tx.NamedExecContext(ctx, query, entries); err != nil {
			return fmt.Errorf("insert code pools: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit code pools: %w", err)
	}
	return nil
}

func poolEntries(pools models.CodePools) []poolEntry {
	var entries []poolEntry
	add := func(pool models.Collection, values []string) {
		for i, value := range values {
			entries = append(entries, poolEntry{Pool: string(pool), Position: i, Value: value})
		}
	}
	add(models.CollectionSubjectCodes, pools.SubjectCodes)
	add(models.CollectionShifts, pools.Shifts)
	add(models.CollectionPacketCodes, pools.PacketCodes)

	options := make([]string, len(pools.TotalExamsOptions))
	for i, n := range pools.TotalExamsOptions {
		options[i] = strconv.Itoa(n)
	}
	add(models.CollectionTotalExamsOptions, options)
	return entries
}
