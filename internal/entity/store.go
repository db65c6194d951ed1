package entity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/lib/pq"
)

// DB is the subset of *sql.DB the store needs.
type DB interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Lookup selects how an exactly-one query treats zero matches.
type Lookup int

const (
	// MustExist fails with a NotFoundError when nothing matches.
	MustExist Lookup = iota
	// CheckOnly returns nil, nil when nothing matches.
	CheckOnly
)

// Store implements the CRUD contract for one entity type.
type Store[T any] struct {
	db     DB
	desc   *Descriptor[T]
	logger *slog.Logger
}

// NewStore creates a Store for the type described by desc.
func NewStore[T any](db DB, desc *Descriptor[T], logger *slog.Logger) *Store[T] {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store[T]{
		db:     db,
		desc:   desc,
		logger: logger.With(slog.String("entity", desc.Kind)),
	}
}

// Descriptor returns the static description of T.
func (s *Store[T]) Descriptor() *Descriptor[T] {
	return s.desc
}

// Save inserts e, or rewrites every domain column when e already has a
// PID, in a single transaction. Generated fields are copied onto e only
// after the commit succeeds.
func (s *Store[T]) Save(ctx context.Context, e *T) (*T, error) {
	meta := s.desc.Meta(e)

	if meta.Persisted() {
		var createdOn, updatedOn time.Time
		err := s.withTx(ctx, "save", func(tx *sql.Tx) error {
			return s.rewriteRow(ctx, tx, e, &createdOn, &updatedOn)
		})
		if err != nil {
			return nil, err
		}
		meta.CreatedOn, meta.UpdatedOn = createdOn, updatedOn
		return e, nil
	}

	var generated Meta
	err := s.withTx(ctx, "save", func(tx *sql.Tx) error {
		return s.insertRow(ctx, tx, e, &generated)
	})
	if err != nil {
		return nil, err
	}
	*meta = generated

	return e, nil
}

func (s *Store[T]) insertRow(ctx context.Context, tx *sql.Tx, e *T, generated *Meta) error {
	returning := " RETURNING " + quoteColumns(ColumnPID, ColumnCreatedOn, ColumnUpdatedOn)

	var query string
	var args []any
	if len(s.desc.Fields) == 0 {
		query = "INSERT INTO " + pq.QuoteIdentifier(s.desc.Table) + " DEFAULT VALUES" + returning
	} else {
		columns := make([]string, 0, len(s.desc.Fields))
		placeholders := make([]string, 0, len(s.desc.Fields))
		for i, f := range s.desc.Fields {
			columns = append(columns, pq.QuoteIdentifier(f.Column))
			placeholders = append(placeholders, fmt.Sprintf("$%d", i+1))
			args = append(args, f.Value(e))
		}
		query = fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)%s",
			pq.QuoteIdentifier(s.desc.Table),
			strings.Join(columns, ", "),
			strings.Join(placeholders, ", "),
			returning,
		)
	}

	return tx.QueryRowContext(ctx, query, args...).Scan(&generated.PID, &generated.CreatedOn, &generated.UpdatedOn)
}

func (s *Store[T]) rewriteRow(ctx context.Context, tx *sql.Tx, e *T, createdOn, updatedOn *time.Time) error {
	values := make(map[string]any, len(s.desc.Fields))
	for _, f := range s.desc.Fields {
		values[f.Column] = f.Value(e)
	}
	return s.updateColumns(ctx, tx, s.desc.Meta(e).PID, values, createdOn, updatedOn)
}

// updateColumns writes values to the row identified by pid and bumps
// updated_on. Columns are written in sorted order.
func (s *Store[T]) updateColumns(ctx context.Context, tx *sql.Tx, pid int64, values map[string]any, createdOn, updatedOn *time.Time) error {
	columns := make([]string, 0, len(values))
	for c := range values {
		columns = append(columns, c)
	}
	sort.Strings(columns)

	assignments := make([]string, 0, len(columns)+1)
	args := make([]any, 0, len(columns)+1)
	for i, c := range columns {
		assignments = append(assignments, fmt.Sprintf("%s = $%d", pq.QuoteIdentifier(c), i+1))
		args = append(args, values[c])
	}
	assignments = append(assignments, pq.QuoteIdentifier(ColumnUpdatedOn)+" = GREATEST(now(), "+pq.QuoteIdentifier(ColumnCreatedOn)+")")
	args = append(args, pid)

	query := fmt.Sprintf("UPDATE %s SET %s WHERE %s = $%d RETURNING %s",
		pq.QuoteIdentifier(s.desc.Table),
		strings.Join(assignments, ", "),
		pq.QuoteIdentifier(ColumnPID),
		len(args),
		quoteColumns(ColumnCreatedOn, ColumnUpdatedOn),
	)

	err := tx.QueryRowContext(ctx, query, args...).Scan(createdOn, updatedOn)
	if errors.Is(err, sql.ErrNoRows) {
		return &NotFoundError{Kind: s.desc.Kind, Query: Filter{ColumnPID: pid}}
	}
	return err
}

// Update assigns fields to e and persists them in one transaction.
// Values are staged on a copy of e; e itself changes only after the
// commit succeeds, so a failed update leaves e as it was.
func (s *Store[T]) Update(ctx context.Context, e *T, fields map[string]any) error {
	meta := s.desc.Meta(e)
	if !meta.Persisted() {
		return fmt.Errorf("update %s: %w", s.desc.Kind, ErrNotPersisted)
	}
	if len(fields) == 0 {
		return nil
	}

	staged := *e
	values := make(map[string]any, len(fields))
	for name, v := range fields {
		switch name {
		case ColumnPID, ColumnCreatedOn, ColumnUpdatedOn:
			return fmt.Errorf("update %s: %w: %s", s.desc.Kind, ErrImmutableField, name)
		}

		f, ok := s.desc.field(name)
		if !ok {
			return fmt.Errorf("update %s: %w: %s", s.desc.Kind, ErrUnknownField, name)
		}
		if err := f.Assign(&staged, v); err != nil {
			return fmt.Errorf("update %s: %w", s.desc.Kind, err)
		}
		values[name] = f.Value(&staged)
	}

	var createdOn, updatedOn time.Time
	err := s.withTx(ctx, "update", func(tx *sql.Tx) error {
		return s.updateColumns(ctx, tx, meta.PID, values, &createdOn, &updatedOn)
	})
	if err != nil {
		return err
	}

	stagedMeta := s.desc.Meta(&staged)
	stagedMeta.CreatedOn, stagedMeta.UpdatedOn = createdOn, updatedOn
	*e = staged

	return nil
}

// Delete removes the row of e in one transaction. It reports false
// when no row with e's PID existed.
func (s *Store[T]) Delete(ctx context.Context, e *T) (bool, error) {
	meta := s.desc.Meta(e)
	if !meta.Persisted() {
		return false, fmt.Errorf("delete %s: %w", s.desc.Kind, ErrNotPersisted)
	}

	query := fmt.Sprintf("DELETE FROM %s WHERE %s = $1",
		pq.QuoteIdentifier(s.desc.Table),
		pq.QuoteIdentifier(ColumnPID),
	)

	var affected int64
	err := s.withTx(ctx, "delete", func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, query, meta.PID)
		if err != nil {
			return err
		}
		affected, err = result.RowsAffected()
		return err
	})
	if err != nil {
		return false, err
	}

	return affected > 0, nil
}

// withTx runs fn in a transaction, rolling back when fn fails.
func (s *Store[T]) withTx(ctx context.Context, op string, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &PersistenceError{Op: op, Kind: s.desc.Kind, Err: err}
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			s.logger.Error("rollback failed",
				slog.String("op", op),
				slog.String("error", rbErr.Error()),
			)
		}

		var notFound *NotFoundError
		if errors.As(err, &notFound) {
			return err
		}
		return &PersistenceError{Op: op, Kind: s.desc.Kind, Err: err}
	}

	if err := tx.Commit(); err != nil {
		return &PersistenceError{Op: op, Kind: s.desc.Kind, Err: err}
	}

	return nil
}

func quoteColumns(columns ...string) string {
	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = pq.QuoteIdentifier(c)
	}
	return strings.Join(quoted, ", ")
}
