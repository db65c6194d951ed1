package entity

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/lib/pq"
)

// Query returns every row whose columns equal the filter values, ordered
// by PID. A nil value matches NULL. An empty filter returns the whole table.
func (s *Store[T]) Query(ctx context.Context, filter Filter) ([]*T, error) {
	conditions := make([]string, 0, len(filter))
	args := make([]any, 0, len(filter))

	for _, name := range filter.keys() {
		if !s.desc.isColumn(name) {
			return nil, fmt.Errorf("query %s: %w: %s", s.desc.Kind, ErrUnknownField, name)
		}

		value := filter[name]
		if isAbsent(value) {
			conditions = append(conditions, pq.QuoteIdentifier(name)+" IS NULL")
			continue
		}
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf("%s = $%d", pq.QuoteIdentifier(name), len(args)))
	}

	query := fmt.Sprintf("SELECT %s FROM %s", quoteColumns(s.desc.FieldNames()...), pq.QuoteIdentifier(s.desc.Table))
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY " + pq.QuoteIdentifier(ColumnPID)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &PersistenceError{Op: "query", Kind: s.desc.Kind, Err: err}
	}
	defer rows.Close()

	var entities []*T
	for rows.Next() {
		e := new(T)
		if err := rows.Scan(s.desc.scanDest(e)...); err != nil {
			return nil, &PersistenceError{Op: "scan", Kind: s.desc.Kind, Err: err}
		}
		entities = append(entities, e)
	}

	if err := rows.Err(); err != nil {
		return nil, &PersistenceError{Op: "query", Kind: s.desc.Kind, Err: err}
	}

	return entities, nil
}

// FindByAttributes returns the single entity matching filter.
//
// Zero matches yield a NotFoundError, or nil with CheckOnly. More than
// one match is tolerated: the row with the lowest PID is returned and
// the ambiguity is logged.
func (s *Store[T]) FindByAttributes(ctx context.Context, filter Filter, mode Lookup) (*T, error) {
	results, err := s.Query(ctx, filter)
	if err != nil {
		return nil, err
	}

	switch len(results) {
	case 0:
		if mode == CheckOnly {
			return nil, nil
		}
		return nil, &NotFoundError{Kind: s.desc.Kind, Query: filter}
	case 1:
		return results[0], nil
	default:
		s.logger.Warn("exactly-one lookup matched multiple rows",
			slog.String("query", filter.String()),
			slog.Int("matches", len(results)),
		)
		return results[0], nil
	}
}

// FindByAttribute is FindByAttributes with a single column.
func (s *Store[T]) FindByAttribute(ctx context.Context, name string, value any, mode Lookup) (*T, error) {
	return s.FindByAttributes(ctx, Filter{name: value}, mode)
}

// FindByID looks up an entity by PID.
func (s *Store[T]) FindByID(ctx context.Context, pid int64, mode Lookup) (*T, error) {
	return s.FindByAttribute(ctx, ColumnPID, pid, mode)
}

// ListByAttributes is Query with absent (nil) values dropped from the filter.
func (s *Store[T]) ListByAttributes(ctx context.Context, filter Filter) ([]*T, error) {
	return s.Query(ctx, filter.compact())
}

// ListAll returns every row of the table.
func (s *Store[T]) ListAll(ctx context.Context) ([]*T, error) {
	return s.Query(ctx, nil)
}

// FieldNames lists the columns of T.
func (s *Store[T]) FieldNames() []string {
	return s.desc.FieldNames()
}

// AttributesAsMap returns the column values of e.
func (s *Store[T]) AttributesAsMap(e *T) map[string]any {
	return s.desc.AttributesAsMap(e)
}

// ToSerializable returns the {ent_type, attributes} form of e.
func (s *Store[T]) ToSerializable(e *T) Serializable {
	return s.desc.ToSerializable(e)
}
