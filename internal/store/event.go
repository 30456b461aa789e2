package store

import (
	"context"
	"fmt"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
)

// sequenceCounter numbers image and LLM events on one timeline, so a
// drafting call can be ordered against the image attempts it led to even
// though the two live in separate tables.
type sequenceCounter struct {
	drv *entsql.Driver
}

// newSequenceCounter seeds the counter row if this is a fresh database.
func newSequenceCounter(ctx context.Context, drv *entsql.Driver) (*sequenceCounter, error) {
	query, args := entsql.Dialect(dialect.SQLite).
		Insert(eventSequenceTable).
		Columns(colID, colSeqValue).
		Values(1, 0).
		OnConflict(entsql.ConflictColumns(colID), entsql.DoNothing()).
		Query()
	if err := drv.Exec(ctx, query, args, nil); err != nil {
		return nil, fmt.Errorf("seed sequence: %w", err)
	}
	return &sequenceCounter{drv: drv}, nil
}

// Next returns the next sequence number. The UPDATE ... RETURNING runs as
// one statement, so concurrent batch items never share a number.
func (sc *sequenceCounter) Next(ctx context.Context) (int64, error) {
	query, args := entsql.Dialect(dialect.SQLite).
		Update(eventSequenceTable).
		Add(colSeqValue, 1).
		Where(entsql.EQ(colID, 1)).
		Returning(colSeqValue).
		Query()

	var rows entsql.Rows
	if err := sc.drv.Query(ctx, query, args, &rows); err != nil {
		return 0, fmt.Errorf("next sequence: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return 0, fmt.Errorf("next sequence: %w", err)
		}
		return 0, fmt.Errorf("next sequence: counter row missing")
	}
	var n int64
	if err := rows.Scan(&n); err != nil {
		return 0, fmt.Errorf("next sequence: %w", err)
	}
	return n, nil
}
