package store

import (
	"context"
	"fmt"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
)

// eventRepo implements EventRepo with ent's SQL builders and the global
// sequence counter.
type eventRepo struct {
	drv *entsql.Driver
	seq *sequenceCounter
}

func (r *eventRepo) AppendImageRequest(ctx context.Context, data ImageRequestEventData) error {
	seqNum, err := r.seq.Next(ctx)
	if err != nil {
		return fmt.Errorf("next sequence: %w", err)
	}

	query, args := entsql.Dialect(dialect.SQLite).
		Insert(imageEventsTable).
		Set(colSequence, seqNum).
		Set(colTimestamp, time.Now().UTC()).
		Set(colProvider, data.Provider).
		Set(colKind, data.Kind).
		Set(colPurpose, data.Purpose).
		Set(colPrompt, data.Prompt).
		Set(colPayloadBytes, data.PayloadBytes).
		Set(colLatencyMs, data.LatencyMs).
		Set(colSuccess, data.Success).
		Set(colErrorMessage, data.ErrorMessage).
		Query()
	if err := r.drv.Exec(ctx, query, args, nil); err != nil {
		return fmt.Errorf("save image request event: %w", err)
	}
	return nil
}

var imageEventColumns = []string{
	colID, colSequence, colTimestamp, colProvider, colKind, colPurpose, colPrompt,
	colPayloadBytes, colLatencyMs, colSuccess, colErrorMessage,
}

func (r *eventRepo) QueryImageEvents(ctx context.Context, opts QueryOpts) ([]ImageRequestEvent, error) {
	t := entsql.Dialect(dialect.SQLite).Table(imageEventsTable)
	selector := opts.apply(entsql.Dialect(dialect.SQLite).Select(t.Columns(imageEventColumns...)...).From(t), t)

	events, err := r.scanImageEvents(ctx, selector)
	if err != nil {
		return nil, fmt.Errorf("query image events: %w", err)
	}
	return events, nil
}

func (r *eventRepo) GetImageEvent(ctx context.Context, id int64) (*ImageRequestEvent, error) {
	t := entsql.Dialect(dialect.SQLite).Table(imageEventsTable)
	selector := entsql.Dialect(dialect.SQLite).
		Select(t.Columns(imageEventColumns...)...).
		From(t).
		Where(entsql.EQ(t.C(colID), id))

	events, err := r.scanImageEvents(ctx, selector)
	if err != nil {
		return nil, fmt.Errorf("get image event %d: %w", id, err)
	}
	if len(events) == 0 {
		return nil, nil
	}
	return &events[0], nil
}

func (r *eventRepo) scanImageEvents(ctx context.Context, selector *entsql.Selector) ([]ImageRequestEvent, error) {
	query, args := selector.Query()
	var rows entsql.Rows
	if err := r.drv.Query(ctx, query, args, &rows); err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []ImageRequestEvent
	for rows.Next() {
		var e ImageRequestEvent
		if err := rows.Scan(&e.ID, &e.Sequence, &e.Timestamp, &e.Provider, &e.Kind, &e.Purpose,
			&e.Prompt, &e.PayloadBytes, &e.LatencyMs, &e.Success, &e.ErrorMessage); err != nil {
			return nil, fmt.Errorf("scan image event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// throttleMarkers mirror the provider-side rate limit classification.
var throttleMarkers = []string{"429", "rate limit", "quota", "exceeded"}

func (r *eventRepo) ImageUsageByProvider(ctx context.Context) ([]ProviderUsage, error) {
	b := entsql.Dialect(dialect.SQLite)
	t := b.Table(imageEventsTable)

	throttled := make([]*entsql.Predicate, len(throttleMarkers))
	for i, m := range throttleMarkers {
		throttled[i] = entsql.ContainsFold(t.C(colErrorMessage), m)
	}
	rateLimited := entsql.ExprFunc(func(b *entsql.Builder) {
		b.WriteString("COALESCE(SUM(CASE WHEN NOT ").Ident(t.C(colSuccess)).WriteString(" AND ")
		b.Join(entsql.Or(throttled...))
		b.WriteString(" THEN 1 ELSE 0 END), 0)")
	})
	successes := entsql.ExprFunc(func(b *entsql.Builder) {
		b.WriteString("COALESCE(SUM(CASE WHEN ").Ident(t.C(colSuccess)).WriteString(" THEN 1 ELSE 0 END), 0)")
	})
	avgLatency := entsql.ExprFunc(func(b *entsql.Builder) {
		b.WriteString("CAST(COALESCE(AVG(").Ident(t.C(colLatencyMs)).WriteString("), 0) AS INTEGER)")
	})

	selector := b.Select(t.C(colProvider), entsql.Count("*")).
		AppendSelectExpr(successes, rateLimited, avgLatency).
		From(t).
		GroupBy(t.C(colProvider)).
		OrderBy(t.C(colProvider))

	query, args := selector.Query()
	var rows entsql.Rows
	if err := r.drv.Query(ctx, query, args, &rows); err != nil {
		return nil, fmt.Errorf("query provider usage: %w", err)
	}
	defer rows.Close()

	var out []ProviderUsage
	for rows.Next() {
		var u ProviderUsage
		if err := rows.Scan(&u.Provider, &u.Attempts, &u.Successes, &u.RateLimited, &u.AvgLatencyMs); err != nil {
			return nil, fmt.Errorf("scan provider usage: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// apply adds the filters, newest-first order and limit shared by the
// event queries.
func (o QueryOpts) apply(s *entsql.Selector, t *entsql.SelectTable) *entsql.Selector {
	var preds []*entsql.Predicate
	if o.After > 0 {
		preds = append(preds, entsql.GT(t.C(colSequence), o.After))
	}
	if !o.From.IsZero() {
		preds = append(preds, entsql.GTE(t.C(colTimestamp), o.From.UTC()))
	}
	if o.Provider != "" {
		preds = append(preds, entsql.EQ(t.C(colProvider), o.Provider))
	}
	if len(preds) > 0 {
		s.Where(entsql.And(preds...))
	}
	s.OrderBy(entsql.Desc(t.C(colSequence)))
	if o.Limit > 0 {
		s.Limit(o.Limit)
	}
	return s
}
