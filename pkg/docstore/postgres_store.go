package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/google/uuid"
	"github.com/hangout-app/hangout/internal/event_bus"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
)

const notifyChannel = "documents_changed"

type ListenOptions struct {
	// Attempts bounds reconnection attempts of the change listener; 0 retries forever.
	Attempts uint
	Delay    time.Duration
	MaxDelay time.Duration
}

// PostgresStore keeps documents as JSONB rows. Live queries follow the
// documents_changed NOTIFY channel fed by a table trigger; Listen must be running
// for subscriptions to see changes.
type PostgresStore struct {
	db   *pgxpool.Pool
	bus  *event_bus.EventBus
	feed *feed
	opts ListenOptions
}

func NewPostgresStore(db *pgxpool.Pool, bus *event_bus.EventBus, opts ListenOptions) *PostgresStore {
	if opts.Delay <= 0 {
		opts.Delay = 500 * time.Millisecond
	}
	if opts.MaxDelay <= 0 {
		opts.MaxDelay = 30 * time.Second
	}
	s := &PostgresStore{db: db, bus: bus, opts: opts}
	s.feed = newFeed(bus, s.Query)
	return s
}

func (s *PostgresStore) Get(ctx context.Context, collection string, id string) (Document, error) {
	query := `SELECT id, data, revision FROM documents WHERE collection = $1 AND id = $2`

	var doc Document
	var raw []byte
	err := s.db.QueryRow(ctx, query, collection, id).Scan(&doc.Id, &raw, &doc.Revision)
	if errors.Is(err, pgx.ErrNoRows) {
		return Document{}, fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
	} else if err != nil {
		err := fmt.Errorf("could not get document %s/%s: %w", collection, id, err)
		log.Error(err)
		return Document{}, err
	}
	if err := json.Unmarshal(raw, &doc.Data); err != nil {
		return Document{}, fmt.Errorf("could not unmarshal document %s/%s: %w", collection, id, err)
	}
	return doc, nil
}

func (s *PostgresStore) Query(ctx context.Context, collection string, filter Filter) ([]Document, error) {
	args := []any{collection}
	where, err := filterSQL(filter, &args)
	if err != nil {
		return nil, err
	}
	query := `SELECT id, data, revision FROM documents
              WHERE collection = $1 AND ` + where + `
              ORDER BY created_at, id`

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		err := fmt.Errorf("could not query %s: %w", collection, err)
		log.Error(err)
		return nil, err
	}
	defer rows.Close()

	docs := make([]Document, 0, 16)
	for rows.Next() {
		var doc Document
		var raw []byte
		if err := rows.Scan(&doc.Id, &raw, &doc.Revision); err != nil {
			err := fmt.Errorf("could not scan row: %w", err)
			log.Error(err)
			return nil, err
		}
		if err := json.Unmarshal(raw, &doc.Data); err != nil {
			return nil, fmt.Errorf("could not unmarshal document %s/%s: %w", collection, doc.Id, err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("could not read %s rows: %w", collection, err)
	}
	return docs, nil
}

// Subscribe runs the first query on its own goroutine so callers never wait on the database.
func (s *PostgresStore) Subscribe(collection string, filter Filter, onNext func([]Document), onError func(error)) Cancel {
	var cancel Cancel
	ready := make(chan struct{})
	go func() {
		cancel = s.feed.subscribe(collection, filter, onNext, onError)
		close(ready)
	}()
	return func() {
		<-ready
		cancel()
	}
}

func (s *PostgresStore) Create(ctx context.Context, collection string, data map[string]any) (string, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("could not marshal document: %w", err)
	}
	id := uuid.NewString()
	query := `INSERT INTO documents (collection, id, data) VALUES ($1, $2, $3::jsonb)`
	if _, err := s.db.Exec(ctx, query, collection, id, string(raw)); err != nil {
		err := fmt.Errorf("could not create document in %s: %w", collection, err)
		log.Error(err)
		return "", err
	}
	return id, nil
}

func (s *PostgresStore) Merge(ctx context.Context, collection string, id string, patch map[string]any) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			log.Errorf("rollback error: %v", rbErr)
		}
	}()

	var current map[string]any
	var raw []byte
	err = tx.QueryRow(ctx, `SELECT data FROM documents WHERE collection = $1 AND id = $2 FOR UPDATE`, collection, id).Scan(&raw)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
	case err != nil:
		return fmt.Errorf("could not read %s/%s: %w", collection, id, err)
	default:
		if err := json.Unmarshal(raw, &current); err != nil {
			return fmt.Errorf("could not unmarshal %s/%s: %w", collection, id, err)
		}
	}

	merged, err := json.Marshal(applyPatch(current, patch))
	if err != nil {
		return fmt.Errorf("could not marshal document: %w", err)
	}
	query := `INSERT INTO documents (collection, id, data) VALUES ($1, $2, $3::jsonb)
              ON CONFLICT (collection, id) DO UPDATE
              SET data = EXCLUDED.data, revision = documents.revision + 1, updated_at = now()`
	if _, err := tx.Exec(ctx, query, collection, id, string(merged)); err != nil {
		err := fmt.Errorf("could not merge %s/%s: %w", collection, id, err)
		log.Error(err)
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, collection string, id string) error {
	if _, err := s.db.Exec(ctx, `DELETE FROM documents WHERE collection = $1 AND id = $2`, collection, id); err != nil {
		err := fmt.Errorf("could not delete %s/%s: %w", collection, id, err)
		log.Error(err)
		return err
	}
	return nil
}

// Listen forwards change notifications to live queries until ctx is done. A lost
// connection is reported to every subscription and retried with backoff; once the
// listener is back, every subscription is re-queried.
func (s *PostgresStore) Listen(ctx context.Context) error {
	err := retry.Do(
		func() error { return s.listenOnce(ctx) },
		retry.Context(ctx),
		retry.Attempts(s.opts.Attempts),
		retry.Delay(s.opts.Delay),
		retry.MaxDelay(s.opts.MaxDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			log.Warnf("document change listener failed (attempt %d): %v", n+1, err)
			s.feed.failAll(fmt.Errorf("change stream interrupted: %w", err))
		}),
	)
	if ctx.Err() != nil {
		return nil
	}
	return err
}

func (s *PostgresStore) listenOnce(ctx context.Context) error {
	conn, err := s.db.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire listener connection: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "LISTEN "+notifyChannel); err != nil {
		return fmt.Errorf("listen %s: %w", notifyChannel, err)
	}
	log.Infof("Listening for document changes on %s", notifyChannel)
	s.feed.refreshAll(ctx)

	for {
		notification, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return retry.Unrecoverable(ctx.Err())
			}
			return fmt.Errorf("wait for notification: %w", err)
		}

		var change event_bus.DocumentChanged
		if err := json.Unmarshal([]byte(notification.Payload), &change); err != nil {
			log.Errorf("invalid document change payload %q: %v", notification.Payload, err)
			continue
		}
		_ = s.bus.Publish(event_bus.NewEvent(ctx, event_bus.DocumentTopic(change.Collection), change))
	}
}

// filterSQL renders filter as a boolean SQL expression over the data column,
// appending its parameters to args.
func filterSQL(f Filter, args *[]any) (string, error) {
	switch f.op {
	case opAll:
		return "TRUE", nil
	case opEq:
		raw, err := json.Marshal(containment(f.field, f.value))
		if err != nil {
			return "", fmt.Errorf("could not marshal filter value for %s: %w", f.field, err)
		}
		*args = append(*args, string(raw))
		return fmt.Sprintf("data @> $%d::jsonb", len(*args)), nil
	case opAnd, opOr:
		if len(f.children) == 0 {
			if f.op == opAnd {
				return "TRUE", nil
			}
			return "FALSE", nil
		}
		parts := make([]string, 0, len(f.children))
		for _, c := range f.children {
			part, err := filterSQL(c, args)
			if err != nil {
				return "", err
			}
			parts = append(parts, part)
		}
		sep := " AND "
		if f.op == opOr {
			sep = " OR "
		}
		return "(" + strings.Join(parts, sep) + ")", nil
	}
	return "", fmt.Errorf("unsupported filter %v", f)
}

// containment builds {"a":{"b":value}} for the dotted field "a.b".
func containment(field string, value any) map[string]any {
	path := strings.Split(field, ".")
	var node any = value
	for i := len(path) - 1; i >= 0; i-- {
		node = map[string]any{path[i]: node}
	}
	return node.(map[string]any)
}
