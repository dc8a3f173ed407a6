// Package postgres implements docstore.Store on top of a Postgres jsonb table.
//
// Every document lives in one row of ledger_document, addressed by its
// collection and key. Paths may be at most three keys deep:
// collection, collection/key and collection/key/field.
// Each commit notifies the ledger_document channel with the names of the
// collections it touched, and subscribers re-read their path on notification.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/dense-analysis/walletledger/internal/docstore"
)

// Channel is the notification channel commits are announced on.
const Channel = "ledger_document"

const reconnectDelay = time.Second

// Store is a docstore.Store backed by Postgres.
type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger

	mu     sync.Mutex
	subs   map[int]*subscription
	nextID int

	cancel context.CancelFunc
	done   chan struct{}
}

type subscription struct {
	store    *Store
	id       int
	path     string
	segments []string
	onChange func(docstore.Snapshot)
	// mu serialises deliveries so a subscriber never sees an older value
	// after a newer one.
	mu     sync.Mutex
	active bool
}

// Connect opens a connection pool and starts listening for commits.
func Connect(ctx context.Context, url string, logger *slog.Logger) (*Store, error) {
	pool, err := pgxpool.Connect(ctx, url)

	if err != nil {
		return nil, fmt.Errorf("postgres connect: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()

		return nil, fmt.Errorf("postgres ping: %w", err)
	}

	listenCtx, cancel := context.WithCancel(context.Background())
	store := &Store{
		pool:   pool,
		logger: logger,
		subs:   map[int]*subscription{},
		cancel: cancel,
		done:   make(chan struct{}),
	}

	go store.listen(listenCtx)

	return store, nil
}

// Close stops listening and closes the pool.
func (store *Store) Close() {
	store.cancel()
	<-store.done
	store.pool.Close()
}

// NewKey returns a time ordered key.
func (store *Store) NewKey() string {
	return docstore.NewKey()
}

func decodeText(text *string) (any, error) {
	if text == nil {
		return nil, nil
	}

	return docstore.Decode([]byte(*text))
}

// Read returns the value at a path.
func (store *Store) Read(ctx context.Context, path string) (docstore.Snapshot, error) {
	segments, err := docstore.SplitPath(path)

	if err != nil {
		return docstore.Snapshot{}, err
	}

	value, err := store.read(ctx, segments)

	if err != nil {
		return docstore.Snapshot{}, err
	}

	return docstore.Snapshot{Path: path, Value: value}, nil
}

func (store *Store) readRows(ctx context.Context, sql string, arguments ...any) (map[string]any, error) {
	rows, err := store.pool.Query(ctx, sql, arguments...)

	if err != nil {
		return nil, err
	}

	defer rows.Close()

	documents := map[string]any{}

	for rows.Next() {
		var key string
		var text *string

		if err := rows.Scan(&key, &text); err != nil {
			return nil, err
		}

		value, err := decodeText(text)

		if err != nil {
			return nil, fmt.Errorf("document %q: %w", key, err)
		}

		if value != nil {
			documents[key] = value
		}
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(documents) == 0 {
		return nil, nil
	}

	return documents, nil
}

func (store *Store) collections(ctx context.Context) ([]string, error) {
	rows, err := store.pool.Query(ctx, `select distinct collection from ledger_document order by collection`)

	if err != nil {
		return nil, err
	}

	defer rows.Close()

	var collections []string

	for rows.Next() {
		var collection string

		if err := rows.Scan(&collection); err != nil {
			return nil, err
		}

		collections = append(collections, collection)
	}

	return collections, rows.Err()
}

func (store *Store) read(ctx context.Context, segments []string) (any, error) {
	switch len(segments) {
	case 0:
		collections, err := store.collections(ctx)

		if err != nil {
			return nil, err
		}

		root := map[string]any{}

		for _, collection := range collections {
			documents, err := store.read(ctx, []string{collection})

			if err != nil {
				return nil, err
			}

			if documents != nil {
				root[collection] = documents
			}
		}

		if len(root) == 0 {
			return nil, nil
		}

		return root, nil
	case 1:
		documents, err := store.readRows(
			ctx,
			`select key, value::text from ledger_document
			where collection = $1
			order by created_seq`,
			segments[0],
		)

		if documents == nil || err != nil {
			return nil, err
		}

		return documents, nil
	case 2, 3:
		sql := `select value::text from ledger_document where collection = $1 and key = $2`
		arguments := []any{segments[0], segments[1]}

		if len(segments) == 3 {
			sql = `select (value -> $3)::text from ledger_document where collection = $1 and key = $2`
			arguments = append(arguments, segments[2])
		}

		var text *string

		if err := store.pool.QueryRow(ctx, sql, arguments...).Scan(&text); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, nil
			}

			return nil, err
		}

		return decodeText(text)
	default:
		return nil, fmt.Errorf("%w: paths are at most three keys deep", docstore.ErrInvalidPath)
	}
}

// WriteAtomic applies every update in a single Postgres transaction.
func (store *Store) WriteAtomic(ctx context.Context, updates map[string]any) error {
	statements, err := planStatements(updates)

	if err != nil {
		return err
	}

	tx, err := store.pool.Begin(ctx)

	if err != nil {
		return err
	}

	defer tx.Rollback(ctx)

	for _, statement := range statements {
		if _, err := tx.Exec(ctx, statement.sql, statement.arguments...); err != nil {
			return fmt.Errorf("write %s: %w", statement.path, err)
		}
	}

	return tx.Commit(ctx)
}

// Subscribe registers onChange and delivers the current value before returning.
func (store *Store) Subscribe(path string, onChange func(docstore.Snapshot)) (docstore.Subscription, error) {
	segments, err := docstore.SplitPath(path)

	if err != nil {
		return nil, err
	}

	if len(segments) == 0 || len(segments) > 3 {
		return nil, fmt.Errorf("%w: cannot subscribe to %q", docstore.ErrInvalidPath, path)
	}

	store.mu.Lock()
	store.nextID++
	sub := &subscription{
		store:    store,
		id:       store.nextID,
		path:     path,
		segments: segments,
		onChange: onChange,
		active:   true,
	}
	store.subs[sub.id] = sub
	store.mu.Unlock()

	if err := sub.refresh(context.Background()); err != nil {
		sub.Unsubscribe()

		return nil, err
	}

	return sub, nil
}

func (sub *subscription) Unsubscribe() {
	sub.mu.Lock()
	sub.active = false
	sub.mu.Unlock()

	sub.store.mu.Lock()
	delete(sub.store.subs, sub.id)
	sub.store.mu.Unlock()
}

func (sub *subscription) refresh(ctx context.Context) error {
	sub.mu.Lock()
	defer sub.mu.Unlock()

	if !sub.active {
		return nil
	}

	value, err := sub.store.read(ctx, sub.segments)

	if err != nil {
		return err
	}

	sub.onChange(docstore.Snapshot{Path: sub.path, Value: value})

	return nil
}

// matching returns the subscriptions interested in a collection, or all of
// them when collection is empty.
func (store *Store) matching(collection string) []*subscription {
	store.mu.Lock()
	defer store.mu.Unlock()

	var list []*subscription

	for _, sub := range store.subs {
		if collection == "" || sub.segments[0] == collection {
			list = append(list, sub)
		}
	}

	return list
}

func (store *Store) dispatch(ctx context.Context, collection string) {
	for _, sub := range store.matching(collection) {
		if err := sub.refresh(ctx); err != nil && ctx.Err() == nil {
			store.logger.Error("refresh subscription", "path", sub.path, "error", err)
		}
	}
}

func (store *Store) listen(ctx context.Context) {
	defer close(store.done)

	for ctx.Err() == nil {
		err := store.listenOnce(ctx)

		if ctx.Err() != nil {
			return
		}

		store.logger.Error("document listener stopped, reconnecting", "error", err)

		select {
		case <-ctx.Done():
			return
		case <-time.After(reconnectDelay):
		}
	}
}

func (store *Store) listenOnce(ctx context.Context) error {
	conn, err := store.pool.Acquire(ctx)

	if err != nil {
		return err
	}

	defer conn.Release()

	if _, err := conn.Exec(ctx, "listen "+Channel); err != nil {
		return err
	}

	// Commits may have been missed while the listener was down.
	store.dispatch(ctx, "")

	for {
		notification, err := conn.Conn().WaitForNotification(ctx)

		if err != nil {
			return err
		}

		store.dispatch(ctx, notification.Payload)
	}
}
