// Package database wraps the ClickHouse connection used for price history.
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
)

type Conn struct {
	chConn clickhouse.Conn
}

type Row interface {
	Scan(dest ...any) error
}

type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Close() error
	Err() error
}

// Options describes where the ClickHouse server lives.
type Options struct {
	Host     string
	Port     string
	Database string
	Username string
	Password string
}

// Connect connects to the ClickHouse database and checks the connection works.
func Connect(ctx context.Context, options Options) (*Conn, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{fmt.Sprintf("%s:%s", options.Host, options.Port)},
		Auth: clickhouse.Auth{
			Database: options.Database,
			Username: options.Username,
			Password: options.Password,
		},
		DialTimeout: time.Second * 5,
	})

	if err != nil {
		return nil, err
	}

	if err := conn.Ping(ctx); err != nil {
		return nil, fmt.Errorf("clickhouse ping: %w", err)
	}

	return &Conn{chConn: conn}, nil
}

// Close closes a database connection.
func (conn *Conn) Close() error {
	return conn.chConn.Close()
}

// Query executes a database query.
func (conn *Conn) Query(ctx context.Context, sql string, arguments ...any) (Rows, error) {
	return conn.chConn.Query(ctx, sql, arguments...)
}

// Queryable is what a connection needs to load lists of rows.
type Queryable interface {
	Query(ctx context.Context, sql string, arguments ...any) (Rows, error)
}
