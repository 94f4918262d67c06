package database

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestIsUniqueViolation(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"Nil", nil, false},
		{"GormDuplicated", fmt.Errorf("insert: %w", gorm.ErrDuplicatedKey), true},
		{"MySQL1062", &mysql.MySQLError{Number: 1062, Message: "Duplicate entry"}, true},
		{"MySQLOther", &mysql.MySQLError{Number: 1064}, false},
		{"Postgres23505", &pgconn.PgError{Code: "23505"}, true},
		{"Postgres23503", &pgconn.PgError{Code: "23503"}, false},
		{"SQLiteMessage", errors.New("UNIQUE constraint failed: price_records.variant_id"), true},
		{"Other", errors.New("boom"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsUniqueViolation(tt.err))
		})
	}
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"Nil", nil, false},
		{"BadConn", fmt.Errorf("query: %w", driver.ErrBadConn), true},
		{"MySQLInvalidConn", mysql.ErrInvalidConn, true},
		{"MySQLDeadlock", &mysql.MySQLError{Number: 1213}, true},
		{"MySQLSyntax", &mysql.MySQLError{Number: 1064}, false},
		{"PostgresConnException", &pgconn.PgError{Code: "08006"}, true},
		{"PostgresSerialization", &pgconn.PgError{Code: "40001"}, true},
		{"PostgresUnique", &pgconn.PgError{Code: "23505"}, false},
		{"DeadlineExceeded", context.DeadlineExceeded, true},
		{"Canceled", context.Canceled, false},
		{"SQLiteLocked", errors.New("database is locked"), true},
		{"Logical", errors.New("no such column"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTransient(tt.err))
		})
	}
}
