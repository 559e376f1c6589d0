package store

import "database/sql"

// Querier is the subset of database/sql needed by the stores. Both *sql.DB
// and *sql.Tx satisfy it, so engine transactions can reuse store methods by
// constructing tx-bound stores.
type Querier interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}
