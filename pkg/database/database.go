package database

import (
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// ConnectionParams identifies one PostgreSQL database. The service attaches
// to two of them: the access control source and the attendance store.
type ConnectionParams struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
}

// NewConnection creates and verifies a new database connection pool.
func NewConnection(params ConnectionParams) (*sql.DB, error) {
	psqlInfo := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		params.Host,
		params.Port,
		params.User,
		params.Password,
		params.Name,
	)

	db, err := sql.Open("pgx", psqlInfo)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	// Ping the database to verify the connection is alive
	return db, db.Ping()
}
