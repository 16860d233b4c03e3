package repository

import (
	"database/sql"

	"print-dispatcher/internal/connections/database"
)

type Repository struct {
	OrderRepo OrderRepositoryInterface
}

func New(db *sql.DB, driver string) *Repository {
	return &Repository{
		OrderRepo: NewOrderRepository(db, database.DialectFor(driver)),
	}
}
