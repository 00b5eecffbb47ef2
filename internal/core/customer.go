package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/edvin/backoffice/internal/model"
)

// CustomerService reads the customer fields issuers need. Customers are owned
// by another part of the back office and never written here.
type CustomerService struct {
	db DB
}

func NewCustomerService(db DB) *CustomerService {
	return &CustomerService{db: db}
}

func (s *CustomerService) GetByID(ctx context.Context, id int64) (*model.Customer, error) {
	var c model.Customer
	err := s.db.QueryRow(ctx,
		`SELECT id, full_name, cpf, birth_date, mother_name FROM customers WHERE id = $1`, id,
	).Scan(&c.ID, &c.FullName, &c.CPF, &c.BirthDate, &c.MotherName)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("get customer %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get customer %d: %w", id, err)
	}
	return &c, nil
}
