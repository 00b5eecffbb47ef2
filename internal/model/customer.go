package model

import "time"

// Customer is the subset of the externally owned customer entity that
// certificate issuers read. This package never writes customers.
type Customer struct {
	ID         int64      `json:"id" db:"id"`
	FullName   string     `json:"full_name" db:"full_name"`
	CPF        *string    `json:"cpf,omitempty" db:"cpf"`
	BirthDate  *time.Time `json:"birth_date,omitempty" db:"birth_date"`
	MotherName *string    `json:"mother_name,omitempty" db:"mother_name"`
}
