package model

import "github.com/Vladimir-Titov/challengeup/internal/query"

// User — пользователь.
// Хранится в таблице challenges."user".
type User struct {
	Base
	FirstName *string `db:"first_name" json:"first_name"`
	LastName  *string `db:"last_name" json:"last_name"`
	FullName  *string `db:"full_name" json:"full_name"`
}

// UsersTable — дескриптор таблицы пользователей.
var UsersTable = query.NewTable(Schema, "user",
	query.Column{Name: "first_name", Type: query.TypeString, Nullable: true},
	query.Column{Name: "last_name", Type: query.TypeString, Nullable: true},
	query.Column{Name: "full_name", Type: query.TypeString, Nullable: true},
)
