package model

import "github.com/Vladimir-Titov/challengeup/internal/query"

// Challenge — челлендж.
// Хранится в таблице challenges.challenges.
type Challenge struct {
	Base
	// Title — название (обязательно)
	Title string `db:"title" json:"title"`
	// Description — описание (опционально)
	Description *string `db:"description" json:"description"`
}

// ChallengesTable — дескриптор таблицы челленджей.
var ChallengesTable = query.NewTable(Schema, "challenges",
	query.Column{Name: "title", Type: query.TypeString},
	query.Column{Name: "description", Type: query.TypeString, Nullable: true},
)
