package model

import (
	"github.com/google/uuid"

	"github.com/Vladimir-Titov/challengeup/internal/query"
)

// UserChallenge — участие пользователя в челлендже.
type UserChallenge struct {
	Base
	UserID      uuid.UUID `db:"user_id" json:"user_id"`
	ChallengeID uuid.UUID `db:"challenge_id" json:"challenge_id"`
}

// UserChallengesTable — дескриптор таблицы участий.
var UserChallengesTable = query.NewTable(Schema, "user_challenges",
	query.Column{Name: "user_id", Type: query.TypeUUID},
	query.Column{Name: "challenge_id", Type: query.TypeUUID},
)
