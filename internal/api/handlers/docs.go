// docs.go — описание ресурсов API для OpenAPI-документа.
package handlers

import (
	"github.com/Vladimir-Titov/challengeup/internal/api/openapi"
	"github.com/Vladimir-Titov/challengeup/internal/domain/model"
)

// Resources возвращает CRUD-ресурсы API. Поля тел совпадают
// с challengeBody, userBody, userContact*Body и userChallengeBody.
func Resources() []openapi.Resource {
	userFields := []string{"first_name", "last_name", "full_name"}
	return []openapi.Resource{
		{
			Schema:   "Challenge",
			Tag:      "challenges",
			Path:     "/api/v1/challenges",
			Table:    model.ChallengesTable,
			Create:   []string{"title", "description"},
			Required: []string{"title"},
			Update:   []string{"title", "description"},
		},
		{
			Schema: "User",
			Tag:    "users",
			Path:   "/api/v1/users",
			Table:  model.UsersTable,
			Create: userFields,
			Update: userFields,
		},
		{
			Schema:   "UserContact",
			Tag:      "user_contacts",
			Path:     "/api/v1/user-contacts",
			Table:    model.UserContactsTable,
			Create:   []string{"user_id", "contact_type", "contact"},
			Required: []string{"user_id", "contact_type", "contact"},
			Update:   []string{"contact_type", "contact"},
		},
		{
			Schema:   "UserChallenge",
			Tag:      "user_challenges",
			Path:     "/api/v1/user-challenges",
			Table:    model.UserChallengesTable,
			Create:   []string{"user_id", "challenge_id"},
			Required: []string{"user_id", "challenge_id"},
			Update:   []string{"user_id", "challenge_id"},
		},
	}
}

// NestedResources возвращает вложенные пути списков.
func NestedResources() []openapi.Nested {
	return []openapi.Nested{{
		Path:    "/api/v1/users/{user_id}/contacts",
		Param:   "user_id",
		Schema:  "UserContact",
		Tag:     "user_contacts",
		Summary: "Контакты пользователя",
	}}
}
