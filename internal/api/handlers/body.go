// body.go — тела запросов создания и обновления сущностей.
package handlers

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/Vladimir-Titov/challengeup/internal/domain/model"
	"github.com/Vladimir-Titov/challengeup/internal/query"
)

// optional — поле тела запроса, различающее «не передано» и null.
type optional[T any] struct {
	Set   bool
	Value *T
}

// UnmarshalJSON вызывается только для присутствующих в JSON полей.
func (o *optional[T]) UnmarshalJSON(data []byte) error {
	o.Set = true
	if string(data) == "null" {
		o.Value = nil
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	o.Value = &v
	return nil
}

// put добавляет поле в values, если оно передано. null передаётся как NULL.
func (o optional[T]) put(values query.Values, column string) {
	if o.Set {
		values[column] = o.Value
	}
}

// requireValue проверяет, что поле передано и не null.
func (o optional[T]) requireValue(column string) error {
	if !o.Set || o.Value == nil {
		return fmt.Errorf("поле %s обязательно", column)
	}
	return nil
}

// notNull проверяет, что переданное поле не null.
func (o optional[T]) notNull(column string) error {
	if o.Set && o.Value == nil {
		return fmt.Errorf("поле %s не может быть null", column)
	}
	return nil
}

func nonBlank(o optional[string], column string) error {
	if o.Value != nil && strings.TrimSpace(*o.Value) == "" {
		return fmt.Errorf("поле %s не может быть пустым", column)
	}
	return nil
}

func validContactType(o optional[model.ContactType]) error {
	if o.Value != nil && !o.Value.Valid() {
		return fmt.Errorf("недопустимый contact_type %q", *o.Value)
	}
	return nil
}

// firstError возвращает первую ненулевую ошибку.
func firstError(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// --- Челленджи ---

type challengeBody struct {
	Title       optional[string] `json:"title"`
	Description optional[string] `json:"description"`
}

func (b challengeBody) validateCreate() error {
	return firstError(b.Title.requireValue("title"), nonBlank(b.Title, "title"))
}

func (b challengeBody) validateUpdate() error {
	return firstError(b.Title.notNull("title"), nonBlank(b.Title, "title"))
}

func (b challengeBody) values() query.Values {
	v := query.Values{}
	b.Title.put(v, "title")
	b.Description.put(v, "description")
	return v
}

// --- Пользователи ---

type userBody struct {
	FirstName optional[string] `json:"first_name"`
	LastName  optional[string] `json:"last_name"`
	FullName  optional[string] `json:"full_name"`
}

func (b userBody) values() query.Values {
	v := query.Values{}
	b.FirstName.put(v, "first_name")
	b.LastName.put(v, "last_name")
	b.FullName.put(v, "full_name")
	return v
}

// --- Контакты пользователей ---

type userContactCreateBody struct {
	UserID      optional[uuid.UUID]         `json:"user_id"`
	ContactType optional[model.ContactType] `json:"contact_type"`
	Contact     optional[string]            `json:"contact"`
}

func (b userContactCreateBody) validate() error {
	return firstError(
		b.UserID.requireValue("user_id"),
		b.ContactType.requireValue("contact_type"),
		validContactType(b.ContactType),
		b.Contact.requireValue("contact"),
		nonBlank(b.Contact, "contact"),
	)
}

func (b userContactCreateBody) values() query.Values {
	v := query.Values{}
	b.UserID.put(v, "user_id")
	b.ContactType.put(v, "contact_type")
	b.Contact.put(v, "contact")
	return v
}

type userContactUpdateBody struct {
	ContactType optional[model.ContactType] `json:"contact_type"`
	Contact     optional[string]            `json:"contact"`
}

func (b userContactUpdateBody) validate() error {
	return firstError(
		b.ContactType.notNull("contact_type"),
		validContactType(b.ContactType),
		b.Contact.notNull("contact"),
		nonBlank(b.Contact, "contact"),
	)
}

func (b userContactUpdateBody) values() query.Values {
	v := query.Values{}
	b.ContactType.put(v, "contact_type")
	b.Contact.put(v, "contact")
	return v
}

// --- Участие в челленджах ---

type userChallengeBody struct {
	UserID      optional[uuid.UUID] `json:"user_id"`
	ChallengeID optional[uuid.UUID] `json:"challenge_id"`
}

func (b userChallengeBody) validateCreate() error {
	return firstError(b.UserID.requireValue("user_id"), b.ChallengeID.requireValue("challenge_id"))
}

func (b userChallengeBody) validateUpdate() error {
	return firstError(b.UserID.notNull("user_id"), b.ChallengeID.notNull("challenge_id"))
}

func (b userChallengeBody) values() query.Values {
	v := query.Values{}
	b.UserID.put(v, "user_id")
	b.ChallengeID.put(v, "challenge_id")
	return v
}
