package model

import (
	"github.com/google/uuid"

	"github.com/Vladimir-Titov/challengeup/internal/query"
)

// ContactType — тип контакта пользователя.
type ContactType string

const (
	ContactEmail    ContactType = "email"
	ContactPhone    ContactType = "phone"
	ContactWhatsApp ContactType = "whatsapp"
	ContactTelegram ContactType = "telegram"
)

// ContactTypes — все допустимые типы контактов.
var ContactTypes = []ContactType{ContactEmail, ContactPhone, ContactWhatsApp, ContactTelegram}

// Valid сообщает, является ли значение допустимым типом контакта.
func (t ContactType) Valid() bool {
	for _, ct := range ContactTypes {
		if t == ct {
			return true
		}
	}
	return false
}

// UserContact — контакт пользователя.
// Хранится в таблице challenges.user_contacts; пара (contact_type, contact) уникальна.
type UserContact struct {
	Base
	UserID      uuid.UUID   `db:"user_id" json:"user_id"`
	ContactType ContactType `db:"contact_type" json:"contact_type"`
	Contact     string      `db:"contact" json:"contact"`
}

// UserContactsTable — дескриптор таблицы контактов.
var UserContactsTable = query.NewTable(Schema, "user_contacts",
	query.Column{Name: "user_id", Type: query.TypeUUID},
	query.Column{Name: "contact_type", Type: query.TypeEnum, Enum: contactTypeNames()},
	query.Column{Name: "contact", Type: query.TypeString},
)

func contactTypeNames() []string {
	names := make([]string, len(ContactTypes))
	for i, ct := range ContactTypes {
		names[i] = string(ct)
	}
	return names
}
