// Пакет model — сущности ChallengeUp и дескрипторы их таблиц.
package model

import (
	"time"

	"github.com/google/uuid"
)

// Schema — схема PostgreSQL, в которой живут таблицы сущностей.
const Schema = "challenges"

// Base — общие поля всех сущностей. Заполняются сервером:
// id и created при вставке, updated при каждом обновлении.
type Base struct {
	// ID — UUID записи (uuid_generate_v4)
	ID uuid.UUID `db:"id" json:"id"`
	// Created — время создания (UTC)
	Created time.Time `db:"created" json:"created"`
	// Updated — время последнего обновления (UTC)
	Updated time.Time `db:"updated" json:"updated"`
	// Archived — признак мягкого удаления
	Archived bool `db:"archived" json:"archived"`
}

// EntityID возвращает идентификатор записи.
func (b *Base) EntityID() uuid.UUID { return b.ID }
