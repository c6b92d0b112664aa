// cache.go — LRU-кэш сущностей с TTL для получения по id.
// Обёртка над hashicorp/golang-lru/v2/expirable.
package service

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus-метрики кэша.
var (
	cacheHitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cu_cache_hits_total",
		Help: "Общее количество попаданий в LRU-кэш сущностей.",
	}, []string{"entity"})
	cacheMissesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cu_cache_misses_total",
		Help: "Общее количество промахов LRU-кэша сущностей.",
	}, []string{"entity"})
)

// EntityCache — LRU-кэш сущностей E по id с автоматическим TTL.
// Каждый экземпляр сервиса имеет собственный in-memory кэш.
// Нулевой указатель — выключенный кэш: все методы безопасны и ничего не делают.
//
// Запись в кэш после чтения из БД идёт через SetIfFresh с поколением,
// полученным до чтения: любая инвалидация между чтением и записью
// отменяет кэширование, и устаревшая строка не попадает в кэш.
type EntityCache[E any] struct {
	entity string
	cache  *expirable.LRU[uuid.UUID, *E]

	mu  sync.Mutex
	gen uint64
}

// NewEntityCache создаёт кэш на maxSize записей с временем жизни ttl.
// maxSize <= 0 — кэш выключен (возвращается nil).
func NewEntityCache[E any](entity string, maxSize int, ttl time.Duration) *EntityCache[E] {
	if maxSize <= 0 {
		return nil
	}
	return &EntityCache[E]{
		entity: entity,
		cache:  expirable.NewLRU[uuid.UUID, *E](maxSize, nil, ttl),
	}
}

// Get возвращает сущность из кэша.
// Возвращает (сущность, true) при hit или (nil, false) при miss.
func (c *EntityCache[E]) Get(id uuid.UUID) (*E, bool) {
	if c == nil {
		return nil, false
	}
	val, ok := c.cache.Get(id)
	if ok {
		cacheHitsTotal.WithLabelValues(c.entity).Inc()
		return val, true
	}
	cacheMissesTotal.WithLabelValues(c.entity).Inc()
	return nil, false
}

// Set добавляет или обновляет запись в кэше.
func (c *EntityCache[E]) Set(id uuid.UUID, entity *E) {
	if c == nil || entity == nil {
		return
	}
	c.cache.Add(id, entity)
}

// Generation возвращает текущее поколение кэша. Каждый Delete его увеличивает.
func (c *EntityCache[E]) Generation() uint64 {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen
}

// SetIfFresh добавляет запись, только если с момента gen не было инвалидаций.
// Возвращает true, если запись добавлена.
func (c *EntityCache[E]) SetIfFresh(id uuid.UUID, entity *E, gen uint64) bool {
	if c == nil || entity == nil {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != gen {
		return false
	}
	c.cache.Add(id, entity)
	return true
}

// Delete удаляет запись из кэша (инвалидация при записи).
func (c *EntityCache[E]) Delete(id uuid.UUID) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.cache.Remove(id)
}

// Len возвращает количество записей в кэше.
func (c *EntityCache[E]) Len() int {
	if c == nil {
		return 0
	}
	return c.cache.Len()
}
