package storage

import (
	"github.com/go-redis/redis/v7"
	"sync"
	"time"
)

// Storage keeps the daily visit counter shown on the stats endpoint
type Storage interface {
	IncrVisits() (int64, error)
	GetVisitsByDate(date time.Time) (int64, error)
}

type storage struct {
	rdb *redis.Client
}

func New(rdb *redis.Client) Storage {
	return &storage{rdb: rdb}
}

func visitsKey(date time.Time) string {
	return "visits:" + date.Format("02.01.06")
}

func (s *storage) IncrVisits() (int64, error) {
	return s.rdb.Incr(visitsKey(time.Now())).Result()
}

func (s *storage) GetVisitsByDate(date time.Time) (int64, error) {
	n, err := s.rdb.Get(visitsKey(date)).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	return n, err
}

// memory is used when redis is not configured
type memory struct {
	sync.Mutex
	visits map[string]int64
}

func NewMemory() Storage {
	return &memory{visits: make(map[string]int64)}
}

func (m *memory) IncrVisits() (int64, error) {
	m.Lock()
	defer m.Unlock()
	key := visitsKey(time.Now())
	m.visits[key]++
	return m.visits[key], nil
}

func (m *memory) GetVisitsByDate(date time.Time) (int64, error) {
	m.Lock()
	defer m.Unlock()
	return m.visits[visitsKey(date)], nil
}
