// Package memory хранилище в памяти процесса с сериализуемыми транзакциями.
// Используется тестами и драйвером STORAGE_DRIVER=memory.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Freeeeeet/court_scheduler/internal/clock"
	"github.com/Freeeeeet/court_scheduler/internal/model"
	"github.com/Freeeeeet/court_scheduler/internal/repository/base"
)

type txKey struct{}

type notificationKey struct {
	creditID int64
	kind     model.NotificationType
}

type state struct {
	seq          int64
	users        map[int64]model.User
	lessonTypes  map[string]model.LessonType
	bookings     map[int64]model.AdHocBooking
	recurring    map[int64]model.RecurringBooking
	sessions     map[int64]model.LessonSession
	enrollments  map[int64]map[int64]struct{}
	absences     map[int64]model.Absence
	credits      map[int64]model.ReplacementCredit
	replacements map[int64]model.ReplacementBooking
	notified     map[notificationKey]time.Time
}

func newState() *state {
	return &state{
		users:        make(map[int64]model.User),
		lessonTypes:  make(map[string]model.LessonType),
		bookings:     make(map[int64]model.AdHocBooking),
		recurring:    make(map[int64]model.RecurringBooking),
		sessions:     make(map[int64]model.LessonSession),
		enrollments:  make(map[int64]map[int64]struct{}),
		absences:     make(map[int64]model.Absence),
		credits:      make(map[int64]model.ReplacementCredit),
		replacements: make(map[int64]model.ReplacementBooking),
		notified:     make(map[notificationKey]time.Time),
	}
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (s *state) clone() *state {
	c := &state{
		seq:          s.seq,
		users:        cloneMap(s.users),
		lessonTypes:  cloneMap(s.lessonTypes),
		bookings:     cloneMap(s.bookings),
		recurring:    cloneMap(s.recurring),
		sessions:     cloneMap(s.sessions),
		enrollments:  make(map[int64]map[int64]struct{}, len(s.enrollments)),
		absences:     cloneMap(s.absences),
		credits:      cloneMap(s.credits),
		replacements: cloneMap(s.replacements),
		notified:     cloneMap(s.notified),
	}
	for id, users := range s.enrollments {
		c.enrollments[id] = cloneMap(users)
	}
	return c
}

// Store общее состояние всех репозиториев
type Store struct {
	mu    sync.Mutex
	st    *state
	clock clock.Clock
}

// New создаёт пустое хранилище с системными часами
func New() *Store {
	return &Store{st: newState(), clock: clock.Real{}}
}

// WithClock задаёт часы для created_at/updated_at
func (s *Store) WithClock(c clock.Clock) *Store {
	s.clock = c
	return s
}

func (s *Store) now() time.Time {
	return s.clock.Now()
}

// WithTransaction выполняет fn под эксклюзивной блокировкой хранилища.
// Любая ошибка fn восстанавливает состояние на момент начала транзакции.
func (s *Store) WithTransaction(ctx context.Context, _ base.Isolation, fn func(ctx context.Context) error) error {
	if s.inTx(ctx) {
		return fn(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.st.clone()
	if err := fn(context.WithValue(ctx, txKey{}, s)); err != nil {
		s.st = snapshot
		return err
	}
	return nil
}

func (s *Store) inTx(ctx context.Context) bool {
	owner, _ := ctx.Value(txKey{}).(*Store)
	return owner == s
}

// lock берёт блокировку для одиночного запроса вне транзакции
func (s *Store) lock(ctx context.Context) func() {
	if s.inTx(ctx) {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *Store) nextID() int64 {
	s.st.seq++
	return s.st.seq
}

func duplicate(constraint string) error {
	return fmt.Errorf("%w: %s", base.ErrDuplicate, constraint)
}

func sortByID[T any](items []*T, id func(*T) int64) {
	sort.Slice(items, func(i, j int) bool { return id(items[i]) < id(items[j]) })
}

// AddUser добавляет пользователя (для тестов и начального наполнения)
func (s *Store) AddUser(ctx context.Context, u *model.User) {
	defer s.lock(ctx)()
	if u.ID == 0 {
		u.ID = s.nextID()
	}
	s.st.users[u.ID] = *u
}

// AddLessonType добавляет вид занятия в каталог
func (s *Store) AddLessonType(ctx context.Context, lt *model.LessonType) {
	defer s.lock(ctx)()
	s.st.lessonTypes[lt.Slug] = *lt
}
