package app

import (
	"github.com/Freeeeeet/court_scheduler/internal/clock"
	"github.com/Freeeeeet/court_scheduler/internal/notify"
	"github.com/Freeeeeet/court_scheduler/internal/repository"
	"github.com/Freeeeeet/court_scheduler/internal/repository/base"
	"github.com/Freeeeeet/court_scheduler/internal/repository/memory"
	"github.com/Freeeeeet/court_scheduler/internal/schedule"
	"github.com/Freeeeeet/court_scheduler/internal/service"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type bookingStore interface {
	service.BookingRepository
	schedule.BookingLister
}

type recurringStore interface {
	service.RecurringBookingRepository
	schedule.RecurringLister
}

type sessionStore interface {
	service.LessonSessionRepository
	schedule.SessionLister
}

// Storage набор репозиториев одного драйвера
type Storage struct {
	Tx            service.Transactor
	Users         notify.UserLookup
	LessonTypes   service.LessonTypeCatalog
	Bookings      bookingStore
	Recurring     recurringStore
	Sessions      sessionStore
	Absences      service.AbsenceRepository
	Credits       service.CreditRepository
	Replacements  service.ReplacementBookingRepository
	Notifications service.NotificationLog
	Health        HealthCheck
}

// PostgresStorage репозитории поверх пула; транзакции через TxManager
func PostgresStorage(pool *pgxpool.Pool, maxRetries uint64, logger *zap.Logger) *Storage {
	return &Storage{
		Tx:            base.NewTxManager(pool, maxRetries, logger),
		Users:         repository.NewUserRepository(pool),
		LessonTypes:   repository.NewLessonTypeRepository(pool),
		Bookings:      repository.NewBookingRepository(pool),
		Recurring:     repository.NewRecurringBookingRepository(pool),
		Sessions:      repository.NewLessonSessionRepository(pool),
		Absences:      repository.NewAbsenceRepository(pool),
		Credits:       repository.NewCreditRepository(pool),
		Replacements:  repository.NewReplacementBookingRepository(pool),
		Notifications: repository.NewNotificationRepository(pool),
		Health:        pool.Ping,
	}
}

// MemoryStorage хранилище в памяти процесса
func MemoryStorage(store *memory.Store) *Storage {
	return &Storage{
		Tx:            store,
		Users:         store.Users(),
		LessonTypes:   store.LessonTypes(),
		Bookings:      store.Bookings(),
		Recurring:     store.RecurringBookings(),
		Sessions:      store.LessonSessions(),
		Absences:      store.Absences(),
		Credits:       store.Credits(),
		Replacements:  store.ReplacementBookings(),
		Notifications: store.Notifications(),
	}
}

// Metrics всё, что собирают резолвер и сервисы
type Metrics interface {
	schedule.Observer
	service.Metrics
}

// Options параметры сборки сервисов
type Options struct {
	Clock    clock.Clock
	Policy   service.Policy
	Notifier service.Notifier
	Metrics  Metrics
}

// Services собранный слой бизнес-логики
type Services struct {
	Resolver     *schedule.Resolver
	Bookings     *service.BookingService
	Lessons      *service.LessonService
	Ledger       *service.CreditLedger
	Absences     *service.AbsenceService
	Replacements *service.ReplacementService
}

// NewServices связывает репозитории, резолвер и сервисы
func NewServices(st *Storage, opts Options, logger *zap.Logger) *Services {
	resolver := schedule.NewResolver(st.Tx, logger,
		schedule.BookingSource(st.Bookings),
		schedule.RecurringSource(st.Recurring),
		schedule.SessionSource(st.Sessions),
	)

	var metrics service.Metrics
	if opts.Metrics != nil {
		resolver.WithObserver(opts.Metrics)
		metrics = opts.Metrics
	}

	ledger := service.NewCreditLedger(st.Tx, st.Credits, st.Notifications,
		opts.Clock, opts.Policy, opts.Notifier, metrics, logger)

	return &Services{
		Resolver: resolver,
		Bookings: service.NewBookingService(st.Tx, resolver, st.Bookings, st.Recurring, opts.Clock, logger),
		Lessons: service.NewLessonService(st.Tx, resolver, st.Sessions, st.Replacements,
			st.LessonTypes, ledger, st.Credits, opts.Clock, opts.Notifier, logger),
		Ledger: ledger,
		Absences: service.NewAbsenceService(st.Tx, st.Absences, st.Sessions, ledger,
			opts.Clock, opts.Notifier, logger),
		Replacements: service.NewReplacementService(st.Tx, ledger, st.Credits, st.Absences,
			st.Sessions, st.Replacements, st.LessonTypes, opts.Clock, opts.Policy, opts.Notifier, metrics, logger),
	}
}
