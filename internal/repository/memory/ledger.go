package memory

import (
	"context"
	"sort"
	"time"

	"github.com/Freeeeeet/court_scheduler/internal/model"
	"github.com/Freeeeeet/court_scheduler/internal/repository/base"
)

type AbsenceRepository struct{ s *Store }

func (s *Store) Absences() *AbsenceRepository { return &AbsenceRepository{s: s} }

func (r *AbsenceRepository) Create(ctx context.Context, a *model.Absence) error {
	defer r.s.lock(ctx)()
	for _, existing := range r.s.st.absences {
		if existing.UserID == a.UserID && existing.LessonSessionID == a.LessonSessionID {
			return duplicate(base.ConstraintAbsenceUserSession)
		}
	}
	a.ID = r.s.nextID()
	a.CreatedAt = r.s.now()
	r.s.st.absences[a.ID] = *a
	return nil
}

func (r *AbsenceRepository) GetByID(ctx context.Context, id int64) (*model.Absence, error) {
	defer r.s.lock(ctx)()
	a, ok := r.s.st.absences[id]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

func (r *AbsenceRepository) GetByUserSession(ctx context.Context, userID, sessionID int64) (*model.Absence, error) {
	defer r.s.lock(ctx)()
	for _, a := range r.s.st.absences {
		if a.UserID == userID && a.LessonSessionID == sessionID {
			return &a, nil
		}
	}
	return nil, nil
}

func (r *AbsenceRepository) SaveReview(ctx context.Context, a *model.Absence) error {
	defer r.s.lock(ctx)()
	existing, ok := r.s.st.absences[a.ID]
	if !ok {
		return base.ErrNotFound
	}
	existing.Status = a.Status
	existing.CreditAwarded = a.CreditAwarded
	existing.AdminNotes = a.AdminNotes
	existing.ReviewedBy = a.ReviewedBy
	existing.ReviewedAt = a.ReviewedAt
	r.s.st.absences[a.ID] = existing
	return nil
}

type CreditRepository struct{ s *Store }

func (s *Store) Credits() *CreditRepository { return &CreditRepository{s: s} }

func (r *CreditRepository) Create(ctx context.Context, c *model.ReplacementCredit) error {
	defer r.s.lock(ctx)()
	for _, existing := range r.s.st.credits {
		if existing.AbsenceID == c.AbsenceID {
			return duplicate(base.ConstraintCreditAbsence)
		}
	}
	c.ID = r.s.nextID()
	c.CreatedAt = r.s.now()
	r.s.st.credits[c.ID] = *c
	return nil
}

func (r *CreditRepository) GetByID(ctx context.Context, id int64) (*model.ReplacementCredit, error) {
	defer r.s.lock(ctx)()
	c, ok := r.s.st.credits[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (r *CreditRepository) MarkUsed(ctx context.Context, id int64, at time.Time) (bool, error) {
	defer r.s.lock(ctx)()
	c, ok := r.s.st.credits[id]
	if !ok || !c.IsAvailable(at) {
		return false, nil
	}
	c.UsedAt = &at
	r.s.st.credits[id] = c
	return true, nil
}

func (r *CreditRepository) ClearUsed(ctx context.Context, id int64) error {
	defer r.s.lock(ctx)()
	c, ok := r.s.st.credits[id]
	if !ok {
		return base.ErrNotFound
	}
	c.UsedAt = nil
	r.s.st.credits[id] = c
	return nil
}

func (r *CreditRepository) ListAvailableByUser(ctx context.Context, userID int64, now time.Time) ([]*model.ReplacementCredit, error) {
	defer r.s.lock(ctx)()
	var out []*model.ReplacementCredit
	for _, c := range r.s.st.credits {
		if c.UserID == userID && c.IsAvailable(now) {
			c := c
			out = append(out, &c)
		}
	}
	sortByExpiry(out)
	return out, nil
}

func (r *CreditRepository) ListExpiringBetween(ctx context.Context, from, to time.Time) ([]*model.ReplacementCredit, error) {
	defer r.s.lock(ctx)()
	var out []*model.ReplacementCredit
	for _, c := range r.s.st.credits {
		if c.UsedAt == nil && c.ExpiresAt.After(from) && !c.ExpiresAt.After(to) {
			c := c
			out = append(out, &c)
		}
	}
	sortByExpiry(out)
	return out, nil
}

func sortByExpiry(items []*model.ReplacementCredit) {
	sort.Slice(items, func(i, j int) bool {
		if items[i].ExpiresAt.Equal(items[j].ExpiresAt) {
			return items[i].ID < items[j].ID
		}
		return items[i].ExpiresAt.Before(items[j].ExpiresAt)
	})
}

type ReplacementBookingRepository struct{ s *Store }

func (s *Store) ReplacementBookings() *ReplacementBookingRepository {
	return &ReplacementBookingRepository{s: s}
}

// Create повторяет частичные уникальные индексы схемы: среди CONFIRMED
// кредит встречается один раз и пара (user, session) тоже.
func (r *ReplacementBookingRepository) Create(ctx context.Context, b *model.ReplacementBooking) error {
	defer r.s.lock(ctx)()
	if b.Status == model.ReplacementStatusConfirmed {
		for _, existing := range r.s.st.replacements {
			if existing.Status != model.ReplacementStatusConfirmed {
				continue
			}
			if existing.CreditID == b.CreditID {
				return duplicate(base.ConstraintReplacementCredit)
			}
			if existing.UserID == b.UserID && existing.LessonSessionID == b.LessonSessionID {
				return duplicate(base.ConstraintReplacementUserSession)
			}
		}
	}
	b.ID = r.s.nextID()
	b.CreatedAt = r.s.now()
	r.s.st.replacements[b.ID] = *b
	return nil
}

func (r *ReplacementBookingRepository) GetByID(ctx context.Context, id int64) (*model.ReplacementBooking, error) {
	defer r.s.lock(ctx)()
	b, ok := r.s.st.replacements[id]
	if !ok {
		return nil, nil
	}
	return &b, nil
}

func (r *ReplacementBookingRepository) CountConfirmedBySession(ctx context.Context, sessionID int64) (int, error) {
	defer r.s.lock(ctx)()
	n := 0
	for _, b := range r.s.st.replacements {
		if b.LessonSessionID == sessionID && b.Status == model.ReplacementStatusConfirmed {
			n++
		}
	}
	return n, nil
}

func (r *ReplacementBookingRepository) ListConfirmedBySession(ctx context.Context, sessionID int64) ([]*model.ReplacementBooking, error) {
	defer r.s.lock(ctx)()
	var out []*model.ReplacementBooking
	for _, b := range r.s.st.replacements {
		if b.LessonSessionID == sessionID && b.Status == model.ReplacementStatusConfirmed {
			b := b
			out = append(out, &b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *ReplacementBookingRepository) HasConfirmed(ctx context.Context, userID, sessionID int64) (bool, error) {
	defer r.s.lock(ctx)()
	for _, b := range r.s.st.replacements {
		if b.UserID == userID && b.LessonSessionID == sessionID && b.Status == model.ReplacementStatusConfirmed {
			return true, nil
		}
	}
	return false, nil
}

func (r *ReplacementBookingRepository) UpdateStatus(ctx context.Context, id int64, status model.ReplacementBookingStatus, at time.Time) error {
	defer r.s.lock(ctx)()
	b, ok := r.s.st.replacements[id]
	if !ok {
		return base.ErrNotFound
	}
	b.Status = status
	if status == model.ReplacementStatusCancelled {
		b.CancelledAt = &at
	}
	r.s.st.replacements[id] = b
	return nil
}

type NotificationLog struct{ s *Store }

func (s *Store) Notifications() *NotificationLog { return &NotificationLog{s: s} }

// MarkSent помечает уведомление отправленным; false если оно уже было
func (r *NotificationLog) MarkSent(ctx context.Context, creditID int64, kind model.NotificationType, at time.Time) (bool, error) {
	defer r.s.lock(ctx)()
	key := notificationKey{creditID: creditID, kind: kind}
	if _, ok := r.s.st.notified[key]; ok {
		return false, nil
	}
	r.s.st.notified[key] = at
	return true, nil
}
