// Package servicetest provides in-memory stores with the same semantics as the
// Postgres repositories, for service and HTTP tests.
package servicetest

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"habittracker/internal/model"
	"habittracker/internal/repository"
)

type Users struct {
	mu     sync.Mutex
	nextID int
	rows   map[int]model.User
}

func NewUsers() *Users {
	return &Users{rows: make(map[int]model.User)}
}

func (s *Users) CreateUser(_ context.Context, u *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.rows {
		if existing.Email == u.Email {
			return &pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"}
		}
	}
	s.nextID++
	u.ID = s.nextID
	u.CreatedAt = time.Now().UTC()
	s.rows[u.ID] = *u
	return nil
}

func (s *Users) FindByEmail(_ context.Context, email string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.rows {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (s *Users) FindByID(_ context.Context, id int) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.rows[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &u, nil
}

type Habits struct {
	mu     sync.Mutex
	nextID int
	rows   map[int]model.Habit
}

func NewHabits() *Habits {
	return &Habits{rows: make(map[int]model.Habit)}
}

func (s *Habits) Create(_ context.Context, h *model.Habit) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	h.ID = s.nextID
	h.Archived = false
	h.CreatedAt = time.Now().UTC()
	h.StartDate = day(h.StartDate)
	s.rows[h.ID] = *h
	return nil
}

func (s *Habits) ListActiveByUser(_ context.Context, userID int) ([]model.Habit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []model.Habit
	for _, h := range s.rows {
		if h.UserID == userID && !h.Archived {
			out = append(out, h)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Habits) FindForUser(_ context.Context, id, userID int) (*model.Habit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, ok := s.rows[id]
	if !ok || h.UserID != userID {
		return nil, pgx.ErrNoRows
	}
	return &h, nil
}

func (s *Habits) Update(_ context.Context, id, userID int, patch repository.HabitPatch) (*model.Habit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, ok := s.rows[id]
	if !ok || h.UserID != userID {
		return nil, pgx.ErrNoRows
	}
	if patch.Name != nil {
		h.Name = *patch.Name
	}
	if patch.Goal != nil {
		goal := *patch.Goal
		h.Goal = &goal
	}
	if patch.Archived != nil {
		h.Archived = *patch.Archived
	}
	s.rows[id] = h
	return &h, nil
}

func (s *Habits) Archive(_ context.Context, id, userID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, ok := s.rows[id]
	if !ok || h.UserID != userID {
		return pgx.ErrNoRows
	}
	h.Archived = true
	s.rows[id] = h
	return nil
}

type logKey struct {
	habitID int
	date    string
}

type Logs struct {
	mu     sync.Mutex
	nextID int
	rows   map[logKey]model.HabitLog
}

func NewLogs() *Logs {
	return &Logs{rows: make(map[logKey]model.HabitLog)}
}

// Upsert merges non-nil fields into the existing row, like the SQL upsert.
func (s *Logs) Upsert(_ context.Context, in repository.LogUpsert) (*model.HabitLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d := day(in.Date)
	key := logKey{habitID: in.HabitID, date: d.Format(model.DateLayout)}
	l, ok := s.rows[key]
	if !ok {
		s.nextID++
		l = model.HabitLog{ID: s.nextID, HabitID: in.HabitID, Date: d, CreatedAt: time.Now().UTC()}
	}
	if in.Value != nil {
		v := *in.Value
		l.Value = &v
	}
	if in.Completed != nil {
		l.Completed = *in.Completed
	}
	s.rows[key] = l
	return &l, nil
}

func (s *Logs) ListInRange(_ context.Context, habitID int, start, end time.Time) ([]model.HabitLog, error) {
	from, to := day(start), day(end)
	return s.filter(func(l model.HabitLog) bool {
		return l.HabitID == habitID && !l.Date.Before(from) && !l.Date.After(to)
	}), nil
}

func (s *Logs) ListByHabit(_ context.Context, habitID int) ([]model.HabitLog, error) {
	return s.filter(func(l model.HabitLog) bool { return l.HabitID == habitID }), nil
}

// Count returns the number of stored logs across all habits.
func (s *Logs) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}

func (s *Logs) filter(keep func(model.HabitLog) bool) []model.HabitLog {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []model.HabitLog
	for _, l := range s.rows {
		if keep(l) {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// Attempts is an in-memory login failure counter without expiry.
type Attempts struct {
	mu     sync.Mutex
	counts map[string]int64
}

func NewAttempts() *Attempts {
	return &Attempts{counts: make(map[string]int64)}
}

func (a *Attempts) Increment(_ context.Context, subject string) (int64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.counts[strings.ToLower(subject)]++
	return a.counts[strings.ToLower(subject)], nil
}

func (a *Attempts) Get(_ context.Context, subject string) (int64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.counts[strings.ToLower(subject)], nil
}

func (a *Attempts) Reset(_ context.Context, subject string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.counts, strings.ToLower(subject))
	return nil
}

// Event is one message captured by Publisher.
type Event struct {
	RoutingKey string
	Payload    any
}

// Publisher records published events. Set Err to make every publish fail.
type Publisher struct {
	mu     sync.Mutex
	Err    error
	events []Event
}

func (p *Publisher) Publish(_ context.Context, routingKey string, payload any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Err != nil {
		return p.Err
	}
	p.events = append(p.events, Event{RoutingKey: routingKey, Payload: payload})
	return nil
}

func (p *Publisher) Events() []Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Event(nil), p.events...)
}

func day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
