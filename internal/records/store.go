// Package records owns the canonical list of tracked documents.
package records

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sandeepkv93/rightontime/internal/model"
)

// Draft is a record before the store has assigned it an id. ExpiryDate is
// the raw YYYY-MM-DD text; parsing happens here, at the boundary.
type Draft struct {
	DocumentType    model.DocumentType
	PersonCategory  model.PersonCategory
	PersonName      string
	ExpiryDate      string
	Notes           string
	ReminderOffsets model.OffsetSet
}

// Patch holds replacement values; nil fields are left untouched.
type Patch struct {
	DocumentType    *model.DocumentType
	PersonCategory  *model.PersonCategory
	PersonName      *string
	ExpiryDate      *string
	Notes           *string
	ReminderOffsets *model.OffsetSet
}

type Option func(*Store)

func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

func WithIDGenerator(gen func() string) Option {
	return func(s *Store) {
		if gen != nil {
			s.newID = gen
		}
	}
}

// Store is an in-memory, insertion-ordered list of records. It performs no
// I/O and is not safe for concurrent use.
type Store struct {
	allowed model.OffsetSet
	items   []model.TrackedRecord
	issued  map[string]struct{}
	now     func() time.Time
	newID   func() string
}

func NewStore(allowed model.OffsetSet, opts ...Option) *Store {
	s := &Store{
		allowed: allowed.Normalized(),
		items:   make([]model.TrackedRecord, 0),
		issued:  make(map[string]struct{}),
		now:     time.Now,
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Allowed() model.OffsetSet { return s.allowed.Clone() }

// NewID returns an id that has never been issued by or loaded into s.
func (s *Store) NewID() string {
	id := freshID(s.newID, s.issued)
	s.issued[id] = struct{}{}
	return id
}

func (s *Store) Add(d Draft) (model.TrackedRecord, error) {
	expiry, err := model.ParseDate(d.ExpiryDate)
	if err != nil {
		return model.TrackedRecord{}, err
	}
	offsets := d.ReminderOffsets
	if offsets == nil {
		offsets = model.OffsetSet{}
	}
	rec := model.TrackedRecord{
		DocumentType:    model.DocumentType(strings.TrimSpace(string(d.DocumentType))),
		PersonCategory:  model.PersonCategory(strings.TrimSpace(string(d.PersonCategory))),
		PersonName:      strings.TrimSpace(d.PersonName),
		ExpiryDate:      expiry,
		Notes:           d.Notes,
		ReminderOffsets: offsets.Normalized(),
	}
	if err := rec.Validate(s.allowed); err != nil {
		return model.TrackedRecord{}, err
	}
	rec.ID = s.NewID()
	rec.CreatedAt = s.now().UTC()
	s.items = append(s.items, rec)
	return rec.Clone(), nil
}

func (s *Store) Update(id string, p Patch) (model.TrackedRecord, error) {
	idx := s.indexOf(id)
	if idx < 0 {
		return model.TrackedRecord{}, &model.NotFoundError{ID: id}
	}
	next := s.items[idx].Clone()
	if p.DocumentType != nil {
		next.DocumentType = model.DocumentType(strings.TrimSpace(string(*p.DocumentType)))
	}
	if p.PersonCategory != nil {
		next.PersonCategory = model.PersonCategory(strings.TrimSpace(string(*p.PersonCategory)))
	}
	if p.PersonName != nil {
		next.PersonName = strings.TrimSpace(*p.PersonName)
	}
	if p.ExpiryDate != nil {
		expiry, err := model.ParseDate(*p.ExpiryDate)
		if err != nil {
			return model.TrackedRecord{}, err
		}
		next.ExpiryDate = expiry
	}
	if p.Notes != nil {
		next.Notes = *p.Notes
	}
	if p.ReminderOffsets != nil {
		next.ReminderOffsets = p.ReminderOffsets.Normalized()
	}
	if err := next.Validate(s.allowed); err != nil {
		return model.TrackedRecord{}, err
	}
	s.items[idx] = next
	return next.Clone(), nil
}

func (s *Store) Remove(id string) error {
	idx := s.indexOf(id)
	if idx < 0 {
		return &model.NotFoundError{ID: id}
	}
	s.items = append(s.items[:idx], s.items[idx+1:]...)
	return nil
}

func (s *Store) Get(id string) (model.TrackedRecord, error) {
	idx := s.indexOf(id)
	if idx < 0 {
		return model.TrackedRecord{}, &model.NotFoundError{ID: id}
	}
	return s.items[idx].Clone(), nil
}

// List returns copies in insertion order.
func (s *Store) List() []model.TrackedRecord {
	out := make([]model.TrackedRecord, len(s.items))
	for i, rec := range s.items {
		out[i] = rec.Clone()
	}
	return out
}

func (s *Store) Len() int { return len(s.items) }

// Load replaces the contents with an already repaired list.
func (s *Store) Load(list []model.TrackedRecord) {
	s.items = make([]model.TrackedRecord, 0, len(list))
	for _, rec := range list {
		s.items = append(s.items, rec.Clone())
		s.issued[rec.ID] = struct{}{}
	}
}

type Snapshot struct {
	items []model.TrackedRecord
}

func (s *Store) Snapshot() Snapshot {
	return Snapshot{items: s.List()}
}

// Restore rolls the list back. Ids issued since the snapshot stay retired.
func (s *Store) Restore(snap Snapshot) {
	s.items = make([]model.TrackedRecord, 0, len(snap.items))
	for _, rec := range snap.items {
		s.items = append(s.items, rec.Clone())
	}
}

func (s *Store) indexOf(id string) int {
	for i := range s.items {
		if s.items[i].ID == id {
			return i
		}
	}
	return -1
}
