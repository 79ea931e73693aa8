package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/stemsi/attendance-backend/internal/model"
	"github.com/stemsi/attendance-backend/internal/report"
	"github.com/stemsi/attendance-backend/internal/repository"
)

// memStore is an in-memory stand-in for every repository the services use.
// Values are copied through JSON so callers never share memory with the store.
type memStore struct {
	mu       sync.RWMutex
	users    map[uuid.UUID]model.User
	classes  map[uuid.UUID]model.Class
	archived map[uuid.UUID]model.ArchivedStudent
	sheets   map[string]model.Attendance
	holidays map[uuid.UUID]model.Holiday
}

func newMemStore() *memStore {
	return &memStore{
		users:    make(map[uuid.UUID]model.User),
		classes:  make(map[uuid.UUID]model.Class),
		archived: make(map[uuid.UUID]model.ArchivedStudent),
		sheets:   make(map[string]model.Attendance),
		holidays: make(map[uuid.UUID]model.Holiday),
	}
}

func clone[T any](v T) T {
	var out T
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &out); err != nil {
		panic(err)
	}
	return out
}

func sheetKey(classID uuid.UUID, date string) string {
	return classID.String() + "/" + date
}

func inIDs(ids []uuid.UUID, id uuid.UUID) bool {
	if ids == nil {
		return true
	}
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}

func inRange(date, start, end string) bool {
	return (start == "" || date >= start) && (end == "" || date <= end)
}

// ─── Users ──────────────────────────────────────────────────────────

type memUsers struct{ *memStore }

func (m memUsers) GetByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	u = clone(u)
	u.PasswordHash = m.users[id].PasswordHash
	return &u, nil
}

func (m memUsers) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	m.mu.RLock()
	var id uuid.UUID
	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			id = u.ID
		}
	}
	m.mu.RUnlock()
	if id == uuid.Nil {
		return nil, repository.ErrNotFound
	}
	return m.GetByID(ctx, id)
}

func (m memUsers) List(_ context.Context, f model.UserFilter) ([]model.User, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []model.User
	for _, u := range m.users {
		if f.Role != "" && u.Role != f.Role {
			continue
		}
		if f.Search != "" && !strings.Contains(strings.ToLower(u.Name+" "+u.Email), strings.ToLower(f.Search)) {
			continue
		}
		out = append(out, clone(u))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	total := len(out)
	if f.Offset < len(out) {
		out = out[f.Offset:]
	} else {
		out = nil
	}
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, total, nil
}

func (m memUsers) Create(_ context.Context, u *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return repository.ErrDuplicate
		}
	}
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	u.CreatedAt = time.Now()
	u.UpdatedAt = u.CreatedAt
	m.users[u.ID] = *u
	return nil
}

func (m memUsers) Update(_ context.Context, u *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.users[u.ID]
	if !ok {
		return repository.ErrNotFound
	}
	for id, existing := range m.users {
		if id != u.ID && strings.EqualFold(existing.Email, u.Email) {
			return repository.ErrDuplicate
		}
	}
	for id, c := range m.classes {
		if !c.TaughtBy(u.ID) {
			continue
		}
		if u.Role != model.RoleTeacher {
			c.TeacherID, c.TeacherName = nil, ""
		} else {
			c.TeacherName = u.Name
		}
		m.classes[id] = c
	}
	if u.Role != model.RoleTeacher {
		u.AssignedClasses = []model.ClassRef{}
	} else {
		u.AssignedClasses = cur.AssignedClasses
	}
	u.PasswordHash = cur.PasswordHash
	u.CreatedAt = cur.CreatedAt
	u.UpdatedAt = time.Now()
	m.users[u.ID] = *u
	return nil
}

func (m memUsers) UpdatePassword(_ context.Context, id uuid.UUID, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.PasswordHash = hash
	m.users[id] = u
	return nil
}

func (m memUsers) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[id]; !ok {
		return repository.ErrNotFound
	}
	for cid, c := range m.classes {
		if c.TaughtBy(id) {
			c.TeacherID, c.TeacherName = nil, ""
			m.classes[cid] = c
		}
	}
	delete(m.users, id)
	return nil
}

// ─── Classes ────────────────────────────────────────────────────────

type memClasses struct{ *memStore }

func (m memClasses) GetByID(_ context.Context, id uuid.UUID) (*model.Class, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.classes[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c = clone(c)
	return &c, nil
}

func (m memClasses) List(_ context.Context, f model.ClassFilter) ([]model.Class, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []model.Class
	for _, c := range m.classes {
		if f.TeacherID != nil && !c.TaughtBy(*f.TeacherID) {
			continue
		}
		out = append(out, clone(c))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m memClasses) Create(_ context.Context, c *model.Class) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.classes {
		if strings.EqualFold(existing.Name, c.Name) {
			return repository.ErrDuplicate
		}
	}
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.Students == nil {
		c.Students = []model.Student{}
	}
	m.classes[c.ID] = clone(*c)
	if c.TeacherID != nil {
		u := m.users[*c.TeacherID]
		u.AssignedClasses = model.AddClassRef(u.AssignedClasses, c.Ref())
		m.users[u.ID] = u
	}
	return nil
}

func (m memClasses) Update(_ context.Context, ch model.ClassChange) (*model.Class, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.classes[ch.ClassID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	for id, existing := range m.classes {
		if id != ch.ClassID && strings.EqualFold(existing.Name, ch.NewName) {
			return nil, repository.ErrDuplicate
		}
	}
	ch.Apply(&c)
	m.classes[c.ID] = c

	if ch.Renamed {
		for k, doc := range m.sheets {
			if doc.ClassID == c.ID {
				doc.ClassName = c.Name
				m.sheets[k] = doc
			}
		}
		for k, a := range m.archived {
			if a.ClassID == c.ID {
				a.ClassName = c.Name
				m.archived[k] = a
			}
		}
	}
	if ch.TeacherChanged && ch.OldTeacherID != nil {
		u := m.users[*ch.OldTeacherID]
		u.AssignedClasses, _ = model.RemoveClassRef(u.AssignedClasses, c.ID)
		m.users[u.ID] = u
	}
	if c.TeacherID != nil {
		u := m.users[*c.TeacherID]
		u.AssignedClasses = model.AddClassRef(u.AssignedClasses, c.Ref())
		m.users[u.ID] = u
	}
	out := clone(c)
	return &out, nil
}

func (m memClasses) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.classes[id]
	if !ok {
		return repository.ErrNotFound
	}
	if len(c.Students) > 0 {
		return repository.ErrHasDependencies
	}
	for _, doc := range m.sheets {
		if doc.ClassID == id {
			return repository.ErrHasDependencies
		}
	}
	if c.TeacherID != nil {
		u := m.users[*c.TeacherID]
		u.AssignedClasses, _ = model.RemoveClassRef(u.AssignedClasses, id)
		m.users[u.ID] = u
	}
	delete(m.classes, id)
	return nil
}

func (m memClasses) MutateRoster(_ context.Context, classID uuid.UUID, fn func(*model.Class) error) (*model.Class, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.classes[classID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c = clone(c)
	if err := fn(&c); err != nil {
		return nil, err
	}
	m.classes[classID] = c
	out := clone(c)
	return &out, nil
}

func (m memClasses) TransferStudent(_ context.Context, fromID, toID, studentID uuid.UUID) (*model.Class, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	from, ok := m.classes[fromID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	to, ok := m.classes[toID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	from, to = clone(from), clone(to)
	s, err := from.RemoveStudent(studentID)
	if err != nil {
		return nil, err
	}
	if err := to.AddStudent(s); err != nil {
		return nil, err
	}
	m.classes[fromID] = from
	m.classes[toID] = to
	out := clone(to)
	return &out, nil
}

// ─── Archive ────────────────────────────────────────────────────────

type memArchive struct{ *memStore }

func (m memArchive) GetByID(_ context.Context, id uuid.UUID) (*model.ArchivedStudent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.archived[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &a, nil
}

func (m memArchive) List(_ context.Context, f model.ArchiveFilter) ([]model.ArchivedStudent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []model.ArchivedStudent
	for _, a := range m.archived {
		if f.ClassID != nil && a.ClassID != *f.ClassID {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ArchivedAt.After(out[j].ArchivedAt) })
	return out, nil
}

func (m memArchive) Count(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.archived), nil
}

func (m memArchive) Archive(_ context.Context, classID, studentID uuid.UUID, a *model.ArchivedStudent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.classes[classID]
	if !ok {
		return repository.ErrNotFound
	}
	c = clone(c)
	s, err := c.RemoveStudent(studentID)
	if err != nil {
		return err
	}
	m.classes[classID] = c
	a.ID = uuid.New()
	a.Student = s
	a.ClassID = c.ID
	a.ClassName = c.Name
	m.archived[a.ID] = *a
	return nil
}

func (m memArchive) Restore(_ context.Context, archivedID uuid.UUID, classID *uuid.UUID) (*model.Class, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.archived[archivedID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	target := a.ClassID
	if classID != nil {
		target = *classID
	}
	c, ok := m.classes[target]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c = clone(c)
	if err := c.AddStudent(a.Student); err != nil {
		return nil, err
	}
	m.classes[target] = c
	delete(m.archived, archivedID)
	out := clone(c)
	return &out, nil
}

func (m memArchive) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.archived[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.archived, id)
	return nil
}

// ─── Attendance ─────────────────────────────────────────────────────

type memSheets struct{ *memStore }

func (m memSheets) Get(_ context.Context, classID uuid.UUID, date string) (*model.Attendance, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	doc, ok := m.sheets[sheetKey(classID, date)]
	if !ok {
		return nil, repository.ErrNotFound
	}
	doc = clone(doc)
	return &doc, nil
}

func (m memSheets) List(_ context.Context, f model.AttendanceFilter) ([]model.Attendance, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []model.Attendance
	for _, doc := range m.sheets {
		if inIDs(f.ClassIDs, doc.ClassID) && inRange(doc.Date, f.Start, f.End) {
			out = append(out, clone(doc))
		}
	}
	return out, nil
}

func (m memSheets) Submit(_ context.Context, classID uuid.UUID, date string, fn repository.SubmitFunc) (*model.Attendance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.classes[classID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c = clone(c)
	var existing *model.Attendance
	if doc, ok := m.sheets[sheetKey(classID, date)]; ok {
		doc = clone(doc)
		existing = &doc
	}
	next, err := fn(&c, existing)
	if err != nil {
		return nil, err
	}
	m.sheets[sheetKey(classID, date)] = clone(*next)
	return next, nil
}

func (m memSheets) Delete(_ context.Context, classID uuid.UUID, date string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sheets[sheetKey(classID, date)]; !ok {
		return repository.ErrNotFound
	}
	delete(m.sheets, sheetKey(classID, date))
	return nil
}

// ─── Holidays ───────────────────────────────────────────────────────

type memHolidays struct{ *memStore }

func (m memHolidays) GetByID(_ context.Context, id uuid.UUID) (*model.Holiday, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	h, ok := m.holidays[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &h, nil
}

func (m memHolidays) List(_ context.Context, start, end string) ([]model.Holiday, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []model.Holiday
	for _, h := range m.holidays {
		if inRange(h.Date, start, end) {
			out = append(out, h)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}

func (m memHolidays) Create(_ context.Context, h *model.Holiday) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.holidays {
		if existing.Date == h.Date {
			return repository.ErrDuplicate
		}
	}
	h.ID = uuid.New()
	m.holidays[h.ID] = *h
	return nil
}

func (m memHolidays) Update(_ context.Context, h *model.Holiday) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.holidays[h.ID]; !ok {
		return repository.ErrNotFound
	}
	for id, existing := range m.holidays {
		if id != h.ID && existing.Date == h.Date {
			return repository.ErrDuplicate
		}
	}
	m.holidays[h.ID] = *h
	return nil
}

func (m memHolidays) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.holidays[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.holidays, id)
	return nil
}

func (m memHolidays) Upsert(_ context.Context, reqs []model.HolidayRequest) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range reqs {
		id := uuid.New()
		for existingID, h := range m.holidays {
			if h.Date == r.Date {
				id = existingID
			}
		}
		m.holidays[id] = model.Holiday{ID: id, Date: r.Date, Name: r.Name, Description: r.Description}
	}
	return len(reqs), nil
}

// ─── Summaries ──────────────────────────────────────────────────────

// memSummaries derives summaries from the stored sheets, as the worker would.
type memSummaries struct{ *memStore }

func (m memSummaries) List(_ context.Context, f model.SummaryFilter) ([]model.DailySummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []model.DailySummary
	for _, doc := range m.sheets {
		if inIDs(f.ClassIDs, doc.ClassID) && inRange(doc.Date, f.Start, f.End) {
			d := doc
			out = append(out, report.Summarize(&d))
		}
	}
	return out, nil
}

// ─── Cache and queue ────────────────────────────────────────────────

type memCache struct {
	mu     sync.Mutex
	values map[string][]byte
	ttls   map[string]time.Duration
}

func newMemCache() *memCache {
	return &memCache{values: make(map[string][]byte), ttls: make(map[string]time.Duration)}
}

func (c *memCache) GetJSON(_ context.Context, key string, dst any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	data, ok := c.values[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(data, dst)
}

func (c *memCache) SetJSON(_ context.Context, key string, v any, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[key] = data
	c.ttls[key] = ttl
	return nil
}

func (c *memCache) Delete(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.values, k)
		delete(c.ttls, k)
	}
	return nil
}

func (c *memCache) DeletePrefix(_ context.Context, prefix string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for k := range c.values {
		if strings.HasPrefix(k, prefix) {
			delete(c.values, k)
			delete(c.ttls, k)
			n++
		}
	}
	return n, nil
}

type queuedJob struct {
	ClassID uuid.UUID
	Date    string
}

type memQueue struct {
	mu   sync.Mutex
	jobs []queuedJob
}

func (q *memQueue) Enqueue(_ context.Context, classID uuid.UUID, date string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.jobs = append(q.jobs, queuedJob{ClassID: classID, Date: date})
	return nil
}
