package storage

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/bagiro44/baby-tracker/internal"
)

type section string

const (
	secEvents    section = "events"
	secReminders section = "reminders"
	secSubjects  section = "subjects"
	secStates    section = "states"
)

// FileStorage keeps everything in memory guarded by one RWMutex and
// persists each section to its own JSON file through a debounced save
// worker. The write lock serializes the check-and-insert paths.
type FileStorage struct {
	mu sync.RWMutex

	events         []*internal.Event
	nextEventID    int64
	reminders      []*internal.Reminder
	nextReminderID int64
	subjects       []*internal.Subject
	nextSubjectID  int64
	states         map[int64]*internal.UserState

	files     map[section]string
	saveChans map[section]chan struct{}
	shutdown  chan struct{}
	saveDelay time.Duration
	logger    internal.Logger
}

func NewFileStorage(eventsFile, remindersFile, subjectsFile, statesFile string, logger internal.Logger) (*FileStorage, error) {
	s := &FileStorage{
		nextEventID:    1,
		nextReminderID: 1,
		nextSubjectID:  1,
		states:         make(map[int64]*internal.UserState),
		files: map[section]string{
			secEvents:    eventsFile,
			secReminders: remindersFile,
			secSubjects:  subjectsFile,
			secStates:    statesFile,
		},
		saveChans: make(map[section]chan struct{}),
		shutdown:  make(chan struct{}),
		saveDelay: 500 * time.Millisecond,
		logger:    logger,
	}

	for sec := range s.files {
		s.saveChans[sec] = make(chan struct{}, 1)
	}

	if err := s.loadAll(); err != nil {
		logger.Errorf("storage: failed to load data files: %v", err)
		return nil, err
	}

	for sec := range s.files {
		go s.saveWorker(sec)
	}
	return s, nil
}

func (s *FileStorage) loadAll() error {
	if err := decodeJSONFile(s.files[secEvents], &s.events); err != nil {
		return err
	}
	for _, ev := range s.events {
		if ev.ID >= s.nextEventID {
			s.nextEventID = ev.ID + 1
		}
	}

	if err := decodeJSONFile(s.files[secReminders], &s.reminders); err != nil {
		return err
	}
	for _, r := range s.reminders {
		if r.ID >= s.nextReminderID {
			s.nextReminderID = r.ID + 1
		}
	}

	if err := decodeJSONFile(s.files[secSubjects], &s.subjects); err != nil {
		return err
	}
	for _, sub := range s.subjects {
		if sub.ID >= s.nextSubjectID {
			s.nextSubjectID = sub.ID + 1
		}
	}

	var states []*internal.UserState
	if err := decodeJSONFile(s.files[secStates], &states); err != nil {
		return err
	}
	for _, st := range states {
		s.states[st.UserID] = st
	}
	return nil
}

func decodeJSONFile(path string, out interface{}) error {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer file.Close()

	if err := json.NewDecoder(file).Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return err
	}
	return nil
}

func atomicWriteFileJSON(filePath string, data interface{}) error {
	if dir := filepath.Dir(filePath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	tempFile := filePath + ".tmp"
	f, err := os.Create(tempFile)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(data); err != nil {
		f.Close()
		os.Remove(tempFile)
		return err
	}

	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tempFile)
		return err
	}

	if err := f.Close(); err != nil {
		os.Remove(tempFile)
		return err
	}

	return os.Rename(tempFile, filePath)
}

func (s *FileStorage) snapshot(sec section) interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	switch sec {
	case secEvents:
		out := make([]*internal.Event, len(s.events))
		copy(out, s.events)
		return out
	case secReminders:
		out := make([]*internal.Reminder, len(s.reminders))
		copy(out, s.reminders)
		return out
	case secSubjects:
		out := make([]*internal.Subject, len(s.subjects))
		copy(out, s.subjects)
		return out
	default:
		out := make([]*internal.UserState, 0, len(s.states))
		for _, st := range s.states {
			out = append(out, st)
		}
		return out
	}
}

func (s *FileStorage) save(sec section) error {
	return atomicWriteFileJSON(s.files[sec], s.snapshot(sec))
}

func (s *FileStorage) saveWorker(sec section) {
	timer := time.NewTimer(s.saveDelay)
	defer timer.Stop()

	for {
		select {
		case <-s.saveChans[sec]:
			timer.Reset(s.saveDelay)
		case <-timer.C:
			if err := s.save(sec); err != nil {
				s.logger.Errorf("storage: error saving %s: %v", sec, err)
			}
		case <-s.shutdown:
			return
		}
	}
}

// markDirty must be called with the write lock held or immediately
// after releasing it.
func (s *FileStorage) markDirty(sec section) {
	select {
	case s.saveChans[sec] <- struct{}{}:
	default:
	}
}

func (s *FileStorage) Close() error {
	close(s.shutdown)

	// Flush pending data synchronously on shutdown.
	for sec := range s.files {
		if err := s.save(sec); err != nil {
			return err
		}
	}
	return nil
}

// --- EventRepository ---

func (s *FileStorage) appendLocked(ev *internal.Event) {
	ev.ID = s.nextEventID
	s.nextEventID++
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now()
	}
	s.events = append(s.events, ev)
}

func (s *FileStorage) Append(ctx context.Context, ev *internal.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appendLocked(ev)
	s.markDirty(secEvents)
	return nil
}

func (s *FileStorage) lastOfTypeLocked(subjectID int64, typ internal.EventType) *internal.Event {
	var last *internal.Event
	for _, ev := range s.events {
		if ev.SubjectID != subjectID || ev.Type != typ {
			continue
		}
		if last == nil || ev.Timestamp.After(last.Timestamp) || (ev.Timestamp.Equal(last.Timestamp) && ev.ID > last.ID) {
			last = ev
		}
	}
	return last
}

func (s *FileStorage) LastOfType(ctx context.Context, subjectID int64, typ internal.EventType) (*internal.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	last := s.lastOfTypeLocked(subjectID, typ)
	if last == nil {
		return nil, nil
	}
	cp := *last
	return &cp, nil
}

func (s *FileStorage) openIntervalLocked(subjectID int64, startType, endType internal.EventType) *internal.Event {
	start := s.lastOfTypeLocked(subjectID, startType)
	if start == nil {
		return nil
	}
	for _, ev := range s.events {
		if ev.SubjectID != subjectID || ev.Type != endType {
			continue
		}
		// An end at the exact start timestamp still closes it; the ID
		// tie-break keeps a backdated start from matching older ends.
		if ev.Timestamp.After(start.Timestamp) ||
			(ev.Timestamp.Equal(start.Timestamp) && ev.ID > start.ID) {
			return nil
		}
	}
	return start
}

func (s *FileStorage) OpenInterval(ctx context.Context, subjectID int64, startType, endType internal.EventType) (*internal.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	start := s.openIntervalLocked(subjectID, startType, endType)
	if start == nil {
		return nil, nil
	}
	cp := *start
	return &cp, nil
}

func (s *FileStorage) EventsInWindow(ctx context.Context, subjectID int64, since time.Time) ([]internal.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var events []internal.Event
	for _, ev := range s.events {
		if ev.SubjectID == subjectID && !ev.Timestamp.Before(since) {
			events = append(events, *ev)
		}
	}
	sort.Slice(events, func(i, j int) bool {
		if !events[i].Timestamp.Equal(events[j].Timestamp) {
			return events[i].Timestamp.After(events[j].Timestamp)
		}
		return events[i].ID > events[j].ID
	})
	return events, nil
}

func (s *FileStorage) AppendStart(ctx context.Context, ev *internal.Event, endType internal.EventType) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if open := s.openIntervalLocked(ev.SubjectID, ev.Type, endType); open != nil {
		return internal.ErrSessionAlreadyOpen
	}
	s.appendLocked(ev)
	s.markDirty(secEvents)
	return nil
}

func (s *FileStorage) CloseInterval(ctx context.Context, subjectID int64, startType, endType internal.EventType, end *internal.Event) (*internal.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := s.openIntervalLocked(subjectID, startType, endType)
	if start == nil {
		return nil, internal.ErrNoOpenSession
	}
	if end.Timestamp.Before(start.Timestamp) {
		return nil, internal.ErrInvalidInput
	}
	minutes := internal.DurationMinutes(start.Timestamp, end.Timestamp)
	end.Duration = &minutes
	s.appendLocked(end)
	s.markDirty(secEvents)

	cp := *start
	return &cp, nil
}

// --- ReminderRepository ---

func (s *FileStorage) Replace(ctx context.Context, subjectID int64, reminders []*internal.Reminder) error {
	kinds := make(map[internal.ReminderKind]bool, len(reminders))
	for _, r := range reminders {
		kinds[r.Kind] = true
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.reminders[:0]
	for _, r := range s.reminders {
		if r.SubjectID == subjectID && !r.Sent && kinds[r.Kind] {
			continue
		}
		kept = append(kept, r)
	}
	s.reminders = kept

	for _, r := range reminders {
		r.ID = s.nextReminderID
		s.nextReminderID++
		if r.CreatedAt.IsZero() {
			r.CreatedAt = time.Now()
		}
		s.reminders = append(s.reminders, r)
	}
	s.markDirty(secReminders)
	return nil
}

func (s *FileStorage) Due(ctx context.Context, now time.Time) ([]internal.Reminder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var due []internal.Reminder
	for _, r := range s.reminders {
		if !r.Sent && !r.ScheduledAt.After(now) {
			due = append(due, *r)
		}
	}
	sort.Slice(due, func(i, j int) bool {
		return due[i].ScheduledAt.Before(due[j].ScheduledAt)
	})
	return due, nil
}

func (s *FileStorage) MarkSent(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// A repeat call, or an unknown id, is a no-op.
	for _, r := range s.reminders {
		if r.ID == id && !r.Sent {
			r.Sent = true
			s.markDirty(secReminders)
			break
		}
	}
	return nil
}

func (s *FileStorage) PurgeSent(ctx context.Context, olderThan time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var purged int64
	kept := s.reminders[:0]
	for _, r := range s.reminders {
		if r.Sent && r.CreatedAt.Before(olderThan) {
			purged++
			continue
		}
		kept = append(kept, r)
	}
	s.reminders = kept
	if purged > 0 {
		s.markDirty(secReminders)
	}
	return purged, nil
}

// --- SubjectRepository ---

func (s *FileStorage) CreateSubject(ctx context.Context, sub *internal.Subject) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub.ID = s.nextSubjectID
	s.nextSubjectID++
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = time.Now()
	}
	s.subjects = append(s.subjects, sub)
	s.markDirty(secSubjects)
	return nil
}

func (s *FileStorage) GetSubject(ctx context.Context, id int64) (*internal.Subject, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, sub := range s.subjects {
		if sub.ID == id {
			cp := *sub
			return &cp, nil
		}
	}
	return nil, internal.ErrNotFound
}

func (s *FileStorage) ListSubjects(ctx context.Context) ([]internal.Subject, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	subjects := make([]internal.Subject, 0, len(s.subjects))
	for _, sub := range s.subjects {
		subjects = append(subjects, *sub)
	}
	sort.Slice(subjects, func(i, j int) bool {
		return subjects[i].CreatedAt.Before(subjects[j].CreatedAt)
	})
	return subjects, nil
}

func (s *FileStorage) UpdateGender(ctx context.Context, id int64, gender internal.Gender) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, sub := range s.subjects {
		if sub.ID == id {
			sub.Gender = gender
			s.markDirty(secSubjects)
			return nil
		}
	}
	return internal.ErrNotFound
}

// --- StateRepository ---

func (s *FileStorage) SetState(ctx context.Context, st *internal.UserState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st.UpdatedAt = time.Now()
	s.states[st.UserID] = st
	s.markDirty(secStates)
	return nil
}

func (s *FileStorage) GetState(ctx context.Context, userID int64) (*internal.UserState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.states[userID]
	if !ok {
		return nil, nil
	}
	cp := *st
	return &cp, nil
}

func (s *FileStorage) ClearState(ctx context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.states[userID]; ok {
		delete(s.states, userID)
		s.markDirty(secStates)
	}
	return nil
}

// --- Compile-time assertions ---
var _ EventRepository = (*FileStorage)(nil)
var _ ReminderRepository = (*FileStorage)(nil)
var _ SubjectRepository = (*FileStorage)(nil)
var _ StateRepository = (*FileStorage)(nil)
