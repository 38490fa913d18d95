package storage

import (
	"github.com/bagiro44/baby-tracker/internal"
	"github.com/bagiro44/baby-tracker/internal/config"
)

// Repositories groups the four storage contracts so callers wire one
// backend once.
type Repositories struct {
	Events    EventRepository
	Reminders ReminderRepository
	Subjects  SubjectRepository
	States    StateRepository
}

func NewFileRepositories(cfg *config.Config, logger internal.Logger) (*Repositories, *FileStorage, error) {
	s, err := NewFileStorage(cfg.FileEvents, cfg.FileReminders, cfg.FileSubjects, cfg.FileStates, logger)
	if err != nil {
		return nil, nil, err
	}
	return &Repositories{Events: s, Reminders: s, Subjects: s, States: s}, s, nil
}

func NewPostgresRepositories(dsn string, logger internal.Logger) (*Repositories, *PostgresStorage, error) {
	if err := RunMigrations(dsn); err != nil {
		return nil, nil, err
	}
	s, err := NewPostgresStorage(dsn, logger)
	if err != nil {
		return nil, nil, err
	}
	return &Repositories{Events: s, Reminders: s, Subjects: s, States: s}, s, nil
}
