// Package flow tracks multi-step input wizards per user. Each wizard
// step is persisted so a half-entered value survives a process restart;
// the state is replaced on every transition and deleted once the value
// is submitted or turns out invalid.
package flow

import (
	"context"
	"strconv"

	"github.com/bagiro44/baby-tracker/internal"
	"github.com/bagiro44/baby-tracker/internal/storage"
)

type Wizard string

const (
	WizardBottle     Wizard = "bottle_amount"
	WizardWeight     Wizard = "weight_value"
	WizardDiaper     Wizard = "diaper_kind"
	WizardBreastSide Wizard = "breast_side"
)

func (w Wizard) Valid() bool {
	switch w {
	case WizardBottle, WizardWeight, WizardDiaper, WizardBreastSide:
		return true
	}
	return false
}

// Session is an in-flight wizard: which value is awaited and for whom.
type Session struct {
	Wizard    Wizard
	SubjectID int64
}

type Manager struct {
	states storage.StateRepository
}

func NewManager(states storage.StateRepository) *Manager {
	return &Manager{states: states}
}

func (m *Manager) Begin(ctx context.Context, userID int64, w Wizard, subjectID int64) error {
	if !w.Valid() {
		return internal.ErrInvalidInput
	}
	return m.states.SetState(ctx, &internal.UserState{
		UserID: userID,
		State:  string(w),
		Data:   map[string]string{"subject_id": strconv.FormatInt(subjectID, 10)},
	})
}

// Active returns the user's in-flight wizard, or nil. A stored state
// that no longer decodes is treated as invalid and cleared.
func (m *Manager) Active(ctx context.Context, userID int64) (*Session, error) {
	st, err := m.states.GetState(ctx, userID)
	if err != nil {
		return nil, err
	}
	if st == nil {
		return nil, nil
	}
	w := Wizard(st.State)
	subjectID, convErr := strconv.ParseInt(st.Data["subject_id"], 10, 64)
	if !w.Valid() || convErr != nil {
		if err := m.states.ClearState(ctx, userID); err != nil {
			return nil, err
		}
		return nil, nil
	}
	return &Session{Wizard: w, SubjectID: subjectID}, nil
}

func (m *Manager) Finish(ctx context.Context, userID int64) error {
	return m.states.ClearState(ctx, userID)
}
