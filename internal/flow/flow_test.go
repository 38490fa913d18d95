package flow_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bagiro44/baby-tracker/internal"
	"github.com/bagiro44/baby-tracker/internal/flow"
	"github.com/bagiro44/baby-tracker/internal/storage"
)

func newManager(t *testing.T) (*flow.Manager, *storage.FileStorage) {
	t.Helper()
	dir := t.TempDir()
	fs, err := storage.NewFileStorage(
		filepath.Join(dir, "events.json"),
		filepath.Join(dir, "reminders.json"),
		filepath.Join(dir, "subjects.json"),
		filepath.Join(dir, "states.json"),
		internal.NopLogger{},
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = fs.Close() })
	return flow.NewManager(fs), fs
}

func TestBeginAndActive(t *testing.T) {
	m, _ := newManager(t)
	ctx := context.Background()

	require.NoError(t, m.Begin(ctx, 7, flow.WizardBottle, 1))

	sess, err := m.Active(ctx, 7)
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.Equal(t, flow.WizardBottle, sess.Wizard)
	assert.EqualValues(t, 1, sess.SubjectID)
}

func TestBeginRejectsUnknownWizard(t *testing.T) {
	m, _ := newManager(t)

	err := m.Begin(context.Background(), 7, flow.Wizard("bogus"), 1)
	assert.ErrorIs(t, err, internal.ErrInvalidInput)
}

func TestBeginReplacesPreviousWizard(t *testing.T) {
	m, _ := newManager(t)
	ctx := context.Background()

	require.NoError(t, m.Begin(ctx, 7, flow.WizardBottle, 1))
	require.NoError(t, m.Begin(ctx, 7, flow.WizardWeight, 2))

	sess, err := m.Active(ctx, 7)
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.Equal(t, flow.WizardWeight, sess.Wizard)
	assert.EqualValues(t, 2, sess.SubjectID)
}

func TestActiveWithoutWizard(t *testing.T) {
	m, _ := newManager(t)

	sess, err := m.Active(context.Background(), 7)
	require.NoError(t, err)
	assert.Nil(t, sess)
}

func TestActiveClearsCorruptState(t *testing.T) {
	m, fs := newManager(t)
	ctx := context.Background()

	// A state written by an older build no longer maps to a wizard.
	require.NoError(t, fs.SetState(ctx, &internal.UserState{
		UserID: 7,
		State:  "retired_wizard",
		Data:   map[string]string{"subject_id": "1"},
	}))

	sess, err := m.Active(ctx, 7)
	require.NoError(t, err)
	assert.Nil(t, sess)

	st, err := fs.GetState(ctx, 7)
	require.NoError(t, err)
	assert.Nil(t, st, "invalid state must be cleared")
}

func TestActiveClearsMissingSubject(t *testing.T) {
	m, fs := newManager(t)
	ctx := context.Background()

	require.NoError(t, fs.SetState(ctx, &internal.UserState{
		UserID: 7,
		State:  string(flow.WizardDiaper),
		Data:   map[string]string{},
	}))

	sess, err := m.Active(ctx, 7)
	require.NoError(t, err)
	assert.Nil(t, sess)
}

func TestFinish(t *testing.T) {
	m, _ := newManager(t)
	ctx := context.Background()

	require.NoError(t, m.Begin(ctx, 7, flow.WizardBreastSide, 1))
	require.NoError(t, m.Finish(ctx, 7))

	sess, err := m.Active(ctx, 7)
	require.NoError(t, err)
	assert.Nil(t, sess)

	// Finishing twice is harmless.
	assert.NoError(t, m.Finish(ctx, 7))
}

func TestWizardsAreIndependentPerUser(t *testing.T) {
	m, _ := newManager(t)
	ctx := context.Background()

	require.NoError(t, m.Begin(ctx, 7, flow.WizardBottle, 1))
	require.NoError(t, m.Begin(ctx, 8, flow.WizardDiaper, 1))
	require.NoError(t, m.Finish(ctx, 7))

	sess, err := m.Active(ctx, 8)
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.Equal(t, flow.WizardDiaper, sess.Wizard)
}
