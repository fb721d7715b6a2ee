package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextTransition_SubmitFromSaved(t *testing.T) {
	tr, err := NextTransition(StateSaved, ActionSubmit)
	require.NoError(t, err)

	assert.Equal(t, StateSent, tr.To)
	assert.Equal(t, []Effect{
		EffectApplyEdits,
		EffectStampAppliedAt,
		EffectSyncProfileData,
		EffectSyncProfileDocuments,
		EffectNotifyApplicantSent,
		EffectNotifyProfessor,
	}, tr.Effects)
}

func TestNextTransition_ResubmitOnlyChecksEdits(t *testing.T) {
	tr, err := NextTransition(StateSent, ActionSubmit)
	require.NoError(t, err)

	assert.Equal(t, StateSent, tr.To)
	assert.Equal(t, []Effect{EffectRequireUnchanged}, tr.Effects)
	assert.False(t, tr.Has(EffectStampAppliedAt))
	assert.False(t, tr.Has(EffectApplyEdits))
}

func TestNextTransition_Withdraw(t *testing.T) {
	for _, from := range []ApplicationState{StateSent, StateInReview} {
		tr, err := NextTransition(from, ActionWithdraw)
		require.NoError(t, err, from)
		assert.Equal(t, StateWithdrawn, tr.To)
		assert.True(t, tr.Has(EffectNotifyApplicantWithdrawn))
	}

	for _, from := range []ApplicationState{StateSaved, StateWithdrawn, StateAccepted, StateRejected} {
		_, err := NextTransition(from, ActionWithdraw)
		assert.True(t, errors.Is(err, ErrOperationNotAllowed), from)
	}
}

func TestNextTransition_Delete(t *testing.T) {
	for _, from := range []ApplicationState{StateSaved, StateSent, StateWithdrawn} {
		tr, err := NextTransition(from, ActionDelete)
		require.NoError(t, err, from)
		assert.True(t, tr.Has(EffectRemove))
	}

	for _, from := range []ApplicationState{StateInReview, StateAccepted, StateRejected} {
		_, err := NextTransition(from, ActionDelete)
		assert.ErrorIs(t, err, ErrOperationNotAllowed, from)
	}
}

func TestNextTransition_SentIsLocked(t *testing.T) {
	_, err := NextTransition(StateSent, ActionSave)
	assert.ErrorIs(t, err, ErrOperationNotAllowed)
}

func TestActionForState(t *testing.T) {
	cases := map[ApplicationState]Action{
		StateSaved:     ActionSave,
		"":             ActionSave,
		StateSent:      ActionSubmit,
		StateWithdrawn: ActionWithdraw,
	}
	for state, want := range cases {
		got, err := ActionForState(state)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := ActionForState(StateAccepted)
	assert.ErrorIs(t, err, ErrOperationNotAllowed)
}

func TestEffectNotifies(t *testing.T) {
	assert.True(t, EffectNotifyProfessor.Notifies())
	assert.False(t, EffectSyncProfileDocuments.Notifies())
}
