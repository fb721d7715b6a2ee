package domain

import "fmt"

type Action string

const (
	ActionSave     Action = "save"
	ActionSubmit   Action = "submit"
	ActionWithdraw Action = "withdraw"
	ActionDelete   Action = "delete"
)

// Effect is a side effect the lifecycle service performs for a transition.
// Effects run in the order they are listed.
type Effect string

const (
	EffectApplyEdits               Effect = "apply_edits"
	EffectRequireUnchanged         Effect = "require_unchanged"
	EffectStampAppliedAt           Effect = "stamp_applied_at"
	EffectSyncProfileData          Effect = "sync_profile_data"
	EffectSyncProfileDocuments     Effect = "sync_profile_documents"
	EffectNotifyApplicantSent      Effect = "notify_applicant_sent"
	EffectNotifyProfessor          Effect = "notify_professor_received"
	EffectNotifyApplicantWithdrawn Effect = "notify_applicant_withdrawn"
	EffectRemove                   Effect = "remove"
)

// Notifies reports whether the effect is a notification, dispatched after commit.
func (e Effect) Notifies() bool {
	switch e {
	case EffectNotifyApplicantSent, EffectNotifyProfessor, EffectNotifyApplicantWithdrawn:
		return true
	}
	return false
}

type Transition struct {
	From    ApplicationState
	Action  Action
	To      ApplicationState
	Effects []Effect
}

type transitionKey struct {
	from   ApplicationState
	action Action
}

var transitions = map[transitionKey]Transition{}

func init() {
	add := func(from ApplicationState, action Action, to ApplicationState, effects ...Effect) {
		transitions[transitionKey{from, action}] = Transition{From: from, Action: action, To: to, Effects: effects}
	}

	add(StateSaved, ActionSave, StateSaved, EffectApplyEdits)
	add(StateSaved, ActionSubmit, StateSent,
		EffectApplyEdits,
		EffectStampAppliedAt,
		EffectSyncProfileData,
		EffectSyncProfileDocuments,
		EffectNotifyApplicantSent,
		EffectNotifyProfessor,
	)
	// Re-sending keeps the first appliedAt and does not sync again. The
	// snapshot is frozen, so edits must match what is stored.
	add(StateSent, ActionSubmit, StateSent, EffectRequireUnchanged)

	add(StateSent, ActionWithdraw, StateWithdrawn, EffectNotifyApplicantWithdrawn)
	add(StateInReview, ActionWithdraw, StateWithdrawn, EffectNotifyApplicantWithdrawn)

	add(StateSaved, ActionDelete, "", EffectRemove)
	add(StateSent, ActionDelete, "", EffectRemove)
	add(StateWithdrawn, ActionDelete, "", EffectRemove)
}

// NextTransition looks up what happens when action is applied in state from.
func NextTransition(from ApplicationState, action Action) (Transition, error) {
	t, ok := transitions[transitionKey{from, action}]
	if !ok {
		return Transition{}, fmt.Errorf("%w: cannot %s an application in state %s", ErrOperationNotAllowed, action, from)
	}
	return t, nil
}

// ActionForState maps the state requested by an edit to the lifecycle action.
func ActionForState(requested ApplicationState) (Action, error) {
	switch requested {
	case StateSaved, "":
		return ActionSave, nil
	case StateSent:
		return ActionSubmit, nil
	case StateWithdrawn:
		return ActionWithdraw, nil
	default:
		return "", fmt.Errorf("%w: state %s is set by the evaluation process", ErrOperationNotAllowed, requested)
	}
}

func (t Transition) Has(effect Effect) bool {
	for _, e := range t.Effects {
		if e == effect {
			return true
		}
	}
	return false
}
