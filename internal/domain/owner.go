package domain

import (
	"fmt"

	"github.com/google/uuid"
)

type OwnerKind string

const (
	OwnerProfile           OwnerKind = "PROFILE"
	OwnerApplication       OwnerKind = "APPLICATION"
	OwnerCustomFieldAnswer OwnerKind = "CUSTOM_FIELD_ANSWER"
)

// OwnerRef names the single owner of a document association. The fields are
// unexported so a value can only come from one of the constructors below.
type OwnerRef struct {
	kind OwnerKind
	id   uuid.UUID
}

// ProfileOwner references the applicant profile of userID.
func ProfileOwner(userID uuid.UUID) OwnerRef {
	return OwnerRef{kind: OwnerProfile, id: userID}
}

func ApplicationOwner(applicationID uuid.UUID) OwnerRef {
	return OwnerRef{kind: OwnerApplication, id: applicationID}
}

func CustomFieldAnswerOwner(answerID uuid.UUID) OwnerRef {
	return OwnerRef{kind: OwnerCustomFieldAnswer, id: answerID}
}

// OwnerFromColumns rebuilds an owner from the three nullable foreign keys a
// row carries. Exactly one of them must be set.
func OwnerFromColumns(profileUserID, applicationID, answerID *uuid.UUID) (OwnerRef, error) {
	var (
		owner OwnerRef
		set   int
	)
	if profileUserID != nil {
		owner = ProfileOwner(*profileUserID)
		set++
	}
	if applicationID != nil {
		owner = ApplicationOwner(*applicationID)
		set++
	}
	if answerID != nil {
		owner = CustomFieldAnswerOwner(*answerID)
		set++
	}
	if set != 1 {
		return OwnerRef{}, fmt.Errorf("%w: association has %d owners", ErrInvalidParameter, set)
	}
	return owner, nil
}

// Columns is the inverse of OwnerFromColumns.
func (o OwnerRef) Columns() (profileUserID, applicationID, answerID *uuid.UUID) {
	id := o.id
	switch o.kind {
	case OwnerProfile:
		return &id, nil, nil
	case OwnerApplication:
		return nil, &id, nil
	case OwnerCustomFieldAnswer:
		return nil, nil, &id
	}
	return nil, nil, nil
}

func (o OwnerRef) Kind() OwnerKind { return o.kind }

func (o OwnerRef) ID() uuid.UUID { return o.id }

func (o OwnerRef) IsZero() bool { return o.kind == "" }

func (o OwnerRef) String() string {
	return fmt.Sprintf("%s(%s)", o.kind, o.id)
}
