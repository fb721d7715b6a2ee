package domain

import (
	"time"

	"github.com/google/uuid"
)

type ApplicationState string

const (
	StateSaved     ApplicationState = "SAVED"
	StateSent      ApplicationState = "SENT"
	StateWithdrawn ApplicationState = "WITHDRAWN"
	// Owned by the evaluation subsystem.
	StateInReview ApplicationState = "IN_REVIEW"
	StateAccepted ApplicationState = "ACCEPTED"
	StateRejected ApplicationState = "REJECTED"
)

// PersonalData is the field set copied between a profile and its applications.
type PersonalData struct {
	FirstName   string     `json:"firstName" db:"first_name"`
	LastName    string     `json:"lastName" db:"last_name"`
	Gender      string     `json:"gender" db:"gender"`
	Nationality string     `json:"nationality" db:"nationality"`
	Birthday    *time.Time `json:"birthday,omitempty" db:"birthday"`
	PhoneNumber string     `json:"phoneNumber" db:"phone_number"`
	Website     string     `json:"website" db:"website"`
	LinkedinURL string     `json:"linkedinUrl" db:"linkedin_url"`
	Street      string     `json:"street" db:"street"`
	PostalCode  string     `json:"postalCode" db:"postal_code"`
	City        string     `json:"city" db:"city"`
	Country     string     `json:"country" db:"country"`

	BachelorDegreeName      string `json:"bachelorDegreeName" db:"bachelor_degree_name"`
	BachelorGradeUpperLimit string `json:"bachelorGradeUpperLimit" db:"bachelor_grade_upper_limit"`
	BachelorGradeLowerLimit string `json:"bachelorGradeLowerLimit" db:"bachelor_grade_lower_limit"`
	BachelorGrade           string `json:"bachelorGrade" db:"bachelor_grade"`
	BachelorUniversity      string `json:"bachelorUniversity" db:"bachelor_university"`

	MasterDegreeName      string `json:"masterDegreeName" db:"master_degree_name"`
	MasterGradeUpperLimit string `json:"masterGradeUpperLimit" db:"master_grade_upper_limit"`
	MasterGradeLowerLimit string `json:"masterGradeLowerLimit" db:"master_grade_lower_limit"`
	MasterGrade           string `json:"masterGrade" db:"master_grade"`
	MasterUniversity      string `json:"masterUniversity" db:"master_university"`
}

// Equal compares field by field. Birthdays are compared as instants.
func (p PersonalData) Equal(o PersonalData) bool {
	if !sameTime(p.Birthday, o.Birthday) {
		return false
	}
	p.Birthday, o.Birthday = nil, nil
	return p == o
}

func sameTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

// ApplicantProfile holds the durable data of one user.
type ApplicantProfile struct {
	UserID uuid.UUID `json:"userId" db:"user_id"`
	PersonalData
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// Application is one applicant's application to one job. PersonalData is a
// copy taken from the profile at creation time.
type Application struct {
	ID               uuid.UUID        `json:"id" db:"id"`
	ApplicantID      uuid.UUID        `json:"applicantId" db:"applicant_id"`
	JobID            uuid.UUID        `json:"jobId" db:"job_id"`
	State            ApplicationState `json:"state" db:"state"`
	AppliedAt        *time.Time       `json:"appliedAt,omitempty" db:"applied_at"`
	DesiredStartDate *time.Time       `json:"desiredStartDate,omitempty" db:"desired_start_date"`
	Motivation       string           `json:"motivation" db:"motivation"`
	SpecialSkills    string           `json:"specialSkills" db:"special_skills"`
	Projects         string           `json:"projects" db:"projects"`
	PersonalData
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// Persisted reports whether the application was stored. Anonymous previews are not.
func (a *Application) Persisted() bool {
	return a.ID != uuid.Nil
}

// ApplicationEdits carries the fields an applicant may overwrite.
type ApplicationEdits struct {
	State            ApplicationState `json:"state"`
	DesiredStartDate *time.Time       `json:"desiredStartDate,omitempty"`
	Motivation       string           `json:"motivation"`
	SpecialSkills    string           `json:"specialSkills"`
	Projects         string           `json:"projects"`
	PersonalData
}

func (e ApplicationEdits) ApplyTo(app *Application) {
	app.DesiredStartDate = e.DesiredStartDate
	app.Motivation = e.Motivation
	app.SpecialSkills = e.SpecialSkills
	app.Projects = e.Projects
	app.PersonalData = e.PersonalData
}

// Changes reports whether ApplyTo would alter app.
func (e ApplicationEdits) Changes(app *Application) bool {
	return !sameTime(e.DesiredStartDate, app.DesiredStartDate) ||
		e.Motivation != app.Motivation ||
		e.SpecialSkills != app.SpecialSkills ||
		e.Projects != app.Projects ||
		!e.PersonalData.Equal(app.PersonalData)
}

// CustomFieldAnswer is an application's answer to one job-specific question.
type CustomFieldAnswer struct {
	ID            uuid.UUID `json:"id" db:"id"`
	ApplicationID uuid.UUID `json:"applicationId" db:"application_id"`
	CustomFieldID uuid.UUID `json:"customFieldId" db:"custom_field_id"`
	Answer        string    `json:"answer" db:"answer"`
	CreatedAt     time.Time `json:"createdAt" db:"created_at"`
}

type Job struct {
	ID                     uuid.UUID `json:"id" db:"id"`
	Title                  string    `json:"title" db:"title"`
	SupervisingProfessorID uuid.UUID `json:"supervisingProfessorId" db:"supervising_professor_id"`
}

// Actor is the caller of an operation. A zero UserID means anonymous.
type Actor struct {
	UserID uuid.UUID
	Admin  bool
}

func (a Actor) Authenticated() bool {
	return a.UserID != uuid.Nil
}

// Owns reports whether the actor may act on data belonging to userID.
func (a Actor) Owns(userID uuid.UUID) bool {
	return a.Admin || (a.Authenticated() && a.UserID == userID)
}
