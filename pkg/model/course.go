package model

import (
	"errors"
	"time"
)

// CourseStatus is the closed course moderation status set.
type CourseStatus string

const (
	CourseDraft    CourseStatus = "draft"
	CoursePending  CourseStatus = "pending"
	CourseApproved CourseStatus = "approved"
	CourseRejected CourseStatus = "rejected"
	CourseFlagged  CourseStatus = "flagged"
)

// Valid reports whether the status belongs to the closed set.
func (s CourseStatus) Valid() bool {
	switch s {
	case CourseDraft, CoursePending, CourseApproved, CourseRejected, CourseFlagged:
		return true
	}
	return false
}

// ModerationAction is an admin-initiated course transition.
type ModerationAction string

const (
	ModerationApprove ModerationAction = "approve"
	ModerationReject  ModerationAction = "reject"
	ModerationFlag    ModerationAction = "flag"
)

// courseTransitions encodes the moderation state machine:
//
//	draft ──submit──▶ pending ──approve──▶ approved
//	                         ──reject───▶ rejected
//	                approved ──flag─────▶ flagged
//	                flagged  ──approve──▶ approved
//	                flagged  ──reject───▶ rejected
//
// submit is an instructor action outside the admin plane; the admin plane
// only ever applies approve, reject and flag.
var courseTransitions = map[CourseStatus]map[ModerationAction]CourseStatus{
	CoursePending: {
		ModerationApprove: CourseApproved,
		ModerationReject:  CourseRejected,
	},
	CourseApproved: {
		ModerationFlag: CourseFlagged,
	},
	CourseFlagged: {
		ModerationApprove: CourseApproved,
		ModerationReject:  CourseRejected,
	},
}

var ErrInvalidTransition = errors.New("moderation action is not valid for the current course status")

// ApplyModeration returns the status resulting from applying action to the
// current status, or ErrInvalidTransition.
func (s CourseStatus) ApplyModeration(action ModerationAction) (CourseStatus, error) {
	next, ok := courseTransitions[s][action]
	if !ok {
		return "", ErrInvalidTransition
	}
	return next, nil
}

// Reason length bounds for moderation transitions.
const (
	MinReasonLength = 1
	MaxReasonLength = 1000
)

var (
	ErrEmptyCourseID    = errors.New("course id cannot be empty")
	ErrReasonRequired   = errors.New("reason is required")
	ErrReasonTooLong    = errors.New("reason exceeds maximum length")
	ErrInvalidCourseSts = errors.New("course status is not one of draft, pending, approved, rejected, flagged")
)

// ValidateReason enforces the 1..1000 character bound. A reason is required
// for every non-approve transition; approve may omit it.
func ValidateReason(action ModerationAction, reason string) error {
	if reason == "" {
		if action == ModerationApprove {
			return nil
		}
		return ErrReasonRequired
	}
	if len(reason) > MaxReasonLength {
		return ErrReasonTooLong
	}
	return nil
}

// Course is the metadata row for one course.
type Course struct {
	CourseID      string       `json:"courseId" dynamodbav:"CourseID"`
	Title         string       `json:"title" dynamodbav:"Title"`
	InstructorID  string       `json:"instructorId" dynamodbav:"InstructorID"`
	Status        CourseStatus `json:"status" dynamodbav:"Status"`
	Price         float64      `json:"price" dynamodbav:"Price"`
	CategoryID    string       `json:"categoryId" dynamodbav:"CategoryID"`
	AverageRating float64      `json:"averageRating" dynamodbav:"AverageRating"`
	RatingCount   int          `json:"ratingCount" dynamodbav:"RatingCount"`
	CreatedAt     time.Time    `json:"createdAt" dynamodbav:"CreatedAt"`
	UpdatedAt     time.Time    `json:"updatedAt" dynamodbav:"UpdatedAt"`
}

// Validate checks the course invariants.
func (c *Course) Validate() error {
	if c.CourseID == "" {
		return ErrEmptyCourseID
	}
	if !c.Status.Valid() {
		return ErrInvalidCourseSts
	}
	return nil
}
