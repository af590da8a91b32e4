package model

import (
	"errors"
	"time"
)

// Enrollment records one user's membership in one course. Progress is the
// set of completed lecture ids.
type Enrollment struct {
	UserID      string     `json:"userId" dynamodbav:"UserID"`
	CourseID    string     `json:"courseId" dynamodbav:"CourseID"`
	EnrolledAt  time.Time  `json:"enrolledAt" dynamodbav:"EnrolledAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty" dynamodbav:"CompletedAt,omitempty"`
	Progress    []string   `json:"progress" dynamodbav:"Progress,stringset,omitempty"`
	PricePaid   float64    `json:"pricePaid" dynamodbav:"PricePaid"`
}

// Rating review bounds.
const MaxReviewLength = 1000

var (
	ErrInvalidStars   = errors.New("stars must be between 1 and 5")
	ErrReviewTooLong  = errors.New("review exceeds maximum length")
	ErrEmptyRatingKey = errors.New("rating requires both user id and course id")
)

// Rating is one user's rating of one course. Writing a rating recomputes
// the course's AverageRating and RatingCount.
type Rating struct {
	CourseID  string    `json:"courseId" dynamodbav:"CourseID"`
	UserID    string    `json:"userId" dynamodbav:"UserID"`
	Stars     int       `json:"stars" dynamodbav:"Stars"`
	Review    string    `json:"review,omitempty" dynamodbav:"Review,omitempty"`
	UpdatedAt time.Time `json:"updatedAt" dynamodbav:"UpdatedAt"`
}

// Validate checks the rating invariants.
func (r *Rating) Validate() error {
	if r.CourseID == "" || r.UserID == "" {
		return ErrEmptyRatingKey
	}
	if r.Stars < 1 || r.Stars > 5 {
		return ErrInvalidStars
	}
	if len(r.Review) > MaxReviewLength {
		return ErrReviewTooLong
	}
	return nil
}
