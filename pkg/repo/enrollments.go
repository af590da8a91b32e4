package repo

import (
	"context"

	"github.com/learnhub/admin-plane/pkg/model"
	"github.com/learnhub/admin-plane/pkg/storage"
)

// Enrollments is the typed repository for enrollment rows.
type Enrollments struct {
	store storage.Store
}

// NewEnrollments creates an enrollment repository over the store.
func NewEnrollments(store storage.Store) *Enrollments {
	return &Enrollments{store: store}
}

// Put writes an enrollment unconditionally.
func (r *Enrollments) Put(ctx context.Context, e *model.Enrollment) error {
	return mapStoreErr(r.store.Put(ctx, storage.EnrollmentKey(e.UserID, e.CourseID), e, nil), "")
}

// ListByUser returns every enrollment held by one user.
func (r *Enrollments) ListByUser(ctx context.Context, userID string) ([]model.Enrollment, error) {
	out, err := r.store.Query(ctx, storage.QueryInput{
		PK:       storage.PrefixUser + userID,
		SKPrefix: storage.SKPrefixEnroll,
		Page:     storage.Page{Limit: MaxPageSize, Forward: true},
	})
	if err != nil {
		return nil, mapStoreErr(err, "")
	}
	return unmarshalPage[model.Enrollment](out.Items)
}

// ForEach visits every enrollment on the platform. Used by the aggregation
// engine for enrollment and revenue series.
func (r *Enrollments) ForEach(ctx context.Context, fn func(model.Enrollment) error) error {
	var startKey map[string]string
	for {
		out, err := r.store.Scan(ctx, storage.ScanInput{
			PKPrefix: storage.PrefixUser,
			SKPrefix: storage.SKPrefixEnroll,
			Page:     storage.Page{Limit: MaxPageSize, StartKey: startKey},
		})
		if err != nil {
			return mapStoreErr(err, "")
		}
		page, err := unmarshalPage[model.Enrollment](out.Items)
		if err != nil {
			return err
		}
		for _, e := range page {
			if err := fn(e); err != nil {
				return err
			}
		}
		if len(out.NextKey) == 0 {
			return nil
		}
		startKey = out.NextKey
	}
}

// Ratings is the typed repository for rating rows.
type Ratings struct {
	store storage.Store
}

// NewRatings creates a rating repository over the store.
func NewRatings(store storage.Store) *Ratings {
	return &Ratings{store: store}
}

// Put upserts one user's rating of a course and recomputes the course
// aggregates in a single transaction.
func (r *Ratings) Put(ctx context.Context, rating *model.Rating, course *model.Course, prevStars int) error {
	total := course.AverageRating * float64(course.RatingCount)
	if prevStars > 0 {
		total -= float64(prevStars)
	} else {
		course.RatingCount++
	}
	total += float64(rating.Stars)
	course.AverageRating = total / float64(course.RatingCount)

	err := r.store.TransactWrite(ctx, []storage.WriteOp{
		{Key: storage.RatingKey(rating.CourseID, rating.UserID), Entity: rating},
		{Key: storage.CourseKey(course.CourseID), Entity: course},
	})
	return mapStoreErr(err, "")
}

// ListByCourse returns every rating on one course.
func (r *Ratings) ListByCourse(ctx context.Context, courseID string) ([]model.Rating, error) {
	out, err := r.store.Query(ctx, storage.QueryInput{
		PK:       storage.PrefixCourse + courseID,
		SKPrefix: storage.SKPrefixRating,
		Page:     storage.Page{Limit: MaxPageSize, Forward: true},
	})
	if err != nil {
		return nil, mapStoreErr(err, "")
	}
	return unmarshalPage[model.Rating](out.Items)
}
