package repo

import (
	"context"

	"github.com/learnhub/admin-plane/pkg/model"
	"github.com/learnhub/admin-plane/pkg/storage"
)

// Courses is the typed repository for course metadata rows.
type Courses struct {
	store storage.Store
}

// NewCourses creates a course repository over the store.
func NewCourses(store storage.Store) *Courses {
	return &Courses{store: store}
}

// Get loads one course.
func (r *Courses) Get(ctx context.Context, courseID string) (*model.Course, error) {
	var course model.Course
	if err := r.store.Get(ctx, storage.CourseKey(courseID), &course); err != nil {
		return nil, mapStoreErr(err, "course not found")
	}
	return &course, nil
}

// Put writes a course unconditionally.
func (r *Courses) Put(ctx context.Context, course *model.Course) error {
	return mapStoreErr(r.store.Put(ctx, storage.CourseKey(course.CourseID), course, nil), "")
}

// StatusGuardOp returns the transactional write op for a status-guarded
// course update; the condition serializes concurrent moderation.
func (r *Courses) StatusGuardOp(course *model.Course, expected model.CourseStatus) storage.WriteOp {
	return storage.WriteOp{
		Key:    storage.CourseKey(course.CourseID),
		Entity: course,
		Cond:   &storage.Condition{Kind: storage.CondAttrEquals, Attr: "Status", Value: string(expected)},
	}
}

// ListCoursesInput filters and pages a course listing.
type ListCoursesInput struct {
	Status model.CourseStatus
	Limit  int32
	Token  string
}

// List returns one page of courses matching the filter.
func (r *Courses) List(ctx context.Context, in ListCoursesInput) ([]model.Course, string, error) {
	startKey, err := DecodeToken(in.Token)
	if err != nil {
		return nil, "", err
	}
	limit := clampLimit(in.Limit)

	var courses []model.Course
	for {
		// Remaining quota per round; see Users.List.
		out, err := r.store.Scan(ctx, storage.ScanInput{
			PKPrefix: storage.PrefixCourse,
			SKEquals: storage.SKMeta,
			Page:     storage.Page{Limit: limit - int32(len(courses)), StartKey: startKey},
		})
		if err != nil {
			return nil, "", mapStoreErr(err, "")
		}

		page, err := unmarshalPage[model.Course](out.Items)
		if err != nil {
			return nil, "", err
		}
		for _, course := range page {
			if in.Status != "" && course.Status != in.Status {
				continue
			}
			courses = append(courses, course)
		}

		startKey = out.NextKey
		if len(courses) >= int(limit) || len(startKey) == 0 {
			break
		}
	}
	return courses, EncodeToken(startKey), nil
}

// ForEach visits every course. Used by the aggregation engine.
func (r *Courses) ForEach(ctx context.Context, fn func(model.Course) error) error {
	var startKey map[string]string
	for {
		out, err := r.store.Scan(ctx, storage.ScanInput{
			PKPrefix: storage.PrefixCourse,
			SKEquals: storage.SKMeta,
			Page:     storage.Page{Limit: MaxPageSize, StartKey: startKey},
		})
		if err != nil {
			return mapStoreErr(err, "")
		}
		page, err := unmarshalPage[model.Course](out.Items)
		if err != nil {
			return err
		}
		for _, course := range page {
			if err := fn(course); err != nil {
				return err
			}
		}
		if len(out.NextKey) == 0 {
			return nil
		}
		startKey = out.NextKey
	}
}
