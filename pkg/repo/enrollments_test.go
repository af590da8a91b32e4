package repo

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/learnhub/admin-plane/pkg/model"
	"github.com/learnhub/admin-plane/pkg/storage"
)

func TestEnrollments_ListByUser(t *testing.T) {
	store := storage.NewMemoryStore()
	enrollments := NewEnrollments(store)
	ctx := context.Background()
	now := time.Now().UTC()

	for _, e := range []model.Enrollment{
		{UserID: "u-1", CourseID: "c-1", EnrolledAt: now, PricePaid: 50},
		{UserID: "u-1", CourseID: "c-2", EnrolledAt: now, PricePaid: 30},
		{UserID: "u-2", CourseID: "c-1", EnrolledAt: now, PricePaid: 50},
	} {
		e := e
		if err := enrollments.Put(ctx, &e); err != nil {
			t.Fatalf("Put() error = %v", err)
		}
	}

	got, err := enrollments.ListByUser(ctx, "u-1")
	if err != nil {
		t.Fatalf("ListByUser() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d enrollments, want 2", len(got))
	}
	for _, e := range got {
		if e.UserID != "u-1" {
			t.Errorf("enrollment for %s leaked into u-1's list", e.UserID)
		}
	}

	var all int
	if err := enrollments.ForEach(ctx, func(model.Enrollment) error {
		all++
		return nil
	}); err != nil {
		t.Fatalf("ForEach() error = %v", err)
	}
	if all != 3 {
		t.Errorf("ForEach visited %d enrollments, want 3", all)
	}
}

func TestRatings_AggregatesOnCourse(t *testing.T) {
	store := storage.NewMemoryStore()
	courses := NewCourses(store)
	ratings := NewRatings(store)
	ctx := context.Background()

	course := &model.Course{CourseID: "c-1", Title: "Go", Status: model.CourseApproved}
	if err := courses.Put(ctx, course); err != nil {
		t.Fatalf("seed course: %v", err)
	}

	// First rating establishes the aggregate.
	if err := ratings.Put(ctx, &model.Rating{CourseID: "c-1", UserID: "u-1", Stars: 4}, course, 0); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if course.RatingCount != 1 || course.AverageRating != 4 {
		t.Fatalf("after first rating: count=%d avg=%v", course.RatingCount, course.AverageRating)
	}

	// A second user shifts the average.
	if err := ratings.Put(ctx, &model.Rating{CourseID: "c-1", UserID: "u-2", Stars: 2}, course, 0); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if course.RatingCount != 2 || course.AverageRating != 3 {
		t.Fatalf("after second rating: count=%d avg=%v", course.RatingCount, course.AverageRating)
	}

	// Revising an existing rating replaces, not adds.
	if err := ratings.Put(ctx, &model.Rating{CourseID: "c-1", UserID: "u-2", Stars: 5}, course, 2); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if course.RatingCount != 2 || math.Abs(course.AverageRating-4.5) > 1e-9 {
		t.Fatalf("after revision: count=%d avg=%v", course.RatingCount, course.AverageRating)
	}

	stored, err := courses.Get(ctx, "c-1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if stored.RatingCount != 2 || math.Abs(stored.AverageRating-4.5) > 1e-9 {
		t.Errorf("stored aggregate: count=%d avg=%v", stored.RatingCount, stored.AverageRating)
	}

	list, err := ratings.ListByCourse(ctx, "c-1")
	if err != nil {
		t.Fatalf("ListByCourse() error = %v", err)
	}
	if len(list) != 2 {
		t.Errorf("got %d ratings, want 2", len(list))
	}
}
