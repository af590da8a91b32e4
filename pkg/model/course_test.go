package model

import (
	"strings"
	"testing"
)

func TestCourseStatus_ApplyModeration(t *testing.T) {
	tests := []struct {
		name    string
		from    CourseStatus
		action  ModerationAction
		want    CourseStatus
		wantErr bool
	}{
		{"pending approve", CoursePending, ModerationApprove, CourseApproved, false},
		{"pending reject", CoursePending, ModerationReject, CourseRejected, false},
		{"approved flag", CourseApproved, ModerationFlag, CourseFlagged, false},
		{"flagged approve", CourseFlagged, ModerationApprove, CourseApproved, false},
		{"flagged reject", CourseFlagged, ModerationReject, CourseRejected, false},
		{"pending flag", CoursePending, ModerationFlag, "", true},
		{"draft approve", CourseDraft, ModerationApprove, "", true},
		{"draft reject", CourseDraft, ModerationReject, "", true},
		{"approved approve", CourseApproved, ModerationApprove, "", true},
		{"rejected anything", CourseRejected, ModerationApprove, "", true},
		{"rejected flag", CourseRejected, ModerationFlag, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.from.ApplyModeration(tt.action)
			if tt.wantErr {
				if err != ErrInvalidTransition {
					t.Errorf("expected ErrInvalidTransition, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("ApplyModeration = %s, want %s", got, tt.want)
			}
		})
	}
}

// Any sequence of valid transitions ends in the state the table predicts.
func TestCourseStatus_TransitionSequence(t *testing.T) {
	status := CoursePending
	sequence := []struct {
		action ModerationAction
		want   CourseStatus
	}{
		{ModerationApprove, CourseApproved},
		{ModerationFlag, CourseFlagged},
		{ModerationApprove, CourseApproved},
		{ModerationFlag, CourseFlagged},
		{ModerationReject, CourseRejected},
	}

	for i, step := range sequence {
		next, err := status.ApplyModeration(step.action)
		if err != nil {
			t.Fatalf("step %d: unexpected error: %v", i, err)
		}
		if next != step.want {
			t.Fatalf("step %d: got %s, want %s", i, next, step.want)
		}
		status = next
	}
}

func TestValidateReason(t *testing.T) {
	tests := []struct {
		name    string
		action  ModerationAction
		reason  string
		wantErr error
	}{
		{"approve without reason", ModerationApprove, "", nil},
		{"approve with reason", ModerationApprove, "looks good", nil},
		{"reject without reason", ModerationReject, "", ErrReasonRequired},
		{"flag without reason", ModerationFlag, "", ErrReasonRequired},
		{"reject with reason", ModerationReject, "plagiarized content", nil},
		{"reason too long", ModerationReject, strings.Repeat("a", MaxReasonLength+1), ErrReasonTooLong},
		{"reason at limit", ModerationReject, strings.Repeat("a", MaxReasonLength), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := ValidateReason(tt.action, tt.reason); err != tt.wantErr {
				t.Errorf("ValidateReason() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestCourse_Validate(t *testing.T) {
	tests := []struct {
		name    string
		course  Course
		wantErr error
	}{
		{"valid", Course{CourseID: "c-1", Status: CourseDraft}, nil},
		{"empty id", Course{Status: CourseDraft}, ErrEmptyCourseID},
		{"bad status", Course{CourseID: "c-1", Status: "published"}, ErrInvalidCourseSts},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.course.Validate(); err != tt.wantErr {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
