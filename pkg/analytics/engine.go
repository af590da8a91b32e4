// Package analytics computes platform-wide aggregates by scanning entity
// namespaces with pagination and binning in UTC. Nothing here mutates
// state.
package analytics

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/learnhub/admin-plane/pkg/model"
	"github.com/learnhub/admin-plane/pkg/repo"
)

// changeWindow is the window PlatformMetrics compares against the
// immediately preceding window of the same length.
const changeWindow = 30 * 24 * time.Hour

// PlatformMetrics is the dashboard headline aggregate.
type PlatformMetrics struct {
	TotalUsers        int                        `json:"totalUsers"`
	TotalCourses      int                        `json:"totalCourses"`
	TotalEnrollments  int                        `json:"totalEnrollments"`
	TotalRevenue      float64                    `json:"totalRevenue"`
	UsersByRole       map[model.Role]int         `json:"usersByRole"`
	CoursesByStatus   map[model.CourseStatus]int `json:"coursesByStatus"`
	PercentageChanges map[string]float64         `json:"percentageChanges"`
}

// GrowthBucket is one point of a growth series.
type GrowthBucket struct {
	Bucket string `json:"bucket"`
	Count  int    `json:"count"`
}

// PeriodRevenue is revenue binned into one period.
type PeriodRevenue struct {
	Period      string  `json:"period"`
	Revenue     float64 `json:"revenue"`
	Enrollments int     `json:"enrollments"`
}

// CourseRevenue is one course's contribution to revenue.
type CourseRevenue struct {
	CourseID    string  `json:"courseId"`
	Title       string  `json:"title"`
	Revenue     float64 `json:"revenue"`
	Enrollments int     `json:"enrollments"`
}

// RevenueAnalytics is the revenue report for a range.
type RevenueAnalytics struct {
	TotalRevenue     float64         `json:"totalRevenue"`
	TotalEnrollments int             `json:"totalEnrollments"`
	ByPeriod         []PeriodRevenue `json:"byPeriod"`
	TopCourses       []CourseRevenue `json:"topCourses"`
}

// AuditStatistics summarises the audit trail for a range.
type AuditStatistics struct {
	TotalActions   int                       `json:"totalActions"`
	ActionsByType  map[model.AuditAction]int `json:"actionsByType"`
	ActionsByAdmin map[string]int            `json:"actionsByAdmin"`
}

// Overview is the dashboard landing payload.
type Overview struct {
	Metrics        *PlatformMetrics    `json:"metrics"`
	RecentActivity []model.AuditRecord `json:"recentActivity"`
	GeneratedAt    time.Time           `json:"generatedAt"`
}

// Engine computes aggregates over the typed repositories.
type Engine struct {
	users       *repo.Users
	courses     *repo.Courses
	enrollments *repo.Enrollments
	audit       *repo.Audit
	logger      *slog.Logger
	now         func() time.Time
}

// NewEngine creates an aggregation engine.
func NewEngine(users *repo.Users, courses *repo.Courses, enrollments *repo.Enrollments, audit *repo.Audit, logger *slog.Logger) *Engine {
	return &Engine{
		users:       users,
		courses:     courses,
		enrollments: enrollments,
		audit:       audit,
		logger:      logger,
		now:         time.Now,
	}
}

// PlatformMetrics scans the user, course and enrollment namespaces once
// each and derives totals, per-group counts and window-over-window
// percentage changes.
func (e *Engine) PlatformMetrics(ctx context.Context) (*PlatformMetrics, error) {
	now := e.now().UTC()
	currentStart := now.Add(-changeWindow)
	previousStart := currentStart.Add(-changeWindow)

	metrics := &PlatformMetrics{
		UsersByRole:       make(map[model.Role]int),
		CoursesByStatus:   make(map[model.CourseStatus]int),
		PercentageChanges: make(map[string]float64),
	}
	var currentUsers, previousUsers int
	err := e.users.ForEach(ctx, func(u model.User) error {
		metrics.TotalUsers++
		metrics.UsersByRole[u.Role]++
		switch {
		case u.CreatedAt.After(currentStart):
			currentUsers++
		case u.CreatedAt.After(previousStart):
			previousUsers++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	var currentCourses, previousCourses int
	err = e.courses.ForEach(ctx, func(c model.Course) error {
		metrics.TotalCourses++
		metrics.CoursesByStatus[c.Status]++
		switch {
		case c.CreatedAt.After(currentStart):
			currentCourses++
		case c.CreatedAt.After(previousStart):
			previousCourses++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	var currentEnrollments, previousEnrollments int
	var currentRevenue, previousRevenue float64
	err = e.enrollments.ForEach(ctx, func(en model.Enrollment) error {
		metrics.TotalEnrollments++
		metrics.TotalRevenue += en.PricePaid
		switch {
		case en.EnrolledAt.After(currentStart):
			currentEnrollments++
			currentRevenue += en.PricePaid
		case en.EnrolledAt.After(previousStart):
			previousEnrollments++
			previousRevenue += en.PricePaid
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.PercentageChanges["users"] = percentageChange(float64(currentUsers), float64(previousUsers))
	metrics.PercentageChanges["courses"] = percentageChange(float64(currentCourses), float64(previousCourses))
	metrics.PercentageChanges["enrollments"] = percentageChange(float64(currentEnrollments), float64(previousEnrollments))
	metrics.PercentageChanges["revenue"] = percentageChange(currentRevenue, previousRevenue)
	return metrics, nil
}

// percentageChange is (current - previous) / max(previous, 1).
func percentageChange(current, previous float64) float64 {
	denom := previous
	if denom < 1 {
		denom = 1
	}
	return (current - previous) / denom
}

// UserGrowth bins user signups in the range into day, week or month
// buckets, ascending.
func (e *Engine) UserGrowth(ctx context.Context, from, to time.Time, groupBy string) ([]GrowthBucket, error) {
	bucketOf, err := bucketFunc(groupBy)
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int)
	err = e.users.ForEach(ctx, func(u model.User) error {
		at := u.CreatedAt.UTC()
		if at.Before(from) || at.After(to) {
			return nil
		}
		counts[bucketOf(at)]++
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sortedBuckets(counts), nil
}

// RevenueAnalytics bins enrollment revenue in the range by month and
// ranks the five highest-earning courses.
func (e *Engine) RevenueAnalytics(ctx context.Context, from, to time.Time) (*RevenueAnalytics, error) {
	report := &RevenueAnalytics{
		ByPeriod:   make([]PeriodRevenue, 0),
		TopCourses: make([]CourseRevenue, 0),
	}

	periods := make(map[string]*PeriodRevenue)
	perCourse := make(map[string]*CourseRevenue)
	err := e.enrollments.ForEach(ctx, func(en model.Enrollment) error {
		at := en.EnrolledAt.UTC()
		if at.Before(from) || at.After(to) {
			return nil
		}
		report.TotalRevenue += en.PricePaid
		report.TotalEnrollments++

		period := at.Format("2006-01")
		p := periods[period]
		if p == nil {
			p = &PeriodRevenue{Period: period}
			periods[period] = p
		}
		p.Revenue += en.PricePaid
		p.Enrollments++

		c := perCourse[en.CourseID]
		if c == nil {
			c = &CourseRevenue{CourseID: en.CourseID}
			perCourse[en.CourseID] = c
		}
		c.Revenue += en.PricePaid
		c.Enrollments++
		return nil
	})
	if err != nil {
		return nil, err
	}

	titles := make(map[string]string)
	err = e.courses.ForEach(ctx, func(c model.Course) error {
		titles[c.CourseID] = c.Title
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, p := range periods {
		report.ByPeriod = append(report.ByPeriod, *p)
	}
	sort.Slice(report.ByPeriod, func(i, j int) bool {
		return report.ByPeriod[i].Period < report.ByPeriod[j].Period
	})

	for _, c := range perCourse {
		c.Title = titles[c.CourseID]
		report.TopCourses = append(report.TopCourses, *c)
	}
	sort.Slice(report.TopCourses, func(i, j int) bool {
		if report.TopCourses[i].Revenue != report.TopCourses[j].Revenue {
			return report.TopCourses[i].Revenue > report.TopCourses[j].Revenue
		}
		return report.TopCourses[i].CourseID < report.TopCourses[j].CourseID
	})
	if len(report.TopCourses) > 5 {
		report.TopCourses = report.TopCourses[:5]
	}
	return report, nil
}

// AuditStatistics counts audit records in the range by action and admin.
func (e *Engine) AuditStatistics(ctx context.Context, from, to time.Time) (*AuditStatistics, error) {
	stats := &AuditStatistics{
		ActionsByType:  make(map[model.AuditAction]int),
		ActionsByAdmin: make(map[string]int),
	}
	err := e.audit.ForEachInRange(ctx, from, to, func(rec model.AuditRecord) error {
		stats.TotalActions++
		stats.ActionsByType[rec.Action]++
		stats.ActionsByAdmin[rec.AdminID]++
		return nil
	})
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// Overview combines the headline metrics with the most recent audit
// activity for the dashboard landing view.
func (e *Engine) Overview(ctx context.Context) (*Overview, error) {
	metrics, err := e.PlatformMetrics(ctx)
	if err != nil {
		return nil, err
	}
	activity, err := e.audit.Recent(ctx, 20)
	if err != nil {
		return nil, err
	}
	return &Overview{
		Metrics:        metrics,
		RecentActivity: activity,
		GeneratedAt:    e.now().UTC(),
	}, nil
}

func bucketFunc(groupBy string) (func(time.Time) string, error) {
	switch groupBy {
	case "day":
		return func(t time.Time) string { return t.Format("2006-01-02") }, nil
	case "week":
		return func(t time.Time) string {
			year, week := t.ISOWeek()
			return fmt.Sprintf("%d-W%02d", year, week)
		}, nil
	case "month":
		return func(t time.Time) string { return t.Format("2006-01") }, nil
	}
	return nil, badGroupBy(groupBy)
}

func sortedBuckets(counts map[string]int) []GrowthBucket {
	buckets := make([]GrowthBucket, 0, len(counts))
	for bucket, count := range counts {
		buckets = append(buckets, GrowthBucket{Bucket: bucket, Count: count})
	}
	sort.Slice(buckets, func(i, j int) bool { return buckets[i].Bucket < buckets[j].Bucket })
	return buckets
}
