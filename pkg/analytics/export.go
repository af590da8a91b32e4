package analytics

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/learnhub/admin-plane/pkg/errs"
	"github.com/learnhub/admin-plane/pkg/model"
)

// Export formats and data types are closed sets; anything else fails
// with BAD_FORMAT before any data is read.
const (
	FormatJSON = "json"
	FormatCSV  = "csv"

	DataPlatform = "platform"
	DataUsers    = "users"
	DataRevenue  = "revenue"
	DataAudit    = "audit"
)

func badGroupBy(groupBy string) error {
	return errs.New(errs.KindBadFormat,
		fmt.Sprintf("Unsupported groupBy %q. Supported values: day, week, month", groupBy))
}

// Export renders one data type in the requested format and returns the
// bytes with their content type.
func (e *Engine) Export(ctx context.Context, format, dataType string, from, to time.Time) ([]byte, string, error) {
	if format != FormatJSON && format != FormatCSV {
		return nil, "", errs.New(errs.KindBadFormat, "Supported formats: json, csv")
	}
	if dataType != DataPlatform && dataType != DataUsers && dataType != DataRevenue && dataType != DataAudit {
		return nil, "", errs.New(errs.KindBadFormat, "Supported data types: platform, users, revenue, audit")
	}

	switch dataType {
	case DataPlatform:
		metrics, err := e.PlatformMetrics(ctx)
		if err != nil {
			return nil, "", err
		}
		return render(format, metrics, platformCSV(metrics))

	case DataUsers:
		var users []model.User
		err := e.users.ForEach(ctx, func(u model.User) error {
			users = append(users, u)
			return nil
		})
		if err != nil {
			return nil, "", err
		}
		return render(format, users, usersCSV(users))

	case DataRevenue:
		report, err := e.RevenueAnalytics(ctx, from, to)
		if err != nil {
			return nil, "", err
		}
		return render(format, report, revenueCSV(report))

	default: // DataAudit
		var records []model.AuditRecord
		err := e.audit.ForEachInRange(ctx, from, to, func(rec model.AuditRecord) error {
			records = append(records, rec)
			return nil
		})
		if err != nil {
			return nil, "", err
		}
		return render(format, records, auditCSV(records))
	}
}

func render(format string, jsonPayload any, rows [][]string) ([]byte, string, error) {
	if format == FormatJSON {
		data, err := json.MarshalIndent(jsonPayload, "", "  ")
		if err != nil {
			return nil, "", errs.Wrap(errs.KindStoreFailed, "failed to encode export", err)
		}
		return data, "application/json", nil
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.WriteAll(rows); err != nil {
		return nil, "", errs.Wrap(errs.KindStoreFailed, "failed to encode export", err)
	}
	return buf.Bytes(), "text/csv", nil
}

// Column orders below are stable per data type; consumers parse by
// position.

func platformCSV(m *PlatformMetrics) [][]string {
	return [][]string{
		{"totalUsers", "totalCourses", "totalEnrollments", "totalRevenue"},
		{
			strconv.Itoa(m.TotalUsers),
			strconv.Itoa(m.TotalCourses),
			strconv.Itoa(m.TotalEnrollments),
			strconv.FormatFloat(m.TotalRevenue, 'f', 2, 64),
		},
	}
}

func usersCSV(users []model.User) [][]string {
	rows := [][]string{{"userId", "name", "email", "role", "accountStatus", "createdAt"}}
	for _, u := range users {
		rows = append(rows, []string{
			u.UserID,
			u.Name,
			u.Email,
			string(u.Role),
			string(u.AccountStatus),
			u.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	return rows
}

func revenueCSV(report *RevenueAnalytics) [][]string {
	rows := [][]string{{"period", "revenue", "enrollments"}}
	for _, p := range report.ByPeriod {
		rows = append(rows, []string{
			p.Period,
			strconv.FormatFloat(p.Revenue, 'f', 2, 64),
			strconv.Itoa(p.Enrollments),
		})
	}
	return rows
}

func auditCSV(records []model.AuditRecord) [][]string {
	rows := [][]string{{"actionId", "adminId", "action", "targetEntity", "timestamp"}}
	for _, rec := range records {
		rows = append(rows, []string{
			rec.ActionID,
			rec.AdminID,
			string(rec.Action),
			rec.TargetEntity,
			rec.Timestamp.UTC().Format(time.RFC3339),
		})
	}
	return rows
}
