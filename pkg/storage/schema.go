package storage

import (
	"fmt"
	"time"
)

// All persistent state lives in one wide-row table keyed by (PK, SK) with
// four global secondary indexes. Entity rows compose their keys from the
// builders below; no other package writes raw key strings.
const (
	// Generic key attribute names
	AttrPK = "PK"
	AttrSK = "SK"

	// Index key attribute names
	AttrAdminID      = "AdminID"
	AttrTargetEntity = "TargetEntity"
	AttrUserID       = "UserID"
	AttrAction       = "Action"
	AttrTimestamp    = "Timestamp"

	// Index names
	IndexByAdmin  = "byAdmin"
	IndexByTarget = "byTarget"
	IndexByUser   = "byUser"
	IndexByAction = "byAction"
)

// IndexKeys maps each index to its (partition, sort) attribute names.
var IndexKeys = map[string][2]string{
	IndexByAdmin:  {AttrAdminID, AttrTimestamp},
	IndexByTarget: {AttrTargetEntity, AttrTimestamp},
	IndexByUser:   {AttrUserID, AttrTimestamp},
	IndexByAction: {AttrAction, AttrTimestamp},
}

// Entity namespace prefixes.
const (
	PrefixUser         = "USER#"
	PrefixCourse       = "COURSE#"
	PrefixAudit        = "AUDIT#"
	PrefixSecurity     = "SEC#"
	PrefixTicket       = "TICKET#"
	PrefixAnnouncement = "ANNOUNCE#"
	PrefixTemplate     = "TEMPLATE#"
	PrefixNotification = "NOTIFY#"
	PrefixSetting      = "SETTING#"
	PrefixPolicy       = "POLICY#"
	PrefixBackup       = "BACKUP#"
	PrefixMaintenance  = "MAINT#"
)

// Fixed sort keys for singleton rows.
const (
	SKProfile = "PROFILE"
	SKMeta    = "META"
)

// Sort key prefixes for rows hanging off an owner partition.
const (
	SKPrefixEnroll = "ENROLL#"
	SKPrefixRating = "RATING#"
)

// TimestampFormat is the sort-key timestamp layout. RFC 3339 in UTC sorts
// lexicographically in time order.
const TimestampFormat = "2006-01-02T15:04:05.000000000Z"

// FormatTimestamp renders t for sort keys and index range bounds.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampFormat)
}

func UserKey(userID string) Key {
	return Key{PK: PrefixUser + userID, SK: SKProfile}
}

func CourseKey(courseID string) Key {
	return Key{PK: PrefixCourse + courseID, SK: SKMeta}
}

func EnrollmentKey(userID, courseID string) Key {
	return Key{PK: PrefixUser + userID, SK: SKPrefixEnroll + courseID}
}

func RatingKey(courseID, userID string) Key {
	return Key{PK: PrefixCourse + courseID, SK: SKPrefixRating + userID}
}

// AuditKey partitions audit records by UTC day; the sort key orders by
// timestamp with the action id as a uniqueness tie-break.
func AuditKey(ts time.Time, actionID string) Key {
	return Key{
		PK: PrefixAudit + ts.UTC().Format("2006-01-02"),
		SK: fmt.Sprintf("%s#%s", FormatTimestamp(ts), actionID),
	}
}

// AuditDayPK returns the partition key for one UTC day of audit records.
func AuditDayPK(day time.Time) string {
	return PrefixAudit + day.UTC().Format("2006-01-02")
}

// SecurityKey partitions security events by UTC hour.
func SecurityKey(ts time.Time, eventID string) Key {
	return Key{
		PK: PrefixSecurity + ts.UTC().Format("2006-01-02-15"),
		SK: fmt.Sprintf("%s#%s", FormatTimestamp(ts), eventID),
	}
}

// SecurityHourPK returns the partition key for one UTC hour of events.
func SecurityHourPK(hour time.Time) string {
	return PrefixSecurity + hour.UTC().Format("2006-01-02-15")
}

func TicketKey(ticketID string) Key {
	return Key{PK: PrefixTicket + ticketID, SK: SKMeta}
}

func AnnouncementKey(id string) Key {
	return Key{PK: PrefixAnnouncement + id, SK: SKMeta}
}

func TemplateKey(id string) Key {
	return Key{PK: PrefixTemplate + id, SK: SKMeta}
}

func NotificationKey(id string) Key {
	return Key{PK: PrefixNotification + id, SK: SKMeta}
}

func SettingKey(key string) Key {
	return Key{PK: PrefixSetting + key, SK: SKMeta}
}

func PolicyKey(id string) Key {
	return Key{PK: PrefixPolicy + id, SK: SKMeta}
}

func BackupKey(id string) Key {
	return Key{PK: PrefixBackup + id, SK: SKMeta}
}

func MaintenanceKey(id string) Key {
	return Key{PK: PrefixMaintenance + id, SK: SKMeta}
}
