package model

import "time"

// SecurityEventType is the closed set of authentication-plane events.
type SecurityEventType string

const (
	EventLoginSuccess SecurityEventType = "LOGIN_SUCCESS"
	EventLoginFail    SecurityEventType = "LOGIN_FAIL"
	EventSuspicious   SecurityEventType = "SUSPICIOUS"
	EventMFAChallenge SecurityEventType = "MFA_CHALLENGE"
	EventLockout      SecurityEventType = "LOCKOUT"
)

// Valid reports whether the event type belongs to the closed set.
func (t SecurityEventType) Valid() bool {
	switch t {
	case EventLoginSuccess, EventLoginFail, EventSuspicious, EventMFAChallenge, EventLockout:
		return true
	}
	return false
}

// SuspicionType classifies a SUSPICIOUS event.
type SuspicionType string

const (
	SuspicionFailedLogins SuspicionType = "MULTIPLE_FAILED_LOGINS"
	SuspicionIPScan       SuspicionType = "IP_SCAN"
	SuspicionNewLocation  SuspicionType = "NEW_LOCATION"
)

// SecurityEvent is one append-only authentication-plane record.
type SecurityEvent struct {
	EventID      string            `json:"eventId" dynamodbav:"EventID"`
	EventType    SecurityEventType `json:"eventType" dynamodbav:"EventType"`
	Subtype      SuspicionType     `json:"subtype,omitempty" dynamodbav:"Subtype,omitempty"`
	UserID       string            `json:"userId,omitempty" dynamodbav:"UserID,omitempty"`
	IP           string            `json:"ip" dynamodbav:"IP"`
	Details      map[string]any    `json:"details,omitempty" dynamodbav:"Details,omitempty"`
	Timestamp    time.Time         `json:"timestamp" dynamodbav:"Timestamp"`
	Acknowledged bool              `json:"acknowledged" dynamodbav:"Acknowledged"`
	AckedBy      string            `json:"ackedBy,omitempty" dynamodbav:"AckedBy,omitempty"`
}

// SecurityPolicy is the admin-tunable security policy document.
type SecurityPolicy struct {
	PolicyID           string        `json:"policyId" dynamodbav:"PolicyID"`
	MaxFailedLogins    int           `json:"maxFailedLogins" dynamodbav:"MaxFailedLogins"`
	MaxIPFailures      int           `json:"maxIpFailures" dynamodbav:"MaxIPFailures"`
	FailureWindow      time.Duration `json:"failureWindow" dynamodbav:"FailureWindow"`
	LockoutDuration    time.Duration `json:"lockoutDuration" dynamodbav:"LockoutDuration"`
	MFARequired        bool          `json:"mfaRequired" dynamodbav:"MFARequired"`
	PasswordMinLength  int           `json:"passwordMinLength" dynamodbav:"PasswordMinLength"`
	SessionIdleTimeout time.Duration `json:"sessionIdleTimeout" dynamodbav:"SessionIdleTimeout"`
	UpdatedAt          time.Time     `json:"updatedAt" dynamodbav:"UpdatedAt"`
	UpdatedBy          string        `json:"updatedBy,omitempty" dynamodbav:"UpdatedBy,omitempty"`
	Version            int           `json:"version" dynamodbav:"Version"`
}

// DefaultSecurityPolicy returns the policy applied before any admin tuning.
func DefaultSecurityPolicy() SecurityPolicy {
	return SecurityPolicy{
		PolicyID:           "default",
		MaxFailedLogins:    5,
		MaxIPFailures:      10,
		FailureWindow:      15 * time.Minute,
		LockoutDuration:    30 * time.Minute,
		PasswordMinLength:  8,
		SessionIdleTimeout: time.Hour,
		Version:            1,
	}
}
