package models

import (
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// DefaultExpiry is applied to auto-expiring notifications created without an explicit expiry date.
const DefaultExpiry = 7 * 24 * time.Hour

// NotificationType classifies a notification for display and action dispatch.
type NotificationType string

const (
	TypeInfo       NotificationType = "info"
	TypeSuccess    NotificationType = "success"
	TypeWarning    NotificationType = "warning"
	TypeError      NotificationType = "error"
	TypeTraining   NotificationType = "training"
	TypePrediction NotificationType = "prediction"
	TypeSystem     NotificationType = "system"
)

var notificationTypes = []NotificationType{
	TypeInfo, TypeSuccess, TypeWarning, TypeError, TypeTraining, TypePrediction, TypeSystem,
}

// NotificationTypes returns every supported notification type.
func NotificationTypes() []NotificationType {
	out := make([]NotificationType, len(notificationTypes))
	copy(out, notificationTypes)
	return out
}

// Valid reports whether t is a supported notification type.
func (t NotificationType) Valid() bool {
	for _, candidate := range notificationTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// Priority ranks how prominently a notification should be surfaced.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Valid reports whether p is a supported priority level.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	default:
		return false
	}
}

// Notification represents a user-targeted or global message with read and expiry state.
type Notification struct {
	BaseModel

	Title    string           `gorm:"type:varchar(200);not null" json:"title"`
	Message  string           `gorm:"type:text;not null" json:"message"`
	Type     NotificationType `gorm:"type:varchar(20);not null;default:'info';index" json:"type"`
	Priority Priority         `gorm:"type:varchar(10);not null;default:'medium'" json:"priority"`

	UserID   *string `gorm:"type:varchar(64);index:idx_notifications_user_read,priority:1" json:"user_id"`
	IsGlobal bool    `gorm:"not null" json:"is_global"`

	IsRead     bool       `gorm:"not null;index:idx_notifications_user_read,priority:2" json:"is_read"`
	ReadAt     *time.Time `json:"read_at"`
	IsActive   bool       `gorm:"not null;index:idx_notifications_active_created,priority:1" json:"is_active"`
	AutoExpire bool       `gorm:"not null" json:"auto_expire"`
	ExpiryDate *time.Time `gorm:"index" json:"expiry_date"`

	ActionURL   string `gorm:"type:text" json:"action_url"`
	ActionText  string `gorm:"type:varchar(50)" json:"action_text"`
	ModelName   string `gorm:"type:varchar(100)" json:"model_name"`
	OperationID string `gorm:"type:varchar(100)" json:"operation_id"`

	Metadata datatypes.JSON `json:"metadata"`
}

// BeforeCreate assigns the identifier and, for auto-expiring rows without an expiry, the default expiry.
func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	if err := n.BaseModel.BeforeCreate(tx); err != nil {
		return err
	}
	if n.AutoExpire && n.ExpiryDate == nil {
		if n.CreatedAt.IsZero() {
			n.CreatedAt = time.Now().UTC()
		}
		expiry := n.CreatedAt.Add(DefaultExpiry)
		n.ExpiryDate = &expiry
	}
	return nil
}

// IsExpiredAt reports whether the notification has passed its expiry at the supplied instant.
func (n *Notification) IsExpiredAt(now time.Time) bool {
	if n == nil || !n.AutoExpire || n.ExpiryDate == nil {
		return false
	}
	return now.After(*n.ExpiryDate)
}

// IsExpired reports whether the notification has expired as of now.
func (n *Notification) IsExpired() bool {
	return n.IsExpiredAt(time.Now())
}

// AccessibleBy reports whether userID may read, modify or delete the notification.
func (n *Notification) AccessibleBy(userID string) bool {
	if n == nil {
		return false
	}
	if n.IsGlobal {
		return true
	}
	userID = strings.TrimSpace(userID)
	return userID != "" && n.UserID != nil && *n.UserID == userID
}

// VisibleTo reports whether the notification belongs in userID's listing at the supplied instant.
func (n *Notification) VisibleTo(userID string, now time.Time) bool {
	return n.AccessibleBy(userID) && n.IsActive && !n.IsExpiredAt(now)
}

// TargetUserID returns the target user or an empty string for untargeted rows.
func (n *Notification) TargetUserID() string {
	if n == nil || n.UserID == nil {
		return ""
	}
	return *n.UserID
}

// ExpiryStatus summarises expiry for operator listings: Never, Expired or Active.
func (n *Notification) ExpiryStatus(now time.Time) string {
	if n == nil || !n.AutoExpire || n.ExpiryDate == nil {
		return "Never"
	}
	if n.IsExpiredAt(now) {
		return "Expired"
	}
	return "Active"
}
