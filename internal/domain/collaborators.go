package domain

import "time"

// Platform identifies how a device registration is reached.
type Platform string

const (
	PlatformIOS     Platform = "ios"
	PlatformAndroid Platform = "android"
	PlatformWeb     Platform = "web"
	PlatformEmail   Platform = "email"
)

// Valid reports whether p is a known platform.
func (p Platform) Valid() bool {
	switch p {
	case PlatformIOS, PlatformAndroid, PlatformWeb, PlatformEmail:
		return true
	}
	return false
}

// DeviceRegistration associates a user with one push address on one
// platform. The device collaborator owns these rows; the notification
// fan-out only reads them and reports tokens proven invalid.
type DeviceRegistration struct {
	ID         string    `json:"id"           gorm:"type:char(36);primaryKey"`
	UserID     string    `json:"user_id"      gorm:"type:varchar(64);not null;index"`
	Token      string    `json:"-"            gorm:"type:varchar(512);not null;uniqueIndex:ux_device_token"`
	Platform   Platform  `json:"platform"     gorm:"type:varchar(16);not null"`
	LastUsedAt time.Time `json:"last_used_at" gorm:"not null"`
	CreatedAt  time.Time `json:"created_at"`
}

// TableName returns the database table name for DeviceRegistration.
func (DeviceRegistration) TableName() string { return "device_registrations" }

// CollaborationStatus is the lifecycle state of a collaboration.
type CollaborationStatus string

const (
	CollaborationPending  CollaborationStatus = "pending"
	CollaborationAccepted CollaborationStatus = "accepted"
	CollaborationDeclined CollaborationStatus = "declined"
)

// Collaboration pairs two users (for example a trainer and a member). A chat
// thread may only exist for an accepted collaboration.
type Collaboration struct {
	ID          string              `json:"id"           gorm:"type:char(36);primaryKey"`
	RequesterID string              `json:"requester_id" gorm:"type:varchar(64);not null;index"`
	AddresseeID string              `json:"addressee_id" gorm:"type:varchar(64);not null;index"`
	Status      CollaborationStatus `json:"status"       gorm:"type:varchar(16);not null;default:'pending';check:status IN ('pending','accepted','declined')"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
}

// TableName returns the database table name for Collaboration.
func (Collaboration) TableName() string { return "collaborations" }

// IsParty reports whether userID is one of the two collaborators.
func (c Collaboration) IsParty(userID string) bool {
	return userID != "" && (c.RequesterID == userID || c.AddresseeID == userID)
}
