// model.go this code defines the data model for the application
package datastore

import "time"

// Dates are stored as ISO 8601 strings (YYYY-MM-DD) so that lexicographic
// ordering matches calendar ordering on every supported engine. An empty
// string means "not set"; the due report filters on cal_due > '0' which
// excludes empty values and admits any real date.

// Device represents a calibrated piece of equipment.
type Device struct {
	ID           string    `gorm:"primaryKey;size:15" json:"id"`
	Name         string    `gorm:"size:50;index:idx_devices_name" json:"name"`
	Description  string    `gorm:"size:50" json:"description"`
	SerialNumber string    `gorm:"size:15;index:idx_devices_serial" json:"serial_number"`
	SourceID     string    `gorm:"size:15;index" json:"source_id"`
	TypeID       string    `gorm:"size:15;index" json:"type_id"`
	InitDate     string    `gorm:"size:10" json:"init_date"`
	PeriodID     string    `gorm:"size:15;index" json:"period_id"`
	LocationID   string    `gorm:"size:15;index" json:"location_id"`
	OwnerID      string    `gorm:"size:15;index" json:"owner_id"`
	UpdatedAt    time.Time `json:"updated_at"`

	// Deleting a device with calibration history is rejected, never cascaded.
	Calibrations []Calibration `gorm:"foreignKey:DeviceID;constraint:OnDelete:RESTRICT" json:"-"`
}

// Calibration is a record of a single calibration performed on a device.
// Rows are append-mostly; for a given device the row with the highest ID is
// the device's current calibration state.
type Calibration struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	DeviceID       string    `gorm:"size:15;index;not null" json:"device_id"`
	CalibratedByID string    `gorm:"size:15;index" json:"calibrated_by_id"`
	EmployeeID     string    `gorm:"size:15;index" json:"employee_id"`
	StatusID       string    `gorm:"size:15;index" json:"status_id"`
	CalDate        string    `gorm:"size:10;index:idx_calibrations_cal_date" json:"cal_date"`
	CalDue         string    `gorm:"size:10;index:idx_calibrations_cal_due" json:"cal_due"`
	Record         string    `gorm:"size:255" json:"record"` // link to the scanned calibration report
	UpdatedAt      time.Time `json:"updated_at"`
}

// Employee performs calibrations.
type Employee struct {
	ID       string `gorm:"primaryKey;size:15" json:"id"`
	UserInit string `gorm:"size:15" json:"user_init"`
	Name     string `gorm:"size:50" json:"name"`
}

// CalibratedBy is an external organization performing calibration services.
type CalibratedBy struct {
	ID   string `gorm:"primaryKey;size:15" json:"id"`
	Name string `gorm:"size:50;uniqueIndex" json:"name"`
}

// TableName overrides the awkward default pluralization.
func (CalibratedBy) TableName() string {
	return "calibrated_by"
}

// Location is a place a device can be installed or kept at.
type Location struct {
	ID   string `gorm:"primaryKey;size:15" json:"id"`
	Name string `gorm:"size:50" json:"name"`
}

// Owner is an organization that can own calibrated devices.
type Owner struct {
	ID   string `gorm:"primaryKey;size:15" json:"id"`
	Name string `gorm:"size:50;uniqueIndex" json:"name"`
}

// Period is a frequency at which calibrations must be performed.
type Period struct {
	ID   string `gorm:"primaryKey;size:15" json:"id"`
	Name string `gorm:"size:50" json:"name"`
}

// Source is a manufacturer, vendor or supplier of calibrated devices.
type Source struct {
	ID   string `gorm:"primaryKey;size:15" json:"id"`
	Name string `gorm:"size:50" json:"name"`
}

// Status is a possible status for a calibration.
type Status struct {
	ID   string `gorm:"primaryKey;size:15" json:"id"`
	Name string `gorm:"size:50" json:"name"`
}

// Type is a device type classification.
type Type struct {
	ID       string `gorm:"primaryKey;size:15" json:"id"`
	Name     string `gorm:"size:50" json:"name"`
	ProcLink string `gorm:"size:255" json:"proc_link"` // link to the calibration procedure document
}

// User is an authenticated principal. Stored in the auth database, not the
// calibration schema.
type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Username     string    `gorm:"size:50;uniqueIndex;not null" json:"username"`
	Email        string    `gorm:"size:120;uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"size:60" json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// UserSettings holds per-user display preferences.
type UserSettings struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	UserID       uint      `gorm:"uniqueIndex;not null" json:"user_id"`
	Theme        string    `gorm:"size:20;default:light" json:"theme"`
	ItemsPerPage int       `gorm:"default:10" json:"items_per_page"`
	UpdatedAt    time.Time `json:"updated_at"`
}
