// reports.go: derived read-only reporting views over the calibration
// history.
//
// Both reports define "the current calibration" of a device as the row
// with the maximum calibration ID for that device, i.e. insertion order,
// not calendar order. A back-dated insert therefore becomes the current
// record. This matches the legacy reporting views the organization audits
// against.
package datastore

import (
	"fmt"

	"gorm.io/gorm"
)

// Status identifiers that qualify a calibration for the export report.
const (
	StatusActive = "Active"
	StatusCalInv = "CalInv"
)

// dueSentinel excludes unset due dates: any real ISO date compares greater,
// the empty string does not.
const dueSentinel = "0"

// DueRecord is one row of the calibration-due report: a device's latest
// calibration joined back to device attributes.
type DueRecord struct {
	CalibrationID uint   `json:"calibration_id"`
	DeviceID      string `json:"device_id"`
	DeviceName    string `json:"device_name"`
	Description   string `json:"description"`
	TypeID        string `json:"type_id"`
	LocationID    string `json:"location_id"`
	StatusID      string `json:"status_id"`
	CalDate       string `json:"cal_date"`
	CalDue        string `json:"cal_due"`
	PeriodID      string `json:"period_id"`
}

// CalExportRecord is one row of the cal-export report.
type CalExportRecord struct {
	LocationID    string `json:"location_id"`
	DeviceName    string `json:"device_name"`
	CalibrationID uint   `json:"calibration_id"`
	UserInit      string `json:"user_init"`
	EmployeeID    string `json:"employee_id"`
	CalDate       string `json:"cal_date"`
	CalDue        string `json:"cal_due"`
	StatusID      string `json:"status_id"`
}

// latestCalibrations builds the MAX(id)-per-device subquery both reports
// join against.
func (ds *DataStore) latestCalibrations() *gorm.DB {
	return ds.DB.Model(&Calibration{}).Select("MAX(id) AS id").Group("device_id")
}

// CalibrationDue returns, for every device with a due date set, its latest
// calibration joined with device attributes, ordered by due date
// ascending. At most one row per device.
func (ds *DataStore) CalibrationDue() ([]DueRecord, error) {
	var records []DueRecord

	err := ds.DB.Table("calibrations").
		Select(`calibrations.id AS calibration_id, calibrations.device_id, `+
			`devices.name AS device_name, devices.description, devices.type_id, `+
			`devices.location_id, calibrations.status_id, calibrations.cal_date, `+
			`calibrations.cal_due, devices.period_id`).
		Joins("JOIN (?) AS latest ON latest.id = calibrations.id", ds.latestCalibrations()).
		Joins("JOIN devices ON devices.id = calibrations.device_id").
		Where("calibrations.cal_due > ?", dueSentinel).
		Order("calibrations.cal_due ASC").
		Scan(&records).Error
	if err != nil {
		return nil, fmt.Errorf("building calibration-due report: %w", err)
	}

	return records, nil
}

// CalExport returns the latest calibration per device restricted to
// Active/CalInv status, with the performing employee's initials, ordered
// by location, device name and calibration ID.
func (ds *DataStore) CalExport() ([]CalExportRecord, error) {
	var records []CalExportRecord

	err := ds.DB.Table("calibrations").
		Select(`devices.location_id, devices.name AS device_name, `+
			`calibrations.id AS calibration_id, employees.user_init, `+
			`calibrations.employee_id, calibrations.cal_date, calibrations.cal_due, `+
			`calibrations.status_id`).
		Joins("JOIN (?) AS latest ON latest.id = calibrations.id", ds.latestCalibrations()).
		Joins("JOIN devices ON devices.id = calibrations.device_id").
		Joins("JOIN employees ON employees.id = calibrations.employee_id").
		Where("calibrations.status_id IN ?", []string{StatusActive, StatusCalInv}).
		Order("devices.location_id, devices.name, calibrations.id").
		Scan(&records).Error
	if err != nil {
		return nil, fmt.Errorf("building cal-export report: %w", err)
	}

	return records, nil
}
