// calibrations.go: filtered calibration queries and lifecycle operations.
package datastore

import (
	"errors"
	"fmt"

	calerrors "github.com/tracklab/calsys/internal/errors"
	"gorm.io/gorm"
)

// CalibrationFilters are the declarative query parameters for calibration
// lists. StartDate and EndDate bound cal_date inclusively.
type CalibrationFilters struct {
	ListFilters
	DeviceID   string
	Status     string
	EmployeeID string
	StartDate  string
	EndDate    string
}

// CalibrationRecord is a calibration row denormalized with the display
// names of its references.
type CalibrationRecord struct {
	Calibration
	DeviceName       string `json:"device_name"`
	CalibratedByName string `json:"calibrated_by_name"`
	EmployeeName     string `json:"employee_name"`
	StatusName       string `json:"status_name"`
}

var calibrationSortFields = map[string]string{
	"id":          "calibrations.id",
	"device_id":   "calibrations.device_id",
	"cal_date":    "calibrations.cal_date",
	"calDate":     "calibrations.cal_date",
	"cal_due":     "calibrations.cal_due",
	"calDue":      "calibrations.cal_due",
	"status":      "calibrations.status_id",
	"employee_id": "calibrations.employee_id",
	"updated_at":  "calibrations.updated_at",
}

// SearchCalibrations returns a page of calibrations matching the filters,
// enriched with reference names, plus the total match count. The free-text
// search matches the owning device's name and serial number. Default order
// is completion date, newest first.
func (ds *DataStore) SearchCalibrations(filters *CalibrationFilters) ([]CalibrationRecord, int64, error) {
	filters.Normalize()

	query := ds.DB.Model(&Calibration{})
	if filters.Search != "" {
		query = query.Joins("JOIN devices ON devices.id = calibrations.device_id")
		query = applySearch(query, filters.Search, "devices.name", "devices.serial_number")
	}

	if filters.DeviceID != "" {
		query = query.Where("calibrations.device_id = ?", filters.DeviceID)
	}
	if filters.Status != "" {
		query = query.Where("calibrations.status_id = ?", filters.Status)
	}
	if filters.EmployeeID != "" {
		query = query.Where("calibrations.employee_id = ?", filters.EmployeeID)
	}
	if filters.StartDate != "" {
		query = query.Where("calibrations.cal_date >= ?", filters.StartDate)
	}
	if filters.EndDate != "" {
		query = query.Where("calibrations.cal_date <= ?", filters.EndDate)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("counting calibrations: %w", err)
	}

	query = applySort(query, calibrationSortFields, filters.SortBy, filters.SortOrder, "calibrations.cal_date", "DESC")
	if !filters.All {
		query = query.Limit(filters.PerPage).Offset(filters.Offset())
	}

	var calibrations []Calibration
	if err := query.Find(&calibrations).Error; err != nil {
		return nil, 0, fmt.Errorf("searching calibrations: %w", err)
	}

	records, err := ds.enrichCalibrations(calibrations)
	if err != nil {
		return nil, 0, err
	}
	return records, total, nil
}

// enrichCalibrations attaches reference display names using batch name
// maps. Device names are fetched in one query keyed by the IDs present in
// the page.
func (ds *DataStore) enrichCalibrations(calibrations []Calibration) ([]CalibrationRecord, error) {
	calibratedByNames, err := ds.nameMap(lookupCalibratedBy)
	if err != nil {
		return nil, err
	}
	employeeNames, err := ds.nameMap(lookupEmployees)
	if err != nil {
		return nil, err
	}
	statusNames, err := ds.nameMap(lookupStatuses)
	if err != nil {
		return nil, err
	}
	deviceNames, err := ds.deviceNameMap(calibrations)
	if err != nil {
		return nil, err
	}

	records := make([]CalibrationRecord, 0, len(calibrations))
	for i := range calibrations {
		records = append(records, CalibrationRecord{
			Calibration:      calibrations[i],
			DeviceName:       deviceNames[calibrations[i].DeviceID],
			CalibratedByName: calibratedByNames[calibrations[i].CalibratedByID],
			EmployeeName:     employeeNames[calibrations[i].EmployeeID],
			StatusName:       statusNames[calibrations[i].StatusID],
		})
	}
	return records, nil
}

// deviceNameMap fetches display names for the set of device IDs present in
// the given calibrations.
func (ds *DataStore) deviceNameMap(calibrations []Calibration) (map[string]string, error) {
	if len(calibrations) == 0 {
		return map[string]string{}, nil
	}

	idSet := make(map[string]struct{}, len(calibrations))
	ids := make([]string, 0, len(calibrations))
	for i := range calibrations {
		if _, seen := idSet[calibrations[i].DeviceID]; !seen {
			idSet[calibrations[i].DeviceID] = struct{}{}
			ids = append(ids, calibrations[i].DeviceID)
		}
	}

	var rows []struct {
		ID   string
		Name string
	}
	if err := ds.DB.Model(&Device{}).Select("id", "name").Where("id IN ?", ids).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("fetching device names: %w", err)
	}

	names := make(map[string]string, len(rows))
	for _, row := range rows {
		names[row.ID] = row.Name
	}
	return names, nil
}

// GetCalibration retrieves a calibration by its ID.
func (ds *DataStore) GetCalibration(id uint) (Calibration, error) {
	var calibration Calibration
	if err := ds.DB.First(&calibration, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Calibration{}, calerrors.NotFoundError("calibration", fmt.Sprint(id))
		}
		return Calibration{}, fmt.Errorf("getting calibration %d: %w", id, err)
	}
	return calibration, nil
}

// CreateCalibration inserts a new calibration record. The referenced
// device must exist; a calibration must never be orphaned at insert time.
func (ds *DataStore) CreateCalibration(calibration *Calibration) error {
	if calibration.DeviceID == "" {
		return calerrors.ValidationError("calibration device_id must not be empty")
	}

	var devices int64
	if err := ds.DB.Model(&Device{}).Where("id = ?", calibration.DeviceID).Count(&devices).Error; err != nil {
		return fmt.Errorf("checking device for calibration: %w", err)
	}
	if devices == 0 {
		return calerrors.NotFoundError("device", calibration.DeviceID)
	}

	if err := ds.DB.Create(calibration).Error; err != nil {
		return fmt.Errorf("creating calibration: %w", err)
	}
	return nil
}

// UpdateCalibration updates specific fields of a calibration.
func (ds *DataStore) UpdateCalibration(id uint, fields map[string]any) error {
	result := ds.DB.Model(&Calibration{}).Where("id = ?", id).Updates(fields)
	if result.Error != nil {
		return fmt.Errorf("updating calibration %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return calerrors.NotFoundError("calibration", fmt.Sprint(id))
	}
	return nil
}

// DeleteCalibration removes a calibration record.
func (ds *DataStore) DeleteCalibration(id uint) error {
	result := ds.DB.Delete(&Calibration{}, id)
	if result.Error != nil {
		return fmt.Errorf("deleting calibration %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return calerrors.NotFoundError("calibration", fmt.Sprint(id))
	}
	return nil
}
