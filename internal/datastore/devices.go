// devices.go: filtered device queries and device lifecycle operations.
package datastore

import (
	"errors"
	"fmt"

	calerrors "github.com/tracklab/calsys/internal/errors"
	"gorm.io/gorm"
)

// DeviceFilters are the declarative query parameters for device lists.
// Filter fields are exact matches; empty values are not applied.
type DeviceFilters struct {
	ListFilters
	Location string
	Type     string
	Owner    string
	Period   string
}

// DeviceRecord is a device row denormalized with the display names of its
// references.
type DeviceRecord struct {
	Device
	TypeName     string `json:"type_name"`
	LocationName string `json:"location_name"`
	OwnerName    string `json:"owner_name"`
	SourceName   string `json:"source_name"`
}

// deviceSortFields maps caller-facing sort tokens to columns. Tokens
// outside this map are ignored.
var deviceSortFields = map[string]string{
	"id":            "id",
	"name":          "name",
	"description":   "description",
	"serial_number": "serial_number",
	"serialNumber":  "serial_number",
	"init_date":     "init_date",
	"location":      "location_id",
	"type":          "type_id",
	"owner":         "owner_id",
	"source":        "source_id",
	"period":        "period_id",
	"updated_at":    "updated_at",
}

// SearchDevices returns a page of devices matching the filters, enriched
// with reference names, plus the total match count. With filters.All set
// the full result set is returned unpaginated for export.
func (ds *DataStore) SearchDevices(filters *DeviceFilters) ([]DeviceRecord, int64, error) {
	filters.Normalize()

	query := ds.DB.Model(&Device{})
	query = applySearch(query, filters.Search, "name", "description", "serial_number")

	if filters.Location != "" {
		query = query.Where("location_id = ?", filters.Location)
	}
	if filters.Type != "" {
		query = query.Where("type_id = ?", filters.Type)
	}
	if filters.Owner != "" {
		query = query.Where("owner_id = ?", filters.Owner)
	}
	if filters.Period != "" {
		query = query.Where("period_id = ?", filters.Period)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("counting devices: %w", err)
	}

	query = applySort(query, deviceSortFields, filters.SortBy, filters.SortOrder, "name", "ASC")
	if !filters.All {
		query = query.Limit(filters.PerPage).Offset(filters.Offset())
	}

	var devices []Device
	if err := query.Find(&devices).Error; err != nil {
		return nil, 0, fmt.Errorf("searching devices: %w", err)
	}

	records, err := ds.enrichDevices(devices)
	if err != nil {
		return nil, 0, err
	}
	return records, total, nil
}

// enrichDevices attaches reference display names using batch name maps,
// one lookup per referenced table rather than one per row.
func (ds *DataStore) enrichDevices(devices []Device) ([]DeviceRecord, error) {
	typeNames, err := ds.nameMap(lookupTypes)
	if err != nil {
		return nil, err
	}
	locationNames, err := ds.nameMap(lookupLocations)
	if err != nil {
		return nil, err
	}
	ownerNames, err := ds.nameMap(lookupOwners)
	if err != nil {
		return nil, err
	}
	sourceNames, err := ds.nameMap(lookupSources)
	if err != nil {
		return nil, err
	}

	records := make([]DeviceRecord, 0, len(devices))
	for i := range devices {
		records = append(records, DeviceRecord{
			Device:       devices[i],
			TypeName:     typeNames[devices[i].TypeID],
			LocationName: locationNames[devices[i].LocationID],
			OwnerName:    ownerNames[devices[i].OwnerID],
			SourceName:   sourceNames[devices[i].SourceID],
		})
	}
	return records, nil
}

// GetDevice retrieves a device by its ID.
func (ds *DataStore) GetDevice(id string) (Device, error) {
	var device Device
	if err := ds.DB.First(&device, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Device{}, calerrors.NotFoundError("device", id)
		}
		return Device{}, fmt.Errorf("getting device %s: %w", id, err)
	}
	return device, nil
}

// CreateDevice inserts a new device. The identifier is caller-assigned and
// must be unique; duplicates are rejected before the write.
func (ds *DataStore) CreateDevice(device *Device) error {
	if device.ID == "" {
		return calerrors.ValidationError("device id must not be empty")
	}

	var count int64
	if err := ds.DB.Model(&Device{}).Where("id = ?", device.ID).Count(&count).Error; err != nil {
		return fmt.Errorf("checking device id: %w", err)
	}
	if count > 0 {
		return calerrors.ConflictError("device", "id", device.ID)
	}

	if err := ds.DB.Create(device).Error; err != nil {
		return fmt.Errorf("creating device: %w", err)
	}
	return nil
}

// UpdateDevice updates specific fields of a device.
func (ds *DataStore) UpdateDevice(id string, fields map[string]any) error {
	result := ds.DB.Model(&Device{}).Where("id = ?", id).Updates(fields)
	if result.Error != nil {
		return fmt.Errorf("updating device %s: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return calerrors.NotFoundError("device", id)
	}
	return nil
}

// DeleteDevice removes a device. Devices with calibration history cannot
// be deleted; the history must not be orphaned.
func (ds *DataStore) DeleteDevice(id string) error {
	return ds.DB.Transaction(func(tx *gorm.DB) error {
		var calibrations int64
		if err := tx.Model(&Calibration{}).Where("device_id = ?", id).Count(&calibrations).Error; err != nil {
			return fmt.Errorf("checking calibrations for device %s: %w", id, err)
		}
		if calibrations > 0 {
			return calerrors.New(fmt.Errorf("device %q has %d calibration records: %w", id, calibrations, calerrors.ErrConflict)).
				Category(calerrors.CategoryConflict).
				Context("resource", "device").
				Build()
		}

		result := tx.Delete(&Device{}, "id = ?", id)
		if result.Error != nil {
			return fmt.Errorf("deleting device %s: %w", id, result.Error)
		}
		if result.RowsAffected == 0 {
			return calerrors.NotFoundError("device", id)
		}
		return nil
	})
}
