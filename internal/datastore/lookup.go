// lookup.go: reference-table resolver shared by the lookup endpoints and
// result enrichment.
package datastore

import (
	"errors"
	"fmt"

	calerrors "github.com/tracklab/calsys/internal/errors"
	"gorm.io/gorm"
)

// Lookup table tokens as they appear on the wire.
const (
	lookupLocations    = "locations"
	lookupTypes        = "types"
	lookupOwners       = "owners"
	lookupSources      = "sources"
	lookupPeriods      = "periods"
	lookupStatuses     = "statuses"
	lookupEmployees    = "employees"
	lookupCalibratedBy = "calibrated-by"
)

// lookupTableInfo describes one reference table.
type lookupTableInfo struct {
	table      string // SQL table name
	uniqueName bool   // display name must be unique
	extra      string // optional extra column (user_init, proc_link)

	// refs are the columns that point at this table. A row still
	// referenced by any of them cannot be deleted.
	refs []lookupRef
}

// lookupRef names a referencing column in another table.
type lookupRef struct {
	table  string
	column string
}

// lookupTables maps wire tokens to their backing reference tables. Tokens
// outside this map resolve to a not-found error.
var lookupTables = map[string]lookupTableInfo{
	lookupLocations:    {table: "locations", refs: []lookupRef{{"devices", "location_id"}}},
	lookupTypes:        {table: "types", extra: "proc_link", refs: []lookupRef{{"devices", "type_id"}}},
	lookupOwners:       {table: "owners", uniqueName: true, refs: []lookupRef{{"devices", "owner_id"}}},
	lookupSources:      {table: "sources", refs: []lookupRef{{"devices", "source_id"}}},
	lookupPeriods:      {table: "periods", refs: []lookupRef{{"devices", "period_id"}}},
	lookupStatuses:     {table: "statuses", refs: []lookupRef{{"calibrations", "status_id"}}},
	lookupEmployees:    {table: "employees", extra: "user_init", refs: []lookupRef{{"calibrations", "employee_id"}}},
	lookupCalibratedBy: {table: "calibrated_by", uniqueName: true, refs: []lookupRef{{"calibrations", "calibrated_by_id"}}},
}

// LookupRecord is a row of any reference table. UserInit is populated for
// employees, ProcLink for types.
type LookupRecord struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	UserInit string `json:"user_init,omitempty"`
	ProcLink string `json:"proc_link,omitempty"`
}

var lookupSortFields = map[string]string{
	"id":   "id",
	"name": "name",
}

// ValidLookupTable reports whether token names a known reference table.
func ValidLookupTable(token string) bool {
	_, ok := lookupTables[token]
	return ok
}

func resolveLookupTable(token string) (lookupTableInfo, error) {
	info, ok := lookupTables[token]
	if !ok {
		return lookupTableInfo{}, calerrors.NotFoundError("lookup table", token)
	}
	return info, nil
}

// SearchLookup returns a page of reference-table rows matching the shared
// list contract. The free-text search matches both the identifier and the
// display name.
func (ds *DataStore) SearchLookup(token string, filters *ListFilters) ([]LookupRecord, int64, error) {
	info, err := resolveLookupTable(token)
	if err != nil {
		return nil, 0, err
	}
	filters.Normalize()

	columns := "id, name"
	if info.extra != "" {
		columns += ", " + info.extra
	}

	query := ds.DB.Table(info.table)
	query = applySearch(query, filters.Search, "id", "name")

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("counting %s: %w", info.table, err)
	}

	query = query.Select(columns)
	query = applySort(query, lookupSortFields, filters.SortBy, filters.SortOrder, "name", "ASC")
	if !filters.All {
		query = query.Limit(filters.PerPage).Offset(filters.Offset())
	}

	var records []LookupRecord
	if err := query.Scan(&records).Error; err != nil {
		return nil, 0, fmt.Errorf("searching %s: %w", info.table, err)
	}
	return records, total, nil
}

// GetLookupEntry retrieves a single reference-table row.
func (ds *DataStore) GetLookupEntry(token, id string) (LookupRecord, error) {
	info, err := resolveLookupTable(token)
	if err != nil {
		return LookupRecord{}, err
	}

	var record LookupRecord
	err = ds.DB.Table(info.table).Where("id = ?", id).Take(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return LookupRecord{}, calerrors.NotFoundError(token, id)
		}
		return LookupRecord{}, fmt.Errorf("getting %s entry %s: %w", info.table, id, err)
	}
	return record, nil
}

// SaveLookupEntry inserts or updates a reference-table row. Uniqueness of
// display names on owner and calibrated-by tables is validated before the
// write so callers get a conflict error instead of a driver error.
func (ds *DataStore) SaveLookupEntry(token string, record *LookupRecord) error {
	info, err := resolveLookupTable(token)
	if err != nil {
		return err
	}
	if record.ID == "" {
		return calerrors.ValidationError("%s entry id must not be empty", token)
	}

	if info.uniqueName {
		var count int64
		err := ds.DB.Table(info.table).
			Where("name = ? AND id <> ?", record.Name, record.ID).
			Count(&count).Error
		if err != nil {
			return fmt.Errorf("checking %s name: %w", info.table, err)
		}
		if count > 0 {
			return calerrors.ConflictError(token, "name", record.Name)
		}
	}

	values := map[string]any{"id": record.ID, "name": record.Name}
	switch info.extra {
	case "user_init":
		values["user_init"] = record.UserInit
	case "proc_link":
		values["proc_link"] = record.ProcLink
	}

	return ds.DB.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Table(info.table).Where("id = ?", record.ID).Count(&count).Error; err != nil {
			return fmt.Errorf("checking %s id: %w", info.table, err)
		}

		if count > 0 {
			if err := tx.Table(info.table).Where("id = ?", record.ID).Updates(values).Error; err != nil {
				return fmt.Errorf("updating %s entry: %w", info.table, err)
			}
		} else {
			if err := tx.Table(info.table).Create(values).Error; err != nil {
				return fmt.Errorf("creating %s entry: %w", info.table, err)
			}
		}

		ds.invalidateNameMap(token)
		return nil
	})
}

// DeleteLookupEntry removes a reference-table row. Rows still referenced
// by devices or calibrations cannot be deleted; records must not be left
// pointing at nothing.
func (ds *DataStore) DeleteLookupEntry(token, id string) error {
	info, err := resolveLookupTable(token)
	if err != nil {
		return err
	}

	return ds.DB.Transaction(func(tx *gorm.DB) error {
		for _, ref := range info.refs {
			var count int64
			if err := tx.Table(ref.table).Where(ref.column+" = ?", id).Count(&count).Error; err != nil {
				return fmt.Errorf("checking %s references in %s: %w", info.table, ref.table, err)
			}
			if count > 0 {
				return calerrors.New(fmt.Errorf("%s %q is referenced by %d %s rows: %w", token, id, count, ref.table, calerrors.ErrConflict)).
					Category(calerrors.CategoryConflict).
					Context("resource", token).
					Build()
			}
		}

		result := tx.Table(info.table).Where("id = ?", id).Delete(&LookupRecord{})
		if result.Error != nil {
			return fmt.Errorf("deleting %s entry %s: %w", info.table, id, result.Error)
		}
		if result.RowsAffected == 0 {
			return calerrors.NotFoundError(token, id)
		}

		ds.invalidateNameMap(token)
		return nil
	})
}

// nameMap returns the id-to-name map for a reference table, loading it in
// a single query and caching it briefly. Enrichment never issues per-row
// queries.
func (ds *DataStore) nameMap(token string) (map[string]string, error) {
	if ds.names != nil {
		if cached, found := ds.names.Get(token); found {
			return cached.(map[string]string), nil
		}
	}

	info, err := resolveLookupTable(token)
	if err != nil {
		return nil, err
	}

	var rows []struct {
		ID   string
		Name string
	}
	if err := ds.DB.Table(info.table).Select("id", "name").Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("loading %s names: %w", info.table, err)
	}

	names := make(map[string]string, len(rows))
	for _, row := range rows {
		names[row.ID] = row.Name
	}

	if ds.names != nil {
		ds.names.SetDefault(token, names)
	}
	return names, nil
}

func (ds *DataStore) invalidateNameMap(token string) {
	if ds.names != nil {
		ds.names.Delete(token)
	}
}
