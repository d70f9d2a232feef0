package main

import (
	"fmt"
	"sort"
)

// TableMapper turns the tab-split fields of one dump row into the column
// values of a destination row.
type TableMapper struct {
	Table     string
	Columns   []string
	MinFields int
	Map       func(fields []string) ([]any, error)
}

// MapRow checks the field count and applies the mapping. Rows that are too
// short return ErrRowTooShort.
func (m *TableMapper) MapRow(fields []string) ([]any, error) {
	if len(fields) < m.MinFields {
		return nil, fmt.Errorf("%w: got %d, need %d", ErrRowTooShort, len(fields), m.MinFields)
	}
	vals, err := m.Map(fields)
	if err != nil {
		return nil, err
	}
	if len(vals) != len(m.Columns) {
		return nil, fmt.Errorf("%w: mapper produced %d values for %d columns", ErrRowCoercion, len(vals), len(m.Columns))
	}
	return vals, nil
}

var tableMappers = map[string]*TableMapper{
	"us_zipcodes":        zipcodeMapper,
	"npi_prescriptions":  prescriptionMapper,
	"npi_details":        npiDetailsMapper,
	"npi_addresses_usps": npiAddressMapper,
}

// lookupMapper returns the mapper for a dump table, or nil if the table is
// not loaded.
func lookupMapper(table string) *TableMapper {
	return tableMappers[table]
}

// mappedTables lists the destination tables in a stable order.
func mappedTables() []string {
	names := make([]string, 0, len(tableMappers))
	for name := range tableMappers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

var zipcodeMapper = &TableMapper{
	Table: "us_zipcodes",
	Columns: []string{
		"zip_code", "official_usps_city_name", "official_usps_state_code",
		"official_state_name", "population", "latitude", "longitude",
	},
	MinFields: 17,
	Map: func(f []string) ([]any, error) {
		zip := nullString(f[0])
		if !zip.Valid {
			return nil, coercionError("zip_code", f[0], fmt.Errorf("key column is NULL"))
		}
		population, err := nullFloat("population", f[6])
		if err != nil {
			return nil, err
		}
		lat, lng := geoPoint(f[16])
		return []any{
			truncateString(zip, 5),
			nullString(f[1]),
			nullString(f[2]),
			nullString(f[3]),
			population,
			lat,
			lng,
		}, nil
	},
}

var prescriptionMapper = &TableMapper{
	Table: "npi_prescriptions",
	Columns: []string{
		"prescription_id", "npi", "drug_name", "generic_name", "total_claim_count", "state",
	},
	MinFields: 6,
	Map: func(f []string) ([]any, error) {
		id, err := nullInt("prescription_id", f[0])
		if err != nil {
			return nil, err
		}
		npi, err := nullInt("npi", f[1])
		if err != nil {
			return nil, err
		}
		claims, err := nullInt("total_claim_count", f[4])
		if err != nil {
			return nil, err
		}
		return []any{id, npi, nullString(f[2]), nullString(f[3]), claims, nullString(f[5])}, nil
	},
}

var npiDetailsMapper = &TableMapper{
	Table: "npi_details",
	Columns: []string{
		"npi", "provider_first_name", "provider_last_name_legal_name",
		"provider_credential_text", "healthcare_provider_taxonomy_1_classification",
	},
	MinFields: 15,
	Map: func(f []string) ([]any, error) {
		npi, err := nullInt("npi", f[0])
		if err != nil {
			return nil, err
		}
		return []any{npi, nullString(f[1]), nullString(f[2]), nullString(f[7]), nullString(f[10])}, nil
	},
}

var npiAddressMapper = &TableMapper{
	Table: "npi_addresses_usps",
	Columns: []string{
		"npi", "usps_street_address", "usps_secondary_address", "usps_city",
		"usps_state_abbr", "usps_zip5", "usps_zip4",
	},
	MinFields: 7,
	Map: func(f []string) ([]any, error) {
		npi, err := nullInt("npi", f[0])
		if err != nil {
			return nil, err
		}
		// zip4 is the optional eighth field
		zip4 := nullString(nullSentinel)
		if len(f) > 7 {
			zip4 = nullString(f[7])
		}
		return []any{
			npi,
			nullString(f[2]),
			nullString(f[3]),
			nullString(f[4]),
			nullString(f[5]),
			truncateString(nullString(f[6]), 5),
			zip4,
		}, nil
	},
}
