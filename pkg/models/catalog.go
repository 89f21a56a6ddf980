package models

import "time"

// CatalogKind names one of the admin-maintained lists an employee record
// refers to.
type CatalogKind string

const (
	CatalogLocations     CatalogKind = "locations"
	CatalogJobCategories CatalogKind = "job-categories"
)

// Valid reports whether k is a known catalog.
func (k CatalogKind) Valid() bool {
	return k == CatalogLocations || k == CatalogJobCategories
}

// Singular returns the human name of one entry, e.g. "location".
func (k CatalogKind) Singular() string {
	switch k {
	case CatalogLocations:
		return "location"
	case CatalogJobCategories:
		return "job category"
	}
	return string(k)
}

// CatalogEntry is one named location or job category.
type CatalogEntry struct {
	ID        string    `json:"_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}
