// internal/app/catalog/catalog.go
package catalog

import "strings"

// DatabaseID names one of the logical databases the service uses. The set is
// closed: only the constants below are members. The zero value means
// "no database" and is never valid.
type DatabaseID string

const (
	Production  DatabaseID = "production"
	Development DatabaseID = "development"
	Test        DatabaseID = "test"
)

var databaseNames = map[DatabaseID]string{
	Production:  "mild",
	Development: "mild_dev",
	Test:        "mild_test",
}

// Databases returns every member of the DatabaseID enumeration in a stable order.
func Databases() []DatabaseID {
	return []DatabaseID{Production, Development, Test}
}

// ParseDatabaseID maps a configuration string to a DatabaseID.
// The bool is false when s does not name a member of the enumeration.
func ParseDatabaseID(s string) (DatabaseID, bool) {
	id := DatabaseID(strings.ToLower(strings.TrimSpace(s)))
	if !id.Valid() {
		return "", false
	}
	return id, true
}

// Valid reports whether id is a member of the enumeration.
func (id DatabaseID) Valid() bool {
	_, ok := databaseNames[id]
	return ok
}

// DatabaseName returns the physical database name for id, or "" if id is not valid.
func (id DatabaseID) DatabaseName() string {
	return databaseNames[id]
}

func (id DatabaseID) String() string {
	if id == "" {
		return "<none>"
	}
	return string(id)
}

// CollectionID names one of the collections every logical database must carry.
// The zero value means "no collection" and is never valid.
type CollectionID string

const (
	Users     CollectionID = "users"
	Printers  CollectionID = "printers"
	PrintJobs CollectionID = "print_jobs"
)

var collectionNames = map[CollectionID]string{
	Users:     "users",
	Printers:  "printers",
	PrintJobs: "print_jobs",
}

// Collections returns every member of the CollectionID enumeration in a stable order.
func Collections() []CollectionID {
	return []CollectionID{Users, Printers, PrintJobs}
}

// CollectionNames returns the physical collection names for Collections().
func CollectionNames() []string {
	ids := Collections()
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		names = append(names, id.CollectionName())
	}
	return names
}

// Valid reports whether id is a member of the enumeration.
func (id CollectionID) Valid() bool {
	_, ok := collectionNames[id]
	return ok
}

// CollectionName returns the physical collection name for id, or "" if id is not valid.
func (id CollectionID) CollectionName() string {
	return collectionNames[id]
}

func (id CollectionID) String() string {
	if id == "" {
		return "<none>"
	}
	return string(id)
}
