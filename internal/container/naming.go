package container

import "strings"

const (
	dbNamePrefix  = "db-"
	appNamePrefix = "app-"
)

// Naming derives container names from environment ids and back
type Naming struct {
	Prefix string
}

// DBName returns db-<prefix><id>
func (n Naming) DBName(id string) string {
	return dbNamePrefix + n.Prefix + id
}

// AppName returns app-<prefix><id>
func (n Naming) AppName(id string) string {
	return appNamePrefix + n.Prefix + id
}

// DBNamePrefix is the prefix shared by every database container name
func (n Naming) DBNamePrefix() string {
	return dbNamePrefix + n.Prefix
}

// ParseDBName recovers the environment id from a database container name
func (n Naming) ParseDBName(name string) (string, bool) {
	return parse(name, dbNamePrefix+n.Prefix)
}

func parse(name, prefix string) (string, bool) {
	id, ok := strings.CutPrefix(name, prefix)
	if !ok || id == "" {
		return "", false
	}
	return id, true
}
