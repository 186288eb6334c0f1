package config

import (
	"fmt"
	"os"
	"strconv"
)

// DriverMySQL and DriverSQLite are the supported storage backends.
const (
	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite"
)

// Database holds storage connection settings. Credentials and the CA
// certificate path are never hardcoded; they are read from the
// environment by DatabaseFromEnv.
type Database struct {
	Driver    string
	Host      string
	Port      int
	User      string
	Password  string
	Name      string
	TLSCACert string // path to the CA certificate, empty disables TLS
	Path      string // sqlite database file
}

// ErrConfiguration reports a missing or malformed configuration value.
type ErrConfiguration struct {
	Key    string
	Reason string
}

func (e ErrConfiguration) Error() string {
	return fmt.Sprintf("configuration: %s: %s", e.Key, e.Reason)
}

// DatabaseFromEnv reads storage settings from the environment. DB_DRIVER
// selects the backend (default mysql). MySQL requires DB_HOST, DB_USER,
// DB_PASS, DB_NAME and DB_PORT; DB_SSL_CA is optional. SQLite requires
// DB_PATH.
func DatabaseFromEnv() (Database, error) {
	db := Database{Driver: DriverMySQL}
	if driver, ok := EnvString("DB_DRIVER"); ok {
		db.Driver = driver
	}

	switch db.Driver {
	case DriverSQLite:
		path, ok := EnvString("DB_PATH")
		if !ok {
			return Database{}, ErrConfiguration{Key: "DB_PATH", Reason: "required for sqlite driver"}
		}
		db.Path = path
		return db, nil

	case DriverMySQL:
		required := map[string]*string{
			"DB_HOST": &db.Host,
			"DB_USER": &db.User,
			"DB_PASS": &db.Password,
			"DB_NAME": &db.Name,
		}
		for key, dst := range required {
			value, ok := EnvString(key)
			if !ok {
				return Database{}, ErrConfiguration{Key: key, Reason: "not set"}
			}
			*dst = value
		}

		portText, ok := EnvString("DB_PORT")
		if !ok {
			return Database{}, ErrConfiguration{Key: "DB_PORT", Reason: "not set"}
		}
		port, err := strconv.Atoi(portText)
		if err != nil || port <= 0 {
			return Database{}, ErrConfiguration{Key: "DB_PORT", Reason: fmt.Sprintf("invalid port %q", portText)}
		}
		db.Port = port

		if caPath, ok := EnvString("DB_SSL_CA"); ok {
			if _, err := os.Stat(caPath); err != nil {
				return Database{}, ErrConfiguration{Key: "DB_SSL_CA", Reason: fmt.Sprintf("unreadable CA certificate: %v", err)}
			}
			db.TLSCACert = caPath
		}
		return db, nil

	default:
		return Database{}, ErrConfiguration{Key: "DB_DRIVER", Reason: fmt.Sprintf("unsupported driver %q", db.Driver)}
	}
}
