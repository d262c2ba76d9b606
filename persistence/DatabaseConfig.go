package persistence

import (
	"database/sql"
	"errors"
	"os"
	"strings"
)

type DatabaseConfig struct {
	DriverType string
	DriverArgs string
}

// ParseDatabaseConfigFromEnv DATABASE_DRIVER, DATABASE_URL
func ParseDatabaseConfigFromEnv() (*DatabaseConfig, error) {
	driver := os.Getenv("DATABASE_DRIVER")
	if driver == "" {
		driver = "mysql"
	}
	args := os.ExpandEnv(os.Getenv("DATABASE_URL"))
	if args == "" {
		return nil, errors.New("environment variable DATABASE_URL is not set")
	}
	return &DatabaseConfig{DriverType: driver, DriverArgs: args}, nil
}

// PrepareMysqlDatabase create the database of the dsn when absent.
// dsn format: user:pass@(host:port)/database?params
func PrepareMysqlDatabase(dsn string) error {
	idx := strings.Index(dsn, "/")
	if idx < 0 {
		return errors.New("invalid mysql dsn: " + dsn)
	}
	databaseAndArgs := dsn[idx+1:]
	databaseName := databaseAndArgs
	if argsIdx := strings.Index(databaseAndArgs, "?"); argsIdx >= 0 {
		databaseName = databaseAndArgs[0:argsIdx]
	}
	if databaseName == "" {
		return errors.New("database name is missing in mysql dsn")
	}

	db, err := sql.Open("mysql", dsn[0:idx+1])
	if err != nil {
		return err
	}
	defer db.Close()

	_, err = db.Exec("CREATE DATABASE IF NOT EXISTS " + databaseName +
		" DEFAULT CHARACTER SET utf8mb4 DEFAULT COLLATE utf8mb4_general_ci")
	return err
}
