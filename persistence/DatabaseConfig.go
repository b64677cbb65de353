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

// ParseDatabaseConfigFromEnv reads DATABASE_DRIVER (default "mysql") and
// DATABASE_URL, e.g. root:root@(127.0.0.1:3306)/upkeep?charset=utf8mb4&parseTime=True&loc=Local
func ParseDatabaseConfigFromEnv() (*DatabaseConfig, error) {
	driver := os.Getenv("DATABASE_DRIVER")
	if driver == "" {
		driver = "mysql"
	}
	args := os.Getenv("DATABASE_URL")
	if args == "" {
		return nil, errors.New("environment variable DATABASE_URL is not set")
	}
	return &DatabaseConfig{DriverType: driver, DriverArgs: args}, nil
}

// PrepareMysqlDatabase creates the database named in the DSN when absent.
func PrepareMysqlDatabase(driverArgs string) error {
	idx := strings.Index(driverArgs, "/")
	if idx < 0 {
		return errors.New("invalid database connection string: " + driverArgs)
	}
	databaseAndParams := driverArgs[idx+1:]
	databaseName := databaseAndParams
	if paramsIdx := strings.Index(databaseAndParams, "?"); paramsIdx >= 0 {
		databaseName = databaseAndParams[0:paramsIdx]
	}
	if databaseName == "" {
		return errors.New("database name is empty in connection string: " + driverArgs)
	}

	db, err := sql.Open("mysql", driverArgs[0:idx+1])
	if err != nil {
		return err
	}
	defer db.Close()
	_, err = db.Exec("CREATE DATABASE IF NOT EXISTS " + databaseName +
		" DEFAULT CHARACTER SET utf8mb4 DEFAULT COLLATE utf8mb4_bin")
	return err
}
