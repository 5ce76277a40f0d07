// Package database opens the catalog's relational store through GORM.
//
// It selects a driver by name ("sqlite" or "postgres"), retries the initial
// connection with linear backoff, configures the pool, routes GORM's own
// logging through logger.Logger and translates driver errors into
// AppErrors for the HTTP layer. Component wraps DB for the component
// registry and can run AutoMigrate on start.
package database
