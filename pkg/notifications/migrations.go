package notifications

import "embed"

// Migrations holds the goose migrations for PostgresStorage, the template
// store and the contact table read by the dispatcher address book.
//
//go:embed migrations/*.sql
var Migrations embed.FS

// MigrationsDir is the directory inside Migrations passed to pg.Migrate.
const MigrationsDir = "migrations"
