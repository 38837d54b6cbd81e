package store

import "embed"

// Migrations embeds the goose migration set applied by RunMigrations.
//
//go:embed migrations/*.sql
var Migrations embed.FS
