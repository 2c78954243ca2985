// Package appfs embeds the files the binaries ship with: SQL migrations, templates & static assets.
package appfs

import "embed"

//go:embed migrations all:templates assets
var FS embed.FS

const (
	MigrationsDir       = "migrations"
	EmailTemplatesDir   = "templates/email"
	ConsoleTemplatesDir = "templates/console"
	CommonPasswordsFile = "assets/common-passwords.txt"
)
