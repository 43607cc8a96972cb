// Package migrations embeds the SQL schema of the postgres document store.
package migrations

import _ "embed"

//go:embed 001_documents.up.sql
var DocumentsUp string
