// Package db provides the embedded database schema and sample catalog.
package db

import _ "embed"

// Schema contains the DDL statements for all application tables.
//
//go:embed migrations/001_schema.sql
var Schema string

// Products is the sample catalog loaded into an empty store.
//
//go:embed seed/products.json
var Products []byte
