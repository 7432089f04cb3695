// Package store persists analysis reports in a SQLite history database
// through gorm. The pure-Go glebarez driver keeps the binary cgo-free.
package store
