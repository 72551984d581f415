// Package database persists user accounts and path-keyed properties in
// SQLite. Properties carry the cached content hashes so they need not be
// recomputed on every access; user records carry the bcrypt password hash
// and the per-user quota limit.
package database
