// Package pg provides PostgreSQL connectivity on top of pgx: pooled
// connections with retry, error classification helpers, goose
// migration running, and a healthcheck probe.
package pg
