// Package redis provides Redis connectivity with URL-based
// configuration, connection retry, and a healthcheck probe.
package redis
