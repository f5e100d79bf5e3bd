// Package config loads typed configuration structs from environment
// variables, with optional .env support for local development.
//
// Struct fields declare their sources with `env` tags (caarlos0/env
// syntax), including required markers and defaults. Parsed values are
// cached per struct type for the process lifetime.
package config
