package database

import (
	coreconfig "github.com/trilokanam-ux/trilokana-telegram-bot/core/config"
)

// Config holds Postgres connection settings for the database record sink.
// It is an alias of coreconfig.DatabaseConfig; the struct lives in
// core/config to avoid an import cycle (config -> database -> logger ->
// config).
type Config = coreconfig.DatabaseConfig
