// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package cliparse handles command-line argument parsing and configuration.

# Configuration

ParseFlags returns a Config struct with all settings:

	_ = cliparse.LoadDotEnv()
	cfg, err := cliparse.ParseFlags(os.Args[1:])

Sources are layered, highest precedence first:

 1. command-line flags
 2. environment variables (optionally seeded from .env by LoadDotEnv)
 3. the TOML file named by -config or ASKANY_CONFIG
 4. Defaults()

# CLI Flags and Environment Variables

	-p                 PORT               server port (default 5001)
	-store             ASKANY_STORE       redis or memory
	-redis-addr        REDIS_ADDR         host:port (REDIS_HOST/REDIS_PORT also accepted)
	-redis-password    REDIS_PASSWORD
	-redis-db          REDIS_DB
	-store-timeout     STORE_TIMEOUT      per-call deadline (default 3s)
	-t                 DATABASE_TYPE      sqlite or postgres
	-d                 DATABASE_URL       archive database
	-stats-file        STATS_FILE         durable stats snapshot (default data/stats.json)
	-retention         RETENTION_WINDOW   session lifetime (default 168h)
	-retention-cron    RETENTION_CRON     cron with seconds (default 0 0 4 * * *)
	-stats-sync-cron   STATS_SYNC_CRON
	-daily-stats-cron  DAILY_STATS_CRON
	-stars-repo        STARS_REPO         owner/name
	-stars-refresh     STARS_REFRESH
	-cors-origins      CORS_ORIGINS       comma-separated
	-log-level         LOG_LEVEL          debug, info, warn, error
	-log-format        LOG_FORMAT         text or json

# Validation

ParseFlags returns an error for unknown store or database types, a
postgres database without a URL, non-positive durations, and unparseable
log settings.
*/
package cliparse
