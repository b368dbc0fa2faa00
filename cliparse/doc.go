// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package cliparse handles command-line argument parsing and configuration.

# Configuration

ParseFlags returns a Config struct with all settings:

	cfg, err := cliparse.ParseFlags(os.Args[1:])

Sources, lowest precedence first:

 1. defaults (envDefault tags)
 2. a .env file (ENV_FILE, default .env; missing is fine)
 3. process environment, parsed with github.com/caarlos0/env/v11
 4. CLI flags

Values from the .env file never replace variables already set in the process
unless ENV_OVERRIDE=true.

# CLI Flags

	-d                Database URL
	-t                Database type (postgres or sqlite)
	-api-url          Launches query endpoint
	-page-size        Launches per page
	-max-pages        Page cap per run
	-timeout          HTTP timeout per request
	-max-attempts     Attempts per page on transient failures
	-retry-delay      Initial retry backoff
	-max-retry-delay  Retry backoff cap
	-log-level        debug, info, warn or error
	-log-format       text or json
	-pushgateway      Pushgateway URL for run metrics

# Environment Variables

	DATABASE_TYPE     → -t (default postgres)
	DATABASE_URL      → -d
	POSTGRES_USER, POSTGRES_PASSWORD, POSTGRES_DB,
	POSTGRES_HOST, POSTGRES_PORT, POSTGRES_SSLMODE
	                  → used to build DATABASE_URL when it is unset
	API_URL           → -api-url (required)
	API_PAGE_SIZE     → -page-size (default 50)
	API_MAX_PAGES     → -max-pages (default 1000)
	API_TIMEOUT       → -timeout (default 30s)
	API_MAX_ATTEMPTS  → -max-attempts (default 5)
	API_RETRY_DELAY   → -retry-delay (default 1s)
	API_MAX_RETRY_DELAY → -max-retry-delay (default 30s)
	LOG_LEVEL         → -log-level (default info)
	LOG_FORMAT        → -log-format (default text)
	PUSHGATEWAY_URL   → -pushgateway

# Errors

Every invalid or missing setting is reported at once in a *ConfigError.
-h returns flag.ErrHelp unwrapped.
*/
package cliparse
