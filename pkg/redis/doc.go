// Package redis opens go-redis clients from environment configuration.
//
// Connect parses REDIS_URL, pings the server and retries until
// REDIS_RETRY_ATTEMPTS is exhausted or the connect timeout expires.
// Healthcheck wraps Ping for readiness probes.
package redis
