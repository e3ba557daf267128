// Package main hosts the harvester entrypoint.
//
// Architecture overview:
//   - Commands: harvest (date pass plus optional image pass), assets (image
//     pass over an existing artifact), dataset (labelled dataset builder) and
//     extract (inference pass). Flags override config keys loaded by viper.
//   - Engine: internal/batch splits work into batches of at most P units, runs
//     each batch with one goroutine per unit, merges successes into a
//     last-writer-wins collection, and pauses a fixed delay between batches.
//     Failed units are logged and dropped; there are no retries.
//   - Transport: one preconfigured colly collector, cloned per request, with an
//     optional per-host token bucket on top of the batch cap.
//   - Persistence: the artifact is a JSON file written atomically. Images go to
//     a local directory, GCS or an S3-compatible bucket and are never
//     overwritten. Harvested days can be upserted into Postgres and a run
//     summary published to Pub/Sub.
//   - Observability: zap logs, Prometheus counters, and a progress hub whose
//     latest snapshot is served on /progress when metrics.listen_addr is set.
//
// Quick checklist:
//   - Configure env vars with the HARVESTER_ prefix (HARVESTER_API_BASE_URL,
//     HARVESTER_ASSETS_BACKEND, HARVESTER_DB_DSN, ...) or a .env file.
//   - Run locally: go run ./cmd/harvester harvest -s 2024-01-01 -e 2024-01-31 -d
package main
