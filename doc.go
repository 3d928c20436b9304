// Command transit-ingest moves public-transit route data from the route REST
// API into Pub/Sub, Cloud Storage and a warehouse table.
//
// Architecture overview:
//   - fetch: for each configured route ID, GET <base_url>?codsint=<id> through a Colly collector with a fixed
//     delay between attempts. A valid JSON body is published verbatim to the topic (blocking on the server ack),
//     then written to a scratch file, uploaded as message_<id>.json and the scratch file removed. Failures after
//     the publish are logged and never undo it. One failed route never stops the cycle.
//   - flatten: reads NDJSON from a file, stdin, a gs:// object or a Pub/Sub subscription. Each record is decoded
//     into an untyped tree and expanded lazily into one row per (schedule window, stop, service); rows are batched
//     into BigQuery streaming inserts or Postgres COPY. Bad lines are skipped, a sink failure is fatal.
//   - Configuration & plumbing: Viper loads YAML plus TRANSIT_* env overrides; zap provides structured logging;
//     Prometheus counters and histograms are served on /metrics when metrics.enabled is set.
//
// Quick checklist:
//   - fetch: TRANSIT_PUBSUB_PROJECT_ID, TRANSIT_PUBSUB_TOPIC_ID, TRANSIT_STORAGE_GCS_BUCKET.
//   - flatten: --input_path or --input_subscription, --output_table, TRANSIT_WAREHOUSE_PROJECT_ID for dataset.table specs.
//   - Local runs: set pubsub.provider, storage.provider and warehouse.provider to memory or local.
package main
