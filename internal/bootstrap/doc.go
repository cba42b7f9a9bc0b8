// Package bootstrap brings a freshly started process from cold to serving.
//
// A web process runs wait-for-db, migrate, collectstatic and then launches the
// HTTP server. A worker process only waits for the database before it starts
// consuming jobs. Stages run strictly in order and the first failure aborts the
// sequence; nothing is retried except the bounded readiness poll.
package bootstrap
