// Package middleware provides HTTP middleware for the asset index server:
// request logging through the leveled logger, and Prometheus request
// metrics labelled by route template.
package middleware
