// Package main runs the snippet server.
//
// The server indexes a snippet tree and serves evaluation results over
// HTTP and a WebSocket stream:
//
//	GET  /snippets                list the catalog (?category=script|component)
//	GET  /snippets/:id/source     exact source text
//	POST /snippets/:id/evaluate   evaluate and return the result as JSON
//	GET  /snippets/:id/view       evaluate and return an HTML page
//	GET  /stream                  select snippets, receive result frames
//	GET  /metrics                 Prometheus metrics
//
// Snippet ids contain slashes and must be URL-escaped in paths
// (js%2Funiq.js).
//
// Configuration comes from the environment (PORT, SNIPPETS_DIR,
// EVAL_TIMEOUT, LOG_LEVEL, ...) and can be overridden with flags:
//
//	./server -port 8000 -dir ./tasks -dev
//
// SIGINT and SIGTERM trigger a graceful shutdown.
package main
