// Package server wires the catalog, runner and transports into one gin
// router behind gzip compression.
package server
