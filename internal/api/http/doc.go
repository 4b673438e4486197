// Package http exposes the snippet catalog and evaluator over gin.
//
// Snippet ids contain slashes and are passed URL-escaped in a single path
// segment, for example /snippets/js%2Farrays.js/evaluate. The router must
// set UseRawPath for such ids to match.
package http
