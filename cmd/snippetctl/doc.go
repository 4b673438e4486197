// Package main implements snippetctl, a terminal front end to the snippet
// catalog and runner.
//
//	snippetctl list --category component
//	snippetctl source js/uniq.js
//	snippetctl run --html jsx/Counter.jsx
package main
