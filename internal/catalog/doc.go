// Package catalog discovers snippet files under a directory tree, classifies
// them as scripts or components, and serves their exact source text.
package catalog
