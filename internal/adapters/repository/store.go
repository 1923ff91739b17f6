// Package repository stores items and reports as JSON documents addressed by
// hierarchical paths, and provides typed access to them through Catalog.
package repository

import (
	"context"
	"sort"
	"strings"
	"unicode/utf8"
)

// Document is one stored record and the path it lives at.
type Document struct {
	Path string
	Body []byte
}

// Store is a hierarchical document store.
//
// Paths are slash separated segments such as "reports/{itemId}/{key}".
// Every call is a single bounded request; failures are returned wrapped
// with ErrUnavailable and never retried.
type Store interface {
	// Get returns the body stored at path or ErrNotFound.
	Get(ctx context.Context, path string) ([]byte, error)
	// List returns every document below prefix, ordered by path.
	// An empty result is not an error.
	List(ctx context.Context, prefix string) ([]Document, error)
	// Set writes the whole body at path, replacing any previous body.
	Set(ctx context.Context, path string, body []byte) error
	// Remove deletes path and everything below it. Removing a missing
	// path is not an error.
	Remove(ctx context.Context, path string) error
	// Ping checks that the backend is reachable.
	Ping(ctx context.Context) error
	// Close releases backend resources.
	Close() error
}

// childPrefix returns the prefix shared by every path below p.
func childPrefix(p string) string {
	return strings.TrimSuffix(p, "/") + "/"
}

// below reports whether path is p itself or lies under p.
func below(path, p string) bool {
	return path == p || strings.HasPrefix(path, childPrefix(p))
}

// runeLen is the SQL substr length of s.
func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}

func sortDocuments(docs []Document) {
	sort.Slice(docs, func(i, j int) bool { return docs[i].Path < docs[j].Path })
}
