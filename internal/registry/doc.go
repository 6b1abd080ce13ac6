// Package registry tracks the set of sessions under watch. Identifiers
// are canonicalized to integers on entry, so "05" and "5" name the same
// session.
package registry
