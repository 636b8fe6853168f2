// Package rules compiles URL pattern tables and matches request URIs against them.
//
// A Table is built once from an ordered list of entries and is read-only
// afterwards, so it can be shared between goroutines without locking.
// Matching is first-declared-wins: a later, more specific pattern never
// overrides an earlier one that also matches.
//
// Each pattern is anchored the same way:
//
//	^/<pattern>($|\?)
//
// so "foo" matches "/foo" and "/foo?x=1" but not "/foobar" or "/a/foo".
package rules
