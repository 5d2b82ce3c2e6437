// ABOUTME: Matcher selects asset keys for bulk cache operations
// ABOUTME: Unifies exact key, key set and predicate selection behind one interface

package domain

import "regexp"

// Matcher selects asset keys
type Matcher interface {
	Match(key string) bool
}

// Key matches exactly one asset key
type Key string

// Match implements Matcher
func (k Key) Match(key string) bool { return string(k) == key }

// KeySet matches membership in a set of keys
type KeySet map[string]struct{}

// Match implements Matcher
func (s KeySet) Match(key string) bool {
	_, ok := s[key]
	return ok
}

// Keys builds a KeySet
func Keys(keys ...string) KeySet {
	s := make(KeySet, len(keys))
	for _, k := range keys {
		s[k] = struct{}{}
	}
	return s
}

// MatchFunc is a predicate over keys
type MatchFunc func(key string) bool

// Match implements Matcher
func (f MatchFunc) Match(key string) bool { return f(key) }

// Pattern matches keys against a regular expression
func Pattern(re *regexp.Regexp) Matcher {
	return MatchFunc(re.MatchString)
}

// All matches every key
func All() Matcher {
	return MatchFunc(func(string) bool { return true })
}

// Matches reports whether m selects key; a nil matcher selects nothing
func Matches(m Matcher, key string) bool {
	return m != nil && m.Match(key)
}
