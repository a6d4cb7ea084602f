package domain

import "errors"

// ErrSessionNotFound is returned when a session ID cannot be found in the store.
var ErrSessionNotFound = errors.New("session not found")

// ErrPageNotFound is returned when a page ID is unknown to the loader.
var ErrPageNotFound = errors.New("page not found")

// ErrPageComplete is returned when an attempt is submitted to a completed page.
var ErrPageComplete = errors.New("page already complete")

// ErrAuthoring marks a broken lesson definition (malformed descriptor, unknown
// predicate, canonical program that does not parse). It is never a learner verdict.
var ErrAuthoring = errors.New("authoring error")
