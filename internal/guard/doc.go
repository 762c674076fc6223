// Package guard decides whether a navigation may render, must wait for the
// session to settle, or must be redirected.
package guard
