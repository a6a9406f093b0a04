// Package singleowner asserts that a value is driven by at most one
// goroutine at a time.
//
// The provider deliberately carries no locks: its contract is external
// serialization, and hiding races behind a mutex would only mask caller
// bugs. Guard makes that contract checkable. In regular builds every
// method is a no-op that compiles away; building with the singleowner
// tag turns cross-goroutine access into a panic with both goroutine ids:
//
//	go test -tags singleowner ./...
package singleowner
