// Package store holds the in-memory job registry. Jobs live only for the
// lifetime of the process: cross-restart persistence is deliberately out
// of scope, the registry exists so the API can answer status queries and
// hand back artifacts while orchestrations are running or shortly after
// they finish.
package store
