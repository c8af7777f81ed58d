// Package suppression maintains the list of addresses that must not be
// mailed. Entries are idempotent and first-reason-wins: once an address is
// suppressed, later suppressions for any reason leave the original row
// untouched. Reads optionally go through a Redis cache.
package suppression
