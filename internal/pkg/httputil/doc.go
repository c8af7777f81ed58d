// Package httputil provides small helpers shared by all HTTP handlers:
// consistent JSON responses and a standard error envelope.
package httputil
