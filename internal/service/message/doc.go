// Package message applies decoded delivery events to message lifecycle
// state. Transitions follow a fixed table, invalid pairs are ignored but
// still recorded, and status updates use compare-and-swap so concurrent
// webhook deliveries cannot clobber each other.
package message
