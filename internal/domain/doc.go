// Package domain defines the shared entity types of the delivery event
// pipeline: messages, delivery-status events, suppressions and click
// tracking.
//
// Types here carry no behavior beyond enum validation and the message
// status transition table. Business logic lives in the service packages.
package domain
