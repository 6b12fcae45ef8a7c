// Package notify renders monitor events for the operator and forwards the
// important ones to a system notification sink.
package notify

import "pfwatch/internal/model"

// StatusKind classifies a status line.
type StatusKind int

// Status kinds, roughly ordered by severity.
const (
	Dim StatusKind = iota
	Info
	OK
	Warn
	Error
)

// Notifier consumes monitor events. The monitor decides when an event is
// raised and whether a system notification is allowed; formatting and
// delivery belong to the Notifier.
type Notifier interface {
	NotifyFound(listings []model.Listing, label string, allowSystem bool)
	NotifyExpired(l model.Listing, reason string)
	NotifyUpdated(l model.Listing)
	ShowStatus(kind StatusKind, text string)
	ShowListings(title string, listings []model.Listing)
}

// Sender delivers a plain-text system notification.
type Sender interface {
	SendNotification(text string)
}
