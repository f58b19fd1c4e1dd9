// Package unsubscribe gates transitions to "none" behind an explicit confirmation.
//
// A [Machine] holds at most one pending [Target]. Requests made while a target is pending replace it.
// Required email types are rejected at request time and never reach the confirming state.
package unsubscribe
