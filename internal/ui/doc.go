// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI walks through the preference hierarchy:
//  1. [DomainListView] : Browse domains with their combined frequency
//  2. [ItemListView] : Email types in a domain, plus an "all emails" row when the domain has a bulk control
//  3. [FrequencyView] : Pick a frequency for the selected type or domain
//  4. [ConfirmView] : Confirm an unsubscribe, driven by an unsubscribe.Machine
//
// A status line under every view reports the last outcome. Errors such as a
// required type being unsubscribed or the backend rate limiting a resend are
// rendered there rather than dropped.
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern, receiving messages via the Msg union type.
// Progress updates flow through a channel from the PreferenceEngine, providing non-blocking status reporting.
//
// Keyboard navigation uses vim-style bindings (j/k, enter, esc, y/n, q) with contextual help displayed via charmbracelet/bubbles/help.
package ui
