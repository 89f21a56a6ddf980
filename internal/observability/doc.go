// Package observability records taskdesk workflow events in a JSON Lines
// file and derives metrics and alerts from them on demand.
package observability
