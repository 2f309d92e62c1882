// Package notifier turns signals into Telegram messages and delivers them.
//
// # Formatting
//
// Formatter is a pure function of the signal and a display timezone. All
// free-form text is HTML-escaped for Telegram's HTML parse mode.
//
// # Delivery
//
// Dispatcher performs exactly one send per call: no queue and no retries.
// Credentials are read on every call so a config reload applies to the next
// signal. Missing credentials are reported before any network traffic.
//
// # History
//
// For operator visibility the dispatcher keeps counters and a small in-memory
// history of recent attempts.
package notifier
