// Package tgui provides small helpers for Telegram HTML messages:
//   - escaping and tag builders (Esc, B, Field)
//   - line accumulation for multi-line cards
//   - rune-safe truncation and chunking under the message limit
package tgui
