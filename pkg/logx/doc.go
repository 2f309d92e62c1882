// Package logx is xaubot's structured logging on top of zerolog.
//
// Console output is human readable with a short file:line caller, the
// optional file sink is JSON, and the optional Telegram sink mirrors
// warnings to an operator chat under a rate limit.
package logx
