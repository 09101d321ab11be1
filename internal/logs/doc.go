// Package logs reads the clipquiz.log file written by the logging package.
//
// Tail supports "last N lines" reads, resumable offsets for follow mode, and
// substring filtering so `clipquiz logs --job <id>` can isolate one conversion.
package logs
