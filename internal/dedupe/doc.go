// Package dedupe tracks which transcript entries have already been counted,
// so an entry copied into several session files is tallied once.
package dedupe
