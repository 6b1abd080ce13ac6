// Package dedupe provides a time-based seen-cache used to suppress
// repeated eviction alerts for the same session within a window.
package dedupe
