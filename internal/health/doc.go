// Package health classifies agent liveness from recorded thought
// timestamps. Classification is pure: given the same clock reading and
// thought, it always yields the same verdict.
package health
