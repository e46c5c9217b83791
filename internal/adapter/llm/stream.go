package llm

import (
	"iter"
	"strings"
	"sync/atomic"
)

// singleUse lets seq run once; later iterations yield ErrStreamConsumed.
func singleUse(seq iter.Seq2[string, error]) iter.Seq2[string, error] {
	var used atomic.Bool
	return func(yield func(string, error) bool) {
		if !used.CompareAndSwap(false, true) {
			yield("", ErrStreamConsumed)
			return
		}
		seq(yield)
	}
}

// failedStream yields err once.
func failedStream(err error) iter.Seq2[string, error] {
	return singleUse(func(yield func(string, error) bool) {
		yield("", err)
	})
}

// Collect drains a stream and returns the concatenated fragments. The first
// error stops collection and is returned with the content read so far.
func Collect(stream iter.Seq2[string, error]) (string, error) {
	var sb strings.Builder
	for fragment, err := range stream {
		if err != nil {
			return sb.String(), err
		}
		sb.WriteString(fragment)
	}
	return sb.String(), nil
}
