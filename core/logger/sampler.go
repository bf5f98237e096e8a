package logger

import (
	"strconv"
	"strings"
	"sync/atomic"
)

const defaultSampleEvery = 50

// everyN lets the first of every n calls through. n <= 1 lets all calls through.
type everyN struct {
	n     atomic.Int64
	calls atomic.Uint64
}

func (s *everyN) Set(n int) {
	s.n.Store(int64(n))
	s.calls.Store(0)
}

func (s *everyN) Allow() bool {
	n := s.n.Load()
	if n <= 1 {
		return true
	}
	return (s.calls.Add(1)-1)%uint64(n) == 0
}

// parseSampleEvery reads LOG_DEBUG_SAMPLE, written as "N" or "1/N". "0" and
// "off" log every update; anything unreadable keeps the default.
func parseSampleEvery(spec string) int {
	spec = strings.ToLower(strings.TrimSpace(spec))
	switch spec {
	case "":
		return defaultSampleEvery
	case "0", "off":
		return 1
	}
	n, err := strconv.Atoi(strings.TrimPrefix(spec, "1/"))
	if err != nil || n < 1 {
		return defaultSampleEvery
	}
	return n
}
