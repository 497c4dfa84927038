package cacheinfra

import (
	"bytes"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/goliatone/go-contact-cache/cache"
)

// envelope wraps a cached payload with the metadata needed to enforce
// absolute and sliding expiration. Timestamps are unix nanoseconds.
type envelope struct {
	Data       []byte `msgpack:"d"`
	WrittenAt  int64  `msgpack:"w"`
	AccessedAt int64  `msgpack:"a"`
	Absolute   int64  `msgpack:"x"`
	Sliding    int64  `msgpack:"s"`
}

func newEnvelope(data []byte, opts cache.EntryOptions, now time.Time) envelope {
	ts := now.UnixNano()
	return envelope{
		Data:       data,
		WrittenAt:  ts,
		AccessedAt: ts,
		Absolute:   int64(opts.AbsoluteExpiration),
		Sliding:    int64(opts.SlidingExpiration),
	}
}

// sameWrite reports whether e and o come from the same Set. Access times are
// ignored.
func (e envelope) sameWrite(o envelope) bool {
	return e.WrittenAt == o.WrittenAt &&
		e.Absolute == o.Absolute &&
		e.Sliding == o.Sliding &&
		bytes.Equal(e.Data, o.Data)
}

func (e envelope) options() cache.EntryOptions {
	return cache.EntryOptions{
		AbsoluteExpiration: time.Duration(e.Absolute),
		SlidingExpiration:  time.Duration(e.Sliding),
	}
}

func (e envelope) deadline() time.Time {
	return e.options().Deadline(time.Unix(0, e.WrittenAt), time.Unix(0, e.AccessedAt))
}

func (e envelope) expired(now time.Time) bool {
	deadline := e.deadline()
	return !deadline.IsZero() && !now.Before(deadline)
}

// ttl returns how long the entry has left at now, or 0 when it never expires.
func (e envelope) ttl(now time.Time) time.Duration {
	deadline := e.deadline()
	if deadline.IsZero() {
		return 0
	}
	return deadline.Sub(now)
}

func encodeEnvelope(e envelope) ([]byte, error) {
	return msgpack.Marshal(&e)
}

func decodeEnvelope(data []byte) (envelope, error) {
	var e envelope
	err := msgpack.Unmarshal(data, &e)
	return e, err
}
