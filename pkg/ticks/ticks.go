// Package ticks converts between wire tick counts and wall-clock time.
// Unlike STTP's fixed 100-nanosecond tick, this protocol's tick duration
// is per-signal: a domain signal's Resolution gives seconds-per-tick, so
// conversion always takes a resolution and an epoch alongside the count.
package ticks

import (
	"time"

	"github.com/shopspring/decimal"
)

// Tick is a raw, unit-less wire tick count.
type Tick uint64

// UnixEpoch is the default absolute reference used when a domain signal
// does not declare one explicitly.
const UnixEpoch = "1970-01-01"

// ToTime converts a tick count to a wall-clock time given the signal's
// resolution (seconds per tick, as numerator/denominator) and epoch.
func ToTime(tick Tick, numerator, denominator int64, epoch time.Time) time.Time {
	if denominator == 0 {
		return epoch
	}

	secondsPerTick := decimal.NewFromInt(numerator).Div(decimal.NewFromInt(denominator))
	elapsed := secondsPerTick.Mul(decimal.NewFromInt(int64(tick)))

	wholeSeconds := elapsed.IntPart()
	fractional := elapsed.Sub(decimal.NewFromInt(wholeSeconds))
	nanos := fractional.Mul(decimal.NewFromInt(int64(time.Second))).IntPart()

	return epoch.Add(time.Duration(wholeSeconds)*time.Second + time.Duration(nanos))
}

// FromTime converts a wall-clock time to a tick count given the signal's
// resolution and epoch. Lossy when the resolution does not evenly divide
// a second, matching the wire format's own integer tick representation.
func FromTime(t time.Time, numerator, denominator int64, epoch time.Time) Tick {
	if numerator == 0 {
		return 0
	}

	elapsedSeconds := decimal.NewFromFloat(t.Sub(epoch).Seconds())
	ticksPerSecond := decimal.NewFromInt(denominator).Div(decimal.NewFromInt(numerator))

	return Tick(elapsedSeconds.Mul(ticksPerSecond).IntPart())
}

// ParseEpoch parses the textual absolute reference (ISO-8601 date or
// date-time) used by a domain signal descriptor, defaulting to UnixEpoch
// when empty.
func ParseEpoch(value string) (time.Time, error) {
	if value == "" {
		value = UnixEpoch
	}

	return parseFlexibleDate(value)
}
