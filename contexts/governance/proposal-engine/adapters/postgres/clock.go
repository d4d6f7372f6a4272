package postgresadapter

import "time"

// SystemClock is the default runtime clock implementation. Times are
// truncated to the microsecond precision of timestamptz so values read back
// from the store equal the ones written.
type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}
