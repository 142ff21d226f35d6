package timeutil

import "time"

// Now returns the current time in UTC. Payment timestamps are always stored
// and compared in UTC; using this instead of time.Now() keeps the database
// rows and the JSON metadata consistent regardless of host timezone.
func Now() time.Time {
	return time.Now().UTC()
}
