package services

import "time"

// Clock yields the current moment in the service time zone.
type Clock func() time.Time

func NewClock(location *time.Location) Clock {
	if location == nil {
		location = time.Local
	}
	return func() time.Time {
		return time.Now().In(location)
	}
}
