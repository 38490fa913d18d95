// Package clock supplies the current time in the configured timezone so
// every component stamps events consistently and tests can freeze time.
package clock

import "time"

type Clock interface {
	Now() time.Time
}

type Real struct {
	loc *time.Location
}

func NewReal(loc *time.Location) *Real {
	if loc == nil {
		loc = time.UTC
	}
	return &Real{loc: loc}
}

func (c *Real) Now() time.Time { return time.Now().In(c.loc) }

// Fake is a settable clock for tests.
type Fake struct {
	Current time.Time
}

func (c *Fake) Now() time.Time { return c.Current }

func (c *Fake) Advance(d time.Duration) { c.Current = c.Current.Add(d) }
