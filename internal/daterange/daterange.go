// Package daterange works out which calendar dates an export covers.
package daterange

import "time"

const (
	DateLayout  = "2006-01-02"
	DefaultDays = 90
)

type Range struct {
	Start string
	End   string
}

func (r Range) String() string {
	return r.Start + ".." + r.End
}

type Resolver struct {
	Days     int
	Location *time.Location
	Now      func() time.Time
}

func NewResolver(days int, loc *time.Location) *Resolver {
	if loc == nil {
		loc = time.Local
	}
	return &Resolver{
		Days:     days,
		Location: loc,
		Now:      time.Now,
	}
}

// Resolve returns start and end unchanged when both are set. Otherwise the
// range ends today and starts Days days earlier.
func (r *Resolver) Resolve(start, end string) Range {
	if start != "" && end != "" {
		return Range{Start: start, End: end}
	}

	today := r.today()
	return Range{
		Start: today.AddDate(0, 0, -r.Days).Format(DateLayout),
		End:   today.Format(DateLayout),
	}
}

// Today is the resolver's current calendar date.
func (r *Resolver) Today() string {
	return r.today().Format(DateLayout)
}

func (r *Resolver) today() time.Time {
	now := time.Now
	if r.Now != nil {
		now = r.Now
	}
	loc := r.Location
	if loc == nil {
		loc = time.Local
	}
	t := now().In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}
