package ratelimit

// Limits holds the effective rate limit settings for the service.
// Reads are never limited; every mutation route shares the same per-user
// window since replication cost does not vary much by payload.
type Limits struct {
	UserLimit     int64
	GlobalLimit   int64
	WindowSeconds int
}

// DefaultLimits are used when configuration does not override them.
var DefaultLimits = Limits{
	UserLimit:     120,
	GlobalLimit:   2000,
	WindowSeconds: 60,
}

// Normalize fills zero fields from the defaults.
func (l Limits) Normalize() Limits {
	out := l
	if out.UserLimit <= 0 {
		out.UserLimit = DefaultLimits.UserLimit
	}
	if out.GlobalLimit <= 0 {
		out.GlobalLimit = DefaultLimits.GlobalLimit
	}
	if out.WindowSeconds <= 0 {
		out.WindowSeconds = DefaultLimits.WindowSeconds
	}
	return out
}
