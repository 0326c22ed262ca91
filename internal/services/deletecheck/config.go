package deletecheck

import "time"

// Config holds deletion check settings
type Config struct {
	// StalenessWindow is how long a confirmed identifier goes unchecked
	StalenessWindow time.Duration
	// TimeBudget bounds one run. It is checked between candidates, never mid-candidate.
	TimeBudget time.Duration
	// RunLeaseEnabled guards runs with a store-held lease so overlapping triggers do no work
	RunLeaseEnabled bool
	// ScheduleInterval runs the check in-process on this interval. 0 disables the loop.
	ScheduleInterval time.Duration
}

// DefaultConfig returns the reference deletion check configuration
func DefaultConfig() Config {
	return Config{
		StalenessWindow:  24 * time.Hour,
		TimeBudget:       15 * time.Second,
		RunLeaseEnabled:  true,
		ScheduleInterval: 0,
	}
}

// leaseMargin is added to the time budget for the run lease TTL, covering the
// candidate that is still in flight when the budget runs out
const leaseMargin = 15 * time.Second

func (c Config) leaseTTL() time.Duration {
	return c.TimeBudget + leaseMargin
}
