package syncer

import "time"

// Config bounds the sync pipeline.
type Config struct {
	// Workers is the number of tasks processed concurrently.
	Workers int

	// QueueSize is the capacity of the pending-task channel.
	QueueSize int

	// MaxAttempts counts the first try.
	MaxAttempts int

	// RetryBase is multiplied by the attempt number to get the delay
	// before the next attempt.
	RetryBase time.Duration

	// FetchLimit caps a Pull; zero fetches everything.
	FetchLimit int
}

// DefaultConfig returns the production settings.
func DefaultConfig() Config {
	return Config{
		Workers:     4,
		QueueSize:   64,
		MaxAttempts: 3,
		RetryBase:   250 * time.Millisecond,
		FetchLimit:  500,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Workers <= 0 {
		c.Workers = d.Workers
	}
	if c.QueueSize <= 0 {
		c.QueueSize = d.QueueSize
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = d.MaxAttempts
	}
	if c.RetryBase <= 0 {
		c.RetryBase = d.RetryBase
	}
	if c.FetchLimit < 0 {
		c.FetchLimit = 0
	}
	return c
}
