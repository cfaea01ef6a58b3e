package announce

import (
	"context"
	"time"
)

// Target is one webhook destination for match announcements.
type Target struct {
	Platform string
	Endpoint string
	Secret   string
}

type Config struct {
	Targets             []Target
	Workers             int
	RetryMax            int
	RetryBase           time.Duration
	FailureThreshold    int
	CircuitOpenDuration time.Duration
	RequestTimeout      time.Duration
	DispatchBuffer      int
}

func (c Config) withDefaults() Config {
	if c.Workers <= 0 {
		c.Workers = 2
	}
	if c.RetryMax < 0 {
		c.RetryMax = 0
	}
	if c.RetryBase <= 0 {
		c.RetryBase = 500 * time.Millisecond
	}
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = 3
	}
	if c.CircuitOpenDuration <= 0 {
		c.CircuitOpenDuration = 30 * time.Second
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = 5 * time.Second
	}
	if c.DispatchBuffer <= 0 {
		c.DispatchBuffer = 256
	}
	return c
}

type Field struct {
	Name   string
	Value  string
	Inline bool
}

// Message is the platform-neutral announcement body.
type Message struct {
	Title     string
	Content   string
	Color     int
	Timestamp string
	Fields    []Field
	Raw       any
}

// Adapter delivers a message to one platform.
type Adapter interface {
	Name() string
	Send(ctx context.Context, endpoint, secret string, msg Message) error
}

type job struct {
	Target  Target
	Message Message
	Attempt int
}

func (j job) key() string {
	return j.Target.Platform + "|" + j.Target.Endpoint
}
