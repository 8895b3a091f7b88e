package workload

import (
	"sync"
	"time"
)

// Builder can build random access agents.
type Builder struct {
	maxAddress uint64
	writeLeft  int
	readLeft   int
	seed       int64
	progress   ProgressTracker
	locker     sync.Locker
}

// MakeBuilder creates a builder with default parameters.
func MakeBuilder() Builder {
	return Builder{
		maxAddress: 1 << 20,
		writeLeft:  1000,
		readLeft:   1000,
	}
}

// WithMaxAddress sets the exclusive upper bound of the generated addresses.
func (b Builder) WithMaxAddress(addr uint64) Builder {
	b.maxAddress = addr
	return b
}

// WithWriteLeft sets the number of writes to issue.
func (b Builder) WithWriteLeft(write int) Builder {
	b.writeLeft = write
	return b
}

// WithReadLeft sets the number of reads to issue.
func (b Builder) WithReadLeft(read int) Builder {
	b.readLeft = read
	return b
}

// WithSeed sets the random seed. A zero seed is replaced by the current time.
func (b Builder) WithSeed(seed int64) Builder {
	b.seed = seed
	return b
}

// WithProgress sets where the agent reports finished accesses.
func (b Builder) WithProgress(p ProgressTracker) Builder {
	b.progress = p
	return b
}

// WithLocker sets the lock held during every access.
func (b Builder) WithLocker(l sync.Locker) Builder {
	b.locker = l
	return b
}

// Build creates the agent.
func (b Builder) Build() *Agent {
	if b.maxAddress == 0 {
		panic("max address must be positive")
	}

	seed := b.seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	agent := newAgent(seed)
	agent.MaxAddress = b.maxAddress
	agent.WriteLeft = b.writeLeft
	agent.ReadLeft = b.readLeft
	agent.progress = b.progress
	agent.locker = b.locker

	return agent
}
