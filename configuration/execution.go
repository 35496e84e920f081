package configuration

import (
	"runtime"
	"time"
)

type ExecutionConfiguration struct {
	WorkerCount     int
	GroupTimeout    time.Duration
	MaxGroupRetries uint64
	RetryBackoff    time.Duration
}

func DefExecutionConfiguration() *ExecutionConfiguration {
	return &ExecutionConfiguration{
		WorkerCount:     runtime.NumCPU(),
		GroupTimeout:    5 * time.Second,
		MaxGroupRetries: 1,
		RetryBackoff:    10 * time.Millisecond,
	}
}

func (config *ExecutionConfiguration) Check() *ExecutionConfiguration {
	conf := *config
	if conf.WorkerCount <= 0 {
		conf.WorkerCount = DefExecutionConfiguration().WorkerCount
	}
	if conf.GroupTimeout <= 0 {
		conf.GroupTimeout = DefExecutionConfiguration().GroupTimeout
	}
	if conf.RetryBackoff <= 0 {
		conf.RetryBackoff = time.Millisecond
	}

	return &conf
}
