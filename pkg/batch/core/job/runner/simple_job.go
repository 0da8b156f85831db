package runner

import (
	port "github.com/tigerroll/taxiweather/pkg/batch/core/application/port"
)

// SimpleJob is a port.Job made of a fixed, ordered list of steps.
type SimpleJob struct {
	name      string
	steps     []port.Step
	listeners []port.JobExecutionListener
}

// NewSimpleJob creates a job that runs steps in the given order.
func NewSimpleJob(name string, steps []port.Step, listeners []port.JobExecutionListener) *SimpleJob {
	return &SimpleJob{name: name, steps: steps, listeners: listeners}
}

// JobName returns the job name.
func (j *SimpleJob) JobName() string { return j.name }

// Steps returns the steps in execution order.
func (j *SimpleJob) Steps() []port.Step { return j.steps }

// Listeners returns the job listeners.
func (j *SimpleJob) Listeners() []port.JobExecutionListener { return j.listeners }

var _ port.Job = (*SimpleJob)(nil)
