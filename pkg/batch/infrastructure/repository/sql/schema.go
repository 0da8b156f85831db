package sql

import (
	"time"

	model "github.com/tigerroll/taxiweather/pkg/batch/core/domain/model"
)

// JobExecutionEntity is the persisted form of model.JobExecution.
type JobExecutionEntity struct {
	ID               string              `gorm:"primaryKey;size:36"`
	JobName          string              `gorm:"size:100;index"`
	Parameters       model.JobParameters `gorm:"type:text"`
	StartTime        time.Time
	EndTime          *time.Time
	Status           model.JobStatus   `gorm:"size:20"`
	ExitStatus       model.ExitStatus  `gorm:"size:20"`
	Failures         model.FailureList `gorm:"type:text"`
	CreateTime       time.Time
	LastUpdated      time.Time
	ExecutionContext model.ExecutionContext `gorm:"type:text"`
	CurrentStepName  string                 `gorm:"size:100"`
}

func (JobExecutionEntity) TableName() string {
	return "batch_job_execution"
}

// StepExecutionEntity is the persisted form of model.StepExecution.
type StepExecutionEntity struct {
	ID               string `gorm:"primaryKey;size:36"`
	StepName         string `gorm:"size:100"`
	JobExecutionID   string `gorm:"size:36;index"`
	StartTime        time.Time
	EndTime          *time.Time
	Status           model.JobStatus   `gorm:"size:20"`
	ExitStatus       model.ExitStatus  `gorm:"size:20"`
	Failures         model.FailureList `gorm:"type:text"`
	ReadCount        int
	WriteCount       int
	FilterCount      int
	ExecutionContext model.ExecutionContext `gorm:"type:text"`
	LastUpdated      time.Time
}

func (StepExecutionEntity) TableName() string {
	return "batch_step_execution"
}
