package sql

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/fx"

	"github.com/tigerroll/taxiweather/pkg/batch/adapter/database"
	"github.com/tigerroll/taxiweather/pkg/batch/core/config"
	model "github.com/tigerroll/taxiweather/pkg/batch/core/domain/model"
	repository "github.com/tigerroll/taxiweather/pkg/batch/core/domain/repository"
	"github.com/tigerroll/taxiweather/pkg/batch/support/util/exception"
	"github.com/tigerroll/taxiweather/pkg/batch/support/util/logger"
)

const moduleName = "SQLJobRepository"

// SQLJobRepository implements repository.JobRepository on a named database connection.
type SQLJobRepository struct {
	dbResolver database.DBConnectionResolver
	// dbName is the connection holding the batch_* tables.
	dbName string
}

// NewSQLJobRepository creates a new instance of SQLJobRepository.
func NewSQLJobRepository(dbResolver database.DBConnectionResolver, dbName string) *SQLJobRepository {
	return &SQLJobRepository{
		dbResolver: dbResolver,
		dbName:     dbName,
	}
}

func (r *SQLJobRepository) getDBConnection(ctx context.Context) (database.DBConnection, error) {
	conn, err := r.dbResolver.ResolveDBConnection(ctx, r.dbName)
	if err != nil {
		return nil, exception.NewPersistenceError(moduleName, fmt.Sprintf("failed to resolve DB connection '%s'", r.dbName), err)
	}
	return conn, nil
}

// --- JobExecution implementation ---

func (r *SQLJobRepository) SaveJobExecution(ctx context.Context, jobExecution *model.JobExecution) error {
	entity := fromDomainJobExecution(jobExecution)

	conn, err := r.getDBConnection(ctx)
	if err != nil {
		return err
	}
	if _, err := conn.ExecuteUpdate(ctx, entity, "CREATE", entity.TableName(), nil); err != nil {
		return exception.NewPersistenceError(moduleName, fmt.Sprintf("failed to save JobExecution (ID: %s)", jobExecution.ID), err)
	}
	return nil
}

func (r *SQLJobRepository) UpdateJobExecution(ctx context.Context, jobExecution *model.JobExecution) error {
	jobExecution.LastUpdated = time.Now()
	entity := fromDomainJobExecution(jobExecution)

	conn, err := r.getDBConnection(ctx)
	if err != nil {
		return err
	}
	rowsAffected, err := conn.ExecuteUpdate(ctx, entity, "UPDATE", entity.TableName(), nil)
	if err != nil {
		return exception.NewPersistenceError(moduleName, fmt.Sprintf("failed to update JobExecution (ID: %s)", jobExecution.ID), err)
	}
	if rowsAffected == 0 {
		return exception.NewPersistenceError(moduleName, fmt.Sprintf("JobExecution (ID: %s) not found for update", jobExecution.ID), repository.ErrJobExecutionNotFound)
	}
	return nil
}

func (r *SQLJobRepository) FindLatestJobExecution(ctx context.Context, jobName string) (*model.JobExecution, error) {
	var entity JobExecutionEntity

	conn, err := r.getDBConnection(ctx)
	if err != nil {
		return nil, err
	}

	err = conn.ExecuteQueryAdvanced(ctx, &entity, map[string]interface{}{"job_name": jobName}, "start_time desc", 1)
	if err != nil {
		if conn.IsTableNotExistError(err) {
			// The ledger has not been migrated yet, so the job never ran here.
			return nil, repository.ErrJobExecutionNotFound
		}
		return nil, exception.NewPersistenceError(moduleName, fmt.Sprintf("failed to find latest JobExecution for job '%s'", jobName), err)
	}
	if entity.ID == "" {
		return nil, repository.ErrJobExecutionNotFound
	}

	jobExecution := toDomainJobExecution(&entity)

	stepExecutions, err := r.FindStepExecutions(ctx, jobExecution.ID)
	if err != nil {
		logger.Errorf("%s: failed to load StepExecutions for JobExecution (ID: %s): %v", moduleName, jobExecution.ID, err)
		return jobExecution, nil
	}
	for _, se := range stepExecutions {
		se.JobExecution = jobExecution
	}
	jobExecution.StepExecutions = stepExecutions
	return jobExecution, nil
}

// --- StepExecution implementation ---

func (r *SQLJobRepository) SaveStepExecution(ctx context.Context, stepExecution *model.StepExecution) error {
	entity := fromDomainStepExecution(stepExecution)

	conn, err := r.getDBConnection(ctx)
	if err != nil {
		return err
	}
	if _, err := conn.ExecuteUpdate(ctx, entity, "CREATE", entity.TableName(), nil); err != nil {
		return exception.NewPersistenceError(moduleName, fmt.Sprintf("failed to save StepExecution (ID: %s)", stepExecution.ID), err)
	}
	return nil
}

func (r *SQLJobRepository) UpdateStepExecution(ctx context.Context, stepExecution *model.StepExecution) error {
	stepExecution.LastUpdated = time.Now()
	entity := fromDomainStepExecution(stepExecution)

	conn, err := r.getDBConnection(ctx)
	if err != nil {
		return err
	}
	rowsAffected, err := conn.ExecuteUpdate(ctx, entity, "UPDATE", entity.TableName(), nil)
	if err != nil {
		return exception.NewPersistenceError(moduleName, fmt.Sprintf("failed to update StepExecution (ID: %s)", stepExecution.ID), err)
	}
	if rowsAffected == 0 {
		return exception.NewPersistenceError(moduleName, fmt.Sprintf("StepExecution (ID: %s) not found for update", stepExecution.ID), nil)
	}
	return nil
}

func (r *SQLJobRepository) FindStepExecutions(ctx context.Context, jobExecutionID string) ([]*model.StepExecution, error) {
	var entities []StepExecutionEntity

	conn, err := r.getDBConnection(ctx)
	if err != nil {
		return nil, err
	}

	err = conn.ExecuteQueryAdvanced(ctx, &entities, map[string]interface{}{"job_execution_id": jobExecutionID}, "start_time asc", 0)
	if err != nil {
		if conn.IsTableNotExistError(err) {
			return []*model.StepExecution{}, nil
		}
		return nil, exception.NewPersistenceError(moduleName, fmt.Sprintf("failed to find StepExecutions for JobExecution (ID: %s)", jobExecutionID), err)
	}

	result := make([]*model.StepExecution, len(entities))
	for i := range entities {
		result[i] = toDomainStepExecution(&entities[i])
	}
	return result, nil
}

var _ repository.JobRepository = (*SQLJobRepository)(nil)

// JobRepositoryParams defines the dependencies of NewJobRepository.
type JobRepositoryParams struct {
	fx.In
	DBResolver database.DBConnectionResolver
	Cfg        *config.Config
}

// NewJobRepository creates the JobRepository on infrastructure.job_repository_db_ref.
func NewJobRepository(p JobRepositoryParams) repository.JobRepository {
	return NewSQLJobRepository(p.DBResolver, p.Cfg.App.Infrastructure.JobRepositoryDBRef)
}

// Module provides the SQL-backed JobRepository.
var Module = fx.Options(
	fx.Provide(NewJobRepository),
)
