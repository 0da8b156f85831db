package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/fx"

	"github.com/tigerroll/taxiweather/internal/persist"
	"github.com/tigerroll/taxiweather/pkg/batch/adapter/database"
	"github.com/tigerroll/taxiweather/pkg/batch/core/application/usecase"
	config "github.com/tigerroll/taxiweather/pkg/batch/core/config"
	model "github.com/tigerroll/taxiweather/pkg/batch/core/domain/model"
	"github.com/tigerroll/taxiweather/pkg/batch/core/domain/repository"
	"github.com/tigerroll/taxiweather/pkg/batch/infrastructure/repository/sql"
)

// Report is what the inspect command prints.
type Report struct {
	Table *persist.TableSummary
	// LastRun is nil when the job never ran against the ledger.
	LastRun *model.JobExecution
}

// inspectOptions is the graph of the inspect command. It reads only and runs no migrations.
func inspectOptions(opts Options) fx.Option {
	return fx.Options(
		baseOptions(opts),
		sql.Module,
		usecase.ExplorerModule,
	)
}

// Inspect summarises taxi_trips and the latest ETL run.
func Inspect(ctx context.Context, opts Options) (*Report, error) {
	var (
		cfg      *config.Config
		resolver database.DBConnectionResolver
		explorer usecase.JobExplorer
	)
	app := fx.New(inspectOptions(opts), fx.Populate(&cfg, &resolver, &explorer))
	startCtx, cancel := context.WithTimeout(ctx, app.StartTimeout())
	defer cancel()
	if err := app.Start(startCtx); err != nil {
		return nil, startupError(err)
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), app.StopTimeout())
		defer cancel()
		_ = app.Stop(stopCtx)
	}()

	inspector, err := persist.NewTableInspectorFor(ctx, resolver, cfg.App.Infrastructure.OutputDBRef)
	if err != nil {
		return nil, err
	}
	summary, err := inspector.Inspect(ctx)
	if err != nil {
		return nil, err
	}

	report := &Report{Table: summary}
	lastRun, err := explorer.GetLastJobExecution(ctx, cfg.App.Job.Name)
	switch {
	case err == nil:
		report.LastRun = lastRun
	case errors.Is(err, repository.ErrJobExecutionNotFound):
	default:
		return nil, err
	}
	return report, nil
}

// WriteReport prints r in a human-readable form.
func WriteReport(w io.Writer, r *Report) error {
	var b strings.Builder
	t := r.Table
	fmt.Fprintf(&b, "taxi_trips\n")
	fmt.Fprintf(&b, "  rows:          %d\n", t.Rows)
	fmt.Fprintf(&b, "  total rides:   %d\n", t.TotalRides)
	if t.Rows > 0 {
		fmt.Fprintf(&b, "  dates:         %s .. %s\n", t.FirstDate, t.LastDate)
	}
	codes := make([]string, len(t.PaymentTypes))
	for i, pt := range t.PaymentTypes {
		codes[i] = fmt.Sprint(pt)
	}
	fmt.Fprintf(&b, "  payment types: [%s]\n", strings.Join(codes, " "))

	if r.LastRun == nil {
		fmt.Fprintf(&b, "last run: none\n")
	} else {
		je := r.LastRun
		fmt.Fprintf(&b, "last run: %s %s (%s)\n", je.JobName, je.Status, je.StartTime.Format(time.RFC3339))
		for _, se := range je.StepExecutions {
			fmt.Fprintf(&b, "  %-18s %-10s read=%d write=%d filter=%d\n", se.StepName, se.Status, se.ReadCount, se.WriteCount, se.FilterCount)
		}
		for _, failure := range je.Failures {
			fmt.Fprintf(&b, "  failure: %s\n", failure)
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}
