package persist

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/tigerroll/taxiweather/internal/domain/entity"
	"github.com/tigerroll/taxiweather/pkg/batch/adapter/database"
	"github.com/tigerroll/taxiweather/pkg/batch/support/util/exception"
)

// TableSummary describes the contents of taxi_trips.
type TableSummary struct {
	Rows         int64
	TotalRides   int64
	FirstDate    string
	LastDate     string
	PaymentTypes []int64
}

// TableInspector summarises taxi_trips with plain SQL.
type TableInspector struct {
	db *sql.DB
}

// NewTableInspector creates a TableInspector on db.
func NewTableInspector(db *sql.DB) *TableInspector {
	return &TableInspector{db: db}
}

// NewTableInspectorFor creates a TableInspector on the pool of the connection named dbRef.
func NewTableInspectorFor(ctx context.Context, resolver database.DBConnectionResolver, dbRef string) (*TableInspector, error) {
	conn, err := resolver.ResolveDBConnection(ctx, dbRef)
	if err != nil {
		return nil, exception.NewPersistenceError(moduleName, fmt.Sprintf("failed to resolve database connection '%s'", dbRef), err)
	}
	db, err := conn.GetSQLDB()
	if err != nil {
		return nil, exception.NewPersistenceError(moduleName, "failed to get sql.DB", err)
	}
	return NewTableInspector(db), nil
}

const (
	summaryQuery      = "SELECT COUNT(*), COALESCE(SUM(total_rides), 0), MIN(pickup_date), MAX(pickup_date) FROM " + entity.TaxiTripsTable
	paymentTypesQuery = "SELECT DISTINCT payment_type FROM " + entity.TaxiTripsTable + " ORDER BY payment_type"
)

// Inspect returns the row count, ride total, date range and distinct payment types of taxi_trips.
func (i *TableInspector) Inspect(ctx context.Context) (*TableSummary, error) {
	var (
		summary   TableSummary
		firstDate sql.NullString
		lastDate  sql.NullString
	)
	row := i.db.QueryRowContext(ctx, summaryQuery)
	if err := row.Scan(&summary.Rows, &summary.TotalRides, &firstDate, &lastDate); err != nil {
		return nil, exception.NewPersistenceError(moduleName, fmt.Sprintf("failed to summarise '%s'", entity.TaxiTripsTable), err)
	}
	summary.FirstDate = firstDate.String
	summary.LastDate = lastDate.String

	rows, err := i.db.QueryContext(ctx, paymentTypesQuery)
	if err != nil {
		return nil, exception.NewPersistenceError(moduleName, "failed to list payment types", err)
	}
	defer rows.Close()
	for rows.Next() {
		var pt int64
		if err := rows.Scan(&pt); err != nil {
			return nil, exception.NewPersistenceError(moduleName, "failed to scan payment type", err)
		}
		summary.PaymentTypes = append(summary.PaymentTypes, pt)
	}
	if err := rows.Err(); err != nil {
		return nil, exception.NewPersistenceError(moduleName, "failed to list payment types", err)
	}
	return &summary, nil
}
