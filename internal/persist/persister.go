package persist

import (
	"context"
	"fmt"
	"sort"

	"github.com/tigerroll/taxiweather/internal/domain/entity"
	"github.com/tigerroll/taxiweather/pkg/batch/adapter/database"
	"github.com/tigerroll/taxiweather/pkg/batch/support/util/exception"
	"github.com/tigerroll/taxiweather/pkg/batch/support/util/logger"
)

const moduleName = "persist"

// DefaultBatchSize is used when the configured batch size is not positive.
const DefaultBatchSize = 500

// Persister is the only writer of the taxi_trips table.
type Persister struct {
	resolver  database.DBConnectionResolver
	dbRef     string
	batchSize int
}

// NewPersister creates a Persister writing to the connection named dbRef.
func NewPersister(resolver database.DBConnectionResolver, dbRef string, batchSize int) *Persister {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Persister{resolver: resolver, dbRef: dbRef, batchSize: batchSize}
}

func (p *Persister) connection(ctx context.Context) (database.DBConnection, error) {
	conn, err := p.resolver.ResolveDBConnection(ctx, p.dbRef)
	if err != nil {
		return nil, exception.NewPersistenceError(moduleName, fmt.Sprintf("failed to resolve database connection '%s'", p.dbRef), err)
	}
	return conn, nil
}

// Replace drops taxi_trips, recreates it and inserts rows sorted by key, all in one transaction.
// Replacing with the same rows twice leaves identical table contents.
func (p *Persister) Replace(ctx context.Context, rows []entity.TaxiTrip) error {
	conn, err := p.connection(ctx)
	if err != nil {
		return err
	}

	sorted := make([]entity.TaxiTrip, len(rows))
	copy(sorted, rows)
	SortTrips(sorted)

	n, err := conn.ReplaceTable(ctx, &entity.TaxiTrip{}, sorted, p.batchSize)
	if err != nil {
		return exception.NewPersistenceError(moduleName, fmt.Sprintf("failed to replace table '%s'", entity.TaxiTripsTable), err)
	}
	logger.Infof("Wrote %d rows to '%s' on '%s' (batch size %d).", n, entity.TaxiTripsTable, p.dbRef, p.batchSize)
	return nil
}

// LoadAll reads every row of taxi_trips in key order.
// A missing table is a PersistenceError.
func (p *Persister) LoadAll(ctx context.Context) ([]entity.TaxiTrip, error) {
	conn, err := p.connection(ctx)
	if err != nil {
		return nil, err
	}
	var rows []entity.TaxiTrip
	if err := conn.ExecuteQueryAdvanced(ctx, &rows, nil, "pickup_date, pickup_hour, payment_type", 0); err != nil {
		if conn.IsTableNotExistError(err) {
			return nil, exception.NewPersistenceError(moduleName, fmt.Sprintf("table '%s' does not exist; run the etl command first", entity.TaxiTripsTable), err)
		}
		return nil, exception.NewPersistenceError(moduleName, fmt.Sprintf("failed to read table '%s'", entity.TaxiTripsTable), err)
	}
	logger.Debugf("Read %d rows from '%s'.", len(rows), entity.TaxiTripsTable)
	return rows, nil
}

// SortTrips orders rows by (pickup_date, pickup_hour, payment_type).
func SortTrips(rows []entity.TaxiTrip) {
	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.PickupDate != b.PickupDate {
			return a.PickupDate < b.PickupDate
		}
		if a.PickupHour != b.PickupHour {
			return a.PickupHour < b.PickupHour
		}
		return a.PaymentType < b.PaymentType
	})
}
