package loader

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/xitongsys/parquet-go-source/buffer"
	"github.com/xitongsys/parquet-go/common"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/reader"
	"github.com/xitongsys/parquet-go/types"

	"github.com/tigerroll/taxiweather/internal/domain/entity"
	"github.com/tigerroll/taxiweather/pkg/batch/support/util/exception"
	"github.com/tigerroll/taxiweather/pkg/batch/support/util/logger"
)

// Trip-record columns.
const (
	ColPickupDatetime = "tpep_pickup_datetime"
	ColPULocationID   = "PULocationID"
	ColTripDistance   = "trip_distance"
	ColPassengerCount = "passenger_count"
	ColTipAmount      = "tip_amount"
	ColTotalAmount    = "total_amount"
	ColPaymentType    = "payment_type"
)

type columnKind int

const (
	kindTimestamp columnKind = iota
	kindInteger
	kindFloat
)

var tripColumns = []struct {
	name string
	kind columnKind
}{
	{ColPickupDatetime, kindTimestamp},
	{ColPULocationID, kindInteger},
	{ColTripDistance, kindFloat},
	{ColPassengerCount, kindFloat},
	{ColTipAmount, kindFloat},
	{ColTotalAmount, kindFloat},
	{ColPaymentType, kindInteger},
}

func acceptedTypes(kind columnKind) []parquet.Type {
	switch kind {
	case kindTimestamp:
		return []parquet.Type{parquet.Type_INT64, parquet.Type_INT96}
	case kindInteger:
		return []parquet.Type{parquet.Type_INT64, parquet.Type_INT32}
	default:
		return []parquet.Type{parquet.Type_DOUBLE, parquet.Type_FLOAT, parquet.Type_INT64, parquet.Type_INT32}
	}
}

// LoadTrips reads every trip-record file directly inside dir whose name matches the glob.
// Files are read in name order and their rows concatenated.
//
// A missing directory or one without matching files is an IOError. Files with a missing column,
// a column of an unexpected physical type or undecodable data are collected into one FormatError.
func (l *Loader) LoadTrips(ctx context.Context, dir string) ([]entity.TripRecord, error) {
	conn, err := l.connection(ctx)
	if err != nil {
		return nil, err
	}
	names, err := l.listMatching(ctx, conn, dir)
	if err != nil {
		return nil, err
	}

	var (
		records   []entity.TripRecord
		formatErr *multierror.Error
	)
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data, err := readObject(ctx, conn, name)
		if err != nil {
			return nil, err
		}
		rows, err := decodeTrips(data)
		if err != nil {
			formatErr = multierror.Append(formatErr, fmt.Errorf("%s: %w", name, err))
			continue
		}
		logger.Debugf("Read %d trip records from '%s'.", len(rows), name)
		records = append(records, rows...)
	}
	if err := formatErr.ErrorOrNil(); err != nil {
		return nil, exception.NewFormatError(moduleName, fmt.Sprintf("%d of %d trip files could not be read", formatErr.Len(), len(names)), err)
	}

	logger.Infof("Loaded %d trip records from %d files.", len(records), len(names))
	return records, nil
}

// decodeTrips reads the required columns of one parquet file.
func decodeTrips(data []byte) (rows []entity.TripRecord, err error) {
	// The decoder panics on some corrupt footers and pages.
	defer func() {
		if r := recover(); r != nil {
			rows, err = nil, fmt.Errorf("failed to decode parquet data: %v", r)
		}
	}()

	pf, err := buffer.NewBufferFile(data)
	if err != nil {
		return nil, err
	}
	defer pf.Close()

	pr, err := reader.NewParquetColumnReader(pf, 1)
	if err != nil {
		return nil, fmt.Errorf("failed to read parquet footer: %w", err)
	}
	defer pr.ReadStop()

	leaves := leafElements(pr)
	for _, col := range tripColumns {
		el, ok := leaves[col.name]
		if !ok {
			return nil, fmt.Errorf("missing required column '%s'", col.name)
		}
		if !typeAccepted(el.GetType(), acceptedTypes(col.kind)) {
			return nil, fmt.Errorf("column '%s' has unexpected physical type %s", col.name, el.GetType())
		}
	}

	numRows := pr.GetNumRows()
	rows = make([]entity.TripRecord, numRows)
	if numRows == 0 {
		return rows, nil
	}
	unit := timestampUnit(leaves[ColPickupDatetime])

	for _, col := range tripColumns {
		values, err := readColumn(pr, col.name, numRows)
		if err != nil {
			return nil, err
		}
		for i, v := range values {
			r := &rows[i]
			switch col.name {
			case ColPickupDatetime:
				r.PickupRaw, r.PickupUnit = toTimestamp(v, unit)
			case ColPULocationID:
				r.PULocationID = toInt64(v)
			case ColTripDistance:
				r.TripDistance = toFloat64(v)
			case ColPassengerCount:
				r.PassengerCount = toFloat64(v)
			case ColTipAmount:
				r.TipAmount = toFloat64(v)
			case ColTotalAmount:
				r.TotalAmount = toFloat64(v)
			case ColPaymentType:
				r.PaymentType = toInt64(v)
			}
		}
	}
	return rows, nil
}

// leafElements maps the external names of the leaf columns to their schema elements.
func leafElements(pr *reader.ParquetReader) map[string]*parquet.SchemaElement {
	sh := pr.SchemaHandler
	leaves := make(map[string]*parquet.SchemaElement, len(sh.SchemaElements))
	for i := 1; i < len(sh.SchemaElements); i++ {
		el := sh.SchemaElements[i]
		if el.GetNumChildren() == 0 {
			leaves[sh.GetExName(i)] = el
		}
	}
	return leaves
}

func readColumn(pr *reader.ParquetReader, name string, numRows int64) ([]interface{}, error) {
	path := common.PathToStr([]string{pr.SchemaHandler.GetRootExName(), name})
	values, _, _, err := pr.ReadColumnByPath(path, numRows)
	if err != nil {
		return nil, fmt.Errorf("failed to read column '%s': %w", name, err)
	}
	if int64(len(values)) != numRows {
		return nil, fmt.Errorf("column '%s' has %d values, expected %d", name, len(values), numRows)
	}
	return values, nil
}

func typeAccepted(t parquet.Type, accepted []parquet.Type) bool {
	for _, a := range accepted {
		if t == a {
			return true
		}
	}
	return false
}

// timestampUnit reads the unit of an INT64 timestamp column from its annotation.
// Unannotated columns count nanoseconds.
func timestampUnit(el *parquet.SchemaElement) entity.TimeUnit {
	if el.IsSetConvertedType() {
		switch el.GetConvertedType() {
		case parquet.ConvertedType_TIMESTAMP_MILLIS:
			return entity.UnitMillis
		case parquet.ConvertedType_TIMESTAMP_MICROS:
			return entity.UnitMicros
		}
	}
	if el.IsSetLogicalType() && el.LogicalType.IsSetTIMESTAMP() && el.LogicalType.TIMESTAMP.IsSetUnit() {
		u := el.LogicalType.TIMESTAMP.Unit
		switch {
		case u.MILLIS != nil:
			return entity.UnitMillis
		case u.MICROS != nil:
			return entity.UnitMicros
		}
	}
	return entity.UnitNanos
}

// Bounds of the nanosecond-representable time range.
var (
	minNanoTime = time.Unix(0, math.MinInt64).UTC()
	maxNanoTime = time.Unix(0, math.MaxInt64).UTC()
)

func toTimestamp(v interface{}, unit entity.TimeUnit) (*int64, entity.TimeUnit) {
	switch t := v.(type) {
	case int64:
		return entity.Int64(t), unit
	case string:
		// INT96 carries its own nanosecond resolution.
		ts := types.INT96ToTime(t)
		if ts.Before(minNanoTime) || ts.After(maxNanoTime) {
			return nil, entity.UnitNanos
		}
		return entity.Int64(ts.UnixNano()), entity.UnitNanos
	default:
		return nil, unit
	}
}

func toInt64(v interface{}) *int64 {
	switch t := v.(type) {
	case int64:
		return entity.Int64(t)
	case int32:
		return entity.Int64(int64(t))
	default:
		return nil
	}
}

func toFloat64(v interface{}) *float64 {
	switch t := v.(type) {
	case float64:
		return entity.Float64(t)
	case float32:
		return entity.Float64(float64(t))
	case int64:
		return entity.Float64(float64(t))
	case int32:
		return entity.Float64(float64(t))
	default:
		return nil
	}
}
