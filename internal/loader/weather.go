package loader

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/hashicorp/go-multierror"

	"github.com/tigerroll/taxiweather/internal/domain/entity"
	"github.com/tigerroll/taxiweather/pkg/batch/support/util/configbinder"
	"github.com/tigerroll/taxiweather/pkg/batch/support/util/exception"
	"github.com/tigerroll/taxiweather/pkg/batch/support/util/frame"
	"github.com/tigerroll/taxiweather/pkg/batch/support/util/logger"
)

// WeatherColumns are the CSV columns the weather file must carry. Other columns are ignored.
var WeatherColumns = []string{
	"datetime", "tempmax", "tempmin", "temp",
	"feelslikemax", "feelslikemin", "feelslike", "humidity", "snow",
}

// LoadWeather reads the weather CSV at path into a dataframe. Columns are found by header name,
// the numeric ones are typed as floats, and empty cells are null.
//
// A missing file is an IOError. A header without a required column, rows of the wrong width,
// or numeric cells that are not numbers are a FormatError listing every offending row.
func (l *Loader) LoadWeather(ctx context.Context, path string) ([]entity.WeatherRecord, error) {
	conn, err := l.connection(ctx)
	if err != nil {
		return nil, err
	}
	data, err := readObject(ctx, conn, path)
	if err != nil {
		return nil, err
	}

	records, err := decodeWeather(data)
	if err != nil {
		return nil, exception.NewFormatError(moduleName, fmt.Sprintf("weather file '%s' is malformed", path), err)
	}
	logger.Infof("Loaded %d weather records from '%s'.", len(records), path)
	return records, nil
}

func decodeWeather(data []byte) ([]entity.WeatherRecord, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, errors.New("file is empty")
	}
	// Cells are read as text first so that bad numbers can be reported by line.
	raw := dataframe.ReadCSV(bytes.NewReader(data),
		dataframe.HasHeader(false),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
		dataframe.NaNValues(nil),
	)
	if raw.Err != nil {
		return nil, raw.Err
	}

	header := raw.Subset([]int{0}).Records()[1]
	positions, missing := columnPositions(header, WeatherColumns)
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required columns: %s", strings.Join(missing, ", "))
	}
	if raw.Nrow() == 1 {
		return []entity.WeatherRecord{}, nil
	}

	lines := make([]int, raw.Nrow()-1)
	for i := range lines {
		lines[i] = i + 1
	}
	body := raw.Subset(lines).Select(positions)
	if body.Err != nil {
		return nil, body.Err
	}
	if err := body.SetNames(WeatherColumns...); err != nil {
		return nil, err
	}

	cells := make([][]string, len(WeatherColumns))
	columns := make([]series.Series, len(WeatherColumns))
	for c, name := range WeatherColumns {
		v, err := frame.Strings(body, name)
		if err != nil {
			return nil, err
		}
		for i := range v {
			v[i] = strings.TrimSpace(v[i])
		}
		cells[c] = v
		if c == 0 {
			columns[c] = series.New(v, series.String, name)
		} else {
			columns[c] = series.New(v, series.Float, name)
		}
	}
	typed := dataframe.New(columns...)
	if typed.Err != nil {
		return nil, typed.Err
	}

	var rowErr *multierror.Error
	for i := 0; i < typed.Nrow(); i++ {
		for c := 1; c < len(WeatherColumns); c++ {
			cell := cells[c][i]
			if typed.Elem(i, c).IsNA() && cell != "" && !strings.EqualFold(cell, "nan") {
				rowErr = multierror.Append(rowErr,
					fmt.Errorf("line %d: column '%s' is not a number: '%s'", i+2, WeatherColumns[c], cell))
			}
		}
	}
	if err := rowErr.ErrorOrNil(); err != nil {
		return nil, err
	}

	// Missing cells come out of Maps as nil and leave their fields nil.
	records := make([]entity.WeatherRecord, 0, typed.Nrow())
	for _, m := range typed.Maps() {
		var rec entity.WeatherRecord
		if err := configbinder.BindProperties(m, &rec); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

// columnPositions finds the first header cell of each required column.
func columnPositions(header, required []string) ([]int, []string) {
	first := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimSpace(h)
		if _, ok := first[h]; !ok {
			first[h] = i
		}
	}
	var (
		positions []int
		missing   []string
	)
	for _, c := range required {
		i, ok := first[c]
		if !ok {
			missing = append(missing, c)
			continue
		}
		positions = append(positions, i)
	}
	return positions, missing
}
