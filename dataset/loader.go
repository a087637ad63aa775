package dataset

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"time"

	churnErrors "github.com/ZinedineAmal/Loyalty-Through-Data-Gym-Retention-Analysis/pkg/errors"
	"github.com/ZinedineAmal/Loyalty-Through-Data-Gym-Retention-Analysis/pkg/log"
)

// requiredColumns is every column the analysis needs; a header missing any
// of them fails the load.
var requiredColumns = func() []string {
	cols := make([]string, 0, len(CategoricalColumns)+len(NumericColumns)+1)
	cols = append(cols, CategoricalColumns...)
	cols = append(cols, NumericColumns...)
	return append(cols, ColChurn)
}()

// Load reads the dataset from a CSV file on disk.
func Load(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, churnErrors.Wrapf(err, "dataset: open %s", path)
	}
	defer func() { _ = f.Close() }()

	return Read(f)
}

// Read parses the dataset from an io.Reader carrying CSV with a header row.
//
// The header is matched by name, so column order in the file does not
// matter. Numeric cells must parse as floats; the label must be 0 or 1.
// Any violation aborts the load with a DataError naming column and row.
func Read(r io.Reader) (_ *Table, err error) {
	defer churnErrors.Recover(&err, "dataset.Read")

	start := time.Now()
	logger := log.GetLoggerWithName("dataset")

	reader := csv.NewReader(r)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, churnErrors.Wrap(err, "dataset: read csv")
	}
	if len(records) < 2 {
		return nil, churnErrors.NewModelError("dataset.Read", "no data rows", churnErrors.ErrEmptyData)
	}

	colIdx, err := resolveHeader(records[0])
	if err != nil {
		return nil, err
	}

	table := &Table{Records: make([]Customer, 0, len(records)-1)}
	for i, row := range records[1:] {
		rec, err := parseRow(row, colIdx, i+1)
		if err != nil {
			return nil, err
		}
		table.Records = append(table.Records, rec)
	}

	logger.Info("Dataset loaded",
		log.SamplesKey, table.Len(),
		log.FeaturesKey, len(CategoricalColumns)+len(NumericColumns),
		log.PositiveRateKey, table.ChurnRate(),
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)

	return table, nil
}

// resolveHeader maps required column names to their positions.
func resolveHeader(header []string) (map[string]int, error) {
	colIdx := make(map[string]int, len(header))
	for i, name := range header {
		colIdx[name] = i
	}
	for _, name := range requiredColumns {
		if _, ok := colIdx[name]; !ok {
			return nil, churnErrors.NewDataError("dataset.Read", name, -1, "column not found in header")
		}
	}
	return colIdx, nil
}

func parseRow(row []string, colIdx map[string]int, rowNum int) (Customer, error) {
	cell := func(col string) string { return row[colIdx[col]] }

	num := func(col string) (float64, error) {
		v, err := strconv.ParseFloat(cell(col), 64)
		if err != nil {
			return 0, churnErrors.NewDataError("dataset.Read", col, rowNum,
				"cannot parse "+strconv.Quote(cell(col))+" as float")
		}
		return v, nil
	}

	var rec Customer
	var err error

	rec.Gender = cell(ColGender)
	rec.NearLocation = cell(ColNearLocation)
	rec.Partner = cell(ColPartner)
	rec.PromoFriends = cell(ColPromoFriends)
	rec.Phone = cell(ColPhone)
	rec.GroupVisits = cell(ColGroupVisits)

	if rec.ContractPeriod, err = num(ColContractPeriod); err != nil {
		return rec, err
	}
	if rec.Age, err = num(ColAge); err != nil {
		return rec, err
	}
	if rec.AvgAdditional, err = num(ColAvgAdditional); err != nil {
		return rec, err
	}
	if rec.MonthToEnd, err = num(ColMonthToEnd); err != nil {
		return rec, err
	}
	if rec.Lifetime, err = num(ColLifetime); err != nil {
		return rec, err
	}
	if rec.ClassFreqTotal, err = num(ColClassFreqTotal); err != nil {
		return rec, err
	}
	if rec.ClassFreqCurrMonth, err = num(ColClassFreqCurrMonth); err != nil {
		return rec, err
	}

	switch cell(ColChurn) {
	case "0":
		rec.Churn = 0
	case "1":
		rec.Churn = 1
	default:
		return rec, churnErrors.Mark(
			churnErrors.NewDataError("dataset.Read", ColChurn, rowNum,
				"label must be 0 or 1, got "+strconv.Quote(cell(ColChurn))),
			churnErrors.ErrNotBinary)
	}

	return rec, nil
}
