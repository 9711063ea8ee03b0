package dataset

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/YuminosukeSato/pricefit/pkg/errors"
)

// Default column names of the King County house sales CSV.
const (
	DefaultFeatureColumn = "sqft_living"
	DefaultLabelColumn   = "price"
)

// CSVSource reads points from a CSV file with a header row. Columns are
// addressed by header name.
type CSVSource struct {
	Path          string
	FeatureColumn string
	LabelColumn   string
}

// NewCSVSource returns a CSVSource for path using the default columns.
func NewCSVSource(path string) *CSVSource {
	return &CSVSource{Path: path, FeatureColumn: DefaultFeatureColumn, LabelColumn: DefaultLabelColumn}
}

// Points implements Source.
func (s *CSVSource) Points(ctx context.Context) ([]Point, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, errors.NewDataUnavailableError(s.Path, err.Error())
	}
	defer f.Close()
	return ReadCSV(ctx, f, s.FeatureColumn, s.LabelColumn)
}

// ReadCSV parses CSV data from r. The first record is the header. A row whose
// feature or label is missing, unparsable or not finite is rejected with a
// ValidationError naming its line.
func ReadCSV(ctx context.Context, r io.Reader, featureCol, labelCol string) ([]Point, error) {
	cr := csv.NewReader(r)
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, errors.NewDataUnavailableError("csv", "empty file")
	}
	if err != nil {
		return nil, errors.Wrap(err, "read csv header")
	}
	fi, li := -1, -1
	for i, name := range header {
		switch strings.TrimSpace(name) {
		case featureCol:
			fi = i
		case labelCol:
			li = i
		}
	}
	if fi < 0 || li < 0 {
		return nil, errors.NewDataUnavailableError("csv",
			fmt.Sprintf("header must contain %q and %q", featureCol, labelCol))
	}

	var points []Point
	for line := 2; ; line++ {
		if line%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "read csv line %d", line)
		}
		x, err := parseField(rec, fi)
		if err != nil {
			return nil, errors.NewValidationError(featureCol, err.Error(), line)
		}
		y, err := parseField(rec, li)
		if err != nil {
			return nil, errors.NewValidationError(labelCol, err.Error(), line)
		}
		points = append(points, Point{X: x, Y: y})
	}
	return points, nil
}

func parseField(rec []string, i int) (float64, error) {
	if i >= len(rec) {
		return 0, errors.New("missing field")
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(rec[i]), 64)
	if err != nil {
		return 0, errors.Newf("not a number: %q", rec[i])
	}
	if !errors.IsFinite(v) {
		return 0, errors.Newf("not finite: %q", rec[i])
	}
	return v, nil
}
