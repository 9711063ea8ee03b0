package dataset

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/pricefit/pkg/errors"
)

const sampleCSV = `id,date,price,bedrooms,sqft_living
7129300520,20141013T000000,221900,3,1180
6414100192,20141209T000000,538000,3,2570
5631500400,20150225T000000,180000,2,770
`

func TestReadCSV(t *testing.T) {
	points, err := ReadCSV(context.Background(), strings.NewReader(sampleCSV), DefaultFeatureColumn, DefaultLabelColumn)
	require.NoError(t, err)
	assert.Equal(t, []Point{
		{X: 1180, Y: 221900},
		{X: 2570, Y: 538000},
		{X: 770, Y: 180000},
	}, points)
}

func TestReadCSVErrors(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr error
	}{
		{name: "empty", data: "", wantErr: errors.ErrDataUnavailable},
		{name: "missing column", data: "price,bedrooms\n1,2\n", wantErr: errors.ErrDataUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadCSV(context.Background(), strings.NewReader(tt.data), DefaultFeatureColumn, DefaultLabelColumn)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
		})
	}
}

func TestReadCSVRejectsBadRowWithLine(t *testing.T) {
	data := "sqft_living,price\n1000,1\nabc,2\n"
	_, err := ReadCSV(context.Background(), strings.NewReader(data), DefaultFeatureColumn, DefaultLabelColumn)
	var ve *errors.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, 3, ve.Value)

	data = "sqft_living,price\n1000,NaN\n"
	_, err = ReadCSV(context.Background(), strings.NewReader(data), DefaultFeatureColumn, DefaultLabelColumn)
	assert.True(t, errors.As(err, &ve))
}

func TestCSVSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kc_house_data.csv")
	require.NoError(t, os.WriteFile(path, []byte(sampleCSV), 0o644))

	points, err := NewCSVSource(path).Points(context.Background())
	require.NoError(t, err)
	assert.Len(t, points, 3)

	_, err = NewCSVSource(filepath.Join(t.TempDir(), "missing.csv")).Points(context.Background())
	assert.True(t, errors.Is(err, errors.ErrDataUnavailable))
}

func TestHTTPSource(t *testing.T) {
	want := []Point{{X: 1, Y: 2}, {X: 3, Y: 4}}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, PointsPath, r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(want)
	}))
	defer srv.Close()

	got, err := NewHTTPSource(srv.URL).Points(context.Background())
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestHTTPSourceUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := NewHTTPSource(srv.URL).Points(context.Background())
	assert.True(t, errors.Is(err, errors.ErrDataUnavailable))
}

func TestColumns(t *testing.T) {
	x, y, err := Columns([]Point{{1, 10}, {2, 20}})
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2}, x)
	assert.Equal(t, []float64{10, 20}, y)

	_, _, err = Columns(nil)
	assert.True(t, errors.Is(err, errors.ErrDataUnavailable))
}

func TestStaticSourceCopies(t *testing.T) {
	src := StaticSource{{1, 2}}
	got, err := src.Points(context.Background())
	require.NoError(t, err)
	got[0].X = 99
	assert.Equal(t, 1.0, src[0].X)
}
