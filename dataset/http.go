package dataset

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/YuminosukeSato/pricefit/pkg/errors"
)

// PointsPath is the route that serves the raw points as a JSON array.
const PointsPath = "/linear/points"

// HTTPSource fetches points from a server exposing GET /linear/points.
type HTTPSource struct {
	URL    string
	Client *http.Client
}

// NewHTTPSource returns a source for baseURL + PointsPath.
func NewHTTPSource(baseURL string) *HTTPSource {
	return &HTTPSource{
		URL:    baseURL + PointsPath,
		Client: &http.Client{Timeout: 30 * time.Second},
	}
}

// Points implements Source.
func (s *HTTPSource) Points(ctx context.Context) ([]Point, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return nil, errors.Wrap(err, "build points request")
	}
	req.Header.Set("Accept", "application/json")

	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, errors.NewDataUnavailableError(s.URL, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, errors.NewDataUnavailableError(s.URL, fmt.Sprintf("unexpected status %d", resp.StatusCode))
	}
	var points []Point
	if err := json.NewDecoder(resp.Body).Decode(&points); err != nil {
		return nil, errors.NewDataUnavailableError(s.URL, "decode: "+err.Error())
	}
	return points, nil
}
