package scoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/okian/furlong/internal/domain/features"
)

const (
	defaultRemoteTimeout = 5 * time.Second
	maxErrorBody         = 512
)

// RemoteModel delegates scoring to a model server over HTTP.
//
// Request:  {"model": "xgboost", "features_list": [{"weight": 57, ...}, ...]}
// Response: {"scores": [0.31, ...]}
type RemoteModel struct {
	base
	endpoint string
	client   *http.Client
}

// NewRemoteModel creates a scorer that posts rows to endpoint. A zero timeout
// uses the default.
func NewRemoteModel(id string, kind Kind, schema features.Schema, endpoint string, timeout time.Duration, opts ...Option) (*RemoteModel, error) {
	b, err := newBase(id, kind, schema, opts)
	if err != nil {
		return nil, err
	}
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		return nil, fmt.Errorf("%w: model %s endpoint %q is not http(s)", ErrInvalidArtifact, id, endpoint)
	}
	if timeout <= 0 {
		timeout = defaultRemoteTimeout
	}
	return &RemoteModel{base: b, endpoint: endpoint, client: &http.Client{Timeout: timeout}}, nil
}

// Score implements Scorer. The matrix is validated locally before any request
// leaves the process.
func (m *RemoteModel) Score(ctx context.Context, x Matrix) ([]float64, error) {
	rows, err := m.prepare(ctx, x)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return []float64{}, nil
	}

	list := make([]map[string]float64, len(rows))
	for i, row := range rows {
		r := make(map[string]float64, len(row))
		for j, v := range row {
			r[m.schema[j]] = v
		}
		list[i] = r
	}
	body, err := json.Marshal(map[string]any{"model": m.id, "features_list": list})
	if err != nil {
		return nil, fmt.Errorf("model %s: marshal request: %w", m.id, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("model %s: create request: %w", m.id, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: model %s: %w", ErrRemote, m.id, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, fmt.Errorf("%w: model %s: status=%d body=%s", ErrRemote, m.id, resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var result struct {
		Scores []float64 `json:"scores"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("%w: model %s: decode response: %w", ErrRemote, m.id, err)
	}
	if len(result.Scores) != len(rows) {
		return nil, fmt.Errorf("%w: model %s: got %d scores for %d rows", ErrRemote, m.id, len(result.Scores), len(rows))
	}
	for i, v := range result.Scores {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%w: model %s: row %d score %v is not finite", ErrRemote, m.id, i, v)
		}
		if m.kind == Probability && (v < 0 || v > 1) {
			return nil, fmt.Errorf("%w: model %s: row %d probability %v outside [0, 1]", ErrRemote, m.id, i, v)
		}
	}
	return result.Scores, nil
}
