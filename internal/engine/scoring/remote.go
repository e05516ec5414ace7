// internal/engine/scoring/remote.go
package scoring

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"candidate-risk-engine/internal/common/errors"
	httpclient "candidate-risk-engine/internal/common/http"
	"candidate-risk-engine/internal/engine/features"
	"candidate-risk-engine/internal/models"
)

// RemoteScorer calls a trained model served over HTTP. It satisfies the same
// Scorer interface as the rule-based reference implementation, so swapping it
// in requires no caller changes.
type RemoteScorer struct {
	baseURL string
	client  *httpclient.Client
	timeout time.Duration
	ready   atomic.Bool
}

type remoteScoreRequest struct {
	SchemaVersion string    `json:"schemaVersion"`
	Features      []float64 `json:"features"`
	Names         []string  `json:"names"`
}

type remoteScoreResponse struct {
	Probability float64         `json:"probability"`
	Factors     []models.Factor `json:"factors"`
}

func NewRemoteScorer(baseURL string, timeout time.Duration) *RemoteScorer {
	return &RemoteScorer{
		baseURL: baseURL,
		client:  httpclient.NewClient(timeout),
		timeout: timeout,
	}
}

// Init verifies the model endpoint is reachable. Score returns
// ScorerUnavailableError until Init has succeeded.
func (s *RemoteScorer) Init(ctx context.Context) error {
	resp, err := s.client.PostJSON(ctx, s.baseURL+"/health", []byte(`{}`))
	if err != nil {
		return errors.NewScorerUnavailableError(err.Error())
	}
	resp.Body.Close()
	s.ready.Store(true)
	return nil
}

func (s *RemoteScorer) Score(ctx context.Context, v features.Vector) (float64, []models.Factor, error) {
	if !s.ready.Load() {
		return 0, nil, errors.NewScorerUnavailableError("remote scorer not initialized")
	}

	names := make([]string, features.FeatureCount)
	values := make([]float64, features.FeatureCount)
	for i := 0; i < features.FeatureCount; i++ {
		names[i] = features.Name(i)
		values[i] = v[i]
	}

	body, err := json.Marshal(remoteScoreRequest{
		SchemaVersion: features.SchemaVersion,
		Features:      values,
		Names:         names,
	})
	if err != nil {
		return 0, nil, err
	}

	// The caller's context carries tick cancellation; the timeout only caps
	// how long a healthy tick waits for the model.
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	resp, err := s.client.PostJSON(ctx, s.baseURL+"/score", body)
	if err != nil {
		return 0, nil, errors.NewScorerUnavailableError(err.Error())
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, errors.NewScorerUnavailableError(err.Error())
	}

	var out remoteScoreResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return 0, nil, fmt.Errorf("decode model response: %w", err)
	}
	if out.Probability < 0 || out.Probability > 1 {
		return 0, nil, fmt.Errorf("model returned probability out of range: %v", out.Probability)
	}

	factors := out.Factors
	if len(factors) > MaxReportedFactors {
		factors = factors[:MaxReportedFactors]
	}
	return out.Probability, factors, nil
}
