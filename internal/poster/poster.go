// Package poster delivers accepted alarms to the downstream alert REST API.
package poster

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/satfire/firewatch/internal/detections"
	"github.com/satfire/firewatch/internal/log"
	"github.com/satfire/firewatch/internal/types"
)

// AuthHeader carries the endpoint credential on every post.
const AuthHeader = "x-auth-satellite-alarm"

// Poster posts one GeoJSON feature per accepted alarm. Posting is
// synchronous and never retried; the pipeline logs failures and moves on.
type Poster struct {
	url    string
	token  string
	client *http.Client
}

// New creates a poster for the given endpoint. The credential token is
// resolved by the caller (environment variable named in configuration).
func New(url, token string) *Poster {
	return &Poster{
		url:   url,
		token: token,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Post sends one alarm. Connection errors and non-2xx responses are
// returned to the caller for logging; the response body is folded into the
// error for 4xx/5xx.
func (p *Poster) Post(ctx context.Context, a types.Alarm) error {
	jsonData, err := json.Marshal(detections.AlarmToFeature(a))
	if err != nil {
		return fmt.Errorf("error marshaling alarm payload: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("error creating alarm request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set(AuthHeader, p.token)

	log.Debugf("posting alarm to %s", p.url)
	log.Debugf("payload: %s", string(jsonData))

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("error sending alarm to %s: %v", p.url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("error reading alarm endpoint response: %v", err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("alarm endpoint error (status %d): %s", resp.StatusCode, string(body))
	}

	return nil
}
