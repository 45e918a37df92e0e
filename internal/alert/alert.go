// Package alert posts a webhook summarizing a score run's top selections.
// A missing webhook URL disables it entirely: no error, no log line, no
// outbound request.
package alert

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/charmbracelet/log"

	"stormlightlabs.org/mlbedge/internal/config"
	"stormlightlabs.org/mlbedge/internal/core"
)

// Client posts market alert payloads to a configured webhook.
type Client struct {
	httpClient *http.Client
	webhookURL string
	thresholds map[string]config.AlertThreshold
	dashboard  string
	log        *log.Logger
}

// NewClient builds an alert client from cfg. The returned client is
// inert (Send is a no-op) when cfg.WebhookURL is empty.
func NewClient(cfg config.AlertConfig, dashboardBaseURL string, logger *log.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		webhookURL: cfg.WebhookURL,
		thresholds: cfg.MarketThresholds,
		dashboard:  dashboardBaseURL,
		log:        logger,
	}
}

// Enabled reports whether a webhook URL is configured.
func (c *Client) Enabled() bool {
	return c.webhookURL != ""
}

// Row is one scored selection as it appears in an alert payload.
type Row struct {
	GameID       core.GameID     `json:"game_id"`
	SelectionKey core.SelectionKey `json:"selection_key"`
	Side         core.Side       `json:"side"`
	ModelScore   float64         `json:"model_score"`
	ModelProb    *float64        `json:"model_prob,omitempty"`
	Edge         *float64        `json:"edge,omitempty"`
	Signal       core.Signal     `json:"signal"`
}

// Payload is the webhook body, matching spec: date, market, the
// threshold-filtered top-K rows, and a dashboard link placeholder.
type Payload struct {
	Date          string `json:"date"`
	Market        core.Market `json:"market"`
	Rows          []Row  `json:"rows"`
	DashboardLink string `json:"dashboard_link"`
}

// Send filters scores against market's configured threshold and POSTs the
// surviving rows. No threshold entry for market means no alert is sent —
// an operator opts a market in by adding a threshold, not by default.
func (c *Client) Send(ctx context.Context, date core.Date, market core.Market, scores []core.ModelScore) error {
	if !c.Enabled() {
		return nil
	}

	threshold, ok := c.thresholds[string(market)]
	if !ok {
		return nil
	}

	rows := filterAndRank(scores, threshold)
	if len(rows) == 0 {
		return nil
	}

	payload := Payload{
		Date:          date.String(),
		Market:        market,
		Rows:          rows,
		DashboardLink: fmt.Sprintf("%s/runs?date=%s&market=%s", c.dashboard, date.String(), market),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal alert payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build alert request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Warn("alert webhook post failed", "market", market, "err", err)
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		c.log.Warn("alert webhook rejected", "market", market, "status", resp.StatusCode)
	}
	return nil
}

func filterAndRank(scores []core.ModelScore, threshold config.AlertThreshold) []Row {
	allowed := make(map[core.Signal]bool, len(threshold.Signals))
	for _, s := range threshold.Signals {
		allowed[core.Signal(s)] = true
	}

	var candidates []core.ModelScore
	for _, sc := range scores {
		if len(allowed) > 0 && !allowed[sc.Signal] {
			continue
		}
		if sc.ModelScore < threshold.MinScore {
			continue
		}
		candidates = append(candidates, sc)
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].ModelScore > candidates[j].ModelScore
	})

	max := threshold.MaxRows
	if max <= 0 || max > len(candidates) {
		max = len(candidates)
	}

	rows := make([]Row, 0, max)
	for _, sc := range candidates[:max] {
		rows = append(rows, Row{
			GameID: sc.GameID, SelectionKey: sc.SelectionKey, Side: sc.Side,
			ModelScore: sc.ModelScore, ModelProb: sc.ModelProb, Edge: sc.Edge, Signal: sc.Signal,
		})
	}
	return rows
}
