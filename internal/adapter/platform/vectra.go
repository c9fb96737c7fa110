package platform

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hive-corporation/pivotlink/internal/core/domain"
	"github.com/hive-corporation/pivotlink/internal/core/ports"
)

// Config holds everything needed to talk to one Vectra platform.
type Config struct {
	BaseURL  string
	Kind     ports.CredentialKind
	ClientID string // portal only
	Secret   string // APIv2 token or APIv3 client secret

	// Appliances commonly ship self-signed certificates.
	InsecureSkipVerify bool
}

// VectraClient implements ports.DetectionPlatform against a Vectra
// appliance (APIv2) or the Vectra portal (APIv3).
type VectraClient struct {
	cfg    Config
	client *http.Client

	bearer       string
	bearerExpiry time.Time
}

func NewVectraClient(cfg Config, client *http.Client) *VectraClient {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if client == nil {
		transport := http.DefaultTransport
		if cfg.InsecureSkipVerify {
			transport = &http.Transport{
				TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
			}
		}
		client = &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
		}
	}
	return &VectraClient{cfg: cfg, client: client}
}

func (c *VectraClient) apiBase() string {
	if c.cfg.Kind == ports.KindPortal {
		return c.cfg.BaseURL + "/api/v3.3"
	}
	return c.cfg.BaseURL + "/api/v2"
}

// ListDetections returns a pager over the detections endpoint. Pages are
// fetched on demand by following the next URL the platform hands back.
func (c *VectraClient) ListDetections(ctx context.Context, filter ports.DetectionFilter) ports.DetectionPager {
	params := url.Values{}
	if filter.State != "" {
		params.Set("state", filter.State)
	}
	if filter.Tag != "" {
		params.Set("tags", filter.Tag)
	}
	first := c.apiBase() + "/detections"
	if encoded := params.Encode(); encoded != "" {
		first += "?" + encoded
	}
	return &detectionPager{client: c, next: first}
}

type detectionPage struct {
	Count   int                      `json:"count"`
	Next    string                   `json:"next"`
	Results []domain.DetectionRecord `json:"results"`
}

type detectionPager struct {
	client *VectraClient
	next   string
	done   bool
}

func (p *detectionPager) Next(ctx context.Context) ([]domain.DetectionRecord, error) {
	if p.done {
		return nil, nil
	}
	var page detectionPage
	if err := p.client.do(ctx, http.MethodGet, p.next, nil, &page); err != nil {
		p.done = true
		return nil, err
	}
	if page.Next == "" {
		p.done = true
	} else {
		p.next = page.Next
	}
	if page.Results == nil {
		page.Results = []domain.DetectionRecord{}
	}
	return page.Results, nil
}

func (c *VectraClient) GetNotes(ctx context.Context, detectionID int) ([]domain.Note, error) {
	var notes []domain.Note
	endpoint := fmt.Sprintf("%s/detections/%d/notes", c.apiBase(), detectionID)
	if err := c.do(ctx, http.MethodGet, endpoint, nil, &notes); err != nil {
		return nil, err
	}
	return notes, nil
}

func (c *VectraClient) CreateNote(ctx context.Context, detectionID int, text string) error {
	endpoint := fmt.Sprintf("%s/detections/%d/notes", c.apiBase(), detectionID)
	return c.do(ctx, http.MethodPost, endpoint, map[string]string{"note": text}, nil)
}

func (c *VectraClient) UpdateNote(ctx context.Context, detectionID, noteID int, text string) error {
	endpoint := fmt.Sprintf("%s/detections/%d/notes/%d", c.apiBase(), detectionID, noteID)
	return c.do(ctx, http.MethodPatch, endpoint, map[string]string{"note": text}, nil)
}

// SetTags replaces a detection's tags. With append set, the current tags are
// fetched first and the new ones merged in.
func (c *VectraClient) SetTags(ctx context.Context, detectionID int, tags []string, appendTags bool) error {
	endpoint := fmt.Sprintf("%s/tagging/detection/%d", c.apiBase(), detectionID)

	if appendTags {
		var current struct {
			Tags []string `json:"tags"`
		}
		if err := c.do(ctx, http.MethodGet, endpoint, nil, &current); err != nil {
			return err
		}
		tags = mergeTags(current.Tags, tags)
	}

	return c.do(ctx, http.MethodPatch, endpoint, map[string][]string{"tags": tags}, nil)
}

func mergeTags(existing, extra []string) []string {
	merged := append([]string{}, existing...)
	for _, tag := range extra {
		present := false
		for _, have := range merged {
			if have == tag {
				present = true
				break
			}
		}
		if !present {
			merged = append(merged, tag)
		}
	}
	return merged
}

// do executes one authenticated request and decodes the JSON response into
// out when out is non-nil. Non-2xx responses become *HTTPError.
func (c *VectraClient) do(ctx context.Context, method, endpoint string, payload, out any) error {
	var body *bytes.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		body = bytes.NewReader(data)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if err := c.authorize(ctx, req); err != nil {
		return err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newHTTPError(resp)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response from %s: %w", endpoint, err)
		}
	}
	return nil
}

// authorize attaches credentials: a static token header for appliances, a
// cached OAuth bearer for the portal.
func (c *VectraClient) authorize(ctx context.Context, req *http.Request) error {
	if c.cfg.Kind != ports.KindPortal {
		req.Header.Set("Authorization", "Token "+c.cfg.Secret)
		return nil
	}
	token, err := c.bearerToken(ctx)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return nil
}

func (c *VectraClient) bearerToken(ctx context.Context) (string, error) {
	if c.bearer != "" && time.Now().Before(c.bearerExpiry) {
		return c.bearer, nil
	}

	form := strings.NewReader("grant_type=client_credentials")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/oauth2/token", form)
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(c.cfg.ClientID, c.cfg.Secret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", newHTTPError(resp)
	}

	var grant struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&grant); err != nil {
		return "", fmt.Errorf("failed to decode token response: %w", err)
	}

	c.bearer = grant.AccessToken
	// Refresh a little early so in-flight requests never carry a dead token.
	c.bearerExpiry = time.Now().Add(time.Duration(grant.ExpiresIn)*time.Second - 30*time.Second)
	return c.bearer, nil
}
