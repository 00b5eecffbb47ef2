package issuer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/edvin/backoffice/internal/model"
)

// maxDocumentBytes bounds the response read from the agent.
const maxDocumentBytes = 20 << 20

// AgentClient talks to the remote automation agent that drives the issuing
// authorities' portals and returns the resulting PDF.
type AgentClient struct {
	httpClient *http.Client
	baseURL    string
	token      string
	logger     zerolog.Logger
}

func NewAgentClient(baseURL, token string, timeout time.Duration, logger zerolog.Logger) *AgentClient {
	return &AgentClient{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		logger:     logger.With().Str("component", "issuer-agent").Logger(),
	}
}

type agentCustomer struct {
	CPF        string `json:"cpf"`
	FullName   string `json:"full_name"`
	BirthDate  string `json:"birth_date,omitempty"`
	MotherName string `json:"mother_name,omitempty"`
}

type agentRequest struct {
	CertificateID   int64         `json:"certificate_id"`
	Type            string        `json:"type"`
	SourcePortalURL string        `json:"source_portal_url,omitempty"`
	Customer        agentCustomer `json:"customer"`
}

type agentError struct {
	Error string `json:"error"`
}

// Renderer returns a Renderer that requests documents from the agent at
// path. An empty path uses /v1/certificates/{type}.
func (c *AgentClient) Renderer(t model.CertificateType, path string) Renderer {
	if path == "" {
		path = "/v1/certificates/" + string(t)
	}
	return RendererFunc(func(ctx context.Context, req Request) ([]byte, error) {
		return c.issue(ctx, t, path, req)
	})
}

func (c *AgentClient) issue(ctx context.Context, t model.CertificateType, path string, req Request) ([]byte, error) {
	if err := CheckCustomer(t, req.Customer); err != nil {
		return nil, err
	}

	payload := agentRequest{
		CertificateID: req.Record.ID,
		Type:          string(t),
		Customer: agentCustomer{
			CPF:      *req.Customer.CPF,
			FullName: req.Customer.FullName,
		},
	}
	if req.Record.SourcePortalURL != nil {
		payload.SourcePortalURL = *req.Record.SourcePortalURL
	}
	if req.Customer.BirthDate != nil {
		payload.Customer.BirthDate = req.Customer.BirthDate.Format("2006-01-02")
	}
	if req.Customer.MotherName != nil {
		payload.Customer.MotherName = *req.Customer.MotherName
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, Integration(t, "marshal agent request", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, Integration(t, "build agent request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/pdf")
	if c.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, Integration(t, "agent unreachable", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentBytes))
	if err != nil {
		return nil, Integration(t, "read agent response", err)
	}

	c.logger.Debug().
		Int64("certificate_id", req.Record.ID).
		Str("type", string(t)).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("agent responded")

	switch {
	case resp.StatusCode == http.StatusUnprocessableEntity:
		return nil, Precondition(t, "issuing authority rejected customer data: %s", agentMessage(data))
	case resp.StatusCode >= 300:
		return nil, Integration(t, fmt.Sprintf("agent returned status %d: %s", resp.StatusCode, agentMessage(data)), nil)
	case !bytes.HasPrefix(data, []byte("%PDF-")):
		return nil, Integration(t, "agent returned no usable document", nil)
	}

	return data, nil
}

func agentMessage(data []byte) string {
	var e agentError
	if err := json.Unmarshal(data, &e); err == nil && e.Error != "" {
		return e.Error
	}
	msg := strings.TrimSpace(string(data))
	if len(msg) > 200 {
		msg = msg[:200]
	}
	if msg == "" {
		return "empty response"
	}
	return msg
}
