package backend

import (
	"context"
	"fmt"
	"net/http"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// TokenSource extracts the caller's bearer token from the request context.
// The gateway never mints backend credentials of its own; every upstream
// call rides on the token the caller presented.
type TokenSource func(ctx context.Context) string

// Provisioner adapts the backend's lab VM endpoints to the session
// manager's provisioning contract.
type Provisioner struct {
	client *Client
	token  TokenSource
}

// NewProvisioner creates a provisioner backed by the given client.
func NewProvisioner(client *Client, token TokenSource) *Provisioner {
	return &Provisioner{client: client, token: token}
}

// Provision asks the backend to boot a lab VM for the CVE and returns the
// backend's instance identifier.
func (p *Provisioner) Provision(ctx context.Context, userID, cveID string) (string, error) {
	body, _ := sjson.SetBytes([]byte(`{}`), "cveId", cveID)
	if userID != "" {
		body, _ = sjson.SetBytes(body, "userId", userID)
	}

	rsp, err := p.client.Post(ctx, "/api/v1/labs", body, p.token(ctx))
	if err != nil {
		return "", err
	}

	id := gjson.GetBytes(rsp, "uuid")
	if !id.Exists() {
		id = gjson.GetBytes(rsp, "id")
	}
	if !id.Exists() {
		return "", fmt.Errorf("backend lab response carries no instance id")
	}
	return id.String(), nil
}

// Teardown asks the backend to destroy the lab VM.
func (p *Provisioner) Teardown(ctx context.Context, instanceID string) error {
	_, err := p.client.Post(ctx, "/api/v1/labs/"+instanceID+"/terminate", nil, p.token(ctx))
	return err
}

// AdminLabs fetches the paginated admin lab listing.
func (c *Client) AdminLabs(ctx context.Context, token string, page, pageSize int, status string) ([]byte, error) {
	query := map[string]string{
		"page":     fmt.Sprintf("%d", page),
		"pageSize": fmt.Sprintf("%d", pageSize),
	}
	if status != "" {
		query["status"] = status
	}
	return c.Get(ctx, "/api/v1/admin/labs", query, token)
}

// LabMetrics fetches the raw metrics document for one lab instance over the
// given range token (1h, 6h, 24h, all).
func (c *Client) LabMetrics(ctx context.Context, token, labID, rangeToken string) ([]byte, error) {
	return c.Get(ctx, "/api/v1/admin/labs/"+labID+"/metrics",
		map[string]string{"range": rangeToken}, token)
}

// LabLogs fetches the console log streams for one lab instance.
func (c *Client) LabLogs(ctx context.Context, token, labID string) ([]byte, error) {
	return c.Get(ctx, "/api/v1/admin/labs/"+labID+"/logs", nil, token)
}

// TerminateLab force-terminates a lab as an admin action.
func (c *Client) TerminateLab(ctx context.Context, token, labID string) ([]byte, error) {
	return c.Post(ctx, "/api/v1/admin/labs/"+labID+"/terminate", nil, token)
}

// UpstreamStatus returns the status code of an upstream error, or zero when
// the error did not come from an upstream response.
func UpstreamStatus(err error) int {
	if ue, ok := err.(*UpstreamError); ok {
		return ue.StatusCode
	}
	return 0
}

// IsUpstreamNotFound reports whether the error is an upstream 404.
func IsUpstreamNotFound(err error) bool {
	return UpstreamStatus(err) == http.StatusNotFound
}
