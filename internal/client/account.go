package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/liliang-cn/askchat/internal/domain"
)

// Login exchanges a username and password for an access token. It does not
// store the token.
func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	body, err := json.Marshal(domain.LoginRequest{Username: username, Password: password})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(c.opts.LoginPath), bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", &TransportError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return "", &AuthRequiredError{StatusCode: resp.StatusCode, Reason: excerpt(resp.Body)}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &TransportError{StatusCode: resp.StatusCode, Body: excerpt(resp.Body)}
	}

	var out domain.LoginResponse
	if err := decodeJSON(resp.Body, &out); err != nil {
		return "", err
	}
	if out.AccessToken == "" {
		return "", fmt.Errorf("login response carried no access_token")
	}
	return out.AccessToken, nil
}

// UserInfo fetches the account behind the stored token
func (c *Client) UserInfo(ctx context.Context) (*domain.UserInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(c.opts.UserInfoPath), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	c.authorize(ctx, req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	authErr, err := challenge(resp)
	if err != nil {
		return nil, &TransportError{StatusCode: resp.StatusCode, Err: err}
	}
	if authErr != nil {
		return nil, authErr
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &TransportError{StatusCode: resp.StatusCode, Body: excerpt(resp.Body)}
	}

	var info domain.UserInfo
	if err := decodeJSON(resp.Body, &info); err != nil {
		return nil, err
	}
	return &info, nil
}
