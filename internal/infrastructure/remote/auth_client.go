package remote

import (
	"context"
	"net/http"
)

// loginRequest is the body for the login endpoint
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// loginResponse is the data payload of a successful login
type loginResponse struct {
	Token string `json:"token"`
}

// AuthClient is the adapter for the storefront's authentication endpoints
type AuthClient struct {
	api *Client
}

// NewAuthClient creates an auth adapter over the shared API client
func NewAuthClient(api *Client) *AuthClient {
	return &AuthClient{api: api}
}

// Login exchanges credentials for a session token
func (c *AuthClient) Login(ctx context.Context, email, password string) (string, error) {
	var resp loginResponse
	body := loginRequest{Email: email, Password: password}
	if err := c.api.do(ctx, http.MethodPost, "/auth/login", body, &resp); err != nil {
		return "", err
	}
	return resp.Token, nil
}
