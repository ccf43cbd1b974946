package client

import (
	"context"
)

// Account is the API view of a registered user.
type Account struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Activated bool   `json:"activated"`
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

// Register creates a new account.
func (c *Client) Register(ctx context.Context, email, password string) (*Account, error) {
	var acct Account
	err := c.post(ctx, "/api/v1/auth/register", credentials{Email: email, Password: password}, &acct)
	if err != nil {
		return nil, err
	}
	return &acct, nil
}

// Login exchanges credentials for an access token.
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	var resp tokenResponse
	err := c.post(ctx, "/api/v1/auth/login", credentials{Email: email, Password: password}, &resp)
	if err != nil {
		return "", err
	}
	return resp.Token, nil
}

// Refresh exchanges an expired access token for a fresh one.
func (c *Client) Refresh(ctx context.Context, token string) (string, error) {
	var resp tokenResponse
	err := c.post(ctx, "/api/v1/auth/refresh", map[string]string{"token": token}, &resp)
	if err != nil {
		return "", err
	}
	return resp.Token, nil
}
