package carenest

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

// Register creates a pending account; role defaults to patient.
// The returned email is the one the OTP was sent to.
func (c *Client) Register(ctx context.Context, in RegisterRequest) (string, error) {
	if in.Name == "" || in.Email == "" || in.Password == "" {
		return "", errors.New("name, email and password are required")
	}
	if len(in.Password) < MinPasswordLength {
		return "", errors.New("password must be at least 6 characters")
	}

	var out struct {
		Email string `json:"email"`
	}
	if _, err := c.call(ctx, http.MethodPost, "/auth/register", in, &out); err != nil {
		return "", err
	}
	return out.Email, nil
}

func (c *Client) VerifyOTP(ctx context.Context, email, otp string) error {
	if len(otp) != 6 || strings.Trim(otp, "0123456789") != "" {
		return errors.New("OTP must be 6 digits")
	}
	_, err := c.call(ctx, http.MethodPost, "/auth/otp-verification", credentials{Email: email, OTP: otp}, nil)
	return err
}

func (c *Client) ResendOTP(ctx context.Context, email string) error {
	_, err := c.call(ctx, http.MethodPost, "/auth/resend-otp", credentials{Email: email}, nil)
	return err
}

// Login stores the issued token and user in the session store. With
// remember set the email is kept for the next login prompt.
func (c *Client) Login(ctx context.Context, email, password string, remember bool) (*Session, error) {
	var out loginResult
	if _, err := c.call(ctx, http.MethodPost, "/auth/login", credentials{Email: email, Password: password}, &out); err != nil {
		return nil, err
	}

	session := &Session{Token: out.Token, User: out.User}
	if remember {
		session.RememberedEmail = email
	}
	if err := c.store.Save(session); err != nil {
		return nil, err
	}
	return session, nil
}

// Logout forgets the session locally; tokens are not revoked server side.
func (c *Client) Logout() error {
	return c.store.Clear()
}

// Me refreshes the stored user from the server.
func (c *Client) Me(ctx context.Context) (*User, error) {
	var user User
	if _, err := c.call(ctx, http.MethodGet, "/auth/me", nil, &user); err != nil {
		return nil, err
	}
	if s, err := c.store.Load(); err == nil && s != nil {
		s.User = user
		_ = c.store.Save(s)
	}
	return &user, nil
}

func (c *Client) ForgotPassword(ctx context.Context, email string) error {
	_, err := c.call(ctx, http.MethodPost, "/password/forgot-password", credentials{Email: email}, nil)
	return err
}

func (c *Client) ResetPassword(ctx context.Context, token, newPassword, confirmPassword string) error {
	_, err := c.call(ctx, http.MethodPost, "/password/reset-password", struct {
		Token           string `json:"token"`
		NewPassword     string `json:"newPassword"`
		ConfirmPassword string `json:"confirmPassword"`
	}{token, newPassword, confirmPassword}, nil)
	return err
}

func (c *Client) ChangePassword(ctx context.Context, in ChangePasswordRequest) error {
	_, err := c.call(ctx, http.MethodPost, "/password/change-password", in, nil)
	return err
}
