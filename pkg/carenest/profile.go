package carenest

import (
	"context"
	"net/http"
	"net/url"
)

func (c *Client) Profile(ctx context.Context, userID string) (*Profile, error) {
	var p Profile
	if _, err := c.call(ctx, http.MethodGet, "/profile/"+url.PathEscape(userID), nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) UpdateProfile(ctx context.Context, userID string, in UpdateProfileRequest) (*Profile, error) {
	var p Profile
	if _, err := c.call(ctx, http.MethodPut, "/profile/"+url.PathEscape(userID), in, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) AddMedicalHistory(ctx context.Context, userID string, in MedicalHistoryRequest) (*Profile, error) {
	var p Profile
	if _, err := c.call(ctx, http.MethodPost, "/profile/"+url.PathEscape(userID)+"/medical-history", in, &p); err != nil {
		return nil, err
	}
	return &p, nil
}
