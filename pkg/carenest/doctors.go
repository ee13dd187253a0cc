package carenest

import (
	"context"
	"net/http"
	"net/url"
)

// Doctors searches the public directory. Empty filter fields are ignored.
func (c *Client) Doctors(ctx context.Context, specialization, search string) ([]Doctor, error) {
	q := url.Values{}
	if specialization != "" {
		q.Set("specialization", specialization)
	}
	if search != "" {
		q.Set("search", search)
	}
	path := "/doctors"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var doctors []Doctor
	if _, err := c.call(ctx, http.MethodGet, path, nil, &doctors); err != nil {
		return nil, err
	}
	return doctors, nil
}

func (c *Client) Doctor(ctx context.Context, id string) (*Doctor, error) {
	var d Doctor
	if _, err := c.call(ctx, http.MethodGet, "/doctors/"+url.PathEscape(id), nil, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

func (c *Client) Specializations(ctx context.Context) ([]string, error) {
	var specs []string
	if _, err := c.call(ctx, http.MethodGet, "/doctors/specializations", nil, &specs); err != nil {
		return nil, err
	}
	return specs, nil
}

func (c *Client) MyDoctorProfile(ctx context.Context) (*Doctor, error) {
	var d Doctor
	if _, err := c.call(ctx, http.MethodGet, "/doctors/me", nil, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

func (c *Client) UpdateMyDoctorProfile(ctx context.Context, in UpdateDoctorRequest) (*Doctor, error) {
	var d Doctor
	if _, err := c.call(ctx, http.MethodPut, "/doctors/me", in, &d); err != nil {
		return nil, err
	}
	return &d, nil
}
