package carenest

import (
	"context"
	"net/http"
	"net/url"
)

func (c *Client) AllUsers(ctx context.Context) ([]User, error) {
	var users []User
	if _, err := c.call(ctx, http.MethodGet, "/admin/users", nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (c *Client) AllPatients(ctx context.Context) ([]User, error) {
	var users []User
	if _, err := c.call(ctx, http.MethodGet, "/admin/patients", nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (c *Client) AllDoctors(ctx context.Context) ([]Doctor, error) {
	var doctors []Doctor
	if _, err := c.call(ctx, http.MethodGet, "/admin/doctors", nil, &doctors); err != nil {
		return nil, err
	}
	return doctors, nil
}

func (c *Client) AllAppointments(ctx context.Context) ([]Appointment, error) {
	var appts []Appointment
	if _, err := c.call(ctx, http.MethodGet, "/appointments", nil, &appts); err != nil {
		return nil, err
	}
	return appts, nil
}

func (c *Client) DeleteDoctor(ctx context.Context, id string) error {
	_, err := c.call(ctx, http.MethodDelete, "/admin/doctors/"+url.PathEscape(id), nil, nil)
	return err
}

func (c *Client) DeleteUser(ctx context.Context, id string) error {
	_, err := c.call(ctx, http.MethodDelete, "/admin/users/"+url.PathEscape(id), nil, nil)
	return err
}

// DashboardStats are the totals shown on the admin dashboard.
type DashboardStats struct {
	TotalPatients     int `json:"totalPatients"`
	TotalDoctors      int `json:"totalDoctors"`
	TotalAppointments int `json:"totalAppointments"`
}

// DashboardStats reads the counts of the three admin listings.
func (c *Client) DashboardStats(ctx context.Context) (*DashboardStats, error) {
	var stats DashboardStats
	for _, q := range []struct {
		path string
		dst  *int
	}{
		{"/admin/patients", &stats.TotalPatients},
		{"/admin/doctors", &stats.TotalDoctors},
		{"/appointments", &stats.TotalAppointments},
	} {
		env, err := c.call(ctx, http.MethodGet, q.path, nil, nil)
		if err != nil {
			return nil, err
		}
		if env.Count != nil {
			*q.dst = *env.Count
		}
	}
	return &stats, nil
}
