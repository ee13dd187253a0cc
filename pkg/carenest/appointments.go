package carenest

import (
	"context"
	"errors"
	"net/http"
	"net/url"
)

func (c *Client) BookAppointment(ctx context.Context, doctorID, date, slotTime, reason string) (*Appointment, error) {
	if doctorID == "" || date == "" || slotTime == "" {
		return nil, errors.New("doctor ID, date and time are required")
	}

	var appt Appointment
	_, err := c.call(ctx, http.MethodPost, "/appointments", struct {
		DoctorID string `json:"doctorId"`
		Date     string `json:"date"`
		Time     string `json:"time"`
		Reason   string `json:"reason,omitempty"`
	}{doctorID, date, slotTime, reason}, &appt)
	if err != nil {
		return nil, err
	}
	return &appt, nil
}

func (c *Client) PatientAppointments(ctx context.Context) ([]Appointment, error) {
	var appts []Appointment
	if _, err := c.call(ctx, http.MethodGet, "/appointments/patient", nil, &appts); err != nil {
		return nil, err
	}
	return appts, nil
}

// DoctorAppointments lists the bookings of doctorID, or of the logged-in
// doctor when doctorID is empty.
func (c *Client) DoctorAppointments(ctx context.Context, doctorID string) ([]Appointment, error) {
	path := "/appointments/doctor"
	if doctorID != "" {
		path += "/" + url.PathEscape(doctorID)
	}

	var appts []Appointment
	if _, err := c.call(ctx, http.MethodGet, path, nil, &appts); err != nil {
		return nil, err
	}
	return appts, nil
}

func (c *Client) Appointment(ctx context.Context, id string) (*Appointment, error) {
	var appt Appointment
	if _, err := c.call(ctx, http.MethodGet, "/appointments/"+url.PathEscape(id), nil, &appt); err != nil {
		return nil, err
	}
	return &appt, nil
}

func (c *Client) CancelAppointment(ctx context.Context, id, reason string) (*Appointment, error) {
	var appt Appointment
	_, err := c.call(ctx, http.MethodPut, "/appointments/"+url.PathEscape(id)+"/cancel",
		map[string]string{"reason": reason}, &appt)
	if err != nil {
		return nil, err
	}
	return &appt, nil
}

func (c *Client) UpdateAppointmentStatus(ctx context.Context, id string, status AppointmentStatus) (*Appointment, error) {
	var appt Appointment
	_, err := c.call(ctx, http.MethodPut, "/appointments/"+url.PathEscape(id)+"/status",
		map[string]string{"status": string(status)}, &appt)
	if err != nil {
		return nil, err
	}
	return &appt, nil
}

func (c *Client) AddPrescription(ctx context.Context, appointmentID string, in PrescriptionRequest) (*Prescription, error) {
	var p Prescription
	if _, err := c.call(ctx, http.MethodPost, "/appointments/"+url.PathEscape(appointmentID)+"/prescription", in, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) Prescription(ctx context.Context, appointmentID string) (*Prescription, error) {
	var p Prescription
	if _, err := c.call(ctx, http.MethodGet, "/appointments/"+url.PathEscape(appointmentID)+"/prescription", nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}
