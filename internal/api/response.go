package api

import (
	"time"

	"github.com/pointsbridge/ww-adapter/internal/registry"
	"github.com/pointsbridge/ww-adapter/internal/ww"
)

// CreateAccountRequest is the payload for POST /api/v1/accounts.
type CreateAccountRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Region   string `json:"region"`
}

// Validate checks required fields.
func (r *CreateAccountRequest) Validate() error {
	if r.Username == "" {
		return errMissingField("username")
	}
	if r.Password == "" {
		return errMissingField("password")
	}
	return nil
}

// AccountResponse describes one registered account.
type AccountResponse struct {
	ID         string     `json:"id"`
	Username   string     `json:"username"`
	Region     string     `json:"region"`
	State      string     `json:"state"`
	LastPolled *time.Time `json:"lastPolled,omitempty"`
}

// SummaryResponse carries a points snapshot plus the account state.
type SummaryResponse struct {
	ID       string             `json:"id"`
	State    string             `json:"state"`
	Snapshot *ww.PointsSnapshot `json:"snapshot,omitempty"`
	Error    string             `json:"error,omitempty"`
}

func toAccountResponse(e *registry.Entry) AccountResponse {
	resp := AccountResponse{
		ID:       e.ID,
		Username: e.Username,
		Region:   e.Region,
	}
	if e.Poller != nil {
		_, state, _ := e.Poller.Latest()
		resp.State = string(state)
		if t := e.Poller.LastPolled(); !t.IsZero() {
			resp.LastPolled = &t
		}
	}
	return resp
}

type fieldError struct{ field string }

func (e *fieldError) Error() string { return e.field + " is required" }

func errMissingField(field string) error { return &fieldError{field: field} }
