package api

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/pointsbridge/ww-adapter/internal/registry"
	"github.com/pointsbridge/ww-adapter/internal/ww"
)

// AccountService provisions and tears down polled WW accounts.
type AccountService interface {
	Create(ctx context.Context, creds ww.Credentials) (*registry.Entry, error)
	Get(id string) (*registry.Entry, bool)
	List() []*registry.Entry
	Remove(id string) bool
}

// Handler handles HTTP API requests for account and summary operations.
type Handler struct {
	logger  *zap.Logger
	service AccountService
}

// NewHandler creates a new Handler.
func NewHandler(logger *zap.Logger, service AccountService) *Handler {
	return &Handler{logger: logger, service: service}
}

// CreateAccount validates the submitted credentials against the live WW API
// and starts a poller for the account.
func (h *Handler) CreateAccount(c *fiber.Ctx) error {
	var req CreateAccountRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	if err := req.Validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	entry, err := h.service.Create(c.Context(), ww.Credentials{
		Region:   req.Region,
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		if errors.Is(err, registry.ErrAlreadyRegistered) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
		}
		h.logger.Warn("api.create_account_failed", zap.Error(err))
		return h.wwError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(toAccountResponse(entry))
}

// ListAccounts returns all registered accounts.
func (h *Handler) ListAccounts(c *fiber.Ctx) error {
	entries := h.service.List()
	out := make([]AccountResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, toAccountResponse(e))
	}
	return c.JSON(out)
}

// DeleteAccount tears down an account's poller and removes it.
func (h *Handler) DeleteAccount(c *fiber.Ctx) error {
	if !h.service.Remove(c.Params("id")) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "unknown account"})
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// GetLatest returns the most recently polled snapshot for an account.
func (h *Handler) GetLatest(c *fiber.Ctx) error {
	entry, ok := h.service.Get(c.Params("id"))
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "unknown account"})
	}

	snap, state, err := entry.Poller.Latest()
	resp := SummaryResponse{
		ID:       entry.ID,
		State:    string(state),
		Snapshot: snap,
	}
	if err != nil {
		resp.Error = err.Error()
	}
	return c.JSON(resp)
}

// GetSummary fetches a summary on demand, optionally for a specific date
// (?date=YYYY-MM-DD, default today).
func (h *Handler) GetSummary(c *fiber.Ctx) error {
	entry, ok := h.service.Get(c.Params("id"))
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "unknown account"})
	}

	var day time.Time
	if raw := c.Query("date"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "date must be YYYY-MM-DD"})
		}
		day = parsed
	}

	snap, err := entry.Client.GetPointsSummary(c.Context(), day)
	if err != nil {
		h.logger.Warn("api.get_summary_failed",
			zap.String("entry_id", entry.ID),
			zap.Error(err))
		return h.wwError(c, err)
	}

	return c.JSON(SummaryResponse{
		ID:       entry.ID,
		State:    string(ww.StateOK),
		Snapshot: snap,
	})
}

// wwError maps the client error taxonomy onto HTTP statuses: auth failures
// mean the operator must re-enter credentials, connection failures are
// transient, everything else is an upstream fault.
func (h *Handler) wwError(c *fiber.Ctx, err error) error {
	switch {
	case ww.IsAuth(err):
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": err.Error(),
			"state": string(ww.StateReauthRequired),
		})
	case ww.IsConnection(err):
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": err.Error(),
			"state": string(ww.StateUnavailable),
		})
	default:
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": err.Error(),
			"state": string(ww.StateUnavailable),
		})
	}
}
