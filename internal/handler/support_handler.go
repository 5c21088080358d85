package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gwon-omega/eduflow-server/internal/model"
	"github.com/gwon-omega/eduflow-server/internal/store"
	"github.com/gwon-omega/eduflow-server/internal/tenantctx"
	"github.com/gwon-omega/eduflow-server/pkg/database"
	"github.com/gwon-omega/eduflow-server/pkg/logger"
	"github.com/gwon-omega/eduflow-server/prometheus"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

func validTicketStatus(status string) bool {
	switch status {
	case model.TicketOpen, model.TicketInProgress, model.TicketResolved, model.TicketClosed:
		return true
	}
	return false
}

// CreateTicket raises a support ticket on behalf of the calling user.
func CreateTicket(c echo.Context) error {
	log := logger.FromContext(c)
	rc := tenantctx.FromEcho(c)

	var req struct {
		Subject     string `json:"subject"`
		Description string `json:"description"`
		Priority    string `json:"priority"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if req.Subject == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "subject is required"})
	}
	if req.Priority == "" {
		req.Priority = "normal"
	}

	ticket := &model.SupportTicket{
		RaisedBy:    rc.UserID(),
		Subject:     req.Subject,
		Description: req.Description,
		Priority:    req.Priority,
		Status:      model.TicketOpen,
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	if err := store.New[model.SupportTicket](database.GetDB()).Create(c.Request().Context(), rc.InstituteID(), ticket); err != nil {
		log.Error("Failed to create ticket", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "ticket creation failed"})
	}

	log.Info("Support ticket raised",
		zap.String("ticket_id", ticket.ID),
		zap.String("raised_by", rc.UserID()),
		zap.String("institute_id", rc.InstituteID()))

	return c.JSON(http.StatusCreated, echo.Map{
		"message": "Ticket created successfully",
		"ticket":  ticket,
	})
}

// ListTickets lists the institute's support tickets. Students and teachers see
// only their own; admins see everything.
func ListTickets(c echo.Context) error {
	log := logger.FromContext(c)
	rc := tenantctx.FromEcho(c)

	opts := store.ListOptions{}
	addFilter := func(cond string, arg interface{}) {
		if opts.Where != "" {
			opts.Where += " AND "
		}
		opts.Where += cond
		opts.Args = append(opts.Args, arg)
	}
	if rc.Role() != model.RoleSuperAdmin && rc.Role() != model.RoleInstituteAdmin {
		addFilter("raised_by = ?", rc.UserID())
	}
	if status := c.QueryParam("status"); status != "" {
		addFilter("status = ?", status)
	}
	if priority := c.QueryParam("priority"); priority != "" {
		addFilter("priority = ?", priority)
	}
	if limit, err := strconv.Atoi(c.QueryParam("limit")); err == nil && limit > 0 {
		opts.Limit = limit
	}
	if offset, err := strconv.Atoi(c.QueryParam("offset")); err == nil && offset > 0 {
		opts.Offset = offset
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	tickets, err := store.New[model.SupportTicket](database.GetDB()).List(c.Request().Context(), rc.InstituteID(), opts)
	if err != nil {
		log.Error("Failed to list tickets", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to retrieve tickets"})
	}

	return c.JSON(http.StatusOK, tickets)
}

// GetTicket returns one ticket. Non-admins can only read their own.
func GetTicket(c echo.Context) error {
	log := logger.FromContext(c)
	rc := tenantctx.FromEcho(c)

	defer prometheus.TrackDBOperation("query")(time.Now())
	ticket, err := store.New[model.SupportTicket](database.GetDB()).GetByID(c.Request().Context(), c.Param("id"), rc.InstituteID())
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "ticket not found"})
		}
		log.Error("Failed to get ticket", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	if rc.Role() != model.RoleSuperAdmin && rc.Role() != model.RoleInstituteAdmin && ticket.RaisedBy != rc.UserID() {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "ticket not found"})
	}

	return c.JSON(http.StatusOK, ticket)
}

// UpdateTicket changes a ticket's status, assignment or resolution, and
// notifies the reporter when the ticket is resolved.
func UpdateTicket(c echo.Context) error {
	log := logger.FromContext(c)
	rc := tenantctx.FromEcho(c)
	ctx := c.Request().Context()

	var req struct {
		Status     string `json:"status"`
		Priority   string `json:"priority"`
		AssignedTo string `json:"assigned_to"`
		Resolution string `json:"resolution"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if req.Status != "" && !validTicketStatus(req.Status) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid ticket status"})
	}

	patch := map[string]interface{}{}
	if req.Status != "" {
		patch["status"] = req.Status
	}
	if req.Priority != "" {
		patch["priority"] = req.Priority
	}
	if req.AssignedTo != "" {
		patch["assigned_to"] = req.AssignedTo
	}
	if req.Resolution != "" {
		patch["resolution"] = req.Resolution
	}
	if len(patch) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "nothing to update"})
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	ticket, err := store.New[model.SupportTicket](database.GetDB()).Update(ctx, c.Param("id"), rc.InstituteID(), patch)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "ticket not found"})
		}
		log.Error("Failed to update ticket", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}

	if req.Status == model.TicketResolved && notifier != nil {
		if err := notifier.Notify(ctx, rc.InstituteID(), []string{ticket.RaisedBy}, "support",
			"Ticket resolved: "+ticket.Subject, ticket.Resolution); err != nil {
			log.Warn("Ticket resolution notification failed", zap.Error(err))
		}
	}

	log.Info("Support ticket updated",
		zap.String("ticket_id", ticket.ID),
		zap.String("status", ticket.Status),
		zap.String("institute_id", rc.InstituteID()))

	return c.JSON(http.StatusOK, ticket)
}
