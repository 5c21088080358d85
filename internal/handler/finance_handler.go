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
	"gorm.io/gorm"
)

// CreateInvoice issues a fee demand to a student and notifies them.
func CreateInvoice(c echo.Context) error {
	log := logger.FromContext(c)
	rc := tenantctx.FromEcho(c)
	ctx := c.Request().Context()
	db := database.GetDB()

	var req struct {
		StudentID   string  `json:"student_id"`
		Title       string  `json:"title"`
		Amount      float64 `json:"amount"`
		DueDate     string  `json:"due_date"` // YYYY-MM-DD
		Description string  `json:"description"`
	}
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse invoice request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if req.StudentID == "" || req.Title == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "student_id and title are required"})
	}
	if req.Amount <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "amount must be positive"})
	}

	var dueDate time.Time
	if req.DueDate != "" {
		parsed, err := time.Parse("2006-01-02", req.DueDate)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "due_date must be YYYY-MM-DD"})
		}
		dueDate = parsed
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())

	student, err := store.New[model.Student](db).GetByID(ctx, req.StudentID, rc.InstituteID())
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "student not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	invoice := &model.FeeInvoice{
		StudentID:   req.StudentID,
		Title:       req.Title,
		Amount:      req.Amount,
		DueDate:     dueDate,
		Status:      model.InvoicePending,
		Description: req.Description,
	}
	if err := store.New[model.FeeInvoice](db).Create(ctx, rc.InstituteID(), invoice); err != nil {
		log.Error("Failed to create invoice", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "invoice creation failed"})
	}

	if notifier != nil {
		if err := notifier.Notify(ctx, rc.InstituteID(), []string{student.UserID}, "finance",
			"New fee invoice: "+invoice.Title,
			"An invoice of "+strconv.FormatFloat(invoice.Amount, 'f', 2, 64)+" has been issued to you."); err != nil {
			log.Warn("Invoice notification failed", zap.Error(err))
		}
	}

	log.Info("Invoice issued",
		zap.String("invoice_id", invoice.ID),
		zap.String("student_id", req.StudentID),
		zap.Float64("amount", req.Amount),
		zap.String("institute_id", rc.InstituteID()))

	return c.JSON(http.StatusCreated, echo.Map{
		"message": "Invoice created successfully",
		"invoice": invoice,
	})
}

// ListInvoices lists the institute's fee invoices.
func ListInvoices(c echo.Context) error {
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
	if studentID := c.QueryParam("student_id"); studentID != "" {
		addFilter("student_id = ?", studentID)
	}
	if status := c.QueryParam("status"); status != "" {
		addFilter("status = ?", status)
	}
	if limit, err := strconv.Atoi(c.QueryParam("limit")); err == nil && limit > 0 {
		opts.Limit = limit
	}
	if offset, err := strconv.Atoi(c.QueryParam("offset")); err == nil && offset > 0 {
		opts.Offset = offset
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	invoices, err := store.New[model.FeeInvoice](database.GetDB()).List(c.Request().Context(), rc.InstituteID(), opts)
	if err != nil {
		log.Error("Failed to list invoices", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to retrieve invoices"})
	}

	return c.JSON(http.StatusOK, invoices)
}

// GetInvoice returns one invoice together with its payments.
func GetInvoice(c echo.Context) error {
	log := logger.FromContext(c)
	rc := tenantctx.FromEcho(c)
	ctx := c.Request().Context()
	db := database.GetDB()

	defer prometheus.TrackDBOperation("query")(time.Now())

	invoice, err := store.New[model.FeeInvoice](db).GetByID(ctx, c.Param("id"), rc.InstituteID())
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "invoice not found"})
		}
		log.Error("Failed to get invoice", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	payments, err := store.New[model.FeePayment](db).List(ctx, rc.InstituteID(), store.ListOptions{
		Where: "invoice_id = ?",
		Args:  []interface{}{invoice.ID},
		Order: "received_at ASC",
	})
	if err != nil {
		log.Error("Failed to list payments", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"invoice":  invoice,
		"payments": payments,
	})
}

// RecordPayment applies a payment against an invoice. The payment row and the
// invoice balance update commit atomically.
func RecordPayment(c echo.Context) error {
	log := logger.FromContext(c)
	rc := tenantctx.FromEcho(c)
	ctx := c.Request().Context()
	db := database.GetDB()

	var req struct {
		Amount    float64 `json:"amount"`
		Method    string  `json:"method"`
		Reference string  `json:"reference"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if req.Amount <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "amount must be positive"})
	}
	if req.Method == "" {
		req.Method = "cash"
	}
	invoiceID := c.Param("id")

	defer prometheus.TrackDBOperation("update")(time.Now())

	var payment *model.FeePayment
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		invoices := store.New[model.FeeInvoice](tx)

		invoice, err := invoices.GetByID(ctx, invoiceID, rc.InstituteID())
		if err != nil {
			return err
		}
		if invoice.Status == model.InvoiceVoid {
			return echo.NewHTTPError(http.StatusConflict, "invoice is void")
		}
		remaining := invoice.Amount - invoice.AmountPaid
		if req.Amount > remaining {
			return echo.NewHTTPError(http.StatusConflict, "payment exceeds outstanding balance")
		}

		payment = &model.FeePayment{
			InvoiceID:  invoice.ID,
			StudentID:  invoice.StudentID,
			Amount:     req.Amount,
			Method:     req.Method,
			Reference:  req.Reference,
			ReceivedAt: time.Now().UTC(),
			ReceivedBy: rc.UserID(),
		}
		if err := store.New[model.FeePayment](tx).Create(ctx, rc.InstituteID(), payment); err != nil {
			return err
		}

		paid := invoice.AmountPaid + req.Amount
		status := model.InvoicePartial
		if paid >= invoice.Amount {
			status = model.InvoicePaid
		}
		_, err = invoices.Update(ctx, invoice.ID, rc.InstituteID(), map[string]interface{}{
			"amount_paid": paid,
			"status":      status,
		})
		return err
	})
	if err != nil {
		var httpErr *echo.HTTPError
		if errors.As(err, &httpErr) {
			return c.JSON(httpErr.Code, echo.Map{"error": httpErr.Message})
		}
		if errors.Is(err, store.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "invoice not found"})
		}
		log.Error("Failed to record payment", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "payment failed"})
	}

	log.Info("Payment recorded",
		zap.String("invoice_id", invoiceID),
		zap.Float64("amount", req.Amount),
		zap.String("institute_id", rc.InstituteID()))

	return c.JSON(http.StatusCreated, echo.Map{
		"message": "Payment recorded",
		"payment": payment,
	})
}

// GetFinanceSummary aggregates the institute's billing position.
func GetFinanceSummary(c echo.Context) error {
	log := logger.FromContext(c)
	rc := tenantctx.FromEcho(c)
	ctx := c.Request().Context()
	db := database.GetDB()

	defer prometheus.TrackDBOperation("query")(time.Now())

	var totals struct {
		Invoiced  float64
		Collected float64
	}
	err := db.WithContext(ctx).Model(&model.FeeInvoice{}).
		Where("institute_id = ? AND status <> ?", rc.InstituteID(), model.InvoiceVoid).
		Select("COALESCE(SUM(amount), 0) AS invoiced, COALESCE(SUM(amount_paid), 0) AS collected").
		Scan(&totals).Error
	if err != nil {
		log.Error("Finance summary failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	invoices := store.New[model.FeeInvoice](db)
	byStatus := echo.Map{}
	for _, status := range []string{model.InvoicePending, model.InvoicePartial, model.InvoicePaid, model.InvoiceVoid} {
		count, err := invoices.Count(ctx, rc.InstituteID(), "status = ?", status)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
		}
		byStatus[status] = count
	}

	return c.JSON(http.StatusOK, echo.Map{
		"total_invoiced":  totals.Invoiced,
		"total_collected": totals.Collected,
		"outstanding":     totals.Invoiced - totals.Collected,
		"invoices":        byStatus,
	})
}
