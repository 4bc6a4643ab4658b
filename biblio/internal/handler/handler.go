package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Astemirdum/biblio-service/biblio/internal/bookmeta"
	"github.com/Astemirdum/biblio-service/biblio/internal/errs"
	"github.com/Astemirdum/biblio-service/pkg/auth"
	md "github.com/Astemirdum/biblio-service/pkg/middleware"
	"github.com/Astemirdum/biblio-service/pkg/model"
	"github.com/Astemirdum/biblio-service/pkg/validate"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type Handler struct {
	biblioSvc BiblioService
	statsSvc  StatsService
	gatherer  prometheus.Gatherer
	heartbeat time.Duration
	authn     echo.MiddlewareFunc
	log       *zap.Logger
}

type Option func(h *Handler)

// WithStats enables GET /stats.
func WithStats(svc StatsService) Option {
	return func(h *Handler) {
		h.statsSvc = svc
	}
}

// WithMetrics exposes the gatherer on GET /metrics.
func WithMetrics(g prometheus.Gatherer) Option {
	return func(h *Handler) {
		h.gatherer = g
	}
}

// WithAuthentication puts a token check in front of every /api/v1 route.
func WithAuthentication(mw echo.MiddlewareFunc) Option {
	return func(h *Handler) {
		h.authn = mw
	}
}

func WithHeartbeat(d time.Duration) Option {
	return func(h *Handler) {
		h.heartbeat = d
	}
}

func New(biblioSvc BiblioService, log *zap.Logger, opts ...Option) *Handler {
	h := &Handler{
		biblioSvc: biblioSvc,
		heartbeat: 15 * time.Second,
		log:       log.Named("handler"),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) NewRouter() *echo.Echo {
	e := echo.New()
	const (
		baseRPS = 10
		apiRPS  = 100
	)
	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		StackSize: 4 << 10, // 4 KB
	}))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{http.MethodGet, http.MethodOptions, http.MethodHead, http.MethodPut, http.MethodPatch, http.MethodPost, http.MethodDelete},
		AllowCredentials: true,
	}))

	base := e.Group("", md.NewRateLimiter(baseRPS))
	base.GET("/manage/health", h.Health)
	if h.gatherer != nil {
		base.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{})))
	}

	e.Validator = validate.NewCustomValidator()
	api := e.Group("/api/v1",
		middleware.RequestLoggerWithConfig(md.RequestLoggerConfig(h.log)),
		middleware.RequestID(),
		md.NewRateLimiter(apiRPS),
	)
	if h.authn != nil {
		api.Use(h.authn)
	}
	// registration creates the membership, so it cannot require one
	api.POST("/users", h.RegisterUser)

	api = api.Group("", md.AuthContext(h.resolveIdentity))
	api.GET("/me", h.Me)
	api.GET("/users", h.GetUsers)

	api.GET("/books", h.ListBooks)
	api.POST("/books", h.AddBook)
	api.PUT("/books/:bookId", h.UpdateBook)
	api.GET("/isbn/:isbn", h.LookupISBN)

	api.GET("/requests", h.ListRequests)
	api.POST("/requests", h.SubmitRequest)
	api.DELETE("/requests/:requestId", h.CancelRequest)
	api.POST("/requests/:requestId/approve", h.ApproveRequest)
	api.POST("/requests/:requestId/reject", h.RejectRequest)

	api.GET("/loans", h.ListLoans)
	api.POST("/loans/:loanId/return", h.MarkReturned)
	api.PUT("/loans/:loanId/due-date", h.SetDueDate)

	api.GET("/changes", h.Changes)
	api.GET("/stats", h.GetStats)
	return e
}

func (h *Handler) Health(c echo.Context) error {
	return c.String(http.StatusOK, "OK")
}

func (h *Handler) resolveIdentity(ctx context.Context, userID, schoolID string) (model.Identity, error) {
	ident, err := h.biblioSvc.Membership(ctx, userID, schoolID)
	if err != nil {
		return model.Identity{}, httpError(err)
	}
	return ident, nil
}

func identity(c echo.Context) (model.Identity, error) {
	ident, err := auth.GetIdentity(c.Request().Context())
	if err != nil {
		return model.Identity{}, echo.NewHTTPError(http.StatusUnauthorized, err.Error())
	}
	return ident, nil
}

// httpError maps engine errors onto status codes.
func httpError(err error) error {
	var verr *errs.ValidationError
	switch {
	case errors.As(err, &verr):
		return echo.NewHTTPError(http.StatusBadRequest, verr.Error())
	case errors.Is(err, errs.ErrValidation), errors.Is(err, errs.ErrBatchTooLarge):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, errs.ErrPermissionDenied), errors.Is(err, errs.ErrNoSchool):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	case errors.Is(err, errs.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, errs.ErrAlreadyProcessed),
		errors.Is(err, errs.ErrNoCopiesAvailable),
		errors.Is(err, errs.ErrAlreadyReturned),
		errors.Is(err, errs.ErrDuplicateRequest):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, bookmeta.ErrUnavailable):
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}

func (h *Handler) RegisterUser(c echo.Context) error {
	userID := c.Request().Header.Get(auth.XUserIDHeader)
	schoolID := c.Request().Header.Get(auth.XSchoolIDHeader)
	if userID == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "user-id is empty")
	}
	var req model.RegisterUserRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	user, err := h.biblioSvc.RegisterUser(c.Request().Context(), userID, schoolID, req)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, user)
}

func (h *Handler) Me(c echo.Context) error {
	ident, err := identity(c)
	if err != nil {
		return err
	}
	if ident.SchoolID() == "" {
		return echo.NewHTTPError(http.StatusNotFound, errs.ErrMembershipAbsent.Error())
	}
	return c.JSON(http.StatusOK, ident.Membership)
}

func (h *Handler) GetUsers(c echo.Context) error {
	ident, err := identity(c)
	if err != nil {
		return err
	}
	var ids []string
	for _, id := range strings.Split(c.QueryParam("ids"), ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	users, err := h.biblioSvc.GetUsers(c.Request().Context(), ident, ids)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, users)
}

func (h *Handler) ListBooks(c echo.Context) error {
	ident, err := identity(c)
	if err != nil {
		return err
	}
	books, err := h.biblioSvc.ListBooks(c.Request().Context(), ident)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, books)
}

func (h *Handler) AddBook(c echo.Context) error {
	ident, err := identity(c)
	if err != nil {
		return err
	}
	var in model.BookInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	book, err := h.biblioSvc.AddBook(c.Request().Context(), ident, in)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, book)
}

func (h *Handler) UpdateBook(c echo.Context) error {
	ident, err := identity(c)
	if err != nil {
		return err
	}
	var in model.BookInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	book, err := h.biblioSvc.UpdateBook(c.Request().Context(), ident, c.Param("bookId"), in)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, book)
}

func (h *Handler) LookupISBN(c echo.Context) error {
	ident, err := identity(c)
	if err != nil {
		return err
	}
	meta, err := h.biblioSvc.LookupISBN(c.Request().Context(), ident, c.Param("isbn"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, meta)
}

func (h *Handler) ListRequests(c echo.Context) error {
	ident, err := identity(c)
	if err != nil {
		return err
	}
	requests, err := h.biblioSvc.ListRequests(c.Request().Context(), ident)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, requests)
}

func (h *Handler) SubmitRequest(c echo.Context) error {
	ident, err := identity(c)
	if err != nil {
		return err
	}
	var req struct {
		BookID string `json:"bookId" validate:"required"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	created, err := h.biblioSvc.SubmitRequest(c.Request().Context(), ident, req.BookID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, created)
}

func (h *Handler) CancelRequest(c echo.Context) error {
	ident, err := identity(c)
	if err != nil {
		return err
	}
	if err := h.biblioSvc.CancelRequest(c.Request().Context(), ident, c.Param("requestId")); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ApproveRequest(c echo.Context) error {
	ident, err := identity(c)
	if err != nil {
		return err
	}
	loan, err := h.biblioSvc.ApproveRequest(c.Request().Context(), ident, c.Param("requestId"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, loan)
}

func (h *Handler) RejectRequest(c echo.Context) error {
	ident, err := identity(c)
	if err != nil {
		return err
	}
	if err := h.biblioSvc.RejectRequest(c.Request().Context(), ident, c.Param("requestId")); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ListLoans(c echo.Context) error {
	ident, err := identity(c)
	if err != nil {
		return err
	}
	var onlyOpen bool
	if openParam := c.QueryParam("open"); openParam != "" {
		if onlyOpen, err = strconv.ParseBool(openParam); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "open is invalid")
		}
	}
	loans, err := h.biblioSvc.ListLoans(c.Request().Context(), ident, onlyOpen)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, loans)
}

func (h *Handler) MarkReturned(c echo.Context) error {
	ident, err := identity(c)
	if err != nil {
		return err
	}
	loan, err := h.biblioSvc.MarkReturned(c.Request().Context(), ident, c.Param("loanId"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, loan)
}

func (h *Handler) SetDueDate(c echo.Context) error {
	ident, err := identity(c)
	if err != nil {
		return err
	}
	var req model.DueDateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	var due *time.Time
	if req.DueDate != nil && !req.DueDate.IsZero() {
		d := req.DueDate.Time
		due = &d
	}
	loan, err := h.biblioSvc.SetDueDate(c.Request().Context(), ident, c.Param("loanId"), due)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, loan)
}

func (h *Handler) GetStats(c echo.Context) error {
	ident, err := identity(c)
	if err != nil {
		return err
	}
	if h.statsSvc == nil {
		return echo.NewHTTPError(http.StatusNotFound, "stats are disabled")
	}
	stats, err := h.statsSvc.GetStats(c.Request().Context(), ident)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, stats)
}
