package api

import (
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strings"
	"time"

	models "AleoRisk/internal/domain/models"
	domrepo "AleoRisk/internal/domain/repository"
	"AleoRisk/internal/service/metrics"
	"AleoRisk/internal/service/progress"
	"AleoRisk/internal/service/ratelimit"
	"AleoRisk/internal/services/aleo"
	"AleoRisk/internal/services/analyzer"
	"AleoRisk/internal/usecase"
	xhttp "AleoRisk/pkg/http"
	applogger "AleoRisk/pkg/logger"
	xutil "AleoRisk/pkg/util"

	"github.com/labstack/echo/v4"
)

const defaultMaxUpload int64 = 5 << 20

func init() {
	xhttp.RegisterValidation("aleo_address", aleo.IsValidAddress)
}

// AnalysisEchoHandler serves the analysis, history, verification and program endpoints.
type AnalysisEchoHandler struct {
	analyses  *usecase.RiskAnalysisUseCase
	reports   *usecase.ReportsUseCase
	verifier  *usecase.VerifyUseCase
	hub       *progress.Hub
	rl        *ratelimit.Limiter
	l         *applogger.Logger
	maxUpload int64
	network   string
}

var _ xhttp.Handler = (*AnalysisEchoHandler)(nil)

// HandlerOption configures AnalysisEchoHandler.
type HandlerOption func(*AnalysisEchoHandler)

// WithRateLimit limits submissions per remote address.
func WithRateLimit(rl *ratelimit.Limiter) HandlerOption {
	return func(h *AnalysisEchoHandler) { h.rl = rl }
}

// WithMaxUpload caps the upload body size in bytes.
func WithMaxUpload(n int64) HandlerOption {
	return func(h *AnalysisEchoHandler) {
		if n > 0 {
			h.maxUpload = n
		}
	}
}

// WithNetwork sets the chain reported by GET /api/program.
func WithNetwork(network string) HandlerOption {
	return func(h *AnalysisEchoHandler) {
		if network != "" {
			h.network = network
		}
	}
}

func NewAnalysisEchoHandler(
	analyses *usecase.RiskAnalysisUseCase,
	reports *usecase.ReportsUseCase,
	verifier *usecase.VerifyUseCase,
	hub *progress.Hub,
	opts ...HandlerOption,
) *AnalysisEchoHandler {
	metrics.Register()
	h := &AnalysisEchoHandler{
		analyses:  analyses,
		reports:   reports,
		verifier:  verifier,
		hub:       hub,
		l:         applogger.Nop(),
		maxUpload: defaultMaxUpload,
		network:   aleo.ChainID,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// SetLogger injects a structured logger.
func (h *AnalysisEchoHandler) SetLogger(l *applogger.Logger) {
	if l != nil {
		h.l = l
	}
}

func (h *AnalysisEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.POST("/analyses", h.Submit)
	g.POST("/analyses/preview", h.Preview)
	g.GET("/analyses/:id", h.Get)
	g.GET("/transactions", h.Transactions)
	g.GET("/reports", h.Reports)
	g.POST("/verify", h.Verify)
	g.GET("/program", h.Program)

	e.GET("/ws/analyses/:id", h.Stream)
}

// Submit analyzes the upload and schedules proving. Responds 202.
func (h *AnalysisEchoHandler) Submit(c echo.Context) error {
	defer observe("submit", time.Now())
	if !h.rl.Allow(c.RealIP() + ":submit") {
		h.l.Warn("analysis submit rate limited", applogger.String("remote", c.RealIP()))
		return h.fail(c, "submit", xhttp.TooManyRequestsError())
	}
	in, err := h.readUpload(c)
	if err != nil {
		return h.fail(c, "submit", err)
	}
	if f, ok := in.Content.(interface{ Close() error }); ok {
		defer f.Close()
	}

	res, err := h.analyses.Submit(c.Request().Context(), in)
	if err != nil {
		return h.fail(c, "submit", err)
	}
	return xhttp.AcceptedResponse(c, res)
}

// Preview analyzes the upload without storing or proving it.
func (h *AnalysisEchoHandler) Preview(c echo.Context) error {
	defer observe("preview", time.Now())
	in, err := h.readUpload(c)
	if err != nil {
		return h.fail(c, "preview", err)
	}
	if f, ok := in.Content.(interface{ Close() error }); ok {
		defer f.Close()
	}

	res, err := h.analyses.Preview(c.Request().Context(), in)
	if err != nil {
		return h.fail(c, "preview", err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *AnalysisEchoHandler) Get(c echo.Context) error {
	defer observe("get", time.Now())
	res, err := h.analyses.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return h.fail(c, "get", err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *AnalysisEchoHandler) Transactions(c echo.Context) error {
	defer observe("transactions", time.Now())
	req := &models.TransactionsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		metrics.APIErrors.WithLabelValues("transactions", xhttp.CodeBadRequest).Inc()
		return xhttp.BadRequestResponse(c, verr)
	}

	txs, err := h.reports.Transactions(c.Request().Context(), req.Owner, req.Limit)
	if err != nil {
		return h.fail(c, "transactions", err)
	}
	if txs == nil {
		txs = []models.TransactionStatus{}
	}
	return xhttp.ListResponse(c, txs, int64(len(txs)))
}

func (h *AnalysisEchoHandler) Reports(c echo.Context) error {
	defer observe("reports", time.Now())
	req := &models.ReportsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		metrics.APIErrors.WithLabelValues("reports", xhttp.CodeBadRequest).Inc()
		return xhttp.BadRequestResponse(c, verr)
	}
	p := usecase.ListReportsParams{Owner: req.Owner, Limit: req.Limit}
	var ok bool
	if req.From != "" {
		if p.From, ok = xutil.ParseTime(req.From); !ok {
			return h.fail(c, "reports", xhttp.BadRequestError("from", "from must be a date or unix seconds"))
		}
	}
	if req.To != "" {
		if p.To, ok = xutil.ParseTime(req.To); !ok {
			return h.fail(c, "reports", xhttp.BadRequestError("to", "to must be a date or unix seconds"))
		}
	}

	res, err := h.reports.List(c.Request().Context(), p)
	if err != nil {
		return h.fail(c, "reports", err)
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=15")
	return xhttp.SuccessResponse(c, res)
}

func (h *AnalysisEchoHandler) Verify(c echo.Context) error {
	defer observe("verify", time.Now())
	req := &models.VerifyRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		metrics.APIErrors.WithLabelValues("verify", xhttp.CodeBadRequest).Inc()
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.verifier.Verify(c.Request().Context(), req.ProofID)
	if err != nil {
		return h.fail(c, "verify", err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *AnalysisEchoHandler) Program(c echo.Context) error {
	c.Response().Header().Set(echo.HeaderCacheControl, "public, max-age=300")
	return xhttp.SuccessResponse(c, models.ProgramInfo{
		ProgramID: aleo.ProgramID,
		ChainID:   h.network,
		Network:   aleo.NetworkName(h.network),
		Functions: aleo.Functions,
		Source:    aleo.ProgramSource,
	})
}

// Stream upgrades to a websocket carrying ProgressEvents for one analysis.
func (h *AnalysisEchoHandler) Stream(c echo.Context) error {
	id := c.Param("id")
	if strings.TrimSpace(id) == "" {
		return h.fail(c, "stream", xhttp.BadRequestError("id", "id is required"))
	}
	if err := h.hub.ServeWS(c.Response(), c.Request(), id); err != nil {
		// the upgrader has already written the handshake error
		h.l.Warn("progress stream upgrade failed", applogger.String("analysis_id", id), applogger.Error(err))
	}
	return nil
}

// readUpload accepts either a multipart "file" field or a raw body.
func (h *AnalysisEchoHandler) readUpload(c echo.Context) (usecase.AnalyzeInput, error) {
	req := c.Request()
	req.Body = http.MaxBytesReader(c.Response(), req.Body, h.maxUpload)

	threshold, ok := xutil.ParseFloatPtr(c.QueryParam("threshold"))
	in := usecase.AnalyzeInput{Owner: c.QueryParam("owner"), Threshold: threshold}

	mediaType, _, _ := mime.ParseMediaType(req.Header.Get(echo.HeaderContentType))
	if mediaType == echo.MIMEMultipartForm {
		fh, err := c.FormFile("file")
		if err != nil {
			var mbe *http.MaxBytesError
			if errors.As(err, &mbe) {
				return in, tooLarge(h.maxUpload)
			}
			return in, xhttp.BadRequestError("file", "file is required")
		}
		f, err := fh.Open()
		if err != nil {
			return in, fmt.Errorf("open upload: %w", err)
		}
		in.Filename = fh.Filename
		in.ContentType = fh.Header.Get(echo.HeaderContentType)
		in.Content = f
		if v := c.FormValue("owner"); v != "" {
			in.Owner = v
		}
		if v := c.FormValue("threshold"); v != "" {
			in.Threshold, ok = xutil.ParseFloatPtr(v)
		}
	} else {
		in.Filename = c.QueryParam("filename")
		in.ContentType = mediaType
		in.Content = req.Body
	}
	if !ok {
		return in, xhttp.BadRequestError("threshold", "threshold must be a number")
	}
	return in, nil
}

// fail maps use case errors onto the API error envelope.
func (h *AnalysisEchoHandler) fail(c echo.Context, endpoint string, err error) error {
	appErr := toAppError(err)
	metrics.APIErrors.WithLabelValues(endpoint, appErr.Code).Inc()
	if appErr.Status >= http.StatusInternalServerError {
		h.l.Error("analysis api error", applogger.String("endpoint", endpoint), applogger.Error(err))
	} else {
		h.l.Debug("analysis api rejected", applogger.String("endpoint", endpoint), applogger.String("reason", appErr.Message))
	}
	return xhttp.AppErrorResponse(c, appErr)
}

func toAppError(err error) *xhttp.AppError {
	var (
		appErr *xhttp.AppError
		fe     *analyzer.FormatError
		mbe    *http.MaxBytesError
	)
	switch {
	case errors.As(err, &appErr):
		return appErr
	case errors.As(err, &fe):
		return xhttp.InvalidCSVError(fe.Msg).WithError(err)
	case errors.As(err, &mbe):
		return tooLarge(mbe.Limit)
	case errors.Is(err, usecase.ErrInvalidInput):
		return xhttp.BadRequestError("", strings.TrimPrefix(err.Error(), usecase.ErrInvalidInput.Error()+": ")).WithError(err)
	case errors.Is(err, domrepo.ErrNotFound):
		return xhttp.NotFoundErrorf("analysis not found").WithError(err)
	default:
		return xhttp.InternalError("something went wrong").WithError(err)
	}
}

func tooLarge(limit int64) *xhttp.AppError {
	return xhttp.NewAppError(xhttp.CodeBadRequest, "file", "file too large", http.StatusRequestEntityTooLarge).
		WithParam("max_bytes", limit)
}

func observe(endpoint string, start time.Time) {
	metrics.APILatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
}
