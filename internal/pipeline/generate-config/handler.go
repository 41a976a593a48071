package generateconfig

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"nginx-config-generator/internal/common/config"
	"nginx-config-generator/internal/common/errors"
	commonhttp "nginx-config-generator/internal/common/http"
	"nginx-config-generator/internal/common/logger"
	"nginx-config-generator/internal/common/metrics"
	"nginx-config-generator/internal/common/observability"
	dispatchoutput "nginx-config-generator/internal/pipeline/dispatch-output"
	renderconfig "nginx-config-generator/internal/pipeline/render-config"
	validatedeclaration "nginx-config-generator/internal/pipeline/validate-declaration"
)

// unknownOutputType labels requests whose channel is not (yet) known, which
// keeps the metric label set closed.
const unknownOutputType = "unknown"

// Handler runs validate, render and dispatch for one declaration document.
// It holds no per-request state and is safe for concurrent use.
type Handler struct {
	validator  *validatedeclaration.Handler
	renderer   *renderconfig.Handler
	dispatcher *dispatchoutput.Handler
	obs        *observability.Observability
	logger     logger.Logger
}

type HandlerOptions struct {
	AppConfig *config.Config
	// Renderer overrides the template set loaded from AppConfig.Templates.
	Renderer      renderconfig.Renderer
	Observability *observability.Observability
	Logger        logger.Logger
	// Doer overrides the transport of the http channel.
	Doer commonhttp.Doer
}

func NewHandler(opts HandlerOptions) (*Handler, error) {
	appConfig := opts.AppConfig
	if appConfig == nil {
		appConfig = config.Default()
	}

	log := opts.Logger
	if log == nil {
		log = logger.NewStructured(appConfig.Logging.Level, appConfig.Logging.Format)
	}

	renderer := opts.Renderer
	if renderer == nil {
		engine, err := renderconfig.LoadEngine(appConfig.Templates.RootDir)
		if err != nil {
			return nil, fmt.Errorf("load templates: %w", err)
		}
		renderer = engine
	}

	renderConfig := renderconfig.NewConfig(appConfig)
	if err := renderConfig.CheckTemplates(renderer); err != nil {
		return nil, err
	}
	renderHandler := renderconfig.NewHandler(renderConfig, renderer, log)

	dispatcher, err := dispatchoutput.NewHandler(dispatchoutput.HandlerOptions{
		Config:     dispatchoutput.NewConfig(appConfig),
		ConfigMaps: renderHandler,
		Logger:     log,
		Doer:       opts.Doer,
	})
	if err != nil {
		return nil, err
	}

	obs := opts.Observability
	if obs == nil {
		obs = observability.NewNoop()
	}

	return &Handler{
		validator:  validatedeclaration.NewHandler(validatedeclaration.NewConfig(appConfig), log),
		renderer:   renderHandler,
		dispatcher: dispatcher,
		obs:        obs,
		logger:     log,
	}, nil
}

// run carries one request through the state machine.
type run struct {
	h          *Handler
	ctx        context.Context
	log        logger.Logger
	requestID  string
	outputType string
	state      State
	started    time.Time
}

// Execute runs the pipeline on raw. The returned error is always a
// *errors.StandardError and is set exactly when the request ended in
// Rejected, RenderFailed or DispatchFailed.
func (h *Handler) Execute(ctx context.Context, requestID string, raw []byte) (*dispatchoutput.Response, error) {
	metrics.RequestsInFlight.Inc()
	defer metrics.RequestsInFlight.Dec()

	r := &run{
		h:          h,
		ctx:        ctx,
		log:        logger.FromContext(ctx, h.logger).WithFields(map[string]interface{}{"requestId": requestID}),
		requestID:  requestID,
		outputType: unknownOutputType,
		state:      StateReceived,
		started:    time.Now(),
	}
	r.log.Debug("configuration request received", map[string]interface{}{"bytes": len(raw)})

	r.transition(StateValidating)
	var verdict *validatedeclaration.Verdict
	err := r.stage(validatedeclaration.Stage, func(ctx context.Context) error {
		var err error
		verdict, err = h.validator.Execute(ctx, raw)
		if err != nil {
			return err
		}
		return verdict.Err()
	})
	if err != nil {
		return nil, r.fail(StateRejected, err)
	}
	req := verdict.Request
	if t, ok := req.Output.Channel(); ok {
		r.outputType = t.String()
	}
	r.log = r.log.WithFields(map[string]interface{}{"outputType": r.outputType})
	r.transition(StateValidated)

	r.transition(StateRendering)
	var rendered string
	err = r.stage(renderconfig.Stage, func(ctx context.Context) error {
		var err error
		rendered, err = h.renderer.RenderDeclaration(ctx, &req.Declaration)
		return err
	})
	if err != nil {
		return nil, r.fail(StateRenderFailed, err)
	}
	r.transition(StateRendered)

	r.transition(StateDispatching)
	var resp *dispatchoutput.Response
	err = r.stage(dispatchoutput.Stage, func(ctx context.Context) error {
		var err error
		resp, err = h.dispatcher.Execute(ctx, rendered, req.Output)
		return err
	})
	if err != nil {
		return nil, r.fail(StateDispatchFailed, err)
	}

	r.finish(StateDelivered)
	r.log.Info("configuration delivered", map[string]interface{}{
		"statusCode": resp.StatusCode,
		"bytes":      len(resp.Body),
		"durationMs": time.Since(r.started).Milliseconds(),
	})
	return resp, nil
}

// Generate is Execute with failures turned into their error responses, the
// full (status, body, headers) result of one request.
func (h *Handler) Generate(ctx context.Context, requestID string, raw []byte) *dispatchoutput.Response {
	resp, err := h.Execute(ctx, requestID, raw)
	if err == nil {
		return resp
	}
	return ErrorResponse(err)
}

// ErrorResponse renders err the way the HTTP front end does.
func ErrorResponse(err error) *dispatchoutput.Response {
	se := errors.AsStandardError(err)
	status, body := errors.ResponseBody(se)
	return &dispatchoutput.Response{
		StatusCode:  status,
		ContentType: dispatchoutput.ContentTypeJSON,
		Header:      http.Header{errors.HeaderErrorCode: []string{string(se.Code)}},
		Body:        body,
	}
}

func (r *run) transition(to State) {
	r.log.Debug("pipeline state changed", map[string]interface{}{
		"from": string(r.state),
		"to":   string(to),
	})
	r.state = to
}

// stage runs fn inside a span with a stage-scoped logger and records its
// duration.
func (r *run) stage(name string, fn func(ctx context.Context) error) error {
	ctx, span := r.h.obs.StartStage(r.ctx, name,
		attribute.String("ncg.request_id", r.requestID),
		attribute.String("ncg.output_type", r.outputType),
	)
	ctx = logger.IntoContext(ctx, r.log.WithFields(map[string]interface{}{"stage": name}))

	start := time.Now()
	err := fn(ctx)
	metrics.StageDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
	observability.EndStage(span, err)
	return err
}

func (r *run) fail(to State, err error) error {
	se := errors.AsStandardError(err)
	r.finish(to)

	fields := map[string]interface{}{
		"errorCode":     string(se.Code),
		"errorCategory": errors.GetErrorCategory(se.Code),
		"durationMs":    time.Since(r.started).Milliseconds(),
	}
	if errors.IsClientError(se.Code) {
		r.log.Warn("configuration request rejected", fields)
	} else {
		r.log.Error("configuration request failed", fields)
	}
	return se
}

func (r *run) finish(to State) {
	if !to.Terminal() {
		panic(fmt.Sprintf("generateconfig: run finished in non-terminal state %s", to))
	}
	r.transition(to)
	outcome := to.Outcome()
	metrics.RequestsTotal.WithLabelValues(r.outputType, outcome).Inc()
	r.h.obs.RecordProcessed(r.ctx, r.outputType, outcome)
	r.h.obs.RecordDuration(r.ctx, time.Since(r.started), outcome)
}
