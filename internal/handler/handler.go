// Package handler provides HTTP request handlers for the application.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/render"
	"go.uber.org/zap"

	"github.com/costaleads/lead-relay/internal/config"
	"github.com/costaleads/lead-relay/internal/middleware"
	"github.com/costaleads/lead-relay/internal/models"
	"github.com/costaleads/lead-relay/internal/service"
	"github.com/costaleads/lead-relay/internal/twilio"
)

const (
	defaultFetchLimit = 50
	maxFetchLimit     = 500
)

const emptyTwiML = "<Response></Response>"

type Handler struct {
	cfg     *config.Config
	service *service.Service
	logger  *zap.Logger
}

func NewHandler(cfg *config.Config, service *service.Service, logger *zap.Logger) *Handler {
	return &Handler{
		cfg:     cfg,
		service: service,
		logger:  logger,
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

type messagesResponse struct {
	Messages []models.Message `json:"messages"`
}

type callsResponse struct {
	Calls []models.Call `json:"calls"`
}

type sendMessageRequest struct {
	From string `json:"from"`
	To   string `json:"to"`
	Body string `json:"body"`
}

type initiateCallRequest struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type vapidKeyResponse struct {
	Key string `json:"key"`
}

type subscribeRequest struct {
	Subscription models.PushSubscription `json:"subscription"`
}

type subscribeResponse struct {
	OK bool `json:"ok"`
}

// GetMessages proxies the merged message history for one business
// number.
func (h *Handler) GetMessages(w http.ResponseWriter, r *http.Request) {
	number, limit, ok := h.fetchParams(w, r)
	if !ok {
		return
	}

	messages, err := h.service.Gateway.FetchMessages(r.Context(), number, limit)
	if err != nil {
		h.sendGatewayError(w, r, err, "Failed to fetch messages")
		return
	}

	if messages == nil {
		messages = []models.Message{}
	}
	render.JSON(w, r, messagesResponse{Messages: messages})
}

// SendMessage relays an outbound SMS and passes the provider's created
// record straight through.
func (h *Handler) SendMessage(w http.ResponseWriter, r *http.Request) {
	var req sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendError(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.From == "" || req.To == "" || req.Body == "" {
		h.sendError(w, r, http.StatusBadRequest, "from, to and body are required")
		return
	}
	if _, ok := h.cfg.BusinessByNumber(req.From); !ok {
		h.sendError(w, r, http.StatusBadRequest, "Unknown business number")
		return
	}

	msg, err := h.service.Gateway.SendMessage(r.Context(), req.From, req.To, req.Body)
	if err != nil {
		h.sendGatewayError(w, r, err, "Failed to send message")
		return
	}

	render.JSON(w, r, msg)
}

// GetCalls proxies the merged call log for one business number.
func (h *Handler) GetCalls(w http.ResponseWriter, r *http.Request) {
	number, limit, ok := h.fetchParams(w, r)
	if !ok {
		return
	}

	calls, err := h.service.Gateway.FetchCalls(r.Context(), number, limit)
	if err != nil {
		h.sendGatewayError(w, r, err, "Failed to fetch calls")
		return
	}

	if calls == nil {
		calls = []models.Call{}
	}
	render.JSON(w, r, callsResponse{Calls: calls})
}

// InitiateCall starts the two-leg bridge toward a customer.
func (h *Handler) InitiateCall(w http.ResponseWriter, r *http.Request) {
	var req initiateCallRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendError(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.From == "" || req.To == "" {
		h.sendError(w, r, http.StatusBadRequest, "from and to are required")
		return
	}
	if _, ok := h.cfg.BusinessByNumber(req.From); !ok {
		h.sendError(w, r, http.StatusBadRequest, "Unknown business number")
		return
	}

	call, err := h.service.Gateway.InitiateCall(r.Context(), req.From, req.To)
	if err != nil {
		h.sendGatewayError(w, r, err, "Failed to initiate call")
		return
	}

	render.JSON(w, r, call)
}

// ListConversations returns the aggregated thread list for one business
// number.
func (h *Handler) ListConversations(w http.ResponseWriter, r *http.Request) {
	number, limit, ok := h.fetchParams(w, r)
	if !ok {
		return
	}

	result, err := h.service.Conversation.ListThreads(r.Context(), number, limit)
	if err != nil {
		h.sendGatewayError(w, r, err, "Failed to aggregate conversations")
		return
	}

	render.JSON(w, r, result)
}

// GetVAPIDKey serves the public push key for browser subscription.
func (h *Handler) GetVAPIDKey(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, vapidKeyResponse{Key: h.service.Push.VAPIDKey()})
}

// Subscribe stores a browser push subscription.
func (h *Handler) Subscribe(w http.ResponseWriter, r *http.Request) {
	var req subscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendError(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.service.Push.Subscribe(r.Context(), &req.Subscription); err != nil {
		if errors.Is(err, service.ErrInvalidSubscription) {
			h.sendError(w, r, http.StatusBadRequest, "Subscription endpoint is missing or invalid")
			return
		}
		h.logger.Error("Failed to store subscription",
			zap.String("request_id", middleware.GetRequestID(r.Context())),
			zap.Error(err))
		h.sendError(w, r, http.StatusInternalServerError, "Failed to store subscription")
		return
	}

	render.JSON(w, r, subscribeResponse{OK: true})
}

// MissedCallWebhook handles the provider's call status callback,
// authenticated by the shared webhook secret. The provider, not the
// browser, calls this route, so the PIN header never applies here.
func (h *Handler) MissedCallWebhook(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("secret") != h.cfg.Auth.WebhookSecret {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte("Forbidden"))
		return
	}

	ev, err := parseCallEvent(r)
	if err != nil {
		h.sendError(w, r, http.StatusBadRequest, "Invalid form body")
		return
	}

	if err := h.service.Webhook.HandleMissedCall(r.Context(), ev); err != nil {
		h.logger.Error("Missed-call handling failed",
			zap.String("call_sid", ev.CallSID),
			zap.Error(err))
		h.sendError(w, r, http.StatusInternalServerError, "Failed to process missed call")
		return
	}

	_, _ = w.Write([]byte("OK"))
}

// InboundSMSWebhook acknowledges an inbound SMS with empty TwiML after
// fanning out a push notification.
func (h *Handler) InboundSMSWebhook(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.sendError(w, r, http.StatusBadRequest, "Invalid form body")
		return
	}

	ev := models.MessageEvent{
		MessageSID: r.PostFormValue("MessageSid"),
		From:       r.PostFormValue("From"),
		To:         r.PostFormValue("To"),
		Body:       r.PostFormValue("Body"),
	}

	if err := h.service.Webhook.HandleInboundSMS(r.Context(), ev); err != nil {
		h.logger.Warn("Inbound SMS handling failed", zap.Error(err))
	}

	h.sendTwiML(w)
}

// InboundCallWebhook acknowledges an inbound call with empty TwiML;
// call routing itself is configured with the provider.
func (h *Handler) InboundCallWebhook(w http.ResponseWriter, r *http.Request) {
	ev, err := parseCallEvent(r)
	if err != nil {
		h.sendError(w, r, http.StatusBadRequest, "Invalid form body")
		return
	}

	if err := h.service.Webhook.HandleInboundCall(r.Context(), ev); err != nil {
		h.logger.Warn("Inbound call handling failed", zap.Error(err))
	}

	h.sendTwiML(w)
}

// HealthCheck reports component health.
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	health := h.service.Health.GetHealth(r.Context())

	if health.Status == service.StatusUnhealthy {
		render.Status(r, http.StatusServiceUnavailable)
	}
	render.JSON(w, r, health)
}

// NotFound is the JSON fallback for unknown routes.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	h.sendError(w, r, http.StatusNotFound, "Not found")
}

func (h *Handler) fetchParams(w http.ResponseWriter, r *http.Request) (string, int, bool) {
	number := r.URL.Query().Get("number")
	if number == "" {
		h.sendError(w, r, http.StatusBadRequest, "number is required")
		return "", 0, false
	}
	if _, ok := h.cfg.BusinessByNumber(number); !ok {
		h.sendError(w, r, http.StatusBadRequest, "Unknown business number")
		return "", 0, false
	}

	limit := defaultFetchLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := parseLimit(raw)
		if err != nil {
			h.sendError(w, r, http.StatusBadRequest, "limit must be a positive integer")
			return "", 0, false
		}
		limit = parsed
	}
	return number, limit, true
}

func (h *Handler) sendTwiML(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/xml")
	_, _ = w.Write([]byte(emptyTwiML))
}

// sendGatewayError relays provider errors verbatim: the provider's own
// status code and body reach the client so nothing is masked.
func (h *Handler) sendGatewayError(w http.ResponseWriter, r *http.Request, err error, logMsg string) {
	requestID := middleware.GetRequestID(r.Context())

	var apiErr *twilio.APIError
	if errors.As(err, &apiErr) {
		h.logger.Warn(logMsg,
			zap.String("request_id", requestID),
			zap.Int("provider_status", apiErr.StatusCode),
			zap.Error(err))
		render.Status(r, apiErr.StatusCode)
		render.JSON(w, r, errorResponse{Error: apiErr.Body})
		return
	}

	h.logger.Error(logMsg,
		zap.String("request_id", requestID),
		zap.Error(err))
	h.sendError(w, r, http.StatusInternalServerError, err.Error())
}

func (h *Handler) sendError(w http.ResponseWriter, r *http.Request, statusCode int, message string) {
	render.Status(r, statusCode)
	render.JSON(w, r, errorResponse{Error: message})
}

func parseCallEvent(r *http.Request) (models.CallEvent, error) {
	if err := r.ParseForm(); err != nil {
		return models.CallEvent{}, err
	}
	return models.CallEvent{
		CallSID: r.PostFormValue("CallSid"),
		From:    r.PostFormValue("From"),
		To:      r.PostFormValue("To"),
		Status:  r.PostFormValue("CallStatus"),
	}, nil
}

func parseLimit(raw string) (int, error) {
	limit, err := strconv.Atoi(raw)
	if err != nil {
		return 0, err
	}
	if limit < 1 {
		return 0, errors.New("limit out of range")
	}
	if limit > maxFetchLimit {
		limit = maxFetchLimit
	}
	return limit, nil
}
