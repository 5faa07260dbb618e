package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/tinywideclouds/go-microservice-base/pkg/middleware"
	"github.com/tinywideclouds/go-microservice-base/pkg/response"

	"github.com/streamyfin/go-push-service/pkg/push"
)

// TokenAPI exposes device token registration over HTTP. The owning user is
// taken from the auth middleware's context, never from the request body.
type TokenAPI struct {
	Store  push.TokenStore
	Logger *slog.Logger
}

func NewTokenAPI(store push.TokenStore, logger *slog.Logger) *TokenAPI {
	return &TokenAPI{
		Store:  store,
		Logger: logger,
	}
}

type RegisterDeviceRequest struct {
	DeviceID string `json:"device_id"`
	Token    string `json:"token"`
}

type UnregisterDeviceRequest struct {
	DeviceID string `json:"device_id"`
}

// RegisterDevice upserts the caller's token for one device. Registering the
// same device again replaces the previous token.
func (api *TokenAPI) RegisterDevice(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := api.callerID(w, r)
	if !ok {
		return
	}

	var req RegisterDeviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.WriteJSONError(w, http.StatusBadRequest, "invalid json")
		return
	}

	deviceID, err := uuid.Parse(req.DeviceID)
	if err != nil {
		response.WriteJSONError(w, http.StatusBadRequest, "invalid device id")
		return
	}
	if req.Token == "" {
		response.WriteJSONError(w, http.StatusBadRequest, "missing token")
		return
	}

	stored, err := api.Store.UpsertDeviceToken(ctx, push.DeviceToken{
		DeviceID: deviceID,
		UserID:   userID,
		Token:    req.Token,
	})
	if err != nil {
		api.Logger.Error("failed to register device token", "err", err)
		response.WriteJSONError(w, http.StatusInternalServerError, "storage failed")
		return
	}
	api.Logger.Info("Device token registered", "user", userID, "device", deviceID)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(stored)
}

// UnregisterDevice removes the token for one device. Unregistering an
// unknown device still returns success; idempotency is preferred here.
func (api *TokenAPI) UnregisterDevice(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := api.callerID(w, r)
	if !ok {
		return
	}

	var req UnregisterDeviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.WriteJSONError(w, http.StatusBadRequest, "invalid json")
		return
	}

	deviceID, err := uuid.Parse(req.DeviceID)
	if err != nil {
		response.WriteJSONError(w, http.StatusBadRequest, "invalid device id")
		return
	}

	if err := api.Store.DeleteTokenForDevice(ctx, deviceID); err != nil {
		api.Logger.Warn("failed to unregister device token", "err", err)
	}
	api.Logger.Info("Device token unregistered", "user", userID, "device", deviceID)

	w.WriteHeader(http.StatusNoContent)
}

// callerID extracts the authenticated user from the request context.
func (api *TokenAPI) callerID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	handle, ok := middleware.GetUserHandleFromContext(r.Context())
	if !ok {
		response.WriteJSONError(w, http.StatusUnauthorized, "unauthorized")
		return uuid.Nil, false
	}

	userID, err := uuid.Parse(handle)
	if err != nil {
		response.WriteJSONError(w, http.StatusUnauthorized, "invalid user identity")
		return uuid.Nil, false
	}
	return userID, true
}
