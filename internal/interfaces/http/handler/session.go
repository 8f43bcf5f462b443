package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/exoslabs/cosigner/internal/core/application"
	"github.com/exoslabs/cosigner/internal/core/domain"
)

type SessionHandler struct {
	sessionSvc *application.SessionService
}

func NewSessionHandler(sessionSvc *application.SessionService) *SessionHandler {
	return &SessionHandler{sessionSvc}
}

type startSessionRequest struct {
	TxHex       string `json:"tx_hex"`
	Description string `json:"description"`
}

type sessionResponse struct {
	ID            string      `json:"id"`
	State         string      `json:"state"`
	Multisig      bool        `json:"multisig"`
	TimeRemaining int64       `json:"time_remaining"`
	Saved         bool        `json:"saved"`
	CanSign       bool        `json:"can_sign"`
	CanBroadcast  bool        `json:"can_broadcast"`
	Description   string      `json:"description,omitempty"`
	Tx            *txResponse `json:"tx,omitempty"`
}

type txResponse struct {
	Txid              string `json:"txid"`
	Status            string `json:"status,omitempty"`
	Amount            int64  `json:"amount"`
	Fee               int64  `json:"fee"`
	Size              int    `json:"size"`
	MempoolDepthBytes int64  `json:"mempool_depth_bytes,omitempty"`
	MinedTimestamp    int64  `json:"mined_timestamp,omitempty"`
	NumInputs         int    `json:"num_inputs"`
	NumOutputs        int    `json:"num_outputs"`
	Complete          bool   `json:"complete"`
}

type broadcastResponse struct {
	Txid string `json:"txid"`
}

type errorResponse struct {
	Message string `json:"message"`
}

func (h *SessionHandler) StartSession(c echo.Context) error {
	req := &startSessionRequest{}
	if err := c.Bind(req); err != nil {
		return jsonError(c, http.StatusBadRequest, err)
	}
	if len(req.TxHex) <= 0 {
		return jsonError(
			c, http.StatusBadRequest, errors.New("missing tx_hex"),
		)
	}

	info, err := h.sessionSvc.StartSession(
		c.Request().Context(), req.TxHex, req.Description,
	)
	if err != nil {
		return jsonError(c, statusForError(err), err)
	}

	return c.JSON(http.StatusCreated, toSessionResponse(info))
}

func (h *SessionHandler) ListSessions(c echo.Context) error {
	list, err := h.sessionSvc.ListSessions(c.Request().Context())
	if err != nil {
		return jsonError(c, http.StatusInternalServerError, err)
	}

	sessions := make([]*sessionResponse, 0, len(list))
	for i := range list {
		sessions = append(sessions, toSessionResponse(&list[i]))
	}
	return c.JSON(http.StatusOK, sessions)
}

func (h *SessionHandler) GetSession(c echo.Context) error {
	info, err := h.sessionSvc.GetSessionInfo(
		c.Request().Context(), c.Param("id"),
	)
	if err != nil {
		return jsonError(c, statusForError(err), err)
	}
	return c.JSON(http.StatusOK, toSessionResponse(info))
}

func (h *SessionHandler) SignSession(c echo.Context) error {
	if err := h.sessionSvc.SignSession(
		c.Request().Context(), c.Param("id"),
	); err != nil {
		return jsonError(c, statusForError(err), err)
	}
	// signing runs in background, poll the session for the outcome.
	return c.NoContent(http.StatusAccepted)
}

func (h *SessionHandler) BroadcastSession(c echo.Context) error {
	txid, err := h.sessionSvc.BroadcastSession(
		c.Request().Context(), c.Param("id"),
	)
	if err != nil {
		return jsonError(c, statusForError(err), err)
	}
	return c.JSON(http.StatusOK, broadcastResponse{Txid: txid})
}

func (h *SessionHandler) SaveSession(c echo.Context) error {
	if err := h.sessionSvc.SaveSession(
		c.Request().Context(), c.Param("id"),
	); err != nil {
		return jsonError(c, statusForError(err), err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *SessionHandler) ExportSession(c echo.Context) error {
	export, err := h.sessionSvc.ExportSession(
		c.Request().Context(), c.Param("id"),
	)
	if err != nil {
		return jsonError(c, statusForError(err), err)
	}

	c.Response().Header().Set(
		echo.HeaderContentDisposition, "attachment; filename="+export.Filename,
	)
	return c.Blob(http.StatusOK, echo.MIMEApplicationJSON, export.Body)
}

func (h *SessionHandler) CloseSession(c echo.Context) error {
	if err := h.sessionSvc.CloseSession(
		c.Request().Context(), c.Param("id"),
	); err != nil {
		return jsonError(c, http.StatusInternalServerError, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func toSessionResponse(info *application.SessionInfo) *sessionResponse {
	resp := &sessionResponse{
		ID:            info.ID,
		State:         info.State,
		Multisig:      info.Multisig,
		TimeRemaining: info.TimeRemaining,
		Saved:         info.Saved,
		CanSign:       info.CanSign,
		CanBroadcast:  info.CanBroadcast,
		Description:   info.Description,
	}
	if info.Tx != nil {
		resp.Tx = &txResponse{
			Txid:              info.Tx.TxID,
			Status:            info.Tx.Status,
			Amount:            info.Tx.Amount,
			Fee:               info.Tx.Fee,
			Size:              info.Tx.SizeBytes,
			MempoolDepthBytes: info.Tx.MempoolDepthBytes,
			MinedTimestamp:    info.Tx.MinedTimestamp,
			NumInputs:         info.Tx.NumInputs,
			NumOutputs:        info.Tx.NumOutputs,
			Complete:          info.Tx.Complete,
		}
	}
	return resp
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, domain.ErrMalformedTransaction):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, application.ErrSigningNotAllowed),
		errors.Is(err, application.ErrBroadcastNotAllowed):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func jsonError(c echo.Context, status int, err error) error {
	return c.JSON(status, errorResponse{Message: err.Error()})
}
