package httpapi

import (
	"net/http"
)

func (s *Server) listNotifications(w http.ResponseWriter, r *http.Request) {
	auth := authUserFromContext(r.Context())
	unreadOnly := r.URL.Query().Get("unread") == "true"
	limit, offset := parseLimitOffset(r, 100, 200)
	notifications, err := s.notificationSvc.ListForRecipient(r.Context(), auth.UserID, unreadOnly, limit, offset)
	if err != nil {
		respondAppError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"notifications": notifications})
}

func (s *Server) markNotificationRead(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "notificationId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid notificationId")
		return
	}
	auth := authUserFromContext(r.Context())
	if err := s.notificationSvc.MarkRead(r.Context(), id, auth.UserID); err != nil {
		respondAppError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"status": "OK"})
}
