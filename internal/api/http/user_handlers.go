package httpapi

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	domainUser "github.com/shelfswap/shelfswap/internal/domain/user"
)

func (s *Server) getUser(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "userId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid userId")
		return
	}
	u, err := s.userSvc.Get(r.Context(), id)
	if err != nil {
		respondAppError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, u)
}

func (s *Server) listUsers(w http.ResponseWriter, r *http.Request) {
	var filter domainUser.Filter
	q := r.URL.Query()
	if v := q.Get("role"); v != "" {
		role := domainUser.Role(v)
		filter.Role = &role
	}
	if v := q.Get("status"); v != "" {
		st := domainUser.Status(v)
		filter.Status = &st
	}
	if v := q.Get("username"); v != "" {
		filter.Username = &v
	}
	limit, offset := parseLimitOffset(r, 100, 200)
	actor := authUserFromContext(r.Context()).Actor()
	users, err := s.userSvc.List(r.Context(), actor, filter, limit, offset)
	if err != nil {
		respondAppError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"users": users})
}

func (s *Server) suspendUser(w http.ResponseWriter, r *http.Request) {
	s.setUserStatus(w, r, s.userSvc.Suspend)
}

func (s *Server) unsuspendUser(w http.ResponseWriter, r *http.Request) {
	s.setUserStatus(w, r, s.userSvc.Unsuspend)
}

type userStatusFn func(ctx context.Context, actor domainUser.Actor, userID uuid.UUID) (*domainUser.User, error)

func (s *Server) setUserStatus(w http.ResponseWriter, r *http.Request, fn userStatusFn) {
	id, err := parseUUIDParam(r, "userId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid userId")
		return
	}
	actor := authUserFromContext(r.Context()).Actor()
	u, err := fn(r.Context(), actor, id)
	if err != nil {
		respondAppError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, u)
}
