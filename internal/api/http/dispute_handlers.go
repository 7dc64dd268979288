package httpapi

import (
	"net/http"

	"github.com/google/uuid"

	domainDispute "github.com/shelfswap/shelfswap/internal/domain/dispute"
)

type disputeOpenRequest struct {
	Reason string `json:"reason"`
}

type disputeResolveRequest struct {
	Outcome string `json:"outcome"`
	Notes   string `json:"notes"`
}

func (s *Server) openDispute(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "tradeId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid tradeId")
		return
	}
	var req disputeOpenRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
		return
	}
	actor := authUserFromContext(r.Context()).Actor()
	d, err := s.disputeSvc.Open(r.Context(), actor, id, req.Reason)
	if err != nil {
		respondAppError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, d)
}

func (s *Server) listDisputes(w http.ResponseWriter, r *http.Request) {
	var filter domainDispute.Filter
	q := r.URL.Query()
	if v := q.Get("status"); v != "" {
		st := domainDispute.Status(v)
		filter.Status = &st
	}
	if v := q.Get("trade_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid trade_id")
			return
		}
		filter.TradeID = &id
	}
	limit, offset := parseLimitOffset(r, 100, 200)
	actor := authUserFromContext(r.Context()).Actor()
	disputes, err := s.disputeSvc.List(r.Context(), actor, filter, limit, offset)
	if err != nil {
		respondAppError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"disputes": disputes})
}

func (s *Server) getDispute(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "disputeId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid disputeId")
		return
	}
	actor := authUserFromContext(r.Context()).Actor()
	d, err := s.disputeSvc.Get(r.Context(), actor, id)
	if err != nil {
		respondAppError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, d)
}

func (s *Server) assignDispute(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "disputeId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid disputeId")
		return
	}
	actor := authUserFromContext(r.Context()).Actor()
	d, err := s.disputeSvc.Assign(r.Context(), actor, id)
	if err != nil {
		respondAppError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, d)
}

func (s *Server) resolveDispute(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "disputeId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid disputeId")
		return
	}
	var req disputeResolveRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
		return
	}
	actor := authUserFromContext(r.Context()).Actor()
	d, err := s.disputeSvc.Resolve(r.Context(), actor, id, domainDispute.Outcome(req.Outcome), req.Notes)
	if err != nil {
		respondAppError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, d)
}
