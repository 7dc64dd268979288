package httpapi

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	appTrade "github.com/shelfswap/shelfswap/internal/application/trade"
	domainTrade "github.com/shelfswap/shelfswap/internal/domain/trade"
	domainUser "github.com/shelfswap/shelfswap/internal/domain/user"
)

type tradeCreateRequest struct {
	Kind          string  `json:"kind"`
	BookID        string  `json:"book_id"`
	OfferedBookID *string `json:"offered_book_id,omitempty"`
	RequestedDays int     `json:"requested_days,omitempty"`
}

type tradeAcceptRequest struct {
	AgreedDays int `json:"agreed_days,omitempty"`
}

func (s *Server) createTrade(w http.ResponseWriter, r *http.Request) {
	var req tradeCreateRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
		return
	}
	bookID, err := uuid.Parse(req.BookID)
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid book_id")
		return
	}
	params := appTrade.CreateParams{
		Kind:          domainTrade.Kind(req.Kind),
		BookID:        bookID,
		RequestedDays: req.RequestedDays,
	}
	if req.OfferedBookID != nil {
		offered, err := uuid.Parse(*req.OfferedBookID)
		if err != nil {
			respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid offered_book_id")
			return
		}
		params.OfferedBookID = &offered
	}
	actor := authUserFromContext(r.Context()).Actor()
	t, err := s.tradeSvc.Create(r.Context(), actor, params)
	if err != nil {
		respondAppError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, t)
}

func (s *Server) listTrades(w http.ResponseWriter, r *http.Request) {
	auth := authUserFromContext(r.Context())
	var filter domainTrade.Filter
	q := r.URL.Query()
	if v := q.Get("kind"); v != "" {
		k := domainTrade.Kind(v)
		filter.Kind = &k
	}
	if v := q.Get("status"); v != "" {
		st := domainTrade.Status(v)
		filter.Status = &st
	}
	if v := q.Get("book_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid book_id")
			return
		}
		filter.BookID = &id
	}
	limit, offset := parseLimitOffset(r, 100, 200)
	trades, err := s.tradeSvc.ListForUser(r.Context(), auth.Actor(), filter, limit, offset)
	if err != nil {
		respondAppError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"trades": trades})
}

func (s *Server) getTrade(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "tradeId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid tradeId")
		return
	}
	actor := authUserFromContext(r.Context()).Actor()
	t, err := s.tradeSvc.Get(r.Context(), actor, id)
	if err != nil {
		respondAppError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, t)
}

func (s *Server) acceptTrade(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "tradeId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid tradeId")
		return
	}
	var req tradeAcceptRequest
	_ = decodeBody(r, &req)
	actor := authUserFromContext(r.Context()).Actor()
	t, err := s.tradeSvc.Accept(r.Context(), actor, id, appTrade.AcceptOptions{AgreedDays: req.AgreedDays})
	if err != nil {
		respondAppError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, t)
}

func (s *Server) rejectTrade(w http.ResponseWriter, r *http.Request) {
	s.tradeAction(w, r, s.tradeSvc.Reject)
}

func (s *Server) cancelTrade(w http.ResponseWriter, r *http.Request) {
	s.tradeAction(w, r, s.tradeSvc.Cancel)
}

func (s *Server) confirmTrade(w http.ResponseWriter, r *http.Request) {
	s.tradeAction(w, r, s.tradeSvc.Confirm)
}

func (s *Server) markTradePaid(w http.ResponseWriter, r *http.Request) {
	s.tradeAction(w, r, s.tradeSvc.MarkPaid)
}

func (s *Server) markTradeHandedOver(w http.ResponseWriter, r *http.Request) {
	s.tradeAction(w, r, s.tradeSvc.MarkHandedOver)
}

type tradeActionFn func(ctx context.Context, actor domainUser.Actor, tradeID uuid.UUID) (*domainTrade.Trade, error)

func (s *Server) tradeAction(w http.ResponseWriter, r *http.Request, fn tradeActionFn) {
	id, err := parseUUIDParam(r, "tradeId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid tradeId")
		return
	}
	actor := authUserFromContext(r.Context()).Actor()
	t, err := fn(r.Context(), actor, id)
	if err != nil {
		respondAppError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, t)
}

func (s *Server) getConversation(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "tradeId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid tradeId")
		return
	}
	auth := authUserFromContext(r.Context())
	conv, err := s.convRepo.GetByTradeID(r.Context(), id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}
	if conv == nil {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "conversation not found")
		return
	}
	if auth.Role != domainUser.RoleAdmin && conv.RequesterID != auth.UserID && conv.OwnerID != auth.UserID {
		respondError(w, http.StatusForbidden, "NOT_PARTICIPANT", "not a participant in this trade")
		return
	}
	respondJSON(w, http.StatusOK, conv)
}
