package httpapi

import (
	"net/http"

	"github.com/google/uuid"

	appBook "github.com/shelfswap/shelfswap/internal/application/book"
	domainBook "github.com/shelfswap/shelfswap/internal/domain/book"
)

type bookCreateRequest struct {
	Title              string   `json:"title"`
	Author             string   `json:"author"`
	Mode               string   `json:"mode"`
	Price              *float64 `json:"price,omitempty"`
	ExchangePreference *string  `json:"exchange_preference,omitempty"`
	LoanPeriodDays     *int     `json:"loan_period_days,omitempty"`
}

func (s *Server) createBook(w http.ResponseWriter, r *http.Request) {
	var req bookCreateRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
		return
	}
	actor := authUserFromContext(r.Context()).Actor()
	b, err := s.bookSvc.Create(r.Context(), actor, appBook.CreateParams{
		Title:              req.Title,
		Author:             req.Author,
		Mode:               domainBook.Mode(req.Mode),
		Price:              req.Price,
		ExchangePreference: req.ExchangePreference,
		LoanPeriodDays:     req.LoanPeriodDays,
	})
	if err != nil {
		respondAppError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, b)
}

func (s *Server) listBooks(w http.ResponseWriter, r *http.Request) {
	var filter domainBook.Filter
	q := r.URL.Query()
	if v := q.Get("owner_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid owner_id")
			return
		}
		filter.OwnerID = &id
	}
	if v := q.Get("mode"); v != "" {
		m := domainBook.Mode(v)
		filter.Mode = &m
	}
	if v := q.Get("status"); v != "" {
		st := domainBook.Status(v)
		filter.Status = &st
	}
	if v := q.Get("available"); v != "" {
		avail := v == "true"
		filter.Available = &avail
	}
	limit, offset := parseLimitOffset(r, 100, 200)
	books, err := s.bookSvc.List(r.Context(), filter, limit, offset)
	if err != nil {
		respondAppError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"books": books})
}

func (s *Server) getBook(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "bookId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid bookId")
		return
	}
	b, err := s.bookSvc.Get(r.Context(), id)
	if err != nil {
		respondAppError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, b)
}

func (s *Server) delistBook(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "bookId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid bookId")
		return
	}
	actor := authUserFromContext(r.Context()).Actor()
	b, err := s.bookSvc.Delist(r.Context(), actor, id)
	if err != nil {
		respondAppError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, b)
}
