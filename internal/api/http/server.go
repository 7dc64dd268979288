package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"

	"github.com/shelfswap/shelfswap/internal/apperr"
	appAuth "github.com/shelfswap/shelfswap/internal/application/auth"
	appBook "github.com/shelfswap/shelfswap/internal/application/book"
	appDispute "github.com/shelfswap/shelfswap/internal/application/dispute"
	appNotification "github.com/shelfswap/shelfswap/internal/application/notification"
	appReview "github.com/shelfswap/shelfswap/internal/application/review"
	appTrade "github.com/shelfswap/shelfswap/internal/application/trade"
	appUser "github.com/shelfswap/shelfswap/internal/application/user"
	domainConversation "github.com/shelfswap/shelfswap/internal/domain/conversation"
	domainUser "github.com/shelfswap/shelfswap/internal/domain/user"
)

// Server holds dependencies for HTTP handlers.
type Server struct {
	authSvc             *appAuth.Service
	userSvc             *appUser.Service
	bookSvc             *appBook.Service
	tradeSvc            *appTrade.Service
	disputeSvc          *appDispute.Service
	reviewSvc           *appReview.Service
	notificationSvc     *appNotification.Service
	convRepo            domainConversation.Repository
	allowedOrigins      []string
	sessionCookieName   string
	sessionCookieSecure bool
}

func NewServer(
	authSvc *appAuth.Service,
	userSvc *appUser.Service,
	bookSvc *appBook.Service,
	tradeSvc *appTrade.Service,
	disputeSvc *appDispute.Service,
	reviewSvc *appReview.Service,
	notificationSvc *appNotification.Service,
	convRepo domainConversation.Repository,
	allowedOrigins []string,
	sessionCookieName string,
	sessionCookieSecure bool,
) *Server {
	return &Server{
		authSvc:             authSvc,
		userSvc:             userSvc,
		bookSvc:             bookSvc,
		tradeSvc:            tradeSvc,
		disputeSvc:          disputeSvc,
		reviewSvc:           reviewSvc,
		notificationSvc:     notificationSvc,
		convRepo:            convRepo,
		allowedOrigins:      allowedOrigins,
		sessionCookieName:   sessionCookieName,
		sessionCookieSecure: sessionCookieSecure,
	}
}

// Router builds the HTTP router.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	if len(s.allowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   s.allowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	r.Route("/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", s.register)
			r.Post("/login", s.login)
			r.Group(func(r chi.Router) {
				r.Use(s.requireAuth)
				r.Post("/logout", s.logout)
				r.Get("/me", s.me)
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(s.requireAuth)

			r.Route("/books", func(r chi.Router) {
				r.Post("/", s.createBook)
				r.Get("/", s.listBooks)
				r.Get("/{bookId}", s.getBook)
				r.Delete("/{bookId}", s.delistBook)
			})

			r.Route("/trades", func(r chi.Router) {
				r.Post("/", s.createTrade)
				r.Get("/", s.listTrades)
				r.Get("/{tradeId}", s.getTrade)
				r.Post("/{tradeId}/accept", s.acceptTrade)
				r.Post("/{tradeId}/reject", s.rejectTrade)
				r.Post("/{tradeId}/cancel", s.cancelTrade)
				r.Post("/{tradeId}/confirm", s.confirmTrade)
				r.Post("/{tradeId}/payment", s.markTradePaid)
				r.Post("/{tradeId}/handover", s.markTradeHandedOver)
				r.Post("/{tradeId}/disputes", s.openDispute)
				r.Post("/{tradeId}/reviews", s.createReview)
				r.Get("/{tradeId}/reviews/eligibility", s.reviewEligibility)
				r.Get("/{tradeId}/conversation", s.getConversation)
			})

			r.Route("/disputes", func(r chi.Router) {
				r.Get("/", s.listDisputes)
				r.Get("/{disputeId}", s.getDispute)
				r.With(s.requireRole(string(domainUser.RoleAdmin))).Post("/{disputeId}/assign", s.assignDispute)
				r.With(s.requireRole(string(domainUser.RoleAdmin))).Post("/{disputeId}/resolve", s.resolveDispute)
			})

			r.Route("/notifications", func(r chi.Router) {
				r.Get("/", s.listNotifications)
				r.Post("/{notificationId}/read", s.markNotificationRead)
			})

			r.Route("/users", func(r chi.Router) {
				r.Get("/{userId}", s.getUser)
				r.Get("/{userId}/reviews", s.listUserReviews)
			})

			r.Route("/admin", func(r chi.Router) {
				r.Use(s.requireRole(string(domainUser.RoleAdmin)))
				r.Get("/users", s.listUsers)
				r.Post("/users/{userId}/suspend", s.suspendUser)
				r.Post("/users/{userId}/unsuspend", s.unsuspendUser)
			})
		})
	})

	return r
}

// Helpers
func respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, map[string]interface{}{
		"error":   code,
		"message": message,
	})
}

func respondAppError(w http.ResponseWriter, err error) {
	var ae *apperr.Error
	if errors.As(err, &ae) {
		respondError(w, statusForKind(ae.Kind), string(ae.Code), ae.Message)
		return
	}
	respondError(w, http.StatusInternalServerError, string(apperr.CodeInternal), err.Error())
}

func statusForKind(k apperr.Kind) int {
	switch k {
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindUnauthorized:
		return http.StatusUnauthorized
	case apperr.KindAuthorization:
		return http.StatusForbidden
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindConflict:
		return http.StatusConflict
	case apperr.KindState:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func parseUUIDParam(r *http.Request, key string) (uuid.UUID, error) {
	val := chi.URLParam(r, key)
	return uuid.Parse(val)
}

func decodeBody(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func parseLimitOffset(r *http.Request, defaultLimit, maxLimit int) (int, int) {
	limit := defaultLimit
	offset := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if l, err := strconv.Atoi(v); err == nil {
			limit = l
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if o, err := strconv.Atoi(v); err == nil {
			offset = o
		}
	}
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
