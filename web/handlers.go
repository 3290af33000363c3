package web

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/caregate/caregate/app"
	"github.com/caregate/caregate/domain/chat"
	"github.com/caregate/caregate/domain/plan"
	"github.com/caregate/caregate/domain/profile"
	"github.com/caregate/caregate/ports"
)

// Version is set at build time.
var Version = "dev"

// Health reports service liveness.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.respond(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Version reports the build version and uptime.
func (h *Handler) Version(w http.ResponseWriter, r *http.Request) {
	h.respond(w, http.StatusOK, map[string]any{
		"service":        "caregate",
		"version":        Version,
		"uptime_seconds": int64(time.Since(h.startTime).Seconds()),
	})
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type sessionResponse struct {
	Token     string          `json:"token"`
	ExpiresAt time.Time       `json:"expires_at"`
	Account   accountResponse `json:"account"`
}

type accountResponse struct {
	ID            string    `json:"id"`
	Email         string    `json:"email"`
	Name          string    `json:"name,omitempty"`
	Tier          string    `json:"tier"`
	BillingAnchor time.Time `json:"billing_anchor"`
	CreatedAt     time.Time `json:"created_at"`
}

func toAccountResponse(a ports.Account) accountResponse {
	return accountResponse{
		ID:            a.ID,
		Email:         a.Email,
		Name:          a.Name,
		Tier:          a.Tier,
		BillingAnchor: a.BillingAnchor,
		CreatedAt:     a.CreatedAt,
	}
}

// Register creates an account and returns a session token.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := h.decode(r, &req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid_request", "malformed request body")
		return
	}

	account, err := h.accounts.Register(r.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		if errors.Is(err, app.ErrEmailTaken) {
			h.respondError(w, http.StatusConflict, "email_taken", err.Error())
			return
		}
		h.respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	h.session(w, account, http.StatusCreated)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login authenticates and returns a session token.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := h.decode(r, &req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid_request", "malformed request body")
		return
	}

	account, err := h.accounts.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, app.ErrInvalidCredentials) {
			if h.metrics != nil {
				h.metrics.AuthFailures.WithLabelValues("bad_credentials").Inc()
			}
			h.respondError(w, http.StatusUnauthorized, "invalid_credentials", err.Error())
			return
		}
		h.internalError(w, err, "login failed")
		return
	}

	h.session(w, account, http.StatusOK)
}

func (h *Handler) session(w http.ResponseWriter, account ports.Account, status int) {
	token, expiresAt, err := h.tokens.GenerateToken(account.ID, account.Email, "patient")
	if err != nil {
		h.internalError(w, err, "token generation failed")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     "token",
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	h.respond(w, status, sessionResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		Account:   toAccountResponse(account),
	})
}

// Me returns the authenticated account.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	claims := getClaims(r.Context())

	account, err := h.accounts.Get(r.Context(), claims.UserID)
	if err != nil {
		h.notFoundOrInternal(w, err, "account")
		return
	}
	h.respond(w, http.StatusOK, toAccountResponse(account))
}

type planResponse struct {
	Tier            string `json:"tier"`
	Name            string `json:"name"`
	QueriesPerMonth int64  `json:"queries_per_month"`
	PriceMonthly    int64  `json:"price_monthly_cents"`
}

// Plans returns the tier catalog.
func (h *Handler) Plans(w http.ResponseWriter, r *http.Request) {
	var out []planResponse
	for _, p := range plan.Catalog() {
		out = append(out, planResponse{
			Tier:            string(p.Tier),
			Name:            p.Name,
			QueriesPerMonth: p.QueriesPerMonth,
			PriceMonthly:    p.PriceMonthly,
		})
	}
	h.respond(w, http.StatusOK, map[string]any{"plans": out})
}

type usageResponse struct {
	Used        int64     `json:"used"`
	Limit       int64     `json:"limit"`
	Remaining   int64     `json:"remaining"`
	Tier        string    `json:"tier"`
	PeriodStart time.Time `json:"period_start"`
	PeriodEnd   time.Time `json:"period_end"`
}

// Usage returns the current period's consumption and allowance.
func (h *Handler) Usage(w http.ResponseWriter, r *http.Request) {
	claims := getClaims(r.Context())

	account, err := h.accounts.Get(r.Context(), claims.UserID)
	if err != nil {
		h.notFoundOrInternal(w, err, "account")
		return
	}

	snap, err := h.ledger.GetUsage(r.Context(), claims.UserID)
	if err != nil {
		h.internalError(w, err, "usage lookup failed")
		return
	}

	limit := plan.Allowance(account.Tier)
	remaining := limit - snap.Count
	if remaining < 0 {
		remaining = 0
	}

	h.respond(w, http.StatusOK, usageResponse{
		Used:        snap.Count,
		Limit:       limit,
		Remaining:   remaining,
		Tier:        string(plan.Normalize(account.Tier)),
		PeriodStart: snap.PeriodStart,
		PeriodEnd:   snap.PeriodEnd,
	})
}

type usagePeriodResponse struct {
	PeriodStart time.Time `json:"period_start"`
	PeriodEnd   time.Time `json:"period_end"`
	Used        int64     `json:"used"`
}

// UsageHistory returns past period counters, newest first.
func (h *Handler) UsageHistory(w http.ResponseWriter, r *http.Request) {
	claims := getClaims(r.Context())

	limit := queryInt(r, "limit", 12)
	records, err := h.ledger.History(r.Context(), claims.UserID, limit)
	if err != nil {
		h.internalError(w, err, "usage history lookup failed")
		return
	}

	out := make([]usagePeriodResponse, 0, len(records))
	for _, rec := range records {
		out = append(out, usagePeriodResponse{
			PeriodStart: rec.PeriodStart,
			PeriodEnd:   rec.PeriodEnd,
			Used:        rec.QueryCount,
		})
	}
	h.respond(w, http.StatusOK, map[string]any{"periods": out})
}

type profileBody struct {
	DateOfBirth string   `json:"date_of_birth,omitempty"` // YYYY-MM-DD
	Sex         string   `json:"sex,omitempty"`
	HeightCm    int      `json:"height_cm,omitempty"`
	WeightKg    int      `json:"weight_kg,omitempty"`
	Conditions  []string `json:"conditions,omitempty"`
	Medications []string `json:"medications,omitempty"`
	Allergies   []string `json:"allergies,omitempty"`
	Notes       string   `json:"notes,omitempty"`
}

// ProfileGet returns the account's medical profile.
func (h *Handler) ProfileGet(w http.ResponseWriter, r *http.Request) {
	claims := getClaims(r.Context())

	p, err := h.profiles.Get(r.Context(), claims.UserID)
	if err != nil {
		h.internalError(w, err, "profile lookup failed")
		return
	}

	body := profileBody{
		Sex:         string(p.Sex),
		HeightCm:    p.HeightCm,
		WeightKg:    p.WeightKg,
		Conditions:  p.Conditions,
		Medications: p.Medications,
		Allergies:   p.Allergies,
		Notes:       p.Notes,
	}
	if !p.DateOfBirth.IsZero() {
		body.DateOfBirth = p.DateOfBirth.Format("2006-01-02")
	}
	h.respond(w, http.StatusOK, body)
}

// ProfilePut replaces the account's medical profile.
func (h *Handler) ProfilePut(w http.ResponseWriter, r *http.Request) {
	claims := getClaims(r.Context())

	var body profileBody
	if err := h.decode(r, &body); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid_request", "malformed request body")
		return
	}

	p := profile.Profile{
		AccountID:   claims.UserID,
		Sex:         profile.Sex(body.Sex),
		HeightCm:    body.HeightCm,
		WeightKg:    body.WeightKg,
		Conditions:  body.Conditions,
		Medications: body.Medications,
		Allergies:   body.Allergies,
		Notes:       body.Notes,
	}
	if body.DateOfBirth != "" {
		dob, err := time.Parse("2006-01-02", body.DateOfBirth)
		if err != nil {
			h.respondError(w, http.StatusBadRequest, "invalid_request", "date_of_birth must be YYYY-MM-DD")
			return
		}
		p.DateOfBirth = dob
	}

	if err := h.profiles.Put(r.Context(), p); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid_profile", err.Error())
		return
	}
	h.respond(w, http.StatusNoContent, nil)
}

type chatRequest struct {
	ConversationID string `json:"conversation_id,omitempty"`
	Question       string `json:"question"`
}

type chatResponse struct {
	ConversationID string          `json:"conversation_id"`
	Answer         messageResponse `json:"answer"`
	Usage          quotaResponse   `json:"usage"`
}

type messageResponse struct {
	ID        string             `json:"id"`
	Role      string             `json:"role"`
	Content   string             `json:"content"`
	Citations []citationResponse `json:"citations,omitempty"`
	CreatedAt time.Time          `json:"created_at"`
}

type citationResponse struct {
	Source  string `json:"source"`
	Ref     string `json:"ref"`
	Title   string `json:"title,omitempty"`
	Snippet string `json:"snippet,omitempty"`
}

type quotaResponse struct {
	Used      int64 `json:"used"`
	Limit     int64 `json:"limit"`
	Remaining int64 `json:"remaining"`
}

func toMessageResponse(m chat.Message) messageResponse {
	out := messageResponse{
		ID:        m.ID,
		Role:      string(m.Role),
		Content:   m.Content,
		CreatedAt: m.CreatedAt,
	}
	for _, c := range m.Citations {
		out.Citations = append(out.Citations, citationResponse{
			Source:  c.Source,
			Ref:     c.Ref,
			Title:   c.Title,
			Snippet: c.Snippet,
		})
	}
	return out
}

// ChatSend asks one question, charging one query against the monthly
// allowance.
func (h *Handler) ChatSend(w http.ResponseWriter, r *http.Request) {
	claims := getClaims(r.Context())

	var req chatRequest
	if err := h.decode(r, &req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid_request", "malformed request body")
		return
	}

	res, err := h.chat.Send(r.Context(), claims.UserID, req.ConversationID, req.Question)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrQuotaExceeded):
			h.respondError(w, http.StatusPaymentRequired, "quota_exceeded",
				"monthly question allowance exhausted; upgrade to continue")
		case errors.Is(err, ports.ErrNotFound):
			h.respondError(w, http.StatusNotFound, "not_found", "conversation not found")
		case errors.Is(err, chat.ErrEmptyQuestion), errors.Is(err, chat.ErrQuestionTooLong):
			h.respondError(w, http.StatusBadRequest, "invalid_question", err.Error())
		default:
			h.internalError(w, err, "chat send failed")
		}
		return
	}

	h.respond(w, http.StatusOK, chatResponse{
		ConversationID: res.ConversationID,
		Answer:         toMessageResponse(res.Answer),
		Usage: quotaResponse{
			Used:      res.Quota.Current,
			Limit:     res.Quota.Limit,
			Remaining: res.Quota.Remaining,
		},
	})
}

type conversationResponse struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Conversations lists the account's conversations, newest first.
func (h *Handler) Conversations(w http.ResponseWriter, r *http.Request) {
	claims := getClaims(r.Context())

	convs, err := h.chat.ListConversations(r.Context(), claims.UserID, queryInt(r, "limit", 50))
	if err != nil {
		h.internalError(w, err, "conversation list failed")
		return
	}

	out := make([]conversationResponse, 0, len(convs))
	for _, c := range convs {
		out = append(out, conversationResponse{
			ID:        c.ID,
			Title:     c.Title,
			CreatedAt: c.CreatedAt,
			UpdatedAt: c.UpdatedAt,
		})
	}
	h.respond(w, http.StatusOK, map[string]any{"conversations": out})
}

// ConversationMessages returns a conversation's messages in creation
// order.
func (h *Handler) ConversationMessages(w http.ResponseWriter, r *http.Request) {
	claims := getClaims(r.Context())
	conversationID := chi.URLParam(r, "id")

	msgs, err := h.chat.Messages(r.Context(), claims.UserID, conversationID, queryInt(r, "limit", 0))
	if err != nil {
		h.notFoundOrInternal(w, err, "conversation")
		return
	}

	out := make([]messageResponse, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, toMessageResponse(m))
	}
	h.respond(w, http.StatusOK, map[string]any{"messages": out})
}

type checkoutRequest struct {
	Tier string `json:"tier"`
}

// CreateCheckout starts a payment checkout session for a paid tier.
func (h *Handler) CreateCheckout(w http.ResponseWriter, r *http.Request) {
	claims := getClaims(r.Context())

	var req checkoutRequest
	if err := h.decode(r, &req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid_request", "malformed request body")
		return
	}

	p, ok := plan.Find(req.Tier)
	if !ok || p.PriceMonthly == 0 {
		h.respondError(w, http.StatusBadRequest, "invalid_tier", "tier is not purchasable")
		return
	}
	priceID := h.priceIDs[string(p.Tier)]
	if priceID == "" {
		priceID = p.StripePriceID
	}
	if priceID == "" {
		h.respondError(w, http.StatusBadRequest, "invalid_tier", "tier has no configured price")
		return
	}

	account, err := h.accounts.Get(r.Context(), claims.UserID)
	if err != nil {
		h.notFoundOrInternal(w, err, "account")
		return
	}

	customerID := account.StripeID
	if customerID == "" {
		customerID, err = h.payments.CreateCustomer(r.Context(), account.Email, account.Name, account.ID)
		if err != nil {
			h.paymentError(w, err)
			return
		}
		if _, err := h.accounts.AttachBillingID(r.Context(), account.ID, customerID); err != nil {
			h.internalError(w, err, "account update failed")
			return
		}
	}

	sessionURL, err := h.payments.CreateCheckoutSession(r.Context(), customerID, priceID,
		h.baseURL+"/billing/success", h.baseURL+"/billing/cancelled")
	if err != nil {
		h.paymentError(w, err)
		return
	}

	h.respond(w, http.StatusOK, map[string]string{"checkout_url": sessionURL})
}

// CreatePortal opens the payment provider's self-service portal.
func (h *Handler) CreatePortal(w http.ResponseWriter, r *http.Request) {
	claims := getClaims(r.Context())

	account, err := h.accounts.Get(r.Context(), claims.UserID)
	if err != nil {
		h.notFoundOrInternal(w, err, "account")
		return
	}
	if account.StripeID == "" {
		h.respondError(w, http.StatusBadRequest, "no_billing_account", "account has no billing history")
		return
	}

	portalURL, err := h.payments.CreatePortalSession(r.Context(), account.StripeID, h.baseURL+"/settings")
	if err != nil {
		h.paymentError(w, err)
		return
	}
	h.respond(w, http.StatusOK, map[string]string{"portal_url": portalURL})
}

// Helpers

func (h *Handler) internalError(w http.ResponseWriter, err error, msg string) {
	h.logger.Error().Err(err).Msg(msg)
	h.respondError(w, http.StatusInternalServerError, "internal_error", "something went wrong")
}

func (h *Handler) notFoundOrInternal(w http.ResponseWriter, err error, what string) {
	if errors.Is(err, ports.ErrNotFound) {
		h.respondError(w, http.StatusNotFound, "not_found", what+" not found")
		return
	}
	h.internalError(w, err, what+" lookup failed")
}

func (h *Handler) paymentError(w http.ResponseWriter, err error) {
	h.logger.Error().Err(err).Msg("payment provider error")
	h.respondError(w, http.StatusBadGateway, "payment_error", "payment provider request failed")
}

func queryInt(r *http.Request, name string, fallback int) int {
	v := r.URL.Query().Get(name)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}
