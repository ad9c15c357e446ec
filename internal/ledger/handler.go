package ledger

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/stockbook/stockbook/internal/shared"
	"github.com/stockbook/stockbook/internal/view"
)

// Handler wires the HTTP endpoints for the ledger: the main page with its
// three forms and the history views. Every POST ends in a redirect back to
// the main page so a reload never resubmits the form.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	templates *view.Engine
	csrf      *shared.CSRFManager
	validator *validator.Validate
}

// NewHandler constructs the ledger handler.
func NewHandler(logger *slog.Logger, service *Service, templates *view.Engine, csrf *shared.CSRFManager) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		templates: templates,
		csrf:      csrf,
		validator: validator.New(),
	}
}

// MountRoutes registers ledger routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.showLedger)
	r.Post("/", h.handleSubmit)
	r.Get("/history/", h.showHistory)
	r.Get("/history/{from:[0-9]+}/{to:[0-9]+}/", h.showHistoryRange)
}

type ledgerPageData struct {
	Balance  float64
	Products []Product
}

type historyPageData struct {
	Operations []Operation
}

type purchaseForm struct {
	Name     string  `validate:"required"`
	Price    float64 `validate:"gte=0"`
	Quantity int64   `validate:"gte=0"`
}

type saleForm struct {
	Name     string  `validate:"required"`
	Price    float64 `validate:"gte=0"`
	Quantity int64   `validate:"gte=0"`
}

type balanceForm struct {
	Direction string
	Amount    float64 `validate:"gte=0"`
}

func (h *Handler) showLedger(w http.ResponseWriter, r *http.Request) {
	data := ledgerPageData{}
	var flash *shared.FlashMessage
	overview, err := h.service.GetOverview(r.Context())
	if err != nil {
		h.logger.Error("load overview", slog.Any("error", err))
		flash = &shared.FlashMessage{Kind: "error", Message: "Database error. Showing defaults."}
	} else {
		data.Balance = overview.Account.Balance
		data.Products = overview.Products
	}
	h.renderPage(w, r, "pages/ledger.html", "Ledger", data, flash)
}

// handleSubmit dispatches on the form-type discriminator. Unknown values
// mutate nothing and fall through to the redirect.
func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	switch r.PostFormValue("form-type") {
	case "purchase":
		h.handlePurchase(w, r)
	case "sale":
		h.handleSale(w, r)
	case "balance":
		h.handleBalance(w, r)
	default:
		http.Redirect(w, r, "/", http.StatusSeeOther)
	}
}

func (h *Handler) handlePurchase(w http.ResponseWriter, r *http.Request) {
	form := purchaseForm{Name: r.PostFormValue("purchase-name")}
	price, priceErr := strconv.ParseFloat(r.PostFormValue("purchase-price"), 64)
	quantity, qtyErr := strconv.ParseInt(r.PostFormValue("purchase-quantity"), 10, 64)
	form.Price = price
	form.Quantity = quantity
	if priceErr != nil || qtyErr != nil || h.validator.Struct(form) != nil {
		h.redirectWithFlash(w, r, "error", "Invalid purchase values.")
		return
	}

	_, err := h.service.Purchase(r.Context(), PurchaseInput{Name: form.Name, UnitPrice: form.Price, Quantity: form.Quantity})
	if err != nil {
		h.logger.Warn("purchase rejected", slog.String("product", form.Name), slog.Any("error", err))
		h.redirectWithFlash(w, r, "error", userMessage(err))
		return
	}
	h.logger.Info("purchase posted", slog.String("product", form.Name), slog.Int64("quantity", form.Quantity))
	h.redirectWithFlash(w, r, "success", "Purchase successful.")
}

func (h *Handler) handleSale(w http.ResponseWriter, r *http.Request) {
	form := saleForm{Name: r.PostFormValue("sale-name")}
	price, priceErr := strconv.ParseFloat(r.PostFormValue("sale-price"), 64)
	quantity, qtyErr := strconv.ParseInt(r.PostFormValue("sale-quantity"), 10, 64)
	form.Price = price
	form.Quantity = quantity
	if priceErr != nil || qtyErr != nil || h.validator.Struct(form) != nil {
		h.redirectWithFlash(w, r, "error", "Invalid sale values.")
		return
	}

	_, err := h.service.Sell(r.Context(), SaleInput{Name: form.Name, UnitPrice: form.Price, Quantity: form.Quantity})
	if err != nil {
		h.logger.Warn("sale rejected", slog.String("product", form.Name), slog.Any("error", err))
		h.redirectWithFlash(w, r, "error", userMessage(err))
		return
	}
	h.logger.Info("sale posted", slog.String("product", form.Name), slog.Int64("quantity", form.Quantity))
	h.redirectWithFlash(w, r, "success", "Sale successful.")
}

func (h *Handler) handleBalance(w http.ResponseWriter, r *http.Request) {
	form := balanceForm{Direction: r.PostFormValue("balance-type")}
	amount, amountErr := strconv.ParseFloat(r.PostFormValue("balance-amount"), 64)
	form.Amount = amount
	if amountErr != nil || h.validator.Struct(form) != nil {
		h.redirectWithFlash(w, r, "error", "Invalid balance amount.")
		return
	}

	op, err := h.service.AdjustBalance(r.Context(), AdjustmentInput{Direction: form.Direction, Amount: form.Amount})
	if err != nil {
		h.logger.Warn("balance adjustment rejected", slog.Any("error", err))
		h.redirectWithFlash(w, r, "error", userMessage(err))
		return
	}
	h.logger.Info("balance adjusted", slog.String("kind", string(op.Kind)), slog.Float64("balance", op.Balance))
	h.redirectWithFlash(w, r, "success", "Balance updated successfully.")
}

func (h *Handler) showHistory(w http.ResponseWriter, r *http.Request) {
	var flash *shared.FlashMessage
	ops, err := h.service.History(r.Context())
	if err != nil {
		h.logger.Error("load history", slog.Any("error", err))
		flash = &shared.FlashMessage{Kind: "error", Message: "Database error. Showing defaults."}
		ops = []Operation{}
	}
	h.renderPage(w, r, "pages/history.html", "History", historyPageData{Operations: ops}, flash)
}

func (h *Handler) showHistoryRange(w http.ResponseWriter, r *http.Request) {
	from, fromErr := strconv.Atoi(chi.URLParam(r, "from"))
	to, toErr := strconv.Atoi(chi.URLParam(r, "to"))

	var flash *shared.FlashMessage
	ops := []Operation{}
	if fromErr == nil && toErr == nil {
		var err error
		ops, err = h.service.HistoryRange(r.Context(), from, to)
		if err != nil {
			h.logger.Error("load history range", slog.Any("error", err))
			flash = &shared.FlashMessage{Kind: "error", Message: "Database error. Showing defaults."}
			ops = []Operation{}
		}
	}
	h.renderPage(w, r, "pages/history.html", "History", historyPageData{Operations: ops}, flash)
}

func (h *Handler) renderPage(w http.ResponseWriter, r *http.Request, name, title string, data any, flash *shared.FlashMessage) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken := ""
	if sess != nil {
		csrfToken, _ = h.csrf.EnsureToken(r.Context(), sess)
		if flash == nil {
			flash = sess.PopFlash()
		}
	}
	viewData := view.TemplateData{
		Title:       title,
		CSRFToken:   csrfToken,
		Flash:       flash,
		CurrentPath: r.URL.Path,
		Data:        data,
	}
	if err := h.templates.Render(w, name, viewData); err != nil {
		h.logger.Error("render page", slog.String("template", name), slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func (h *Handler) redirectWithFlash(w http.ResponseWriter, r *http.Request, kind, message string) {
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		sess.SetFlash(shared.FlashMessage{Kind: kind, Message: message})
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func userMessage(err error) string {
	switch {
	case errors.Is(err, ErrInsufficientFunds):
		return "Insufficient funds for this purchase."
	case errors.Is(err, ErrProductNotFound), errors.Is(err, ErrInsufficientStock):
		return "Not enough stock for this sale."
	case errors.Is(err, ErrNameRequired):
		return "Product name is required."
	case errors.Is(err, ErrInvalidPrice):
		return "Price must be zero or more."
	case errors.Is(err, ErrInvalidQuantity):
		return "Quantity must be zero or more."
	case errors.Is(err, ErrInvalidAmount):
		return "Amount must be zero or more."
	case errors.Is(err, ErrDuplicateProduct):
		return "Product was created concurrently. Please retry."
	default:
		return "Something went wrong. Please try again."
	}
}
