package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"gamezone/m/domain"
	"gamezone/m/internal/auth"
	"gamezone/m/internal/cart"
	"gamezone/m/internal/catalog"
	"gamezone/m/internal/ledger"
	"gamezone/m/internal/scanner"
)

// Handler bundles dependencies for HTTP handlers.
type Handler struct {
	secret  string
	catalog *catalog.Store
	cart    *cart.Cart
	ledger  *ledger.Ledger
	gate    *auth.Gate

	session *scanner.Session
	feed    *scanner.Feed

	mu     sync.Mutex
	last   *scanResult
	status string
}

type scanResult struct {
	Product domain.ProductRecord `json:"product"`
	Price   int64                `json:"price"`
	Added   bool                 `json:"added_to_cart"`
	At      time.Time            `json:"at"`
}

// New constructs a Handler and wires the scan session around the HTTP-fed
// decoder: the kiosk front end decodes frames locally and pushes candidate
// strings to /scan/detect.
func New(secret string, cat *catalog.Store, crt *cart.Cart, led *ledger.Ledger, gate *auth.Gate, scanCfg scanner.Config) *Handler {
	h := &Handler{
		secret:  secret,
		catalog: cat,
		cart:    crt,
		ledger:  led,
		gate:    gate,
		feed:    &scanner.Feed{},
	}

	h.session = scanner.NewSession(scanCfg, scanner.Deps{
		Camera:   &scanner.RemoteCamera{},
		Decoder:  h.feed,
		Resolver: cat.Resolve,
		Operator: gate.Operator,
		AddToCart: func(rec domain.ProductRecord) {
			price := cat.Price(rec)
			crt.Add(rec, price)
			led.LogAction("GAME_ADDED_TO_CART", map[string]string{"name": rec.Name, "price": strconv.FormatInt(price, 10)})
			h.setResult(rec, price, true)
		},
		Display: func(rec domain.ProductRecord) {
			h.setResult(rec, cat.Price(rec), false)
		},
		NotFound: func(code string) {
			led.TrackUsage("SCAN_FAILED", map[string]string{"barcode": code})
		},
		Status: h.setStatus,
	})

	return h
}

// Router wires up the HTTP API.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health", h.health)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Post("/auth/mode", h.switchMode)
	r.Get("/auth/mode", h.currentMode)

	r.Get("/catalog/search", h.search)
	r.Get("/catalog/resolve", h.resolve)
	r.Get("/stats", h.stats)
	r.Get("/sales", h.salesByPeriod)

	r.Route("/scan", func(r chi.Router) {
		r.Post("/start", h.scanStart)
		r.Post("/detect", h.scanDetect)
		r.Post("/stop", h.scanStop)
		r.Get("/state", h.scanState)
	})

	r.Group(func(op chi.Router) {
		op.Use(h.operatorMiddleware)

		op.Post("/catalog/refresh", h.refreshCatalog)

		op.Route("/cart", func(r chi.Router) {
			r.Get("/", h.cartContents)
			r.Post("/items", h.cartAdd)
			r.Post("/items/{index}/adjust", h.cartAdjust)
			r.Delete("/items/{index}", h.cartRemove)
			r.Delete("/", h.cartClear)
		})

		op.Post("/sales", h.completeSale)
		op.Get("/sales/report", h.salesReport)
		op.Delete("/sales", h.eraseLogs)
	})

	return r
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Authentication helpers

type modeClaims struct {
	Mode string `json:"mode"`
	jwt.RegisteredClaims
}

func (h *Handler) generateToken(mode string) (string, error) {
	claims := modeClaims{
		Mode: mode,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(12 * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(h.secret))
}

func (h *Handler) operatorMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" || !strings.HasPrefix(strings.ToLower(header), "bearer ") {
			respondError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		tokenString := strings.TrimSpace(header[len("Bearer "):])
		token, err := jwt.ParseWithClaims(tokenString, &modeClaims{}, func(token *jwt.Token) (interface{}, error) {
			if token.Method != jwt.SigningMethodHS256 {
				return nil, errors.New("unexpected signing method")
			}
			return []byte(h.secret), nil
		})
		if err != nil || !token.Valid {
			respondError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		claims, ok := token.Claims.(*modeClaims)
		if !ok || claims.Mode != auth.ModeOperator {
			respondError(w, http.StatusForbidden, "operator mode required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Mode handlers

type modeRequest struct {
	Mode   string `json:"mode"`
	Secret string `json:"secret,omitempty"`
}

func (h *Handler) switchMode(w http.ResponseWriter, r *http.Request) {
	var req modeRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.gate.Switch(req.Mode, req.Secret); err != nil {
		if errors.Is(err, auth.ErrBadSecret) {
			respondError(w, http.StatusUnauthorized, "invalid secret")
			return
		}
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.ledger.LogAction("MODE_CHANGED", map[string]string{"mode": req.Mode})

	payload := map[string]any{"mode": req.Mode}
	if req.Mode == auth.ModeOperator {
		token, err := h.generateToken(auth.ModeOperator)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "unable to generate token")
			return
		}
		payload["token"] = token
	}
	respondJSON(w, http.StatusOK, payload)
}

func (h *Handler) currentMode(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"mode": h.gate.Mode()})
}

// Catalog handlers

func (h *Handler) search(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("query"))
	if utf8.RuneCountInString(query) < catalog.MinQueryLength {
		respondError(w, http.StatusBadRequest, "query must be at least 2 characters")
		return
	}

	results := h.catalog.Search(query)
	h.ledger.TrackUsage("SEARCH_PERFORMED", map[string]string{"query": query, "results": strconv.Itoa(len(results))})

	type searchHit struct {
		domain.ProductRecord
		Price int64 `json:"price"`
	}
	hits := make([]searchHit, len(results))
	for i, rec := range results {
		hits[i] = searchHit{ProductRecord: rec, Price: h.catalog.Price(rec)}
	}
	respondJSON(w, http.StatusOK, hits)
}

func (h *Handler) resolve(w http.ResponseWriter, r *http.Request) {
	code := strings.TrimSpace(r.URL.Query().Get("code"))
	if code == "" {
		respondError(w, http.StatusBadRequest, "code is required")
		return
	}

	rec, ok := h.catalog.Resolve(code)
	if !ok {
		respondError(w, http.StatusNotFound, "no product for code")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"product": rec,
		"price":   h.catalog.Price(rec),
	})
}

func (h *Handler) refreshCatalog(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	updated := h.catalog.Refresh(ctx)
	if updated {
		h.ledger.LogAction("DATA_UPDATED", map[string]string{"count": strconv.Itoa(h.catalog.Count())})
	}
	respondJSON(w, http.StatusOK, map[string]any{"updated": updated, "count": h.catalog.Count()})
}

// Cart handlers

type cartAddRequest struct {
	Barcode string `json:"barcode"`
}

func (h *Handler) cartContents(w http.ResponseWriter, r *http.Request) {
	amount, items := h.cart.Totals()
	respondJSON(w, http.StatusOK, map[string]any{
		"lines":        h.cart.Lines(),
		"total_amount": amount,
		"total_items":  items,
	})
}

func (h *Handler) cartAdd(w http.ResponseWriter, r *http.Request) {
	var req cartAddRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Barcode) == "" {
		respondError(w, http.StatusBadRequest, "barcode is required")
		return
	}

	rec, ok := h.catalog.Resolve(req.Barcode)
	if !ok {
		respondError(w, http.StatusNotFound, "no product for barcode")
		return
	}

	price := h.catalog.Price(rec)
	h.cart.Add(rec, price)
	h.ledger.LogAction("GAME_ADDED_TO_CART", map[string]string{"name": rec.Name, "price": strconv.FormatInt(price, 10)})

	amount, items := h.cart.Totals()
	respondJSON(w, http.StatusCreated, map[string]any{
		"added":        rec.Name,
		"price":        price,
		"total_amount": amount,
		"total_items":  items,
	})
}

func (h *Handler) cartAdjust(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid line index")
		return
	}
	var payload struct {
		Delta int `json:"delta"`
	}
	if err := decodeJSON(r, &payload); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if payload.Delta == 0 {
		respondError(w, http.StatusBadRequest, "delta must be non-zero")
		return
	}
	if err := h.cart.Adjust(index, payload.Delta); err != nil {
		respondError(w, http.StatusBadRequest, "invalid line index")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"lines": h.cart.Lines()})
}

func (h *Handler) cartRemove(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid line index")
		return
	}
	if err := h.cart.Remove(index); err != nil {
		respondError(w, http.StatusBadRequest, "invalid line index")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"lines": h.cart.Lines()})
}

func (h *Handler) cartClear(w http.ResponseWriter, r *http.Request) {
	h.cart.Clear()
	respondJSON(w, http.StatusOK, map[string]string{"status": "cart cleared"})
}

// Sales handlers

func (h *Handler) completeSale(w http.ResponseWriter, r *http.Request) {
	snapshot := h.cart.Snapshot()
	if len(snapshot) == 0 {
		respondError(w, http.StatusBadRequest, "cart is empty")
		return
	}

	sale := h.ledger.LogSale(snapshot)
	h.cart.Clear()
	h.ledger.TrackUsage("SALE_COMPLETED", map[string]string{
		"saleId": sale.SaleID,
		"amount": strconv.FormatInt(sale.TotalAmount, 10),
		"items":  strconv.Itoa(sale.TotalItems),
	})

	respondJSON(w, http.StatusCreated, sale)
}

func (h *Handler) stats(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.ledger.Stats())
}

func (h *Handler) salesByPeriod(w http.ResponseWriter, r *http.Request) {
	period := r.URL.Query().Get("period")
	if period == "" {
		period = "total-sales"
	}
	respondJSON(w, http.StatusOK, h.ledger.SalesByPeriod(period))
}

func (h *Handler) salesReport(w http.ResponseWriter, r *http.Request) {
	report := h.ledger.Report()
	h.ledger.LogAction("LOGS_DOWNLOADED", nil)

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+h.ledger.ReportFilename()+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(report))
}

func (h *Handler) eraseLogs(w http.ResponseWriter, r *http.Request) {
	if err := h.ledger.EraseAll(); err != nil {
		respondError(w, http.StatusInternalServerError, "unable to erase logs")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "logs erased"})
}

// Scan handlers

func (h *Handler) scanStart(w http.ResponseWriter, r *http.Request) {
	if h.catalog.Count() == 0 {
		respondError(w, http.StatusConflict, "no catalog data")
		return
	}

	if err := h.session.Start(context.Background()); err != nil {
		if errors.Is(err, scanner.ErrAlreadyRunning) {
			respondError(w, http.StatusConflict, "scan already running")
			return
		}
		respondError(w, http.StatusInternalServerError, scanner.CameraMessage(err))
		return
	}

	h.mu.Lock()
	h.last = nil
	h.mu.Unlock()
	h.ledger.TrackUsage("SCAN_START", nil)
	respondJSON(w, http.StatusOK, map[string]string{"state": h.session.State().String()})
}

type detectRequest struct {
	Code string `json:"code"`
}

func (h *Handler) scanDetect(w http.ResponseWriter, r *http.Request) {
	var req detectRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	code := strings.TrimSpace(req.Code)
	if code == "" {
		respondError(w, http.StatusBadRequest, "code is required")
		return
	}

	delivered := h.feed.Push(code)
	respondJSON(w, http.StatusOK, map[string]any{
		"delivered": delivered,
		"state":     h.session.State().String(),
	})
}

func (h *Handler) scanStop(w http.ResponseWriter, r *http.Request) {
	h.session.Stop()
	h.ledger.TrackUsage("SCAN_STOPPED", nil)
	respondJSON(w, http.StatusOK, map[string]string{"state": h.session.State().String()})
}

func (h *Handler) scanState(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	last := h.last
	status := h.status
	h.mu.Unlock()

	respondJSON(w, http.StatusOK, map[string]any{
		"state":  h.session.State().String(),
		"status": status,
		"result": last,
	})
}

func (h *Handler) setResult(rec domain.ProductRecord, price int64, added bool) {
	h.mu.Lock()
	h.last = &scanResult{Product: rec, Price: price, Added: added, At: time.Now()}
	h.mu.Unlock()
	h.ledger.TrackUsage("SCAN_SUCCESS", map[string]string{"barcode": rec.Barcode, "game": rec.Name})
}

func (h *Handler) setStatus(message string) {
	h.mu.Lock()
	h.status = message
	h.mu.Unlock()
}

// Helpers

func decodeJSON(r *http.Request, dest interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dest)
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	encoder := json.NewEncoder(w)
	encoder.SetEscapeHTML(false)
	_ = encoder.Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
