package httpserver

import (
	"encoding/json"
	"net/http"

	"github.com/parityarb/xvenue-arb/internal/orderbook"
	"go.uber.org/zap"
)

// BookHandler serves the Central Order Book's current state over HTTP,
// backed by the per-symbol two-venue orderbook.Manager.
type BookHandler struct {
	books  *orderbook.Manager
	logger *zap.Logger
}

// NewBookHandler creates a book handler backed by books.
func NewBookHandler(books *orderbook.Manager, logger *zap.Logger) *BookHandler {
	return &BookHandler{books: books, logger: logger}
}

// VenueQuote is one venue's side of a symbol's book.
type VenueQuote struct {
	YesAsk  string `json:"yes_ask,omitempty"`
	NoAsk   string `json:"no_ask,omitempty"`
	AskedAt string `json:"asked_at,omitempty"`
}

// BookResponse represents the HTTP response for GET /api/book.
type BookResponse struct {
	Symbol string     `json:"symbol"`
	Stream VenueQuote `json:"v_stream"`
	RPC    VenueQuote `json:"v_rpc"`
}

// ErrorResponse represents an HTTP error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HandleBook handles GET /api/book?symbol=<unified-symbol>.
func (h *BookHandler) HandleBook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.writeError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	symbol := r.URL.Query().Get("symbol")
	if symbol == "" {
		h.writeError(w, "missing required query parameter: symbol", http.StatusBadRequest)
		return
	}

	h.logger.Debug("book-request-received", zap.String("symbol", symbol))

	book, ok := h.books.Snapshot(symbol)
	if !ok {
		h.writeError(w, "symbol not tracked", http.StatusNotFound)
		return
	}

	resp := BookResponse{Symbol: symbol}
	if book.Stream != nil {
		resp.Stream = VenueQuote{
			YesAsk:  book.Stream.YesAsk.String(),
			NoAsk:   book.Stream.NoAsk.String(),
			AskedAt: book.Stream.TsLocal.Format("2006-01-02T15:04:05.000Z07:00"),
		}
	}
	if book.RPC != nil {
		resp.RPC = VenueQuote{
			YesAsk:  book.RPC.YesAsk.String(),
			NoAsk:   book.RPC.NoAsk.String(),
			AskedAt: book.RPC.TsLocal.Format("2006-01-02T15:04:05.000Z07:00"),
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Error("failed-to-encode-response", zap.Error(err))
	}
}

// HandleSymbols handles GET /api/symbols, listing every unified symbol the
// book currently tracks.
func (h *BookHandler) HandleSymbols(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.writeError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(struct {
		Symbols []string `json:"symbols"`
	}{Symbols: h.books.AllSymbols()}); err != nil {
		h.logger.Error("failed-to-encode-response", zap.Error(err))
	}
}

func (h *BookHandler) writeError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(ErrorResponse{Error: message}); err != nil {
		h.logger.Error("failed-to-encode-error-response", zap.Error(err))
	}
}
