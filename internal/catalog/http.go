package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"GlobalBooks/pkg/kit"
)

const (
	maxBodyBytes = 1 << 20
	readyTimeout = 1 * time.Second
)

type Server struct {
	Service *Service
	Log     *zap.Logger

	// WriteGuards wrap the stock update route only (auth, rate limits).
	WriteGuards []func(http.Handler) http.Handler
}

type StockUpdateRequest struct {
	Quantity *int `json:"quantity"`
}

type StockUpdateResponse struct {
	Success bool     `json:"success"`
	Message string   `json:"message"`
	Product *Product `json:"product"`
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Get("/readyz", s.readyz)

	r.Mount("/products", s.productRoutes())
	r.Mount("/api/products", s.productRoutes())

	return r
}

func (s *Server) productRoutes() http.Handler {
	r := chi.NewRouter()
	r.Get("/", s.list)
	r.Get("/{id}", s.get)
	r.With(s.WriteGuards...).Put("/{id}/stock", s.updateStock)
	return r
}

func (s *Server) readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	if err := s.Service.Ping(ctx); err != nil {
		s.logger().Warn("readyz failed", zap.Error(err))
		kit.WriteError(w, r, http.StatusServiceUnavailable, "not ready", nil)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) list(w http.ResponseWriter, r *http.Request) {
	products, err := s.Service.GetAllProducts(r.Context())
	if err != nil {
		s.logger().Error("list products failed", zap.Error(err))
		kit.WriteError(w, r, http.StatusInternalServerError, "Error retrieving products", nil)
		return
	}
	kit.WriteJSON(w, http.StatusOK, products)
}

func (s *Server) get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	p, err := s.Service.GetProduct(r.Context(), id)
	if errors.Is(err, ErrNotFound) {
		kit.WriteError(w, r, http.StatusNotFound, "Product not found", map[string]any{"id": id})
		return
	}
	if err != nil {
		s.logger().Error("get product failed", zap.Error(err), zap.String("id", id))
		kit.WriteError(w, r, http.StatusInternalServerError, "Error retrieving product", nil)
		return
	}
	kit.WriteJSON(w, http.StatusOK, p)
}

func (s *Server) updateStock(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	req, err := decodeStockUpdate(w, r)
	if err != nil {
		kit.WriteJSON(w, http.StatusBadRequest, StockUpdateResponse{
			Success: false,
			Message: "Invalid request body: " + err.Error(),
		})
		return
	}

	res := s.Service.UpdateProductStock(r.Context(), id, *req.Quantity)
	kit.WriteJSON(w, res.Outcome.HTTPStatus(), StockUpdateResponse{
		Success: res.OK(),
		Message: res.Message,
		Product: res.Product,
	})
}

func decodeStockUpdate(w http.ResponseWriter, r *http.Request) (StockUpdateRequest, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	defer func() { _ = r.Body.Close() }()

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	var req StockUpdateRequest
	if err := dec.Decode(&req); err != nil {
		return StockUpdateRequest{}, err
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return StockUpdateRequest{}, errors.New("extra data after json object")
	}
	if req.Quantity == nil {
		return StockUpdateRequest{}, errors.New("quantity is required")
	}
	return req, nil
}

func (s *Server) logger() *zap.Logger {
	if s.Log == nil {
		return zap.NewNop()
	}
	return s.Log
}
