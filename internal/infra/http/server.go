package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Spok95/dosing-console/internal/domain/associations"
	"github.com/Spok95/dosing-console/internal/domain/formulas"
	"github.com/Spok95/dosing-console/internal/domain/materials"
	"github.com/Spok95/dosing-console/internal/domain/production"
	"github.com/Spok95/dosing-console/internal/domain/stock"
	"github.com/Spok95/dosing-console/internal/dosing"
	"github.com/Spok95/dosing-console/internal/infra/notify"
)

type Deps struct {
	Log          *slog.Logger
	Formulas     *formulas.Repo
	Materials    *materials.Repo
	Associations *associations.Repo
	Production   *production.Repo
	Stock        *stock.Repo
	Ledger       *dosing.Ledger
	Ordering     *dosing.OrderingStore
	Reconciler   *dosing.Reconciler
	Notifier     notify.Notifier
}

type Server struct {
	srv *http.Server
}

func New(addr string, exposeMetrics bool, d Deps) *Server {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	if exposeMetrics {
		mux.Handle("/metrics", promhttp.Handler())
	}

	h := &handlers{d: d}

	mux.HandleFunc("GET /api/formulas", h.listFormulas)
	mux.HandleFunc("POST /api/formulas", h.createFormula)
	mux.HandleFunc("GET /api/formulas/export/barcodes", h.exportFormulaBarcodes)
	mux.HandleFunc("POST /api/formulas/reorder", h.reorderFormulas)
	mux.HandleFunc("GET /api/formulas/{id}", h.getFormula)
	mux.HandleFunc("PUT /api/formulas/{id}", h.updateFormula)
	mux.HandleFunc("DELETE /api/formulas/{id}", h.deleteFormula)
	mux.HandleFunc("GET /api/formulas/{id}/associations", h.listFormulaAssociations)

	mux.HandleFunc("GET /api/materials", h.listMaterials)
	mux.HandleFunc("POST /api/materials", h.createMaterial)
	mux.HandleFunc("GET /api/materials/{id}", h.getMaterial)

	mux.HandleFunc("GET /api/associations", h.listAssociations)
	mux.HandleFunc("POST /api/associations/commit", h.commitAssociations)
	mux.HandleFunc("PUT /api/associations/{id}", h.updateAssociation)
	mux.HandleFunc("DELETE /api/associations/{id}", h.deleteAssociation)

	mux.HandleFunc("GET /api/transactions", h.listTransactions)
	mux.HandleFunc("POST /api/transactions", h.applyTransaction)

	mux.HandleFunc("GET /api/production_orders", h.listOrders)
	mux.HandleFunc("POST /api/production_orders", h.createOrder)
	mux.HandleFunc("GET /api/production_orders/export/barcodes", h.exportOrderBarcodes)
	mux.HandleFunc("PUT /api/production_orders/{id}", h.updateOrder)
	mux.HandleFunc("DELETE /api/production_orders/{id}", h.deleteOrder)
	mux.HandleFunc("PUT /api/production_orders/{id}/reject", h.rejectOrder)

	mux.HandleFunc("GET /api/batches", h.listBatches)
	mux.HandleFunc("POST /api/batches", h.createBatch)
	mux.HandleFunc("GET /api/batch_dispensing", h.listDispensing)
	mux.HandleFunc("POST /api/batch_dispensing", h.createDispensing)

	return &Server{srv: &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}}
}

func (s *Server) Start() error {
	return s.srv.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
