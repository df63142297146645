package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/Spok95/dosing-console/internal/domain/associations"
	"github.com/Spok95/dosing-console/internal/domain/formulas"
	"github.com/Spok95/dosing-console/internal/domain/materials"
	"github.com/Spok95/dosing-console/internal/domain/production"
	"github.com/Spok95/dosing-console/internal/dosing"
	"github.com/Spok95/dosing-console/internal/report"
)

type handlers struct{ d Deps }

func (h *handlers) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.d.Log.Error("write response failed", "err", err)
	}
}

func (h *handlers) writeError(w http.ResponseWriter, code int, msg string) {
	h.writeJSON(w, code, map[string]string{"error": msg})
}

func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	return id, err == nil && id > 0
}

/* Formulas */

type formulaPayload struct {
	Name          string `json:"name"`
	Code          string `json:"code"`
	Description   string `json:"description"`
	Version       string `json:"version"`
	Status        string `json:"status"`
	CreatedBy     int64  `json:"created_by"`
	BarcodeID     string `json:"barcode_id"`
	MaterialCount *int   `json:"no_of_materials"`
}

// listFormulas returns formulas in the caller's persisted display order
// when a client id is supplied.
func (h *handlers) listFormulas(w http.ResponseWriter, r *http.Request) {
	list, err := h.d.Formulas.List(r.Context())
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if client := r.URL.Query().Get("client"); client != "" {
		list = h.d.Ordering.Reconcile(r.Context(), client, list)
	}
	h.writeJSON(w, http.StatusOK, list)
}

func (h *handlers) createFormula(w http.ResponseWriter, r *http.Request) {
	var p formulaPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	f, err := h.d.Formulas.Create(r.Context(), formulas.Formula{
		Name:          p.Name,
		Code:          p.Code,
		Description:   p.Description,
		Version:       p.Version,
		Status:        formulas.Status(p.Status),
		CreatedBy:     p.CreatedBy,
		BarcodeID:     p.BarcodeID,
		MaterialCount: p.MaterialCount,
	})
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.writeJSON(w, http.StatusCreated, f)
}

func (h *handlers) getFormula(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		h.writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	f, err := h.d.Formulas.GetByID(r.Context(), id)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if f == nil {
		h.writeError(w, http.StatusNotFound, "formula not found")
		return
	}
	h.writeJSON(w, http.StatusOK, f)
}

func (h *handlers) updateFormula(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		h.writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	current, err := h.d.Formulas.GetByID(r.Context(), id)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if current == nil {
		h.writeError(w, http.StatusNotFound, "formula not found")
		return
	}

	// Partial update: absent fields keep their stored value.
	var p map[string]json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	merge := func(key string, dst any) bool {
		raw, ok := p[key]
		if !ok {
			return true
		}
		return json.Unmarshal(raw, dst) == nil
	}
	ok = merge("name", &current.Name) &&
		merge("code", &current.Code) &&
		merge("description", &current.Description) &&
		merge("version", &current.Version) &&
		merge("status", &current.Status) &&
		merge("barcode_id", &current.BarcodeID) &&
		merge("no_of_materials", &current.MaterialCount)
	if !ok {
		h.writeError(w, http.StatusBadRequest, "invalid field value")
		return
	}

	if err := h.d.Formulas.Update(r.Context(), *current); err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"message": "formula updated"})
}

func (h *handlers) deleteFormula(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		h.writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	if err := h.d.Formulas.Delete(r.Context(), id); err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"message": "formula deleted"})
}

type reorderPayload struct {
	Client    string `json:"client"`
	Index     int    `json:"index"`
	Direction string `json:"direction"` // "up" or "down"
}

func (h *handlers) reorderFormulas(w http.ResponseWriter, r *http.Request) {
	var p reorderPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil || p.Client == "" {
		h.writeError(w, http.StatusBadRequest, "client, index and direction are required")
		return
	}
	list, err := h.d.Formulas.List(r.Context())
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	list = h.d.Ordering.Reconcile(r.Context(), p.Client, list)

	switch p.Direction {
	case "up":
		list = h.d.Ordering.MoveUp(r.Context(), p.Client, list, p.Index)
	case "down":
		list = h.d.Ordering.MoveDown(r.Context(), p.Client, list, p.Index)
	default:
		h.writeError(w, http.StatusBadRequest, "direction must be up or down")
		return
	}
	h.writeJSON(w, http.StatusOK, list)
}

func (h *handlers) listFormulaAssociations(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		h.writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	list, err := h.d.Associations.ListByFormula(r.Context(), id)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, associationListJSON(list))
}

func (h *handlers) exportFormulaBarcodes(w http.ResponseWriter, r *http.Request) {
	list, err := h.d.Formulas.List(r.Context())
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	buf, err := report.FormulaBarcodes(list)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	serveXLSX(w, "formulas_with_barcodes.xlsx", buf)
}

/* Materials */

func (h *handlers) listMaterials(w http.ResponseWriter, r *http.Request) {
	list, err := h.d.Materials.List(r.Context())
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, list)
}

func (h *handlers) createMaterial(w http.ResponseWriter, r *http.Request) {
	var p struct {
		Title           string  `json:"title"`
		Location        string  `json:"location"`
		CurrentQuantity float64 `json:"current_quantity"`
		MinimumQuantity float64 `json:"minimum_quantity"`
		MaximumQuantity float64 `json:"maximum_quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	m, err := h.d.Materials.Create(r.Context(), materials.Material{
		Title:           p.Title,
		Location:        p.Location,
		CurrentQuantity: p.CurrentQuantity,
		MinimumQuantity: p.MinimumQuantity,
		MaximumQuantity: p.MaximumQuantity,
	})
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.writeJSON(w, http.StatusCreated, m)
}

func (h *handlers) getMaterial(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		h.writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	m, err := h.d.Materials.GetByID(r.Context(), id)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if m == nil {
		h.writeError(w, http.StatusNotFound, "material not found")
		return
	}
	h.writeJSON(w, http.StatusOK, m)
}

/* Associations */

func (h *handlers) listAssociations(w http.ResponseWriter, r *http.Request) {
	list, err := h.d.Associations.List(r.Context())
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, associationListJSON(list))
}

// updateAssociation is the measurement path: the operator sets the
// tolerance band, the measurement feed records actuals. Each recorded
// actual is evaluated against the band and alerts when out of range.
func (h *handlers) updateAssociation(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		h.writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	var p struct {
		Margin *float64 `json:"margin"`
		Actual *float64 `json:"actual"`
	}
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if p.Margin == nil && p.Actual == nil {
		h.writeError(w, http.StatusBadRequest, "margin or actual is required")
		return
	}

	if p.Margin != nil {
		if err := h.d.Associations.SetMargin(r.Context(), id, *p.Margin); err != nil {
			h.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	if p.Actual != nil {
		if err := h.d.Associations.RecordActual(r.Context(), id, *p.Actual); err != nil {
			h.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	a, err := h.d.Associations.GetByID(r.Context(), id)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if a == nil {
		h.writeError(w, http.StatusNotFound, "association not found")
		return
	}

	outOfRange := false
	if p.Actual != nil {
		outOfRange = dosing.CheckMeasurement(*a, h.d.Notifier)
	} else {
		outOfRange = dosing.CheckMeasurement(*a, nil)
	}
	h.writeJSON(w, http.StatusOK, associationJSON{Association: *a, OutOfRange: outOfRange})
}

type stagedEditPayload struct {
	MaterialTitle string `json:"material_title"`
	SetPoint      string `json:"set_point"`
}

func (h *handlers) commitAssociations(w http.ResponseWriter, r *http.Request) {
	var p struct {
		Edits map[string]stagedEditPayload `json:"edits"`
	}
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	edits := make(map[int64]dosing.StagedEdit, len(p.Edits))
	for key, e := range p.Edits {
		fid, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "edit keys must be formula ids")
			return
		}
		edits[fid] = dosing.StagedEdit{MaterialTitle: e.MaterialTitle, SetPoint: e.SetPoint}
	}

	rep, err := h.d.Reconciler.Commit(r.Context(), edits)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, commitReportJSON(rep))
}

func (h *handlers) deleteAssociation(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		h.writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	if err := h.d.Associations.Delete(r.Context(), id); err != nil {
		h.writeError(w, http.StatusNotFound, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"message": "association deleted"})
}

/* Stock transactions */

type transactionPayload struct {
	MaterialID      int64   `json:"material_id"`
	TransactionType string  `json:"transaction_type"` // addition | removal
	Quantity        float64 `json:"quantity"`
	Description     string  `json:"description"`
}

func (h *handlers) applyTransaction(w http.ResponseWriter, r *http.Request) {
	var p transactionPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	res, err := h.d.Ledger.Apply(r.Context(), p.MaterialID, dosing.TxKind(p.TransactionType), p.Quantity, p.Description)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !res.Accepted {
		h.writeJSON(w, http.StatusConflict, map[string]any{
			"accepted": false,
			"reason":   res.Reason,
			"quantity": res.NewQuantity,
		})
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"accepted": true,
		"quantity": res.NewQuantity,
	})
}

func (h *handlers) listTransactions(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	list, err := h.d.Stock.Recent(r.Context(), limit)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, list)
}

/* Production */

type orderPayload struct {
	OrderNumber   string  `json:"order_number"`
	FormulaID     int64   `json:"recipe_id"`
	BatchSize     float64 `json:"batch_size"`
	ScheduledDate string  `json:"scheduled_date"`
	Status        string  `json:"status"`
	CreatedBy     int64   `json:"created_by"`
	Notes         string  `json:"notes"`
	BarcodeID     string  `json:"barcode_id"`
}

func (h *handlers) createOrder(w http.ResponseWriter, r *http.Request) {
	var p orderPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	scheduled, err := time.Parse("2006-01-02", p.ScheduledDate)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "scheduled_date must be YYYY-MM-DD")
		return
	}
	o, err := h.d.Production.CreateOrder(r.Context(), production.Order{
		OrderNumber:   p.OrderNumber,
		FormulaID:     p.FormulaID,
		BatchSize:     p.BatchSize,
		ScheduledDate: scheduled,
		Status:        production.OrderStatus(p.Status),
		CreatedBy:     p.CreatedBy,
		Notes:         p.Notes,
		BarcodeID:     p.BarcodeID,
	})
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.writeJSON(w, http.StatusCreated, o)
}

func (h *handlers) listOrders(w http.ResponseWriter, r *http.Request) {
	list, err := h.d.Production.ListOrders(r.Context())
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, list)
}

func (h *handlers) updateOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		h.writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	current, err := h.d.Production.GetOrder(r.Context(), id)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if current == nil {
		h.writeError(w, http.StatusNotFound, "production order not found")
		return
	}

	if err := mergeOrder(current, r.Body); err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.d.Production.UpdateOrder(r.Context(), *current); err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"message": "production order updated"})
}

func (h *handlers) deleteOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		h.writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	if err := h.d.Production.DeleteOrder(r.Context(), id); err != nil {
		h.writeError(w, http.StatusNotFound, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"message": "production order deleted"})
}

func (h *handlers) rejectOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		h.writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	if err := h.d.Production.RejectOrder(r.Context(), id); err != nil {
		h.writeError(w, http.StatusNotFound, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"message": "production order rejected"})
}

func (h *handlers) exportOrderBarcodes(w http.ResponseWriter, r *http.Request) {
	list, err := h.d.Production.ListOrders(r.Context())
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	buf, err := report.OrderBarcodes(list)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	serveXLSX(w, "production_orders_with_barcodes.xlsx", buf)
}

func (h *handlers) createBatch(w http.ResponseWriter, r *http.Request) {
	var p struct {
		BatchNumber string `json:"batch_number"`
		OrderID     int64  `json:"order_id"`
		Status      string `json:"status"`
		OperatorID  int64  `json:"operator_id"`
		Notes       string `json:"notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	b, err := h.d.Production.CreateBatch(r.Context(), production.Batch{
		BatchNumber: p.BatchNumber,
		OrderID:     p.OrderID,
		Status:      p.Status,
		OperatorID:  p.OperatorID,
		Notes:       p.Notes,
	})
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.writeJSON(w, http.StatusCreated, b)
}

func (h *handlers) listBatches(w http.ResponseWriter, r *http.Request) {
	list, err := h.d.Production.ListBatches(r.Context())
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, list)
}

func (h *handlers) createDispensing(w http.ResponseWriter, r *http.Request) {
	var p struct {
		BatchID         int64    `json:"batch_id"`
		MaterialID      int64    `json:"material_id"`
		PlannedQuantity float64  `json:"planned_quantity"`
		ActualQuantity  *float64 `json:"actual_quantity"`
		DispensedBy     int64    `json:"dispensed_by"`
		Status          string   `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	d, err := h.d.Production.CreateDispensing(r.Context(), production.Dispensing{
		BatchID:         p.BatchID,
		MaterialID:      p.MaterialID,
		PlannedQuantity: p.PlannedQuantity,
		ActualQuantity:  p.ActualQuantity,
		DispensedBy:     p.DispensedBy,
		Status:          p.Status,
	})
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.writeJSON(w, http.StatusCreated, d)
}

func (h *handlers) listDispensing(w http.ResponseWriter, r *http.Request) {
	list, err := h.d.Production.ListDispensing(r.Context())
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, list)
}

/* Helpers */

// mergeOrder applies a partial JSON update onto an order: absent fields
// keep their stored value, present fields overwrite it — including with
// zero values, so notes can be cleared.
func mergeOrder(o *production.Order, body io.Reader) error {
	var p map[string]json.RawMessage
	if err := json.NewDecoder(body).Decode(&p); err != nil {
		return errors.New("invalid JSON body")
	}
	merge := func(key string, dst any) bool {
		raw, ok := p[key]
		if !ok {
			return true
		}
		return json.Unmarshal(raw, dst) == nil
	}
	ok := merge("order_number", &o.OrderNumber) &&
		merge("recipe_id", &o.FormulaID) &&
		merge("batch_size", &o.BatchSize) &&
		merge("status", &o.Status) &&
		merge("created_by", &o.CreatedBy) &&
		merge("notes", &o.Notes)
	if !ok {
		return errors.New("invalid field value")
	}
	if raw, ok := p["scheduled_date"]; ok {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return errors.New("invalid scheduled_date")
		}
		scheduled, err := time.Parse("2006-01-02", s)
		if err != nil {
			return errors.New("scheduled_date must be YYYY-MM-DD")
		}
		o.ScheduledDate = scheduled
	}
	return nil
}

type associationJSON struct {
	associations.Association
	OutOfRange bool `json:"out_of_range"`
}

func associationListJSON(list []associations.Association) []associationJSON {
	out := make([]associationJSON, 0, len(list))
	for _, a := range list {
		out = append(out, associationJSON{Association: a, OutOfRange: dosing.CheckMeasurement(a, nil)})
	}
	return out
}

func serveXLSX(w http.ResponseWriter, name string, buf *bytes.Buffer) {
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	_, _ = w.Write(buf.Bytes())
}

func commitReportJSON(rep dosing.CommitReport) map[string]any {
	applied := make([]map[string]any, 0, len(rep.Applied))
	for _, a := range rep.Applied {
		applied = append(applied, map[string]any{
			"formula_id":     a.FormulaID,
			"material_id":    a.MaterialID,
			"operation":      a.Kind,
			"association_id": a.AssociationID,
		})
	}
	skipped := make([]map[string]any, 0, len(rep.Skipped))
	for _, s := range rep.Skipped {
		item := map[string]any{
			"formula_id": s.FormulaID,
			"reason":     s.Reason,
		}
		if s.Err != nil {
			item["error"] = s.Err.Error()
		}
		skipped = append(skipped, item)
	}
	return map[string]any{"applied": applied, "skipped": skipped}
}
