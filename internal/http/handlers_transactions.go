package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"cashlog/internal/core"
	"cashlog/internal/export"
	"cashlog/internal/services"
	"cashlog/internal/storage"
)

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	in, ok := decodeTransaction(w, r)
	if !ok {
		return
	}

	id := identity(r)
	tx, err := s.ledger.PostTransaction(r.Context(), id.OrganizationID, id.UserID, in)
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.httpLog.LogTransactionPosted(r.Context(), id.OrganizationID, tx.ID, tx.Amount.Cents)

	writeJSON(w, http.StatusCreated, map[string]any{
		"message":     "transaction created",
		"transaction": toTransactionDTO(tx),
	})
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	id := identity(r)
	q := r.URL.Query()

	filter := storage.TransactionFilter{
		OrganizationID: id.OrganizationID,
		Search:         q.Get("search"),
		Type:           core.TransactionType(q.Get("type")),
		CategoryID:     q.Get("categoryId"),
		RelatedPartyID: q.Get("relatedPartyId"),
	}

	ve := core.NewValidationError()
	if v := q.Get("type"); v != "" && !filter.Type.Valid() {
		ve.Add("type", "must be income or expense")
	}
	if v := q.Get("from"); v != "" {
		d, err := core.ParseDate(v)
		if err != nil {
			ve.Add("from", "must be YYYY-MM-DD")
		}
		filter.From = d
	}
	if v := q.Get("to"); v != "" {
		d, err := core.ParseDate(v)
		if err != nil {
			ve.Add("to", "must be YYYY-MM-DD")
		}
		filter.To = d
	}
	if v := q.Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			ve.Add("page", "must be a positive integer")
		}
		filter.Page = n
	}
	if v := q.Get("pageSize"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			ve.Add("pageSize", "must be a positive integer")
		}
		filter.PageSize = n
	}
	if err := ve.OrNil(); err != nil {
		writeError(w, r, err)
		return
	}

	txs, total, err := s.ledger.ListTransactions(r.Context(), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}

	data := make([]transactionDTO, 0, len(txs))
	for i := range txs {
		data = append(data, toTransactionDTO(&txs[i]))
	}

	pageSize := filter.PageSize
	if pageSize < 1 {
		pageSize = services.DefaultPageSize
	}
	if pageSize > services.MaxPageSize {
		pageSize = services.MaxPageSize
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	totalPages := total / int64(pageSize)
	if total%int64(pageSize) != 0 {
		totalPages++
	}

	writeJSON(w, http.StatusOK, listResponse{
		Data: data,
		Meta: listMeta{
			TotalItems:  total,
			TotalPages:  totalPages,
			CurrentPage: page,
			PageSize:    pageSize,
		},
	})
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	id := identity(r)
	tx, err := s.ledger.GetTransaction(r.Context(), id.OrganizationID, r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionDTO(tx))
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	in, ok := decodeTransaction(w, r)
	if !ok {
		return
	}

	id := identity(r)
	tx, err := s.ledger.UpdateTransaction(r.Context(), id.OrganizationID, r.PathValue("id"), in)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message":     "transaction updated",
		"transaction": toTransactionDTO(tx),
	})
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id := identity(r)
	if err := s.ledger.DeleteTransaction(r.Context(), id.OrganizationID, r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "transaction deleted"})
}

func (s *Server) handleTransactionInvoice(w http.ResponseWriter, r *http.Request) {
	id := identity(r)
	tx, err := s.ledger.GetTransaction(r.Context(), id.OrganizationID, r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", "invoice_"+tx.ID+".pdf"))
	if err := export.WriteInvoicePDF(w, tx); err != nil {
		// Headers are already out; log and bail.
		writeError(w, r, err)
	}
}

// decodeTransaction parses and converts the request body, writing the
// error response itself on failure.
func decodeTransaction(w http.ResponseWriter, r *http.Request) (services.TransactionInput, bool) {
	var req transactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "malformed JSON body"})
		return services.TransactionInput{}, false
	}

	in, err := req.toInput()
	if err != nil {
		writeError(w, r, err)
		return services.TransactionInput{}, false
	}
	return in, true
}
