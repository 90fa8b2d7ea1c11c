package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"dynatable/internal/domain"
)

const defaultPageSize = 100

func (h *Handler) listTables(w http.ResponseWriter, r *http.Request) {
	tables, err := h.engine.ListTables(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"tables": tables})
}

func (h *Handler) describeTable(w http.ResponseWriter, r *http.Request) {
	td, err := h.engine.Describe(r.Context(), chi.URLParam(r, "table"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, td)
}

func (h *Handler) listRecords(w http.ResponseWriter, r *http.Request) {
	table := chi.URLParam(r, "table")

	limit := defaultPageSize
	offset := 0
	filters := map[string]interface{}{}
	for key, values := range r.URL.Query() {
		if len(values) == 0 {
			continue
		}
		switch key {
		case "limit":
			if n, err := strconv.Atoi(values[0]); err == nil && n > 0 {
				limit = n
			}
		case "offset":
			if n, err := strconv.Atoi(values[0]); err == nil && n >= 0 {
				offset = n
			}
		default:
			// Remaining query parameters become equality filters. Values
			// stay strings; SQLite column affinity reconciles them with
			// typed columns.
			filters[key] = values[0]
		}
	}

	records, err := h.engine.List(r.Context(), table, filters, limit, offset)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"records": records,
		"limit":   limit,
		"offset":  offset,
	})
}

func (h *Handler) createRecord(w http.ResponseWriter, r *http.Request) {
	table := chi.URLParam(r, "table")

	fields, err := decodeFields(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	record, err := h.engine.Create(r.Context(), table, fields)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, record)
}

func (h *Handler) getRecord(w http.ResponseWriter, r *http.Request) {
	table := chi.URLParam(r, "table")

	filter, err := h.keyFilter(r, table)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	record, err := h.engine.Get(r.Context(), table, filter)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (h *Handler) updateRecord(w http.ResponseWriter, r *http.Request) {
	table := chi.URLParam(r, "table")

	filter, err := h.keyFilter(r, table)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	fields, err := decodeFields(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	updated, err := h.engine.Update(r.Context(), table, fields, filter)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if updated == 0 {
		h.writeError(w, r, domain.ErrNotFound("record not found in %q", table))
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"updated": updated})
}

func (h *Handler) deleteRecord(w http.ResponseWriter, r *http.Request) {
	table := chi.URLParam(r, "table")

	filter, err := h.keyFilter(r, table)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	deleted, err := h.engine.Delete(r.Context(), table, filter)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if deleted == 0 {
		h.writeError(w, r, domain.ErrNotFound("record not found in %q", table))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// keyFilter resolves the {id} path segment against the table's primary key
// column. Tables without a single-column primary key cannot be addressed by
// id.
func (h *Handler) keyFilter(r *http.Request, table string) (map[string]interface{}, error) {
	td, err := h.engine.Describe(r.Context(), table)
	if err != nil {
		return nil, err
	}
	pk := td.PrimaryKey()
	if len(pk) != 1 {
		return nil, domain.ErrValidation("table %q has no single-column primary key", table)
	}
	id := chi.URLParam(r, "id")
	return map[string]interface{}{pk[0].Name: id}, nil
}

// decodeFields reads the request body as a flat JSON object. Numbers are
// decoded as json.Number so integer precision survives the trip into the
// value mapper.
func decodeFields(r *http.Request) (map[string]interface{}, error) {
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	var fields map[string]interface{}
	if err := dec.Decode(&fields); err != nil {
		return nil, domain.ErrValidation("invalid request body")
	}
	if len(fields) == 0 {
		return nil, domain.ErrValidation("request body must contain at least one field")
	}
	return fields, nil
}
