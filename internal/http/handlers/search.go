package handlers

import (
	"net/http"
	"strings"

	"tryon/internal/domain"
	"tryon/internal/providers/channel3"
)

type searchRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit"`
}

type searchResponse struct {
	Products []domain.Product `json:"products"`
}

func (a *App) SearchProducts(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := a.decode(w, r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	query := strings.TrimSpace(req.Query)
	if query == "" {
		a.fail(w, r, domain.Required("query", "query is required"))
		return
	}
	products, err := a.Products.Search(r.Context(), query, channel3.ClampLimit(req.Limit))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if products == nil {
		products = []domain.Product{}
	}
	a.json(w, http.StatusOK, searchResponse{Products: products})
}
