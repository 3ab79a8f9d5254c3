package handlers

import (
	"net/http"
)

type uploadRequest struct {
	Image string `json:"image"`
}

func (a *App) UploadImage(w http.ResponseWriter, r *http.Request) {
	var req uploadRequest
	if err := a.decode(w, r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	hosted, err := a.Images.Upload(r.Context(), req.Image)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, hosted)
}
