package handler

import "net/http"

type Home struct {
	pages *Pages
}

func NewHome(pages *Pages) *Home {
	return &Home{pages: pages}
}

func (h *Home) Show(w http.ResponseWriter, r *http.Request) {
	h.pages.Render(w, r, http.StatusOK, "home", "Home", nil)
}
