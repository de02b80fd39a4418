package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/itchan-dev/boardkeeper/shared/domain"
	"github.com/itchan-dev/boardkeeper/shared/utils"
)

func (h *Handler) DebugBoards(w http.ResponseWriter, r *http.Request) {
	utils.WriteJSON(w, h.boards.AllStats())
}

func (h *Handler) DebugBoard(w http.ResponseWriter, r *http.Request) {
	view, err := h.boards.View(domain.BoardName(chi.URLParam(r, "board")))
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	utils.WriteJSON(w, view)
}
