package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/kassalapp-todo/internal/todo"
)

// entityView is the JSON form of one to-do entity.
type entityView struct {
	EntityID  string      `json:"entity_id"`
	UniqueID  string      `json:"unique_id"`
	ListID    int64       `json:"list_id"`
	Title     string      `json:"title"`
	Available bool        `json:"available"`
	Features  []string    `json:"supported_features"`
	ItemCount int         `json:"item_count"`
	Items     []todo.Item `json:"items,omitempty"`
}

func viewOf(e *todo.Entity, withItems bool) entityView {
	items := e.Items()
	v := entityView{
		EntityID:  e.EntityID(),
		UniqueID:  e.UniqueID(),
		ListID:    e.ListID(),
		Title:     e.Title(),
		Available: e.Available(),
		Features:  e.SupportedFeatures().Names(),
		ItemCount: len(items),
	}
	if withItems {
		v.Items = items
		if v.Items == nil {
			v.Items = []todo.Item{}
		}
	}
	return v
}

// itemsResponse is returned by every handler that changes items.
type itemsResponse struct {
	EntityID  string      `json:"entity_id"`
	Available bool        `json:"available"`
	Items     []todo.Item `json:"items"`
}

func itemsOf(e *todo.Entity) itemsResponse {
	items := e.Items()
	if items == nil {
		items = []todo.Item{}
	}
	return itemsResponse{EntityID: e.EntityID(), Available: e.Available(), Items: items}
}

type createItemRequest struct {
	Summary   string `json:"summary"`
	ProductID int64  `json:"product_id,omitempty"`
}

type updateItemRequest struct {
	Summary *string      `json:"summary"`
	Status  *todo.Status `json:"status"`
}

type deleteItemsRequest struct {
	UIDs []string `json:"uids"`
}

// moveItemRequest carries the anchor; null or absent moves to the head.
type moveItemRequest struct {
	PreviousUID *string `json:"previous_uid"`
}

// entity resolves {entity}, writing a 404 when unknown.
func (s *Server) entity(w http.ResponseWriter, r *http.Request) (*todo.Entity, bool) {
	e, err := s.platform.Entity(chi.URLParam(r, "entity"))
	if err != nil {
		writeDomainError(w, err)
		return nil, false
	}
	return e, true
}

// decodeBody decodes a JSON body. An empty body leaves v untouched.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		writeBadRequest(w, "invalid JSON body: "+err.Error())
		return false
	}
	return true
}

func (s *Server) handleListEntities(w http.ResponseWriter, _ *http.Request) {
	entities := s.platform.Entities()
	views := make([]entityView, 0, len(entities))
	for _, e := range entities {
		views = append(views, viewOf(e, false))
	}
	writeJSON(w, http.StatusOK, map[string]any{"lists": views, "count": len(views)})
}

func (s *Server) handleGetEntity(w http.ResponseWriter, r *http.Request) {
	e, ok := s.entity(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, viewOf(e, true))
}

// handleRefresh forces a poll of the list, outside the regular interval.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	e, ok := s.entity(w, r)
	if !ok {
		return
	}
	if err := e.Coordinator().Refresh(r.Context()); err != nil {
		writeError(w, http.StatusBadGateway, ErrCodeUpstream, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, itemsOf(e))
}

func (s *Server) handleListItems(w http.ResponseWriter, r *http.Request) {
	e, ok := s.entity(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, itemsOf(e))
}

func (s *Server) handleCreateItem(w http.ResponseWriter, r *http.Request) {
	e, ok := s.entity(w, r)
	if !ok {
		return
	}
	var req createItemRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := e.CreateItem(r.Context(), req.Summary, req.ProductID); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, itemsOf(e))
}

func (s *Server) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	e, ok := s.entity(w, r)
	if !ok {
		return
	}
	var req updateItemRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Summary == nil && req.Status == nil {
		writeError(w, http.StatusBadRequest, ErrCodeValidation, "summary or status is required")
		return
	}

	update := todo.ItemUpdate{UID: chi.URLParam(r, "uid"), Summary: req.Summary, Status: req.Status}
	if err := e.UpdateItem(r.Context(), update); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, itemsOf(e))
}

func (s *Server) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	e, ok := s.entity(w, r)
	if !ok {
		return
	}
	if err := e.DeleteItems(r.Context(), []string{chi.URLParam(r, "uid")}); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteItems(w http.ResponseWriter, r *http.Request) {
	e, ok := s.entity(w, r)
	if !ok {
		return
	}
	var req deleteItemsRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if len(req.UIDs) == 0 {
		writeError(w, http.StatusBadRequest, ErrCodeValidation, "uids is required")
		return
	}
	if err := e.DeleteItems(r.Context(), req.UIDs); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMoveItem(w http.ResponseWriter, r *http.Request) {
	e, ok := s.entity(w, r)
	if !ok {
		return
	}
	var req moveItemRequest
	if !decodeBody(w, r, &req) {
		return
	}

	previous := ""
	if req.PreviousUID != nil {
		previous = *req.PreviousUID
	}
	if err := e.MoveItem(r.Context(), chi.URLParam(r, "uid"), previous); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, itemsOf(e))
}

func (s *Server) handleResetOrder(w http.ResponseWriter, r *http.Request) {
	e, ok := s.entity(w, r)
	if !ok {
		return
	}
	if err := e.ResetOrder(r.Context()); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, itemsOf(e))
}

func (s *Server) handleOrdering(w http.ResponseWriter, _ *http.Request) {
	if !s.store.Loaded() {
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "ordering store not loaded")
		return
	}
	writeJSON(w, http.StatusOK, s.store.Snapshot())
}
