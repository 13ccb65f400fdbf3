package http

import (
	"encoding/json"
	"net/http"

	"cashlog/internal/core"
	"cashlog/internal/services"
)

// Categories

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "malformed JSON body"})
		return
	}

	id := identity(r)
	c, err := s.master.CreateCategory(r.Context(), id.OrganizationID, id.UserID, services.CategoryInput{
		Name:        req.Name,
		Description: req.Description,
		Type:        core.TransactionType(req.Type),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.categoriesCache.DeletePrefix("categories:" + id.OrganizationID)
	writeJSON(w, http.StatusCreated, map[string]any{
		"message":  "category created",
		"category": toCategoryDTO(c),
	})
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	id := identity(r)
	key := "categories:" + id.OrganizationID

	cats, ok := s.categoriesCache.Get(key)
	if !ok {
		var err error
		cats, err = s.master.ListCategories(r.Context(), id.OrganizationID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		s.categoriesCache.Set(key, cats)
	}

	data := make([]categoryDTO, 0, len(cats))
	for i := range cats {
		data = append(data, toCategoryDTO(&cats[i]))
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": data})
}

func (s *Server) handleGetCategory(w http.ResponseWriter, r *http.Request) {
	id := identity(r)
	c, err := s.master.GetCategory(r.Context(), id.OrganizationID, r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCategoryDTO(c))
}

func (s *Server) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "malformed JSON body"})
		return
	}

	id := identity(r)
	c, err := s.master.UpdateCategory(r.Context(), id.OrganizationID, r.PathValue("id"), services.CategoryInput{
		Name:        req.Name,
		Description: req.Description,
		Type:        core.TransactionType(req.Type),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.categoriesCache.DeletePrefix("categories:" + id.OrganizationID)
	writeJSON(w, http.StatusOK, map[string]any{
		"message":  "category updated",
		"category": toCategoryDTO(c),
	})
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	id := identity(r)
	if err := s.master.DeleteCategory(r.Context(), id.OrganizationID, r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	s.categoriesCache.DeletePrefix("categories:" + id.OrganizationID)
	writeJSON(w, http.StatusOK, map[string]any{"message": "category deleted"})
}

// Related parties

func (s *Server) handleCreateRelatedParty(w http.ResponseWriter, r *http.Request) {
	var req relatedPartyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "malformed JSON body"})
		return
	}

	id := identity(r)
	p, err := s.master.CreateRelatedParty(r.Context(), id.OrganizationID, id.UserID, services.RelatedPartyInput{
		Name:        req.Name,
		Description: req.Description,
		Type:        core.PartyType(req.Type),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.partiesCache.DeletePrefix("parties:" + id.OrganizationID)
	writeJSON(w, http.StatusCreated, map[string]any{
		"message":      "related party created",
		"relatedParty": toRelatedPartyDTO(p),
	})
}

func (s *Server) handleListRelatedParties(w http.ResponseWriter, r *http.Request) {
	id := identity(r)
	key := "parties:" + id.OrganizationID

	parties, ok := s.partiesCache.Get(key)
	if !ok {
		var err error
		parties, err = s.master.ListRelatedParties(r.Context(), id.OrganizationID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		s.partiesCache.Set(key, parties)
	}

	data := make([]relatedPartyDTO, 0, len(parties))
	for i := range parties {
		data = append(data, toRelatedPartyDTO(&parties[i]))
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": data})
}

func (s *Server) handleGetRelatedParty(w http.ResponseWriter, r *http.Request) {
	id := identity(r)
	p, err := s.master.GetRelatedParty(r.Context(), id.OrganizationID, r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toRelatedPartyDTO(p))
}

func (s *Server) handleUpdateRelatedParty(w http.ResponseWriter, r *http.Request) {
	var req relatedPartyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "malformed JSON body"})
		return
	}

	id := identity(r)
	p, err := s.master.UpdateRelatedParty(r.Context(), id.OrganizationID, r.PathValue("id"), services.RelatedPartyInput{
		Name:        req.Name,
		Description: req.Description,
		Type:        core.PartyType(req.Type),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.partiesCache.DeletePrefix("parties:" + id.OrganizationID)
	writeJSON(w, http.StatusOK, map[string]any{
		"message":      "related party updated",
		"relatedParty": toRelatedPartyDTO(p),
	})
}

func (s *Server) handleDeleteRelatedParty(w http.ResponseWriter, r *http.Request) {
	id := identity(r)
	if err := s.master.DeleteRelatedParty(r.Context(), id.OrganizationID, r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	s.partiesCache.DeletePrefix("parties:" + id.OrganizationID)
	writeJSON(w, http.StatusOK, map[string]any{"message": "related party deleted"})
}

// Master items

func (s *Server) handleCreateMasterItem(w http.ResponseWriter, r *http.Request) {
	in, ok := decodeMasterItem(w, r)
	if !ok {
		return
	}

	id := identity(r)
	m, err := s.master.CreateMasterItem(r.Context(), id.OrganizationID, id.UserID, in)
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.masterItemsCache.DeletePrefix("items:" + id.OrganizationID)
	writeJSON(w, http.StatusCreated, map[string]any{
		"message":    "master item created",
		"masterItem": toMasterItemDTO(m),
	})
}

func (s *Server) handleListMasterItems(w http.ResponseWriter, r *http.Request) {
	id := identity(r)
	key := "items:" + id.OrganizationID

	items, ok := s.masterItemsCache.Get(key)
	if !ok {
		var err error
		items, err = s.master.ListMasterItems(r.Context(), id.OrganizationID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		s.masterItemsCache.Set(key, items)
	}

	data := make([]masterItemDTO, 0, len(items))
	for i := range items {
		data = append(data, toMasterItemDTO(&items[i]))
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": data})
}

func (s *Server) handleGetMasterItem(w http.ResponseWriter, r *http.Request) {
	id := identity(r)
	m, err := s.master.GetMasterItem(r.Context(), id.OrganizationID, r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toMasterItemDTO(m))
}

func (s *Server) handleUpdateMasterItem(w http.ResponseWriter, r *http.Request) {
	in, ok := decodeMasterItem(w, r)
	if !ok {
		return
	}

	id := identity(r)
	m, err := s.master.UpdateMasterItem(r.Context(), id.OrganizationID, r.PathValue("id"), in)
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.masterItemsCache.DeletePrefix("items:" + id.OrganizationID)
	writeJSON(w, http.StatusOK, map[string]any{
		"message":    "master item updated",
		"masterItem": toMasterItemDTO(m),
	})
}

func (s *Server) handleDeleteMasterItem(w http.ResponseWriter, r *http.Request) {
	id := identity(r)
	if err := s.master.DeleteMasterItem(r.Context(), id.OrganizationID, r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	s.masterItemsCache.DeletePrefix("items:" + id.OrganizationID)
	writeJSON(w, http.StatusOK, map[string]any{"message": "master item deleted"})
}

func decodeMasterItem(w http.ResponseWriter, r *http.Request) (services.MasterItemInput, bool) {
	var req masterItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "malformed JSON body"})
		return services.MasterItemInput{}, false
	}

	in := services.MasterItemInput{
		Name:        req.Name,
		Description: req.Description,
		Type:        core.TransactionType(req.Type),
	}
	if req.DefaultPrice != "" {
		price, err := core.ParseAmount(req.DefaultPrice)
		if err != nil {
			ve := core.NewValidationError()
			ve.Add("defaultPrice", "must be a non-negative decimal")
			writeError(w, r, ve.OrNil())
			return services.MasterItemInput{}, false
		}
		in.DefaultPrice = price
	}
	return in, true
}
