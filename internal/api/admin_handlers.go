package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gregfu05/api-aggregator/internal/db"
)

func (s *Server) handleListAssets(w http.ResponseWriter, r *http.Request) {
	assets, err := s.DB.ListAssets(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load assets")
		return
	}
	if assets == nil {
		assets = []db.Asset{}
	}
	writeJSON(w, http.StatusOK, assets)
}

type createAssetRequest struct {
	Symbol string `json:"symbol"`
	Type   string `json:"type"`
	Name   string `json:"name"`
}

func (s *Server) handleCreateAsset(w http.ResponseWriter, r *http.Request) {
	var req createAssetRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	symbol := strings.TrimSpace(req.Symbol)
	if symbol == "" {
		writeError(w, http.StatusBadRequest, "symbol is required")
		return
	}
	assetType, ok := parseAssetType(req.Type)
	if !ok {
		writeError(w, http.StatusBadRequest, "type must be crypto or stock")
		return
	}

	asset, err := s.DB.AddAsset(r.Context(), symbol, assetType, strings.TrimSpace(req.Name))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create asset")
		return
	}
	writeJSON(w, http.StatusCreated, asset)
}

type updateAssetRequest struct {
	Symbol  string `json:"symbol"`
	Updates struct {
		Type   *string `json:"type"`
		Name   *string `json:"name"`
		Active *bool   `json:"active"`
	} `json:"updates"`
}

func (s *Server) handleUpdateAsset(w http.ResponseWriter, r *http.Request) {
	var req updateAssetRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	symbol := strings.TrimSpace(req.Symbol)
	if symbol == "" {
		writeError(w, http.StatusBadRequest, "symbol is required")
		return
	}
	if req.Updates.Type == nil && req.Updates.Name == nil && req.Updates.Active == nil {
		writeError(w, http.StatusBadRequest, "no updates provided")
		return
	}

	update := db.AssetUpdate{Name: req.Updates.Name, Active: req.Updates.Active}
	if req.Updates.Type != nil {
		assetType, ok := parseAssetType(*req.Updates.Type)
		if !ok {
			writeError(w, http.StatusBadRequest, "type must be crypto or stock")
			return
		}
		update.Type = &assetType
	}

	asset, found, err := s.DB.UpdateAsset(r.Context(), symbol, update)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to update asset")
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "asset not found")
		return
	}
	writeJSON(w, http.StatusOK, asset)
}

type deleteAssetResponse struct {
	Deleted int64 `json:"deleted"`
}

func (s *Server) handleDeleteAsset(w http.ResponseWriter, r *http.Request) {
	symbol := strings.TrimSpace(r.URL.Query().Get("symbol"))
	if symbol == "" {
		writeError(w, http.StatusBadRequest, "symbol query parameter is required")
		return
	}

	deleted, err := s.DB.DeleteAsset(r.Context(), symbol)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to delete asset")
		return
	}
	if deleted == 0 {
		writeError(w, http.StatusNotFound, "asset not found")
		return
	}
	writeJSON(w, http.StatusOK, deleteAssetResponse{Deleted: deleted})
}

type cacheStatusResponse struct {
	Count      int64    `json:"count"`
	KeysSample []string `json:"keysSample"`
}

func (s *Server) handleCacheStatus(w http.ResponseWriter, r *http.Request) {
	sample := 5
	if rawSample := strings.TrimSpace(r.URL.Query().Get("sample")); rawSample != "" {
		parsed, err := strconv.Atoi(rawSample)
		if err != nil || parsed < 0 {
			writeError(w, http.StatusBadRequest, "sample must be a non-negative integer")
			return
		}
		sample = parsed
	}

	count, keys, err := s.Cache.Status(r.Context(), sample)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "cache store unavailable")
		return
	}
	if keys == nil {
		keys = []string{}
	}
	writeJSON(w, http.StatusOK, cacheStatusResponse{Count: count, KeysSample: keys})
}

type cacheClearRequest struct {
	All  bool     `json:"all"`
	Keys []string `json:"keys"`
}

type cacheClearResponse struct {
	Cleared int64    `json:"cleared"`
	Mode    string   `json:"mode"`
	Keys    []string `json:"keys,omitempty"`
}

func (s *Server) handleCacheClear(w http.ResponseWriter, r *http.Request) {
	var req cacheClearRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	switch {
	case req.All:
		cleared, err := s.Cache.ClearAll(r.Context())
		if err != nil {
			writeError(w, http.StatusServiceUnavailable, "cache store unavailable")
			return
		}
		writeJSON(w, http.StatusOK, cacheClearResponse{Cleared: cleared, Mode: "all"})
	case len(req.Keys) > 0:
		cleared, err := s.Cache.Clear(r.Context(), req.Keys)
		if err != nil {
			writeError(w, http.StatusServiceUnavailable, "cache store unavailable")
			return
		}
		writeJSON(w, http.StatusOK, cacheClearResponse{Cleared: cleared, Mode: "keys", Keys: req.Keys})
	default:
		writeError(w, http.StatusBadRequest, "provide 'all': true or a 'keys' list")
	}
}

type logsStatusResponse struct {
	Count  int64           `json:"count"`
	Latest []db.RequestLog `json:"latest"`
}

func (s *Server) handleLogsStatus(w http.ResponseWriter, r *http.Request) {
	count, latest, err := s.DB.RequestLogStatus(r.Context(), 3)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load request logs")
		return
	}
	if latest == nil {
		latest = []db.RequestLog{}
	}
	writeJSON(w, http.StatusOK, logsStatusResponse{Count: count, Latest: latest})
}

func parseAssetType(raw string) (db.AssetType, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case string(db.AssetTypeCrypto):
		return db.AssetTypeCrypto, true
	case string(db.AssetTypeStock):
		return db.AssetTypeStock, true
	default:
		return "", false
	}
}
