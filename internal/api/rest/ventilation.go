package rest

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/KevinKickass/HomeGateway/internal/devices"
	"github.com/KevinKickass/HomeGateway/internal/helios"
	"github.com/KevinKickass/HomeGateway/internal/presets"
	"github.com/KevinKickass/HomeGateway/internal/types"
)

// ParameterInfo describes one registry entry.
type ParameterInfo struct {
	Name     string   `json:"name"`
	Key      string   `json:"key"`
	Size     int      `json:"size"`
	Count    int      `json:"count"`
	Kind     string   `json:"kind"`
	Members  []string `json:"members,omitempty"`
	Readable bool     `json:"readable"`
	Writable bool     `json:"writable"`
}

// ParameterResponse is the result of a single read or write.
type ParameterResponse struct {
	Name       string      `json:"name"`
	Key        string      `json:"key"`
	Kind       string      `json:"kind"`
	Value      interface{} `json:"value"`
	Status     string      `json:"status"`
	StatusCode uint32      `json:"status_code"`
	UpdatedAt  *time.Time  `json:"updated_at,omitempty"`
}

// httpStatus maps an exchange status onto the HTTP response code.
func httpStatus(st helios.Status) int {
	switch st {
	case helios.Good:
		return http.StatusOK
	case helios.BadOutOfRange:
		return http.StatusBadRequest
	case helios.BadEncodingError:
		return http.StatusUnprocessableEntity
	case helios.BadDecodingError, helios.BadUnknownResponse,
		helios.BadDeviceFailure, helios.BadCommunicationError:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// lookup resolves :name and aborts with 404 for unknown parameters.
func (s *Server) lookup(c *gin.Context) (helios.Descriptor, bool) {
	name := c.Param("name")
	desc, err := s.lm.DeviceManager().Registry().Descriptor(name)
	if err != nil {
		c.JSON(http.StatusNotFound, types.NewErrorResponse("PARAMETER_404", "unknown parameter", name))
		return helios.Descriptor{}, false
	}
	return desc, true
}

// GET /api/v1/ventilation/parameters
func (s *Server) listParameters(c *gin.Context) {
	registry := s.lm.DeviceManager().Registry()

	out := make([]ParameterInfo, 0, registry.Len())
	for _, name := range registry.Names() {
		desc, _ := registry.Descriptor(name)
		info := ParameterInfo{
			Name:     desc.Name,
			Key:      desc.Key,
			Size:     desc.Size,
			Count:    desc.Count,
			Kind:     desc.Kind.String(),
			Readable: registry.IsReadable(name),
			Writable: registry.IsWritable(name),
		}
		if desc.Enum != nil {
			info.Members = desc.Enum.Members
		}
		out = append(out, info)
	}

	c.JSON(http.StatusOK, gin.H{
		"parameters": out,
		"count":      len(out),
	})
}

// GET /api/v1/ventilation/parameters/:name
func (s *Server) getParameter(c *gin.Context) {
	desc, ok := s.lookup(c)
	if !ok {
		return
	}
	manager := s.lm.DeviceManager()

	if !manager.Registry().IsReadable(desc.Name) {
		c.JSON(http.StatusForbidden, types.NewErrorResponse("PARAMETER_403", "parameter is not readable", desc.Name))
		return
	}

	if cached, _ := strconv.ParseBool(c.Query("cached")); cached {
		e, ok := manager.Cache().Get(desc.Name)
		if !ok {
			c.JSON(http.StatusNotFound, types.NewErrorResponse("PARAMETER_404", "parameter not read yet", desc.Name))
			return
		}
		resp := ParameterResponse{
			Name:       e.Name,
			Key:        e.Key,
			Kind:       desc.Kind.String(),
			Status:     e.Status.String(),
			StatusCode: uint32(e.Status),
		}
		if e.Value.IsValid() {
			resp.Value = e.Value.Interface()
			resp.UpdatedAt = &e.UpdatedAt
		}
		c.JSON(http.StatusOK, resp)
		return
	}

	v, st := manager.ReadParameter(c.Request.Context(), desc.Name)
	if st != helios.Good {
		c.JSON(httpStatus(st), types.NewStatusErrorResponse(desc.Name, st))
		return
	}

	now := time.Now()
	c.JSON(http.StatusOK, ParameterResponse{
		Name:       desc.Name,
		Key:        desc.Key,
		Kind:       desc.Kind.String(),
		Value:      v.Interface(),
		Status:     st.String(),
		StatusCode: uint32(st),
		UpdatedAt:  &now,
	})
}

// PUT /api/v1/ventilation/parameters/:name
// Body {"value": ...} or ?value=...
func (s *Server) putParameter(c *gin.Context) {
	desc, ok := s.lookup(c)
	if !ok {
		return
	}
	manager := s.lm.DeviceManager()

	if !manager.Registry().IsWritable(desc.Name) {
		c.JSON(http.StatusForbidden, types.NewErrorResponse("PARAMETER_403", "parameter is not writable", desc.Name))
		return
	}

	v, err := requestValue(c, desc)
	if err != nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse("PARAMETER_400", "invalid value", err.Error()))
		return
	}

	st := manager.WriteParameter(c.Request.Context(), desc.Name, v, "rest")
	if st != helios.Good {
		c.JSON(httpStatus(st), types.NewStatusErrorResponse(desc.Name, st))
		return
	}

	c.JSON(http.StatusOK, ParameterResponse{
		Name:       desc.Name,
		Key:        desc.Key,
		Kind:       desc.Kind.String(),
		Value:      v.Interface(),
		Status:     st.String(),
		StatusCode: uint32(st),
	})
}

func requestValue(c *gin.Context, desc helios.Descriptor) (helios.Value, error) {
	if text, ok := c.GetQuery("value"); ok {
		return helios.ParseValue(desc, text)
	}

	body, err := c.GetRawData()
	if err != nil {
		return helios.Value{}, err
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return helios.Value{}, errors.New("missing value: send {\"value\": ...} or ?value=")
	}

	var req struct {
		Value interface{} `json:"value"`
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&req); err != nil {
		return helios.Value{}, err
	}
	return helios.ValueFromJSON(desc, req.Value)
}

// GET /api/v1/ventilation/snapshot
func (s *Server) getSnapshot(c *gin.Context) {
	manager := s.lm.DeviceManager()
	entries := manager.Cache().All()
	h := manager.Health()

	c.JSON(http.StatusOK, gin.H{
		"parameters":   entries,
		"count":        len(entries),
		"last_refresh": h.LastRefresh,
		"summary":      h.Summary,
	})
}

// POST /api/v1/ventilation/snapshot/refresh
func (s *Server) refreshSnapshot(c *gin.Context) {
	summary, err := s.lm.DeviceManager().Refresh(c.Request.Context())
	if errors.Is(err, devices.ErrRefreshInProgress) {
		c.JSON(http.StatusConflict, types.NewErrorResponse("REFRESH_409", "full read already in progress", nil))
		return
	}
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, types.NewErrorResponse("REFRESH_503", "full read aborted", err.Error()))
		return
	}

	counts := make(map[string]int, len(summary))
	for st, n := range summary {
		counts[st.String()] = n
	}
	c.JSON(http.StatusOK, gin.H{
		"good":    summary.Good(),
		"failed":  summary.Failed(),
		"summary": counts,
	})
}

// GET /api/v1/ventilation/presets
func (s *Server) listPresets(c *gin.Context) {
	list, err := s.lm.Presets().List()
	if err != nil {
		c.JSON(http.StatusInternalServerError, types.NewErrorResponse("PRESET_500", "failed to list presets", err.Error()))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"presets": list,
		"count":   len(list),
	})
}

// POST /api/v1/ventilation/presets/:name/apply
func (s *Server) applyPreset(c *gin.Context) {
	name := c.Param("name")

	preset, err := s.lm.Presets().Load(name)
	switch {
	case errors.Is(err, presets.ErrNotFound):
		c.JSON(http.StatusNotFound, types.NewErrorResponse("PRESET_404", "preset not found", name))
		return
	case errors.Is(err, presets.ErrInvalidName):
		c.JSON(http.StatusBadRequest, types.NewErrorResponse("PRESET_400", "invalid preset name", name))
		return
	case err != nil:
		c.JSON(http.StatusUnprocessableEntity, types.NewErrorResponse("PRESET_422", "invalid preset", err.Error()))
		return
	}

	results, err := presets.Apply(c.Request.Context(), s.lm.DeviceManager(), preset)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, types.NewErrorResponse("PRESET_422", "preset does not match the parameter table", err.Error()))
		return
	}

	failed := 0
	for _, r := range results {
		if r.Status != helios.Good {
			failed++
		}
	}
	if failed > 0 {
		s.logger.Warn("Preset applied partially", zap.String("preset", name), zap.Int("failed", failed))
	}

	c.JSON(http.StatusOK, gin.H{
		"preset":  name,
		"results": results,
		"failed":  failed,
	})
}

// GET /api/v1/ventilation/history/:name?since=RFC3339&limit=n
func (s *Server) getHistory(c *gin.Context) {
	desc, ok := s.lookup(c)
	if !ok {
		return
	}

	var since time.Time
	if raw := c.Query("since"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, types.NewErrorResponse("HISTORY_400", "since must be RFC3339", err.Error()))
			return
		}
		since = t
	}
	limit, err := queryLimit(c, 100)
	if err != nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse("HISTORY_400", "invalid limit", err.Error()))
		return
	}

	readings, err := s.lm.DeviceManager().Store().History(c.Request.Context(), desc.Name, since, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, types.NewErrorResponse("HISTORY_500", "failed to load history", err.Error()))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"parameter": desc.Name,
		"readings":  readings,
		"count":     len(readings),
	})
}

// GET /api/v1/ventilation/writes?limit=n
func (s *Server) getWrites(c *gin.Context) {
	limit, err := queryLimit(c, 50)
	if err != nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse("WRITES_400", "invalid limit", err.Error()))
		return
	}

	writes, err := s.lm.DeviceManager().Store().RecentWrites(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, types.NewErrorResponse("WRITES_500", "failed to load writes", err.Error()))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"writes": writes,
		"count":  len(writes),
	})
}

func queryLimit(c *gin.Context, def int) (int, error) {
	raw := c.Query("limit")
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 || n > 10000 {
		return 0, errors.New("limit must be between 1 and 10000")
	}
	return n, nil
}
