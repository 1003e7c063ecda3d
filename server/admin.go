package server

import (
	"encoding/json"
	"net/http"
)

// HandleAdminConfig 提供运行期规则的读取与更新（热更新）
// GET /admin/config   返回当前规则
// POST /admin/config  以 JSON 载荷更新部分字段
func (h *Hub) HandleAdminConfig(w http.ResponseWriter, r *http.Request) {
	type cfg struct {
		EnforceAttackLimits *bool `json:"enforceAttackLimits,omitempty"`
		MaxProjectiles      *int  `json:"maxProjectiles,omitempty"`
	}

	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, h.world.Rules())
		return
	case http.MethodPost:
		var body cfg
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if body.MaxProjectiles != nil && *body.MaxProjectiles < 0 {
			http.Error(w, "maxProjectiles must not be negative", http.StatusBadRequest)
			return
		}
		rules := h.world.Rules()
		if body.EnforceAttackLimits != nil {
			rules.EnforceAttackLimits = *body.EnforceAttackLimits
		}
		if body.MaxProjectiles != nil {
			rules.MaxProjectiles = *body.MaxProjectiles
		}
		h.world.SetRules(rules)
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "rules": rules})
		Log.Infof("rules updated: enforceAttackLimits=%v maxProjectiles=%d", rules.EnforceAttackLimits, rules.MaxProjectiles)
		return
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
}

// HandleMetrics 输出会话层指标与世界概要
// GET /metrics
func (h *Hub) HandleMetrics(w http.ResponseWriter, r *http.Request) {
	payload := map[string]any{
		"sessions": h.registry.Len(),
		"world":    h.world.Summary(),
		"metrics":  h.metrics.Snapshot(),
	}
	writeJSON(w, http.StatusOK, payload)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
