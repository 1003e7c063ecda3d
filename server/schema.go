package server

import (
	"net/http"

	"github.com/invopop/jsonschema"
)

// ActionSchemas 入站信封与各动作载荷的 JSON Schema
func ActionSchemas() map[string]*jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: true,
		ExpandedStruct:            true,
	}

	envelope := reflector.Reflect(new(ActionEnvelope))
	envelope.Title = "Action envelope"
	envelope.Description = "Client to server message; data depends on action"

	move := reflector.Reflect(new(MovePayload))
	move.Title = "move data"

	attack := reflector.Reflect(new(AttackPayload))
	attack.Title = "attack data"
	attack.Description = "direction is -1 (left) or 1 (right)"

	return map[string]*jsonschema.Schema{
		"envelope":   envelope,
		ActionMove:   move,
		ActionAttack: attack,
	}
}

// HandleSchema GET /schema 输出协议 Schema，便于客户端校验
func HandleSchema(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, ActionSchemas())
}
