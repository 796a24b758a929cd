package handlers

import (
	"net/http"

	"github.com/modelmagic/portal/internal/lifecycle"
	"github.com/modelmagic/portal/internal/models"
)

type statusNode struct {
	lifecycle.StatusInfo
	Next []models.ProjectStatus `json:"next"`
}

type statusEdge struct {
	From        models.ProjectStatus   `json:"from"`
	To          models.ProjectStatus   `json:"to"`
	SideEffects []lifecycle.SideEffect `json:"side_effects"`
}

// Statuses publishes the status registry: display metadata for every state
// and the legal transitions with their side effects.
func Statuses(w http.ResponseWriter, r *http.Request) {
	var nodes []statusNode
	var edges []statusEdge
	for _, s := range lifecycle.AllStatuses() {
		next := lifecycle.ValidNextStates(s)
		nodes = append(nodes, statusNode{StatusInfo: lifecycle.Info(s), Next: next})
		for _, to := range next {
			edges = append(edges, statusEdge{From: s, To: to, SideEffects: lifecycle.SideEffectsFor(s, to)})
		}
	}
	writeData(w, r, http.StatusOK, map[string]any{"statuses": nodes, "transitions": edges})
}
