// Package lifecycle owns the project status graph: which transitions are
// legal, what each transition triggers, and how a transition is applied.
package lifecycle

import (
	"fmt"
	"strings"

	"github.com/modelmagic/portal/internal/models"
)

// SideEffect is a named consequence of a transition, run after commit.
type SideEffect string

const (
	EffectSendPaymentEmail         SideEffect = "SEND_PAYMENT_EMAIL"
	EffectSendMagicLink            SideEffect = "SEND_MAGIC_LINK"
	EffectSendAssetsReadyEmail     SideEffect = "SEND_ASSETS_READY_EMAIL"
	EffectSendRevisionEmailToAdmin SideEffect = "SEND_REVISION_EMAIL_TO_ADMIN"
	EffectSendCompletionEmail      SideEffect = "SEND_COMPLETION_EMAIL"
	EffectCreateNotification       SideEffect = "CREATE_NOTIFICATION"
)

// Edge is an ordered (from, to) status pair.
type Edge struct {
	From models.ProjectStatus
	To   models.ProjectStatus
}

func (e Edge) String() string { return fmt.Sprintf("%s->%s", e.From, e.To) }

var statuses = []models.ProjectStatus{
	models.StatusIntakeNew,
	models.StatusAwaitingPayment,
	models.StatusPaid,
	models.StatusInQueue,
	models.StatusGenerating,
	models.StatusReviewReady,
	models.StatusCompleted,
}

var transitions = map[models.ProjectStatus][]models.ProjectStatus{
	models.StatusIntakeNew:       {models.StatusAwaitingPayment},
	models.StatusAwaitingPayment: {models.StatusPaid},
	models.StatusPaid:            {models.StatusInQueue},
	models.StatusInQueue:         {models.StatusGenerating},
	models.StatusGenerating:      {models.StatusReviewReady},
	models.StatusReviewReady:     {models.StatusCompleted, models.StatusGenerating},
	models.StatusCompleted:       {},
}

var sideEffects = map[Edge][]SideEffect{
	{models.StatusIntakeNew, models.StatusAwaitingPayment}: {EffectSendPaymentEmail, EffectCreateNotification},
	{models.StatusAwaitingPayment, models.StatusPaid}:      {EffectSendMagicLink, EffectCreateNotification},
	{models.StatusPaid, models.StatusInQueue}:              {EffectCreateNotification},
	{models.StatusInQueue, models.StatusGenerating}:        {EffectCreateNotification},
	{models.StatusGenerating, models.StatusReviewReady}:    {EffectSendAssetsReadyEmail, EffectCreateNotification},
	{models.StatusReviewReady, models.StatusGenerating}:    {EffectSendRevisionEmailToAdmin, EffectCreateNotification},
	{models.StatusReviewReady, models.StatusCompleted}:     {EffectSendCompletionEmail, EffectCreateNotification},
}

// StatusInfo is the display metadata of a status.
type StatusInfo struct {
	Status      models.ProjectStatus `json:"status"`
	Label       string               `json:"label"`
	Description string               `json:"description"`
	Color       string               `json:"color"`
	Terminal    bool                 `json:"terminal"`
}

var info = map[models.ProjectStatus]StatusInfo{
	models.StatusIntakeNew:       {Label: "New Request", Description: "Awaiting admin review", Color: "blue"},
	models.StatusAwaitingPayment: {Label: "Awaiting Payment", Description: "Payment link sent to client", Color: "yellow"},
	models.StatusPaid:            {Label: "Paid", Description: "Payment confirmed, entering queue", Color: "green"},
	models.StatusInQueue:         {Label: "In Queue", Description: "Waiting for production to start", Color: "purple"},
	models.StatusGenerating:      {Label: "Generating", Description: "AI model shots being created", Color: "indigo"},
	models.StatusReviewReady:     {Label: "Ready for Review", Description: "Assets ready for client review", Color: "orange"},
	models.StatusCompleted:       {Label: "Completed", Description: "Project delivered", Color: "green"},
}

// AllStatuses returns the lifecycle states in their natural order.
func AllStatuses() []models.ProjectStatus {
	return append([]models.ProjectStatus(nil), statuses...)
}

// AllSideEffects returns every side effect the registry can emit.
func AllSideEffects() []SideEffect {
	return []SideEffect{
		EffectSendPaymentEmail,
		EffectSendMagicLink,
		EffectSendAssetsReadyEmail,
		EffectSendRevisionEmailToAdmin,
		EffectSendCompletionEmail,
		EffectCreateNotification,
	}
}

// IsValid reports whether s is one of the lifecycle states.
func IsValid(s models.ProjectStatus) bool {
	_, ok := transitions[s]
	return ok
}

// ParseStatus converts user input into a status, case-insensitively.
func ParseStatus(s string) (models.ProjectStatus, bool) {
	st := models.ProjectStatus(strings.ToUpper(strings.TrimSpace(s)))
	return st, IsValid(st)
}

// CanTransition reports whether from -> to is an edge of the lifecycle graph.
// Unknown statuses and self-transitions are never valid.
func CanTransition(from, to models.ProjectStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ValidNextStates returns the statuses reachable from s in one step.
// The result is empty for COMPLETED and for unknown statuses.
func ValidNextStates(s models.ProjectStatus) []models.ProjectStatus {
	return append([]models.ProjectStatus{}, transitions[s]...)
}

// SideEffectsFor returns the ordered side effects of from -> to, or an empty
// list when the pair has none. The caller owns the returned slice.
func SideEffectsFor(from, to models.ProjectStatus) []SideEffect {
	return append([]SideEffect{}, sideEffects[Edge{From: from, To: to}]...)
}

// Info returns the display metadata of s. Unknown statuses get their raw
// value as label.
func Info(s models.ProjectStatus) StatusInfo {
	si, ok := info[s]
	if !ok {
		return StatusInfo{Status: s, Label: string(s), Color: "gray"}
	}
	si.Status = s
	si.Terminal = IsTerminal(s)
	return si
}

// IsTerminal reports whether s has no outgoing transitions.
func IsTerminal(s models.ProjectStatus) bool {
	next, ok := transitions[s]
	return ok && len(next) == 0
}

// CanClientEdit reports whether the owner may still edit the brief.
func CanClientEdit(s models.ProjectStatus) bool {
	return s == models.StatusIntakeNew
}

// CanRequestRevision reports whether generated assets are open for feedback.
func CanRequestRevision(s models.ProjectStatus) bool {
	return s == models.StatusReviewReady
}
