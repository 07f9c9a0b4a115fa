package domain

import "time"

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Route is the workflow's initial strategy selection.
type Route string

const (
	RouteWebSearch   Route = "web_search"
	RouteVectorstore Route = "vectorstore"
	RouteGenerate    Route = "generate"
)

func ParseRoute(raw string) (Route, bool) {
	switch Route(raw) {
	case RouteWebSearch, RouteVectorstore, RouteGenerate:
		return Route(raw), true
	default:
		return "", false
	}
}

// GroundingVerdict grades whether a generation is supported by its documents.
type GroundingVerdict string

const (
	VerdictGrounded    GroundingVerdict = "grounded"
	VerdictNotGrounded GroundingVerdict = "not_grounded"
)

// ConversationState is the per-session workflow record. It is mutated only by
// the workflow orchestrator, one run per session at a time.
type ConversationState struct {
	SessionID  string           `json:"session_id"`
	Messages   []Message        `json:"messages"`
	Question   string           `json:"question"`
	Route      Route            `json:"route"`
	Documents  []string         `json:"documents"`
	Generation string           `json:"generation"`
	Verdict    GroundingVerdict `json:"verdict"`
	LoopStep   int              `json:"loop_step"`
}

// ChatResult is what one workflow run reports back to the caller.
type ChatResult struct {
	Answer             string           `json:"answer"`
	Source             Route            `json:"source"`
	HallucinationGrade GroundingVerdict `json:"hallucination_grade"`
	LoopSteps          int              `json:"-"`
}
