package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dmmikh/adaptive-rag-agent/internal/core/domain"
	"github.com/dmmikh/adaptive-rag-agent/internal/core/ports"
)

type workflowState string

const (
	stateRoute     workflowState = "route"
	stateRetrieve  workflowState = "retrieve"
	stateGrade     workflowState = "grade_documents"
	stateWebSearch workflowState = "web_search"
	stateGenerate  workflowState = "generate"
	stateVerify    workflowState = "verify"
	stateEnd       workflowState = "end"
)

const (
	webSearchNoResults = "No relevant information found."
	webSearchFailed    = "Web search failed."
)

// staticTransitions holds the unconditional edges of the workflow graph.
// Conditional edges live in the decision functions below so the full
// transition graph is inspectable without any collaborator.
var staticTransitions = map[workflowState]workflowState{
	stateRetrieve:  stateGrade,
	stateWebSearch: stateGenerate,
	stateGenerate:  stateVerify,
}

// routeDecision dispatches the entry strategy chosen by the router.
func routeDecision(s *domain.ConversationState) workflowState {
	switch s.Route {
	case domain.RouteWebSearch:
		return stateWebSearch
	case domain.RouteVectorstore:
		return stateRetrieve
	default:
		return stateGenerate
	}
}

// gradeDecision falls back to web search when grading left no documents.
func gradeDecision(s *domain.ConversationState) workflowState {
	if len(s.Documents) == 0 {
		return stateWebSearch
	}
	return stateGenerate
}

// verifyDecision is the loop breaker. Once the retry counter exceeds
// maxRetries the run ends regardless of the verdict; a direct-generation run
// ends unconditionally (nothing to re-verify against); otherwise an
// ungrounded answer loops back through web search.
func verifyDecision(s *domain.ConversationState, maxRetries int) workflowState {
	if s.LoopStep > maxRetries {
		return stateEnd
	}
	if s.Route == domain.RouteGenerate {
		return stateEnd
	}
	if s.Verdict == domain.VerdictGrounded {
		return stateEnd
	}
	return stateWebSearch
}

// Retriever is the retrieval coordinator contract consumed by the workflow.
type Retriever interface {
	Retrieve(ctx context.Context, question, sessionID string) ([]domain.RetrievedChunk, error)
}

type WorkflowLimits struct {
	MaxRetries     int
	StepTimeout    time.Duration
	MaxTransitions int
}

// ChatWorkflowUseCase drives the adaptive retrieval-and-generation state
// machine over a session-scoped conversation state.
type ChatWorkflowUseCase struct {
	router    ports.QuestionRouter
	retriever Retriever
	relevance ports.RelevanceGrader
	grounding ports.GroundingGrader
	generator ports.AnswerGenerator
	searcher  ports.WebSearcher
	sessions  ports.SessionStore
	limits    WorkflowLimits

	mu           sync.Mutex
	sessionLocks map[string]*sync.Mutex
}

func NewChatWorkflowUseCase(
	router ports.QuestionRouter,
	retriever Retriever,
	relevance ports.RelevanceGrader,
	grounding ports.GroundingGrader,
	generator ports.AnswerGenerator,
	searcher ports.WebSearcher,
	sessions ports.SessionStore,
	limits WorkflowLimits,
) *ChatWorkflowUseCase {
	if limits.MaxRetries <= 0 {
		limits.MaxRetries = 3
	}
	if limits.StepTimeout <= 0 {
		limits.StepTimeout = 60 * time.Second
	}
	if limits.MaxTransitions <= 0 {
		limits.MaxTransitions = 32
	}
	return &ChatWorkflowUseCase{
		router:       router,
		retriever:    retriever,
		relevance:    relevance,
		grounding:    grounding,
		generator:    generator,
		searcher:     searcher,
		sessions:     sessions,
		limits:       limits,
		sessionLocks: make(map[string]*sync.Mutex),
	}
}

func (uc *ChatWorkflowUseCase) Chat(ctx context.Context, sessionID, question string) (*domain.ChatResult, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "chat", fmt.Errorf("session_id is required"))
	}
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "chat", fmt.Errorf("question is required"))
	}

	// Conversation state is exclusively owned per session: two concurrent
	// invocations for the same session id must not interleave mutations.
	lock := uc.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	history, err := uc.sessions.History(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load session history: %w", err)
	}

	userMsg := domain.Message{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Role:      domain.RoleUser,
		Content:   question,
		CreatedAt: time.Now().UTC(),
	}
	if err := uc.sessions.AppendMessage(ctx, userMsg); err != nil {
		return nil, fmt.Errorf("append user message: %w", err)
	}

	state := &domain.ConversationState{
		SessionID: sessionID,
		Question:  question,
		Messages:  append(history, userMsg),
	}

	current := stateRoute
	for transitions := 0; current != stateEnd; transitions++ {
		if transitions >= uc.limits.MaxTransitions {
			return nil, fmt.Errorf("workflow exceeded %d transitions in state %s", uc.limits.MaxTransitions, current)
		}
		next, err := uc.step(ctx, current, state)
		if err != nil {
			return nil, fmt.Errorf("workflow step %s: %w", current, err)
		}
		slog.Debug("workflow_transition",
			"session_id", sessionID,
			"from", string(current),
			"to", string(next),
			"loop_step", state.LoopStep,
		)
		current = next
	}

	if err := uc.sessions.AppendMessage(ctx, domain.Message{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Role:      domain.RoleAssistant,
		Content:   state.Generation,
		CreatedAt: time.Now().UTC(),
	}); err != nil {
		return nil, fmt.Errorf("append assistant message: %w", err)
	}

	return &domain.ChatResult{
		Answer:             state.Generation,
		Source:             state.Route,
		HallucinationGrade: state.Verdict,
		LoopSteps:          state.LoopStep,
	}, nil
}

func (uc *ChatWorkflowUseCase) step(ctx context.Context, current workflowState, state *domain.ConversationState) (workflowState, error) {
	stepCtx, cancel := context.WithTimeout(ctx, uc.limits.StepTimeout)
	defer cancel()

	switch current {
	case stateRoute:
		route, err := uc.router.Route(stepCtx, state.Question, state.Messages)
		if err != nil {
			return "", fmt.Errorf("route question: %w", err)
		}
		state.Route = route
		state.LoopStep = 0
		state.Documents = nil
		return routeDecision(state), nil

	case stateRetrieve:
		chunks, err := uc.retriever.Retrieve(stepCtx, state.Question, state.SessionID)
		if err != nil {
			return "", err
		}
		docs := make([]string, 0, len(chunks))
		for _, chunk := range chunks {
			docs = append(docs, chunk.Text)
		}
		state.Documents = docs
		return staticTransitions[current], nil

	case stateGrade:
		kept := make([]string, 0, len(state.Documents))
		for _, doc := range state.Documents {
			relevant, err := uc.relevance.GradeRelevance(stepCtx, state.Question, doc)
			if err != nil {
				return "", fmt.Errorf("grade document: %w", err)
			}
			if relevant {
				kept = append(kept, doc)
			}
		}
		state.Documents = kept
		return gradeDecision(state), nil

	case stateWebSearch:
		// Counter increments on every visit, whether reached from ROUTE,
		// GRADE, or a failed verification.
		state.LoopStep++
		outcome := uc.searcher.Search(stepCtx, state.Question)
		state.Documents = []string{searchDocument(outcome)}
		return staticTransitions[current], nil

	case stateGenerate:
		generation, err := uc.generator.Generate(stepCtx, state.Question, state.Documents, state.Messages)
		if err != nil {
			return "", fmt.Errorf("generate answer: %w", err)
		}
		state.Generation = generation
		return staticTransitions[current], nil

	case stateVerify:
		verdict, err := uc.verify(stepCtx, state)
		if err != nil {
			return "", fmt.Errorf("verify grounding: %w", err)
		}
		state.Verdict = verdict
		return verifyDecision(state, uc.limits.MaxRetries), nil

	default:
		return "", fmt.Errorf("unknown workflow state: %s", current)
	}
}

// verify grades the generation against its documents. With nothing to
// contradict (no documents) or with the loop breaker tripped the classifier
// is skipped entirely, so termination never depends on a collaborator.
func (uc *ChatWorkflowUseCase) verify(ctx context.Context, state *domain.ConversationState) (domain.GroundingVerdict, error) {
	if state.LoopStep > uc.limits.MaxRetries {
		return domain.VerdictGrounded, nil
	}
	if len(state.Documents) == 0 {
		return domain.VerdictGrounded, nil
	}
	return uc.grounding.GradeGrounding(ctx, state.Documents, state.Generation)
}

func searchDocument(outcome domain.SearchOutcome) string {
	switch outcome.Kind {
	case domain.SearchSuccess:
		if len(outcome.Texts) == 0 {
			return webSearchNoResults
		}
		return strings.Join(outcome.Texts, "\n\n")
	case domain.SearchMalformed:
		return webSearchNoResults
	default:
		return webSearchFailed
	}
}

func (uc *ChatWorkflowUseCase) sessionLock(sessionID string) *sync.Mutex {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	lock, ok := uc.sessionLocks[sessionID]
	if !ok {
		lock = &sync.Mutex{}
		uc.sessionLocks[sessionID] = lock
	}
	return lock
}
