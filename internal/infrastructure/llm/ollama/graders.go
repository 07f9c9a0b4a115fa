package ollama

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dmmikh/adaptive-rag-agent/internal/core/domain"
)

// Router classifies a question into a retrieval strategy with the small model.
type Router struct {
	client *Client
}

func NewRouter(client *Client) *Router {
	return &Router{client: client}
}

func (r *Router) Route(ctx context.Context, question string, history []domain.Message) (domain.Route, error) {
	respText, err := r.client.generateJSON(ctx, "route", r.client.smallModel, buildRouterPrompt(question, history))
	if err != nil {
		return "", err
	}

	var result struct {
		Datasource string `json:"datasource"`
	}
	if err := json.Unmarshal([]byte(extractJSONObject(respText)), &result); err != nil {
		return "", fmt.Errorf("parse routing json: %w", err)
	}
	route, ok := domain.ParseRoute(result.Datasource)
	if !ok {
		return "", fmt.Errorf("router returned unknown datasource %q", result.Datasource)
	}
	return route, nil
}

// Expander rewrites a question into alternative retrieval queries.
type Expander struct {
	client *Client
}

func NewExpander(client *Client) *Expander {
	return &Expander{client: client}
}

func (e *Expander) Expand(ctx context.Context, question string, n int) ([]string, error) {
	respText, err := e.client.generateJSON(ctx, "expand_query", e.client.smallModel, buildExpansionPrompt(question, n))
	if err != nil {
		return nil, err
	}

	var result struct {
		Questions []string `json:"questions"`
	}
	if err := json.Unmarshal([]byte(extractJSONObject(respText)), &result); err != nil {
		return nil, fmt.Errorf("parse expansion json: %w", err)
	}
	return result.Questions, nil
}

// RelevanceGrader scores one document chunk against the question.
type RelevanceGrader struct {
	client *Client
}

func NewRelevanceGrader(client *Client) *RelevanceGrader {
	return &RelevanceGrader{client: client}
}

func (g *RelevanceGrader) GradeRelevance(ctx context.Context, question, document string) (bool, error) {
	score, err := g.client.binaryScore(ctx, "grade_relevance", buildRelevancePrompt(question, document))
	if err != nil {
		return false, err
	}
	return score, nil
}

// GroundingGrader checks the generation against the documents it cites.
type GroundingGrader struct {
	client *Client
}

func NewGroundingGrader(client *Client) *GroundingGrader {
	return &GroundingGrader{client: client}
}

func (g *GroundingGrader) GradeGrounding(ctx context.Context, documents []string, generation string) (domain.GroundingVerdict, error) {
	score, err := g.client.binaryScore(ctx, "grade_grounding", buildGroundingPrompt(documents, generation))
	if err != nil {
		return "", err
	}
	if score {
		return domain.VerdictGrounded, nil
	}
	return domain.VerdictNotGrounded, nil
}

func (c *Client) binaryScore(ctx context.Context, operation, prompt string) (bool, error) {
	respText, err := c.generateJSON(ctx, operation, c.smallModel, prompt)
	if err != nil {
		return false, err
	}

	var result struct {
		BinaryScore string `json:"binary_score"`
	}
	if err := json.Unmarshal([]byte(extractJSONObject(respText)), &result); err != nil {
		return false, fmt.Errorf("parse %s json: %w", operation, err)
	}
	switch result.BinaryScore {
	case "yes":
		return true, nil
	case "no":
		return false, nil
	default:
		return false, fmt.Errorf("%s returned unknown score %q", operation, result.BinaryScore)
	}
}

// Generator writes the final answer with the large model.
type Generator struct {
	client *Client
}

func NewGenerator(client *Client) *Generator {
	return &Generator{client: client}
}

func (g *Generator) Generate(ctx context.Context, question string, documents []string, history []domain.Message) (string, error) {
	return g.client.generateText(ctx, "generate", g.client.genModel, buildAnswerPrompt(question, documents, history))
}
