package ollama

import (
	"fmt"
	"strings"

	"github.com/dmmikh/adaptive-rag-agent/internal/core/domain"
)

const emptyContextPlaceholder = "No external context provided."

func buildRouterPrompt(question string, history []domain.Message) string {
	return fmt.Sprintf(`You route user queries to the right data source.
Choose one of three paths based on the user's intent:

1. "vectorstore": questions about the content of uploaded documents or domain knowledge provided by the user.
2. "web_search": ONLY for real-world facts, current events, or information clearly absent from the uploaded documents and the conversation (weather, stock prices, latest news).
3. "generate": greetings, questions about this conversation itself, and general creative or logic tasks needing no external context.

If the user asks about previous messages or the conversation flow, you MUST choose "generate".

Return strict JSON: {"datasource": "web_search" | "vectorstore" | "generate"}. No markdown, no extra keys.

%sQuestion:
%s`, historySection(history), question)
}

func buildExpansionPrompt(question string, n int) string {
	return fmt.Sprintf(`You are a retrieval optimizer. Generate %d search queries to find the answer in a vector database.
Focus on:
1. Identifying key entities and technical terms.
2. Rephrasing the question as a statement that might appear in a document.
3. Breaking down complex questions into sub-parts.

Return strict JSON: {"questions": ["...", "..."]}. No markdown, no extra keys.

Question:
%s`, n, question)
}

func buildRelevancePrompt(question, document string) string {
	return fmt.Sprintf(`You are a grader. Decide if a document chunk is USEFUL for answering the question.
- If the document contains any information, facts, or context that could contribute to the answer, grade "yes".
- Do not be overly strict. Semantic overlap counts as "yes".
- Grade "no" only if the document is completely irrelevant to the topic.

Return strict JSON: {"binary_score": "yes" | "no"}.

Retrieved document:
%s

User question:
%s`, document, question)
}

func buildGroundingPrompt(documents []string, generation string) string {
	return fmt.Sprintf(`You are a fact-checker. Verify whether the generated answer is supported by the set of facts.
- Grade "yes" if the answer's main claims are present in or logically follow from the facts.
- Grade "no" only if the answer contradicts the facts or invents information not present in them.
Ignore stylistic differences; focus on factual grounding.

Return strict JSON: {"binary_score": "yes" | "no"}.

Set of facts:
%s

Generated answer:
%s`, strings.Join(documents, "\n\n"), generation)
}

func buildAnswerPrompt(question string, documents []string, history []domain.Message) string {
	context := emptyContextPlaceholder
	if len(documents) > 0 {
		context = strings.Join(documents, "\n\n")
	}

	return fmt.Sprintf(`You are a helpful AI assistant. Answer the user's question using the provided context.

GUIDELINES:
1. If the context contains the answer, prioritize it and cite specific details.
2. If the context is insufficient but related, use it as a base and supplement with your knowledge, stating clearly what comes from the context.
3. If the context is truly empty or irrelevant, answer from your own knowledge.
4. Keep a professional and concise tone.

%sContext:
%s

Question: %s`, historySection(history), context, question)
}

func historySection(history []domain.Message) string {
	if len(history) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("Conversation so far:\n")
	for _, msg := range history {
		b.WriteString(string(msg.Role))
		b.WriteString(": ")
		b.WriteString(msg.Content)
		b.WriteString("\n")
	}
	b.WriteString("\n")
	return b.String()
}
