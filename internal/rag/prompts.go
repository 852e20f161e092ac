package rag

import (
	"fmt"
	"strings"
)

// Prompt templates for query expansion and answer generation. Kept as
// plain constants; the only substitutions are the query text and the
// retrieved document bodies.

const queryExpandSystemPrompt = `You are an expert in semantic search and query optimization.
Your task is to expand and improve the given query to make it more detailed and comprehensive.
Include relevant synonyms and related terms to improve retrieval.
Return only the expanded query without explanations.`

const queryExpandUserTemplate = `## Original Query:
%s

## Expanded Query (ONE question only):`

const answerSystemPrompt = `You are an assistant to generate a response for the user.
You will be provided by a set of documents associated with the user's query.
You have to generate a response based on the documents provided.
Ignore the documents that are not relevant to the user's query.
You can apologize to the user if you are not able to generate a response.
You have to generate response in the same language as the user's query.
Be polite and respectful to the user.
Be precise and concise in your response. Avoid unnecessary information.`

const documentTemplate = `## Document No: %d
### Content: %s`

const footerTemplate = `Based only on the above documents, please generate an answer for the user.
## Question:
%s

## Answer:`

// expansionPrompt formats the user-turn prompt for query expansion.
func expansionPrompt(query string) string {
	return fmt.Sprintf(queryExpandUserTemplate, query)
}

// answerPrompt assembles the full generation prompt: one numbered block
// per retrieved document (1-based), then the footer restating the
// original question.
func answerPrompt(query string, documents []string) string {
	blocks := make([]string, 0, len(documents))
	for i, text := range documents {
		blocks = append(blocks, fmt.Sprintf(documentTemplate, i+1, text))
	}
	return strings.Join(blocks, "\n") + "\n\n" + fmt.Sprintf(footerTemplate, query)
}
