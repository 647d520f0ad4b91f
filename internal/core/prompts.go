// ABOUTME: Prompt templates for seeding, refining and answering
// ABOUTME: Builders return provider-neutral llm.Prompt values
package core

import (
	"fmt"

	"github.com/harper/datachat/internal/llm"
)

// IDontKnow is the phrase the answer instruction asks the model to use when
// the context does not contain the answer
const IDontKnow = "I don't know."

const seedTemplate = `Write a concise summary of the following:
"%s"
CONCISE SUMMARY:`

// The "return the original summary" rule is an instruction only; nothing
// checks that the model obeyed it.
const refineTemplate = `Your job is to produce a final summary.
We have provided an existing summary up to a certain point: %s
We have the opportunity to refine the existing summary (only if needed) with some more context below.
------------
%s
------------
Given the new context, refine the original summary.
If the context isn't useful, RETURN the original summary.`

const answerTemplate = `Answer the question using ONLY the following context. If you don't know the answer just say "` + IDontKnow + `" DON'T make anything up.

Context: %s`

// SeedPrompt asks for a summary of the first chunk
func SeedPrompt(text string) llm.Prompt {
	return llm.Prompt{llm.User(fmt.Sprintf(seedTemplate, text))}
}

// RefinePrompt asks to fold one more chunk into an existing summary
func RefinePrompt(existing, context string) llm.Prompt {
	return llm.Prompt{llm.User(fmt.Sprintf(refineTemplate, existing, context))}
}

// AnswerPrompt grounds a question in retrieved context
func AnswerPrompt(context, question string) llm.Prompt {
	return llm.Prompt{
		llm.System(fmt.Sprintf(answerTemplate, context)),
		llm.User(question),
	}
}
