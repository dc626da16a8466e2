package composer

import (
	"fmt"

	"github.com/pkuwise/pkuwise/internal/llm"
)

// systemTemplate is the fixed-shape grounding instruction. It encodes the
// answer policy as text: prefer the medical context and cite its source,
// disclaim when falling back to general knowledge, always personalize from
// the user details. The two context blocks are embedded verbatim.
const systemTemplate = `You are PKU Wise, an expert AI assistant for Phenylketonuria (PKU).
Your primary goal is to answer using the provided medical context.
If you use the context, cite the source.
If the answer is not in the context, use your general knowledge and add a disclaimer that the answer is not based on the reference material.
Always personalize your response using the user's details.

--- MEDICAL CONTEXT ---
%s
-----------------------
--- USER DETAILS ---
%s
------------------`

// Compose builds the ordered message sequence for the completion call:
// the system instruction first, the caller-supplied history unmodified, and
// the new user query last. Identical inputs always produce an identical
// sequence, and history is copied, never mutated.
func Compose(ctx Context, history []llm.Message, query string) []llm.Message {
	messages := make([]llm.Message, 0, len(history)+2)
	messages = append(messages, llm.Message{
		Role:    llm.RoleSystem,
		Content: fmt.Sprintf(systemTemplate, ctx.Documents, ctx.Profile),
	})
	messages = append(messages, history...)
	messages = append(messages, llm.Message{
		Role:    llm.RoleUser,
		Content: query,
	})
	return messages
}
