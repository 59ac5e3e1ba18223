package chat

import "github.com/arbor-chat/arbor/pkg/types"

const regularPrompt = "You are a friendly assistant! Keep your responses concise and helpful."

const toolsPrompt = `You have access to tools. Use getWeather when the user asks about
weather at a location. Use createDocument for substantial writing or
code the user will want to keep, updateDocument to revise an existing
document, and requestSuggestions when the user asks for feedback on a
document. Do not update a document right after creating it; wait for
user feedback first.`

// systemPrompt composes the system message for a turn. Reasoning
// variants run without the tool registry, so they get the base prompt
// only.
func systemPrompt(model *types.Model) string {
	if model.Reasoning || !model.SupportsTools {
		return regularPrompt
	}
	return regularPrompt + "\n\n" + toolsPrompt
}

// titlePrompt instructs the title model. Mirrors the chat UI contract:
// short summary of the opening message, plain text.
const titlePrompt = `Generate a short title based on the first message a user begins a
conversation with. Ensure it is not more than 80 characters long. The
title should be a summary of the user's message. Do not use quotes or
colons.`
