package tool

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	diffmatchpatch "github.com/sergi/go-diff/diffmatchpatch"

	"github.com/arbor-chat/arbor/internal/store"
	"github.com/arbor-chat/arbor/pkg/types"
)

func newID() string {
	return strings.ToLower(ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader).String())
}

// CreateDocumentTool creates a new document artifact. It mutates user
// data, so it is gated behind approval.
type CreateDocumentTool struct {
	store *store.Store
}

func NewCreateDocumentTool(st *store.Store) *CreateDocumentTool {
	return &CreateDocumentTool{store: st}
}

func (t *CreateDocumentTool) ID() string { return "createDocument" }

func (t *CreateDocumentTool) Description() string {
	return "Create a document for writing or content creation activities"
}

func (t *CreateDocumentTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"title": {"type": "string", "description": "Title of the document"},
			"kind": {"type": "string", "description": "Kind of document", "enum": ["text", "code"]},
			"content": {"type": "string", "description": "Initial document content"}
		},
		"required": ["title"]
	}`)
}

func (t *CreateDocumentTool) Mutating() bool { return true }

func (t *CreateDocumentTool) Execute(ctx context.Context, input json.RawMessage, toolCtx *Context) (*Result, error) {
	var args struct {
		Title   string `json:"title"`
		Kind    string `json:"kind"`
		Content string `json:"content"`
	}
	if err := json.Unmarshal(input, &args); err != nil {
		return nil, fmt.Errorf("invalid createDocument input: %w", err)
	}
	if args.Title == "" {
		return nil, fmt.Errorf("createDocument: title is required")
	}
	if args.Kind == "" {
		args.Kind = "text"
	}

	doc := &types.Document{
		ID:        newID(),
		UserID:    toolCtx.UserID,
		Title:     args.Title,
		Kind:      args.Kind,
		Content:   args.Content,
		CreatedAt: time.Now().UTC(),
	}
	if err := t.store.SaveDocument(ctx, doc); err != nil {
		return nil, fmt.Errorf("save document: %w", err)
	}

	return &Result{
		Output: fmt.Sprintf("Created %s document %q.", doc.Kind, doc.Title),
		Metadata: map[string]any{
			"documentId": doc.ID,
			"title":      doc.Title,
			"kind":       doc.Kind,
		},
	}, nil
}

// UpdateDocumentTool replaces a document's content and records the
// diff against the previous revision.
type UpdateDocumentTool struct {
	store *store.Store
}

func NewUpdateDocumentTool(st *store.Store) *UpdateDocumentTool {
	return &UpdateDocumentTool{store: st}
}

func (t *UpdateDocumentTool) ID() string { return "updateDocument" }

func (t *UpdateDocumentTool) Description() string {
	return "Update a document with the given description of changes"
}

func (t *UpdateDocumentTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"id": {"type": "string", "description": "ID of the document to update"},
			"content": {"type": "string", "description": "Full updated content of the document"},
			"description": {"type": "string", "description": "Description of the change"}
		},
		"required": ["id", "content"]
	}`)
}

func (t *UpdateDocumentTool) Mutating() bool { return true }

func (t *UpdateDocumentTool) Execute(ctx context.Context, input json.RawMessage, toolCtx *Context) (*Result, error) {
	var args struct {
		ID          string `json:"id"`
		Content     string `json:"content"`
		Description string `json:"description"`
	}
	if err := json.Unmarshal(input, &args); err != nil {
		return nil, fmt.Errorf("invalid updateDocument input: %w", err)
	}

	doc, err := t.store.GetDocument(ctx, args.ID)
	if err != nil {
		return nil, fmt.Errorf("load document %s: %w", args.ID, err)
	}
	if doc.UserID != toolCtx.UserID {
		return nil, fmt.Errorf("document %s does not belong to the current user", args.ID)
	}

	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(doc.Content, args.Content, false)
	patch := dmp.PatchToText(dmp.PatchMake(doc.Content, diffs))

	doc.Content = args.Content
	if err := t.store.SaveDocument(ctx, doc); err != nil {
		return nil, fmt.Errorf("save document: %w", err)
	}

	return &Result{
		Output: fmt.Sprintf("Updated document %q.", doc.Title),
		Metadata: map[string]any{
			"documentId":  doc.ID,
			"description": args.Description,
			"diff":        patch,
		},
	}, nil
}

// RequestSuggestionsTool asks the drafting model for improvement
// suggestions on a document and stores them alongside it.
type RequestSuggestionsTool struct {
	store   *store.Store
	drafter Drafter
}

func NewRequestSuggestionsTool(st *store.Store, drafter Drafter) *RequestSuggestionsTool {
	return &RequestSuggestionsTool{store: st, drafter: drafter}
}

func (t *RequestSuggestionsTool) ID() string { return "requestSuggestions" }

func (t *RequestSuggestionsTool) Description() string {
	return "Request suggestions for improving a document"
}

func (t *RequestSuggestionsTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"documentId": {"type": "string", "description": "ID of the document to request suggestions for"}
		},
		"required": ["documentId"]
	}`)
}

func (t *RequestSuggestionsTool) Mutating() bool { return true }

const suggestionsSystemPrompt = "You are a writing assistant. Given a document, suggest improvements. " +
	"Respond with a JSON array of objects, each with originalText, suggestedText and description fields. " +
	"Suggest at most five changes and respond with the JSON array only."

func (t *RequestSuggestionsTool) Execute(ctx context.Context, input json.RawMessage, toolCtx *Context) (*Result, error) {
	var args struct {
		DocumentID string `json:"documentId"`
	}
	if err := json.Unmarshal(input, &args); err != nil {
		return nil, fmt.Errorf("invalid requestSuggestions input: %w", err)
	}
	if t.drafter == nil {
		return nil, fmt.Errorf("no drafting model configured")
	}

	doc, err := t.store.GetDocument(ctx, args.DocumentID)
	if err != nil {
		return nil, fmt.Errorf("load document %s: %w", args.DocumentID, err)
	}
	if doc.UserID != toolCtx.UserID {
		return nil, fmt.Errorf("document %s does not belong to the current user", args.DocumentID)
	}

	raw, err := t.drafter.Draft(ctx, suggestionsSystemPrompt, doc.Content)
	if err != nil {
		return nil, fmt.Errorf("draft suggestions: %w", err)
	}

	var drafted []struct {
		OriginalText  string `json:"originalText"`
		SuggestedText string `json:"suggestedText"`
		Description   string `json:"description"`
	}
	if err := json.Unmarshal([]byte(extractJSONArray(raw)), &drafted); err != nil {
		return nil, fmt.Errorf("parse drafted suggestions: %w", err)
	}

	now := time.Now().UTC()
	for _, d := range drafted {
		s := &types.Suggestion{
			ID:            newID(),
			DocumentID:    doc.ID,
			OriginalText:  d.OriginalText,
			SuggestedText: d.SuggestedText,
			Description:   d.Description,
			CreatedAt:     now,
		}
		if err := t.store.SaveSuggestion(ctx, s); err != nil {
			return nil, fmt.Errorf("save suggestion: %w", err)
		}
	}

	return &Result{
		Output: fmt.Sprintf("Added %d suggestions to document %q.", len(drafted), doc.Title),
		Metadata: map[string]any{
			"documentId": doc.ID,
			"count":      len(drafted),
		},
	}, nil
}

// extractJSONArray trims any prose the model wrapped around the JSON
// array it was asked for.
func extractJSONArray(s string) string {
	start := strings.Index(s, "[")
	end := strings.LastIndex(s, "]")
	if start < 0 || end < start {
		return s
	}
	return s[start : end+1]
}
