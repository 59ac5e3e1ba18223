// Package chat implements the turn orchestrator: it takes a validated
// chat request through authorization, history reconciliation, the
// bounded tool loop, streaming, and the final commit.
package chat

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"

	"github.com/arbor-chat/arbor/internal/auth"
	"github.com/arbor-chat/arbor/internal/chaterr"
	"github.com/arbor-chat/arbor/internal/config"
	"github.com/arbor-chat/arbor/internal/event"
	"github.com/arbor-chat/arbor/internal/logging"
	"github.com/arbor-chat/arbor/internal/provider"
	"github.com/arbor-chat/arbor/internal/relay"
	"github.com/arbor-chat/arbor/internal/resume"
	"github.com/arbor-chat/arbor/internal/store"
	"github.com/arbor-chat/arbor/internal/tool"
	"github.com/arbor-chat/arbor/pkg/types"
)

// placeholderTitle is the title a chat carries until the asynchronous
// title generator replaces it.
const placeholderTitle = "New chat"

// titleWait bounds how long the finish frame waits for the async
// title before giving up on emitting it inline. The store update still
// lands whenever the generator completes.
const titleWait = 10 * time.Second

// Orchestrator runs chat turns.
type Orchestrator struct {
	store     *store.Store
	providers *provider.Registry
	tools     *tool.Registry
	notifier  relay.Notifier
	streams   resume.Registry
	cfg       *config.Config
}

// New wires an orchestrator.
func New(st *store.Store, providers *provider.Registry, tools *tool.Registry, notifier relay.Notifier, streams resume.Registry, cfg *config.Config) *Orchestrator {
	if notifier == nil {
		notifier = relay.Nop{}
	}
	if streams == nil {
		streams = resume.Disabled{}
	}
	return &Orchestrator{
		store:     st,
		providers: providers,
		tools:     tools,
		notifier:  notifier,
		streams:   streams,
		cfg:       cfg,
	}
}

// TurnRequest is the body of a chat turn submission. Exactly one of
// Message and Messages is set: Message carries a fresh user turn,
// Messages carries the full reconciled history of a turn resumed after
// tool approval.
type TurnRequest struct {
	ID                     string           `json:"id"`
	Message                *types.Message   `json:"message,omitempty"`
	Messages               []types.Message  `json:"messages,omitempty"`
	SelectedChatModel      string           `json:"selectedChatModel,omitempty"`
	SelectedVisibilityType types.Visibility `json:"selectedVisibilityType,omitempty"`
}

// ApprovalFlow reports whether this request resumes a turn that was
// waiting on tool approval.
func (r *TurnRequest) ApprovalFlow() bool {
	return r.Message == nil && len(r.Messages) > 0
}

// Validate checks the request shape. Violations map to
// bad_request:api.
func (r *TurnRequest) Validate() *chaterr.Error {
	if r.ID == "" {
		return chaterr.Newf(chaterr.KindBadRequest, chaterr.ScopeAPI, "chat id is required")
	}
	if r.Message == nil && len(r.Messages) == 0 {
		return chaterr.Newf(chaterr.KindBadRequest, chaterr.ScopeAPI, "either message or messages must be provided")
	}
	if r.Message != nil && len(r.Messages) > 0 {
		return chaterr.Newf(chaterr.KindBadRequest, chaterr.ScopeAPI, "message and messages are mutually exclusive")
	}
	if r.Message != nil {
		if r.Message.Role != types.RoleUser {
			return chaterr.Newf(chaterr.KindBadRequest, chaterr.ScopeAPI, "message role must be user")
		}
		if len(r.Message.Parts) == 0 {
			return chaterr.Newf(chaterr.KindBadRequest, chaterr.ScopeAPI, "message has no parts")
		}
	}
	if r.SelectedVisibilityType != "" && !r.SelectedVisibilityType.Valid() {
		return chaterr.Newf(chaterr.KindBadRequest, chaterr.ScopeAPI, "unknown visibility %q", r.SelectedVisibilityType)
	}
	return nil
}

// turnState carries one turn through the loop.
type turnState struct {
	session   *auth.Session
	chat      *types.Chat
	prov      provider.Provider
	model     *types.Model
	assistant *types.Message
	emit      Emitter
}

// Run executes one chat turn, emitting frames as they are produced.
// The returned error is nil once streaming has begun unless the turn
// failed outright; mid-stream failures surface as an error frame.
func (o *Orchestrator) Run(ctx context.Context, sess *auth.Session, req *TurnRequest, emit Emitter) error {
	if sess == nil {
		return chaterr.New(chaterr.KindUnauthorized, chaterr.ScopeChat)
	}
	if ce := req.Validate(); ce != nil {
		return ce
	}

	if ce := o.checkRateLimit(ctx, sess); ce != nil {
		return ce
	}

	prov, model, err := o.resolveModel(req.SelectedChatModel)
	if err != nil {
		return chaterr.Wrap(chaterr.KindBadRequest, chaterr.ScopeAPI, err)
	}

	chat, isNew, ce := o.loadOrCreateChat(ctx, sess, req)
	if ce != nil {
		return ce
	}

	userMsg, ce := o.reconcileHistory(ctx, chat, req)
	if ce != nil {
		return ce
	}

	// From here on the turn streams: failures become error frames
	// rather than plain HTTP errors.

	var titleCh <-chan string
	if isNew {
		titleCh = o.generateTitleAsync(chat, userMsg)
	}

	emit, finishStream := o.attachStream(ctx, chat.ID, emit)
	defer finishStream()

	ts := &turnState{
		session: sess,
		chat:    chat,
		prov:    prov,
		model:   model,
		emit:    emit,
	}

	if ce := o.prepareAssistant(ctx, ts, req); ce != nil {
		emit(errorFrame(ce))
		return ce
	}

	if err := o.runLoop(ctx, ts); err != nil {
		if errors.Is(err, context.Canceled) {
			// Client went away mid-stream. Keep whatever was produced.
			o.commitAssistant(context.WithoutCancel(ctx), ts)
			return err
		}
		ce := chaterr.Classify(err)
		o.commitAssistant(ctx, ts)
		emit(errorFrame(ce))
		return ce
	}

	if err := o.saveAssistant(ctx, ts); err != nil {
		ce := chaterr.Classify(err)
		emit(errorFrame(ce))
		return ce
	}

	if titleCh != nil {
		select {
		case title := <-titleCh:
			if title != "" {
				// The companion notification below posts chat.Title.
				chat.Title = title
				emit(Frame{Type: FrameChatTitle, ChatID: chat.ID, Title: title})
			}
		case <-time.After(titleWait):
		case <-ctx.Done():
		}
	}

	emit(Frame{Type: FrameFinish})

	o.notifyCompanion(chat, isNew, userMsg, ts.assistant)
	return nil
}

func (o *Orchestrator) checkRateLimit(ctx context.Context, sess *auth.Session) *chaterr.Error {
	if !o.cfg.RateLimit.Enforce || o.cfg.RateLimit.PerDay <= 0 {
		return nil
	}
	count, err := o.store.CountRecentUserMessages(ctx, sess.UserID, time.Now().Add(-24*time.Hour))
	if err != nil {
		logging.Warn().Err(err).Str("user", sess.UserID).Msg("rate limit count failed")
		return nil
	}
	if count >= o.cfg.RateLimit.PerDay {
		return chaterr.New(chaterr.KindRateLimit, chaterr.ScopeChat)
	}
	return nil
}

func (o *Orchestrator) resolveModel(selected string) (provider.Provider, *types.Model, error) {
	if selected != "" {
		return o.providers.Resolve(selected)
	}
	return o.providers.ResolveRef(o.cfg.DefaultModel)
}

func (o *Orchestrator) loadOrCreateChat(ctx context.Context, sess *auth.Session, req *TurnRequest) (*types.Chat, bool, *chaterr.Error) {
	chat, err := o.store.GetChat(ctx, req.ID)
	if err == nil {
		if chat.UserID != sess.UserID {
			return nil, false, chaterr.New(chaterr.KindForbidden, chaterr.ScopeChat)
		}
		return chat, false, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, false, chaterr.Wrap(chaterr.KindOffline, chaterr.ScopeChat, err)
	}

	visibility := req.SelectedVisibilityType
	if visibility == "" {
		visibility = types.VisibilityPrivate
	}
	chat = &types.Chat{
		ID:         req.ID,
		UserID:     sess.UserID,
		Title:      placeholderTitle,
		Visibility: visibility,
		CreatedAt:  time.Now().UTC(),
	}
	if err := o.store.SaveChat(ctx, chat); err != nil {
		return nil, false, chaterr.Wrap(chaterr.KindOffline, chaterr.ScopeChat, err)
	}
	event.Publish(event.Event{Type: event.ChatCreated, Data: event.ChatCreatedData{Chat: chat}})
	return chat, true, nil
}

// reconcileHistory persists the incoming turn and returns the user
// message that drives it. In the approval flow the whole submitted
// history is merged by id before any model work happens, so the
// approval decisions are durable even if the turn fails later.
func (o *Orchestrator) reconcileHistory(ctx context.Context, chat *types.Chat, req *TurnRequest) (*types.Message, *chaterr.Error) {
	if req.ApprovalFlow() {
		if err := o.mergeMessages(ctx, chat.ID, req.Messages); err != nil {
			return nil, chaterr.Wrap(chaterr.KindOffline, chaterr.ScopeChat, err)
		}
		return lastUserMessage(req.Messages), nil
	}

	msg := req.Message.Clone()
	if msg.ID == "" {
		msg.ID = generateID()
	}
	msg.ChatID = chat.ID
	msg.Role = types.RoleUser
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	if err := o.store.SaveMessages(ctx, []*types.Message{msg}); err != nil {
		return nil, chaterr.Wrap(chaterr.KindOffline, chaterr.ScopeChat, err)
	}
	event.Publish(event.Event{Type: event.MessageCreated, Data: event.MessageCreatedData{Message: msg}})
	return msg, nil
}

// prepareAssistant sets up the assistant message the loop streams
// into. A fresh turn gets a new message; an approval resumption
// continues the assistant message whose tool calls were just decided,
// executing the decided calls before the model runs again.
func (o *Orchestrator) prepareAssistant(ctx context.Context, ts *turnState, req *TurnRequest) *chaterr.Error {
	if req.ApprovalFlow() {
		history, err := o.store.GetMessagesByChat(ctx, ts.chat.ID)
		if err != nil {
			return chaterr.Wrap(chaterr.KindOffline, chaterr.ScopeChat, err)
		}
		if last := lastAssistantMessage(history); last != nil {
			ts.assistant = last
			if ce := o.executeDecidedTools(ctx, ts); ce != nil {
				return ce
			}
			return nil
		}
	}

	ts.assistant = &types.Message{
		ID:        generateID(),
		ChatID:    ts.chat.ID,
		Role:      types.RoleAssistant,
		Parts:     []types.Part{},
		CreatedAt: time.Now().UTC(),
	}
	if err := o.store.SaveMessages(ctx, []*types.Message{ts.assistant}); err != nil {
		return chaterr.Wrap(chaterr.KindOffline, chaterr.ScopeChat, err)
	}
	event.Publish(event.Event{Type: event.MessageCreated, Data: event.MessageCreatedData{Message: ts.assistant}})
	return nil
}

// commitAssistant persists the assistant message after a failed turn,
// or removes its skeleton row when the turn died before producing any
// part.
func (o *Orchestrator) commitAssistant(ctx context.Context, ts *turnState) error {
	if ts.assistant == nil {
		return nil
	}
	if len(ts.assistant.Parts) == 0 {
		return o.store.DeleteMessage(ctx, ts.assistant.ChatID, ts.assistant.ID)
	}
	return o.saveAssistant(ctx, ts)
}

func (o *Orchestrator) saveAssistant(ctx context.Context, ts *turnState) error {
	if ts.assistant == nil {
		return nil
	}
	if err := o.store.SaveMessages(ctx, []*types.Message{ts.assistant}); err != nil {
		return err
	}
	event.Publish(event.Event{Type: event.MessageUpdated, Data: event.MessageUpdatedData{Message: ts.assistant}})
	return nil
}

// attachStream registers a resumable stream and tees frames into it.
// Returns the (possibly wrapped) emitter and a finalizer.
func (o *Orchestrator) attachStream(ctx context.Context, chatID string, emit Emitter) (Emitter, func()) {
	if !o.streams.Enabled() {
		return emit, func() {}
	}

	streamID := uuid.NewString()
	if err := o.store.SaveStreamID(ctx, streamID, chatID); err != nil {
		logging.Warn().Err(err).Str("chat", chatID).Msg("stream id save failed")
		return emit, func() {}
	}
	pub, err := o.streams.Register(ctx, streamID)
	if err != nil {
		logging.Warn().Err(err).Str("chat", chatID).Msg("stream register failed")
		return emit, func() {}
	}

	teed := func(f Frame) {
		emit(f)
		if err := pub.Publish(f.Encode()); err != nil {
			logging.Debug().Err(err).Str("stream", streamID).Msg("stream publish failed")
		}
	}
	finish := func() {
		_ = pub.Close()
		event.Publish(event.Event{
			Type: event.StreamFinished,
			Data: event.StreamFinishedData{ChatID: chatID, StreamID: streamID},
		})
	}
	return teed, finish
}

// notifyCompanion mirrors the finished turn to the companion service.
// Runs detached; companion failures never surface to the client.
func (o *Orchestrator) notifyCompanion(chat *types.Chat, isNew bool, userMsg, assistantMsg *types.Message) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if isNew {
			o.notifier.NavigatorInit(ctx, chat, userMsg, assistantMsg)
			return
		}
		o.notifier.NavigatorEntry(ctx, chat.ID, userMsg, assistantMsg)
		o.notifier.ThreadAppend(ctx, chat.ID, userMsg, assistantMsg)
	}()
}

func errorFrame(ce *chaterr.Error) Frame {
	return Frame{Type: FrameError, Code: ce.Code(), Message: ce.Message}
}

func lastUserMessage(msgs []types.Message) *types.Message {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == types.RoleUser {
			return &msgs[i]
		}
	}
	return nil
}

func lastAssistantMessage(msgs []*types.Message) *types.Message {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == types.RoleAssistant {
			return msgs[i]
		}
	}
	return nil
}

// generateID mints message and part ids.
func generateID() string {
	return ulid.Make().String()
}
