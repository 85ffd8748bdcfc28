package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/letser/plotplay-sub001/internal/choices"
	"github.com/letser/plotplay-sub001/internal/domain"
	"github.com/letser/plotplay-sub001/internal/infrastructure/storage"
	"github.com/letser/plotplay-sub001/internal/orchestrator"
	"github.com/letser/plotplay-sub001/internal/summary"
)

// handleStartSession creates a new session for the requested game and
// returns its first choice list.
func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	var req StartSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, s.logger, http.StatusBadRequest, "malformed request body")
		return
	}

	rt, ok := s.games[req.GameID]
	if !ok {
		respondError(w, s.logger, http.StatusNotFound, fmt.Sprintf("unknown game_id %q", req.GameID))
		return
	}

	state := domain.NewGameState(rt.Game(), time.Now().UnixNano())
	sess, err := s.store.CreateSession(r.Context(), req.GameID, state)
	if err != nil {
		s.logger.Error("failed to create session", "error", err)
		respondError(w, s.logger, http.StatusInternalServerError, "failed to create session")
		return
	}

	resp := StartSessionResponse{
		SessionID: sess.ID.String(),
		State:     s.buildInitialSummary(rt, state),
		Choices:   s.buildInitialChoices(rt, state),
	}
	if s.tokens != nil {
		token, err := s.tokens.GenerateToken(domain.PlayerID, 24*time.Hour)
		if err != nil {
			s.logger.Error("failed to mint session token", "error", err)
		} else {
			resp.Token = token
		}
	}

	respondJSON(w, s.logger, http.StatusCreated, resp)
}

// buildInitialSummary and buildInitialChoices give POST /session/start a
// state_summary/choices pair without running a turn, by asking the
// Runtime for phase-21/20 equivalents against the freshly built state.
func (s *Server) buildInitialSummary(rt *orchestrator.Runtime, state *domain.GameState) summary.State {
	present := rt.Present(state)
	return rt.Summary(state, present)
}

func (s *Server) buildInitialChoices(rt *orchestrator.Runtime, state *domain.GameState) []choices.Choice {
	present := rt.Present(state)
	return rt.Choices(state, present)
}

// loadSession resolves {id} from the path into a storage.Session and the
// Runtime that serves its game, writing an error response and returning
// ok=false on any failure.
func (s *Server) loadSession(w http.ResponseWriter, r *http.Request) (storage.Session, *orchestrator.Runtime, bool) {
	idStr := r.PathValue("id")
	id, err := uuid.Parse(idStr)
	if err != nil {
		respondError(w, s.logger, http.StatusBadRequest, "invalid session id")
		return storage.Session{}, nil, false
	}

	sess, err := s.store.GetSession(r.Context(), id)
	if err != nil {
		if err == storage.ErrSessionNotFound {
			respondError(w, s.logger, http.StatusNotFound, "session not found")
		} else {
			s.logger.Error("failed to load session", "error", err)
			respondError(w, s.logger, http.StatusInternalServerError, "failed to load session")
		}
		return storage.Session{}, nil, false
	}

	rt, ok := s.games[sess.GameID]
	if !ok {
		respondError(w, s.logger, http.StatusInternalServerError, "session references an unloaded game")
		return storage.Session{}, nil, false
	}
	return sess, rt, true
}

func decodeAction(r *http.Request) (domain.Action, error) {
	var req ActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return domain.Action{}, fmt.Errorf("malformed request body: %w", err)
	}

	kind := domain.ActionKind(req.Kind)
	switch kind {
	case domain.ActionSay, domain.ActionDo, domain.ActionChoice, domain.ActionUse, domain.ActionGive,
		domain.ActionMove, domain.ActionGoto, domain.ActionTravel, domain.ActionPurchase, domain.ActionSell:
	default:
		return domain.Action{}, fmt.Errorf("unknown action_type %q", req.Kind)
	}

	return domain.Action{
		Kind:           kind,
		Text:           req.Text,
		ChoiceID:       req.ChoiceID,
		ItemID:         req.ItemID,
		Target:         req.Target,
		Direction:      req.Direction,
		Location:       req.Location,
		WithCharacters: req.WithCharacters,
		Price:          req.Price,
		SkipAI:         req.SkipAI,
	}, nil
}

// handleAction runs one turn synchronously and returns the full result.
func (s *Server) handleAction(w http.ResponseWriter, r *http.Request) {
	sess, rt, ok := s.loadSession(w, r)
	if !ok {
		return
	}

	action, err := decodeAction(r)
	if err != nil {
		respondError(w, s.logger, http.StatusBadRequest, err.Error())
		return
	}

	result, err := rt.RunTurn(r.Context(), sess.State, action)
	if err != nil {
		respondError(w, s.logger, http.StatusConflict, err.Error())
		return
	}

	if err := s.store.SaveSession(r.Context(), sess); err != nil {
		s.logger.Error("failed to persist session after turn", "session_id", sess.ID, "error", err)
	}

	respondJSON(w, s.logger, http.StatusOK, TurnResponse{
		Narrative:     result.Narrative,
		State:         result.State,
		Choices:       result.Choices,
		ActionSummary: result.State.ActionSummary,
		EventsFired:   result.EventsFired,
		Milestones:    result.Milestones,
		Ended:         result.Ended,
		AIFailed:      result.AIFailed,
	})
}

// handleActionStream runs one turn and streams its phase events as
// newline-delimited JSON (the teacher's handlers write one encoded value
// per call and flush; this does the same with a Flusher instead of the
// teacher's SSE data: framing, since PlotPlay's frontend already speaks
// the same typed-event vocabulary as the websocket transport).
func (s *Server) handleActionStream(w http.ResponseWriter, r *http.Request) {
	sess, rt, ok := s.loadSession(w, r)
	if !ok {
		return
	}

	action, err := decodeAction(r)
	if err != nil {
		respondError(w, s.logger, http.StatusBadRequest, err.Error())
		return
	}

	flusher, canFlush := w.(http.Flusher)
	w.Header().Set("Content-Type", "application/x-ndjson")
	w.WriteHeader(http.StatusOK)

	enc := json.NewEncoder(w)
	for se := range rt.RunTurnStream(r.Context(), sess.State, action) {
		env := streamEnvelope{Type: string(se.Kind), Text: se.Text}
		if se.Err != nil {
			env.Type = "error"
			env.Error = se.Err.Error()
		} else if se.Kind == orchestrator.EventComplete && se.Result != nil {
			env.Narrative = se.Result.Narrative
			env.State = &se.Result.State
			env.Choices = se.Result.Choices
			env.Events = se.Result.EventsFired
			env.Milestone = se.Result.Milestones
			env.Ended = se.Result.Ended
			if se.Result.AIFailed {
				env.Error = se.Result.AIFailureReason
			}
		}

		if err := enc.Encode(env); err != nil {
			s.logger.Error("failed to encode stream event", "error", err)
			return
		}
		if canFlush {
			flusher.Flush()
		}

		if se.Kind == orchestrator.EventComplete {
			if err := s.store.SaveSession(r.Context(), sess); err != nil {
				s.logger.Error("failed to persist session after turn", "session_id", sess.ID, "error", err)
			}
		}
	}
}

// handleCharacters lists the player and every present/absent NPC (§6).
func (s *Server) handleCharacters(w http.ResponseWriter, r *http.Request) {
	sess, rt, ok := s.loadSession(w, r)
	if !ok {
		return
	}

	present := presentSet(rt.Present(sess.State))
	resp := CharactersResponse{Player: PlayerView{ID: domain.PlayerID, Name: "You"}}

	for _, id := range rt.Game().CharacterOrder() {
		def, ok := rt.Game().Character(id)
		if !ok || def.IsPlayer {
			continue
		}
		entry := CharacterListEntry{ID: id, Name: def.Name, Present: present[id]}
		if cs := sess.State.Character(id); cs.LocationPin != "" {
			entry.Location = cs.LocationPin
		}
		resp.Characters = append(resp.Characters, entry)
	}

	respondJSON(w, s.logger, http.StatusOK, resp)
}

// handleCharacter returns a single character's full view, filtering
// memories by viewer identity: the authenticated player sees every memory
// line; anyone else only sees the ones the Checker tagged Visible (§4.15).
func (s *Server) handleCharacter(w http.ResponseWriter, r *http.Request) {
	sess, rt, ok := s.loadSession(w, r)
	if !ok {
		return
	}

	charID := r.PathValue("char_id")
	def, found := rt.Game().Character(charID)
	if !found {
		respondError(w, s.logger, http.StatusNotFound, "unknown character id")
		return
	}

	viewer := playerIDFromContext(r.Context())
	cs := sess.State.Character(charID)
	present := presentSet(rt.Present(sess.State))

	view := CharacterView{
		ID:            charID,
		Name:          def.Name,
		Age:           def.Age,
		Gender:        def.Gender,
		Pronouns:      def.Pronouns,
		Personality:   def.Personality,
		Appearance:    def.Appearance,
		DialogueStyle: def.DialogueStyle,
		Meters:        cs.Meters,
		Modifiers:     cs.Modifiers,
		Clothing:      rt.Clothing(sess.State, charID),
		Present:       present[charID],
		Location:      cs.LocationPin,
	}

	for _, g := range def.Gates {
		allowed := rt.GateStatus(sess.State, charID)[g.ID]
		view.Gates = append(view.Gates, GateView{
			ID: g.ID, Allow: allowed, Condition: g.When, Acceptance: g.Acceptance, Refusal: g.Refusal,
		})
	}

	for _, m := range sess.State.MemoryLog {
		if m.Char != charID {
			continue
		}
		if viewer != domain.PlayerID && !m.Visible {
			continue
		}
		view.Memories = append(view.Memories, MemoryView{Turn: m.Turn, Text: m.Text})
	}

	respondJSON(w, s.logger, http.StatusOK, view)
}

// handleStoryEvents returns the session's memory log grouped by turn, so
// the same line recorded for multiple characters in one turn collapses
// into one entry with several character ids (§6).
func (s *Server) handleStoryEvents(w http.ResponseWriter, r *http.Request) {
	sess, _, ok := s.loadSession(w, r)
	if !ok {
		return
	}

	type key struct {
		turn int
		text string
	}
	order := make([]key, 0, len(sess.State.MemoryLog))
	grouped := map[key]*StoryEventView{}

	for _, m := range sess.State.MemoryLog {
		if !m.Visible {
			continue
		}
		k := key{turn: m.Turn, text: m.Text}
		ev, ok := grouped[k]
		if !ok {
			ev = &StoryEventView{Text: m.Text, Day: m.Day}
			grouped[k] = ev
			order = append(order, k)
		}
		ev.Characters = append(ev.Characters, m.Char)
	}

	resp := StoryEventsResponse{Memories: make([]StoryEventView, 0, len(order))}
	for _, k := range order {
		resp.Memories = append(resp.Memories, *grouped[k])
	}

	respondJSON(w, s.logger, http.StatusOK, resp)
}

func presentSet(ids []string) map[string]bool {
	out := make(map[string]bool, len(ids))
	for _, id := range ids {
		out[id] = true
	}
	return out
}
