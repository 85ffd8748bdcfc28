// Package ai implements the Writer/Checker contract (§4.15): assembling a
// turn envelope, invoking the configured AITransport for free-form prose
// (Writer, streamable) and strict-JSON state deltas (Checker), the way the
// teacher's OpenAICompletionExecutor/OpenAIResponsesExecutor resolve an API
// key and call the OpenAI API around a single node.
package ai

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// EnvelopeTime is the time snapshot handed to both Writer and Checker.
type EnvelopeTime struct {
	Day     int
	Slot    string
	HHMM    string
	Weekday string
}

// EnvelopeLocation is the location snapshot handed to both Writer and Checker.
type EnvelopeLocation struct {
	Zone    string
	ID      string
	Privacy string
}

// GateState is one active/inactive gate on a character card, carrying the
// acceptance/refusal text the Writer/Checker contract needs (§4.10).
type GateState struct {
	ID         string
	Active     bool
	Acceptance string
	Refusal    string
}

// PlayerCard is the player's slice of the envelope.
type PlayerCard struct {
	Meters    map[string]float64
	Inventory map[string]int
	Modifiers []string
	Clothing  string
}

// CharacterCard is one present NPC's slice of the envelope.
type CharacterCard struct {
	ID            string
	Name          string
	Personality   string
	DialogueStyle string
	Meters        map[string]float64
	Gates         []GateState
	Outfit        string
	Clothing      string
	Modifiers     []string
}

// Envelope is the full turn context given to the Writer and, alongside the
// Writer's text, to the Checker (§4.15).
type Envelope struct {
	GameID    string
	GameTitle string

	POV                string
	Tense              string
	Style              string
	ParagraphBudgetMin int
	ParagraphBudgetMax int

	Time     EnvelopeTime
	Location EnvelopeLocation

	NodeID    string
	NodeType  string
	NodeTitle string
	Beats     []string

	Player     PlayerCard
	Characters []CharacterCard

	NarrativeSummary string
	RecentNarrative  []string
	Choices          []string

	Action string

	// RequestSummary asks the Checker to also emit narrative_summary this
	// turn (§4.15 Summarization cadence).
	RequestSummary bool
}

// WriterResult is the Writer's free-form prose output plus call metadata.
type WriterResult struct {
	Text              string
	Model             string
	PromptTokens      int
	CompletionTokens  int
	Latency           time.Duration
}

// Chunk is one piece of a streamed Writer response. A stream that completes
// ends with a chunk that has Done=true and Final populated; a stream that
// fails ends with a chunk that has Done=true and Err set, with no Final.
type Chunk struct {
	Delta string
	Done  bool
	Final *WriterResult
	Err   error
}

// CheckerResult carries the Checker's raw JSON text; internal/checker owns
// decoding and validating it against the schema.
type CheckerResult struct {
	Raw              string
	Model            string
	PromptTokens     int
	CompletionTokens int
	Latency          time.Duration
}

// Transport is the AI backend contract: a Writer call (one-shot or
// streamed) and a Checker call, both driven from the same turn envelope
// (§4.15, phases 9-13).
type Transport interface {
	Writer(ctx context.Context, env Envelope) (WriterResult, error)
	WriterStream(ctx context.Context, env Envelope) (<-chan Chunk, error)
	Checker(ctx context.Context, env Envelope, writerText string) (CheckerResult, error)
}

// stateLanguageTokens are crude state-language markers the Writer has been
// told never to emit; phase 12 strips any that slip through anyway (§4.18
// phase 12 "reconcile narrative").
var stateLanguageTokens = []string{
	"{\"meters\"", "{\"flags\"", "```json", "<state>", "</state>",
}

// ReconcileNarrative strips any state-language tokens the Writer emitted
// despite being instructed not to (phase 12). It is a best-effort textual
// scrub, not a parser: the Checker, not the Writer, is the source of state
// deltas.
func ReconcileNarrative(text string) string {
	out := text
	for _, tok := range stateLanguageTokens {
		for strings.Contains(out, tok) {
			idx := strings.Index(out, tok)
			end := strings.IndexByte(out[idx:], '\n')
			if end < 0 {
				out = out[:idx]
				break
			}
			out = out[:idx] + out[idx+end+1:]
		}
	}
	return strings.TrimSpace(out)
}

func formatParagraphBudget(env Envelope) string {
	if env.ParagraphBudgetMin == 0 && env.ParagraphBudgetMax == 0 {
		return "2-4 paragraphs"
	}
	return fmt.Sprintf("%d-%d paragraphs", env.ParagraphBudgetMin, env.ParagraphBudgetMax)
}

func formatMeters(m map[string]float64) string {
	if len(m) == 0 {
		return "(none)"
	}
	var b strings.Builder
	first := true
	for k, v := range m {
		if !first {
			b.WriteString(", ")
		}
		first = false
		fmt.Fprintf(&b, "%s=%.0f", k, v)
	}
	return b.String()
}

func formatInventory(m map[string]int) string {
	if len(m) == 0 {
		return "(empty)"
	}
	var b strings.Builder
	first := true
	for k, v := range m {
		if !first {
			b.WriteString(", ")
		}
		first = false
		fmt.Fprintf(&b, "%s x%d", k, v)
	}
	return b.String()
}

func formatGates(gates []GateState) string {
	if len(gates) == 0 {
		return "(none)"
	}
	var b strings.Builder
	for i, g := range gates {
		if i > 0 {
			b.WriteString("; ")
		}
		if g.Active {
			fmt.Fprintf(&b, "%s: open (%s)", g.ID, g.Acceptance)
		} else {
			fmt.Fprintf(&b, "%s: closed (%s)", g.ID, g.Refusal)
		}
	}
	return b.String()
}

// writerSystemPrompt builds the Writer's system message: POV/tense/style,
// paragraph budget, and the "no state language" rule (§4.15 Writer).
func writerSystemPrompt(env Envelope) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are the narrator for %q. Write in %s person, %s tense.\n", env.GameTitle, env.POV, env.Tense)
	if env.Style != "" {
		fmt.Fprintf(&b, "Style: %s\n", env.Style)
	}
	fmt.Fprintf(&b, "Write %s of free-form prose narrating the outcome of the player's action.\n", formatParagraphBudget(env))
	b.WriteString("Output prose only: no JSON, no state deltas, no meta-commentary, no markdown code fences.\n")
	return b.String()
}

// writerUserPrompt renders the full turn envelope as the Writer's user
// message (§4.15 "turn envelope").
func writerUserPrompt(env Envelope) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Time: day %d, %s (%s), %s\n", env.Time.Day, env.Time.HHMM, env.Time.Slot, env.Time.Weekday)
	fmt.Fprintf(&b, "Location: %s (zone %s, privacy %s)\n", env.Location.ID, env.Location.Zone, env.Location.Privacy)
	fmt.Fprintf(&b, "Scene: %s [%s] - %s\n", env.NodeTitle, env.NodeType, strings.Join(env.Beats, " "))
	fmt.Fprintf(&b, "Player: meters {%s}, inventory {%s}, wearing %s\n",
		formatMeters(env.Player.Meters), formatInventory(env.Player.Inventory), env.Player.Clothing)
	for _, c := range env.Characters {
		fmt.Fprintf(&b, "Character %s (%s): meters {%s}, wearing %s, outfit %s, dialogue style: %s, gates: %s\n",
			c.Name, c.ID, formatMeters(c.Meters), c.Clothing, c.Outfit, c.DialogueStyle, formatGates(c.Gates))
	}
	if env.NarrativeSummary != "" {
		fmt.Fprintf(&b, "Summary so far: %s\n", env.NarrativeSummary)
	}
	if len(env.RecentNarrative) > 0 {
		fmt.Fprintf(&b, "Recent narrative:\n%s\n", strings.Join(env.RecentNarrative, "\n"))
	}
	if len(env.Choices) > 0 {
		fmt.Fprintf(&b, "Available choices: %s\n", strings.Join(env.Choices, ", "))
	}
	fmt.Fprintf(&b, "Player action: %s\n", env.Action)
	return b.String()
}

// checkerSystemPrompt builds the Checker's system message: strict-JSON-only
// instructions naming the schema fields (§4.15 Checker).
func checkerSystemPrompt(env Envelope, retry bool) string {
	var b strings.Builder
	b.WriteString("You are a strict state-change extractor. Given the turn context and the narrator's prose, ")
	b.WriteString("emit ONLY a single JSON object (no prose, no markdown fences) with these optional keys: ")
	b.WriteString(`safety{ok,violations}, meters{owner:{meter:"+N"|"-N"|"=N"}}, flags{key:value}, `)
	b.WriteString(`inventory{owner:{item:"+N"|"-N"}}, clothing{char:{slot:"intact"|"opened"|"displaced"|"removed"}}, `)
	b.WriteString(`modifiers{char:[{apply:id,duration_min:n}|{remove:id}]}, location{zone,id}, events_fired[ids], `)
	b.WriteString("node_transition (id or null), character_memories{char:text}")
	if env.RequestSummary {
		b.WriteString(", narrative_summary (a concise running summary, under ~2000 tokens)")
	}
	b.WriteString(". Omit any key with no change. Never invent deltas not supported by the prose.\n")
	if retry {
		b.WriteString("Your previous reply was not valid JSON. Emit JSON only this time, nothing else.\n")
	}
	return b.String()
}

func checkerUserPrompt(env Envelope, writerText string) string {
	return writerUserPrompt(env) + "\nNarrator's prose:\n" + writerText
}
