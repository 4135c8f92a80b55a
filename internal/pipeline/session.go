// Package pipeline drives one game session: raw player text goes in, the
// next piece of the story comes out. The session owns the arena, the event
// manager, the scheduler, the undo stack, and the pending confirmation
// state; collaborators and the narrator turn the factual engine output into
// prose. All engine mutations happen inside HandleInput, single-threaded
// per session.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrWong99/fableturn/internal/action"
	"github.com/MrWong99/fableturn/internal/event"
	"github.com/MrWong99/fableturn/internal/observe"
	"github.com/MrWong99/fableturn/internal/scenario"
	"github.com/MrWong99/fableturn/internal/snapshot"
	"github.com/MrWong99/fableturn/internal/story"
	"github.com/MrWong99/fableturn/internal/turn"
	"github.com/MrWong99/fableturn/internal/world"
	"github.com/MrWong99/fableturn/pkg/memory"
	"github.com/MrWong99/fableturn/pkg/provider/nl"
)

// Outcome is the session's end-of-game state.
type Outcome string

const (
	OutcomeOngoing Outcome = "ongoing"
	OutcomeWin     Outcome = "win"
	OutcomeLoss    Outcome = "loss"
)

// Result is one pipeline response to one player input.
type Result struct {
	// Text is the player-facing reply.
	Text string

	// GameOver reports that the session ended this turn (or earlier).
	GameOver bool

	// Outcome is the end state; OutcomeOngoing while the game runs.
	Outcome Outcome
}

// correction tracks a validation failure awaiting the player's fix.
type correction struct {
	envs      []action.Envelope
	failedIdx int
	input     string
}

// Session is one running game. Construct with [NewSession], feed player
// text through [Session.HandleInput], release with [Session.Close].
type Session struct {
	mu   sync.Mutex
	busy atomic.Bool

	id       string
	scen     *scenario.File
	arena    *world.Arena
	events   *event.Manager
	sched    *turn.Scheduler
	collab   nl.Collaborators
	narrator *story.Narrator
	undo     snapshot.Stack
	archive  memory.Archive
	embedder nl.Embedder
	metrics  *observe.Metrics
	log      *slog.Logger
	timeout  time.Duration
	statePth string

	playerUID      string
	previousText   string
	completedTurns int
	outcome        Outcome

	// pendingUndo is the 1-based snapshot awaiting yes/no; 0 means none.
	pendingUndo         int
	pendingConfirm      []action.Envelope
	pendingConfirmInput string
	pendingFix          *correction
}

// SessionOption customises a Session.
type SessionOption func(*Session)

// WithLogger sets the logger. Defaults to slog.Default.
func WithLogger(l *slog.Logger) SessionOption {
	return func(s *Session) { s.log = l }
}

// WithMetrics sets the metrics sink. Defaults to [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) SessionOption {
	return func(s *Session) { s.metrics = m }
}

// WithArchive sets the turn archive. Defaults to an in-process archive.
func WithArchive(a memory.Archive) SessionOption {
	return func(s *Session) { s.archive = a }
}

// WithEmbedder enables embedding of archived turns for similarity search.
func WithEmbedder(e nl.Embedder) SessionOption {
	return func(s *Session) { s.embedder = e }
}

// WithTimeout bounds each collaborator call. Defaults to 30s.
func WithTimeout(d time.Duration) SessionOption {
	return func(s *Session) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithSessionID tags archived turns. Defaults to a timestamp-based id.
func WithSessionID(id string) SessionOption {
	return func(s *Session) { s.id = id }
}

// WithStateFile keeps a JSON copy of the latest world state at path,
// rewritten after every turn. Write failures are logged, not fatal.
func WithStateFile(path string) SessionOption {
	return func(s *Session) { s.statePth = path }
}

// NewSession builds the arena from the scenario, seeds its events, and
// pushes the initial undo snapshot.
func NewSession(scen *scenario.File, collab nl.Collaborators, opts ...SessionOption) (*Session, error) {
	s := &Session{
		id:      fmt.Sprintf("session-%d", time.Now().UnixNano()),
		scen:    scen,
		collab:  collab,
		log:     slog.Default(),
		timeout: 30 * time.Second,
		outcome: OutcomeOngoing,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = observe.DefaultMetrics()
	}
	if s.archive == nil {
		s.archive = memory.NewInMemory()
	}

	a, err := scen.Build()
	if err != nil {
		return nil, fmt.Errorf("pipeline: build scenario: %w", err)
	}
	s.arena = a
	s.events = event.NewManager(a, s.log)
	if err := scen.SeedEvents(a, s.events, false); err != nil {
		return nil, fmt.Errorf("pipeline: seed events: %w", err)
	}
	s.sched = turn.NewScheduler(a, s.events, s.log)
	s.narrator = story.NewNarrator(collab, story.WithLogger(s.log), story.WithMetrics(s.metrics))

	player := a.Protagonist()
	if player == nil {
		return nil, fmt.Errorf("pipeline: scenario has no controllable character")
	}
	s.playerUID = player.UID

	if err := s.pushSnapshot("(start)"); err != nil {
		return nil, err
	}
	s.metrics.ActiveSessions.Add(context.Background(), 1)
	return s, nil
}

// Close releases the session's gauge slot. The arena itself needs no
// teardown.
func (s *Session) Close() {
	s.metrics.ActiveSessions.Add(context.Background(), -1)
}

// ID returns the session identifier used for archived turns.
func (s *Session) ID() string { return s.id }

// Busy reports whether a turn is currently in flight. The idle watcher
// checks this before nudging.
func (s *Session) Busy() bool { return s.busy.Load() }

// Over reports whether the game has ended.
func (s *Session) Over() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.outcome != OutcomeOngoing
}

// Greeting describes the opening situation for a fresh session.
func (s *Session) Greeting() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	player := s.player()
	ar := s.arena.Area(player.AreaUID)
	if ar == nil {
		return s.arena.World.CurrentDilemma
	}
	return fmt.Sprintf("%s You find yourself in %s. %s", s.arena.World.CurrentDilemma, ar.Name, ar.Description)
}

// HandleInput runs one raw player input through the whole turn pipeline
// and returns the reply. It never returns an error: every failure path
// degrades to player-facing text.
func (s *Session) HandleInput(ctx context.Context, input string) Result {
	s.busy.Store(true)
	defer s.busy.Store(false)
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	res := s.handle(ctx, input)
	s.metrics.RecordTurn(ctx, string(s.outcome), time.Since(start).Seconds())
	return res
}

func (s *Session) handle(ctx context.Context, input string) Result {
	if s.outcome != OutcomeOngoing {
		return Result{Text: "The story has already ended.", GameOver: true, Outcome: s.outcome}
	}
	input = strings.TrimSpace(input)
	if input == "" {
		return s.result("Silence stretches on. What do you do?")
	}

	player := s.player()
	s.arena.RefreshKnownState(player)
	if s.undo.Len() == 0 {
		if err := s.pushSnapshot("(start)"); err != nil {
			s.log.Error("initial snapshot failed", "error", err)
		}
	}

	switch {
	case s.pendingUndo > 0:
		return s.handleUndoConfirm(input)
	case s.pendingConfirm != nil:
		return s.handleRiskyConfirm(ctx, input)
	case s.pendingFix != nil:
		return s.handleCorrection(ctx, input)
	}

	label := s.precheck(ctx, input)
	s.metrics.RecordPrecheck(ctx, string(label))

	if label == nl.LabelUndo {
		return s.startUndo(ctx, input)
	}
	if label != nl.LabelClear {
		view := story.BuildWorldView(s.arena, player, s.previousText)
		extra := "Reply in at most two sentences.\n" + story.RenderView(view)
		tctx, cancel := context.WithTimeout(ctx, s.timeout)
		reply := s.narrator.Reply(tctx, input, label, extra)
		cancel()
		if reply != "" {
			s.previousText = reply
			s.archiveTurn(ctx, input, label, nil, "", reply)
			return s.result(reply)
		}
		// The responder gave up; try to parse the input after all.
	}

	envs := s.parse(ctx, input, label)
	if q := s.riskyQuestion(envs); q != "" {
		s.pendingConfirm = envs
		s.pendingConfirmInput = input
		return s.result(q)
	}
	return s.validateAndRun(ctx, input, label, envs)
}

// handleUndoConfirm resolves a pending "rewind to k?" question.
func (s *Session) handleUndoConfirm(input string) Result {
	k := s.pendingUndo
	s.pendingUndo = 0
	if !isYes(input) {
		return s.result("You stay in the present.")
	}
	return s.applyUndo(k)
}

// handleRiskyConfirm resolves a pending risky-action question. Yes replays
// the stored actions without another precheck; anything else cancels.
func (s *Session) handleRiskyConfirm(ctx context.Context, input string) Result {
	envs, original := s.pendingConfirm, s.pendingConfirmInput
	s.pendingConfirm, s.pendingConfirmInput = nil, ""
	if !isYes(input) {
		return s.result("Understood. Nothing happens.")
	}
	return s.validateAndRun(ctx, original, nl.LabelClear, envs)
}

// handleCorrection merges the player's fix into the failing action and
// re-runs the whole sequence.
func (s *Session) handleCorrection(ctx context.Context, input string) Result {
	fix := s.pendingFix
	s.pendingFix = nil
	if isCancel(input) {
		return s.result("Alright, forget that plan.")
	}

	patch := s.parse(ctx, input, nl.LabelClear)
	if len(patch) > 0 {
		mergeEnvelope(&fix.envs[fix.failedIdx], patch[0])
	}
	return s.validateAndRun(ctx, fix.input+" / "+input, nl.LabelClear, fix.envs)
}

// startUndo asks the undo selector for a target snapshot and queues the
// confirmation question.
func (s *Session) startUndo(ctx context.Context, input string) Result {
	if s.undo.Len() <= 1 {
		return s.result("There is nothing to rewind yet.")
	}
	summaries := s.undo.Summaries()

	tctx, cancel := context.WithTimeout(ctx, s.timeout)
	k, err := s.timedInt(tctx, "undo_selector", func() (int, error) {
		return s.collab.UndoSelector.SelectUndo(tctx, input, summaries)
	})
	cancel()
	if err != nil {
		s.log.Warn("undo selector failed", "error", err)
		return s.result("I could not work out which moment to return to. Try describing it differently.")
	}
	// Clamp out-of-range picks to the nearest valid snapshot.
	if k > len(summaries) {
		k = len(summaries)
	}
	if k <= 0 {
		return s.result("You decide to stay in the present.")
	}
	s.pendingUndo = k
	return s.result(fmt.Sprintf("Rewind to %s? Write yes to continue, anything else to cancel.", summaries[k-1]))
}

// applyUndo rebuilds the arena from the chosen snapshot and truncates the
// stack. On failure the current state is kept untouched.
func (s *Session) applyUndo(k int) Result {
	snap, err := s.undo.At(k)
	if err != nil {
		s.log.Error("undo lookup failed", "index", k, "error", err)
		return s.result("The past slips out of reach; you remain where you are.")
	}
	a, err := snapshot.BuildArena(snap.State)
	if err != nil {
		s.log.Error("undo apply failed", "index", k, "error", err)
		return s.result("The past slips out of reach; you remain where you are.")
	}

	s.arena = a
	s.events = event.NewManager(a, s.log)
	if err := s.scen.SeedEvents(a, s.events, true); err != nil {
		s.log.Error("event reseed after undo failed", "error", err)
	}
	s.sched = turn.NewScheduler(a, s.events, s.log)
	if err := s.undo.TruncateTo(k); err != nil {
		s.log.Error("undo truncate failed", "index", k, "error", err)
	}

	player := s.player()
	s.arena.RefreshKnownState(player)
	s.metrics.UndoOperations.Add(context.Background(), 1)

	text := "Time rewinds."
	if ar := s.arena.Area(player.AreaUID); ar != nil {
		text = fmt.Sprintf("Time rewinds. You are back in %s. %s", ar.Name, ar.Description)
	}
	s.previousText = text
	return s.result(text)
}

// validateAndRun is the back half of the pipeline: chain validation,
// execution, snapshot, narration, end-of-game check.
func (s *Session) validateAndRun(ctx context.Context, input string, label nl.Label, envs []action.Envelope) Result {
	player := s.player()

	if idx, msg := s.sched.Validator().ValidateSequence(player, envs); msg != "" {
		if len(envs) == 1 {
			s.pendingFix = &correction{envs: envs, failedIdx: idx, input: input}
			return s.result(msg + " Give me just the missing detail.")
		}
		return s.result(msg + " Please rephrase your plan.")
	}

	var lines []string
	for _, env := range envs {
		s.sched.QueueStep(player.UID, env, action.OriginPlayer)
		lines = append(lines, s.sched.RunRound()...)
		s.metrics.RecordAction(ctx, string(env.Kind), "ok")
	}
	worldResult := strings.Join(lines, "\n")

	s.arena.RefreshKnownState(player)
	if err := s.pushSnapshot(input); err != nil {
		s.log.Error("snapshot push failed", "error", err)
	}

	tctx, cancel := context.WithTimeout(ctx, s.timeout)
	text := s.narrator.Tell(tctx, s.arena, input, describeChain(envs), worldResult)
	cancel()

	s.completedTurns++
	if s.completedTurns%story.SuggestEvery == 0 && s.outcomeNow() == OutcomeOngoing {
		view := story.BuildWorldView(s.arena, player, text)
		tctx, cancel := context.WithTimeout(ctx, s.timeout)
		if hint := s.narrator.Suggest(tctx, view); hint != "" {
			text += "\n\n" + hint
		}
		cancel()
	}

	s.outcome = s.outcomeNow()
	switch s.outcome {
	case OutcomeLoss:
		text += "\n\nYour vision fades. The story ends here."
	case OutcomeWin:
		text += "\n\nAgainst all odds, you made it. The story ends well."
	}

	s.previousText = text
	s.archiveTurn(ctx, input, label, envs, worldResult, text)
	return s.result(text)
}

// outcomeNow evaluates the end-of-game conditions: a dead protagonist
// loses; reaching an exit area or healing the designated character past
// the threshold wins.
func (s *Session) outcomeNow() Outcome {
	player := s.player()
	if !player.Alive || player.Health <= 0 {
		return OutcomeLoss
	}
	if ar := s.arena.Area(player.AreaUID); ar != nil && ar.Exit {
		return OutcomeWin
	}
	if uid := s.scen.Win.HealCharacter; uid != "" {
		if c := s.arena.Character(uid); c != nil && c.Alive && c.Health >= s.scen.Win.HealThreshold {
			return OutcomeWin
		}
	}
	return OutcomeOngoing
}

// precheck classifies the input, fail-open to clear.
func (s *Session) precheck(ctx context.Context, input string) nl.Label {
	tctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	start := time.Now()
	label, err := s.collab.Precheck.Precheck(tctx, input)
	status := "ok"
	if err != nil {
		status = "error"
		s.log.Warn("precheck failed, treating input as clear", "error", err)
		label = nl.LabelClear
	}
	s.metrics.RecordCollaborator(ctx, "precheck", status, time.Since(start).Seconds())
	return nl.NormalizeLabel(string(label))
}

// parse turns the input into envelopes, fail-open to one do_nothing step.
func (s *Session) parse(ctx context.Context, input string, label nl.Label) []action.Envelope {
	player := s.player()
	view := story.BuildWorldView(s.arena, player, s.previousText)

	tctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	start := time.Now()
	records, err := s.collab.Parser.ParseIntent(tctx, input, view)
	status := "ok"
	if err != nil {
		status = "error"
		s.log.Warn("intent parse failed", "label", label, "error", err)
	}
	s.metrics.RecordCollaborator(ctx, "parser", status, time.Since(start).Seconds())

	envs := toEnvelopes(records)
	if len(envs) == 0 {
		envs = []action.Envelope{{Kind: action.KindDoNothing}}
	}
	return envs
}

// archiveTurn persists the turn, fail-soft.
func (s *Session) archiveTurn(ctx context.Context, input string, label nl.Label, envs []action.Envelope, worldResult, narration string) {
	player := s.player()
	rec := &memory.TurnRecord{
		SessionID:   s.id,
		PlayerInput: input,
		Label:       string(label),
		WorldResult: worldResult,
		Narration:   narration,
		AreaUID:     player.AreaUID,
		Timestamp:   time.Now().UTC(),
	}
	for _, env := range envs {
		rec.Actions = append(rec.Actions, string(env.Kind))
	}
	if s.embedder != nil {
		tctx, cancel := context.WithTimeout(ctx, s.timeout)
		emb, err := s.embedder.Embed(tctx, input+"\n"+narration)
		cancel()
		if err != nil {
			s.log.Warn("turn embedding failed", "error", err)
		} else {
			rec.Embedding = emb
		}
	}
	if err := s.archive.AppendTurn(ctx, rec); err != nil {
		s.log.Warn("turn archive append failed", "error", err)
	}
}

// pushSnapshot captures the arena onto the undo stack, deduplicated.
func (s *Session) pushSnapshot(input string) error {
	doc, err := snapshot.Capture(s.arena)
	if err != nil {
		return err
	}
	areaName := ""
	if ar := s.arena.Area(s.player().AreaUID); ar != nil {
		areaName = ar.Name
	}
	_, err = s.undo.Push(snapshot.Snapshot{
		State: doc,
		Meta:  snapshot.Meta{PlayerInput: input, PlayerArea: areaName},
	})
	if err != nil {
		return err
	}
	if s.statePth != "" {
		if werr := snapshot.SaveFile(s.statePth, doc); werr != nil {
			s.log.Warn("state file write failed", "path", s.statePth, "error", werr)
		}
	}
	return nil
}

// Nudge produces an unsolicited check-in for a silent player. The concrete
// variant includes a next-step suggestion. Returns "" when nothing useful
// could be generated; callers then stay silent.
func (s *Session) Nudge(ctx context.Context, concrete bool) string {
	if s.busy.Load() {
		return ""
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.outcome != OutcomeOngoing {
		return ""
	}
	view := story.BuildWorldView(s.arena, s.player(), s.previousText)
	tctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if concrete {
		return s.narrator.Suggest(tctx, view)
	}
	extra := "The player has been quiet for a while. Gently ask, in character, whether they are still there.\n" + story.RenderView(view)
	return s.narrator.Reply(tctx, "...", nl.LabelQuestion, extra)
}

func (s *Session) player() *world.Character {
	return s.arena.Character(s.playerUID)
}

func (s *Session) result(text string) Result {
	return Result{Text: text, GameOver: s.outcome != OutcomeOngoing, Outcome: s.outcome}
}

// timedInt wraps an int-returning collaborator call with latency metrics.
func (s *Session) timedInt(ctx context.Context, role string, fn func() (int, error)) (int, error) {
	start := time.Now()
	out, err := fn()
	status := "ok"
	if err != nil {
		status = "error"
	}
	s.metrics.RecordCollaborator(ctx, role, status, time.Since(start).Seconds())
	return out, err
}

func isYes(input string) bool {
	switch strings.ToLower(strings.TrimSpace(strings.Trim(strings.TrimSpace(input), ".!"))) {
	case "yes", "y", "yeah", "yep", "sure", "ok", "okay":
		return true
	}
	return false
}

func isCancel(input string) bool {
	switch strings.ToLower(strings.TrimSpace(strings.Trim(strings.TrimSpace(input), ".!"))) {
	case "no", "n", "cancel", "stop", "nevermind", "never mind", "forget it":
		return true
	}
	return false
}
