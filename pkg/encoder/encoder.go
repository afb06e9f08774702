// Package encoder implements spec.md §4.3: turning raw text into graph
// mutations against a brain — neurons, synapses, a fiber, a maturation
// record, conflict detection and SimHash dedup. Mirrors the teacher's
// AddNeuron dedup-then-create shape, generalized from a single flat
// neuron set into the neuron/synapse/fiber triad.
package encoder

import (
	"sort"
	"strings"
	"time"

	"github.com/lam-tt/neural-memory/pkg/core"
	"github.com/lam-tt/neural-memory/pkg/extraction"
	"github.com/lam-tt/neural-memory/pkg/lifecycle"
	"github.com/lam-tt/neural-memory/pkg/sentiment"
)

// Request is the input to Encode (spec.md §4.3's EncodeRequest).
type Request struct {
	Content    string
	Tags       []string // agent-supplied tags, distinct from auto-extracted tags
	MemoryType string   // fact|decision|todo|context|instruction|reference
	Metadata   map[string]any
	Lang       sentiment.Language
	Now        time.Time
}

// Result is spec.md §4.3's EncodeResult.
type Result struct {
	FiberID         core.FiberID
	NeuronsCreated  int
	SynapsesCreated int
	Reused          bool // true when an existing near-duplicate fiber was returned instead
	Disputed        bool
}

// fiberSalienceByType implements step 7's type-based salience default.
var fiberSalienceByType = map[string]float64{
	"decision": 0.9,
	"todo":     0.5,
	"context":  0.3,
}

const defaultFiberSalience = 0.5

// neuronDecayRateByType implements step 9's per-type neuron decay rate.
var neuronDecayRateByType = map[string]float64{
	"fact":        0.02,
	"decision":    0.02,
	"todo":        0.15,
	"context":     0.10,
	"instruction": 0.02,
	"reference":   0.05,
}

const defaultNeuronDecayRate = 0.02

// fiberExpirationByType implements step 9's per-type expiration window;
// a missing entry means "never expires".
var fiberExpirationByType = map[string]time.Duration{
	"todo":    30 * 24 * time.Hour,
	"context": 7 * 24 * time.Hour,
}

// Encoder mutates a single brain. Callers hold whatever higher-level
// write-serialization discipline the store's single-writer queue
// requires; Encoder itself only takes the brain's lock.
type Encoder struct {
	brain *core.Brain
}

func New(brain *core.Brain) *Encoder {
	return &Encoder{brain: brain}
}

// span is an extracted fragment on its way to becoming a neuron.
type span struct {
	text string
	typ  core.NeuronType
}

// Encode runs the full 10-step algorithm and returns the resulting
// fiber and counts of newly created entities.
func (e *Encoder) Encode(req Request) (Result, error) {
	content := strings.TrimSpace(req.Content)
	if content == "" {
		return Result{}, core.ErrInvalidContent
	}
	now := req.Now
	if now.IsZero() {
		now = time.Now()
	}
	lang := req.Lang
	if lang == "" {
		lang = sentiment.English
	}

	e.brain.Lock()
	defer e.brain.Unlock()

	// Step 1: tokenize & extract.
	entities := dedupStrings(append(extraction.CapitalizedSpans(content), extraction.QuotedSpans(content)...))
	keywords := extraction.Keywords(content)
	temporalPhrases := extraction.ExtractTemporalPhrases(content)
	relations := extraction.ExtractRelations(content)
	sentimentResult := sentiment.Extract(lang, content)

	// Step 2: dedup via SimHash against existing fibers.
	contentHash := core.SimHash64(content)
	if reused, ok := e.findReusableFiber(contentHash, content); ok {
		if mat, f := e.brain.Maturations[reused], e.brain.Fibers[reused]; mat != nil && f != nil {
			lifecycle.Reinforce(mat, f.CreatedAt, now)
		}
		return Result{FiberID: reused, Reused: true}, nil
	}

	// Step 3: create/reuse neurons for every extracted span.
	spans := buildSpans(entities, keywords, temporalPhrases)
	neuronsCreated := 0
	neuronByText := make(map[string]*core.Neuron, len(spans))
	for _, sp := range spans {
		n, created := e.getOrCreateNeuron(sp.typ, sp.text, req.MemoryType, now)
		neuronByText[normalizeKey(sp.text)] = n
		if created {
			neuronsCreated++
		}
	}
	if len(neuronByText) == 0 {
		// Nothing extractable; fall back to a single CONCEPT neuron
		// holding the whole content so the fiber is never empty.
		n, created := e.getOrCreateNeuron(core.NeuronConcept, content, req.MemoryType, now)
		neuronByText[normalizeKey(content)] = n
		if created {
			neuronsCreated++
		}
	}
	for _, n := range neuronByText {
		n.SetContentHash(core.SimHash64(n.Content))
	}

	// Anchor = span with the highest anchor base weight (temporal, then
	// entity, action, concept), else any.
	anchor := pickAnchor(neuronByText, spans)

	synapsesCreated := 0

	// Step 4: CO_OCCURS/INVOLVES synapses from anchor to every other neuron.
	for _, n := range neuronByText {
		if n.ID == anchor.ID {
			continue
		}
		typ := core.SynCoOccurs
		weight := 0.5
		if anchor.Type == core.NeuronAction && n.Type == core.NeuronEntity {
			typ = core.SynInvolves
			weight = 0.6
		}
		if e.addSynapse(anchor.ID, n.ID, typ, weight, core.DirUni, now) {
			synapsesCreated++
		}
	}

	// Relation candidates → typed synapses, weight = 0.3 + 0.4*confidence.
	for _, rc := range relations {
		src, srcOK := neuronByText[normalizeKey(rc.SourceSpan)]
		if !srcOK {
			src = e.getOrCreateNeuronCached(neuronByText, core.NeuronConcept, rc.SourceSpan, req.MemoryType, now, &neuronsCreated)
		}
		dst, dstOK := neuronByText[normalizeKey(rc.TargetSpan)]
		if !dstOK {
			dst = e.getOrCreateNeuronCached(neuronByText, core.NeuronConcept, rc.TargetSpan, req.MemoryType, now, &neuronsCreated)
		}
		weight := 0.3 + 0.4*rc.Confidence
		if e.addSynapse(src.ID, dst.ID, rc.Type, weight, core.DirUni, now) {
			synapsesCreated++
		}
	}

	// Non-neutral sentiment → FELT synapse to a singleton emotion concept neuron.
	if sentimentResult.Valence != sentiment.Neutral && len(sentimentResult.EmotionTags) > 0 {
		emotionNeuron := e.getOrCreateEmotionNeuron(sentimentResult.EmotionTags[0], now)
		if e.addSynapse(anchor.ID, emotionNeuron.ID, core.SynFelt, sentimentResult.Intensity, core.DirUni, now) {
			synapsesCreated++
		}
	}

	// Step 5: conflict detection.
	conflictingAnchors := e.detectConflicts(content)
	disputed := len(conflictingAnchors) > 0
	for _, otherAnchor := range conflictingAnchors {
		if e.addSynapse(anchor.ID, otherAnchor, core.SynContradicts, 0.8, core.DirBi, now) {
			synapsesCreated++
		}
	}

	// Step 6: tag normalization + confirmatory boost.
	autoTags := deriveAutoTags(entities, keywords)
	agentTags := normalizeTagSlice(req.Tags)
	confirmed := tagIntersects(autoTags, agentTags)

	// Step 7: assemble fiber.
	fiber := core.NewFiber(anchor.ID, req.MemoryType, fiberSalience(req.MemoryType))
	for _, n := range neuronByText {
		fiber.AddNeuron(n.ID)
	}
	for _, synID := range e.brain.Adjacency[anchor.ID] {
		fiber.AddSynapse(synID)
	}
	fiber.Pathway = orderPathway(neuronByText)
	fiber.Summary = content
	for _, t := range autoTags {
		fiber.AutoTags[t] = struct{}{}
	}
	for _, t := range agentTags {
		fiber.AgentTags[t] = struct{}{}
	}
	if start, end, ok := temporalBounds(temporalPhrases, now); ok {
		fiber.TimeStart = &start
		fiber.TimeEnd = &end
	}
	if exp, ok := fiberExpirationByType[req.MemoryType]; ok {
		end := now.Add(exp)
		fiber.TimeEnd = &end
	}

	if confirmed {
		for _, synID := range e.brain.Adjacency[anchor.ID] {
			if syn, ok := e.brain.Synapses[synID]; ok {
				syn.SetWeight(min64(core.WMax, syn.Weight+0.1))
			}
		}
	}
	if disputed {
		for _, n := range neuronByText {
			n.SetFlag("_disputed", true)
		}
	}

	// Step 8: maturation init.
	maturation := core.NewMaturation(fiber.ID, now)
	e.brain.AddFiberUnsafe(fiber, maturation)

	return Result{
		FiberID:         fiber.ID,
		NeuronsCreated:  neuronsCreated,
		SynapsesCreated: synapsesCreated,
		Disputed:        disputed,
	}, nil
}

func min64(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func normalizeKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func dedupStrings(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		key := normalizeKey(s)
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, s)
	}
	return out
}

func buildSpans(entities, keywords, temporal []string) []span {
	var spans []span
	for _, t := range temporal {
		spans = append(spans, span{text: t, typ: core.NeuronTime})
	}
	for _, e := range entities {
		spans = append(spans, span{text: e, typ: core.NeuronEntity})
	}
	for _, k := range keywords {
		spans = append(spans, span{text: k, typ: core.NeuronConcept})
	}
	return spans
}

// findReusableFiber implements step 2: an existing neuron within
// Hamming 6 of contentHash whose owning fiber's summary is
// substring-equivalent with the new content means "already encoded".
func (e *Encoder) findReusableFiber(contentHash uint64, content string) (core.FiberID, bool) {
	lower := normalizeKey(content)
	for _, f := range e.brain.Fibers {
		fiberSummary := normalizeKey(f.Summary)
		if fiberSummary == "" {
			continue
		}
		if !strings.Contains(fiberSummary, lower) && !strings.Contains(lower, fiberSummary) {
			continue
		}
		for id := range f.NeuronIDs {
			n, ok := e.brain.Neurons[id]
			if !ok {
				continue
			}
			if core.IsNearDuplicate(n.ContentHash, contentHash) {
				return f.ID, true
			}
		}
	}
	return "", false
}

// getOrCreateNeuron canonicalizes (type, lowercased content) and looks
// up or creates a neuron, registering its default decay-rate state.
func (e *Encoder) getOrCreateNeuron(typ core.NeuronType, text, memoryType string, now time.Time) (*core.Neuron, bool) {
	canonical := normalizeKey(text)
	for _, n := range e.brain.Neurons {
		if n.Type == typ && normalizeKey(n.Content) == canonical {
			return n, false
		}
	}
	n := core.NewNeuron(typ, canonical)
	n.SetContentHash(core.SimHash64(canonical))
	decayRate := defaultNeuronDecayRate
	if dr, ok := neuronDecayRateByType[memoryType]; ok {
		decayRate = dr
	}
	st := core.NewNeuronState(n.ID, decayRate)
	e.brain.AddNeuronUnsafe(n, st)
	return n, true
}

func (e *Encoder) getOrCreateNeuronCached(cache map[string]*core.Neuron, typ core.NeuronType, text, memoryType string, now time.Time, created *int) *core.Neuron {
	key := normalizeKey(text)
	if n, ok := cache[key]; ok {
		return n
	}
	n, wasCreated := e.getOrCreateNeuron(typ, text, memoryType, now)
	cache[key] = n
	if wasCreated {
		*created++
	}
	return n
}

// getOrCreateEmotionNeuron returns the brain-wide singleton CONCEPT
// neuron for an emotion label, per step 4's "emotion neurons are
// singletons across the brain".
func (e *Encoder) getOrCreateEmotionNeuron(label sentiment.EmotionLabel, now time.Time) *core.Neuron {
	canonical := "emotion:" + string(label)
	for _, n := range e.brain.Neurons {
		if n.Type == core.NeuronConcept && normalizeKey(n.Content) == canonical {
			return n
		}
	}
	n := core.NewNeuron(core.NeuronConcept, canonical)
	n.SetContentHash(core.SimHash64(canonical))
	st := core.NewNeuronState(n.ID, defaultNeuronDecayRate)
	e.brain.AddNeuronUnsafe(n, st)
	return n
}

// addSynapse creates a new synapse or strengthens an existing
// same-typed edge between the same pair; reports whether a new
// synapse was created.
func (e *Encoder) addSynapse(source, target core.NeuronID, typ core.SynapseType, weight float64, dir core.SynapseDirection, now time.Time) bool {
	id := core.NewSynapseID(source, target, typ)
	if existing, ok := e.brain.Synapses[id]; ok {
		existing.Reinforce(weight*0.1, now)
		return false
	}
	syn := core.NewSynapse(source, target, typ, weight, dir)
	e.brain.AddSynapseUnsafe(syn)
	return true
}

// pickAnchor selects the highest base-weight entity/temporal span, or
// falls back to any neuron deterministically (lexicographic id) when
// nothing qualifies.
func pickAnchor(neuronByText map[string]*core.Neuron, spans []span) *core.Neuron {
	var best *core.Neuron
	bestWeight := -1.0
	for _, sp := range spans {
		n, ok := neuronByText[normalizeKey(sp.text)]
		if !ok {
			continue
		}
		w := sp.typ.AnchorBaseWeight()
		if w > bestWeight {
			bestWeight = w
			best = n
		}
	}
	if best != nil {
		return best
	}
	var ids []core.NeuronID
	for _, n := range neuronByText {
		ids = append(ids, n.ID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, n := range neuronByText {
		if n.ID == ids[0] {
			return n
		}
	}
	return nil
}

// orderPathway implements step 7's deterministic ordering: time →
// space → entity → action → concept.
func orderPathway(neuronByText map[string]*core.Neuron) []core.NeuronID {
	rank := map[core.NeuronType]int{
		core.NeuronTime:    0,
		core.NeuronSpatial: 1,
		core.NeuronEntity:  2,
		core.NeuronAction:  3,
		core.NeuronConcept: 4,
		core.NeuronSensory: 5,
		core.NeuronIntent:  6,
		core.NeuronStateKind: 7,
	}
	ids := make([]core.NeuronID, 0, len(neuronByText))
	for _, n := range neuronByText {
		ids = append(ids, n.ID)
	}
	byID := make(map[core.NeuronID]*core.Neuron, len(neuronByText))
	for _, n := range neuronByText {
		byID[n.ID] = n
	}
	sort.Slice(ids, func(i, j int) bool {
		ri, rj := rank[byID[ids[i]].Type], rank[byID[ids[j]].Type]
		if ri != rj {
			return ri < rj
		}
		return ids[i] < ids[j]
	})
	return ids
}

func fiberSalience(memoryType string) float64 {
	if s, ok := fiberSalienceByType[memoryType]; ok {
		return s
	}
	return defaultFiberSalience
}

func deriveAutoTags(entities, keywords []string) []string {
	tags := make([]string, 0, len(entities)+len(keywords))
	for _, e := range entities {
		tags = append(tags, canonicalTag(e))
	}
	for _, k := range keywords {
		tags = append(tags, canonicalTag(k))
	}
	return dedupStrings(tags)
}

// canonicalTag maps a raw tag through lowercasing and whitespace
// collapsing; SimHash near-match canonicalization against an existing
// tag vocabulary is applied by the caller once a brain-wide tag index
// exists (kept here as a pure, testable normalization step).
func canonicalTag(raw string) string {
	return strings.Join(strings.Fields(strings.ToLower(raw)), "_")
}

func normalizeTagSlice(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		out = append(out, canonicalTag(t))
	}
	return dedupStrings(out)
}

func tagIntersects(a, b []string) bool {
	set := make(map[string]struct{}, len(a))
	for _, t := range a {
		set[t] = struct{}{}
	}
	for _, t := range b {
		if _, ok := set[t]; ok {
			return true
		}
	}
	return false
}

func temporalBounds(phrases []string, now time.Time) (time.Time, time.Time, bool) {
	if len(phrases) == 0 {
		return time.Time{}, time.Time{}, false
	}
	resolved, ok := extraction.NormalizeTemporalPhrase(phrases[0], now)
	if !ok {
		return time.Time{}, time.Time{}, false
	}
	return resolved, resolved.Add(24 * time.Hour), true
}

// detectConflicts implements step 5: extract predicate tuples from the
// new content and compare against fibers already tagged with the same
// subject. Every contradicting fiber found is marked `_superseded` (it
// is, by construction, the older one) and its anchor neuron id is
// returned so the caller can link a CONTRADICTS synapse to it and mark
// the new fiber `_disputed`.
func (e *Encoder) detectConflicts(content string) []core.NeuronID {
	predicates := extraction.ExtractPredicates(content)
	if len(predicates) == 0 {
		return nil
	}

	var conflictingAnchors []core.NeuronID
	for _, p := range predicates {
		for _, f := range e.brain.Fibers {
			if !fiberHasSubjectTag(f, p.Subject) {
				continue
			}
			existingPredicates := extraction.ExtractPredicates(f.Summary)
			for _, ep := range existingPredicates {
				if extraction.IsContradictingPredicate(p, ep) {
					e.markSuperseded(f)
					conflictingAnchors = append(conflictingAnchors, f.AnchorNeuron)
				}
			}
		}
	}
	return conflictingAnchors
}

func fiberHasSubjectTag(f *core.Fiber, subject string) bool {
	tag := canonicalTag(subject)
	_, inAuto := f.AutoTags[tag]
	_, inAgent := f.AgentTags[tag]
	return inAuto || inAgent
}

func (e *Encoder) markSuperseded(f *core.Fiber) {
	for id := range f.NeuronIDs {
		if n, ok := e.brain.Neurons[id]; ok {
			n.SetFlag("_superseded", true)
		}
	}
}
