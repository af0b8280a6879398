package analysis

import "github.com/starford/orrery/internal/models"

// typeSpec pairs the public presentation config of a detected type with the
// prompt fragments used to analyse it.
type typeSpec struct {
	config  models.NoteTypeConfig
	extract string
	branch  string
}

var catalogue = map[models.DetectedNoteType]typeSpec{
	models.DetectedStory: {
		config: models.NoteTypeConfig{
			Label: "Story / Narrative", Icon: "🎭",
			PrimaryColor: "#F4EFE6", AccentColor: "#D4A574",
			Layout: models.LayoutHorizontalTimeline,
			QuickScenarios: []string{
				"What if this character made a different choice?",
				"What if this event didn't happen?",
				"What if the scene occurred in a different location?",
				"What if the outcome was opposite?",
			},
			CheckpointTypes: []string{"plot-event", "character-decision", "conflict", "scene-change", "resolution"},
		},
		extract: "Extract: plot events, character decisions, conflicts, scene changes, resolutions.",
		branch:  "Generate alternative plot directions. Stay true to characters and world rules.",
	},
	models.DetectedResearch: {
		config: models.NoteTypeConfig{
			Label: "Research / Academic", Icon: "🔬",
			PrimaryColor: "#E8F4F8", AccentColor: "#5B9BD5",
			Layout: models.LayoutHierarchicalTree,
			QuickScenarios: []string{
				"What if this variable was different?",
				"What if the methodology changed?",
				"What if the sample size was larger?",
				"What if we interpreted results differently?",
			},
			CheckpointTypes: []string{"hypothesis", "finding", "data-point", "insight", "research-question", "conclusion"},
		},
		extract: "Extract: hypotheses, key findings, data points, insights, questions, conclusions.",
		branch:  "Generate alternative interpretations or methodological approaches.",
	},
	models.DetectedArgument: {
		config: models.NoteTypeConfig{
			Label: "Argument / Essay", Icon: "💭",
			PrimaryColor: "#F0F0F0", AccentColor: "#7C8A95",
			Layout: models.LayoutVerticalDebate,
			QuickScenarios: []string{
				"What if this assumption is false?",
				"What if the counterargument is stronger?",
				"What if we prioritize different values?",
				"What if evidence contradicted this point?",
			},
			CheckpointTypes: []string{"thesis", "supporting-point", "counterargument", "rebuttal", "essay-conclusion"},
		},
		extract: "Extract: thesis statements, supporting points, counterarguments, rebuttals, conclusions.",
		branch:  "Generate alternative positions or challenge assumptions.",
	},
	models.DetectedProcess: {
		config: models.NoteTypeConfig{
			Label: "Process / Tutorial", Icon: "📋",
			PrimaryColor: "#E8F5E9", AccentColor: "#66BB6A",
			Layout: models.LayoutHorizontalTimeline,
			QuickScenarios: []string{
				"What if we skip this step?",
				"What if we do steps in different order?",
				"What if we use an alternative tool?",
				"What if this step fails?",
			},
			CheckpointTypes: []string{"step", "warning", "checkpoint", "branch-point", "completion"},
		},
		extract: "Extract: steps, warnings, checkpoints, branch points, completion states.",
		branch:  "Generate alternative methods, optimizations, or different sequences.",
	},
	models.DetectedDecision: {
		config: models.NoteTypeConfig{
			Label: "Decision Analysis", Icon: "⚖️",
			PrimaryColor: "#FFF8E1", AccentColor: "#FFA726",
			Layout: models.LayoutBranchingTree,
			QuickScenarios: []string{
				"What if we chose option B instead?",
				"What if cost wasn't a factor?",
				"What if timeline doubled?",
				"What if we combined options?",
			},
			CheckpointTypes: []string{"problem", "criteria", "option", "trade-off", "decision-made"},
		},
		extract: "Extract: problem definition, criteria, options, trade-offs, final decisions.",
		branch:  "Generate alternative choices with different criteria weights.",
	},
	models.DetectedConcept: {
		config: models.NoteTypeConfig{
			Label: "Conceptual / Philosophical", Icon: "🧠",
			PrimaryColor: "#F3E5F5", AccentColor: "#AB47BC",
			Layout: models.LayoutNetworkWeb,
			QuickScenarios: []string{
				"What if this concept applied to different domain?",
				"What if we inverted the relationship?",
				"What if the premise was different?",
				"What if we challenged core assumptions?",
			},
			CheckpointTypes: []string{"concept-definition", "relationship", "implication", "philosophical-question"},
		},
		extract: "Extract: concept definitions, relationships, implications, philosophical questions.",
		branch:  "Generate alternative interpretations or applications to new domains.",
	},
	models.DetectedMeeting: {
		config: models.NoteTypeConfig{
			Label: "Meeting / Project Notes", Icon: "📅",
			PrimaryColor: "#FFF3E0", AccentColor: "#FF9800",
			Layout: models.LayoutActionBoard,
			QuickScenarios: []string{
				"What if we assigned this to different person?",
				"What if deadline moved earlier/later?",
				"What if we rejected this decision?",
				"What if budget constraints changed?",
			},
			CheckpointTypes: []string{"topic", "discussion-point", "action-item", "deadline"},
		},
		extract: "Extract: topics discussed, discussion points, action items, deadlines.",
		branch:  "Generate alternative assignments, timelines, or decisions.",
	},
	models.DetectedTechnical: {
		config: models.NoteTypeConfig{
			Label: "Technical Documentation", Icon: "⚙️",
			PrimaryColor: "#263238", AccentColor: "#00BCD4",
			Layout: models.LayoutFlowDiagram,
			QuickScenarios: []string{
				"What if we used different architecture?",
				"What if performance requirements doubled?",
				"What if we optimized for maintainability?",
				"What if we handled this error differently?",
			},
			CheckpointTypes: []string{"function", "input", "output", "error-case", "example"},
		},
		extract: "Extract: functions, inputs, outputs, error cases, examples.",
		branch:  "Generate alternative implementations or architectural approaches.",
	},
	models.DetectedJournal: {
		config: models.NoteTypeConfig{
			Label: "Journal / Reflection", Icon: "✍️",
			PrimaryColor: "#FFF9C4", AccentColor: "#FBC02D",
			Layout: models.LayoutHorizontalTimeline,
			QuickScenarios: []string{
				"What if I had reacted differently?",
				"What if my interpretation was wrong?",
				"What if I try a new approach tomorrow?",
				"What if I looked at this from another angle?",
			},
			CheckpointTypes: []string{"emotional-state", "event", "reflection", "future-intent"},
		},
		extract: "Extract: emotional states, events described, reflections, future intentions.",
		branch:  "Generate alternative perspectives or reframed interpretations.",
	},
	models.DetectedBrainstorm: {
		config: models.NoteTypeConfig{
			Label: "Brainstorm / Ideas", Icon: "💡",
			PrimaryColor: "#E1F5FE", AccentColor: "#29B6F6",
			Layout: models.LayoutNetworkWeb,
			QuickScenarios: []string{
				"What if we combined these two ideas?",
				"What if we flipped this concept?",
				"What if we targeted different audience?",
				"What if budget was 10x larger?",
			},
			CheckpointTypes: []string{"core-idea", "feature", "connection", "promising", "rejected"},
		},
		extract: "Extract: core ideas, features, connections, promising ideas, rejected ideas.",
		branch:  "Generate idea combinations, pivots, or expanded concepts.",
	},
}

// CheckpointIcons maps every checkpoint type to its display icon.
var CheckpointIcons = map[string]string{
	"plot-event": "📖", "character-decision": "⚡", "conflict": "💔", "scene-change": "🎬", "resolution": "🔚",
	"hypothesis": "🔬", "finding": "📊", "data-point": "📈", "insight": "💡", "research-question": "❓", "conclusion": "🎯",
	"thesis": "📝", "supporting-point": "✅", "counterargument": "❌", "rebuttal": "🔄", "essay-conclusion": "⚖️",
	"step": "1️⃣", "warning": "⚠️", "checkpoint": "✔️", "branch-point": "🔀", "completion": "🏁",
	"problem": "🤔", "criteria": "📋", "option": "🅰️", "trade-off": "⚖️", "decision-made": "✅",
	"concept-definition": "💭", "relationship": "🔗", "implication": "🧩", "philosophical-question": "❓",
	"topic": "📅", "discussion-point": "🗣️", "action-item": "📌", "deadline": "⏰",
	"function": "⚙️", "input": "📥", "output": "📤", "error-case": "⚠️", "example": "💡",
	"emotional-state": "😊", "event": "📖", "reflection": "💭", "future-intent": "🔮",
	"core-idea": "💡", "feature": "🌟", "connection": "🔗", "promising": "⭐", "rejected": "❌",
}

// Config returns the presentation config of t.
func Config(t models.DetectedNoteType) (models.NoteTypeConfig, bool) {
	entry, ok := catalogue[t]
	if !ok {
		return models.NoteTypeConfig{}, false
	}
	cfg := entry.config
	cfg.Type = t
	cfg.QuickScenarios = append([]string(nil), cfg.QuickScenarios...)
	cfg.CheckpointTypes = append([]string(nil), cfg.CheckpointTypes...)
	return cfg, true
}

// Configs returns every type config in taxonomy order.
func Configs() []models.NoteTypeConfig {
	out := make([]models.NoteTypeConfig, 0, len(models.DetectedNoteTypes))
	for _, t := range models.DetectedNoteTypes {
		cfg, _ := Config(t)
		out = append(out, cfg)
	}
	return out
}

// LayoutFor returns the layout suggested for t. Unknown types get network-web.
func LayoutFor(t models.DetectedNoteType) models.LayoutType {
	if entry, ok := catalogue[t]; ok {
		return entry.config.Layout
	}
	return models.LayoutNetworkWeb
}
