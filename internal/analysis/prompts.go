package analysis

import (
	"fmt"
	"strings"

	"github.com/starford/orrery/internal/models"
	"github.com/starford/orrery/internal/parser"
)

// Prompt sample sizes, in runes.
const (
	detectSample   = 2000
	extractSample  = 3000
	branchSample   = 1500
	suggestSample  = 1500
	branchContext  = 5
	linkCandidates = 20
	tagContext     = 30
)

const detectTemplate = `Analyze this text and determine what type of note/document it is.

Text to analyze:
"""
%s
"""

Possible types:
- story: Narrative fiction with characters, plot, dialogue
- research: Academic or scientific with hypotheses, findings, citations
- argument: Essay with thesis, supporting points, counterarguments
- process: Tutorial or how-to with sequential steps
- decision: Analysis with options, pros/cons, criteria
- concept: Philosophical or theoretical with definitions, implications
- meeting: Notes with attendees, action items, decisions
- technical: Documentation with code, functions, parameters
- journal: Personal reflection with emotions, events, insights
- brainstorm: Ideas list, features, creative exploration

Return ONLY valid JSON (no markdown):
{
  "type": "story",
  "confidence": 0.85,
  "reasoning": "Brief explanation"
}`

func detectPrompt(content string) string {
	return fmt.Sprintf(detectTemplate, parser.Truncate(content, detectSample))
}

const extractTemplate = `Analyze this %s content and extract key checkpoints.

Content:
"""
%s
"""

Instructions:
%s
Types: %s

For each checkpoint, provide:
- title: Short descriptive title (5-10 words)
- content: The actual text from the note
- excerpt: First 100 characters for preview
- type: One of the types listed above
- importance: 1-10 rating

Return ONLY valid JSON (no markdown):
{
  "checkpoints": [
    {
      "title": "Discovery of Evidence",
      "content": "Sarah found documents...",
      "excerpt": "Sarah found documents in the old warehouse...",
      "type": "plot-event",
      "importance": 8,
      "startOffset": 0,
      "endOffset": 150
    }
  ]
}`

func extractPrompt(content string, t models.DetectedNoteType) string {
	entry := catalogue[t]
	return fmt.Sprintf(extractTemplate, t, parser.Truncate(content, extractSample),
		entry.extract, strings.Join(entry.config.CheckpointTypes, ", "))
}

const relationshipTemplate = `Analyze relationships between these %s checkpoints.

Checkpoints:
%s

Identify connections between checkpoint pairs.
Relationship types:
- causal: One leads to/causes another
- temporal: Sequential in time
- supportive: One supports/reinforces another
- contradictory: One contradicts another
- thematic: Share common themes
- sequential: Ordered steps

Return ONLY valid JSON (no markdown):
{
  "relationships": [
    {
      "sourceIndex": 0,
      "targetIndex": 1,
      "type": "causal",
      "strength": 0.8,
      "description": "Discovery leads to decision"
    }
  ]
}`

func relationshipPrompt(checkpoints []models.Checkpoint, t models.DetectedNoteType) string {
	lines := make([]string, len(checkpoints))
	for i, cp := range checkpoints {
		lines[i] = fmt.Sprintf("%d: %q (%s)", i, cp.Title, cp.Type)
	}
	return fmt.Sprintf(relationshipTemplate, t, strings.Join(lines, "\n"))
}

const branchTemplate = `You are exploring alternative possibilities for a %s document.

Selected Checkpoint:
Title: %q
Content: %q

User's Question:
%q

Document Context:
%s

Related Checkpoints:
%s

Instructions:
%s

Generate 3 distinct alternative paths/outcomes.

Return ONLY valid JSON (no markdown):
{
  "branches": [
    {
      "title": "Alternative title (5-8 words)",
      "description": "What would happen (2-3 sentences)",
      "consequences": "Implications and effects",
      "pros": ["Benefit 1", "Benefit 2"],
      "cons": ["Drawback 1"],
      "confidence": 0.75,
      "nextCheckpoints": [
        {"title": "Next point", "description": "What follows"}
      ]
    }
  ]
}`

func branchPrompt(cp models.Checkpoint, question, content string, t models.DetectedNoteType, all []models.Checkpoint) string {
	related := make([]string, 0, branchContext)
	for i, c := range all {
		if i == branchContext {
			break
		}
		related = append(related, "- "+c.Title)
	}
	return fmt.Sprintf(branchTemplate, t, cp.Title, cp.Content, question,
		parser.Truncate(content, branchSample), strings.Join(related, "\n"), catalogue[t].branch)
}

const tagTemplate = `Analyze this content and suggest relevant tags.

Content:
"""
%s
"""

Existing tags in the system: %s

Task: Suggest 3-5 relevant tags for this content. Tags should be:
- Single words or short hyphenated phrases
- Lowercase
- Descriptive of the content's themes or topics

Return ONLY a JSON array of tag strings (no markdown):
["tag1", "tag2", "tag3"]`

func tagPrompt(content string, existing []string) string {
	if len(existing) > tagContext {
		existing = existing[:tagContext]
	}
	known := strings.Join(existing, ", ")
	if known == "" {
		known = "None"
	}
	return fmt.Sprintf(tagTemplate, parser.Truncate(content, suggestSample), known)
}

const linkTemplate = `Analyze this note content and suggest relevant links to other notes.

Current Note Content:
"""
%s
"""

Available Notes to Link To:
%s

Task: Suggest up to 3 notes that would be relevant to link from the current content. Consider thematic connections, referenced concepts, and logical relationships.

Return ONLY valid JSON (no markdown):
{
  "suggestions": [
    {
      "noteTitle": "Title of note to link",
      "reason": "Brief explanation of why this link makes sense",
      "confidence": 0.8
    }
  ]
}`

func linkPrompt(content string, candidates []LinkCandidate) string {
	lines := make([]string, len(candidates))
	for i, c := range candidates {
		lines[i] = fmt.Sprintf("- %q: %s", c.Title, parser.Truncate(c.Excerpt, 100))
	}
	return fmt.Sprintf(linkTemplate, parser.Truncate(content, suggestSample), strings.Join(lines, "\n"))
}

func assistPrompt(action AssistAction, text, hint string) string {
	var b strings.Builder
	switch action {
	case AssistEnhance:
		b.WriteString("You are an editorial assistant helping improve writing quality.\n\nText to enhance:\n\"\"\"\n")
		b.WriteString(text)
		b.WriteString("\n\"\"\"\n\n")
		if hint != "" {
			b.WriteString("Context: " + hint + "\n\n")
		}
		b.WriteString("Task: Improve the clarity, style, and flow of this text while maintaining the original meaning and voice. Fix any grammatical errors. Return ONLY the revised text, no explanations.")
	case AssistExpand:
		b.WriteString("You are a writing assistant helping expand ideas.\n\nText to expand:\n\"\"\"\n")
		b.WriteString(text)
		b.WriteString("\n\"\"\"\n\n")
		if hint != "" {
			b.WriteString("Context: " + hint + "\n\n")
		}
		b.WriteString("Task: Expand this text with more detail, examples, or explanation while maintaining the same tone and style. Add 2-3 paragraphs of relevant content. Return ONLY the expanded text, no explanations.")
	case AssistSummarize:
		b.WriteString("Summarize the following text in a concise manner, capturing the key points:\n\n\"\"\"\n")
		b.WriteString(text)
		b.WriteString("\n\"\"\"\n\nReturn ONLY the summary, no explanations or prefixes.")
	case AssistContinue:
		b.WriteString("You are a writing assistant helping continue a piece of writing.\n\nText so far:\n\"\"\"\n")
		b.WriteString(text)
		b.WriteString("\n\"\"\"\n\n")
		if hint != "" {
			b.WriteString("Context/Style notes: " + hint + "\n\n")
		}
		b.WriteString("Task: Write the next 1-2 paragraphs that naturally continue this text. Match the tone, style, and voice. Return ONLY the continuation, no explanations.")
	}
	return b.String()
}

const narrativeTemplate = `You are a creative writing assistant specializing in plot development.

Story Context:
- Genre: %s
- Characters: %s
- Previous Events: %s
- World Rules: %s

Current Decision Point:
"%s"

Task: Generate 3 distinct plot branches from this decision point.

Requirements:
1. Each branch must stay true to character personalities and world rules
2. Create compelling conflict and lead to meaningfully different outcomes
3. Avoid clichés

Return ONLY valid JSON in this exact format (no markdown, no code blocks):
{
  "branches": [
    {
      "name": "Short title (5-8 words)",
      "consequence": "Immediate result (1-2 sentences)",
      "nextDecision": "The next choice point this leads to"
    }
  ]
}`

func narrativePrompt(decision string, sc models.StoryContext) string {
	orDefault := func(v, fallback string) string {
		if strings.TrimSpace(v) == "" {
			return fallback
		}
		return v
	}
	return fmt.Sprintf(narrativeTemplate,
		orDefault(sc.Genre, "General Fiction"),
		orDefault(strings.Join(sc.Characters, ", "), "Not specified"),
		orDefault(strings.Join(sc.PreviousEvents, "; "), "None provided"),
		orDefault(sc.WorldRules, "Standard reality"),
		decision)
}
