package guide

import "fmt"

// buildPrompt renders the fixed instruction template around the OCR
// text. The schema the model must emit mirrors models.StudyGuide.
func buildPrompt(rawText string) string {
	return fmt.Sprintf(`You are an expert note-taking assistant. A student has uploaded a photo of their messy lecture notes. The OCR extracted the following raw text:

---
%s
---

Transform this into a beautifully structured study guide. Return ONLY a valid JSON object with this exact structure (no extra text, no markdown, just raw JSON):

{
  "title": "A clear, descriptive title for this set of notes",
  "subject": "The subject or topic area (e.g. Biology, Physics, History)",
  "summary": "A 2-3 sentence summary of what these notes cover",
  "sections": [
    {
      "heading": "Section heading",
      "content": "Detailed explanation of this section in clear, well-written prose",
      "keyTerms": ["term1", "term2"],
      "bullets": ["Key point 1", "Key point 2"]
    }
  ],
  "diagrams": [
    {
      "type": "flowchart or mindmap or timeline or sequence",
      "title": "Clear diagram title",
      "diagramSource": "Valid Mermaid.js syntax (see examples below)"
    }
  ],
  "quizQuestions": [
    {
      "question": "A study question",
      "answer": "The answer to the question",
      "difficulty": "easy or medium or hard"
    }
  ]
}

Guidelines:
- Create 2-4 sections based on the content
- Extract 3-5 quiz questions at varying difficulty levels
- Generate 1-2 diagrams using VALID Mermaid.js syntax to visualize the content
- Make the content clear and easy to understand
- Fix any OCR errors or garbled text
- If the text is too garbled to understand, do your best and note any uncertain parts

DIAGRAM EXAMPLES (Choose the type that best fits the content):

FLOWCHART (for processes, steps, decisions):
graph TD
    A[Start] --> B{Decision?}
    B -->|Yes| C[Step 1]
    B -->|No| D[Step 2]
    C --> E[End]
    D --> E

MINDMAP (for concepts, hierarchies, relationships):
mindmap
  root((Central Concept))
    Topic 1
      Subtopic A
      Subtopic B
    Topic 2
      Subtopic C

TIMELINE (for chronological events, history):
timeline
    title Event Timeline
    2020 : Event 1 : Details
    2021 : Event 2 : Details

SEQUENCE (for interactions, processes with actors):
sequenceDiagram
    participant A as Person 1
    participant B as Person 2
    A->>B: Action 1
    B->>A: Response

IMPORTANT:
- Keep node labels SHORT (under 20 chars)
- Use simple, clear relationships
- If content doesn't fit a diagram well, it's okay to skip the diagrams array entirely rather than emit a malformed one`, rawText)
}
