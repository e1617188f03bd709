package models

// Diagram types the synthesis model is allowed to emit.
const (
	DiagramFlowchart = "flowchart"
	DiagramMindmap   = "mindmap"
	DiagramTimeline  = "timeline"
	DiagramSequence  = "sequence"
)

// Quiz question difficulty levels.
const (
	DifficultyEasy   = "easy"
	DifficultyMedium = "medium"
	DifficultyHard   = "hard"
)

// StudyGuide is the structured document produced from raw note text.
type StudyGuide struct {
	Title         string         `json:"title"`
	Subject       string         `json:"subject"`
	Summary       string         `json:"summary"`
	Sections      []Section      `json:"sections"`
	Diagrams      []Diagram      `json:"diagrams,omitempty"`
	QuizQuestions []QuizQuestion `json:"quizQuestions"`
}

// Section is one topical block of the guide.
type Section struct {
	Heading  string   `json:"heading"`
	Content  string   `json:"content"`
	KeyTerms []string `json:"keyTerms"`
	Bullets  []string `json:"bullets"`
}

// Diagram carries renderable Mermaid source for one visualization.
type Diagram struct {
	Type          string `json:"type"`
	Title         string `json:"title"`
	DiagramSource string `json:"diagramSource"`
}

// QuizQuestion is a single self-test question with its answer.
type QuizQuestion struct {
	Question   string `json:"question"`
	Answer     string `json:"answer"`
	Difficulty string `json:"difficulty"`
}
