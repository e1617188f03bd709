package guide

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

const sampleGuideJSON = `{
	"title": "Photosynthesis",
	"subject": "Biology",
	"summary": "How plants convert light into chemical energy.",
	"sections": [
		{
			"heading": "Light reactions",
			"content": "Chlorophyll absorbs light in the thylakoid membrane.",
			"keyTerms": ["chlorophyll", "thylakoid"],
			"bullets": ["Produces ATP", "Produces NADPH"]
		}
	],
	"diagrams": [
		{"type": "flowchart", "title": "Energy flow", "diagramSource": "graph TD\n A[Light] --> B[ATP]"}
	],
	"quizQuestions": [
		{"question": "Where do light reactions occur?", "answer": "Thylakoid membrane", "difficulty": "easy"},
		{"question": "What pigment absorbs light?", "answer": "Chlorophyll", "difficulty": "easy"},
		{"question": "Name one product of the light reactions.", "answer": "ATP or NADPH", "difficulty": "medium"}
	]
}`

type fakeChatModel struct {
	reply      string
	err        error
	lastPrompt string
	calls      int
}

func (f *fakeChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	f.calls++
	if len(input) > 0 {
		f.lastPrompt = input[len(input)-1].Content
	}
	if f.err != nil {
		return nil, f.err
	}
	return schema.AssistantMessage(f.reply, nil), nil
}

func (f *fakeChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("stream not supported in fake")
}

func TestSynthesizeParsesPlainJSON(t *testing.T) {
	fake := &fakeChatModel{reply: sampleGuideJSON}
	svc := New(fake)

	studyGuide, err := svc.Synthesize(context.Background(), "photosynthesis notes")
	if err != nil {
		t.Fatalf("synthesize: %v", err)
	}
	if studyGuide.Title != "Photosynthesis" {
		t.Fatalf("title = %q", studyGuide.Title)
	}
	if len(studyGuide.Sections) != 1 || len(studyGuide.QuizQuestions) != 3 {
		t.Fatalf("unexpected shape: %d sections, %d questions", len(studyGuide.Sections), len(studyGuide.QuizQuestions))
	}
	if !strings.Contains(fake.lastPrompt, "photosynthesis notes") {
		t.Fatalf("prompt does not embed the raw text")
	}
}

func TestSynthesizeStripsCodeFence(t *testing.T) {
	fenced := "```json\n" + sampleGuideJSON + "\n```"
	plain := &fakeChatModel{reply: sampleGuideJSON}
	wrapped := &fakeChatModel{reply: fenced}

	fromPlain, err := New(plain).Synthesize(context.Background(), "notes")
	if err != nil {
		t.Fatalf("plain synthesize: %v", err)
	}
	fromFenced, err := New(wrapped).Synthesize(context.Background(), "notes")
	if err != nil {
		t.Fatalf("fenced synthesize: %v", err)
	}
	if fromPlain.Title != fromFenced.Title || len(fromPlain.Sections) != len(fromFenced.Sections) {
		t.Fatalf("fenced reply parsed differently from plain reply")
	}
}

func TestSynthesizeModelErrorIsUnavailable(t *testing.T) {
	fake := &fakeChatModel{err: errors.New("connection refused")}
	_, err := New(fake).Synthesize(context.Background(), "notes")
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}
}

func TestSynthesizeUnparsableReplyIsMalformed(t *testing.T) {
	for name, reply := range map[string]string{
		"prose":            "Here is your study guide: photosynthesis is...",
		"truncated":        sampleGuideJSON[:40],
		"missing sections": `{"title": "T", "subject": "S", "summary": "x", "sections": [], "quizQuestions": []}`,
		"empty title":      `{"title": " ", "subject": "S", "summary": "x", "sections": [{"heading": "h", "content": "c"}], "quizQuestions": []}`,
	} {
		fake := &fakeChatModel{reply: reply}
		_, err := New(fake).Synthesize(context.Background(), "notes")
		if !errors.Is(err, ErrMalformed) {
			t.Fatalf("%s: err = %v, want ErrMalformed", name, err)
		}
	}
}

func TestSynthesizeRejectsEmptyInput(t *testing.T) {
	fake := &fakeChatModel{reply: sampleGuideJSON}
	_, err := New(fake).Synthesize(context.Background(), "   \n\t")
	if err == nil {
		t.Fatalf("expected error for empty input text")
	}
	if fake.calls != 0 {
		t.Fatalf("model must not be called with empty input")
	}
}

func TestStripCodeFence(t *testing.T) {
	cases := map[string]string{
		"{\"a\":1}":                      `{"a":1}`,
		"```json\n{\"a\":1}\n```":        `{"a":1}`,
		"```\n{\"a\":1}\n```":            `{"a":1}`,
		"  ```json\n{\"a\":1}\n```  \n": `{"a":1}`,
	}
	for in, want := range cases {
		if got := stripCodeFence(in); got != want {
			t.Fatalf("stripCodeFence(%q) = %q, want %q", in, got, want)
		}
	}
}
