// Package example provides small built-in models used by the default
// factories and the test suite.
package example

import (
	"fmt"
	"strings"

	"github.com/ekisa-team/modelserve/internal/mapsafe"
	"github.com/ekisa-team/modelserve/internal/model"
)

// Echo is a trivial model that concatenates its arguments.
type Echo struct {
	name string
}

// NewEcho creates an Echo model with a fallback name.
func NewEcho(name string) *Echo {
	return &Echo{name: name}
}

// GreetArgs are the parameters of Greet.
type GreetArgs struct {
	Name   string `json:"name"`
	Suffix string `json:"suffix" default:"!"`
}

// Greet concatenates name and suffix.
func (e *Echo) Greet(args GreetArgs) string {
	name := args.Name
	if name == "" {
		name = e.name
	}

	return name + args.Suffix
}

// FunctionDoc implements function.Documenter.
func (e *Echo) FunctionDoc(name string) string {
	if name == "Greet" {
		return "Greet concatenates a name with a suffix."
	}

	return ""
}

// TextProcessor is a mock text model with several public functions.
type TextProcessor struct {
	modelPath string
	device    string
}

// NewTextProcessor creates a TextProcessor.
func NewTextProcessor(modelPath, device string) *TextProcessor {
	return &TextProcessor{modelPath: modelPath, device: device}
}

// ProcessTextArgs are the parameters of ProcessText.
type ProcessTextArgs struct {
	Text      string `json:"text"`
	MaxLength int    `json:"max_length" default:"100"`
}

// ProcessText truncates and tags the input text.
func (p *TextProcessor) ProcessText(args ProcessTextArgs) string {
	text := args.Text
	if len(text) > args.MaxLength {
		text = text[:args.MaxLength]
	}

	return "Processed: " + text
}

// SummarizeArgs are the parameters of Summarize.
type SummarizeArgs struct {
	Text     string `json:"text"`
	MaxWords int    `json:"max_words" default:"50"`
}

// Summarize keeps the first MaxWords words of the text.
func (p *TextProcessor) Summarize(args SummarizeArgs) string {
	words := strings.Fields(args.Text)
	if len(words) > args.MaxWords {
		words = words[:args.MaxWords]
	}

	return "Summary: " + strings.Join(words, " ")
}

// TranslateArgs are the parameters of Translate.
type TranslateArgs struct {
	Text           string `json:"text"`
	TargetLanguage string `json:"target_language" default:"es"`
}

// Translate is a mock translation.
func (p *TextProcessor) Translate(args TranslateArgs) string {
	return fmt.Sprintf("Translated to %s: %s", args.TargetLanguage, args.Text)
}

// FunctionDoc implements function.Documenter.
func (p *TextProcessor) FunctionDoc(name string) string {
	switch name {
	case "ProcessText":
		return "ProcessText truncates the text to max_length characters."
	case "Summarize":
		return "Summarize keeps the first max_words words of the text."
	case "Translate":
		return "Translate renders the text in the target language."
	default:
		return ""
	}
}

// RegisterFactories registers constructors for the example models under
// their class path locators.
func RegisterFactories(f *model.Factories) {
	f.Register("example.Echo", func(initParams map[string]any) (any, error) {
		return NewEcho(mapsafe.Get(initParams, "name", "world")), nil
	})

	f.Register("example.TextProcessor", func(initParams map[string]any) (any, error) {
		return NewTextProcessor(
			mapsafe.Get(initParams, "model_path", ""),
			mapsafe.Get(initParams, "device", "cpu"),
		), nil
	})
}
