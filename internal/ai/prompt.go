// Package ai turns editor text into summaries, grammar fixes and rewrites
// through a hosted language model.
package ai

import (
	"context"
	"errors"
	"fmt"
)

type Mode string

const (
	ModeSummary        Mode = "summary"
	ModeGrammar        Mode = "grammar"
	ModeImprove        Mode = "improve"
	ModeConversational Mode = "conversational"
)

var (
	ErrUnknownMode = errors.New("unknown generation mode")
	ErrEmptyText   = errors.New("text is empty")
)

// Generator rewrites text according to mode.
type Generator interface {
	Generate(ctx context.Context, text string, mode Mode) (string, error)
}

var systemPrompts = map[Mode]string{
	ModeSummary: "You are an expert writing assistant. " +
		"Provide a clear, concise, well-structured summary of the given content. " +
		"Do not add commentary. " +
		"Do not explain that it is a summary. " +
		"Return only the summarized text.",
	ModeGrammar: "You are a professional grammar correction engine. " +
		"Rewrite the text with corrected grammar and clarity. " +
		"Do not explain the changes. " +
		"Do not provide alternatives. " +
		"Do not add commentary. " +
		"Return only the corrected text.",
	ModeImprove: "You are a professional content strategist. " +
		"Enhance the writing to make it more engaging, structured, and impactful. " +
		"Preserve the author's core message. " +
		"Do not use markdown formatting symbols such as **, *, or #. " +
		"Do not explain changes. " +
		"Return only the improved version.",
	ModeConversational: "You are a friendly and intelligent assistant. " +
		"Rewrite the content in a more natural, conversational tone " +
		"while keeping it professional and clear.",
}

// SystemPrompt returns the instruction sent ahead of the user's text.
func SystemPrompt(mode Mode) (string, error) {
	p, ok := systemPrompts[mode]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}
	return p, nil
}
