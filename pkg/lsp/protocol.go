package lsp

// MarkupContent is always sent as markdown.
type MarkupContent struct {
	Kind  string `json:"kind"`
	Value string `json:"value"`
}

// CompletionContext tells why the client asked. Completion answers the same
// either way; the field is decoded for logging.
type CompletionContext struct {
	TriggerKind      int    `json:"triggerKind"`
	TriggerCharacter string `json:"triggerCharacter,omitempty"`
}

// CompletionItemKind values used for script candidates.
type CompletionItemKind int

const (
	CompletionItemText     CompletionItemKind = 1
	CompletionItemFunction CompletionItemKind = 3
	CompletionItemField    CompletionItemKind = 5
	CompletionItemVariable CompletionItemKind = 6
	CompletionItemKeyword  CompletionItemKind = 14
	CompletionItemSnippet  CompletionItemKind = 15
)

type InsertTextFormat int

const (
	InsertTextFormatPlainText InsertTextFormat = 1
	// InsertTextFormatSnippet marks "${1:x}" placeholders for function calls and statement snippets
	InsertTextFormatSnippet InsertTextFormat = 2
)

// TextEdit replaces Range with NewText. Ranges are in UTF-16 columns.
type TextEdit struct {
	Range   Range  `json:"range"`
	NewText string `json:"newText"`
}

type CompletionItem struct {
	Label            string             `json:"label"`
	Kind             CompletionItemKind `json:"kind,omitempty"`
	Detail           string             `json:"detail,omitempty"`
	Documentation    *MarkupContent     `json:"documentation,omitempty"`
	Deprecated       bool               `json:"deprecated,omitempty"`
	SortText         string             `json:"sortText,omitempty"`
	InsertTextFormat InsertTextFormat   `json:"insertTextFormat,omitempty"`
	TextEdit         *TextEdit          `json:"textEdit,omitempty"`
}

// CompletionList is incomplete when MaxSuggestions cut it short, so the
// client asks again as the user keeps typing.
type CompletionList struct {
	IsIncomplete bool             `json:"isIncomplete"`
	Items        []CompletionItem `json:"items"`
}
