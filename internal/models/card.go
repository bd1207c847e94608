package models

import (
	"encoding/json"
	"sort"
)

// CardType categorizes what a card asks the players to do
type CardType string

const (
	CardTypeQuestion   CardType = "question"
	CardTypeChallenge  CardType = "challenge"
	CardTypeScenario   CardType = "scenario"
	CardTypeConnection CardType = "connection"
	CardTypeWild       CardType = "wild"
)

// Card is a single prompt card as consumed by the client
type Card struct {
	ID              string   `json:"id"`
	ConnectionLevel int      `json:"connectionLevel"`
	Type            CardType `json:"type"`

	// Theta is an optional 0-1 quality weight used for weighted selection
	Theta *float64 `json:"theta,omitempty"`

	Content Content `json:"content"`
}

// Content is card text that is either plain or localized per language.
// The backend serves both shapes, so the JSON codec accepts either a string
// or a language-keyed object.
type Content struct {
	plain     string
	localized map[string]string
}

// PlainContent wraps a single untranslated string
func PlainContent(text string) Content {
	return Content{plain: text}
}

// LocalizedContent wraps a language-code -> text mapping
func LocalizedContent(byLang map[string]string) Content {
	return Content{localized: byLang}
}

// Resolve returns the text for the requested language, falling back to
// English, then to the first available language, then to the empty string.
func (c Content) Resolve(lang Language) string {
	if c.localized == nil {
		return c.plain
	}
	if text, ok := c.localized[string(lang)]; ok && text != "" {
		return text
	}
	if text, ok := c.localized[string(LanguageEnglish)]; ok && text != "" {
		return text
	}
	// Deterministic "first available" regardless of map iteration order
	keys := make([]string, 0, len(c.localized))
	for k := range c.localized {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if c.localized[k] != "" {
			return c.localized[k]
		}
	}
	return ""
}

// UnmarshalJSON accepts either a plain string or an object of translations
func (c *Content) UnmarshalJSON(data []byte) error {
	var text string
	if err := json.Unmarshal(data, &text); err == nil {
		*c = Content{plain: text}
		return nil
	}

	var byLang map[string]string
	if err := json.Unmarshal(data, &byLang); err != nil {
		return err
	}
	*c = Content{localized: byLang}
	return nil
}

// MarshalJSON emits the same shape the content was created with
func (c Content) MarshalJSON() ([]byte, error) {
	if c.localized != nil {
		return json.Marshal(c.localized)
	}
	return json.Marshal(c.plain)
}
