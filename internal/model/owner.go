package model

import (
	"strings"
	"time"
)

// OwnerProfile identifies the single authorized user.
type OwnerProfile struct {
	Name        string            `json:"name" yaml:"name"`
	AuthPhrase  string            `json:"auth_phrase,omitempty" yaml:"auth_phrase,omitempty"`
	AuthPhrases []string          `json:"auth_phrases,omitempty" yaml:"auth_phrases,omitempty"`
	WakeWords   []string          `json:"wake_words,omitempty" yaml:"wake_words,omitempty"`
	Preferences map[string]string `json:"preferences,omitempty" yaml:"preferences,omitempty"`
	LastAccess  *time.Time        `json:"last_access,omitempty" yaml:"-"`
}

// Phrases returns the accepted authorization phrases, lower-cased with
// blanks dropped. The legacy single AuthPhrase is used only when the list
// is empty.
func (o *OwnerProfile) Phrases() []string {
	src := o.AuthPhrases
	if len(src) == 0 && o.AuthPhrase != "" {
		src = []string{o.AuthPhrase}
	}
	return normalize(src)
}

// NameTokens returns the lower-cased whitespace-separated parts of Name.
func (o *OwnerProfile) NameTokens() []string {
	return normalize(strings.Fields(o.Name))
}

// Wake returns the lower-cased wake words with blanks dropped.
func (o *OwnerProfile) Wake() []string {
	return normalize(o.WakeWords)
}

// Clone returns a deep copy so callers can mutate without racing readers.
func (o *OwnerProfile) Clone() *OwnerProfile {
	if o == nil {
		return nil
	}
	c := *o
	c.AuthPhrases = append([]string(nil), o.AuthPhrases...)
	c.WakeWords = append([]string(nil), o.WakeWords...)
	if o.Preferences != nil {
		c.Preferences = make(map[string]string, len(o.Preferences))
		for k, v := range o.Preferences {
			c.Preferences[k] = v
		}
	}
	if o.LastAccess != nil {
		t := *o.LastAccess
		c.LastAccess = &t
	}
	return &c
}

func normalize(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
