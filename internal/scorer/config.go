package scorer

import (
	"fmt"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Lexicon holds the fixed phrase lists the text heuristics match against.
// Phrases are matched case-insensitively on whole words.
type Lexicon struct {
	AIPhrases          []string `yaml:"ai_phrases"`
	HumanMarkers       []string `yaml:"human_markers"`
	CasualHedges       []string `yaml:"casual_hedges"`
	Connectors         []string `yaml:"connectors"`
	TruncationWords    []string `yaml:"truncation_words"`
	TemplatePhrases    []string `yaml:"template_phrases"`
	PersonalMarkers    []string `yaml:"personal_markers"`
	SpecificityMarkers []string `yaml:"specificity_markers"`
	Subordinators      []string `yaml:"subordinators"`
}

// DefaultLexicon returns the built-in English lexicon.
func DefaultLexicon() Lexicon {
	return Lexicon{
		AIPhrases: []string{
			"as an ai", "i cannot", "it's important to note", "it's worth noting",
			"that being said", "furthermore", "moreover", "additionally", "delve",
			"crucial", "facilitate", "utilize", "leverage", "comprehensive",
			"in conclusion", "to summarize", "let me", "in today's fast-paced world",
			"a testament to", "navigate the complexities",
		},
		HumanMarkers: []string{
			"don't", "can't", "won't", "i'm", "i've", "yeah", "yep", "nope",
			"kinda", "gonna", "tbh", "imo", "lol", "haha", "i think", "i guess",
			"maybe", "probably", "actually", "honestly", "basically", "wow", "oh", "hmm",
		},
		CasualHedges: []string{
			"honestly", "i guess", "kinda", "sort of", "i think", "probably",
			"maybe", "to be fair", "i mean", "pretty much",
		},
		Connectors: []string{
			"because", "since", "therefore", "thus", "hence", "but", "however",
			"although", "though", "yet", "and", "also", "additionally", "furthermore",
			"first", "second", "finally", "then", "next", "for example",
			"specifically", "such as", "so", "while",
		},
		TruncationWords: []string{"and", "but", "the", "a", "to", "that", "which", "or", "of"},
		TemplatePhrases: []string{
			"this is a great", "i think this is", "in conclusion", "to summarize",
			"i would recommend", "overall i believe", "in my opinion", "it's important to",
			"as mentioned", "first of all", "last but not least", "at the end of the day",
		},
		PersonalMarkers: []string{
			"i", "my", "me", "i'm", "i've", "i'll", "personally", "in my experience",
			"for me", "my situation", "my home", "my job", "my family",
		},
		SpecificityMarkers: []string{
			"specifically", "for example", "for instance", "because", "since",
			"last week", "yesterday", "about", "around", "miles", "minutes", "hours",
		},
		Subordinators: []string{
			"because", "although", "though", "while", "whereas", "since", "unless",
			"which", "who", "that", "when", "if", "after", "before", "until",
		},
	}
}

// LoadLexicon reads a YAML lexicon from path. Lists absent from the file
// keep their built-in defaults. An empty path returns DefaultLexicon.
func LoadLexicon(path string) (Lexicon, error) {
	lex := DefaultLexicon()
	if path == "" {
		return lex, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return Lexicon{}, eris.Wrapf(err, "scorer: read lexicon %s", path)
	}

	var override Lexicon
	if err := yaml.Unmarshal(raw, &override); err != nil {
		return Lexicon{}, eris.Wrapf(err, "scorer: parse lexicon %s", path)
	}

	merge := func(dst *[]string, src []string) {
		if len(src) > 0 {
			*dst = src
		}
	}
	merge(&lex.AIPhrases, override.AIPhrases)
	merge(&lex.HumanMarkers, override.HumanMarkers)
	merge(&lex.CasualHedges, override.CasualHedges)
	merge(&lex.Connectors, override.Connectors)
	merge(&lex.TruncationWords, override.TruncationWords)
	merge(&lex.TemplatePhrases, override.TemplatePhrases)
	merge(&lex.PersonalMarkers, override.PersonalMarkers)
	merge(&lex.SpecificityMarkers, override.SpecificityMarkers)
	merge(&lex.Subordinators, override.Subordinators)

	if err := ValidateLexicon(lex); err != nil {
		return Lexicon{}, err
	}
	return lex, nil
}

// ValidateLexicon checks that every list is populated and free of blank
// entries.
func ValidateLexicon(l Lexicon) error {
	var errs []string

	lists := []struct {
		name    string
		entries []string
	}{
		{"ai_phrases", l.AIPhrases},
		{"human_markers", l.HumanMarkers},
		{"casual_hedges", l.CasualHedges},
		{"connectors", l.Connectors},
		{"truncation_words", l.TruncationWords},
		{"template_phrases", l.TemplatePhrases},
		{"personal_markers", l.PersonalMarkers},
		{"specificity_markers", l.SpecificityMarkers},
		{"subordinators", l.Subordinators},
	}
	for _, list := range lists {
		if len(list.entries) == 0 {
			errs = append(errs, fmt.Sprintf("%s must not be empty", list.name))
			continue
		}
		for i, e := range list.entries {
			if strings.TrimSpace(e) == "" {
				errs = append(errs, fmt.Sprintf("%s[%d] is blank", list.name, i))
			}
		}
	}

	if len(errs) > 0 {
		return eris.Errorf("scorer: lexicon validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
