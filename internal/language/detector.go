// Package language detects which of the supported languages a scenario is
// written in, so prompts can instruct the model to answer in kind.
package language

import (
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/abadojack/whatlanggo"
	"go.uber.org/zap"
)

// Language is the closed set of supported output languages
type Language string

const (
	English    Language = "English"
	Portuguese Language = "Portuguese"
	Spanish    Language = "Spanish"
)

// MinClassifierLength is the shortest input handed to the statistical classifier
const MinClassifierLength = 10

// Code returns the ISO 639-1 code
func (l Language) Code() string {
	switch l {
	case Portuguese:
		return "pt"
	case Spanish:
		return "es"
	default:
		return "en"
	}
}

// FromCode maps an ISO 639-1 code into the closed set
func FromCode(code string) (Language, bool) {
	switch strings.ToLower(code) {
	case "en":
		return English, true
	case "pt":
		return Portuguese, true
	case "es":
		return Spanish, true
	}
	return "", false
}

// Parse accepts a language name or code; anything else is English
func Parse(s string) Language {
	if l, ok := FromCode(s); ok {
		return l
	}
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "portuguese", "português", "portugues":
		return Portuguese
	case "spanish", "español", "espanol":
		return Spanish
	}
	return English
}

// Classifier is a statistical language classifier. Classify returns an ISO
// 639-1 code and false when it cannot decide.
type Classifier interface {
	Classify(text string) (string, bool)
}

// Loader constructs the optional classifier. A failing loader leaves the
// detector on the heuristic path.
type Loader func() (Classifier, error)

// Detector picks a Language for free-form text. It is safe for concurrent use;
// the classifier is loaded at most once, on first use.
type Detector struct {
	load   Loader
	once   sync.Once
	cls    Classifier
	logger *zap.Logger
}

// NewDetector creates a detector. A nil loader disables the classifier.
func NewDetector(load Loader, logger *zap.Logger) *Detector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Detector{load: load, logger: logger.Named("language")}
}

// NewDefaultDetector uses the whatlanggo trigram classifier
func NewDefaultDetector(logger *zap.Logger) *Detector {
	return NewDetector(WhatlangLoader, logger)
}

func (d *Detector) classifier() Classifier {
	d.once.Do(func() {
		if d.load == nil {
			return
		}
		cls, err := d.load()
		if err != nil {
			d.logger.Warn("language classifier unavailable, using heuristic", zap.Error(err))
			return
		}
		d.cls = cls
	})
	return d.cls
}

// Detect always returns English, Portuguese or Spanish
func (d *Detector) Detect(text string) Language {
	text = strings.TrimSpace(text)
	if utf8.RuneCountInString(text) >= MinClassifierLength {
		if cls := d.classifier(); cls != nil {
			if code, ok := cls.Classify(text); ok {
				if lang, ok := FromCode(code); ok {
					return lang
				}
			}
		}
	}
	return Heuristic(text)
}

// WhatlangClassifier wraps whatlanggo restricted to the supported languages
type WhatlangClassifier struct {
	opts whatlanggo.Options
}

// NewWhatlangClassifier creates the trigram classifier
func NewWhatlangClassifier() *WhatlangClassifier {
	return &WhatlangClassifier{
		opts: whatlanggo.Options{
			Whitelist: map[whatlanggo.Lang]bool{
				whatlanggo.Eng: true,
				whatlanggo.Por: true,
				whatlanggo.Spa: true,
			},
		},
	}
}

// WhatlangLoader is the default Loader
func WhatlangLoader() (Classifier, error) {
	return NewWhatlangClassifier(), nil
}

// Classify implements Classifier
func (w *WhatlangClassifier) Classify(text string) (string, bool) {
	info := whatlanggo.DetectWithOptions(text, w.opts)
	if !info.IsReliable() {
		return "", false
	}
	code := info.Lang.Iso6391()
	return code, code != ""
}
