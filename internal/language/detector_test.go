package language

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeClassifier struct {
	code  string
	ok    bool
	calls atomic.Int32
}

func (f *fakeClassifier) Classify(string) (string, bool) {
	f.calls.Add(1)
	return f.code, f.ok
}

func TestHeuristic(t *testing.T) {
	tests := []struct {
		text string
		want Language
	}{
		{"", English},
		{"   ", English},
		{"The wizard enters a dark tavern", English},
		{"Um bardo na taverna", Portuguese},
		{"Un bardo en la taberna", Spanish},
		{"¿Dónde está el mago?", Spanish},
		{"Uma missão para o guerreiro", Portuguese},
		{"mago", English},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, Heuristic(tt.text))
		})
	}
}

func TestDetectUsesClassifier(t *testing.T) {
	cls := &fakeClassifier{code: "es", ok: true}
	d := NewDetector(func() (Classifier, error) { return cls, nil }, nil)

	assert.Equal(t, Spanish, d.Detect("this text is long enough for the classifier"))
	assert.Equal(t, int32(1), cls.calls.Load())
}

func TestDetectShortTextSkipsClassifier(t *testing.T) {
	cls := &fakeClassifier{code: "es", ok: true}
	d := NewDetector(func() (Classifier, error) { return cls, nil }, nil)

	assert.Equal(t, English, d.Detect("hi there"))
	assert.Equal(t, int32(0), cls.calls.Load())
}

func TestDetectFallsThroughToHeuristic(t *testing.T) {
	t.Run("unsupported code", func(t *testing.T) {
		d := NewDetector(func() (Classifier, error) { return &fakeClassifier{code: "fr", ok: true}, nil }, nil)
		assert.Equal(t, Portuguese, d.Detect("Um bardo na taverna com sua harpa"))
	})

	t.Run("undetermined", func(t *testing.T) {
		d := NewDetector(func() (Classifier, error) { return &fakeClassifier{ok: false}, nil }, nil)
		assert.Equal(t, Spanish, d.Detect("Un bardo en la taberna con su laúd"))
	})

	t.Run("loader error", func(t *testing.T) {
		d := NewDetector(func() (Classifier, error) { return nil, errors.New("not installed") }, nil)
		assert.Equal(t, English, d.Detect("A bard in the tavern with a lute"))
	})

	t.Run("no loader", func(t *testing.T) {
		d := NewDetector(nil, nil)
		assert.Equal(t, Portuguese, d.Detect("Um bardo na taverna com sua harpa"))
	})
}

func TestDetectLoadsClassifierOnce(t *testing.T) {
	var loads atomic.Int32
	cls := &fakeClassifier{code: "pt", ok: true}
	d := NewDetector(func() (Classifier, error) {
		loads.Add(1)
		return cls, nil
	}, nil)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.Equal(t, Portuguese, d.Detect("qualquer texto suficientemente longo"))
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), loads.Load())
}

func TestDefaultDetectorClosure(t *testing.T) {
	d := NewDefaultDetector(nil)
	inputs := []string{
		"",
		"x",
		"A grizzled dwarven blacksmith who secretly forges weapons for a rebel army in the capital.",
		"O aventureiro entrou na taverna escura procurando pelo mago desaparecido e encontrou apenas silêncio.",
		"El aventurero entró en la taberna oscura buscando al mago desaparecido y solo encontró silencio.",
		"Ceci n'est pas une pipe, c'est une taverne.",
		"12345 67890 !!!",
	}
	for _, in := range inputs {
		got := d.Detect(in)
		assert.Contains(t, []Language{English, Portuguese, Spanish}, got, in)
	}

	assert.Equal(t, English, d.Detect(inputs[2]))
	assert.Equal(t, Portuguese, d.Detect(inputs[3]))
	assert.Equal(t, Spanish, d.Detect(inputs[4]))
}

func TestParseAndCode(t *testing.T) {
	assert.Equal(t, Portuguese, Parse("pt"))
	assert.Equal(t, Spanish, Parse("Español"))
	assert.Equal(t, English, Parse("klingon"))
	assert.Equal(t, "es", Spanish.Code())
	_, ok := FromCode("fr")
	assert.False(t, ok)
}
