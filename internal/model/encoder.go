package model

import "strings"

// LabelEncoder maps a class label to its index in the fitted class list.
type LabelEncoder struct {
	classes []string
	index   map[string]int
}

func NewLabelEncoder(spec EncoderSpec) *LabelEncoder {
	e := &LabelEncoder{
		classes: append([]string(nil), spec.Classes...),
		index:   make(map[string]int, len(spec.Classes)),
	}
	for i, c := range spec.Classes {
		key := strings.TrimSpace(c)
		if _, dup := e.index[key]; !dup {
			e.index[key] = i
		}
	}
	return e
}

func (e *LabelEncoder) Encode(label string) (int, bool) {
	if e == nil {
		return 0, false
	}
	i, ok := e.index[strings.TrimSpace(label)]
	return i, ok
}

func (e *LabelEncoder) Classes() []string {
	if e == nil {
		return nil
	}
	return append([]string(nil), e.classes...)
}
