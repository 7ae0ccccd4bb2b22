// Package flow holds the per-user generation wizard: a linear sequence of
// steps collecting everything the pipeline needs. State lives only in process
// memory; no generation record exists until the terminal step, so losing an
// in-progress wizard on restart costs nothing but retyping.
package flow

import (
	"strings"
	"sync"
)

type Step string

const (
	StepLanguage Step = "awaiting_language"
	StepTopic    Step = "awaiting_topic"
	StepBrief    Step = "awaiting_brief_answer"
	StepTemplate Step = "awaiting_template"
	StepPages    Step = "awaiting_page_count"
	StepImages   Step = "awaiting_image_preference"
	StepDone     Step = "generating"
)

// Brief answer keys, all four required before leaving StepBrief.
const (
	BriefAudience = "audience"
	BriefRole     = "role"
	BriefGoal     = "goal"
	BriefTone     = "tone"
)

// BriefKeys is the prompt order of the brief questions.
var BriefKeys = []string{BriefAudience, BriefRole, BriefGoal, BriefTone}

const (
	MinPageCount = 3
	MaxPageCount = 15
)

// State is one user's wizard progress.
type State struct {
	Step       Step
	Language   string
	Topic      string
	Brief      map[string]string
	TemplateID int
	PageCount  int
	WithImages bool
	// PromptMessageID references the last prompt sent, retracted later.
	PromptMessageID int
}

func (s *State) briefComplete() bool {
	for _, key := range BriefKeys {
		if strings.TrimSpace(s.Brief[key]) == "" {
			return false
		}
	}
	return true
}

// Params is the completed wizard output consumed by the pipeline.
type Params struct {
	Language   string
	Topic      string
	Audience   string
	Role       string
	Goal       string
	Tone       string
	TemplateID int
	PageCount  int
	WithImages bool
}

// Store is the keyed in-memory flow state map. All access goes through the
// mutex; there is no other synchronization for per-user wizards.
type Store struct {
	mu     sync.RWMutex
	states map[int64]State
}

// NewStore initializes an empty flow store.
func NewStore() *Store {
	return &Store{states: make(map[int64]State)}
}

// Machine advances wizard states with guarded transitions. Every Set*
// rejects (returns false) unless the wizard is at the exact expected step
// with all upstream fields populated; callers re-prompt instead of
// corrupting state.
type Machine struct {
	states *Store
}

// NewMachine binds a machine to a state store.
func NewMachine(states *Store) *Machine {
	return &Machine{states: states}
}

// Get returns a copy of the user's state.
func (m *Machine) Get(userKey int64) (State, bool) {
	m.states.mu.RLock()
	defer m.states.mu.RUnlock()
	s, ok := m.states.states[userKey]
	return s, ok
}

// Start opens a fresh wizard, replacing any abandoned one.
func (m *Machine) Start(userKey int64) State {
	m.states.mu.Lock()
	defer m.states.mu.Unlock()
	s := State{Step: StepLanguage, Brief: make(map[string]string)}
	m.states.states[userKey] = s
	return s
}

// Clear is the only deletion path; it runs after every terminal outcome.
func (m *Machine) Clear(userKey int64) {
	m.states.mu.Lock()
	defer m.states.mu.Unlock()
	delete(m.states.states, userKey)
}

// SetPromptMessage remembers the prompt message to retract later.
func (m *Machine) SetPromptMessage(userKey int64, messageID int) {
	m.states.mu.Lock()
	defer m.states.mu.Unlock()
	if s, ok := m.states.states[userKey]; ok {
		s.PromptMessageID = messageID
		m.states.states[userKey] = s
	}
}

func (m *Machine) update(userKey int64, expect Step, apply func(*State) bool) bool {
	m.states.mu.Lock()
	defer m.states.mu.Unlock()
	s, ok := m.states.states[userKey]
	if !ok || s.Step != expect {
		return false
	}
	if !apply(&s) {
		return false
	}
	m.states.states[userKey] = s
	return true
}

// SetLanguage moves awaiting_language -> awaiting_topic.
func (m *Machine) SetLanguage(userKey int64, language string) bool {
	language = strings.ToLower(strings.TrimSpace(language))
	if language == "" {
		return false
	}
	return m.update(userKey, StepLanguage, func(s *State) bool {
		s.Language = language
		s.Step = StepTopic
		return true
	})
}

// SetTopic moves awaiting_topic -> awaiting_brief_answer.
func (m *Machine) SetTopic(userKey int64, topic string) bool {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return false
	}
	return m.update(userKey, StepTopic, func(s *State) bool {
		if s.Language == "" {
			return false
		}
		s.Topic = topic
		s.Step = StepBrief
		return true
	})
}

// SetBriefAnswer stores one of the four brief answers. The wizard stays at
// awaiting_brief_answer until CompleteBrief.
func (m *Machine) SetBriefAnswer(userKey int64, key, answer string) bool {
	answer = strings.TrimSpace(answer)
	if answer == "" || !validBriefKey(key) {
		return false
	}
	return m.update(userKey, StepBrief, func(s *State) bool {
		if s.Language == "" || s.Topic == "" {
			return false
		}
		if s.Brief == nil {
			s.Brief = make(map[string]string)
		}
		s.Brief[key] = answer
		return true
	})
}

// NextBriefKey returns the first unanswered brief question.
func (m *Machine) NextBriefKey(userKey int64) (string, bool) {
	s, ok := m.Get(userKey)
	if !ok || s.Step != StepBrief {
		return "", false
	}
	for _, key := range BriefKeys {
		if strings.TrimSpace(s.Brief[key]) == "" {
			return key, true
		}
	}
	return "", false
}

// CompleteBrief moves awaiting_brief_answer -> awaiting_template once all
// four answers are non-empty.
func (m *Machine) CompleteBrief(userKey int64) bool {
	return m.update(userKey, StepBrief, func(s *State) bool {
		if !s.briefComplete() {
			return false
		}
		s.Step = StepTemplate
		return true
	})
}

// SetTemplate moves awaiting_template -> awaiting_page_count.
func (m *Machine) SetTemplate(userKey int64, templateID int) bool {
	if templateID <= 0 {
		return false
	}
	return m.update(userKey, StepTemplate, func(s *State) bool {
		if s.Language == "" || s.Topic == "" || !s.briefComplete() {
			return false
		}
		s.TemplateID = templateID
		s.Step = StepPages
		return true
	})
}

// SetPageCount moves awaiting_page_count -> awaiting_image_preference.
func (m *Machine) SetPageCount(userKey int64, pages int) bool {
	if pages < MinPageCount || pages > MaxPageCount {
		return false
	}
	return m.update(userKey, StepPages, func(s *State) bool {
		if s.TemplateID == 0 {
			return false
		}
		s.PageCount = pages
		s.Step = StepImages
		return true
	})
}

// SetGenerating is the terminal transition. It captures the image flag and
// returns the completed parameters; the state stays in the store until the
// pipeline finishes and calls Clear.
func (m *Machine) SetGenerating(userKey int64, withImages bool) (Params, bool) {
	var params Params
	ok := m.update(userKey, StepImages, func(s *State) bool {
		if s.Language == "" || s.Topic == "" || s.TemplateID == 0 || s.PageCount == 0 {
			return false
		}
		s.WithImages = withImages
		s.Step = StepDone
		params = Params{
			Language:   s.Language,
			Topic:      s.Topic,
			Audience:   s.Brief[BriefAudience],
			Role:       s.Brief[BriefRole],
			Goal:       s.Brief[BriefGoal],
			Tone:       s.Brief[BriefTone],
			TemplateID: s.TemplateID,
			PageCount:  s.PageCount,
			WithImages: withImages,
		}
		return true
	})
	return params, ok
}

// Back steps the wizard one step backwards, discarding the fields specific
// to the step being left. Returns the new step.
func (m *Machine) Back(userKey int64) (Step, bool) {
	m.states.mu.Lock()
	defer m.states.mu.Unlock()
	s, ok := m.states.states[userKey]
	if !ok {
		return "", false
	}
	switch s.Step {
	case StepTopic:
		s.Topic = ""
		s.Step = StepLanguage
	case StepBrief:
		s.Brief = make(map[string]string)
		s.Step = StepTopic
	case StepTemplate:
		s.TemplateID = 0
		s.Step = StepBrief
	case StepPages:
		s.PageCount = 0
		s.Step = StepTemplate
	case StepImages:
		s.WithImages = false
		s.Step = StepPages
	default:
		return "", false
	}
	m.states.states[userKey] = s
	return s.Step, true
}

func validBriefKey(key string) bool {
	for _, k := range BriefKeys {
		if k == key {
			return true
		}
	}
	return false
}
