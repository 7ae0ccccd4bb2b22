package flow

import "testing"

const userKey = int64(42)

func completedWizard(t *testing.T) *Machine {
	t.Helper()
	m := NewMachine(NewStore())
	m.Start(userKey)
	if !m.SetLanguage(userKey, "en") {
		t.Fatalf("set language")
	}
	if !m.SetTopic(userKey, "Climate policy") {
		t.Fatalf("set topic")
	}
	answers := map[string]string{
		BriefAudience: "students",
		BriefRole:     "teacher",
		BriefGoal:     "inform",
		BriefTone:     "formal",
	}
	for key, answer := range answers {
		if !m.SetBriefAnswer(userKey, key, answer) {
			t.Fatalf("set brief %s", key)
		}
	}
	if !m.CompleteBrief(userKey) {
		t.Fatalf("complete brief")
	}
	return m
}

func TestWizardEndToEnd(t *testing.T) {
	m := completedWizard(t)
	if !m.SetTemplate(userKey, 2) {
		t.Fatalf("set template")
	}
	if !m.SetPageCount(userKey, 6) {
		t.Fatalf("set page count")
	}
	params, ok := m.SetGenerating(userKey, true)
	if !ok {
		t.Fatalf("set generating")
	}

	want := Params{
		Language:   "en",
		Topic:      "Climate policy",
		Audience:   "students",
		Role:       "teacher",
		Goal:       "inform",
		Tone:       "formal",
		TemplateID: 2,
		PageCount:  6,
		WithImages: true,
	}
	if params != want {
		t.Fatalf("params = %+v, want %+v", params, want)
	}

	state, ok := m.Get(userKey)
	if !ok || state.Step != StepDone {
		t.Fatalf("terminal state = %+v", state)
	}
	m.Clear(userKey)
	if _, ok := m.Get(userKey); ok {
		t.Fatalf("clear must delete the wizard")
	}
}

func TestSetTemplateRejectedWithIncompleteBrief(t *testing.T) {
	m := NewMachine(NewStore())
	m.Start(userKey)
	m.SetLanguage(userKey, "en")
	m.SetTopic(userKey, "Climate policy")
	m.SetBriefAnswer(userKey, BriefAudience, "students")
	m.SetBriefAnswer(userKey, BriefRole, "teacher")
	m.SetBriefAnswer(userKey, BriefGoal, "inform")
	// tone missing

	if m.CompleteBrief(userKey) {
		t.Fatalf("brief must not complete with 3 of 4 answers")
	}
	if m.SetTemplate(userKey, 2) {
		t.Fatalf("setTemplate before completed brief must be rejected")
	}
	state, _ := m.Get(userKey)
	if state.Step != StepBrief {
		t.Fatalf("rejected transition corrupted state: %s", state.Step)
	}
}

func TestTransitionsRejectWrongStep(t *testing.T) {
	m := NewMachine(NewStore())
	m.Start(userKey)

	if m.SetTopic(userKey, "too early") {
		t.Fatalf("topic before language")
	}
	if m.SetPageCount(userKey, 6) {
		t.Fatalf("page count at language step")
	}
	if _, ok := m.SetGenerating(userKey, false); ok {
		t.Fatalf("generating at language step")
	}
	if m.SetLanguage(999, "en") {
		t.Fatalf("transition without a wizard")
	}
}

func TestInputValidation(t *testing.T) {
	m := NewMachine(NewStore())
	m.Start(userKey)
	if m.SetLanguage(userKey, "  ") {
		t.Fatalf("blank language accepted")
	}
	m.SetLanguage(userKey, "EN ")
	state, _ := m.Get(userKey)
	if state.Language != "en" {
		t.Fatalf("language not normalized: %q", state.Language)
	}
	if m.SetTopic(userKey, "   ") {
		t.Fatalf("blank topic accepted")
	}
	m.SetTopic(userKey, "Topic")
	if m.SetBriefAnswer(userKey, "flavor", "sweet") {
		t.Fatalf("unknown brief key accepted")
	}
	if m.SetBriefAnswer(userKey, BriefAudience, "") {
		t.Fatalf("blank brief answer accepted")
	}
}

func TestPageCountBounds(t *testing.T) {
	m := completedWizard(t)
	m.SetTemplate(userKey, 1)
	if m.SetPageCount(userKey, MinPageCount-1) {
		t.Fatalf("page count below minimum accepted")
	}
	if m.SetPageCount(userKey, MaxPageCount+1) {
		t.Fatalf("page count above maximum accepted")
	}
	if !m.SetPageCount(userKey, MaxPageCount) {
		t.Fatalf("maximum page count rejected")
	}
}

func TestBackDiscardsStepFields(t *testing.T) {
	m := completedWizard(t)
	m.SetTemplate(userKey, 3)

	m.SetPageCount(userKey, 8)

	// images -> pages
	step, ok := m.Back(userKey)
	if !ok || step != StepPages {
		t.Fatalf("back from images: %s ok=%v", step, ok)
	}

	// pages -> template discards the page count
	step, ok = m.Back(userKey)
	if !ok || step != StepTemplate {
		t.Fatalf("back from pages: %s", step)
	}
	state, _ := m.Get(userKey)
	if state.PageCount != 0 {
		t.Fatalf("page count must be discarded when leaving its step, got %d", state.PageCount)
	}
	if state.Topic != "Climate policy" {
		t.Fatalf("upstream topic must survive: %q", state.Topic)
	}

	// template -> brief discards the template choice, brief answers survive
	step, ok = m.Back(userKey)
	if !ok || step != StepBrief {
		t.Fatalf("back from template: %s", step)
	}
	state, _ = m.Get(userKey)
	if state.TemplateID != 0 {
		t.Fatalf("template id must be discarded when leaving its step, got %d", state.TemplateID)
	}
	if state.Brief[BriefAudience] != "students" {
		t.Fatalf("brief answers must survive backing out of template: %v", state.Brief)
	}

	if !m.SetBriefAnswer(userKey, BriefAudience, "engineers") {
		t.Fatalf("wizard unusable after back")
	}
	if !m.CompleteBrief(userKey) {
		t.Fatalf("wizard cannot advance again after back")
	}
}

func TestNextBriefKeyFollowsPromptOrder(t *testing.T) {
	m := NewMachine(NewStore())
	m.Start(userKey)
	m.SetLanguage(userKey, "en")
	m.SetTopic(userKey, "Topic")

	key, ok := m.NextBriefKey(userKey)
	if !ok || key != BriefAudience {
		t.Fatalf("first brief key = %q", key)
	}
	m.SetBriefAnswer(userKey, BriefAudience, "students")
	key, _ = m.NextBriefKey(userKey)
	if key != BriefRole {
		t.Fatalf("second brief key = %q", key)
	}
}
