package ui

import (
	"testing"

	"github.com/gdamore/tcell/v2"
)

func TestPromptSubmitTrims(t *testing.T) {
	p := NewPrompt(DefaultTheme())
	var got []string
	p.SetOnSubmit(func(mode PromptMode, text string) {
		if mode != PromptSearch {
			t.Errorf("mode = %v", mode)
		}
		got = append(got, text)
	})

	p.Activate(PromptSearch)
	p.SetText("  dune  ")
	p.done(tcell.KeyEnter)
	p.SetText("   ")
	p.done(tcell.KeyEnter)

	if len(got) != 1 || got[0] != "dune" {
		t.Errorf("submitted = %q", got)
	}
	if p.GetText() != "" {
		t.Errorf("text after submit = %q", p.GetText())
	}
}

func TestPromptHistoryPerMode(t *testing.T) {
	p := NewPrompt(DefaultTheme())

	p.Activate(PromptCommand)
	for _, cmd := range []string{"saved", "more", "more"} {
		p.SetText(cmd)
		p.done(tcell.KeyEnter)
	}
	p.Activate(PromptSearch)
	p.SetText("alien")
	p.done(tcell.KeyEnter)

	if h := p.History(PromptCommand); len(h) != 2 || h[0] != "saved" || h[1] != "more" {
		t.Errorf("command history = %q", h)
	}

	p.Activate(PromptCommand)
	p.done(tcell.KeyUp)
	if p.GetText() != "more" {
		t.Errorf("Up = %q, want more", p.GetText())
	}
	p.done(tcell.KeyUp)
	p.done(tcell.KeyUp)
	if p.GetText() != "saved" {
		t.Errorf("Up past oldest = %q, want saved", p.GetText())
	}
	p.done(tcell.KeyDown)
	p.done(tcell.KeyDown)
	if p.GetText() != "" {
		t.Errorf("Down past newest = %q, want empty", p.GetText())
	}
}

func TestPromptEscapeCancels(t *testing.T) {
	p := NewPrompt(DefaultTheme())
	cancelled := false
	p.SetOnCancel(func() { cancelled = true })
	p.Activate(PromptCommand)
	p.SetText("half")
	p.done(tcell.KeyEscape)
	if !cancelled || p.GetText() != "" {
		t.Errorf("cancelled = %v, text = %q", cancelled, p.GetText())
	}
}
