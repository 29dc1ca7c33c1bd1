package ui

import (
	"slices"
	"testing"

	"github.com/rivo/tview"
)

type page struct {
	*tview.Box
	name string
}

func (p page) Name() string { return p.name }

func newPages(names ...string) *Pages {
	p := NewPages()
	for _, n := range names {
		p.Add(page{Box: tview.NewBox(), name: n})
	}
	return p
}

func TestPagesStack(t *testing.T) {
	p := newPages("browse", "search", "details")
	var changes [][]string
	p.SetOnChange(func(s []string) { changes = append(changes, s) })

	p.Reset("browse")
	p.Push("search")
	p.Push("details")
	if got := p.Stack(); !slices.Equal(got, []string{"browse", "search", "details"}) {
		t.Fatalf("stack = %v", got)
	}
	if front, _ := p.GetFrontPage(); front != "details" {
		t.Errorf("front = %q", front)
	}

	if got := p.Pop(); got != "details" {
		t.Errorf("Pop() = %q", got)
	}
	if p.Current() != "search" {
		t.Errorf("current = %q", p.Current())
	}
	if len(changes) != 4 {
		t.Errorf("change callbacks = %d, want 4", len(changes))
	}
}

func TestPagesPushExisting(t *testing.T) {
	p := newPages("browse", "search", "details")
	p.Reset("browse")
	p.Push("search")
	p.Push("details")

	p.Push("browse")
	if got := p.Stack(); !slices.Equal(got, []string{"browse"}) {
		t.Errorf("stack = %v, want [browse]", got)
	}
	if front, _ := p.GetFrontPage(); front != "browse" {
		t.Errorf("front = %q", front)
	}
}

func TestPagesPopKeepsRoot(t *testing.T) {
	p := newPages("auth")
	p.Reset("auth")
	if got := p.Pop(); got != "" {
		t.Errorf("Pop() on root = %q", got)
	}
	if p.Current() != "auth" {
		t.Errorf("current = %q", p.Current())
	}
	if p.Component("auth") == nil || p.Component("missing") != nil {
		t.Error("Component lookup")
	}
}
