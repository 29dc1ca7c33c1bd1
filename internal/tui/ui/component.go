package ui

import "github.com/rivo/tview"

// MenuHint describes a keyboard shortcut for display in the menu.
type MenuHint struct {
	Key         string
	Description string
	Numeric     bool // shown in the numeric key color
}

// Component is a page of the application.
type Component interface {
	tview.Primitive
	// Name is the page name, used for key scopes and breadcrumbs.
	Name() string
}
