package tui

import (
	"context"
	"strings"

	"github.com/matheus3301/tele/internal/model"
)

// Command is a parsed ':' command line.
type Command struct {
	Name string
	Args string
}

// ParseCommand splits input (without the leading ':') into a lower-case
// name and the trimmed remainder.
func ParseCommand(input string) Command {
	name, args, _ := strings.Cut(strings.TrimSpace(input), " ")
	return Command{Name: strings.ToLower(name), Args: strings.TrimSpace(args)}
}

// aliases maps short forms to command names.
var aliases = map[string]string{
	"s": "search",
	"h": "help",
	"q": "quit",
}

// Canonical returns the command name with aliases resolved.
func (c Command) Canonical() string {
	if full, ok := aliases[c.Name]; ok {
		return full
	}
	return c.Name
}

func (a *App) runCommand(cmd Command) {
	switch cmd.Canonical() {
	case "search":
		if cmd.Args == "" {
			a.show("search")
			return
		}
		a.runSearch(cmd.Args)
	case "saved":
		a.pages.Reset("browse")
		a.openCollection(model.PersonalStore())
	case "refresh":
		a.async("Refresh failed", a.vm.RefreshCandidates)
	case "more":
		a.loadMore()
	case "logout":
		a.async("Logout failed", func(ctx context.Context) error { return a.vm.LogOut(ctx) })
	case "help":
		a.show("help")
	case "quit":
		a.Stop()
	case "":
	default:
		a.flash.Warn("Unknown command: " + cmd.Name)
	}
}
