package domain

import "strings"

// DialogMode is what an open dialog does with its target.
type DialogMode string

const (
	DialogCreate DialogMode = "create"
	DialogEdit   DialogMode = "edit"
	DialogDelete DialogMode = "delete"
	DialogView   DialogMode = "view"
)

// DialogState is the dialog a screen shows on top of its list. It lives in
// the screen URL (?dialog=edit&id=...) and is gone once the URL drops it.
type DialogState struct {
	Mode   DialogMode
	Target string
}

func (d DialogState) Open() bool { return d.Mode != "" }

func (d DialogState) Is(mode DialogMode) bool { return d.Mode == mode }

// ParseDialog reads the dialog query parameters. Unknown modes and modes
// that need a target but have none leave the dialog closed.
func ParseDialog(mode, target string) DialogState {
	m := DialogMode(strings.ToLower(strings.TrimSpace(mode)))
	target = strings.TrimSpace(target)
	switch m {
	case DialogCreate:
		return DialogState{Mode: m}
	case DialogEdit, DialogDelete, DialogView:
		if target == "" {
			return DialogState{}
		}
		return DialogState{Mode: m, Target: target}
	default:
		return DialogState{}
	}
}
