package vault

import (
	"os/exec"
	"strings"
)

// OpenInEditor launches an editor on a file without waiting for it to
// exit. Returns false when no editor is configured or the launch failed.
//
// An editor value containing spaces (e.g. "open -a Obsidian") runs via
// the shell so its arguments survive.
func OpenInEditor(editor, filePath string) bool {
	if editor == "" {
		return false
	}

	var cmd *exec.Cmd
	if strings.Contains(editor, " ") {
		cmd = exec.Command("sh", "-c", editor+" "+shellQuote(filePath))
	} else {
		cmd = exec.Command(editor, filePath)
	}
	return cmd.Start() == nil
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "'\"'\"'") + "'"
}
