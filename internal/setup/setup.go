// Package setup registers the wordmask MCP server with supported coding
// agents (Claude Code, Cursor, Codex, OpenCode) and removes it again.
package setup

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
)

// ServerName is the key the MCP entry is stored under in agent configs.
const ServerName = "wordmask"

// Result is the return value from all Setup/Uninstall functions.
type Result struct {
	Status  string // always "ok"
	Message string
}

func ok(msg string) Result          { return Result{Status: "ok", Message: msg} }
func okf(f string, a ...any) Result { return ok(fmt.Sprintf(f, a...)) }

// Server describes how an agent launches the wordmask MCP server.
type Server struct {
	Command string
	Args    []string
}

// NewServer returns the stdio launch command for `wordmask mcp`. A non-empty
// home is pinned with --home so the agent uses the same word store as the
// CLI that registered it.
func NewServer(home string) Server {
	args := []string{"mcp"}
	if home != "" {
		args = []string{"--home", home, "mcp"}
	}
	return Server{Command: "wordmask", Args: args}
}

func (s Server) argsAny() []any {
	out := make([]any, len(s.Args))
	for i, a := range s.Args {
		out[i] = a
	}
	return out
}

// mcpServersEntry is the entry format used by Claude Code and Cursor.
func (s Server) mcpServersEntry() map[string]any {
	return map[string]any{
		"command": s.Command,
		"args":    s.argsAny(),
		"type":    "stdio",
	}
}

// opencodeEntry is the entry format used by OpenCode.
func (s Server) opencodeEntry() map[string]any {
	return map[string]any{
		"type":    "local",
		"command": append([]any{s.Command}, s.argsAny()...),
	}
}

// tomlSection is the Codex config.toml table.
func (s Server) tomlSection() string {
	quoted := make([]string, len(s.Args))
	for i, a := range s.Args {
		quoted[i] = strconv.Quote(a)
	}
	return fmt.Sprintf("\n[%s]\ncommand = %s\nargs = [%s]\n",
		tomlTable, strconv.Quote(s.Command), strings.Join(quoted, ", "))
}

// ---------------------------------------------------------------------------
// Default path helpers
// ---------------------------------------------------------------------------

// DefaultClaudeHome returns the default ~/.claude directory.
func DefaultClaudeHome() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".claude")
}

// DefaultCursorHome returns the default ~/.cursor directory.
func DefaultCursorHome() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".cursor")
}

// DefaultCodexHome returns the default ~/.codex directory.
func DefaultCodexHome() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".codex")
}

// ---------------------------------------------------------------------------
// JSON helpers
// ---------------------------------------------------------------------------

// readJSON loads a JSON object. A missing file reads as an empty object; a
// file that is not a JSON object is an error so it is never overwritten.
func readJSON(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return make(map[string]any), nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", path)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, errors.Wrapf(err, "parse %s", path)
	}
	if m == nil {
		m = make(map[string]any)
	}
	return m, nil
}

func writeJSON(path string, data map[string]any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, "create config dir")
	}
	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return err
	}
	b = append(b, '\n')
	return os.WriteFile(path, b, 0o644) // #nosec G306 -- agent config files (MCP server entries) do not contain secrets
}

// installEntry adds entry under data[section][ServerName] unless present.
func installEntry(path, section string, entry map[string]any) (bool, error) {
	data, err := readJSON(path)
	if err != nil {
		return false, err
	}
	servers, _ := data[section].(map[string]any)
	if servers == nil {
		servers = make(map[string]any)
		data[section] = servers
	}
	if _, exists := servers[ServerName]; exists {
		return false, nil
	}
	servers[ServerName] = entry
	return true, writeJSON(path, data)
}

// uninstallEntry removes data[section][ServerName]. Empty containers are
// pruned and a file left with nothing in it is deleted.
func uninstallEntry(path, section string) (bool, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return false, nil
	}
	data, err := readJSON(path)
	if err != nil {
		return false, err
	}
	servers, _ := data[section].(map[string]any)
	if _, exists := servers[ServerName]; !exists {
		return false, nil
	}
	delete(servers, ServerName)
	if len(servers) == 0 {
		delete(data, section)
	}
	if len(data) == 0 {
		return true, os.Remove(path)
	}
	return true, writeJSON(path, data)
}

// ---------------------------------------------------------------------------
// TOML helpers (text-based; only handles the [mcp_servers.wordmask] table)
// ---------------------------------------------------------------------------

const tomlTable = "mcp_servers." + ServerName

func hasTOMLSection(path string) (bool, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrapf(err, "read %s", path)
	}
	return strings.Contains(string(data), "["+tomlTable+"]"), nil
}

func appendTOMLSection(path string, srv Server) (bool, error) {
	if has, err := hasTOMLSection(path); err != nil || has {
		return false, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, errors.Wrap(err, "create config dir")
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644) // #nosec G302 -- agent TOML config is not a sensitive credential file
	if err != nil {
		return false, err
	}
	defer f.Close()
	if _, err := f.WriteString(srv.tomlSection()); err != nil {
		return false, err
	}
	return true, nil
}

func removeTOMLSection(path string) (bool, error) {
	has, err := hasTOMLSection(path)
	if err != nil || !has {
		return false, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return false, err
	}
	// Skip the table header and its key-value pairs up to the next table
	// header or EOF.
	lines := strings.Split(string(data), "\n")
	result := make([]string, 0, len(lines))
	inSection := false
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "["+tomlTable+"]" {
			inSection = true
			continue
		}
		if inSection && strings.HasPrefix(trimmed, "[") {
			inSection = false
		}
		if !inSection {
			result = append(result, line)
		}
	}
	cleaned := strings.TrimRight(strings.Join(result, "\n"), "\n") + "\n"
	return true, os.WriteFile(path, []byte(cleaned), 0o644) // #nosec G306 -- agent TOML config is not a sensitive credential file
}

// ---------------------------------------------------------------------------
// Claude Code
// ---------------------------------------------------------------------------

//revive:disable:flag-parameter
func claudeMCPPath(claudeHome string, project bool) string {
	if project {
		return filepath.Join(filepath.Dir(claudeHome), ".mcp.json")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".claude.json")
}

func claudeScope(project bool) string {
	if project {
		return ".mcp.json"
	}
	return "~/.claude.json"
}

// SetupClaudeCode registers the MCP server with Claude Code, either in the
// project's .mcp.json or in ~/.claude.json. claudeHome defaults to ~/.claude
// when empty.
func SetupClaudeCode(claudeHome string, project bool, srv Server) (Result, error) {
	if claudeHome == "" {
		claudeHome = DefaultClaudeHome()
	}
	added, err := installEntry(claudeMCPPath(claudeHome, project), "mcpServers", srv.mcpServersEntry())
	if err != nil {
		return Result{}, errors.Wrap(err, "setup claude-code")
	}
	if !added {
		return ok("Already installed"), nil
	}
	return okf("Installed: mcpServers in %s", claudeScope(project)), nil
}

// UninstallClaudeCode removes the MCP server from Claude Code.
func UninstallClaudeCode(claudeHome string, project bool) (Result, error) {
	if claudeHome == "" {
		claudeHome = DefaultClaudeHome()
	}
	removed, err := uninstallEntry(claudeMCPPath(claudeHome, project), "mcpServers")
	if err != nil {
		return Result{}, errors.Wrap(err, "uninstall claude-code")
	}
	if !removed {
		return ok("Nothing to remove"), nil
	}
	return okf("Removed: mcpServers from %s", claudeScope(project)), nil
}

//revive:enable:flag-parameter

// ---------------------------------------------------------------------------
// Cursor
// ---------------------------------------------------------------------------

// SetupCursor registers the MCP server in <cursorHome>/mcp.json.
// cursorHome defaults to ~/.cursor when empty.
func SetupCursor(cursorHome string, srv Server) (Result, error) {
	if cursorHome == "" {
		cursorHome = DefaultCursorHome()
	}
	added, err := installEntry(filepath.Join(cursorHome, "mcp.json"), "mcpServers", srv.mcpServersEntry())
	if err != nil {
		return Result{}, errors.Wrap(err, "setup cursor")
	}
	if !added {
		return ok("Already installed"), nil
	}
	return ok("Installed: mcpServers"), nil
}

// UninstallCursor removes the MCP server from Cursor.
func UninstallCursor(cursorHome string) (Result, error) {
	if cursorHome == "" {
		cursorHome = DefaultCursorHome()
	}
	removed, err := uninstallEntry(filepath.Join(cursorHome, "mcp.json"), "mcpServers")
	if err != nil {
		return Result{}, errors.Wrap(err, "uninstall cursor")
	}
	if !removed {
		return ok("Nothing to remove"), nil
	}
	return ok("Removed: mcpServers"), nil
}

// ---------------------------------------------------------------------------
// Codex
// ---------------------------------------------------------------------------

// SetupCodex appends an [mcp_servers.wordmask] table to config.toml.
// codexHome defaults to ~/.codex when empty.
func SetupCodex(codexHome string, srv Server) (Result, error) {
	if codexHome == "" {
		codexHome = DefaultCodexHome()
	}
	added, err := appendTOMLSection(filepath.Join(codexHome, "config.toml"), srv)
	if err != nil {
		return Result{}, errors.Wrap(err, "setup codex")
	}
	if !added {
		return ok("Already installed"), nil
	}
	return ok("Installed: config.toml"), nil
}

// UninstallCodex removes the wordmask table from config.toml.
func UninstallCodex(codexHome string) (Result, error) {
	if codexHome == "" {
		codexHome = DefaultCodexHome()
	}
	removed, err := removeTOMLSection(filepath.Join(codexHome, "config.toml"))
	if err != nil {
		return Result{}, errors.Wrap(err, "uninstall codex")
	}
	if !removed {
		return ok("Nothing to remove"), nil
	}
	return ok("Removed: config.toml"), nil
}

// ---------------------------------------------------------------------------
// OpenCode
// ---------------------------------------------------------------------------

// OpencodePath returns the OpenCode config file: opencode.json in dir for a
// project install, ~/.config/opencode/opencode.json otherwise.
//
//revive:disable:flag-parameter
func OpencodePath(dir string, project bool) string {
	if project {
		if dir == "" {
			dir, _ = os.Getwd()
		}
		return filepath.Join(dir, "opencode.json")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "opencode", "opencode.json")
}

//revive:enable:flag-parameter

// SetupOpencode registers the MCP server in the OpenCode config at path.
func SetupOpencode(path string, srv Server) (Result, error) {
	added, err := installEntry(path, "mcp", srv.opencodeEntry())
	if err != nil {
		return Result{}, errors.Wrap(err, "setup opencode")
	}
	if !added {
		return ok("Already installed"), nil
	}
	return okf("Installed: mcp in %s", filepath.Base(path)), nil
}

// UninstallOpencode removes the MCP server from the OpenCode config at path.
func UninstallOpencode(path string) (Result, error) {
	removed, err := uninstallEntry(path, "mcp")
	if err != nil {
		return Result{}, errors.Wrap(err, "uninstall opencode")
	}
	if !removed {
		return ok("Nothing to remove"), nil
	}
	return okf("Removed: mcp from %s", filepath.Base(path)), nil
}
