package cli

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const (
	exprA = "{web01:system.cpu.load.last()}>1"
	exprB = "{web01:agent.version.str(5.0)}=1"
)

const inventoryYAML = `
hosts:
  - host: web01
    items:
      - itemid: 1001
        key: system.cpu.load
        value_type: 0
      - itemid: 1002
        key: agent.version
        value_type: 1
`

func executeCommand(args ...string) (string, error) {
	var out bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func writeInventory(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "inventory.yaml")
	require.NoError(t, os.WriteFile(path, []byte(inventoryYAML), 0o600))
	return path
}

func requireExitCode(t *testing.T, err error, code int) {
	t.Helper()
	var exitErr *ExitError
	require.True(t, errors.As(err, &exitErr), "expected ExitError, got %v", err)
	require.Equal(t, code, exitErr.Code)
}

func TestTokens(t *testing.T) {
	out, err := executeCommand("tokens", "1>0")
	require.NoError(t, err)
	require.Contains(t, out, "NUMBER")
	require.Contains(t, out, "COMPARISON_OP")

	_, err = executeCommand("tokens", `"open`)
	requireExitCode(t, err, exitInvalid)
}

func TestTree(t *testing.T) {
	out, err := executeCommand("tree", exprA+" or "+exprB)
	require.NoError(t, err)
	require.Contains(t, out, "OR "+exprA+" or "+exprB+" [0_")
	require.Contains(t, out, "  A "+exprA+" [0_31]")
	require.Contains(t, out, "  B "+exprB)

	_, err = executeCommand("tree", "1 and")
	requireExitCode(t, err, exitInvalid)
}

func TestOutline(t *testing.T) {
	out, err := executeCommand("outline", exprA+" and ({db01:x.last()}=1 or "+exprB+")", "--inventory", writeInventory(t))
	require.NoError(t, err)
	require.Contains(t, out, "A and (B or C)\n")
	require.Contains(t, out, "A: "+exprA+"\n")
	require.Contains(t, out, "B: {db01:x.last()}=1\n   ! HOST_UNKNOWN")
}

func TestEdit(t *testing.T) {
	out, err := executeCommand("edit", exprA, "--target", "0_31", "--action", "and", "--new", exprB)
	require.NoError(t, err)
	require.Equal(t, exprA+" and "+exprB+"\n", out)

	_, err = executeCommand("edit", exprA, "--target", "0_31", "--action", "R")
	requireExitCode(t, err, exitInvalid)

	_, err = executeCommand("edit", exprA, "--target", "0_31", "--action", "x", "--new", exprB)
	requireExitCode(t, err, exitInvalid)

	_, err = executeCommand("edit", exprA, "--action", "and")
	require.Error(t, err)
}

func TestEval(t *testing.T) {
	out, err := executeCommand("eval", exprA, "--macro", "{web01:system.cpu.load.last()}=2.5")
	require.NoError(t, err)
	require.Equal(t, "true\n", out)

	out, err = executeCommand("eval", "{$LIMIT}<1", "--macro", "{$LIMIT}=3")
	require.NoError(t, err)
	require.Equal(t, "false\n", out)

	_, err = executeCommand("eval", exprA)
	requireExitCode(t, err, exitUndecided)

	_, err = executeCommand("eval", exprA, "--macro", "novalue")
	requireExitCode(t, err, exitInvalid)
}

func TestParseMacros(t *testing.T) {
	subs, err := parseMacros([]string{"{h:k[a=b].last()}=5", "{$X}="})
	require.NoError(t, err)
	require.Equal(t, map[string]string{"{h:k[a=b].last()}": "5", "{$X}": ""}, subs)

	_, err = parseMacros([]string{"=5"})
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	inv := writeInventory(t)

	out, err := executeCommand("validate", exprA, exprB, "--inventory", inv, "--cache-size", "10")
	require.NoError(t, err)
	require.Contains(t, out, exprA+": OK\n")
	require.Contains(t, out, exprB+": OK\n")

	out, err = executeCommand("validate", "{web01:missing.last()}=1", "1 +", "--inventory", inv)
	requireExitCode(t, err, exitInvalid)
	require.Contains(t, out, "HOST_ITEM_UNKNOWN")
	require.Contains(t, out, "1 +: ")

	out, err = executeCommand("validate", exprA)
	require.NoError(t, err)
	require.Contains(t, out, exprA+": OK\n")

	_, err = executeCommand("validate", exprA, "--inventory", filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestInfo(t *testing.T) {
	inv := writeInventory(t)

	out, err := executeCommand("info", "{web01:agent.version.str(5.0)}", "--inventory", inv)
	require.NoError(t, err)
	require.Equal(t, "Value type: 0 or 1\nType: INT\nValidation: IN(0,1)\n", out)

	_, err = executeCommand("info", "1>0", "--inventory", inv)
	requireExitCode(t, err, exitInvalid)

	_, err = executeCommand("info", "{web01:agent.version.str(5.0)}")
	requireExitCode(t, err, exitInvalid)
}
