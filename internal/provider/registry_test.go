package provider

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/billscan/internal/model"
)

const minimalConfig = `
name: %s
service: water
classifier:
  bill_indicators: [water bill, meter number]
required: [account_number]
identity:
  - name: account_number
    kind: identifier
    strategies:
      - kind: anchored
        pattern: 'Account\s+(\d{6})'
bill:
  - name: amount_due
    kind: amount
    strategies:
      - kind: first_amount
`

func writeConfig(t *testing.T, dir, file, name string) {
	t.Helper()
	body := []byte(fmt.Sprintf(minimalConfig, name))
	require.NoError(t, os.WriteFile(filepath.Join(dir, file), body, 0o644))
}

func TestBuiltin_LoadsAllProviders(t *testing.T) {
	t.Parallel()
	reg, err := Builtin()
	require.NoError(t, err)

	assert.Equal(t, []string{
		"duke-energy",
		"durham-water",
		"enbridge-gas",
		"graham-utilities",
		"smud",
		"spectrum",
		"wake-electric",
		"xfinity",
	}, reg.Names())

	for _, p := range reg.All() {
		for _, dt := range []model.DocumentType{model.DocumentBill, model.DocumentAttentionNotice, model.DocumentUnknown} {
			names := p.FieldNames(dt)
			assert.Contains(t, names, model.FieldAccountNumber, "%s %s", p.Name, dt)
			assert.Contains(t, names, model.FieldServiceLocation, "%s %s", p.Name, dt)
			assert.Contains(t, names, model.FieldAmountDue, "%s %s", p.Name, dt)
		}
		assert.NotEmpty(t, p.Required, p.Name)
		assert.NotEmpty(t, p.DisplayName, p.Name)
	}
}

func TestRegistry_GetBySlugOrName(t *testing.T) {
	t.Parallel()
	reg, err := Builtin()
	require.NoError(t, err)

	p, err := reg.Get("Duke Energy")
	require.NoError(t, err)
	assert.Equal(t, "duke-energy", p.Slug)
	assert.Equal(t, ServiceElectric, p.Service)

	p, err = reg.Get("wake-electric")
	require.NoError(t, err)
	assert.Equal(t, "Wake Electric", p.DisplayName)
}

func TestRegistry_GetUnknown(t *testing.T) {
	t.Parallel()
	reg := NewRegistry()
	_, err := reg.Get("nonexistent")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown provider "nonexistent"`)
}

func TestRegistry_RejectsDuplicate(t *testing.T) {
	t.Parallel()
	reg := NewRegistry()
	a, err := Parse([]byte(fmt.Sprintf(minimalConfig, "Acme Water")))
	require.NoError(t, err)
	b, err := Parse([]byte(fmt.Sprintf(minimalConfig, "acme-water")))
	require.NoError(t, err)

	require.NoError(t, reg.Register(a))
	err = reg.Register(b)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate provider")
}

func TestRegistry_PreservesOrder(t *testing.T) {
	t.Parallel()
	reg := NewRegistry()
	for _, name := range []string{"gamma", "alpha", "beta"} {
		p, err := Parse([]byte(fmt.Sprintf(minimalConfig, name)))
		require.NoError(t, err)
		require.NoError(t, reg.Register(p))
	}
	assert.Equal(t, []string{"gamma", "alpha", "beta"}, reg.Names())
	require.Len(t, reg.All(), 3)
	assert.Equal(t, "gamma", reg.All()[0].Name)
}

func TestRegistry_LoadDir(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeConfig(t, dir, "b.yaml", "beta-water")
	writeConfig(t, dir, "a.yml", "alpha-water")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))

	reg := NewRegistry()
	n, err := reg.LoadDir(dir)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"alpha-water", "beta-water"}, reg.Names())
}

func TestRegistry_LoadDirMissing(t *testing.T) {
	t.Parallel()
	reg := NewRegistry()
	n, err := reg.LoadDir(filepath.Join(t.TempDir(), "absent"))
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRegistry_LoadDirCollidesWithBuiltin(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeConfig(t, dir, "smud.yaml", "smud")

	reg, err := Builtin()
	require.NoError(t, err)
	_, err = reg.LoadDir(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate provider")
}
