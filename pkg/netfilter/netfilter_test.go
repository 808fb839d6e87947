package netfilter

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeKernel stands in for the real iptables tables: Apply folds staged
// rules into it the way a restore pipe would, so insert/delete symmetry
// (spec.md §8 scenario 1) can be asserted without shelling out.
type fakeKernel struct {
	tables map[Table][]string
}

func newFakeService() (*Service, *fakeKernel) {
	fk := &fakeKernel{tables: map[Table][]string{}}
	s := &Service{
		staged:  map[key][]Rule{},
		checker: func(Family, []string) error { return nil },
		apply: func(family Family, script string) error {
			table := TableFilter
			for _, line := range strings.Split(script, "\n") {
				line = strings.TrimSpace(line)
				switch {
				case strings.HasPrefix(line, "*"):
					table = Table(strings.TrimPrefix(line, "*"))
				case strings.HasPrefix(line, "-A") || strings.HasPrefix(line, "-I"):
					fk.tables[table] = append(fk.tables[table], strings.TrimSpace(line[2:]))
				case strings.HasPrefix(line, "-D"):
					rule := strings.TrimSpace(line[2:])
					for i, existing := range fk.tables[table] {
						if existing == rule {
							fk.tables[table] = append(fk.tables[table][:i], fk.tables[table][i+1:]...)
							break
						}
					}
				}
			}
			return nil
		},
	}
	return s, fk
}

func TestApplyDeleteSymmetry(t *testing.T) {
	s, fk := newFakeService()

	filterRule := Rule{Args: append([]string{"DobbyInputChain", "-s", "100.64.11.2/32", "-d", "127.0.0.1/32", "-i", "dobby0", "-p", "tcp", "-m", "tcp", "--dport", "9001"}, append(Tag("asplugin", "c1"), "-j", "ACCEPT")...)}
	natRule := Rule{Args: append([]string{"PREROUTING", "-s", "100.64.11.2/32", "-d", "100.64.11.1/32", "-i", "dobby0", "-p", "tcp", "-m", "tcp", "--dport", "9001"}, append(Tag("asplugin", "c1"), "-j", "DNAT", "--to-destination", "127.0.0.1:9001")...)}

	require.NoError(t, s.AddRules(TableFilter, IPv4, []Rule{filterRule}))
	require.NoError(t, s.AddRules(TableNAT, IPv4, []Rule{natRule}))
	require.NoError(t, s.Apply(IPv4))

	assert.Len(t, fk.tables[TableFilter], 1)
	assert.Len(t, fk.tables[TableNAT], 1)

	deleteFilter := filterRule
	deleteFilter.Op = Delete
	deleteNAT := natRule
	deleteNAT.Op = Delete
	require.NoError(t, s.AddRules(TableFilter, IPv4, []Rule{deleteFilter}))
	require.NoError(t, s.AddRules(TableNAT, IPv4, []Rule{deleteNAT}))
	require.NoError(t, s.Apply(IPv4))

	assert.Empty(t, fk.tables[TableFilter])
	assert.Empty(t, fk.tables[TableNAT])
}

func TestApplyPreservesFamilyIsolation(t *testing.T) {
	s, fk := newFakeService()
	rule := Rule{Args: []string{"INPUT", "-j", "ACCEPT"}}
	require.NoError(t, s.AddRules(TableFilter, IPv4, []Rule{rule}))
	require.NoError(t, s.Apply(IPv6)) // nothing staged under IPv6
	assert.Empty(t, fk.tables[TableFilter])
	assert.Len(t, s.Pending(TableFilter, IPv4), 1)
}

func TestTagIsUnquoted(t *testing.T) {
	tag := Tag("asplugin", "c1")
	joined := strings.Join(tag, " ")
	assert.Equal(t, `-m comment --comment asplugin:c1`, joined)
	assert.NotContains(t, joined, `"`)
}
