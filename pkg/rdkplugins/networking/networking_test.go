package networking

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rdkcentral/Dobby-sub004/pkg/netfilter"
)

func TestForwardRuleCarriesTagAndDNAT(t *testing.T) {
	ip := net.IPv4(100, 64, 11, 5)
	pf := PortForward{HostPort: 8080, ContainerPort: 80, Protocol: "tcp"}

	rule := forwardRule("c1", ip, pf, netfilter.Insert)

	assert.Equal(t, netfilter.Insert, rule.Op)
	assert.Contains(t, rule.Args, "PREROUTING")
	assert.Contains(t, rule.Args, "--to-destination")
	found := false
	for i, a := range rule.Args {
		if a == "--to-destination" {
			assert.Equal(t, "100.64.11.5:80", rule.Args[i+1])
			found = true
		}
	}
	assert.True(t, found, "rule must carry a --to-destination arg")

	tagged := append([]string{}, netfilter.Tag("networking", "c1")...)
	for _, want := range tagged {
		assert.Contains(t, rule.Args, want)
	}
}

func TestForwardRuleDeleteUsesSameArgsDifferentOp(t *testing.T) {
	ip := net.IPv4(100, 64, 11, 5)
	pf := PortForward{HostPort: 8080, ContainerPort: 80, Protocol: "udp"}

	insert := forwardRule("c1", ip, pf, netfilter.Insert)
	del := forwardRule("c1", ip, pf, netfilter.Delete)

	assert.Equal(t, insert.Args, del.Args)
	assert.Equal(t, netfilter.Delete, del.Op)
}

func TestBuildParsesPortForwards(t *testing.T) {
	raw := []byte(`{"portForwards":[{"hostPort":80,"containerPort":8080,"protocol":"tcp"}]}`)
	p, err := build(raw)
	assert.NoError(t, err)
	assert.NotNil(t, p.Callbacks)
}
