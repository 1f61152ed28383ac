package validate_test

import (
	"net"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fleetwatch/core/api"
	"github.com/fleetwatch/core/server/admission"
	"github.com/fleetwatch/core/server/validate"
)

type fakeTLSChecker struct {
	calls  int
	reject bool
}

func (f *fakeTLSChecker) CheckHost(hostID uint64, presented admission.Presented) error {
	f.calls++
	if f.reject {
		return api.NewAdmissionError("cert issuer mismatch")
	}
	return nil
}

func TestProxyItemValidator(t *testing.T) {
	v := validate.ProxyItemValidator{SelfProxyID: 5}

	require.NoError(t, v.Validate(api.Item{ID: 1, Type: api.ItemTypeSNMP}, api.Host{ProxyID: 5}))

	err := v.Validate(api.Item{ID: 2, Type: api.ItemTypeSNMP}, api.Host{ProxyID: 6})
	require.Error(t, err)

	err = v.Validate(api.Item{ID: 3, Type: api.ItemTypeCalculated}, api.Host{ProxyID: 5})
	require.Error(t, err)
}

func TestAgentItemValidatorCachesTLSDecision(t *testing.T) {
	checker := &fakeTLSChecker{}
	v := &validate.AgentItemValidator{Checker: checker}
	host := api.Host{ID: 9, ProxyID: 0}

	require.NoError(t, v.Validate(api.Item{ID: 1, Type: api.ItemTypeActiveAgent}, host, admission.Presented{}))
	require.NoError(t, v.Validate(api.Item{ID: 2, Type: api.ItemTypeActiveAgent}, host, admission.Presented{}))
	require.Equal(t, 1, checker.calls) // second call hit the one-slot cache

	err := v.Validate(api.Item{ID: 3, Type: api.ItemTypeSNMP}, host, admission.Presented{})
	require.Error(t, err)

	err = v.Validate(api.Item{ID: 4, Type: api.ItemTypeActiveAgent}, api.Host{ID: 9, ProxyID: 3}, admission.Presented{})
	require.Error(t, err)
}

func TestAgentItemValidatorCacheInvalidatesOnHostChange(t *testing.T) {
	checker := &fakeTLSChecker{}
	v := &validate.AgentItemValidator{Checker: checker}

	_ = v.Validate(api.Item{ID: 1, Type: api.ItemTypeActiveAgent}, api.Host{ID: 1}, admission.Presented{})
	_ = v.Validate(api.Item{ID: 2, Type: api.ItemTypeActiveAgent}, api.Host{ID: 2}, admission.Presented{})
	require.Equal(t, 2, checker.calls)
}

func TestSenderItemValidator(t *testing.T) {
	checker := &fakeTLSChecker{}
	v := &validate.SenderItemValidator{Checker: checker}
	host := api.Host{ID: 1}
	item := api.Item{ID: 1, Type: api.ItemTypeTrapper, TrapperHosts: "10.0.0.1,192.168.1.0/24"}

	require.NoError(t, v.Validate(item, host, net.ParseIP("192.168.1.5"), admission.Presented{}))

	err := v.Validate(item, host, net.ParseIP("8.8.8.8"), admission.Presented{})
	require.Error(t, err)

	noAllowlist := api.Item{ID: 2, Type: api.ItemTypeTrapper}
	err = v.Validate(noAllowlist, host, net.ParseIP("10.0.0.1"), admission.Presented{})
	require.Error(t, err)

	err = v.Validate(api.Item{ID: 3, Type: api.ItemTypeSNMP}, host, net.ParseIP("10.0.0.1"), admission.Presented{})
	require.Error(t, err)
}

func TestSenderItemValidatorRejectsOnTLSFailure(t *testing.T) {
	checker := &fakeTLSChecker{reject: true}
	v := &validate.SenderItemValidator{Checker: checker}
	item := api.Item{ID: 1, Type: api.ItemTypeTrapper, TrapperHosts: "10.0.0.1"}

	err := v.Validate(item, api.Host{ID: 1}, net.ParseIP("10.0.0.1"), admission.Presented{})
	require.Error(t, err)
}
