package service_test

import (
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/c360/flowtest/errors"
	"github.com/c360/flowtest/lifecycle"
	"github.com/c360/flowtest/property"
	"github.com/c360/flowtest/service"
	"github.com/c360/flowtest/testutil"
)

type RegistryStateMachineSuite struct {
	suite.Suite

	registry *service.Registry
	svc      *testutil.MockService
}

func (s *RegistryStateMachineSuite) SetupTest() {
	s.registry = service.NewRegistry(nil)
	s.svc = testutil.NewMockService(
		property.Descriptor{Name: "Cache Size", DefaultValue: "100"},
		property.Descriptor{Name: "Directory", Required: true},
	)
}

func (s *RegistryStateMachineSuite) TestAddStoresDisabledAndFiresHooks() {
	err := s.registry.Add("svc-1", s.svc, map[string]string{"Cache Size": "50"})
	s.Require().NoError(err)

	s.Equal(1, s.svc.InitializeCalls)
	s.Equal(1, s.svc.AddedCalls)

	enabled, err := s.registry.IsEnabled("svc-1")
	s.Require().NoError(err)
	s.False(enabled, "a fresh registration must start disabled")

	props, err := s.registry.Properties("svc-1")
	s.Require().NoError(err)
	s.Equal(map[string]string{"Cache Size": "50"}, props)
}

func (s *RegistryStateMachineSuite) TestAddDuplicateIdentifierFails() {
	s.Require().NoError(s.registry.Add("svc-1", s.svc, nil))

	err := s.registry.Add("svc-1", testutil.NewMockService(), nil)
	s.Require().Error(err)
	s.True(stderrors.Is(err, errors.ErrDuplicateService))
	s.True(errors.IsConfig(err))
}

func (s *RegistryStateMachineSuite) TestAddUnresolvablePropertyFails() {
	err := s.registry.Add("svc-1", s.svc, map[string]string{"No Such Property": "x"})
	s.Require().Error(err)
	s.True(stderrors.Is(err, errors.ErrUnknownProperty))
}

func (s *RegistryStateMachineSuite) TestFullLifecycleInOrder() {
	s.Require().NoError(s.registry.Add("svc-1", s.svc, map[string]string{"Directory": "/tmp"}))
	s.Require().NoError(s.registry.Enable("svc-1"))
	s.Require().NoError(s.registry.Disable("svc-1"))
	s.Require().NoError(s.registry.Remove("svc-1"))

	s.Equal(1, s.svc.AddedCalls)
	s.Equal(1, s.svc.EnabledCalls)
	s.Equal(1, s.svc.DisabledCalls)
	s.Equal(1, s.svc.RemovedCalls)

	_, err := s.registry.Service("svc-1")
	s.Require().Error(err)
	s.True(stderrors.Is(err, errors.ErrUnknownService))
}

func (s *RegistryStateMachineSuite) TestEnableTwiceFails() {
	s.Require().NoError(s.registry.Add("svc-1", s.svc, nil))
	s.Require().NoError(s.registry.Enable("svc-1"))

	err := s.registry.Enable("svc-1")
	s.Require().Error(err)
	s.True(errors.IsState(err))
	s.Equal(1, s.svc.EnabledCalls, "the enabled phase must fire exactly once")
}

func (s *RegistryStateMachineSuite) TestDisableWhileDisabledFails() {
	s.Require().NoError(s.registry.Add("svc-1", s.svc, nil))

	err := s.registry.Disable("svc-1")
	s.Require().Error(err)
	s.True(errors.IsState(err))
	s.Zero(s.svc.DisabledCalls)
}

func (s *RegistryStateMachineSuite) TestEnableHookFailureKeepsDisabled() {
	cause := stderrors.New("connection refused")
	s.svc.OnEnabledFunc = func(_ *service.ConfigurationContext) error { return cause }

	s.Require().NoError(s.registry.Add("svc-1", s.svc, nil))

	err := s.registry.Enable("svc-1")
	s.Require().Error(err)
	s.True(stderrors.Is(err, cause))
	s.True(errors.IsLifecycle(err))

	enabled, lookupErr := s.registry.IsEnabled("svc-1")
	s.Require().NoError(lookupErr)
	s.False(enabled, "failed enable must leave the service disabled")
}

func (s *RegistryStateMachineSuite) TestDisableHookFailureStillDisables() {
	cause := stderrors.New("flush failed")
	s.svc.OnDisabledFunc = func() error { return cause }

	s.Require().NoError(s.registry.Add("svc-1", s.svc, nil))
	s.Require().NoError(s.registry.Enable("svc-1"))

	err := s.registry.Disable("svc-1")
	s.Require().Error(err)
	s.True(stderrors.Is(err, cause))

	enabled, lookupErr := s.registry.IsEnabled("svc-1")
	s.Require().NoError(lookupErr)
	s.False(enabled, "the flag must end disabled even when the hook fails")
}

func (s *RegistryStateMachineSuite) TestRemoveWhileEnabledFails() {
	s.Require().NoError(s.registry.Add("svc-1", s.svc, nil))
	s.Require().NoError(s.registry.Enable("svc-1"))

	err := s.registry.Remove("svc-1")
	s.Require().Error(err)
	s.True(errors.IsState(err))
	s.Zero(s.svc.RemovedCalls)

	// Still registered
	_, lookupErr := s.registry.Service("svc-1")
	s.NoError(lookupErr)
}

func (s *RegistryStateMachineSuite) TestMutationRequiresDisabled() {
	s.Require().NoError(s.registry.Add("svc-1", s.svc, nil))
	s.Require().NoError(s.registry.Enable("svc-1"))

	_, err := s.registry.SetProperty("svc-1", "Cache Size", "10")
	s.Require().Error(err)
	s.True(errors.IsState(err))

	err = s.registry.SetAnnotationData("svc-1", "notes")
	s.Require().Error(err)
	s.True(errors.IsState(err))
}

func (s *RegistryStateMachineSuite) TestEnabledConfigurationView() {
	s.Require().NoError(s.registry.Add("svc-1", s.svc, map[string]string{"Directory": "/data"}))
	s.Require().NoError(s.registry.Enable("svc-1"))

	cfg := s.svc.LastConfiguration
	s.Require().NotNil(cfg)
	s.Equal("svc-1", cfg.Identifier())

	dir, ok := cfg.Property("Directory")
	s.True(ok)
	s.Equal("/data", dir)

	// Unset property falls back to the descriptor default
	size, ok := cfg.Property("Cache Size")
	s.True(ok)
	s.Equal("100", size)
}

func (s *RegistryStateMachineSuite) TestUnknownIdentifierIsHardFailure() {
	for _, op := range []func() error{
		func() error { return s.registry.Enable("ghost") },
		func() error { return s.registry.Disable("ghost") },
		func() error { return s.registry.Remove("ghost") },
		func() error { _, err := s.registry.IsEnabled("ghost"); return err },
		func() error { _, err := s.registry.Service("ghost"); return err },
		func() error { _, err := s.registry.Properties("ghost"); return err },
		func() error { _, err := s.registry.AnnotationData("ghost"); return err },
	} {
		err := op()
		s.Require().Error(err)
		s.True(stderrors.Is(err, errors.ErrUnknownService))
	}
}

func TestRegistryStateMachine(t *testing.T) {
	suite.Run(t, new(RegistryStateMachineSuite))
}

func TestSetPropertyValidation(t *testing.T) {
	registry := service.NewRegistry(nil)
	svc := testutil.NewMockService(
		property.Descriptor{Name: "Mode", AllowableValues: []property.AllowableValue{{Value: "strict"}}},
	)
	require.NoError(t, registry.Add("svc-1", svc, nil))

	result, err := registry.SetProperty("svc-1", "Mode", "strict")
	require.NoError(t, err)
	assert.True(t, result.Valid)

	result, err = registry.SetProperty("svc-1", "Mode", "bogus")
	require.NoError(t, err)
	assert.False(t, result.Valid)

	// Unknown property names yield an invalid result, not an error
	result, err = registry.SetProperty("svc-1", "Unknown", "x")
	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.Contains(t, result.Explanation, "not a known property")
}

func TestValidateUsesCurrentConfiguration(t *testing.T) {
	registry := service.NewRegistry(nil)
	svc := testutil.NewMockService(
		property.Descriptor{Name: "Directory", Required: true},
	)
	require.NoError(t, registry.Add("svc-1", svc, nil))

	results, err := registry.Validate("svc-1")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.False(t, results[0].Valid, "required property unset")

	_, err = registry.SetProperty("svc-1", "Directory", "/tmp")
	require.NoError(t, err)

	results, err = registry.Validate("svc-1")
	require.NoError(t, err)
	assert.True(t, results[0].Valid)
}

func TestAnnotationDataRoundTrip(t *testing.T) {
	registry := service.NewRegistry(nil)
	require.NoError(t, registry.Add("svc-1", testutil.NewMockService(), nil))

	require.NoError(t, registry.SetAnnotationData("svc-1", "<config/>"))
	data, err := registry.AnnotationData("svc-1")
	require.NoError(t, err)
	assert.Equal(t, "<config/>", data)
}

func TestEnabledPhaseRequiresConfigurationView(t *testing.T) {
	svc := testutil.NewMockService()
	b := service.BindLifecycle("svc-1", svc)

	err := b.Invoke(lifecycle.PhaseEnabled)
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrInvalidConfig))

	err = b.Invoke(lifecycle.PhaseEnabled, 42)
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrInvalidConfig))
	assert.Zero(t, svc.EnabledCalls, "the hook must not run without its argument")
}

func TestIdentifiers(t *testing.T) {
	registry := service.NewRegistry(nil)
	require.NoError(t, registry.Add("a", testutil.NewMockService(), nil))
	require.NoError(t, registry.Add("b", testutil.NewMockService(), nil))

	assert.ElementsMatch(t, []string{"a", "b"}, registry.Identifiers())
}
