package audience_test

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifykit/pkg/audience"
	"github.com/dmitrymomot/notifykit/pkg/logger"
)

type mockDirectory struct {
	mock.Mock
}

func (m *mockDirectory) ResolveRoleMembers(ctx context.Context, role string) ([]string, error) {
	args := m.Called(ctx, role)
	ids, _ := args.Get(0).([]string)
	return ids, args.Error(1)
}

func (m *mockDirectory) ResolveGroupMembers(ctx context.Context, group string) ([]string, error) {
	args := m.Called(ctx, group)
	ids, _ := args.Get(0).([]string)
	return ids, args.Error(1)
}

func TestResolver_ResolveAudience(t *testing.T) {
	t.Parallel()

	dir := audience.NewMemoryDirectory()
	dir.SetRole("teacher", "u3", "u1", "u2")
	dir.SetGroup("grade-5b", "u2", "u4", " ", "u4")

	r := audience.NewResolver(dir, audience.WithResolverLogger(logger.Discard()))

	tests := []struct {
		name   string
		target audience.Target
		want   []string
	}{
		{name: "single user", target: audience.User("u9"), want: []string{"u9"}},
		{name: "role", target: audience.Role("teacher"), want: []string{"u1", "u2", "u3"}},
		{name: "group dedups and drops blanks", target: audience.Group("grade-5b"), want: []string{"u2", "u4"}},
		{name: "explicit list", target: audience.List("b", "a", "b", ""), want: []string{"a", "b"}},
		{
			name:   "union",
			target: audience.Union(audience.Role("teacher"), audience.Group("grade-5b"), audience.User("u1")),
			want:   []string{"u1", "u2", "u3", "u4"},
		},
		{name: "unknown role is empty", target: audience.Role("janitor"), want: []string{}},
		{name: "empty list", target: audience.List(), want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := r.ResolveAudience(context.Background(), tt.target)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolver_EmptyAudienceIsLogged(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	r := audience.NewResolver(audience.NewMemoryDirectory(),
		audience.WithResolverLogger(logger.New(logger.WithOutput(buf))))

	ids, err := r.ResolveAudience(context.Background(), audience.Group("empty"))
	require.NoError(t, err)
	assert.Empty(t, ids)
	assert.Contains(t, buf.String(), audience.ErrAudienceEmpty.Error())
}

func TestResolver_Errors(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("directory failure", func(t *testing.T) {
		t.Parallel()
		dir := &mockDirectory{}
		boom := errors.New("ldap down")
		dir.On("ResolveRoleMembers", mock.Anything, "teacher").Return(nil, boom).Once()

		_, err := audience.NewResolver(dir, audience.WithResolverLogger(logger.Discard())).
			ResolveAudience(ctx, audience.Union(audience.User("u1"), audience.Role("teacher")))
		assert.ErrorIs(t, err, audience.ErrDirectoryLookup)
		assert.ErrorIs(t, err, boom)
		dir.AssertExpectations(t)
	})

	t.Run("invalid targets", func(t *testing.T) {
		t.Parallel()
		r := audience.NewResolver(&mockDirectory{}, audience.WithResolverLogger(logger.Discard()))

		_, err := r.ResolveAudience(ctx, audience.Target{})
		assert.ErrorIs(t, err, audience.ErrInvalidTarget)

		_, err = r.ResolveAudience(ctx, audience.Role(""))
		assert.ErrorIs(t, err, audience.ErrInvalidTarget)

		_, err = r.ResolveAudience(ctx, audience.Group(""))
		assert.ErrorIs(t, err, audience.ErrInvalidTarget)
	})
}

func TestTarget_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "role:teacher", audience.Role("teacher").String())
	assert.Equal(t, "list(2)", audience.List("a", "b").String())
	assert.Equal(t, "union(user:u1,group:g)", audience.Union(audience.User("u1"), audience.Group("g")).String())
	assert.Equal(t, audience.KindGroup, audience.Group("g").Kind())
}
