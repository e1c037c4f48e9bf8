package quorum

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mindburn-Labs/mintgov/pkg/contracts"
)

var (
	owner1   = contracts.Address("owner1")
	owner2   = contracts.Address("owner2")
	owner3   = contracts.Address("owner3")
	outsider = contracts.Address("outsider")
)

func TestNew(t *testing.T) {
	s, err := New([]contracts.Address{owner1, owner2, owner3})
	require.NoError(t, err)
	assert.Equal(t, 3, s.Size())
	assert.True(t, s.IsMember(owner2))
	assert.False(t, s.IsMember(outsider))
	assert.Equal(t, []contracts.Address{owner1, owner2, owner3}, s.Roster())

	_, err = New(nil)
	assert.ErrorIs(t, err, contracts.ErrInvalidArgument)

	_, err = New([]contracts.Address{owner1, owner1})
	assert.ErrorIs(t, err, contracts.ErrInvalidArgument)

	_, err = New([]contracts.Address{owner1, ""})
	assert.ErrorIs(t, err, contracts.ErrInvalidAddress)
}

func TestReplaceMemberKeepsSlot(t *testing.T) {
	s, err := New([]contracts.Address{owner1, owner2, owner3})
	require.NoError(t, err)

	require.NoError(t, s.ReplaceMember(owner2, outsider))
	assert.Equal(t, []contracts.Address{owner1, outsider, owner3}, s.Roster())
	assert.False(t, s.IsMember(owner2))
	assert.True(t, s.IsMember(outsider))
	assert.Equal(t, 3, s.Size())
}

func TestReplaceMemberRejects(t *testing.T) {
	s, err := New([]contracts.Address{owner1, owner2, owner3})
	require.NoError(t, err)

	err = s.ReplaceMember(outsider, "fresh")
	assert.ErrorIs(t, err, contracts.ErrNotAMember)

	err = s.ReplaceMember(owner1, owner3)
	assert.ErrorIs(t, err, contracts.ErrNotAMember)

	err = s.ReplaceMember(owner1, "")
	assert.ErrorIs(t, err, contracts.ErrInvalidAddress)

	assert.Equal(t, []contracts.Address{owner1, owner2, owner3}, s.Roster())
}

func TestRosterIsACopy(t *testing.T) {
	s, err := New([]contracts.Address{owner1, owner2})
	require.NoError(t, err)
	r := s.Roster()
	r[0] = outsider
	assert.True(t, s.IsMember(owner1))
	assert.Equal(t, owner1, s.Roster()[0])
}

func TestValidateThreshold(t *testing.T) {
	assert.NoError(t, ValidateThreshold(2, 3))
	assert.NoError(t, ValidateThreshold(3, 3))
	assert.ErrorIs(t, ValidateThreshold(0, 3), contracts.ErrInvalidArgument)
	assert.ErrorIs(t, ValidateThreshold(4, 3), contracts.ErrInvalidArgument)
}

func TestTallyExclusive(t *testing.T) {
	var tl Tally
	assert.True(t, tl.Approve(owner1))
	assert.False(t, tl.Approve(owner1))
	assert.False(t, tl.Veto(owner1))
	assert.True(t, tl.Veto(owner2))
	assert.False(t, tl.Approve(owner2))

	assert.Equal(t, 1, tl.Approvals())
	assert.Equal(t, 1, tl.Vetoes())
	assert.True(t, tl.HasApproved(owner1))
	assert.True(t, tl.HasVetoed(owner2))
	assert.False(t, tl.Participated(owner3))

	tl.Unapprove(owner1)
	assert.Equal(t, 0, tl.Approvals())
	assert.True(t, tl.Approve(owner1))
}

func TestTallyRestore(t *testing.T) {
	tl := Restore([]contracts.Address{owner1, owner3}, []contracts.Address{owner2})
	assert.Equal(t, []contracts.Address{owner1, owner3}, tl.Approvers())
	assert.Equal(t, []contracts.Address{owner2}, tl.Vetoers())
}
