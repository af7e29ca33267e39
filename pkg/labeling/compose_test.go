package labeling

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/lfkit/pkg/candidate"
)

var allLabels = []Label{True, False, Abstain}

func mustLabel(t *testing.T, lf LabelingFunction, c *candidate.Candidate) Label {
	t.Helper()
	v, err := lf.Label(c)
	require.NoError(t, err)
	return v
}

func TestAnd_TruthTable(t *testing.T) {
	tests := []struct {
		a, b Label
		want Label
	}{
		{True, True, True},
		{True, Abstain, Abstain},
		{True, False, Abstain},
		{False, False, False},
		{False, Abstain, False},
		{Abstain, Abstain, Abstain},
	}

	for _, tt := range tests {
		t.Run(tt.a.String()+"_"+tt.b.String(), func(t *testing.T) {
			lf, err := And("", fixed("a", tt.a), fixed("b", tt.b))
			require.NoError(t, err)
			assert.Equal(t, tt.want, mustLabel(t, lf, spouse()))

			swapped, err := And("", fixed("b", tt.b), fixed("a", tt.a))
			require.NoError(t, err)
			assert.Equal(t, tt.want, mustLabel(t, swapped, spouse()))
		})
	}
}

func TestOr_TruthTable(t *testing.T) {
	tests := []struct {
		a, b Label
		want Label
	}{
		{True, True, True},
		{True, Abstain, True},
		{True, False, Abstain},
		{False, False, False},
		{False, Abstain, Abstain},
		{Abstain, Abstain, Abstain},
	}

	for _, tt := range tests {
		t.Run(tt.a.String()+"_"+tt.b.String(), func(t *testing.T) {
			lf, err := Or("", fixed("a", tt.a), fixed("b", tt.b))
			require.NoError(t, err)
			assert.Equal(t, tt.want, mustLabel(t, lf, spouse()))
		})
	}
}

func TestAlgebraIdentities(t *testing.T) {
	for _, v := range allLabels {
		t.Run(v.String(), func(t *testing.T) {
			a := fixed("a", v)

			and, err := And("", a, a)
			require.NoError(t, err)
			assert.Equal(t, v, mustLabel(t, and, spouse()), "AND(A,A) == A")

			not, err := Not("", a)
			require.NoError(t, err)
			notNot, err := Not("", not)
			require.NoError(t, err)
			assert.Equal(t, v, mustLabel(t, notNot, spouse()), "NOT(NOT A) == A")

			contradiction, err := And("", a, not)
			require.NoError(t, err)
			assert.Equal(t, Abstain, mustLabel(t, contradiction, spouse()), "AND(A, NOT A) abstains")

			or, err := Or("", a, a)
			require.NoError(t, err)
			assert.Equal(t, v, mustLabel(t, or, spouse()), "OR(A,A) == A")
		})
	}
}

func TestOr_DeMorganDual(t *testing.T) {
	for _, x := range allLabels {
		for _, y := range allLabels {
			a, b := fixed("a", x), fixed("b", y)

			or, err := Or("", a, b)
			require.NoError(t, err)

			na, _ := Not("", a)
			nb, _ := Not("", b)
			and, _ := And("", na, nb)
			dual, err := Not("", and)
			require.NoError(t, err)

			assert.Equal(t, mustLabel(t, dual, spouse()), mustLabel(t, or, spouse()), "%s %s", x, y)
		}
	}
}

func TestGuarded(t *testing.T) {
	tests := []struct {
		primary, guard Label
		want           Label
	}{
		{True, True, True},
		{True, Abstain, True},
		{True, False, Abstain},
		{False, True, Abstain},
		{False, Abstain, Abstain},
		{Abstain, True, Abstain},
	}

	for _, tt := range tests {
		lf, err := Guarded("g", fixed("p", tt.primary), fixed("q", tt.guard))
		require.NoError(t, err)
		assert.Equal(t, tt.want, mustLabel(t, lf, spouse()), "%s guarded by %s", tt.primary, tt.guard)
	}
}

func TestGuarded_GuardOnlyEvaluatedWhenPrimaryFires(t *testing.T) {
	calls := 0
	guard := Func("guard", func(*candidate.Candidate) Label {
		calls++
		return True
	})

	lf, err := Guarded("", fixed("p", Abstain), guard)
	require.NoError(t, err)
	assert.Equal(t, Abstain, mustLabel(t, lf, spouse()))
	assert.Zero(t, calls)
	assert.Equal(t, "GUARDED(p,guard)", lf.Name())
}

func TestComposite_NamesAndConstituents(t *testing.T) {
	a, b := fixed("a", True), fixed("b", False)

	and, err := And("", a, b)
	require.NoError(t, err)
	assert.Equal(t, "AND(a,b)", and.Name())

	not, err := Not("", and)
	require.NoError(t, err)
	assert.Equal(t, "NOT(AND(a,b))", not.Name())

	named, err := Or("lf_either", a, b)
	require.NoError(t, err)
	assert.Equal(t, "lf_either", named.Name())

	comp, ok := and.(Composite)
	require.True(t, ok)
	parts := comp.Constituents()
	assert.Equal(t, []string{"a", "b"}, Names(parts))

	parts[0] = nil
	assert.Equal(t, []string{"a", "b"}, Names(comp.Constituents()))
}

func TestComposite_ConfigurationErrors(t *testing.T) {
	_, err := And("empty")
	assert.ErrorIs(t, err, ErrConfiguration)

	_, err = Or("", fixed("a", True), nil)
	assert.ErrorIs(t, err, ErrConfiguration)

	_, err = Not("", nil)
	assert.ErrorIs(t, err, ErrConfiguration)

	_, err = Guarded("", nil, fixed("a", True))
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestComposite_PropagatesConstituentError(t *testing.T) {
	boom := errors.New("boom")
	broken := FuncE("broken", func(*candidate.Candidate) (Label, error) { return Abstain, boom })

	lf, err := And("both", fixed("a", True), broken)
	require.NoError(t, err)

	v, err := lf.Label(spouse())
	assert.Equal(t, Abstain, v)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "both: broken")
}
