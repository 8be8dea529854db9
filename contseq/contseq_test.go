package contseq_test

import (
	"errors"
	"testing"

	"github.com/spbnick/hdag-sub001/contseq"
	"github.com/stretchr/testify/require"
)

func TestChainRunsAllStepsOnSuccess(t *testing.T) {
	var ran []string
	err := contseq.New().
		Then("a", func() error { ran = append(ran, "a"); return nil }).
		Then("b", func() error { ran = append(ran, "b"); return nil }).
		Err()
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b"}, ran)
}

func TestChainStopsAtFirstError(t *testing.T) {
	var ran []string
	boom := errors.New("boom")
	c := contseq.New().
		Then("a", func() error { ran = append(ran, "a"); return nil }).
		Then("b", func() error { ran = append(ran, "b"); return boom }).
		Then("c", func() error { ran = append(ran, "c"); return nil })
	require.ErrorIs(t, c.Err(), boom)
	require.Equal(t, "b", c.FailedStep())
	require.Equal(t, []string{"a", "b"}, ran)
}
