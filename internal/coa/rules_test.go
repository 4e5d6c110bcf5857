package coa

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAccountLevel(t *testing.T) {
	cases := map[string]int{
		"1":       1,
		"11":      2,
		"111":     3,
		"1111":    4,
		"11111":   3,
		"111111":  3,
		"1111111": 4,
	}
	for code, want := range cases {
		require.Equal(t, want, AccountLevel(code), "code %s", code)
	}
}

func TestParentAccountNumber(t *testing.T) {
	require.Equal(t, "", ParentAccountNumber("1"))
	require.Equal(t, "", ParentAccountNumber(""))
	require.Equal(t, "11", ParentAccountNumber("111"))
	require.Equal(t, "131", ParentAccountNumber("1311"))
}

func TestAccountNature(t *testing.T) {
	require.Equal(t, NatureDebit, AccountNature("131"))
	require.Equal(t, NatureDebit, AccountNature("2"))
	require.Equal(t, NatureDebit, AccountNature("512"))
	require.Equal(t, NatureDebit, AccountNature("8"))
	require.Equal(t, NatureCredit, AccountNature("331"))
	require.Equal(t, NatureCredit, AccountNature("41"))
	require.Equal(t, NatureCredit, AccountNature("9"))
	require.Equal(t, NatureBoth, AccountNature("0"))
	require.Equal(t, NatureBoth, AccountNature(""))
}

func TestValidAccountCode(t *testing.T) {
	require.True(t, ValidAccountCode("1311"))
	require.False(t, ValidAccountCode(""))
	require.False(t, ValidAccountCode("13a1"))
	require.False(t, ValidAccountCode("13 1"))
}
