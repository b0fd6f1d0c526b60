package export

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestRepair(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "ascii", in: "hello", want: "hello"},
		{name: "empty", in: "", want: ""},
		{name: "latin accent", in: "cafÃ©", want: "café"},
		{name: "emoji", in: "ð\u009f\u0098\u0086", want: "😆"},
		{name: "thumbs up", in: "ð\u009f\u0091\u008d", want: "👍"},
		{name: "mixed", in: "ZoÃ« says hi â\u009d¤", want: "Zoë says hi ❤"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Repair(tc.in)
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestRepair_IdempotentOnASCII(t *testing.T) {
	once, err := Repair("hello")
	require.NoError(t, err)
	twice, err := Repair(once)
	require.NoError(t, err)
	require.Equal(t, "hello", twice)
}

func TestRepair_Failures(t *testing.T) {
	// Already-correct text outside Latin-1 cannot be mapped back to bytes.
	_, err := Repair("😆")
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrUndecodableText))

	// A lone Latin-1 byte that does not form valid UTF-8.
	_, err = Repair("café")
	require.Error(t, err)
	var de *TextDecodeError
	require.True(t, errors.As(err, &de))
	require.Equal(t, "café", de.Input)
}

func TestRepairPtr(t *testing.T) {
	out, err := RepairPtr(nil)
	require.NoError(t, err)
	require.Nil(t, out)

	in := "cafÃ©"
	out, err = RepairPtr(&in)
	require.NoError(t, err)
	require.Equal(t, "café", *out)
}
