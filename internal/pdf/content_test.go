package pdf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStripText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "text object removed",
			in:   "q 1 0 0 1 0 0 cm BT /F1 12 Tf (Hi) Tj ET Q",
			want: "q\n1 0 0 1 0 0 cm\nQ\n",
		},
		{
			name: "stroked segment removed",
			in:   "0 0 m 100 0 l S 2 w",
			want: "2 w\n",
		},
		{
			name: "polyline kept",
			in:   "0 0 m 100 0 l 100 100 l S",
			want: "0 0 m\n100 0 l\n100 100 l\nS\n",
		},
		{
			name: "filled rectangle kept",
			in:   "10 10 50 50 re f",
			want: "10 10 50 50 re\nf\n",
		},
		{
			name: "clip kept",
			in:   "0 0 10 10 re W n",
			want: "0 0 10 10 re\nW\nn\n",
		},
		{
			name: "nested and escaped parentheses",
			in:   `BT (a (b) \) c) Tj ET 1 w`,
			want: "1 w\n",
		},
		{
			name: "hex string and array",
			in:   "BT [<0041> -120 (B)] TJ ET 0 g",
			want: "0 g\n",
		},
		{
			name: "marked content dictionary",
			in:   "/P <</MCID 0>> BDC EMC",
			want: "/P <</MCID 0>> BDC\nEMC\n",
		},
		{
			name: "comment skipped",
			in:   "% header\n0.5 G",
			want: "0.5 G\n",
		},
		{
			name: "inline image",
			in:   "q BI /W 1 /H 1 /BPC 8 /CS /G ID \xffEI\x00 EI Q",
			want: "q\nBI /W 1 /H 1 /BPC 8 /CS /G ID \xffEI\x00 EI\nQ\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := StripText([]byte(tt.in))
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))
		})
	}
}

func TestStripTextMalformed(t *testing.T) {
	for _, in := range []string{
		"BT (unterminated Tj ET",
		"<0041 Tj",
		"q BI /W 1 ID \x00\x01",
	} {
		_, err := StripText([]byte(in))
		assert.Error(t, err, in)
	}
}

func TestScanInstructionsOperands(t *testing.T) {
	data := []byte("1 0 0 1 5 5 cm\n/F1 9 Tf")
	ins, err := scanInstructions(data)
	require.NoError(t, err)
	require.Len(t, ins, 2)

	assert.Equal(t, "cm", ins[0].op)
	assert.Equal(t, "1 0 0 1 5 5 cm", string(data[ins[0].start:ins[0].end]))
	assert.Equal(t, "Tf", ins[1].op)
	assert.Equal(t, "/F1 9 Tf", string(data[ins[1].start:ins[1].end]))
}
