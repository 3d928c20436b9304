package bigquery

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTableSpec(t *testing.T) {
	t.Parallel()

	tests := []struct {
		spec    string
		want    TableRef
		wantErr bool
	}{
		{spec: "proj:routes.flat", want: TableRef{"proj", "routes", "flat"}},
		{spec: "proj.routes.flat", want: TableRef{"proj", "routes", "flat"}},
		{spec: "routes.flat", want: TableRef{"default-proj", "routes", "flat"}},
		{spec: " routes.flat ", want: TableRef{"default-proj", "routes", "flat"}},
		{spec: "", wantErr: true},
		{spec: "flat", wantErr: true},
		{spec: "a.b.c.d", wantErr: true},
		{spec: "proj:routes", wantErr: true},
		{spec: "proj:bad-dataset.flat", wantErr: true},
		{spec: "routes.", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			t.Parallel()
			got, err := ParseTableSpec(tt.spec, "default-proj")
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseTableSpecNeedsProject(t *testing.T) {
	t.Parallel()

	_, err := ParseTableSpec("routes.flat", "")
	assert.ErrorContains(t, err, "no project")
}

func TestTableRefString(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "p:d.t", TableRef{"p", "d", "t"}.String())
}
